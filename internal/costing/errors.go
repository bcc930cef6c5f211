package costing

import "errors"

var (
	// ErrInvalidCarton is returned when a carton has non-positive dimensions or capacities.
	ErrInvalidCarton = errors.New("carton must have positive dimensions, units per carton and cartons per pallet")
	// ErrInvalidRateCard is returned when a rate card holds negative rates or no truck capacity.
	ErrInvalidRateCard = errors.New("rate card rates must be non-negative and pallets per truck at least 1")
	// ErrInvalidTransportMode is returned for transport modes other than auto, ltl and ftl.
	ErrInvalidTransportMode = errors.New("transport mode must be one of auto, ltl, ftl")
	// ErrInvalidQuantity is returned when a demand quantity, sample bound or step count is out of range.
	ErrInvalidQuantity = errors.New("quantity is out of range")
	// ErrCartonNotFound is returned when a carton id is not present in the supplied candidates.
	ErrCartonNotFound = errors.New("carton not found")
	// ErrNoCandidates is returned when an operation needs at least one carton and got none.
	ErrNoCandidates = errors.New("no candidate cartons")
	// ErrMixedProducts is returned when a comparison is requested across cartons of different products.
	ErrMixedProducts = errors.New("comparison cartons must share one product")
)
