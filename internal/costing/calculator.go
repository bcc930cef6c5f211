package costing

import (
	"fmt"
	"sort"
)

// Calculator describes the cost engine consumed by the API layer.
type Calculator interface {
	Evaluate(carton Carton, provider string, rates RateCard, params EvaluationParams) (CostAnalysisResult, error)
	EvaluateByID(cartons []Carton, cartonID, provider string, rates RateCard, params EvaluationParams) (CostAnalysisResult, error)
	EvaluateAll(cartons []Carton, rateCards map[string]RateCard, params EvaluationParams) ([]CostAnalysisResult, error)
	Analyze(cartons []Carton, rateCards map[string]RateCard, params EvaluationParams) ([]CostAnalysisResult, error)
	ScalingCurve(carton Carton, cfg CostConfiguration, maxQuantity, steps int) ([]CostBreakdown, error)
	ComparisonCurve(cartons []Carton, cfg CostConfiguration, maxQuantity, steps int) (Comparison, error)
	MinQuantity() int
}

// Option configures the engine returned by New.
type Option func(*engine)

// WithMinQuantity sets the floor that normalized quantities are rounded up to.
// Values below 1 are ignored.
func WithMinQuantity(minimum int) Option {
	return func(e *engine) {
		if minimum >= 1 {
			e.minQuantity = minimum
		}
	}
}

type engine struct {
	minQuantity int
}

// New creates a stateless Calculator.
func New(opts ...Option) Calculator {
	e := &engine{minQuantity: DefaultMinQuantity}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

func (e *engine) MinQuantity() int {
	return e.minQuantity
}

func (e *engine) Evaluate(carton Carton, provider string, rates RateCard, params EvaluationParams) (CostAnalysisResult, error) {
	if err := carton.Validate(); err != nil {
		return CostAnalysisResult{}, err
	}
	if err := rates.Validate(); err != nil {
		return CostAnalysisResult{}, fmt.Errorf("provider %s: %w", provider, err)
	}
	if err := params.validate(); err != nil {
		return CostAnalysisResult{}, err
	}

	palletsPerTruck := params.palletsPerTruck(rates)
	unitsPerPallet := carton.UnitsPerPallet()
	capacities := []int{carton.UnitsPerCarton, unitsPerPallet}
	if params.TransportMode == TransportFTL {
		unitsPerTruck, ok := mulInt(unitsPerPallet, palletsPerTruck)
		if !ok {
			return CostAnalysisResult{}, fmt.Errorf("%w: units per truck overflow (%d x %d)", ErrInvalidQuantity, unitsPerPallet, palletsPerTruck)
		}
		capacities = append(capacities, unitsPerTruck)
	}

	quantity := NormalizeQuantity(capacities, e.minQuantity)
	if quantity <= 0 {
		return CostAnalysisResult{}, fmt.Errorf("%w: normalized quantity for capacities %v overflows", ErrInvalidQuantity, capacities)
	}

	totalCartons := ceilDiv(quantity, carton.UnitsPerCarton)
	totalPallets := ceilDiv(totalCartons, carton.CartonsPerPallet)

	cartonCosts := float64(totalCartons) * (rates.CartonHandling + rates.CartonUnloading)
	transport, chosen := transportCost(totalPallets, rates, params.TransportMode, palletsPerTruck)
	palletCosts := float64(totalPallets)*rates.PalletHandling +
		float64(totalPallets)*rates.PalletStoragePerWeek*params.StorageWeeks +
		transport

	cartonPerUnit := cartonCosts / float64(quantity)
	palletPerUnit := palletCosts / float64(quantity)

	return CostAnalysisResult{
		SKU:                carton.SKU,
		CartonID:           carton.ID,
		Dimensions:         carton.Dimensions(),
		UnitsPerCarton:     carton.UnitsPerCarton,
		CartonsPerPallet:   carton.CartonsPerPallet,
		UnitsPerPallet:     unitsPerPallet,
		Provider:           provider,
		NormalizedQuantity: quantity,
		TotalCartons:       totalCartons,
		TotalPallets:       totalPallets,
		Transport:          chosen,
		CartonCostsPerUnit: cartonPerUnit,
		PalletCostsPerUnit: palletPerUnit,
		TotalCostPerUnit:   cartonPerUnit + palletPerUnit,
	}, nil
}

func (e *engine) EvaluateByID(cartons []Carton, cartonID, provider string, rates RateCard, params EvaluationParams) (CostAnalysisResult, error) {
	carton, err := FindCarton(cartons, cartonID)
	if err != nil {
		return CostAnalysisResult{}, err
	}
	return e.Evaluate(carton, provider, rates, params)
}

// EvaluateAll evaluates every carton against every provider. Cartons are the
// outer loop and providers, in name order, the inner loop.
func (e *engine) EvaluateAll(cartons []Carton, rateCards map[string]RateCard, params EvaluationParams) ([]CostAnalysisResult, error) {
	providers := ProviderNames(rateCards)
	results := make([]CostAnalysisResult, 0, len(cartons)*len(providers))
	for _, carton := range cartons {
		for _, provider := range providers {
			result, err := e.Evaluate(carton, provider, rateCards[provider], params)
			if err != nil {
				return nil, fmt.Errorf("evaluate carton %s with %s: %w", carton.ID, provider, err)
			}
			results = append(results, result)
		}
	}
	return results, nil
}

// Analyze runs EvaluateAll and tags the cheapest result per product.
func (e *engine) Analyze(cartons []Carton, rateCards map[string]RateCard, params EvaluationParams) ([]CostAnalysisResult, error) {
	results, err := e.EvaluateAll(cartons, rateCards, params)
	if err != nil {
		return nil, err
	}
	return MarkOptimal(results), nil
}

// FindCarton looks up a carton by id.
func FindCarton(cartons []Carton, id string) (Carton, error) {
	for _, c := range cartons {
		if c.ID == id {
			return c, nil
		}
	}
	return Carton{}, fmt.Errorf("%w: %s", ErrCartonNotFound, id)
}

// ProviderNames returns the rate card keys in sorted order.
func ProviderNames(rateCards map[string]RateCard) []string {
	names := make([]string, 0, len(rateCards))
	for name := range rateCards {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// transportCost prices pallets under mode. Auto keeps LTL unless FTL is strictly cheaper.
func transportCost(pallets int, rates RateCard, mode TransportMode, palletsPerTruck int) (float64, TransportMode) {
	ltl := float64(pallets) * rates.PalletLTL
	ftl := float64(ceilDiv(pallets, palletsPerTruck)) * rates.TruckFTL

	switch mode {
	case TransportLTL:
		return ltl, TransportLTL
	case TransportFTL:
		return ftl, TransportFTL
	}
	if ftl < ltl {
		return ftl, TransportFTL
	}
	return ltl, TransportLTL
}
