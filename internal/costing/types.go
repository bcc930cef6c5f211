package costing

import (
	"fmt"
	"strings"
)

// TransportMode selects how pallets are priced for shipping.
type TransportMode string

const (
	// TransportAuto picks the cheaper of LTL and FTL, preferring LTL on a tie.
	TransportAuto TransportMode = "auto"
	// TransportLTL prices every pallet at the less-than-truckload rate.
	TransportLTL TransportMode = "ltl"
	// TransportFTL prices whole trucks at the full-truckload rate.
	TransportFTL TransportMode = "ftl"
)

// ParseTransportMode converts user input into a TransportMode.
func ParseTransportMode(raw string) (TransportMode, error) {
	mode := TransportMode(strings.ToLower(strings.TrimSpace(raw)))
	if !mode.Valid() {
		return "", fmt.Errorf("%w: %q", ErrInvalidTransportMode, raw)
	}
	return mode, nil
}

// Valid reports whether m is a known transport mode.
func (m TransportMode) Valid() bool {
	switch m {
	case TransportAuto, TransportLTL, TransportFTL:
		return true
	}
	return false
}

// DisplayMode controls whether a presentation layer shows totals or per-unit figures.
type DisplayMode string

const (
	DisplayPerUnit DisplayMode = "per_unit"
	DisplayTotals  DisplayMode = "totals"
)

// Valid reports whether d is a known display mode.
func (d DisplayMode) Valid() bool {
	return d == DisplayPerUnit || d == DisplayTotals
}

// Carton is a candidate packaging configuration for one product.
type Carton struct {
	ID               string  `json:"id"`
	SKU              string  `json:"sku"`
	Length           float64 `json:"length"`
	Width            float64 `json:"width"`
	Height           float64 `json:"height"`
	UnitsPerCarton   int     `json:"unitsPerCarton"`
	CartonsPerPallet int     `json:"cartonsPerPallet"`
}

// UnitsPerPallet is the number of product units on one full pallet.
func (c Carton) UnitsPerPallet() int {
	return c.UnitsPerCarton * c.CartonsPerPallet
}

// Dimensions formats the carton geometry as LxWxH.
func (c Carton) Dimensions() string {
	return fmt.Sprintf("%gx%gx%g", c.Length, c.Width, c.Height)
}

// Validate checks the carton invariants the engine relies on.
func (c Carton) Validate() error {
	if strings.TrimSpace(c.SKU) == "" {
		return fmt.Errorf("%w: product id is empty", ErrInvalidCarton)
	}
	if c.Length <= 0 || c.Width <= 0 || c.Height <= 0 {
		return fmt.Errorf("%w: dimensions %s", ErrInvalidCarton, c.Dimensions())
	}
	if c.UnitsPerCarton < 1 {
		return fmt.Errorf("%w: units per carton %d", ErrInvalidCarton, c.UnitsPerCarton)
	}
	if c.CartonsPerPallet < 1 {
		return fmt.Errorf("%w: cartons per pallet %d", ErrInvalidCarton, c.CartonsPerPallet)
	}
	if _, ok := mulInt(c.UnitsPerCarton, c.CartonsPerPallet); !ok {
		return fmt.Errorf("%w: units per pallet overflow (%d x %d)", ErrInvalidCarton, c.UnitsPerCarton, c.CartonsPerPallet)
	}
	return nil
}

// RateCard holds one logistics provider's per-operation cost rates.
type RateCard struct {
	CartonHandling       float64 `json:"cartonHandling"`
	CartonUnloading      float64 `json:"cartonUnloading"`
	PalletStoragePerWeek float64 `json:"palletStoragePerWeek"`
	PalletHandling       float64 `json:"palletHandling"`
	PalletLTL            float64 `json:"palletLtl"`
	TruckFTL             float64 `json:"truckFtl"`
	PalletsPerTruck      int     `json:"palletsPerTruck"`
}

// Validate checks that every rate is non-negative and a truck holds at least one pallet.
func (r RateCard) Validate() error {
	rates := []float64{r.CartonHandling, r.CartonUnloading, r.PalletStoragePerWeek, r.PalletHandling, r.PalletLTL, r.TruckFTL}
	for _, rate := range rates {
		if rate < 0 {
			return fmt.Errorf("%w: negative rate %g", ErrInvalidRateCard, rate)
		}
	}
	if r.PalletsPerTruck < 1 {
		return fmt.Errorf("%w: pallets per truck %d", ErrInvalidRateCard, r.PalletsPerTruck)
	}
	return nil
}

// EvaluationParams are the scenario inputs shared by every evaluation in one run.
// A zero PalletsPerTruck means each rate card's own truck capacity is used.
type EvaluationParams struct {
	StorageWeeks    float64
	TransportMode   TransportMode
	PalletsPerTruck int
}

func (p EvaluationParams) validate() error {
	if !p.TransportMode.Valid() {
		return fmt.Errorf("%w: %q", ErrInvalidTransportMode, p.TransportMode)
	}
	if p.StorageWeeks < 0 {
		return fmt.Errorf("%w: storage weeks %g", ErrInvalidQuantity, p.StorageWeeks)
	}
	if p.PalletsPerTruck < 0 {
		return fmt.Errorf("%w: pallets per truck override %d", ErrInvalidQuantity, p.PalletsPerTruck)
	}
	return nil
}

func (p EvaluationParams) palletsPerTruck(rates RateCard) int {
	if p.PalletsPerTruck > 0 {
		return p.PalletsPerTruck
	}
	return rates.PalletsPerTruck
}

// CostConfiguration is the scenario snapshot a caller evaluates against.
// Rates is a copy of the active provider's card that may be edited for what-if analysis.
type CostConfiguration struct {
	ActiveProvider  string        `json:"activeProvider"`
	Rates           RateCard      `json:"rates"`
	StorageWeeks    float64       `json:"storageWeeks"`
	TotalDemand     int           `json:"totalDemand"`
	TransportMode   TransportMode `json:"transportMode"`
	PalletsPerTruck int           `json:"palletsPerTruck"`
	DisplayMode     DisplayMode   `json:"displayMode"`
}

// Params extracts the evaluation parameters from the configuration.
func (c CostConfiguration) Params() EvaluationParams {
	return EvaluationParams{
		StorageWeeks:    c.StorageWeeks,
		TransportMode:   c.TransportMode,
		PalletsPerTruck: c.PalletsPerTruck,
	}
}

// EffectivePalletsPerTruck returns the override when set, otherwise the active rate card's capacity.
func (c CostConfiguration) EffectivePalletsPerTruck() int {
	return c.Params().palletsPerTruck(c.Rates)
}

// Validate checks the configuration without consulting any provider registry.
func (c CostConfiguration) Validate() error {
	if strings.TrimSpace(c.ActiveProvider) == "" {
		return fmt.Errorf("%w: active provider is empty", ErrInvalidRateCard)
	}
	if err := c.Rates.Validate(); err != nil {
		return err
	}
	if err := c.Params().validate(); err != nil {
		return err
	}
	if c.TotalDemand < 0 {
		return fmt.Errorf("%w: total demand %d", ErrInvalidQuantity, c.TotalDemand)
	}
	if !c.DisplayMode.Valid() {
		return fmt.Errorf("%w: display mode %q", ErrInvalidQuantity, c.DisplayMode)
	}
	return nil
}

// CostAnalysisResult is the evaluation of one carton against one provider.
// TotalCostPerUnit always equals CartonCostsPerUnit + PalletCostsPerUnit.
type CostAnalysisResult struct {
	SKU                string        `json:"sku"`
	CartonID           string        `json:"cartonId"`
	Dimensions         string        `json:"dimensions"`
	UnitsPerCarton     int           `json:"unitsPerCarton"`
	CartonsPerPallet   int           `json:"cartonsPerPallet"`
	UnitsPerPallet     int           `json:"unitsPerPallet"`
	Provider           string        `json:"provider"`
	NormalizedQuantity int           `json:"normalizedQuantity"`
	TotalCartons       int           `json:"totalCartons"`
	TotalPallets       int           `json:"totalPallets"`
	Transport          TransportMode `json:"transport"`
	CartonCostsPerUnit float64       `json:"cartonCostsPerUnit"`
	PalletCostsPerUnit float64       `json:"palletCostsPerUnit"`
	TotalCostPerUnit   float64       `json:"totalCostPerUnit"`
	IsOptimal          bool          `json:"isOptimal"`
}
