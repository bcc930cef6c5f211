package costing

import "fmt"

// QuantitySuggestion is the smallest demand at or above the current one that fills whole pallets.
type QuantitySuggestion struct {
	SKU               string `json:"sku"`
	CartonID          string `json:"cartonId"`
	CurrentDemand     int    `json:"currentDemand"`
	OptimizedQuantity int    `json:"optimizedQuantity"`
	AdditionalUnits   int    `json:"additionalUnits"`
	Cartons           int    `json:"cartons"`
	Pallets           int    `json:"pallets"`
}

// OptimizeQuantity rounds demand up so that no pallet is left partially filled.
func OptimizeQuantity(demand, unitsPerCarton, cartonsPerPallet int) (int, error) {
	if demand < 0 {
		return 0, fmt.Errorf("%w: demand %d", ErrInvalidQuantity, demand)
	}
	if unitsPerCarton < 1 || cartonsPerPallet < 1 {
		return 0, fmt.Errorf("%w: units per carton %d, cartons per pallet %d", ErrInvalidCarton, unitsPerCarton, cartonsPerPallet)
	}
	unitsPerPallet, ok := mulInt(unitsPerCarton, cartonsPerPallet)
	if !ok {
		return 0, fmt.Errorf("%w: units per pallet overflow (%d x %d)", ErrInvalidCarton, unitsPerCarton, cartonsPerPallet)
	}
	optimized, ok := mulInt(ceilDiv(demand, unitsPerPallet), unitsPerPallet)
	if !ok {
		return 0, fmt.Errorf("%w: demand %d rounded to whole pallets overflows", ErrInvalidQuantity, demand)
	}
	return optimized, nil
}

// SuggestQuantity applies OptimizeQuantity to a carton and reports the pallet layout.
func SuggestQuantity(carton Carton, demand int) (QuantitySuggestion, error) {
	if err := carton.Validate(); err != nil {
		return QuantitySuggestion{}, err
	}
	optimized, err := OptimizeQuantity(demand, carton.UnitsPerCarton, carton.CartonsPerPallet)
	if err != nil {
		return QuantitySuggestion{}, err
	}
	cartons := optimized / carton.UnitsPerCarton
	return QuantitySuggestion{
		SKU:               carton.SKU,
		CartonID:          carton.ID,
		CurrentDemand:     demand,
		OptimizedQuantity: optimized,
		AdditionalUnits:   optimized - demand,
		Cartons:           cartons,
		Pallets:           cartons / carton.CartonsPerPallet,
	}, nil
}
