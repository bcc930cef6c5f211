package costing

import "fmt"

// MaxSamples bounds the number of points a curve may request.
const MaxSamples = 500

// CostBreakdown is the direct, unnormalized cost of shipping Quantity units in one carton configuration.
type CostBreakdown struct {
	Quantity       int           `json:"quantity"`
	Cartons        int           `json:"cartons"`
	Pallets        int           `json:"pallets"`
	Trucks         int           `json:"trucks"`
	Transport      TransportMode `json:"transport"`
	CartonCost     float64       `json:"cartonCost"`
	StorageCost    float64       `json:"storageCost"`
	HandlingCost   float64       `json:"handlingCost"`
	TransportCost  float64       `json:"transportCost"`
	TotalCost      float64       `json:"totalCost"`
	CostPerUnit    float64       `json:"costPerUnit"`
	CartonShare    float64       `json:"cartonShare"`
	StorageShare   float64       `json:"storageShare"`
	HandlingShare  float64       `json:"handlingShare"`
	TransportShare float64       `json:"transportShare"`
}

// ComparisonPoint is one quantity sample across several cartons of a product.
type ComparisonPoint struct {
	Quantity    int                `json:"quantity"`
	CostPerUnit map[string]float64 `json:"costPerUnit"`
	Cheapest    string             `json:"cheapest"`
}

// Crossover marks a sample where the cheapest carton changes.
type Crossover struct {
	Quantity int    `json:"quantity"`
	From     string `json:"from"`
	To       string `json:"to"`
}

// Comparison is a set of cost-per-unit series for one product sharing a quantity axis.
type Comparison struct {
	SKU        string            `json:"sku"`
	CartonIDs  []string          `json:"cartonIds"`
	Points     []ComparisonPoint `json:"points"`
	Crossovers []Crossover       `json:"crossovers"`
}

// CostAtQuantity prices quantity units directly with ceil-based carton and pallet counts.
func CostAtQuantity(carton Carton, rates RateCard, params EvaluationParams, quantity int) (CostBreakdown, error) {
	if err := carton.Validate(); err != nil {
		return CostBreakdown{}, err
	}
	if err := rates.Validate(); err != nil {
		return CostBreakdown{}, err
	}
	if err := params.validate(); err != nil {
		return CostBreakdown{}, err
	}
	if quantity < 0 {
		return CostBreakdown{}, fmt.Errorf("%w: quantity %d", ErrInvalidQuantity, quantity)
	}
	return costAt(carton, rates, params, quantity), nil
}

func costAt(carton Carton, rates RateCard, params EvaluationParams, quantity int) CostBreakdown {
	palletsPerTruck := params.palletsPerTruck(rates)
	cartons := ceilDiv(quantity, carton.UnitsPerCarton)
	pallets := ceilDiv(cartons, carton.CartonsPerPallet)

	b := CostBreakdown{
		Quantity:     quantity,
		Cartons:      cartons,
		Pallets:      pallets,
		CartonCost:   float64(cartons) * (rates.CartonHandling + rates.CartonUnloading),
		StorageCost:  float64(pallets) * rates.PalletStoragePerWeek * params.StorageWeeks,
		HandlingCost: float64(pallets) * rates.PalletHandling,
	}
	b.TransportCost, b.Transport = transportCost(pallets, rates, params.TransportMode, palletsPerTruck)
	if b.Transport == TransportFTL {
		b.Trucks = ceilDiv(pallets, palletsPerTruck)
	}
	b.TotalCost = b.CartonCost + b.StorageCost + b.HandlingCost + b.TransportCost

	if quantity > 0 {
		b.CostPerUnit = b.TotalCost / float64(quantity)
	}
	if b.TotalCost > 0 {
		b.CartonShare = b.CartonCost / b.TotalCost * 100
		b.StorageShare = b.StorageCost / b.TotalCost * 100
		b.HandlingShare = b.HandlingCost / b.TotalCost * 100
		b.TransportShare = b.TransportCost / b.TotalCost * 100
	}
	return b
}

// SampleQuantities spreads at most steps samples over (0, maxQuantity], always ending at maxQuantity.
func SampleQuantities(maxQuantity, steps int) ([]int, error) {
	if maxQuantity < 1 {
		return nil, fmt.Errorf("%w: max quantity %d", ErrInvalidQuantity, maxQuantity)
	}
	if steps < 1 || steps > MaxSamples {
		return nil, fmt.Errorf("%w: steps %d not in [1, %d]", ErrInvalidQuantity, steps, MaxSamples)
	}

	step := ceilDiv(maxQuantity, steps)
	quantities := make([]int, 0, steps)
	for i := 1; i < steps; i++ {
		q := i * step
		if q >= maxQuantity {
			break
		}
		quantities = append(quantities, q)
	}
	return append(quantities, maxQuantity), nil
}

func (e *engine) ScalingCurve(carton Carton, cfg CostConfiguration, maxQuantity, steps int) ([]CostBreakdown, error) {
	if err := carton.Validate(); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	quantities, err := SampleQuantities(maxQuantity, steps)
	if err != nil {
		return nil, err
	}

	params := cfg.Params()
	points := make([]CostBreakdown, 0, len(quantities))
	for _, q := range quantities {
		points = append(points, costAt(carton, cfg.Rates, params, q))
	}
	return points, nil
}

func (e *engine) ComparisonCurve(cartons []Carton, cfg CostConfiguration, maxQuantity, steps int) (Comparison, error) {
	if len(cartons) == 0 {
		return Comparison{}, ErrNoCandidates
	}
	sku := cartons[0].SKU
	ids := make([]string, 0, len(cartons))
	for _, c := range cartons {
		if c.SKU != sku {
			return Comparison{}, fmt.Errorf("%w: %s and %s", ErrMixedProducts, sku, c.SKU)
		}
		if err := c.Validate(); err != nil {
			return Comparison{}, err
		}
		ids = append(ids, c.ID)
	}
	if err := cfg.Validate(); err != nil {
		return Comparison{}, err
	}
	quantities, err := SampleQuantities(maxQuantity, steps)
	if err != nil {
		return Comparison{}, err
	}

	params := cfg.Params()
	cmp := Comparison{
		SKU:        sku,
		CartonIDs:  ids,
		Points:     make([]ComparisonPoint, 0, len(quantities)),
		Crossovers: []Crossover{},
	}
	for _, q := range quantities {
		point := ComparisonPoint{Quantity: q, CostPerUnit: make(map[string]float64, len(cartons))}
		best := -1.0
		for _, c := range cartons {
			cpu := costAt(c, cfg.Rates, params, q).CostPerUnit
			point.CostPerUnit[c.ID] = cpu
			if best < 0 || cpu < best {
				best = cpu
				point.Cheapest = c.ID
			}
		}
		if n := len(cmp.Points); n > 0 && cmp.Points[n-1].Cheapest != point.Cheapest {
			cmp.Crossovers = append(cmp.Crossovers, Crossover{
				Quantity: q,
				From:     cmp.Points[n-1].Cheapest,
				To:       point.Cheapest,
			})
		}
		cmp.Points = append(cmp.Points, point)
	}
	return cmp, nil
}
