package costing

// SKUGroup holds the results for one product in evaluation order.
type SKUGroup struct {
	SKU     string               `json:"sku"`
	Results []CostAnalysisResult `json:"results"`
}

// SKUProviderGroup holds the results for one product and provider pair.
type SKUProviderGroup struct {
	SKU      string               `json:"sku"`
	Provider string               `json:"provider"`
	Results  []CostAnalysisResult `json:"results"`
}

// GroupBySKU partitions results by product, keeping first-seen product order.
func GroupBySKU(results []CostAnalysisResult) []SKUGroup {
	index := make(map[string]int)
	groups := make([]SKUGroup, 0)
	for _, r := range results {
		i, ok := index[r.SKU]
		if !ok {
			i = len(groups)
			index[r.SKU] = i
			groups = append(groups, SKUGroup{SKU: r.SKU})
		}
		groups[i].Results = append(groups[i].Results, r)
	}
	return groups
}

// GroupBySKUAndProvider partitions results by the (product, provider) pair,
// keeping first-seen key order.
func GroupBySKUAndProvider(results []CostAnalysisResult) []SKUProviderGroup {
	type key struct{ sku, provider string }
	index := make(map[key]int)
	groups := make([]SKUProviderGroup, 0)
	for _, r := range results {
		k := key{r.SKU, r.Provider}
		i, ok := index[k]
		if !ok {
			i = len(groups)
			index[k] = i
			groups = append(groups, SKUProviderGroup{SKU: r.SKU, Provider: r.Provider})
		}
		groups[i].Results = append(groups[i].Results, r)
	}
	return groups
}

// MarkOptimal returns a copy of results where exactly the first minimum-cost
// result of each product carries IsOptimal.
func MarkOptimal(results []CostAnalysisResult) []CostAnalysisResult {
	out := make([]CostAnalysisResult, len(results))
	copy(out, results)
	for i := range out {
		out[i].IsOptimal = false
	}
	for _, i := range optimalIndexes(out) {
		out[i].IsOptimal = true
	}
	return out
}

// FindOptimalCartonsPerSKU returns the cheapest result of each product, in
// first-seen product order. Ties go to the earliest result.
func FindOptimalCartonsPerSKU(results []CostAnalysisResult) []CostAnalysisResult {
	indexes := optimalIndexes(results)
	optimal := make([]CostAnalysisResult, 0, len(indexes))
	for _, i := range indexes {
		r := results[i]
		r.IsOptimal = true
		optimal = append(optimal, r)
	}
	return optimal
}

// optimalIndexes returns, per product in first-seen order, the index of the
// first result with the lowest TotalCostPerUnit.
func optimalIndexes(results []CostAnalysisResult) []int {
	position := make(map[string]int)
	best := make([]int, 0)
	for i, r := range results {
		p, ok := position[r.SKU]
		if !ok {
			position[r.SKU] = len(best)
			best = append(best, i)
			continue
		}
		if r.TotalCostPerUnit < results[best[p]].TotalCostPerUnit {
			best[p] = i
		}
	}
	return best
}
