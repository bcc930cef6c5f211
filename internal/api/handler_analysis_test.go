package api

import (
	"encoding/csv"
	"math"
	"net/http"
	"testing"

	"github.com/eugenenazirov/carton-cost-optimizer/internal/costing"
)

func seedCartons(t *testing.T, router http.Handler) {
	t.Helper()
	createCarton(t, router, costing.Carton{
		ID: "small", SKU: "SKU-1", Length: 30, Width: 20, Height: 20, UnitsPerCarton: 10, CartonsPerPallet: 10,
	})
	createCarton(t, router, costing.Carton{
		ID: "large", SKU: "SKU-1", Length: 60, Width: 40, Height: 20, UnitsPerCarton: 20, CartonsPerPallet: 5,
	})
}

func approxEqual(a, b float64) bool {
	return math.Abs(a-b) < 1e-9
}

func TestAnalysisEmptySession(t *testing.T) {
	router, _, _ := setupTestRouter(t)

	rec := doJSON(t, router, http.MethodGet, "/api/analysis", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d", rec.Code)
	}

	var body analysisResponse
	decodeBody(t, rec, &body)
	if len(body.Results) != 0 || len(body.Optimal) != 0 {
		t.Fatalf("expected no results, got %+v", body)
	}
}

func TestAnalysisMarksCheapestCarton(t *testing.T) {
	router, _, _ := setupTestRouter(t)
	seedCartons(t, router)

	rec := doJSON(t, router, http.MethodGet, "/api/analysis", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d", rec.Code)
	}

	var body analysisResponse
	decodeBody(t, rec, &body)

	if len(body.Results) != 2 {
		t.Fatalf("expected 2 results, got %d", len(body.Results))
	}
	small, large := body.Results[0], body.Results[1]
	if small.CartonID != "small" || large.CartonID != "large" {
		t.Fatalf("expected carton order [small large], got [%s %s]", small.CartonID, large.CartonID)
	}
	if small.NormalizedQuantity != 1000 || large.NormalizedQuantity != 1000 {
		t.Fatalf("expected normalized quantity 1000, got %d and %d", small.NormalizedQuantity, large.NormalizedQuantity)
	}
	if !approxEqual(small.TotalCostPerUnit, 0.2) || !approxEqual(large.TotalCostPerUnit, 0.15) {
		t.Fatalf("unexpected per-unit costs %g and %g", small.TotalCostPerUnit, large.TotalCostPerUnit)
	}
	if small.IsOptimal || !large.IsOptimal {
		t.Fatalf("expected only the large carton to be optimal")
	}
	if small.ProjectedTotal != 0 {
		t.Fatalf("expected no projected total in per-unit mode, got %g", small.ProjectedTotal)
	}
	if len(body.Optimal) != 1 || body.Optimal[0].CartonID != "large" {
		t.Fatalf("expected large as optimal, got %+v", body.Optimal)
	}
	if len(body.BySKU) != 1 || body.BySKU[0].SKU != "SKU-1" || len(body.BySKU[0].Results) != 2 {
		t.Fatalf("unexpected sku grouping %+v", body.BySKU)
	}
	if len(body.BySKUProvider) != 1 || body.BySKUProvider[0].Provider != "acme" {
		t.Fatalf("unexpected sku/provider grouping %+v", body.BySKUProvider)
	}
}

func TestAnalysisUsesEditedRatesAndTotals(t *testing.T) {
	router, _, _ := setupTestRouter(t)
	seedCartons(t, router)

	edited := testRates
	edited.CartonHandling = 2
	rec := doJSON(t, router, http.MethodPut, "/api/config", map[string]any{
		"rates":       edited,
		"displayMode": "totals",
	})
	if rec.Code != http.StatusOK {
		t.Fatalf("expected status 200 updating config, got %d", rec.Code)
	}

	rec = doJSON(t, router, http.MethodGet, "/api/analysis", nil)
	var body analysisResponse
	decodeBody(t, rec, &body)

	large := body.Results[1]
	if !approxEqual(large.CartonCostsPerUnit, 0.1) {
		t.Fatalf("expected edited carton rate to apply, got %g", large.CartonCostsPerUnit)
	}
	if !approxEqual(large.ProjectedTotal, 0.2*10000) {
		t.Fatalf("expected projected total 2000, got %g", large.ProjectedTotal)
	}
	if body.DisplayMode != costing.DisplayTotals {
		t.Fatalf("expected totals display mode, got %s", body.DisplayMode)
	}
}

func TestExportAnalysisCSV(t *testing.T) {
	router, _, _ := setupTestRouter(t)
	seedCartons(t, router)

	rec := doJSON(t, router, http.MethodGet, "/api/analysis/export", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d", rec.Code)
	}
	if ct := rec.Header().Get("Content-Type"); ct != "text/csv" {
		t.Fatalf("expected text/csv, got %s", ct)
	}

	records, err := csv.NewReader(rec.Body).ReadAll()
	if err != nil {
		t.Fatalf("failed to parse CSV: %v", err)
	}
	if len(records) != 3 {
		t.Fatalf("expected header plus 2 rows, got %d", len(records))
	}
	if records[0][0] != "sku" || len(records[0]) != len(exportHeader) {
		t.Fatalf("unexpected header %v", records[0])
	}
	last := len(exportHeader) - 1
	if records[1][last] != "false" || records[2][last] != "true" {
		t.Fatalf("expected optimal flag on the large carton, got %v / %v", records[1], records[2])
	}
	if records[2][1] != "large" || records[2][2] != "60x40x20" {
		t.Fatalf("unexpected row %v", records[2])
	}
}

func TestScalingUsesSelectedCarton(t *testing.T) {
	router, _, _ := setupTestRouter(t)
	seedCartons(t, router)

	rec := doJSON(t, router, http.MethodPost, "/api/scaling", curveRequest{})
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected status 400 without a selection, got %d", rec.Code)
	}

	doJSON(t, router, http.MethodPut, "/api/selection", selectionRequest{CartonID: "large"})

	rec = doJSON(t, router, http.MethodPost, "/api/scaling", curveRequest{})
	if rec.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d: %s", rec.Code, rec.Body.String())
	}

	var body scalingResponse
	decodeBody(t, rec, &body)
	if body.CartonID != "large" {
		t.Fatalf("expected large carton, got %s", body.CartonID)
	}
	if len(body.Points) != defaultCurveSteps {
		t.Fatalf("expected %d points, got %d", defaultCurveSteps, len(body.Points))
	}
	if last := body.Points[len(body.Points)-1]; last.Quantity != 20000 {
		t.Fatalf("expected curve to end at twice the demand, got %d", last.Quantity)
	}
}

func TestScalingValidatesRequest(t *testing.T) {
	router, _, _ := setupTestRouter(t)
	seedCartons(t, router)

	rec := doJSON(t, router, http.MethodPost, "/api/scaling", curveRequest{CartonID: "missing"})
	if rec.Code != http.StatusNotFound {
		t.Fatalf("expected status 404, got %d", rec.Code)
	}

	rec = doJSON(t, router, http.MethodPost, "/api/scaling", curveRequest{CartonID: "small", Steps: costing.MaxSamples + 1})
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected status 400 for too many steps, got %d", rec.Code)
	}
}

func TestComparisonEndpoint(t *testing.T) {
	router, _, _ := setupTestRouter(t)
	seedCartons(t, router)

	rec := doJSON(t, router, http.MethodPost, "/api/comparison", curveRequest{SKU: "SKU-1", MaxQuantity: 1000, Steps: 10})
	if rec.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d: %s", rec.Code, rec.Body.String())
	}

	var body costing.Comparison
	decodeBody(t, rec, &body)
	if len(body.CartonIDs) != 2 || body.CartonIDs[0] != "small" {
		t.Fatalf("unexpected carton ids %v", body.CartonIDs)
	}
	if len(body.Points) != 10 {
		t.Fatalf("expected 10 points, got %d", len(body.Points))
	}
	for _, p := range body.Points {
		if p.Cheapest != "large" {
			t.Fatalf("expected large to be cheapest at %d, got %s", p.Quantity, p.Cheapest)
		}
	}
	if len(body.Crossovers) != 0 {
		t.Fatalf("expected no crossovers, got %+v", body.Crossovers)
	}
}

func TestComparisonValidatesSKU(t *testing.T) {
	router, _, _ := setupTestRouter(t)
	seedCartons(t, router)

	if rec := doJSON(t, router, http.MethodPost, "/api/comparison", curveRequest{}); rec.Code != http.StatusBadRequest {
		t.Fatalf("expected status 400 without sku, got %d", rec.Code)
	}
	if rec := doJSON(t, router, http.MethodPost, "/api/comparison", curveRequest{SKU: "SKU-9"}); rec.Code != http.StatusNotFound {
		t.Fatalf("expected status 404 for unknown sku, got %d", rec.Code)
	}
}

func TestOptimizeQuantityApply(t *testing.T) {
	router, store, _ := setupTestRouter(t)
	seedCartons(t, router)

	doJSON(t, router, http.MethodPut, "/api/config", map[string]any{"totalDemand": 10450})

	rec := doJSON(t, router, http.MethodPost, "/api/optimize-quantity", optimizeRequest{SKU: "SKU-1"})
	if rec.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d: %s", rec.Code, rec.Body.String())
	}
	var body optimizeResponse
	decodeBody(t, rec, &body)
	if body.Suggestion.CartonID != "large" || body.Suggestion.OptimizedQuantity != 10500 || body.Suggestion.AdditionalUnits != 50 {
		t.Fatalf("unexpected suggestion %+v", body.Suggestion)
	}
	if body.Applied {
		t.Fatalf("expected suggestion without apply to leave demand alone")
	}
	if cfg, _ := store.Configuration(); cfg.TotalDemand != 10450 {
		t.Fatalf("expected demand 10450, got %d", cfg.TotalDemand)
	}

	rec = doJSON(t, router, http.MethodPost, "/api/optimize-quantity", optimizeRequest{SKU: "SKU-1", Apply: true})
	body = optimizeResponse{}
	decodeBody(t, rec, &body)
	if !body.Applied {
		t.Fatalf("expected demand update to be applied")
	}
	if cfg, _ := store.Configuration(); cfg.TotalDemand != 10500 {
		t.Fatalf("expected demand 10500, got %d", cfg.TotalDemand)
	}
}

func TestOptimizeQuantityFallsBackToSelection(t *testing.T) {
	router, _, _ := setupTestRouter(t)
	seedCartons(t, router)

	if rec := doJSON(t, router, http.MethodPost, "/api/optimize-quantity", optimizeRequest{}); rec.Code != http.StatusBadRequest {
		t.Fatalf("expected status 400 without sku or selection, got %d", rec.Code)
	}

	doJSON(t, router, http.MethodPut, "/api/selection", selectionRequest{CartonID: "small"})
	rec := doJSON(t, router, http.MethodPost, "/api/optimize-quantity", optimizeRequest{})
	if rec.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d", rec.Code)
	}
	var body optimizeResponse
	decodeBody(t, rec, &body)
	if body.Suggestion.SKU != "SKU-1" || body.Suggestion.CartonID != "large" {
		t.Fatalf("expected the optimal carton for the selected product, got %+v", body.Suggestion)
	}

	if rec := doJSON(t, router, http.MethodPost, "/api/optimize-quantity", optimizeRequest{SKU: "SKU-9"}); rec.Code != http.StatusNotFound {
		t.Fatalf("expected status 404 for unknown sku, got %d", rec.Code)
	}
}

func TestAnalysisFollowsActiveProviderCardUpdate(t *testing.T) {
	router, _, _ := setupTestRouter(t)
	seedCartons(t, router)

	updated := testRates
	updated.CartonHandling = 2
	rec := doJSON(t, router, http.MethodPut, "/api/providers/acme", updated)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected status 200 updating provider, got %d", rec.Code)
	}

	rec = doJSON(t, router, http.MethodGet, "/api/analysis", nil)
	var body analysisResponse
	decodeBody(t, rec, &body)
	if large := body.Results[1]; !approxEqual(large.CartonCostsPerUnit, 0.1) {
		t.Fatalf("expected updated carton rate in analysis, got %g", large.CartonCostsPerUnit)
	}
}

func TestCapacityOverflowIsRejected(t *testing.T) {
	router, _, _ := setupTestRouter(t)

	rec := doJSON(t, router, http.MethodPost, "/api/cartons", costing.Carton{
		SKU: "HUGE", Length: 1, Width: 1, Height: 1, UnitsPerCarton: 5_000_000_000, CartonsPerPallet: 5_000_000_000,
	})
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected status 400 for overflowing pallet capacity, got %d", rec.Code)
	}

	createCarton(t, router, costing.Carton{
		ID: "big", SKU: "BIG", Length: 1, Width: 1, Height: 1, UnitsPerCarton: 1_000_000_007, CartonsPerPallet: 1_000_000_009,
	})
	if rec := doJSON(t, router, http.MethodGet, "/api/analysis", nil); rec.Code != http.StatusOK {
		t.Fatalf("expected status 200 in auto mode, got %d", rec.Code)
	}

	doJSON(t, router, http.MethodPut, "/api/config", map[string]any{"transportMode": "ftl"})
	if rec := doJSON(t, router, http.MethodGet, "/api/analysis", nil); rec.Code != http.StatusBadRequest {
		t.Fatalf("expected status 400 when truck capacity overflows, got %d", rec.Code)
	}
}
