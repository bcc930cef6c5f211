package api

import (
	"encoding/csv"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/eugenenazirov/carton-cost-optimizer/internal/costing"
	"github.com/eugenenazirov/carton-cost-optimizer/internal/metrics"
)

const defaultCurveSteps = 20

// analysisSnapshot is one consistent read of the session plus its evaluated results.
type analysisSnapshot struct {
	cartons  []costing.Carton
	cards    map[string]costing.RateCard
	cfg      costing.CostConfiguration
	selected string
	results  []costing.CostAnalysisResult
}

// runAnalysis evaluates every stored carton against every provider. The
// configuration's edited rates replace the active provider's card.
func (h *Handler) runAnalysis() (analysisSnapshot, error) {
	var snap analysisSnapshot
	var err error

	if snap.cartons, err = h.storage.ListCartons(); err != nil {
		return snap, err
	}
	if snap.cards, err = h.storage.RateCards(); err != nil {
		return snap, err
	}
	if snap.cfg, err = h.storage.Configuration(); err != nil {
		return snap, err
	}
	if snap.selected, err = h.storage.SelectedCartonID(); err != nil {
		return snap, err
	}
	snap.cards[snap.cfg.ActiveProvider] = snap.cfg.Rates

	start := time.Now()
	snap.results, err = h.calculator.Analyze(snap.cartons, snap.cards, snap.cfg.Params())
	metrics.RecordEvaluation("analyze", time.Since(start), err)
	metrics.SetCandidateCartons(len(snap.cartons))
	return snap, err
}

func (h *Handler) handleAnalysis(w http.ResponseWriter, r *http.Request) {
	start := h.clock()
	snap, err := h.runAnalysis()
	if err != nil {
		writeDomainError(w, err)
		return
	}

	rows := make([]analysisRow, 0, len(snap.results))
	for _, res := range snap.results {
		row := analysisRow{CostAnalysisResult: res}
		if snap.cfg.DisplayMode == costing.DisplayTotals {
			row.ProjectedTotal = res.TotalCostPerUnit * float64(snap.cfg.TotalDemand)
		}
		rows = append(rows, row)
	}

	resp := analysisResponse{
		Results:               rows,
		BySKU:                 costing.GroupBySKU(snap.results),
		BySKUProvider:         costing.GroupBySKUAndProvider(snap.results),
		Optimal:               costing.FindOptimalCartonsPerSKU(snap.results),
		SelectedCartonID:      snap.selected,
		ActiveProvider:        snap.cfg.ActiveProvider,
		DisplayMode:           snap.cfg.DisplayMode,
		TotalDemand:           snap.cfg.TotalDemand,
		MinNormalizedQuantity: h.calculator.MinQuantity(),
		CalculationTimeMs:     h.clock().Sub(start).Milliseconds(),
	}

	h.logger.Debug("analysis evaluated",
		zap.Int("cartons", len(snap.cartons)),
		zap.Int("results", len(snap.results)),
		zap.String("request_id", requestIDFromContext(r.Context())),
	)
	writeJSON(w, http.StatusOK, resp)
}

var exportHeader = []string{
	"sku", "carton_id", "dimensions", "units_per_carton", "cartons_per_pallet", "units_per_pallet",
	"provider", "normalized_quantity", "total_cartons", "total_pallets", "transport",
	"carton_costs_per_unit", "pallet_costs_per_unit", "total_cost_per_unit", "is_optimal",
}

func (h *Handler) handleExportAnalysis(w http.ResponseWriter, r *http.Request) {
	_ = r
	snap, err := h.runAnalysis()
	if err != nil {
		writeDomainError(w, err)
		return
	}

	w.Header().Set("Content-Type", "text/csv")
	w.Header().Set("Content-Disposition", `attachment; filename="cost-analysis.csv"`)
	w.WriteHeader(http.StatusOK)

	cw := csv.NewWriter(w)
	_ = cw.Write(exportHeader)
	for _, res := range snap.results {
		_ = cw.Write([]string{
			res.SKU,
			res.CartonID,
			res.Dimensions,
			strconv.Itoa(res.UnitsPerCarton),
			strconv.Itoa(res.CartonsPerPallet),
			strconv.Itoa(res.UnitsPerPallet),
			res.Provider,
			strconv.Itoa(res.NormalizedQuantity),
			strconv.Itoa(res.TotalCartons),
			strconv.Itoa(res.TotalPallets),
			string(res.Transport),
			formatCost(res.CartonCostsPerUnit),
			formatCost(res.PalletCostsPerUnit),
			formatCost(res.TotalCostPerUnit),
			strconv.FormatBool(res.IsOptimal),
		})
	}
	cw.Flush()
	if err := cw.Error(); err != nil {
		h.logger.Warn("analysis export interrupted", zap.Error(err))
	}
}

func formatCost(v float64) string {
	return strconv.FormatFloat(v, 'f', 6, 64)
}

func (h *Handler) handleScaling(w http.ResponseWriter, r *http.Request) {
	var req curveRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	cfg, err := h.storage.Configuration()
	if err != nil {
		writeInternalError(w, err)
		return
	}

	cartonID := req.CartonID
	if cartonID == "" {
		if cartonID, err = h.storage.SelectedCartonID(); err != nil {
			writeInternalError(w, err)
			return
		}
	}
	if cartonID == "" {
		writeError(w, http.StatusBadRequest, "Invalid request", "no carton selected",
			"pass cartonId or select a carton first")
		return
	}
	carton, err := h.storage.GetCarton(cartonID)
	if err != nil {
		writeDomainError(w, err)
		return
	}

	maxQuantity, steps := req.bounds(cfg)
	start := time.Now()
	points, err := h.calculator.ScalingCurve(carton, cfg, maxQuantity, steps)
	metrics.RecordEvaluation("scaling", time.Since(start), err)
	if err != nil {
		writeDomainError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, scalingResponse{
		CartonID:      carton.ID,
		SKU:           carton.SKU,
		Provider:      cfg.ActiveProvider,
		TransportMode: cfg.TransportMode,
		Points:        points,
	})
}

func (h *Handler) handleComparison(w http.ResponseWriter, r *http.Request) {
	var req curveRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	sku := strings.TrimSpace(req.SKU)
	if sku == "" {
		writeError(w, http.StatusBadRequest, "Invalid request", "sku is required")
		return
	}

	cartons, err := h.storage.ListCartons()
	if err != nil {
		writeInternalError(w, err)
		return
	}
	cfg, err := h.storage.Configuration()
	if err != nil {
		writeInternalError(w, err)
		return
	}

	candidates := make([]costing.Carton, 0, len(cartons))
	for _, c := range cartons {
		if c.SKU == sku {
			candidates = append(candidates, c)
		}
	}
	if len(candidates) == 0 {
		writeDomainError(w, fmt.Errorf("%w: sku %s", costing.ErrNoCandidates, sku))
		return
	}

	maxQuantity, steps := req.bounds(cfg)
	start := time.Now()
	cmp, err := h.calculator.ComparisonCurve(candidates, cfg, maxQuantity, steps)
	metrics.RecordEvaluation("comparison", time.Since(start), err)
	if err != nil {
		writeDomainError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, cmp)
}

func (h *Handler) handleOptimizeQuantity(w http.ResponseWriter, r *http.Request) {
	var req optimizeRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	h.writeMu.Lock()
	defer h.writeMu.Unlock()

	snap, err := h.runAnalysis()
	if err != nil {
		writeDomainError(w, err)
		return
	}

	sku := strings.TrimSpace(req.SKU)
	if sku == "" && snap.selected != "" {
		if selected, err := costing.FindCarton(snap.cartons, snap.selected); err == nil {
			sku = selected.SKU
		}
	}
	if sku == "" {
		writeError(w, http.StatusBadRequest, "Invalid request", "sku is required when no carton is selected")
		return
	}

	var best *costing.CostAnalysisResult
	for _, res := range costing.FindOptimalCartonsPerSKU(snap.results) {
		if res.SKU == sku {
			best = &res
			break
		}
	}
	if best == nil {
		writeDomainError(w, fmt.Errorf("%w: sku %s", costing.ErrNoCandidates, sku))
		return
	}

	carton, err := costing.FindCarton(snap.cartons, best.CartonID)
	if err != nil {
		writeInternalError(w, err)
		return
	}
	suggestion, err := costing.SuggestQuantity(carton, snap.cfg.TotalDemand)
	if err != nil {
		writeDomainError(w, err)
		return
	}

	applied := false
	if req.Apply && suggestion.OptimizedQuantity != snap.cfg.TotalDemand {
		cfg := snap.cfg
		cfg.TotalDemand = suggestion.OptimizedQuantity
		if err := h.storage.SetConfiguration(cfg); err != nil {
			writeDomainError(w, err)
			return
		}
		applied = true
		h.markUpdated()
		h.logger.Info("demand rounded up to full pallets",
			zap.String("sku", sku),
			zap.String("carton_id", carton.ID),
			zap.Int("from", suggestion.CurrentDemand),
			zap.Int("to", suggestion.OptimizedQuantity),
		)
	}

	writeJSON(w, http.StatusOK, optimizeResponse{
		Suggestion: suggestion,
		Provider:   best.Provider,
		Applied:    applied,
	})
}

type analysisRow struct {
	costing.CostAnalysisResult
	ProjectedTotal float64 `json:"projectedTotal,omitempty"`
}

type analysisResponse struct {
	Results               []analysisRow                `json:"results"`
	BySKU                 []costing.SKUGroup           `json:"bySku"`
	BySKUProvider         []costing.SKUProviderGroup   `json:"bySkuProvider"`
	Optimal               []costing.CostAnalysisResult `json:"optimal"`
	SelectedCartonID      string                       `json:"selectedCartonId"`
	ActiveProvider        string                       `json:"activeProvider"`
	DisplayMode           costing.DisplayMode          `json:"displayMode"`
	TotalDemand           int                          `json:"totalDemand"`
	MinNormalizedQuantity int                          `json:"minNormalizedQuantity"`
	CalculationTimeMs     int64                        `json:"calculationTimeMs"`
}

type curveRequest struct {
	CartonID    string `json:"cartonId"`
	SKU         string `json:"sku"`
	MaxQuantity int    `json:"maxQuantity"`
	Steps       int    `json:"steps"`
}

// bounds fills unset curve limits: twice the demand, sampled in defaultCurveSteps steps.
func (req curveRequest) bounds(cfg costing.CostConfiguration) (int, int) {
	maxQuantity := req.MaxQuantity
	if maxQuantity == 0 {
		maxQuantity = 2 * cfg.TotalDemand
	}
	steps := req.Steps
	if steps == 0 {
		steps = defaultCurveSteps
	}
	return maxQuantity, steps
}

type scalingResponse struct {
	CartonID      string                  `json:"cartonId"`
	SKU           string                  `json:"sku"`
	Provider      string                  `json:"provider"`
	TransportMode costing.TransportMode   `json:"transportMode"`
	Points        []costing.CostBreakdown `json:"points"`
}

type optimizeRequest struct {
	SKU   string `json:"sku"`
	Apply bool   `json:"apply"`
}

type optimizeResponse struct {
	Suggestion costing.QuantitySuggestion `json:"suggestion"`
	Provider   string                     `json:"provider"`
	Applied    bool                       `json:"applied"`
}
