package api

import (
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/eugenenazirov/carton-cost-optimizer/internal/costing"
	"github.com/eugenenazirov/carton-cost-optimizer/internal/metrics"
)

func (h *Handler) handleListProviders(w http.ResponseWriter, r *http.Request) {
	_ = r
	cards, err := h.storage.RateCards()
	if err != nil {
		writeInternalError(w, err)
		return
	}
	cfg, err := h.storage.Configuration()
	if err != nil {
		writeInternalError(w, err)
		return
	}

	providers := make([]providerView, 0, len(cards))
	for _, name := range costing.ProviderNames(cards) {
		providers = append(providers, providerView{Name: name, Rates: cards[name]})
	}
	writeJSON(w, http.StatusOK, providersResponse{
		Providers:      providers,
		ActiveProvider: cfg.ActiveProvider,
	})
}

func (h *Handler) handlePutProvider(w http.ResponseWriter, r *http.Request) {
	name := r.PathValue("name")
	var card costing.RateCard
	if !decodeJSON(w, r, &card) {
		return
	}

	if err := h.storage.SetRateCard(name, card); err != nil {
		writeDomainError(w, err)
		return
	}
	h.markUpdated()
	h.logger.Info("rate card updated", zap.String("provider", name))

	writeJSON(w, http.StatusOK, providerView{Name: name, Rates: card})
}

func (h *Handler) handleListCartons(w http.ResponseWriter, r *http.Request) {
	_ = r
	cartons, err := h.storage.ListCartons()
	if err != nil {
		writeInternalError(w, err)
		return
	}
	selected, err := h.storage.SelectedCartonID()
	if err != nil {
		writeInternalError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, cartonsResponse{
		Cartons:          cartons,
		SelectedCartonID: selected,
		UpdatedAt:        h.currentUpdatedAt(),
	})
}

func (h *Handler) handleCreateCarton(w http.ResponseWriter, r *http.Request) {
	var carton costing.Carton
	if !decodeJSON(w, r, &carton) {
		return
	}

	created, err := h.storage.AddCarton(carton)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	h.markUpdated()
	h.refreshCartonGauge()
	h.logger.Info("carton created", zap.String("carton_id", created.ID), zap.String("sku", created.SKU))

	writeJSON(w, http.StatusCreated, created)
}

func (h *Handler) handleUpdateCarton(w http.ResponseWriter, r *http.Request) {
	var carton costing.Carton
	if !decodeJSON(w, r, &carton) {
		return
	}
	carton.ID = r.PathValue("id")

	updated, err := h.storage.UpdateCarton(carton)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	h.markUpdated()

	writeJSON(w, http.StatusOK, updated)
}

func (h *Handler) handleDeleteCarton(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	if err := h.storage.DeleteCarton(id); err != nil {
		writeDomainError(w, err)
		return
	}
	h.markUpdated()
	h.refreshCartonGauge()
	h.logger.Info("carton deleted", zap.String("carton_id", id))

	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) handleSelectCarton(w http.ResponseWriter, r *http.Request) {
	var req selectionRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	if err := h.storage.SelectCarton(req.CartonID); err != nil {
		writeDomainError(w, err)
		return
	}
	h.markUpdated()

	selected, err := h.storage.SelectedCartonID()
	if err != nil {
		writeInternalError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, selectionRequest{CartonID: selected})
}

func (h *Handler) handleGetConfig(w http.ResponseWriter, r *http.Request) {
	_ = r
	cfg, err := h.storage.Configuration()
	if err != nil {
		writeInternalError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, h.configView(cfg))
}

func (h *Handler) handlePutConfig(w http.ResponseWriter, r *http.Request) {
	var req configRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	h.writeMu.Lock()
	defer h.writeMu.Unlock()

	cfg, err := h.storage.Configuration()
	if err != nil {
		writeInternalError(w, err)
		return
	}

	if req.ActiveProvider != nil && *req.ActiveProvider != cfg.ActiveProvider {
		cards, err := h.storage.RateCards()
		if err != nil {
			writeInternalError(w, err)
			return
		}
		card, ok := cards[*req.ActiveProvider]
		if !ok {
			writeError(w, http.StatusBadRequest, "Invalid request", "unknown provider "+*req.ActiveProvider)
			return
		}
		cfg.ActiveProvider = *req.ActiveProvider
		cfg.Rates = card
	}
	if req.Rates != nil {
		cfg.Rates = *req.Rates
	}
	if req.StorageWeeks != nil {
		cfg.StorageWeeks = *req.StorageWeeks
	}
	if req.TotalDemand != nil {
		cfg.TotalDemand = *req.TotalDemand
	}
	if req.TransportMode != nil {
		mode, err := costing.ParseTransportMode(*req.TransportMode)
		if err != nil {
			writeDomainError(w, err)
			return
		}
		cfg.TransportMode = mode
	}
	if req.PalletsPerTruck != nil {
		cfg.PalletsPerTruck = *req.PalletsPerTruck
	}
	if req.DisplayMode != nil {
		cfg.DisplayMode = costing.DisplayMode(*req.DisplayMode)
	}

	if err := h.storage.SetConfiguration(cfg); err != nil {
		writeDomainError(w, err)
		return
	}
	h.markUpdated()
	h.logger.Info("cost configuration updated",
		zap.String("provider", cfg.ActiveProvider),
		zap.String("transport_mode", string(cfg.TransportMode)),
		zap.Int("total_demand", cfg.TotalDemand),
	)

	writeJSON(w, http.StatusOK, h.configView(cfg))
}

func (h *Handler) configView(cfg costing.CostConfiguration) configResponse {
	return configResponse{
		Configuration:            cfg,
		EffectivePalletsPerTruck: cfg.EffectivePalletsPerTruck(),
		MinNormalizedQuantity:    h.calculator.MinQuantity(),
		UpdatedAt:                h.currentUpdatedAt(),
	}
}

func (h *Handler) refreshCartonGauge() {
	if cartons, err := h.storage.ListCartons(); err == nil {
		metrics.SetCandidateCartons(len(cartons))
	}
}

type providerView struct {
	Name  string           `json:"name"`
	Rates costing.RateCard `json:"rates"`
}

type providersResponse struct {
	Providers      []providerView `json:"providers"`
	ActiveProvider string         `json:"activeProvider"`
}

type cartonsResponse struct {
	Cartons          []costing.Carton `json:"cartons"`
	SelectedCartonID string           `json:"selectedCartonId"`
	UpdatedAt        time.Time        `json:"updatedAt"`
}

type selectionRequest struct {
	CartonID string `json:"cartonId"`
}

type configRequest struct {
	ActiveProvider  *string           `json:"activeProvider"`
	Rates           *costing.RateCard `json:"rates"`
	StorageWeeks    *float64          `json:"storageWeeks"`
	TotalDemand     *int              `json:"totalDemand"`
	TransportMode   *string           `json:"transportMode"`
	PalletsPerTruck *int              `json:"palletsPerTruck"`
	DisplayMode     *string           `json:"displayMode"`
}

type configResponse struct {
	Configuration            costing.CostConfiguration `json:"configuration"`
	EffectivePalletsPerTruck int                       `json:"effectivePalletsPerTruck"`
	MinNormalizedQuantity    int                       `json:"minNormalizedQuantity"`
	UpdatedAt                time.Time                 `json:"updatedAt"`
}
