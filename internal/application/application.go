package application

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"go.uber.org/zap"

	"github.com/eugenenazirov/carton-cost-optimizer/internal/api"
	"github.com/eugenenazirov/carton-cost-optimizer/internal/config"
	"github.com/eugenenazirov/carton-cost-optimizer/internal/costing"
	"github.com/eugenenazirov/carton-cost-optimizer/internal/metrics"
	"github.com/eugenenazirov/carton-cost-optimizer/internal/storage"
)

const serviceName = "carton-cost-optimizer"

// App encapsulates the application dependencies and HTTP server.
type App struct {
	storage    storage.Storage
	calculator costing.Calculator
	handler    *api.Handler
	router     http.Handler
	logger     *zap.Logger
	server     *http.Server
}

// New initializes the application with all dependencies from the provided configuration.
func New(cfg config.Config, logger *zap.Logger) (*App, error) {
	store := storage.NewMemoryStorage()
	if err := store.ReplaceRateCards(cfg.Providers); err != nil {
		return nil, fmt.Errorf("failed to apply provider rate cards: %w", err)
	}
	if err := store.SetConfiguration(cfg.CostConfiguration()); err != nil {
		return nil, fmt.Errorf("failed to apply scenario defaults: %w", err)
	}

	calc := costing.New(costing.WithMinQuantity(cfg.MinNormalizedQuantity))
	handler := api.NewHandler(calc, store, api.WithLogger(logger))
	apiRouter := api.NewRouter(handler, logger,
		api.WithLogging(cfg.EnableRequestLogging),
		api.WithRateLimit(cfg.RateLimitRPS, cfg.RateLimitBurst),
	)

	server := NewServer(cfg, BuildRootHandler(apiRouter))

	logger.Debug("application initialised",
		zap.Strings("providers", costing.ProviderNames(cfg.Providers)),
		zap.String("active_provider", cfg.Defaults.Provider),
		zap.Int("min_normalized_quantity", calc.MinQuantity()),
	)

	return &App{
		storage:    store,
		calculator: calc,
		handler:    handler,
		router:     apiRouter,
		logger:     logger,
		server:     server,
	}, nil
}

// BuildRootHandler mounts the API, the Prometheus endpoint, and a service banner at "/".
func BuildRootHandler(apiHandler http.Handler) http.Handler {
	mux := http.NewServeMux()
	mux.Handle("/api/", apiHandler)
	mux.Handle("GET /metrics", metrics.Handler())
	mux.Handle("/", http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/" {
			http.NotFound(w, r)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]string{
			"service": serviceName,
			"api":     "/api",
			"health":  "/api/health",
			"metrics": "/metrics",
		})
	}))

	return mux
}

// NewServer creates and configures an HTTP server from the provided configuration.
func NewServer(cfg config.Config, handler http.Handler) *http.Server {
	addr := cfg.Port
	if !strings.Contains(addr, ":") {
		addr = ":" + addr
	}

	return &http.Server{
		Addr:              addr,
		Handler:           handler,
		ReadHeaderTimeout: cfg.ReadHeaderTimeout,
		WriteTimeout:      cfg.WriteTimeout,
		IdleTimeout:       cfg.IdleTimeout,
	}
}

// Start starts the HTTP server in a goroutine and logs the listening address.
func (a *App) Start() error {
	go func() {
		a.logger.Info("server listening", zap.String("addr", a.server.Addr))
		if err := a.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			a.logger.Fatal("server error", zap.Error(err))
		}
	}()
	return nil
}

// Server returns the HTTP server instance for shutdown handling.
func (a *App) Server() *http.Server {
	return a.server
}
