package application

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"go.uber.org/zap/zaptest"

	"github.com/eugenenazirov/carton-cost-optimizer/internal/config"
	"github.com/eugenenazirov/carton-cost-optimizer/internal/costing"
	"github.com/eugenenazirov/carton-cost-optimizer/internal/storage"
)

func TestNewInitializesDependencies(t *testing.T) {
	cfg := baseTestConfig(":8085")
	cfg.MinNormalizedQuantity = 2500
	logger := zaptest.NewLogger(t)

	app, err := New(cfg, logger)
	if err != nil {
		t.Fatalf("New returned error: %v", err)
	}

	scenario, err := app.storage.Configuration()
	if err != nil {
		t.Fatalf("Configuration returned error: %v", err)
	}
	if scenario.ActiveProvider != "provider-b" || scenario.Rates != cfg.Providers["provider-b"] {
		t.Fatalf("expected provider-b scenario, got %+v", scenario)
	}
	if scenario.TotalDemand != 4200 {
		t.Fatalf("expected demand 4200, got %d", scenario.TotalDemand)
	}
	if app.calculator.MinQuantity() != 2500 {
		t.Fatalf("expected min quantity 2500, got %d", app.calculator.MinQuantity())
	}
	if app.server == nil || app.router == nil || app.handler == nil {
		t.Fatalf("expected server, router, and handler to be initialized")
	}
	if app.Server() != app.server {
		t.Fatalf("Server accessor did not return underlying instance")
	}
}

func TestNewServerAppliesConfig(t *testing.T) {
	cfg := baseTestConfig("9090")
	handler := http.NewServeMux()

	server := NewServer(cfg, handler)
	if server.Addr != ":9090" {
		t.Fatalf("expected address :9090, got %s", server.Addr)
	}
	if server.Handler != handler {
		t.Fatalf("expected handler to be applied")
	}
	if server.ReadHeaderTimeout != cfg.ReadHeaderTimeout ||
		server.WriteTimeout != cfg.WriteTimeout ||
		server.IdleTimeout != cfg.IdleTimeout {
		t.Fatalf("server timeouts do not match configuration")
	}
}

func TestNewReturnsErrorForMissingProviders(t *testing.T) {
	cfg := baseTestConfig(":0")
	cfg.Providers = nil

	if _, err := New(cfg, zaptest.NewLogger(t)); err == nil {
		t.Fatalf("expected error for empty provider set")
	}
}

func TestNewReturnsErrorForInvalidDefaults(t *testing.T) {
	cfg := baseTestConfig(":0")
	cfg.Defaults.TransportMode = "rail"

	if _, err := New(cfg, zaptest.NewLogger(t)); err == nil {
		t.Fatalf("expected error for invalid transport mode")
	}
}

func TestBuildRootHandlerRoutes(t *testing.T) {
	app, err := New(baseTestConfig(":0"), zaptest.NewLogger(t))
	if err != nil {
		t.Fatalf("New returned error: %v", err)
	}
	root := app.Server().Handler

	cases := []struct {
		path string
		want int
	}{
		{"/", http.StatusOK},
		{"/api/health", http.StatusOK},
		{"/api/analysis", http.StatusOK},
		{"/metrics", http.StatusOK},
		{"/nope", http.StatusNotFound},
	}
	for _, tc := range cases {
		rec := httptest.NewRecorder()
		root.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, tc.path, nil))
		if rec.Code != tc.want {
			t.Fatalf("%s: expected status %d, got %d", tc.path, tc.want, rec.Code)
		}
	}
}

func TestBuildRootHandlerBanner(t *testing.T) {
	root := BuildRootHandler(http.NotFoundHandler())

	rec := httptest.NewRecorder()
	root.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))

	var body map[string]string
	if err := json.NewDecoder(rec.Body).Decode(&body); err != nil {
		t.Fatalf("failed to decode banner: %v", err)
	}
	if body["service"] != serviceName {
		t.Fatalf("expected service %s, got %s", serviceName, body["service"])
	}

	rec = httptest.NewRecorder()
	root.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	if !strings.Contains(rec.Body.String(), "go_goroutines") {
		t.Fatalf("expected prometheus exposition at /metrics")
	}
}

func baseTestConfig(port string) config.Config {
	return config.Config{
		Port:                  port,
		LogLevel:              "info",
		ShutdownGracePeriod:   50 * time.Millisecond,
		ReadHeaderTimeout:     20 * time.Millisecond,
		WriteTimeout:          30 * time.Millisecond,
		IdleTimeout:           40 * time.Millisecond,
		EnableRequestLogging:  false,
		RateLimitRPS:          0,
		RateLimitBurst:        0,
		MinNormalizedQuantity: costing.DefaultMinQuantity,
		Providers:             storage.DefaultRateCards(),
		Defaults: config.ScenarioDefaults{
			Provider:      "provider-b",
			StorageWeeks:  2,
			TotalDemand:   4200,
			TransportMode: costing.TransportAuto,
		},
	}
}
