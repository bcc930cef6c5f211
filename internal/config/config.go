package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"github.com/eugenenazirov/carton-cost-optimizer/internal/costing"
	"github.com/eugenenazirov/carton-cost-optimizer/internal/storage"
)

const (
	defaultPort           = "8080"
	defaultLogLevel       = "info"
	defaultRateLimitRPS   = 25.0
	defaultRateLimitBurst = 50
)

// Config aggregates runtime configuration resolved from multiple sources.
// Precedence: CLI flags > YAML config > Environment variables > Defaults
type Config struct {
	Port                  string
	LogLevel              string
	ShutdownGracePeriod   time.Duration
	ReadHeaderTimeout     time.Duration
	WriteTimeout          time.Duration
	IdleTimeout           time.Duration
	EnableRequestLogging  bool
	RateLimitRPS          float64
	RateLimitBurst        int
	MinNormalizedQuantity int
	Providers             map[string]costing.RateCard
	Defaults              ScenarioDefaults
}

// ScenarioDefaults seeds the cost configuration of a new session.
type ScenarioDefaults struct {
	Provider        string
	StorageWeeks    float64
	TotalDemand     int
	TransportMode   costing.TransportMode
	PalletsPerTruck int
}

// CostConfiguration builds the initial cost configuration from the defaults and provider set.
func (c Config) CostConfiguration() costing.CostConfiguration {
	return costing.CostConfiguration{
		ActiveProvider:  c.Defaults.Provider,
		Rates:           c.Providers[c.Defaults.Provider],
		StorageWeeks:    c.Defaults.StorageWeeks,
		TotalDemand:     c.Defaults.TotalDemand,
		TransportMode:   c.Defaults.TransportMode,
		PalletsPerTruck: c.Defaults.PalletsPerTruck,
		DisplayMode:     costing.DisplayPerUnit,
	}
}

// yamlConfig represents the YAML configuration file structure.
type yamlConfig struct {
	Port                  string                  `yaml:"port"`
	LogLevel              string                  `yaml:"log_level"`
	ShutdownGracePeriod   string                  `yaml:"shutdown_grace_period"`
	ReadHeaderTimeout     string                  `yaml:"read_header_timeout"`
	WriteTimeout          string                  `yaml:"write_timeout"`
	IdleTimeout           string                  `yaml:"idle_timeout"`
	EnableRequestLogging  *bool                   `yaml:"enable_request_logging"`
	RateLimit             yamlRateLimit           `yaml:"rate_limit"`
	MinNormalizedQuantity int                     `yaml:"min_normalized_quantity"`
	Providers             map[string]yamlRateCard `yaml:"providers"`
	Defaults              yamlDefaults            `yaml:"defaults"`
}

// yamlRateLimit represents the rate limit section in YAML.
type yamlRateLimit struct {
	RPS   *float64 `yaml:"rps"`
	Burst *int     `yaml:"burst"`
}

// yamlRateCard represents one provider entry in YAML.
type yamlRateCard struct {
	CartonHandling       float64 `yaml:"carton_handling"`
	CartonUnloading      float64 `yaml:"carton_unloading"`
	PalletStoragePerWeek float64 `yaml:"pallet_storage_per_week"`
	PalletHandling       float64 `yaml:"pallet_handling"`
	PalletLTL            float64 `yaml:"pallet_ltl"`
	TruckFTL             float64 `yaml:"truck_ftl"`
	PalletsPerTruck      int     `yaml:"pallets_per_truck"`
}

// yamlDefaults represents the scenario defaults section in YAML.
type yamlDefaults struct {
	Provider        string   `yaml:"provider"`
	StorageWeeks    *float64 `yaml:"storage_weeks"`
	TotalDemand     *int     `yaml:"total_demand"`
	TransportMode   string   `yaml:"transport_mode"`
	PalletsPerTruck *int     `yaml:"pallets_per_truck"`
}

// CLIOverrides holds command-line flag overrides.
type CLIOverrides struct {
	ConfigFile     string
	EnvFile        string
	Port           *string
	LogLevel       *string
	RateLimitRPS   *float64
	RateLimitBurst *int
	MinQuantity    *int
}

// Load extracts configuration from multiple sources with precedence:
// CLI flags > YAML config > Environment variables > Defaults
func Load(overrides *CLIOverrides) (Config, error) {
	cfg := defaultConfig()

	// Populate the environment from a dotenv file; real environment variables win
	if overrides != nil && overrides.EnvFile != "" {
		if err := godotenv.Load(overrides.EnvFile); err != nil {
			return Config{}, fmt.Errorf("load env file: %w", err)
		}
	}

	if err := applyEnvConfig(&cfg); err != nil {
		return Config{}, err
	}

	if overrides != nil && overrides.ConfigFile != "" {
		yamlCfg, err := loadFromFile(overrides.ConfigFile)
		if err != nil {
			return Config{}, fmt.Errorf("load YAML config: %w", err)
		}
		if err := applyYAMLConfig(&cfg, yamlCfg); err != nil {
			return Config{}, err
		}
	}

	if overrides != nil {
		applyCLIOverrides(&cfg, overrides)
	}

	if err := validateConfig(cfg); err != nil {
		return Config{}, err
	}

	return cfg, nil
}

// defaultConfig returns a Config with default values.
func defaultConfig() Config {
	scenario := storage.DefaultConfiguration()
	return Config{
		Port:                  defaultPort,
		LogLevel:              defaultLogLevel,
		ShutdownGracePeriod:   10 * time.Second,
		ReadHeaderTimeout:     5 * time.Second,
		WriteTimeout:          15 * time.Second,
		IdleTimeout:           60 * time.Second,
		EnableRequestLogging:  true,
		RateLimitRPS:          defaultRateLimitRPS,
		RateLimitBurst:        defaultRateLimitBurst,
		MinNormalizedQuantity: costing.DefaultMinQuantity,
		Providers:             storage.DefaultRateCards(),
		Defaults: ScenarioDefaults{
			Provider:        scenario.ActiveProvider,
			StorageWeeks:    scenario.StorageWeeks,
			TotalDemand:     scenario.TotalDemand,
			TransportMode:   scenario.TransportMode,
			PalletsPerTruck: scenario.PalletsPerTruck,
		},
	}
}

// loadFromFile loads configuration from a YAML file.
func loadFromFile(path string) (*yamlConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read file: %w", err)
	}

	var yamlCfg yamlConfig
	if err := yaml.Unmarshal(data, &yamlCfg); err != nil {
		return nil, fmt.Errorf("parse YAML: %w", err)
	}

	return &yamlCfg, nil
}

// applyYAMLConfig applies YAML configuration to the Config struct.
func applyYAMLConfig(cfg *Config, yamlCfg *yamlConfig) error {
	if yamlCfg.Port != "" {
		cfg.Port = yamlCfg.Port
	}

	if yamlCfg.LogLevel != "" {
		cfg.LogLevel = yamlCfg.LogLevel
	}

	durations := []struct {
		raw    string
		target *time.Duration
		key    string
	}{
		{yamlCfg.ShutdownGracePeriod, &cfg.ShutdownGracePeriod, "shutdown_grace_period"},
		{yamlCfg.ReadHeaderTimeout, &cfg.ReadHeaderTimeout, "read_header_timeout"},
		{yamlCfg.WriteTimeout, &cfg.WriteTimeout, "write_timeout"},
		{yamlCfg.IdleTimeout, &cfg.IdleTimeout, "idle_timeout"},
	}
	for _, d := range durations {
		if d.raw == "" {
			continue
		}
		parsed, err := time.ParseDuration(d.raw)
		if err != nil {
			return fmt.Errorf("parse %s: %w", d.key, err)
		}
		*d.target = parsed
	}

	if yamlCfg.EnableRequestLogging != nil {
		cfg.EnableRequestLogging = *yamlCfg.EnableRequestLogging
	}

	if yamlCfg.RateLimit.RPS != nil {
		cfg.RateLimitRPS = *yamlCfg.RateLimit.RPS
	}

	if yamlCfg.RateLimit.Burst != nil {
		cfg.RateLimitBurst = *yamlCfg.RateLimit.Burst
	}

	if yamlCfg.MinNormalizedQuantity != 0 {
		cfg.MinNormalizedQuantity = yamlCfg.MinNormalizedQuantity
	}

	if len(yamlCfg.Providers) > 0 {
		cfg.Providers = make(map[string]costing.RateCard, len(yamlCfg.Providers))
		for name, card := range yamlCfg.Providers {
			cfg.Providers[name] = costing.RateCard(card)
		}
	}

	if yamlCfg.Defaults.Provider != "" {
		cfg.Defaults.Provider = yamlCfg.Defaults.Provider
	}

	if yamlCfg.Defaults.StorageWeeks != nil {
		cfg.Defaults.StorageWeeks = *yamlCfg.Defaults.StorageWeeks
	}

	if yamlCfg.Defaults.TotalDemand != nil {
		cfg.Defaults.TotalDemand = *yamlCfg.Defaults.TotalDemand
	}

	if yamlCfg.Defaults.TransportMode != "" {
		mode, err := costing.ParseTransportMode(yamlCfg.Defaults.TransportMode)
		if err != nil {
			return err
		}
		cfg.Defaults.TransportMode = mode
	}

	if yamlCfg.Defaults.PalletsPerTruck != nil {
		cfg.Defaults.PalletsPerTruck = *yamlCfg.Defaults.PalletsPerTruck
	}

	return nil
}

// applyEnvConfig applies environment variable configuration.
func applyEnvConfig(cfg *Config) error {
	if port := strings.TrimSpace(os.Getenv("PORT")); port != "" {
		cfg.Port = port
	}

	if level := strings.TrimSpace(os.Getenv("LOG_LEVEL")); level != "" {
		cfg.LogLevel = level
	}

	if rps := strings.TrimSpace(os.Getenv("RATE_LIMIT_RPS")); rps != "" {
		if value, err := strconv.ParseFloat(rps, 64); err == nil && value >= 0 {
			cfg.RateLimitRPS = value
		}
	}

	if burst := strings.TrimSpace(os.Getenv("RATE_LIMIT_BURST")); burst != "" {
		if value, err := strconv.Atoi(burst); err == nil && value >= 0 {
			cfg.RateLimitBurst = value
		}
	}

	if minimum := strings.TrimSpace(os.Getenv("MIN_NORMALIZED_QUANTITY")); minimum != "" {
		value, err := strconv.Atoi(minimum)
		if err != nil {
			return fmt.Errorf("parse MIN_NORMALIZED_QUANTITY: %w", err)
		}
		cfg.MinNormalizedQuantity = value
	}

	if provider := strings.TrimSpace(os.Getenv("DEFAULT_PROVIDER")); provider != "" {
		cfg.Defaults.Provider = provider
	}

	if weeks := strings.TrimSpace(os.Getenv("STORAGE_WEEKS")); weeks != "" {
		value, err := strconv.ParseFloat(weeks, 64)
		if err != nil {
			return fmt.Errorf("parse STORAGE_WEEKS: %w", err)
		}
		cfg.Defaults.StorageWeeks = value
	}

	if demand := strings.TrimSpace(os.Getenv("TOTAL_DEMAND")); demand != "" {
		value, err := strconv.Atoi(demand)
		if err != nil {
			return fmt.Errorf("parse TOTAL_DEMAND: %w", err)
		}
		cfg.Defaults.TotalDemand = value
	}

	if raw := strings.TrimSpace(os.Getenv("TRANSPORT_MODE")); raw != "" {
		mode, err := costing.ParseTransportMode(raw)
		if err != nil {
			return fmt.Errorf("parse TRANSPORT_MODE: %w", err)
		}
		cfg.Defaults.TransportMode = mode
	}

	return nil
}

// applyCLIOverrides applies command-line flag overrides.
func applyCLIOverrides(cfg *Config, overrides *CLIOverrides) {
	if overrides.Port != nil && *overrides.Port != "" {
		cfg.Port = *overrides.Port
	}

	if overrides.LogLevel != nil && *overrides.LogLevel != "" {
		cfg.LogLevel = *overrides.LogLevel
	}

	if overrides.RateLimitRPS != nil && *overrides.RateLimitRPS >= 0 {
		cfg.RateLimitRPS = *overrides.RateLimitRPS
	}

	if overrides.RateLimitBurst != nil && *overrides.RateLimitBurst >= 0 {
		cfg.RateLimitBurst = *overrides.RateLimitBurst
	}

	if overrides.MinQuantity != nil && *overrides.MinQuantity > 0 {
		cfg.MinNormalizedQuantity = *overrides.MinQuantity
	}
}

// validateConfig validates the final configuration.
func validateConfig(cfg Config) error {
	if cfg.RateLimitRPS < 0 {
		return fmt.Errorf("RATE_LIMIT_RPS must be >= 0")
	}
	if cfg.RateLimitBurst < 0 {
		return fmt.Errorf("RATE_LIMIT_BURST must be >= 0")
	}
	if cfg.MinNormalizedQuantity < 1 {
		return fmt.Errorf("min normalized quantity must be >= 1, got %d", cfg.MinNormalizedQuantity)
	}
	if len(cfg.Providers) == 0 {
		return fmt.Errorf("at least one provider rate card is required")
	}
	for name, card := range cfg.Providers {
		if err := card.Validate(); err != nil {
			return fmt.Errorf("provider %s: %w", name, err)
		}
	}
	if _, ok := cfg.Providers[cfg.Defaults.Provider]; !ok {
		return fmt.Errorf("default provider %q is not configured", cfg.Defaults.Provider)
	}
	if err := cfg.CostConfiguration().Validate(); err != nil {
		return fmt.Errorf("scenario defaults: %w", err)
	}
	return nil
}
