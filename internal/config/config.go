// Package config loads the process-wide engine configuration and the
// per-board YAML export format, and decodes persisted entity config
// blobs into the typed attribute structs the actor package consumes. It
// is the one place mapstructure, godotenv, and yaml.v3 meet the rest of
// the runtime.
package config

import (
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// EngineConfig is the top-level process configuration: which storage
// backend to open, which board to run, provider credentials, a budget
// block, and the tracing setup. The budget block is parsed but not applied;
// board limits come from each board's own MaxDollars/MaxTokens.
type EngineConfig struct {
	Storage   StorageConfig             `yaml:"storage"`
	BoardID   string                    `yaml:"boardId"`
	Providers map[string]ProviderConfig `yaml:"providers"`
	Budget    BudgetConfig              `yaml:"budget"`
	LogLevel  string                    `yaml:"logLevel"`
	Tracing   TracingConfig             `yaml:"tracing"`
	MetricsAddr string                  `yaml:"metricsAddr"`
}

// StorageConfig selects and configures the Persistence Adapter's SQL
// dialect switch.
type StorageConfig struct {
	Dialect string `yaml:"dialect"` // sqlite, postgres, mysql
	DSN     string `yaml:"dsn"`
}

// ProviderConfig configures one named LLM provider entry. APIKey may be a
// literal "${VAR}" reference resolved against the process environment
// after LoadEnv has had a chance to populate it from a .env file.
type ProviderConfig struct {
	APIKey      string  `yaml:"apiKey"`
	Model       string  `yaml:"model"`
	BaseURL     string  `yaml:"baseUrl"`
	MaxTokens   int     `yaml:"maxTokens"`
	Temperature float64 `yaml:"temperature"`
}

// BudgetConfig is a spend/token ceiling read from the engine config. No
// code reads it; it is not used as a default for boards.
type BudgetConfig struct {
	MaxDollars float64 `yaml:"maxDollars"`
	MaxTokens  uint64  `yaml:"maxTokens"`
}

// TracingConfig mirrors observability.TracerConfig; duplicated here
// (rather than imported) so internal/config has no dependency on
// internal/observability, which in turn may come to depend on board
// types config already reaches.
type TracingConfig struct {
	Enabled      bool    `yaml:"enabled"`
	ExporterType string  `yaml:"exporterType"`
	EndpointURL  string  `yaml:"endpointUrl"`
	SamplingRate float64 `yaml:"samplingRate"`
	ServiceName  string  `yaml:"serviceName"`
}

// LoadEnv overlays a .env file onto the process environment, if path
// exists. Missing files are not an error; an explicitly malformed one is.
func LoadEnv(path string) error {
	if path == "" {
		return nil
	}
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return nil
	}
	return godotenv.Load(path)
}

// Load reads and parses an EngineConfig from a YAML file, resolving
// "${VAR}" references in provider API keys and the storage DSN against
// the process environment, and filling a handful of defaults.
func Load(path string) (*EngineConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("config: read %s: %w", path, err)
	}

	var cfg EngineConfig
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("config: parse %s: %w", path, err)
	}

	for name, p := range cfg.Providers {
		p.APIKey = resolveEnv(p.APIKey)
		cfg.Providers[name] = p
	}
	cfg.Storage.DSN = resolveEnv(cfg.Storage.DSN)

	if cfg.LogLevel == "" {
		cfg.LogLevel = "info"
	}
	if cfg.Storage.Dialect == "" {
		cfg.Storage.Dialect = "sqlite"
	}
	if cfg.Tracing.ServiceName == "" {
		cfg.Tracing.ServiceName = "hexboard"
	}
	return &cfg, nil
}

// resolveEnv expands a bare "${VAR}" reference. Values not wrapped that
// way pass through untouched, so a literal key in a local dev config
// still works without an env file.
func resolveEnv(v string) string {
	if len(v) > 3 && v[0:2] == "${" && v[len(v)-1] == '}' {
		if resolved := os.Getenv(v[2 : len(v)-1]); resolved != "" {
			return resolved
		}
	}
	return v
}
