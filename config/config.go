// Package config loads the service configuration from YAML or JSON files
// with environment variable overrides.
package config

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/knadh/koanf/parsers/json"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"

	"github.com/campustransit/dispatch/infra/metrics"
	"github.com/campustransit/dispatch/infra/mqtt"
)

// Config is the root configuration of the dispatch service.
type Config struct {
	HTTP     HTTPConfig     `json:"http"`
	MQTT     mqtt.Config    `json:"mqtt"`
	Metrics  MetricsConfig  `json:"metrics"`
	Forecast ForecastConfig `json:"forecast"`
	Dispatch DispatchConfig `json:"dispatch"`
}

// HTTPConfig configures the API server.
type HTTPConfig struct {
	Addr string `json:"addr"`
}

// MetricsConfig selects the sinks dispatch events are recorded to.
type MetricsConfig struct {
	PrometheusEnabled bool                 `json:"prometheus_enabled"`
	PrometheusAddr    string               `json:"prometheus_addr"`
	Influx            metrics.InfluxConfig `json:"influx"`
}

// ForecastConfig configures the demand forecaster.
type ForecastConfig struct {
	// Zones are the campus zones forecasts cover by default.
	Zones []string `json:"zones"`
	// DefaultHorizonHours is used when a query omits hours_ahead.
	DefaultHorizonHours int `json:"default_horizon_hours"`
}

// DispatchConfig configures the coordinator.
type DispatchConfig struct {
	// Policy selects the candidate policy: "nearest" or "first_available".
	Policy string `json:"policy"`
	// AutoDispatch wires the coordinator to the pending ride feed.
	AutoDispatch bool `json:"auto_dispatch"`
	// AuditLogPath is the JSONL file dispatch decisions are appended to.
	// Empty disables the audit log.
	AuditLogPath string `json:"audit_log_path"`
}

// SetDefaults applies sane defaults.
func (c *Config) SetDefaults() {
	if c.HTTP.Addr == "" {
		c.HTTP.Addr = ":8080"
	}
	if c.Metrics.PrometheusAddr == "" {
		c.Metrics.PrometheusAddr = ":9090"
	}
	if c.Forecast.DefaultHorizonHours <= 0 {
		c.Forecast.DefaultHorizonHours = 1
	}
	if c.Dispatch.Policy == "" {
		c.Dispatch.Policy = "nearest"
	}
	c.MQTT.SetDefaults()
}

// Validate checks mandatory fields.
func (c Config) Validate() error {
	switch c.Dispatch.Policy {
	case "nearest", "first_available":
	default:
		return fmt.Errorf("unknown dispatch policy %q", c.Dispatch.Policy)
	}
	if err := c.MQTT.Validate(); err != nil {
		return err
	}
	if c.Metrics.Influx.Enabled && c.Metrics.Influx.URL == "" {
		return fmt.Errorf("influx enabled without url")
	}
	return nil
}

// Load reads the configuration from path. Environment variables prefixed
// with CT_ override file values, with "__" as the section separator.
func Load(path string) (*Config, error) {
	k := koanf.New(".")
	ext := strings.ToLower(filepath.Ext(path))
	var parser koanf.Parser
	switch ext {
	case ".yaml", ".yml":
		parser = yaml.Parser()
	case ".json":
		parser = json.Parser()
	default:
		return nil, fmt.Errorf("unsupported config format: %s", ext)
	}
	if err := k.Load(file.Provider(path), parser); err != nil {
		return nil, err
	}
	if err := k.Load(env.Provider("CT_", "__", func(s string) string {
		s = strings.TrimPrefix(strings.ToLower(s), "ct_")
		return strings.ReplaceAll(s, "__", ".")
	}), nil); err != nil {
		return nil, err
	}
	var cfg Config
	if err := k.UnmarshalWithConf("", &cfg, koanf.UnmarshalConf{Tag: "json"}); err != nil {
		return nil, err
	}
	cfg.SetDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}
