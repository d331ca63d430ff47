// Package config loads the run configuration and planning instances.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"

	"routeopt/internal/model"
)

// Config is the run configuration of the CLI.
type Config struct {
	Params   model.Parameters `yaml:"params"`
	Stages   []string         `yaml:"stages"`
	Status   Status           `yaml:"status"`
	Metrics  Metrics          `yaml:"metrics"`
	LogLevel string           `yaml:"logLevel"`
}

// Status configures where run events go.
type Status struct {
	// RedisURL enables publishing events to Redis when set.
	RedisURL string `yaml:"redisURL"`
	// Rate limits RUNNING events per second; zero disables throttling.
	Rate  float64 `yaml:"rate"`
	Burst int     `yaml:"burst"`
	// WebhookURL receives every event as a signed POST when set.
	WebhookURL    string `yaml:"webhookURL"`
	WebhookSecret string `yaml:"webhookSecret"`
}

// Metrics configures the Prometheus endpoint.
type Metrics struct {
	// Addr serves /metrics when set, e.g. ":9090".
	Addr string `yaml:"addr"`
}

// Default returns the configuration used when no file is given.
func Default() *Config {
	return &Config{
		Params:   model.DefaultParameters(),
		Status:   Status{Burst: 1},
		LogLevel: "info",
	}
}

// Load reads the YAML file at path over the defaults and applies
// environment overrides. An empty path loads the defaults only.
func Load(path string) (*Config, error) {
	cfg := Default()
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("load config: %w", err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("load config: parse %s: %w", path, err)
		}
	}
	if err := cfg.ApplyEnv(); err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	return cfg, nil
}

// ApplyEnv overrides fields from ROUTEOPT_SEED, ROUTEOPT_ILS_LOOPS,
// ROUTEOPT_SPLIT, REDIS_URL, WEBHOOK_URL, WEBHOOK_SECRET and METRICS_ADDR.
func (c *Config) ApplyEnv() error {
	if v := os.Getenv("ROUTEOPT_SEED"); v != "" {
		n, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			return fmt.Errorf("ROUTEOPT_SEED: %w", err)
		}
		c.Params.Seed = n
	}
	if v := os.Getenv("ROUTEOPT_ILS_LOOPS"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n <= 0 {
			return fmt.Errorf("ROUTEOPT_ILS_LOOPS: %q is not a positive number", v)
		}
		c.Params.ILSLoops = n
	}
	if v := os.Getenv("ROUTEOPT_SPLIT"); v != "" {
		b, err := strconv.ParseBool(strings.TrimSpace(v))
		if err != nil {
			return fmt.Errorf("ROUTEOPT_SPLIT: %w", err)
		}
		c.Params.RouteSplitting = b
	}
	c.Status.RedisURL = envOr("REDIS_URL", c.Status.RedisURL)
	c.Status.WebhookURL = envOr("WEBHOOK_URL", c.Status.WebhookURL)
	c.Status.WebhookSecret = envOr("WEBHOOK_SECRET", c.Status.WebhookSecret)
	c.Metrics.Addr = envOr("METRICS_ADDR", c.Metrics.Addr)
	return nil
}

func envOr(k, d string) string {
	if v := os.Getenv(k); v != "" {
		return v
	}
	return d
}
