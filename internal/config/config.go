// Package config provides configuration management for the Drive client.
package config

import (
	"fmt"
	"strings"

	"github.com/caarlos0/env/v9"
)

// Config holds client-wide settings. Values come from defaults, then
// environment variables, then explicit flags (highest priority) applied
// by the caller.
type Config struct {
	// APIBaseURL is the base URL of the Drive REST API, without a
	// trailing slash (e.g. http://localhost:8080).
	APIBaseURL string `env:"DRIVE_API_URL"`

	// Token is the bearer token for authenticated requests. Normally
	// resolved from the persisted session; the env var is an escape
	// hatch for scripting.
	Token string `env:"DRIVE_API_TOKEN"`

	// RetryMax is the number of automatic transport-level retries for
	// API calls. The upload/navigation flow specifies manual retry
	// only, so this defaults to 0.
	RetryMax int `env:"DRIVE_RETRY_MAX" envDefault:"0"`

	// MaxConcurrentUploads caps simultaneous upload transfers. Tasks
	// beyond the cap stay Pending until a slot frees up.
	MaxConcurrentUploads int `env:"DRIVE_MAX_UPLOADS" envDefault:"5"`

	// Verbose enables debug-level logging.
	Verbose bool `env:"DRIVE_VERBOSE" envDefault:"false"`
}

// DefaultAPIBaseURL matches the backend's development listen address.
const DefaultAPIBaseURL = "http://localhost:8080"

// Load builds a Config from defaults and environment variables.
func Load() (*Config, error) {
	cfg := &Config{APIBaseURL: DefaultAPIBaseURL}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("failed to parse environment: %w", err)
	}
	if cfg.APIBaseURL == "" {
		cfg.APIBaseURL = DefaultAPIBaseURL
	}
	cfg.APIBaseURL = strings.TrimSuffix(cfg.APIBaseURL, "/")
	return cfg, nil
}

// Validate checks that the configuration is usable for API calls.
func (cfg *Config) Validate() error {
	if cfg.APIBaseURL == "" {
		return fmt.Errorf("API base URL is empty")
	}
	if cfg.MaxConcurrentUploads <= 0 {
		return fmt.Errorf("max concurrent uploads must be positive, got %d", cfg.MaxConcurrentUploads)
	}
	return nil
}
