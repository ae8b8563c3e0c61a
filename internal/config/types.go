// Package config loads and validates the client configuration: the
// control-plane endpoint and the API token used to authenticate.
package config

import (
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"
)

// Config is the complete client configuration.
type Config struct {
	// Endpoint is the control-plane API base URL, e.g.
	// "https://pve1.example.com:8006".
	Endpoint string `yaml:"endpoint"`
	// TokenID identifies the API token, e.g. "ops@pam!pvectl".
	TokenID string `yaml:"token_id"`
	// Secret is the API token secret. Prefer the PVECTL_SECRET
	// environment variable over storing it in the file.
	Secret string `yaml:"secret,omitempty"`
	// InsecureTLS skips certificate verification, for clusters with
	// self-signed certificates.
	InsecureTLS bool `yaml:"insecure_tls,omitempty"`
	// TimeoutSeconds bounds individual API requests (not task waits).
	TimeoutSeconds int `yaml:"timeout_seconds,omitempty"`
	// Editor overrides the editor used for interactive edits.
	Editor string `yaml:"editor,omitempty"`
}

// DefaultTimeoutSeconds bounds a single API request.
const DefaultTimeoutSeconds = 30

// DefaultPath returns the default configuration file location.
func DefaultPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ""
	}
	return filepath.Join(home, ".config", "pvectl", "config.yaml")
}

// LoadFromFile reads and validates a configuration file. Environment
// variables PVECTL_ENDPOINT, PVECTL_TOKEN_ID and PVECTL_SECRET fill in
// fields missing from the file.
func LoadFromFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	cfg.applyEnv()
	cfg.SetDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return &cfg, nil
}

// LoadFromEnv builds a configuration purely from the environment, for
// use when no config file exists.
func LoadFromEnv() (*Config, error) {
	var cfg Config
	cfg.applyEnv()
	cfg.SetDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return &cfg, nil
}

func (c *Config) applyEnv() {
	if c.Endpoint == "" {
		c.Endpoint = os.Getenv("PVECTL_ENDPOINT")
	}
	if c.TokenID == "" {
		c.TokenID = os.Getenv("PVECTL_TOKEN_ID")
	}
	if c.Secret == "" {
		c.Secret = os.Getenv("PVECTL_SECRET")
	}
}

// SetDefaults fills unset optional fields.
func (c *Config) SetDefaults() {
	if c.TimeoutSeconds == 0 {
		c.TimeoutSeconds = DefaultTimeoutSeconds
	}
}

// Validate checks the configuration for errors. It does not contact the
// control plane.
func (c *Config) Validate() error {
	if c.Endpoint == "" {
		return fmt.Errorf("endpoint is required")
	}
	u, err := url.Parse(c.Endpoint)
	if err != nil {
		return fmt.Errorf("endpoint is not a valid URL: %w", err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("endpoint must be an http or https URL, got %q", c.Endpoint)
	}
	if u.Host == "" {
		return fmt.Errorf("endpoint is missing a host: %q", c.Endpoint)
	}

	if c.TokenID == "" {
		return fmt.Errorf("token_id is required")
	}
	if c.Secret == "" {
		return fmt.Errorf("secret is required (set it in the config file or PVECTL_SECRET)")
	}
	if c.TimeoutSeconds < 0 {
		return fmt.Errorf("timeout_seconds must be >= 0, got %d", c.TimeoutSeconds)
	}
	return nil
}

// RequestTimeout returns the per-request timeout as a duration.
func (c *Config) RequestTimeout() time.Duration {
	return time.Duration(c.TimeoutSeconds) * time.Second
}
