package webhook

import "fmt"

// Config holds webhook ingress settings.
type Config struct {
	// Enabled accepts change events on the CDC endpoint. When false
	// the endpoint answers 403 without reading the payload.
	Enabled bool `json:"enabled" yaml:"enabled" mapstructure:"enabled"`

	// Secret authenticates callers, either as a shared-secret header
	// or as the HMAC key for payload signatures
	Secret string `json:"secret" yaml:"secret" mapstructure:"secret"`

	// RequireValidation enforces authentication on the CDC endpoint.
	// Turning it off is only sensible behind a trusted proxy.
	RequireValidation bool `json:"require_validation" yaml:"require_validation" mapstructure:"require_validation"`
}

// DefaultConfig returns webhook settings with sensible defaults.
func DefaultConfig() Config {
	return Config{
		Enabled:           false,
		RequireValidation: true,
	}
}

// Validate checks the configuration for errors.
func (c *Config) Validate() error {
	if c.Enabled && c.RequireValidation && c.Secret == "" {
		return fmt.Errorf("webhook secret is required when validation is enforced")
	}
	return nil
}
