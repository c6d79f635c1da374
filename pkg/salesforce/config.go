package salesforce

import (
	"fmt"
	"strings"
	"time"
)

// Config holds Salesforce REST API connection settings
type Config struct {
	// Connection Settings
	InstanceURL string `json:"instance_url" yaml:"instance_url" mapstructure:"instance_url"` // e.g. https://myorg.my.salesforce.com
	AccessToken string `json:"access_token" yaml:"access_token" mapstructure:"access_token"`
	APIVersion  string `json:"api_version" yaml:"api_version" mapstructure:"api_version"` // e.g. v59.0

	// Transport Settings
	Timeout    time.Duration `json:"timeout" yaml:"timeout" mapstructure:"timeout"`
	RetryCount int           `json:"retry_count" yaml:"retry_count" mapstructure:"retry_count"` // passed to resty; 0 disables transport retries
}

// DefaultConfig returns a Config with sensible defaults. InstanceURL and
// AccessToken must still be supplied by the caller.
func DefaultConfig() *Config {
	return &Config{
		APIVersion: "v59.0",
		Timeout:    30 * time.Second,
	}
}

// Validate checks if the Salesforce configuration is valid
func (c *Config) Validate() error {
	if c.InstanceURL == "" {
		return fmt.Errorf("salesforce instance_url is required")
	}
	if !strings.HasPrefix(c.InstanceURL, "https://") {
		return fmt.Errorf("salesforce instance_url must use https, got %q", c.InstanceURL)
	}
	if c.AccessToken == "" {
		return fmt.Errorf("salesforce access_token is required")
	}
	if c.APIVersion == "" {
		return fmt.Errorf("salesforce api_version is required")
	}
	if !strings.HasPrefix(c.APIVersion, "v") {
		return fmt.Errorf("salesforce api_version must look like v59.0, got %q", c.APIVersion)
	}
	return nil
}

func (c *Config) basePath() string {
	return "/services/data/" + c.APIVersion
}
