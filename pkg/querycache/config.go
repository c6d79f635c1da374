package querycache

import (
	"fmt"
	"time"
)

// Strategy selects how mutations invalidate cached query results.
type Strategy string

const (
	// StrategyRecord evicts only the cache entries whose result sets
	// contained the mutated records, using the reverse dependency index.
	StrategyRecord Strategy = "record"

	// StrategyObject evicts every cache entry tagged with the mutated
	// record's object type.
	StrategyObject Strategy = "object"
)

// Config holds query cache behavior settings.
type Config struct {
	// Enabled turns query result caching on or off
	Enabled bool `json:"enabled" yaml:"enabled" mapstructure:"enabled"`

	// DefaultTTL is the lifetime for cached results without a more
	// specific override
	DefaultTTL time.Duration `json:"default_ttl" yaml:"default_ttl" mapstructure:"default_ttl"`

	// ObjectTTL overrides DefaultTTL per object type (e.g. "Account": 5m)
	ObjectTTL map[string]time.Duration `json:"object_ttl" yaml:"object_ttl" mapstructure:"object_ttl"`

	// Strategy selects record-level or object-level invalidation
	Strategy Strategy `json:"strategy" yaml:"strategy" mapstructure:"strategy"`

	// AutoInvalidate evicts affected entries after Create/Update/Delete
	// calls made through the repository layer
	AutoInvalidate bool `json:"auto_invalidate" yaml:"auto_invalidate" mapstructure:"auto_invalidate"`

	// EnableStatistics tracks hit/miss counters
	EnableStatistics bool `json:"enable_statistics" yaml:"enable_statistics" mapstructure:"enable_statistics"`
}

// DefaultConfig returns query cache settings with sensible defaults.
func DefaultConfig() Config {
	return Config{
		Enabled:          true,
		DefaultTTL:       10 * time.Minute,
		ObjectTTL:        make(map[string]time.Duration),
		Strategy:         StrategyRecord,
		AutoInvalidate:   true,
		EnableStatistics: true,
	}
}

// Validate checks the configuration for errors.
func (c *Config) Validate() error {
	if !c.Enabled {
		return nil
	}
	if c.DefaultTTL <= 0 {
		return fmt.Errorf("default_ttl must be positive, got %v", c.DefaultTTL)
	}
	for object, ttl := range c.ObjectTTL {
		if ttl <= 0 {
			return fmt.Errorf("object_ttl for %q must be positive, got %v", object, ttl)
		}
	}
	switch c.Strategy {
	case StrategyRecord, StrategyObject:
	default:
		return fmt.Errorf("strategy must be %q or %q, got %q", StrategyRecord, StrategyObject, c.Strategy)
	}
	return nil
}

// TTLFor resolves the lifetime for results of the given object type.
// An explicit non-zero ttl wins, then the per-object override, then
// the global default.
func (c *Config) TTLFor(object string, explicit time.Duration) time.Duration {
	if explicit > 0 {
		return explicit
	}
	if ttl, ok := c.ObjectTTL[object]; ok {
		return ttl
	}
	return c.DefaultTTL
}
