// Package config loads library configuration from YAML or JSON files
// and SOQL4GO_* environment variables.
package config

import (
	"fmt"
	"strings"

	"github.com/spf13/viper"

	"github.com/ammar0144/soql4go/pkg/querycache"
	"github.com/ammar0144/soql4go/pkg/redis"
	"github.com/ammar0144/soql4go/pkg/repository"
	"github.com/ammar0144/soql4go/pkg/salesforce"
	"github.com/ammar0144/soql4go/pkg/webhook"
)

// Cache backend selector values.
const (
	BackendRedis  = "redis"
	BackendMemory = "memory"
)

const envPrefix = "SOQL4GO"

// Config is the root configuration for the library.
type Config struct {
	Salesforce salesforce.Config `json:"salesforce" yaml:"salesforce" mapstructure:"salesforce"`
	Cache      querycache.Config `json:"cache" yaml:"cache" mapstructure:"cache"`
	Redis      redis.Config      `json:"redis" yaml:"redis" mapstructure:"redis"`
	Repository repository.Config `json:"repository" yaml:"repository" mapstructure:"repository"`
	Webhook    webhook.Config    `json:"webhook" yaml:"webhook" mapstructure:"webhook"`

	// CacheBackend selects where cached results live: "redis" for a
	// shared store, "memory" for a single-process one.
	CacheBackend string `json:"cache_backend" yaml:"cache_backend" mapstructure:"cache_backend"`
}

// Default returns the full default configuration.
func Default() *Config {
	return &Config{
		Salesforce:   *salesforce.DefaultConfig(),
		Cache:        querycache.DefaultConfig(),
		Redis:        *redis.DefaultConfig(),
		Repository:   repository.DefaultConfig(),
		Webhook:      webhook.DefaultConfig(),
		CacheBackend: BackendRedis,
	}
}

// Load reads configuration from the given file, layered over defaults
// and under SOQL4GO_* environment variables. An empty path loads
// defaults plus environment only.
func Load(configPath string) (*Config, error) {
	v := viper.New()
	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	setDefaults(v)

	if configPath != "" {
		v.SetConfigFile(configPath)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read config file %s: %w", configPath, err)
		}
	}

	cfg := Default()
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("failed to decode config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// setDefaults registers every leaf key with viper. Environment
// overrides only apply to keys viper knows about, so defaults double
// as the key registry.
func setDefaults(v *viper.Viper) {
	d := Default()

	v.SetDefault("salesforce.instance_url", d.Salesforce.InstanceURL)
	v.SetDefault("salesforce.access_token", d.Salesforce.AccessToken)
	v.SetDefault("salesforce.api_version", d.Salesforce.APIVersion)
	v.SetDefault("salesforce.timeout", d.Salesforce.Timeout)
	v.SetDefault("salesforce.retry_count", d.Salesforce.RetryCount)

	v.SetDefault("cache.enabled", d.Cache.Enabled)
	v.SetDefault("cache.default_ttl", d.Cache.DefaultTTL)
	v.SetDefault("cache.strategy", string(d.Cache.Strategy))
	v.SetDefault("cache.auto_invalidate", d.Cache.AutoInvalidate)
	v.SetDefault("cache.enable_statistics", d.Cache.EnableStatistics)

	v.SetDefault("redis.enabled", d.Redis.Enabled)
	v.SetDefault("redis.default_ttl", d.Redis.DefaultTTL)
	v.SetDefault("redis.key_prefix", d.Redis.KeyPrefix)
	v.SetDefault("redis.host", d.Redis.Host)
	v.SetDefault("redis.port", d.Redis.Port)
	v.SetDefault("redis.password", d.Redis.Password)
	v.SetDefault("redis.database", d.Redis.Database)
	v.SetDefault("redis.pool_size", d.Redis.PoolSize)
	v.SetDefault("redis.min_idle_conns", d.Redis.MinIdleConns)
	v.SetDefault("redis.pool_timeout", d.Redis.PoolTimeout)
	v.SetDefault("redis.read_timeout", d.Redis.ReadTimeout)
	v.SetDefault("redis.write_timeout", d.Redis.WriteTimeout)
	v.SetDefault("redis.dial_timeout", d.Redis.DialTimeout)
	v.SetDefault("redis.cluster.enabled", d.Redis.Cluster.Enabled)

	v.SetDefault("repository.bulk_chunk_size", d.Repository.BulkChunkSize)
	v.SetDefault("repository.throw_on_error", d.Repository.ThrowOnError)

	v.SetDefault("webhook.enabled", d.Webhook.Enabled)
	v.SetDefault("webhook.secret", d.Webhook.Secret)
	v.SetDefault("webhook.require_validation", d.Webhook.RequireValidation)

	v.SetDefault("cache_backend", d.CacheBackend)
}

// Validate checks every section for errors.
func (c *Config) Validate() error {
	if err := c.Cache.Validate(); err != nil {
		return err
	}
	if err := c.Redis.Validate(); err != nil {
		return err
	}
	if err := c.Repository.Validate(); err != nil {
		return err
	}
	if err := c.Webhook.Validate(); err != nil {
		return err
	}
	switch c.CacheBackend {
	case BackendRedis, BackendMemory:
	default:
		return fmt.Errorf("cache_backend must be %q or %q, got %q", BackendRedis, BackendMemory, c.CacheBackend)
	}
	// The Salesforce section is validated when a client is built, so a
	// config file without credentials still loads for cache-only use.
	return nil
}
