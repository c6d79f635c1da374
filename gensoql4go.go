// Package soql4go provides a Salesforce query library with SOQL
// building, result normalization and intelligent cache invalidation
// for high read, low write integrations.
package soql4go

import (
	"fmt"

	"go.uber.org/zap"

	"github.com/ammar0144/soql4go/pkg/config"
	"github.com/ammar0144/soql4go/pkg/querycache"
	"github.com/ammar0144/soql4go/pkg/redis"
	"github.com/ammar0144/soql4go/pkg/repository"
	"github.com/ammar0144/soql4go/pkg/salesforce"
	"github.com/ammar0144/soql4go/pkg/soql"
	"github.com/ammar0144/soql4go/pkg/webhook"
)

// Config is the root library configuration
type Config = config.Config

// SalesforceConfig holds connection settings for the Salesforce REST API
type SalesforceConfig = salesforce.Config

// RedisConfig holds settings for the Redis backing store
type RedisConfig = redis.Config

// Record is a Salesforce record as a field map
type Record = salesforce.Record

// Query is a built, immutable SOQL statement
type Query = soql.Query

// Repository provides cached access to one Salesforce object type
type Repository = repository.SObjectRepository

// LoadConfig reads configuration from a file path, layered over
// defaults and environment variables. An empty path uses defaults
// plus environment only.
func LoadConfig(path string) (*Config, error) {
	return config.Load(path)
}

// NewBuilder starts a SOQL query builder for an object type.
func NewBuilder(object string) soql.Builder {
	return soql.NewBuilder(object)
}

// NewSalesforceClient creates a client for the Salesforce REST API.
func NewSalesforceClient(cfg *SalesforceConfig) (salesforce.Client, error) {
	return salesforce.NewClient(cfg)
}

// NewRedisManager creates the Redis backing store.
func NewRedisManager(cfg *RedisConfig) (*redis.Manager, error) {
	return redis.NewManager(cfg)
}

// Client bundles the full stack: a Salesforce client, a query cache
// over the configured backing store, and per-object repositories.
type Client struct {
	cfg   *Config
	sf    salesforce.Client
	redis *redis.Manager
	cache *querycache.Service
	inval *querycache.Invalidator
	log   *zap.Logger
}

// New wires a Client from configuration. If cfg is nil the defaults
// are used. The logger may be nil.
func New(cfg *Config, log *zap.Logger) (*Client, error) {
	if cfg == nil {
		cfg = config.Default()
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if log == nil {
		log = zap.NewNop()
	}

	sf, err := salesforce.NewClient(&cfg.Salesforce)
	if err != nil {
		return nil, err
	}

	c := &Client{cfg: cfg, sf: sf, log: log}

	var backend querycache.Backend
	switch cfg.CacheBackend {
	case config.BackendMemory:
		backend = querycache.NewMemoryBackend()
	default:
		c.redis, err = redis.NewManager(&cfg.Redis)
		if err != nil {
			return nil, err
		}
		backend = c.redis
	}

	c.cache, err = querycache.NewService(cfg.Cache, backend, log)
	if err != nil {
		return nil, err
	}
	c.inval = querycache.NewInvalidator(c.cache, log)
	return c, nil
}

// Salesforce returns the underlying REST client.
func (c *Client) Salesforce() salesforce.Client {
	return c.sf
}

// Cache returns the query cache service.
func (c *Client) Cache() *querycache.Service {
	return c.cache
}

// Invalidator returns the cache invalidator, which also serves as the
// webhook change processor.
func (c *Client) Invalidator() *querycache.Invalidator {
	return c.inval
}

// Repository returns a cached repository for an object type.
func (c *Client) Repository(object string) (*Repository, error) {
	return repository.New(object, c.sf, c.cache, c.cfg.Repository, c.log)
}

// WebhookServer builds the change data capture ingress wired to this
// client's cache.
func (c *Client) WebhookServer() (*webhook.Server, error) {
	return webhook.NewServer(c.cfg.Webhook, c.inval, c.log)
}

// Close releases the backing store connection.
func (c *Client) Close() error {
	if c.redis != nil {
		if err := c.redis.Close(); err != nil {
			return fmt.Errorf("failed to close redis connection: %w", err)
		}
	}
	return nil
}
