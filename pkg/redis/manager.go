package redis

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// Key namespace segments. Tag sets and record indexes live alongside cache
// entries under the configured prefix:
//
//	<prefix>:<entry key>                 cached value
//	<prefix>:tag:<tag>                   set of entry keys carrying the tag
//	<prefix>:deps:<object>:<record id>   set of entry keys containing the record
const (
	keySeparator   = ":"
	tagSegment     = "tag"
	depsSegment    = "deps"
	tagTTLFactor   = 2 // tag/index sets outlive their newest member so stale members stay deletable
	scanBatchLimit = 100
)

// Manager manages Redis connections and the tag-scoped cache operations the
// query cache is built on.
type Manager struct {
	config  *Config
	client  redis.UniversalClient
	metrics *Metrics
}

// NewManager creates a new Redis cache manager
func NewManager(config *Config) (*Manager, error) {
	if config == nil {
		return nil, fmt.Errorf("config cannot be nil")
	}
	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid redis config: %w", err)
	}

	manager := &Manager{
		config:  config,
		metrics: NewMetrics(),
	}
	manager.initializeClient()
	return manager, nil
}

// initializeClient sets up the Redis client based on configuration
func (m *Manager) initializeClient() {
	if !m.config.Enabled {
		return // Skip initialization if cache is disabled
	}

	if m.config.IsClusterMode() {
		m.client = redis.NewClusterClient(&redis.ClusterOptions{
			Addrs:           m.config.Cluster.Addresses,
			Username:        m.config.Cluster.Username,
			Password:        m.config.Cluster.Password,
			PoolSize:        m.config.PoolSize,
			MinIdleConns:    m.config.MinIdleConns,
			ConnMaxLifetime: m.config.MaxConnAge,
			PoolTimeout:     m.config.PoolTimeout,
			ConnMaxIdleTime: m.config.IdleTimeout,
			ReadTimeout:     m.config.ReadTimeout,
			WriteTimeout:    m.config.WriteTimeout,
			DialTimeout:     m.config.DialTimeout,
		})
	} else {
		m.client = redis.NewClient(&redis.Options{
			Addr:            m.config.GetAddr(),
			Password:        m.config.Password,
			DB:              m.config.Database,
			PoolSize:        m.config.PoolSize,
			MinIdleConns:    m.config.MinIdleConns,
			ConnMaxLifetime: m.config.MaxConnAge,
			PoolTimeout:     m.config.PoolTimeout,
			ConnMaxIdleTime: m.config.IdleTimeout,
			ReadTimeout:     m.config.ReadTimeout,
			WriteTimeout:    m.config.WriteTimeout,
			DialTimeout:     m.config.DialTimeout,
		})
	}
}

// Config returns the manager's configuration
func (m *Manager) Config() *Config {
	return m.config
}

// Metrics returns the manager's operation metrics
func (m *Manager) Metrics() *Metrics {
	return m.metrics
}

// Close closes the Redis connection
func (m *Manager) Close() error {
	if m.client != nil {
		return m.client.Close()
	}
	return nil
}

// Ping tests the Redis connection. A disabled cache is a valid configuration
// state, not an error.
func (m *Manager) Ping(ctx context.Context) error {
	if !m.config.Enabled {
		return nil
	}
	if m.client == nil {
		return ErrClientNotInitialized
	}
	if err := m.client.Ping(ctx).Err(); err != nil {
		return fmt.Errorf("%w: %v", ErrConnectionFailed, err)
	}
	return nil
}

// checkClient validates that cache is enabled and client is initialized
func (m *Manager) checkClient() error {
	if !m.config.Enabled {
		return ErrCacheDisabled
	}
	if m.client == nil {
		return ErrClientNotInitialized
	}
	return nil
}

// EntryKey returns the namespaced storage key for a logical cache key
func (m *Manager) EntryKey(key string) string {
	return m.config.KeyPrefix + keySeparator + key
}

// TagKey returns the namespaced key of a tag's member set
func (m *Manager) TagKey(tag string) string {
	return m.config.KeyPrefix + keySeparator + tagSegment + keySeparator + tag
}

// DependencyKey returns the namespaced key of a record's reverse-index set
func (m *Manager) DependencyKey(object, recordID string) string {
	return m.config.KeyPrefix + keySeparator + depsSegment + keySeparator + object + keySeparator + recordID
}

// Get retrieves a cached value
func (m *Manager) Get(ctx context.Context, key string) ([]byte, error) {
	if err := m.checkClient(); err != nil {
		return nil, err
	}

	start := time.Now()
	result := m.client.Get(ctx, m.EntryKey(key))
	m.metrics.RecordGet(time.Since(start))

	if result.Err() == redis.Nil {
		return nil, ErrKeyNotFound
	}
	if result.Err() != nil {
		m.metrics.RecordError()
		return nil, fmt.Errorf("redis get error: %w", result.Err())
	}
	return []byte(result.Val()), nil
}

// SetWithTags stores a value and adds its key to every tag's member set in
// one pipelined round trip. Tag sets expire later than the entry so they can
// only ever reference dead keys, never miss live ones.
func (m *Manager) SetWithTags(ctx context.Context, key string, value []byte, ttl time.Duration, tags []string) error {
	if err := m.checkClient(); err != nil {
		return err
	}
	if ttl <= 0 {
		ttl = m.config.DefaultTTL
	}

	start := time.Now()
	pipe := m.client.Pipeline()
	pipe.Set(ctx, m.EntryKey(key), value, ttl)
	for _, tag := range tags {
		tagKey := m.TagKey(tag)
		pipe.SAdd(ctx, tagKey, key)
		pipe.Expire(ctx, tagKey, ttl*tagTTLFactor)
	}
	_, err := pipe.Exec(ctx)
	m.metrics.RecordSet(time.Since(start))
	if err != nil {
		m.metrics.RecordError()
		return fmt.Errorf("redis tagged set error: %w", err)
	}
	return nil
}

// AddRecordDependencies links a cache key to every record identity present in
// its result, extending the reverse index. SAdd is the atomic add-to-set
// primitive, so concurrent writers for the same record cannot lose entries.
func (m *Manager) AddRecordDependencies(ctx context.Context, object string, recordIDs []string, key string, ttl time.Duration) error {
	if err := m.checkClient(); err != nil {
		return err
	}
	if len(recordIDs) == 0 {
		return nil
	}
	if ttl <= 0 {
		ttl = m.config.DefaultTTL
	}

	pipe := m.client.Pipeline()
	for _, id := range recordIDs {
		depKey := m.DependencyKey(object, id)
		pipe.SAdd(ctx, depKey, key)
		pipe.Expire(ctx, depKey, ttl*tagTTLFactor)
	}
	if _, err := pipe.Exec(ctx); err != nil {
		m.metrics.RecordError()
		return fmt.Errorf("redis dependency add error: %w", err)
	}
	m.metrics.RecordDependency(len(recordIDs))
	return nil
}

// Delete removes a single cache entry. Deleting an absent key is a no-op.
func (m *Manager) Delete(ctx context.Context, key string) error {
	if err := m.checkClient(); err != nil {
		return err
	}

	start := time.Now()
	err := m.client.Del(ctx, m.EntryKey(key)).Err()
	m.metrics.RecordDelete(time.Since(start))
	if err != nil {
		m.metrics.RecordError()
		return fmt.Errorf("redis delete error: %w", err)
	}
	return nil
}

// FlushTag deletes every cache entry carrying the tag, then the tag set
// itself. Members whose entries already expired delete as no-ops. Returns the
// number of member keys flushed.
func (m *Manager) FlushTag(ctx context.Context, tag string) (int, error) {
	if err := m.checkClient(); err != nil {
		return 0, err
	}

	tagKey := m.TagKey(tag)
	members, err := m.client.SMembers(ctx, tagKey).Result()
	if err != nil && err != redis.Nil {
		m.metrics.RecordError()
		return 0, fmt.Errorf("redis tag read error: %w", err)
	}
	if len(members) == 0 {
		m.client.Del(ctx, tagKey)
		return 0, nil
	}

	pipe := m.client.Pipeline()
	for _, member := range members {
		pipe.Del(ctx, m.EntryKey(member))
	}
	pipe.Del(ctx, tagKey)
	if _, err := pipe.Exec(ctx); err != nil {
		m.metrics.RecordError()
		return 0, fmt.Errorf("redis tag flush error: %w", err)
	}
	m.metrics.RecordInvalidation(len(members))
	return len(members), nil
}

// InvalidateRecordDependencies consults the reverse index for each record,
// deletes the union of cache entries found, then clears the consulted index
// sets. Replaying the same invalidation is safe: everything deletes as a
// no-op the second time.
func (m *Manager) InvalidateRecordDependencies(ctx context.Context, object string, recordIDs []string) (int, error) {
	if err := m.checkClient(); err != nil {
		return 0, err
	}
	if len(recordIDs) == 0 {
		return 0, nil
	}

	// Union of cache keys across all touched records
	affected := make(map[string]struct{})
	for _, id := range recordIDs {
		members, err := m.client.SMembers(ctx, m.DependencyKey(object, id)).Result()
		if err != nil && err != redis.Nil {
			m.metrics.RecordError()
			return 0, fmt.Errorf("redis dependency read error: %w", err)
		}
		for _, member := range members {
			affected[member] = struct{}{}
		}
	}

	pipe := m.client.Pipeline()
	for key := range affected {
		pipe.Del(ctx, m.EntryKey(key))
	}
	for _, id := range recordIDs {
		pipe.Del(ctx, m.DependencyKey(object, id))
	}
	if _, err := pipe.Exec(ctx); err != nil {
		m.metrics.RecordError()
		return 0, fmt.Errorf("redis dependency invalidation error: %w", err)
	}
	m.metrics.RecordInvalidation(len(affected))
	return len(affected), nil
}

// Exists checks if a cache entry exists
func (m *Manager) Exists(ctx context.Context, key string) (bool, error) {
	if err := m.checkClient(); err != nil {
		return false, err
	}
	n, err := m.client.Exists(ctx, m.EntryKey(key)).Result()
	if err != nil {
		return false, fmt.Errorf("redis exists error: %w", err)
	}
	return n > 0, nil
}

// FlushPrefix removes every key under the manager's prefix using SCAN, which
// is non-blocking and production-safe unlike KEYS. Intended for operational
// resets, not the normal invalidation path.
func (m *Manager) FlushPrefix(ctx context.Context) error {
	if err := m.checkClient(); err != nil {
		return err
	}

	pattern := m.config.KeyPrefix + keySeparator + "*"
	var cursor uint64
	for {
		batch, next, err := m.client.Scan(ctx, cursor, pattern, scanBatchLimit).Result()
		if err != nil {
			return fmt.Errorf("redis scan error: %w", err)
		}
		if len(batch) > 0 {
			if err := m.client.Del(ctx, batch...).Err(); err != nil {
				return fmt.Errorf("redis batch delete error: %w", err)
			}
		}
		cursor = next
		if cursor == 0 {
			return nil
		}
	}
}
