package querycache

import (
	"context"
	"fmt"
	"time"

	"github.com/vmihailenco/msgpack/v5"
	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"

	"github.com/ammar0144/soql4go/pkg/redis"
	"github.com/ammar0144/soql4go/pkg/salesforce"
)

// Backend is the key/value and tag-index store a cache service writes
// to. *redis.Manager satisfies it; MemoryBackend provides an
// in-process alternative.
type Backend interface {
	Get(ctx context.Context, key string) ([]byte, error)
	SetWithTags(ctx context.Context, key string, value []byte, ttl time.Duration, tags []string) error
	AddRecordDependencies(ctx context.Context, object string, recordIDs []string, key string, ttl time.Duration) error
	Delete(ctx context.Context, key string) error
	FlushTag(ctx context.Context, tag string) (int, error)
	InvalidateRecordDependencies(ctx context.Context, object string, recordIDs []string) (int, error)
}

// ComputeFn fetches query results from the source of truth on a cache
// miss.
type ComputeFn func(ctx context.Context) ([]salesforce.Record, error)

// Options adjust a single GetOrCompute call.
type Options struct {
	// SkipCache bypasses both the read and the write path
	SkipCache bool

	// Refresh skips the read path but stores the fresh result
	Refresh bool

	// TTL overrides the configured lifetime for this entry
	TTL time.Duration

	// Tags are stored alongside the entry in addition to the global
	// and object tags
	Tags []string

	// Object names the entry's primary object type when the caller
	// already knows it; otherwise it is extracted from the statement
	Object string

	// Aggregate marks the statement as an aggregate query, which is
	// never cached
	Aggregate bool
}

// Service caches SOQL query results with tag and record-dependency
// indexing for invalidation. Misses for the same key are deduplicated
// so concurrent callers trigger a single source fetch.
type Service struct {
	config  Config
	backend Backend
	stats   *Stats
	group   singleflight.Group
	log     *zap.Logger
}

// NewService creates a query cache service over the given backend.
func NewService(config Config, backend Backend, log *zap.Logger) (*Service, error) {
	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid query cache config: %w", err)
	}
	if backend == nil {
		return nil, fmt.Errorf("query cache backend is required")
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &Service{
		config:  config,
		backend: backend,
		stats:   newStats(config.EnableStatistics),
		log:     log,
	}, nil
}

// Config returns the service configuration.
func (s *Service) Config() Config {
	return s.config
}

// Stats returns the hit/miss counters.
func (s *Service) Stats() *Stats {
	return s.stats
}

// GetOrCompute returns the cached results for a SOQL statement, or
// runs compute and caches what it returns. Aggregate statements always
// go straight to compute. Backend failures degrade to a source fetch;
// the caller never sees a cache error.
func (s *Service) GetOrCompute(ctx context.Context, soql string, compute ComputeFn, opts Options) ([]salesforce.Record, error) {
	if !s.config.Enabled || opts.SkipCache {
		return compute(ctx)
	}
	if opts.Aggregate || IsAggregate(soql) {
		return compute(ctx)
	}

	key := Key(soql)

	if !opts.Refresh {
		if records, ok := s.lookup(ctx, key); ok {
			s.stats.hit()
			return records, nil
		}
	}

	v, err, _ := s.group.Do(key, func() (interface{}, error) {
		records, err := compute(ctx)
		if err != nil {
			return nil, err
		}
		s.store(ctx, soql, key, records, opts)
		return records, nil
	})
	if err != nil {
		return nil, err
	}

	s.stats.miss()
	return v.([]salesforce.Record), nil
}

func (s *Service) lookup(ctx context.Context, key string) ([]salesforce.Record, bool) {
	data, err := s.backend.Get(ctx, key)
	if err != nil {
		if !redis.IsKeyNotFound(err) && !redis.IsCacheDisabled(err) {
			s.log.Warn("cache read failed, querying source",
				zap.String("key", key),
				zap.Error(err))
		}
		return nil, false
	}

	var records []salesforce.Record
	if err := msgpack.Unmarshal(data, &records); err != nil {
		s.log.Warn("discarding undecodable cache entry",
			zap.String("key", key),
			zap.Error(err))
		_ = s.backend.Delete(ctx, key)
		return nil, false
	}
	return records, true
}

func (s *Service) store(ctx context.Context, soql, key string, records []salesforce.Record, opts Options) {
	data, err := msgpack.Marshal(records)
	if err != nil {
		s.log.Error("failed to encode query results", zap.Error(err))
		return
	}

	object := opts.Object
	if object == "" {
		object = ObjectName(soql)
	}
	ttl := s.config.TTLFor(object, opts.TTL)

	tags := []string{GlobalTag}
	if object != "" {
		tags = append(tags, ObjectTag(object))
	}
	tags = append(tags, opts.Tags...)

	if err := s.backend.SetWithTags(ctx, key, data, ttl, tags); err != nil {
		if !redis.IsCacheDisabled(err) {
			s.log.Warn("cache write failed",
				zap.String("key", key),
				zap.Error(err))
		}
		return
	}

	if s.config.Strategy == StrategyRecord && object != "" {
		ids := recordIDs(records)
		if len(ids) > 0 {
			if err := s.backend.AddRecordDependencies(ctx, object, ids, key, ttl); err != nil {
				s.log.Warn("failed to index record dependencies",
					zap.String("object", object),
					zap.Error(err))
			}
		}
	}
}

// Forget evicts the cache entry for a single SOQL statement.
func (s *Service) Forget(ctx context.Context, soql string) error {
	if !s.config.Enabled {
		return nil
	}
	return s.backend.Delete(ctx, Key(soql))
}

// FlushObject evicts every cached result tagged with any of the given
// object types and returns how many entries were removed.
func (s *Service) FlushObject(ctx context.Context, objects ...string) (int, error) {
	if !s.config.Enabled {
		return 0, nil
	}
	total := 0
	for _, object := range objects {
		n, err := s.backend.FlushTag(ctx, ObjectTag(object))
		if err != nil {
			return total, fmt.Errorf("failed to flush object %s: %w", object, err)
		}
		total += n
	}
	return total, nil
}

// FlushAll evicts every cached query result.
func (s *Service) FlushAll(ctx context.Context) (int, error) {
	if !s.config.Enabled {
		return 0, nil
	}
	return s.backend.FlushTag(ctx, GlobalTag)
}

// InvalidateByRecordIDs evicts exactly the entries whose result sets
// contained any of the given records. Under the object strategy no
// dependency index exists, so it degrades to flushing the whole
// object's entries.
func (s *Service) InvalidateByRecordIDs(ctx context.Context, object string, recordIDs []string) (int, error) {
	if !s.config.Enabled {
		return 0, nil
	}
	if s.config.Strategy == StrategyObject {
		return s.FlushObject(ctx, object)
	}
	return s.backend.InvalidateRecordDependencies(ctx, object, recordIDs)
}

func recordIDs(records []salesforce.Record) []string {
	seen := make(map[string]struct{}, len(records))
	ids := make([]string, 0, len(records))
	for _, rec := range records {
		id := rec.ID()
		if id == "" {
			continue
		}
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		ids = append(ids, id)
	}
	return ids
}
