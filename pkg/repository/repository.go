package repository

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/ammar0144/soql4go/pkg/querycache"
	"github.com/ammar0144/soql4go/pkg/salesforce"
	"github.com/ammar0144/soql4go/pkg/soql"
)

// Config holds repository behavior settings.
type Config struct {
	// BulkChunkSize caps how many records go into one composite call.
	// It may not exceed the Salesforce per-call ceiling.
	BulkChunkSize int `json:"bulk_chunk_size" yaml:"bulk_chunk_size" mapstructure:"bulk_chunk_size"`

	// ThrowOnError propagates remote mutation and cache invalidation
	// failures to the caller. When off they are logged instead:
	// mutations return a safe unsuccessful default and stale cache
	// entries expire by TTL.
	ThrowOnError bool `json:"throw_on_error" yaml:"throw_on_error" mapstructure:"throw_on_error"`
}

// DefaultConfig returns repository settings with sensible defaults.
func DefaultConfig() Config {
	return Config{
		BulkChunkSize: salesforce.CollectionCeiling,
		ThrowOnError:  false,
	}
}

// Validate checks the configuration for errors.
func (c *Config) Validate() error {
	if c.BulkChunkSize <= 0 {
		return fmt.Errorf("bulk_chunk_size must be positive, got %d", c.BulkChunkSize)
	}
	if c.BulkChunkSize > salesforce.CollectionCeiling {
		return fmt.Errorf("bulk_chunk_size %d exceeds the per-call ceiling of %d",
			c.BulkChunkSize, salesforce.CollectionCeiling)
	}
	return nil
}

// SObjectRepository provides cached query and mutation access to one
// Salesforce object type. Reads go through the query cache when one is
// configured; mutations trigger invalidation afterwards.
type SObjectRepository struct {
	object string
	client salesforce.Client
	cache  *querycache.Service
	inval  *querycache.Invalidator
	config Config
	log    *zap.Logger
}

// New creates a repository for the given object type. cache may be nil
// to disable caching entirely.
func New(object string, client salesforce.Client, cache *querycache.Service, config Config, log *zap.Logger) (*SObjectRepository, error) {
	if object == "" {
		return nil, fmt.Errorf("repository object name is required")
	}
	if client == nil {
		return nil, fmt.Errorf("repository requires a salesforce client")
	}
	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid repository config: %w", err)
	}
	if log == nil {
		log = zap.NewNop()
	}

	r := &SObjectRepository{
		object: object,
		client: client,
		cache:  cache,
		config: config,
		log:    log.With(zap.String("object", object)),
	}
	if cache != nil {
		r.inval = querycache.NewInvalidator(cache, r.log)
	}
	return r, nil
}

// Object returns the object type this repository serves.
func (r *SObjectRepository) Object() string {
	return r.object
}

// Builder starts a query builder bound to this repository's object.
func (r *SObjectRepository) Builder() soql.Builder {
	return soql.NewBuilder(r.object)
}

// Query executes a built query and returns all its records, following
// pagination. Non-aggregate results are cached.
func (r *SObjectRepository) Query(ctx context.Context, q soql.Query) ([]salesforce.Record, error) {
	return r.fetch(ctx, q.SOQL, querycache.Options{
		Object:    q.Object,
		Aggregate: q.IsAggregate(),
	})
}

// QuerySOQL executes a raw SOQL statement. The object type for cache
// tagging is extracted from the statement text.
func (r *SObjectRepository) QuerySOQL(ctx context.Context, statement string) ([]salesforce.Record, error) {
	return r.fetch(ctx, statement, querycache.Options{})
}

func (r *SObjectRepository) fetch(ctx context.Context, statement string, opts querycache.Options) ([]salesforce.Record, error) {
	compute := func(ctx context.Context) ([]salesforce.Record, error) {
		resp, err := r.client.Query(ctx, statement)
		if err != nil {
			return nil, err
		}
		return salesforce.Collect(ctx, r.client, resp)
	}
	if r.cache == nil {
		return compute(ctx)
	}
	return r.cache.GetOrCompute(ctx, statement, compute, opts)
}

// Find returns a single record by Id. Returns ErrNotFound when no
// record matches.
func (r *SObjectRepository) Find(ctx context.Context, id string, fields ...string) (salesforce.Record, error) {
	q, err := r.Builder().
		Select(fields...).
		Where("Id", soql.Equal, id).
		Limit(1).
		Build()
	if err != nil {
		return nil, err
	}

	records, err := r.Query(ctx, q)
	if err != nil {
		return nil, err
	}
	if len(records) == 0 {
		return nil, fmt.Errorf("%w: %s %s", salesforce.ErrNotFound, r.object, id)
	}
	return records[0], nil
}

// Count runs COUNT() over the builder's conditions. An empty builder
// counts the whole object.
func (r *SObjectRepository) Count(ctx context.Context, b soql.Builder) (int, error) {
	rec, err := r.runAggregate(ctx, b.Aggregate(soql.Count, soql.Wildcard))
	if err != nil {
		return 0, err
	}
	return salesforce.CountValue(rec), nil
}

// Sum runs SUM(field) over the builder's conditions. A sum over no
// rows is 0.
func (r *SObjectRepository) Sum(ctx context.Context, b soql.Builder, field string) (float64, error) {
	rec, err := r.runAggregate(ctx, b.Aggregate(soql.Sum, field))
	if err != nil {
		return 0, err
	}
	return salesforce.SumValue(rec), nil
}

// Avg runs AVG(field) over the builder's conditions. The boolean is
// false when no rows matched.
func (r *SObjectRepository) Avg(ctx context.Context, b soql.Builder, field string) (float64, bool, error) {
	rec, err := r.runAggregate(ctx, b.Aggregate(soql.Avg, field))
	if err != nil {
		return 0, false, err
	}
	v, ok := salesforce.AvgValue(rec)
	return v, ok, nil
}

// Min runs MIN(field) over the builder's conditions. The boolean is
// false when no rows matched.
func (r *SObjectRepository) Min(ctx context.Context, b soql.Builder, field string) (interface{}, bool, error) {
	rec, err := r.runAggregate(ctx, b.Aggregate(soql.Min, field))
	if err != nil {
		return nil, false, err
	}
	v, ok := salesforce.MinValue(rec)
	return v, ok, nil
}

// Max runs MAX(field) over the builder's conditions. The boolean is
// false when no rows matched.
func (r *SObjectRepository) Max(ctx context.Context, b soql.Builder, field string) (interface{}, bool, error) {
	rec, err := r.runAggregate(ctx, b.Aggregate(soql.Max, field))
	if err != nil {
		return nil, false, err
	}
	v, ok := salesforce.MaxValue(rec)
	return v, ok, nil
}

// Aggregate results bypass the cache: their shapes differ from record
// lists and their values go stale on any mutation.
func (r *SObjectRepository) runAggregate(ctx context.Context, b soql.Builder) (salesforce.Record, error) {
	q, err := b.Build()
	if err != nil {
		return nil, err
	}
	resp, err := r.client.Query(ctx, q.SOQL)
	if err != nil {
		return nil, err
	}
	return salesforce.NormalizeAggregate(string(q.Aggregate.Func), resp), nil
}

// Create inserts one record and invalidates cached queries for this
// object. A failed insert returns an unsuccessful result, with the
// error attached only under ThrowOnError.
func (r *SObjectRepository) Create(ctx context.Context, record salesforce.Record) (*salesforce.SaveResult, error) {
	result, err := r.client.Create(ctx, r.object, record)
	if err != nil {
		return &salesforce.SaveResult{Success: false}, r.mutationError("create "+r.object, err)
	}
	if err := r.invalidate(ctx, func(ctx context.Context) error {
		return r.inval.AfterCreate(ctx, r.object)
	}); err != nil {
		return result, err
	}
	return result, nil
}

// Update patches one record by Id and invalidates the cache entries
// that contained it. A failed patch leaves the record unchanged and
// returns an error only under ThrowOnError.
func (r *SObjectRepository) Update(ctx context.Context, id string, record salesforce.Record) error {
	if err := r.client.Update(ctx, r.object, id, record); err != nil {
		return r.mutationError(fmt.Sprintf("update %s/%s", r.object, id), err)
	}
	return r.invalidate(ctx, func(ctx context.Context) error {
		return r.inval.AfterUpdate(ctx, r.object, id)
	})
}

// Delete removes one record by Id and invalidates the cache entries
// that contained it. A failed delete returns an error only under
// ThrowOnError.
func (r *SObjectRepository) Delete(ctx context.Context, id string) error {
	if err := r.client.Delete(ctx, r.object, id); err != nil {
		return r.mutationError(fmt.Sprintf("delete %s/%s", r.object, id), err)
	}
	return r.invalidate(ctx, func(ctx context.Context) error {
		return r.inval.AfterDelete(ctx, r.object, id)
	})
}

// mutationError applies the ThrowOnError policy to a failed remote
// mutation. With the toggle off the failure is logged and the caller
// sees the safe default; no invalidation runs because nothing changed.
func (r *SObjectRepository) mutationError(op string, err error) error {
	if r.config.ThrowOnError {
		return fmt.Errorf("%s failed: %w", op, err)
	}
	r.log.Error("mutation failed", zap.String("op", op), zap.Error(err))
	return nil
}

// invalidate runs fn and applies the ThrowOnError policy to its
// result. The mutation that preceded it has already succeeded, so a
// failure here only means stale cache entries may linger until TTL.
func (r *SObjectRepository) invalidate(ctx context.Context, fn func(context.Context) error) error {
	if r.inval == nil {
		return nil
	}
	if err := fn(ctx); err != nil {
		if r.config.ThrowOnError {
			return fmt.Errorf("cache invalidation failed: %w", err)
		}
		r.log.Warn("cache invalidation failed, stale entries expire by TTL", zap.Error(err))
	}
	return nil
}
