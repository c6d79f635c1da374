package querycache

import (
	"context"
	"fmt"

	"go.uber.org/zap"
)

// ChangeType classifies a data mutation.
type ChangeType string

const (
	ChangeCreate   ChangeType = "CREATE"
	ChangeUpdate   ChangeType = "UPDATE"
	ChangeDelete   ChangeType = "DELETE"
	ChangeUndelete ChangeType = "UNDELETE"
)

// Valid reports whether the change type is one of the known values.
func (t ChangeType) Valid() bool {
	switch t {
	case ChangeCreate, ChangeUpdate, ChangeDelete, ChangeUndelete:
		return true
	}
	return false
}

// ChangeEvent describes a mutation to records of one object type, as
// reported by a change data capture feed or by the local mutation path.
type ChangeEvent struct {
	Object     string
	RecordIDs  []string
	ChangeType ChangeType
}

// InvalidationMode reports which eviction path handled a change event.
type InvalidationMode string

const (
	ModeRecordLevel InvalidationMode = "record-level"
	ModeObjectLevel InvalidationMode = "object-level"
)

// Invalidator evicts cache entries in response to data mutations. It
// is the single place where the configured strategy is applied.
type Invalidator struct {
	cache *Service
	log   *zap.Logger
}

// NewInvalidator creates an invalidator over the given cache service.
func NewInvalidator(cache *Service, log *zap.Logger) *Invalidator {
	if log == nil {
		log = zap.NewNop()
	}
	return &Invalidator{cache: cache, log: log}
}

// AfterCreate evicts entries affected by a newly created record. A new
// record can appear in any query over its object, so creation always
// flushes at the object level regardless of strategy.
func (iv *Invalidator) AfterCreate(ctx context.Context, object string) error {
	if !iv.enabled() {
		return nil
	}
	n, err := iv.cache.FlushObject(ctx, object)
	if err != nil {
		return err
	}
	iv.log.Debug("invalidated cache after create",
		zap.String("object", object),
		zap.Int("entries", n))
	return nil
}

// AfterUpdate evicts entries affected by an updated record. With a
// known record id and the record strategy, only entries that contained
// the record are evicted.
func (iv *Invalidator) AfterUpdate(ctx context.Context, object, recordID string) error {
	return iv.afterMutation(ctx, "update", object, idSlice(recordID))
}

// AfterDelete evicts entries affected by a deleted record.
func (iv *Invalidator) AfterDelete(ctx context.Context, object, recordID string) error {
	return iv.afterMutation(ctx, "delete", object, idSlice(recordID))
}

// AfterBulkDelete evicts entries affected by a batch of deleted
// records in one pass over the dependency index.
func (iv *Invalidator) AfterBulkDelete(ctx context.Context, object string, recordIDs []string) error {
	return iv.afterMutation(ctx, "bulk delete", object, recordIDs)
}

func idSlice(recordID string) []string {
	if recordID == "" {
		return nil
	}
	return []string{recordID}
}

func (iv *Invalidator) afterMutation(ctx context.Context, op, object string, recordIDs []string) error {
	if !iv.enabled() {
		return nil
	}

	var (
		n   int
		err error
	)
	if len(recordIDs) == 0 {
		n, err = iv.cache.FlushObject(ctx, object)
	} else {
		n, err = iv.cache.InvalidateByRecordIDs(ctx, object, recordIDs)
	}
	if err != nil {
		return err
	}
	iv.log.Debug("invalidated cache after "+op,
		zap.String("object", object),
		zap.Int("entries", n))
	return nil
}

// HandleChangeEvent evicts entries affected by an external change
// event and reports which eviction path was taken. Record-level
// eviction requires record ids in the event and the record strategy;
// everything else falls back to an object-level flush. Creates and
// undeletes always flush object-wide, since new records can match
// queries whose cached results never contained them. The returned
// mode reflects the path actually taken and is what webhook callers
// see as invalidation_type, so CREATE and UNDELETE events report
// "object-level" even when the event carried record ids.
func (iv *Invalidator) HandleChangeEvent(ctx context.Context, event ChangeEvent) (InvalidationMode, error) {
	if event.Object == "" {
		return "", fmt.Errorf("change event is missing the object name")
	}
	if !event.ChangeType.Valid() {
		return "", fmt.Errorf("unknown change type %q", event.ChangeType)
	}

	recordLevel := len(event.RecordIDs) > 0 &&
		iv.cache.Config().Strategy == StrategyRecord &&
		(event.ChangeType == ChangeUpdate || event.ChangeType == ChangeDelete)

	if recordLevel {
		n, err := iv.cache.InvalidateByRecordIDs(ctx, event.Object, event.RecordIDs)
		if err != nil {
			return "", err
		}
		iv.log.Info("processed change event",
			zap.String("object", event.Object),
			zap.String("change_type", string(event.ChangeType)),
			zap.Int("records", len(event.RecordIDs)),
			zap.Int("entries", n))
		return ModeRecordLevel, nil
	}

	n, err := iv.cache.FlushObject(ctx, event.Object)
	if err != nil {
		return "", err
	}
	iv.log.Info("processed change event",
		zap.String("object", event.Object),
		zap.String("change_type", string(event.ChangeType)),
		zap.Int("entries", n))
	return ModeObjectLevel, nil
}

func (iv *Invalidator) enabled() bool {
	cfg := iv.cache.Config()
	return cfg.Enabled && cfg.AutoInvalidate
}
