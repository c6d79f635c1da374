package repository

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/ammar0144/soql4go/pkg/salesforce"
)

// BulkInsert creates records in chunks of at most the configured chunk
// size, one composite call per chunk. allOrNone applies per chunk, not
// across the whole batch: a later chunk failing does not roll back
// earlier chunks. The returned slice holds only the results of records
// that were actually created, in input order.
//
// A transport-level chunk failure stops the batch when allOrNone or
// ThrowOnError is set, returning the results accumulated so far.
// Otherwise the failed chunk is logged and skipped and the remaining
// chunks still run.
func (r *SObjectRepository) BulkInsert(ctx context.Context, records []salesforce.Record, allOrNone bool) ([]salesforce.SaveResult, error) {
	if len(records) == 0 {
		return nil, nil
	}

	succeeded := make([]salesforce.SaveResult, 0, len(records))
	for start := 0; start < len(records); start += r.config.BulkChunkSize {
		end := start + r.config.BulkChunkSize
		if end > len(records) {
			end = len(records)
		}

		results, err := r.client.CreateCollection(ctx, r.object, records[start:end], allOrNone)
		if err != nil {
			if allOrNone || r.config.ThrowOnError {
				return succeeded, fmt.Errorf("bulk insert chunk %d-%d failed: %w", start, end-1, err)
			}
			r.log.Warn("bulk insert chunk failed, continuing with remaining chunks",
				zap.Int("chunk_start", start),
				zap.Int("chunk_end", end-1),
				zap.Error(err))
			continue
		}
		for _, res := range results {
			if res.Success {
				succeeded = append(succeeded, res)
			} else {
				r.log.Warn("bulk insert record rejected",
					zap.Int("chunk_start", start),
					zap.Any("errors", res.Errors))
			}
		}
	}

	if len(succeeded) > 0 {
		if err := r.invalidate(ctx, func(ctx context.Context) error {
			return r.inval.AfterCreate(ctx, r.object)
		}); err != nil {
			return succeeded, err
		}
	}
	return succeeded, nil
}

// BulkDelete removes records by Id in chunks of at most the configured
// chunk size and returns how many were actually deleted. allOrNone
// applies per chunk. A transport-level chunk failure stops the batch
// when allOrNone or ThrowOnError is set, returning the count so far;
// otherwise the failed chunk is logged and skipped.
func (r *SObjectRepository) BulkDelete(ctx context.Context, ids []string, allOrNone bool) (int, error) {
	if len(ids) == 0 {
		return 0, nil
	}

	deleted := make([]string, 0, len(ids))
	for start := 0; start < len(ids); start += r.config.BulkChunkSize {
		end := start + r.config.BulkChunkSize
		if end > len(ids) {
			end = len(ids)
		}

		results, err := r.client.DeleteCollection(ctx, ids[start:end], allOrNone)
		if err != nil {
			if allOrNone || r.config.ThrowOnError {
				return len(deleted), fmt.Errorf("bulk delete chunk %d-%d failed: %w", start, end-1, err)
			}
			r.log.Warn("bulk delete chunk failed, continuing with remaining chunks",
				zap.Int("chunk_start", start),
				zap.Int("chunk_end", end-1),
				zap.Error(err))
			continue
		}
		if len(results) == 0 {
			// No per-record detail means the whole chunk went through.
			deleted = append(deleted, ids[start:end]...)
			continue
		}
		for _, res := range results {
			if res.Success {
				deleted = append(deleted, res.ID)
			} else {
				r.log.Warn("bulk delete record rejected",
					zap.String("id", res.ID),
					zap.Any("errors", res.Errors))
			}
		}
	}

	if len(deleted) > 0 {
		if err := r.invalidate(ctx, func(ctx context.Context) error {
			return r.inval.AfterBulkDelete(ctx, r.object, deleted)
		}); err != nil {
			return len(deleted), err
		}
	}
	return len(deleted), nil
}
