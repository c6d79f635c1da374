package salesforce

import (
	"context"
	"fmt"
)

// AggregateField is the uniform field name both aggregate result shapes are
// rewritten into. Salesforce reports COUNT() through the page-level totalSize
// while SUM/AVG/MIN/MAX arrive inside a one-row result under the dialect's
// first-expression alias; callers should never have to care which.
const AggregateField = "aggregate"

// exprAlias is the alias Salesforce assigns to the first unnamed aggregate
// expression in a result row.
const exprAlias = "expr0"

// MaxQueryOffset is the ceiling Salesforce enforces on the SOQL offset
// clause. Pagination past it is impossible, so reported totals are capped.
const MaxQueryOffset = 2000

// Collect follows continuation locators until the result set is complete and
// returns the assembled records. A transport error mid-continuation
// propagates; the loop never retries.
func Collect(ctx context.Context, client Client, first *QueryResponse) ([]Record, error) {
	if first == nil {
		return nil, nil
	}
	records := make([]Record, 0, first.TotalSize)
	records = append(records, first.Records...)

	page := first
	for !page.Done && page.NextRecordsURL != "" {
		next, err := client.QueryMore(ctx, page.NextRecordsURL)
		if err != nil {
			return nil, fmt.Errorf("pagination continuation: %w", err)
		}
		records = append(records, next.Records...)
		page = next
	}
	return records, nil
}

// Cursor exposes a result set page by page without materializing it all.
// Not safe for concurrent use.
type Cursor struct {
	client Client
	page   *QueryResponse
	idx    int
}

// NewCursor wraps the first response page in a lazy iterator
func NewCursor(client Client, first *QueryResponse) *Cursor {
	return &Cursor{client: client, page: first}
}

// Next returns the next record. The boolean is false once the result set is
// exhausted; a transport error during continuation ends iteration.
func (c *Cursor) Next(ctx context.Context) (Record, bool, error) {
	for c.page != nil {
		if c.idx < len(c.page.Records) {
			rec := c.page.Records[c.idx]
			c.idx++
			return rec, true, nil
		}
		if c.page.Done || c.page.NextRecordsURL == "" {
			c.page = nil
			break
		}
		next, err := c.client.QueryMore(ctx, c.page.NextRecordsURL)
		if err != nil {
			c.page = nil
			return nil, false, fmt.Errorf("pagination continuation: %w", err)
		}
		c.page = next
		c.idx = 0
	}
	return nil, false, nil
}

// NormalizeAggregate rewrites the two provider aggregate shapes into one
// record keyed by AggregateField. For COUNT the value is always a number
// (0 when nothing matched); for the other functions a missing or null source
// stays nil so callers can tell "zero" from "no data".
func NormalizeAggregate(fn string, resp *QueryResponse) Record {
	if isCountFunc(fn) {
		total := 0
		if resp != nil {
			total = resp.TotalSize
		}
		return Record{AggregateField: total}
	}

	if resp == nil || len(resp.Records) == 0 {
		return Record{AggregateField: nil}
	}
	return Record{AggregateField: resp.Records[0][exprAlias]}
}

func isCountFunc(fn string) bool {
	return fn == "COUNT" || fn == "count"
}

// CountValue coerces the uniform aggregate value to an integer; null and
// missing become 0.
func CountValue(rec Record) int {
	switch v := rec[AggregateField].(type) {
	case int:
		return v
	case int64:
		return int(v)
	case float64:
		return int(v)
	default:
		return 0
	}
}

// SumValue coerces the uniform aggregate value to a float; null and missing
// become 0.
func SumValue(rec Record) float64 {
	f, ok := numericValue(rec[AggregateField])
	if !ok {
		return 0
	}
	return f
}

// AvgValue returns the uniform aggregate value, with ok=false when the
// underlying data was absent. No coercion to zero.
func AvgValue(rec Record) (float64, bool) {
	return numericValue(rec[AggregateField])
}

// MinValue returns the uniform aggregate value, with ok=false when absent.
// MIN/MAX may target non-numeric fields (dates), so the value stays untyped.
func MinValue(rec Record) (interface{}, bool) {
	v := rec[AggregateField]
	return v, v != nil
}

// MaxValue returns the uniform aggregate value, with ok=false when absent
func MaxValue(rec Record) (interface{}, bool) {
	return MinValue(rec)
}

func numericValue(v interface{}) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case int:
		return float64(n), true
	case int64:
		return float64(n), true
	default:
		return 0, false
	}
}

// CapTotal applies the provider offset ceiling to a reported total
func CapTotal(total int) int {
	if total > MaxQueryOffset {
		return MaxQueryOffset
	}
	return total
}

// LastPage computes the final reachable page number from a capped total
func LastPage(total, perPage int) int {
	if perPage <= 0 {
		return 1
	}
	capped := CapTotal(total)
	last := (capped + perPage - 1) / perPage
	if last < 1 {
		last = 1
	}
	return last
}
