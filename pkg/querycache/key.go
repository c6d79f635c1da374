package querycache

import (
	"fmt"
	"strings"

	"github.com/cespare/xxhash/v2"
)

const (
	keyPrefix       = "query:"
	objectTagPrefix = "object:"

	// GlobalTag marks every cached query result so FlushAll can evict
	// the cache without scanning the keyspace.
	GlobalTag = "queries"
)

// Normalize case-folds a SOQL statement and collapses runs of
// whitespace, so formatting differences map to the same cache entry.
func Normalize(soql string) string {
	return strings.ToLower(strings.Join(strings.Fields(soql), " "))
}

// Key derives the cache key for a SOQL statement. Two statements that
// differ only in casing or whitespace produce the same key.
func Key(soql string) string {
	return fmt.Sprintf("%s%016x", keyPrefix, xxhash.Sum64String(Normalize(soql)))
}

// ObjectTag returns the tag under which results for an object type are
// grouped, e.g. "object:Account".
func ObjectTag(object string) string {
	return objectTagPrefix + object
}

// ObjectName extracts the primary object from a SOQL statement,
// preserving its casing. FROM clauses inside parenthesized sub-selects
// are skipped; only the outer query's object is returned. Returns ""
// when no FROM clause is found.
func ObjectName(soql string) string {
	fields := strings.Fields(soql)
	depth := 0
	for i, tok := range fields {
		depth += strings.Count(tok, "(")
		if depth == 0 && strings.EqualFold(tok, "from") && i+1 < len(fields) {
			return strings.TrimRight(fields[i+1], "),")
		}
		depth -= strings.Count(tok, ")")
	}
	return ""
}

var aggregateMarkers = []string{"COUNT(", "SUM(", "AVG(", "MIN(", "MAX("}

// IsAggregate reports whether a SOQL statement selects an aggregate
// function. Aggregate results are shaped differently from record lists
// and are never cached.
func IsAggregate(soql string) bool {
	upper := strings.ToUpper(soql)
	for _, marker := range aggregateMarkers {
		if strings.Contains(upper, marker) {
			return true
		}
	}
	return false
}
