package querycache

import "sync/atomic"

// Stats tracks cache hit and miss counters. Counting is a no-op when
// disabled so the hot path stays free of atomic traffic.
type Stats struct {
	enabled bool
	hits    atomic.Uint64
	misses  atomic.Uint64
}

// StatsSnapshot is a point-in-time view of the counters.
type StatsSnapshot struct {
	Hits    uint64  `json:"hits"`
	Misses  uint64  `json:"misses"`
	Total   uint64  `json:"total"`
	HitRate float64 `json:"hit_rate"`
}

func newStats(enabled bool) *Stats {
	return &Stats{enabled: enabled}
}

func (s *Stats) hit() {
	if s.enabled {
		s.hits.Add(1)
	}
}

func (s *Stats) miss() {
	if s.enabled {
		s.misses.Add(1)
	}
}

// Snapshot returns the current counters. HitRate is a percentage and
// is 0 when no lookups have been counted.
func (s *Stats) Snapshot() StatsSnapshot {
	hits := s.hits.Load()
	misses := s.misses.Load()
	total := hits + misses

	var rate float64
	if total > 0 {
		rate = float64(hits) / float64(total) * 100
	}

	return StatsSnapshot{
		Hits:    hits,
		Misses:  misses,
		Total:   total,
		HitRate: rate,
	}
}

// Reset zeroes the counters.
func (s *Stats) Reset() {
	s.hits.Store(0)
	s.misses.Store(0)
}
