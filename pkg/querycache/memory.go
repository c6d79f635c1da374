package querycache

import (
	"context"
	"sync"
	"time"

	"github.com/ammar0144/soql4go/pkg/redis"
)

type memoryEntry struct {
	data      []byte
	expiresAt time.Time
}

// MemoryBackend is an in-process Backend with the same tag and
// record-dependency semantics as the Redis manager. It suits tests and
// single-instance deployments that don't want a Redis dependency.
type MemoryBackend struct {
	mu      sync.RWMutex
	entries map[string]memoryEntry
	tags    map[string]map[string]struct{}
	deps    map[string]map[string]struct{}
}

// NewMemoryBackend creates an empty in-memory backend.
func NewMemoryBackend() *MemoryBackend {
	return &MemoryBackend{
		entries: make(map[string]memoryEntry),
		tags:    make(map[string]map[string]struct{}),
		deps:    make(map[string]map[string]struct{}),
	}
}

func depKey(object, recordID string) string {
	return object + "\x00" + recordID
}

// Get returns the value stored under key, or a not-found error when
// the key is absent or expired.
func (b *MemoryBackend) Get(_ context.Context, key string) ([]byte, error) {
	b.mu.RLock()
	entry, ok := b.entries[key]
	b.mu.RUnlock()

	if !ok {
		return nil, redis.ErrKeyNotFound
	}
	if time.Now().After(entry.expiresAt) {
		b.mu.Lock()
		delete(b.entries, key)
		b.mu.Unlock()
		return nil, redis.ErrKeyNotFound
	}
	return entry.data, nil
}

// SetWithTags stores a value and registers it under each tag.
func (b *MemoryBackend) SetWithTags(_ context.Context, key string, value []byte, ttl time.Duration, tags []string) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.entries[key] = memoryEntry{data: value, expiresAt: time.Now().Add(ttl)}
	for _, tag := range tags {
		set, ok := b.tags[tag]
		if !ok {
			set = make(map[string]struct{})
			b.tags[tag] = set
		}
		set[key] = struct{}{}
	}
	return nil
}

// AddRecordDependencies links the cache key to each (object, recordID)
// pair.
func (b *MemoryBackend) AddRecordDependencies(_ context.Context, object string, recordIDs []string, key string, _ time.Duration) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	for _, id := range recordIDs {
		dk := depKey(object, id)
		set, ok := b.deps[dk]
		if !ok {
			set = make(map[string]struct{})
			b.deps[dk] = set
		}
		set[key] = struct{}{}
	}
	return nil
}

// Delete removes a single entry. Deleting an absent key is not an
// error.
func (b *MemoryBackend) Delete(_ context.Context, key string) error {
	b.mu.Lock()
	delete(b.entries, key)
	b.mu.Unlock()
	return nil
}

// FlushTag removes every entry registered under the tag along with the
// tag set itself, returning the number of entries removed.
func (b *MemoryBackend) FlushTag(_ context.Context, tag string) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	set, ok := b.tags[tag]
	if !ok {
		return 0, nil
	}
	count := 0
	for key := range set {
		if _, present := b.entries[key]; present {
			delete(b.entries, key)
			count++
		}
	}
	delete(b.tags, tag)
	return count, nil
}

// InvalidateRecordDependencies removes every entry that depended on
// any of the given records, plus the dependency sets themselves.
func (b *MemoryBackend) InvalidateRecordDependencies(_ context.Context, object string, recordIDs []string) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	affected := make(map[string]struct{})
	for _, id := range recordIDs {
		dk := depKey(object, id)
		for key := range b.deps[dk] {
			affected[key] = struct{}{}
		}
		delete(b.deps, dk)
	}

	count := 0
	for key := range affected {
		if _, present := b.entries[key]; present {
			delete(b.entries, key)
			count++
		}
	}
	return count, nil
}

// Len returns the number of live entries.
func (b *MemoryBackend) Len() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.entries)
}
