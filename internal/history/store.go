// Package history implements the history store of spec.md §4.9: a bounded
// mapping from history key to a FIFO queue of (timestamp, value) pairs, with
// both per-key queue length and total key count bounded by configuration,
// plus lazy per-key max-age pruning.
//
// The two-phase eviction strategy (clean expired entries first, then evict
// the oldest key by insertion order if still over capacity) is directly
// grounded on the teacher's generic internal/cache.Cache[K,V]: same
// sync.RWMutex + insertion-order slice shape, adapted here to store a
// bounded FIFO queue per key instead of a single TTL'd value, and keyed on
// the object-name/attribute/path/target 4-tuple instead of an arbitrary
// comparable key.
package history

import (
	"sync"
	"time"

	"github.com/beanbridge/bridge/internal/objname"
)

// Key is the exact-match history key of spec.md §3. Patterns are never
// history keys — the caller resolves each concrete match before computing a
// Key (spec.md §4.9).
type Key struct {
	Name   string // canonical object name
	Member string // attribute or operation name, "" if not applicable
	Path   string // joined inner path, "" if none
	Target string // target agent URL, "" if local
}

// NewKey builds a Key from a concrete (non-pattern) object name.
func NewKey(name objname.Name, member, path, target string) Key {
	return Key{Name: name.Canonical(), Member: member, Path: path, Target: target}
}

// Entry is one prior value recorded for a key.
type Entry struct {
	Timestamp time.Time
	Value     any
}

// DefaultMaxEntriesPerKey and DefaultMaxAge mirror sane Jolokia-style
// defaults for a per-key ring.
const (
	DefaultMaxEntriesPerKey = 10
	DefaultMaxKeys          = 500
	DefaultMaxAge           = 30 * time.Minute
)

type queue struct {
	entries []Entry
}

// Store is the process-wide history store singleton.
type Store struct {
	mu            sync.RWMutex
	queues        map[Key]*queue
	order         []Key // insertion order, for LRU-style key eviction
	maxEntriesKey int
	maxKeys       int
	maxAge        time.Duration
}

// New creates a Store with the given limits. A maxEntriesPerKey of 0
// disables history (Snapshot and UpdateAndSnapshot return nil); a negative
// maxEntriesPerKey, and a zero or negative maxKeys or maxAge, fall back to
// the package defaults.
func New(maxEntriesPerKey, maxKeys int, maxAge time.Duration) *Store {
	if maxEntriesPerKey < 0 {
		maxEntriesPerKey = DefaultMaxEntriesPerKey
	}
	if maxKeys <= 0 {
		maxKeys = DefaultMaxKeys
	}
	if maxAge <= 0 {
		maxAge = DefaultMaxAge
	}
	return &Store{
		queues:        make(map[Key]*queue),
		maxEntriesKey: maxEntriesPerKey,
		maxKeys:       maxKeys,
		maxAge:        maxAge,
	}
}

// Snapshot returns a copy of the entries currently recorded for key, with
// expired entries (older than maxAge) pruned lazily first. Returns nil if
// historyMaxEntries is configured as 0 for this store, or the key is
// unknown.
func (s *Store) Snapshot(key Key) []Entry {
	if s.maxEntriesKey == 0 {
		return nil
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	q, ok := s.queues[key]
	if !ok {
		return nil
	}
	s.pruneExpiredLocked(q)
	out := make([]Entry, len(q.entries))
	copy(out, q.entries)
	return out
}

// UpdateAndSnapshot implements spec.md §4.9's updateAndAdd: it returns the
// queue as it stood BEFORE appending value (so the caller's response shows
// prior values, never the one just caused), then appends (now, value),
// evicting from the head if the per-key limit is exceeded and evicting
// whole keys LRU-style if the global key-count limit is exceeded.
func (s *Store) UpdateAndSnapshot(key Key, value any, now time.Time) []Entry {
	if s.maxEntriesKey == 0 {
		return nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	q, existed := s.queues[key]
	if !existed {
		q = &queue{}
		s.ensureCapacityLocked()
		s.queues[key] = q
		s.order = append(s.order, key)
	}
	s.pruneExpiredLocked(q)

	prior := make([]Entry, len(q.entries))
	copy(prior, q.entries)

	q.entries = append(q.entries, Entry{Timestamp: now, Value: value})
	if len(q.entries) > s.maxEntriesKey {
		q.entries = q.entries[len(q.entries)-s.maxEntriesKey:]
	}

	return prior
}

// pruneExpiredLocked drops entries older than maxAge. Caller must hold s.mu.
func (s *Store) pruneExpiredLocked(q *queue) {
	if s.maxAge <= 0 {
		return
	}
	cutoff := time.Now().Add(-s.maxAge)
	i := 0
	for i < len(q.entries) && q.entries[i].Timestamp.Before(cutoff) {
		i++
	}
	if i > 0 {
		q.entries = q.entries[i:]
	}
}

// ensureCapacityLocked evicts the oldest key (by insertion order) if the
// store is at its global key-count limit. Caller must hold s.mu.
func (s *Store) ensureCapacityLocked() {
	for len(s.queues) >= s.maxKeys && len(s.order) > 0 {
		oldest := s.order[0]
		s.order = s.order[1:]
		delete(s.queues, oldest)
	}
}

// Reset clears every key, used by the history management bean's "reset" operation.
func (s *Store) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.queues = make(map[Key]*queue)
	s.order = nil
}

// KeyCount returns the number of distinct keys currently tracked.
func (s *Store) KeyCount() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.queues)
}

// Limits reports the store's current configuration, used by the config
// management bean to display/resize limits.
func (s *Store) Limits() (maxEntriesPerKey, maxKeys int, maxAge time.Duration) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.maxEntriesKey, s.maxKeys, s.maxAge
}

// Resize updates the store's limits in place (management-bean operation).
// Existing queues longer than the new per-key limit are trimmed immediately;
// the key count is only enforced lazily on the next UpdateAndSnapshot.
func (s *Store) Resize(maxEntriesPerKey, maxKeys int, maxAge time.Duration) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if maxEntriesPerKey > 0 {
		s.maxEntriesKey = maxEntriesPerKey
		for _, q := range s.queues {
			if len(q.entries) > s.maxEntriesKey {
				q.entries = q.entries[len(q.entries)-s.maxEntriesKey:]
			}
		}
	}
	if maxKeys > 0 {
		s.maxKeys = maxKeys
	}
	if maxAge > 0 {
		s.maxAge = maxAge
	}
}
