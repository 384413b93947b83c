// Package store implements the shared key table: a mapping from Bulk
// keys to Bulk values, set/get/delete/count/iterate with documented
// ownership-transfer rules (§3 of SPEC_FULL.md).
package store

import (
	"sync"

	"github.com/stlalpha/bluebox/internal/bulk"
)

// entry is an owning (key, value) pair. The store holds exactly one
// reference to each.
type entry struct {
	key   *bulk.Bulk
	value *bulk.Bulk
}

// Store is the process-local key/value table. Command handlers run on
// arbitrary goroutines; Store serializes every operation behind a single
// RWMutex, which under Go's real (non-cooperative) scheduler plays the
// role §5 assigns to "wrap the store in an exclusive lock taken for the
// duration of a single command" — grounded on internal/session's
// SessionRegistry, the teacher's own mutex-guarded shared map.
type Store struct {
	mu      sync.RWMutex
	entries map[string]entry
}

// New creates an empty store.
func New() *Store {
	return &Store{entries: make(map[string]entry)}
}

// Set inserts or replaces the entry for key, retaining both key and
// value on the caller's behalf. It returns the previous entry's key and
// value (nil, nil if there was none) so the caller can release them —
// the store never releases on the caller's behalf.
func (s *Store) Set(key, value *bulk.Bulk) (prevKey, prevValue *bulk.Bulk) {
	s.mu.Lock()
	defer s.mu.Unlock()

	k := string(key.Data())
	if prev, ok := s.entries[k]; ok {
		prevKey, prevValue = prev.key, prev.value
	}
	key.Retain()
	value.Retain()
	s.entries[k] = entry{key: key, value: value}
	return prevKey, prevValue
}

// Get returns the value for key, or nil if absent, retained on the
// caller's behalf. This server runs one goroutine per connection, each
// racing every other against the store and the shared Bulk pool
// (§4.1/§9: correctness must not depend on the pool, with or without
// it enabled), so a borrowed, unretained Bulk is not safe here: another
// goroutine's concurrent DEL or SET can drop the last reference and
// return the backing buffer to the pool while this goroutine is still
// writing it out. The caller must Release the returned Bulk once done.
func (s *Store) Get(key *bulk.Bulk) *bulk.Bulk {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if e, ok := s.entries[string(key.Data())]; ok {
		e.value.Retain()
		return e.value
	}
	return nil
}

// Delete removes key if present, returning its (key, value) pair so the
// caller can release them. Returns (nil, nil, false) if absent.
func (s *Store) Delete(key *bulk.Bulk) (prevKey, prevValue *bulk.Bulk, removed bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	k := string(key.Data())
	if e, ok := s.entries[k]; ok {
		delete(s.entries, k)
		return e.key, e.value, true
	}
	return nil, nil, false
}

// Count returns the number of distinct keys currently present.
func (s *Store) Count() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.entries)
}

// Keys returns a snapshot of every currently-present key, each retained
// on the caller's behalf for the same reason Get retains its value: a
// concurrent DEL/SET on another connection's goroutine can drop a key's
// last reference the instant this lock is released. The spec's KEYS
// handler snapshots the count first and then iterates (§4.5); this
// single RLock-held copy gives the same consistent-point-in-time view
// without the caller needing to coordinate two separate calls. The
// caller must Release every returned Bulk once done.
func (s *Store) Keys() []*bulk.Bulk {
	s.mu.RLock()
	defer s.mu.RUnlock()

	keys := make([]*bulk.Bulk, 0, len(s.entries))
	for _, e := range s.entries {
		e.key.Retain()
		keys = append(keys, e.key)
	}
	return keys
}
