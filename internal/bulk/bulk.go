// Package bulk implements the length-carrying byte string used for every
// payload that crosses the wire protocol or enters the key table.
package bulk

import (
	"bytes"
	"sync"
	"sync/atomic"
)

// MaxLen is the largest payload a Bulk may carry, per the wire protocol's
// bulk-length limit (500 MiB).
const MaxLen = 500 * 1024 * 1024

// poolMinLen mirrors the C reference's USEBULKPOOL threshold: only
// buffers at or under this size are pooled. Unlike the C reference's
// fixed-depth free list (BULKPOOLCAP), sync.Pool has no depth to cap —
// the runtime trims it under memory pressure between GC cycles, which
// is the idiomatic Go substitute for a hand-maintained pool capacity.
const poolMinLen = 32

// Bulk is an immutable-after-fill byte string with a reference count.
//
// Under Go's garbage collector the reference count does not control the
// buffer's lifetime — Retain/Release never free data; the only effect of
// the count reaching zero is that a pool-allocated buffer is handed back
// to its Pool for reuse — and the count is maintained so that the
// call-discipline invariants
// of the wire spec (every Retain paired with a Release, no double-release)
// remain independently assertable in tests, rather than merely assumed.
type Bulk struct {
	data []byte
	rc   int32
	pool *Pool
}

// Pool is a per-goroutine-group small-buffer pool, an optional
// micro-optimisation. Correctness must not (and does not) depend on it:
// a Bulk allocated with a nil pool behaves identically.
type Pool struct {
	sp sync.Pool
}

// NewPool constructs a small-object pool for buffers of poolMinLen bytes
// or fewer.
func NewPool() *Pool {
	return &Pool{
		sp: sync.Pool{
			New: func() any {
				b := make([]byte, poolMinLen)
				return &b
			},
		},
	}
}

// Alloc allocates a buffer of exactly n bytes, content uninitialised,
// reference count one. Pass a nil pool to always allocate fresh.
func Alloc(n int, pool *Pool) *Bulk {
	var data []byte
	if pool != nil && n <= poolMinLen {
		ptr := pool.sp.Get().(*[]byte)
		data = (*ptr)[:n]
	} else {
		data = make([]byte, n)
	}
	return &Bulk{data: data, rc: 1, pool: pool}
}

// FromBytes wraps an existing slice without copying, per the design note
// that a decoded bulk must never be copied when it moves from the arg
// vector into the store. The caller transfers its one implicit reference
// to the returned Bulk.
func FromBytes(b []byte) *Bulk {
	return &Bulk{data: b, rc: 1}
}

// Retain increments the reference count. No-op on a nil handle.
func (b *Bulk) Retain() {
	if b == nil {
		return
	}
	atomic.AddInt32(&b.rc, 1)
}

// Release decrements the reference count, returning the buffer to the pool
// (if any and eligible) once the last owner releases. No-op on nil.
func (b *Bulk) Release() {
	if b == nil {
		return
	}
	if atomic.AddInt32(&b.rc, -1) == 0 {
		if b.pool != nil && len(b.data) <= poolMinLen {
			buf := b.data[:poolMinLen]
			b.pool.sp.Put(&buf)
		}
	}
}

// Data returns the logical bytes. Constant time.
func (b *Bulk) Data() []byte {
	if b == nil {
		return nil
	}
	return b.data
}

// Len returns the logical length. Constant time.
func (b *Bulk) Len() int {
	if b == nil {
		return 0
	}
	return len(b.data)
}

// Compare is lexicographic on bytes with length as an emergent tiebreak,
// matching bytes.Compare's own semantics for unequal-length common
// prefixes.
func Compare(a, b *Bulk) int {
	return bytes.Compare(a.Data(), b.Data())
}

// Equal reports byte-equality, the equality used for hashing into the
// store.
func Equal(a, b *Bulk) bool {
	return bytes.Equal(a.Data(), b.Data())
}
