// Package command implements the command descriptor table and the seven
// handlers of §4.5: PING, SET, GET, DEL, DBSIZE, KEYS, QUIT.
package command

import (
	"sync/atomic"

	"github.com/stlalpha/bluebox/internal/bulk"
	"github.com/stlalpha/bluebox/internal/connio"
	"github.com/stlalpha/bluebox/internal/protocol"
	"github.com/stlalpha/bluebox/internal/store"
)

// wrongArity is the exact framed text for §4.5's arity error.
const wrongArity = "ERR wrong number of arguments"

// unknownCommand is the exact framed text for an unrecognised command
// name.
const unknownCommand = "ERR unknown command"

// HandlerFunc is a command handler: it returns true to keep the
// connection open, false to close it after the already-written reply.
type HandlerFunc func(s *connio.Stream, st *store.Store, args []*bulk.Bulk) bool

// Table is a build-once, read-only command table keyed by lowercase name;
// lookup is case-sensitive, and case-insensitivity comes from the decoder
// lowercasing the command name — grounded on internal/menu's
// name-to-handler lookup shape.
type Table struct {
	handlers  map[string]HandlerFunc
	processed int64
}

// NewTable builds the table of the seven commands this server supports.
// It is built once at startup and never mutated afterwards.
func NewTable() *Table {
	return &Table{handlers: map[string]HandlerFunc{
		"ping":   ping,
		"set":    set,
		"get":    get,
		"del":    del,
		"dbsize": dbsize,
		"keys":   keys,
		"quit":   quit,
	}}
}

// Lookup returns the handler for name (already lowercased by the
// decoder), or nil if unknown.
func (t *Table) Lookup(name string) HandlerFunc {
	return t.handlers[name]
}

// Dispatch looks up args[0] and invokes its handler, writing the
// unknown-command error itself on a miss. It returns the same
// continue/close convention as the handlers.
func (t *Table) Dispatch(s *connio.Stream, st *store.Store, args []*bulk.Bulk) bool {
	atomic.AddInt64(&t.processed, 1)
	name := string(args[0].Data())
	h := t.Lookup(name)
	if h == nil {
		protocol.WriteError(s, unknownCommand)
		return true
	}
	return h(s, st, args)
}

// Processed returns the number of commands dispatched so far (including
// unknown-command misses), exposed as the additive "commands processed"
// metric of §2b of SPEC_FULL.md.
func (t *Table) Processed() int64 {
	return atomic.LoadInt64(&t.processed)
}

func ping(s *connio.Stream, st *store.Store, args []*bulk.Bulk) bool {
	switch len(args) {
	case 1:
		protocol.WriteSimpleString(s, "PONG")
	case 2:
		protocol.WriteBulk(s, args[1])
	default:
		protocol.WriteError(s, wrongArity)
	}
	return true
}

func set(s *connio.Stream, st *store.Store, args []*bulk.Bulk) bool {
	if len(args) != 3 {
		protocol.WriteError(s, wrongArity)
		return true
	}
	prevKey, prevValue := st.Set(args[1], args[2])
	prevKey.Release()
	prevValue.Release()
	protocol.WriteSimpleString(s, "OK")
	return true
}

func get(s *connio.Stream, st *store.Store, args []*bulk.Bulk) bool {
	if len(args) != 2 {
		protocol.WriteError(s, wrongArity)
		return true
	}
	value := st.Get(args[1])
	protocol.WriteBulk(s, value)
	value.Release()
	return true
}

func del(s *connio.Stream, st *store.Store, args []*bulk.Bulk) bool {
	if len(args) < 2 {
		protocol.WriteError(s, wrongArity)
		return true
	}
	removed := 0
	for _, key := range args[1:] {
		prevKey, prevValue, ok := st.Delete(key)
		if ok {
			removed++
			prevKey.Release()
			prevValue.Release()
		}
	}
	protocol.WriteInteger(s, removed)
	return true
}

func dbsize(s *connio.Stream, st *store.Store, args []*bulk.Bulk) bool {
	protocol.WriteInteger(s, st.Count())
	return true
}

// keys does not validate arity — preserved as-is per §9 Open Question
// (b) and DESIGN.md.
func keys(s *connio.Stream, st *store.Store, args []*bulk.Bulk) bool {
	snapshot := st.Keys()
	protocol.WriteArrayHeader(s, len(snapshot))
	for _, key := range snapshot {
		protocol.WriteBulk(s, key)
		key.Release()
	}
	return true
}

// quit writes +OK best-effort, ignoring the write's own error, then
// signals the driver to close — preserved per §9 Open Question (a).
func quit(s *connio.Stream, st *store.Store, args []*bulk.Bulk) bool {
	_ = protocol.WriteSimpleString(s, "OK")
	return false
}
