// Package conn implements the per-connection driver: decode, dispatch,
// encode, pipelining-aware flush, and teardown (§4.6).
package conn

import (
	"errors"
	"log"
	"sync"

	"github.com/google/uuid"

	"github.com/stlalpha/bluebox/internal/bulk"
	"github.com/stlalpha/bluebox/internal/command"
	"github.com/stlalpha/bluebox/internal/connio"
	"github.com/stlalpha/bluebox/internal/logging"
	"github.com/stlalpha/bluebox/internal/protocol"
	"github.com/stlalpha/bluebox/internal/store"
)

// flushThreshold is the pipelined-command count at which the driver
// force-flushes even if the read buffer hasn't drained (§4.6 step 5).
const flushThreshold = 1000

// argsPool recycles the small arg-vector slices the driver copies each
// decoded frame's args into,
// mirroring the C reference's USEARGSPOOL arg-vector pool (§2c of
// SPEC_FULL.md). Pooling is an optional micro-optimisation: correctness
// does not depend on it.
var argsPool = sync.Pool{
	New: func() any {
		s := make([]*bulk.Bulk, 0, 8)
		return &s
	},
}

// Conn is one accepted connection's state: its buffered stream and a
// correlation ID for log lines, mirroring the teacher's per-session
// nodeID but using the teacher's own github.com/google/uuid dependency
// instead of a hand-rolled counter.
type Conn struct {
	ID        uuid.UUID
	stream    *connio.Stream
	pipelined int
}

// New wraps an accepted stream in connection state.
func New(stream *connio.Stream) *Conn {
	return &Conn{ID: uuid.New(), stream: stream}
}

// Serve runs the decode→dispatch→encode loop until the stream closes,
// a protocol error closes it, or a handler signals close (e.g. QUIT).
// It always closes the stream before returning, per §4.6 step "On exit
// (break), close the stream."
func (c *Conn) Serve(commands *command.Table, st *store.Store, pool *bulk.Pool) {
	remote := c.stream.RemoteAddr()
	log.Printf("INFO: conn %s from %s: accepted", c.ID, remote)
	defer func() {
		c.stream.Close()
		log.Printf("INFO: conn %s from %s: closed", c.ID, remote)
	}()

	for {
		argsPtr := argsPool.Get().(*[]*bulk.Bulk)
		*argsPtr = (*argsPtr)[:0]

		args, err := protocol.ReadCommand(c.stream, pool)
		if err != nil {
			var perr *protocol.ProtocolError
			if errors.As(err, &perr) {
				// Client protocol error: write the exact framed error,
				// then close (§7 taxonomy #2).
				log.Printf("WARN: conn %s from %s: %s", c.ID, remote, perr.Text)
				protocol.WriteError(c.stream, "ERR "+perr.Text)
				c.stream.Flush()
			} else {
				// Any other error (I/O error, EOF) closes silently — no
				// WARN/ERROR line (§7 #4), only the INFO close line;
				// debug-gated detail only.
				logging.Debug("conn %s from %s: closed on I/O error: %v", c.ID, remote, err)
			}
			argsPool.Put(argsPtr)
			return
		}

		if len(args) == 0 {
			// No-op frame (§4.3.2b / §4.6 step 2): continue without
			// dispatching or touching the pipeline counter.
			argsPool.Put(argsPtr)
			continue
		}

		*argsPtr = append(*argsPtr, args...)
		cont := commands.Dispatch(c.stream, st, *argsPtr)

		c.releaseArgs(*argsPtr)
		argsPool.Put(argsPtr)

		if !cont {
			c.stream.Flush()
			return
		}

		c.pipelined++
		if c.pipelined >= flushThreshold || c.stream.Buffered() == 0 {
			if err := c.stream.Flush(); err != nil {
				log.Printf("ERROR: conn %s from %s: flush: %v", c.ID, remote, err)
				return
			}
			c.pipelined = 0
		}
	}
}

func (c *Conn) releaseArgs(args []*bulk.Bulk) {
	for _, a := range args {
		a.Release()
	}
}
