// Package connio implements the per-connection buffered, full-duplex byte
// stream the protocol decoder and encoder run on top of.
package connio

import (
	"bufio"
	"net"
)

// readBufSize and writeBufSize size the per-connection buffers. Frames are
// typically small, but bulk payloads can run to 500MiB; bufio's buffers
// never grow, and a large io.ReadFull (used by ReadFull and ReadExact)
// reads straight into the destination once the buffer is empty, so memory
// stays bounded to the buffer size plus one payload.
const (
	readBufSize  = 4096
	writeBufSize = 4096
)

// Stream is a buffered, non-blocking-cooperating wrapper around a
// net.Conn. Every method may block the calling goroutine waiting on the
// underlying socket; under the Go runtime that blocking is the
// suspension point the spec's cooperative-scheduler contract describes
// (§5 of SPEC_FULL.md) — the goroutine scheduler plays the role the
// spec's "scheduler (external)" component would.
type Stream struct {
	conn net.Conn
	r    *bufio.Reader
	w    *bufio.Writer
}

// New wraps conn in a buffered Stream.
func New(conn net.Conn) *Stream {
	return &Stream{
		conn: conn,
		r:    bufio.NewReaderSize(conn, readBufSize),
		w:    bufio.NewWriterSize(conn, writeBufSize),
	}
}

// ReadByte reads one byte, or returns an error (including io.EOF) on
// failure.
func (s *Stream) ReadByte() (byte, error) {
	return s.r.ReadByte()
}

// UnreadByte pushes back exactly one byte. Valid only immediately after a
// successful ReadByte, per bufio.Reader's own contract — which is exactly
// the one-byte pushback §4.2 requires.
func (s *Stream) UnreadByte() error {
	return s.r.UnreadByte()
}

// ReadLine reads up to and including the next '\n', stripping a single
// trailing '\r' if present, with a hard cap on line length. It returns
// ErrLineTooLong if the cap is exceeded before a newline is seen.
func (s *Stream) ReadLine(maxLen int) ([]byte, error) {
	var line []byte
	for {
		chunk, err := s.r.ReadSlice('\n')
		line = append(line, chunk...)
		if err == bufio.ErrBufferFull {
			if len(line) > maxLen {
				return nil, ErrLineTooLong
			}
			continue
		}
		if err != nil {
			return nil, err
		}
		break
	}
	if len(line) > maxLen {
		return nil, ErrLineTooLong
	}
	line = line[:len(line)-1] // drop '\n'
	if n := len(line); n > 0 && line[n-1] == '\r' {
		line = line[:n-1]
	}
	return line, nil
}

// ReadExact reads exactly n bytes into a freshly allocated slice.
func (s *Stream) ReadExact(n int) ([]byte, error) {
	buf := make([]byte, n)
	if n == 0 {
		return buf, nil
	}
	if err := s.ReadFull(buf); err != nil {
		return nil, err
	}
	return buf, nil
}

// ReadFull reads exactly len(buf) bytes into buf, letting the caller
// supply (and potentially pool) the destination.
func (s *Stream) ReadFull(buf []byte) error {
	if len(buf) == 0 {
		return nil
	}
	_, err := readFull(s.r, buf)
	return err
}

// Write queues bytes for the next Flush. bufio absorbs writes up to its
// buffer size; once the buffer fills, Write sends it to the socket and
// may block there. Flushing what remains is the driver's explicit
// responsibility per §4.2.
func (s *Stream) Write(p []byte) (int, error) {
	return s.w.Write(p)
}

// WriteByte queues a single byte.
func (s *Stream) WriteByte(b byte) error {
	return s.w.WriteByte(b)
}

// Flush sends any buffered writes to the socket.
func (s *Stream) Flush() error {
	return s.w.Flush()
}

// Buffered reports how many bytes are already available in the read
// buffer without blocking. The driver uses zero here as the "socket is
// momentarily drained" signal for pipeline flush timing (§4.6 step 5).
func (s *Stream) Buffered() int {
	return s.r.Buffered()
}

// Close closes the underlying connection.
func (s *Stream) Close() error {
	return s.conn.Close()
}

// RemoteAddr returns the peer address, used for log correlation.
func (s *Stream) RemoteAddr() string {
	if s.conn.RemoteAddr() == nil {
		return ""
	}
	return s.conn.RemoteAddr().String()
}

// Conn exposes the underlying net.Conn for components that need the raw
// socket (e.g. internal/connstats' getsockopt sampling).
func (s *Stream) Conn() net.Conn {
	return s.conn
}
