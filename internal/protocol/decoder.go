// Package protocol implements the wire decoder and encoder: the
// multi-bulk and inline request forms, and the simple-string/error/
// integer/bulk/array reply forms.
package protocol

import (
	"errors"
	"io"
	"strconv"

	"github.com/stlalpha/bluebox/internal/bulk"
	"github.com/stlalpha/bluebox/internal/connio"
)

// maxInlineLine is the hard cap on one inline request line (§4.3.3a).
const maxInlineLine = 1024 * 1024

// maxCountLine bounds the digit run read for a multibulk count or a bulk
// length prefix; real values never need more than a handful of digits, so
// this simply keeps a malformed stream from growing a line without bound.
const maxCountLine = 64

// ProtocolError is a malformed-input condition that must be reported to
// the client with an exact framed error string (§6) before the
// connection is closed. Any other error returned by ReadCommand (I/O
// error, EOF, or an over-long inline line) is closed silently per §4.3's
// "Any I/O error or EOF at any point → silent close".
type ProtocolError struct {
	// Text is the error text without the leading "-ERR " or trailing
	// "\r\n" — the connection driver prefixes "ERR " and WriteError adds
	// the framing.
	Text string
}

func (e *ProtocolError) Error() string { return e.Text }

func protoErr(text string) error { return &ProtocolError{Text: text} }

// ReadCommand decodes one request frame: either a multi-bulk array or an
// inline tokenised line. An empty, nil-error return means a no-op frame
// (§4.3.2b's n<=0, or an empty inline line) — the caller should loop back
// to read the next frame without dispatching anything.
func ReadCommand(s *connio.Stream, pool *bulk.Pool) ([]*bulk.Bulk, error) {
	first, err := s.ReadByte()
	if err != nil {
		return nil, err
	}

	if first == '*' {
		args, err := readMultibulk(s, pool)
		if err != nil {
			return nil, err
		}
		lowercaseFirst(args)
		return args, nil
	}

	if err := s.UnreadByte(); err != nil {
		return nil, err
	}
	args, err := readTelnetArgs(s)
	if err != nil {
		return nil, err
	}
	lowercaseFirst(args)
	return args, nil
}

func lowercaseFirst(args []*bulk.Bulk) {
	if len(args) == 0 {
		return
	}
	data := args[0].Data()
	for i, c := range data {
		if c >= 'A' && c <= 'Z' {
			data[i] = c + ('a' - 'A')
		}
	}
}

func readMultibulk(s *connio.Stream, pool *bulk.Pool) ([]*bulk.Bulk, error) {
	n, err := readDecimalLine(s, "Protocol error: invalid multibulk length")
	if err != nil {
		return nil, err
	}
	if n <= 0 {
		return nil, nil
	}

	args := make([]*bulk.Bulk, 0, n)
	for i := 0; i < n; i++ {
		b, err := readOneBulk(s, pool)
		if err != nil {
			for _, a := range args {
				a.Release()
			}
			return nil, err
		}
		args = append(args, b)
	}
	return args, nil
}

func readOneBulk(s *connio.Stream, pool *bulk.Pool) (*bulk.Bulk, error) {
	prefix, err := s.ReadByte()
	if err != nil {
		return nil, err
	}
	if prefix != '$' {
		return nil, protoErr("Protocol error: expected '$', got '" + printableOrPlaceholder(prefix) + "'")
	}

	m, err := readDecimalLine(s, "Protocol error: invalid bulk length")
	if err != nil {
		return nil, err
	}
	// m > 500MiB is rejected outright (§8 boundary); m < 0 covers both
	// m < -1 (out of range) and m == -1 (null bulk, rejected inside a
	// request since the allow-null flag is false here) — both conditions
	// share the same framed error text.
	if m > bulk.MaxLen || m < 0 {
		return nil, protoErr("Protocol error: invalid bulk length")
	}

	b := bulk.Alloc(m, pool)
	if err := s.ReadFull(b.Data()); err != nil {
		return nil, err
	}
	// Trailing "\r\n" terminator; an I/O failure here is EOF/closed-peer,
	// handled like any other I/O error (silent close).
	if _, err := s.ReadExact(2); err != nil {
		return nil, err
	}
	return b, nil
}

// readDecimalLine reads bytes up to and including '\n', strips one
// trailing '\r' if present, and parses the remainder as a (possibly
// signed) decimal integer. errText names which framed error to raise on
// a non-numeric line.
func readDecimalLine(s *connio.Stream, errText string) (int, error) {
	line, err := s.ReadLine(maxCountLine)
	if err != nil {
		if errors.Is(err, connio.ErrLineTooLong) {
			return 0, protoErr(errText)
		}
		return 0, err
	}
	if len(line) == 0 {
		return 0, protoErr(errText)
	}
	n, convErr := strconv.Atoi(string(line))
	if convErr != nil {
		return 0, protoErr(errText)
	}
	return n, nil
}

func printableOrPlaceholder(c byte) string {
	if c >= 0x20 && c <= 0x7E {
		return string(c)
	}
	return "?"
}

// errUnbalancedQuotes is returned by the inline tokenizer and passed up
// through ReadCommand; the connection driver writes it as the framed wire
// error.
var errUnbalancedQuotes = protoErr("Protocol error: unbalanced quotes in request")

// readTelnetArgs reads one inline-form request line and tokenises it.
func readTelnetArgs(s *connio.Stream) ([]*bulk.Bulk, error) {
	line, err := s.ReadLine(maxInlineLine)
	if err != nil {
		if errors.Is(err, connio.ErrLineTooLong) {
			// §8 boundary behaviour: a 1MiB line with no newline closes
			// the connection once the next byte is read/attempted; no
			// framed error is specified for this case, so it is treated
			// like any other I/O-level teardown.
			return nil, io.ErrUnexpectedEOF
		}
		return nil, err
	}

	tokens, err := tokenize(line)
	if err != nil {
		return nil, err
	}
	args := make([]*bulk.Bulk, 0, len(tokens))
	for _, tok := range tokens {
		args = append(args, bulk.FromBytes(tok))
	}
	return args, nil
}

// tokenize splits an inline line on spaces/tabs, treating a leading ' or
// " as introducing a verbatim (no-escape) quoted token that runs to the
// next matching quote character.
func tokenize(line []byte) ([][]byte, error) {
	var tokens [][]byte
	i := 0
	n := len(line)
	for i < n {
		for i < n && (line[i] == ' ' || line[i] == '\t') {
			i++
		}
		if i >= n {
			break
		}
		if line[i] == '\'' || line[i] == '"' {
			quote := line[i]
			i++
			start := i
			for i < n && line[i] != quote {
				i++
			}
			if i >= n {
				return nil, errUnbalancedQuotes
			}
			tokens = append(tokens, line[start:i])
			i++ // consume closing quote
			continue
		}
		start := i
		for i < n && line[i] != ' ' && line[i] != '\t' {
			i++
		}
		tokens = append(tokens, line[start:i])
	}
	return tokens, nil
}
