package protocol

import (
	"errors"
	"io"
	"net"
	"testing"

	"github.com/stlalpha/bluebox/internal/bulk"
	"github.com/stlalpha/bluebox/internal/connio"
)

func pipe(t *testing.T) (*connio.Stream, *connio.Stream) {
	t.Helper()
	a, b := net.Pipe()
	t.Cleanup(func() { a.Close(); b.Close() })
	return connio.New(a), connio.New(b)
}

func send(t *testing.T, cli *connio.Stream, s string) {
	t.Helper()
	go func() {
		cli.Write([]byte(s))
		cli.Flush()
	}()
}

func argStrings(args []*bulk.Bulk) []string {
	out := make([]string, len(args))
	for i, a := range args {
		out[i] = string(a.Data())
	}
	return out
}

func TestMultibulkPing(t *testing.T) {
	srv, cli := pipe(t)
	send(t, cli, "*1\r\n$4\r\nPING\r\n")
	args, err := ReadCommand(srv, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got := argStrings(args); len(got) != 1 || got[0] != "ping" {
		t.Fatalf("expected [ping], got %v", got)
	}
}

func TestMultibulkSet(t *testing.T) {
	srv, cli := pipe(t)
	send(t, cli, "*3\r\n$3\r\nSET\r\n$1\r\nk\r\n$1\r\nv\r\n")
	args, err := ReadCommand(srv, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got := argStrings(args); len(got) != 3 || got[0] != "set" || got[1] != "k" || got[2] != "v" {
		t.Fatalf("unexpected args: %v", got)
	}
}

func TestMultibulkZeroIsNoOp(t *testing.T) {
	srv, cli := pipe(t)
	send(t, cli, "*0\r\n")
	args, err := ReadCommand(srv, nil)
	if err != nil || len(args) != 0 {
		t.Fatalf("expected no-op frame, got %v err=%v", args, err)
	}
}

func TestMultibulkNegativeIsNoOp(t *testing.T) {
	srv, cli := pipe(t)
	send(t, cli, "*-5\r\n")
	args, err := ReadCommand(srv, nil)
	if err != nil || len(args) != 0 {
		t.Fatalf("expected no-op frame, got %v err=%v", args, err)
	}
}

func TestMultibulkEmptyBulk(t *testing.T) {
	srv, cli := pipe(t)
	send(t, cli, "*1\r\n$0\r\n\r\n")
	args, err := ReadCommand(srv, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(args) != 1 || args[0].Len() != 0 {
		t.Fatalf("expected one empty bulk, got %v", args)
	}
}

func TestBadBulkPrefix(t *testing.T) {
	srv, cli := pipe(t)
	send(t, cli, "*1\r\n%1\r\n")
	_, err := ReadCommand(srv, nil)
	var perr *ProtocolError
	if !errors.As(err, &perr) {
		t.Fatalf("expected ProtocolError, got %v", err)
	}
	if perr.Text != "Protocol error: expected '$', got '%'" {
		t.Fatalf("unexpected error text: %q", perr.Text)
	}
}

func TestInvalidMultibulkLength(t *testing.T) {
	srv, cli := pipe(t)
	send(t, cli, "*abc\r\n")
	_, err := ReadCommand(srv, nil)
	var perr *ProtocolError
	if !errors.As(err, &perr) || perr.Text != "Protocol error: invalid multibulk length" {
		t.Fatalf("expected invalid multibulk length error, got %v", err)
	}
}

func TestInvalidBulkLengthTooLarge(t *testing.T) {
	srv, cli := pipe(t)
	send(t, cli, "*1\r\n$524288001\r\n")
	_, err := ReadCommand(srv, nil)
	var perr *ProtocolError
	if !errors.As(err, &perr) || perr.Text != "Protocol error: invalid bulk length" {
		t.Fatalf("expected invalid bulk length error, got %v", err)
	}
}

func TestNullBulkRejectedInRequest(t *testing.T) {
	srv, cli := pipe(t)
	send(t, cli, "*1\r\n$-1\r\n")
	_, err := ReadCommand(srv, nil)
	var perr *ProtocolError
	if !errors.As(err, &perr) || perr.Text != "Protocol error: invalid bulk length" {
		t.Fatalf("expected invalid bulk length error, got %v", err)
	}
}

func TestInlinePing(t *testing.T) {
	srv, cli := pipe(t)
	send(t, cli, "PING\r\n")
	args, err := ReadCommand(srv, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got := argStrings(args); len(got) != 1 || got[0] != "ping" {
		t.Fatalf("expected [ping], got %v", got)
	}
}

func TestInlineQuotedToken(t *testing.T) {
	srv, cli := pipe(t)
	send(t, cli, "SET k \"hello world\"\n")
	args, err := ReadCommand(srv, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	got := argStrings(args)
	if len(got) != 3 || got[2] != "hello world" {
		t.Fatalf("unexpected args: %v", got)
	}
}

func TestInlineUnbalancedQuotes(t *testing.T) {
	srv, cli := pipe(t)
	send(t, cli, "SET k \"unterminated\n")
	_, err := ReadCommand(srv, nil)
	var perr *ProtocolError
	if !errors.As(err, &perr) || perr.Text != "Protocol error: unbalanced quotes in request" {
		t.Fatalf("expected unbalanced quotes error, got %v", err)
	}
}

func TestInlineEquivalentToMultibulk(t *testing.T) {
	srv1, cli1 := pipe(t)
	send(t, cli1, "GET s\n")
	a1, err := ReadCommand(srv1, nil)
	if err != nil {
		t.Fatalf("inline: %v", err)
	}

	srv2, cli2 := pipe(t)
	send(t, cli2, "*2\r\n$3\r\nGET\r\n$1\r\ns\r\n")
	a2, err := ReadCommand(srv2, nil)
	if err != nil {
		t.Fatalf("multibulk: %v", err)
	}

	if len(a1) != len(a2) {
		t.Fatalf("length mismatch: %v vs %v", argStrings(a1), argStrings(a2))
	}
	for i := range a1 {
		if string(a1[i].Data()) != string(a2[i].Data()) {
			t.Fatalf("mismatch at %d: %q vs %q", i, a1[i].Data(), a2[i].Data())
		}
	}
}

func TestEncodeBulkAndNullBulk(t *testing.T) {
	srv, cli := pipe(t)
	done := make(chan struct{})
	go func() {
		WriteBulk(srv, bulk.FromBytes([]byte("hello")))
		WriteNullBulk(srv)
		srv.Flush()
		close(done)
	}()

	buf := make([]byte, len("$5\r\nhello\r\n$-1\r\n"))
	if _, err := io.ReadFull(cli.Conn(), buf); err != nil {
		t.Fatalf("read: %v", err)
	}
	<-done
	if string(buf) != "$5\r\nhello\r\n$-1\r\n" {
		t.Fatalf("unexpected encoding: %q", buf)
	}
}

func TestEncodeArrayHeader(t *testing.T) {
	srv, cli := pipe(t)
	done := make(chan struct{})
	go func() {
		WriteArrayHeader(srv, 2)
		WriteBulk(srv, bulk.FromBytes([]byte("a")))
		WriteBulk(srv, bulk.FromBytes([]byte("bb")))
		srv.Flush()
		close(done)
	}()
	want := "*2\r\n$1\r\na\r\n$2\r\nbb\r\n"
	buf := make([]byte, len(want))
	if _, err := io.ReadFull(cli.Conn(), buf); err != nil {
		t.Fatalf("read: %v", err)
	}
	<-done
	if string(buf) != want {
		t.Fatalf("unexpected: %q", buf)
	}
}
