// Package server implements the server supervisor (§4.7): raising the
// file-descriptor limit, binding the listening socket, spawning one
// connection goroutine per accepted fd, and running the stats task
// (§4.8). It adapts the teacher's internal/telnetserver accept-loop
// shape from a per-session SSH/telnet handler to the raw per-connection
// command driver in internal/conn.
package server

import (
	"errors"
	"fmt"
	"log"
	"net"
	"sync/atomic"

	"github.com/stlalpha/bluebox/internal/bulk"
	"github.com/stlalpha/bluebox/internal/command"
	"github.com/stlalpha/bluebox/internal/conn"
	"github.com/stlalpha/bluebox/internal/connio"
	"github.com/stlalpha/bluebox/internal/connstats"
	"github.com/stlalpha/bluebox/internal/logging"
	"github.com/stlalpha/bluebox/internal/store"
)

// Config holds the supervisor's startup parameters.
type Config struct {
	Port int
	Host string // defaults to 0.0.0.0

	// Pool enables the optional Bulk payload pool (§2c of SPEC_FULL.md).
	// Nil disables pooling.
	Pool *bulk.Pool

	// Stats, when non-nil, is sampled by the TCP_INFO collector for
	// every accepted connection (additive observability, §2b).
	Stats *connstats.Collector
}

// Server is the bound listener plus the shared state every accepted
// connection dispatches against: the command table and the key store.
type Server struct {
	cfg      Config
	listener net.Listener
	commands *command.Table
	store    *store.Store

	activeConns int64
	statsStop   chan struct{}
}

// New builds a Server. It does not bind the socket; call Listen for
// that, then Serve.
func New(cfg Config) *Server {
	if cfg.Host == "" {
		cfg.Host = "0.0.0.0"
	}
	return &Server{
		cfg:      cfg,
		commands: command.NewTable(),
		store:    store.New(),
	}
}

// Listen binds the listening socket (§4.7 "bind and listen on
// 0.0.0.0:<port>"). Call Serve afterwards to run the accept loop.
func (s *Server) Listen() error {
	addr := fmt.Sprintf("%s:%d", s.cfg.Host, s.cfg.Port)
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("bind %s: %w", addr, err)
	}
	s.listener = ln
	return nil
}

// Addr returns the bound listener's address; valid only after Listen.
func (s *Server) Addr() net.Addr { return s.listener.Addr() }

// RaiseFileLimit raises RLIMIT_NOFILE to its hard limit, best-effort
// (§4.7). The caller decides what to do with a non-nil error; the spec
// calls for ignoring the failure and continuing startup.
func RaiseFileLimit() error { return raiseFileLimit() }

// Serve spawns the stats task (§4.8) and runs the accept loop, spawning
// one connection goroutine per accepted fd (§4.7), until the listener
// is closed. A transient Accept error (e.g. the fd table momentarily
// exhausted) is logged and the loop continues rather than tearing down
// the whole server — matching §7 taxonomy #5 ("Scheduler error on task
// spawn: log; drop the connection; continue accepting") and
// original_source/src/bluebox.c's own accept loop, which `perror`s and
// loops again rather than exiting. Only a closed listener ends Serve.
func (s *Server) Serve() error {
	s.statsStop = make(chan struct{})
	go s.runStats(s.statsStop)
	defer close(s.statsStop)

	for {
		c, err := s.listener.Accept()
		if err != nil {
			if errors.Is(err, net.ErrClosed) {
				return nil
			}
			log.Printf("ERROR: accept: %v", err)
			continue
		}
		go s.handle(c)
	}
}

// Close shuts the listener down, unblocking Serve.
func (s *Server) Close() error {
	if s.listener == nil {
		return nil
	}
	return s.listener.Close()
}

// Store exposes the shared key store.
func (s *Server) Store() *store.Store { return s.store }

func (s *Server) handle(netConn net.Conn) {
	atomic.AddInt64(&s.activeConns, 1)
	defer atomic.AddInt64(&s.activeConns, -1)

	if s.cfg.Stats != nil {
		s.cfg.Stats.Add(netConn)
		defer s.cfg.Stats.Remove(netConn)
	}
	c := conn.New(connio.New(netConn))
	logging.Debug("conn %s: dispatching from %s", c.ID, netConn.RemoteAddr())
	c.Serve(s.commands, s.store, s.cfg.Pool)
}
