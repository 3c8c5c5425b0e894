// Package server implements the gochat connection core: sessions, the shared
// registry, broadcast delivery, command dispatch and moderation, plus the
// listeners and the ops endpoint that expose it.
package server

import (
	"context"
	"log/slog"
	"net"
	"net/http"
	"sync"

	"github.com/NicolasHaas/gochat/pkg/datastore"
)

// Dependencies holds external dependencies for the server.
// Server assumes ownership of Audit and will Close() it on shutdown.
type Dependencies struct {
	Audit  datastore.BlockLog // block audit log; in-memory when nil
	Logger *slog.Logger       // slog.Default() when nil
}

// Server is the chat server.
type Server struct {
	cfg      Config
	registry *Registry
	metrics  *Metrics
	audit    datastore.BlockLog
	log      *slog.Logger

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup // connection goroutines

	mu        sync.Mutex
	listeners []net.Listener
	https     []*http.Server
	live      map[*Session]struct{} // every session not yet cleaned up, named or not

	shutdownOnce sync.Once
}

// New creates a new Server instance. Addresses in cfg.BlockedAddresses are
// refused from the start.
func New(cfg Config, deps Dependencies) *Server {
	log := deps.Logger
	if log == nil {
		log = slog.Default()
	}
	audit := deps.Audit
	if audit == nil {
		audit = datastore.NewMemory()
	}

	reg := NewRegistry()
	for _, addr := range cfg.BlockedAddresses {
		reg.Block(addr)
	}

	m := NewMetrics()
	m.observeRegistry(reg)

	ctx, cancel := context.WithCancel(context.Background())
	return &Server{
		cfg:      cfg,
		registry: reg,
		metrics:  m,
		audit:    audit,
		log:      log,
		ctx:      ctx,
		cancel:   cancel,
		live:     make(map[*Session]struct{}),
	}
}

// Registry returns the session registry.
func (s *Server) Registry() *Registry {
	return s.registry
}

// Metrics returns the server metrics.
func (s *Server) Metrics() *Metrics {
	return s.metrics
}

// Audit returns the block audit log.
func (s *Server) Audit() datastore.BlockLog {
	return s.audit
}

func (s *Server) track(sess *Session) {
	s.mu.Lock()
	s.live[sess] = struct{}{}
	s.mu.Unlock()
}

func (s *Server) untrack(sess *Session) {
	s.mu.Lock()
	delete(s.live, sess)
	s.mu.Unlock()
}

func (s *Server) liveSessions() []*Session {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]*Session, 0, len(s.live))
	for sess := range s.live {
		out = append(out, sess)
	}
	return out
}
