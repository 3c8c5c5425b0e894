package server

import (
	"errors"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/NicolasHaas/gochat/pkg/netconn"
)

// shutdownGrace bounds how long Shutdown waits for connections to drain.
const shutdownGrace = 5 * time.Second

// Run starts the server and blocks until shutdown signal.
func (s *Server) Run() error {
	if err := s.Start(); err != nil {
		s.Shutdown()
		return err
	}

	s.log.Info("chat server running",
		"addr", s.cfg.ListenAddr(),
		"ws", s.cfg.WSAddr,
		"http", s.cfg.HTTPAddr,
	)

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(sigCh)

	select {
	case <-sigCh:
	case <-s.ctx.Done():
	}

	s.log.Info("shutting down...")
	s.Shutdown()
	return nil
}

// Start opens the line-protocol listener and, when configured, the
// WebSocket and ops HTTP listeners. It returns once they are accepting.
func (s *Server) Start() error {
	if err := s.cfg.Validate(); err != nil {
		return err
	}

	ln, err := net.Listen("tcp", s.cfg.ListenAddr())
	if err != nil {
		return fmt.Errorf("server: listen: %w", err)
	}
	s.log.Info("line protocol listening", "addr", ln.Addr().String())
	s.addListener(ln)
	go s.acceptLoop(ln)

	if s.cfg.WSAddr != "" {
		if err := s.startHTTP("websocket", s.cfg.WSAddr, s.WebSocketHandler()); err != nil {
			return err
		}
	}
	if s.cfg.HTTPAddr != "" {
		if err := s.startHTTP("ops", s.cfg.HTTPAddr, s.OpsHandler()); err != nil {
			return err
		}
	}

	if d := s.cfg.MetricsLogInterval; d > 0 {
		s.metrics.StartPeriodicLog(d, s.log, s.ctx.Done())
	}
	return nil
}

// Serve accepts connections on ln until the server shuts down.
func (s *Server) Serve(ln net.Listener) error {
	s.addListener(ln)
	return s.acceptLoop(ln)
}

func (s *Server) addListener(ln net.Listener) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.listeners = append(s.listeners, ln)
	if s.ctx.Err() != nil {
		_ = ln.Close()
	}
}

// beginConn registers a connection goroutine unless shutdown has started.
// Shutdown cancels under the same lock, so no Add can follow its Wait.
func (s *Server) beginConn() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.ctx.Err() != nil {
		return false
	}
	s.wg.Add(1)
	return true
}

func (s *Server) acceptLoop(ln net.Listener) error {
	opts := s.cfg.connOptions()
	for {
		c, err := ln.Accept()
		if err != nil {
			select {
			case <-s.ctx.Done():
				return nil
			default:
			}
			if errors.Is(err, net.ErrClosed) {
				return nil
			}
			s.log.Error("accept error", "err", err)
			time.Sleep(10 * time.Millisecond)
			continue
		}

		if !s.beginConn() {
			_ = c.Close()
			return nil
		}
		go func() {
			defer s.wg.Done()
			s.ServeConn(netconn.NewTCP(c, opts))
		}()
	}
}

// Addr returns the address of the first line-protocol listener, or nil.
func (s *Server) Addr() net.Addr {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.listeners) == 0 {
		return nil
	}
	return s.listeners[0].Addr()
}

func (s *Server) startHTTP(name, addr string, h http.Handler) error {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("server: listen %s: %w", name, err)
	}

	srv := &http.Server{
		Handler:           h,
		ReadHeaderTimeout: 5 * time.Second,
	}
	s.mu.Lock()
	s.https = append(s.https, srv)
	s.mu.Unlock()

	go func() {
		s.log.Info(name+" HTTP listening", "addr", ln.Addr().String())
		if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.log.Error(name+" HTTP error", "err", err)
		}
	}()
	return nil
}

// Shutdown stops the listeners, disconnects every session with a notice
// and waits briefly for connection goroutines to finish. Safe to call more
// than once.
func (s *Server) Shutdown() {
	s.shutdownOnce.Do(func() {
		s.mu.Lock()
		s.cancel()
		listeners, servers := s.listeners, s.https
		s.mu.Unlock()

		for _, ln := range listeners {
			_ = ln.Close()
		}
		for _, srv := range servers {
			_ = srv.Close()
		}
		for _, sess := range s.liveSessions() {
			sess.Kick(noticeShutdown)
		}

		done := make(chan struct{})
		go func() {
			s.wg.Wait()
			close(done)
		}()
		select {
		case <-done:
		case <-time.After(shutdownGrace):
			s.log.Warn("shutdown: connections still open after grace period")
		}

		if err := s.audit.Close(); err != nil {
			s.log.Error("close audit log", "err", err)
		}
		s.metrics.LogSummary(s.log)
	})
}
