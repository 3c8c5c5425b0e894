package server

import (
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"sync/atomic"

	"github.com/google/uuid"

	"github.com/NicolasHaas/gochat/pkg/model"
)

// Session errors. Both are connection faults: the session is, or is about to be, gone.
var (
	ErrSessionClosed = fmt.Errorf("server: session closed: %w", model.ErrConnectionFault)
	ErrQueueFull     = fmt.Errorf("server: outbound queue full: %w", model.ErrConnectionFault)
)

// State is the lifecycle position of a session.
type State int32

const (
	StateConnecting State = iota
	StateAwaitingName
	StateActive
	StateTerminating
	StateClosed
)

func (s State) String() string {
	switch s {
	case StateConnecting:
		return "connecting"
	case StateAwaitingName:
		return "awaiting_name"
	case StateActive:
		return "active"
	case StateTerminating:
		return "terminating"
	case StateClosed:
		return "closed"
	default:
		return "unknown"
	}
}

// Session is the server-side state of one connected participant.
//
// Name, role and the ignore set are written only by the session's own
// goroutine but read by broadcasters, so they sit behind mu.
type Session struct {
	ID string

	conn Conn
	addr string
	log  *slog.Logger

	mu      sync.RWMutex
	name    string
	role    model.Role
	ignored map[string]struct{}

	state atomic.Int32

	out        chan string
	done       chan struct{}
	closeOnce  sync.Once
	writerDone chan struct{}

	// onOverflow is called when a Send finds the queue full.
	onOverflow func()
}

func newSession(conn Conn, queueSize int, log *slog.Logger) *Session {
	if queueSize <= 0 {
		queueSize = 1
	}
	id := uuid.NewString()
	addr := conn.RemoteAddr()
	return &Session{
		ID:         id,
		conn:       conn,
		addr:       addr,
		log:        log.With("session", id, "remote", addr),
		ignored:    make(map[string]struct{}),
		out:        make(chan string, queueSize),
		done:       make(chan struct{}),
		writerDone: make(chan struct{}),
	}
}

// start launches the writer that drains the outbound queue.
func (s *Session) start() {
	go s.writeLoop()
}

func (s *Session) writeLoop() {
	defer close(s.writerDone)
	defer func() { _ = s.conn.Close() }()

	for {
		select {
		case line := <-s.out:
			if err := s.conn.WriteLine(line); err != nil {
				s.log.Debug("write failed", "err", err)
				s.Close()
				return
			}
		case <-s.done:
			s.flush()
			return
		}
	}
}

// flush writes whatever is still queued, giving up on the first error.
func (s *Session) flush() {
	for {
		select {
		case line := <-s.out:
			if err := s.conn.WriteLine(line); err != nil {
				return
			}
		default:
			return
		}
	}
}

// Name returns the current display name.
func (s *Session) Name() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.name
}

// Role returns the role fixed by AssignName.
func (s *Session) Role() model.Role {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.role
}

// RemoteAddr returns the peer address of the underlying connection.
func (s *Session) RemoteAddr() string {
	return s.addr
}

// State returns the lifecycle state.
func (s *Session) State() State {
	return State(s.state.Load())
}

func (s *Session) setState(st State) {
	s.state.Store(int32(st))
}

// AssignName sets the initial name and the role that goes with it.
// Blank input gets a generated placeholder name.
func (s *Session) AssignName(requested string) string {
	name := requested
	if strings.TrimSpace(name) == "" {
		name = model.DefaultName()
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.name = name
	s.role = model.RoleForName(name)
	return name
}

// Rename changes the display name unless another live session in reg already
// uses it. The check and the write are not atomic across sessions: two
// concurrent renames to the same name can both succeed.
func (s *Session) Rename(reg *Registry, newName string) (old string, err error) {
	if reg.NameInUse(newName, s) {
		return "", fmt.Errorf("server: rename to %q: %w", newName, model.ErrNameTaken)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	old = s.name
	s.name = newName
	return old, nil
}

// Ignore mutes name for this session.
func (s *Session) Ignore(name string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if model.SameName(name, s.name) {
		return fmt.Errorf("server: ignore %q: %w", name, model.ErrSelfTarget)
	}
	s.ignored[model.NormalizeName(name)] = struct{}{}
	return nil
}

// Unignore lifts a mute and reports whether name was muted.
func (s *Session) Unignore(name string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if model.SameName(name, s.name) {
		return false, fmt.Errorf("server: unignore %q: %w", name, model.ErrSelfTarget)
	}
	key := model.NormalizeName(name)
	if _, ok := s.ignored[key]; !ok {
		return false, nil
	}
	delete(s.ignored, key)
	return true, nil
}

// IsIgnoring reports whether messages from name are muted.
func (s *Session) IsIgnoring(name string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.ignored[model.NormalizeName(name)]
	return ok
}

// Send queues line for delivery to this session only. It never blocks.
// A full queue means the peer is not keeping up; the session is closed and
// its own goroutine runs the usual cleanup.
func (s *Session) Send(line string) error {
	select {
	case <-s.done:
		return ErrSessionClosed
	default:
	}

	select {
	case s.out <- line:
		return nil
	case <-s.done:
		return ErrSessionClosed
	default:
		s.log.Warn("outbound queue full, disconnecting", "name", s.Name())
		if s.onOverflow != nil {
			s.onOverflow()
		}
		s.Close()
		return ErrQueueFull
	}
}

// Kick delivers a final notice and closes the session.
func (s *Session) Kick(notice string) {
	_ = s.Send(notice)
	s.Close()
}

// Close stops the session. The writer flushes queued lines and then closes
// the connection, which unblocks the reader. Safe to call more than once.
func (s *Session) Close() {
	s.closeOnce.Do(func() { close(s.done) })
}

// Done is closed once the session has been asked to close.
func (s *Session) Done() <-chan struct{} {
	return s.done
}

// wait blocks until the writer has exited and the connection is closed.
func (s *Session) wait() {
	<-s.writerDone
}
