package server

import (
	"sort"
	"sync"

	"github.com/NicolasHaas/gochat/pkg/model"
)

// Registry is the shared set of live sessions plus the blocked-address set.
//
// All returns a snapshot, so callers may iterate while other goroutines add
// or remove sessions. The two sets are independent; no operation spans both.
type Registry struct {
	mu       sync.RWMutex
	sessions map[string]*Session // session ID -> session

	blockMu sync.RWMutex
	blocked map[string]struct{}
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{
		sessions: make(map[string]*Session),
		blocked:  make(map[string]struct{}),
	}
}

// Add registers a named session.
func (r *Registry) Add(s *Session) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.sessions[s.ID] = s
}

// Remove unregisters s. Only the call that actually removed it returns true.
func (r *Registry) Remove(s *Session) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.sessions[s.ID]; !ok {
		return false
	}
	delete(r.sessions, s.ID)
	return true
}

// Get returns the session with the given ID, or nil.
func (r *Registry) Get(id string) *Session {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.sessions[id]
}

// FindByName returns a live session whose name matches, ignoring case, or nil.
func (r *Registry) FindByName(name string) *Session {
	for _, s := range r.All() {
		if model.SameName(s.Name(), name) {
			return s
		}
	}
	return nil
}

// NameInUse reports whether a live session other than except is called name.
func (r *Registry) NameInUse(name string, except *Session) bool {
	for _, s := range r.All() {
		if s != except && model.SameName(s.Name(), name) {
			return true
		}
	}
	return false
}

// All returns a snapshot of the live sessions.
func (r *Registry) All() []*Session {
	r.mu.RLock()
	defer r.mu.RUnlock()
	result := make([]*Session, 0, len(r.sessions))
	for _, s := range r.sessions {
		result = append(result, s)
	}
	return result
}

// Len returns the number of live sessions.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.sessions)
}

// IsBlocked reports whether connections from addr must be refused.
func (r *Registry) IsBlocked(addr string) bool {
	r.blockMu.RLock()
	defer r.blockMu.RUnlock()
	_, ok := r.blocked[addr]
	return ok
}

// Block adds addr to the blocklist and reports whether it was new.
func (r *Registry) Block(addr string) bool {
	if addr == "" {
		return false
	}
	r.blockMu.Lock()
	defer r.blockMu.Unlock()
	if _, ok := r.blocked[addr]; ok {
		return false
	}
	r.blocked[addr] = struct{}{}
	return true
}

// Unblock removes addr and reports whether it was blocked.
func (r *Registry) Unblock(addr string) bool {
	r.blockMu.Lock()
	defer r.blockMu.Unlock()
	if _, ok := r.blocked[addr]; !ok {
		return false
	}
	delete(r.blocked, addr)
	return true
}

// Blocked returns the blocked addresses in sorted order.
func (r *Registry) Blocked() []string {
	r.blockMu.RLock()
	defer r.blockMu.RUnlock()
	out := make([]string, 0, len(r.blocked))
	for addr := range r.blocked {
		out = append(out, addr)
	}
	sort.Strings(out)
	return out
}

// BlockedCount returns the size of the blocklist.
func (r *Registry) BlockedCount() int {
	r.blockMu.RLock()
	defer r.blockMu.RUnlock()
	return len(r.blocked)
}
