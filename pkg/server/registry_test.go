package server

import (
	"errors"
	"sort"
	"sync"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"

	"github.com/NicolasHaas/gochat/pkg/logging"
	"github.com/NicolasHaas/gochat/pkg/model"
)

func newTestSession(t *testing.T, name, addr string) (*Session, *fakeConn) {
	t.Helper()
	conn := newFakeConn(addr)
	s := newSession(conn, 16, logging.Discard())
	s.start()
	s.AssignName(name)
	t.Cleanup(func() {
		s.Close()
		s.wait()
	})
	return s, conn
}

// drain collects what was written to conn within a short window.
func drain(conn *fakeConn) []string {
	var got []string
	for {
		select {
		case line := <-conn.out:
			got = append(got, line)
		case <-time.After(50 * time.Millisecond):
			return got
		}
	}
}

func TestRegistryRemoveOnce(t *testing.T) {
	reg := NewRegistry()
	s, _ := newTestSession(t, "Alice", "10.0.0.1")
	reg.Add(s)

	var wg sync.WaitGroup
	results := make(chan bool, 8)
	for range 8 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			results <- reg.Remove(s)
		}()
	}
	wg.Wait()
	close(results)

	removed := 0
	for ok := range results {
		if ok {
			removed++
		}
	}
	if removed != 1 {
		t.Fatalf("Remove succeeded %d times, want 1", removed)
	}
	if reg.Len() != 0 {
		t.Fatalf("Len = %d, want 0", reg.Len())
	}
}

func TestRegistryFindByName(t *testing.T) {
	reg := NewRegistry()
	alice, _ := newTestSession(t, "Alice", "10.0.0.1")
	bob, _ := newTestSession(t, "Bob", "10.0.0.2")
	reg.Add(alice)
	reg.Add(bob)

	tests := map[string]struct {
		query string
		want  *Session
	}{
		"exact":        {query: "Alice", want: alice},
		"lower":        {query: "bob", want: bob},
		"upper":        {query: "ALICE", want: alice},
		"missing":      {query: "Carol", want: nil},
		"prefix only":  {query: "Ali", want: nil},
		"empty string": {query: "", want: nil},
	}
	for name, tc := range tests {
		t.Run(name, func(t *testing.T) {
			if got := reg.FindByName(tc.query); got != tc.want {
				t.Fatalf("FindByName(%q) = %v, want %v", tc.query, got, tc.want)
			}
		})
	}

	if !reg.NameInUse("ALICE", bob) {
		t.Fatal("NameInUse(ALICE, bob) = false")
	}
	if reg.NameInUse("alice", alice) {
		t.Fatal("NameInUse(alice, alice) = true")
	}
}

func TestRegistryBlocklist(t *testing.T) {
	reg := NewRegistry()

	if !reg.Block("10.0.0.2") || !reg.Block("10.0.0.1") {
		t.Fatal("Block of a new address returned false")
	}
	if reg.Block("10.0.0.1") {
		t.Fatal("Block of an existing address returned true")
	}
	if reg.Block("") {
		t.Fatal("Block of an empty address returned true")
	}

	if diff := cmp.Diff([]string{"10.0.0.1", "10.0.0.2"}, reg.Blocked()); diff != "" {
		t.Fatalf("Blocked mismatch (-want +got):\n%s", diff)
	}
	if !reg.IsBlocked("10.0.0.2") || reg.IsBlocked("10.0.0.3") {
		t.Fatal("IsBlocked mismatch")
	}

	if !reg.Unblock("10.0.0.2") {
		t.Fatal("Unblock returned false for a blocked address")
	}
	if reg.Unblock("10.0.0.2") {
		t.Fatal("Unblock returned true twice")
	}
	if reg.BlockedCount() != 1 {
		t.Fatalf("BlockedCount = %d, want 1", reg.BlockedCount())
	}
}

func TestBroadcastModes(t *testing.T) {
	reg := NewRegistry()
	alice, aliceConn := newTestSession(t, "Alice", "10.0.0.1")
	bob, bobConn := newTestSession(t, "Bob", "10.0.0.2")
	carol, carolConn := newTestSession(t, "Carol", "10.0.0.3")
	for _, s := range []*Session{alice, bob, carol} {
		reg.Add(s)
	}
	if err := carol.Ignore("alice"); err != nil {
		t.Fatalf("Ignore: %v", err)
	}

	if n := reg.Relay("Alice: hola", alice); n != 2 {
		t.Fatalf("Relay delivered to %d, want 2", n)
	}
	if n := reg.Announce("Alice ahora es Alicia", alice); n != 2 {
		t.Fatalf("Announce delivered to %d, want 2", n)
	}

	got := map[string][]string{
		"alice": drain(aliceConn),
		"bob":   drain(bobConn),
		"carol": drain(carolConn),
	}
	want := map[string][]string{
		"alice": {"Alice: hola"},
		"bob":   {"Alice: hola", "Alice ahora es Alicia"},
		"carol": {"Alice ahora es Alicia"},
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("delivery mismatch (-want +got):\n%s", diff)
	}
}

func TestBroadcastSkipsClosedSessions(t *testing.T) {
	reg := NewRegistry()
	alice, _ := newTestSession(t, "Alice", "10.0.0.1")
	bob, bobConn := newTestSession(t, "Bob", "10.0.0.2")
	reg.Add(alice)
	reg.Add(bob)

	alice.Close()
	if n := reg.Announce("aviso", nil); n != 1 {
		t.Fatalf("Announce delivered to %d, want 1", n)
	}
	if diff := cmp.Diff([]string{"aviso"}, drain(bobConn)); diff != "" {
		t.Fatalf("delivery mismatch (-want +got):\n%s", diff)
	}
}

func TestRegistryAllUnderConcurrency(t *testing.T) {
	reg := NewRegistry()
	var wg sync.WaitGroup
	for i := range 20 {
		s, _ := newTestSession(t, "user", "10.0.0.1")
		wg.Add(2)
		go func() {
			defer wg.Done()
			reg.Add(s)
			if i%2 == 0 {
				reg.Remove(s)
			}
		}()
		go func() {
			defer wg.Done()
			seen := map[*Session]bool{}
			for _, x := range reg.All() {
				if seen[x] {
					t.Errorf("duplicate session in snapshot")
				}
				seen[x] = true
			}
		}()
	}
	wg.Wait()
	if reg.Len() != 10 {
		t.Fatalf("Len = %d, want 10", reg.Len())
	}
}

func TestSessionIgnore(t *testing.T) {
	s, _ := newTestSession(t, "Alice", "10.0.0.1")

	if err := s.Ignore("ALICE"); !errors.Is(err, model.ErrSelfTarget) {
		t.Fatalf("Ignore(self) = %v, want ErrSelfTarget", err)
	}
	if _, err := s.Unignore("alice"); !errors.Is(err, model.ErrSelfTarget) {
		t.Fatalf("Unignore(self) = %v, want ErrSelfTarget", err)
	}

	if err := s.Ignore("Bob"); err != nil {
		t.Fatalf("Ignore: %v", err)
	}
	if !s.IsIgnoring("bob") || !s.IsIgnoring("BOB") {
		t.Fatal("IsIgnoring should be case-insensitive")
	}

	removed, err := s.Unignore("bOb")
	if err != nil || !removed {
		t.Fatalf("Unignore = %v, %v; want true, nil", removed, err)
	}
	removed, err = s.Unignore("bob")
	if err != nil || removed {
		t.Fatalf("second Unignore = %v, %v; want false, nil", removed, err)
	}
}

func TestSessionAssignNameRole(t *testing.T) {
	tests := map[string]struct {
		requested string
		wantRole  model.Role
	}{
		"regular":      {requested: "Alice", wantRole: model.RoleRegular},
		"admin lower":  {requested: "admin", wantRole: model.RoleAdmin},
		"admin mixed":  {requested: "AdMiN", wantRole: model.RoleAdmin},
		"admin suffix": {requested: "admin2", wantRole: model.RoleRegular},
	}
	for name, tc := range tests {
		t.Run(name, func(t *testing.T) {
			s, _ := newTestSession(t, tc.requested, "10.0.0.1")
			if s.Name() != tc.requested {
				t.Fatalf("Name = %q, want %q", s.Name(), tc.requested)
			}
			if s.Role() != tc.wantRole {
				t.Fatalf("Role = %v, want %v", s.Role(), tc.wantRole)
			}
		})
	}
}

func TestSessionRename(t *testing.T) {
	reg := NewRegistry()
	alice, _ := newTestSession(t, "admin", "10.0.0.1")
	bob, _ := newTestSession(t, "Bob", "10.0.0.2")
	reg.Add(alice)
	reg.Add(bob)

	if _, err := alice.Rename(reg, "BOB"); !errors.Is(err, model.ErrNameTaken) {
		t.Fatalf("Rename to taken name = %v, want ErrNameTaken", err)
	}
	old, err := alice.Rename(reg, "Alice")
	if err != nil {
		t.Fatalf("Rename: %v", err)
	}
	if old != "admin" || alice.Name() != "Alice" {
		t.Fatalf("Rename: old=%q name=%q", old, alice.Name())
	}
	if alice.Role() != model.RoleAdmin {
		t.Fatalf("Role changed on rename: %v", alice.Role())
	}
}

func TestSessionSendAfterClose(t *testing.T) {
	s, conn := newTestSession(t, "Alice", "10.0.0.1")
	s.Kick("adiós")
	s.wait()

	if diff := cmp.Diff([]string{"adiós"}, drain(conn)); diff != "" {
		t.Fatalf("kick delivery mismatch (-want +got):\n%s", diff)
	}
	if !conn.isClosed() {
		t.Fatal("connection still open after Kick")
	}

	err := s.Send("tarde")
	if !errors.Is(err, ErrSessionClosed) || !errors.Is(err, model.ErrConnectionFault) {
		t.Fatalf("Send after close = %v", err)
	}
}

func TestSessionQueueFull(t *testing.T) {
	conn := newFakeConn("10.0.0.1")
	conn.stallWrites()
	s := newSession(conn, 1, logging.Discard())
	overflows := 0
	s.onOverflow = func() { overflows++ }
	// Writer not started: nothing drains the queue.

	if err := s.Send("uno"); err != nil {
		t.Fatalf("first Send: %v", err)
	}
	err := s.Send("dos")
	if !errors.Is(err, ErrQueueFull) || !errors.Is(err, model.ErrConnectionFault) {
		t.Fatalf("second Send = %v, want ErrQueueFull", err)
	}
	if overflows != 1 {
		t.Fatalf("overflows = %d, want 1", overflows)
	}
	select {
	case <-s.Done():
	default:
		t.Fatal("session not closed after overflow")
	}
}

func TestStateString(t *testing.T) {
	var got []string
	for _, st := range []State{StateConnecting, StateAwaitingName, StateActive, StateTerminating, StateClosed, State(99)} {
		got = append(got, st.String())
	}
	want := []string{"active", "awaiting_name", "closed", "connecting", "terminating", "unknown"}
	sort.Strings(got)
	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("State names mismatch (-want +got):\n%s", diff)
	}
}

func TestSerializedRenamesKeepNamesUnique(t *testing.T) {
	reg := NewRegistry()
	var sessions []*Session
	for _, name := range []string{"Alice", "Bob", "Carol", "Dave"} {
		s, _ := newTestSession(t, name, "10.0.0.1")
		reg.Add(s)
		sessions = append(sessions, s)
	}

	targets := []string{"bob", "ALICE", "Eve", "eve", "Carol", "Frank", "dave", "EVE", "alice", "frank"}
	for i, target := range targets {
		s := sessions[i%len(sessions)]
		_, _ = s.Rename(reg, target)

		seen := map[string]bool{}
		for _, x := range reg.All() {
			key := model.NormalizeName(x.Name())
			if seen[key] {
				t.Fatalf("after rename %d to %q: duplicate name %q", i, target, x.Name())
			}
			seen[key] = true
		}
	}
}
