package services

import (
	"path/filepath"
	"sync"
	"testing"
	"time"
)

// recordingPersister reports each write on a channel so tests can observe
// the order writes reach disk.
type recordingPersister struct {
	ops chan string
}

func (p *recordingPersister) Save(SessionSnapshot) error {
	p.ops <- "save"
	return nil
}

func (p *recordingPersister) Load() (SessionSnapshot, bool, error) {
	return SessionSnapshot{}, false, nil
}

func (p *recordingPersister) Remove() error {
	p.ops <- "remove"
	return nil
}

func nextOp(t *testing.T, ops chan string) string {
	t.Helper()
	select {
	case op := <-ops:
		return op
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for a persistence write")
		return ""
	}
}

func TestSessionStoreSetAndClear(t *testing.T) {
	s := NewSessionStore(nil)
	if s.IsAuthenticated() {
		t.Fatal("new store should not be authenticated")
	}

	s.Set("token-1", testUser())
	if !s.IsAuthenticated() {
		t.Fatal("store should be authenticated after Set")
	}
	if s.Token() != "token-1" {
		t.Errorf("Token = %q, want %q", s.Token(), "token-1")
	}
	if s.User() == nil || s.User().Email != "miner@example.com" {
		t.Errorf("User = %+v, want test user", s.User())
	}

	s.Clear()
	if s.IsAuthenticated() {
		t.Fatal("store should not be authenticated after Clear")
	}
	if s.Token() != "" || s.User() != nil {
		t.Error("token and user must clear together")
	}
}

func TestSessionStoreRejectsPartialSession(t *testing.T) {
	s := NewSessionStore(nil)
	s.Set("", testUser())
	if s.IsAuthenticated() {
		t.Error("empty token must not install a session")
	}
	s.Set("token-1", nil)
	if s.IsAuthenticated() {
		t.Error("nil user must not install a session")
	}
}

func TestSessionStoreDashboardTokenRequiresLogin(t *testing.T) {
	s := NewSessionStore(nil)
	s.SetDashboardToken("dash-1")
	if s.DashboardToken() != "" {
		t.Error("dashboard token must not stick while logged out")
	}

	s.Set("token-1", testUser())
	s.SetDashboardToken("dash-1")
	if s.DashboardToken() != "dash-1" {
		t.Errorf("DashboardToken = %q, want %q", s.DashboardToken(), "dash-1")
	}

	s.Clear()
	if s.DashboardToken() != "" {
		t.Error("dashboard token must clear with the session")
	}
}

func TestSessionStoreNotifiesSubscribers(t *testing.T) {
	s := NewSessionStore(nil)

	var mu sync.Mutex
	calls := 0
	s.Subscribe(func() {
		mu.Lock()
		calls++
		mu.Unlock()
	})

	s.Set("token-1", testUser())
	s.Clear()
	s.Clear() // already cleared, must not notify again

	mu.Lock()
	defer mu.Unlock()
	if calls != 2 {
		t.Errorf("subscriber called %d times, want 2", calls)
	}
}

func TestSessionStorePersistsInCallOrder(t *testing.T) {
	p := &recordingPersister{ops: make(chan string, 16)}
	s := NewSessionStore(p)

	// Rapid login/logout cycles must reach the persister in the same
	// order, so a logout can never be overwritten by the login before it.
	for i := 0; i < 3; i++ {
		s.Set("token-1", testUser())
		s.Clear()
	}

	for i := 0; i < 3; i++ {
		if op := nextOp(t, p.ops); op != "save" {
			t.Fatalf("write %d = %q, want %q", 2*i, op, "save")
		}
		if op := nextOp(t, p.ops); op != "remove" {
			t.Fatalf("write %d = %q, want %q", 2*i+1, op, "remove")
		}
	}
}

func TestFileSessionPersisterRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "session.json")
	p := &FileSessionPersister{Path: path}

	if _, ok, err := p.Load(); err != nil || ok {
		t.Fatalf("Load on missing file = (%v, %v), want (false, nil)", ok, err)
	}

	snap := SessionSnapshot{Token: "token-1", DashboardToken: "dash-1", User: testUser()}
	if err := p.Save(snap); err != nil {
		t.Fatalf("Save: %v", err)
	}

	got, ok, err := p.Load()
	if err != nil || !ok {
		t.Fatalf("Load = (%v, %v), want (true, nil)", ok, err)
	}
	if got.Token != snap.Token || got.DashboardToken != snap.DashboardToken {
		t.Errorf("Load = %+v, want %+v", got, snap)
	}
	if got.User == nil || got.User.Email != snap.User.Email {
		t.Errorf("Load user = %+v, want %+v", got.User, snap.User)
	}

	if err := p.Remove(); err != nil {
		t.Fatalf("Remove: %v", err)
	}
	if err := p.Remove(); err != nil {
		t.Errorf("Remove on missing file = %v, want nil", err)
	}
}

func TestSessionStoreRestoresPersistedSession(t *testing.T) {
	path := filepath.Join(t.TempDir(), "session.json")
	p := &FileSessionPersister{Path: path}
	snap := SessionSnapshot{Token: "token-1", User: testUser()}
	if err := p.Save(snap); err != nil {
		t.Fatalf("Save: %v", err)
	}

	s := NewSessionStore(p)
	if !s.IsAuthenticated() {
		t.Fatal("store should restore the persisted session")
	}
	if s.Token() != "token-1" {
		t.Errorf("Token = %q, want %q", s.Token(), "token-1")
	}
}

func TestSessionStoreIgnoresIncompletePersistedSession(t *testing.T) {
	path := filepath.Join(t.TempDir(), "session.json")
	p := &FileSessionPersister{Path: path}
	if err := p.Save(SessionSnapshot{Token: "token-1"}); err != nil {
		t.Fatalf("Save: %v", err)
	}

	s := NewSessionStore(p)
	if s.IsAuthenticated() {
		t.Error("a snapshot without a user must not restore")
	}
}
