package services

import (
	"encoding/json"
	"errors"
	"log"
	"os"
	"sync"

	"crypto-mining-client/models"
)

// SessionSnapshot is the persisted shape of an authenticated session.
// Token and User are always written and cleared together.
type SessionSnapshot struct {
	Token          string              `json:"token"`
	DashboardToken string              `json:"dashboard_token,omitempty"`
	User           *models.UserSummary `json:"user"`
}

// SessionPersister stores a session snapshot across client restarts within
// the same login session. A logout removes the stored snapshot.
type SessionPersister interface {
	Save(snap SessionSnapshot) error
	Load() (SessionSnapshot, bool, error)
	Remove() error
}

// SessionStore owns the current bearer token and authenticated-user
// snapshot. It is the single place the 401-teardown path mutates; every
// other component reads through it rather than holding ambient token state.
type SessionStore struct {
	mu        sync.Mutex
	snap      SessionSnapshot
	persister SessionPersister
	persistCh chan persistOp
	subs      []func()
}

// persistOp is one queued persistence write. Ops apply in the order the
// session changed, so a save can never land after the clear that followed it.
type persistOp struct {
	remove bool
	snap   SessionSnapshot
}

// NewSessionStore builds a store and best-effort restores a previously
// persisted session. persister may be nil for a memory-only store.
func NewSessionStore(persister SessionPersister) *SessionStore {
	s := &SessionStore{persister: persister}
	if persister != nil {
		snap, ok, err := persister.Load()
		if err != nil {
			log.Printf("⚠️  Failed to restore session: %v", err)
		} else if ok && snap.Token != "" && snap.User != nil {
			s.snap = snap
		}
		s.persistCh = make(chan persistOp, 64)
		go s.persistLoop()
	}
	return s
}

// Set installs a new session atomically: token and user land together or
// not at all. Persistence happens on a background worker so Set never
// blocks on disk.
func (s *SessionStore) Set(token string, user *models.UserSummary) {
	if token == "" || user == nil {
		return
	}
	s.mu.Lock()
	s.snap = SessionSnapshot{Token: token, User: user}
	s.enqueuePersist(persistOp{snap: s.snap})
	s.mu.Unlock()

	s.notify()
}

// SetDashboardToken attaches the PIN-gated dashboard token to the current
// session. No-op when logged out.
func (s *SessionStore) SetDashboardToken(token string) {
	s.mu.Lock()
	if s.snap.Token == "" {
		s.mu.Unlock()
		return
	}
	s.snap.DashboardToken = token
	s.enqueuePersist(persistOp{snap: s.snap})
	s.mu.Unlock()

	s.notify()
}

// Clear removes token and user together and drops the persisted snapshot.
// Called on logout and by the gateway on any 401.
func (s *SessionStore) Clear() {
	s.mu.Lock()
	wasSet := s.snap.Token != ""
	s.snap = SessionSnapshot{}
	s.enqueuePersist(persistOp{remove: true})
	s.mu.Unlock()

	if wasSet {
		s.notify()
	}
}

// Token returns the current bearer token, or "" when logged out.
func (s *SessionStore) Token() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.snap.Token
}

// DashboardToken returns the PIN-gated token, or "" when not verified.
func (s *SessionStore) DashboardToken() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.snap.DashboardToken
}

// User returns the authenticated-user snapshot, or nil when logged out.
func (s *SessionStore) User() *models.UserSummary {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.snap.User
}

// IsAuthenticated reports whether a session is present. A non-empty token
// always implies a non-nil user.
func (s *SessionStore) IsAuthenticated() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.snap.Token != "" && s.snap.User != nil
}

// Subscribe registers a callback invoked after every session change, so UI
// state reflects login/logout immediately.
func (s *SessionStore) Subscribe(fn func()) {
	s.mu.Lock()
	s.subs = append(s.subs, fn)
	s.mu.Unlock()
}

// enqueuePersist queues a write for the persistence worker. Called with the
// mutex held, so queue order always matches session-change order.
func (s *SessionStore) enqueuePersist(op persistOp) {
	if s.persistCh == nil {
		return
	}
	s.persistCh <- op
}

func (s *SessionStore) persistLoop() {
	for op := range s.persistCh {
		if op.remove {
			if err := s.persister.Remove(); err != nil {
				log.Printf("⚠️  Failed to remove persisted session: %v", err)
			}
			continue
		}
		if err := s.persister.Save(op.snap); err != nil {
			log.Printf("⚠️  Failed to persist session: %v", err)
		}
	}
}

func (s *SessionStore) notify() {
	s.mu.Lock()
	subs := make([]func(), len(s.subs))
	copy(subs, s.subs)
	s.mu.Unlock()
	for _, fn := range subs {
		fn()
	}
}

// FileSessionPersister stores the snapshot as JSON at a fixed path. The
// file lives for the login session only, not long-term storage.
type FileSessionPersister struct {
	Path string
}

func (p *FileSessionPersister) Save(snap SessionSnapshot) error {
	data, err := json.Marshal(snap)
	if err != nil {
		return err
	}
	return os.WriteFile(p.Path, data, 0o600)
}

func (p *FileSessionPersister) Load() (SessionSnapshot, bool, error) {
	data, err := os.ReadFile(p.Path)
	if errors.Is(err, os.ErrNotExist) {
		return SessionSnapshot{}, false, nil
	}
	if err != nil {
		return SessionSnapshot{}, false, err
	}
	var snap SessionSnapshot
	if err := json.Unmarshal(data, &snap); err != nil {
		return SessionSnapshot{}, false, err
	}
	return snap, true, nil
}

func (p *FileSessionPersister) Remove() error {
	err := os.Remove(p.Path)
	if errors.Is(err, os.ErrNotExist) {
		return nil
	}
	return err
}
