package services

import (
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"crypto-mining-client/models"
)

// recordingNotifier captures notifications so tests can assert the
// exactly-one-notification rule.
type recordingNotifier struct {
	mu       sync.Mutex
	messages []string
}

func (n *recordingNotifier) Notify(level NotifyLevel, message string) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.messages = append(n.messages, message)
}

func (n *recordingNotifier) count() int {
	n.mu.Lock()
	defer n.mu.Unlock()
	return len(n.messages)
}

func (n *recordingNotifier) last() string {
	n.mu.Lock()
	defer n.mu.Unlock()
	if len(n.messages) == 0 {
		return ""
	}
	return n.messages[len(n.messages)-1]
}

func testUser() *models.UserSummary {
	return &models.UserSummary{ID: 1, UserID: "10000001", Name: "Test Miner", Email: "miner@example.com", Status: "approved"}
}

// newTestClient spins up an httptest server behind a fully wired client
// with an in-memory, already logged-in session.
func newTestClient(t *testing.T, handler http.Handler) (*APIClient, *SessionStore, *recordingNotifier) {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	sessions := NewSessionStore(nil)
	sessions.Set("test-token", testUser())
	notifier := &recordingNotifier{}
	api := NewAPIClient(srv.URL, sessions, notifier)
	return api, sessions, notifier
}
