package services

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"sync/atomic"
	"testing"

	"github.com/jonboulle/clockwork"

	"crypto-mining-client/models"
)

func TestBuildTransferRequestRecipientRouting(t *testing.T) {
	tests := []struct {
		name       string
		recipient  string
		wantEmail  string
		wantUserID string
		wantErr    bool
	}{
		{"email recipient", "friend@example.com", "friend@example.com", "", false},
		{"numeric recipient", "10000002", "", "10000002", false},
		{"at sign without dot", "friend@localhost", "", "", true},
		{"mixed garbage", "not-a-recipient", "", "", true},
		{"empty", "", "", "", true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req, err := BuildTransferRequest(models.CryptoBitcoin, "0.1", tt.recipient)
			if tt.wantErr {
				var vErr *ValidationError
				if !errors.As(err, &vErr) {
					t.Fatalf("err = %v, want *ValidationError", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("BuildTransferRequest: %v", err)
			}
			if req.ToEmail != tt.wantEmail || req.ToUserID != tt.wantUserID {
				t.Errorf("routed to (email=%q, user_id=%q), want (email=%q, user_id=%q)",
					req.ToEmail, req.ToUserID, tt.wantEmail, tt.wantUserID)
			}
			// Exactly one of the two recipient fields is ever set.
			if (req.ToEmail == "") == (req.ToUserID == "") {
				t.Error("exactly one recipient field must be set")
			}
		})
	}
}

func TestBuildTransferRequestValidationOrder(t *testing.T) {
	// A bad amount wins over a bad recipient.
	_, err := BuildTransferRequest(models.CryptoBitcoin, "-1", "")
	var vErr *ValidationError
	if !errors.As(err, &vErr) || vErr.Field != "amount" {
		t.Errorf("err = %v, want amount validation first", err)
	}

	_, err = BuildTransferRequest(models.CryptoBitcoin, "5", "???")
	if !errors.As(err, &vErr) || vErr.Field != "recipient" {
		t.Errorf("err = %v, want recipient validation error", err)
	}
}

func TestTransferCreateShapeErrorSkipsProfileFetch(t *testing.T) {
	var profileHits, transferHits atomic.Int32
	mux := http.NewServeMux()
	mux.HandleFunc("/api/user/profile", func(w http.ResponseWriter, r *http.Request) {
		profileHits.Add(1)
		json.NewEncoder(w).Encode(map[string]any{"bitcoin_balance": "1", "ethereum_balance": "0"})
	})
	mux.HandleFunc("/api/transfers/create", func(w http.ResponseWriter, r *http.Request) {
		transferHits.Add(1)
	})

	api, _, notifier := newTestClient(t, mux)
	profile := NewProfileService(api, NewCache[models.UserProfile](clockwork.NewFakeClock()))
	svc := NewTransferService(api, NewCache[[]models.Transfer](clockwork.NewFakeClock()), profile)

	// Shape checks are purely local, so a malformed intent must resolve
	// before any request leaves the client, including the profile fetch
	// that backs the balance guard.
	_, err := svc.Create(context.Background(), models.CryptoBitcoin, "-1", "friend@example.com")
	var vErr *ValidationError
	if !errors.As(err, &vErr) || vErr.Field != "amount" {
		t.Fatalf("err = %v, want amount validation", err)
	}
	if profileHits.Load() != 0 {
		t.Error("a shape-invalid transfer must not fetch the profile")
	}
	if transferHits.Load() != 0 {
		t.Error("a shape-invalid transfer must never reach the network")
	}
	if notifier.count() != 1 {
		t.Errorf("got %d notifications, want 1", notifier.count())
	}
}

func TestTransferCreateRejectsLocallyWithoutNetworkCall(t *testing.T) {
	var transferHits atomic.Int32
	mux := http.NewServeMux()
	mux.HandleFunc("/api/user/profile", func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]any{"bitcoin_balance": "0.01", "ethereum_balance": "0"})
	})
	mux.HandleFunc("/api/transfers/create", func(w http.ResponseWriter, r *http.Request) {
		transferHits.Add(1)
	})

	api, _, notifier := newTestClient(t, mux)
	profile := NewProfileService(api, NewCache[models.UserProfile](clockwork.NewFakeClock()))
	svc := NewTransferService(api, NewCache[[]models.Transfer](clockwork.NewFakeClock()), profile)

	_, err := svc.Create(context.Background(), models.CryptoBitcoin, "0.02", "friend@example.com")
	var vErr *ValidationError
	if !errors.As(err, &vErr) {
		t.Fatalf("err = %v, want *ValidationError", err)
	}
	if transferHits.Load() != 0 {
		t.Error("a locally rejected transfer must never reach the network")
	}
	if notifier.count() != 1 || notifier.last() != "amount: Insufficient Bitcoin balance" {
		t.Errorf("notifications = %d (%q), want exactly one balance message", notifier.count(), notifier.last())
	}
}

func TestTransferCreateInvalidatesCachesOnSuccess(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/api/user/profile", func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]any{"bitcoin_balance": "1", "ethereum_balance": "0"})
	})
	mux.HandleFunc("/api/user/transfers", func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode([]map[string]any{})
	})
	mux.HandleFunc("/api/transfers/create", func(w http.ResponseWriter, r *http.Request) {
		var req models.TransferCreateRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Errorf("decode create request: %v", err)
		}
		if req.ToEmail != "friend@example.com" || req.ToUserID != "" {
			t.Errorf("request routed to (email=%q, user_id=%q)", req.ToEmail, req.ToUserID)
		}
		json.NewEncoder(w).Encode(map[string]any{"id": 1, "amount": "0.1"})
	})

	api, _, _ := newTestClient(t, mux)
	profileCache := NewCache[models.UserProfile](clockwork.NewFakeClock())
	transferCache := NewCache[[]models.Transfer](clockwork.NewFakeClock())
	profile := NewProfileService(api, profileCache)
	svc := NewTransferService(api, transferCache, profile)

	if _, err := svc.List(context.Background()); err != nil {
		t.Fatalf("List: %v", err)
	}

	if _, err := svc.Create(context.Background(), models.CryptoBitcoin, "0.1", "friend@example.com"); err != nil {
		t.Fatalf("Create: %v", err)
	}

	if !transferCache.IsStale(transfersCacheKey) {
		t.Error("transfers cache must be invalidated after a successful transfer")
	}
	if !profileCache.IsStale(profileCacheKey) {
		t.Error("profile cache must be invalidated after a successful transfer")
	}
}
