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

func newWithdrawalService(t *testing.T, mux *http.ServeMux) (*WithdrawalService, *Cache[[]models.Withdrawal], *Cache[models.UserProfile], *recordingNotifier) {
	t.Helper()
	api, _, notifier := newTestClient(t, mux)
	profileCache := NewCache[models.UserProfile](clockwork.NewFakeClock())
	withdrawalCache := NewCache[[]models.Withdrawal](clockwork.NewFakeClock())
	profile := NewProfileService(api, profileCache)
	return NewWithdrawalService(api, withdrawalCache, profile), withdrawalCache, profileCache, notifier
}

func profileHandler(bitcoin, ethereum string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]any{"bitcoin_balance": bitcoin, "ethereum_balance": ethereum})
	}
}

func TestWithdrawalCreateValidatesLocally(t *testing.T) {
	var hits atomic.Int32
	mux := http.NewServeMux()
	mux.HandleFunc("/api/user/profile", profileHandler("0.01", "0"))
	mux.HandleFunc("/api/withdrawals/create", func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
	})

	svc, _, _, notifier := newWithdrawalService(t, mux)
	ctx := context.Background()

	var vErr *ValidationError
	if _, err := svc.Create(ctx, models.CryptoBitcoin, "0", "bc1qaddr"); !errors.As(err, &vErr) || vErr.Field != "amount" {
		t.Errorf("zero amount: err = %v", err)
	}
	if _, err := svc.Create(ctx, models.CryptoBitcoin, "0.005", "  "); !errors.As(err, &vErr) || vErr.Field != "wallet_address" {
		t.Errorf("blank wallet: err = %v", err)
	}
	if _, err := svc.Create(ctx, models.CryptoBitcoin, "0.02", "bc1qaddr"); !errors.As(err, &vErr) || vErr.Reason != "Insufficient Bitcoin balance" {
		t.Errorf("over balance: err = %v", err)
	}
	if hits.Load() != 0 {
		t.Error("a locally rejected withdrawal must never reach the network")
	}
	if notifier.count() != 3 {
		t.Errorf("got %d notifications, want one per rejection", notifier.count())
	}
}

func TestWithdrawalCreateShapeErrorSkipsProfileFetch(t *testing.T) {
	var profileHits atomic.Int32
	mux := http.NewServeMux()
	mux.HandleFunc("/api/user/profile", func(w http.ResponseWriter, r *http.Request) {
		profileHits.Add(1)
		profileHandler("1", "0")(w, r)
	})

	svc, _, _, _ := newWithdrawalService(t, mux)

	// The amount and wallet checks are purely local, so they must resolve
	// before the balance guard ever fetches the profile.
	var vErr *ValidationError
	if _, err := svc.Create(context.Background(), models.CryptoBitcoin, "-1", ""); !errors.As(err, &vErr) || vErr.Field != "amount" {
		t.Fatalf("err = %v, want amount validation", err)
	}
	if profileHits.Load() != 0 {
		t.Error("a shape-invalid withdrawal must not fetch the profile")
	}
}

func TestWithdrawalCreateInvalidatesCaches(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/api/user/profile", profileHandler("1", "0"))
	mux.HandleFunc("/api/user/withdrawals", func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode([]map[string]any{})
	})
	mux.HandleFunc("/api/withdrawals/create", func(w http.ResponseWriter, r *http.Request) {
		var req models.WithdrawalCreateRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Errorf("decode create request: %v", err)
		}
		if req.WalletAddress != "bc1qaddr" {
			t.Errorf("wallet = %q", req.WalletAddress)
		}
		json.NewEncoder(w).Encode(map[string]any{"id": 1, "status": "pending"})
	})

	svc, withdrawalCache, profileCache, _ := newWithdrawalService(t, mux)
	ctx := context.Background()

	if _, err := svc.List(ctx); err != nil {
		t.Fatalf("List: %v", err)
	}
	created, err := svc.Create(ctx, models.CryptoBitcoin, "0.1", "bc1qaddr")
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if created.Status != "pending" {
		t.Errorf("created status = %q", created.Status)
	}
	if !withdrawalCache.IsStale(withdrawalsCacheKey) {
		t.Error("withdrawals cache must be invalidated after a create")
	}
	if !profileCache.IsStale(profileCacheKey) {
		t.Error("profile cache must be invalidated after a create")
	}
}
