package services

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"mime"
	"mime/multipart"
	"net/http"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/jonboulle/clockwork"
	"github.com/shopspring/decimal"

	"crypto-mining-client/models"
)

func newDepositService(t *testing.T, mux *http.ServeMux) (*DepositService, *Cache[[]models.Deposit], *Cache[models.UserProfile]) {
	t.Helper()
	api, _, _ := newTestClient(t, mux)
	profileCache := NewCache[models.UserProfile](clockwork.NewFakeClock())
	depositsCache := NewCache[[]models.Deposit](clockwork.NewFakeClock())
	profile := NewProfileService(api, profileCache)
	svc := NewDepositService(api,
		depositsCache,
		NewCache[models.DepositInfo](clockwork.NewFakeClock()),
		NewCache[models.CryptoRates](clockwork.NewFakeClock()),
		profile)
	return svc, depositsCache, profileCache
}

func TestConvertAppliesServerResult(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/api/deposits/convert", func(w http.ResponseWriter, r *http.Request) {
		var req models.ConvertRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Errorf("decode convert request: %v", err)
		}
		if req.Amount == nil || req.USDAmount != nil {
			t.Errorf("request = %+v, want crypto amount only", req)
		}
		// The server owns the rate; the client never multiplies locally.
		json.NewEncoder(w).Encode(map[string]any{
			"crypto_type":   "bitcoin",
			"crypto_amount": "0.001",
			"usd_amount":    "60.00",
		})
	})

	svc, _, _ := newDepositService(t, mux)
	got, err := svc.ConvertFromCrypto(context.Background(), models.CryptoBitcoin, decimal.RequireFromString("0.001"))
	if err != nil {
		t.Fatalf("ConvertFromCrypto: %v", err)
	}
	if !got.USDAmount.Equal(decimal.RequireFromString("60.00")) {
		t.Errorf("USDAmount = %s, want 60.00", got.USDAmount)
	}
}

func TestConvertRejectsNonPositiveAmount(t *testing.T) {
	svc, _, _ := newDepositService(t, http.NewServeMux())
	var vErr *ValidationError
	if _, err := svc.ConvertFromCrypto(context.Background(), models.CryptoBitcoin, decimal.Zero); !errors.As(err, &vErr) {
		t.Errorf("err = %v, want *ValidationError", err)
	}
	if _, err := svc.ConvertFromUSD(context.Background(), models.CryptoBitcoin, decimal.RequireFromString("-5")); !errors.As(err, &vErr) {
		t.Errorf("err = %v, want *ValidationError", err)
	}
}

func TestDepositCreateRequiresExactlyOneAmount(t *testing.T) {
	var hits atomic.Int32
	mux := http.NewServeMux()
	mux.HandleFunc("/api/deposits/create", func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
	})

	svc, _, _ := newDepositService(t, mux)
	amount := decimal.RequireFromString("0.001")
	usd := decimal.RequireFromString("60")

	var vErr *ValidationError
	if _, err := svc.Create(context.Background(), models.CryptoBitcoin, nil, nil, ""); !errors.As(err, &vErr) {
		t.Errorf("neither amount: err = %v, want *ValidationError", err)
	}
	if _, err := svc.Create(context.Background(), models.CryptoBitcoin, &amount, &usd, ""); !errors.As(err, &vErr) {
		t.Errorf("both amounts: err = %v, want *ValidationError", err)
	}
	if hits.Load() != 0 {
		t.Error("a locally rejected create must not reach the network")
	}
}

func TestDepositCreateInvalidatesCaches(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/api/user/deposits", func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode([]map[string]any{})
	})
	mux.HandleFunc("/api/deposits/create", func(w http.ResponseWriter, r *http.Request) {
		var req models.DepositCreateRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Errorf("decode create request: %v", err)
		}
		if req.Amount == nil || req.USDAmount != nil {
			t.Errorf("request = %+v, want crypto amount only", req)
		}
		json.NewEncoder(w).Encode(map[string]any{"deposit_id": 3, "message": "Deposit created"})
	})

	svc, depositsCache, profileCache := newDepositService(t, mux)
	if _, err := svc.List(context.Background()); err != nil {
		t.Fatalf("List: %v", err)
	}
	profileCache.Fetch(context.Background(), profileCacheKey, func(ctx context.Context) (models.UserProfile, error) {
		return models.UserProfile{}, nil
	})

	amount := decimal.RequireFromString("0.001")
	if _, err := svc.Create(context.Background(), models.CryptoBitcoin, &amount, nil, "0xabc"); err != nil {
		t.Fatalf("Create: %v", err)
	}
	if !depositsCache.IsStale(depositsCacheKey) {
		t.Error("deposits cache must be invalidated after a create")
	}
	if !profileCache.IsStale(profileCacheKey) {
		t.Error("profile cache must be invalidated after a create")
	}
}

func depositListHandler(status models.DepositStatus) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode([]map[string]any{
			{"id": 3, "crypto_type": "bitcoin", "status": string(status)},
		})
	}
}

func TestUploadEvidenceOnlyForPendingDeposits(t *testing.T) {
	var hits atomic.Int32
	mux := http.NewServeMux()
	mux.HandleFunc("/api/user/deposits", depositListHandler(models.DepositConfirmed))
	mux.HandleFunc("/api/deposits/3/upload-evidence", func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
	})

	svc, _, _ := newDepositService(t, mux)
	_, err := svc.UploadEvidence(context.Background(), 3, "receipt.png", "image/png", strings.NewReader("png-bytes"))
	var vErr *ValidationError
	if !errors.As(err, &vErr) {
		t.Fatalf("err = %v, want *ValidationError", err)
	}
	if hits.Load() != 0 {
		t.Error("evidence for a confirmed deposit must never be uploaded")
	}
}

func TestUploadEvidenceSendsMultipartFile(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/api/user/deposits", depositListHandler(models.DepositPending))
	mux.HandleFunc("/api/deposits/3/upload-evidence", func(w http.ResponseWriter, r *http.Request) {
		mediaType, params, err := mime.ParseMediaType(r.Header.Get("Content-Type"))
		if err != nil || mediaType != "multipart/form-data" {
			t.Errorf("Content-Type = %q: %v", r.Header.Get("Content-Type"), err)
			return
		}
		reader := multipart.NewReader(r.Body, params["boundary"])
		part, err := reader.NextPart()
		if err != nil {
			t.Errorf("read part: %v", err)
			return
		}
		if part.FormName() != "evidence_file" || part.FileName() != "receipt.png" {
			t.Errorf("part = (%q, %q), want evidence_file/receipt.png", part.FormName(), part.FileName())
		}
		if ct := part.Header.Get("Content-Type"); ct != "image/png" {
			t.Errorf("part Content-Type = %q, want image/png", ct)
		}
		content, _ := io.ReadAll(part)
		if string(content) != "png-bytes" {
			t.Errorf("part content = %q", content)
		}
		json.NewEncoder(w).Encode(map[string]any{"message": "ok", "evidence_url": "/uploads/receipt.png"})
	})

	svc, depositsCache, _ := newDepositService(t, mux)
	result, err := svc.UploadEvidence(context.Background(), 3, "receipt.png", "image/png", strings.NewReader("png-bytes"))
	if err != nil {
		t.Fatalf("UploadEvidence: %v", err)
	}
	if result.EvidenceURL != "/uploads/receipt.png" {
		t.Errorf("EvidenceURL = %q", result.EvidenceURL)
	}
	if !depositsCache.IsStale(depositsCacheKey) {
		t.Error("deposits cache must be invalidated after an upload")
	}
}

func TestSubmitOnlyForPendingDeposits(t *testing.T) {
	var hits atomic.Int32
	mux := http.NewServeMux()
	mux.HandleFunc("/api/user/deposits", depositListHandler(models.DepositSubmitted))
	mux.HandleFunc("/api/deposits/3/submit", func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
	})

	svc, _, _ := newDepositService(t, mux)
	var vErr *ValidationError
	if err := svc.Submit(context.Background(), 3); !errors.As(err, &vErr) {
		t.Fatalf("err = %v, want *ValidationError", err)
	}
	if hits.Load() != 0 {
		t.Error("an already submitted deposit must not be resubmitted")
	}
}
