package services

import (
	"context"
	"net/http"
	"strings"

	"github.com/shopspring/decimal"

	"crypto-mining-client/models"
)

const transfersCacheKey = "user/transfers"

// TransferService lists settled transfers and creates new ones. Transfers
// are immutable once created, so the cache refetches only on demand and
// after a transfer mutation, never on a timer.
type TransferService struct {
	api     *APIClient
	cache   *Cache[[]models.Transfer]
	profile *ProfileService
}

func NewTransferService(api *APIClient, cache *Cache[[]models.Transfer], profile *ProfileService) *TransferService {
	return &TransferService{api: api, cache: cache, profile: profile}
}

// List returns all transfers involving the current user, newest first.
func (s *TransferService) List(ctx context.Context) ([]models.Transfer, error) {
	return s.cache.Fetch(ctx, transfersCacheKey, func(ctx context.Context) ([]models.Transfer, error) {
		return Call[[]models.Transfer](ctx, s.api, http.MethodGet, "/api/user/transfers", nil, true)
	})
}

// Create validates the transfer intent locally before touching the
// network, submits it, and on success invalidates the transfers and
// profile caches. On failure no cache is touched and the gateway's error
// is returned unchanged.
func (s *TransferService) Create(ctx context.Context, crypto models.CryptoType, amount, recipient string) (models.Transfer, error) {
	payload, err := BuildTransferRequest(crypto, amount, recipient)
	if err != nil {
		if s.api.Notifier != nil {
			s.api.Notifier.Notify(NotifyError, err.Error())
		}
		return models.Transfer{}, err
	}

	// The balance guard comes after the shape checks because resolving
	// the balance may need a profile fetch. Optimistic only: the server
	// may still reject if the balance moved since the last refresh.
	available, err := s.profile.AvailableBalance(ctx, crypto)
	if err != nil {
		return models.Transfer{}, err
	}
	if payload.Amount.GreaterThan(available) {
		err := newValidationError("amount", "Insufficient "+crypto.DisplayName()+" balance")
		if s.api.Notifier != nil {
			s.api.Notifier.Notify(NotifyError, err.Error())
		}
		return models.Transfer{}, err
	}

	created, err := Call[models.Transfer](ctx, s.api, http.MethodPost, "/api/transfers/create", payload, true)
	if err != nil {
		return models.Transfer{}, err
	}

	s.cache.Invalidate(transfersCacheKey)
	s.profile.Invalidate()
	return created, nil
}

// Invalidate marks the transfers cache stale (e.g. after an incoming
// transfer is noticed through a profile refresh).
func (s *TransferService) Invalidate() {
	s.cache.Invalidate(transfersCacheKey)
}

// BuildTransferRequest runs the purely local transfer pre-flight checks in
// their fixed order (amount shape, then recipient presence and shape) and
// resolves the recipient onto exactly one of to_email / to_user_id. The
// first failing check wins. The balance guard lives in Create because it
// needs the profile.
func BuildTransferRequest(crypto models.CryptoType, amount, recipient string) (models.TransferCreateRequest, error) {
	var req models.TransferCreateRequest

	value, err := decimal.NewFromString(strings.TrimSpace(amount))
	if err != nil || !value.IsPositive() {
		return req, newValidationError("amount", "amount must be a positive number")
	}

	recipient = strings.TrimSpace(recipient)
	if recipient == "" {
		return req, newValidationError("recipient", "recipient is required")
	}

	req = models.TransferCreateRequest{CryptoType: crypto, Amount: value}
	switch {
	case strings.Contains(recipient, "@"):
		if !strings.Contains(recipient, ".") {
			return models.TransferCreateRequest{}, newValidationError("recipient", "invalid email address")
		}
		req.ToEmail = recipient
	case isAllDigits(recipient):
		req.ToUserID = recipient
	default:
		return models.TransferCreateRequest{}, newValidationError("recipient", "recipient must be an email address or a numeric account ID")
	}

	return req, nil
}

func isAllDigits(s string) bool {
	if s == "" {
		return false
	}
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}
