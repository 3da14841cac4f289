package services

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/shopspring/decimal"

	"crypto-mining-client/models"
)

const withdrawalsCacheKey = "user/withdrawals"

// WithdrawalService lists withdrawal requests and creates new ones, with
// the same optimistic balance guard as transfers.
type WithdrawalService struct {
	api     *APIClient
	cache   *Cache[[]models.Withdrawal]
	profile *ProfileService
}

func NewWithdrawalService(api *APIClient, cache *Cache[[]models.Withdrawal], profile *ProfileService) *WithdrawalService {
	return &WithdrawalService{api: api, cache: cache, profile: profile}
}

// List returns all withdrawals for the current user, newest first.
func (s *WithdrawalService) List(ctx context.Context) ([]models.Withdrawal, error) {
	return s.cache.Fetch(ctx, withdrawalsCacheKey, func(ctx context.Context) ([]models.Withdrawal, error) {
		return Call[[]models.Withdrawal](ctx, s.api, http.MethodGet, "/api/user/withdrawals", nil, true)
	})
}

// Create validates the withdrawal intent locally, submits it, and on
// success invalidates the withdrawals and profile caches. The ledger
// deducts the balance immediately on creation.
func (s *WithdrawalService) Create(ctx context.Context, crypto models.CryptoType, amount, walletAddress string) (models.Withdrawal, error) {
	payload, err := s.buildRequest(ctx, crypto, amount, walletAddress)
	if err != nil {
		var vErr *ValidationError
		if errors.As(err, &vErr) && s.api.Notifier != nil {
			s.api.Notifier.Notify(NotifyError, err.Error())
		}
		return models.Withdrawal{}, err
	}

	created, err := Call[models.Withdrawal](ctx, s.api, http.MethodPost, "/api/withdrawals/create", payload, true)
	if err != nil {
		return models.Withdrawal{}, err
	}

	s.cache.Invalidate(withdrawalsCacheKey)
	s.profile.Invalidate()
	return created, nil
}

func (s *WithdrawalService) buildRequest(ctx context.Context, crypto models.CryptoType, amount, walletAddress string) (models.WithdrawalCreateRequest, error) {
	var req models.WithdrawalCreateRequest

	value, err := decimal.NewFromString(strings.TrimSpace(amount))
	if err != nil || !value.IsPositive() {
		return req, newValidationError("amount", "amount must be a positive number")
	}
	walletAddress = strings.TrimSpace(walletAddress)
	if walletAddress == "" {
		return req, newValidationError("wallet_address", "wallet address is required")
	}

	available, err := s.profile.AvailableBalance(ctx, crypto)
	if err != nil {
		return req, err
	}
	if value.GreaterThan(available) {
		return req, newValidationError("amount", "Insufficient "+crypto.DisplayName()+" balance")
	}

	return models.WithdrawalCreateRequest{
		CryptoType:    crypto,
		Amount:        value,
		WalletAddress: walletAddress,
	}, nil
}
