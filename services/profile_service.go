package services

import (
	"context"
	"net/http"

	"github.com/shopspring/decimal"

	"crypto-mining-client/models"
)

const profileCacheKey = "user/profile"

// ProfileService owns the profile cache. The profile refetches on demand
// and whenever a mutation that can change balances invalidates it; it is
// never polled.
type ProfileService struct {
	api   *APIClient
	cache *Cache[models.UserProfile]
}

func NewProfileService(api *APIClient, cache *Cache[models.UserProfile]) *ProfileService {
	return &ProfileService{api: api, cache: cache}
}

// Profile returns the cached profile, fetching when absent or invalidated.
func (s *ProfileService) Profile(ctx context.Context) (models.UserProfile, error) {
	return s.cache.Fetch(ctx, profileCacheKey, func(ctx context.Context) (models.UserProfile, error) {
		return Call[models.UserProfile](ctx, s.api, http.MethodGet, "/api/user/profile", nil, true)
	})
}

// Cached returns the last known profile without touching the network.
func (s *ProfileService) Cached() (models.UserProfile, bool) {
	return s.cache.Get(profileCacheKey)
}

// AvailableBalance returns the locally cached balance for the asset,
// fetching the profile first when no snapshot exists. This backs the
// optimistic guards in the mutation pipeline; the server stays
// authoritative.
func (s *ProfileService) AvailableBalance(ctx context.Context, crypto models.CryptoType) (decimal.Decimal, error) {
	if p, ok := s.Cached(); ok {
		return p.Balance(crypto), nil
	}
	p, err := s.Profile(ctx)
	if err != nil {
		return decimal.Zero, err
	}
	return p.Balance(crypto), nil
}

// Invalidate marks the profile stale. Callers that just mutated balances
// (transfer, deposit, withdrawal, session stop) go through here.
func (s *ProfileService) Invalidate() {
	s.cache.Invalidate(profileCacheKey)
}
