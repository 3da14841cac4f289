package services

import (
	"context"
	"fmt"
	"net/http"

	"crypto-mining-client/models"
)

const miningCacheKey = "mining/live-progress"

// MiningService keeps the live-progress snapshot fresh and drives session
// state transitions. Mined amounts accrue continuously server-side, so
// this is the only cache refreshed on a standing 5s poll.
type MiningService struct {
	api     *APIClient
	cache   *Cache[models.LiveProgress]
	profile *ProfileService
}

func NewMiningService(api *APIClient, cache *Cache[models.LiveProgress], profile *ProfileService) *MiningService {
	return &MiningService{api: api, cache: cache, profile: profile}
}

// LiveProgress returns the cached snapshot, fetching when absent or stale.
func (s *MiningService) LiveProgress(ctx context.Context) (models.LiveProgress, error) {
	return s.cache.Fetch(ctx, miningCacheKey, s.fetch)
}

// Poll forces a refetch; the 5s poll worker calls this every tick. A late
// response racing a mutation's invalidation is dropped by the cache.
func (s *MiningService) Poll(ctx context.Context) error {
	_, err := s.cache.Refresh(ctx, miningCacheKey, s.fetch)
	return err
}

// Cached returns the last known snapshot without touching the network.
func (s *MiningService) Cached() (models.LiveProgress, bool) {
	return s.cache.Get(miningCacheKey)
}

func (s *MiningService) fetch(ctx context.Context) (models.LiveProgress, error) {
	// Live progress also credits accrued rewards to the profile balance
	// server-side, hence POST rather than GET.
	return Call[models.LiveProgress](ctx, s.api, http.MethodPost, "/api/mining/live-progress", nil, true)
}

// Pause requests Active → Paused for the session.
func (s *MiningService) Pause(ctx context.Context, sessionID int) error {
	return s.transition(ctx, sessionID, models.ActionPause)
}

// Resume requests Paused → Active for the session.
func (s *MiningService) Resume(ctx context.Context, sessionID int) error {
	return s.transition(ctx, sessionID, models.ActionResume)
}

// Stop requests {Active, Paused} → Stopped. Stopping is irreversible and
// credits the accrued reward to the profile balance, so the caller must
// pass an explicit confirmation.
func (s *MiningService) Stop(ctx context.Context, sessionID int, confirmed bool) error {
	if !confirmed {
		return newValidationError("confirm", "stopping a mining session is irreversible and must be confirmed")
	}
	if err := s.transition(ctx, sessionID, models.ActionStop); err != nil {
		return err
	}
	// Stop credits the reward; the profile's truth changed too.
	s.profile.Invalidate()
	return nil
}

func (s *MiningService) transition(ctx context.Context, sessionID int, action models.SessionAction) error {
	if snap, ok := s.Cached(); ok {
		if sess, found := snap.Session(sessionID); found && !sess.Status.Allows(action) {
			// Known-impossible transition: reject before the round trip.
			// Repeat clicks before the cache refreshes land here instead
			// of producing a second semantically different request.
			return newValidationError("status", fmt.Sprintf("cannot %s a %s session", action, sess.Status))
		}
	}

	path := fmt.Sprintf("/api/mining/%d/%s", sessionID, action)
	if _, err := s.api.Do(ctx, http.MethodPut, path, nil, true); err != nil {
		return err
	}
	s.cache.Invalidate(miningCacheKey)
	return nil
}
