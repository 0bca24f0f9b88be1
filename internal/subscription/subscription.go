package subscription

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/BatmanBruc/sub-pay-bot/types"
)

// IsActive reports whether sub grants access at now: it must exist, be flagged
// active and expire strictly after now.
func IsActive(sub *types.Subscription, now time.Time) bool {
	if sub == nil || !sub.IsActive {
		return false
	}
	return sub.ExpiresAt.After(now)
}

// NextExpiry extends from the later of now and the current expiry, so unused
// time is never lost and a lapsed subscription restarts from now.
func NextExpiry(current *time.Time, now time.Time, period time.Duration) time.Time {
	base := now
	if current != nil && current.After(base) {
		base = *current
	}
	return base.Add(period)
}

type Service struct {
	users types.UserStore
	subs  types.SubscriptionStore
	now   func() time.Time
}

func NewService(users types.UserStore, subs types.SubscriptionStore) *Service {
	return &Service{
		users: users,
		subs:  subs,
		now:   func() time.Time { return time.Now().UTC() },
	}
}

// Latest returns the subscription with the furthest expiry for a Telegram user,
// or nil when the user or the subscription does not exist.
func (s *Service) Latest(ctx context.Context, telegramID int64) (*types.Subscription, error) {
	user, err := s.users.GetUserByTelegramID(ctx, telegramID)
	if errors.Is(err, types.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get user %d: %w", telegramID, err)
	}
	return s.LatestForUser(ctx, user.ID)
}

func (s *Service) LatestForUser(ctx context.Context, userID int64) (*types.Subscription, error) {
	sub, err := s.subs.LatestSubscription(ctx, userID)
	if errors.Is(err, types.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("latest subscription for user %d: %w", userID, err)
	}
	return sub, nil
}

// Active returns the user's latest subscription when it currently grants access.
func (s *Service) Active(ctx context.Context, telegramID int64) (*types.Subscription, bool, error) {
	sub, err := s.Latest(ctx, telegramID)
	if err != nil {
		return nil, false, err
	}
	return sub, IsActive(sub, s.now()), nil
}
