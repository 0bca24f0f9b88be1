package store

import (
	"context"
	"strconv"
	"time"

	"github.com/BatmanBruc/sub-pay-bot/types"
)

// RedisLinkStore remembers the last payment link issued per user and plan so
// repeated /pay taps reuse a pending invoice instead of creating new ones.
type RedisLinkStore struct {
	client *RedisClient
	ttl    time.Duration
}

func NewRedisLinkStore(redisClient *RedisClient, ttl time.Duration) *RedisLinkStore {
	if ttl <= 0 {
		ttl = 10 * time.Minute
	}

	return &RedisLinkStore{
		client: redisClient,
		ttl:    ttl,
	}
}

func (s *RedisLinkStore) key(telegramID int64, planID types.PlanID) string {
	return s.client.generateKey("payment_link", strconv.FormatInt(telegramID, 10), string(planID))
}

func (s *RedisLinkStore) GetLink(ctx context.Context, telegramID int64, planID types.PlanID) (*types.PaymentLink, error) {
	var link types.PaymentLink
	if err := s.client.Get(ctx, s.key(telegramID, planID), &link); err != nil {
		return nil, err
	}
	return &link, nil
}

func (s *RedisLinkStore) SaveLink(ctx context.Context, telegramID int64, link types.PaymentLink) error {
	return s.client.Set(ctx, s.key(telegramID, link.PlanID), link, s.ttl)
}

func (s *RedisLinkStore) DeleteLink(ctx context.Context, telegramID int64, planID types.PlanID) error {
	return s.client.Del(ctx, s.key(telegramID, planID))
}
