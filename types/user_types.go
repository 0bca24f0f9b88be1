package types

import (
	"context"
	"time"

	"github.com/shopspring/decimal"
)

type User struct {
	ID         int64
	TelegramID int64
	Username   string
	CreatedAt  time.Time
}

type Subscription struct {
	ID        int64
	UserID    int64
	PlanID    PlanID
	ExpiresAt time.Time
	IsActive  bool
	CreatedAt time.Time
	UpdatedAt time.Time
}

type Payment struct {
	ID            int64
	UserID        int64
	Amount        decimal.Decimal
	Currency      string
	TransactionID string
	Status        PaymentStatus
	PlanID        PlanID
	CreatedAt     time.Time
}

type UserStore interface {
	// UpsertUser creates the user on first sight and refreshes a non-empty username.
	UpsertUser(ctx context.Context, telegramID int64, username string) (*User, error)
	GetUserByTelegramID(ctx context.Context, telegramID int64) (*User, error)
}

type SubscriptionStore interface {
	// LatestSubscription returns the user's subscription with the furthest expiry, or ErrNotFound.
	LatestSubscription(ctx context.Context, userID int64) (*Subscription, error)
}

// SuccessNotice tells a user that a payment extended their access.
type SuccessNotice struct {
	TelegramID int64
	PlanID     PlanID
	ExpiresAt  time.Time
}
