package types

import (
	"context"
	"time"
)

type PaymentStore interface {
	// CreatePayment inserts a pending payment and fills in ID and CreatedAt.
	CreatePayment(ctx context.Context, p *Payment) error
	PaymentStatusByTransactionID(ctx context.Context, transactionID string) (PaymentStatus, error)
}

// PaymentLink is a checkout URL already issued to a user for a plan.
type PaymentLink struct {
	TransactionID string    `json:"transaction_id"`
	PaymentURL    string    `json:"payment_url"`
	PlanID        PlanID    `json:"plan_id"`
	IssuedAt      time.Time `json:"issued_at"`
}

type LinkStore interface {
	GetLink(ctx context.Context, telegramID int64, planID PlanID) (*PaymentLink, error)
	SaveLink(ctx context.Context, telegramID int64, link PaymentLink) error
	DeleteLink(ctx context.Context, telegramID int64, planID PlanID) error
}
