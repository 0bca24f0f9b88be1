// Package billing issues payment links for subscription plans.
package billing

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/BatmanBruc/sub-pay-bot/internal/lava"
	"github.com/BatmanBruc/sub-pay-bot/internal/plans"
	"github.com/BatmanBruc/sub-pay-bot/types"
	"github.com/shopspring/decimal"
)

var ErrUnsupportedPlan = fmt.Errorf("unsupported plan_id: %w", types.ErrValidation)

// ErrTransactionConflict means the provider handed back a transaction id that
// is already stored. The caller can retry with a fresh invoice.
var ErrTransactionConflict = fmt.Errorf("payment link conflict, try again: %w", lava.ErrGateway)

type Gateway interface {
	CreatePayment(ctx context.Context, amount decimal.Decimal, userID int64, description string) (*lava.PaymentLink, error)
}

type Request struct {
	TelegramID int64
	Username   string
	PlanID     types.PlanID
}

type Link struct {
	PaymentURL    string
	PlanID        types.PlanID
	TransactionID string
	Reused        bool
}

type Config struct {
	Currency string
	LinkTTL  time.Duration
}

type Service struct {
	users    types.UserStore
	payments types.PaymentStore
	links    types.LinkStore
	gateway  Gateway
	plans    *plans.Catalog
	cfg      Config
	log      *slog.Logger
	now      func() time.Time
}

// NewService wires the payment creation flow. links may be nil, in which case
// every request creates a new invoice.
func NewService(users types.UserStore, payments types.PaymentStore, links types.LinkStore, gateway Gateway, catalog *plans.Catalog, cfg Config, logger *slog.Logger) *Service {
	if cfg.Currency == "" {
		cfg.Currency = types.CurrencyRUB
	}
	if cfg.LinkTTL <= 0 {
		cfg.LinkTTL = 10 * time.Minute
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{
		users:    users,
		payments: payments,
		links:    links,
		gateway:  gateway,
		plans:    catalog,
		cfg:      cfg,
		log:      logger.With("component", "billing"),
		now:      func() time.Time { return time.Now().UTC() },
	}
}

func (s *Service) Plans() []plans.Plan {
	return s.plans.All()
}

// CreatePaymentLink returns a checkout URL for the plan. Nothing is persisted
// when the gateway call fails.
func (s *Service) CreatePaymentLink(ctx context.Context, req Request) (*Link, error) {
	if req.TelegramID <= 0 {
		return nil, fmt.Errorf("telegram_id must be positive: %w", types.ErrValidation)
	}
	plan, err := s.plans.Lookup(req.PlanID)
	if err != nil {
		return nil, ErrUnsupportedPlan
	}

	user, err := s.users.UpsertUser(ctx, req.TelegramID, req.Username)
	if err != nil {
		return nil, fmt.Errorf("upsert user %d: %w", req.TelegramID, err)
	}

	if link := s.reusableLink(ctx, req.TelegramID, plan.ID); link != nil {
		return link, nil
	}

	invoice, err := s.gateway.CreatePayment(ctx, plan.Price, user.ID, fmt.Sprintf("%s subscription", plan.ID))
	if err != nil {
		s.log.Error("invoice creation failed", "user_id", user.ID, "plan_id", string(plan.ID), "error", err)
		return nil, fmt.Errorf("create invoice: %w", err)
	}

	payment := &types.Payment{
		UserID:        user.ID,
		Amount:        plan.Price,
		Currency:      s.cfg.Currency,
		TransactionID: invoice.TransactionID,
		Status:        types.PaymentPending,
		PlanID:        plan.ID,
	}
	if err := s.payments.CreatePayment(ctx, payment); err != nil {
		if errors.Is(err, types.ErrDuplicate) {
			s.log.Warn("provider returned a known transaction id", "user_id", user.ID, "transaction_id", invoice.TransactionID)
			return nil, fmt.Errorf("%w: %s", ErrTransactionConflict, invoice.TransactionID)
		}
		return nil, fmt.Errorf("save payment %s: %w", invoice.TransactionID, err)
	}
	s.log.Info("payment created",
		"payment_id", payment.ID,
		"user_id", user.ID,
		"plan_id", string(plan.ID),
		"transaction_id", invoice.TransactionID,
		"amount", plan.Price.StringFixed(2),
	)

	if s.links != nil {
		cached := types.PaymentLink{
			TransactionID: invoice.TransactionID,
			PaymentURL:    invoice.PaymentURL,
			PlanID:        plan.ID,
			IssuedAt:      s.now(),
		}
		if err := s.links.SaveLink(ctx, req.TelegramID, cached); err != nil {
			s.log.Warn("payment link not cached", "telegram_id", req.TelegramID, "error", err)
		}
	}

	return &Link{
		PaymentURL:    invoice.PaymentURL,
		PlanID:        plan.ID,
		TransactionID: invoice.TransactionID,
	}, nil
}

// reusableLink returns a recently issued link whose payment is still pending.
// Cache failures only cost a new invoice.
func (s *Service) reusableLink(ctx context.Context, telegramID int64, planID types.PlanID) *Link {
	if s.links == nil {
		return nil
	}
	cached, err := s.links.GetLink(ctx, telegramID, planID)
	if err != nil {
		if !errors.Is(err, types.ErrNotFound) {
			s.log.Warn("payment link cache read failed", "telegram_id", telegramID, "error", err)
		}
		return nil
	}
	if s.now().Sub(cached.IssuedAt) > s.cfg.LinkTTL {
		return nil
	}
	status, err := s.payments.PaymentStatusByTransactionID(ctx, cached.TransactionID)
	if err != nil || status != types.PaymentPending {
		if err := s.links.DeleteLink(ctx, telegramID, planID); err != nil {
			s.log.Warn("payment link cache delete failed", "telegram_id", telegramID, "error", err)
		}
		return nil
	}
	return &Link{
		PaymentURL:    cached.PaymentURL,
		PlanID:        planID,
		TransactionID: cached.TransactionID,
		Reused:        true,
	}
}
