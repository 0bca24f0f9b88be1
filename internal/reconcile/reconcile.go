// Package reconcile applies payment provider notifications to payments and
// subscriptions exactly once.
//
// Every event runs in one transaction that locks the payment row by its
// transaction id before looking at its status. A payment that already reached
// a terminal status is acknowledged without any write, which makes repeated
// and concurrent deliveries of the same notification safe.
package reconcile

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/BatmanBruc/sub-pay-bot/internal/plans"
	"github.com/BatmanBruc/sub-pay-bot/internal/subscription"
	"github.com/BatmanBruc/sub-pay-bot/types"
)

type Result string

const (
	ResultSuccessProcessed Result = "success_processed"
	ResultFailedUpdated    Result = "failed_updated"
	ResultAlreadySuccess   Result = "already_success"
	ResultAlreadyFailed    Result = "already_failed"
	ResultIgnoredUnknown   Result = "ignored_unknown_status"
)

type Event struct {
	Status        string
	TransactionID string
}

type Outcome struct {
	Result       Result
	Idempotent   bool
	RawStatus    string
	PaymentID    int64
	UserID       int64
	Subscription *types.Subscription
}

// Tx is the set of row-locking operations available inside one transaction.
type Tx interface {
	// LockPaymentByTransactionID returns types.ErrNotFound when no payment matches.
	LockPaymentByTransactionID(ctx context.Context, transactionID string) (*types.Payment, error)
	SetPaymentStatus(ctx context.Context, paymentID int64, status types.PaymentStatus) error
	LockUser(ctx context.Context, userID int64) (*types.User, error)
	// LockSubscription returns types.ErrNotFound when the user has no row for the plan.
	LockSubscription(ctx context.Context, userID int64, planID types.PlanID) (*types.Subscription, error)
	CreateSubscription(ctx context.Context, sub *types.Subscription) error
	UpdateSubscription(ctx context.Context, sub *types.Subscription) error
}

type Store interface {
	// WithinTx commits when fn returns nil and rolls back otherwise.
	WithinTx(ctx context.Context, fn func(ctx context.Context, tx Tx) error) error
}

// Notifier receives success notices after commit. It must not block.
type Notifier interface {
	Notify(ctx context.Context, n types.SuccessNotice) error
}

type PlanLookup interface {
	Lookup(id types.PlanID) (plans.Plan, error)
}

type Reconciler struct {
	store    Store
	plans    PlanLookup
	notifier Notifier
	log      *slog.Logger
	now      func() time.Time
}

func New(store Store, catalog PlanLookup, notifier Notifier, logger *slog.Logger) *Reconciler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Reconciler{
		store:    store,
		plans:    catalog,
		notifier: notifier,
		log:      logger.With("component", "reconcile"),
		now:      func() time.Time { return time.Now().UTC() },
	}
}

func (r *Reconciler) Apply(ctx context.Context, ev Event) (Outcome, error) {
	txID := strings.TrimSpace(ev.TransactionID)
	if txID == "" {
		return Outcome{}, fmt.Errorf("missing transaction id: %w", types.ErrValidation)
	}
	status := strings.ToLower(strings.TrimSpace(ev.Status))

	var (
		out    Outcome
		notice *types.SuccessNotice
	)
	err := r.store.WithinTx(ctx, func(ctx context.Context, tx Tx) error {
		out = Outcome{RawStatus: status}
		notice = nil

		p, err := tx.LockPaymentByTransactionID(ctx, txID)
		if err != nil {
			return fmt.Errorf("lock payment %q: %w", txID, err)
		}
		out.PaymentID = p.ID
		out.UserID = p.UserID

		switch p.Status {
		case types.PaymentSuccess:
			out.Result, out.Idempotent = ResultAlreadySuccess, true
			return nil
		case types.PaymentFailed:
			out.Result, out.Idempotent = ResultAlreadyFailed, true
			return nil
		}

		switch Classify(status) {
		case ClassSuccess:
			n, err := r.applySuccess(ctx, tx, p, &out)
			if err != nil {
				return err
			}
			notice = n
		case ClassFailure:
			if err := tx.SetPaymentStatus(ctx, p.ID, types.PaymentFailed); err != nil {
				return fmt.Errorf("mark payment %d failed: %w", p.ID, err)
			}
			out.Result = ResultFailedUpdated
		default:
			out.Result = ResultIgnoredUnknown
		}
		return nil
	})
	if err != nil {
		if errors.Is(err, types.ErrNotFound) {
			r.log.Warn("payment not found", "transaction_id", txID, "status", status)
		} else {
			r.log.Error("reconcile failed", "transaction_id", txID, "status", status, "error", err)
		}
		return Outcome{}, err
	}

	r.log.Info("payment event applied",
		"transaction_id", txID,
		"payment_id", out.PaymentID,
		"user_id", out.UserID,
		"status", status,
		"result", string(out.Result),
	)

	if notice != nil && r.notifier != nil {
		if err := r.notifier.Notify(ctx, *notice); err != nil {
			r.log.Warn("success notice not delivered", "telegram_id", notice.TelegramID, "error", err)
		}
	}
	return out, nil
}

func (r *Reconciler) applySuccess(ctx context.Context, tx Tx, p *types.Payment, out *Outcome) (*types.SuccessNotice, error) {
	plan, err := r.plans.Lookup(p.PlanID)
	if err != nil {
		return nil, fmt.Errorf("plan %q of payment %d: %w", p.PlanID, p.ID, err)
	}

	if err := tx.SetPaymentStatus(ctx, p.ID, types.PaymentSuccess); err != nil {
		return nil, fmt.Errorf("mark payment %d success: %w", p.ID, err)
	}

	// The user row serializes subscription creation across different payments
	// of the same user.
	user, err := tx.LockUser(ctx, p.UserID)
	if err != nil {
		return nil, fmt.Errorf("lock user %d: %w", p.UserID, err)
	}

	now := r.now()
	sub, err := tx.LockSubscription(ctx, p.UserID, plan.ID)
	switch {
	case errors.Is(err, types.ErrNotFound):
		sub = &types.Subscription{
			UserID:    p.UserID,
			PlanID:    plan.ID,
			ExpiresAt: subscription.NextExpiry(nil, now, plan.Period),
			IsActive:  true,
		}
		if err := tx.CreateSubscription(ctx, sub); err != nil {
			return nil, fmt.Errorf("create subscription for user %d: %w", p.UserID, err)
		}
	case err != nil:
		return nil, fmt.Errorf("lock subscription for user %d: %w", p.UserID, err)
	default:
		current := sub.ExpiresAt
		sub.ExpiresAt = subscription.NextExpiry(&current, now, plan.Period)
		sub.IsActive = true
		if err := tx.UpdateSubscription(ctx, sub); err != nil {
			return nil, fmt.Errorf("extend subscription %d: %w", sub.ID, err)
		}
	}

	out.Result = ResultSuccessProcessed
	out.Subscription = sub
	return &types.SuccessNotice{
		TelegramID: user.TelegramID,
		PlanID:     sub.PlanID,
		ExpiresAt:  sub.ExpiresAt,
	}, nil
}
