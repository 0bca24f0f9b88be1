package store

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/BatmanBruc/sub-pay-bot/internal/reconcile"
	"github.com/BatmanBruc/sub-pay-bot/types"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"
)

const queryTimeout = 5 * time.Second

var ErrDuplicateTransaction = fmt.Errorf("duplicate transaction id: %w", types.ErrDuplicate)

type PostgresStore struct {
	pool *pgxpool.Pool
}

func NewPostgresStore(ctx context.Context, dsn string) (*PostgresStore, error) {
	dsn = strings.TrimSpace(dsn)
	if dsn == "" {
		dsn = buildPostgresDSNFromEnv()
	}
	cfg, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, err
	}
	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, err
	}
	pingCtx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()
	if err := pool.Ping(pingCtx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping postgres: %w", err)
	}
	return &PostgresStore{pool: pool}, nil
}

func (s *PostgresStore) Close() {
	if s.pool != nil {
		s.pool.Close()
	}
}

func (s *PostgresStore) Ping(ctx context.Context) error {
	return s.pool.Ping(ctx)
}

func buildPostgresDSNFromEnv() string {
	host := strings.TrimSpace(os.Getenv("POSTGRES_HOST"))
	if host == "" {
		host = "localhost"
	}
	port := strings.TrimSpace(os.Getenv("POSTGRES_PORT"))
	if port == "" {
		port = "5432"
	}
	db := strings.TrimSpace(os.Getenv("POSTGRES_DB"))
	if db == "" {
		db = "sub_pay_bot"
	}
	user := strings.TrimSpace(os.Getenv("POSTGRES_USER"))
	if user == "" {
		user = "sub_pay_bot"
	}
	pass := os.Getenv("POSTGRES_PASSWORD")
	return fmt.Sprintf("postgres://%s:%s@%s:%s/%s?sslmode=disable", urlEscape(user), urlEscape(pass), host, port, db)
}

func urlEscape(s string) string {
	r := strings.NewReplacer(
		"%", "%25",
		":", "%3A",
		"/", "%2F",
		"@", "%40",
		"?", "%3F",
		"#", "%23",
		"[", "%5B",
		"]", "%5D",
	)
	return r.Replace(s)
}

func notFound(err error) error {
	if errors.Is(err, pgx.ErrNoRows) {
		return types.ErrNotFound
	}
	return err
}

func (s *PostgresStore) UpsertUser(ctx context.Context, telegramID int64, username string) (*types.User, error) {
	ctx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()
	var u types.User
	err := s.pool.QueryRow(ctx, `
INSERT INTO users (telegram_id, username)
VALUES ($1, NULLIF($2, ''))
ON CONFLICT (telegram_id) DO UPDATE SET
  username = COALESCE(EXCLUDED.username, users.username)
RETURNING id, telegram_id, COALESCE(username, ''), created_at
`, telegramID, strings.TrimSpace(username)).Scan(&u.ID, &u.TelegramID, &u.Username, &u.CreatedAt)
	if err != nil {
		return nil, err
	}
	return &u, nil
}

func (s *PostgresStore) GetUserByTelegramID(ctx context.Context, telegramID int64) (*types.User, error) {
	ctx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()
	var u types.User
	err := s.pool.QueryRow(ctx, `
SELECT id, telegram_id, COALESCE(username, ''), created_at
FROM users
WHERE telegram_id = $1
`, telegramID).Scan(&u.ID, &u.TelegramID, &u.Username, &u.CreatedAt)
	if err != nil {
		return nil, notFound(err)
	}
	return &u, nil
}

const subscriptionColumns = `id, user_id, plan_id, expires_at, is_active, created_at, updated_at`

func scanSubscription(row pgx.Row) (*types.Subscription, error) {
	var (
		sub  types.Subscription
		plan string
	)
	if err := row.Scan(&sub.ID, &sub.UserID, &plan, &sub.ExpiresAt, &sub.IsActive, &sub.CreatedAt, &sub.UpdatedAt); err != nil {
		return nil, notFound(err)
	}
	sub.PlanID = types.PlanID(plan)
	return &sub, nil
}

func (s *PostgresStore) LatestSubscription(ctx context.Context, userID int64) (*types.Subscription, error) {
	ctx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()
	return scanSubscription(s.pool.QueryRow(ctx, `
SELECT `+subscriptionColumns+`
FROM subscriptions
WHERE user_id = $1
ORDER BY expires_at DESC, id DESC
LIMIT 1
`, userID))
}

func (s *PostgresStore) CreatePayment(ctx context.Context, p *types.Payment) error {
	ctx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()
	if p.Status == "" {
		p.Status = types.PaymentPending
	}
	err := s.pool.QueryRow(ctx, `
INSERT INTO payments (user_id, amount, currency, transaction_id, status, plan_id)
VALUES ($1, $2::numeric, $3, $4, $5, $6)
RETURNING id, created_at
`, p.UserID, p.Amount.StringFixed(2), strings.TrimSpace(p.Currency), strings.TrimSpace(p.TransactionID), string(p.Status), string(p.PlanID)).Scan(&p.ID, &p.CreatedAt)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return fmt.Errorf("%w: %s", ErrDuplicateTransaction, p.TransactionID)
		}
		return err
	}
	return nil
}

func (s *PostgresStore) PaymentStatusByTransactionID(ctx context.Context, transactionID string) (types.PaymentStatus, error) {
	ctx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()
	var status string
	err := s.pool.QueryRow(ctx, `
SELECT status FROM payments WHERE transaction_id = $1
`, strings.TrimSpace(transactionID)).Scan(&status)
	if err != nil {
		return "", notFound(err)
	}
	return types.PaymentStatus(status), nil
}

// WithinTx runs fn in a read-committed transaction. Row locks taken through
// the Tx are held until commit or rollback.
func (s *PostgresStore) WithinTx(ctx context.Context, fn func(ctx context.Context, tx reconcile.Tx) error) error {
	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback(ctx) }()

	if err := fn(ctx, &pgTx{tx: tx}); err != nil {
		return err
	}
	return tx.Commit(ctx)
}

type pgTx struct {
	tx pgx.Tx
}

func (t *pgTx) LockPaymentByTransactionID(ctx context.Context, transactionID string) (*types.Payment, error) {
	var (
		p              types.Payment
		amount, status string
		plan           string
	)
	err := t.tx.QueryRow(ctx, `
SELECT id, user_id, amount::text, currency, transaction_id, status, plan_id, created_at
FROM payments
WHERE transaction_id = $1
FOR UPDATE
`, transactionID).Scan(&p.ID, &p.UserID, &amount, &p.Currency, &p.TransactionID, &status, &plan, &p.CreatedAt)
	if err != nil {
		return nil, notFound(err)
	}
	p.Amount, err = decimal.NewFromString(amount)
	if err != nil {
		return nil, fmt.Errorf("parse amount %q: %w", amount, err)
	}
	p.Status = types.PaymentStatus(status)
	p.PlanID = types.PlanID(plan)
	return &p, nil
}

func (t *pgTx) SetPaymentStatus(ctx context.Context, paymentID int64, status types.PaymentStatus) error {
	tag, err := t.tx.Exec(ctx, `UPDATE payments SET status = $2 WHERE id = $1`, paymentID, string(status))
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return types.ErrNotFound
	}
	return nil
}

func (t *pgTx) LockUser(ctx context.Context, userID int64) (*types.User, error) {
	var u types.User
	err := t.tx.QueryRow(ctx, `
SELECT id, telegram_id, COALESCE(username, ''), created_at
FROM users
WHERE id = $1
FOR UPDATE
`, userID).Scan(&u.ID, &u.TelegramID, &u.Username, &u.CreatedAt)
	if err != nil {
		return nil, notFound(err)
	}
	return &u, nil
}

func (t *pgTx) LockSubscription(ctx context.Context, userID int64, planID types.PlanID) (*types.Subscription, error) {
	return scanSubscription(t.tx.QueryRow(ctx, `
SELECT `+subscriptionColumns+`
FROM subscriptions
WHERE user_id = $1 AND plan_id = $2
ORDER BY expires_at DESC, id DESC
LIMIT 1
FOR UPDATE
`, userID, string(planID)))
}

func (t *pgTx) CreateSubscription(ctx context.Context, sub *types.Subscription) error {
	return t.tx.QueryRow(ctx, `
INSERT INTO subscriptions (user_id, plan_id, expires_at, is_active)
VALUES ($1, $2, $3, $4)
RETURNING id, created_at, updated_at
`, sub.UserID, string(sub.PlanID), sub.ExpiresAt, sub.IsActive).Scan(&sub.ID, &sub.CreatedAt, &sub.UpdatedAt)
}

func (t *pgTx) UpdateSubscription(ctx context.Context, sub *types.Subscription) error {
	err := t.tx.QueryRow(ctx, `
UPDATE subscriptions
SET expires_at = $2, is_active = $3, updated_at = NOW()
WHERE id = $1
RETURNING updated_at
`, sub.ID, sub.ExpiresAt, sub.IsActive).Scan(&sub.UpdatedAt)
	return notFound(err)
}
