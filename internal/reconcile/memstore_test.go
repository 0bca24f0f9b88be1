package reconcile

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/BatmanBruc/sub-pay-bot/types"
)

// memStore keeps committed rows in maps and models row locks with one mutex
// per row key held until the transaction ends.
type memStore struct {
	mu        sync.Mutex
	users     map[int64]types.User
	payments  map[int64]types.Payment
	subs      map[int64]types.Subscription
	nextSubID int64
	locks     map[string]*sync.Mutex

	failCreate error
}

func newMemStore() *memStore {
	return &memStore{
		users:    map[int64]types.User{},
		payments: map[int64]types.Payment{},
		subs:     map[int64]types.Subscription{},
		locks:    map[string]*sync.Mutex{},
	}
}

func (s *memStore) addUser(u types.User) { s.users[u.ID] = u }

func (s *memStore) addPayment(p types.Payment) { s.payments[p.ID] = p }

func (s *memStore) addSub(sub types.Subscription) {
	s.nextSubID++
	sub.ID = s.nextSubID
	s.subs[sub.ID] = sub
}

func (s *memStore) payment(id int64) types.Payment {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.payments[id]
}

func (s *memStore) subsFor(userID int64) []types.Subscription {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []types.Subscription
	for _, sub := range s.subs {
		if sub.UserID == userID {
			out = append(out, sub)
		}
	}
	return out
}

func (s *memStore) rowLock(key string) *sync.Mutex {
	s.mu.Lock()
	defer s.mu.Unlock()
	l, ok := s.locks[key]
	if !ok {
		l = &sync.Mutex{}
		s.locks[key] = l
	}
	return l
}

func (s *memStore) WithinTx(ctx context.Context, fn func(ctx context.Context, tx Tx) error) error {
	tx := &memTx{s: s, statuses: map[int64]types.PaymentStatus{}, updates: map[int64]types.Subscription{}}
	defer tx.release()
	if err := fn(ctx, tx); err != nil {
		return err
	}
	tx.commit()
	return nil
}

type memTx struct {
	s        *memStore
	held     []*sync.Mutex
	statuses map[int64]types.PaymentStatus
	updates  map[int64]types.Subscription
	creates  []*types.Subscription
}

func (tx *memTx) lock(key string) {
	l := tx.s.rowLock(key)
	l.Lock()
	tx.held = append(tx.held, l)
}

func (tx *memTx) release() {
	for i := len(tx.held) - 1; i >= 0; i-- {
		tx.held[i].Unlock()
	}
	tx.held = nil
}

func (tx *memTx) commit() {
	tx.s.mu.Lock()
	defer tx.s.mu.Unlock()
	for id, st := range tx.statuses {
		p := tx.s.payments[id]
		p.Status = st
		tx.s.payments[id] = p
	}
	for id, sub := range tx.updates {
		tx.s.subs[id] = sub
	}
	for _, sub := range tx.creates {
		tx.s.nextSubID++
		sub.ID = tx.s.nextSubID
		tx.s.subs[sub.ID] = *sub
	}
}

func (tx *memTx) LockPaymentByTransactionID(ctx context.Context, transactionID string) (*types.Payment, error) {
	tx.s.mu.Lock()
	var id int64
	for _, p := range tx.s.payments {
		if p.TransactionID == transactionID {
			id = p.ID
			break
		}
	}
	tx.s.mu.Unlock()
	if id == 0 {
		return nil, types.ErrNotFound
	}
	tx.lock(fmt.Sprintf("payment:%d", id))

	tx.s.mu.Lock()
	p := tx.s.payments[id]
	tx.s.mu.Unlock()
	return &p, nil
}

func (tx *memTx) SetPaymentStatus(ctx context.Context, paymentID int64, status types.PaymentStatus) error {
	tx.statuses[paymentID] = status
	return nil
}

func (tx *memTx) LockUser(ctx context.Context, userID int64) (*types.User, error) {
	tx.lock(fmt.Sprintf("user:%d", userID))
	tx.s.mu.Lock()
	defer tx.s.mu.Unlock()
	u, ok := tx.s.users[userID]
	if !ok {
		return nil, types.ErrNotFound
	}
	return &u, nil
}

func (tx *memTx) LockSubscription(ctx context.Context, userID int64, planID types.PlanID) (*types.Subscription, error) {
	tx.s.mu.Lock()
	defer tx.s.mu.Unlock()
	var best *types.Subscription
	for _, sub := range tx.s.subs {
		if sub.UserID != userID || sub.PlanID != planID {
			continue
		}
		if best == nil || sub.ExpiresAt.After(best.ExpiresAt) {
			cp := sub
			best = &cp
		}
	}
	if best == nil {
		return nil, types.ErrNotFound
	}
	return best, nil
}

func (tx *memTx) CreateSubscription(ctx context.Context, sub *types.Subscription) error {
	if tx.s.failCreate != nil {
		return tx.s.failCreate
	}
	tx.creates = append(tx.creates, sub)
	return nil
}

func (tx *memTx) UpdateSubscription(ctx context.Context, sub *types.Subscription) error {
	if sub.ID == 0 {
		return errors.New("update of unsaved subscription")
	}
	tx.updates[sub.ID] = *sub
	return nil
}
