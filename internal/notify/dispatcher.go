// Package notify delivers payment notices to users off the request path.
package notify

import (
	"context"
	"errors"
	"log/slog"
	"sync"

	"github.com/BatmanBruc/sub-pay-bot/types"
)

var (
	ErrQueueFull = errors.New("notify: queue full")
	ErrStopped   = errors.New("notify: dispatcher not running")
)

type Sender interface {
	Send(ctx context.Context, notice types.SuccessNotice) error
}

type Config struct {
	Workers   int
	QueueSize int
}

// Dispatcher is a fixed worker pool draining a bounded queue of notices.
// Delivery is best effort: failed or dropped notices are logged, never retried.
type Dispatcher struct {
	sender  Sender
	workers int
	log     *slog.Logger
	ctx     context.Context
	cancel  context.CancelFunc
	wg      sync.WaitGroup
	mu      sync.RWMutex
	running bool
	queue   chan types.SuccessNotice
}

func NewDispatcher(sender Sender, config Config, logger *slog.Logger) *Dispatcher {
	if config.Workers <= 0 {
		config.Workers = 2
	}
	if config.QueueSize <= 0 {
		config.QueueSize = config.Workers * 2
		if config.QueueSize < 10 {
			config.QueueSize = 10
		}
	}
	if logger == nil {
		logger = slog.Default()
	}

	ctx, cancel := context.WithCancel(context.Background())

	return &Dispatcher{
		sender:  sender,
		workers: config.Workers,
		log:     logger.With("component", "notify"),
		ctx:     ctx,
		cancel:  cancel,
		queue:   make(chan types.SuccessNotice, config.QueueSize),
	}
}

func (d *Dispatcher) Start() {
	d.mu.Lock()
	if d.running {
		d.mu.Unlock()
		return
	}
	d.running = true
	d.mu.Unlock()

	d.log.Info("dispatcher started", "workers", d.workers)

	for i := 0; i < d.workers; i++ {
		d.wg.Add(1)
		go d.worker(i)
	}
}

// Stop cancels in-flight deliveries and waits for workers to exit. Notices
// still queued are dropped.
func (d *Dispatcher) Stop() {
	d.mu.Lock()
	if !d.running {
		d.mu.Unlock()
		return
	}
	d.running = false
	d.mu.Unlock()

	d.log.Info("stopping dispatcher")
	d.cancel()
	d.wg.Wait()
	if n := len(d.queue); n > 0 {
		d.log.Warn("dropped queued notices on stop", "count", n)
	}
	d.log.Info("dispatcher stopped")
}

// Notify enqueues a notice without blocking. The request context is not used
// for delivery, so a finished webhook request does not cancel the send.
func (d *Dispatcher) Notify(_ context.Context, notice types.SuccessNotice) error {
	d.mu.RLock()
	defer d.mu.RUnlock()
	if !d.running {
		d.log.Warn("notice dropped", "telegram_id", notice.TelegramID, "reason", "stopped")
		return ErrStopped
	}
	select {
	case d.queue <- notice:
		return nil
	default:
		d.log.Warn("notice dropped", "telegram_id", notice.TelegramID, "reason", "queue full")
		return ErrQueueFull
	}
}

func (d *Dispatcher) worker(id int) {
	defer d.wg.Done()

	for {
		select {
		case <-d.ctx.Done():
			return
		case notice := <-d.queue:
			if err := d.sender.Send(d.ctx, notice); err != nil {
				d.log.Error("notice delivery failed", "worker", id, "telegram_id", notice.TelegramID, "error", err)
				continue
			}
			d.log.Info("notice delivered", "worker", id, "telegram_id", notice.TelegramID, "plan_id", string(notice.PlanID))
		}
	}
}
