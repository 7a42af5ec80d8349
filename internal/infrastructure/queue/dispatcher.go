package queue

import (
	"context"
	"errors"
	"fmt"
	"hash/fnv"
	"strconv"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"github.com/sethvargo/go-retry"

	"github.com/guiapractica/cuentas/internal/core/ports"
	"github.com/guiapractica/cuentas/internal/pkg/metrics"
)

const (
	defaultWorkers    = 4
	defaultBuffer     = 256
	defaultMaxRetries = 2
	defaultBaseDelay  = 500 * time.Millisecond
)

var (
	// ErrQueueFull is returned when the worker channel for a recipient has no room.
	ErrQueueFull = errors.New("mail queue full")
	// ErrDispatcherClosed is returned for emails submitted after Shutdown.
	ErrDispatcherClosed = errors.New("mail dispatcher closed")
)

// Ledger records delivered emails so a job is not sent twice.
type Ledger interface {
	Delivered(ctx context.Context, kind, token string) (bool, error)
	MarkDelivered(ctx context.Context, kind, token string) error
}

// NopLedger remembers nothing. It is used when Redis is not configured.
type NopLedger struct{}

func (NopLedger) Delivered(context.Context, string, string) (bool, error) { return false, nil }
func (NopLedger) MarkDelivered(context.Context, string, string) error     { return nil }

// Config tunes the dispatcher. Zero values fall back to defaults.
type Config struct {
	Workers    int
	Buffer     int
	MaxRetries uint64
	BaseDelay  time.Duration
}

type job struct {
	kind string
	to   ports.Recipient
}

// Dispatcher is an asynchronous ports.Notifier. Emails are routed to a fixed
// set of workers by hashing the recipient address, so mails to one user are
// delivered in submission order. Workers retry failed deliveries with
// exponential backoff.
type Dispatcher struct {
	workers    []chan job
	delivery   ports.Notifier
	ledger     Ledger
	maxRetries uint64
	baseDelay  time.Duration
	log        zerolog.Logger

	mu     sync.RWMutex
	closed bool
	wg     sync.WaitGroup
}

// NewDispatcher creates a Dispatcher delivering through delivery.
func NewDispatcher(cfg Config, delivery ports.Notifier, ledger Ledger, log zerolog.Logger) *Dispatcher {
	if cfg.Workers <= 0 {
		cfg.Workers = defaultWorkers
	}
	if cfg.Buffer <= 0 {
		cfg.Buffer = defaultBuffer
	}
	if cfg.MaxRetries == 0 {
		cfg.MaxRetries = defaultMaxRetries
	}
	if cfg.BaseDelay <= 0 {
		cfg.BaseDelay = defaultBaseDelay
	}
	if ledger == nil {
		ledger = NopLedger{}
	}

	d := &Dispatcher{
		workers:    make([]chan job, cfg.Workers),
		delivery:   delivery,
		ledger:     ledger,
		maxRetries: cfg.MaxRetries,
		baseDelay:  cfg.BaseDelay,
		log:        log,
	}
	for i := range d.workers {
		d.workers[i] = make(chan job, cfg.Buffer)
	}
	return d
}

var _ ports.Notifier = (*Dispatcher)(nil)

// Start launches all worker goroutines. Workers stop when ctx is cancelled
// or, after Shutdown, once their channel is drained.
func (d *Dispatcher) Start(ctx context.Context) {
	for i, ch := range d.workers {
		d.wg.Add(1)
		go d.runWorker(ctx, i, ch)
	}
}

// SendConfirmation queues a confirmation email and returns immediately.
func (d *Dispatcher) SendConfirmation(_ context.Context, to ports.Recipient) error {
	return d.enqueue(job{kind: ports.MailKindConfirmation, to: to})
}

// SendPasswordReset queues a password reset email and returns immediately.
func (d *Dispatcher) SendPasswordReset(_ context.Context, to ports.Recipient) error {
	return d.enqueue(job{kind: ports.MailKindPasswordReset, to: to})
}

// Shutdown stops accepting emails and waits until queued ones are delivered
// or ctx expires.
func (d *Dispatcher) Shutdown(ctx context.Context) error {
	d.mu.Lock()
	if !d.closed {
		d.closed = true
		for _, ch := range d.workers {
			close(ch)
		}
	}
	d.mu.Unlock()

	done := make(chan struct{})
	go func() {
		d.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return fmt.Errorf("mail dispatcher drain: %w", ctx.Err())
	}
}

func (d *Dispatcher) enqueue(j job) error {
	d.mu.RLock()
	defer d.mu.RUnlock()
	if d.closed {
		metrics.MailDispatchedTotal.WithLabelValues(j.kind, metrics.ResultDropped).Inc()
		return ErrDispatcherClosed
	}

	idx := d.shardIndex(j.to.Email)
	select {
	case d.workers[idx] <- j:
		metrics.MailQueueDepth.WithLabelValues(strconv.Itoa(idx)).Set(float64(len(d.workers[idx])))
		return nil
	default:
		metrics.MailDispatchedTotal.WithLabelValues(j.kind, metrics.ResultDropped).Inc()
		return ErrQueueFull
	}
}

// shardIndex maps a recipient deterministically to a worker index.
func (d *Dispatcher) shardIndex(email string) int {
	h := fnv.New32a()
	_, _ = h.Write([]byte(email))
	return int(h.Sum32() % uint32(len(d.workers)))
}

func (d *Dispatcher) runWorker(ctx context.Context, id int, ch <-chan job) {
	defer d.wg.Done()
	workerID := strconv.Itoa(id)
	for {
		select {
		case <-ctx.Done():
			return
		case j, ok := <-ch:
			if !ok {
				return
			}
			metrics.MailQueueDepth.WithLabelValues(workerID).Set(float64(len(ch)))
			d.deliver(ctx, id, j)
		}
	}
}

func (d *Dispatcher) deliver(ctx context.Context, workerID int, j job) {
	log := d.log.With().Str("kind", j.kind).Int("worker_id", workerID).Logger()

	delivered, err := d.ledger.Delivered(ctx, j.kind, j.to.Token)
	if err != nil {
		log.Warn().Err(err).Msg("delivery ledger check failed, sending anyway")
	} else if delivered {
		metrics.MailDispatchedTotal.WithLabelValues(j.kind, metrics.ResultSkipped).Inc()
		log.Debug().Msg("email already delivered, skipped")
		return
	}

	send := d.delivery.SendConfirmation
	if j.kind == ports.MailKindPasswordReset {
		send = d.delivery.SendPasswordReset
	}

	start := time.Now()
	attempts := 0
	backoff := retry.WithMaxRetries(d.maxRetries, retry.NewExponential(d.baseDelay))
	err = retry.Do(ctx, backoff, func(ctx context.Context) error {
		attempts++
		if err := send(ctx, j.to); err != nil {
			log.Warn().Err(err).Int("attempt", attempts).Msg("email delivery attempt failed")
			return retry.RetryableError(err)
		}
		return nil
	})
	metrics.MailDeliveryDuration.WithLabelValues(j.kind).Observe(time.Since(start).Seconds())

	if err != nil {
		metrics.MailDispatchedTotal.WithLabelValues(j.kind, metrics.ResultError).Inc()
		log.Error().Err(err).Int("attempts", attempts).Msg("email delivery failed")
		return
	}
	metrics.MailDispatchedTotal.WithLabelValues(j.kind, metrics.ResultOK).Inc()

	if err := d.ledger.MarkDelivered(ctx, j.kind, j.to.Token); err != nil {
		log.Warn().Err(err).Msg("failed to record delivery")
	}
}
