package queue

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/rs/zerolog"

	"github.com/guiapractica/cuentas/internal/core/ports"
	"github.com/guiapractica/cuentas/internal/pkg/metrics"
)

type flakyNotifier struct {
	mu       sync.Mutex
	failures int // remaining failures before deliveries succeed
	calls    []string
	sent     []ports.Recipient
}

func (n *flakyNotifier) send(kind string, to ports.Recipient) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.calls = append(n.calls, kind)
	if n.failures > 0 {
		n.failures--
		return errors.New("relay unavailable")
	}
	n.sent = append(n.sent, to)
	return nil
}

func (n *flakyNotifier) SendConfirmation(_ context.Context, to ports.Recipient) error {
	return n.send(ports.MailKindConfirmation, to)
}

func (n *flakyNotifier) SendPasswordReset(_ context.Context, to ports.Recipient) error {
	return n.send(ports.MailKindPasswordReset, to)
}

func (n *flakyNotifier) snapshot() (calls []string, sent []ports.Recipient) {
	n.mu.Lock()
	defer n.mu.Unlock()
	return append([]string(nil), n.calls...), append([]ports.Recipient(nil), n.sent...)
}

type memLedger struct {
	mu   sync.Mutex
	seen map[string]bool
}

func newMemLedger() *memLedger { return &memLedger{seen: make(map[string]bool)} }

func (l *memLedger) Delivered(_ context.Context, kind, token string) (bool, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.seen[kind+":"+token], nil
}

func (l *memLedger) MarkDelivered(_ context.Context, kind, token string) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.seen[kind+":"+token] = true
	return nil
}

func fastConfig() Config {
	return Config{Workers: 2, Buffer: 16, MaxRetries: 2, BaseDelay: time.Millisecond}
}

func shutdown(t *testing.T, d *Dispatcher) {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := d.Shutdown(ctx); err != nil {
		t.Fatalf("Shutdown returned error: %v", err)
	}
}

func TestDispatcher_DeliversAndDrains(t *testing.T) {
	delivery := &flakyNotifier{}
	d := NewDispatcher(fastConfig(), delivery, newMemLedger(), zerolog.Nop())
	d.Start(context.Background())

	for i := 0; i < 10; i++ {
		to := ports.Recipient{Email: fmt.Sprintf("u%d@x.mx", i), Token: fmt.Sprintf("t%d", i)}
		if err := d.SendConfirmation(context.Background(), to); err != nil {
			t.Fatalf("SendConfirmation returned error: %v", err)
		}
	}
	shutdown(t, d)

	if _, sent := delivery.snapshot(); len(sent) != 10 {
		t.Fatalf("expected 10 deliveries after drain, got %d", len(sent))
	}
}

func TestDispatcher_RoutesByKind(t *testing.T) {
	delivery := &flakyNotifier{}
	d := NewDispatcher(fastConfig(), delivery, nil, zerolog.Nop())
	d.Start(context.Background())

	_ = d.SendPasswordReset(context.Background(), ports.Recipient{Email: "ana@x.mx", Token: "r1"})
	shutdown(t, d)

	calls, _ := delivery.snapshot()
	if len(calls) != 1 || calls[0] != ports.MailKindPasswordReset {
		t.Fatalf("expected a password reset delivery, got %v", calls)
	}
}

func TestDispatcher_RetriesTransientFailures(t *testing.T) {
	delivery := &flakyNotifier{failures: 2}
	d := NewDispatcher(fastConfig(), delivery, newMemLedger(), zerolog.Nop())
	d.Start(context.Background())

	_ = d.SendConfirmation(context.Background(), ports.Recipient{Email: "ana@x.mx", Token: "t"})
	shutdown(t, d)

	calls, sent := delivery.snapshot()
	if len(calls) != 3 || len(sent) != 1 {
		t.Fatalf("expected 3 attempts and 1 delivery, got %d and %d", len(calls), len(sent))
	}
}

func TestDispatcher_GivesUpAfterMaxRetries(t *testing.T) {
	delivery := &flakyNotifier{failures: 100}
	ledger := newMemLedger()
	d := NewDispatcher(fastConfig(), delivery, ledger, zerolog.Nop())
	d.Start(context.Background())

	_ = d.SendConfirmation(context.Background(), ports.Recipient{Email: "ana@x.mx", Token: "t"})
	shutdown(t, d)

	calls, sent := delivery.snapshot()
	if len(calls) != 3 || len(sent) != 0 {
		t.Fatalf("expected 3 failed attempts, got %d calls and %d deliveries", len(calls), len(sent))
	}
	if ok, _ := ledger.Delivered(context.Background(), ports.MailKindConfirmation, "t"); ok {
		t.Fatalf("failed delivery must not be recorded")
	}
}

func TestDispatcher_SkipsDeliveredEmails(t *testing.T) {
	delivery := &flakyNotifier{}
	ledger := newMemLedger()
	_ = ledger.MarkDelivered(context.Background(), ports.MailKindConfirmation, "dup")

	d := NewDispatcher(fastConfig(), delivery, ledger, zerolog.Nop())
	d.Start(context.Background())
	_ = d.SendConfirmation(context.Background(), ports.Recipient{Email: "ana@x.mx", Token: "dup"})
	_ = d.SendConfirmation(context.Background(), ports.Recipient{Email: "ana@x.mx", Token: "new"})
	shutdown(t, d)

	_, sent := delivery.snapshot()
	if len(sent) != 1 || sent[0].Token != "new" {
		t.Fatalf("expected only the new token to be sent, got %+v", sent)
	}
}

func TestDispatcher_QueueFullAndClosed(t *testing.T) {
	d := NewDispatcher(Config{Workers: 1, Buffer: 1, BaseDelay: time.Millisecond}, &flakyNotifier{}, nil, zerolog.Nop())
	dropped := metrics.MailDispatchedTotal.WithLabelValues(ports.MailKindConfirmation, metrics.ResultDropped)
	failed := metrics.MailDispatchedTotal.WithLabelValues(ports.MailKindConfirmation, metrics.ResultError)
	droppedBefore, failedBefore := testutil.ToFloat64(dropped), testutil.ToFloat64(failed)

	to := ports.Recipient{Email: "ana@x.mx", Token: "t"}
	if err := d.SendConfirmation(context.Background(), to); err != nil {
		t.Fatalf("first enqueue failed: %v", err)
	}
	if err := d.SendConfirmation(context.Background(), to); !errors.Is(err, ErrQueueFull) {
		t.Fatalf("expected ErrQueueFull, got %v", err)
	}
	if got := testutil.ToFloat64(dropped) - droppedBefore; got != 1 {
		t.Fatalf("expected a full queue to count one drop, got %v", got)
	}

	d.Start(context.Background())
	shutdown(t, d)

	if err := d.SendConfirmation(context.Background(), to); !errors.Is(err, ErrDispatcherClosed) {
		t.Fatalf("expected ErrDispatcherClosed, got %v", err)
	}
	if got := testutil.ToFloat64(dropped) - droppedBefore; got != 2 {
		t.Fatalf("expected a closed dispatcher to count one more drop, got %v", got)
	}
	if got := testutil.ToFloat64(failed) - failedBefore; got != 0 {
		t.Fatalf("drops must not be counted as errors, got %v", got)
	}
	// A second shutdown is a no-op.
	shutdown(t, d)
}

func TestDispatcher_ShardIndexIsStable(t *testing.T) {
	d := NewDispatcher(Config{Workers: 8}, &flakyNotifier{}, nil, zerolog.Nop())
	first := d.shardIndex("ana@x.mx")
	for i := 0; i < 100; i++ {
		if got := d.shardIndex("ana@x.mx"); got != first {
			t.Fatalf("shard changed from %d to %d", first, got)
		}
	}
	if first < 0 || first >= 8 {
		t.Fatalf("shard %d out of range", first)
	}
}
