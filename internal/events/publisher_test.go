package events

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/fastprodman/ledger/internal/config"
	"github.com/fastprodman/ledger/internal/repos/ledgerlog/memory"
	"github.com/fastprodman/ledger/internal/services/ledger"
	"github.com/segmentio/kafka-go"
)

type recordingWriter struct {
	mu     sync.Mutex
	msgs   []kafka.Message
	block  chan struct{}
	closed bool
}

func (w *recordingWriter) WriteMessages(ctx context.Context, msgs ...kafka.Message) error {
	if w.block != nil {
		select {
		case <-w.block:
		case <-ctx.Done():
			return ctx.Err()
		}
	}

	w.mu.Lock()
	defer w.mu.Unlock()

	w.msgs = append(w.msgs, msgs...)

	return nil
}

func (w *recordingWriter) Close() error {
	w.mu.Lock()
	defer w.mu.Unlock()

	w.closed = true

	return nil
}

func (w *recordingWriter) snapshot() ([]kafka.Message, bool) {
	w.mu.Lock()
	defer w.mu.Unlock()

	return append([]kafka.Message(nil), w.msgs...), w.closed
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func enabledConfig(queue int) config.EventsConfig {
	return config.EventsConfig{
		Enabled:   true,
		Brokers:   []string{"kafka:9092"},
		Topic:     "ledger.events",
		QueueSize: queue,
	}
}

func decode(t *testing.T, msg kafka.Message) Event {
	t.Helper()

	var ev Event

	err := json.Unmarshal(msg.Value, &ev)
	if err != nil {
		t.Fatalf("decode event: %v", err)
	}

	return ev
}

func TestPublisher_DeliversLedgerEventsInOrder(t *testing.T) {
	t.Parallel()

	w := &recordingWriter{}

	pub, err := newPublisherWithWriter(enabledConfig(16), discardLogger(), w)
	if err != nil {
		t.Fatalf("new publisher: %v", err)
	}

	err = pub.Start(t.Context())
	if err != nil {
		t.Fatalf("start: %v", err)
	}

	l := ledger.New(memory.New(), ledger.WithNotifier(pub), ledger.WithLogger(discardLogger()))

	credit, err := l.Append(t.Context(), ledger.KindCredit, 500)
	if err != nil {
		t.Fatalf("append: %v", err)
	}

	_, err = l.Undo(t.Context())
	if err != nil {
		t.Fatalf("undo: %v", err)
	}

	_, err = l.Redo(t.Context())
	if err != nil {
		t.Fatalf("redo: %v", err)
	}

	err = pub.Stop(t.Context())
	if err != nil {
		t.Fatalf("stop: %v", err)
	}

	msgs, closed := w.snapshot()
	if !closed {
		t.Fatalf("writer not closed on stop")
	}

	wantTypes := []Type{TypeAppended, TypeUndone, TypeRedone}
	wantBalances := []float64{500, 0, 500}

	if len(msgs) != len(wantTypes) {
		t.Fatalf("messages: want %d, got %d", len(wantTypes), len(msgs))
	}

	seen := map[string]bool{}

	for i, msg := range msgs {
		ev := decode(t, msg)

		if ev.Type != wantTypes[i] || ev.Balance != wantBalances[i] {
			t.Fatalf("event %d: want %s/%v, got %s/%v", i, wantTypes[i], wantBalances[i], ev.Type, ev.Balance)
		}

		if ev.Transaction.ID != credit.Transaction.ID || string(msg.Key) != "1" {
			t.Fatalf("event %d keyed by %q for transaction %d", i, msg.Key, ev.Transaction.ID)
		}

		if seen[ev.ID] {
			t.Fatalf("event id %s reused", ev.ID)
		}

		seen[ev.ID] = true
	}
}

func TestPublisher_Disabled(t *testing.T) {
	t.Parallel()

	pub, err := NewPublisher(config.EventsConfig{}, discardLogger())
	if err != nil {
		t.Fatalf("new publisher: %v", err)
	}

	if pub.Enabled() {
		t.Fatalf("publisher should be disabled")
	}

	err = pub.Start(t.Context())
	if err != nil {
		t.Fatalf("start: %v", err)
	}

	err = pub.Notify(t.Context(), ledger.Outcome{Op: ledger.OpCredit})
	if err != nil {
		t.Fatalf("notify: %v", err)
	}

	err = pub.Stop(t.Context())
	if err != nil {
		t.Fatalf("stop: %v", err)
	}
}

func TestNewPublisher_Validation(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		cfg  config.EventsConfig
	}{
		{name: "empty_topic", cfg: config.EventsConfig{Enabled: true, Brokers: []string{"kafka:9092"}}},
		{name: "no_brokers", cfg: config.EventsConfig{Enabled: true, Topic: "ledger.events"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			_, err := NewPublisher(tt.cfg, discardLogger())
			if err == nil {
				t.Fatalf("want error")
			}
		})
	}
}

func TestPublisher_NotifyBeforeStart(t *testing.T) {
	t.Parallel()

	pub, err := newPublisherWithWriter(enabledConfig(1), discardLogger(), &recordingWriter{})
	if err != nil {
		t.Fatalf("new publisher: %v", err)
	}

	err = pub.Notify(t.Context(), ledger.Outcome{Op: ledger.OpCredit})
	if !errors.Is(err, ErrNotStarted) {
		t.Fatalf("want ErrNotStarted, got %v", err)
	}
}

func TestPublisher_FullQueueDropsAndStopHonoursDeadline(t *testing.T) {
	t.Parallel()

	w := &recordingWriter{block: make(chan struct{})}

	pub, err := newPublisherWithWriter(enabledConfig(1), discardLogger(), w)
	if err != nil {
		t.Fatalf("new publisher: %v", err)
	}

	err = pub.Start(t.Context())
	if err != nil {
		t.Fatalf("start: %v", err)
	}

	out := ledger.Outcome{Op: ledger.OpCredit, Transaction: ledger.Transaction{ID: 7, Kind: ledger.KindCredit, Amount: 1}}

	var full bool

	// the loop holds one message in WriteMessages, the queue holds one more
	for range 3 {
		err = pub.Notify(t.Context(), out)
		if errors.Is(err, ErrQueueFull) {
			full = true
			break
		}

		if err != nil {
			t.Fatalf("notify: %v", err)
		}
	}

	if !full {
		t.Fatalf("want ErrQueueFull once the queue is saturated")
	}

	ctx, cancel := context.WithTimeout(t.Context(), 50*time.Millisecond)
	defer cancel()

	err = pub.Stop(ctx)
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("want deadline exceeded, got %v", err)
	}

	err = pub.Notify(t.Context(), out)
	if !errors.Is(err, ErrNotStarted) {
		t.Fatalf("notify after stop: want ErrNotStarted, got %v", err)
	}
}

func TestFromOutcome(t *testing.T) {
	t.Parallel()

	at := time.Date(2025, 1, 2, 3, 4, 5, 0, time.UTC)
	created := at.Add(-time.Minute)

	ev := FromOutcome(ledger.Outcome{
		Op:          ledger.OpUndo,
		Transaction: ledger.Transaction{ID: 3, Kind: ledger.KindDebit, Amount: 100, CreatedAt: created},
		Balance:     400,
	}, at)

	if ev.Type != TypeUndone || ev.Balance != 400 || !ev.OccurredAt.Equal(at) {
		t.Fatalf("unexpected event: %+v", ev)
	}

	if ev.Transaction.Kind != "debit" || ev.Transaction.ID != 3 || !ev.Transaction.CreatedAt.Equal(created) {
		t.Fatalf("unexpected payload: %+v", ev.Transaction)
	}

	if ev.ID == "" {
		t.Fatalf("event id missing")
	}
}

func TestPublisher_StopWithoutStartClosesWriter(t *testing.T) {
	t.Parallel()

	w := &recordingWriter{}

	pub, err := newPublisherWithWriter(enabledConfig(4), discardLogger(), w)
	if err != nil {
		t.Fatalf("new publisher: %v", err)
	}

	err = pub.Stop(t.Context())
	if err != nil {
		t.Fatalf("stop: %v", err)
	}

	if _, closed := w.snapshot(); !closed {
		t.Fatalf("writer left open by Stop before Start")
	}

	err = pub.Start(t.Context())
	if err == nil {
		t.Fatalf("start after stop: want error")
	}

	err = pub.Stop(t.Context())
	if err != nil {
		t.Fatalf("second stop: %v", err)
	}
}
