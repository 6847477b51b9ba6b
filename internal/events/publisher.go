// Package events streams committed ledger mutations to Kafka.
package events

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/fastprodman/ledger/internal/config"
	"github.com/fastprodman/ledger/internal/services/ledger"
	"github.com/segmentio/kafka-go"
)

const defaultQueueSize = 256

var (
	ErrNotStarted = errors.New("publisher not started")
	ErrQueueFull  = errors.New("publisher queue full")
)

type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// Publisher queues events and writes them from a single goroutine, so they
// reach the topic in the order Notify was called.
type Publisher struct {
	log     *slog.Logger
	writer  messageWriter
	topic   string
	enabled bool
	now     func() time.Time

	mu      sync.Mutex
	queue   chan kafka.Message
	started bool
	stopped bool
	done    chan struct{}
	cancel  context.CancelFunc
}

// NewPublisher returns a Kafka-backed publisher. A disabled config yields a
// publisher whose methods are no-ops.
func NewPublisher(cfg config.EventsConfig, log *slog.Logger) (*Publisher, error) {
	if !cfg.Enabled {
		return newPublisherWithWriter(cfg, log, nil)
	}

	if strings.TrimSpace(cfg.Topic) == "" {
		return nil, errors.New("events topic must not be empty")
	}

	if len(cfg.Brokers) == 0 {
		return nil, errors.New("at least one broker is required")
	}

	w := &kafka.Writer{
		Addr:                   kafka.TCP(cfg.Brokers...),
		Topic:                  cfg.Topic,
		Balancer:               &kafka.Hash{},
		RequiredAcks:           kafka.RequireAll,
		AllowAutoTopicCreation: true,
	}

	return newPublisherWithWriter(cfg, log, w)
}

func newPublisherWithWriter(cfg config.EventsConfig, log *slog.Logger, w messageWriter) (*Publisher, error) {
	if log == nil {
		log = slog.Default()
	}

	p := &Publisher{
		log:     log.With("component", "events"),
		writer:  w,
		topic:   cfg.Topic,
		enabled: cfg.Enabled,
		now:     time.Now,
	}

	if !p.enabled {
		return p, nil
	}

	if w == nil {
		return nil, errors.New("publisher requires a writer")
	}

	size := cfg.QueueSize
	if size <= 0 {
		size = defaultQueueSize
	}

	p.queue = make(chan kafka.Message, size)

	return p, nil
}

func (p *Publisher) Enabled() bool { return p.enabled }

// Start launches the delivery loop. Calling it twice is a no-op.
func (p *Publisher) Start(ctx context.Context) error {
	if !p.enabled {
		p.log.Info("event publishing disabled")
		return nil
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	if p.stopped {
		return errors.New("publisher already stopped")
	}

	if p.started {
		return nil
	}

	runCtx, cancel := context.WithCancel(context.WithoutCancel(ctx))
	p.cancel = cancel
	p.done = make(chan struct{})
	p.started = true

	go p.run(runCtx)

	p.log.Info("event publisher started", "topic", p.topic)

	return nil
}

// Notify enqueues the event for out. It never blocks on the broker: a full
// queue drops the event and reports ErrQueueFull.
func (p *Publisher) Notify(_ context.Context, out ledger.Outcome) error {
	if !p.enabled {
		return nil
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	if !p.started || p.stopped {
		return ErrNotStarted
	}

	ev := FromOutcome(out, p.now())

	value, err := json.Marshal(ev)
	if err != nil {
		return fmt.Errorf("encode event: %w", err)
	}

	msg := kafka.Message{
		Key:   []byte(strconv.FormatUint(ev.Transaction.ID, 10)),
		Value: value,
	}

	select {
	case p.queue <- msg:
		return nil
	default:
		return ErrQueueFull
	}
}

// Stop closes the queue, waits for queued events to be written and closes
// the writer. When ctx expires first, in-flight writes are canceled. A
// publisher that was never started only closes its writer.
func (p *Publisher) Stop(ctx context.Context) error {
	if !p.enabled {
		return nil
	}

	p.mu.Lock()
	if p.stopped {
		p.mu.Unlock()

		return nil
	}

	if !p.started {
		p.stopped = true
		p.mu.Unlock()

		err := p.writer.Close()
		if err != nil {
			return fmt.Errorf("close writer: %w", err)
		}

		return nil
	}

	p.stopped = true
	close(p.queue)
	p.mu.Unlock()

	var stopErr error

	select {
	case <-p.done:
	case <-ctx.Done():
		p.cancel()
		<-p.done

		stopErr = fmt.Errorf("drain events: %w", ctx.Err())
	}

	p.cancel()

	err := p.writer.Close()
	if err != nil {
		stopErr = errors.Join(stopErr, fmt.Errorf("close writer: %w", err))
	}

	p.log.Info("event publisher stopped")

	return stopErr
}

func (p *Publisher) run(ctx context.Context) {
	defer close(p.done)

	for msg := range p.queue {
		if ctx.Err() != nil {
			p.log.Warn("dropping event", "key", string(msg.Key), "error", ctx.Err())
			continue
		}

		err := p.writer.WriteMessages(ctx, msg)
		if err != nil {
			p.log.Error("publish event failed", "key", string(msg.Key), "error", err)
			continue
		}

		p.log.Debug("event published", "key", string(msg.Key))
	}
}
