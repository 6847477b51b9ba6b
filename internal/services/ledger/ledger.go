package ledger

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/fastprodman/ledger/internal/repos/ledgerlog"
)

// Notifier is told about every committed mutation, in commit order.
type Notifier interface {
	Notify(ctx context.Context, out Outcome) error
}

type Option func(*Ledger)

func WithNotifier(n Notifier) Option {
	return func(l *Ledger) { l.notifier = n }
}

// WithClock replaces time.Now for transaction timestamps.
func WithClock(now func() time.Time) Option {
	return func(l *Ledger) { l.now = now }
}

func WithLogger(logger *slog.Logger) Option {
	return func(l *Ledger) { l.logger = logger }
}

// Ledger keeps a linear undo/redo history over an active log and a redo
// buffer. Append, Undo and Redo run one at a time, each as a single storage
// transaction; reads see either all or none of a mutation.
type Ledger struct {
	mu       sync.RWMutex
	log      ledgerlog.Log
	notifier Notifier
	now      func() time.Time
	logger   *slog.Logger
}

func New(log ledgerlog.Log, opts ...Option) *Ledger {
	l := &Ledger{
		log:    log,
		now:    time.Now,
		logger: slog.Default(),
	}

	for _, opt := range opts {
		opt(l)
	}

	l.logger = l.logger.With("component", "ledger")

	return l
}

// Append records a new transaction at the tail of the active log and drops
// any pending redo history.
func (l *Ledger) Append(ctx context.Context, kind Kind, amount float64) (Outcome, error) {
	if !kind.Valid() {
		return Outcome{}, fmt.Errorf("%w: %q", ErrInvalidKind, kind)
	}

	err := validateAmount(amount)
	if err != nil {
		return Outcome{}, err
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	var out Outcome

	err = l.log.WithTx(ctx, func(tx ledgerlog.Tx) error {
		t, err := l.appendTx(tx, kind, amount)
		if err != nil {
			return err
		}

		balance, err := balanceOf(tx)
		if err != nil {
			return err
		}

		out = Outcome{Op: Operation(kind), Transaction: t, Balance: balance}

		return nil
	})
	if err != nil {
		return Outcome{}, fmt.Errorf("append %s: %w", kind, err)
	}

	l.notify(ctx, out)

	return out, nil
}

func (l *Ledger) appendTx(tx ledgerlog.Tx, kind Kind, amount float64) (Transaction, error) {
	id, err := tx.NextID()
	if err != nil {
		return Transaction{}, fmt.Errorf("next id: %w", err)
	}

	// storage keeps microseconds; truncate so every backend returns the same value
	t := Transaction{
		ID:        id,
		Kind:      kind,
		Amount:    amount,
		CreatedAt: l.now().UTC().Truncate(time.Microsecond),
	}

	err = tx.Push(ledgerlog.Active, toEntry(t))
	if err != nil {
		return Transaction{}, fmt.Errorf("push active: %w", err)
	}

	err = tx.Clear(ledgerlog.Redo)
	if err != nil {
		return Transaction{}, fmt.Errorf("clear redo: %w", err)
	}

	return t, nil
}

// Undo moves the most recent transaction from the active log to the redo
// buffer.
func (l *Ledger) Undo(ctx context.Context) (Outcome, error) {
	return l.move(ctx, OpUndo, ledgerlog.Active, ledgerlog.Redo, ErrNothingToUndo)
}

// Redo moves the most recently undone transaction back to the active log,
// keeping its id and creation time.
func (l *Ledger) Redo(ctx context.Context) (Outcome, error) {
	return l.move(ctx, OpRedo, ledgerlog.Redo, ledgerlog.Active, ErrNothingToRedo)
}

func (l *Ledger) move(
	ctx context.Context,
	op Operation,
	from, to ledgerlog.Collection,
	errEmpty error,
) (Outcome, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	var out Outcome

	err := l.log.WithTx(ctx, func(tx ledgerlog.Tx) error {
		e, err := tx.PopTail(from)
		if err != nil {
			if errors.Is(err, ledgerlog.ErrEmpty) {
				return errEmpty
			}

			return fmt.Errorf("pop %s: %w", from, err)
		}

		t, err := fromEntry(e)
		if err != nil {
			return err
		}

		err = tx.Push(to, e)
		if err != nil {
			return fmt.Errorf("push %s: %w", to, err)
		}

		balance, err := balanceOf(tx)
		if err != nil {
			return err
		}

		out = Outcome{Op: op, Transaction: t, Balance: balance}

		return nil
	})
	if err != nil {
		return Outcome{}, fmt.Errorf("%s: %w", op, err)
	}

	l.notify(ctx, out)

	return out, nil
}

// Balance folds the active log: credits add, debits subtract.
func (l *Ledger) Balance(ctx context.Context) (float64, error) {
	snap, err := l.Snapshot(ctx)
	if err != nil {
		return 0, err
	}

	return snap.Balance, nil
}

// ListTransactions returns a copy of the active log in ascending id order.
func (l *Ledger) ListTransactions(ctx context.Context) ([]Transaction, error) {
	snap, err := l.Snapshot(ctx)
	if err != nil {
		return nil, err
	}

	return snap.Transactions, nil
}

// RedoDepth reports how many transactions Redo could replay.
func (l *Ledger) RedoDepth(ctx context.Context) (int, error) {
	snap, err := l.Snapshot(ctx)
	if err != nil {
		return 0, err
	}

	return snap.RedoDepth, nil
}

// Snapshot reads the active log, its balance and the redo depth together.
func (l *Ledger) Snapshot(ctx context.Context) (Snapshot, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()

	var snap Snapshot

	err := l.log.View(ctx, func(tx ledgerlog.Tx) error {
		entries, err := tx.List(ledgerlog.Active)
		if err != nil {
			return fmt.Errorf("list active: %w", err)
		}

		txns, err := fromEntries(entries)
		if err != nil {
			return err
		}

		depth, err := tx.Len(ledgerlog.Redo)
		if err != nil {
			return fmt.Errorf("count redo: %w", err)
		}

		snap = Snapshot{Transactions: txns, Balance: fold(entries), RedoDepth: depth}

		return nil
	})
	if err != nil {
		return Snapshot{}, fmt.Errorf("snapshot: %w", err)
	}

	return snap, nil
}

// Seed is one transaction to replay into an empty ledger.
type Seed struct {
	Kind   Kind
	Amount float64
}

// DemoSeed is the sample history: Credit 500, Debit 100, Credit 200.
var DemoSeed = []Seed{
	{Kind: KindCredit, Amount: 500},
	{Kind: KindDebit, Amount: 100},
	{Kind: KindCredit, Amount: 200},
}

// SeedIfEmpty appends seeds in one storage transaction when neither log
// holds anything. It reports whether seeding happened.
func (l *Ledger) SeedIfEmpty(ctx context.Context, seeds []Seed) (bool, error) {
	for _, s := range seeds {
		if !s.Kind.Valid() {
			return false, fmt.Errorf("seed: %w: %q", ErrInvalidKind, s.Kind)
		}

		err := validateAmount(s.Amount)
		if err != nil {
			return false, fmt.Errorf("seed: %w", err)
		}
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	var outs []Outcome

	err := l.log.WithTx(ctx, func(tx ledgerlog.Tx) error {
		outs = nil

		active, err := tx.Len(ledgerlog.Active)
		if err != nil {
			return fmt.Errorf("count active: %w", err)
		}

		redo, err := tx.Len(ledgerlog.Redo)
		if err != nil {
			return fmt.Errorf("count redo: %w", err)
		}

		if active > 0 || redo > 0 {
			return nil
		}

		for _, s := range seeds {
			t, err := l.appendTx(tx, s.Kind, s.Amount)
			if err != nil {
				return err
			}

			balance, err := balanceOf(tx)
			if err != nil {
				return err
			}

			outs = append(outs, Outcome{Op: Operation(s.Kind), Transaction: t, Balance: balance})
		}

		return nil
	})
	if err != nil {
		return false, fmt.Errorf("seed: %w", err)
	}

	for _, out := range outs {
		l.notify(ctx, out)
	}

	if len(outs) == 0 {
		return false, nil
	}

	l.logger.Info("seeded empty ledger", "count", len(outs))

	return true, nil
}

// notify runs under the write lock so events leave in commit order.
func (l *Ledger) notify(ctx context.Context, out Outcome) {
	if l.notifier == nil {
		return
	}

	err := l.notifier.Notify(ctx, out)
	if err != nil {
		l.logger.Warn("notify failed",
			"op", out.Op,
			"transaction_id", out.Transaction.ID,
			"error", err,
		)
	}
}
