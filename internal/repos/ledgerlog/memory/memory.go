package memory

import (
	"context"
	"fmt"
	"sync"

	"github.com/fastprodman/ledger/internal/repos/ledgerlog"
)

var _ ledgerlog.Log = (*memoryLog)(nil)

type state struct {
	active []ledgerlog.Entry
	redo   []ledgerlog.Entry
	lastID uint64
}

func (s state) clone() state {
	return state{
		active: append([]ledgerlog.Entry(nil), s.active...),
		redo:   append([]ledgerlog.Entry(nil), s.redo...),
		lastID: s.lastID,
	}
}

type memoryLog struct {
	mu sync.RWMutex
	st state
}

func New() *memoryLog {
	return &memoryLog{}
}

// WithTx stages changes on a copy and swaps it in only if fn succeeds.
func (l *memoryLog) WithTx(ctx context.Context, fn func(ledgerlog.Tx) error) error {
	err := ctx.Err()
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	staged := l.st.clone()

	err = fn(&memoryTx{st: &staged})
	if err != nil {
		return fmt.Errorf("fn: %w", err)
	}

	l.st = staged

	return nil
}

func (l *memoryLog) View(ctx context.Context, fn func(ledgerlog.Tx) error) error {
	err := ctx.Err()
	if err != nil {
		return fmt.Errorf("begin view: %w", err)
	}

	l.mu.RLock()
	defer l.mu.RUnlock()

	err = fn(&memoryTx{st: &l.st, readOnly: true})
	if err != nil {
		return fmt.Errorf("fn: %w", err)
	}

	return nil
}

type memoryTx struct {
	st       *state
	readOnly bool
}

func (t *memoryTx) collection(c ledgerlog.Collection) (*[]ledgerlog.Entry, error) {
	switch c {
	case ledgerlog.Active:
		return &t.st.active, nil
	case ledgerlog.Redo:
		return &t.st.redo, nil
	default:
		return nil, fmt.Errorf("%w: %q", ledgerlog.ErrUnknownCollection, c)
	}
}

func (t *memoryTx) NextID() (uint64, error) {
	if t.readOnly {
		return 0, ledgerlog.ErrReadOnly
	}

	t.st.lastID++

	return t.st.lastID, nil
}

func (t *memoryTx) Push(c ledgerlog.Collection, e ledgerlog.Entry) error {
	if t.readOnly {
		return ledgerlog.ErrReadOnly
	}

	entries, err := t.collection(c)
	if err != nil {
		return err
	}

	for _, existing := range *entries {
		if existing.ID == e.ID {
			return fmt.Errorf("push %d to %s: %w", e.ID, c, ledgerlog.ErrDuplicateID)
		}
	}

	*entries = append(*entries, e)

	// keep the id sequence ahead of anything pushed with an explicit id
	if e.ID > t.st.lastID {
		t.st.lastID = e.ID
	}

	return nil
}

func (t *memoryTx) PopTail(c ledgerlog.Collection) (ledgerlog.Entry, error) {
	if t.readOnly {
		return ledgerlog.Entry{}, ledgerlog.ErrReadOnly
	}

	entries, err := t.collection(c)
	if err != nil {
		return ledgerlog.Entry{}, err
	}

	n := len(*entries)
	if n == 0 {
		return ledgerlog.Entry{}, ledgerlog.ErrEmpty
	}

	tail := (*entries)[n-1]
	*entries = (*entries)[:n-1]

	return tail, nil
}

func (t *memoryTx) List(c ledgerlog.Collection) ([]ledgerlog.Entry, error) {
	entries, err := t.collection(c)
	if err != nil {
		return nil, err
	}

	out := make([]ledgerlog.Entry, len(*entries))
	copy(out, *entries)

	return out, nil
}

func (t *memoryTx) Len(c ledgerlog.Collection) (int, error) {
	entries, err := t.collection(c)
	if err != nil {
		return 0, err
	}

	return len(*entries), nil
}

func (t *memoryTx) Clear(c ledgerlog.Collection) error {
	if t.readOnly {
		return ledgerlog.ErrReadOnly
	}

	entries, err := t.collection(c)
	if err != nil {
		return err
	}

	*entries = nil

	return nil
}
