// Package ledgerlog defines the storage the ledger needs: two ordered
// collections with push-to-tail, pop-tail, ordered read and clear, plus an
// id sequence. Backends live in the memory and postgres subpackages.
package ledgerlog

import (
	"context"
	"errors"
	"time"
)

var (
	ErrEmpty             = errors.New("collection is empty")
	ErrReadOnly          = errors.New("read-only transaction")
	ErrDuplicateID       = errors.New("duplicate entry id")
	ErrUnknownCollection = errors.New("unknown collection")
)

type Collection string

const (
	// Active holds applied entries ordered by id.
	Active Collection = "active"
	// Redo holds undone entries ordered by removal time.
	Redo Collection = "redo"
)

type Entry struct {
	ID        uint64
	Kind      string
	Amount    float64
	CreatedAt time.Time
}

// Log runs units of work against both collections.
//
// WithTx applies every change made by fn, or none of them when fn returns an
// error. View gives fn a consistent, read-only picture of both collections.
type Log interface {
	WithTx(ctx context.Context, fn func(Tx) error) error
	View(ctx context.Context, fn func(Tx) error) error
}

type Tx interface {
	NextID() (uint64, error)
	Push(c Collection, e Entry) error
	PopTail(c Collection) (Entry, error)
	List(c Collection) ([]Entry, error)
	Len(c Collection) (int, error)
	Clear(c Collection) error
}
