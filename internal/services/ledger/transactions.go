package ledger

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

type Kind string

const (
	KindCredit Kind = "credit"
	KindDebit  Kind = "debit"
)

// ParseKind accepts "credit"/"debit" in any case.
func ParseKind(s string) (Kind, error) {
	switch Kind(strings.ToLower(strings.TrimSpace(s))) {
	case KindCredit:
		return KindCredit, nil
	case KindDebit:
		return KindDebit, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrInvalidKind, s)
	}
}

func (k Kind) Valid() bool {
	return k == KindCredit || k == KindDebit
}

// Sign is +1 for credits and -1 for debits.
func (k Kind) Sign() int {
	if k == KindDebit {
		return -1
	}

	return 1
}

// Transaction is immutable once created. Amount is always positive; Kind
// carries the direction.
type Transaction struct {
	ID        uint64
	Kind      Kind
	Amount    float64
	CreatedAt time.Time
}

type Operation string

const (
	OpCredit Operation = "credit"
	OpDebit  Operation = "debit"
	OpUndo   Operation = "undo"
	OpRedo   Operation = "redo"
)

// Outcome is what a mutating operation hands back to its caller: the
// transaction that moved and the balance right after the move.
type Outcome struct {
	Op          Operation
	Transaction Transaction
	Balance     float64
}

// Snapshot is a consistent read of the active log.
type Snapshot struct {
	Transactions []Transaction
	Balance      float64
	RedoDepth    int
}

func (s Snapshot) CanUndo() bool { return len(s.Transactions) > 0 }
func (s Snapshot) CanRedo() bool { return s.RedoDepth > 0 }

var (
	ErrInvalidAmount = errors.New("invalid amount")
	ErrInvalidKind   = errors.New("invalid transaction kind")
	ErrNothingToUndo = errors.New("nothing to undo")
	ErrNothingToRedo = errors.New("nothing to redo")

	ErrBalanceOutOfRange = errors.New("balance out of range")
)
