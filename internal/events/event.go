package events

import (
	"time"

	"github.com/fastprodman/ledger/internal/services/ledger"
	"github.com/google/uuid"
)

type Type string

const (
	TypeAppended Type = "transaction.appended"
	TypeUndone   Type = "transaction.undone"
	TypeRedone   Type = "transaction.redone"
)

// TransactionPayload is the wire shape of a transaction inside an event.
type TransactionPayload struct {
	ID        uint64    `json:"id"`
	Kind      string    `json:"kind"`
	Amount    float64   `json:"amount"`
	CreatedAt time.Time `json:"createdAt"`
}

// Event is published once per committed ledger mutation.
type Event struct {
	ID          string             `json:"id"`
	Type        Type               `json:"type"`
	Transaction TransactionPayload `json:"transaction"`
	Balance     float64            `json:"balance"`
	OccurredAt  time.Time          `json:"occurredAt"`
}

func typeOf(op ledger.Operation) Type {
	switch op {
	case ledger.OpUndo:
		return TypeUndone
	case ledger.OpRedo:
		return TypeRedone
	default:
		return TypeAppended
	}
}

// FromOutcome builds the event for a committed operation.
func FromOutcome(out ledger.Outcome, at time.Time) Event {
	return Event{
		ID:   uuid.NewString(),
		Type: typeOf(out.Op),
		Transaction: TransactionPayload{
			ID:        out.Transaction.ID,
			Kind:      string(out.Transaction.Kind),
			Amount:    out.Transaction.Amount,
			CreatedAt: out.Transaction.CreatedAt,
		},
		Balance:    out.Balance,
		OccurredAt: at.UTC(),
	}
}
