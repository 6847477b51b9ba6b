package ledger

import (
	"fmt"
	"math"

	"github.com/fastprodman/ledger/internal/repos/ledgerlog"
	"github.com/shopspring/decimal"
)

func validateAmount(amount float64) error {
	if math.IsNaN(amount) || math.IsInf(amount, 0) || amount <= 0 {
		return fmt.Errorf("%w: %v", ErrInvalidAmount, amount)
	}

	return nil
}

// fold sums the entries in decimal so that e.g. 0.1 + 0.2 lands on 0.3.
func fold(entries []ledgerlog.Entry) float64 {
	total := decimal.Zero

	for _, e := range entries {
		amount := decimal.NewFromFloat(e.Amount)

		if Kind(e.Kind) == KindDebit {
			total = total.Sub(amount)
		} else {
			total = total.Add(amount)
		}
	}

	return total.InexactFloat64()
}

// balanceOf folds the active log inside a write unit. A balance past the
// float64 range fails the unit so the mutation is rolled back.
func balanceOf(tx ledgerlog.Tx) (float64, error) {
	entries, err := tx.List(ledgerlog.Active)
	if err != nil {
		return 0, fmt.Errorf("list active: %w", err)
	}

	balance := fold(entries)
	if math.IsInf(balance, 0) || math.IsNaN(balance) {
		return 0, fmt.Errorf("%w: %v", ErrBalanceOutOfRange, balance)
	}

	return balance, nil
}

func toEntry(t Transaction) ledgerlog.Entry {
	return ledgerlog.Entry{
		ID:        t.ID,
		Kind:      string(t.Kind),
		Amount:    t.Amount,
		CreatedAt: t.CreatedAt,
	}
}

func fromEntry(e ledgerlog.Entry) (Transaction, error) {
	kind, err := ParseKind(e.Kind)
	if err != nil {
		return Transaction{}, fmt.Errorf("entry %d: %w", e.ID, err)
	}

	return Transaction{
		ID:        e.ID,
		Kind:      kind,
		Amount:    e.Amount,
		CreatedAt: e.CreatedAt,
	}, nil
}

func fromEntries(entries []ledgerlog.Entry) ([]Transaction, error) {
	out := make([]Transaction, 0, len(entries))

	for _, e := range entries {
		t, err := fromEntry(e)
		if err != nil {
			return nil, err
		}

		out = append(out, t)
	}

	return out, nil
}
