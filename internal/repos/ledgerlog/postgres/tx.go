package ledgerlog

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/fastprodman/ledger/internal/repos/ledgerlog"
	"github.com/jackc/pgx/v5/pgconn"
)

const uniqueViolation = "23505"

// table holds the statements for one collection. Both tables share the
// (id, kind, amount, created_at) row shape; redo_log names the id column
// transaction_id and orders by position.
type table struct {
	insert  string
	popTail string
	list    string
	count   string
	clear   string
}

var tables = map[ledgerlog.Collection]table{
	ledgerlog.Active: {
		insert: `
			INSERT INTO transactions (id, kind, amount, created_at)
			VALUES ($1, $2, $3, $4)
		`,
		popTail: `
			DELETE FROM transactions
			WHERE id = (SELECT max(id) FROM transactions)
			RETURNING id, kind, amount, created_at
		`,
		list: `
			SELECT id, kind, amount, created_at
			FROM transactions
			ORDER BY id
		`,
		count: `SELECT count(*) FROM transactions`,
		clear: `DELETE FROM transactions`,
	},
	ledgerlog.Redo: {
		insert: `
			INSERT INTO redo_log (transaction_id, kind, amount, created_at)
			VALUES ($1, $2, $3, $4)
		`,
		popTail: `
			DELETE FROM redo_log
			WHERE position = (SELECT max(position) FROM redo_log)
			RETURNING transaction_id, kind, amount, created_at
		`,
		list: `
			SELECT transaction_id, kind, amount, created_at
			FROM redo_log
			ORDER BY position
		`,
		count: `SELECT count(*) FROM redo_log`,
		clear: `DELETE FROM redo_log`,
	},
}

type pgTx struct {
	ctx      context.Context
	tx       *sql.Tx
	readOnly bool
}

func lookupTable(c ledgerlog.Collection) (table, error) {
	t, ok := tables[c]
	if !ok {
		return table{}, fmt.Errorf("%w: %q", ledgerlog.ErrUnknownCollection, c)
	}

	return t, nil
}

func (t *pgTx) NextID() (uint64, error) {
	if t.readOnly {
		return 0, ledgerlog.ErrReadOnly
	}

	var id int64

	err := t.tx.QueryRowContext(t.ctx, `SELECT nextval('transaction_id_seq')`).Scan(&id)
	if err != nil {
		return 0, fmt.Errorf("next id: %w", err)
	}

	return uint64(id), nil
}

func (t *pgTx) Push(c ledgerlog.Collection, e ledgerlog.Entry) error {
	if t.readOnly {
		return ledgerlog.ErrReadOnly
	}

	tbl, err := lookupTable(c)
	if err != nil {
		return err
	}

	_, err = t.tx.ExecContext(t.ctx, tbl.insert, int64(e.ID), e.Kind, e.Amount, e.CreatedAt)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
			return fmt.Errorf("push %d to %s: %w", e.ID, c, ledgerlog.ErrDuplicateID)
		}

		return fmt.Errorf("push to %s: %w", c, err)
	}

	return nil
}

func (t *pgTx) PopTail(c ledgerlog.Collection) (ledgerlog.Entry, error) {
	if t.readOnly {
		return ledgerlog.Entry{}, ledgerlog.ErrReadOnly
	}

	tbl, err := lookupTable(c)
	if err != nil {
		return ledgerlog.Entry{}, err
	}

	e, err := scanEntry(t.tx.QueryRowContext(t.ctx, tbl.popTail))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return ledgerlog.Entry{}, ledgerlog.ErrEmpty
		}

		return ledgerlog.Entry{}, fmt.Errorf("pop tail of %s: %w", c, err)
	}

	return e, nil
}

func (t *pgTx) List(c ledgerlog.Collection) ([]ledgerlog.Entry, error) {
	tbl, err := lookupTable(c)
	if err != nil {
		return nil, err
	}

	rows, err := t.tx.QueryContext(t.ctx, tbl.list)
	if err != nil {
		return nil, fmt.Errorf("list %s: %w", c, err)
	}
	defer rows.Close()

	var out []ledgerlog.Entry

	for rows.Next() {
		e, err := scanEntry(rows)
		if err != nil {
			return nil, fmt.Errorf("scan %s: %w", c, err)
		}

		out = append(out, e)
	}

	err = rows.Err()
	if err != nil {
		return nil, fmt.Errorf("iterate %s: %w", c, err)
	}

	return out, nil
}

func (t *pgTx) Len(c ledgerlog.Collection) (int, error) {
	tbl, err := lookupTable(c)
	if err != nil {
		return 0, err
	}

	var n int

	err = t.tx.QueryRowContext(t.ctx, tbl.count).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("count %s: %w", c, err)
	}

	return n, nil
}

func (t *pgTx) Clear(c ledgerlog.Collection) error {
	if t.readOnly {
		return ledgerlog.ErrReadOnly
	}

	tbl, err := lookupTable(c)
	if err != nil {
		return err
	}

	_, err = t.tx.ExecContext(t.ctx, tbl.clear)
	if err != nil {
		return fmt.Errorf("clear %s: %w", c, err)
	}

	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanEntry(row rowScanner) (ledgerlog.Entry, error) {
	var (
		id        int64
		e         ledgerlog.Entry
		createdAt time.Time
	)

	err := row.Scan(&id, &e.Kind, &e.Amount, &createdAt)
	if err != nil {
		return ledgerlog.Entry{}, err
	}

	e.ID = uint64(id)
	e.CreatedAt = createdAt.UTC()

	return e, nil
}
