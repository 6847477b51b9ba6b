package ledgerlog

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/fastprodman/ledger/internal/infra/pgutils"
	"github.com/fastprodman/ledger/internal/repos/ledgerlog"
)

// lockKey serialises every writer of the ledger tables across processes.
const lockKey int64 = 0x1ed6e7

var _ ledgerlog.Log = (*logRepo)(nil)

type logRepo struct{ db *sql.DB }

func New(db *sql.DB) *logRepo {
	return &logRepo{db: db}
}

func (r *logRepo) WithTx(ctx context.Context, fn func(ledgerlog.Tx) error) error {
	return pgutils.WithTx(ctx, r.db, nil, func(tx *sql.Tx) error {
		err := pgutils.AdvisoryXactLock(ctx, tx, lockKey)
		if err != nil {
			return fmt.Errorf("lock ledger: %w", err)
		}

		return fn(&pgTx{ctx: ctx, tx: tx})
	})
}

// View reads both tables from one repeatable-read snapshot.
func (r *logRepo) View(ctx context.Context, fn func(ledgerlog.Tx) error) error {
	opts := &sql.TxOptions{Isolation: sql.LevelRepeatableRead, ReadOnly: true}

	return pgutils.WithTx(ctx, r.db, opts, func(tx *sql.Tx) error {
		return fn(&pgTx{ctx: ctx, tx: tx, readOnly: true})
	})
}
