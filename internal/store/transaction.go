package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/phrazzld/recruit-summary/internal/platform/logger"
)

// TxFn runs inside a transaction opened by RunInTransaction.
type TxFn func(ctx context.Context, tx *sql.Tx) error

// RunInTransaction runs fn in a transaction named op and commits when fn
// returns nil. An error from fn is returned as is after rollback, so store
// sentinels such as ErrFormNotFound survive; begin and commit failures wrap
// ErrTransactionFailed. A panic in fn rolls back and is re-raised.
//
// Form activation uses it so that at most one form is active at a time.
func RunInTransaction(ctx context.Context, db TxBeginner, op string, fn TxFn) error {
	log := logger.FromContext(ctx).With("tx", op)

	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		log.ErrorContext(ctx, "failed to begin transaction", "error", err)
		return fmt.Errorf("%w: begin %s: %w", ErrTransactionFailed, op, err)
	}

	defer func() {
		p := recover()
		if p == nil {
			return
		}
		if rbErr := tx.Rollback(); rbErr != nil {
			log.ErrorContext(ctx, "rollback after panic failed", "error", rbErr, "panic", p)
		} else {
			log.ErrorContext(ctx, "rolled back after panic", "panic", p)
		}
		panic(p)
	}()

	if err := fn(ctx, tx); err != nil {
		if rbErr := tx.Rollback(); rbErr != nil && !errors.Is(rbErr, sql.ErrTxDone) {
			log.ErrorContext(ctx, "rollback failed", "error", err, "rollback_error", rbErr)
			return errors.Join(err, fmt.Errorf("%w: rollback %s: %w", ErrTransactionFailed, op, rbErr))
		}
		log.DebugContext(ctx, "rolled back", "error", err)
		return err
	}

	if err := tx.Commit(); err != nil {
		log.ErrorContext(ctx, "failed to commit transaction", "error", err)
		return fmt.Errorf("%w: commit %s: %w", ErrTransactionFailed, op, err)
	}
	log.DebugContext(ctx, "committed")
	return nil
}
