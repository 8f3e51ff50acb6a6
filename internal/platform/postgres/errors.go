package postgres

import (
	"database/sql"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/phrazzld/recruit-summary/internal/store"
)

// SQLSTATE codes raised by the schema's constraints.
const (
	uniqueViolationCode  = "23505"
	checkViolationCode   = "23514"
	notNullViolationCode = "23502"
)

// Named constraints from the migrations.
const (
	submissionKeyConstraint      = "summarization_tasks_submission_key"
	resultIffCompletedConstraint = "summarization_tasks_result_iff_completed"
	singleActiveFormIndex        = "idx_recruiting_forms_single_active"
)

var errActiveFormExists = fmt.Errorf("%w: another recruiting form is active", store.ErrDuplicate)

// constraintErrors resolves a named constraint to the sentinel callers match on.
// Violations of unnamed constraints fall back to the SQLSTATE class.
var constraintErrors = map[string]error{
	submissionKeyConstraint:      store.ErrSubmissionExists,
	resultIffCompletedConstraint: store.ErrTaskInvariant,
	singleActiveFormIndex:        errActiveFormExists,
}

// MapError translates a driver error into the store's sentinel errors,
// keeping the driver message for logs. Errors it does not recognise are
// returned unchanged.
func MapError(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, sql.ErrNoRows) {
		return fmt.Errorf("%w: %v", store.ErrNotFound, err)
	}

	var pgErr *pgconn.PgError
	if !errors.As(err, &pgErr) {
		return err
	}
	if sentinel, ok := constraintErrors[pgErr.ConstraintName]; ok {
		return fmt.Errorf("%w: %v", sentinel, err)
	}

	switch pgErr.Code {
	case uniqueViolationCode:
		return fmt.Errorf("%w: %s: %v", store.ErrDuplicate, pgErr.ConstraintName, err)
	case checkViolationCode:
		return fmt.Errorf("%w: check %s: %v", store.ErrInvalidEntity, pgErr.ConstraintName, err)
	case notNullViolationCode:
		return fmt.Errorf("%w: column %s is required: %v", store.ErrInvalidEntity, pgErr.ColumnName, err)
	}
	return err
}

// requireRows returns missing when an UPDATE matched nothing.
func requireRows(res sql.Result, missing error) error {
	if res == nil {
		return errors.New("no result from update")
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if n == 0 {
		return missing
	}
	return nil
}
