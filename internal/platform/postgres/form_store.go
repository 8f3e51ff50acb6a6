package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/phrazzld/recruit-summary/internal/domain"
	"github.com/phrazzld/recruit-summary/internal/store"
)

const formColumns = `id, external_id, title, status, created_at, updated_at`

// PostgresFormStore implements store.FormStore on the recruiting_forms table.
type PostgresFormStore struct {
	db     store.DBTX
	logger *slog.Logger
}

// NewPostgresFormStore creates a new PostgresFormStore. When db is a *sql.DB,
// Activate runs in its own transaction.
func NewPostgresFormStore(db store.DBTX, logger *slog.Logger) *PostgresFormStore {
	if logger == nil {
		logger = slog.Default()
	}
	return &PostgresFormStore{
		db:     db,
		logger: logger.With("component", "form_store"),
	}
}

var _ store.FormStore = (*PostgresFormStore)(nil)

// WithTx returns a store that runs its queries in tx.
func (s *PostgresFormStore) WithTx(tx *sql.Tx) *PostgresFormStore {
	return &PostgresFormStore{db: tx, logger: s.logger}
}

// Create implements store.FormStore.
func (s *PostgresFormStore) Create(ctx context.Context, form *domain.RecruitingForm) error {
	if err := form.Validate(); err != nil {
		return fmt.Errorf("%w: %w", store.ErrInvalidEntity, err)
	}

	query := `
		INSERT INTO recruiting_forms (id, external_id, title, status, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6)
	`
	_, err := s.db.ExecContext(ctx, query,
		form.ID,
		sql.NullString{String: form.ExternalID, Valid: form.ExternalID != ""},
		form.Title,
		string(form.Status),
		form.CreatedAt,
		form.UpdatedAt,
	)
	if err != nil {
		s.logger.ErrorContext(ctx, "failed to create recruiting form",
			"error", err,
			"form_id", form.ID)
		return MapError(err)
	}
	return nil
}

// Get implements store.FormStore.
func (s *PostgresFormStore) Get(ctx context.Context, id uuid.UUID) (*domain.RecruitingForm, error) {
	query := `SELECT ` + formColumns + ` FROM recruiting_forms WHERE id = $1`
	form, err := scanForm(s.db.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, store.ErrFormNotFound
		}
		return nil, MapError(err)
	}
	return form, nil
}

// List implements store.FormStore.
func (s *PostgresFormStore) List(ctx context.Context) ([]*domain.RecruitingForm, error) {
	query := `SELECT ` + formColumns + ` FROM recruiting_forms ORDER BY created_at DESC, id ASC`
	rows, err := s.db.QueryContext(ctx, query)
	if err != nil {
		s.logger.ErrorContext(ctx, "failed to list recruiting forms", "error", err)
		return nil, MapError(err)
	}
	defer func() { _ = rows.Close() }()

	var forms []*domain.RecruitingForm
	for rows.Next() {
		form, err := scanForm(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan recruiting form: %w", err)
		}
		forms = append(forms, form)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating recruiting forms: %w", err)
	}
	return forms, nil
}

// Activate implements store.FormStore.
func (s *PostgresFormStore) Activate(
	ctx context.Context,
	id uuid.UUID,
	now time.Time,
) (*domain.RecruitingForm, []uuid.UUID, error) {
	var (
		form        *domain.RecruitingForm
		deactivated []uuid.UUID
	)

	beginner, ok := s.db.(store.TxBeginner)
	if !ok {
		var err error
		form, deactivated, err = s.activate(ctx, s.db, id, now)
		return form, deactivated, err
	}

	err := store.RunInTransaction(ctx, beginner, "activate_form", func(ctx context.Context, tx *sql.Tx) error {
		var err error
		form, deactivated, err = s.activate(ctx, tx, id, now)
		return err
	})
	if err != nil {
		return nil, nil, err
	}
	return form, deactivated, nil
}

func (s *PostgresFormStore) activate(
	ctx context.Context,
	db store.DBTX,
	id uuid.UUID,
	now time.Time,
) (*domain.RecruitingForm, []uuid.UUID, error) {
	query := `SELECT ` + formColumns + ` FROM recruiting_forms WHERE id = $1 FOR UPDATE`
	form, err := scanForm(db.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil, store.ErrFormNotFound
		}
		return nil, nil, MapError(err)
	}

	if _, err := form.ChangeStatus(domain.FormStatusActive, now); err != nil {
		return nil, nil, err
	}

	rows, err := db.QueryContext(ctx, `
		UPDATE recruiting_forms
		SET status = 'INACTIVE', updated_at = $2
		WHERE status = 'ACTIVE' AND id <> $1
		RETURNING id
	`, id, form.UpdatedAt)
	if err != nil {
		s.logger.ErrorContext(ctx, "failed to deactivate recruiting forms", "error", err)
		return nil, nil, MapError(err)
	}
	var deactivated []uuid.UUID
	for rows.Next() {
		var other uuid.UUID
		if err := rows.Scan(&other); err != nil {
			_ = rows.Close()
			return nil, nil, fmt.Errorf("failed to scan deactivated form ID: %w", err)
		}
		deactivated = append(deactivated, other)
	}
	if err := rows.Err(); err != nil {
		_ = rows.Close()
		return nil, nil, fmt.Errorf("error iterating deactivated forms: %w", err)
	}
	_ = rows.Close()

	res, err := db.ExecContext(ctx,
		`UPDATE recruiting_forms SET status = $2, updated_at = $3 WHERE id = $1`,
		id, string(form.Status), form.UpdatedAt)
	if err != nil {
		s.logger.ErrorContext(ctx, "failed to activate recruiting form",
			"error", err,
			"form_id", id)
		return nil, nil, fmt.Errorf("%w: %w", store.ErrUpdateFailed, MapError(err))
	}
	if err := requireRows(res, store.ErrFormNotFound); err != nil {
		return nil, nil, err
	}

	s.logger.InfoContext(ctx, "recruiting form activated",
		"form_id", id,
		"deactivated_count", len(deactivated))
	return form, deactivated, nil
}

// UpdateStatus implements store.FormStore.
func (s *PostgresFormStore) UpdateStatus(ctx context.Context, form *domain.RecruitingForm) error {
	if !form.Status.Valid() {
		return fmt.Errorf("%w: %w: %q", store.ErrInvalidEntity, domain.ErrInvalidFormStatus, form.Status)
	}

	res, err := s.db.ExecContext(ctx,
		`UPDATE recruiting_forms SET status = $2, updated_at = $3 WHERE id = $1`,
		form.ID, string(form.Status), form.UpdatedAt)
	if err != nil {
		s.logger.ErrorContext(ctx, "failed to update recruiting form status",
			"error", err,
			"form_id", form.ID,
			"status", form.Status)
		return fmt.Errorf("%w: %w", store.ErrUpdateFailed, MapError(err))
	}
	return requireRows(res, store.ErrFormNotFound)
}

// ExistsActive implements store.FormStore.
func (s *PostgresFormStore) ExistsActive(ctx context.Context) (bool, error) {
	var exists bool
	err := s.db.QueryRowContext(ctx,
		`SELECT EXISTS (SELECT 1 FROM recruiting_forms WHERE status = 'ACTIVE')`).Scan(&exists)
	if err != nil {
		s.logger.ErrorContext(ctx, "failed to check for an active recruiting form", "error", err)
		return false, MapError(err)
	}
	return exists, nil
}

func scanForm(row rowScanner) (*domain.RecruitingForm, error) {
	var (
		form       domain.RecruitingForm
		externalID sql.NullString
		status     string
	)
	if err := row.Scan(&form.ID, &externalID, &form.Title, &status, &form.CreatedAt, &form.UpdatedAt); err != nil {
		return nil, err
	}
	form.ExternalID = externalID.String
	form.Status = domain.FormStatus(status)
	return &form, nil
}
