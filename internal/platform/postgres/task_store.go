package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/phrazzld/recruit-summary/internal/domain"
	"github.com/phrazzld/recruit-summary/internal/store"
)

const taskColumns = `id, form_response_id, applicant_email, status, payload, result, error_message,
	retry_count, created_at, updated_at, processing_started_at, processing_completed_at`

// PostgresTaskStore implements store.TaskStore on the summarization_tasks table.
type PostgresTaskStore struct {
	db     store.DBTX
	logger *slog.Logger
}

// NewPostgresTaskStore creates a new PostgresTaskStore.
func NewPostgresTaskStore(db store.DBTX, logger *slog.Logger) *PostgresTaskStore {
	if logger == nil {
		logger = slog.Default()
	}
	return &PostgresTaskStore{
		db:     db,
		logger: logger.With("component", "task_store"),
	}
}

var _ store.TaskStore = (*PostgresTaskStore)(nil)

// WithTx returns a store that runs its queries in tx.
func (s *PostgresTaskStore) WithTx(tx *sql.Tx) *PostgresTaskStore {
	return &PostgresTaskStore{db: tx, logger: s.logger}
}

// Create implements store.TaskStore.
func (s *PostgresTaskStore) Create(ctx context.Context, task *domain.SummarizationTask) error {
	if err := task.Validate(); err != nil {
		return fmt.Errorf("%w: %w", store.ErrInvalidEntity, err)
	}

	payload, err := json.Marshal(task.Payload)
	if err != nil {
		return fmt.Errorf("%w: encode payload: %v", store.ErrInvalidEntity, err)
	}

	query := `
		INSERT INTO summarization_tasks (id, form_response_id, applicant_email, status, payload,
			retry_count, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`
	_, err = s.db.ExecContext(ctx, query,
		task.ID,
		task.FormResponseID,
		task.ApplicantEmail,
		string(task.Status),
		string(payload),
		task.RetryCount,
		task.CreatedAt,
		task.UpdatedAt,
	)
	if err != nil {
		mapped := MapError(err)
		if errors.Is(mapped, store.ErrSubmissionExists) {
			s.logger.InfoContext(ctx, "duplicate submission rejected",
				"form_response_id", task.FormResponseID)
			return mapped
		}
		s.logger.ErrorContext(ctx, "failed to create summarization task",
			"error", err,
			"task_id", task.ID)
		return mapped
	}
	return nil
}

// Get implements store.TaskStore.
func (s *PostgresTaskStore) Get(ctx context.Context, id uuid.UUID) (*domain.SummarizationTask, error) {
	query := `SELECT ` + taskColumns + ` FROM summarization_tasks WHERE id = $1`
	task, err := scanTask(s.db.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, store.ErrTaskNotFound
		}
		return nil, MapError(err)
	}
	return task, nil
}

// FindIDsByStatus implements store.TaskStore.
func (s *PostgresTaskStore) FindIDsByStatus(
	ctx context.Context,
	status domain.TaskStatus,
	limit int,
) ([]uuid.UUID, error) {
	query := `
		SELECT id FROM summarization_tasks
		WHERE status = $1
		ORDER BY created_at ASC, id ASC
		LIMIT $2
	`
	rows, err := s.db.QueryContext(ctx, query, string(status), limitArg(limit))
	if err != nil {
		s.logger.ErrorContext(ctx, "failed to query task IDs", "error", err, "status", status)
		return nil, MapError(err)
	}
	defer func() { _ = rows.Close() }()

	var ids []uuid.UUID
	for rows.Next() {
		var id uuid.UUID
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("failed to scan task ID: %w", err)
		}
		ids = append(ids, id)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating task IDs: %w", err)
	}
	return ids, nil
}

// LoadWithDependencies implements store.TaskStore.
func (s *PostgresTaskStore) LoadWithDependencies(
	ctx context.Context,
	ids []uuid.UUID,
) ([]*domain.SummarizationTask, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	keys := make([]string, len(ids))
	for i, id := range ids {
		keys[i] = id.String()
	}

	query := `SELECT ` + taskColumns + ` FROM summarization_tasks
		WHERE id = ANY($1::uuid[])
		ORDER BY created_at ASC, id ASC`
	return s.queryTasks(ctx, query, keys)
}

// Save implements store.TaskStore.
func (s *PostgresTaskStore) Save(ctx context.Context, task *domain.SummarizationTask, from domain.TaskStatus) error {
	var result sql.NullString
	if task.Result != nil {
		encoded, err := json.Marshal(task.Result)
		if err != nil {
			return fmt.Errorf("%w: encode result: %v", store.ErrInvalidEntity, err)
		}
		result = sql.NullString{String: string(encoded), Valid: true}
	}

	query := `
		UPDATE summarization_tasks
		SET status = $2, result = $3, error_message = $4, retry_count = $5, updated_at = $6,
			processing_started_at = $7, processing_completed_at = $8
		WHERE id = $1 AND status = $9
			AND ($9 <> 'PROCESSING' OR processing_started_at IS NOT DISTINCT FROM $7)
	`
	res, err := s.db.ExecContext(ctx, query,
		task.ID,
		string(task.Status),
		result,
		sql.NullString{String: task.ErrorMessage, Valid: task.ErrorMessage != ""},
		task.RetryCount,
		task.UpdatedAt,
		nullTime(task.ProcessingStartedAt),
		nullTime(task.ProcessingCompletedAt),
		string(from),
	)
	if err != nil {
		mapped := MapError(err)
		if errors.Is(mapped, store.ErrTaskInvariant) {
			s.logger.ErrorContext(ctx, "summarization task violates result invariant",
				"error", err,
				"task_id", task.ID,
				"status", task.Status,
				"has_result", task.Result != nil)
		} else {
			s.logger.ErrorContext(ctx, "failed to save summarization task",
				"error", err,
				"task_id", task.ID,
				"status", task.Status)
		}
		return fmt.Errorf("%w: %w", store.ErrUpdateFailed, mapped)
	}

	if err := requireRows(res, store.ErrTaskNotFound); err == nil {
		return nil
	} else if !errors.Is(err, store.ErrTaskNotFound) {
		return err
	}

	var current string
	err = s.db.QueryRowContext(ctx, `SELECT status FROM summarization_tasks WHERE id = $1`, task.ID).Scan(&current)
	if errors.Is(err, sql.ErrNoRows) {
		return store.ErrTaskNotFound
	}
	if err != nil {
		return MapError(err)
	}
	if current == string(from) {
		return fmt.Errorf("%w: task %s was claimed again", store.ErrStaleState, task.ID)
	}
	return fmt.Errorf("%w: task %s is %s, expected %s", store.ErrStaleState, task.ID, current, from)
}

// FindRetryEligible implements store.TaskStore.
func (s *PostgresTaskStore) FindRetryEligible(
	ctx context.Context,
	olderThan time.Time,
	maxRetries, limit int,
) ([]*domain.SummarizationTask, error) {
	query := `SELECT ` + taskColumns + ` FROM summarization_tasks
		WHERE status = 'FAILED' AND retry_count < $1 AND processing_completed_at < $2
		ORDER BY processing_completed_at ASC, id ASC
		LIMIT $3`
	return s.queryTasks(ctx, query, maxRetries, olderThan, limitArg(limit))
}

// FindTimedOut implements store.TaskStore.
func (s *PostgresTaskStore) FindTimedOut(
	ctx context.Context,
	olderThan time.Time,
	limit int,
) ([]*domain.SummarizationTask, error) {
	query := `SELECT ` + taskColumns + ` FROM summarization_tasks
		WHERE status = 'PROCESSING' AND processing_started_at < $1
		ORDER BY processing_started_at ASC, id ASC
		LIMIT $2`
	return s.queryTasks(ctx, query, olderThan, limitArg(limit))
}

// CountsByStatus implements store.TaskStore.
func (s *PostgresTaskStore) CountsByStatus(ctx context.Context) (map[domain.TaskStatus]int64, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT status, COUNT(*) FROM summarization_tasks GROUP BY status`)
	if err != nil {
		s.logger.ErrorContext(ctx, "failed to count tasks", "error", err)
		return nil, MapError(err)
	}
	defer func() { _ = rows.Close() }()

	counts := make(map[domain.TaskStatus]int64, len(domain.AllTaskStatuses))
	for _, status := range domain.AllTaskStatuses {
		counts[status] = 0
	}
	for rows.Next() {
		var status string
		var n int64
		if err := rows.Scan(&status, &n); err != nil {
			return nil, fmt.Errorf("failed to scan task count: %w", err)
		}
		counts[domain.TaskStatus(status)] = n
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating task counts: %w", err)
	}
	return counts, nil
}

func (s *PostgresTaskStore) queryTasks(ctx context.Context, query string, args ...any) ([]*domain.SummarizationTask, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		s.logger.ErrorContext(ctx, "failed to query summarization tasks", "error", err)
		return nil, MapError(err)
	}
	defer func() { _ = rows.Close() }()

	var tasks []*domain.SummarizationTask
	for rows.Next() {
		task, err := scanTask(rows)
		if err != nil {
			return nil, err
		}
		tasks = append(tasks, task)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating summarization tasks: %w", err)
	}
	return tasks, nil
}

// rowScanner is satisfied by *sql.Row and *sql.Rows.
type rowScanner interface {
	Scan(dest ...any) error
}

func scanTask(row rowScanner) (*domain.SummarizationTask, error) {
	var (
		task         domain.SummarizationTask
		status       string
		payload      []byte
		result       []byte
		errorMessage sql.NullString
		started      sql.NullTime
		completed    sql.NullTime
	)
	err := row.Scan(
		&task.ID,
		&task.FormResponseID,
		&task.ApplicantEmail,
		&status,
		&payload,
		&result,
		&errorMessage,
		&task.RetryCount,
		&task.CreatedAt,
		&task.UpdatedAt,
		&started,
		&completed,
	)
	if err != nil {
		return nil, err
	}

	task.Status = domain.TaskStatus(status)
	task.ErrorMessage = errorMessage.String
	task.ProcessingStartedAt = timePtr(started)
	task.ProcessingCompletedAt = timePtr(completed)

	if err := json.Unmarshal(payload, &task.Payload); err != nil {
		return nil, fmt.Errorf("decode payload of task %s: %w", task.ID, err)
	}
	if len(result) > 0 {
		task.Result = &domain.AssessmentResult{}
		if err := json.Unmarshal(result, task.Result); err != nil {
			return nil, fmt.Errorf("decode result of task %s: %w", task.ID, err)
		}
	}
	return &task, nil
}

// limitArg turns a non-positive limit into NULL, which Postgres reads as no limit.
func limitArg(limit int) sql.NullInt64 {
	return sql.NullInt64{Int64: int64(limit), Valid: limit > 0}
}

func nullTime(t *time.Time) sql.NullTime {
	if t == nil {
		return sql.NullTime{}
	}
	return sql.NullTime{Time: *t, Valid: true}
}

func timePtr(t sql.NullTime) *time.Time {
	if !t.Valid {
		return nil
	}
	v := t.Time.UTC()
	return &v
}
