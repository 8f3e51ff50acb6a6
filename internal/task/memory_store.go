package task

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/phrazzld/recruit-summary/internal/domain"
	"github.com/phrazzld/recruit-summary/internal/store"
)

type naturalKey struct {
	formResponseID string
	applicantEmail string
}

// MemoryStore is an in-process store.TaskStore. Tasks are copied on the way
// in and out, so callers never share state with the store.
type MemoryStore struct {
	mutex sync.RWMutex
	tasks map[uuid.UUID]*domain.SummarizationTask
	keys  map[naturalKey]uuid.UUID

	// SaveFn, when set, replaces Save. Tests use it to inject persistence failures.
	SaveFn func(ctx context.Context, task *domain.SummarizationTask, from domain.TaskStatus) error
}

// NewMemoryStore creates an empty MemoryStore.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		tasks: make(map[uuid.UUID]*domain.SummarizationTask),
		keys:  make(map[naturalKey]uuid.UUID),
	}
}

var _ store.TaskStore = (*MemoryStore)(nil)

// Create implements store.TaskStore.
func (s *MemoryStore) Create(ctx context.Context, task *domain.SummarizationTask) error {
	if err := task.Validate(); err != nil {
		return fmt.Errorf("%w: %w", store.ErrInvalidEntity, err)
	}

	s.mutex.Lock()
	defer s.mutex.Unlock()

	key := naturalKey{task.FormResponseID, task.ApplicantEmail}
	if _, exists := s.keys[key]; exists {
		return store.ErrSubmissionExists
	}
	if _, exists := s.tasks[task.ID]; exists {
		return store.ErrDuplicate
	}
	s.tasks[task.ID] = task.Clone()
	s.keys[key] = task.ID
	return nil
}

// Get implements store.TaskStore.
func (s *MemoryStore) Get(ctx context.Context, id uuid.UUID) (*domain.SummarizationTask, error) {
	s.mutex.RLock()
	defer s.mutex.RUnlock()

	t, ok := s.tasks[id]
	if !ok {
		return nil, store.ErrTaskNotFound
	}
	return t.Clone(), nil
}

// FindIDsByStatus implements store.TaskStore.
func (s *MemoryStore) FindIDsByStatus(
	ctx context.Context,
	status domain.TaskStatus,
	limit int,
) ([]uuid.UUID, error) {
	s.mutex.RLock()
	defer s.mutex.RUnlock()

	matched := s.filter(func(t *domain.SummarizationTask) bool { return t.Status == status })
	sortBy(matched, func(t *domain.SummarizationTask) time.Time { return t.CreatedAt })
	matched = head(matched, limit)

	ids := make([]uuid.UUID, len(matched))
	for i, t := range matched {
		ids[i] = t.ID
	}
	return ids, nil
}

// LoadWithDependencies implements store.TaskStore.
func (s *MemoryStore) LoadWithDependencies(
	ctx context.Context,
	ids []uuid.UUID,
) ([]*domain.SummarizationTask, error) {
	s.mutex.RLock()
	defer s.mutex.RUnlock()

	out := make([]*domain.SummarizationTask, 0, len(ids))
	for _, id := range ids {
		if t, ok := s.tasks[id]; ok {
			out = append(out, t.Clone())
		}
	}
	sortBy(out, func(t *domain.SummarizationTask) time.Time { return t.CreatedAt })
	return out, nil
}

// Save implements store.TaskStore.
func (s *MemoryStore) Save(ctx context.Context, task *domain.SummarizationTask, from domain.TaskStatus) error {
	if s.SaveFn != nil {
		return s.SaveFn(ctx, task, from)
	}
	return s.save(task, from)
}

func (s *MemoryStore) save(task *domain.SummarizationTask, from domain.TaskStatus) error {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	current, ok := s.tasks[task.ID]
	if !ok {
		return store.ErrTaskNotFound
	}
	if current.Status != from {
		return fmt.Errorf("%w: task %s is %s, expected %s", store.ErrStaleState, task.ID, current.Status, from)
	}
	if from == domain.TaskStatusProcessing && !sameInstant(current.ProcessingStartedAt, task.ProcessingStartedAt) {
		return fmt.Errorf("%w: task %s was claimed again", store.ErrStaleState, task.ID)
	}
	if (task.Status == domain.TaskStatusCompleted) != (task.Result != nil) {
		return fmt.Errorf("%w: %w: task %s is %s", store.ErrUpdateFailed, store.ErrTaskInvariant, task.ID, task.Status)
	}
	s.tasks[task.ID] = task.Clone()
	return nil
}

func sameInstant(a, b *time.Time) bool {
	if a == nil || b == nil {
		return a == b
	}
	return a.Equal(*b)
}

// FindRetryEligible implements store.TaskStore.
func (s *MemoryStore) FindRetryEligible(
	ctx context.Context,
	olderThan time.Time,
	maxRetries, limit int,
) ([]*domain.SummarizationTask, error) {
	s.mutex.RLock()
	defer s.mutex.RUnlock()

	matched := s.filter(func(t *domain.SummarizationTask) bool {
		return t.IsRetryEligible(olderThan, maxRetries)
	})
	sortBy(matched, func(t *domain.SummarizationTask) time.Time { return *t.ProcessingCompletedAt })
	return cloneAll(head(matched, limit)), nil
}

// FindTimedOut implements store.TaskStore.
func (s *MemoryStore) FindTimedOut(
	ctx context.Context,
	olderThan time.Time,
	limit int,
) ([]*domain.SummarizationTask, error) {
	s.mutex.RLock()
	defer s.mutex.RUnlock()

	matched := s.filter(func(t *domain.SummarizationTask) bool { return t.IsTimedOut(olderThan) })
	sortBy(matched, func(t *domain.SummarizationTask) time.Time { return *t.ProcessingStartedAt })
	return cloneAll(head(matched, limit)), nil
}

// CountsByStatus implements store.TaskStore.
func (s *MemoryStore) CountsByStatus(ctx context.Context) (map[domain.TaskStatus]int64, error) {
	s.mutex.RLock()
	defer s.mutex.RUnlock()

	counts := make(map[domain.TaskStatus]int64, len(domain.AllTaskStatuses))
	for _, st := range domain.AllTaskStatuses {
		counts[st] = 0
	}
	for _, t := range s.tasks {
		counts[t.Status]++
	}
	return counts, nil
}

// filter returns the stored tasks matching keep. Callers hold the lock.
func (s *MemoryStore) filter(keep func(*domain.SummarizationTask) bool) []*domain.SummarizationTask {
	var out []*domain.SummarizationTask
	for _, t := range s.tasks {
		if keep(t) {
			out = append(out, t)
		}
	}
	return out
}

func sortBy(tasks []*domain.SummarizationTask, at func(*domain.SummarizationTask) time.Time) {
	sort.SliceStable(tasks, func(i, j int) bool {
		ai, aj := at(tasks[i]), at(tasks[j])
		if ai.Equal(aj) {
			return tasks[i].ID.String() < tasks[j].ID.String()
		}
		return ai.Before(aj)
	})
}

func head(tasks []*domain.SummarizationTask, limit int) []*domain.SummarizationTask {
	if limit > 0 && len(tasks) > limit {
		return tasks[:limit]
	}
	return tasks
}

func cloneAll(tasks []*domain.SummarizationTask) []*domain.SummarizationTask {
	out := make([]*domain.SummarizationTask, len(tasks))
	for i, t := range tasks {
		out[i] = t.Clone()
	}
	return out
}
