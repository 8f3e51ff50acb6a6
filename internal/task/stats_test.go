package task

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/phrazzld/recruit-summary/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type countingStore struct {
	*MemoryStore
	counts map[domain.TaskStatus]int64
	err    error
}

func (s countingStore) CountsByStatus(context.Context) (map[domain.TaskStatus]int64, error) {
	return s.counts, s.err
}

func TestStatsReporter(t *testing.T) {
	t.Parallel()
	cfg := testSchedulerConfig()
	cfg.Enabled = true
	cfg.Interval = 5 * time.Second

	tests := []struct {
		name     string
		counts   map[domain.TaskStatus]int64
		expected BatchStats
	}{
		{
			name: "empty store",
			counts: map[domain.TaskStatus]int64{
				domain.TaskStatusPending: 0, domain.TaskStatusProcessing: 0,
				domain.TaskStatusCompleted: 0, domain.TaskStatusFailed: 0,
			},
			expected: BatchStats{Enabled: true, BatchSize: 8, IntervalSeconds: 5},
		},
		{
			name: "mixed",
			counts: map[domain.TaskStatus]int64{
				domain.TaskStatusPending: 1, domain.TaskStatusProcessing: 1,
				domain.TaskStatusCompleted: 1, domain.TaskStatusFailed: 0,
			},
			expected: BatchStats{
				Pending: 1, Processing: 1, Completed: 1, Total: 3,
				CompletionRate: 33.33, Enabled: true, BatchSize: 8, IntervalSeconds: 5,
			},
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			reporter := NewStatsReporter(countingStore{MemoryStore: NewMemoryStore(), counts: tc.counts}, cfg)
			stats, err := reporter.Stats(context.Background())
			require.NoError(t, err)
			assert.Equal(t, tc.expected, stats)
		})
	}
}

func TestStatsReporterStoreError(t *testing.T) {
	t.Parallel()
	boom := errors.New("boom")
	reporter := NewStatsReporter(countingStore{MemoryStore: NewMemoryStore(), err: boom}, testSchedulerConfig())

	_, err := reporter.Stats(context.Background())
	assert.ErrorIs(t, err, boom)
}

func TestStatsReporterAfterBatch(t *testing.T) {
	t.Parallel()
	h := newHarness(t, nil, harnessOptions{startPool: true, scheduler: func(c *SchedulerConfig) {
		c.BatchSize = 2
	}})
	h.submit(t, 4)
	_, err := h.scheduler.RunBatch(context.Background())
	require.NoError(t, err)

	stats, err := NewStatsReporter(h.store, h.scheduler.Config()).Stats(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int64(2), stats.Completed)
	assert.Equal(t, int64(2), stats.Pending)
	assert.Equal(t, int64(4), stats.Total)
	assert.Equal(t, 50.0, stats.CompletionRate)
}
