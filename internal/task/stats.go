package task

import (
	"context"
	"fmt"
	"math"

	"github.com/phrazzld/recruit-summary/internal/domain"
	"github.com/phrazzld/recruit-summary/internal/store"
)

// BatchStats is the operator view of the pipeline.
type BatchStats struct {
	Pending         int64   `json:"pendingTasks"`
	Processing      int64   `json:"processingTasks"`
	Completed       int64   `json:"completedTasks"`
	Failed          int64   `json:"failedTasks"`
	Total           int64   `json:"totalTasks"`
	CompletionRate  float64 `json:"completionRate"`
	Enabled         bool    `json:"batchProcessingEnabled"`
	BatchSize       int     `json:"batchSize"`
	IntervalSeconds int64   `json:"intervalSeconds"`
}

// StatsReporter aggregates per-status task counts with the scheduler settings.
type StatsReporter struct {
	store  store.TaskStore
	config SchedulerConfig
}

// NewStatsReporter creates a StatsReporter.
func NewStatsReporter(taskStore store.TaskStore, cfg SchedulerConfig) *StatsReporter {
	return &StatsReporter{store: taskStore, config: cfg}
}

// Stats returns the current counts. CompletionRate is the percentage of all
// tasks that are COMPLETED, rounded to two decimals, and 0 when there are none.
func (r *StatsReporter) Stats(ctx context.Context) (BatchStats, error) {
	counts, err := r.store.CountsByStatus(ctx)
	if err != nil {
		return BatchStats{}, fmt.Errorf("count tasks by status: %w", err)
	}

	stats := BatchStats{
		Pending:         counts[domain.TaskStatusPending],
		Processing:      counts[domain.TaskStatusProcessing],
		Completed:       counts[domain.TaskStatusCompleted],
		Failed:          counts[domain.TaskStatusFailed],
		Enabled:         r.config.Enabled,
		BatchSize:       r.config.BatchSize,
		IntervalSeconds: int64(r.config.Interval.Seconds()),
	}
	stats.Total = stats.Pending + stats.Processing + stats.Completed + stats.Failed
	if stats.Total > 0 {
		rate := float64(stats.Completed) / float64(stats.Total) * 100
		stats.CompletionRate = math.Round(rate*100) / 100
	}
	return stats, nil
}
