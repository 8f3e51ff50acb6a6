package api

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/phrazzld/recruit-summary/internal/cache"
	"github.com/phrazzld/recruit-summary/internal/generation"
	"github.com/phrazzld/recruit-summary/internal/task"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeBatchStats struct {
	stats task.BatchStats
	err   error
}

func (f fakeBatchStats) Stats(context.Context) (task.BatchStats, error) {
	return f.stats, f.err
}

type fakeLLMStats struct{}

func (fakeLLMStats) Stats() generation.ClientStats {
	return generation.ClientStats{Provider: "fake", ConcurrencyLimit: 5, AvailableSlots: 5, TotalCalls: 12}
}

type fakeTrigger struct {
	calls int
	err   error
}

func (f *fakeTrigger) TriggerNow() error {
	f.calls++
	return f.err
}

func newMonitoringRouter(batch BatchStatsSource, resultCache ResultCacheAdmin, trigger BatchTrigger) http.Handler {
	h := NewMonitoringHandler(batch, fakeLLMStats{}, resultCache, trigger, testLogger())
	h.now = func() time.Time { return time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC) }

	r := chi.NewRouter()
	r.Route(MonitoringPrefix, h.Mount)
	return r
}

func serve(router http.Handler, method, path string) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(method, path, nil))
	return w
}

func TestMonitoringReadRoutes(t *testing.T) {
	stats := task.BatchStats{
		Pending: 2, Processing: 1, Completed: 6, Failed: 1, Total: 10,
		CompletionRate: 60, Enabled: true, BatchSize: 8, IntervalSeconds: 5,
	}
	resultCache := cache.New(100, time.Hour, testLogger())
	router := newMonitoringRouter(fakeBatchStats{stats: stats}, resultCache, &fakeTrigger{})

	w := serve(router, http.MethodGet, MonitoringPrefix+"/batch-status")
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{
		"pendingTasks": 2, "processingTasks": 1, "completedTasks": 6, "failedTasks": 1,
		"totalTasks": 10, "completionRate": 60, "batchProcessingEnabled": true,
		"batchSize": 8, "intervalSeconds": 5
	}`, w.Body.String())

	w = serve(router, http.MethodGet, MonitoringPrefix+"/llm-stats")
	require.Equal(t, http.StatusOK, w.Code)
	llm := decode[generation.ClientStats](t, w)
	assert.Equal(t, "fake", llm.Provider)
	assert.Equal(t, int64(12), llm.TotalCalls)

	w = serve(router, http.MethodGet, MonitoringPrefix+"/cache-stats")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, 100, decode[cache.Stats](t, w).MaxEntries)

	w = serve(router, http.MethodGet, MonitoringPrefix+"/dashboard")
	require.Equal(t, http.StatusOK, w.Code)
	dash := decode[DashboardResponse](t, w)
	assert.Equal(t, stats, dash.BatchStatus)
	assert.Equal(t, "fake", dash.LLMStats.Provider)
	assert.Equal(t, time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC), dash.Timestamp)
}

func TestMonitoringBatchStatusError(t *testing.T) {
	router := newMonitoringRouter(
		fakeBatchStats{err: errors.New("count tasks by status: connection refused")},
		cache.New(10, time.Hour, testLogger()),
		&fakeTrigger{},
	)

	w := serve(router, http.MethodGet, MonitoringPrefix+"/batch-status")
	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.NotContains(t, w.Body.String(), "connection refused")

	w = serve(router, http.MethodGet, MonitoringPrefix+"/dashboard")
	assert.Equal(t, http.StatusInternalServerError, w.Code)
}

func TestMonitoringTriggerBatch(t *testing.T) {
	trigger := &fakeTrigger{}
	router := newMonitoringRouter(fakeBatchStats{}, cache.New(10, time.Hour, testLogger()), trigger)

	w := serve(router, http.MethodPost, MonitoringPrefix+"/trigger-batch")
	assert.Equal(t, http.StatusAccepted, w.Code)
	assert.Equal(t, 1, trigger.calls)

	trigger.err = task.ErrSchedulerStopped
	w = serve(router, http.MethodPost, MonitoringPrefix+"/trigger-batch")
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)

	w = serve(router, http.MethodGet, MonitoringPrefix+"/trigger-batch")
	assert.Equal(t, http.StatusMethodNotAllowed, w.Code)
}

func TestMonitoringClearCache(t *testing.T) {
	resultCache := cache.New(10, time.Hour, testLogger())
	router := newMonitoringRouter(fakeBatchStats{}, resultCache, &fakeTrigger{})

	w := serve(router, http.MethodPost, MonitoringPrefix+"/clear-cache")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, ClearCacheResponse{Message: "Cache cleared", Removed: 0}, decode[ClearCacheResponse](t, w))
	assert.Equal(t, 0, resultCache.Len())
}
