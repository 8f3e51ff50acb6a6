package api

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/phrazzld/recruit-summary/internal/api/shared"
	"github.com/phrazzld/recruit-summary/internal/cache"
	"github.com/phrazzld/recruit-summary/internal/generation"
	"github.com/phrazzld/recruit-summary/internal/task"
)

// BatchStatsSource reports task counts and scheduler settings.
type BatchStatsSource interface {
	Stats(ctx context.Context) (task.BatchStats, error)
}

// LLMStatsSource reports language-model client counters.
type LLMStatsSource interface {
	Stats() generation.ClientStats
}

// ResultCacheAdmin exposes the result cache to operators.
type ResultCacheAdmin interface {
	Stats() cache.Stats
	Clear() int
}

// BatchTrigger starts a main sweep outside its schedule.
type BatchTrigger interface {
	TriggerNow() error
}

// MessageResponse is the body of operator actions.
type MessageResponse struct {
	Message string `json:"message"`
}

// ClearCacheResponse reports how many cache entries were removed.
type ClearCacheResponse struct {
	Message string `json:"message"`
	Removed int    `json:"removed"`
}

// DashboardResponse combines every monitoring view.
type DashboardResponse struct {
	BatchStatus task.BatchStats        `json:"batchStatus"`
	LLMStats    generation.ClientStats `json:"llmStats"`
	CacheStats  cache.Stats            `json:"cacheStats"`
	Timestamp   time.Time              `json:"timestamp"`
}

// MonitoringHandler serves the operator view of the summarization pipeline.
type MonitoringHandler struct {
	batch   BatchStatsSource
	llm     LLMStatsSource
	cache   ResultCacheAdmin
	trigger BatchTrigger
	now     func() time.Time
	logger  *slog.Logger
}

// NewMonitoringHandler creates a new MonitoringHandler.
func NewMonitoringHandler(
	batch BatchStatsSource,
	llm LLMStatsSource,
	resultCache ResultCacheAdmin,
	trigger BatchTrigger,
	logger *slog.Logger,
) *MonitoringHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &MonitoringHandler{
		batch:   batch,
		llm:     llm,
		cache:   resultCache,
		trigger: trigger,
		now:     time.Now,
		logger:  logger.With(slog.String("component", "monitoring_handler")),
	}
}

// BatchStatus handles GET /batch-status.
func (h *MonitoringHandler) BatchStatus(w http.ResponseWriter, r *http.Request) {
	stats, err := h.batch.Stats(r.Context())
	if err != nil {
		HandleAPIError(w, r, err, "Failed to load batch status")
		return
	}
	shared.RespondWithJSON(w, r, http.StatusOK, stats)
}

// LLMStats handles GET /llm-stats.
func (h *MonitoringHandler) LLMStats(w http.ResponseWriter, r *http.Request) {
	shared.RespondWithJSON(w, r, http.StatusOK, h.llm.Stats())
}

// CacheStats handles GET /cache-stats.
func (h *MonitoringHandler) CacheStats(w http.ResponseWriter, r *http.Request) {
	shared.RespondWithJSON(w, r, http.StatusOK, h.cache.Stats())
}

// Dashboard handles GET /dashboard.
func (h *MonitoringHandler) Dashboard(w http.ResponseWriter, r *http.Request) {
	stats, err := h.batch.Stats(r.Context())
	if err != nil {
		HandleAPIError(w, r, err, "Failed to load dashboard")
		return
	}
	shared.RespondWithJSON(w, r, http.StatusOK, DashboardResponse{
		BatchStatus: stats,
		LLMStats:    h.llm.Stats(),
		CacheStats:  h.cache.Stats(),
		Timestamp:   h.now().UTC(),
	})
}

// TriggerBatch handles POST /trigger-batch. The sweep runs in the background.
func (h *MonitoringHandler) TriggerBatch(w http.ResponseWriter, r *http.Request) {
	if err := h.trigger.TriggerNow(); err != nil {
		HandleAPIError(w, r, err, "Failed to trigger batch")
		return
	}
	h.logger.InfoContext(r.Context(), "batch triggered by operator")
	shared.RespondWithJSON(w, r, http.StatusAccepted, MessageResponse{Message: "Batch processing triggered"})
}

// ClearCache handles POST /clear-cache.
func (h *MonitoringHandler) ClearCache(w http.ResponseWriter, r *http.Request) {
	removed := h.cache.Clear()
	h.logger.InfoContext(r.Context(), "result cache cleared by operator", slog.Int("removed", removed))
	shared.RespondWithJSON(w, r, http.StatusOK, ClearCacheResponse{
		Message: "Cache cleared",
		Removed: removed,
	})
}
