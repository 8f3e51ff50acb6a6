package main

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/phrazzld/recruit-summary/internal/api"
	"github.com/phrazzld/recruit-summary/internal/assessment"
	"github.com/phrazzld/recruit-summary/internal/cache"
	"github.com/phrazzld/recruit-summary/internal/config"
	"github.com/phrazzld/recruit-summary/internal/domain"
	"github.com/phrazzld/recruit-summary/internal/events"
	"github.com/phrazzld/recruit-summary/internal/generation"
	"github.com/phrazzld/recruit-summary/internal/platform/gemini"
	"github.com/phrazzld/recruit-summary/internal/platform/openai"
	"github.com/phrazzld/recruit-summary/internal/platform/openrouter"
	"github.com/phrazzld/recruit-summary/internal/service"
	"github.com/phrazzld/recruit-summary/internal/store"
	"github.com/phrazzld/recruit-summary/internal/task"
)

// appDeps are the external resources the application is built on. db may be
// nil when the stores do not need a connection.
type appDeps struct {
	db       *sql.DB
	tasks    store.TaskStore
	forms    store.FormStore
	provider generation.Provider
}

// application holds all the shared application dependencies to simplify management
// and ensure proper cleanup on shutdown.
type application struct {
	config *config.Config
	logger *slog.Logger
	db     *sql.DB

	taskStore store.TaskStore
	formStore store.FormStore

	llmClient   *generation.Client
	resultCache *cache.ResultCache
	emitter     *events.InMemoryEventEmitter

	queue     *task.JobQueue
	pool      *task.WorkerPool
	scheduler *task.BatchScheduler
	stats     *task.StatsReporter

	submissionHandler *api.SubmissionHandler
	formHandler       *api.FormHandler
	monitoringHandler *api.MonitoringHandler
}

// newApplication wires the summarization pipeline, the recruiting window and
// the HTTP handlers. Nothing is started until Run.
func newApplication(ctx context.Context, cfg *config.Config, logger *slog.Logger, deps appDeps) (*application, error) {
	if deps.tasks == nil || deps.forms == nil || deps.provider == nil {
		return nil, fmt.Errorf("application requires a task store, a form store and a provider")
	}

	app := &application{
		config:    cfg,
		logger:    logger,
		db:        deps.db,
		taskStore: deps.tasks,
		formStore: deps.forms,
		emitter:   events.NewInMemoryEventEmitter(logger),
	}

	var err error
	app.llmClient, err = generation.NewClient(deps.provider, clientConfigFrom(cfg.LLM), logger)
	if err != nil {
		return nil, fmt.Errorf("failed to create language model client: %w", err)
	}

	prompts, err := generation.NewPromptBuilder(cfg.LLM.PromptTemplatePath, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to create prompt builder: %w", err)
	}

	app.resultCache = cache.New(cfg.Cache.MaxEntries, cfg.Cache.MaxAge(), logger)

	processor, err := task.NewProcessor(
		app.taskStore,
		prompts,
		app.llmClient,
		assessment.NewValidator(logger),
		logger,
		task.WithResultCache(app.resultCache),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create task processor: %w", err)
	}

	window, err := app.newWindow(ctx)
	if err != nil {
		return nil, err
	}

	app.queue = task.NewJobQueue(cfg.Batch.QueueSize, logger)
	app.pool = task.NewWorkerPool(app.queue, task.WorkerPoolConfig{WorkerCount: cfg.Batch.WorkerCount}, logger)

	schedulerConfig := task.SchedulerConfigFrom(cfg.Batch)
	app.scheduler, err = task.NewBatchScheduler(
		app.taskStore,
		processor,
		app.queue,
		schedulerConfig,
		logger,
		task.WithWindow(window),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create batch scheduler: %w", err)
	}
	app.stats = task.NewStatsReporter(app.taskStore, schedulerConfig)

	submissions, err := service.NewSubmissionService(app.taskStore, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to create submission service: %w", err)
	}
	forms, err := service.NewFormService(app.formStore, app.emitter, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to create form service: %w", err)
	}

	app.submissionHandler = api.NewSubmissionHandler(submissions, logger)
	app.formHandler = api.NewFormHandler(forms, logger)
	app.monitoringHandler = api.NewMonitoringHandler(app.stats, app.llmClient, app.resultCache, app.scheduler, logger)

	logger.Info("application initialized",
		"llm_provider", deps.provider.Name(),
		"window_source", cfg.Recruiting.Source,
		"worker_count", cfg.Batch.WorkerCount,
		"queue_size", cfg.Batch.QueueSize)
	return app, nil
}

func clientConfigFrom(cfg config.LLMConfig) generation.ClientConfig {
	c := generation.DefaultClientConfig()
	c.ConcurrencyLimit = cfg.ConcurrencyLimit
	c.CallTimeout = cfg.CallTimeout()
	c.RequestsPerSecond = cfg.RequestsPerSecond
	c.MaxResponseBytes = cfg.MaxResponseBytes
	return c
}

// newProvider builds the language-model provider named by cfg.Provider.
func newProvider(ctx context.Context, cfg config.LLMConfig, logger *slog.Logger) (generation.Provider, error) {
	var (
		provider generation.Provider
		err      error
	)
	switch cfg.Provider {
	case config.ProviderOpenAI:
		provider, err = openai.NewProvider(cfg, logger)
	case config.ProviderGemini:
		provider, err = gemini.NewProvider(ctx, cfg, logger)
	case config.ProviderOpenRouter:
		provider, err = openrouter.NewProvider(cfg, logger)
	default:
		return nil, fmt.Errorf("unsupported language model provider %q", cfg.Provider)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to initialize %s provider: %w", cfg.Provider, err)
	}
	logger.Info("language model provider initialized", "provider", cfg.Provider, "model", cfg.Model)
	return provider, nil
}

// newWindow builds the recruiting window the sweeps consult. The events
// source is seeded from the forms that are active at startup and then kept
// current by form lifecycle events.
func (app *application) newWindow(ctx context.Context) (task.WindowChecker, error) {
	switch app.config.Recruiting.Source {
	case config.WindowSourceDatabase:
		return task.NewStoreWindow(app.formStore), nil
	case config.WindowSourceStatic:
		return task.StaticWindow(app.config.Recruiting.StaticOpen), nil
	case config.WindowSourceEvents:
		tracker := task.NewFormTracker(app.logger)
		forms, err := app.formStore.List(ctx)
		if err != nil {
			return nil, fmt.Errorf("failed to load recruiting forms: %w", err)
		}
		active := make(map[uuid.UUID]string)
		for _, f := range forms {
			if f.Status == domain.FormStatusActive {
				active[f.ID] = f.Title
			}
		}
		tracker.Seed(active)
		// New forms start INACTIVE, so creation never moves the window.
		app.emitter.RegisterHandler(tracker,
			events.FormActivated, events.FormDeactivated, events.FormClosed, events.FormStatusChanged)
		return tracker, nil
	default:
		return nil, fmt.Errorf("unsupported recruiting window source %q", app.config.Recruiting.Source)
	}
}

// Run starts the workers and the sweeps, then serves HTTP until ctx is
// canceled or the process is signaled.
func (app *application) Run(ctx context.Context) error {
	app.pool.Start()
	if err := app.scheduler.Start(); err != nil {
		app.cleanup()
		return fmt.Errorf("failed to start batch scheduler: %w", err)
	}

	if err := app.startHTTPServer(ctx, app.setupRouter()); err != nil {
		return fmt.Errorf("server error: %w", err)
	}
	return nil
}

// cleanup stops the sweeps, drains the workers and closes the database.
func (app *application) cleanup() {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := app.scheduler.Stop(ctx); err != nil {
		app.logger.Error("error stopping batch scheduler", "error", err)
	}
	app.queue.Close()
	if err := app.pool.Shutdown(ctx); err != nil {
		app.logger.Error("error draining worker pool", "error", err)
	}
	closeDatabase(app.db, app.logger)

	app.logger.Info("application shutdown completed")
}
