// Package main implements the entry point for the recruit-summary server,
// which accepts applicant submissions and summarizes them in the background
// with a language model.
package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/phrazzld/recruit-summary/internal/config"
	"github.com/phrazzld/recruit-summary/internal/platform/logger"
	"github.com/phrazzld/recruit-summary/internal/platform/postgres"
)

func main() {
	migrate := flag.String("migrate", "",
		"run a migration command ("+strings.Join(postgres.MigrationCommands, ", ")+") and exit")
	flag.Parse()

	if err := run(context.Background(), *migrate); err != nil {
		slog.Error("server exited with error", "error", err)
		fmt.Fprintf(os.Stderr, "recruit-summary: %v\n", err)
		os.Exit(1)
	}
}

// run loads configuration, connects to the database and either runs the
// requested migration command or serves until interrupted.
func run(ctx context.Context, migrateCommand string) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}

	log, err := logger.Setup(cfg.Server)
	if err != nil {
		return fmt.Errorf("failed to set up logger: %w", err)
	}
	log.Info("server configuration loaded",
		"port", cfg.Server.Port,
		"log_level", cfg.Server.LogLevel,
		"llm_provider", cfg.LLM.Provider,
		"batch_enabled", cfg.Batch.Enabled,
		"window_source", cfg.Recruiting.Source)

	db, err := setupAppDatabase(ctx, cfg.Database, log)
	if err != nil {
		return err
	}

	if migrateCommand != "" {
		defer closeDatabase(db, log)
		return postgres.Migrate(ctx, db, migrateCommand, log)
	}

	provider, err := newProvider(ctx, cfg.LLM, log)
	if err != nil {
		closeDatabase(db, log)
		return err
	}

	app, err := newApplication(ctx, cfg, log, appDeps{
		db:       db,
		tasks:    postgres.NewPostgresTaskStore(db, log),
		forms:    postgres.NewPostgresFormStore(db, log),
		provider: provider,
	})
	if err != nil {
		closeDatabase(db, log)
		return fmt.Errorf("failed to initialize application: %w", err)
	}
	return app.Run(ctx)
}
