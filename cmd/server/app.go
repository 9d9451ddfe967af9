package main

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"os"

	"github.com/google/uuid"

	"github.com/lexigo/wordbook-worker/internal/config"
	"github.com/lexigo/wordbook-worker/internal/notify"
	"github.com/lexigo/wordbook-worker/internal/platform/gemini"
	"github.com/lexigo/wordbook-worker/internal/platform/postgres"
	"github.com/lexigo/wordbook-worker/internal/store"
	"github.com/lexigo/wordbook-worker/internal/worker"
)

// application holds the shared dependencies of the server process.
type application struct {
	config   *config.Config
	logger   *slog.Logger
	db       *sql.DB
	jobStore store.JobStore
	worker   *worker.Worker
	sweeper  *worker.Sweeper
}

// newApplication wires the application from configuration: database, job
// store, analyzer, notifier, worker loop, and maintenance sweeper.
func newApplication(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*application, error) {
	db, err := openDatabase(ctx, cfg.Database, logger)
	if err != nil {
		return nil, err
	}

	jobStore := postgres.NewPostgresJobStore(db, logger)

	analyzer, err := gemini.NewGeminiAnalyzer(ctx, logger, cfg.LLM)
	if err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to create analyzer: %w", err)
	}

	notifier := notify.NewHTTPNotifier(logger, cfg.Downstream)

	w := worker.New(jobStore, analyzer, notifier, worker.Config{
		WorkerID:     workerID(),
		PollInterval: cfg.Worker.PollInterval(),
		ErrorBackoff: cfg.Worker.ErrorBackoff(),
		RetryDelay:   cfg.Worker.RetryDelay(),
	}, logger)

	sweeper, err := worker.NewSweeper(jobStore, cfg.Worker.SweepSchedule, cfg.Worker.Retention(), logger)
	if err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to create sweeper: %w", err)
	}

	return &application{
		config:   cfg,
		logger:   logger,
		db:       db,
		jobStore: jobStore,
		worker:   w,
		sweeper:  sweeper,
	}, nil
}

// cleanup releases resources held by the application.
func (app *application) cleanup() {
	if err := app.db.Close(); err != nil {
		app.logger.Error("failed to close database", "error", err)
	}
}

// workerID builds a claim identity unique to this process.
func workerID() string {
	hostname, err := os.Hostname()
	if err != nil || hostname == "" {
		hostname = "worker"
	}
	return fmt.Sprintf("%s-%s", hostname, uuid.New().String()[:8])
}
