package worker

import (
	"context"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/lexigo/wordbook-worker/internal/analysis"
	"github.com/lexigo/wordbook-worker/internal/domain"
	"github.com/lexigo/wordbook-worker/internal/notify"
	"github.com/lexigo/wordbook-worker/internal/store"
)

// Config holds the worker loop tunables.
type Config struct {
	// WorkerID identifies this worker instance in claimed job records.
	WorkerID string

	// PollInterval is the idle wait between claim attempts when the queue
	// is empty.
	PollInterval time.Duration

	// ErrorBackoff is the longer wait after a claim failure.
	ErrorBackoff time.Duration

	// RetryDelay is the fixed wait between analysis attempts for one word.
	RetryDelay time.Duration
}

// Worker claims and processes jobs one at a time.
type Worker struct {
	store    store.JobStore
	analyzer analysis.Analyzer
	notifier notify.Notifier
	cfg      Config
	logger   *slog.Logger

	running atomic.Bool

	mu      sync.Mutex
	current *domain.Job
}

// New creates a worker over the given dependencies.
func New(
	jobStore store.JobStore,
	analyzer analysis.Analyzer,
	notifier notify.Notifier,
	cfg Config,
	logger *slog.Logger,
) *Worker {
	return &Worker{
		store:    jobStore,
		analyzer: analyzer,
		notifier: notifier,
		cfg:      cfg,
		logger: logger.With(
			slog.String("component", "worker"),
			slog.String("worker_id", cfg.WorkerID),
		),
	}
}

// Run executes the claim-process loop until ctx is cancelled. Individual job
// failures are recorded on the job and never stop the loop; only context
// cancellation ends it.
func (w *Worker) Run(ctx context.Context) {
	w.running.Store(true)
	defer w.running.Store(false)

	w.logger.InfoContext(ctx, "worker loop started",
		slog.Duration("poll_interval", w.cfg.PollInterval))

	for {
		if ctx.Err() != nil {
			w.logger.InfoContext(ctx, "worker loop stopping")
			return
		}

		job, err := w.store.ClaimNext(ctx, w.cfg.WorkerID)
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			w.logger.ErrorContext(ctx, "failed to claim next job",
				slog.String("error", err.Error()),
				slog.Duration("backoff", w.cfg.ErrorBackoff))
			if !sleepCtx(ctx, w.cfg.ErrorBackoff) {
				return
			}
			continue
		}

		if job == nil {
			if !sleepCtx(ctx, w.cfg.PollInterval) {
				return
			}
			continue
		}

		w.setCurrent(job)
		if interrupted := w.runJob(ctx, job); interrupted {
			// The job is still running in the store. Leave it as the
			// current job so Shutdown can return it to the queue.
			return
		}
		w.setCurrent(nil)
	}
}

// Running reports whether the claim loop is active. Exposed for the health
// endpoint.
func (w *Worker) Running() bool {
	return w.running.Load()
}

// Shutdown returns the in-flight job, if any, to the queue so another worker
// can pick it up. Partial analysis results are discarded; the job restarts
// from its first word.
func (w *Worker) Shutdown(ctx context.Context) error {
	w.mu.Lock()
	job := w.current
	w.mu.Unlock()

	if job == nil {
		w.logger.InfoContext(ctx, "shutdown with no job in flight")
		return nil
	}

	err := w.store.Requeue(ctx, job.JobID, "job returned to queue by worker shutdown")
	if err != nil {
		w.logger.ErrorContext(ctx, "failed to requeue job on shutdown",
			slog.String("job_id", job.JobID),
			slog.String("error", err.Error()))
		return err
	}

	w.setCurrent(nil)
	w.logger.InfoContext(ctx, "requeued in-flight job on shutdown",
		slog.String("job_id", job.JobID))
	return nil
}

// runJob executes the pipeline for one claimed job and records a failure on
// the job when the pipeline reports one. It reports true when shutdown
// interrupted the pipeline and the job is still running in the store.
func (w *Worker) runJob(ctx context.Context, job *domain.Job) bool {
	log := w.logger.With(slog.String("job_id", job.JobID))
	log.InfoContext(ctx, "processing job",
		slog.String("type", job.Type),
		slog.Int("words", len(job.Data.Words)))

	start := time.Now()
	err := w.processJob(ctx, job)
	if err == nil {
		log.InfoContext(ctx, "job finished",
			slog.Duration("elapsed", time.Since(start)))
		return false
	}

	if ctx.Err() != nil {
		// Shutdown interrupted the pipeline; the caller requeues the job.
		log.InfoContext(ctx, "job interrupted by shutdown")
		return true
	}

	log.ErrorContext(ctx, "job failed", slog.String("error", err.Error()))

	jobErr := domain.JobError{Message: err.Error()}
	if markErr := w.store.MarkFailed(context.WithoutCancel(ctx), job.JobID, jobErr); markErr != nil {
		log.ErrorContext(ctx, "failed to mark job as failed",
			slog.String("error", markErr.Error()))
	}
	return false
}

func (w *Worker) setCurrent(job *domain.Job) {
	w.mu.Lock()
	w.current = job
	w.mu.Unlock()
}

// sleepCtx waits for d or until ctx is cancelled. Returns false on
// cancellation.
func sleepCtx(ctx context.Context, d time.Duration) bool {
	if d <= 0 {
		return ctx.Err() == nil
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-timer.C:
		return true
	}
}
