package worker

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/lexigo/wordbook-worker/internal/domain"
)

// placeholderArtifactID marks a completed job whose wordbook has not yet been
// finalized with the identifier the downstream application assigned on save.
const placeholderArtifactID = "pending_main_app_save"

// processJob runs the wordbook generation pipeline for a claimed job.
//
// Analysis failures never fail the job: a word whose retries are exhausted
// degrades to a tagged fallback record and the pipeline moves on. The only
// fatal conditions are an unusable job and store failures. A cancelled job
// makes the pipeline stop silently; nothing it produced so far is persisted.
func (w *Worker) processJob(ctx context.Context, job *domain.Job) error {
	log := w.logger.With(slog.String("job_id", job.JobID))

	if job.Type != domain.JobTypeWordbookGeneration {
		return fmt.Errorf("%w: %q", domain.ErrUnsupportedJobType, job.Type)
	}
	if len(job.Data.Words) == 0 {
		return domain.ErrNoWords
	}

	total := len(job.Data.Words)
	job.SetProgress(0, total, "", "analysis started", time.Now().UTC())
	if err := w.store.UpdateProgress(ctx, job.JobID, job.Progress); err != nil {
		return fmt.Errorf("failed to record initial progress: %w", err)
	}

	words := make([]domain.WordRecord, 0, total)
	failedWords := make([]string, 0)
	delayBetweenWords := time.Duration(job.Config.DelayBetweenWordsMs) * time.Millisecond

	for i, word := range job.Data.Words {
		stopped, err := w.jobStopped(ctx, job.JobID)
		if err != nil {
			return fmt.Errorf("failed to check job status: %w", err)
		}
		if stopped {
			log.InfoContext(ctx, "job no longer running, stopping pipeline",
				slog.String("word", word))
			return nil
		}

		job.SetProgress(i, total, word, fmt.Sprintf("analyzing %q", word), time.Now().UTC())
		if err := w.store.UpdateProgress(ctx, job.JobID, job.Progress); err != nil {
			log.WarnContext(ctx, "failed to persist progress",
				slog.String("error", err.Error()))
		}

		record, attempts, err := w.analyzeWithRetry(ctx, job, word)
		switch {
		case err == nil:
			words = append(words, *record)
		case ctx.Err() != nil:
			return ctx.Err()
		default:
			log.WarnContext(ctx, "word analysis exhausted retries, using fallback",
				slog.String("word", word),
				slog.Int("attempts", attempts),
				slog.String("error", err.Error()))
			fallback := domain.NewFallbackWordRecord(word, job.Data.LanguageCategory, err.Error())
			words = append(words, fallback)
			failedWords = append(failedWords, word)
		}

		if i < total-1 {
			if !sleepCtx(ctx, delayBetweenWords) {
				return ctx.Err()
			}
		}
	}

	job.SetProgress(total, total, "", "saving wordbook", time.Now().UTC())
	if err := w.store.UpdateProgress(ctx, job.JobID, job.Progress); err != nil {
		log.WarnContext(ctx, "failed to persist final progress",
			slog.String("error", err.Error()))
	}

	wordbook := domain.NewWordbook(job, words)
	summary := domain.ResultSummary{
		TotalAnalyzed:        total,
		SuccessfullyAnalyzed: total - len(failedWords),
		FailedWords:          failedWords,
	}

	// The handoff runs on a detached context with the notifier's own timeout:
	// the job's outcome must not depend on the downstream application, and a
	// shutdown that begins mid-handoff must not abort a delivery in flight.
	handoffCtx := context.WithoutCancel(ctx)
	if err := w.notifier.NotifyCompleted(handoffCtx, wordbook, job.JobID, summary); err != nil {
		log.ErrorContext(ctx, "wordbook handoff failed, job still completes",
			slog.String("error", err.Error()))
	}

	if err := w.store.MarkCompleted(handoffCtx, job.JobID,
		placeholderArtifactID, summary, words, failedWords); err != nil {
		return fmt.Errorf("failed to mark job completed: %w", err)
	}

	log.InfoContext(ctx, "wordbook generated",
		slog.Int("total", total),
		slog.Int("failed", len(failedWords)))
	return nil
}

// jobStopped polls the job's status so cancellations and external requeues
// take effect at word boundaries.
func (w *Worker) jobStopped(ctx context.Context, jobID string) (bool, error) {
	status, err := w.store.GetStatus(ctx, jobID)
	if err != nil {
		return false, err
	}
	return status != domain.JobStatusRunning, nil
}

// analyzeWithRetry runs the analyzer for one word with a bounded number of
// retries spaced by the configured delay. It returns the attempt count
// alongside the result so exhaustion can be reported precisely.
func (w *Worker) analyzeWithRetry(
	ctx context.Context,
	job *domain.Job,
	word string,
) (*domain.WordRecord, int, error) {
	var lastErr error
	attempts := 0

	for attempt := 0; attempt <= job.Config.RetryLimit; attempt++ {
		attempts++

		record, err := w.analyzer.AnalyzeWord(ctx, word, job.Data.LanguageCategory, job.Data.Description)
		if err == nil {
			return record, attempts, nil
		}
		lastErr = err

		if ctx.Err() != nil {
			return nil, attempts, err
		}

		if attempt < job.Config.RetryLimit {
			w.logger.WarnContext(ctx, "word analysis attempt failed, retrying",
				slog.String("job_id", job.JobID),
				slog.String("word", word),
				slog.Int("attempt", attempts),
				slog.Duration("retry_delay", w.cfg.RetryDelay),
				slog.String("error", err.Error()))
			if !sleepCtx(ctx, w.cfg.RetryDelay) {
				return nil, attempts, ctx.Err()
			}
		}
	}

	return nil, attempts, lastErr
}
