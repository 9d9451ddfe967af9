package store

import (
	"context"
	"time"

	"github.com/lexigo/wordbook-worker/internal/domain"
)

// ListFilter narrows and pages a job listing.
type ListFilter struct {
	// Status, when non-nil, restricts the listing to a single status.
	Status *domain.JobStatus
	Page   int
	Limit  int
}

// JobList is the result of a paged listing, including queue statistics.
type JobList struct {
	Jobs  []*domain.Job
	Total int

	// Stats carries a count for every known status, zero when absent.
	Stats map[domain.JobStatus]int
}

// JobStore defines the persistence interface for job records.
// All lifecycle transitions go through the guarded methods here; callers
// never mutate status directly.
type JobStore interface {
	// Create persists a new pending job.
	Create(ctx context.Context, job *domain.Job) error

	// GetByJobID retrieves a job by its public identifier.
	// Returns ErrJobNotFound if no such job exists.
	GetByJobID(ctx context.Context, jobID string) (*domain.Job, error)

	// GetStatus retrieves only the current status of a job.
	// Used by the pipeline's per-word cancellation poll.
	GetStatus(ctx context.Context, jobID string) (domain.JobStatus, error)

	// List returns jobs ordered by creation time descending, with queue
	// statistics and the unpaged total for the filter.
	List(ctx context.Context, filter ListFilter) (*JobList, error)

	// ClaimNext atomically takes ownership of the next pending job:
	// highest priority first, earliest created within a priority band.
	// Exactly one concurrent caller observes a given job's transition to
	// running. Returns (nil, nil) when no pending job exists.
	ClaimNext(ctx context.Context, workerID string) (*domain.Job, error)

	// UpdateProgress persists the job's progress block.
	UpdateProgress(ctx context.Context, jobID string, progress domain.Progress) error

	// MarkCompleted transitions a running job to completed, recording the
	// result summary, the analyzed word payload, the failed-word list, and
	// the placeholder artifact identifier.
	MarkCompleted(ctx context.Context, jobID string, artifactID string,
		summary domain.ResultSummary, analyzed []domain.WordRecord, failedWords []string) error

	// MarkFailed transitions a running job to failed with error detail.
	MarkFailed(ctx context.Context, jobID string, jobErr domain.JobError) error

	// Cancel transitions a pending or running job to cancelled.
	// Returns ErrInvalidState for any other current status.
	Cancel(ctx context.Context, jobID string) error

	// Restart returns a failed or cancelled job to pending, clearing
	// ownership, timestamps, error detail, and progress.
	// Returns ErrInvalidState for any other current status.
	Restart(ctx context.Context, jobID string) error

	// Requeue returns a running job to pending on worker shutdown, clearing
	// started_at and worker_id so another worker can resume it.
	Requeue(ctx context.Context, jobID string, message string) error

	// Finalize merges the downstream-assigned artifact identifier and result
	// patch into the job. Idempotent: repeating the call with the same
	// arguments leaves the record unchanged. Promotes the status to
	// completed unless the job is already terminal.
	Finalize(ctx context.Context, jobID string, wordbookID string, resultPatch map[string]any) error

	// CountsByStatus reports the number of jobs per status, with an explicit
	// zero for every known status that has no jobs.
	CountsByStatus(ctx context.Context) (map[domain.JobStatus]int, error)

	// DeleteTerminalOlderThan removes terminal jobs whose last update is
	// older than the given age. Returns the number of deleted jobs.
	DeleteTerminalOlderThan(ctx context.Context, age time.Duration) (int64, error)

	// PromotePendingApproval rewrites legacy pending_approval jobs to
	// completed. Returns the number of promoted jobs.
	PromotePendingApproval(ctx context.Context) (int64, error)
}
