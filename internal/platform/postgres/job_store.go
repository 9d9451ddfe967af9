package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/lexigo/wordbook-worker/internal/domain"
	"github.com/lexigo/wordbook-worker/internal/platform/logger"
	"github.com/lexigo/wordbook-worker/internal/store"
)

// PostgreSQL error codes
const pgUniqueViolationCode = "23505"

const jobColumns = `id, job_id, type, status, priority, data, progress, error, result, config,
	worker_id, created_at, started_at, completed_at, updated_at`

// PostgresJobStore implements the store.JobStore interface
// using a PostgreSQL database as the storage backend.
type PostgresJobStore struct {
	db     store.DBTX
	logger *slog.Logger
}

// NewPostgresJobStore creates a new PostgreSQL implementation of the
// JobStore interface. The database handle must be initialized and managed
// by the caller. If logger is nil, a default logger is used.
func NewPostgresJobStore(db store.DBTX, logger *slog.Logger) *PostgresJobStore {
	if db == nil {
		panic("db cannot be nil")
	}
	if logger == nil {
		logger = slog.Default()
	}

	return &PostgresJobStore{
		db:     db,
		logger: logger.With(slog.String("component", "job_store")),
	}
}

// Ensure PostgresJobStore implements store.JobStore interface
var _ store.JobStore = (*PostgresJobStore)(nil)

// Create implements store.JobStore.Create.
// Returns store.ErrDuplicate if the job ID already exists.
func (s *PostgresJobStore) Create(ctx context.Context, job *domain.Job) error {
	log := logger.FromContextOrDefault(ctx, s.logger)

	if err := job.Validate(); err != nil {
		log.Warn("job validation failed during create",
			slog.String("error", err.Error()),
			slog.String("job_id", job.JobID))
		return err
	}

	data, progress, config, err := marshalJobBlobs(job)
	if err != nil {
		return err
	}

	query := `
		INSERT INTO jobs (job_id, type, status, priority, data, progress, config, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		RETURNING id
	`
	err = s.db.QueryRowContext(
		ctx,
		query,
		job.JobID,
		job.Type,
		job.Status,
		job.Priority,
		data,
		progress,
		config,
		job.CreatedAt,
		job.UpdatedAt,
	).Scan(&job.ID)

	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == pgUniqueViolationCode {
			log.Warn("duplicate job ID during create",
				slog.String("job_id", job.JobID))
			return fmt.Errorf("%w: job %s", store.ErrDuplicate, job.JobID)
		}

		log.Error("failed to create job",
			slog.String("error", err.Error()),
			slog.String("job_id", job.JobID))
		return err
	}

	log.Info("job created",
		slog.String("job_id", job.JobID),
		slog.Int("word_count", len(job.Data.Words)))
	return nil
}

// GetByJobID implements store.JobStore.GetByJobID.
func (s *PostgresJobStore) GetByJobID(ctx context.Context, jobID string) (*domain.Job, error) {
	log := logger.FromContextOrDefault(ctx, s.logger)

	query := `SELECT ` + jobColumns + ` FROM jobs WHERE job_id = $1`

	job, err := scanJob(s.db.QueryRowContext(ctx, query, jobID))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, store.ErrJobNotFound
		}
		log.Error("failed to get job",
			slog.String("error", err.Error()),
			slog.String("job_id", jobID))
		return nil, err
	}

	return job, nil
}

// GetStatus implements store.JobStore.GetStatus.
func (s *PostgresJobStore) GetStatus(ctx context.Context, jobID string) (domain.JobStatus, error) {
	var status string
	err := s.db.QueryRowContext(ctx, `SELECT status FROM jobs WHERE job_id = $1`, jobID).Scan(&status)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return "", store.ErrJobNotFound
		}
		return "", err
	}
	return domain.JobStatus(status), nil
}

// List implements store.JobStore.List.
func (s *PostgresJobStore) List(ctx context.Context, filter store.ListFilter) (*store.JobList, error) {
	log := logger.FromContextOrDefault(ctx, s.logger)

	if filter.Limit <= 0 {
		filter.Limit = 20
	}
	if filter.Page <= 0 {
		filter.Page = 1
	}
	offset := (filter.Page - 1) * filter.Limit

	var (
		rows *sql.Rows
		err  error
	)
	if filter.Status != nil {
		query := `SELECT ` + jobColumns + `
			FROM jobs WHERE status = $1
			ORDER BY created_at DESC
			LIMIT $2 OFFSET $3`
		rows, err = s.db.QueryContext(ctx, query, *filter.Status, filter.Limit, offset)
	} else {
		query := `SELECT ` + jobColumns + `
			FROM jobs
			ORDER BY created_at DESC
			LIMIT $1 OFFSET $2`
		rows, err = s.db.QueryContext(ctx, query, filter.Limit, offset)
	}
	if err != nil {
		log.Error("failed to list jobs", slog.String("error", err.Error()))
		return nil, err
	}
	defer func() {
		if cerr := rows.Close(); cerr != nil {
			log.Error("failed to close rows", slog.String("error", cerr.Error()))
		}
	}()

	jobs := []*domain.Job{}
	for rows.Next() {
		job, err := scanJob(rows)
		if err != nil {
			log.Error("failed to scan job row", slog.String("error", err.Error()))
			return nil, err
		}
		jobs = append(jobs, job)
	}
	if err := rows.Err(); err != nil {
		log.Error("error after scanning rows", slog.String("error", err.Error()))
		return nil, err
	}

	var total int
	if filter.Status != nil {
		err = s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM jobs WHERE status = $1`, *filter.Status).
			Scan(&total)
	} else {
		err = s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM jobs`).Scan(&total)
	}
	if err != nil {
		log.Error("failed to count jobs", slog.String("error", err.Error()))
		return nil, err
	}

	stats, err := s.CountsByStatus(ctx)
	if err != nil {
		return nil, err
	}

	return &store.JobList{Jobs: jobs, Total: total, Stats: stats}, nil
}

// ClaimNext implements store.JobStore.ClaimNext.
// The inner SELECT takes a row lock with SKIP LOCKED so concurrent claimers
// never block on, or receive, the same pending job.
func (s *PostgresJobStore) ClaimNext(ctx context.Context, workerID string) (*domain.Job, error) {
	log := logger.FromContextOrDefault(ctx, s.logger)

	query := `
		UPDATE jobs
		SET status = $1, started_at = now(), worker_id = $2, updated_at = now()
		WHERE id = (
			SELECT id FROM jobs
			WHERE status = $3
			ORDER BY priority DESC, created_at ASC
			FOR UPDATE SKIP LOCKED
			LIMIT 1
		)
		RETURNING ` + jobColumns

	job, err := scanJob(s.db.QueryRowContext(
		ctx, query, domain.JobStatusRunning, workerID, domain.JobStatusPending))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			// No pending job: not an error.
			return nil, nil
		}
		log.Error("failed to claim next job",
			slog.String("error", err.Error()),
			slog.String("worker_id", workerID))
		return nil, err
	}

	log.Info("job claimed",
		slog.String("job_id", job.JobID),
		slog.String("worker_id", workerID),
		slog.Int("priority", job.Priority))
	return job, nil
}

// UpdateProgress implements store.JobStore.UpdateProgress.
func (s *PostgresJobStore) UpdateProgress(ctx context.Context, jobID string, progress domain.Progress) error {
	log := logger.FromContextOrDefault(ctx, s.logger)

	blob, err := json.Marshal(progress)
	if err != nil {
		return fmt.Errorf("failed to marshal progress: %w", err)
	}

	query := `
		UPDATE jobs
		SET progress = $1,
		    data = jsonb_set(data, '{processedWords}', to_jsonb($2::int), true),
		    updated_at = now()
		WHERE job_id = $3
	`
	result, err := s.db.ExecContext(ctx, query, blob, progress.Current, jobID)
	if err != nil {
		log.Error("failed to update job progress",
			slog.String("error", err.Error()),
			slog.String("job_id", jobID))
		return err
	}

	return requireRow(result, store.ErrJobNotFound)
}

// MarkCompleted implements store.JobStore.MarkCompleted.
func (s *PostgresJobStore) MarkCompleted(
	ctx context.Context,
	jobID string,
	artifactID string,
	summary domain.ResultSummary,
	analyzed []domain.WordRecord,
	failedWords []string,
) error {
	log := logger.FromContextOrDefault(ctx, s.logger)

	if failedWords == nil {
		failedWords = []string{}
	}
	analyzedBlob, err := json.Marshal(analyzed)
	if err != nil {
		return fmt.Errorf("failed to marshal analyzed words: %w", err)
	}
	failedBlob, err := json.Marshal(failedWords)
	if err != nil {
		return fmt.Errorf("failed to marshal failed words: %w", err)
	}
	summaryBlob, err := json.Marshal(summary)
	if err != nil {
		return fmt.Errorf("failed to marshal result summary: %w", err)
	}

	query := `
		UPDATE jobs
		SET status = $1,
		    completed_at = now(),
		    updated_at = now(),
		    data = data || jsonb_build_object(
		        'wordbookId', $2::text,
		        'analyzedWords', $3::jsonb,
		        'failedWords', $4::jsonb
		    ),
		    result = $5::jsonb,
		    progress = progress || jsonb_build_object('message', 'job completed')
		WHERE job_id = $6 AND status = $7
	`
	result, err := s.db.ExecContext(ctx, query,
		domain.JobStatusCompleted, artifactID, analyzedBlob, failedBlob, summaryBlob,
		jobID, domain.JobStatusRunning)
	if err != nil {
		log.Error("failed to mark job completed",
			slog.String("error", err.Error()),
			slog.String("job_id", jobID))
		return err
	}

	if err := requireRow(result, store.ErrJobNotFound); err != nil {
		return s.transitionError(ctx, jobID, err)
	}

	log.Info("job completed",
		slog.String("job_id", jobID),
		slog.Int("total_analyzed", summary.TotalAnalyzed),
		slog.Int("failed_words", len(summary.FailedWords)))
	return nil
}

// MarkFailed implements store.JobStore.MarkFailed.
func (s *PostgresJobStore) MarkFailed(ctx context.Context, jobID string, jobErr domain.JobError) error {
	log := logger.FromContextOrDefault(ctx, s.logger)

	blob, err := json.Marshal(jobErr)
	if err != nil {
		return fmt.Errorf("failed to marshal job error: %w", err)
	}

	query := `
		UPDATE jobs
		SET status = $1,
		    completed_at = now(),
		    updated_at = now(),
		    error = $2::jsonb,
		    progress = progress || jsonb_build_object('message', 'job failed: ' || $3::text)
		WHERE job_id = $4 AND status = $5
	`
	result, err := s.db.ExecContext(ctx, query,
		domain.JobStatusFailed, blob, jobErr.Message, jobID, domain.JobStatusRunning)
	if err != nil {
		log.Error("failed to mark job failed",
			slog.String("error", err.Error()),
			slog.String("job_id", jobID))
		return err
	}

	if err := requireRow(result, store.ErrJobNotFound); err != nil {
		return s.transitionError(ctx, jobID, err)
	}

	log.Warn("job failed",
		slog.String("job_id", jobID),
		slog.String("error", jobErr.Message))
	return nil
}

// Cancel implements store.JobStore.Cancel.
func (s *PostgresJobStore) Cancel(ctx context.Context, jobID string) error {
	log := logger.FromContextOrDefault(ctx, s.logger)

	query := `
		UPDATE jobs
		SET status = $1,
		    completed_at = now(),
		    updated_at = now(),
		    progress = progress || jsonb_build_object('message', 'job cancelled')
		WHERE job_id = $2 AND status IN ($3, $4)
	`
	result, err := s.db.ExecContext(ctx, query,
		domain.JobStatusCancelled, jobID, domain.JobStatusPending, domain.JobStatusRunning)
	if err != nil {
		log.Error("failed to cancel job",
			slog.String("error", err.Error()),
			slog.String("job_id", jobID))
		return err
	}

	if err := requireRow(result, store.ErrJobNotFound); err != nil {
		return s.transitionError(ctx, jobID, err)
	}

	log.Info("job cancelled", slog.String("job_id", jobID))
	return nil
}

// Restart implements store.JobStore.Restart.
func (s *PostgresJobStore) Restart(ctx context.Context, jobID string) error {
	log := logger.FromContextOrDefault(ctx, s.logger)

	query := `
		UPDATE jobs
		SET status = $1,
		    started_at = NULL,
		    completed_at = NULL,
		    worker_id = NULL,
		    error = NULL,
		    updated_at = now(),
		    progress = progress || jsonb_build_object(
		        'current', 0,
		        'percentage', 0,
		        'currentWord', '',
		        'message', 'restarting',
		        'estimatedTimeRemainingSeconds', 0
		    )
		WHERE job_id = $2 AND status IN ($3, $4)
	`
	result, err := s.db.ExecContext(ctx, query,
		domain.JobStatusPending, jobID, domain.JobStatusFailed, domain.JobStatusCancelled)
	if err != nil {
		log.Error("failed to restart job",
			slog.String("error", err.Error()),
			slog.String("job_id", jobID))
		return err
	}

	if err := requireRow(result, store.ErrJobNotFound); err != nil {
		return s.transitionError(ctx, jobID, err)
	}

	log.Info("job restarted", slog.String("job_id", jobID))
	return nil
}

// Requeue implements store.JobStore.Requeue.
func (s *PostgresJobStore) Requeue(ctx context.Context, jobID string, message string) error {
	log := logger.FromContextOrDefault(ctx, s.logger)

	query := `
		UPDATE jobs
		SET status = $1,
		    started_at = NULL,
		    worker_id = NULL,
		    updated_at = now(),
		    progress = progress || jsonb_build_object('message', $2::text)
		WHERE job_id = $3 AND status = $4
	`
	result, err := s.db.ExecContext(ctx, query,
		domain.JobStatusPending, message, jobID, domain.JobStatusRunning)
	if err != nil {
		log.Error("failed to requeue job",
			slog.String("error", err.Error()),
			slog.String("job_id", jobID))
		return err
	}

	if err := requireRow(result, store.ErrJobNotFound); err != nil {
		return s.transitionError(ctx, jobID, err)
	}

	log.Info("job requeued", slog.String("job_id", jobID))
	return nil
}

// Finalize implements store.JobStore.Finalize.
// The result patch and wordbook ID are merged, never overwritten wholesale,
// so repeating the call is a no-op, and a job already past completed never
// regresses.
func (s *PostgresJobStore) Finalize(
	ctx context.Context,
	jobID string,
	wordbookID string,
	resultPatch map[string]any,
) error {
	log := logger.FromContextOrDefault(ctx, s.logger)

	if resultPatch == nil {
		resultPatch = map[string]any{}
	}
	patchBlob, err := json.Marshal(resultPatch)
	if err != nil {
		return fmt.Errorf("failed to marshal result patch: %w", err)
	}

	query := `
		UPDATE jobs
		SET result = COALESCE(result, '{}'::jsonb) || $1::jsonb
		        || jsonb_build_object('wordbookId', $2::text),
		    data = jsonb_set(data, '{wordbookId}', to_jsonb($2::text), true),
		    status = CASE WHEN status IN ($3, $4, $5) THEN status ELSE $3 END,
		    completed_at = COALESCE(completed_at, now()),
		    updated_at = now()
		WHERE job_id = $6
	`
	result, err := s.db.ExecContext(ctx, query,
		patchBlob, wordbookID,
		domain.JobStatusCompleted, domain.JobStatusFailed, domain.JobStatusCancelled,
		jobID)
	if err != nil {
		log.Error("failed to finalize job",
			slog.String("error", err.Error()),
			slog.String("job_id", jobID))
		return err
	}

	if err := requireRow(result, store.ErrJobNotFound); err != nil {
		return err
	}

	log.Info("job finalized",
		slog.String("job_id", jobID),
		slog.String("wordbook_id", wordbookID))
	return nil
}

// CountsByStatus implements store.JobStore.CountsByStatus.
func (s *PostgresJobStore) CountsByStatus(ctx context.Context) (map[domain.JobStatus]int, error) {
	log := logger.FromContextOrDefault(ctx, s.logger)

	counts := make(map[domain.JobStatus]int, len(domain.KnownStatuses()))
	for _, status := range domain.KnownStatuses() {
		counts[status] = 0
	}

	rows, err := s.db.QueryContext(ctx, `SELECT status, COUNT(*) FROM jobs GROUP BY status`)
	if err != nil {
		log.Error("failed to count jobs by status", slog.String("error", err.Error()))
		return nil, err
	}
	defer func() {
		if cerr := rows.Close(); cerr != nil {
			log.Error("failed to close rows", slog.String("error", cerr.Error()))
		}
	}()

	for rows.Next() {
		var status string
		var count int
		if err := rows.Scan(&status, &count); err != nil {
			return nil, err
		}
		counts[domain.JobStatus(status)] = count
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	return counts, nil
}

// DeleteTerminalOlderThan implements store.JobStore.DeleteTerminalOlderThan.
func (s *PostgresJobStore) DeleteTerminalOlderThan(ctx context.Context, age time.Duration) (int64, error) {
	log := logger.FromContextOrDefault(ctx, s.logger)

	cutoff := time.Now().UTC().Add(-age)
	query := `DELETE FROM jobs WHERE status IN ($1, $2, $3) AND updated_at < $4`

	result, err := s.db.ExecContext(ctx, query,
		domain.JobStatusCompleted, domain.JobStatusFailed, domain.JobStatusCancelled, cutoff)
	if err != nil {
		log.Error("failed to delete old terminal jobs", slog.String("error", err.Error()))
		return 0, err
	}

	deleted, err := result.RowsAffected()
	if err != nil {
		return 0, err
	}

	if deleted > 0 {
		log.Info("deleted old terminal jobs", slog.Int64("count", deleted))
	}
	return deleted, nil
}

// PromotePendingApproval implements store.JobStore.PromotePendingApproval.
func (s *PostgresJobStore) PromotePendingApproval(ctx context.Context) (int64, error) {
	log := logger.FromContextOrDefault(ctx, s.logger)

	query := `
		UPDATE jobs
		SET status = $1,
		    completed_at = COALESCE(completed_at, now()),
		    updated_at = now(),
		    progress = progress || jsonb_build_object('message', 'job completed')
		WHERE status = $2
	`
	result, err := s.db.ExecContext(ctx, query,
		domain.JobStatusCompleted, domain.JobStatusPendingApproval)
	if err != nil {
		log.Error("failed to promote pending_approval jobs", slog.String("error", err.Error()))
		return 0, err
	}

	promoted, err := result.RowsAffected()
	if err != nil {
		return 0, err
	}

	if promoted > 0 {
		log.Info("promoted pending_approval jobs", slog.Int64("count", promoted))
	}
	return promoted, nil
}

// transitionError distinguishes "job missing" from "job in the wrong state"
// after a guarded transition matched no rows.
func (s *PostgresJobStore) transitionError(ctx context.Context, jobID string, err error) error {
	if !errors.Is(err, store.ErrJobNotFound) {
		return err
	}
	status, gerr := s.GetStatus(ctx, jobID)
	if gerr != nil {
		return gerr
	}
	return fmt.Errorf("%w: job %s is %s", store.ErrInvalidState, jobID, status)
}

// requireRow converts a zero rows-affected result into notFound.
func requireRow(result sql.Result, notFound error) error {
	affected, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return notFound
	}
	return nil
}

// rowScanner abstracts *sql.Row and *sql.Rows for scanJob.
type rowScanner interface {
	Scan(dest ...any) error
}

// scanJob reads one jobs row into a domain.Job, unmarshalling the JSONB
// blobs and normalizing nullable columns.
func scanJob(row rowScanner) (*domain.Job, error) {
	var (
		job          domain.Job
		status       string
		dataBlob     []byte
		progressBlob []byte
		errorBlob    []byte
		resultBlob   []byte
		configBlob   []byte
		workerID     sql.NullString
		startedAt    sql.NullTime
		completedAt  sql.NullTime
	)

	err := row.Scan(
		&job.ID,
		&job.JobID,
		&job.Type,
		&status,
		&job.Priority,
		&dataBlob,
		&progressBlob,
		&errorBlob,
		&resultBlob,
		&configBlob,
		&workerID,
		&job.CreatedAt,
		&startedAt,
		&completedAt,
		&job.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	job.Status = domain.JobStatus(status)
	if workerID.Valid {
		job.WorkerID = workerID.String
	}
	if startedAt.Valid {
		t := startedAt.Time
		job.StartedAt = &t
	}
	if completedAt.Valid {
		t := completedAt.Time
		job.CompletedAt = &t
	}

	if err := json.Unmarshal(dataBlob, &job.Data); err != nil {
		return nil, fmt.Errorf("failed to unmarshal job data: %w", err)
	}
	if err := json.Unmarshal(progressBlob, &job.Progress); err != nil {
		return nil, fmt.Errorf("failed to unmarshal job progress: %w", err)
	}
	if err := json.Unmarshal(configBlob, &job.Config); err != nil {
		return nil, fmt.Errorf("failed to unmarshal job config: %w", err)
	}
	if len(errorBlob) > 0 {
		job.Error = &domain.JobError{}
		if err := json.Unmarshal(errorBlob, job.Error); err != nil {
			return nil, fmt.Errorf("failed to unmarshal job error: %w", err)
		}
	}
	if len(resultBlob) > 0 {
		job.Result = &domain.ResultSummary{}
		if err := json.Unmarshal(resultBlob, job.Result); err != nil {
			return nil, fmt.Errorf("failed to unmarshal job result: %w", err)
		}
	}

	return &job, nil
}

// marshalJobBlobs serializes the JSONB columns written on insert.
func marshalJobBlobs(job *domain.Job) (data, progress, config []byte, err error) {
	data, err = json.Marshal(job.Data)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("failed to marshal job data: %w", err)
	}
	progress, err = json.Marshal(job.Progress)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("failed to marshal job progress: %w", err)
	}
	config, err = json.Marshal(job.Config)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("failed to marshal job config: %w", err)
	}
	return data, progress, config, nil
}
