package domain

import (
	"errors"
	"time"

	"github.com/google/uuid"
)

// JobStatus represents the lifecycle state of a job.
type JobStatus string

// Possible job status values
const (
	JobStatusPending   JobStatus = "pending"
	JobStatusRunning   JobStatus = "running"
	JobStatusCompleted JobStatus = "completed"
	JobStatusFailed    JobStatus = "failed"
	JobStatusCancelled JobStatus = "cancelled"

	// JobStatusPendingApproval is a legacy state treated as a synonym of
	// completed; a scheduled sweep rewrites it to completed.
	JobStatusPendingApproval JobStatus = "pending_approval"
)

// Job type constants
const (
	// JobTypeWordbookGeneration is the only job type the worker executes.
	JobTypeWordbookGeneration = "wordbook_generation"
)

// Common validation errors for Job
var (
	ErrEmptyJobID         = errors.New("job ID cannot be empty")
	ErrUnsupportedJobType = errors.New("unsupported job type")
	ErrNoWords            = errors.New("job data must contain at least one word")
	ErrInvalidJobStatus   = errors.New("invalid job status")
)

// JobData is the wordbook generation payload carried by a job.
// Field names match the document shape the downstream application consumes.
type JobData struct {
	WordbookName     string       `json:"wordbookName"`
	LanguageCategory string       `json:"languageCategory,omitempty"`
	LanguageLabel    string       `json:"languageLabel,omitempty"`
	Description      string       `json:"description,omitempty"`
	Words            []string     `json:"words"`
	FailedWords      []string     `json:"failedWords,omitempty"`
	WordbookID       string       `json:"wordbookId,omitempty"`
	AnalyzedWords    []WordRecord `json:"analyzedWords,omitempty"`
}

// Progress tracks how far through its word list a job has advanced.
type Progress struct {
	Current     int    `json:"current"`
	Total       int    `json:"total"`
	Percentage  int    `json:"percentage"`
	CurrentWord string `json:"currentWord,omitempty"`
	Message     string `json:"message,omitempty"`

	// EstimatedTimeRemainingSeconds is only set once at least one word has
	// completed; zero means "no estimate yet".
	EstimatedTimeRemainingSeconds int64 `json:"estimatedTimeRemainingSeconds,omitempty"`
}

// JobError captures the failure detail of a job that ended in failed state.
type JobError struct {
	Message        string `json:"message"`
	Stack          string `json:"stack,omitempty"`
	LastFailedWord string `json:"lastFailedWord,omitempty"`
	RetryCount     int    `json:"retryCount,omitempty"`
}

// JobConfig holds the per-job pipeline tunables.
type JobConfig struct {
	RetryLimit          int `json:"retryLimit"`
	BatchSize           int `json:"batchSize"`
	DelayBetweenWordsMs int `json:"delayBetweenWordsMs"`
}

// DefaultJobConfig returns the pipeline tunables applied when a submission
// does not override them.
func DefaultJobConfig() JobConfig {
	return JobConfig{
		RetryLimit:          3,
		BatchSize:           1,
		DelayBetweenWordsMs: 20000,
	}
}

// ResultSummary is the completion summary recorded on a finished job.
type ResultSummary struct {
	TotalAnalyzed        int      `json:"totalAnalyzed"`
	SuccessfullyAnalyzed int      `json:"successfullyAnalyzed"`
	FailedWords          []string `json:"failedWords"`
	WordbookID           string   `json:"wordbookId,omitempty"`
}

// Job is the unit of requested work. JobID is the public opaque identifier;
// ID is the store's internal record identity.
type Job struct {
	ID        int64          `json:"-"`
	JobID     string         `json:"jobId"`
	Type      string         `json:"type"`
	Status    JobStatus      `json:"status"`
	Priority  int            `json:"priority"`
	Data      JobData        `json:"data"`
	Progress  Progress       `json:"progress"`
	Error     *JobError      `json:"error,omitempty"`
	Result    *ResultSummary `json:"result,omitempty"`
	Config    JobConfig      `json:"config"`
	WorkerID  string         `json:"workerId,omitempty"`
	CreatedAt time.Time      `json:"createdAt"`
	StartedAt *time.Time     `json:"startedAt,omitempty"`

	// CompletedAt is set exactly once, when the job reaches a terminal state.
	CompletedAt *time.Time `json:"completedAt,omitempty"`
	UpdatedAt   time.Time  `json:"updatedAt"`
}

// NewJob creates a pending job for the given type and payload.
// It generates the public job ID, applies config defaults, and initializes
// progress with the word count as total.
// Returns ErrUnsupportedJobType for any type other than wordbook generation.
func NewJob(jobType string, data JobData, priority int, cfg *JobConfig) (*Job, error) {
	if jobType != JobTypeWordbookGeneration {
		return nil, ErrUnsupportedJobType
	}
	if len(data.Words) == 0 {
		return nil, ErrNoWords
	}

	config := DefaultJobConfig()
	if cfg != nil {
		if cfg.RetryLimit > 0 {
			config.RetryLimit = cfg.RetryLimit
		}
		if cfg.BatchSize > 0 {
			config.BatchSize = cfg.BatchSize
		}
		if cfg.DelayBetweenWordsMs > 0 {
			config.DelayBetweenWordsMs = cfg.DelayBetweenWordsMs
		}
	}

	now := time.Now().UTC()
	return &Job{
		JobID:    uuid.New().String(),
		Type:     jobType,
		Status:   JobStatusPending,
		Priority: priority,
		Data:     data,
		Progress: Progress{
			Current: 0,
			Total:   len(data.Words),
			Message: "job queued",
		},
		Config:    config,
		CreatedAt: now,
		UpdatedAt: now,
	}, nil
}

// Validate checks the job's invariants.
func (j *Job) Validate() error {
	if j.JobID == "" {
		return ErrEmptyJobID
	}
	if j.Type != JobTypeWordbookGeneration {
		return ErrUnsupportedJobType
	}
	if !j.Status.Valid() {
		return ErrInvalidJobStatus
	}
	return nil
}

// SetProgress updates the progress fields, recomputing the percentage and,
// once the first word has completed, the remaining-time estimate from the
// average time per word since the job started.
func (j *Job) SetProgress(current, total int, currentWord, message string, now time.Time) {
	j.Progress.Current = current
	j.Progress.Total = total
	j.Progress.Percentage = ProgressPercentage(current, total)
	j.Progress.CurrentWord = currentWord
	j.Progress.Message = message

	if current > 0 && total > current && j.StartedAt != nil {
		elapsed := now.Sub(*j.StartedAt)
		avgPerWord := elapsed.Milliseconds() / int64(current)
		remaining := int64(total - current)
		j.Progress.EstimatedTimeRemainingSeconds = avgPerWord * remaining / 1000
	}

	j.UpdatedAt = now
}

// CanCancel reports whether a cancel request is legal for the current status.
func (j *Job) CanCancel() bool {
	return j.Status == JobStatusPending || j.Status == JobStatusRunning
}

// CanRestart reports whether a restart request is legal for the current status.
func (j *Job) CanRestart() bool {
	return j.Status == JobStatusFailed || j.Status == JobStatusCancelled
}

// Valid reports whether the status is one of the known values.
func (s JobStatus) Valid() bool {
	switch s {
	case JobStatusPending, JobStatusRunning, JobStatusCompleted,
		JobStatusFailed, JobStatusCancelled, JobStatusPendingApproval:
		return true
	default:
		return false
	}
}

// IsTerminal reports whether the status permits no further worker activity.
// pending_approval is not terminal: the approval sweep still rewrites it.
func (s JobStatus) IsTerminal() bool {
	switch s {
	case JobStatusCompleted, JobStatusFailed, JobStatusCancelled:
		return true
	default:
		return false
	}
}

// KnownStatuses lists every status value, in a stable order.
// Stats reporting must emit a zero count for each of these.
func KnownStatuses() []JobStatus {
	return []JobStatus{
		JobStatusPending,
		JobStatusRunning,
		JobStatusCompleted,
		JobStatusFailed,
		JobStatusCancelled,
		JobStatusPendingApproval,
	}
}

// ProgressPercentage computes floor(current/total*100), or 0 when total is 0.
func ProgressPercentage(current, total int) int {
	if total <= 0 {
		return 0
	}
	return current * 100 / total
}
