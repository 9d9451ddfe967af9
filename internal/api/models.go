package api

import (
	"time"

	"github.com/lexigo/wordbook-worker/internal/domain"
)

// CreateJobRequest represents the request body for submitting a new job.
type CreateJobRequest struct {
	Type     string            `json:"type" validate:"required"`
	Data     CreateJobData     `json:"data" validate:"required"`
	Priority int               `json:"priority" validate:"gte=0"`
	Config   *domain.JobConfig `json:"config,omitempty"`
}

// CreateJobData is the wordbook payload of a job submission.
type CreateJobData struct {
	WordbookName     string   `json:"wordbookName" validate:"required,min=1"`
	LanguageCategory string   `json:"languageCategory,omitempty"`
	LanguageLabel    string   `json:"languageLabel,omitempty"`
	Description      string   `json:"description,omitempty"`
	Words            []string `json:"words" validate:"required,min=1,dive,required"`
}

// FinalizeJobRequest carries the durable wordbook identifier the downstream
// application assigned on save, plus an optional result patch.
type FinalizeJobRequest struct {
	WordbookID string         `json:"wordbookId" validate:"required"`
	Result     map[string]any `json:"result,omitempty"`
}

// JobResponse represents the response data for a job.
type JobResponse struct {
	JobID       string                `json:"jobId"`
	Type        string                `json:"type"`
	Status      string                `json:"status"`
	Priority    int                   `json:"priority"`
	Data        domain.JobData        `json:"data"`
	Progress    domain.Progress       `json:"progress"`
	Error       *domain.JobError      `json:"error,omitempty"`
	Result      *domain.ResultSummary `json:"result,omitempty"`
	WorkerID    string                `json:"workerId,omitempty"`
	CreatedAt   time.Time             `json:"createdAt"`
	StartedAt   *time.Time            `json:"startedAt,omitempty"`
	CompletedAt *time.Time            `json:"completedAt,omitempty"`
	UpdatedAt   time.Time             `json:"updatedAt"`
}

// CreateJobResponse acknowledges an accepted submission. EstimatedMinutes
// is a rough duration derived from the word count and the configured
// inter-word delay.
type CreateJobResponse struct {
	JobID            string      `json:"jobId"`
	Message          string      `json:"message"`
	EstimatedMinutes int         `json:"estimatedMinutes"`
	Job              JobResponse `json:"job"`
}

// JobListResponse is the response body for the job listing endpoint.
// Stats always carries a count for every known status.
type JobListResponse struct {
	Jobs        []JobResponse  `json:"jobs"`
	Stats       map[string]int `json:"stats"`
	Total       int            `json:"total"`
	TotalPages  int            `json:"totalPages"`
	CurrentPage int            `json:"currentPage"`
	Limit       int            `json:"limit"`
}

// HealthResponse is the response body for the health endpoint.
type HealthResponse struct {
	Status        string         `json:"status"`
	WorkerRunning bool           `json:"workerRunning"`
	Queue         map[string]int `json:"queue"`
}

// jobToResponse converts a domain.Job to a JobResponse.
func jobToResponse(job *domain.Job) JobResponse {
	return JobResponse{
		JobID:       job.JobID,
		Type:        job.Type,
		Status:      string(job.Status),
		Priority:    job.Priority,
		Data:        job.Data,
		Progress:    job.Progress,
		Error:       job.Error,
		Result:      job.Result,
		WorkerID:    job.WorkerID,
		CreatedAt:   job.CreatedAt,
		StartedAt:   job.StartedAt,
		CompletedAt: job.CompletedAt,
		UpdatedAt:   job.UpdatedAt,
	}
}
