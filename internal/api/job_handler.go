package api

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/lexigo/wordbook-worker/internal/api/shared"
	"github.com/lexigo/wordbook-worker/internal/domain"
	"github.com/lexigo/wordbook-worker/internal/store"
)

// Listing defaults and bounds.
const (
	defaultPage  = 1
	defaultLimit = 20
	maxLimit     = 100
)

// Query parameter validation errors, surfaced verbatim to clients.
var (
	errInvalidStatusFilter = errors.New("unknown status filter")
	errInvalidPage         = errors.New("page must be a positive integer")
	errInvalidLimit        = errors.New("limit must be a positive integer")
)

// JobHandler handles job-related HTTP requests
type JobHandler struct {
	jobStore      store.JobStore
	workerRunning func() bool
}

// NewJobHandler creates a new JobHandler. workerRunning reports whether the
// claim loop is active, for the health endpoint.
func NewJobHandler(jobStore store.JobStore, workerRunning func() bool) *JobHandler {
	return &JobHandler{
		jobStore:      jobStore,
		workerRunning: workerRunning,
	}
}

// CreateJob handles POST /api/jobs requests
func (h *JobHandler) CreateJob(w http.ResponseWriter, r *http.Request) {
	var req CreateJobRequest
	if err := shared.DecodeJSON(r, &req); err != nil {
		shared.RespondWithError(w, r, http.StatusBadRequest, "Invalid request format")
		return
	}

	if err := shared.ValidateRequest(req); err != nil {
		shared.RespondWithErrorAndLog(w, r, http.StatusBadRequest, GetSafeErrorMessage(err), err)
		return
	}

	job, err := domain.NewJob(req.Type, domain.JobData{
		WordbookName:     req.Data.WordbookName,
		LanguageCategory: req.Data.LanguageCategory,
		LanguageLabel:    req.Data.LanguageLabel,
		Description:      req.Data.Description,
		Words:            req.Data.Words,
	}, req.Priority, req.Config)
	if err != nil {
		shared.RespondWithErrorAndLog(w, r, MapErrorToStatusCode(err), GetSafeErrorMessage(err), err)
		return
	}

	if err := h.jobStore.Create(r.Context(), job); err != nil {
		shared.RespondWithErrorAndLog(w, r, MapErrorToStatusCode(err), GetSafeErrorMessage(err), err)
		return
	}

	slog.InfoContext(r.Context(), "job submitted",
		slog.String("job_id", job.JobID),
		slog.String("wordbook_name", job.Data.WordbookName),
		slog.Int("words", len(job.Data.Words)))

	// 202: the job is queued; processing happens asynchronously.
	shared.RespondWithJSON(w, r, http.StatusAccepted, CreateJobResponse{
		JobID:            job.JobID,
		Message:          "job queued for processing",
		EstimatedMinutes: estimatedMinutes(job),
		Job:              jobToResponse(job),
	})
}

// ListJobs handles GET /api/jobs requests
func (h *JobHandler) ListJobs(w http.ResponseWriter, r *http.Request) {
	filter, err := listFilterFromQuery(r)
	if err != nil {
		shared.RespondWithError(w, r, http.StatusBadRequest, err.Error())
		return
	}

	list, err := h.jobStore.List(r.Context(), filter)
	if err != nil {
		shared.RespondWithErrorAndLog(w, r, MapErrorToStatusCode(err), GetSafeErrorMessage(err), err)
		return
	}

	jobs := make([]JobResponse, 0, len(list.Jobs))
	for _, job := range list.Jobs {
		jobs = append(jobs, jobToResponse(job))
	}

	stats := make(map[string]int, len(list.Stats))
	for status, count := range list.Stats {
		stats[string(status)] = count
	}

	totalPages := 0
	if list.Total > 0 {
		totalPages = (list.Total + filter.Limit - 1) / filter.Limit
	}

	shared.RespondWithJSON(w, r, http.StatusOK, JobListResponse{
		Jobs:        jobs,
		Stats:       stats,
		Total:       list.Total,
		TotalPages:  totalPages,
		CurrentPage: filter.Page,
		Limit:       filter.Limit,
	})
}

// GetJob handles GET /api/jobs/{jobID} requests
func (h *JobHandler) GetJob(w http.ResponseWriter, r *http.Request) {
	jobID := chi.URLParam(r, "jobID")

	job, err := h.jobStore.GetByJobID(r.Context(), jobID)
	if err != nil {
		shared.RespondWithErrorAndLog(w, r, MapErrorToStatusCode(err), GetSafeErrorMessage(err), err)
		return
	}

	shared.RespondWithJSON(w, r, http.StatusOK, jobToResponse(job))
}

// CancelJob handles POST /api/jobs/{jobID}/cancel requests
func (h *JobHandler) CancelJob(w http.ResponseWriter, r *http.Request) {
	h.transition(w, r, "cancel", h.jobStore.Cancel)
}

// RestartJob handles POST /api/jobs/{jobID}/restart requests
func (h *JobHandler) RestartJob(w http.ResponseWriter, r *http.Request) {
	h.transition(w, r, "restart", h.jobStore.Restart)
}

// FinalizeJob handles POST /api/jobs/{jobID}/finalize requests.
// The downstream application calls this after saving a handed-off wordbook,
// reporting the durable identifier it assigned. The call is idempotent.
func (h *JobHandler) FinalizeJob(w http.ResponseWriter, r *http.Request) {
	jobID := chi.URLParam(r, "jobID")

	var req FinalizeJobRequest
	if err := shared.DecodeJSON(r, &req); err != nil {
		shared.RespondWithError(w, r, http.StatusBadRequest, "Invalid request format")
		return
	}
	if err := shared.ValidateRequest(req); err != nil {
		shared.RespondWithErrorAndLog(w, r, http.StatusBadRequest, GetSafeErrorMessage(err), err)
		return
	}

	if err := h.jobStore.Finalize(r.Context(), jobID, req.WordbookID, req.Result); err != nil {
		shared.RespondWithErrorAndLog(w, r, MapErrorToStatusCode(err), GetSafeErrorMessage(err), err)
		return
	}

	slog.InfoContext(r.Context(), "job finalized",
		slog.String("job_id", jobID),
		slog.String("wordbook_id", req.WordbookID))

	job, err := h.jobStore.GetByJobID(r.Context(), jobID)
	if err != nil {
		shared.RespondWithErrorAndLog(w, r, MapErrorToStatusCode(err), GetSafeErrorMessage(err), err)
		return
	}
	shared.RespondWithJSON(w, r, http.StatusOK, jobToResponse(job))
}

// Health handles GET /health requests
func (h *JobHandler) Health(w http.ResponseWriter, r *http.Request) {
	counts, err := h.jobStore.CountsByStatus(r.Context())
	if err != nil {
		shared.RespondWithErrorAndLog(w, r, http.StatusServiceUnavailable, "Store unavailable", err)
		return
	}

	queue := make(map[string]int, len(counts))
	for status, count := range counts {
		queue[string(status)] = count
	}

	running := h.workerRunning()
	status := "ok"
	if !running {
		status = "degraded"
	}

	shared.RespondWithJSON(w, r, http.StatusOK, HealthResponse{
		Status:        status,
		WorkerRunning: running,
		Queue:         queue,
	})
}

// transition runs one of the guarded lifecycle operations and returns the
// refreshed job on success.
func (h *JobHandler) transition(
	w http.ResponseWriter,
	r *http.Request,
	name string,
	op func(ctx context.Context, jobID string) error,
) {
	jobID := chi.URLParam(r, "jobID")

	if err := op(r.Context(), jobID); err != nil {
		shared.RespondWithErrorAndLog(w, r, MapErrorToStatusCode(err), GetSafeErrorMessage(err), err)
		return
	}

	slog.InfoContext(r.Context(), "job transition applied",
		slog.String("job_id", jobID),
		slog.String("operation", name))

	job, err := h.jobStore.GetByJobID(r.Context(), jobID)
	if err != nil {
		shared.RespondWithErrorAndLog(w, r, MapErrorToStatusCode(err), GetSafeErrorMessage(err), err)
		return
	}
	shared.RespondWithJSON(w, r, http.StatusOK, jobToResponse(job))
}

// estimatedMinutes approximates how long a job will take from its word count
// and the configured inter-word delay, rounded up.
func estimatedMinutes(job *domain.Job) int {
	totalMs := len(job.Data.Words) * job.Config.DelayBetweenWordsMs
	return (totalMs + 59999) / 60000
}

// listFilterFromQuery parses the status, page, and limit query parameters.
func listFilterFromQuery(r *http.Request) (store.ListFilter, error) {
	filter := store.ListFilter{Page: defaultPage, Limit: defaultLimit}

	if raw := r.URL.Query().Get("status"); raw != "" {
		status := domain.JobStatus(raw)
		if !status.Valid() {
			return filter, errInvalidStatusFilter
		}
		filter.Status = &status
	}

	if raw := r.URL.Query().Get("page"); raw != "" {
		page, err := strconv.Atoi(raw)
		if err != nil || page < 1 {
			return filter, errInvalidPage
		}
		filter.Page = page
	}

	if raw := r.URL.Query().Get("limit"); raw != "" {
		limit, err := strconv.Atoi(raw)
		if err != nil || limit < 1 {
			return filter, errInvalidLimit
		}
		if limit > maxLimit {
			limit = maxLimit
		}
		filter.Limit = limit
	}

	return filter, nil
}
