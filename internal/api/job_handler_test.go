package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lexigo/wordbook-worker/internal/domain"
	"github.com/lexigo/wordbook-worker/internal/store"
)

// fakeJobStore implements store.JobStore with overridable behavior per method.
type fakeJobStore struct {
	createFn    func(ctx context.Context, job *domain.Job) error
	getFn       func(ctx context.Context, jobID string) (*domain.Job, error)
	listFn      func(ctx context.Context, filter store.ListFilter) (*store.JobList, error)
	cancelFn    func(ctx context.Context, jobID string) error
	restartFn   func(ctx context.Context, jobID string) error
	finalizeFn  func(ctx context.Context, jobID string, wordbookID string, resultPatch map[string]any) error
	countsFn    func(ctx context.Context) (map[domain.JobStatus]int, error)
	getStatusFn func(ctx context.Context, jobID string) (domain.JobStatus, error)
}

func (f *fakeJobStore) Create(ctx context.Context, job *domain.Job) error {
	if f.createFn != nil {
		return f.createFn(ctx, job)
	}
	return nil
}

func (f *fakeJobStore) GetByJobID(ctx context.Context, jobID string) (*domain.Job, error) {
	if f.getFn != nil {
		return f.getFn(ctx, jobID)
	}
	return nil, store.ErrJobNotFound
}

func (f *fakeJobStore) GetStatus(ctx context.Context, jobID string) (domain.JobStatus, error) {
	if f.getStatusFn != nil {
		return f.getStatusFn(ctx, jobID)
	}
	return "", store.ErrJobNotFound
}

func (f *fakeJobStore) List(ctx context.Context, filter store.ListFilter) (*store.JobList, error) {
	if f.listFn != nil {
		return f.listFn(ctx, filter)
	}
	return &store.JobList{Stats: map[domain.JobStatus]int{}}, nil
}

func (f *fakeJobStore) ClaimNext(ctx context.Context, workerID string) (*domain.Job, error) {
	return nil, nil
}

func (f *fakeJobStore) UpdateProgress(ctx context.Context, jobID string, progress domain.Progress) error {
	return nil
}

func (f *fakeJobStore) MarkCompleted(ctx context.Context, jobID string, artifactID string,
	summary domain.ResultSummary, analyzed []domain.WordRecord, failedWords []string) error {
	return nil
}

func (f *fakeJobStore) MarkFailed(ctx context.Context, jobID string, jobErr domain.JobError) error {
	return nil
}

func (f *fakeJobStore) Cancel(ctx context.Context, jobID string) error {
	if f.cancelFn != nil {
		return f.cancelFn(ctx, jobID)
	}
	return nil
}

func (f *fakeJobStore) Restart(ctx context.Context, jobID string) error {
	if f.restartFn != nil {
		return f.restartFn(ctx, jobID)
	}
	return nil
}

func (f *fakeJobStore) Requeue(ctx context.Context, jobID string, message string) error { return nil }

func (f *fakeJobStore) Finalize(ctx context.Context, jobID string, wordbookID string, resultPatch map[string]any) error {
	if f.finalizeFn != nil {
		return f.finalizeFn(ctx, jobID, wordbookID, resultPatch)
	}
	return nil
}

func (f *fakeJobStore) CountsByStatus(ctx context.Context) (map[domain.JobStatus]int, error) {
	if f.countsFn != nil {
		return f.countsFn(ctx)
	}
	return map[domain.JobStatus]int{}, nil
}

func (f *fakeJobStore) DeleteTerminalOlderThan(ctx context.Context, age time.Duration) (int64, error) {
	return 0, nil
}

func (f *fakeJobStore) PromotePendingApproval(ctx context.Context) (int64, error) { return 0, nil }

// newTestRouter wires the handler the way the server router does.
func newTestRouter(jobStore store.JobStore, workerRunning bool) http.Handler {
	handler := NewJobHandler(jobStore, func() bool { return workerRunning })

	r := chi.NewRouter()
	r.Route("/api/jobs", func(r chi.Router) {
		r.Post("/", handler.CreateJob)
		r.Get("/", handler.ListJobs)
		r.Get("/{jobID}", handler.GetJob)
		r.Post("/{jobID}/cancel", handler.CancelJob)
		r.Post("/{jobID}/restart", handler.RestartJob)
		r.Post("/{jobID}/finalize", handler.FinalizeJob)
	})
	r.Get("/health", handler.Health)
	return r
}

func storedJob(t *testing.T) *domain.Job {
	t.Helper()
	job, err := domain.NewJob(domain.JobTypeWordbookGeneration,
		domain.JobData{WordbookName: "JLPT N2", LanguageCategory: "ja", Words: []string{"犬", "猫"}},
		0, nil)
	require.NoError(t, err)
	return job
}

func doRequest(t *testing.T, router http.Handler, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()

	var reader *bytes.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(raw)
	} else {
		reader = bytes.NewReader(nil)
	}

	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	return rec
}

func TestCreateJob(t *testing.T) {
	t.Parallel()

	validBody := map[string]any{
		"type": domain.JobTypeWordbookGeneration,
		"data": map[string]any{
			"wordbookName": "JLPT N2",
			"words":        []string{"犬", "猫"},
		},
	}

	t.Run("accepts a valid submission", func(t *testing.T) {
		t.Parallel()

		var created *domain.Job
		st := &fakeJobStore{createFn: func(ctx context.Context, job *domain.Job) error {
			created = job
			return nil
		}}
		rec := doRequest(t, newTestRouter(st, true), http.MethodPost, "/api/jobs", validBody)

		require.Equal(t, http.StatusAccepted, rec.Code)
		require.NotNil(t, created)
		assert.Equal(t, domain.JobStatusPending, created.Status)

		var resp CreateJobResponse
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
		assert.Equal(t, created.JobID, resp.JobID)
		assert.Equal(t, string(domain.JobStatusPending), resp.Job.Status)
		assert.Equal(t, 2, resp.Job.Progress.Total)
		// Two words at the default 20s spacing round up to one minute.
		assert.Equal(t, 1, resp.EstimatedMinutes)
	})

	t.Run("rejects malformed JSON", func(t *testing.T) {
		t.Parallel()

		req := httptest.NewRequest(http.MethodPost, "/api/jobs", bytes.NewReader([]byte("{not json")))
		rec := httptest.NewRecorder()
		newTestRouter(&fakeJobStore{}, true).ServeHTTP(rec, req)
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})

	t.Run("rejects a submission without words", func(t *testing.T) {
		t.Parallel()

		body := map[string]any{
			"type": domain.JobTypeWordbookGeneration,
			"data": map[string]any{"wordbookName": "Empty", "words": []string{}},
		}
		rec := doRequest(t, newTestRouter(&fakeJobStore{}, true), http.MethodPost, "/api/jobs", body)
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})

	t.Run("rejects an unsupported job type", func(t *testing.T) {
		t.Parallel()

		body := map[string]any{
			"type": "pdf_export",
			"data": map[string]any{"wordbookName": "Book", "words": []string{"a"}},
		}
		rec := doRequest(t, newTestRouter(&fakeJobStore{}, true), http.MethodPost, "/api/jobs", body)
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})
}

func TestGetJob(t *testing.T) {
	t.Parallel()

	t.Run("returns an existing job", func(t *testing.T) {
		t.Parallel()

		job := storedJob(t)
		st := &fakeJobStore{getFn: func(ctx context.Context, jobID string) (*domain.Job, error) {
			require.Equal(t, job.JobID, jobID)
			return job, nil
		}}
		rec := doRequest(t, newTestRouter(st, true), http.MethodGet, "/api/jobs/"+job.JobID, nil)

		require.Equal(t, http.StatusOK, rec.Code)
		var resp JobResponse
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
		assert.Equal(t, job.JobID, resp.JobID)
	})

	t.Run("unknown job is a 404", func(t *testing.T) {
		t.Parallel()

		rec := doRequest(t, newTestRouter(&fakeJobStore{}, true), http.MethodGet, "/api/jobs/missing", nil)
		assert.Equal(t, http.StatusNotFound, rec.Code)
	})
}

func TestListJobs(t *testing.T) {
	t.Parallel()

	t.Run("returns jobs with pagination and stats", func(t *testing.T) {
		t.Parallel()

		job := storedJob(t)
		var gotFilter store.ListFilter
		st := &fakeJobStore{listFn: func(ctx context.Context, filter store.ListFilter) (*store.JobList, error) {
			gotFilter = filter
			return &store.JobList{
				Jobs:  []*domain.Job{job},
				Total: 42,
				Stats: map[domain.JobStatus]int{domain.JobStatusPending: 42},
			}, nil
		}}

		rec := doRequest(t, newTestRouter(st, true), http.MethodGet, "/api/jobs?status=pending&page=2&limit=10", nil)

		require.Equal(t, http.StatusOK, rec.Code)
		require.NotNil(t, gotFilter.Status)
		assert.Equal(t, domain.JobStatusPending, *gotFilter.Status)
		assert.Equal(t, 2, gotFilter.Page)
		assert.Equal(t, 10, gotFilter.Limit)

		var resp JobListResponse
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
		assert.Len(t, resp.Jobs, 1)
		assert.Equal(t, 42, resp.Total)
		assert.Equal(t, 5, resp.TotalPages)
		assert.Equal(t, 2, resp.CurrentPage)
		assert.Equal(t, 42, resp.Stats["pending"])
	})

	t.Run("rejects an unknown status filter", func(t *testing.T) {
		t.Parallel()

		rec := doRequest(t, newTestRouter(&fakeJobStore{}, true), http.MethodGet, "/api/jobs?status=sleeping", nil)
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})

	t.Run("caps the page size", func(t *testing.T) {
		t.Parallel()

		var gotFilter store.ListFilter
		st := &fakeJobStore{listFn: func(ctx context.Context, filter store.ListFilter) (*store.JobList, error) {
			gotFilter = filter
			return &store.JobList{Stats: map[domain.JobStatus]int{}}, nil
		}}
		rec := doRequest(t, newTestRouter(st, true), http.MethodGet, fmt.Sprintf("/api/jobs?limit=%d", maxLimit*5), nil)

		require.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, maxLimit, gotFilter.Limit)
	})
}

func TestJobTransitions(t *testing.T) {
	t.Parallel()

	t.Run("cancel returns the refreshed job", func(t *testing.T) {
		t.Parallel()

		job := storedJob(t)
		job.Status = domain.JobStatusCancelled
		st := &fakeJobStore{
			cancelFn: func(ctx context.Context, jobID string) error { return nil },
			getFn: func(ctx context.Context, jobID string) (*domain.Job, error) {
				return job, nil
			},
		}
		rec := doRequest(t, newTestRouter(st, true), http.MethodPost, "/api/jobs/"+job.JobID+"/cancel", nil)

		require.Equal(t, http.StatusOK, rec.Code)
		var resp JobResponse
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
		assert.Equal(t, string(domain.JobStatusCancelled), resp.Status)
	})

	t.Run("cancel of a terminal job is a conflict", func(t *testing.T) {
		t.Parallel()

		st := &fakeJobStore{cancelFn: func(ctx context.Context, jobID string) error {
			return store.ErrInvalidState
		}}
		rec := doRequest(t, newTestRouter(st, true), http.MethodPost, "/api/jobs/some-id/cancel", nil)
		assert.Equal(t, http.StatusConflict, rec.Code)
	})

	t.Run("restart of an unknown job is a 404", func(t *testing.T) {
		t.Parallel()

		st := &fakeJobStore{restartFn: func(ctx context.Context, jobID string) error {
			return store.ErrJobNotFound
		}}
		rec := doRequest(t, newTestRouter(st, true), http.MethodPost, "/api/jobs/missing/restart", nil)
		assert.Equal(t, http.StatusNotFound, rec.Code)
	})
}

func TestFinalizeJob(t *testing.T) {
	t.Parallel()

	t.Run("records the downstream wordbook ID", func(t *testing.T) {
		t.Parallel()

		job := storedJob(t)
		var gotWordbookID string
		st := &fakeJobStore{
			finalizeFn: func(ctx context.Context, jobID, wordbookID string, resultPatch map[string]any) error {
				gotWordbookID = wordbookID
				return nil
			},
			getFn: func(ctx context.Context, jobID string) (*domain.Job, error) { return job, nil },
		}

		body := map[string]any{"wordbookId": "wb-123", "result": map[string]any{"saved": true}}
		rec := doRequest(t, newTestRouter(st, true), http.MethodPost, "/api/jobs/"+job.JobID+"/finalize", body)

		require.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, "wb-123", gotWordbookID)
	})

	t.Run("requires a wordbook ID", func(t *testing.T) {
		t.Parallel()

		rec := doRequest(t, newTestRouter(&fakeJobStore{}, true), http.MethodPost,
			"/api/jobs/some-id/finalize", map[string]any{})
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})
}

func TestHealth(t *testing.T) {
	t.Parallel()

	t.Run("reports ok with queue counts while the worker runs", func(t *testing.T) {
		t.Parallel()

		st := &fakeJobStore{countsFn: func(ctx context.Context) (map[domain.JobStatus]int, error) {
			return map[domain.JobStatus]int{
				domain.JobStatusPending: 3,
				domain.JobStatusRunning: 1,
			}, nil
		}}
		rec := doRequest(t, newTestRouter(st, true), http.MethodGet, "/health", nil)

		require.Equal(t, http.StatusOK, rec.Code)
		var resp HealthResponse
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
		assert.Equal(t, "ok", resp.Status)
		assert.True(t, resp.WorkerRunning)
		assert.Equal(t, 3, resp.Queue["pending"])
	})

	t.Run("reports degraded when the worker loop is stopped", func(t *testing.T) {
		t.Parallel()

		rec := doRequest(t, newTestRouter(&fakeJobStore{}, false), http.MethodGet, "/health", nil)

		require.Equal(t, http.StatusOK, rec.Code)
		var resp HealthResponse
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
		assert.Equal(t, "degraded", resp.Status)
		assert.False(t, resp.WorkerRunning)
	})
}
