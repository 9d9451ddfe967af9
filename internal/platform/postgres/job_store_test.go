package postgres

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lexigo/wordbook-worker/internal/domain"
	"github.com/lexigo/wordbook-worker/internal/store"
)

// fakeRow replays a fixed set of column values through Scan.
type fakeRow struct {
	values []any
}

func (r *fakeRow) Scan(dest ...any) error {
	if len(dest) != len(r.values) {
		return fmt.Errorf("expected %d scan targets, got %d", len(r.values), len(dest))
	}
	for i, value := range r.values {
		switch d := dest[i].(type) {
		case *int64:
			*d = value.(int64)
		case *int:
			*d = value.(int)
		case *string:
			*d = value.(string)
		case *[]byte:
			if value == nil {
				*d = nil
			} else {
				*d = value.([]byte)
			}
		case *sql.NullString:
			*d = value.(sql.NullString)
		case *sql.NullTime:
			*d = value.(sql.NullTime)
		case *time.Time:
			*d = value.(time.Time)
		default:
			return fmt.Errorf("unsupported scan target %T at index %d", dest[i], i)
		}
	}
	return nil
}

// fakeResult implements sql.Result with a fixed rows-affected count.
type fakeResult struct {
	affected int64
	err      error
}

func (r fakeResult) LastInsertId() (int64, error) { return 0, nil }
func (r fakeResult) RowsAffected() (int64, error) { return r.affected, r.err }

func mustJSON(t *testing.T, v any) []byte {
	t.Helper()
	blob, err := json.Marshal(v)
	require.NoError(t, err)
	return blob
}

func TestScanJob(t *testing.T) {
	t.Parallel()

	created := time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)
	started := created.Add(time.Minute)

	baseValues := func(t *testing.T) []any {
		return []any{
			int64(7),
			"job-123",
			domain.JobTypeWordbookGeneration,
			string(domain.JobStatusRunning),
			3,
			mustJSON(t, domain.JobData{WordbookName: "Book", Words: []string{"a", "b"}}),
			mustJSON(t, domain.Progress{Current: 1, Total: 2, Percentage: 50}),
			nil,
			nil,
			mustJSON(t, domain.DefaultJobConfig()),
			sql.NullString{String: "worker-1", Valid: true},
			created,
			sql.NullTime{Time: started, Valid: true},
			sql.NullTime{},
			created.Add(2 * time.Minute),
		}
	}

	t.Run("populates all fields", func(t *testing.T) {
		t.Parallel()

		job, err := scanJob(&fakeRow{values: baseValues(t)})
		require.NoError(t, err)

		assert.Equal(t, int64(7), job.ID)
		assert.Equal(t, "job-123", job.JobID)
		assert.Equal(t, domain.JobStatusRunning, job.Status)
		assert.Equal(t, 3, job.Priority)
		assert.Equal(t, "Book", job.Data.WordbookName)
		assert.Equal(t, 50, job.Progress.Percentage)
		assert.Equal(t, domain.DefaultJobConfig(), job.Config)
		assert.Equal(t, "worker-1", job.WorkerID)
		require.NotNil(t, job.StartedAt)
		assert.Equal(t, started, *job.StartedAt)
		assert.Nil(t, job.CompletedAt)
		assert.Nil(t, job.Error)
		assert.Nil(t, job.Result)
	})

	t.Run("unmarshals error and result blobs when present", func(t *testing.T) {
		t.Parallel()

		values := baseValues(t)
		values[7] = mustJSON(t, domain.JobError{Message: "boom", RetryCount: 2})
		values[8] = mustJSON(t, domain.ResultSummary{TotalAnalyzed: 2, SuccessfullyAnalyzed: 1})

		job, err := scanJob(&fakeRow{values: values})
		require.NoError(t, err)

		require.NotNil(t, job.Error)
		assert.Equal(t, "boom", job.Error.Message)
		assert.Equal(t, 2, job.Error.RetryCount)
		require.NotNil(t, job.Result)
		assert.Equal(t, 2, job.Result.TotalAnalyzed)
	})

	t.Run("rejects malformed data blob", func(t *testing.T) {
		t.Parallel()

		values := baseValues(t)
		values[5] = []byte("{broken")
		_, err := scanJob(&fakeRow{values: values})
		assert.Error(t, err)
	})
}

func TestMarshalJobBlobs(t *testing.T) {
	t.Parallel()

	job, err := domain.NewJob(domain.JobTypeWordbookGeneration,
		domain.JobData{WordbookName: "Book", Words: []string{"a"}}, 0, nil)
	require.NoError(t, err)

	data, progress, config, err := marshalJobBlobs(job)
	require.NoError(t, err)

	var roundTripData domain.JobData
	require.NoError(t, json.Unmarshal(data, &roundTripData))
	assert.Equal(t, job.Data, roundTripData)

	var roundTripProgress domain.Progress
	require.NoError(t, json.Unmarshal(progress, &roundTripProgress))
	assert.Equal(t, job.Progress, roundTripProgress)

	var roundTripConfig domain.JobConfig
	require.NoError(t, json.Unmarshal(config, &roundTripConfig))
	assert.Equal(t, job.Config, roundTripConfig)
}

func TestRequireRow(t *testing.T) {
	t.Parallel()

	t.Run("nil on affected rows", func(t *testing.T) {
		t.Parallel()
		assert.NoError(t, requireRow(fakeResult{affected: 1}, store.ErrJobNotFound))
	})

	t.Run("notFound on zero rows", func(t *testing.T) {
		t.Parallel()
		err := requireRow(fakeResult{affected: 0}, store.ErrJobNotFound)
		assert.ErrorIs(t, err, store.ErrJobNotFound)
	})

	t.Run("propagates driver errors", func(t *testing.T) {
		t.Parallel()
		driverErr := errors.New("driver does not support RowsAffected")
		err := requireRow(fakeResult{err: driverErr}, store.ErrJobNotFound)
		assert.ErrorIs(t, err, driverErr)
	})
}
