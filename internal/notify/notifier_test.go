package notify

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lexigo/wordbook-worker/internal/config"
	"github.com/lexigo/wordbook-worker/internal/domain"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func testWordbook() *domain.Wordbook {
	return &domain.Wordbook{
		WordbookID:   "wb-temp",
		WordbookName: "TOEIC Vocabulary",
		WordCount:    2,
		Words: []domain.WordRecord{
			{WordID: "w1", Word: "alpha", Meaning: "첫째"},
			{WordID: "w2", Word: "beta", Meaning: "둘째"},
		},
	}
}

func TestHTTPNotifierNotifyCompleted(t *testing.T) {
	t.Parallel()

	summary := domain.ResultSummary{
		TotalAnalyzed:        2,
		SuccessfullyAnalyzed: 2,
		FailedWords:          []string{},
	}

	t.Run("posts payload to the worker-completed endpoint", func(t *testing.T) {
		t.Parallel()

		var gotPath, gotContentType string
		var gotBody completedPayload
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			gotPath = r.URL.Path
			gotContentType = r.Header.Get("Content-Type")
			require.NoError(t, json.NewDecoder(r.Body).Decode(&gotBody))
			w.WriteHeader(http.StatusOK)
		}))
		defer server.Close()

		n := NewHTTPNotifier(testLogger(), config.DownstreamConfig{URL: server.URL, TimeoutSeconds: 5})
		err := n.NotifyCompleted(context.Background(), testWordbook(), "job-1", summary)
		require.NoError(t, err)

		assert.Equal(t, "/admin/wordbooks/worker-completed", gotPath)
		assert.Equal(t, "application/json", gotContentType)
		assert.Equal(t, "job-1", gotBody.JobID)
		assert.Equal(t, "TOEIC Vocabulary", gotBody.WordbookData.WordbookName)
		assert.Equal(t, 2, gotBody.Result.TotalAnalyzed)
	})

	t.Run("non-2xx response is a handoff failure", func(t *testing.T) {
		t.Parallel()

		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			http.Error(w, "duplicate wordbook", http.StatusConflict)
		}))
		defer server.Close()

		n := NewHTTPNotifier(testLogger(), config.DownstreamConfig{URL: server.URL, TimeoutSeconds: 5})
		err := n.NotifyCompleted(context.Background(), testWordbook(), "job-1", summary)

		require.Error(t, err)
		assert.ErrorIs(t, err, ErrHandoffFailed)
		assert.Contains(t, err.Error(), "409")
	})

	t.Run("unreachable downstream is a handoff failure", func(t *testing.T) {
		t.Parallel()

		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
		server.Close()

		n := NewHTTPNotifier(testLogger(), config.DownstreamConfig{URL: server.URL, TimeoutSeconds: 1})
		err := n.NotifyCompleted(context.Background(), testWordbook(), "job-1", summary)
		assert.ErrorIs(t, err, ErrHandoffFailed)
	})

	t.Run("empty URL disables the handoff", func(t *testing.T) {
		t.Parallel()

		n := NewHTTPNotifier(testLogger(), config.DownstreamConfig{URL: "", TimeoutSeconds: 5})
		err := n.NotifyCompleted(context.Background(), testWordbook(), "job-1", summary)
		assert.NoError(t, err)
	})
}
