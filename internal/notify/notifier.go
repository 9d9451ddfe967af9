package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"

	"github.com/lexigo/wordbook-worker/internal/config"
	"github.com/lexigo/wordbook-worker/internal/domain"
)

// workerCompletedPath is the downstream endpoint that accepts finished
// wordbooks from the worker.
const workerCompletedPath = "/admin/wordbooks/worker-completed"

// ErrHandoffFailed indicates the downstream application rejected or never
// received the finished wordbook.
var ErrHandoffFailed = errors.New("wordbook handoff failed")

// Notifier delivers a finished wordbook to the downstream application.
type Notifier interface {
	// NotifyCompleted posts the wordbook together with the job identifier and
	// result summary. The downstream side saves the wordbook and later calls
	// back with the durable identifier it assigned.
	NotifyCompleted(ctx context.Context, wordbook *domain.Wordbook, jobID string, summary domain.ResultSummary) error
}

// HTTPNotifier posts finished wordbooks to the downstream application over
// HTTP. An empty base URL disables the handoff entirely; jobs still complete.
type HTTPNotifier struct {
	logger  *slog.Logger
	baseURL string
	client  *http.Client
}

// NewHTTPNotifier creates a notifier for the configured downstream endpoint.
func NewHTTPNotifier(logger *slog.Logger, cfg config.DownstreamConfig) *HTTPNotifier {
	return &HTTPNotifier{
		logger:  logger.With(slog.String("component", "notifier")),
		baseURL: cfg.URL,
		client: &http.Client{
			Timeout: cfg.Timeout(),
		},
	}
}

// Ensure HTTPNotifier implements Notifier
var _ Notifier = (*HTTPNotifier)(nil)

// completedPayload is the body posted to the worker-completed endpoint.
type completedPayload struct {
	WordbookData *domain.Wordbook     `json:"wordbookData"`
	JobID        string               `json:"jobId"`
	Result       domain.ResultSummary `json:"result"`
}

// NotifyCompleted implements Notifier.NotifyCompleted.
func (n *HTTPNotifier) NotifyCompleted(
	ctx context.Context,
	wordbook *domain.Wordbook,
	jobID string,
	summary domain.ResultSummary,
) error {
	if n.baseURL == "" {
		n.logger.InfoContext(ctx, "downstream URL not configured, skipping handoff",
			slog.String("job_id", jobID))
		return nil
	}

	body, err := json.Marshal(completedPayload{
		WordbookData: wordbook,
		JobID:        jobID,
		Result:       summary,
	})
	if err != nil {
		return fmt.Errorf("%w: failed to encode payload: %v", ErrHandoffFailed, err)
	}

	url := n.baseURL + workerCompletedPath
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("%w: failed to build request: %v", ErrHandoffFailed, err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := n.client.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrHandoffFailed, err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		detail, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("%w: downstream returned %d: %s",
			ErrHandoffFailed, resp.StatusCode, string(detail))
	}

	n.logger.InfoContext(ctx, "wordbook handed off to downstream",
		slog.String("job_id", jobID),
		slog.String("wordbook_name", wordbook.WordbookName),
		slog.Int("word_count", wordbook.WordCount))
	return nil
}
