package gemini

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"

	"github.com/google/uuid"
	"github.com/lexigo/wordbook-worker/internal/analysis"
	"github.com/lexigo/wordbook-worker/internal/config"
	"github.com/lexigo/wordbook-worker/internal/domain"
	"google.golang.org/genai"
)

// GeminiAnalyzer implements the analysis.Analyzer interface using
// Google's Gemini API.
//
// The analyzer performs exactly one API call per AnalyzeWord invocation:
// the retry envelope belongs to the worker pipeline, which spaces attempts
// with a fixed delay to respect the shared rate limit.
type GeminiAnalyzer struct {
	logger *slog.Logger
	client *genai.Client
	model  string
}

// NewGeminiAnalyzer creates a GeminiAnalyzer with the provided dependencies.
func NewGeminiAnalyzer(ctx context.Context, logger *slog.Logger, cfg config.LLMConfig) (*GeminiAnalyzer, error) {
	if logger == nil {
		return nil, errors.New("logger cannot be nil")
	}
	if cfg.GeminiAPIKey == "" {
		return nil, fmt.Errorf("%w: gemini API key cannot be empty", analysis.ErrInvalidConfig)
	}
	if cfg.ModelName == "" {
		return nil, fmt.Errorf("%w: model name cannot be empty", analysis.ErrInvalidConfig)
	}

	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  cfg.GeminiAPIKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("%w: failed to create Gemini client: %v", analysis.ErrInvalidConfig, err)
	}

	return &GeminiAnalyzer{
		logger: logger.With(slog.String("component", "gemini_analyzer")),
		client: client,
		model:  cfg.ModelName,
	}, nil
}

// Ensure GeminiAnalyzer implements analysis.Analyzer
var _ analysis.Analyzer = (*GeminiAnalyzer)(nil)

// AnalyzeWord implements analysis.Analyzer.AnalyzeWord.
func (g *GeminiAnalyzer) AnalyzeWord(
	ctx context.Context,
	word, languageHint, contextHint string,
) (*domain.WordRecord, error) {
	if strings.TrimSpace(word) == "" {
		return nil, fmt.Errorf("%w: word cannot be empty", analysis.ErrAnalysisFailed)
	}

	prompt, err := buildPrompt(word, languageHint, contextHint)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", analysis.ErrAnalysisFailed, err)
	}

	g.logger.DebugContext(ctx, "calling Gemini API",
		slog.String("word", word),
		slog.String("model", g.model),
		slog.Int("prompt_length", len(prompt)))

	resp, err := g.client.Models.GenerateContent(ctx, g.model, genai.Text(prompt),
		&genai.GenerateContentConfig{
			ResponseMIMEType: "application/json",
		})
	if err != nil {
		return nil, g.classifyAPIError(ctx, word, err)
	}

	text := resp.Text()
	if text == "" {
		return nil, fmt.Errorf("%w: empty response for %q", analysis.ErrInvalidResponse, word)
	}

	parsed, err := parseWordAnalysis(text)
	if err != nil {
		g.logger.WarnContext(ctx, "failed to parse model response",
			slog.String("word", word),
			slog.String("error", err.Error()),
			slog.Int("response_length", len(text)))
		return nil, err
	}

	record := toWordRecord(parsed, word, languageHint)

	g.logger.InfoContext(ctx, "word analyzed",
		slog.String("word", word),
		slog.Int("definitions", len(record.Definitions)),
		slog.Int("examples", len(record.Examples)))
	return &record, nil
}

// classifyAPIError maps a Gemini API failure onto the analysis error
// taxonomy so callers can tell quota, auth, and availability problems apart.
func (g *GeminiAnalyzer) classifyAPIError(ctx context.Context, word string, err error) error {
	g.logger.ErrorContext(ctx, "Gemini API call failed",
		slog.String("word", word),
		slog.String("error", err.Error()))

	var apiErr genai.APIError
	if errors.As(err, &apiErr) {
		switch {
		case apiErr.Code == http.StatusTooManyRequests:
			return fmt.Errorf("%w: %s", analysis.ErrRateLimited, apiErr.Message)
		case apiErr.Code == http.StatusUnauthorized || apiErr.Code == http.StatusForbidden:
			return fmt.Errorf("%w: %s", analysis.ErrAuthFailure, apiErr.Message)
		case apiErr.Code >= http.StatusInternalServerError:
			return fmt.Errorf("%w: %s", analysis.ErrUnavailable, apiErr.Message)
		}
	}

	return fmt.Errorf("%w: %v", analysis.ErrAnalysisFailed, err)
}

// wordAnalysis is the JSON structure the prompt instructs the model to emit.
type wordAnalysis struct {
	Word             string              `json:"word"`
	Definitions      []domain.Definition `json:"definitions"`
	Synonyms         []string            `json:"synonyms"`
	Antonyms         []string            `json:"antonyms"`
	Examples         []domain.Example    `json:"examples"`
	QuizWrongAnswers []string            `json:"quizWrongAnswers"`
	AddedAt          string              `json:"addedAt"`
}

// parseWordAnalysis extracts and decodes the JSON object from the model's
// response text. Models occasionally wrap the object in prose or code
// fences, so parsing starts at the first brace and ends at the last.
func parseWordAnalysis(text string) (*wordAnalysis, error) {
	start := strings.Index(text, "{")
	end := strings.LastIndex(text, "}")
	if start < 0 || end <= start {
		return nil, fmt.Errorf("%w: no JSON object in response", analysis.ErrInvalidResponse)
	}

	var parsed wordAnalysis
	if err := json.Unmarshal([]byte(text[start:end+1]), &parsed); err != nil {
		return nil, fmt.Errorf("%w: %v", analysis.ErrInvalidResponse, err)
	}

	if len(parsed.Definitions) == 0 {
		return nil, fmt.Errorf("%w: response has no definitions", analysis.ErrInvalidResponse)
	}

	return &parsed, nil
}

// toWordRecord converts a parsed analysis into the wordbook record shape,
// lifting the first definition's meanings and the first example into the
// flattened convenience fields.
func toWordRecord(parsed *wordAnalysis, originalWord, languageHint string) domain.WordRecord {
	record := domain.WordRecord{
		WordID:           uuid.New().String(),
		Word:             parsed.Word,
		Lang:             languageHint,
		Definitions:      parsed.Definitions,
		Examples:         parsed.Examples,
		Synonyms:         parsed.Synonyms,
		Antonyms:         parsed.Antonyms,
		Tags:             []string{domain.TagAIGenerated},
		QuizWrongAnswers: parsed.QuizWrongAnswers,
		AddedAt:          parsed.AddedAt,
	}

	if record.Word == "" {
		record.Word = originalWord
	}
	if len(parsed.Definitions) > 0 {
		record.Meaning = strings.Join(parsed.Definitions[0].Meaning, ", ")
	}
	if len(parsed.Examples) > 0 {
		record.Example = parsed.Examples[0].Sentence
		record.ExampleTranslation = parsed.Examples[0].Translation
	}

	return record
}
