package analysis

import (
	"context"

	"github.com/lexigo/wordbook-worker/internal/domain"
)

// Analyzer defines the interface for analyzing a single vocabulary word.
type Analyzer interface {
	// AnalyzeWord returns structured linguistic data for the given word.
	//
	// languageHint, when non-empty, tells the analyzer which language to
	// prioritize when the word is ambiguous. contextHint is the wordbook's
	// free-text description, used to pick the most relevant sense of a
	// polysemous word.
	//
	// Failures are reported through the sentinel errors in errors.go; all of
	// them are retryable from the pipeline's point of view, which degrades
	// to a fallback record after its retry budget is spent.
	AnalyzeWord(ctx context.Context, word, languageHint, contextHint string) (*domain.WordRecord, error)
}
