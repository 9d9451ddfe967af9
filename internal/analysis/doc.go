// Package analysis defines the word-analyzer boundary: the interface the
// pipeline calls for each word, and the error taxonomy callers use to
// distinguish failure modes. This interface separates the application core
// from external AI/LLM services.
package analysis
