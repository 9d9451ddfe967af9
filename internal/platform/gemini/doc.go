// Package gemini implements the analysis.Analyzer interface using Google's
// Gemini API. It owns the prompt contract for word analysis, the parsing of
// the model's JSON responses, and their transformation into the wordbook
// record shape.
package gemini
