// Package notify hands finished wordbooks off to the downstream application.
// The handoff is best-effort: a failure is reported to the caller for logging
// but never changes the outcome of the job that produced the wordbook.
package notify
