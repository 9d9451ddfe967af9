// Package worker runs the job-processing loop: it claims pending jobs from
// the store, executes the wordbook generation pipeline for each, and returns
// the in-flight job to the queue on shutdown. It also owns the scheduled
// maintenance sweeps.
package worker
