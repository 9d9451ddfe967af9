package worker

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/lexigo/wordbook-worker/internal/store"
)

// Sweeper runs the scheduled maintenance tasks: deleting terminal jobs past
// the retention window and promoting legacy pending_approval jobs to
// completed.
type Sweeper struct {
	store     store.JobStore
	retention time.Duration
	logger    *slog.Logger
	cron      *cron.Cron
}

// NewSweeper creates a sweeper that runs both maintenance tasks on the given
// cron schedule.
func NewSweeper(jobStore store.JobStore, schedule string, retention time.Duration, logger *slog.Logger) (*Sweeper, error) {
	s := &Sweeper{
		store:     jobStore,
		retention: retention,
		logger:    logger.With(slog.String("component", "sweeper")),
		cron:      cron.New(),
	}

	if _, err := s.cron.AddFunc(schedule, s.sweep); err != nil {
		return nil, fmt.Errorf("invalid sweep schedule %q: %w", schedule, err)
	}
	return s, nil
}

// Start begins the schedule. It also runs one sweep immediately so a worker
// restarted after downtime catches up without waiting for the next tick.
func (s *Sweeper) Start() {
	s.cron.Start()
	go s.sweep()
}

// Stop halts the schedule and waits for a running sweep to finish.
func (s *Sweeper) Stop(ctx context.Context) {
	stopCtx := s.cron.Stop()
	select {
	case <-stopCtx.Done():
	case <-ctx.Done():
		s.logger.WarnContext(ctx, "timed out waiting for sweep to finish")
	}
}

func (s *Sweeper) sweep() {
	ctx := context.Background()

	deleted, err := s.store.DeleteTerminalOlderThan(ctx, s.retention)
	if err != nil {
		s.logger.ErrorContext(ctx, "retention sweep failed",
			slog.String("error", err.Error()))
	} else if deleted > 0 {
		s.logger.InfoContext(ctx, "deleted expired jobs",
			slog.Int64("count", deleted),
			slog.Duration("retention", s.retention))
	}

	promoted, err := s.store.PromotePendingApproval(ctx)
	if err != nil {
		s.logger.ErrorContext(ctx, "approval sweep failed",
			slog.String("error", err.Error()))
	} else if promoted > 0 {
		s.logger.InfoContext(ctx, "promoted pending approval jobs",
			slog.Int64("count", promoted))
	}
}
