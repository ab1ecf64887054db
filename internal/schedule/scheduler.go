package schedule

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/staywatch/staywatch/internal/config"
)

// RunFunc is the work the scheduler triggers once per day.
type RunFunc func(ctx context.Context) error

// Scheduler fires a run at a fixed local time every day. Between runs it
// keeps a single-line countdown on stdout; an interrupt exits cleanly
// mid-wait.
type Scheduler struct {
	cfg      *config.ScheduleConfig
	liveness *Liveness
	logger   *slog.Logger

	// now is swappable for tests.
	now func() time.Time
}

// NewScheduler creates a daily scheduler.
func NewScheduler(cfg *config.ScheduleConfig, logger *slog.Logger) *Scheduler {
	return &Scheduler{
		cfg:      cfg,
		liveness: NewLiveness(cfg, logger),
		logger:   logger.With("component", "scheduler"),
		now:      time.Now,
	}
}

// NextRun computes the next occurrence of the "15:04" time-of-day at or
// after now, in now's location.
func NextRun(now time.Time, at string) (time.Time, error) {
	target, err := time.Parse("15:04", at)
	if err != nil {
		return time.Time{}, fmt.Errorf("schedule time %q: %w", at, err)
	}
	next := time.Date(now.Year(), now.Month(), now.Day(),
		target.Hour(), target.Minute(), 0, 0, now.Location())
	if !next.After(now) {
		next = next.AddDate(0, 0, 1)
	}
	return next, nil
}

// Run loops forever, triggering the work at the configured time each
// day. It returns when the context is canceled.
func (s *Scheduler) Run(ctx context.Context, run RunFunc) error {
	s.logger.Info("scheduler started", "at", s.cfg.At)
	fmt.Printf("scheduled daily at %s, interrupt to stop\n", s.cfg.At)

	for {
		next, err := NextRun(s.now(), s.cfg.At)
		if err != nil {
			return err
		}

		if err := s.countdown(ctx, next); err != nil {
			fmt.Println()
			s.logger.Info("scheduler stopped")
			return err
		}

		if err := s.liveness.WaitIdle(ctx); err != nil {
			fmt.Println()
			s.logger.Info("scheduler stopped while waiting on prior run")
			return err
		}

		s.logger.Info("triggering scheduled run")
		if err := run(ctx); err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			// A failed run does not kill the schedule; tomorrow retries.
			s.logger.Error("scheduled run failed", "error", err)
		}
	}
}

// countdown blocks until next, refreshing one status line per second.
func (s *Scheduler) countdown(ctx context.Context, next time.Time) error {
	ticker := time.NewTicker(time.Second)
	defer ticker.Stop()

	for {
		remaining := time.Until(next)
		if remaining <= 0 {
			fmt.Println()
			return nil
		}

		hours := int(remaining.Hours())
		minutes := int(remaining.Minutes()) % 60
		seconds := int(remaining.Seconds()) % 60
		fmt.Printf("\rnext run in %02d:%02d:%02d", hours, minutes, seconds)

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}
	}
}
