package schedule

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/shirou/gopsutil/v3/process"

	"github.com/staywatch/staywatch/internal/config"
	"github.com/staywatch/staywatch/internal/types"
)

// Liveness detects a still-running prior batch run by scanning process
// command lines for the configured marker. Rather than duplicating a
// run, the scheduler defers until the prior one exits.
type Liveness struct {
	cfg    *config.ScheduleConfig
	logger *slog.Logger
}

// NewLiveness creates a liveness guard.
func NewLiveness(cfg *config.ScheduleConfig, logger *slog.Logger) *Liveness {
	return &Liveness{
		cfg:    cfg,
		logger: logger.With("component", "liveness"),
	}
}

// Active reports whether another process carrying the marker is running.
// The scanner's own process is excluded. Scan errors for individual
// processes are skipped; they are usually permission or race artifacts.
func (l *Liveness) Active() bool {
	procs, err := process.Processes()
	if err != nil {
		l.logger.Warn("process scan failed", "error", err)
		return false
	}

	self := int32(os.Getpid())
	for _, proc := range procs {
		if proc.Pid == self {
			continue
		}
		cmdline, err := proc.Cmdline()
		if err != nil {
			continue
		}
		if strings.Contains(cmdline, l.cfg.LivenessMarker) {
			l.logger.Debug("prior run found", "pid", proc.Pid, "cmdline", cmdline)
			return true
		}
	}
	return false
}

// WaitIdle blocks with coarse polling until no prior run is active.
func (l *Liveness) WaitIdle(ctx context.Context) error {
	if !l.Active() {
		return nil
	}

	l.logger.Info("prior run still active, deferring", "poll", l.cfg.LivenessPoll)
	poll := l.cfg.LivenessPoll
	if poll <= 0 {
		poll = time.Minute
	}
	ticker := time.NewTicker(poll)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return fmt.Errorf("%w: %v", types.ErrPriorRunActive, ctx.Err())
		case <-ticker.C:
			if !l.Active() {
				l.logger.Info("prior run finished")
				return nil
			}
		}
	}
}
