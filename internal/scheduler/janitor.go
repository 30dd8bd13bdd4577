package scheduler

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/robfig/cron/v3"
)

// DefaultSweepSchedule is used when no schedule is configured
const DefaultSweepSchedule = "@every 1m"

// Sweeper drops expired entries and reports how many were removed
type Sweeper interface {
	Sweep() int
}

// Janitor periodically sweeps expired jobs out of the registry
type Janitor struct {
	sweeper  Sweeper
	schedule string
	cron     *cron.Cron
}

// NewJanitor creates a janitor running on a standard cron schedule
func NewJanitor(sweeper Sweeper, schedule string) (*Janitor, error) {
	if schedule == "" {
		schedule = DefaultSweepSchedule
	}

	j := &Janitor{
		sweeper:  sweeper,
		schedule: schedule,
		cron:     cron.New(cron.WithChain(cron.SkipIfStillRunning(cron.DiscardLogger))),
	}

	if _, err := j.cron.AddFunc(schedule, func() { j.Sweep() }); err != nil {
		return nil, fmt.Errorf("invalid sweep schedule %q: %w", schedule, err)
	}

	return j, nil
}

// Start begins running sweeps in the background
func (j *Janitor) Start() {
	slog.Info("Starting registry janitor", "schedule", j.schedule)
	j.cron.Start()
}

// Stop halts the schedule and waits for a running sweep until ctx ends
func (j *Janitor) Stop(ctx context.Context) {
	slog.Info("Stopping registry janitor")

	done := j.cron.Stop()
	select {
	case <-done.Done():
		slog.Info("Registry janitor stopped")
	case <-ctx.Done():
		slog.Warn("Timeout waiting for registry sweep to complete")
	}
}

// Sweep runs one sweep now
func (j *Janitor) Sweep() int {
	removed := j.sweeper.Sweep()
	if removed > 0 {
		slog.Info("Swept expired jobs", "count", removed)
	} else {
		slog.Debug("Registry sweep found nothing to remove")
	}
	return removed
}
