package jobs

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/robfig/cron/v3"
)

// Scheduler runs the goal notification sweep on a cron schedule.
type Scheduler struct {
	cron *cron.Cron
	job  *GoalNotificationJob
}

// NewScheduler schedules job with a standard five-field cron spec evaluated
// in loc, e.g. "0 9 * * *" for every day at 09:00.
func NewScheduler(job *GoalNotificationJob, spec string, loc *time.Location) (*Scheduler, error) {
	logger := cronLogger{}
	c := cron.New(
		cron.WithLocation(loc),
		cron.WithLogger(logger),
		cron.WithChain(cron.Recover(logger), cron.SkipIfStillRunning(logger)),
	)

	s := &Scheduler{cron: c, job: job}
	if _, err := c.AddFunc(spec, s.tick); err != nil {
		return nil, fmt.Errorf("invalid schedule %q: %w", spec, err)
	}
	return s, nil
}

func (s *Scheduler) tick() {
	ctx := context.Background()
	if _, err := s.job.Run(ctx); err != nil && !errors.Is(err, ErrJobAlreadyRunning) {
		slog.ErrorContext(ctx, "scheduled goal notification sweep failed", slog.Any("err", err))
	}
}

// Start begins firing the schedule in the background.
func (s *Scheduler) Start() {
	s.cron.Start()
	for _, e := range s.cron.Entries() {
		slog.Info("goal notification sweep scheduled", "next_run", e.Next)
	}
}

// Stop stops the schedule and waits for a running sweep, or until ctx is done.
func (s *Scheduler) Stop(ctx context.Context) error {
	select {
	case <-s.cron.Stop().Done():
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// cronLogger routes cron's internal logging through slog.
type cronLogger struct{}

func (cronLogger) Info(msg string, keysAndValues ...any) {
	slog.Debug("cron: "+msg, keysAndValues...)
}

func (cronLogger) Error(err error, msg string, keysAndValues ...any) {
	slog.Error("cron: "+msg, append(keysAndValues, "err", err)...)
}
