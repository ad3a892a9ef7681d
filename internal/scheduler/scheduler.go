// Package scheduler triggers pipeline runs on a cron schedule.
package scheduler

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/robfig/cron/v3"
)

// Job is the work executed on every tick. It receives the scheduler's
// context, which is cancelled on shutdown.
type Job func(ctx context.Context)

// Scheduler runs one job on a cron schedule. A tick that fires while the
// previous run is still in progress is skipped.
type Scheduler struct {
	cron    *cron.Cron
	spec    string
	job     Job
	entryID cron.EntryID
	ctx     context.Context
	logger  *slog.Logger
}

// New parses spec (standard five-field cron or a descriptor such as
// "@hourly") in timezone and prepares job for execution.
func New(spec, timezone string, job Job) (*Scheduler, error) {
	loc, err := time.LoadLocation(timezone)
	if err != nil {
		return nil, fmt.Errorf("invalid timezone: %w", err)
	}

	s := &Scheduler{
		spec:   spec,
		job:    job,
		ctx:    context.Background(),
		logger: slog.Default(),
	}
	s.cron = cron.New(
		cron.WithLocation(loc),
		cron.WithChain(cron.Recover(cronLogger{s.logger}), cron.SkipIfStillRunning(cronLogger{s.logger})),
	)

	entryID, err := s.cron.AddFunc(spec, s.runJob)
	if err != nil {
		return nil, fmt.Errorf("invalid schedule %q: %w", spec, err)
	}
	s.entryID = entryID
	return s, nil
}

// Run starts the schedule and blocks until ctx is done, then waits for a
// running job to return.
func (s *Scheduler) Run(ctx context.Context) error {
	s.ctx = ctx
	s.cron.Start()
	s.logger.Info("scheduler started", "spec", s.spec, "next", s.Next().Format(time.RFC3339))

	<-ctx.Done()
	<-s.cron.Stop().Done()
	s.logger.Info("scheduler stopped")
	return nil
}

// Next returns the next activation time, or the zero time when the
// scheduler is not running.
func (s *Scheduler) Next() time.Time {
	return s.cron.Entry(s.entryID).Next
}

func (s *Scheduler) runJob() {
	if s.ctx.Err() != nil {
		return
	}
	start := time.Now()
	s.logger.Info("scheduled run starting")
	s.job(s.ctx)
	s.logger.Info("scheduled run finished", "duration", time.Since(start).String())
}

// cronLogger adapts slog to the cron.Logger interface.
type cronLogger struct {
	l *slog.Logger
}

func (c cronLogger) Info(msg string, keysAndValues ...any) {
	c.l.Debug("cron: "+msg, keysAndValues...)
}

func (c cronLogger) Error(err error, msg string, keysAndValues ...any) {
	c.l.Error("cron: "+msg, append([]any{"error", err}, keysAndValues...)...)
}
