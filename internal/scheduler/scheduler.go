// Package scheduler runs the pipeline on a fixed interval.
package scheduler

import (
	"context"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"
)

// Scheduler triggers a task on an @every interval, with one immediate run at
// startup so a fresh deployment does not wait a full cycle.
type Scheduler struct {
	interval time.Duration
	task     func(ctx context.Context) error
	cron     *cron.Cron
	logger   *zap.Logger
}

func New(interval time.Duration, task func(ctx context.Context) error, logger *zap.Logger) (*Scheduler, error) {
	if interval < time.Minute {
		return nil, fmt.Errorf("interval %s is too short, minimum is 1m", interval)
	}
	return &Scheduler{
		interval: interval,
		task:     task,
		cron:     cron.New(),
		logger:   logger,
	}, nil
}

// Run blocks until ctx is cancelled. Task failures are logged and the
// schedule keeps going.
func (s *Scheduler) Run(ctx context.Context) error {
	run := func() {
		started := time.Now()
		s.logger.Info("scheduled run starting")
		if err := s.task(ctx); err != nil {
			s.logger.Error("scheduled run failed", zap.Error(err))
			return
		}
		s.logger.Info("scheduled run finished", zap.Duration("took", time.Since(started)))
	}

	spec := fmt.Sprintf("@every %s", s.interval)
	if _, err := s.cron.AddFunc(spec, run); err != nil {
		return fmt.Errorf("schedule %q: %w", spec, err)
	}

	run()

	s.cron.Start()
	s.logger.Info("scheduler started", zap.Duration("interval", s.interval))

	<-ctx.Done()

	stopped := s.cron.Stop()
	<-stopped.Done()
	s.logger.Info("scheduler stopped")
	return ctx.Err()
}
