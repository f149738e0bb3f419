// Package scheduler runs the periodic jobs of the app on cron specs.
package scheduler

import (
	"context"
	"fmt"
	"time"

	"github.com/pkg/errors"
	"github.com/robfig/cron/v3"

	"github.com/infast/crm/core"
)

// Job is a unit of scheduled work. ctx is cancelled when the run exceeds its timeout.
type Job func(ctx context.Context) error

type Scheduler struct {
	cron   *cron.Cron
	logger core.Logger
}

// cronLogger adapts core.Logger to cron.Logger.
type cronLogger struct {
	logger core.Logger
}

func (l cronLogger) Info(msg string, keysAndValues ...interface{}) {
	l.logger.Debug("cron: "+msg, keysAndValues...)
}

func (l cronLogger) Error(err error, msg string, keysAndValues ...interface{}) {
	l.logger.Error(fmt.Sprintf("cron: %s: %v", msg, err), append([]interface{}{err}, keysAndValues...)...)
}

// New builds a scheduler that fires in loc and never overlaps runs of the same job.
func New(loc *time.Location, logger core.Logger) *Scheduler {
	cl := cronLogger{logger: logger}
	if loc == nil {
		loc = time.UTC
	}
	return &Scheduler{
		cron: cron.New(
			cron.WithLocation(loc),
			cron.WithLogger(cl),
			cron.WithChain(cron.Recover(cl), cron.SkipIfStillRunning(cl)),
		),
		logger: logger,
	}
}

// Add registers job under name on a standard 5-field cron spec.
// Each run gets its own context with the given timeout; a failed run is logged and retried at the next tick.
func (s *Scheduler) Add(name, spec string, timeout time.Duration, job Job) error {
	_, err := s.cron.AddFunc(spec, func() {
		ctx := context.Background()
		if timeout > 0 {
			var cancel context.CancelFunc
			ctx, cancel = context.WithTimeout(ctx, timeout)
			defer cancel()
		}

		start := time.Now()
		if err := job(ctx); err != nil {
			s.logger.Error(fmt.Sprintf("job %s failed: %v", name, err), err)
			return
		}
		s.logger.Info(fmt.Sprintf("job %s done in %s", name, time.Since(start)))
	})
	if err != nil {
		return errors.Wrapf(err, "scheduling job %s on %q", name, spec)
	}
	return nil
}

func (s *Scheduler) Start() {
	s.cron.Start()
}

// Stop stops the scheduler and waits for running jobs until ctx is done.
func (s *Scheduler) Stop(ctx context.Context) error {
	select {
	case <-s.cron.Stop().Done():
		return nil
	case <-ctx.Done():
		return errors.Wrap(ctx.Err(), "waiting for running jobs")
	}
}
