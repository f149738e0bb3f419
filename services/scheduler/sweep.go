package scheduler

import (
	"context"
	"fmt"
	"time"

	"github.com/pkg/errors"

	"github.com/infast/crm/core"
	"github.com/infast/crm/core/student"
)

const SweepJobName = "debtor-sweep"

// Sweeper is what the sweep job needs from the student service.
type Sweeper interface {
	RunSweep(ctx context.Context, now time.Time) (student.SweepResult, error)
}

// NewSweepJob runs the debtor sweep for the clock's current day and mails the digest to notify, if any.
func NewSweepJob(svc Sweeper, clock core.Clock, mailSvc core.EmailService, notify []string, logger core.Logger) Job {
	return func(ctx context.Context) error {
		res, err := svc.RunSweep(ctx, clock.Now())
		if err != nil {
			return errors.Wrap(err, "running sweep")
		}
		logger.Info(fmt.Sprintf("sweep %s: %d new debtors, %d due today",
			res.Date.Format(core.DateLayout), res.Transitioned, len(res.DueToday)))

		if len(notify) > 0 && mailSvc != nil {
			mailSvc.SendMessages(student.NewSweepDigest(res, notify))
		}
		return nil
	}
}
