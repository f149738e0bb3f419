package main

import (
	"context"

	"github.com/jmoiron/sqlx"

	"github.com/infast/crm/core"
	"github.com/infast/crm/services/scheduler"
)

func (cli *commandLine) sweep(date string) error {
	var clock core.Clock = core.NewClock(cli.conf.Location)
	if date != "" {
		d, err := core.ParseDate(date)
		if err != nil {
			return err
		}
		clock = &core.FixedClock{T: d.Time}
	}

	return cli.withDB(func(db *sqlx.DB) error {
		ctx := context.Background()
		if cli.conf.Sweep.Timeout > 0 {
			var cancel context.CancelFunc
			ctx, cancel = context.WithTimeout(ctx, cli.conf.Sweep.Timeout)
			defer cancel()
		}
		job := scheduler.NewSweepJob(cli.newSweeper(db, clock), clock, cli.mailSvc, cli.conf.Sweep.Notify, cli.logger)
		return job(ctx)
	})
}
