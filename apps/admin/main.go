package main

import (
	"fmt"
	"log"
	"os"

	"github.com/jmoiron/sqlx"

	"github.com/infast/crm/core"
	"github.com/infast/crm/core/student"
	emailsvc "github.com/infast/crm/services/email"
	logsvc "github.com/infast/crm/services/logger"
	"github.com/infast/crm/services/scheduler"
	"github.com/infast/crm/storage/database"
	pgrepos "github.com/infast/crm/storage/database/postgres"
)

func main() {
	conf := core.NewConfig()

	logger := logsvc.NewRollbarLogger(logsvc.NewStdLogger("ADMIN : ", log.LstdFlags|log.Lmicroseconds, conf), conf)
	logger.Enable(!conf.Debug)

	var mailSvc core.EmailService
	if conf.Debug {
		mailSvc = emailsvc.NewConsoleService(conf)
	} else {
		mailSvc = emailsvc.NewSendgridService(conf, logger)
	}

	cli := commandLine{
		conf:    conf,
		logger:  logger,
		out:     os.Stdout,
		mailSvc: mailSvc,
		openDB: func() (*sqlx.DB, error) {
			if err := database.CreateIfNotExist(conf); err != nil {
				return nil, err
			}
			return database.Open(conf)
		},
		newSweeper: func(db *sqlx.DB, clock core.Clock) scheduler.Sweeper {
			return student.NewService(pgrepos.NewStudentRepository(db), pgrepos.NewGroupRepository(db), clock)
		},
	}
	if err := cli.run(os.Args); err != nil {
		if err != errHelp {
			fmt.Fprintf(os.Stderr, "\nerror: %s\n", err)
		}
		os.Exit(1)
	}
}
