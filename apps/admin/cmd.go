package main

import (
	"errors"
	"flag"
	"fmt"
	"io"

	"github.com/jmoiron/sqlx"
	"golang.org/x/term"

	"github.com/infast/crm/core"
	"github.com/infast/crm/services/scheduler"
)

var (
	readPasswordFunc = term.ReadPassword // mockable

	errHelp = errors.New("help provided")
)

type commandLine struct {
	conf    *core.Config
	logger  core.Logger
	out     io.Writer
	mailSvc core.EmailService

	// opened lazily: hashpassword never touches the database
	openDB     func() (*sqlx.DB, error)
	newSweeper func(db *sqlx.DB, clock core.Clock) scheduler.Sweeper
}

func (cli *commandLine) printUsage() {
	fmt.Fprintln(cli.out, "Usage:")
	fmt.Fprintln(cli.out, "  migrate COMMAND [ARGS]     - run a goose migration command (up, down, status, redo, version, ...)")
	fmt.Fprintln(cli.out, "  sweep [-date YYYY-MM-DD]   - run the debtor sweep now, optionally as of another day")
	fmt.Fprintln(cli.out, "  hashpassword               - print the bcrypt hash to use as auth.passwordHash")
}

func (cli *commandLine) run(args []string) error {
	if len(args) < 2 {
		cli.printUsage()
		return errHelp
	}

	sweepCmd := flag.NewFlagSet("sweep", flag.ContinueOnError)
	sweepCmd.SetOutput(cli.out)
	sweepDate := sweepCmd.String("date", "", "The day to sweep (YYYY-MM-DD). Defaults to today.")

	switch args[1] {
	case "migrate":
		if len(args) < 3 {
			cli.printUsage()
			return errHelp
		}
		return cli.migrate(args[2:])
	case "sweep":
		if err := sweepCmd.Parse(args[2:]); err != nil {
			if err == flag.ErrHelp {
				return errHelp
			}
			return err
		}
		return cli.sweep(*sweepDate)
	case "hashpassword":
		return cli.hashPassword()
	default:
		cli.printUsage()
		return errHelp
	}
}

func (cli *commandLine) withDB(fn func(db *sqlx.DB) error) error {
	db, err := cli.openDB()
	if err != nil {
		return err
	}
	if db != nil {
		defer func() { _ = db.Close() }()
	}
	return fn(db)
}
