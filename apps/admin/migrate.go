package main

import (
	"github.com/jmoiron/sqlx"

	"github.com/infast/crm/storage/database"
)

var migrateFunc = database.Migrate // mockable

func (cli *commandLine) migrate(args []string) error {
	return cli.withDB(func(db *sqlx.DB) error {
		return migrateFunc(db, args[0], args[1:]...)
	})
}
