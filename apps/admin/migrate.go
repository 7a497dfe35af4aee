package main

import (
	"context"
	"errors"

	"github.com/pressly/goose/v3"

	"github.com/trezcool/madrasa/storage/database"
)

var (
	gooseRunFunc = goose.RunContext // mockable

	errNoSQLDatabase = errors.New("migrations only apply to the postgres engine")
)

func (cli *commandLine) migrate(ctx context.Context, args []string) error {
	if cli.db == nil {
		return errNoSQLDatabase
	}
	if err := database.PrepareGoose(); err != nil {
		return err
	}
	return gooseRunFunc(ctx, args[0], cli.db, database.MigrationsDir, args[1:]...)
}
