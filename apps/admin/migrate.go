package main

import (
	"context"

	"github.com/pkg/errors"

	"github.com/trezcool/academia/storage/database"
)

var gooseRunFunc = database.RunMigrations // mockable

func (cli *commandLine) migrate(ctx context.Context, args []string) error {
	if cli.db == nil {
		return errors.New("migrate: no database (in-memory storage)")
	}
	return gooseRunFunc(ctx, cli.db, args[0], args[1:]...)
}
