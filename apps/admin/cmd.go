package main

import (
	"context"
	"database/sql"
	"errors"
	"flag"
	"fmt"
	"io"
	"time"

	"github.com/trezcool/academia/core"
	"github.com/trezcool/academia/core/draft"
)

var errHelp = errors.New("help provided")

type commandLine struct {
	conf     *core.Config
	db       *sql.DB
	draftSvc *draft.Service
	out      io.Writer
}

func (cli *commandLine) printUsage() {
	fmt.Println("Usage:")
	fmt.Println("  migrate COMMAND [ARGS] - run a goose command (up, up-by-one, up-to, down, down-to, redo, reset, status, version, fix)")
	fmt.Println("  purgedrafts [-older-than DURATION] - delete the drafts of all courses saved before now-DURATION")
	fmt.Println("  cleanupdrafts -course ID - delete the old drafts of a course, keeping the latest ones")
	fmt.Println("  token -teacher ID [-admin] - print an API token (development only)")
}

func (cli *commandLine) run(args []string) error {
	if len(args) < 2 {
		cli.printUsage()
		return errHelp
	}

	purgeCmd := flag.NewFlagSet("purgedrafts", flag.ContinueOnError)
	purgeOlderThan := purgeCmd.Duration("older-than", cli.conf.Drafts.PurgeAfter, "The minimum age of the drafts to delete.")

	cleanupCmd := flag.NewFlagSet("cleanupdrafts", flag.ContinueOnError)
	cleanupCourse := cleanupCmd.String("course", "", "The ID of the course.")

	tokenCmd := flag.NewFlagSet("token", flag.ContinueOnError)
	tokenTeacher := tokenCmd.String("teacher", "", "The ID of the teacher.")
	tokenAdmin := tokenCmd.Bool("admin", false, "Grant admin rights.")

	ctx := context.Background()

	switch args[1] {
	case "migrate":
		if len(args) < 3 {
			cli.printUsage()
			return errHelp
		}
		return cli.migrate(ctx, args[2:])
	case "purgedrafts":
		if err := purgeCmd.Parse(args[2:]); err != nil {
			return errHelp
		}
		if *purgeOlderThan <= 0 {
			purgeCmd.Usage()
			return errHelp
		}
		return cli.purgeDrafts(ctx, *purgeOlderThan)
	case "cleanupdrafts":
		if err := cleanupCmd.Parse(args[2:]); err != nil {
			return errHelp
		}
		if *cleanupCourse == "" {
			cleanupCmd.Usage()
			return errHelp
		}
		return cli.cleanupDrafts(ctx, *cleanupCourse)
	case "token":
		if err := tokenCmd.Parse(args[2:]); err != nil {
			return errHelp
		}
		if *tokenTeacher == "" {
			tokenCmd.Usage()
			return errHelp
		}
		return cli.token(*tokenTeacher, *tokenAdmin)
	default:
		cli.printUsage()
		return errHelp
	}
}

func (cli *commandLine) purgeDrafts(ctx context.Context, olderThan time.Duration) error {
	res, err := cli.draftSvc.Purge(ctx, olderThan)
	if err != nil {
		return err
	}
	_, _ = fmt.Fprintf(cli.out, "%d draft(s) deleted\n", res.Deleted)
	return nil
}

func (cli *commandLine) cleanupDrafts(ctx context.Context, courseID string) error {
	res, err := cli.draftSvc.Cleanup(ctx, courseID)
	if err != nil {
		return err
	}
	_, _ = fmt.Fprintf(cli.out, "%d draft(s) deleted\n", res.Deleted)
	return nil
}
