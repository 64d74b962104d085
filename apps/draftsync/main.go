package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/trezcool/academia/core"
	"github.com/trezcool/academia/core/autosave"
	"github.com/trezcool/academia/services/draftapi"
	logsvc "github.com/trezcool/academia/services/logger"
)

func main() {
	courseID := flag.String("course", "", "The ID of the course.")
	path := flag.String("file", "draft.json", "The JSON draft file to sync.")
	flag.Parse()

	if *courseID == "" {
		flag.Usage()
		os.Exit(2)
	}

	conf := core.NewConfig()
	logger := logsvc.NewRollbarLogger(log.New(os.Stdout, "SYNC : ", log.LstdFlags), conf)
	defer logger.Close()

	sched := autosave.New(conf.Autosave, logger)
	s, err := newSyncer(*courseID, *path, draftapi.New(conf.Client), sched, logger)
	if err != nil {
		logger.Fatal(fmt.Sprintf("draftsync: %v", err), err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err = s.Run(ctx); err != nil {
		logger.Fatal(fmt.Sprintf("draftsync: %v", err), err)
	}
}
