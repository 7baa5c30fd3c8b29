package main

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/robfig/cron/v3"

	"github.com/onecd-go/onecd/internal/database"
)

// ServeMaintenanceCmd runs a periodic page_cache.garbage(aggressive) +
// flush() tick against an open database, driven by robfig/cron. The core
// itself has no background threads (spec.md §5); this lives entirely in
// the CLI layer, which owns the database instance for the process's
// lifetime and drives it from a single cron-scheduled goroutine, never
// concurrently with itself.
type ServeMaintenanceCmd struct {
	Path     string `arg:"" help:"Database file path." type:"path"`
	Schedule string `help:"Cron schedule for the garbage+flush tick." default:"@every 1m"`
}

func (c *ServeMaintenanceCmd) Run(ctx *context) error {
	db, err := database.Open(c.Path, true, ctx.log)
	if err != nil {
		return err
	}
	defer db.Close()

	sched := cron.New(cron.WithChain(cron.SkipIfStillRunning(cron.DiscardLogger)))
	_, err = sched.AddFunc(c.Schedule, func() {
		db.Garbage(true)
		if err := db.Flush(); err != nil {
			fmt.Fprintln(os.Stderr, "maintenance flush:", err)
		}
	})
	if err != nil {
		return err
	}
	sched.Start()
	defer sched.Stop()

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
	<-sig
	return nil
}
