// Command onecd is a CLI front-end over the database library (spec.md
// §6: "CLI and configuration... not part of the core"). Grounded on the
// teacher's flag-driven main.go for the overall shape (parse args, load
// config, build a logger, dispatch), rebuilt on alecthomas/kong for
// subcommand dispatch since the teacher itself has no subcommands to
// model from.
package main

import (
	"fmt"
	"os"

	"github.com/alecthomas/kong"

	"github.com/onecd-go/onecd/internal/onecdlog"
)

var cli struct {
	Config string `help:"Path to an onecd.ini defaults file." type:"path"`
	Log    string `help:"Log level: debug, info, warn, error."`

	Open          OpenCmd          `cmd:"" help:"Open a database and print a summary."`
	Ls            LsCmd            `cmd:"" help:"List tables, or a table-file catalog's entries."`
	Cat           CatCmd           `cmd:"" help:"Extract one file from a table-file catalog."`
	ExportTable   ExportTableCmd   `cmd:"export-table" help:"Export a table's streams to a directory."`
	ImportTable   ImportTableCmd   `cmd:"import-table" help:"Import a table from an exported directory."`
	Recover       RecoverCmd       `cmd:"" help:"Run recovery scans against a database."`
	ServeMaintenance ServeMaintenanceCmd `cmd:"serve-maintenance" help:"Run a periodic garbage/flush tick against an open database."`
}

type context struct {
	log *onecdlog.Logger
}

func main() {
	parser := kong.Must(&cli, kong.Name("onecd"), kong.Description("Read/write access to 1C:Enterprise-family database files."))
	k, err := parser.Parse(os.Args[1:])
	parser.FatalIfErrorf(err)

	cfg, err := loadConfig(cli.Config)
	if err != nil {
		fmt.Fprintln(os.Stderr, "config:", err)
		os.Exit(1)
	}
	level := cli.Log
	if level == "" {
		level = cfg.LogLevel
	}
	ctx := &context{log: onecdlog.New(os.Stderr, level)}

	if err := k.Run(ctx); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}
