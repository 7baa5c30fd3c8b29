package main

import (
	"fmt"
	"os"

	"github.com/onecd-go/onecd/internal/catalog"
	"github.com/onecd-go/onecd/internal/database"
)

// OpenCmd prints a one-shot summary of a database file.
type OpenCmd struct {
	Path     string `arg:"" help:"Database file path." type:"path"`
	Monopoly bool   `help:"Open read-write exclusive instead of shared read-only."`
}

func (c *OpenCmd) Run(ctx *context) error {
	db, err := database.Open(c.Path, c.Monopoly, ctx.log)
	if err != nil {
		return err
	}
	defer db.Close()
	fmt.Printf("version=%s page_size=%d role=%s tables=%d\n", db.Version(), db.PageSize(), db.Role(), db.TableCount())
	return nil
}

// LsCmd lists table names, or (with --table naming a recognized
// table-file catalog) that table's file entries.
type LsCmd struct {
	Path  string `arg:"" help:"Database file path." type:"path"`
	Table string `help:"List a table-file catalog table's entries instead of table names."`
}

func (c *LsCmd) Run(ctx *context) error {
	db, err := database.Open(c.Path, false, ctx.log)
	if err != nil {
		return err
	}
	defer db.Close()

	if c.Table == "" {
		for _, name := range db.TableNames() {
			fmt.Println(name)
		}
		return nil
	}
	t, ok := db.Table(c.Table)
	if !ok {
		return fmt.Errorf("no such table %q", c.Table)
	}
	cat, ok := catalog.Recognize(t)
	if !ok {
		return fmt.Errorf("table %q is not a table-file catalog", c.Table)
	}
	entries, err := cat.List()
	if err != nil {
		return err
	}
	for _, e := range entries {
		fmt.Printf("%-40s %10d  %s\n", e.Name, e.Size, e.Modified.Format("2006-01-02 15:04:05"))
	}
	return nil
}

// CatCmd writes one catalog-resident file's bytes to stdout.
type CatCmd struct {
	Path    string `arg:"" help:"Database file path." type:"path"`
	Table   string `arg:"" help:"Table-file catalog table name."`
	File    string `arg:"" help:"File name within the catalog (case-insensitive)."`
	Inflate bool   `help:"Inflate-decompress the payload before writing it out."`
}

func (c *CatCmd) Run(ctx *context) error {
	db, err := database.Open(c.Path, false, ctx.log)
	if err != nil {
		return err
	}
	defer db.Close()
	t, ok := db.Table(c.Table)
	if !ok {
		return fmt.Errorf("no such table %q", c.Table)
	}
	cat, ok := catalog.Recognize(t)
	if !ok {
		return fmt.Errorf("table %q is not a table-file catalog", c.Table)
	}
	var data []byte
	if c.Inflate {
		data, err = cat.OpenInflated(c.File)
	} else {
		data, err = cat.Open(c.File)
	}
	if err != nil {
		return err
	}
	_, err = os.Stdout.Write(data)
	return err
}

// ExportTableCmd exports one table's four streams to a directory.
type ExportTableCmd struct {
	Path  string `arg:"" help:"Database file path." type:"path"`
	Table string `arg:"" help:"Table name."`
	Dir   string `arg:"" help:"Destination directory." type:"path"`
}

func (c *ExportTableCmd) Run(ctx *context) error {
	db, err := database.Open(c.Path, false, ctx.log)
	if err != nil {
		return err
	}
	defer db.Close()
	return db.ExportTable(c.Table, c.Dir)
}

// ImportTableCmd imports a previously exported table directory back into
// a database, opened in monopoly mode since this mutates the root record.
type ImportTableCmd struct {
	Path string `arg:"" help:"Database file path." type:"path"`
	Dir  string `arg:"" help:"Directory produced by export-table." type:"path"`
}

func (c *ImportTableCmd) Run(ctx *context) error {
	db, err := database.Open(c.Path, true, ctx.log)
	if err != nil {
		return err
	}
	defer db.Close()
	name, err := db.ImportTable(c.Dir)
	if err != nil {
		return err
	}
	fmt.Println("imported:", name)
	return nil
}

// RecoverCmd runs the best-effort recovery scans (spec.md §4.7).
type RecoverCmd struct {
	Path             string `arg:"" help:"Database file path." type:"path"`
	CreateLostTables bool   `help:"Append orphaned table roots found to the root record (requires monopoly)."`
}

func (c *RecoverCmd) Run(ctx *context) error {
	db, err := database.Open(c.Path, c.CreateLostTables, ctx.log)
	if err != nil {
		return err
	}
	defer db.Close()

	if c.CreateLostTables {
		added, err := db.FindAndCreateLostTables()
		if err != nil {
			return err
		}
		fmt.Println("tables recovered:", added)
		return nil
	}
	lost, err := db.FindLostObjects()
	if err != nil {
		return err
	}
	out, err := database.LostObjectsYAML(lost)
	if err != nil {
		return err
	}
	fmt.Print(out)
	return nil
}
