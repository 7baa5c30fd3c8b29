package database

import (
	"strings"

	"github.com/onecd-go/onecd/internal/object"
	"github.com/onecd-go/onecd/internal/onecderr"
	"github.com/onecd-go/onecd/internal/table"
)

// ExportTable writes name's four streams plus a root manifest to dir
// (spec.md §4.5 "Import/Export"), staged through the database's vfs.FS.
func (d *Database) ExportTable(name, dir string) error {
	nt, ok := d.byName[strings.ToUpper(name)]
	if !ok {
		return onecderr.New(onecderr.OutOfBounds, "database.ExportTable", onecderr.D("table", name))
	}
	return nt.table.Export(dir, nt.table.Descriptor.Render(), d.fs)
}

// ImportTable reverses ExportTable: allocates three fresh child objects
// plus a descriptor object, writes the streams into them, composes a new
// descriptor referencing the freshly allocated roots, and appends it to
// the root object's table list (spec.md §4.5 "Import/Export").
func (d *Database) ImportTable(dir string) (string, error) {
	dataRoot, err := d.alloc.Allocate()
	if err != nil {
		return "", err
	}
	blobRoot, err := d.alloc.Allocate()
	if err != nil {
		return "", err
	}
	indexRoot, err := d.alloc.Allocate()
	if err != nil {
		return "", err
	}
	t, descText, err := table.Import(dir, d.cache, d.source, d.pageSize, d.format, dataRoot, blobRoot, indexRoot, d.log, d.fs)
	if err != nil {
		return "", err
	}

	descRoot, err := d.alloc.Allocate()
	if err != nil {
		return "", err
	}
	descObj, err := object.Create(d.cache, d.source, descRoot, d.pageSize, d.format, object.KindData, d.log)
	if err != nil {
		return "", err
	}
	if err := writeEmbeddedText(descObj, d.format == object.FormatWide, descText); err != nil {
		return "", err
	}
	if err := d.AddTable(descRoot, t); err != nil {
		return "", err
	}
	return t.Descriptor.Name, nil
}
