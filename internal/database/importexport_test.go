package database

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/onecd-go/onecd/internal/layout"
	"github.com/onecd-go/onecd/internal/table"
)

func TestExportThenImportTableRoundTrip(t *testing.T) {
	path := t.TempDir() + "/test.1cd"
	d, err := Create(path, layout.Format8_3_8_0, nil)
	require.NoError(t, err)
	defer d.Close()

	tbl := addTestTable(t, d, "SOURCE", catalogLikeFields("ATTRIBUTES"))
	_, err = tbl.Insert([]table.Value{{Text: "f"}, {}, {}, {Int: 1}, {Text: "0"}, {}})
	require.NoError(t, err)

	dir := t.TempDir()
	require.NoError(t, d.ExportTable("SOURCE", dir))

	name, err := d.ImportTable(dir)
	require.NoError(t, err)
	assert.Equal(t, "SOURCE", name)
	assert.Equal(t, 2, d.TableCount())

	imported, ok := d.Table("SOURCE")
	require.True(t, ok)
	assert.Equal(t, 1, imported.RecordCountPhysical())
}

func TestExportTableUnknownNameFails(t *testing.T) {
	path := t.TempDir() + "/test.1cd"
	d, err := Create(path, layout.Format8_3_8_0, nil)
	require.NoError(t, err)
	defer d.Close()

	err = d.ExportTable("NOPE", t.TempDir())
	require.Error(t, err)
}
