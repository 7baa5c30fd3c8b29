package table

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/onecd-go/onecd/internal/blockdevice"
	"github.com/onecd-go/onecd/internal/layout"
	"github.com/onecd-go/onecd/internal/object"
	"github.com/onecd-go/onecd/internal/pagecache"
)

func TestExportImportRoundTrip(t *testing.T) {
	tbl := newTestTable(t, textFields())
	_, err := tbl.Insert([]Value{{Text: "hello"}, {Int: 42}})
	require.NoError(t, err)
	_, err = tbl.Insert([]Value{{Text: "world"}, {Int: 7}})
	require.NoError(t, err)

	dir := t.TempDir()
	require.NoError(t, tbl.Export(dir, tbl.Descriptor.Render(), nil))

	dev, err := blockdevice.Create(t.TempDir() + "/imported.dat")
	require.NoError(t, err)
	t.Cleanup(func() { dev.Close() })
	require.NoError(t, dev.SetSize(int64(layout.DefaultPageSize)*4))
	cache := pagecache.New(dev, layout.DefaultPageSize, pagecache.Config{})
	src := &extendSource{device: dev, cache: cache}

	imported, renderedText, err := Import(dir, cache, src, layout.DefaultPageSize, object.FormatWide, 20, 21, 22, nil, nil)
	require.NoError(t, err)
	assert.Equal(t, "TESTTABLE", imported.Descriptor.Name)
	assert.Contains(t, renderedText, "TESTTABLE")

	assert.Equal(t, tbl.RecordCountPhysical(), imported.RecordCountPhysical())
	values, live, err := imported.GetRecord(0)
	require.NoError(t, err)
	assert.True(t, live)
	assert.Equal(t, "hello", values[0].Text)
	assert.EqualValues(t, 42, values[1].Int)
}

func TestImportOfMissingDirectoryFails(t *testing.T) {
	dev, err := blockdevice.Create(t.TempDir() + "/imported.dat")
	require.NoError(t, err)
	t.Cleanup(func() { dev.Close() })
	require.NoError(t, dev.SetSize(int64(layout.DefaultPageSize)*4))
	cache := pagecache.New(dev, layout.DefaultPageSize, pagecache.Config{})
	src := &extendSource{device: dev, cache: cache}

	_, _, err = Import(t.TempDir()+"/does-not-exist", cache, src, layout.DefaultPageSize, object.FormatWide, 20, 21, 22, nil, nil)
	require.Error(t, err)
}
