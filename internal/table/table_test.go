package table

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/onecd-go/onecd/internal/blockdevice"
	"github.com/onecd-go/onecd/internal/layout"
	"github.com/onecd-go/onecd/internal/object"
	"github.com/onecd-go/onecd/internal/onecderr"
	"github.com/onecd-go/onecd/internal/pagecache"
)

// extendSource is a minimal object.PageSource that extends the backing
// file directly; freeing is a no-op tracker, same shape as the
// allocator's own, kept local to keep this package's tests independent
// of internal/allocator.
type extendSource struct {
	device *blockdevice.Device
	cache  *pagecache.Cache
}

func (s *extendSource) NewPage() (uint32, error) {
	size, err := s.device.Size()
	if err != nil {
		return 0, err
	}
	page := uint32(size / int64(layout.DefaultPageSize))
	if err := s.device.SetSize(size + int64(layout.DefaultPageSize)); err != nil {
		return 0, err
	}
	if _, err := s.cache.GetForWrite(page, false); err != nil {
		return 0, err
	}
	return page, nil
}

func (s *extendSource) FreePage(page uint32) error { return nil }

func newTestTable(t *testing.T, fields []Field) *Table {
	t.Helper()
	path := t.TempDir() + "/db.dat"
	dev, err := blockdevice.Create(path)
	require.NoError(t, err)
	t.Cleanup(func() { dev.Close() })
	require.NoError(t, dev.SetSize(int64(layout.DefaultPageSize)*4))
	cache := pagecache.New(dev, layout.DefaultPageSize, pagecache.Config{})
	src := &extendSource{device: dev, cache: cache}

	desc := &Descriptor{Name: "TESTTABLE", Fields: fields, DataRoot: 10, BlobRoot: 11, IndexRoot: 12}
	tbl, err := Create(cache, src, layout.DefaultPageSize, object.FormatWide, desc, nil)
	require.NoError(t, err)
	return tbl
}

func textFields() []Field {
	return []Field{
		{Name: "A", Type: TypeText, Length: 8},
		{Name: "B", Type: TypeNumber, Length: 8},
	}
}

func TestInsertUpdateDeleteTombstoneSemantics(t *testing.T) {
	tbl := newTestTable(t, textFields())

	r1, err := tbl.Insert([]Value{{Text: "hello"}, {Int: 1}})
	require.NoError(t, err)
	r2, err := tbl.Insert([]Value{{Text: "world"}, {Int: 2}})
	require.NoError(t, err)
	assert.Equal(t, 0, r1)
	assert.Equal(t, 1, r2)

	assert.Equal(t, 2, tbl.RecordCountPhysical())
	logical, err := tbl.RecordCountLogical()
	require.NoError(t, err)
	assert.Equal(t, 2, logical)

	require.NoError(t, tbl.Delete(r2))

	// Deleting never shrinks the physical slot count, only flips the
	// tombstone byte.
	assert.Equal(t, 2, tbl.RecordCountPhysical())
	logical, err = tbl.RecordCountLogical()
	require.NoError(t, err)
	assert.Equal(t, 1, logical)

	_, live, err := tbl.GetRecord(r2)
	require.NoError(t, err)
	assert.False(t, live)

	_, live, err = tbl.GetRecord(r1)
	require.NoError(t, err)
	assert.True(t, live)
}

func TestInsertInsertDeleteMatchesScenario(t *testing.T) {
	// spec.md S4: insert, insert, delete one -> physical 2, logical 1.
	tbl := newTestTable(t, textFields())
	_, err := tbl.Insert([]Value{{Text: "one"}, {Int: 1}})
	require.NoError(t, err)
	row2, err := tbl.Insert([]Value{{Text: "two"}, {Int: 2}})
	require.NoError(t, err)
	require.NoError(t, tbl.Delete(row2))

	assert.Equal(t, 2, tbl.RecordCountPhysical())
	logical, err := tbl.RecordCountLogical()
	require.NoError(t, err)
	assert.Equal(t, 1, logical)
}

func TestGetRecordOutOfBounds(t *testing.T) {
	tbl := newTestTable(t, textFields())
	_, _, err := tbl.GetRecord(0)
	require.Error(t, err)
	assert.True(t, onecderr.Is(err, onecderr.OutOfBounds))
}

func TestUpdateRoundTripsValues(t *testing.T) {
	tbl := newTestTable(t, textFields())
	row, err := tbl.Insert([]Value{{Text: "before"}, {Int: 10}})
	require.NoError(t, err)

	require.NoError(t, tbl.Update(row, []Value{{Text: "after"}, {Int: 99}}))
	values, live, err := tbl.GetRecord(row)
	require.NoError(t, err)
	assert.True(t, live)
	assert.Equal(t, "after", values[0].Text)
	assert.EqualValues(t, 99, values[1].Int)
}

func TestWriteBlobReadBlobRoundTrip(t *testing.T) {
	tbl := newTestTable(t, textFields())
	data := make([]byte, 900) // spans multiple 250-byte chain slots
	for i := range data {
		data[i] = byte(i % 256)
	}
	start, err := tbl.WriteBlob(data)
	require.NoError(t, err)
	assert.NotZero(t, start)

	got, err := tbl.ReadBlob(start, uint32(len(data)))
	require.NoError(t, err)
	assert.Equal(t, data, got)
}

func TestFreeBlobReclaimsSlotsForReuse(t *testing.T) {
	tbl := newTestTable(t, textFields())
	data := make([]byte, 600)
	start, err := tbl.WriteBlob(data)
	require.NoError(t, err)

	sizeBefore := tbl.Blob.Len()
	require.NoError(t, tbl.FreeBlob(start))

	start2, err := tbl.WriteBlob(data)
	require.NoError(t, err)
	assert.Equal(t, sizeBefore, tbl.Blob.Len(), "freed slots must be reused rather than growing the BLOB object again")
	assert.NotZero(t, start2)
}

func TestReadBlobChainLengthMismatchIsCorruptBlob(t *testing.T) {
	// spec.md S6: a chain declaring one byte more than it actually holds
	// fails CorruptBlob with the exact expected/actual counts.
	tbl := newTestTable(t, textFields())
	start, err := tbl.WriteBlob(make([]byte, 300))
	require.NoError(t, err)

	_, err = tbl.ReadBlob(start, 301)
	require.Error(t, err)
	assert.True(t, onecderr.Is(err, onecderr.CorruptBlob))
	assert.Contains(t, err.Error(), "expected=301")
	assert.Contains(t, err.Error(), "actual=300")
}

func TestReadChainZeroStartWithNonzeroLengthIsCorrupt(t *testing.T) {
	tbl := newTestTable(t, textFields())
	_, err := ReadChain(tbl.Blob, 0, 5, 0)
	require.Error(t, err)
	assert.True(t, onecderr.Is(err, onecderr.CorruptBlob))
}

func TestReadChainEmptyStartIsEmptyBytes(t *testing.T) {
	tbl := newTestTable(t, textFields())
	got, err := ReadChain(tbl.Blob, 0, 0, 0)
	require.NoError(t, err)
	assert.Empty(t, got)
}
