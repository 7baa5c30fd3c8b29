package object

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/onecd-go/onecd/internal/blockdevice"
	"github.com/onecd-go/onecd/internal/layout"
	"github.com/onecd-go/onecd/internal/onecderr"
	"github.com/onecd-go/onecd/internal/pagecache"
)

const testPageSize = 4096

// fileSource extends the backing file directly, the same shape as
// allocator's own extendSource, kept local here so these tests can
// exercise Object without reaching into the allocator package.
type fileSource struct {
	device *blockdevice.Device
	cache  *pagecache.Cache
	freed  []uint32
}

func (s *fileSource) NewPage() (uint32, error) {
	size, err := s.device.Size()
	if err != nil {
		return 0, err
	}
	page := uint32(size / int64(testPageSize))
	if err := s.device.SetSize(size + int64(testPageSize)); err != nil {
		return 0, err
	}
	if _, err := s.cache.GetForWrite(page, false); err != nil {
		return 0, err
	}
	return page, nil
}

func (s *fileSource) FreePage(page uint32) error {
	s.freed = append(s.freed, page)
	return nil
}

func newTestObject(t *testing.T, format Format, kind Kind) (*Object, *fileSource) {
	t.Helper()
	path := t.TempDir() + "/obj.db"
	dev, err := blockdevice.Create(path)
	require.NoError(t, err)
	t.Cleanup(func() { dev.Close() })
	require.NoError(t, dev.SetSize(int64(testPageSize)*3))
	cache := pagecache.New(dev, testPageSize, pagecache.Config{})
	src := &fileSource{device: dev, cache: cache}
	obj, err := Create(cache, src, 2, testPageSize, format, kind, nil)
	require.NoError(t, err)
	return obj, src
}

func TestRoundTripObjectLegacySpansMultipleDataPages(t *testing.T) {
	obj, _ := newTestObject(t, FormatLegacy, KindData)
	data := make([]byte, 9000)
	for i := range data {
		data[i] = byte(i)
	}
	require.NoError(t, obj.Write(0, data))
	assert.EqualValues(t, 9000, obj.Len())
	got := make([]byte, len(data))
	require.NoError(t, obj.Read(0, got))
	assert.Equal(t, data, got)
}

func TestRoundTripObjectWideAtOffset(t *testing.T) {
	obj, _ := newTestObject(t, FormatWide, KindData)
	data := []byte("the quick brown fox jumps over the lazy dog")
	require.NoError(t, obj.Write(100, data))
	got := make([]byte, len(data))
	require.NoError(t, obj.Read(100, got))
	assert.Equal(t, data, got)
}

func TestWideObjectPromotesAndDemotesFatlevel(t *testing.T) {
	obj, _ := newTestObject(t, FormatWide, KindData)
	assert.EqualValues(t, 0, obj.Fatlevel())

	fatlevel0Cap := capacityFor(FormatWide, testPageSize, 0)
	big := uint64(testPageSize) * uint64(fatlevel0Cap+5)
	require.NoError(t, obj.Resize(big))
	assert.EqualValues(t, 1, obj.Fatlevel(), "growth past fatlevel-0 capacity must promote")

	require.NoError(t, obj.Resize(uint64(testPageSize)))
	assert.EqualValues(t, 0, obj.Fatlevel(), "shrinking back under capacity must demote")
}

func TestResizeGrowShrinkGrowReleasesAndReclaims(t *testing.T) {
	obj, src := newTestObject(t, FormatWide, KindData)
	require.NoError(t, obj.Resize(20000))
	require.NoError(t, obj.Resize(0))
	assert.NotEmpty(t, src.freed, "a non-monotonic object must return backing pages on shrink")

	require.NoError(t, obj.Resize(20000))
	assert.EqualValues(t, 20000, obj.Len())
}

func TestFreeSpaceObjectNeverReleasesOnShrink(t *testing.T) {
	obj, src := newTestObject(t, FormatWide, KindFree)
	require.NoError(t, obj.Resize(4000))
	require.NoError(t, obj.Resize(0))
	assert.Empty(t, src.freed, "the monotonic free-space object must never call FreePage on shrink")

	require.NoError(t, obj.Resize(4000))
	assert.EqualValues(t, 4000, obj.Len())
}

func TestLegacyFreeSpaceObjectLengthFieldIsWordCount(t *testing.T) {
	obj, _ := newTestObject(t, FormatLegacy, KindFree)
	require.NoError(t, obj.Resize(40))
	assert.EqualValues(t, 40, obj.Len(), "Len() always reports bytes, regardless of on-disk units")

	rootBuf, err := obj.cache.Get(obj.root)
	require.NoError(t, err)
	onDisk := layout.U32(rootBuf[legacyOffLen:])
	assert.EqualValues(t, 10, onDisk, "the legacy root's length field holds 32-bit words for the free-space object")

	reopened, err := Open(obj.cache, obj.source, obj.root, testPageSize, FormatLegacy, KindFree, false, nil)
	require.NoError(t, err)
	assert.EqualValues(t, 40, reopened.Len())
}

func TestLegacyDataObjectLengthFieldIsByteCount(t *testing.T) {
	obj, _ := newTestObject(t, FormatLegacy, KindData)
	require.NoError(t, obj.Write(0, make([]byte, 40)))

	rootBuf, err := obj.cache.Get(obj.root)
	require.NoError(t, err)
	onDisk := layout.U32(rootBuf[legacyOffLen:])
	assert.EqualValues(t, 40, onDisk, "ordinary legacy objects keep a plain byte length field")
}

func TestReadPastLenIsOutOfBounds(t *testing.T) {
	obj, _ := newTestObject(t, FormatLegacy, KindData)
	require.NoError(t, obj.Write(0, []byte("hi")))
	err := obj.Read(0, make([]byte, 10))
	require.Error(t, err)
	assert.True(t, onecderr.Is(err, onecderr.OutOfBounds))
}

func TestWriteToReadOnlyObjectFails(t *testing.T) {
	obj, _ := newTestObject(t, FormatLegacy, KindData)
	obj.readOnly = true
	err := obj.Write(0, []byte("x"))
	require.Error(t, err)
	assert.True(t, onecderr.Is(err, onecderr.ReadOnly))
}

func TestVersionTupleBumpsOnMutation(t *testing.T) {
	obj, _ := newTestObject(t, FormatLegacy, KindData)
	v1, v2 := obj.Version()
	assert.EqualValues(t, 0, v1)
	assert.EqualValues(t, 0, v2)

	require.NoError(t, obj.Write(0, []byte("a")))
	v1, _ = obj.Version()
	assert.EqualValues(t, 0, v1, "Version() reports the committed tuple, not the in-memory staged one")

	rootBuf, err := obj.cache.Get(obj.root)
	require.NoError(t, err)
	assert.EqualValues(t, 1, layout.U32(rootBuf[legacyOffV1:]), "the root page carries the bumped staged v1")
}
