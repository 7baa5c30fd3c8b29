package allocator

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/onecd-go/onecd/internal/blockdevice"
	"github.com/onecd-go/onecd/internal/layout"
	"github.com/onecd-go/onecd/internal/object"
	"github.com/onecd-go/onecd/internal/pagecache"
)

func newTestAllocator(t *testing.T) (*Allocator, *blockdevice.Device) {
	t.Helper()
	path := t.TempDir() + "/db.dat"
	dev, err := blockdevice.Create(path)
	require.NoError(t, err)
	t.Cleanup(func() { dev.Close() })
	// pages 0 (header), 1 (free-space root), 2 (root object)
	require.NoError(t, dev.SetSize(int64(layout.DefaultPageSize)*3))
	cache := pagecache.New(dev, layout.DefaultPageSize, pagecache.Config{})
	a, err := Create(dev, cache, object.FormatWide, nil)
	require.NoError(t, err)
	return a, dev
}

// Allocate on an empty free stack extends the file sequentially
// (spec.md S1/S2: a 16-page empty file hands out 16, 17, 18 in order).
func TestAllocateExtendsFileSequentially(t *testing.T) {
	a, dev := newTestAllocator(t)
	size, err := dev.Size()
	require.NoError(t, err)
	base := uint32(size / int64(layout.DefaultPageSize))

	p1, err := a.Allocate()
	require.NoError(t, err)
	p2, err := a.Allocate()
	require.NoError(t, err)
	p3, err := a.Allocate()
	require.NoError(t, err)

	assert.Equal(t, base, p1)
	assert.Equal(t, base+1, p2)
	assert.Equal(t, base+2, p3)
}

// Disjointness: no page is ever handed out twice while live, and once
// released it is reused before the file is extended again (LIFO stack).
func TestAllocateReleaseDisjointAndReused(t *testing.T) {
	a, _ := newTestAllocator(t)

	p1, err := a.Allocate()
	require.NoError(t, err)
	p2, err := a.Allocate()
	require.NoError(t, err)
	assert.NotEqual(t, p1, p2)

	require.NoError(t, a.Release(p2))
	assert.EqualValues(t, 1, a.FreeCount())

	p3, err := a.Allocate()
	require.NoError(t, err)
	assert.Equal(t, p2, p3, "the most recently released page must be the next one handed out")
	assert.EqualValues(t, 0, a.FreeCount())
}

func TestReleaseRejectsReservedPages(t *testing.T) {
	a, _ := newTestAllocator(t)
	for _, p := range []uint32{layout.PageContainerHeader, layout.PageFreeSpaceRoot, layout.PageRootObject} {
		err := a.Release(p)
		require.Error(t, err)
	}
}

func TestSourceAdaptsAllocatorToPageSource(t *testing.T) {
	a, _ := newTestAllocator(t)
	src := Source{Alloc: a}

	page, err := src.NewPage()
	require.NoError(t, err)
	require.NoError(t, src.FreePage(page))
	assert.EqualValues(t, 1, a.FreeCount())
}
