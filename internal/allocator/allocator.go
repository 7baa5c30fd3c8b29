// Package allocator implements the free-page stack living at page 1
// (spec.md §4.3): a last-in-first-out list of reclaimed page numbers,
// itself encoded through the same object machinery as every other
// object, with allocation falling back to extending the file when the
// stack is empty.
//
// Grounded on server/innodb/storage/store/segs/segment.go (the
// free/frag/full extent lists a Segment threads through FSP pages — the
// same "a stack of reclaimable units, backed by the same storage
// abstraction it allocates for everyone else" shape), adapted from
// extent-grained to single-page-grained allocation.
package allocator

import (
	"github.com/onecd-go/onecd/internal/blockdevice"
	"github.com/onecd-go/onecd/internal/layout"
	"github.com/onecd-go/onecd/internal/object"
	"github.com/onecd-go/onecd/internal/onecderr"
	"github.com/onecd-go/onecd/internal/onecdlog"
	"github.com/onecd-go/onecd/internal/pagecache"
)

// Allocator hands out and reclaims page numbers.
type Allocator struct {
	freeObj  *object.Object
	device   *blockdevice.Device
	cache    *pagecache.Cache
	pageSize int
	log      *onecdlog.Logger
}

// extendSource backs the free-space object's own growth: NewPage always
// extends the backing file directly rather than popping the free-page
// stack, so that growing the free list to record one more free page can
// never recurse into Allocate (spec.md §4.3). The free-space object's
// backing pages are never released (Object.monotonic), so FreePage is
// unreachable here; it exists only to satisfy object.PageSource.
type extendSource struct {
	device *blockdevice.Device
	cache  *pagecache.Cache
}

func (s *extendSource) NewPage() (uint32, error) {
	size, err := s.device.Size()
	if err != nil {
		return 0, err
	}
	pageSize := s.cache.PageSize()
	page := uint32(size / int64(pageSize))
	if err := s.device.SetSize(size + int64(pageSize)); err != nil {
		return 0, err
	}
	if _, err := s.cache.GetForWrite(page, false); err != nil {
		return 0, err
	}
	return page, nil
}

func (s *extendSource) FreePage(page uint32) error {
	return onecderr.New(onecderr.CorruptObject, "allocator.extendSource.FreePage",
		onecderr.D("page", page), onecderr.D("reason", "free-space object backing pages are never released"))
}

// Open loads the free-page stack rooted at layout.PageFreeSpaceRoot.
func Open(device *blockdevice.Device, cache *pagecache.Cache, format object.Format, log *onecdlog.Logger) (*Allocator, error) {
	src := &extendSource{device: device, cache: cache}
	freeObj, err := object.Open(cache, src, layout.PageFreeSpaceRoot, cache.PageSize(), format, object.KindFree, false, log)
	if err != nil {
		return nil, err
	}
	return &Allocator{freeObj: freeObj, device: device, cache: cache, pageSize: cache.PageSize(), log: log}, nil
}

// Create formats a brand-new, empty free-page stack.
func Create(device *blockdevice.Device, cache *pagecache.Cache, format object.Format, log *onecdlog.Logger) (*Allocator, error) {
	src := &extendSource{device: device, cache: cache}
	freeObj, err := object.Create(cache, src, layout.PageFreeSpaceRoot, cache.PageSize(), format, object.KindFree, log)
	if err != nil {
		return nil, err
	}
	return &Allocator{freeObj: freeObj, device: device, cache: cache, pageSize: cache.PageSize(), log: log}, nil
}

func (a *Allocator) wordCount() uint32 { return uint32(a.freeObj.Len() / 4) }

// Allocate pops the most recently released page, or extends the backing
// file by one page if the free stack is empty (spec.md §4.3).
func (a *Allocator) Allocate() (uint32, error) {
	words := a.wordCount()
	if words == 0 {
		size, err := a.device.Size()
		if err != nil {
			return 0, err
		}
		page := uint32(size / int64(a.pageSize))
		if err := a.device.SetSize(size + int64(a.pageSize)); err != nil {
			return 0, err
		}
		if _, err := a.cache.GetForWrite(page, false); err != nil {
			return 0, err
		}
		return page, nil
	}
	slotOff := int64(words-1) * 4
	buf := make([]byte, 4)
	if err := a.freeObj.Read(slotOff, buf); err != nil {
		return 0, err
	}
	page := layout.U32(buf)
	zero := make([]byte, 4)
	if err := a.freeObj.Write(slotOff, zero); err != nil {
		return 0, err
	}
	if err := a.freeObj.Resize(uint64(words-1) * 4); err != nil {
		return 0, err
	}
	return page, nil
}

// Release pushes page back onto the free stack. Pages 0-2 (the container
// header, the free-space root and the root object) must never be
// released; callers that try have a bug above this layer.
func (a *Allocator) Release(page uint32) error {
	if page == layout.PageContainerHeader || page == layout.PageFreeSpaceRoot || page == layout.PageRootObject {
		return onecderr.New(onecderr.CorruptObject, "allocator.Release", onecderr.D("page", page),
			onecderr.D("reason", "reserved page"))
	}
	words := a.wordCount()
	if err := a.freeObj.Resize(uint64(words+1) * 4); err != nil {
		return err
	}
	buf := make([]byte, 4)
	layout.PutU32(buf, page)
	return a.freeObj.Write(int64(words)*4, buf)
}

// FreeCount exposes the free stack's current depth, for diagnostics.
func (a *Allocator) FreeCount() uint32 { return a.wordCount() }

// Source adapts an Allocator to object.PageSource, for every ordinary
// (non-free-space) object in the database: tables' data/blob/index
// objects, the root object and the descriptor object all grow and shrink
// through the shared free-page stack.
type Source struct {
	Alloc *Allocator
}

func (s Source) NewPage() (uint32, error)    { return s.Alloc.Allocate() }
func (s Source) FreePage(page uint32) error { return s.Alloc.Release(page) }
