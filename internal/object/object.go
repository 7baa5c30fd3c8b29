// Package object implements the logical byte-addressable stream that is
// the core abstraction of the format (spec.md §4.4): a root page plus
// one- or two-level allocation tables referencing data pages, in both the
// legacy (pre-8.3.8) and wide (8.3.8+) on-disk shapes.
//
// Grounded on server/innodb/storage/wrapper/space/extent.go and space.go
// (extent/page bookkeeping — "a logical span addressed through an
// indirection table", the same shape as an allocation table) and on
// server/innodb/storage/store/pages/page.go for the fixed-width field
// codec discipline (FileHeader's ConvertUInt4Bytes-style accessors).
package object

import (
	"io"
	"sync"

	"github.com/onecd-go/onecd/internal/layout"
	"github.com/onecd-go/onecd/internal/onecderr"
	"github.com/onecd-go/onecd/internal/onecdlog"
	"github.com/onecd-go/onecd/internal/pagecache"
)

// Kind distinguishes the self-referential free-space object from every
// other (data-bearing) object, since the free object measures its length
// in 32-bit words instead of bytes (spec.md §3).
type Kind int

const (
	KindData Kind = iota
	KindFree
)

// Format is the on-disk root-page shape: legacy (pre-8.3.8) or wide
// (8.3.8+).
type Format int

const (
	FormatLegacy Format = iota
	FormatWide
)

// PageSource is how an Object obtains new physical pages when growing and
// returns them when shrinking. Ordinary objects are backed by the
// database's Allocator; the free-space object itself is backed by a
// source that extends the file directly, so that growing the free-space
// object's own allocation tables never recurses into the allocator it
// implements (spec.md §4.3).
type PageSource interface {
	NewPage() (uint32, error)
	FreePage(page uint32) error
}

// Object is one logical byte stream.
type Object struct {
	mu       sync.Mutex
	cache    *pagecache.Cache
	source   PageSource
	log      *onecdlog.Logger
	root     uint32
	pageSize int
	format   Format
	kind     Kind
	readOnly bool

	version layout.VersionTuple

	lenBytes uint64
	fatlevel uint8    // wide format only
	blocks   []uint32 // root's inline array: allocation-table pages (legacy,
	// wide fatlevel 1) or data pages directly (wide fatlevel 0)

	// monotonic is true for the free-space object (spec.md §4.3): its
	// physical backing (data pages and allocation-table pages) only ever
	// grows. Shrinking the logical length just lowers the used word
	// count; the already-allocated tail capacity is kept and reused by a
	// later grow instead of being returned through PageSource. This
	// avoids the free-space object ever calling back into the allocator
	// it implements while the allocator is itself mid-call into this
	// same object (spec.md's own open question about free-space
	// reclamation already flags this area as underspecified).
	monotonic bool
}

// Root returns the object's root page number.
func (o *Object) Root() uint32 { return o.root }

// Len returns the object's current logical byte length.
func (o *Object) Len() uint64 {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.lenBytes
}

// Version returns the committed version tuple as loaded when the object
// was opened or created. Mutations write the staged tuple to the root page
// but do not change what Version returns for this Object.
func (o *Object) Version() (v1, v2 uint32) {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.version.CommittedV1, o.version.CommittedV2
}

// Fatlevel reports the wide-format addressing level (0 or 1); always 0
// for legacy objects.
func (o *Object) Fatlevel() uint8 {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.fatlevel
}

func capacityFor(format Format, pageSize int, fatlevel uint8) int {
	switch format {
	case FormatLegacy:
		return layout.LegacyRootInlineCapacity(pageSize) * layout.LegacyAllocTableCapacity
	default:
		if fatlevel == 0 {
			return layout.WideFatlevel0Capacity(pageSize)
		}
		return layout.WideFatlevel1Capacity(pageSize)
	}
}

// Capacity returns the maximum byte length the object could grow to
// without further structural promotion (fatlevel bump for wide format).
func (o *Object) Capacity() uint64 {
	o.mu.Lock()
	defer o.mu.Unlock()
	return uint64(capacityFor(o.format, o.pageSize, o.fatlevel)) * uint64(o.pageSize)
}

// Open loads an existing object rooted at root.
func Open(cache *pagecache.Cache, source PageSource, root uint32, pageSize int, format Format, kind Kind, readOnly bool, log *onecdlog.Logger) (*Object, error) {
	if log == nil {
		log = onecdlog.Nop()
	}
	o := &Object{
		cache: cache, source: source, root: root, pageSize: pageSize,
		format: format, kind: kind, readOnly: readOnly, log: log,
		monotonic: kind == KindFree,
	}
	if err := o.loadRoot(); err != nil {
		return nil, err
	}
	return o, nil
}

// Create formats a brand-new root page (object length 0).
func Create(cache *pagecache.Cache, source PageSource, root uint32, pageSize int, format Format, kind Kind, log *onecdlog.Logger) (*Object, error) {
	if log == nil {
		log = onecdlog.Nop()
	}
	o := &Object{
		cache: cache, source: source, root: root, pageSize: pageSize,
		format: format, kind: kind, log: log,
		monotonic: kind == KindFree,
	}
	buf, err := cache.GetForWrite(root, false)
	if err != nil {
		return nil, err
	}
	for i := range buf {
		buf[i] = 0
	}
	o.writeRootStatic(buf)
	return o, nil
}

func (o *Object) loadRoot() error {
	buf, err := o.cache.Get(o.root)
	if err != nil {
		return err
	}
	switch o.format {
	case FormatLegacy:
		return o.loadRootLegacy(buf)
	default:
		return o.loadRootWide(buf)
	}
}

// writeRootStatic writes the signature/marker bytes for a freshly created
// root page; field values (version/length/blocks) stay zero until the
// first mutation.
func (o *Object) writeRootStatic(buf []byte) {
	switch o.format {
	case FormatLegacy:
		copy(buf[0:8], layout.SignatureLegacyObject[:])
	default:
		if o.kind == KindFree {
			copy(buf[0:2], layout.MarkerWideFree[:])
		} else {
			copy(buf[0:2], layout.MarkerWideData[:])
		}
	}
}

// touchVersion records a mutation against the version tuple (bumping
// staged_v1 on the first call this session, staged_v2 on every call after)
// and writes the now-current tuple back into the already-dirty root
// buffer.
func (o *Object) touchVersion(rootBuf []byte) {
	o.version.Touch()
	o.writeVersion(rootBuf)
}

// Read copies n=len(into) bytes starting at off. Fails OutOfBounds if the
// read runs past Len().
func (o *Object) Read(off int64, into []byte) error {
	o.mu.Lock()
	defer o.mu.Unlock()
	if off < 0 || uint64(off)+uint64(len(into)) > o.lenBytes {
		return onecderr.New(onecderr.OutOfBounds, "object.Read",
			onecderr.D("offset", off), onecderr.D("len", len(into)), onecderr.D("objectLen", o.lenBytes))
	}
	spans, err := o.translate(off, len(into))
	if err != nil {
		return err
	}
	pos := 0
	for _, sp := range spans {
		buf, err := o.cache.Get(sp.page)
		if err != nil {
			return err
		}
		n := copy(into[pos:pos+sp.length], buf[sp.offset:sp.offset+sp.length])
		pos += n
	}
	return nil
}

// Write writes bytes at off, growing the object first if necessary.
func (o *Object) Write(off int64, data []byte) error {
	if o.readOnly {
		return onecderr.New(onecderr.ReadOnly, "object.Write")
	}
	o.mu.Lock()
	defer o.mu.Unlock()
	need := uint64(off) + uint64(len(data))
	if need > o.lenBytes {
		if err := o.resizeLocked(need); err != nil {
			return err
		}
	}
	spans, err := o.translate(off, len(data))
	if err != nil {
		return err
	}
	pos := 0
	for _, sp := range spans {
		fullOverwrite := sp.offset == 0 && sp.length == o.pageSize
		buf, err := o.cache.GetForWrite(sp.page, !fullOverwrite)
		if err != nil {
			return err
		}
		n := copy(buf[sp.offset:sp.offset+sp.length], data[pos:pos+sp.length])
		pos += n
	}
	rootBuf, err := o.cache.GetForWrite(o.root, true)
	if err != nil {
		return err
	}
	o.touchVersion(rootBuf)
	return nil
}

// Resize changes the object's logical length, growing or shrinking the
// backing pages as needed (spec.md §4.4).
func (o *Object) Resize(newLen uint64) error {
	if o.readOnly {
		return onecderr.New(onecderr.ReadOnly, "object.Resize")
	}
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.resizeLocked(newLen)
}

func (o *Object) resizeLocked(newLen uint64) error {
	if newLen == o.lenBytes {
		return nil
	}
	if newLen > uint64(capacityFor(o.format, o.pageSize, o.fatlevel))*uint64(o.pageSize) {
		if o.format != FormatWide || o.fatlevel != 0 {
			return onecderr.New(onecderr.CorruptObject, "object.Resize",
				onecderr.D("newLen", newLen), onecderr.D("capacity", uint64(capacityFor(o.format, o.pageSize, o.fatlevel))*uint64(o.pageSize)))
		}
	}
	var err error
	if o.monotonic && newLen < o.lenBytes {
		// The free-space object's own backing pages are never released
		// through its own shrink path (see the monotonic field doc);
		// only the logical length changes, and the already-allocated
		// tail capacity is reused on the next grow.
		o.lenBytes = newLen
	} else if o.format == FormatLegacy {
		err = o.resizeLegacy(newLen)
	} else {
		err = o.resizeWide(newLen)
	}
	if err != nil {
		return err
	}
	rootBuf, gerr := o.cache.GetForWrite(o.root, true)
	if gerr != nil {
		return gerr
	}
	o.touchVersion(rootBuf)
	o.writeLen(rootBuf)
	return nil
}

// SaveTo streams the object's full logical content to w.
func (o *Object) SaveTo(w io.Writer) error {
	o.mu.Lock()
	total := o.lenBytes
	o.mu.Unlock()
	const chunk = 64 * 1024
	buf := make([]byte, chunk)
	for off := uint64(0); off < total; {
		n := uint64(chunk)
		if total-off < n {
			n = total - off
		}
		if err := o.Read(int64(off), buf[:n]); err != nil {
			return err
		}
		if _, err := w.Write(buf[:n]); err != nil {
			return onecderr.Wrap(onecderr.IoError, "object.SaveTo", err)
		}
		off += n
	}
	return nil
}

type span struct {
	page   uint32
	offset int
	length int
}

func numBlocks(length uint64, pageSize int) int {
	return int((length + uint64(pageSize) - 1) / uint64(pageSize))
}
