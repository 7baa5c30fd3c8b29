package object

import (
	"github.com/onecd-go/onecd/internal/layout"
	"github.com/onecd-go/onecd/internal/onecderr"
)

func (o *Object) loadRootWide(buf []byte) error {
	want := layout.MarkerWideData
	if o.kind == KindFree {
		want = layout.MarkerWideFree
	}
	if buf[0] != want[0] || buf[1] != want[1] {
		return onecderr.New(onecderr.CorruptHeader, "object.loadRootWide", onecderr.D("root", o.root))
	}
	o.fatlevel = buf[wideOffFatlevel]
	o.lenBytes = layout.U64(buf[wideOffLen:])
	o.version = layout.VersionTuple{
		CommittedV1: layout.U32(buf[wideOffV1:]),
		CommittedV2: layout.U32(buf[wideOffV2:]),
	}

	nblocks := numBlocks(o.lenBytes, o.pageSize)
	var count int
	if o.fatlevel == 0 {
		count = nblocks
		if count > layout.WideFatlevel0Capacity(o.pageSize) {
			return onecderr.New(onecderr.CorruptObject, "object.loadRootWide",
				onecderr.D("root", o.root), onecderr.D("reason", "fatlevel 0 block count exceeds capacity"))
		}
	} else {
		tableCap := layout.WideAllocTableCapacity(o.pageSize)
		count = (nblocks + tableCap - 1) / tableCap
		if count > layout.WideFatlevel0Capacity(o.pageSize) {
			return onecderr.New(onecderr.CorruptObject, "object.loadRootWide",
				onecderr.D("root", o.root), onecderr.D("reason", "fatlevel 1 table count exceeds root capacity"))
		}
	}
	o.blocks = make([]uint32, count)
	for i := 0; i < count; i++ {
		o.blocks[i] = layout.U32(buf[wideOffBlocks+i*4:])
	}
	return nil
}

func (o *Object) writeRootBlocksWide(rootBuf []byte) {
	for i, b := range o.blocks {
		layout.PutU32(rootBuf[wideOffBlocks+i*4:], b)
	}
}

func (o *Object) translateWide(off int64, n int) ([]span, error) {
	var spans []span
	for n > 0 {
		dataBlock := off / int64(o.pageSize)
		offInPage := int(off % int64(o.pageSize))
		var dataPage uint32
		if o.fatlevel == 0 {
			if int(dataBlock) >= len(o.blocks) {
				return nil, onecderr.New(onecderr.OutOfBounds, "object.translateWide", onecderr.D("dataBlock", dataBlock))
			}
			dataPage = o.blocks[dataBlock]
		} else {
			tableCap := layout.WideAllocTableCapacity(o.pageSize)
			allocIdx := int(dataBlock) / tableCap
			posInTable := int(dataBlock) % tableCap
			if allocIdx >= len(o.blocks) {
				return nil, onecderr.New(onecderr.OutOfBounds, "object.translateWide", onecderr.D("dataBlock", dataBlock))
			}
			tableBuf, err := o.cache.Get(o.blocks[allocIdx])
			if err != nil {
				return nil, err
			}
			dataPage = layout.U32(tableBuf[posInTable*4:])
		}
		spanLen := o.pageSize - offInPage
		if spanLen > n {
			spanLen = n
		}
		spans = append(spans, span{page: dataPage, offset: offInPage, length: spanLen})
		off += int64(spanLen)
		n -= spanLen
	}
	return spans, nil
}

func (o *Object) resizeWide(newLen uint64) error {
	if newLen > o.lenBytes {
		return o.growWide(newLen)
	}
	return o.shrinkWide(newLen)
}

// promote converts a fatlevel-0 object to fatlevel 1: the current inline
// data-page list is copied into a single freshly allocated allocation
// table page, which becomes the sole entry of the (now fatlevel-1) root
// block list (spec.md §4.4 "wide fatlevel promotion").
func (o *Object) promote() error {
	tablePage, err := o.source.NewPage()
	if err != nil {
		return err
	}
	tableBuf, err := o.cache.GetForWrite(tablePage, false)
	if err != nil {
		return err
	}
	for k := range tableBuf {
		tableBuf[k] = 0
	}
	for i, dataPage := range o.blocks {
		layout.PutU32(tableBuf[i*4:], dataPage)
	}
	o.blocks = []uint32{tablePage}
	o.fatlevel = 1
	return nil
}

// demote is the inverse of promote: used when a shrink leaves all
// remaining data pages addressable through a single allocation table
// whose entries fit back inline in the root.
func (o *Object) demote() error {
	tableBuf, err := o.cache.Get(o.blocks[0])
	if err != nil {
		return err
	}
	nblocks := numBlocks(o.lenBytes, o.pageSize)
	direct := make([]uint32, nblocks)
	for i := 0; i < nblocks; i++ {
		direct[i] = layout.U32(tableBuf[i*4:])
	}
	if err := o.source.FreePage(o.blocks[0]); err != nil {
		return err
	}
	o.blocks = direct
	o.fatlevel = 0
	return nil
}

func (o *Object) growWide(newLen uint64) error {
	newBlocks := numBlocks(newLen, o.pageSize)
	if o.fatlevel == 0 && newBlocks > layout.WideFatlevel0Capacity(o.pageSize) {
		if err := o.promote(); err != nil {
			return err
		}
	}
	oldBlocks := numBlocks(o.lenBytes, o.pageSize)
	tableCap := layout.WideAllocTableCapacity(o.pageSize)
	rootCap := layout.WideFatlevel0Capacity(o.pageSize)
	for i := oldBlocks; i < newBlocks; i++ {
		if o.fatlevel == 0 {
			if i < len(o.blocks) {
				// Already physically backed from before a logical
				// shrink (free-space object capacity reuse).
				continue
			}
			dataPage, err := o.source.NewPage()
			if err != nil {
				return err
			}
			o.blocks = append(o.blocks, dataPage)
			continue
		}
		allocIdx := i / tableCap
		posInTable := i % tableCap
		if allocIdx >= len(o.blocks) {
			if allocIdx >= rootCap {
				return onecderr.New(onecderr.CorruptObject, "object.growWide",
					onecderr.D("allocIdx", allocIdx), onecderr.D("capacity", rootCap))
			}
			tablePage, terr := o.source.NewPage()
			if terr != nil {
				return terr
			}
			tableBuf, terr := o.cache.GetForWrite(tablePage, false)
			if terr != nil {
				return terr
			}
			for k := range tableBuf {
				tableBuf[k] = 0
			}
			o.blocks = append(o.blocks, tablePage)
		}
		tableBuf, terr := o.cache.GetForWrite(o.blocks[allocIdx], true)
		if terr != nil {
			return terr
		}
		if layout.U32(tableBuf[posInTable*4:]) != 0 {
			// Already physically backed; page number 0 is never handed
			// out by the allocator, so a nonzero entry here always means
			// a live page from before a logical shrink.
			continue
		}
		dataPage, err := o.source.NewPage()
		if err != nil {
			return err
		}
		layout.PutU32(tableBuf[posInTable*4:], dataPage)
	}
	o.lenBytes = newLen
	rootBuf, err := o.cache.GetForWrite(o.root, true)
	if err != nil {
		return err
	}
	o.writeRootBlocksWide(rootBuf)
	return nil
}

func (o *Object) shrinkWide(newLen uint64) error {
	oldBlocks := numBlocks(o.lenBytes, o.pageSize)
	newBlocks := numBlocks(newLen, o.pageSize)
	tableCap := layout.WideAllocTableCapacity(o.pageSize)
	for i := oldBlocks - 1; i >= newBlocks; i-- {
		if o.fatlevel == 0 {
			dataPage := o.blocks[i]
			if err := o.source.FreePage(dataPage); err != nil {
				return err
			}
			o.blocks = o.blocks[:i]
			continue
		}
		allocIdx := i / tableCap
		posInTable := i % tableCap
		tableBuf, err := o.cache.GetForWrite(o.blocks[allocIdx], true)
		if err != nil {
			return err
		}
		dataPage := layout.U32(tableBuf[posInTable*4:])
		if err := o.source.FreePage(dataPage); err != nil {
			return err
		}
		layout.PutU32(tableBuf[posInTable*4:], 0)
		if posInTable == 0 {
			if err := o.source.FreePage(o.blocks[allocIdx]); err != nil {
				return err
			}
			o.blocks = o.blocks[:allocIdx]
		}
	}
	o.lenBytes = newLen
	if o.fatlevel == 1 && newBlocks <= layout.WideFatlevel0Capacity(o.pageSize) && len(o.blocks) <= 1 {
		if len(o.blocks) == 1 {
			if err := o.demote(); err != nil {
				return err
			}
		} else {
			o.fatlevel = 0
		}
	}
	rootBuf, err := o.cache.GetForWrite(o.root, true)
	if err != nil {
		return err
	}
	o.writeRootBlocksWide(rootBuf)
	return nil
}
