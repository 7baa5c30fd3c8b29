package object

import (
	"github.com/onecd-go/onecd/internal/layout"
	"github.com/onecd-go/onecd/internal/onecderr"
)

func (o *Object) loadRootLegacy(buf []byte) error {
	if string(buf[0:8]) != string(layout.SignatureLegacyObject[:]) {
		return onecderr.New(onecderr.CorruptHeader, "object.loadRootLegacy",
			onecderr.D("root", o.root))
	}
	v1, v1c := layout.U32(buf[legacyOffV1:]), layout.U32(buf[legacyOffV1Copy:])
	v2, v2c := layout.U32(buf[legacyOffV2:]), layout.U32(buf[legacyOffV2Copy:])
	if v1 != v1c || v2 != v2c {
		return onecderr.New(onecderr.CorruptHeader, "object.loadRootLegacy",
			onecderr.D("root", o.root), onecderr.D("reason", "version tuple copy mismatch"))
	}
	o.version = layout.VersionTuple{CommittedV1: v1, CommittedV2: v2}
	onDiskLen := uint64(layout.U32(buf[legacyOffLen:]))
	if o.kind == KindFree {
		onDiskLen *= 4
	}
	o.lenBytes = onDiskLen

	cap := layout.LegacyRootInlineCapacity(o.pageSize)
	nblocks := numBlocks(o.lenBytes, o.pageSize)
	ntables := (nblocks + layout.LegacyAllocTableCapacity - 1) / layout.LegacyAllocTableCapacity
	if ntables > cap {
		return onecderr.New(onecderr.CorruptObject, "object.loadRootLegacy",
			onecderr.D("root", o.root), onecderr.D("tablesNeeded", ntables), onecderr.D("capacity", cap))
	}
	o.blocks = make([]uint32, ntables)
	for i := 0; i < ntables; i++ {
		o.blocks[i] = layout.U32(buf[legacyOffBlocks+i*4:])
	}
	return nil
}

func (o *Object) writeRootBlocksLegacy(rootBuf []byte) {
	for i, b := range o.blocks {
		layout.PutU32(rootBuf[legacyOffBlocks+i*4:], b)
	}
}

func (o *Object) translateLegacy(off int64, n int) ([]span, error) {
	var spans []span
	for n > 0 {
		dataBlock := off / int64(o.pageSize)
		offInPage := int(off % int64(o.pageSize))
		allocIdx := int(dataBlock / layout.LegacyAllocTableCapacity)
		posInTable := int(dataBlock % layout.LegacyAllocTableCapacity)
		if allocIdx >= len(o.blocks) {
			return nil, onecderr.New(onecderr.OutOfBounds, "object.translateLegacy",
				onecderr.D("dataBlock", dataBlock))
		}
		tableBuf, err := o.cache.Get(o.blocks[allocIdx])
		if err != nil {
			return nil, err
		}
		count := int(layout.U32(tableBuf[0:4]))
		if posInTable >= count {
			return nil, onecderr.New(onecderr.CorruptObject, "object.translateLegacy",
				onecderr.D("posInTable", posInTable), onecderr.D("count", count))
		}
		dataPage := layout.U32(tableBuf[4+posInTable*4:])
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

func (o *Object) resizeLegacy(newLen uint64) error {
	if newLen > o.lenBytes {
		return o.growLegacy(newLen)
	}
	return o.shrinkLegacy(newLen)
}

func (o *Object) growLegacy(newLen uint64) error {
	oldBlocks := numBlocks(o.lenBytes, o.pageSize)
	newBlocks := numBlocks(newLen, o.pageSize)
	cap := layout.LegacyRootInlineCapacity(o.pageSize)
	for i := oldBlocks; i < newBlocks; i++ {
		allocIdx := i / layout.LegacyAllocTableCapacity
		posInTable := i % layout.LegacyAllocTableCapacity
		if allocIdx >= len(o.blocks) {
			if allocIdx >= cap {
				return onecderr.New(onecderr.CorruptObject, "object.growLegacy",
					onecderr.D("allocIdx", allocIdx), onecderr.D("capacity", cap))
			}
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
			o.blocks = append(o.blocks, tablePage)
		}
		tablePage := o.blocks[allocIdx]
		tableBuf, err := o.cache.GetForWrite(tablePage, true)
		if err != nil {
			return err
		}
		count := layout.U32(tableBuf[0:4])
		if posInTable < int(count) {
			// Slot already physically backed (a monotonic object's
			// capacity from before a logical shrink); nothing to do.
			continue
		}
		dataPage, err := o.source.NewPage()
		if err != nil {
			return err
		}
		layout.PutU32(tableBuf[4+posInTable*4:], dataPage)
		layout.PutU32(tableBuf[0:4], count+1)
	}
	o.lenBytes = newLen
	rootBuf, err := o.cache.GetForWrite(o.root, true)
	if err != nil {
		return err
	}
	o.writeRootBlocksLegacy(rootBuf)
	return nil
}

func (o *Object) shrinkLegacy(newLen uint64) error {
	oldBlocks := numBlocks(o.lenBytes, o.pageSize)
	newBlocks := numBlocks(newLen, o.pageSize)
	for i := oldBlocks - 1; i >= newBlocks; i-- {
		allocIdx := i / layout.LegacyAllocTableCapacity
		posInTable := i % layout.LegacyAllocTableCapacity
		tablePage := o.blocks[allocIdx]
		tableBuf, err := o.cache.GetForWrite(tablePage, true)
		if err != nil {
			return err
		}
		dataPage := layout.U32(tableBuf[4+posInTable*4:])
		if err := o.source.FreePage(dataPage); err != nil {
			return err
		}
		layout.PutU32(tableBuf[4+posInTable*4:], 0)
		count := layout.U32(tableBuf[0:4])
		layout.PutU32(tableBuf[0:4], count-1)
		if posInTable == 0 {
			if err := o.source.FreePage(tablePage); err != nil {
				return err
			}
			o.blocks = o.blocks[:allocIdx]
		}
	}
	o.lenBytes = newLen
	rootBuf, err := o.cache.GetForWrite(o.root, true)
	if err != nil {
		return err
	}
	o.writeRootBlocksLegacy(rootBuf)
	return nil
}
