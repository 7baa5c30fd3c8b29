package table

import (
	"github.com/onecd-go/onecd/internal/layout"
	"github.com/onecd-go/onecd/internal/object"
	"github.com/onecd-go/onecd/internal/onecderr"
)

// blobSlotSize, blobHeaderSize and blobMaxPayload are the BLOB heap's
// fixed chained-record shape (spec.md §3 "BLOB encoding"): a 256-byte
// slot holding a 4-byte next-slot index, a 2-byte payload length (at
// most 250) and up to 250 bytes of payload.
const (
	blobSlotSize    = 256
	blobHeaderSize  = 6
	blobMaxPayload  = blobSlotSize - blobHeaderSize
	blobFreeListSlot = 0 // reserved: its next field threads the free list
)

// ReadChain walks a 256-byte chained record list starting at startSlot
// within obj, starting blobSlotSize*slot bytes past base, accumulating
// exactly length bytes. Used both for a table's own BLOB heap (base 0)
// and, by internal/database, for a wide-format descriptor or root
// record's self-contained text chain (spec.md §4.5 step 1, "wide: the
// descriptor is itself an object whose BLOB #1 holds the text" —
// modeled here as this same chain shape embedded past the owning
// object's small fixed locator header, base = that header's width).
func ReadChain(obj *object.Object, startSlot uint32, length uint32, base int64) ([]byte, error) {
	if startSlot == 0 {
		if length != 0 {
			return nil, onecderr.New(onecderr.CorruptBlob, "table.ReadChain",
				onecderr.D("reason", "zero start with nonzero length"), onecderr.D("length", length))
		}
		return []byte{}, nil
	}
	out := make([]byte, 0, length)
	slot := startSlot
	maxSlots := length/blobMaxPayload + 2
	var visited uint32
	for slot != 0 {
		visited++
		if visited > maxSlots {
			return nil, onecderr.New(onecderr.CorruptBlob, "table.ReadChain",
				onecderr.D("reason", "cycle suspected"), onecderr.D("slot", slot))
		}
		off := base + int64(slot)*blobSlotSize
		hdr := make([]byte, blobHeaderSize)
		if err := obj.Read(off, hdr); err != nil {
			return nil, onecderr.Wrap(onecderr.CorruptBlob, "table.ReadChain", err, onecderr.D("slot", slot))
		}
		next := layout.U32(hdr[0:4])
		dlen := layout.U16(hdr[4:6])
		if dlen > blobMaxPayload {
			return nil, onecderr.New(onecderr.CorruptBlob, "table.ReadChain",
				onecderr.D("slot", slot), onecderr.D("dataLength", dlen))
		}
		if dlen > 0 {
			payload := make([]byte, dlen)
			if err := obj.Read(off+blobHeaderSize, payload); err != nil {
				return nil, onecderr.Wrap(onecderr.CorruptBlob, "table.ReadChain", err, onecderr.D("slot", slot))
			}
			out = append(out, payload...)
		}
		if uint32(len(out)) > length+blobMaxPayload {
			return nil, onecderr.New(onecderr.CorruptBlob, "table.ReadChain",
				onecderr.D("reason", "accumulated exceeds declared length"),
				onecderr.D("accumulated", len(out)), onecderr.D("declared", length))
		}
		slot = next
	}
	if uint32(len(out)) != length {
		return nil, onecderr.New(onecderr.CorruptBlob, "table.ReadChain",
			onecderr.D("expected", length), onecderr.D("actual", len(out)))
	}
	return out, nil
}

// ReadBlob implements spec.md §4.5's read_blob over the table's own BLOB
// object.
func (t *Table) ReadBlob(start uint32, length uint32) ([]byte, error) {
	return ReadChain(t.Blob, start, length, 0)
}

func (t *Table) slotCount() uint32 {
	return uint32(t.Blob.Len() / blobSlotSize)
}

func (t *Table) ensureSlotZero() error {
	if t.slotCount() == 0 {
		if err := t.Blob.Resize(blobSlotSize); err != nil {
			return err
		}
	}
	return nil
}

func (t *Table) readSlotNext(slot uint32) (uint32, error) {
	hdr := make([]byte, 4)
	if err := t.Blob.Read(int64(slot)*blobSlotSize, hdr); err != nil {
		return 0, err
	}
	return layout.U32(hdr), nil
}

func (t *Table) writeSlotNext(slot uint32, next uint32) error {
	hdr := make([]byte, 4)
	layout.PutU32(hdr, next)
	return t.Blob.Write(int64(slot)*blobSlotSize, hdr)
}

// popFreeSlot removes and returns one slot index from the free list
// threaded through slot 0's next field, or 0 if the free list is empty.
func (t *Table) popFreeSlot() (uint32, error) {
	head, err := t.readSlotNext(blobFreeListSlot)
	if err != nil || head == 0 {
		return 0, err
	}
	next, err := t.readSlotNext(head)
	if err != nil {
		return 0, err
	}
	if err := t.writeSlotNext(blobFreeListSlot, next); err != nil {
		return 0, err
	}
	return head, nil
}

func (t *Table) pushFreeSlot(slot uint32) error {
	head, err := t.readSlotNext(blobFreeListSlot)
	if err != nil {
		return err
	}
	if err := t.writeSlotNext(slot, head); err != nil {
		return err
	}
	return t.writeSlotNext(blobFreeListSlot, slot)
}

func (t *Table) allocSlot() (uint32, error) {
	if err := t.ensureSlotZero(); err != nil {
		return 0, err
	}
	if slot, err := t.popFreeSlot(); err != nil {
		return 0, err
	} else if slot != 0 {
		return slot, nil
	}
	slot := t.slotCount()
	if err := t.Blob.Resize(uint64(slot+1) * blobSlotSize); err != nil {
		return 0, err
	}
	return slot, nil
}

// WriteBlob implements spec.md §4.5's write_blob: chains as many slots
// as needed (at most blobMaxPayload bytes each), preferring freed slots
// over growing the BLOB object, and returns the first slot index.
func (t *Table) WriteBlob(data []byte) (uint32, error) {
	if len(data) == 0 {
		return 0, nil
	}
	nslots := (len(data) + blobMaxPayload - 1) / blobMaxPayload
	slots := make([]uint32, nslots)
	for i := range slots {
		s, err := t.allocSlot()
		if err != nil {
			return 0, err
		}
		slots[i] = s
	}
	for i, slot := range slots {
		start := i * blobMaxPayload
		end := start + blobMaxPayload
		if end > len(data) {
			end = len(data)
		}
		chunk := data[start:end]
		next := uint32(0)
		if i+1 < len(slots) {
			next = slots[i+1]
		}
		hdr := make([]byte, blobHeaderSize)
		layout.PutU32(hdr[0:4], next)
		layout.PutU16(hdr[4:6], uint16(len(chunk)))
		if err := t.Blob.Write(int64(slot)*blobSlotSize, hdr); err != nil {
			return 0, err
		}
		if len(chunk) > 0 {
			if err := t.Blob.Write(int64(slot)*blobSlotSize+blobHeaderSize, chunk); err != nil {
				return 0, err
			}
		}
	}
	return slots[0], nil
}

// FreeBlob implements spec.md §4.5's free_blob: splices every slot of
// the chain rooted at start onto the free list.
func (t *Table) FreeBlob(start uint32) error {
	if start == 0 {
		return nil
	}
	var slots []uint32
	slot := start
	for slot != 0 {
		next, err := t.readSlotNext(slot)
		if err != nil {
			return err
		}
		slots = append(slots, slot)
		slot = next
	}
	for _, s := range slots {
		if err := t.pushFreeSlot(s); err != nil {
			return err
		}
	}
	return nil
}
