package database

import (
	"golang.org/x/text/encoding/charmap"

	"github.com/onecd-go/onecd/internal/layout"
	"github.com/onecd-go/onecd/internal/object"
	"github.com/onecd-go/onecd/internal/table"
	"github.com/onecd-go/onecd/internal/textenc"
)

// readEmbeddedText decodes the textual payload an object carries under
// spec.md §4.5 step 1 / §4.7 step 5: for legacy formats the object's own
// byte stream holds the text directly; for wide formats (>= 8.3.8) the
// object's first 8 bytes are a (blob_start u32, blob_length u32) locator
// and the text itself lives in BLOB #1, chained directly within the same
// object's byte space starting at offset 8 (reusing table.ReadChain, the
// same 256-byte chained-record shape the table BLOB heap uses).
func readEmbeddedText(obj *object.Object, wide bool) (string, error) {
	var raw []byte
	if wide {
		locator := make([]byte, 8)
		if err := obj.Read(0, locator); err != nil {
			return "", err
		}
		start := layout.U32(locator[0:4])
		length := layout.U32(locator[4:8])
		b, err := table.ReadChain(obj, start, length, 8)
		if err != nil {
			return "", err
		}
		raw = b
	} else {
		raw = make([]byte, obj.Len())
		if err := obj.Read(0, raw); err != nil {
			return "", err
		}
	}
	enc, bomLen := textenc.Detect(raw)
	return textenc.ToUTF8(raw, bomLen, enc)
}

// writeEmbeddedText is the inverse of readEmbeddedText, used when
// composing a new descriptor on import (spec.md §4.5 "Import/Export").
// Text is always written as plain CP1251-compatible bytes with no BOM
// (matching what Detect treats as the default encoding on read-back).
func writeEmbeddedText(obj *object.Object, wide bool, text string) error {
	encoded, err := charmap.Windows1251.NewEncoder().String(text)
	if err != nil {
		return err
	}
	raw := []byte(encoded)
	if !wide {
		return obj.Write(0, raw)
	}
	start, err := writeChainInto(obj, raw, 8)
	if err != nil {
		return err
	}
	locator := make([]byte, 8)
	layout.PutU32(locator[0:4], start)
	layout.PutU32(locator[4:8], uint32(len(raw)))
	return obj.Write(0, locator)
}

// writeChainInto lays data out as a fresh sequential chain of 256-byte
// slots (the same shape table.ReadChain understands) starting at slot 1
// within obj, base bytes past the object's own fixed header. Unlike the
// table BLOB heap this has no free list: it is only ever used to
// (re)write a whole descriptor or root record from scratch.
func writeChainInto(obj *object.Object, data []byte, base int64) (uint32, error) {
	const slotSize = 256
	const hdrSize = 6
	const maxPayload = slotSize - hdrSize
	if len(data) == 0 {
		return 0, nil
	}
	nslots := (len(data) + maxPayload - 1) / maxPayload
	needed := uint64(base) + uint64(nslots+1)*slotSize
	if obj.Len() < needed {
		if err := obj.Resize(needed); err != nil {
			return 0, err
		}
	}
	for i := 0; i < nslots; i++ {
		start := i * maxPayload
		end := start + maxPayload
		if end > len(data) {
			end = len(data)
		}
		chunk := data[start:end]
		next := uint32(0)
		if i+1 < nslots {
			next = uint32(i + 2)
		}
		hdr := make([]byte, hdrSize)
		layout.PutU32(hdr[0:4], next)
		layout.PutU16(hdr[4:6], uint16(len(chunk)))
		off := base + int64(i+1)*slotSize
		if err := obj.Write(off, hdr); err != nil {
			return 0, err
		}
		if len(chunk) > 0 {
			if err := obj.Write(off+hdrSize, chunk); err != nil {
				return 0, err
			}
		}
	}
	return 1, nil
}
