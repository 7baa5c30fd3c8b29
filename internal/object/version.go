package object

import "github.com/onecd-go/onecd/internal/layout"

// Legacy root field offsets (spec.md §4.4): signature(8) | v1(4) |
// v1copy(4) | v2(4) | v2copy(4) | reserved(8) | length(4) | blocks...
const (
	legacyOffV1     = 8
	legacyOffV1Copy = 12
	legacyOffV2     = 16
	legacyOffV2Copy = 20
	legacyOffLen    = 32
	legacyOffBlocks = layout.LegacyRootHeaderSize
)

// Wide root field offsets: marker(2) | fatlevel(1) | reserved(1) |
// length(8) | v1(4) | v2(4) | reserved(4) | blocks...
const (
	wideOffFatlevel = 2
	wideOffLen      = 4
	wideOffV1       = 12
	wideOffV2       = 16
	wideOffBlocks   = layout.WideRootHeaderSize
)

func (o *Object) writeVersion(rootBuf []byte) {
	switch o.format {
	case FormatLegacy:
		layout.PutU32(rootBuf[legacyOffV1:], o.version.StagedV1)
		layout.PutU32(rootBuf[legacyOffV1Copy:], o.version.StagedV1)
		layout.PutU32(rootBuf[legacyOffV2:], o.version.StagedV2)
		layout.PutU32(rootBuf[legacyOffV2Copy:], o.version.StagedV2)
	default:
		layout.PutU32(rootBuf[wideOffV1:], o.version.StagedV1)
		layout.PutU32(rootBuf[wideOffV2:], o.version.StagedV2)
	}
}

func (o *Object) writeLen(rootBuf []byte) {
	switch o.format {
	case FormatLegacy:
		layout.PutU32(rootBuf[legacyOffLen:], uint32(o.legacyOnDiskLen()))
	default:
		layout.PutU64(rootBuf[wideOffLen:], o.lenBytes)
		rootBuf[wideOffFatlevel] = o.fatlevel
	}
}

// legacyOnDiskLen converts the in-memory byte length to whatever unit the
// legacy root's length field actually holds: words for the free-space
// object, bytes for every other object (spec.md §3 — "free-space object
// length is expressed in 32-bit words"). o.lenBytes itself always stays a
// byte count so the rest of the object machinery (Len, Read, Write,
// translateLegacy) never has to special-case units.
func (o *Object) legacyOnDiskLen() uint64 {
	if o.kind == KindFree {
		return o.lenBytes / 4
	}
	return o.lenBytes
}

// translate dispatches to the format-specific address translator.
func (o *Object) translate(off int64, n int) ([]span, error) {
	if o.format == FormatLegacy {
		return o.translateLegacy(off, n)
	}
	return o.translateWide(off, n)
}
