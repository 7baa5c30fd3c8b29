// Package layout holds the binary constants and small codecs shared by the
// block device, page cache, object and table layers: page signatures,
// format version tags, page-size rules and the version-tuple encoding from
// spec.md §3. Grounded on the fixed-width field codec style of
// server/innodb/storage/store/pages/page.go (FileHeader, ConvertUInt4Bytes
// style helpers) and on server/innodb/util/byte_util.go.
package layout

import (
	"encoding/binary"
	"time"
)

// Page numbers fixed by spec.md §3.
const (
	PageContainerHeader = 0
	PageFreeSpaceRoot   = 1
	PageRootObject      = 2
)

// DefaultPageSize is used by every format through 8.2.14.0. 8.3.8.0+ reads
// its page size from the container header instead.
const DefaultPageSize = 4096

// Signatures, spec.md §6. Endianness throughout the format is little.
var (
	SignatureContainer    = [8]byte{'1', 'C', 'D', 'B', 'M', 'S', 'V', '8'}
	SignatureLegacyObject = [8]byte{'1', 'C', 'D', 'B', 'O', 'B', 'V', '8'}
	MarkerWideData        = [2]byte{0x1C, 0xFD}
	MarkerWideFree        = [2]byte{0x1C, 0xFF}
	SignatureDescriptor   = [4]byte{0xFD, 0xFE, 0xFF, 0xFF}
)

// FormatVersion enumerates the six supported on-disk format tags (spec.md
// §1). The exact 4-byte tag values are not externally documented; this
// assigns one sequential tag per supported version and fails open on any
// other value, matching spec.md's "unrecognized tags fail open" rule.
type FormatVersion uint32

const (
	FormatUnknown FormatVersion = iota
	Format8_0_3_0
	Format8_0_5_0
	Format8_1_0_0
	Format8_2_0_0
	Format8_2_14_0
	Format8_3_8_0
)

func (v FormatVersion) String() string {
	switch v {
	case Format8_0_3_0:
		return "8.0.3.0"
	case Format8_0_5_0:
		return "8.0.5.0"
	case Format8_1_0_0:
		return "8.1.0.0"
	case Format8_2_0_0:
		return "8.2.0.0"
	case Format8_2_14_0:
		return "8.2.14.0"
	case Format8_3_8_0:
		return "8.3.8.0"
	default:
		return "unknown"
	}
}

// IsWide reports whether this format uses the wide (>=8.3.8) object
// encoding instead of the legacy one.
func (v FormatVersion) IsWide() bool { return v == Format8_3_8_0 }

// Supported lists every format tag this engine accepts, in the order
// given by spec.md §1.
var Supported = []FormatVersion{
	Format8_0_3_0, Format8_0_5_0, Format8_1_0_0,
	Format8_2_0_0, Format8_2_14_0, Format8_3_8_0,
}

// ParseFormatVersion maps a raw on-disk tag to a FormatVersion, returning
// FormatUnknown for anything not in Supported.
func ParseFormatVersion(tag uint32) FormatVersion {
	v := FormatVersion(tag)
	for _, s := range Supported {
		if s == v {
			return v
		}
	}
	return FormatUnknown
}

// --- Container header (page 0), spec.md §3 ---

const (
	HeaderOffSignature = 0
	HeaderOffVersion   = 8
	HeaderOffLength    = 12
	HeaderOffPageSize  = 16 // only meaningful for Format8_3_8_0+
)

// --- Legacy allocation-table geometry (spec.md §4.4) ---

// LegacyAllocTableCapacity is how many data-page numbers a single legacy
// allocation-table page holds: a 4-byte count followed by that many
// 4-byte page numbers, filling exactly one 4096-byte page.
const LegacyAllocTableCapacity = 1023

// LegacyRootHeaderSize is signature(8) + version tuple(24) + byte
// length(4) preceding a legacy object root's inline allocation-table
// array.
const LegacyRootHeaderSize = 8 + 24 + 4

// LegacyRootInlineCapacity is how many allocation-table page numbers fit
// in the remainder of a legacy object root page. It is bounded above by
// LegacyAllocTableCapacity per spec.md's "up to 1023" (it comes out lower
// in practice once the header is accounted for).
func LegacyRootInlineCapacity(pageSize int) int {
	cap := (pageSize - LegacyRootHeaderSize) / 4
	if cap > LegacyAllocTableCapacity {
		cap = LegacyAllocTableCapacity
	}
	return cap
}

// --- Wide object geometry (spec.md §3, §4.4) ---

// WideRootHeaderSize is marker(2) + fatlevel(1) + reserved(1) + length(8)
// + version tuple(8, committed v1/v2 only) + reserved(4) = 24 bytes,
// chosen so that (pageSize/4 - WideRootHeaderSize/4) reproduces the
// "page_size/4 - 6" capacity spec.md §3 states for fatlevel 0.
const WideRootHeaderSize = 24

// WideFatlevel0Capacity is how many data pages a wide root addresses
// directly when fatlevel == 0.
func WideFatlevel0Capacity(pageSize int) int {
	return pageSize/4 - WideRootHeaderSize/4
}

// WideAllocTableCapacity is how many data-page numbers a fatlevel-1
// allocation-table page holds: the whole page, no header.
func WideAllocTableCapacity(pageSize int) int {
	return pageSize / 4
}

// WideFatlevel1Capacity is the total data-page capacity once promoted to
// fatlevel 1: (page_size/4) * (page_size/4 - 6).
func WideFatlevel1Capacity(pageSize int) int {
	return WideAllocTableCapacity(pageSize) * WideFatlevel0Capacity(pageSize)
}

// --- little-endian codecs, matching util.ConvertUInt4Bytes etc. ---

func PutU32(b []byte, v uint32) { binary.LittleEndian.PutUint32(b, v) }
func U32(b []byte) uint32       { return binary.LittleEndian.Uint32(b) }
func PutU64(b []byte, v uint64) { binary.LittleEndian.PutUint64(b, v) }
func U64(b []byte) uint64       { return binary.LittleEndian.Uint64(b) }
func PutU16(b []byte, v uint16) { binary.LittleEndian.PutUint16(b, v) }
func U16(b []byte) uint16       { return binary.LittleEndian.Uint16(b) }

// PackTimestamp encodes t into the 7-byte packed wall-clock format used by
// Date-typed fields (spec.md §4.6): a little-endian 2-byte year followed
// by month, day, hour, minute and second as single bytes.
func PackTimestamp(t time.Time) [7]byte {
	var b [7]byte
	PutU16(b[0:2], uint16(t.Year()))
	b[2] = byte(t.Month())
	b[3] = byte(t.Day())
	b[4] = byte(t.Hour())
	b[5] = byte(t.Minute())
	b[6] = byte(t.Second())
	return b
}

// UnpackTimestamp is the inverse of PackTimestamp, decoding to local wall
// clock time (spec.md §4.6 "decoded... to a local wall-clock value").
func UnpackTimestamp(b []byte) time.Time {
	year := int(U16(b[0:2]))
	return time.Date(year, time.Month(b[2]), int(b[3]), int(b[4]), int(b[5]), int(b[6]), 0, time.Local)
}

// VersionTuple is the on-disk paired change-detection counters, spec.md
// §3 "Version tuple". Committed* is the value read from the root page;
// Staged* is bumped in memory on first mutation within a session and is
// what gets written back to the root page, so it is read as Committed* the
// next time the object is opened (matching spec.md:
// "On the first mutation of a committed object, the root page's
// committed_v1 is bumped by one ... subsequent mutations within the same
// session bump staged_v2").
type VersionTuple struct {
	CommittedV1 uint32
	CommittedV2 uint32
	StagedV1    uint32
	StagedV2    uint32
	touched     bool
}

// Touch records the first mutation of a session against this object,
// bumping the in-memory staged counter. Returns true the first time it is
// called for this tuple (the caller should then write CommittedV1+1 back
// to the root page), false on subsequent calls within the same session
// (the caller bumps StagedV2 instead).
func (vt *VersionTuple) Touch() (firstMutation bool) {
	if !vt.touched {
		vt.touched = true
		vt.StagedV1 = vt.CommittedV1 + 1
		vt.StagedV2 = vt.CommittedV2
		return true
	}
	vt.StagedV2++
	return false
}

// Commit folds the staged counters into the committed ones in memory; it
// writes nothing to any page.
func (vt *VersionTuple) Commit() {
	if vt.touched {
		vt.CommittedV1 = vt.StagedV1
		vt.CommittedV2 = vt.StagedV2
	}
}
