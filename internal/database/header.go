package database

import (
	"github.com/onecd-go/onecd/internal/blockdevice"
	"github.com/onecd-go/onecd/internal/layout"
	"github.com/onecd-go/onecd/internal/onecderr"
)

// header is the decoded container header (page 0, spec.md §3).
type header struct {
	version  layout.FormatVersion
	length   uint32 // total page count
	pageSize int
}

// readHeader reads and validates the container header directly off the
// device (before any page cache exists, since the cache itself needs the
// page size this header supplies).
func readHeader(device *blockdevice.Device) (header, error) {
	// The header's own fixed fields fit well within the smallest
	// supported page size; read that much first regardless of format.
	buf := make([]byte, layout.DefaultPageSize)
	if err := device.Read(0, buf); err != nil {
		return header{}, onecderr.Wrap(onecderr.CorruptHeader, "database.readHeader", err)
	}
	var sig [8]byte
	copy(sig[:], buf[layout.HeaderOffSignature:layout.HeaderOffSignature+8])
	if sig != layout.SignatureContainer {
		return header{}, onecderr.New(onecderr.CorruptHeader, "database.readHeader",
			onecderr.D("reason", "signature mismatch"))
	}
	version := layout.ParseFormatVersion(layout.U32(buf[layout.HeaderOffVersion:]))
	if version == layout.FormatUnknown {
		return header{}, onecderr.New(onecderr.Unavailable, "database.readHeader",
			onecderr.D("reason", "unrecognized format version tag"))
	}
	length := layout.U32(buf[layout.HeaderOffLength:])
	pageSize := layout.DefaultPageSize
	if version.IsWide() {
		pageSize = int(layout.U32(buf[layout.HeaderOffPageSize:]))
		if pageSize <= 0 {
			return header{}, onecderr.New(onecderr.CorruptHeader, "database.readHeader",
				onecderr.D("reason", "invalid page size"))
		}
	}
	size, err := device.Size()
	if err != nil {
		return header{}, err
	}
	if size%int64(pageSize) != 0 {
		return header{}, onecderr.New(onecderr.CorruptHeader, "database.readHeader",
			onecderr.D("reason", "file size not a multiple of page size"),
			onecderr.D("fileSize", size), onecderr.D("pageSize", pageSize))
	}
	if size != int64(length)*int64(pageSize) {
		return header{}, onecderr.New(onecderr.CorruptHeader, "database.readHeader",
			onecderr.D("reason", "file size disagrees with header length"),
			onecderr.D("fileSize", size), onecderr.D("headerLength", length), onecderr.D("pageSize", pageSize))
	}
	return header{version: version, length: length, pageSize: pageSize}, nil
}

// writeHeader formats a brand-new container header for a freshly created
// file of the given length (in pages).
func writeHeader(device *blockdevice.Device, version layout.FormatVersion, pageSize int, length uint32) error {
	buf := make([]byte, pageSize)
	copy(buf[layout.HeaderOffSignature:], layout.SignatureContainer[:])
	layout.PutU32(buf[layout.HeaderOffVersion:], uint32(version))
	layout.PutU32(buf[layout.HeaderOffLength:], length)
	if version.IsWide() {
		layout.PutU32(buf[layout.HeaderOffPageSize:], uint32(pageSize))
	}
	return device.Write(0, buf)
}
