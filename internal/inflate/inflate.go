// Package inflate is the deflate/inflate collaborator (spec.md §6),
// used opportunistically on table-file catalog BLOB payloads that carry
// a compressed nested container (spec.md §4.6).
package inflate

import (
	"bytes"
	"io"

	"github.com/klauspost/compress/flate"

	"github.com/onecd-go/onecd/internal/onecderr"
)

// Inflate decompresses a raw deflate stream (no zlib/gzip wrapper,
// matching the container format's convention).
func Inflate(src []byte) ([]byte, error) {
	r := flate.NewReader(bytes.NewReader(src))
	defer r.Close()
	out, err := io.ReadAll(r)
	if err != nil {
		return nil, onecderr.Wrap(onecderr.CorruptRecord, "inflate.Inflate", err)
	}
	return out, nil
}

// Deflate compresses src at the default compression level.
func Deflate(src []byte) ([]byte, error) {
	var buf bytes.Buffer
	w, err := flate.NewWriter(&buf, flate.DefaultCompression)
	if err != nil {
		return nil, onecderr.Wrap(onecderr.IoError, "inflate.Deflate", err)
	}
	if _, err := w.Write(src); err != nil {
		return nil, onecderr.Wrap(onecderr.IoError, "inflate.Deflate", err)
	}
	if err := w.Close(); err != nil {
		return nil, onecderr.Wrap(onecderr.IoError, "inflate.Deflate", err)
	}
	return buf.Bytes(), nil
}
