// Package textenc is the encoding-detection/transcoding collaborator
// (spec.md §6): descriptor text and table-file catalog names are stored
// in a platform encoding, predominantly CP1251 for the Cyrillic-market
// deployments this format originates from, with a UTF-16LE variant for
// formats that opt into a BOM.
package textenc

import (
	"unicode/utf16"

	"golang.org/x/text/encoding/charmap"
	"golang.org/x/text/transform"

	"github.com/onecd-go/onecd/internal/onecderr"
)

// Encoding identifies a source text encoding.
type Encoding int

const (
	CP1251 Encoding = iota
	UTF16LE
	UTF8Encoding
)

// Detect inspects a byte-order mark, if any, and returns the encoding to
// use along with how many leading bytes the BOM occupies. Absent a BOM,
// it defaults to CP1251, the format's historical default platform
// encoding.
func Detect(b []byte) (Encoding, int) {
	if len(b) >= 3 && b[0] == 0xEF && b[1] == 0xBB && b[2] == 0xBF {
		return UTF8Encoding, 3
	}
	if len(b) >= 2 && b[0] == 0xFF && b[1] == 0xFE {
		return UTF16LE, 2
	}
	return CP1251, 0
}

// ToUTF8 decodes b[offset:] (past any BOM already accounted for by the
// caller) from encoding into a Go string.
func ToUTF8(b []byte, offset int, enc Encoding) (string, error) {
	src := b[offset:]
	switch enc {
	case UTF8Encoding:
		return string(src), nil
	case UTF16LE:
		if len(src)%2 != 0 {
			src = src[:len(src)-1]
		}
		u16 := make([]uint16, len(src)/2)
		for i := range u16 {
			u16[i] = uint16(src[2*i]) | uint16(src[2*i+1])<<8
		}
		return string(utf16.Decode(u16)), nil
	default:
		out, _, err := transform.String(charmap.Windows1251.NewDecoder(), string(src))
		if err != nil {
			return "", onecderr.Wrap(onecderr.CorruptRecord, "textenc.ToUTF8", err)
		}
		return out, nil
	}
}
