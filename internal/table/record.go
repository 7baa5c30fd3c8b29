package table

import (
	"time"

	"github.com/onecd-go/onecd/internal/layout"
	"github.com/onecd-go/onecd/internal/onecderr"
)

// Value is one decoded field value. Exactly one of the typed members is
// meaningful, selected by the owning Field's Type; Null overrides all of
// them for a nullable field with no value stored.
type Value struct {
	Null       bool
	Bool       bool
	Int        int64
	Text       string
	Bytes      []byte
	Time       time.Time
	BlobStart  uint32
	BlobLength uint32
}

// RecordLen returns the fixed on-disk width of one record: the tombstone
// byte plus every field's presence flag (if nullable) and value width.
func RecordLen(fields []Field) int {
	n := 1
	for _, f := range fields {
		n += f.presenceWidth() + f.Width()
	}
	return n
}

// tombstoneOffset is always 0.
const tombstoneOffset = 0

// EncodeRecord renders values (one per field, same order as fields) into
// a freshly allocated record-width buffer. live controls the tombstone
// byte: non-zero means live, per spec.md §3.
func EncodeRecord(fields []Field, values []Value, live bool) ([]byte, error) {
	if len(values) != len(fields) {
		return nil, onecderr.New(onecderr.CorruptRecord, "table.EncodeRecord",
			onecderr.D("reason", "value count mismatch"), onecderr.D("fields", len(fields)), onecderr.D("values", len(values)))
	}
	buf := make([]byte, RecordLen(fields))
	if live {
		buf[tombstoneOffset] = 1
	}
	off := 1
	for i, f := range fields {
		v := values[i]
		if f.Nullable {
			if v.Null {
				buf[off] = 0x00
				off += 1 + f.Width()
				continue
			}
			buf[off] = 0x01
			off++
		}
		if err := encodeValue(buf[off:off+f.Width()], f, v); err != nil {
			return nil, err
		}
		off += f.Width()
	}
	return buf, nil
}

func encodeValue(dst []byte, f Field, v Value) error {
	switch f.Type {
	case TypeBoolean:
		if v.Bool {
			dst[0] = 1
		}
	case TypeNumber:
		putIntWidth(dst, v.Int)
	case TypeDate:
		packed := layout.PackTimestamp(v.Time)
		copy(dst, packed[:])
	case TypeText:
		copy(dst, v.Text)
		for i := len(v.Text); i < len(dst); i++ {
			dst[i] = 0
		}
	case TypeBinary:
		copy(dst, v.Bytes)
		for i := len(v.Bytes); i < len(dst); i++ {
			dst[i] = 0
		}
	case TypeBlob:
		layout.PutU32(dst[0:4], v.BlobStart)
		layout.PutU32(dst[4:8], v.BlobLength)
	default:
		return onecderr.New(onecderr.CorruptRecord, "table.encodeValue", onecderr.D("reason", "unknown field type"))
	}
	return nil
}

func putIntWidth(dst []byte, v int64) {
	u := uint64(v)
	for i := range dst {
		dst[i] = byte(u >> (8 * i))
	}
}

func getIntWidth(src []byte) int64 {
	var u uint64
	for i := len(src) - 1; i >= 0; i-- {
		u = u<<8 | uint64(src[i])
	}
	return int64(u)
}

// DecodeRecord is the inverse of EncodeRecord.
func DecodeRecord(fields []Field, buf []byte) (values []Value, live bool, err error) {
	want := RecordLen(fields)
	if len(buf) != want {
		return nil, false, onecderr.New(onecderr.CorruptRecord, "table.DecodeRecord",
			onecderr.D("reason", "record width mismatch"), onecderr.D("want", want), onecderr.D("got", len(buf)))
	}
	live = buf[tombstoneOffset] != 0
	off := 1
	values = make([]Value, len(fields))
	for i, f := range fields {
		if f.Nullable {
			if buf[off] == 0x00 {
				values[i] = Value{Null: true}
				off += 1 + f.Width()
				continue
			}
			off++
		}
		v, err := decodeValue(buf[off:off+f.Width()], f)
		if err != nil {
			return nil, false, err
		}
		values[i] = v
		off += f.Width()
	}
	return values, live, nil
}

func decodeValue(src []byte, f Field) (Value, error) {
	switch f.Type {
	case TypeBoolean:
		return Value{Bool: src[0] != 0}, nil
	case TypeNumber:
		return Value{Int: getIntWidth(src)}, nil
	case TypeDate:
		return Value{Time: layout.UnpackTimestamp(src)}, nil
	case TypeText:
		end := len(src)
		for end > 0 && src[end-1] == 0 {
			end--
		}
		return Value{Text: string(src[:end])}, nil
	case TypeBinary:
		out := make([]byte, len(src))
		copy(out, src)
		return Value{Bytes: out}, nil
	case TypeBlob:
		return Value{BlobStart: layout.U32(src[0:4]), BlobLength: layout.U32(src[4:8])}, nil
	default:
		return Value{}, onecderr.New(onecderr.CorruptRecord, "table.decodeValue", onecderr.D("reason", "unknown field type"))
	}
}
