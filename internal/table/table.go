package table

import (
	"github.com/onecd-go/onecd/internal/object"
	"github.com/onecd-go/onecd/internal/onecderr"
	"github.com/onecd-go/onecd/internal/onecdlog"
	"github.com/onecd-go/onecd/internal/pagecache"
)

// Table is the live, opened form of a descriptor: its three child objects
// plus the parsed schema needed to encode/decode fixed-width records
// (spec.md §4.5).
type Table struct {
	Descriptor *Descriptor
	Data       *object.Object
	Blob       *object.Object
	Index      *object.Object

	recordLen int
	bad       bool
	badReason string
}

// Bad reports whether Open marked this table unusable (spec.md §4.5 step
// 4: a malformed descriptor or missing child object degrades the table
// instead of failing the whole database open).
func (t *Table) Bad() (bool, string) { return t.bad, t.badReason }

// Open parses descriptorText and opens the table's data/blob/index
// objects. A malformed descriptor or an object that fails to open is
// reported through the returned Table's Bad(), not as an error, so a
// caller iterating every table in a database can skip bad ones without
// aborting the whole open (spec.md §4.5 step 4).
func Open(cache *pagecache.Cache, source object.PageSource, pageSize int, format object.Format, descriptorText string, log *onecdlog.Logger) *Table {
	desc, err := ParseDescriptor(descriptorText)
	if err != nil {
		return &Table{bad: true, badReason: err.Error()}
	}
	t := &Table{Descriptor: desc, recordLen: RecordLen(desc.Fields)}

	data, err := object.Open(cache, source, desc.DataRoot, pageSize, format, object.KindData, false, log)
	if err != nil {
		t.bad, t.badReason = true, "data object: "+err.Error()
		return t
	}
	blob, err := object.Open(cache, source, desc.BlobRoot, pageSize, format, object.KindData, false, log)
	if err != nil {
		t.bad, t.badReason = true, "blob object: "+err.Error()
		return t
	}
	idx, err := object.Open(cache, source, desc.IndexRoot, pageSize, format, object.KindData, false, log)
	if err != nil {
		t.bad, t.badReason = true, "index object: "+err.Error()
		return t
	}
	t.Data, t.Blob, t.Index = data, blob, idx
	return t
}

// Create formats brand-new data/blob/index objects for a table being
// newly imported, and returns the Table wrapping them with desc.
func Create(cache *pagecache.Cache, source object.PageSource, pageSize int, format object.Format, desc *Descriptor, log *onecdlog.Logger) (*Table, error) {
	data, err := object.Create(cache, source, desc.DataRoot, pageSize, format, object.KindData, log)
	if err != nil {
		return nil, onecderr.Wrap(onecderr.CorruptObject, "table.Create", err, onecderr.D("reason", "data object"))
	}
	blob, err := object.Create(cache, source, desc.BlobRoot, pageSize, format, object.KindData, log)
	if err != nil {
		return nil, onecderr.Wrap(onecderr.CorruptObject, "table.Create", err, onecderr.D("reason", "blob object"))
	}
	idx, err := object.Create(cache, source, desc.IndexRoot, pageSize, format, object.KindData, log)
	if err != nil {
		return nil, onecderr.Wrap(onecderr.CorruptObject, "table.Create", err, onecderr.D("reason", "index object"))
	}
	return &Table{Descriptor: desc, Data: data, Blob: blob, Index: idx, recordLen: RecordLen(desc.Fields)}, nil
}

// RecordCountPhysical is the number of record-width slots the data object
// currently spans, live or not (spec.md §4.5's record_count_physical).
func (t *Table) RecordCountPhysical() int {
	if t.recordLen == 0 {
		return 0
	}
	return int(t.Data.Len()) / t.recordLen
}

// RecordCountLogical counts only live (non-tombstoned) records; O(n) over
// the physical slots, matching spec.md's stated cost for this operation.
func (t *Table) RecordCountLogical() (int, error) {
	n := t.RecordCountPhysical()
	count := 0
	buf := make([]byte, t.recordLen)
	for i := 0; i < n; i++ {
		if err := t.Data.Read(int64(i)*int64(t.recordLen), buf); err != nil {
			return 0, err
		}
		if buf[tombstoneOffset] != 0 {
			count++
		}
	}
	return count, nil
}

func (t *Table) checkRow(row int) error {
	if row < 0 || row >= t.RecordCountPhysical() {
		return onecderr.New(onecderr.OutOfBounds, "table.checkRow",
			onecderr.D("row", row), onecderr.D("physical", t.RecordCountPhysical()))
	}
	return nil
}

// GetRecord decodes the record at the given physical row, along with
// whether it is live.
func (t *Table) GetRecord(row int) (values []Value, live bool, err error) {
	if err := t.checkRow(row); err != nil {
		return nil, false, err
	}
	buf := make([]byte, t.recordLen)
	if err := t.Data.Read(int64(row)*int64(t.recordLen), buf); err != nil {
		return nil, false, err
	}
	return DecodeRecord(t.Descriptor.Fields, buf)
}

// Insert appends a new live record and returns its physical row.
func (t *Table) Insert(values []Value) (row int, err error) {
	buf, err := EncodeRecord(t.Descriptor.Fields, values, true)
	if err != nil {
		return 0, err
	}
	row = t.RecordCountPhysical()
	if err := t.Data.Write(int64(row)*int64(t.recordLen), buf); err != nil {
		return 0, err
	}
	return row, nil
}

// Update overwrites the record at row in place, keeping it live.
func (t *Table) Update(row int, values []Value) error {
	if err := t.checkRow(row); err != nil {
		return err
	}
	buf, err := EncodeRecord(t.Descriptor.Fields, values, true)
	if err != nil {
		return err
	}
	return t.Data.Write(int64(row)*int64(t.recordLen), buf)
}

// Delete clears the tombstone byte of row, marking it dead without
// compacting the data object (spec.md §3: deletes are tombstones, not
// physical removal).
func (t *Table) Delete(row int) error {
	if err := t.checkRow(row); err != nil {
		return err
	}
	return t.Data.Write(int64(row)*int64(t.recordLen), []byte{0})
}
