package table

// EditKind classifies one staged row change (spec.md §4.5 "Edit mode").
type EditKind int

const (
	Unchanged EditKind = iota
	Changed
	Inserted
	Deleted
)

// edit is one staged row change: which fields of Values are meaningful is
// given by FieldMask (nil means "all fields", the common case for Insert
// and Delete).
type edit struct {
	Kind      EditKind
	FieldMask []bool
	Values    []Value
}

// Editor accumulates staged per-row changes against a Table without
// touching the underlying objects until Commit (spec.md §4.5). Rows are
// keyed by physical row index at the time the edit was staged; a row
// staged Inserted has no physical index yet and is tracked separately.
type Editor struct {
	t        *Table
	rows     map[int]*edit
	inserted []*edit
}

// BeginEdit starts accumulating changes against t.
func (t *Table) BeginEdit() *Editor {
	return &Editor{t: t, rows: make(map[int]*edit)}
}

// StageUpdate records that row's live fields (per mask; nil mask means
// every field) should become values once committed.
func (e *Editor) StageUpdate(row int, mask []bool, values []Value) {
	e.rows[row] = &edit{Kind: Changed, FieldMask: mask, Values: values}
}

// StageDelete records that row should be tombstoned once committed.
func (e *Editor) StageDelete(row int) {
	e.rows[row] = &edit{Kind: Deleted}
}

// StageInsert records a brand-new row to be appended once committed.
func (e *Editor) StageInsert(values []Value) {
	e.inserted = append(e.inserted, &edit{Kind: Inserted, Values: values})
}

// Cancel discards every staged change.
func (e *Editor) Cancel() {
	e.rows = make(map[int]*edit)
	e.inserted = nil
}

// Commit applies every staged change in delete, then update, then insert
// order (spec.md §4.5), releasing the old BLOB chains of deleted rows and
// of changed BLOB-typed fields along the way, and returns the physical rows
// of newly inserted records. It writes no BLOB chains itself: a staged
// BLOB value is a locator to a chain already written with WriteBlob.
func (e *Editor) Commit() ([]int, error) {
	for row, ed := range e.rows {
		if ed.Kind != Deleted {
			continue
		}
		if err := e.releaseBlobFields(row); err != nil {
			return nil, err
		}
		if err := e.t.Delete(row); err != nil {
			return nil, err
		}
	}
	for row, ed := range e.rows {
		if ed.Kind != Changed {
			continue
		}
		merged, err := e.mergeValues(row, ed)
		if err != nil {
			return nil, err
		}
		if err := e.t.Update(row, merged); err != nil {
			return nil, err
		}
	}
	var newRows []int
	for _, ed := range e.inserted {
		row, err := e.t.Insert(ed.Values)
		if err != nil {
			return nil, err
		}
		newRows = append(newRows, row)
	}
	e.Cancel()
	return newRows, nil
}

// releaseBlobFields frees the BLOB chains of row's BLOB-typed fields
// before the row itself is tombstoned, per spec.md's delete semantics.
func (e *Editor) releaseBlobFields(row int) error {
	values, live, err := e.t.GetRecord(row)
	if err != nil || !live {
		return err
	}
	for i, f := range e.t.Descriptor.Fields {
		if f.Type == TypeBlob && !values[i].Null && values[i].BlobStart != 0 {
			if err := e.t.FreeBlob(values[i].BlobStart); err != nil {
				return err
			}
		}
	}
	return nil
}

// mergeValues applies ed's field mask over row's current values, freeing
// the old BLOB chain of any BLOB field actually being changed; the new
// value's locator is taken as staged, without writing a chain.
func (e *Editor) mergeValues(row int, ed *edit) ([]Value, error) {
	current, _, err := e.t.GetRecord(row)
	if err != nil {
		return nil, err
	}
	fields := e.t.Descriptor.Fields
	for i, f := range fields {
		if ed.FieldMask != nil && (i >= len(ed.FieldMask) || !ed.FieldMask[i]) {
			continue
		}
		if f.Type == TypeBlob {
			if !current[i].Null && current[i].BlobStart != 0 {
				if err := e.t.FreeBlob(current[i].BlobStart); err != nil {
					return nil, err
				}
			}
		}
		current[i] = ed.Values[i]
	}
	return current, nil
}
