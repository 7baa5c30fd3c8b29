// Package catalog treats an ordinary table whose leading fields match a
// fixed well-known shape as a virtual file system (spec.md §4.6):
// FILENAME, CREATION, MODIFIED, ATTRIBUTES, DATASIZE, BINARYDATA, with an
// optional trailing PARTNO for multi-part files. Grounded on
// internal/table's record API, the same "plain record store plus a schema
// convention" shape server/innodb/metadata/column.go uses to recognize
// system tables by column name.
package catalog

import (
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/onecd-go/onecd/internal/inflate"
	"github.com/onecd-go/onecd/internal/onecderr"
	"github.com/onecd-go/onecd/internal/table"
)

// wellKnownFields is the fixed column-name prefix spec.md §4.6 requires.
var wellKnownFields = []string{"FILENAME", "CREATION", "MODIFIED", "ATTRIBUTES", "DATASIZE", "BINARYDATA"}

const fieldPartNo = "PARTNO"

// Catalog is a recognized table-file virtual FS view over t.
type Catalog struct {
	t          *table.Table
	hasPartNo  bool
	filenameAt int
	creationAt int
	modifiedAt int
	attrsAt    int
	dataszAt   int
	payloadAt  int
	partnoAt   int
}

// Entry describes one logical file (after multi-part reassembly).
type Entry struct {
	Name       string
	Created    time.Time
	Modified   time.Time
	Attributes uint32
	Size       int64
}

// Recognize reports whether t's descriptor begins with the well-known
// catalog field names and, if so, returns a Catalog view over it.
func Recognize(t *table.Table) (*Catalog, bool) {
	if t == nil || t.Descriptor == nil || len(t.Descriptor.Fields) < len(wellKnownFields) {
		return nil, false
	}
	fields := t.Descriptor.Fields
	for i, name := range wellKnownFields {
		if !strings.EqualFold(fields[i].Name, name) {
			return nil, false
		}
	}
	c := &Catalog{
		t: t, filenameAt: 0, creationAt: 1, modifiedAt: 2, attrsAt: 3, dataszAt: 4, payloadAt: 5,
	}
	if len(fields) > len(wellKnownFields) && strings.EqualFold(fields[len(wellKnownFields)].Name, fieldPartNo) {
		c.hasPartNo = true
		c.partnoAt = len(wellKnownFields)
	}
	return c, true
}

type part struct {
	row  int
	num  int64
	vals []table.Value
}

// List enumerates every distinct logical file, reassembling multi-part
// rows by FILENAME (spec.md §4.6) but without reading BINARYDATA payload
// bytes (see Open for that).
func (c *Catalog) List() ([]Entry, error) {
	groups, order, err := c.groupParts()
	if err != nil {
		return nil, err
	}
	entries := make([]Entry, 0, len(order))
	for _, name := range order {
		parts := groups[name]
		first := parts[0].vals
		size, err := c.totalSize(parts)
		if err != nil {
			return nil, err
		}
		entries = append(entries, Entry{
			Name:       first[c.filenameAt].Text,
			Created:    first[c.creationAt].Time,
			Modified:   first[c.modifiedAt].Time,
			Attributes: uint32(first[c.attrsAt].Int),
			Size:       size,
		})
	}
	return entries, nil
}

// groupParts scans every live row, keyed by case-insensitive FILENAME,
// sorting each group's rows by PARTNO ascending when present (spec.md
// §4.6 "parts are concatenated in PARTNO order"); rows without a PARTNO
// field are treated as a single-part file.
func (c *Catalog) groupParts() (map[string][]part, []string, error) {
	groups := make(map[string][]part)
	var order []string
	n := c.t.RecordCountPhysical()
	for row := 0; row < n; row++ {
		vals, live, err := c.t.GetRecord(row)
		if err != nil {
			return nil, nil, err
		}
		if !live {
			continue
		}
		key := strings.ToUpper(vals[c.filenameAt].Text)
		var partNo int64
		if c.hasPartNo && !vals[c.partnoAt].Null {
			partNo = vals[c.partnoAt].Int
		}
		if _, ok := groups[key]; !ok {
			order = append(order, key)
		}
		groups[key] = append(groups[key], part{row: row, num: partNo, vals: vals})
	}
	for key := range groups {
		ps := groups[key]
		for i := 1; i < len(ps); i++ {
			for j := i; j > 0 && ps[j-1].num > ps[j].num; j-- {
				ps[j-1], ps[j] = ps[j], ps[j-1]
			}
		}
		groups[key] = ps
	}
	return groups, order, nil
}

func (c *Catalog) totalSize(parts []part) (int64, error) {
	var total int64
	for _, p := range parts {
		total += int64(p.vals[c.payloadAt].BlobLength)
	}
	return total, nil
}

// Open reassembles name's full payload (concatenating parts in PARTNO
// order) and validates it against the declared DATASIZE (spec.md §4.6:
// "DATASIZE... must equal the total post-assembly byte count; mismatch
// yields Corrupt").
func (c *Catalog) Open(name string) ([]byte, error) {
	groups, _, err := c.groupParts()
	if err != nil {
		return nil, err
	}
	parts, ok := groups[strings.ToUpper(name)]
	if !ok {
		return nil, onecderr.New(onecderr.OutOfBounds, "catalog.Open", onecderr.D("name", name))
	}
	var out []byte
	for _, p := range parts {
		v := p.vals[c.payloadAt]
		if v.Null || v.BlobStart == 0 {
			continue
		}
		chunk, err := c.t.ReadBlob(v.BlobStart, v.BlobLength)
		if err != nil {
			return nil, err
		}
		out = append(out, chunk...)
	}
	declared, err := decimal.NewFromString(strings.TrimSpace(parts[0].vals[c.dataszAt].Text))
	if err != nil {
		return nil, onecderr.Wrap(onecderr.CorruptRecord, "catalog.Open", err, onecderr.D("name", name))
	}
	if !declared.Equal(decimal.NewFromInt(int64(len(out)))) {
		return nil, onecderr.New(onecderr.CorruptRecord, "catalog.Open",
			onecderr.D("name", name), onecderr.D("declared", declared.String()), onecderr.D("actual", len(out)))
	}
	return out, nil
}

// OpenInflated is Open followed by inflate decompression, for BINARYDATA
// payloads that are themselves inflate-compressed nested containers
// (spec.md §4.6); container parsing itself stays out of scope.
func (c *Catalog) OpenInflated(name string) ([]byte, error) {
	raw, err := c.Open(name)
	if err != nil {
		return nil, err
	}
	return inflate.Inflate(raw)
}
