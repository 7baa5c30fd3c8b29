package database

import (
	"strings"

	"github.com/onecd-go/onecd/internal/layout"
	"github.com/onecd-go/onecd/internal/onecderr"
	"github.com/onecd-go/onecd/internal/table"
)

// LostObject is one page whose content looks like an object root but
// which nothing in the database's table registry references (spec.md
// §4.7 "Recovery operations").
type LostObject struct {
	Page uint32 `yaml:"page"`
	Wide bool   `yaml:"wide"`
}

// referencedPages collects every page number reachable from the
// database's own bookkeeping: the three reserved pages plus every
// table's descriptor/data/blob/index roots.
func (d *Database) referencedPages() map[uint32]bool {
	ref := map[uint32]bool{
		layout.PageContainerHeader: true,
		layout.PageFreeSpaceRoot:   true,
		layout.PageRootObject:      true,
	}
	for _, nt := range d.tables {
		ref[nt.descriptorRoot] = true
		ref[nt.table.Descriptor.DataRoot] = true
		ref[nt.table.Descriptor.BlobRoot] = true
		ref[nt.table.Descriptor.IndexRoot] = true
	}
	return ref
}

func looksLikeObjectRoot(buf []byte, wide bool) bool {
	if wide {
		return len(buf) >= 2 && ((buf[0] == layout.MarkerWideData[0] && buf[1] == layout.MarkerWideData[1]) ||
			(buf[0] == layout.MarkerWideFree[0] && buf[1] == layout.MarkerWideFree[1]))
	}
	return len(buf) >= 8 && string(buf[0:8]) == string(layout.SignatureLegacyObject[:])
}

// FindLostObjects scans every page for the object signature/marker and
// reports any not referenced from the root object's table list (spec.md
// §4.7). Per-page read errors are swallowed (§7: "Recovery operations...
// swallow per-page errors silently because their purpose is to survive
// bad data").
func (d *Database) FindLostObjects() ([]LostObject, error) {
	referenced := d.referencedPages()
	size, err := d.device.Size()
	if err != nil {
		return nil, err
	}
	total := uint32(size / int64(d.pageSize))
	wide := d.version.IsWide()
	var lost []LostObject
	for p := uint32(3); p < total; p++ {
		if referenced[p] {
			continue
		}
		buf, err := d.cache.Get(p)
		if err != nil {
			continue
		}
		if looksLikeObjectRoot(buf, wide) {
			lost = append(lost, LostObject{Page: p, Wide: wide})
		}
	}
	return lost, nil
}

// FindAndCreateLostTables extends FindLostObjects: for every lost page
// that also parses as a valid (non-bad) table descriptor, it is appended
// to the root object's table list via AddTable (spec.md §4.7). Pages
// that fail to parse as a table are left out of the report silently.
func (d *Database) FindAndCreateLostTables() ([]string, error) {
	lost, err := d.FindLostObjects()
	if err != nil {
		return nil, err
	}
	var added []string
	for _, lo := range lost {
		before := len(d.tables)
		d.buildTable(lo.Page)
		if len(d.tables) > before {
			nt := d.tables[len(d.tables)-1]
			if err := d.writeRootRecord(d.allDescriptorRoots()); err != nil {
				return added, err
			}
			added = append(added, nt.name)
		}
	}
	return added, nil
}

func (d *Database) allDescriptorRoots() []uint32 {
	roots := make([]uint32, len(d.tables))
	for i, nt := range d.tables {
		roots[i] = nt.descriptorRoot
	}
	return roots
}

// RecoveryReport is the result of RestoreDataAllocationTable: candidate
// pages whose content matches name's record shape, reported but never
// written back (spec.md §9 open question: the source's corresponding
// write-back path is commented out upstream, so this stays read-only).
type RecoveryReport struct {
	TableName      string   `yaml:"table"`
	CandidatePages []uint32 `yaml:"candidate_pages"`
}

// RestoreDataAllocationTable scans every page for content that matches
// name's record shape via matches (a caller-supplied "record template"
// predicate over one record_len-wide chunk, spec.md §4.7). It never
// mutates the table's allocation table; it only reports candidates.
func (d *Database) RestoreDataAllocationTable(name string, matches func(record []byte) bool) (RecoveryReport, error) {
	nt, ok := d.byName[strings.ToUpper(name)]
	if !ok {
		return RecoveryReport{}, onecderr.New(onecderr.OutOfBounds, "database.RestoreDataAllocationTable", onecderr.D("table", name))
	}
	recordLen := table.RecordLen(nt.table.Descriptor.Fields)
	if recordLen <= 0 || recordLen > d.pageSize {
		return RecoveryReport{}, onecderr.New(onecderr.CorruptRecord, "database.RestoreDataAllocationTable",
			onecderr.D("recordLen", recordLen))
	}
	size, err := d.device.Size()
	if err != nil {
		return RecoveryReport{}, err
	}
	total := uint32(size / int64(d.pageSize))
	var candidates []uint32
	for p := uint32(3); p < total; p++ {
		buf, err := d.cache.Get(p)
		if err != nil {
			continue
		}
		if pageMatchesRecordTemplate(buf, recordLen, matches) {
			candidates = append(candidates, p)
		}
	}
	return RecoveryReport{TableName: nt.name, CandidatePages: candidates}, nil
}

func pageMatchesRecordTemplate(page []byte, recordLen int, matches func([]byte) bool) bool {
	for off := 0; off+recordLen <= len(page); off += recordLen {
		if matches(page[off : off+recordLen]) {
			return true
		}
	}
	return false
}
