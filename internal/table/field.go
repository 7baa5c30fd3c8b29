// Package table implements the three-object composite (data, blob,
// index) plus its parsed descriptor (spec.md §4.5): fixed-length record
// storage, a chained-slot BLOB heap, tombstone deletes and edit-mode
// changesets. Index internals are out of scope (spec.md §3 "treated as a
// read-only oracle"); this package opens and validates the index object
// but does not interpret its B-tree payload.
//
// Grounded on server/innodb/storage/store/table/form.go (fixed-width
// record field shape) and server/innodb/storage/store/pages/inode_page.go
// (chained fixed-size slot lists with free-list splicing, the same shape
// the BLOB heap below reuses for its 256-byte records).
package table

import (
	"strings"

	"github.com/onecd-go/onecd/internal/descriptor"
	"github.com/onecd-go/onecd/internal/onecderr"
)

// FieldType enumerates the record field encodings spec.md §3 names.
// Tag letters follow the source dialect's own short type codes (tf_text,
// tf_string/MEMO, tf_image/BLOB, plus the numeric/logical/date kinds
// every descriptor also carries).
type FieldType byte

const (
	TypeBoolean FieldType = iota
	TypeNumber
	TypeText
	TypeDate
	TypeBinary
	TypeBlob
)

func (t FieldType) tag() string {
	switch t {
	case TypeBoolean:
		return "L"
	case TypeNumber:
		return "N"
	case TypeText:
		return "C"
	case TypeDate:
		return "D"
	case TypeBinary:
		return "B"
	case TypeBlob:
		return "O"
	default:
		return "?"
	}
}

func parseFieldType(tag string) (FieldType, error) {
	switch strings.ToUpper(tag) {
	case "L":
		return TypeBoolean, nil
	case "N":
		return TypeNumber, nil
	case "C":
		return TypeText, nil
	case "D":
		return TypeDate, nil
	case "B":
		return TypeBinary, nil
	case "O":
		return TypeBlob, nil
	default:
		return 0, onecderr.New(onecderr.CorruptRecord, "table.parseFieldType", onecderr.D("tag", tag))
	}
}

// Field is one column of a table descriptor.
type Field struct {
	Name            string
	Type            FieldType
	Nullable        bool
	Length          int
	Scale           int
	Default         string
	CaseInsensitive bool
}

// Width is the on-disk byte width of the field's value area, excluding
// the 1-byte nullable presence flag (accounted separately).
func (f Field) Width() int {
	switch f.Type {
	case TypeBoolean:
		return 1
	case TypeDate:
		return 7 // packed timestamp, matches the catalog's 7-byte format (spec.md §4.6)
	case TypeBlob:
		return 8 // (blob_start u32, blob_length u32) locator
	case TypeNumber:
		if f.Length > 0 {
			return f.Length
		}
		return 8
	default: // TypeText, TypeBinary
		return f.Length
	}
}

// presenceWidth is 1 for a nullable field (the presence flag byte), 0
// otherwise.
func (f Field) presenceWidth() int {
	if f.Nullable {
		return 1
	}
	return 0
}

func fieldFromNode(n *descriptor.Node) (Field, error) {
	if n.Len() < 7 {
		return Field{}, onecderr.New(onecderr.CorruptRecord, "table.fieldFromNode",
			onecderr.D("reason", "field clause too short"), onecderr.D("len", n.Len()))
	}
	typ, err := parseFieldType(n.At(1).String())
	if err != nil {
		return Field{}, err
	}
	nullable, _ := n.At(2).Int()
	length, _ := n.At(3).Int()
	scale, _ := n.At(4).Int()
	ci, _ := n.At(6).Int()
	return Field{
		Name:            n.At(0).String(),
		Type:            typ,
		Nullable:        nullable != 0,
		Length:          int(length),
		Scale:           int(scale),
		Default:         n.At(5).String(),
		CaseInsensitive: ci != 0,
	}, nil
}

func fieldToNode(f Field) *descriptor.Node {
	nullable := "0"
	if f.Nullable {
		nullable = "1"
	}
	ci := "0"
	if f.CaseInsensitive {
		ci = "1"
	}
	return renderList(
		atomNode(f.Name), atomNode(f.Type.tag()), atomNode(nullable),
		atomNode(itoa(f.Length)), atomNode(itoa(f.Scale)), atomNode(f.Default), atomNode(ci),
	)
}
