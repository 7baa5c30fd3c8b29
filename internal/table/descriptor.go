package table

import (
	"strconv"

	"github.com/onecd-go/onecd/internal/descriptor"
	"github.com/onecd-go/onecd/internal/onecderr"
)

// Index is one index clause of a descriptor: a named, optionally primary
// ordered list of fields. Index internals (the B-tree payload itself)
// are out of scope (spec.md §3); this only carries the schema-level
// description needed to validate the descriptor and to re-render it on
// export.
type Index struct {
	Name      string
	Primary   bool
	Fields    []string
	Ascending []bool
}

// Descriptor is a table's parsed schema text (spec.md §3 "Table
// descriptor"): name, fields, indexes and the three child object roots.
type Descriptor struct {
	Name      string
	Fields    []Field
	Indexes   []Index
	DataRoot  uint32
	BlobRoot  uint32
	IndexRoot uint32
}

// ParseDescriptor parses descriptor text of the shape
// {name,{"Fields",field...},{"Indexes",index...},{"Files",data,blob,index}}.
func ParseDescriptor(text string) (*Descriptor, error) {
	root, err := descriptor.Parse(text)
	if err != nil {
		return nil, err
	}
	if root.Len() < 1 {
		return nil, onecderr.New(onecderr.CorruptRecord, "table.ParseDescriptor", onecderr.D("reason", "empty descriptor"))
	}
	d := &Descriptor{Name: root.At(0).String()}

	if fc := root.FindClause("Fields"); fc != nil {
		for i := 1; i < fc.Len(); i++ {
			f, err := fieldFromNode(fc.At(i))
			if err != nil {
				return nil, err
			}
			d.Fields = append(d.Fields, f)
		}
	}
	if ic := root.FindClause("Indexes"); ic != nil {
		for i := 1; i < ic.Len(); i++ {
			idx, err := indexFromNode(ic.At(i))
			if err != nil {
				return nil, err
			}
			d.Indexes = append(d.Indexes, idx)
		}
	}
	files := root.FindClause("Files")
	if files == nil || files.Len() != 4 {
		return nil, onecderr.New(onecderr.CorruptRecord, "table.ParseDescriptor", onecderr.D("reason", "missing or malformed Files clause"))
	}
	dataRoot, err1 := files.At(1).Int()
	blobRoot, err2 := files.At(2).Int()
	indexRoot, err3 := files.At(3).Int()
	if err1 != nil || err2 != nil || err3 != nil {
		return nil, onecderr.New(onecderr.CorruptRecord, "table.ParseDescriptor", onecderr.D("reason", "non-numeric Files clause"))
	}
	d.DataRoot, d.BlobRoot, d.IndexRoot = uint32(dataRoot), uint32(blobRoot), uint32(indexRoot)
	return d, nil
}

// Render is the inverse of ParseDescriptor (spec.md SUPPLEMENTED:
// Descriptor.Render, used by export and by import's "compose a new
// descriptor" step).
func (d *Descriptor) Render() string {
	fieldNodes := []*descriptor.Node{atomNode("Fields")}
	for _, f := range d.Fields {
		fieldNodes = append(fieldNodes, fieldToNode(f))
	}
	idxNodes := []*descriptor.Node{atomNode("Indexes")}
	for _, idx := range d.Indexes {
		idxNodes = append(idxNodes, indexToNode(idx))
	}
	filesNode := renderList(atomNode("Files"), atomNode(itoa(int(d.DataRoot))), atomNode(itoa(int(d.BlobRoot))), atomNode(itoa(int(d.IndexRoot))))
	root := renderList(atomNode(d.Name), renderList(fieldNodes...), renderList(idxNodes...), filesNode)
	return descriptor.Render(root)
}

func indexFromNode(n *descriptor.Node) (Index, error) {
	if n.Len() < 4 {
		return Index{}, onecderr.New(onecderr.CorruptRecord, "table.indexFromNode", onecderr.D("reason", "index clause too short"))
	}
	primary, _ := n.At(1).Int()
	fieldsNode := n.At(2)
	ordNode := n.At(3)
	idx := Index{Name: n.At(0).String(), Primary: primary != 0}
	for i := 0; i < fieldsNode.Len(); i++ {
		idx.Fields = append(idx.Fields, fieldsNode.At(i).String())
		asc := true
		if i < ordNode.Len() {
			v, _ := ordNode.At(i).Int()
			asc = v == 0
		}
		idx.Ascending = append(idx.Ascending, asc)
	}
	return idx, nil
}

func indexToNode(idx Index) *descriptor.Node {
	var fieldNodes, ordNodes []*descriptor.Node
	for i, f := range idx.Fields {
		fieldNodes = append(fieldNodes, atomNode(f))
		desc := "1"
		if i < len(idx.Ascending) && idx.Ascending[i] {
			desc = "0"
		}
		ordNodes = append(ordNodes, atomNode(desc))
	}
	primary := "0"
	if idx.Primary {
		primary = "1"
	}
	return renderList(atomNode(idx.Name), atomNode(primary), renderList(fieldNodes...), renderList(ordNodes...))
}

func atomNode(s string) *descriptor.Node {
	return &descriptor.Node{Kind: descriptor.KindAtom, Atom: s}
}

func renderList(children ...*descriptor.Node) *descriptor.Node {
	return &descriptor.Node{Kind: descriptor.KindList, Children: children}
}

func itoa(i int) string { return strconv.Itoa(i) }
