// Package descriptor parses and renders the curly-brace s-expression
// dialect used for table schema text (spec.md §3 "Table descriptor",
// §6 "Descriptor text parser", §9 "treat as external collaborator").
// Kept deliberately unaware of table/field semantics: it only knows
// about atoms and comma-separated lists enclosed in braces. The table
// package interprets the resulting tree.
package descriptor

import (
	"strconv"
	"strings"

	"github.com/onecd-go/onecd/internal/onecderr"
)

// Kind distinguishes a leaf atom from a bracketed list.
type Kind int

const (
	KindAtom Kind = iota
	KindList
)

// Node is one position in the parsed tree: either an atom (a bare or
// quoted token) or a list of child nodes.
type Node struct {
	Kind     Kind
	Atom     string
	Children []*Node
}

func atom(s string) *Node  { return &Node{Kind: KindAtom, Atom: s} }
func list(c []*Node) *Node { return &Node{Kind: KindList, Children: c} }

// Len returns the number of children for a list node, 0 for an atom.
func (n *Node) Len() int {
	if n == nil || n.Kind != KindList {
		return 0
	}
	return len(n.Children)
}

// At returns the i-th child of a list node, or nil if out of range.
func (n *Node) At(i int) *Node {
	if n == nil || n.Kind != KindList || i < 0 || i >= len(n.Children) {
		return nil
	}
	return n.Children[i]
}

// String returns the atom text, or "" for a list node.
func (n *Node) String() string {
	if n == nil || n.Kind != KindAtom {
		return ""
	}
	return n.Atom
}

// Int parses the atom as a base-10 integer.
func (n *Node) Int() (int64, error) {
	if n == nil || n.Kind != KindAtom {
		return 0, onecderr.New(onecderr.CorruptRecord, "descriptor.Node.Int", onecderr.D("reason", "not an atom"))
	}
	v, err := strconv.ParseInt(strings.TrimSpace(n.Atom), 10, 64)
	if err != nil {
		return 0, onecderr.Wrap(onecderr.CorruptRecord, "descriptor.Node.Int", err, onecderr.D("atom", n.Atom))
	}
	return v, nil
}

// FindClause scans a list node's children for a nested list whose first
// child is the atom name (case-sensitive, matching the source dialect's
// convention of quoted clause tags like "Files"), returning that list.
func (n *Node) FindClause(name string) *Node {
	if n == nil || n.Kind != KindList {
		return nil
	}
	for _, c := range n.Children {
		if c.Kind == KindList && c.Len() > 0 && c.At(0).String() == name {
			return c
		}
	}
	return nil
}

// Parse parses one top-level node (atom or brace-delimited list) from
// text, failing CorruptRecord on malformed input.
func Parse(text string) (*Node, error) {
	p := &parser{toks: tokenize(text)}
	n, err := p.parseNode()
	if err != nil {
		return nil, err
	}
	if p.pos != len(p.toks) {
		return nil, onecderr.New(onecderr.CorruptRecord, "descriptor.Parse",
			onecderr.D("reason", "trailing tokens"), onecderr.D("pos", p.pos))
	}
	return n, nil
}

// Render is the inverse of Parse: it re-serializes a tree to the same
// textual dialect. Atoms that contain a delimiter character are quoted,
// with embedded quotes doubled (the dialect's escaping convention).
func Render(n *Node) string {
	var b strings.Builder
	renderNode(&b, n)
	return b.String()
}

func renderNode(b *strings.Builder, n *Node) {
	if n == nil {
		return
	}
	if n.Kind == KindAtom {
		b.WriteString(renderAtom(n.Atom))
		return
	}
	b.WriteByte('{')
	for i, c := range n.Children {
		if i > 0 {
			b.WriteByte(',')
		}
		renderNode(b, c)
	}
	b.WriteByte('}')
}

func renderAtom(s string) string {
	if !needsQuoting(s) {
		return s
	}
	var b strings.Builder
	b.WriteByte('"')
	for _, r := range s {
		if r == '"' {
			b.WriteByte('"')
		}
		b.WriteRune(r)
	}
	b.WriteByte('"')
	return b.String()
}

func needsQuoting(s string) bool {
	if s == "" {
		return true
	}
	for _, r := range s {
		switch r {
		case '{', '}', ',', '"', ' ', '\t', '\n', '\r':
			return true
		}
	}
	if _, err := strconv.ParseFloat(s, 64); err == nil {
		return false
	}
	return false
}

type tokKind int

const (
	tokAtom tokKind = iota
	tokOpen
	tokClose
	tokComma
)

type token struct {
	kind tokKind
	text string
}

func tokenize(text string) []token {
	var toks []token
	r := []rune(text)
	i := 0
	for i < len(r) {
		c := r[i]
		switch {
		case c == ' ' || c == '\t' || c == '\n' || c == '\r':
			i++
		case c == '{':
			toks = append(toks, token{kind: tokOpen})
			i++
		case c == '}':
			toks = append(toks, token{kind: tokClose})
			i++
		case c == ',':
			toks = append(toks, token{kind: tokComma})
			i++
		case c == '"':
			i++
			var b strings.Builder
			for i < len(r) {
				if r[i] == '"' {
					if i+1 < len(r) && r[i+1] == '"' {
						b.WriteByte('"')
						i += 2
						continue
					}
					i++
					break
				}
				b.WriteRune(r[i])
				i++
			}
			toks = append(toks, token{kind: tokAtom, text: b.String()})
		default:
			start := i
			for i < len(r) {
				switch r[i] {
				case '{', '}', ',', ' ', '\t', '\n', '\r', '"':
					goto doneAtom
				}
				i++
			}
		doneAtom:
			toks = append(toks, token{kind: tokAtom, text: string(r[start:i])})
		}
	}
	return toks
}

type parser struct {
	toks []token
	pos  int
}

func (p *parser) peek() (token, bool) {
	if p.pos >= len(p.toks) {
		return token{}, false
	}
	return p.toks[p.pos], true
}

func (p *parser) parseNode() (*Node, error) {
	t, ok := p.peek()
	if !ok {
		return nil, onecderr.New(onecderr.CorruptRecord, "descriptor.parseNode", onecderr.D("reason", "unexpected end of input"))
	}
	switch t.kind {
	case tokAtom:
		p.pos++
		return atom(t.text), nil
	case tokOpen:
		return p.parseList()
	default:
		return nil, onecderr.New(onecderr.CorruptRecord, "descriptor.parseNode",
			onecderr.D("reason", "unexpected token"), onecderr.D("pos", p.pos))
	}
}

func (p *parser) parseList() (*Node, error) {
	p.pos++ // consume '{'
	var children []*Node
	if t, ok := p.peek(); ok && t.kind == tokClose {
		p.pos++
		return list(children), nil
	}
	for {
		child, err := p.parseNode()
		if err != nil {
			return nil, err
		}
		children = append(children, child)
		t, ok := p.peek()
		if !ok {
			return nil, onecderr.New(onecderr.CorruptRecord, "descriptor.parseList", onecderr.D("reason", "unterminated list"))
		}
		if t.kind == tokComma {
			p.pos++
			continue
		}
		if t.kind == tokClose {
			p.pos++
			return list(children), nil
		}
		return nil, onecderr.New(onecderr.CorruptRecord, "descriptor.parseList",
			onecderr.D("reason", "expected ',' or '}'"), onecderr.D("pos", p.pos))
	}
}
