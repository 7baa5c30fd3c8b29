package descriptor

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseAtom(t *testing.T) {
	n, err := Parse("123")
	require.NoError(t, err)
	assert.Equal(t, KindAtom, n.Kind)
	v, err := n.Int()
	require.NoError(t, err)
	assert.EqualValues(t, 123, v)
}

func TestParseNestedList(t *testing.T) {
	n, err := Parse(`{FOO,{"Fields",{NAME,C,0,10,0,"",0}},{Files,10,11,12}}`)
	require.NoError(t, err)
	require.Equal(t, KindList, n.Kind)
	require.Equal(t, 3, n.Len())
	assert.Equal(t, "FOO", n.At(0).String())

	files := n.FindClause("Files")
	require.NotNil(t, files)
	assert.Equal(t, 4, files.Len())
	v, err := files.At(1).Int()
	require.NoError(t, err)
	assert.EqualValues(t, 10, v)
}

func TestParseEmptyList(t *testing.T) {
	n, err := Parse("{}")
	require.NoError(t, err)
	assert.Equal(t, 0, n.Len())
}

func TestParseQuotedAtomWithEscapedQuote(t *testing.T) {
	n, err := Parse(`"say ""hi"""`)
	require.NoError(t, err)
	assert.Equal(t, `say "hi"`, n.String())
}

func TestParseRejectsTrailingTokens(t *testing.T) {
	_, err := Parse(`{1,2} garbage`)
	require.Error(t, err)
}

func TestParseRejectsUnterminatedList(t *testing.T) {
	_, err := Parse(`{1,2`)
	require.Error(t, err)
}

func TestRenderIsInverseOfParse(t *testing.T) {
	original := `{123,{A,B,C},{"has space",plain}}`
	n, err := Parse(original)
	require.NoError(t, err)
	assert.Equal(t, original, Render(n))
}

func TestRenderQuotesAtomsNeedingEscaping(t *testing.T) {
	n := &Node{Kind: KindList, Children: []*Node{
		{Kind: KindAtom, Atom: `has,comma`},
		{Kind: KindAtom, Atom: `has"quote`},
		{Kind: KindAtom, Atom: "plain"},
	}}
	out := Render(n)
	reparsed, err := Parse(out)
	require.NoError(t, err)
	assert.Equal(t, "has,comma", reparsed.At(0).String())
	assert.Equal(t, `has"quote`, reparsed.At(1).String())
	assert.Equal(t, "plain", reparsed.At(2).String())
}
