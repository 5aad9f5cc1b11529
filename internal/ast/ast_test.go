package ast

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestKindString(t *testing.T) {
	assert.Equal(t, "Template", KindTemplate.String())
	assert.Equal(t, "ControlExpr", KindControl.String())
	assert.Equal(t, "BreakDirective", KindBreak.String())
	assert.Equal(t, "Kind(99)", Kind(99).String())
}

func TestKindsCoversEveryName(t *testing.T) {
	kinds := Kinds()
	require.Len(t, kinds, len(kindNames))
	for i, k := range kinds {
		assert.Equal(t, Kind(i), k)
		assert.NotEmpty(t, k.String())
	}
}

func TestPosition(t *testing.T) {
	pos := Span(3, 7, 3, 12)
	assert.Equal(t, "3:7", pos.String())
	assert.False(t, pos.IsZero())
	assert.True(t, Position{}.IsZero())

	node := &Text{Value: "x", Position: pos}
	assert.Equal(t, pos, node.Pos())
}

func TestInspectPreorder(t *testing.T) {
	tree := &Template{Children: []Node{
		&Text{Value: "a"},
		&Control{Clauses: []Clause{
			{Header: Fragment{Code: "if ok"}, Body: []Node{&Text{Value: "b"}}},
			{Header: Fragment{Code: "else"}, Body: []Node{&Break{}}},
		}},
		&Component{
			Name:   "Card",
			Params: []Param{{Name: "footer", Value: BlockValue{Nodes: []Node{&Raw{Value: "f"}}}}},
			Body:   []Node{&ChildContent{}},
		},
		&SectionDirective{Name: "title", Content: &SimpleExpr{Code: "t.Title", Escape: true}},
	}}

	var kinds []Kind
	Inspect(tree, func(n Node) bool {
		kinds = append(kinds, n.Kind())
		return true
	})

	assert.Equal(t, []Kind{
		KindTemplate, KindText, KindControl, KindText, KindBreak,
		KindComponent, KindRaw, KindChildContent,
		KindSectionDirective, KindSimpleExpr,
	}, kinds)
}

func TestInspectSkipsChildren(t *testing.T) {
	tree := &Template{Children: []Node{
		&SectionBlock{Name: "s", Body: []Node{&Text{Value: "hidden"}}},
		&Text{Value: "shown"},
	}}

	var texts []string
	Inspect(tree, func(n Node) bool {
		if text, ok := n.(*Text); ok {
			texts = append(texts, text.Value)
		}
		return n.Kind() != KindSectionBlock
	})
	assert.Equal(t, []string{"shown"}, texts)
}

func TestInspectDoesNotEnterReferencedDocuments(t *testing.T) {
	tree := &Template{Children: []Node{
		&Extends{Path: "layout.yml", Layout: &Template{Children: []Node{&RenderBody{}}}},
		&Use{Alias: "Card", Path: "card.yml", Component: &Template{Children: []Node{&ChildContent{}}}},
	}}

	counts := Count(tree)
	assert.Equal(t, 1, counts[KindExtends])
	assert.Equal(t, 1, counts[KindUse])
	assert.Zero(t, counts[KindRenderBody])
	assert.Zero(t, counts[KindChildContent])
}

func TestFprint(t *testing.T) {
	tree := &Template{Children: []Node{
		&Text{Value: "<p>"},
		&SimpleExpr{Code: "name", Escape: true},
		&CodeBlock{Contents: []BlockContent{
			&Code{Code: "x := 1"},
			&TextLine{Items: []TextItem{&Literal{Value: "v="}, &Splice{Code: "x"}}},
			&NestedBlock{Contents: []BlockContent{&Code{Code: "y := 2"}}},
		}},
		&Use{Alias: "Card", Path: "card.yml", Component: &Template{}},
	}}

	var buf bytes.Buffer
	require.NoError(t, Fprint(&buf, tree, false))

	want := `- Template:
  - Text: "<p>"
  - SimpleExpr: "name"
  - CodeBlock:
    - Code: "x := 1"
    - TextLine:
      - Text: "v="
      - Splice: "x" (raw)
    - NestedBlock:
      - Code: "y := 2"
  - UseDirective: "card.yml" as "Card"
`
	assert.Equal(t, want, buf.String())

	buf.Reset()
	require.NoError(t, Fprint(&buf, tree, true))
	assert.Contains(t, buf.String(), "  - UseDirective: \"card.yml\" as \"Card\"\n    - Template:\n")
}
