package compiler

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/conneroisu/tmplc/internal/ast"
	"github.com/conneroisu/tmplc/internal/emit"
	"github.com/conneroisu/tmplc/internal/errors"
)

func TestCodeBlockShapes(t *testing.T) {
	items := []ast.TextItem{
		&ast.Literal{Value: "<li>"},
		&ast.Splice{Code: "item", Escape: true},
		&ast.Literal{Value: "</li>"},
	}
	root := tmpl(&ast.CodeBlock{Contents: []ast.BlockContent{
		&ast.Code{Code: "  total := len(items)\n"},
		&ast.TextLine{Items: items},
		&ast.NestedBlock{Contents: []ast.BlockContent{
			&ast.Code{Code: "x := total * 2"},
			&ast.TextBlock{Items: []ast.TextItem{
				&ast.Literal{Value: "\n    <b>"},
				&ast.Splice{Code: "x"},
				&ast.Literal{Value: "</b>\n"},
			}},
		}},
	}})

	prog := mustCompile(t, root)

	assertOps(t, []emit.Op{
		emit.Stmt{Code: "  total := len(items)\n"},
		emit.Literal{Text: "<li>"},
		emit.Expr{Code: "item", Escape: true},
		emit.Literal{Text: "</li>"},
		emit.Open{},
		emit.Stmt{Code: "x := total * 2"},
		emit.Literal{Text: "\n    <b>"},
		emit.Expr{Code: "x"},
		emit.Literal{Text: "</b>\n"},
		emit.Close{},
	}, prog.Ops)
}

func TestTextLineAndTextBlockCompileAlike(t *testing.T) {
	items := []ast.TextItem{&ast.Literal{Value: "  a  "}, &ast.Splice{Code: "b", Escape: true}}

	line := mustCompile(t, tmpl(&ast.CodeBlock{Contents: []ast.BlockContent{&ast.TextLine{Items: items}}}))
	block := mustCompile(t, tmpl(&ast.CodeBlock{Contents: []ast.BlockContent{&ast.TextBlock{Items: items}}}))

	assertOps(t, line.Ops, block.Ops)
	assert.Equal(t, line.TextSize, block.TextSize)
}

func TestNestedBlocksKeepTheirOwnScope(t *testing.T) {
	root := tmpl(&ast.CodeBlock{Contents: []ast.BlockContent{
		&ast.NestedBlock{Contents: []ast.BlockContent{
			&ast.NestedBlock{Contents: []ast.BlockContent{&ast.Code{Code: "v := 1"}}},
		}},
	}})

	prog := mustCompile(t, root)

	assertOps(t, []emit.Op{
		emit.Open{}, emit.Open{}, emit.Stmt{Code: "v := 1"}, emit.Close{}, emit.Close{},
	}, prog.Ops)
}

func TestMalformedCodeInBlock(t *testing.T) {
	root := tmpl(&ast.CodeBlock{Contents: []ast.BlockContent{
		&ast.Code{Code: "x := 1"},
		&ast.Code{Code: "if x > 0 {", Position: at(2, 3)},
	}})

	_, err := Compile(root)
	assert.ErrorIs(t, err, errors.ErrMalformedFragment)

	var te *errors.TmplcError
	if assert.ErrorAs(t, err, &te) {
		assert.Equal(t, 2, te.Line)
		assert.Contains(t, te.Message, "unclosed {")
	}
}

func TestMalformedSplice(t *testing.T) {
	root := tmpl(&ast.CodeBlock{Contents: []ast.BlockContent{
		&ast.TextLine{Items: []ast.TextItem{&ast.Splice{Code: `"open`}}},
	}})

	_, err := Compile(root)
	assert.ErrorIs(t, err, errors.ErrMalformedFragment)
}

func TestNestedBlockAfterHeaderIsItsBody(t *testing.T) {
	item := &ast.TextLine{Items: []ast.TextItem{
		&ast.Literal{Value: "<li>"}, &ast.Splice{Code: "it", Escape: true}, &ast.Literal{Value: "</li>"},
	}}
	line := func(s string) *ast.TextLine {
		return &ast.TextLine{Items: []ast.TextItem{&ast.Literal{Value: s}}}
	}
	nested := func(contents ...ast.BlockContent) *ast.NestedBlock {
		return &ast.NestedBlock{Contents: contents}
	}

	tests := []struct {
		name     string
		contents []ast.BlockContent
		want     []emit.Op
	}{
		{
			name:     "range loop",
			contents: []ast.BlockContent{&ast.Code{Code: "for _, it := range t.Items"}, nested(item)},
			want: []emit.Op{
				emit.Open{Header: "for _, it := range t.Items"},
				emit.Literal{Text: "<li>"}, emit.Expr{Code: "it", Escape: true}, emit.Literal{Text: "</li>"},
				emit.Close{},
			},
		},
		{
			name:     "three clause loop",
			contents: []ast.BlockContent{&ast.Code{Code: "for i := 0; i < 3; i++"}, nested(line("x"))},
			want: []emit.Op{
				emit.Open{Header: "for i := 0; i < 3; i++"}, emit.Literal{Text: "x"}, emit.Close{},
			},
		},
		{
			name: "statements before the header",
			contents: []ast.BlockContent{
				&ast.Code{Code: "\n  n := len(items)\n  if n > 0\n"},
				nested(&ast.Code{Code: "half := n / 2"}),
			},
			want: []emit.Op{
				emit.Stmt{Code: "\n  n := len(items)"},
				emit.Open{Header: "if n > 0"},
				emit.Stmt{Code: "half := n / 2"},
				emit.Close{},
			},
		},
		{
			name: "statement and header on one line",
			contents: []ast.BlockContent{
				&ast.Code{Code: "ok := check(); if ok"}, nested(line("y")),
			},
			want: []emit.Op{
				emit.Stmt{Code: "ok := check();"},
				emit.Open{Header: "if ok"}, emit.Literal{Text: "y"}, emit.Close{},
			},
		},
		{
			name: "if else",
			contents: []ast.BlockContent{
				&ast.Code{Code: "if t.Admin"}, nested(line("a")),
				&ast.Code{Code: "else if t.Owner"}, nested(line("o")),
				&ast.Code{Code: "else"}, nested(line("b")),
			},
			want: []emit.Op{
				emit.Open{Header: "if t.Admin"}, emit.Literal{Text: "a"}, emit.Close{},
				emit.Open{Header: "else if t.Owner"}, emit.Literal{Text: "o"}, emit.Close{},
				emit.Open{Header: "else"}, emit.Literal{Text: "b"}, emit.Close{},
			},
		},
		{
			name: "switch",
			contents: []ast.BlockContent{
				&ast.Code{Code: "switch t.Kind"},
				nested(&ast.Code{Code: "case 1:"}, line("one"), &ast.Code{Code: "default:"}, line("many")),
			},
			want: []emit.Op{
				emit.Open{Header: "switch t.Kind"},
				emit.Stmt{Code: "case 1:"}, emit.Literal{Text: "one"},
				emit.Stmt{Code: "default:"}, emit.Literal{Text: "many"},
				emit.Close{},
			},
		},
		{
			name: "function literal",
			contents: []ast.BlockContent{
				&ast.Code{Code: "row := func(s string)"},
				nested(&ast.TextLine{Items: []ast.TextItem{&ast.Splice{Code: "s", Escape: true}}}),
				&ast.Code{Code: `row("a")`},
			},
			want: []emit.Op{
				emit.Open{Header: "row := func(s string)"},
				emit.Expr{Code: "s", Escape: true},
				emit.Close{},
				emit.Stmt{Code: `row("a")`},
			},
		},
		{
			name: "trailing comment is dropped",
			contents: []ast.BlockContent{
				&ast.Code{Code: "for _, it := range t.Items // every item"}, nested(item),
			},
			want: []emit.Op{
				emit.Open{Header: "for _, it := range t.Items"},
				emit.Literal{Text: "<li>"}, emit.Expr{Code: "it", Escape: true}, emit.Literal{Text: "</li>"},
				emit.Close{},
			},
		},
		{
			name:     "plain statement keeps a bare block",
			contents: []ast.BlockContent{&ast.Code{Code: "x := 1"}, nested(&ast.Code{Code: "y := x"})},
			want: []emit.Op{
				emit.Stmt{Code: "x := 1"}, emit.Open{}, emit.Stmt{Code: "y := x"}, emit.Close{},
			},
		},
		{
			name:     "call with a closure argument keeps a bare block",
			contents: []ast.BlockContent{&ast.Code{Code: "sort.Slice(xs, func(i, j int) bool { return xs[i] < xs[j] })"}, nested()},
			want: []emit.Op{
				emit.Stmt{Code: "sort.Slice(xs, func(i, j int) bool { return xs[i] < xs[j] })"}, emit.Open{}, emit.Close{},
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			prog := mustCompile(t, tmpl(&ast.CodeBlock{Contents: tt.contents}))
			assertOps(t, tt.want, prog.Ops)
		})
	}
}

func TestLineCommentsInCodeBlocks(t *testing.T) {
	prog := mustCompile(t, tmpl(&ast.CodeBlock{Contents: []ast.BlockContent{
		&ast.Code{Code: "total := 0 // running sum"},
	}}))
	assertOps(t, []emit.Op{emit.Stmt{Code: "total := 0 // running sum"}}, prog.Ops)

	_, err := Compile(tmpl(&ast.CodeBlock{Contents: []ast.BlockContent{
		&ast.TextLine{Items: []ast.TextItem{&ast.Splice{Code: "total // running sum", Escape: true}}},
	}}))
	assert.ErrorIs(t, err, errors.ErrMalformedFragment)
}
