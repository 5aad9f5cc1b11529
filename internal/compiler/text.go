package compiler

import (
	"strings"

	"github.com/conneroisu/tmplc/internal/ast"
	"github.com/conneroisu/tmplc/internal/emit"
	"github.com/conneroisu/tmplc/internal/errors"
)

// compileBlock lowers the contents of a code block. Code runs are copied
// verbatim, text lines and text blocks are handled identically, and nested
// blocks get their own scope. A nested block right after code ending in a
// header such as "for _, v := range xs" becomes the body of that header.
func (c *Compiler) compileBlock(contents []ast.BlockContent, pos ast.Position) ([]emit.Op, error) {
	c.depth++
	defer func() { c.depth-- }()
	if c.depth > c.maxDepth {
		return nil, c.fail(errors.NewDepthExceeded(c.maxDepth), pos)
	}

	var (
		out    []emit.Op
		header string
	)
	for i, content := range contents {
		switch bc := content.(type) {
		case *ast.Code:
			if err := c.checkStatement(bc.Code, bc.Position); err != nil {
				return nil, err
			}
			if i+1 < len(contents) {
				if _, nested := contents[i+1].(*ast.NestedBlock); nested {
					if stmts, h, ok := blockHeader(bc.Code); ok {
						if strings.TrimSpace(stmts) != "" {
							out = append(out, emit.Stmt{Code: stmts})
						}
						header = h
						continue
					}
				}
			}
			out = append(out, emit.Stmt{Code: bc.Code})
		case *ast.TextLine:
			ops, err := c.compileTextItems(bc.Items)
			if err != nil {
				return nil, err
			}
			out = append(out, ops...)
		case *ast.TextBlock:
			ops, err := c.compileTextItems(bc.Items)
			if err != nil {
				return nil, err
			}
			out = append(out, ops...)
		case *ast.NestedBlock:
			open := emit.Open{Header: header}
			header = ""
			c.enterScope(open.Header)
			ops, err := c.compileBlock(bc.Contents, bc.Position)
			c.leaveScope(open.Header)
			if err != nil {
				return nil, err
			}
			out = append(out, open)
			out = append(out, ops...)
			out = append(out, emit.Close{})
		default:
			return nil, c.fail(errors.NewInternalError(errors.ErrCodeInternalError,
				"unsupported block content", nil), content.Pos())
		}
	}
	return out, nil
}

func (c *Compiler) compileTextItems(items []ast.TextItem) ([]emit.Op, error) {
	var out []emit.Op
	for _, item := range items {
		switch it := item.(type) {
		case *ast.Literal:
			out = append(out, c.literal(it.Value)...)
		case *ast.Splice:
			ops, err := c.compileExpr(it.Code, it.Escape, it.Position)
			if err != nil {
				return nil, err
			}
			out = append(out, ops...)
		default:
			return nil, c.fail(errors.NewInternalError(errors.ErrCodeInternalError,
				"unsupported text item", nil), item.Pos())
		}
	}
	return out, nil
}
