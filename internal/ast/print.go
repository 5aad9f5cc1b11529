package ast

import (
	"fmt"
	"io"
	"strings"
)

// Fprint writes an indented outline of the tree rooted at n to w. Extends and
// Use print the path of the referenced document; the referenced trees
// themselves are only expanded when expand is true.
func Fprint(w io.Writer, n Node, expand bool) error {
	p := &printer{w: w, expand: expand}
	p.node(n, 0)
	return p.err
}

type printer struct {
	w      io.Writer
	expand bool
	err    error
}

func (p *printer) line(indent int, format string, args ...any) {
	if p.err != nil {
		return
	}
	_, p.err = fmt.Fprintf(p.w, "%s- %s\n", strings.Repeat("  ", indent), fmt.Sprintf(format, args...))
}

func (p *printer) nodes(nodes []Node, indent int) {
	for _, n := range nodes {
		p.node(n, indent)
	}
}

func (p *printer) node(n Node, indent int) {
	switch n := n.(type) {
	case nil:
		p.line(indent, "<nil>")
	case *Template:
		p.line(indent, "Template:")
		p.nodes(n.Children, indent+1)
	case *Text:
		p.line(indent, "Text: %q", n.Value)
	case *InnerText:
		p.line(indent, "InnerText: %q", n.Value)
	case *Comment:
		p.line(indent, "Comment: %q", n.Value)
	case *Extends:
		p.line(indent, "ExtendsDirective: %q", n.Path)
		if p.expand && n.Layout != nil {
			p.node(n.Layout, indent+1)
		}
	case *Render:
		p.line(indent, "RenderDirective: %q", n.Name)
	case *RenderBody:
		p.line(indent, "RenderBody")
	case *CodeBlock:
		p.line(indent, "CodeBlock:")
		p.contents(n.Contents, indent+1)
	case *SimpleExpr:
		p.line(indent, "SimpleExpr: %q%s", n.Code, rawSuffix(n.Escape))
	case *ParenExpr:
		p.line(indent, "ParenExpr: %q%s", n.Code, rawSuffix(n.Escape))
	case *Control:
		p.line(indent, "ControlExpr:")
		for _, c := range n.Clauses {
			p.line(indent+1, "Clause: %q", c.Header.Code)
			p.nodes(c.Body, indent+2)
		}
	case *Match:
		p.line(indent, "MatchExpr: %q", n.Subject.Code)
		for _, arm := range n.Arms {
			p.line(indent+1, "Arm: %q", arm.Pattern.Code)
			p.nodes(arm.Body, indent+2)
		}
	case *SectionDirective:
		p.line(indent, "SectionDirective: %q", n.Name)
		p.node(n.Content, indent+1)
	case *SectionBlock:
		p.line(indent, "SectionBlock: %q", n.Name)
		p.nodes(n.Body, indent+1)
	case *Component:
		p.line(indent, "Component: %q", n.Name)
		for _, param := range n.Params {
			p.param(param, indent+1)
		}
		p.nodes(n.Body, indent+1)
	case *ChildContent:
		p.line(indent, "ChildContent")
	case *Raw:
		p.line(indent, "Raw: %q", n.Value)
	case *Use:
		p.line(indent, "UseDirective: %q as %q", n.Path, n.Alias)
		if p.expand && n.Component != nil {
			p.node(n.Component, indent+1)
		}
	case *Continue:
		p.line(indent, "ContinueDirective")
	case *Break:
		p.line(indent, "BreakDirective")
	default:
		p.line(indent, "%T", n)
	}
}

func (p *printer) param(param Param, indent int) {
	switch v := param.Value.(type) {
	case BoolValue:
		p.line(indent, "Param %s: Bool %v", param.Name, v.Value)
	case NumberValue:
		p.line(indent, "Param %s: Number %s", param.Name, v.Lexeme)
	case StringValue:
		p.line(indent, "Param %s: String %q", param.Name, v.Value)
	case ParenCode:
		p.line(indent, "Param %s: ParenCode %q", param.Name, v.Code)
	case SimpleCode:
		p.line(indent, "Param %s: SimpleCode %q", param.Name, v.Code)
	case BlockValue:
		p.line(indent, "Param %s: Block", param.Name)
		p.nodes(v.Nodes, indent+1)
	default:
		p.line(indent, "Param %s: %T", param.Name, v)
	}
}

func (p *printer) contents(contents []BlockContent, indent int) {
	for _, content := range contents {
		switch c := content.(type) {
		case *Code:
			p.line(indent, "Code: %q", c.Code)
		case *TextLine:
			p.line(indent, "TextLine:")
			p.items(c.Items, indent+1)
		case *TextBlock:
			p.line(indent, "TextBlock:")
			p.items(c.Items, indent+1)
		case *NestedBlock:
			p.line(indent, "NestedBlock:")
			p.contents(c.Contents, indent+1)
		}
	}
}

func (p *printer) items(items []TextItem, indent int) {
	for _, item := range items {
		switch it := item.(type) {
		case *Literal:
			p.line(indent, "Text: %q", it.Value)
		case *Splice:
			p.line(indent, "Splice: %q%s", it.Code, rawSuffix(it.Escape))
		}
	}
}

func rawSuffix(escape bool) string {
	if escape {
		return ""
	}
	return " (raw)"
}
