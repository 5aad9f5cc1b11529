// Package astfile reads serialized template syntax trees.
//
// A parser front-end writes each template as a YAML document that mirrors
// the ast package: every node is a mapping with a kind discriminator, an
// optional pos span and kind specific fields. A document is either a single
// template mapping or a bare sequence of top-level nodes.
//
//	- kind: extends
//	  path: layouts/main.yaml
//	- kind: section
//	  name: title
//	  text: Home
//	- kind: text
//	  text: "<p>"
//	- kind: expr
//	  code: user.Name
//	- kind: text
//	  text: "</p>"
//
// Extends and use directives name other documents by path; the Loader
// decodes those into the layout and component subtrees.
package astfile

import (
	"fmt"
	"io"

	"gopkg.in/yaml.v3"

	"github.com/conneroisu/tmplc/internal/ast"
	"github.com/conneroisu/tmplc/internal/errors"
)

// Resolver supplies the subtree of a document referenced by extends or use.
type Resolver interface {
	Resolve(path string) (ast.Node, error)
}

// ResolverFunc adapts a function to Resolver.
type ResolverFunc func(path string) (ast.Node, error)

// Resolve calls f.
func (f ResolverFunc) Resolve(path string) (ast.Node, error) { return f(path) }

// Node kinds as written in documents.
const (
	kindTemplate     = "template"
	kindText         = "text"
	kindInnerText    = "inner_text"
	kindComment      = "comment"
	kindExtends      = "extends"
	kindRender       = "render"
	kindRenderBody   = "render_body"
	kindBlock        = "block"
	kindExpr         = "expr"
	kindParenExpr    = "paren_expr"
	kindMatch        = "match"
	kindControl      = "control"
	kindSection      = "section"
	kindSectionBlock = "section_block"
	kindComponent    = "component"
	kindChildContent = "child_content"
	kindRaw          = "raw"
	kindUse          = "use"
	kindContinue     = "continue"
	kindBreak        = "break"
)

// Block content kinds.
const (
	contentCode   = "code"
	contentLine   = "line"
	contentText   = "text_block"
	contentNested = "nested"
)

type rawNode struct {
	Kind     string      `yaml:"kind"`
	Pos      []int       `yaml:"pos"`
	Text     *string     `yaml:"text"`
	Code     *string     `yaml:"code"`
	Escape   *bool       `yaml:"escape"`
	Name     string      `yaml:"name"`
	Path     string      `yaml:"path"`
	Alias    string      `yaml:"alias"`
	Subject  string      `yaml:"subject"`
	Children []yaml.Node `yaml:"children"`
	Body     []yaml.Node `yaml:"body"`
	Contents []yaml.Node `yaml:"contents"`
	Clauses  []yaml.Node `yaml:"clauses"`
	Arms     []yaml.Node `yaml:"arms"`
	Params   []yaml.Node `yaml:"params"`
}

type rawClause struct {
	Header string      `yaml:"header"`
	Pos    []int       `yaml:"pos"`
	Body   []yaml.Node `yaml:"body"`
}

type rawArm struct {
	Pattern string      `yaml:"pattern"`
	Pos     []int       `yaml:"pos"`
	Body    []yaml.Node `yaml:"body"`
}

type rawParam struct {
	Name   string      `yaml:"name"`
	Pos    []int       `yaml:"pos"`
	Bool   *bool       `yaml:"bool"`
	Number *yaml.Node  `yaml:"number"`
	String *string     `yaml:"string"`
	Paren  *string     `yaml:"paren"`
	Code   *string     `yaml:"code"`
	Block  []yaml.Node `yaml:"block"`
}

type rawContent struct {
	Kind     string      `yaml:"kind"`
	Pos      []int       `yaml:"pos"`
	Code     string      `yaml:"code"`
	Items    []yaml.Node `yaml:"items"`
	Contents []yaml.Node `yaml:"contents"`
}

type rawItem struct {
	Pos    []int   `yaml:"pos"`
	Text   *string `yaml:"text"`
	Expr   *string `yaml:"expr"`
	Escape *bool   `yaml:"escape"`
}

// Decode reads one document from r. name identifies the document in
// errors. resolver may be nil when the document has no extends or use
// directives.
func Decode(r io.Reader, name string, resolver Resolver) (*ast.Template, error) {
	var doc yaml.Node
	if err := yaml.NewDecoder(r).Decode(&doc); err != nil {
		if err == io.EOF {
			return &ast.Template{}, nil
		}
		return nil, errors.NewDocumentError(errors.ErrCodeInvalidDocument,
			"cannot parse AST document", err).WithFile(name)
	}

	d := &decoder{name: name, resolver: resolver}
	root := &doc
	if root.Kind == yaml.DocumentNode && len(root.Content) > 0 {
		root = root.Content[0]
	}

	switch root.Kind {
	case yaml.SequenceNode:
		children, err := d.nodes(root.Content)
		if err != nil {
			return nil, err
		}
		return &ast.Template{Children: children}, nil
	case yaml.MappingNode:
		n, err := d.node(root)
		if err != nil {
			return nil, err
		}
		if t, ok := n.(*ast.Template); ok {
			return t, nil
		}
		return &ast.Template{Children: []ast.Node{n}, Position: n.Pos()}, nil
	default:
		return nil, d.errorf(root, "document must be a node mapping or a node list")
	}
}

type decoder struct {
	name     string
	resolver Resolver
}

func (d *decoder) errorf(n *yaml.Node, format string, args ...any) error {
	return errors.NewDocumentError(errors.ErrCodeInvalidDocument, fmt.Sprintf(format, args...), nil).
		WithLocation(d.name, n.Line, n.Column)
}

func (d *decoder) nodes(list []*yaml.Node) ([]ast.Node, error) {
	out := make([]ast.Node, 0, len(list))
	for _, yn := range list {
		n, err := d.node(yn)
		if err != nil {
			return nil, err
		}
		out = append(out, n)
	}
	return out, nil
}

func (d *decoder) nodeList(list []yaml.Node) ([]ast.Node, error) {
	ptrs := make([]*yaml.Node, len(list))
	for i := range list {
		ptrs[i] = &list[i]
	}
	return d.nodes(ptrs)
}

func (d *decoder) node(yn *yaml.Node) (ast.Node, error) {
	if yn.Kind != yaml.MappingNode {
		return nil, d.errorf(yn, "node must be a mapping")
	}

	var raw rawNode
	if err := yn.Decode(&raw); err != nil {
		return nil, errors.NewDocumentError(errors.ErrCodeInvalidDocument, "invalid node", err).
			WithLocation(d.name, yn.Line, yn.Column)
	}

	pos, err := d.position(yn, raw.Pos)
	if err != nil {
		return nil, err
	}

	switch raw.Kind {
	case kindTemplate:
		children, err := d.nodeList(raw.Children)
		if err != nil {
			return nil, err
		}
		return &ast.Template{Children: children, Position: pos}, nil
	case kindText:
		return &ast.Text{Value: deref(raw.Text), Position: pos}, nil
	case kindInnerText:
		return &ast.InnerText{Value: deref(raw.Text), Position: pos}, nil
	case kindComment:
		return &ast.Comment{Value: deref(raw.Text), Position: pos}, nil
	case kindRaw:
		return &ast.Raw{Value: deref(raw.Text), Position: pos}, nil
	case kindExtends:
		if raw.Path == "" {
			return nil, d.errorf(yn, "extends needs a path")
		}
		layout, err := d.resolve(yn, raw.Path)
		if err != nil {
			return nil, err
		}
		return &ast.Extends{Path: raw.Path, Layout: layout, Position: pos}, nil
	case kindRender:
		if raw.Name == "" {
			return nil, d.errorf(yn, "render needs a section name")
		}
		return &ast.Render{Name: raw.Name, Position: pos}, nil
	case kindRenderBody:
		return &ast.RenderBody{Position: pos}, nil
	case kindBlock:
		contents, err := d.contents(raw.Contents)
		if err != nil {
			return nil, err
		}
		return &ast.CodeBlock{Contents: contents, Position: pos}, nil
	case kindExpr:
		return &ast.SimpleExpr{Code: deref(raw.Code), Escape: escapeFlag(raw.Escape), Position: pos}, nil
	case kindParenExpr:
		return &ast.ParenExpr{Code: deref(raw.Code), Escape: escapeFlag(raw.Escape), Position: pos}, nil
	case kindMatch:
		return d.match(yn, &raw, pos)
	case kindControl:
		return d.control(yn, &raw, pos)
	case kindSection:
		return d.section(yn, &raw, pos)
	case kindSectionBlock:
		if raw.Name == "" {
			return nil, d.errorf(yn, "section_block needs a name")
		}
		body, err := d.nodeList(raw.Body)
		if err != nil {
			return nil, err
		}
		return &ast.SectionBlock{Name: raw.Name, Body: body, Position: pos}, nil
	case kindComponent:
		return d.component(yn, &raw, pos)
	case kindChildContent:
		return &ast.ChildContent{Position: pos}, nil
	case kindUse:
		if raw.Path == "" {
			return nil, d.errorf(yn, "use needs a path")
		}
		alias := raw.Alias
		if alias == "" {
			alias = aliasFromPath(raw.Path)
		}
		component, err := d.resolve(yn, raw.Path)
		if err != nil {
			return nil, err
		}
		return &ast.Use{Alias: alias, Path: raw.Path, Component: component, Position: pos}, nil
	case kindContinue:
		return &ast.Continue{Position: pos}, nil
	case kindBreak:
		return &ast.Break{Position: pos}, nil
	case "":
		return nil, d.errorf(yn, "node has no kind")
	default:
		return nil, d.errorf(yn, "unknown node kind %q", raw.Kind)
	}
}

func (d *decoder) resolve(yn *yaml.Node, path string) (ast.Node, error) {
	if d.resolver == nil {
		return nil, d.errorf(yn, "cannot load %q: no resolver", path)
	}
	n, err := d.resolver.Resolve(path)
	if err != nil {
		return nil, errors.EnhanceError(err, "", d.name)
	}
	return n, nil
}

func (d *decoder) match(yn *yaml.Node, raw *rawNode, pos ast.Position) (ast.Node, error) {
	m := &ast.Match{Subject: ast.Fragment{Code: raw.Subject, Position: pos}, Position: pos}
	for i := range raw.Arms {
		an := &raw.Arms[i]
		var arm rawArm
		if err := an.Decode(&arm); err != nil {
			return nil, d.errorf(an, "invalid match arm: %v", err)
		}
		apos, err := d.position(an, arm.Pos)
		if err != nil {
			return nil, err
		}
		body, err := d.nodeList(arm.Body)
		if err != nil {
			return nil, err
		}
		m.Arms = append(m.Arms, ast.MatchArm{
			Pattern: ast.Fragment{Code: arm.Pattern, Position: apos},
			Body:    body,
		})
	}
	return m, nil
}

func (d *decoder) control(yn *yaml.Node, raw *rawNode, pos ast.Position) (ast.Node, error) {
	if len(raw.Clauses) == 0 {
		return nil, d.errorf(yn, "control needs at least one clause")
	}
	c := &ast.Control{Position: pos}
	for i := range raw.Clauses {
		cn := &raw.Clauses[i]
		var clause rawClause
		if err := cn.Decode(&clause); err != nil {
			return nil, d.errorf(cn, "invalid clause: %v", err)
		}
		cpos, err := d.position(cn, clause.Pos)
		if err != nil {
			return nil, err
		}
		body, err := d.nodeList(clause.Body)
		if err != nil {
			return nil, err
		}
		c.Clauses = append(c.Clauses, ast.Clause{
			Header: ast.Fragment{Code: clause.Header, Position: cpos},
			Body:   body,
		})
	}
	return c, nil
}

func (d *decoder) section(yn *yaml.Node, raw *rawNode, pos ast.Position) (ast.Node, error) {
	if raw.Name == "" {
		return nil, d.errorf(yn, "section needs a name")
	}
	s := &ast.SectionDirective{Name: raw.Name, Position: pos}
	switch {
	case raw.Text != nil && raw.Code != nil:
		return nil, d.errorf(yn, "section %q has both text and code", raw.Name)
	case raw.Code != nil:
		s.Content = &ast.SimpleExpr{Code: *raw.Code, Escape: escapeFlag(raw.Escape), Position: pos}
	default:
		s.Content = &ast.Text{Value: deref(raw.Text), Position: pos}
	}
	return s, nil
}

func (d *decoder) component(yn *yaml.Node, raw *rawNode, pos ast.Position) (ast.Node, error) {
	if raw.Name == "" {
		return nil, d.errorf(yn, "component needs a name")
	}
	c := &ast.Component{Name: raw.Name, Position: pos}
	for i := range raw.Params {
		pn := &raw.Params[i]
		p, err := d.param(pn)
		if err != nil {
			return nil, err
		}
		c.Params = append(c.Params, p)
	}
	body, err := d.nodeList(raw.Body)
	if err != nil {
		return nil, err
	}
	c.Body = body
	return c, nil
}

func (d *decoder) param(pn *yaml.Node) (ast.Param, error) {
	var rp rawParam
	if err := pn.Decode(&rp); err != nil {
		return ast.Param{}, d.errorf(pn, "invalid parameter: %v", err)
	}
	if rp.Name == "" {
		return ast.Param{}, d.errorf(pn, "parameter needs a name")
	}
	pos, err := d.position(pn, rp.Pos)
	if err != nil {
		return ast.Param{}, err
	}

	p := ast.Param{Name: rp.Name, Position: pos}
	set := 0
	if rp.Bool != nil {
		p.Value = ast.BoolValue{Value: *rp.Bool}
		set++
	}
	if rp.Number != nil {
		// The scalar's source text keeps 1.0 distinct from 1.
		p.Value = ast.NumberValue{Lexeme: rp.Number.Value}
		set++
	}
	if rp.String != nil {
		p.Value = ast.StringValue{Value: *rp.String}
		set++
	}
	if rp.Paren != nil {
		p.Value = ast.ParenCode{Code: *rp.Paren}
		set++
	}
	if rp.Code != nil {
		p.Value = ast.SimpleCode{Code: *rp.Code}
		set++
	}
	if rp.Block != nil {
		nodes, err := d.nodeList(rp.Block)
		if err != nil {
			return ast.Param{}, err
		}
		p.Value = ast.BlockValue{Nodes: nodes}
		set++
	}
	if set != 1 {
		return ast.Param{}, d.errorf(pn, "parameter %q must have exactly one value, found %d", rp.Name, set)
	}
	return p, nil
}

func (d *decoder) contents(list []yaml.Node) ([]ast.BlockContent, error) {
	out := make([]ast.BlockContent, 0, len(list))
	for i := range list {
		cn := &list[i]
		var rc rawContent
		if err := cn.Decode(&rc); err != nil {
			return nil, d.errorf(cn, "invalid block content: %v", err)
		}
		pos, err := d.position(cn, rc.Pos)
		if err != nil {
			return nil, err
		}

		switch rc.Kind {
		case contentCode:
			out = append(out, &ast.Code{Code: rc.Code, Position: pos})
		case contentLine, contentText:
			items, err := d.items(rc.Items)
			if err != nil {
				return nil, err
			}
			if rc.Kind == contentLine {
				out = append(out, &ast.TextLine{Items: items, Position: pos})
			} else {
				out = append(out, &ast.TextBlock{Items: items, Position: pos})
			}
		case contentNested:
			nested, err := d.contents(rc.Contents)
			if err != nil {
				return nil, err
			}
			out = append(out, &ast.NestedBlock{Contents: nested, Position: pos})
		default:
			return nil, d.errorf(cn, "unknown block content kind %q", rc.Kind)
		}
	}
	return out, nil
}

func (d *decoder) items(list []yaml.Node) ([]ast.TextItem, error) {
	out := make([]ast.TextItem, 0, len(list))
	for i := range list {
		in := &list[i]
		var ri rawItem
		if err := in.Decode(&ri); err != nil {
			return nil, d.errorf(in, "invalid text item: %v", err)
		}
		pos, err := d.position(in, ri.Pos)
		if err != nil {
			return nil, err
		}
		switch {
		case ri.Text != nil && ri.Expr == nil:
			out = append(out, &ast.Literal{Value: *ri.Text, Position: pos})
		case ri.Expr != nil && ri.Text == nil:
			out = append(out, &ast.Splice{Code: *ri.Expr, Escape: escapeFlag(ri.Escape), Position: pos})
		default:
			return nil, d.errorf(in, "text item needs exactly one of text or expr")
		}
	}
	return out, nil
}

// position reads a pos span. Without one, the node's own YAML location is
// used for the start.
func (d *decoder) position(yn *yaml.Node, span []int) (ast.Position, error) {
	switch len(span) {
	case 0:
		return ast.Span(yn.Line, yn.Column, yn.Line, yn.Column), nil
	case 2:
		return ast.Span(span[0], span[1], span[0], span[1]), nil
	case 4:
		return ast.Span(span[0], span[1], span[2], span[3]), nil
	default:
		return ast.Position{}, d.errorf(yn, "pos must have 2 or 4 entries, found %d", len(span))
	}
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

// escapeFlag defaults to escaping.
func escapeFlag(b *bool) bool {
	return b == nil || *b
}
