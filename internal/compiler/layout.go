package compiler

import (
	"context"
	"fmt"

	"github.com/conneroisu/tmplc/internal/ast"
	"github.com/conneroisu/tmplc/internal/emit"
	"github.com/conneroisu/tmplc/internal/errors"
)

// compileExtends records the layout. A template may extend at most one
// layout, and a layout may not extend another.
func (c *Compiler) compileExtends(n *ast.Extends) error {
	switch {
	case c.layoutPass:
		return c.fail(errors.NewProtocolViolation(
			fmt.Sprintf("layout extends %q: chained layouts are not supported", n.Path)), n.Position)
	case c.layout != nil:
		return c.fail(errors.NewProtocolViolation(
			fmt.Sprintf("template already extends %q; a template may extend only one layout", c.layoutPath)).
			WithContext("layout", n.Path), n.Position)
	case n.Layout == nil:
		return c.fail(errors.NewProtocolViolation(
			fmt.Sprintf("extends %q has no layout document", n.Path)), n.Position)
	}

	c.layout = n.Layout
	c.layoutPath = n.Path
	return nil
}

func (c *Compiler) compileSectionDirective(n *ast.SectionDirective) error {
	ops, err := c.compile(n.Content)
	if err != nil {
		return err
	}
	c.registerSection(n.Name, ops)
	return nil
}

func (c *Compiler) compileSectionBlock(n *ast.SectionBlock) error {
	ops, err := c.compileNodes(n.Body)
	if err != nil {
		return err
	}
	c.registerSection(n.Name, ops)
	return nil
}

// registerSection stores ops under name, replacing an earlier registration.
func (c *Compiler) registerSection(name string, ops []emit.Op) {
	if _, ok := c.sections[name]; ok {
		c.logger.Debug(context.Background(), "Section redefined",
			"file", c.file,
			"section", name,
		)
	}
	if ops == nil {
		ops = []emit.Op{}
	}
	c.sections[name] = ops
}

// compileRender splices a registered section. An unknown name renders
// nothing.
func (c *Compiler) compileRender(n *ast.Render) []emit.Op {
	ops, ok := c.sections[n.Name]
	if !ok {
		c.logger.Debug(context.Background(), "Rendering undeclared section",
			"file", c.file,
			"section", n.Name,
			"position", n.Position.String(),
		)
		return nil
	}
	return cloneOps(ops)
}

// compileRenderBody splices the child template output while compiling a
// layout, and renders nothing otherwise.
func (c *Compiler) compileRenderBody() []emit.Op {
	if !c.hasBody {
		return nil
	}
	return cloneOps(c.sectionBody)
}

func cloneOps(ops []emit.Op) []emit.Op {
	if len(ops) == 0 {
		return nil
	}
	return append([]emit.Op(nil), ops...)
}
