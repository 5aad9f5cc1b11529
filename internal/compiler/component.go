package compiler

import (
	"context"
	"fmt"
	"go/token"
	"maps"
	"sort"
	"strconv"
	"strings"

	"github.com/conneroisu/tmplc/internal/ast"
	"github.com/conneroisu/tmplc/internal/emit"
	"github.com/conneroisu/tmplc/internal/errors"
)

// compileUse registers a component under its alias. It emits nothing.
func (c *Compiler) compileUse(n *ast.Use) error {
	if n.Component == nil {
		return c.fail(errors.NewUnresolvedComponent(n.Alias).
			WithContext("path", n.Path), n.Position)
	}
	if !token.IsIdentifier(n.Alias) {
		return c.fail(errors.NewMalformedFragment(n.Alias, "component alias is not an identifier"), n.Position)
	}

	if _, ok := c.components[n.Alias]; ok {
		c.logger.Debug(context.Background(), "Component alias rebound",
			"file", c.file,
			"alias", n.Alias,
			"path", n.Path,
		)
	}
	c.components[n.Alias] = n.Component
	c.uses = append(c.uses, emit.Use{Alias: n.Alias, Path: n.Path})
	return nil
}

// compileComponent expands a component invocation in place as one scope. The
// scope opens with closures for the caller body and every block value, so
// they resolve names the way the caller sees them. One binding per parameter
// follows, then the component's compiled subtree, in which every
// ChildContent calls the body closure.
func (c *Compiler) compileComponent(n *ast.Component) ([]emit.Op, error) {
	subtree, ok := c.components[n.Name]
	if !ok {
		return nil, c.fail(errors.NewUnresolvedComponent(n.Name).
			WithSuggestions(n.Name, c.componentNames()), n.Position)
	}

	seen := make(map[string]ast.Position, len(n.Params))
	var hoisted, binds []emit.Op
	for _, p := range n.Params {
		if first, dup := seen[p.Name]; dup {
			return nil, c.fail(errors.NewProtocolViolation(
				fmt.Sprintf("component %s: parameter %q is given twice (first at %s)", n.Name, p.Name, first)),
				paramPos(p, n.Position))
		}
		seen[p.Name] = paramPos(p, n.Position)

		closure, bind, err := c.bindParam(p, n.Position)
		if err != nil {
			return nil, err
		}
		hoisted = append(hoisted, closure...)
		binds = append(binds, bind)
	}

	// The caller body belongs to the caller, so any ChildContent inside it
	// resolves against the enclosing invocation.
	body, err := c.compileClosure(n.Body)
	if err != nil {
		return nil, err
	}
	var child string
	if len(body) > 0 {
		child = c.closureName("child")
		hoisted = append(hoisted, closureOps(child, body)...)
		hoisted = append(hoisted, emit.Stmt{Code: "_ = " + child})
	}

	// Imports made by the component document stay inside its expansion.
	components, uses := c.components, c.uses
	c.components = maps.Clone(components)
	c.slots = append(c.slots, child)
	expanded, err := c.compile(subtree)
	c.slots = c.slots[:len(c.slots)-1]
	c.components, c.uses = components, uses
	if err != nil {
		return nil, err
	}

	out := make([]emit.Op, 0, len(hoisted)+len(binds)+len(expanded)+2)
	out = append(out, emit.Open{})
	out = append(out, hoisted...)
	out = append(out, binds...)
	out = append(out, expanded...)
	out = append(out, emit.Close{})
	return out, nil
}

// compileChildContent calls the body of the innermost component call.
// Outside a component, or for a call without a body, it renders nothing.
func (c *Compiler) compileChildContent() []emit.Op {
	if len(c.slots) == 0 || c.slots[len(c.slots)-1] == "" {
		return nil
	}
	return []emit.Op{emit.Stmt{Code: c.slots[len(c.slots)-1] + "()"}}
}

// compileClosure compiles nodes that will run inside a function literal.
// Branches in them cannot reach loops outside it.
func (c *Compiler) compileClosure(nodes []ast.Node) ([]emit.Op, error) {
	loops, switches := c.loops, c.switches
	c.loops, c.switches = 0, 0
	c.inClosure++
	defer func() {
		c.loops, c.switches = loops, switches
		c.inClosure--
	}()
	return c.compileNodes(nodes)
}

func (c *Compiler) closureName(kind string) string {
	name := fmt.Sprintf("tmplc_%s%d", kind, c.closures)
	c.closures++
	return name
}

func closureOps(name string, body []emit.Op) []emit.Op {
	out := make([]emit.Op, 0, len(body)+2)
	out = append(out, emit.Open{Header: name + " := func()"})
	out = append(out, body...)
	return append(out, emit.Close{})
}

// bindParam returns the binding of a parameter in the component scope. A
// block value also returns the closure rendering the block, declared ahead
// of every binding, and the parameter is bound to that closure.
func (c *Compiler) bindParam(p ast.Param, fallback ast.Position) ([]emit.Op, emit.Op, error) {
	pos := paramPos(p, fallback)
	if !token.IsIdentifier(p.Name) {
		return nil, nil, c.fail(errors.NewMalformedFragment(p.Name, "parameter name is not an identifier"), pos)
	}

	var value string
	switch v := p.Value.(type) {
	case ast.BoolValue:
		value = strconv.FormatBool(v.Value)
	case ast.NumberValue:
		if err := c.checkNumber(v.Lexeme, pos); err != nil {
			return nil, nil, err
		}
		value = v.Lexeme
	case ast.StringValue:
		value = strconv.Quote(v.Value)
	case ast.ParenCode:
		if err := c.checkFragment(v.Code, pos); err != nil {
			return nil, nil, err
		}
		value = "(" + strings.TrimSpace(v.Code) + ")"
	case ast.SimpleCode:
		if err := c.checkFragment(v.Code, pos); err != nil {
			return nil, nil, err
		}
		value = strings.TrimSpace(v.Code)
	case ast.BlockValue:
		ops, err := c.compileClosure(v.Nodes)
		if err != nil {
			return nil, nil, err
		}
		name := c.closureName("block")
		return closureOps(name, ops), emit.Bind{Name: p.Name, Value: name}, nil
	default:
		return nil, nil, c.fail(errors.NewProtocolViolation(
			fmt.Sprintf("parameter %q has no value", p.Name)), pos)
	}

	return nil, emit.Bind{Name: p.Name, Value: value}, nil
}

func (c *Compiler) componentNames() []string {
	names := make([]string, 0, len(c.components))
	for name := range c.components {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func paramPos(p ast.Param, fallback ast.Position) ast.Position {
	if p.Position.IsZero() {
		return fallback
	}
	return p.Position
}
