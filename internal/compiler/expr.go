package compiler

import (
	"fmt"
	"strings"

	"github.com/conneroisu/tmplc/internal/ast"
	"github.com/conneroisu/tmplc/internal/emit"
	"github.com/conneroisu/tmplc/internal/errors"
)

func (c *Compiler) compileExpr(code string, escape bool, pos ast.Position) ([]emit.Op, error) {
	if err := c.checkFragment(code, pos); err != nil {
		return nil, err
	}
	return []emit.Op{emit.Expr{Code: code, Escape: escape}}, nil
}

// compileControl emits each clause as a scope headed by its fragment. The
// clauses are chained in source order.
func (c *Compiler) compileControl(n *ast.Control) ([]emit.Op, error) {
	var out []emit.Op
	for _, clause := range n.Clauses {
		if err := c.checkFragment(clause.Header.Code, headerPos(clause.Header, n.Position)); err != nil {
			return nil, err
		}
		header := strings.TrimSpace(clause.Header.Code)
		c.enterScope(header)
		body, err := c.compileNodes(clause.Body)
		c.leaveScope(header)
		if err != nil {
			return nil, err
		}
		out = append(out, emit.Open{Header: header})
		out = append(out, body...)
		out = append(out, emit.Close{})
	}
	return out, nil
}

// wildcardPattern is the catch-all arm; it becomes the default case.
const wildcardPattern = "_"

func (c *Compiler) compileMatch(n *ast.Match) ([]emit.Op, error) {
	if err := c.checkFragment(n.Subject.Code, headerPos(n.Subject, n.Position)); err != nil {
		return nil, err
	}

	c.switches++
	defer func() { c.switches-- }()

	out := []emit.Op{emit.Switch{Subject: strings.TrimSpace(n.Subject.Code)}}
	for _, arm := range n.Arms {
		pattern := strings.TrimSpace(arm.Pattern.Code)
		if pattern == wildcardPattern {
			pattern = ""
		} else if err := c.checkFragment(arm.Pattern.Code, headerPos(arm.Pattern, n.Position)); err != nil {
			return nil, err
		}

		body, err := c.compileNodes(arm.Body)
		if err != nil {
			return nil, err
		}
		out = append(out, emit.Case{Pattern: pattern})
		out = append(out, body...)
	}
	return append(out, emit.Close{}), nil
}

// headerPos prefers the fragment's own span over the enclosing node's.
func headerPos(f ast.Fragment, fallback ast.Position) ast.Position {
	if f.Position.IsZero() {
		return fallback
	}
	return f.Position
}

// compileBranch emits a continue or break. Inside a closure it must target a
// loop or switch of the same closure, since Go branches cannot leave a
// function literal.
func (c *Compiler) compileBranch(keyword emit.BranchKeyword, pos ast.Position) ([]emit.Op, error) {
	if c.inClosure > 0 && c.loops == 0 && (keyword == emit.Continue || c.switches == 0) {
		return nil, c.fail(errors.NewProtocolViolation(
			fmt.Sprintf("%s in component content has no enclosing loop inside that content", keyword)), pos)
	}
	return []emit.Op{emit.Branch{Keyword: keyword}}, nil
}

// enterScope and leaveScope count the loops and switches around the node
// being compiled.
func (c *Compiler) enterScope(header string) {
	switch {
	case isLoopHeader(header):
		c.loops++
	case isSwitchHeader(header):
		c.switches++
	}
}

func (c *Compiler) leaveScope(header string) {
	switch {
	case isLoopHeader(header):
		c.loops--
	case isSwitchHeader(header):
		c.switches--
	}
}

func isLoopHeader(header string) bool {
	return hasKeyword(header, "for")
}

func isSwitchHeader(header string) bool {
	return hasKeyword(header, "switch") || hasKeyword(header, "select")
}

func hasKeyword(header, keyword string) bool {
	header = strings.TrimSpace(header)
	return header == keyword || strings.HasPrefix(header, keyword+" ")
}
