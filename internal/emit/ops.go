// Package emit defines the emission operations the compiler lowers a
// template into. A program is a flat sequence of operations; scopes are
// expressed with matching Open/Close pairs so that serializers can stream
// the sequence without rebuilding a tree.
package emit

import (
	"fmt"
	"io"
	"strings"
)

// Op is one emission operation.
type Op interface {
	op()
}

// Literal writes text that is known at compile time.
type Literal struct {
	Text string
}

// Expr evaluates Code and writes its textual form, HTML-escaped when Escape
// is set.
type Expr struct {
	Code   string
	Escape bool
}

// Stmt is a run of Go statements copied verbatim.
type Stmt struct {
	Code string
}

// Open starts a scope. Header is the control header that precedes the brace
// ("if x", "else", "for ..."); an empty header opens a bare block.
type Open struct {
	Header string
}

// Close ends the innermost Open or Switch.
type Close struct{}

// Switch starts a multi-way branch over Subject. It is closed by Close.
type Switch struct {
	Subject string
}

// Case starts one arm of the enclosing Switch. An empty Pattern is the
// default arm.
type Case struct {
	Pattern string
}

// Branch is a loop control statement.
type Branch struct {
	Keyword BranchKeyword
}

// Bind declares Name with the value of the Go expression Value in the
// current scope.
type Bind struct {
	Name  string
	Value string
}

// BranchKeyword is continue or break.
type BranchKeyword string

const (
	Continue BranchKeyword = "continue"
	Break    BranchKeyword = "break"
)

func (Literal) op() {}
func (Expr) op()    {}
func (Stmt) op()    {}
func (Open) op()    {}
func (Close) op()   {}
func (Switch) op()  {}
func (Case) op()    {}
func (Branch) op()  {}
func (Bind) op()    {}

// Compact merges adjacent literals and drops empty ones. The input is not
// modified.
func Compact(ops []Op) []Op {
	out := make([]Op, 0, len(ops))
	for _, op := range ops {
		lit, ok := op.(Literal)
		if !ok {
			out = append(out, op)
			continue
		}
		if lit.Text == "" {
			continue
		}
		if n := len(out); n > 0 {
			if prev, ok := out[n-1].(Literal); ok {
				out[n-1] = Literal{Text: prev.Text + lit.Text}
				continue
			}
		}
		out = append(out, lit)
	}
	return out
}

// Balanced reports whether every Open and Switch has a matching Close and
// every Case sits directly inside a Switch.
func Balanced(ops []Op) bool {
	var stack []bool // true for switch scopes
	for _, op := range ops {
		switch op.(type) {
		case Open:
			stack = append(stack, false)
		case Switch:
			stack = append(stack, true)
		case Case:
			if len(stack) == 0 || !stack[len(stack)-1] {
				return false
			}
		case Close:
			if len(stack) == 0 {
				return false
			}
			stack = stack[:len(stack)-1]
		}
	}
	return len(stack) == 0
}

// Fprint writes a readable listing of ops, one per line, indented by scope.
func Fprint(w io.Writer, ops []Op) error {
	depth := 0
	for _, op := range ops {
		if _, ok := op.(Close); ok && depth > 0 {
			depth--
		}
		indent := strings.Repeat("  ", depth)
		if _, ok := op.(Case); ok && depth > 0 {
			indent = strings.Repeat("  ", depth-1)
		}
		if _, err := fmt.Fprintf(w, "%s%s\n", indent, Format(op)); err != nil {
			return err
		}
		switch op.(type) {
		case Open, Switch:
			depth++
		}
	}
	return nil
}

// Format renders a single op.
func Format(op Op) string {
	switch op := op.(type) {
	case Literal:
		return fmt.Sprintf("literal %q", op.Text)
	case Expr:
		if op.Escape {
			return fmt.Sprintf("escaped %s", op.Code)
		}
		return fmt.Sprintf("raw %s", op.Code)
	case Stmt:
		return fmt.Sprintf("stmt %s", op.Code)
	case Open:
		if op.Header == "" {
			return "open"
		}
		return fmt.Sprintf("open %s", op.Header)
	case Close:
		return "close"
	case Switch:
		return fmt.Sprintf("switch %s", op.Subject)
	case Case:
		if op.Pattern == "" {
			return "default"
		}
		return fmt.Sprintf("case %s", op.Pattern)
	case Branch:
		return string(op.Keyword)
	case Bind:
		return fmt.Sprintf("bind %s = %s", op.Name, op.Value)
	default:
		return fmt.Sprintf("%T", op)
	}
}
