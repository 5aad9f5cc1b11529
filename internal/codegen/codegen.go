// Package codegen serializes compiled programs into Go source.
//
// Each template becomes a set of methods on a type the application declares
// in the same package. Fragments in the template refer to that type through
// the receiver, so a template written against page data uses expressions
// such as t.User.Name.
package codegen

import (
	"bytes"
	"fmt"
	"go/format"
	"go/token"
	"io"
	"path"
	"strconv"
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/conneroisu/tmplc/internal/emit"
	"github.com/conneroisu/tmplc/internal/errors"
)

// Writer is the name of the output writer inside generated Render methods.
const Writer = "tmplc_w"

// Options control the generated file.
type Options struct {
	// Package is the package clause of the generated file.
	Package string
	// TypeName is the receiver type. Derived from Source when empty.
	TypeName string
	// Receiver is the receiver variable name. Defaults to "t".
	Receiver string
	// Source is the template path, recorded in the file header.
	Source string
}

// TypeName derives an exported Go identifier from a template path, so
// pages/user_profile.yaml becomes UserProfile.
func TypeName(source string) string {
	base := path.Base(strings.ReplaceAll(source, "\\", "/"))
	if ext := path.Ext(base); ext != "" {
		base = strings.TrimSuffix(base, ext)
	}

	caser := cases.Title(language.Und, cases.NoLower)
	var sb strings.Builder
	for _, part := range strings.FieldsFunc(base, func(r rune) bool {
		return !(r == '_' || (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z') || (r >= '0' && r <= '9'))
	}) {
		for _, p := range strings.Split(part, "_") {
			sb.WriteString(caser.String(p))
		}
	}

	name := sb.String()
	if name == "" || !token.IsIdentifier(name) {
		name = "Template" + name
	}
	return name
}

// Generate writes the gofmt'ed Go source for prog to w.
func Generate(w io.Writer, prog *emit.Program, opts Options) error {
	src, err := Source(prog, opts)
	if err != nil {
		return err
	}
	if _, err := w.Write(src); err != nil {
		return errors.WrapIO(err, errors.ErrCodeWriteFailed, "cannot write generated source")
	}
	return nil
}

// Source returns the gofmt'ed Go source for prog.
func Source(prog *emit.Program, opts Options) ([]byte, error) {
	if opts.Package == "" {
		opts.Package = "views"
	}
	if opts.TypeName == "" {
		opts.TypeName = TypeName(opts.Source)
	}
	if opts.Receiver == "" {
		opts.Receiver = "t"
	}
	for _, ident := range []string{opts.Package, opts.TypeName, opts.Receiver} {
		if !token.IsIdentifier(ident) {
			return nil, errors.NewConfigError(errors.ErrCodeConfigInvalid,
				fmt.Sprintf("%q is not a valid Go identifier", ident))
		}
	}
	if !emit.Balanced(prog.Ops) {
		return nil, errors.NewInternalError(errors.ErrCodeInternalError, "unbalanced program", nil)
	}

	g := &generator{opts: opts, prog: prog}
	g.file()

	out, err := format.Source(g.buf.Bytes())
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrorTypeMalformedFragment, errors.ErrCodeMalformedFragment,
			"generated code does not parse").
			WithFile(opts.Source).
			WithContext("source", g.buf.String())
	}
	return out, nil
}

type generator struct {
	opts Options
	prog *emit.Program
	buf  bytes.Buffer
}

func (g *generator) printf(format string, args ...any) {
	fmt.Fprintf(&g.buf, format, args...)
}

func (g *generator) file() {
	name := g.opts.TypeName
	recv := g.opts.Receiver

	g.printf("// Code generated by tmplc. DO NOT EDIT.\n")
	if g.opts.Source != "" {
		g.printf("// source: %s\n", g.opts.Source)
	}
	g.printf("\npackage %s\n\n", g.opts.Package)
	g.printf("import (\n\t\"io\"\n\t\"strings\"\n\n\t\"github.com/conneroisu/tmplc/pkg/render\"\n)\n\n")

	for _, u := range g.prog.Uses {
		g.printf("// %s uses component %s from %s.\n", name, u.Alias, u.Path)
	}
	if len(g.prog.Uses) > 0 {
		g.printf("\n")
	}

	g.printf("// %sLayout is the layout wrapping %s, empty when there is none.\n", name, name)
	g.printf("const %sLayout = %s\n\n", name, strconv.Quote(g.prog.Layout))
	g.printf("// %sSizeHint is the initial output buffer capacity for %s.\n", name, name)
	g.printf("const %sSizeHint = %d\n\n", name, g.prog.SizeHint())

	g.printf("// Render writes the template to w.\n")
	g.printf("func (%s *%s) Render(w io.Writer) error {\n", recv, name)
	g.printf("%s := render.NewWriter(w)\n", Writer)
	g.body(g.prog.Ops)
	g.printf("return %s.Err()\n}\n\n", Writer)

	g.printf("// RenderString renders the template into a string.\n")
	g.printf("func (%s *%s) RenderString() (string, error) {\n", recv, name)
	g.printf("var sb strings.Builder\nsb.Grow(%sSizeHint)\n", name)
	g.printf("err := %s.Render(&sb)\nreturn sb.String(), err\n}\n\n", recv)

	g.printf("// SectionNames lists the sections the template declares.\n")
	g.printf("func (%s *%s) SectionNames() []string {\n", recv, name)
	if len(g.prog.Sections) == 0 {
		g.printf("return nil\n}\n\n")
	} else {
		g.printf("return []string{%s}\n}\n\n", quoteList(g.prog.Sections))
	}

	g.printf("// HasSection reports whether the template declares the named section.\n")
	g.printf("func (%s *%s) HasSection(name string) bool {\n", recv, name)
	if len(g.prog.Sections) == 0 {
		g.printf("return false\n}\n")
	} else {
		g.printf("switch name {\ncase %s:\nreturn true\n}\nreturn false\n}\n", quoteList(g.prog.Sections))
	}
}

// scope tracks an open brace while serializing ops.
type scope struct {
	loop  bool
	swtch bool
	label string
	opIdx int
}

// body serializes ops. A break that sits inside a switch nested in a loop
// targets the loop through a label, since a bare break would only leave the
// switch.
func (g *generator) body(ops []emit.Op) {
	labels := loopLabels(ops)

	var (
		stack        []scope
		closePending bool
	)
	flushClose := func() {
		if closePending {
			g.printf("\n")
			closePending = false
		}
	}

	for i, op := range ops {
		if o, ok := op.(emit.Open); ok && closePending && isElse(o.Header) {
			g.printf(" %s {\n", o.Header)
			closePending = false
			stack = append(stack, scope{opIdx: i})
			continue
		}
		flushClose()

		switch op := op.(type) {
		case emit.Literal:
			g.printf("%s.Literal(%s)\n", Writer, strconv.Quote(op.Text))
		case emit.Expr:
			if op.Escape {
				g.printf("%s.Escaped(%s)\n", Writer, op.Code)
			} else {
				g.printf("%s.Raw(%s)\n", Writer, op.Code)
			}
		case emit.Stmt:
			g.printf("%s\n", op.Code)
		case emit.Open:
			s := scope{opIdx: i, loop: isLoop(op.Header), swtch: isSwitch(op.Header)}
			if label, ok := labels[i]; ok {
				s.label = label
				g.printf("%s:\n", label)
			}
			stack = append(stack, s)
			if op.Header == "" {
				g.printf("{\n")
			} else {
				g.printf("%s {\n", op.Header)
			}
		case emit.Switch:
			stack = append(stack, scope{opIdx: i, swtch: true})
			g.printf("switch %s {\n", op.Subject)
		case emit.Case:
			if op.Pattern == "" {
				g.printf("default:\n")
			} else {
				g.printf("case %s:\n", op.Pattern)
			}
		case emit.Close:
			stack = stack[:len(stack)-1]
			g.printf("}")
			closePending = true
		case emit.Branch:
			g.printf("%s\n", branchTarget(op.Keyword, stack))
		case emit.Bind:
			g.printf("%s := %s\n_ = %s\n", op.Name, op.Value, op.Name)
		}
	}
	flushClose()
}

// branchTarget renders keyword, labelled when a switch sits between it and
// the enclosing loop.
func branchTarget(keyword emit.BranchKeyword, stack []scope) string {
	if keyword != emit.Break {
		return string(keyword)
	}
	crossesSwitch := false
	for i := len(stack) - 1; i >= 0; i-- {
		if stack[i].swtch {
			crossesSwitch = true
		}
		if stack[i].loop {
			if crossesSwitch && stack[i].label != "" {
				return string(keyword) + " " + stack[i].label
			}
			break
		}
	}
	return string(keyword)
}

// loopLabels finds the loops that need a label and names them by the index
// of their Open op.
func loopLabels(ops []emit.Op) map[int]string {
	labels := make(map[int]string)
	var stack []scope
	for i, op := range ops {
		switch op := op.(type) {
		case emit.Open:
			stack = append(stack, scope{opIdx: i, loop: isLoop(op.Header), swtch: isSwitch(op.Header)})
		case emit.Switch:
			stack = append(stack, scope{opIdx: i, swtch: true})
		case emit.Close:
			stack = stack[:len(stack)-1]
		case emit.Branch:
			if op.Keyword != emit.Break {
				continue
			}
			crossesSwitch := false
			for j := len(stack) - 1; j >= 0; j-- {
				if stack[j].swtch {
					crossesSwitch = true
				}
				if stack[j].loop {
					if _, ok := labels[stack[j].opIdx]; crossesSwitch && !ok {
						labels[stack[j].opIdx] = fmt.Sprintf("tmplc_loop%d", len(labels))
					}
					break
				}
			}
		}
	}
	return labels
}

func isLoop(header string) bool {
	return header == "for" || strings.HasPrefix(header, "for ")
}

func isSwitch(header string) bool {
	return header == "switch" || strings.HasPrefix(header, "switch ") ||
		header == "select" || strings.HasPrefix(header, "select ")
}

func isElse(header string) bool {
	return header == "else" || strings.HasPrefix(header, "else ")
}

func quoteList(names []string) string {
	quoted := make([]string, len(names))
	for i, n := range names {
		quoted[i] = strconv.Quote(n)
	}
	return strings.Join(quoted, ", ")
}
