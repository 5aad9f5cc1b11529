// Package compiler lowers a template syntax tree into emission operations.
//
// A Compiler walks the tree once, depth first, concatenating the operations
// of sibling nodes in source order. The same walk registers sections, the
// layout and imported components in the compiler's state. When the template
// extends a layout, a second walk compiles the layout against that state, so
// the layout's render directives see every section of the child and the
// child's output becomes the layout body.
//
// A Compiler holds the state of exactly one compilation and cannot be reused.
package compiler

import (
	"context"
	"sort"

	"github.com/conneroisu/tmplc/internal/ast"
	"github.com/conneroisu/tmplc/internal/emit"
	"github.com/conneroisu/tmplc/internal/errors"
	"github.com/conneroisu/tmplc/internal/logging"
)

// DefaultMaxDepth is the nesting limit used when no option overrides it.
const DefaultMaxDepth = 256

// Option configures a Compiler.
type Option func(*Compiler)

// WithMaxDepth sets the maximum node nesting depth. Values below one are
// ignored.
func WithMaxDepth(n int) Option {
	return func(c *Compiler) {
		if n > 0 {
			c.maxDepth = n
		}
	}
}

// WithLogger sets the logger used for debug tracing.
func WithLogger(logger logging.Logger) Option {
	return func(c *Compiler) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// WithFile names the template file in diagnostics.
func WithFile(path string) Option {
	return func(c *Compiler) {
		c.file = path
	}
}

// WithDefaultLayout wraps templates that do not extend a layout themselves
// in layout. An extends directive in the template takes precedence.
func WithDefaultLayout(path string, layout ast.Node) Option {
	return func(c *Compiler) {
		c.defaultLayoutPath = path
		c.defaultLayout = layout
	}
}

// Compiler owns the state of a single compilation.
type Compiler struct {
	logger   logging.Logger
	file     string
	maxDepth int

	defaultLayoutPath string
	defaultLayout     ast.Node

	// sections maps a section name to its compiled content. Later
	// registrations replace earlier ones.
	sections map[string][]emit.Op
	// layout is the subtree of the first extends directive.
	layout     ast.Node
	layoutPath string
	// sectionBody is the first pass output, set only before the layout pass.
	sectionBody []emit.Op
	hasBody     bool
	components  map[string]ast.Node
	uses        []emit.Use
	// slots holds the closure rendering the caller body of each active
	// component invocation, innermost last. An empty name means no body.
	slots []string
	// closures numbers the closures declared for bodies and block values.
	closures int
	// loops and switches count the enclosing scopes a branch can target,
	// reset inside each closure.
	loops     int
	switches  int
	inClosure int

	depth      int
	textSize   int
	layoutPass bool
	used       bool
}

// New creates a Compiler.
func New(opts ...Option) *Compiler {
	c := &Compiler{
		logger:     logging.Discard(),
		maxDepth:   DefaultMaxDepth,
		sections:   make(map[string][]emit.Op),
		components: make(map[string]ast.Node),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Compile lowers root into a program. Any error aborts the whole compilation
// and no partial program is returned.
func (c *Compiler) Compile(root ast.Node) (*emit.Program, error) {
	if c.used {
		return nil, errors.NewInternalError(errors.ErrCodeInternalError,
			"compiler state is single use; create a new Compiler", nil)
	}
	c.used = true

	if root == nil {
		return nil, errors.NewInternalError(errors.ErrCodeInternalError, "nil template", nil)
	}

	ctx := context.Background()

	ops, err := c.compile(root)
	if err != nil {
		return nil, err
	}

	if c.layout == nil && c.defaultLayout != nil {
		c.layout = c.defaultLayout
		c.layoutPath = c.defaultLayoutPath
	}

	if c.layout != nil {
		c.logger.Debug(ctx, "Compiling layout",
			"file", c.file,
			"layout", c.layoutPath,
			"sections", len(c.sections),
		)
		c.sectionBody = ops
		c.hasBody = true
		c.layoutPass = true

		ops, err = c.compile(c.layout)
		if err != nil {
			return nil, err
		}
	}

	return &emit.Program{
		Ops:      emit.Compact(ops),
		Sections: c.sectionNames(),
		TextSize: c.textSize,
		Layout:   c.layoutPath,
		Uses:     c.uses,
	}, nil
}

// Compile is a convenience wrapper compiling root with a fresh Compiler.
func Compile(root ast.Node, opts ...Option) (*emit.Program, error) {
	return New(opts...).Compile(root)
}

func (c *Compiler) sectionNames() []string {
	names := make([]string, 0, len(c.sections))
	for name := range c.sections {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// compile dispatches one node. Every ast.Kind has a case; the default case
// only triggers for foreign Node implementations.
func (c *Compiler) compile(node ast.Node) ([]emit.Op, error) {
	if node == nil {
		return nil, nil
	}

	c.depth++
	defer func() { c.depth-- }()
	if c.depth > c.maxDepth {
		return nil, c.fail(errors.NewDepthExceeded(c.maxDepth), node.Pos())
	}

	switch n := node.(type) {
	case *ast.Template:
		return c.compileNodes(n.Children)
	case *ast.Text:
		return c.literal(n.Value), nil
	case *ast.InnerText:
		return c.literal(n.Value), nil
	case *ast.Raw:
		return c.literal(n.Value), nil
	case *ast.Comment:
		return nil, nil
	case *ast.Extends:
		return nil, c.compileExtends(n)
	case *ast.Render:
		return c.compileRender(n), nil
	case *ast.RenderBody:
		return c.compileRenderBody(), nil
	case *ast.CodeBlock:
		return c.compileBlock(n.Contents, n.Position)
	case *ast.SimpleExpr:
		return c.compileExpr(n.Code, n.Escape, n.Position)
	case *ast.ParenExpr:
		return c.compileExpr(n.Code, n.Escape, n.Position)
	case *ast.Match:
		return c.compileMatch(n)
	case *ast.Control:
		return c.compileControl(n)
	case *ast.SectionDirective:
		return nil, c.compileSectionDirective(n)
	case *ast.SectionBlock:
		return nil, c.compileSectionBlock(n)
	case *ast.Component:
		return c.compileComponent(n)
	case *ast.ChildContent:
		return c.compileChildContent(), nil
	case *ast.Use:
		return nil, c.compileUse(n)
	case *ast.Continue:
		return c.compileBranch(emit.Continue, n.Pos())
	case *ast.Break:
		return c.compileBranch(emit.Break, n.Pos())
	default:
		return nil, c.fail(errors.NewInternalError(errors.ErrCodeInternalError,
			"unsupported node "+node.Kind().String(), nil), node.Pos())
	}
}

func (c *Compiler) compileNodes(nodes []ast.Node) ([]emit.Op, error) {
	var out []emit.Op
	for _, n := range nodes {
		ops, err := c.compile(n)
		if err != nil {
			return nil, err
		}
		out = append(out, ops...)
	}
	return out, nil
}

func (c *Compiler) literal(text string) []emit.Op {
	if text == "" {
		return nil
	}
	c.textSize += len(text)
	return []emit.Op{emit.Literal{Text: text}}
}

// fail attaches the template file and the node span to err.
func (c *Compiler) fail(err *errors.TmplcError, pos ast.Position) error {
	if err.FilePath == "" && c.file != "" {
		err.WithFile(c.file)
	}
	if !pos.IsZero() {
		err.WithSpan(pos.StartLine, pos.StartCol, pos.EndLine, pos.EndCol)
	}
	return err
}
