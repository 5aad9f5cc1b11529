// Package ast defines the position-annotated syntax tree that a template
// parser front-end produces and the compiler consumes.
//
// The node set is closed: every variant implements the unexported node
// method, so only this package can add kinds. Code fragments carried by the
// nodes are opaque Go source text; nothing in this package inspects them.
package ast

import "fmt"

// Position is a source span. It is used for diagnostics only and never
// influences compilation.
type Position struct {
	StartLine int
	StartCol  int
	EndLine   int
	EndCol    int
}

// Span builds a Position from its four coordinates.
func Span(startLine, startCol, endLine, endCol int) Position {
	return Position{StartLine: startLine, StartCol: startCol, EndLine: endLine, EndCol: endCol}
}

// Pos returns the span itself so that every node embedding a Position
// satisfies Node's Pos method.
func (p Position) Pos() Position { return p }

// IsZero reports whether the span carries no location.
func (p Position) IsZero() bool { return p == Position{} }

// String renders the start of the span as line:col.
func (p Position) String() string {
	return fmt.Sprintf("%d:%d", p.StartLine, p.StartCol)
}

// Kind identifies a node variant.
type Kind int

const (
	KindTemplate Kind = iota
	KindText
	KindInnerText
	KindComment
	KindExtends
	KindRender
	KindRenderBody
	KindCodeBlock
	KindSimpleExpr
	KindParenExpr
	KindMatch
	KindControl
	KindSectionDirective
	KindSectionBlock
	KindComponent
	KindChildContent
	KindRaw
	KindUse
	KindContinue
	KindBreak
)

var kindNames = [...]string{
	KindTemplate:         "Template",
	KindText:             "Text",
	KindInnerText:        "InnerText",
	KindComment:          "Comment",
	KindExtends:          "ExtendsDirective",
	KindRender:           "RenderDirective",
	KindRenderBody:       "RenderBody",
	KindCodeBlock:        "CodeBlock",
	KindSimpleExpr:       "SimpleExpr",
	KindParenExpr:        "ParenExpr",
	KindMatch:            "MatchExpr",
	KindControl:          "ControlExpr",
	KindSectionDirective: "SectionDirective",
	KindSectionBlock:     "SectionBlock",
	KindComponent:        "Component",
	KindChildContent:     "ChildContent",
	KindRaw:              "Raw",
	KindUse:              "UseDirective",
	KindContinue:         "ContinueDirective",
	KindBreak:            "BreakDirective",
}

// String returns the variant name.
func (k Kind) String() string {
	if k < 0 || int(k) >= len(kindNames) {
		return fmt.Sprintf("Kind(%d)", int(k))
	}
	return kindNames[k]
}

// Kinds lists every node kind in declaration order.
func Kinds() []Kind {
	kinds := make([]Kind, len(kindNames))
	for i := range kindNames {
		kinds[i] = Kind(i)
	}
	return kinds
}

// Node is a template syntax tree node.
type Node interface {
	Kind() Kind
	Pos() Position
	node()
}

// Fragment is an opaque run of Go source with its location.
type Fragment struct {
	Code string
	Position
}

// Template is the root of a document and holds its top-level nodes.
type Template struct {
	Children []Node
	Position
}

// Text is literal markup.
type Text struct {
	Value string
	Position
}

// InnerText is literal markup found inside a block whose delimiter escapes
// were already resolved by the parser.
type InnerText struct {
	Value string
	Position
}

// Comment is a template comment. It produces no output.
type Comment struct {
	Value string
	Position
}

// Extends declares the layout that wraps the current template. Layout is the
// already parsed layout document.
type Extends struct {
	Path   string
	Layout Node
	Position
}

// Render pulls a named section into a layout.
type Render struct {
	Name string
	Position
}

// RenderBody pulls the child template's body into a layout.
type RenderBody struct {
	Position
}

// CodeBlock mixes Go statements with literal text.
type CodeBlock struct {
	Contents []BlockContent
	Position
}

// SimpleExpr is a bare expression such as @user.Name.
type SimpleExpr struct {
	Code   string
	Escape bool
	Position
}

// ParenExpr is a parenthesized expression such as @(a + b).
type ParenExpr struct {
	Code   string
	Escape bool
	Position
}

// MatchArm is one pattern and the nodes rendered when it matches.
type MatchArm struct {
	Pattern Fragment
	Body    []Node
}

// Match selects the first arm whose pattern matches Subject.
type Match struct {
	Subject Fragment
	Arms    []MatchArm
	Position
}

// Clause is one header of a control chain with its body, e.g. "if x" or
// "else" or "for _, v := range xs".
type Clause struct {
	Header Fragment
	Body   []Node
}

// Control is an if/else-if/else chain or a loop.
type Control struct {
	Clauses []Clause
	Position
}

// SectionDirective registers a one-line section. Content is a *Text or a
// *SimpleExpr.
type SectionDirective struct {
	Name    string
	Content Node
	Position
}

// SectionBlock registers a section whose content is a node list.
type SectionBlock struct {
	Name string
	Body []Node
	Position
}

// Param is a named component argument.
type Param struct {
	Name  string
	Value ParamValue
	Position
}

// Component invokes a component registered by a Use directive. Body is the
// caller supplied child content.
type Component struct {
	Name   string
	Params []Param
	Body   []Node
	Position
}

// ChildContent marks where a component places its caller's body.
type ChildContent struct {
	Position
}

// Raw is trusted markup written without escaping.
type Raw struct {
	Value string
	Position
}

// Use imports a component document under Alias.
type Use struct {
	Alias     string
	Path      string
	Component Node
	Position
}

// Continue is a loop continue.
type Continue struct {
	Position
}

// Break is a loop break.
type Break struct {
	Position
}

func (*Template) Kind() Kind         { return KindTemplate }
func (*Text) Kind() Kind             { return KindText }
func (*InnerText) Kind() Kind        { return KindInnerText }
func (*Comment) Kind() Kind          { return KindComment }
func (*Extends) Kind() Kind          { return KindExtends }
func (*Render) Kind() Kind           { return KindRender }
func (*RenderBody) Kind() Kind       { return KindRenderBody }
func (*CodeBlock) Kind() Kind        { return KindCodeBlock }
func (*SimpleExpr) Kind() Kind       { return KindSimpleExpr }
func (*ParenExpr) Kind() Kind        { return KindParenExpr }
func (*Match) Kind() Kind            { return KindMatch }
func (*Control) Kind() Kind          { return KindControl }
func (*SectionDirective) Kind() Kind { return KindSectionDirective }
func (*SectionBlock) Kind() Kind     { return KindSectionBlock }
func (*Component) Kind() Kind        { return KindComponent }
func (*ChildContent) Kind() Kind     { return KindChildContent }
func (*Raw) Kind() Kind              { return KindRaw }
func (*Use) Kind() Kind              { return KindUse }
func (*Continue) Kind() Kind         { return KindContinue }
func (*Break) Kind() Kind            { return KindBreak }

func (*Template) node()         {}
func (*Text) node()             {}
func (*InnerText) node()        {}
func (*Comment) node()          {}
func (*Extends) node()          {}
func (*Render) node()           {}
func (*RenderBody) node()       {}
func (*CodeBlock) node()        {}
func (*SimpleExpr) node()       {}
func (*ParenExpr) node()        {}
func (*Match) node()            {}
func (*Control) node()          {}
func (*SectionDirective) node() {}
func (*SectionBlock) node()     {}
func (*Component) node()        {}
func (*ChildContent) node()     {}
func (*Raw) node()              {}
func (*Use) node()              {}
func (*Continue) node()         {}
func (*Break) node()            {}
