package ast

// BlockContent is one entry of a CodeBlock.
type BlockContent interface {
	Pos() Position
	blockContent()
}

// Code is a Go statement run copied into the output byte for byte.
type Code struct {
	Code string
	Position
}

// TextLine is literal text written on a single source line inside a code
// block.
type TextLine struct {
	Items []TextItem
	Position
}

// TextBlock is literal text spanning several indented lines inside a code
// block. The compiler treats it exactly like a TextLine.
type TextBlock struct {
	Items []TextItem
	Position
}

// NestedBlock is a bare brace block inside a code block. Its bindings do not
// leak into the enclosing block.
type NestedBlock struct {
	Contents []BlockContent
	Position
}

func (*Code) blockContent()        {}
func (*TextLine) blockContent()    {}
func (*TextBlock) blockContent()   {}
func (*NestedBlock) blockContent() {}

// TextItem is one piece of a TextLine or TextBlock.
type TextItem interface {
	Pos() Position
	textItem()
}

// Literal is a run of literal text.
type Literal struct {
	Value string
	Position
}

// Splice is an expression embedded in text.
type Splice struct {
	Code   string
	Escape bool
	Position
}

func (*Literal) textItem() {}
func (*Splice) textItem()  {}

// ParamValue is the value bound to a component parameter.
type ParamValue interface {
	paramValue()
}

// BoolValue is a true/false literal.
type BoolValue struct {
	Value bool
}

// NumberValue keeps the number exactly as written, so 1 and 1.0 stay
// distinct.
type NumberValue struct {
	Lexeme string
}

// StringValue is a string literal, already unquoted.
type StringValue struct {
	Value string
}

// ParenCode is a parenthesized expression value.
type ParenCode struct {
	Code string
}

// SimpleCode is a bare expression value.
type SimpleCode struct {
	Code string
}

// BlockValue is a sub-template passed as a parameter.
type BlockValue struct {
	Nodes []Node
}

func (BoolValue) paramValue()   {}
func (NumberValue) paramValue() {}
func (StringValue) paramValue() {}
func (ParenCode) paramValue()   {}
func (SimpleCode) paramValue()  {}
func (BlockValue) paramValue()  {}
