package emit

import (
	"sort"

	"github.com/conneroisu/tmplc/pkg/render"
)

// Use records a component import seen during compilation.
type Use struct {
	Alias string
	Path  string
}

// Program is the result of compiling one template.
type Program struct {
	// Ops writes the template into the output buffer.
	Ops []Op
	// Sections lists the declared section names, sorted and unique.
	Sections []string
	// TextSize is the byte count of every literal compiled.
	TextSize int
	// Layout is the path of the layout that wrapped the template, if any.
	Layout string
	// Uses lists component imports in source order.
	Uses []Use
}

// HasSection reports whether name was declared.
func (p *Program) HasSection(name string) bool {
	i := sort.SearchStrings(p.Sections, name)
	return i < len(p.Sections) && p.Sections[i] == name
}

// SizeHint is the suggested initial capacity of the output buffer.
func (p *Program) SizeHint() int {
	return render.SizeHint(p.TextSize)
}
