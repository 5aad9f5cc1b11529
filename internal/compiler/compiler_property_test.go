//go:build property

package compiler

import (
	"fmt"
	"reflect"
	"strings"
	"testing"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"

	"github.com/conneroisu/tmplc/internal/ast"
	"github.com/conneroisu/tmplc/internal/emit"
	"github.com/conneroisu/tmplc/pkg/render"
)

// literalText concatenates the literals of a straight-line program.
func literalText(ops []emit.Op) string {
	var sb strings.Builder
	for _, op := range ops {
		if lit, ok := op.(emit.Literal); ok {
			sb.WriteString(lit.Text)
		}
	}
	return sb.String()
}

// TestLayoutProperties checks the section and body laws of the layout
// protocol over generated section declarations.
func TestLayoutProperties(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.Rng.Seed(4242)
	parameters.MinSuccessfulTests = 150

	properties := gopter.NewProperties(parameters)

	names := gen.OneConstOf("title", "head", "footer", "nav")

	properties.Property("render yields the last registration of a section", prop.ForAll(
		func(sectionNames []string, bodies []string) bool {
			n := min(len(sectionNames), len(bodies))
			children := []ast.Node{}
			want := map[string]string{}
			for i := 0; i < n; i++ {
				children = append(children, &ast.SectionDirective{
					Name:    sectionNames[i],
					Content: &ast.Text{Value: bodies[i]},
				})
				want[sectionNames[i]] = bodies[i]
			}

			for name, body := range want {
				layout := &ast.Template{Children: []ast.Node{
					&ast.Text{Value: "<"},
					&ast.Render{Name: name},
					&ast.Text{Value: ">"},
				}}
				root := &ast.Template{Children: append([]ast.Node{
					&ast.Extends{Path: "layout", Layout: layout},
				}, children...)}

				prog, err := Compile(root)
				if err != nil || literalText(prog.Ops) != "<"+body+">" {
					return false
				}
				if !prog.HasSection(name) || len(prog.Sections) != len(want) {
					return false
				}
			}
			return true
		},
		gen.SliceOf(names, reflect.TypeOf("")),
		gen.SliceOf(gen.AlphaString()),
	))

	properties.Property("render body is empty without extends", prop.ForAll(
		func(before, after string) bool {
			root := &ast.Template{Children: []ast.Node{
				&ast.Text{Value: before},
				&ast.RenderBody{},
				&ast.Text{Value: after},
			}}
			prog, err := Compile(root)
			return err == nil && literalText(prog.Ops) == before+after && prog.Layout == ""
		},
		gen.AlphaString(),
		gen.AlphaString(),
	))

	properties.Property("child content appears exactly once per placeholder", prop.ForAll(
		func(bodyLen int, marker string) bool {
			token := fmt.Sprintf("#%s#", marker)
			body := make([]ast.Node, bodyLen)
			for i := range body {
				body[i] = &ast.Text{Value: token}
			}
			component := &ast.Template{Children: []ast.Node{
				&ast.Text{Value: "["}, &ast.ChildContent{}, &ast.Text{Value: "]"},
			}}
			root := &ast.Template{Children: []ast.Node{
				&ast.Use{Alias: "Box", Component: component},
				&ast.Component{Name: "Box", Body: body},
			}}

			prog, err := Compile(root)
			if err != nil {
				return false
			}
			return literalText(inlineChildren(prog.Ops)) == "["+strings.Repeat(token, bodyLen)+"]"
		},
		gen.IntRange(0, 8),
		gen.AlphaString(),
	))

	properties.Property("escaped expressions are escaped exactly once", prop.ForAll(
		func(value string) bool {
			root := &ast.Template{Children: []ast.Node{
				&ast.SimpleExpr{Code: "v", Escape: true},
			}}
			prog, err := Compile(root)
			if err != nil || len(prog.Ops) != 1 {
				return false
			}

			var sb strings.Builder
			w := render.NewWriter(&sb)
			w.Escaped(value)
			return sb.String() == render.Escape(value)
		},
		gen.RegexMatch(`^[a-z<>&"'/]{0,20}$`),
	))

	properties.TestingRun(t)
}
