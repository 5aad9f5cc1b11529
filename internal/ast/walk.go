package ast

// Inspect traverses the tree rooted at n in depth-first preorder, calling f
// for every node. If f returns false the children of that node are skipped.
//
// Bodies of control clauses, match arms, sections, components and block
// parameters are visited. Layout and component documents referenced by
// Extends and Use are separate trees and are not entered.
func Inspect(n Node, f func(Node) bool) {
	if n == nil || !f(n) {
		return
	}
	switch n := n.(type) {
	case *Template:
		inspectList(n.Children, f)
	case *Match:
		for _, arm := range n.Arms {
			inspectList(arm.Body, f)
		}
	case *Control:
		for _, clause := range n.Clauses {
			inspectList(clause.Body, f)
		}
	case *SectionDirective:
		Inspect(n.Content, f)
	case *SectionBlock:
		inspectList(n.Body, f)
	case *Component:
		for _, p := range n.Params {
			if block, ok := p.Value.(BlockValue); ok {
				inspectList(block.Nodes, f)
			}
		}
		inspectList(n.Body, f)
	}
}

func inspectList(nodes []Node, f func(Node) bool) {
	for _, child := range nodes {
		Inspect(child, f)
	}
}

// Count returns the number of nodes per kind in the tree rooted at n.
func Count(n Node) map[Kind]int {
	counts := make(map[Kind]int)
	Inspect(n, func(node Node) bool {
		counts[node.Kind()]++
		return true
	})
	return counts
}
