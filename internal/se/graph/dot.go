package graph

import (
	"fmt"
	"io"
	"strings"
)

// PrintDot writes the exploded graph in GraphViz format. Nodes are labelled
// with their point, the element about to run and the state; edges carry
// what the transition learned.
func (g *Graph) PrintDot(w io.Writer) {
	fmt.Fprintf(w, "digraph egraph {\n")
	fmt.Fprintf(w, "\tnode [shape=box];\n\n")
	for _, n := range g.nodes {
		label := n.Point.String()
		if e := g.Element(n); e != nil {
			label += " " + e.String()
		}
		label += "\n" + n.State.String()
		fmt.Fprintf(w, "\tn%d [label=%q];\n", n.id, label)
	}
	fmt.Fprintln(w)
	for _, n := range g.nodes {
		for _, e := range n.parents {
			fmt.Fprintf(w, "\tn%d -> n%d", e.Parent.id, n.id)
			if label := edgeLabel(e); label != "" {
				fmt.Fprintf(w, " [label=%q]", label)
			}
			fmt.Fprintf(w, ";\n")
		}
	}
	fmt.Fprintf(w, "}\n")
}

func edgeLabel(e *Edge) string {
	var parts []string
	for _, b := range e.Bindings {
		parts = append(parts, b.String())
	}
	for _, c := range e.Constraints {
		parts = append(parts, c.String())
	}
	if e.Yield != nil {
		parts = append(parts, "yield "+e.Yield.String())
	}
	return strings.Join(parts, "\n")
}
