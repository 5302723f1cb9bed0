package cfg

import (
	"bytes"
	"fmt"
	"io"
	"os/exec"
	"path/filepath"
	"strings"
)

// PrintDot writes g in GraphViz format. Each block is labelled with its
// comment and elements; conditional edges are labelled T and F.
func (g *Graph) PrintDot(w io.Writer) {
	fmt.Fprintf(w, "digraph mgraph {\n")
	fmt.Fprintf(w, "\tmode=\"heir\";\n")
	fmt.Fprintf(w, "\tsplines=\"ortho\";\n")
	fmt.Fprintf(w, "\tnode [shape=box];\n\n")
	for _, b := range g.Blocks {
		fmt.Fprintf(w, "\t%q [label=%q];\n", b.String(), blockLabel(b))
	}
	fmt.Fprintln(w)
	for _, b := range g.Blocks {
		if b.Cond {
			fmt.Fprintf(w, "\t%q -> %q [label=\"T\"];\n", b.String(), b.True.String())
			fmt.Fprintf(w, "\t%q -> %q [label=\"F\"];\n", b.String(), b.False.String())
			continue
		}
		for _, s := range b.Succs {
			fmt.Fprintf(w, "\t%q -> %q;\n", b.String(), s.String())
		}
		for _, s := range b.Exceptions {
			fmt.Fprintf(w, "\t%q -> %q [style=dashed];\n", b.String(), s.String())
		}
	}
	fmt.Fprintf(w, "}\n")
}

func blockLabel(b *Block) string {
	var sb strings.Builder
	sb.WriteString(b.String())
	for _, e := range b.Elements {
		sb.WriteString("\n")
		sb.WriteString(e.String())
	}
	return sb.String()
}

// RenderToGraphVizFile renders dot source with the GraphViz dot binary.
// The output format follows the file extension and defaults to png.
func RenderToGraphVizFile(data []byte, filename string) error {
	format := strings.TrimPrefix(filepath.Ext(filename), ".")
	if format == "" {
		format = "png"
	}
	cmd := exec.Command("dot", "-T"+format, "-o", filename)
	cmd.Stdin = bytes.NewReader(data)
	var stderr bytes.Buffer
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		return fmt.Errorf("running dot: %w: %s", err, strings.TrimSpace(stderr.String()))
	}
	return nil
}
