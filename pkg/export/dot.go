// Package export renders diagram descriptions to interchange formats.
//
// The DOT output preserves the computed layout by pinning node positions, so
// Graphviz does placement-free rendering and the picture matches the layout
// engine's coordinates exactly.
package export

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/cloudplot/cloudplot/pkg/diagram"
	"github.com/cloudplot/cloudplot/pkg/relate"
)

// dotScale converts layout units to Graphviz points. Layout coordinates are
// spaced for on-screen rendering; DOT pos units are 1/72 inch.
const dotScale = 1.0 / 72.0

// ToDOT converts a diagram description to Graphviz DOT format. Node order
// and edge order follow the description, so equal descriptions produce
// byte-identical DOT.
func ToDOT(d diagram.Description) string {
	var buf bytes.Buffer
	buf.WriteString("digraph cloudplot {\n")
	buf.WriteString("  layout=neato;\n")
	buf.WriteString("  overlap=true;\n")
	buf.WriteString("  splines=true;\n")
	buf.WriteString("  bgcolor=\"transparent\";\n")
	buf.WriteString("  node [style=\"rounded,filled\", fontsize=12, margin=\"0.2,0.1\"];\n")
	buf.WriteString("\n")

	for _, n := range d.Nodes {
		fmt.Fprintf(&buf, "  %q [%s];\n", n.ID, strings.Join(nodeAttrs(n), ", "))
	}

	buf.WriteString("\n")
	for _, e := range d.Edges {
		fmt.Fprintf(&buf, "  %q -> %q [%s];\n", e.Source, e.Target, strings.Join(edgeAttrs(e), ", "))
	}

	buf.WriteString("}\n")
	return buf.String()
}

func nodeAttrs(n diagram.Node) []string {
	attrs := []string{
		fmt.Sprintf("label=%q", n.Label),
		// The trailing ! pins the node to the layout engine's position.
		fmt.Sprintf("pos=\"%.4f,%.4f!\"", n.X*dotScale, -n.Y*dotScale),
	}
	if n.Shape != "" {
		attrs = append(attrs, fmt.Sprintf("shape=%q", dotShape(n.Shape)))
	}
	if n.Color != "" {
		attrs = append(attrs, fmt.Sprintf("fillcolor=%q", n.Color))
	}
	if n.Group != "" {
		attrs = append(attrs, fmt.Sprintf("group=%q", n.Group))
	}
	return attrs
}

func edgeAttrs(e diagram.Edge) []string {
	switch relate.Type(e.Type) {
	case relate.Contains:
		return []string{"style=\"bold\"", "arrowhead=\"diamond\""}
	case relate.ConnectsTo:
		return []string{"style=\"solid\""}
	case relate.DependsOn:
		return []string{"style=\"dashed\""}
	}
	return []string{"style=\"solid\""}
}

// dotShape maps theme shape names onto Graphviz shapes.
func dotShape(shape string) string {
	switch shape {
	case "box":
		return "box"
	case "cylinder":
		return "cylinder"
	case "hexagon":
		return "hexagon"
	case "diamond":
		return "diamond"
	case "ellipse":
		return "ellipse"
	}
	return "box"
}
