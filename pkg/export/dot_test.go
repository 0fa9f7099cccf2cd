package export

import (
	"strings"
	"testing"

	"github.com/cloudplot/cloudplot/pkg/diagram"
)

func testDescription() diagram.Description {
	return diagram.Description{
		ID: "abc",
		Nodes: []diagram.Node{
			{ID: "rg1", Label: "prod-rg", X: 0, Y: 0, Shape: "box", Color: "#8993A4"},
			{ID: "vm1", Label: "web-vm", X: -40, Y: 120, Shape: "box", Color: "#4C9AFF", Group: "azure/westeurope"},
			{ID: "nic1", Label: "web-nic", X: 40, Y: 120, Shape: "ellipse", Color: "#6554C0"},
		},
		Edges: []diagram.Edge{
			{Source: "rg1", Target: "vm1", Type: "contains"},
			{Source: "nic1", Target: "vm1", Type: "depends_on"},
		},
	}
}

func TestToDOTContainsNodesAndEdges(t *testing.T) {
	dot := ToDOT(testDescription())

	for _, want := range []string{
		`"rg1" [`,
		`"vm1" [`,
		`"nic1" [`,
		`label="prod-rg"`,
		`"rg1" -> "vm1"`,
		`"nic1" -> "vm1"`,
		`fillcolor="#4C9AFF"`,
		`group="azure/westeurope"`,
	} {
		if !strings.Contains(dot, want) {
			t.Errorf("ToDOT() missing %q\n%s", want, dot)
		}
	}
}

func TestToDOTEdgeStyles(t *testing.T) {
	dot := ToDOT(testDescription())

	lines := strings.Split(dot, "\n")
	var containsLine, dependsLine string
	for _, l := range lines {
		if strings.Contains(l, `"rg1" -> "vm1"`) {
			containsLine = l
		}
		if strings.Contains(l, `"nic1" -> "vm1"`) {
			dependsLine = l
		}
	}

	if !strings.Contains(containsLine, "bold") {
		t.Errorf("contains edge missing bold style: %s", containsLine)
	}
	if !strings.Contains(dependsLine, "dashed") {
		t.Errorf("depends_on edge missing dashed style: %s", dependsLine)
	}
}

func TestToDOTPinnedPositions(t *testing.T) {
	dot := ToDOT(testDescription())

	// Positions must be pinned so neato keeps the computed layout.
	if !strings.Contains(dot, `!"`) {
		t.Errorf("ToDOT() positions are not pinned:\n%s", dot)
	}
}

func TestToDOTDeterministic(t *testing.T) {
	a := ToDOT(testDescription())
	b := ToDOT(testDescription())
	if a != b {
		t.Error("ToDOT() output differs between identical inputs")
	}
}

func TestToDOTEmpty(t *testing.T) {
	dot := ToDOT(diagram.Description{})
	if !strings.HasPrefix(dot, "digraph cloudplot {") || !strings.HasSuffix(dot, "}\n") {
		t.Errorf("ToDOT() on empty description produced malformed output:\n%s", dot)
	}
}
