package resgraph

import (
	"bytes"
	"reflect"
	"testing"

	"github.com/cloudplot/cloudplot/pkg/relate"
	"github.com/cloudplot/cloudplot/pkg/resource"
)

func testGraph() *Graph {
	resources := []resource.Resource{
		{ID: "rg", Type: "group", Provider: resource.Azure, Region: "westeurope"},
		{ID: "vm", Type: "vm", Provider: resource.Azure, Region: "westeurope", ParentScope: "rg"},
		{ID: "nic", Type: "nic", Provider: resource.Azure, Region: "northeurope", ParentScope: "rg"},
	}
	rels := []relate.Relationship{
		{Source: "rg", Target: "vm", Type: relate.Contains},
		{Source: "rg", Target: "nic", Type: relate.Contains},
		{Source: "nic", Target: "vm", Type: relate.DependsOn},
	}
	return New(resources, rels)
}

func TestNewDropsInvalidEdges(t *testing.T) {
	resources := []resource.Resource{
		{ID: "a", Provider: resource.AWS},
		{ID: "b", Provider: resource.AWS},
	}
	rels := []relate.Relationship{
		{Source: "a", Target: "b", Type: relate.ConnectsTo},
		{Source: "a", Target: "a", Type: relate.DependsOn},   // self-edge
		{Source: "a", Target: "gone", Type: relate.Contains}, // dangling
		{Source: "gone", Target: "b", Type: relate.Contains},
	}

	g := New(resources, rels)
	if g.EdgeCount() != 1 {
		t.Fatalf("EdgeCount = %d, want 1: %v", g.EdgeCount(), g.Relationships())
	}
	if e := g.Relationships()[0]; e.Source != "a" || e.Target != "b" {
		t.Errorf("kept edge = %v", e)
	}
}

func TestNewDuplicateIDsKeepFirst(t *testing.T) {
	g := New([]resource.Resource{
		{ID: "a", Name: "first"},
		{ID: "a", Name: "second"},
	}, nil)

	if g.NodeCount() != 1 {
		t.Fatalf("NodeCount = %d, want 1", g.NodeCount())
	}
	if r, _ := g.Resource("a"); r.Name != "first" {
		t.Errorf("Name = %q, want first", r.Name)
	}
}

func TestNeighbors(t *testing.T) {
	g := testGraph()

	if got := g.Neighbors("rg", Out); !reflect.DeepEqual(got, []string{"nic", "vm"}) {
		t.Errorf("Neighbors(rg, Out) = %v", got)
	}
	if got := g.Neighbors("vm", In); !reflect.DeepEqual(got, []string{"nic", "rg"}) {
		t.Errorf("Neighbors(vm, In) = %v", got)
	}
	if got := g.Neighbors("vm", In, relate.Contains); !reflect.DeepEqual(got, []string{"rg"}) {
		t.Errorf("Neighbors(vm, In, Contains) = %v", got)
	}
	if got := g.Neighbors("nic", Both); !reflect.DeepEqual(got, []string{"rg", "vm"}) {
		t.Errorf("Neighbors(nic, Both) = %v", got)
	}
	if got := g.Neighbors("missing", Both); got != nil {
		t.Errorf("Neighbors(missing) = %v, want nil", got)
	}
}

func TestContainmentParent(t *testing.T) {
	g := testGraph()

	if parent, ok := g.ContainmentParent("vm"); !ok || parent != "rg" {
		t.Errorf("ContainmentParent(vm) = (%q, %v), want rg", parent, ok)
	}
	if _, ok := g.ContainmentParent("rg"); ok {
		t.Error("rg should have no containment parent")
	}
}

func TestGroupBy(t *testing.T) {
	g := testGraph()
	groups := g.GroupBy(func(r resource.Resource) string { return r.Region })

	if !reflect.DeepEqual(groups["westeurope"], []string{"rg", "vm"}) {
		t.Errorf("westeurope = %v", groups["westeurope"])
	}
	if !reflect.DeepEqual(groups["northeurope"], []string{"nic"}) {
		t.Errorf("northeurope = %v", groups["northeurope"])
	}
}

func TestSubgraph(t *testing.T) {
	g := testGraph()
	sub := g.Subgraph(func(r resource.Resource) bool { return r.ID != "rg" })

	if sub.NodeCount() != 2 {
		t.Fatalf("NodeCount = %d, want 2", sub.NodeCount())
	}
	// Only nic -> vm survives; containment edges lost their source.
	if sub.EdgeCount() != 1 {
		t.Fatalf("EdgeCount = %d, want 1: %v", sub.EdgeCount(), sub.Relationships())
	}
	// Original is untouched.
	if g.NodeCount() != 3 || g.EdgeCount() != 3 {
		t.Error("Subgraph mutated the source graph")
	}
}

func TestSerializeRoundTrip(t *testing.T) {
	g := testGraph()

	data, err := Marshal(g)
	if err != nil {
		t.Fatalf("Marshal: %v", err)
	}
	back, err := Read(bytes.NewReader(data))
	if err != nil {
		t.Fatalf("Read: %v", err)
	}

	if !reflect.DeepEqual(back.Resources(), g.Resources()) {
		t.Error("resources changed in round trip")
	}
	if !reflect.DeepEqual(back.Relationships(), g.Relationships()) {
		t.Error("relationships changed in round trip")
	}

	// Re-marshal is byte-identical.
	again, err := Marshal(back)
	if err != nil {
		t.Fatalf("second Marshal: %v", err)
	}
	if !bytes.Equal(data, again) {
		t.Error("marshal not deterministic across round trip")
	}
}

func TestToGraphRejectsUnknownEdgeType(t *testing.T) {
	s := Serialized{
		Nodes: []Node{{ID: "a", Provider: "aws"}, {ID: "b", Provider: "aws"}},
		Edges: []Edge{{Source: "a", Target: "b", Type: "teleports_to"}},
	}
	if _, err := ToGraph(s); err == nil {
		t.Fatal("expected error for unknown edge type")
	}
}

func TestReadFileRoundTrip(t *testing.T) {
	g := testGraph()
	path := t.TempDir() + "/graph.json"

	if err := WriteFile(g, path); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}
	back, err := ReadFile(path)
	if err != nil {
		t.Fatalf("ReadFile: %v", err)
	}
	if back.NodeCount() != 3 || back.EdgeCount() != 3 {
		t.Errorf("round trip = %d nodes, %d edges", back.NodeCount(), back.EdgeCount())
	}
}
