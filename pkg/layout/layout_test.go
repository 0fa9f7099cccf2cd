package layout

import (
	"errors"
	"math"
	"reflect"
	"testing"

	"github.com/cloudplot/cloudplot/pkg/relate"
	"github.com/cloudplot/cloudplot/pkg/resgraph"
	"github.com/cloudplot/cloudplot/pkg/resource"
)

func testGraph() *resgraph.Graph {
	resources := []resource.Resource{
		{ID: "rg", Name: "rg", Type: "group", Provider: resource.Azure, Region: "westeurope"},
		{ID: "vm", Name: "vm", Type: "vm", Provider: resource.Azure, Region: "westeurope", ParentScope: "rg"},
		{ID: "nic", Name: "nic", Type: "nic", Provider: resource.Azure, Region: "westeurope", ParentScope: "rg"},
		{ID: "disk", Name: "disk", Type: "disk", Provider: resource.Azure, Region: "westeurope", ParentScope: "vm"},
	}
	rels := []relate.Relationship{
		{Source: "rg", Target: "vm", Type: relate.Contains},
		{Source: "rg", Target: "nic", Type: relate.Contains},
		{Source: "vm", Target: "disk", Type: relate.Contains},
		{Source: "nic", Target: "vm", Type: relate.DependsOn},
	}
	return resgraph.New(resources, rels)
}

func TestComputeUnknownAlgorithm(t *testing.T) {
	_, err := Compute(testGraph(), "radial", Options{})
	var ulErr *UnsupportedLayoutError
	if err == nil {
		t.Fatal("expected error for unknown algorithm")
	}
	if !errors.As(err, &ulErr) {
		t.Fatalf("error type = %T, want *UnsupportedLayoutError", err)
	}
	if ulErr.Algorithm != "radial" {
		t.Errorf("Algorithm = %q, want radial", ulErr.Algorithm)
	}
}

func TestComputeEmptyGraph(t *testing.T) {
	for _, algo := range []Algorithm{Hierarchical, Force, Circular} {
		nodes, err := Compute(resgraph.New(nil, nil), algo, Options{})
		if err != nil {
			t.Fatalf("%s: %v", algo, err)
		}
		if len(nodes) != 0 {
			t.Errorf("%s: got %d nodes for empty graph", algo, len(nodes))
		}
	}
}

func TestComputeDeterministic(t *testing.T) {
	for _, algo := range []Algorithm{Hierarchical, Force, Circular} {
		first, err := Compute(testGraph(), algo, Options{})
		if err != nil {
			t.Fatalf("%s: %v", algo, err)
		}
		for i := 0; i < 3; i++ {
			got, err := Compute(testGraph(), algo, Options{})
			if err != nil {
				t.Fatalf("%s: %v", algo, err)
			}
			if !reflect.DeepEqual(got, first) {
				t.Errorf("%s: run %d differs from first run", algo, i)
			}
		}
	}
}

func TestHierarchicalTiers(t *testing.T) {
	nodes, err := Compute(testGraph(), Hierarchical, Options{})
	if err != nil {
		t.Fatal(err)
	}

	tiers := make(map[string]int)
	ys := make(map[string]float64)
	for _, n := range nodes {
		tiers[n.ID] = n.Tier
		ys[n.ID] = n.Y
	}

	want := map[string]int{"rg": 0, "vm": 1, "nic": 1, "disk": 2}
	for id, tier := range want {
		if tiers[id] != tier {
			t.Errorf("tier[%s] = %d, want %d", id, tiers[id], tier)
		}
	}
	if !(ys["rg"] < ys["vm"] && ys["vm"] < ys["disk"]) {
		t.Errorf("y must grow with depth: rg=%v vm=%v disk=%v", ys["rg"], ys["vm"], ys["disk"])
	}
	if ys["vm"] != ys["nic"] {
		t.Errorf("same-tier nodes must share y: vm=%v nic=%v", ys["vm"], ys["nic"])
	}

	for _, n := range nodes {
		if n.Group != "azure/westeurope" {
			t.Errorf("Group[%s] = %q, want azure/westeurope", n.ID, n.Group)
		}
	}
}

func TestHierarchicalRowWrap(t *testing.T) {
	// Five roots with a wrap threshold of 2: three rows inside tier 0.
	var resources []resource.Resource
	for _, id := range []string{"a", "b", "c", "d", "e"} {
		resources = append(resources, resource.Resource{ID: id, Name: id, Type: "t", Provider: resource.AWS})
	}
	g := resgraph.New(resources, nil)

	nodes, err := Compute(g, Hierarchical, Options{MaxNodesPerRow: 2})
	if err != nil {
		t.Fatal(err)
	}

	rows := make(map[float64]int)
	for _, n := range nodes {
		rows[n.Y]++
		if n.Tier != 0 {
			t.Errorf("Tier[%s] = %d, want 0", n.ID, n.Tier)
		}
	}
	if len(rows) != 3 {
		t.Errorf("got %d distinct rows, want 3: %v", len(rows), rows)
	}
}

func TestHierarchicalContainmentCycle(t *testing.T) {
	// a contains b contains a. Both must terminate as roots.
	resources := []resource.Resource{
		{ID: "a", Provider: resource.AWS, ParentScope: "b"},
		{ID: "b", Provider: resource.AWS, ParentScope: "a"},
	}
	rels := []relate.Relationship{
		{Source: "b", Target: "a", Type: relate.Contains},
		{Source: "a", Target: "b", Type: relate.Contains},
	}
	g := resgraph.New(resources, rels)

	nodes, err := Compute(g, Hierarchical, Options{})
	if err != nil {
		t.Fatal(err)
	}
	if len(nodes) != 2 {
		t.Fatalf("got %d nodes, want 2", len(nodes))
	}
}

func TestCircularOnRadius(t *testing.T) {
	nodes, err := Compute(testGraph(), Circular, Options{Radius: 100})
	if err != nil {
		t.Fatal(err)
	}
	if len(nodes) != 4 {
		t.Fatalf("got %d nodes, want 4", len(nodes))
	}
	for _, n := range nodes {
		r := math.Hypot(n.X, n.Y)
		if math.Abs(r-100) > 1e-9 {
			t.Errorf("node %s at radius %v, want 100", n.ID, r)
		}
	}
}

func TestForceSeparatesNodes(t *testing.T) {
	nodes, err := Compute(testGraph(), Force, Options{})
	if err != nil {
		t.Fatal(err)
	}
	for i := range nodes {
		for j := i + 1; j < len(nodes); j++ {
			d := math.Hypot(nodes[i].X-nodes[j].X, nodes[i].Y-nodes[j].Y)
			if d < 1 {
				t.Errorf("nodes %s and %s nearly coincident (d=%v)", nodes[i].ID, nodes[j].ID, d)
			}
		}
	}
}

func TestForceCoincidentSeed(t *testing.T) {
	// A zero radius stacks every node on the origin; the coincident guard
	// must still push them apart.
	nodes := forceDirected(testGraph(), Options{Iterations: 50, Radius: 0})
	for i := range nodes {
		for j := i + 1; j < len(nodes); j++ {
			d := math.Hypot(nodes[i].X-nodes[j].X, nodes[i].Y-nodes[j].Y)
			if d < minDistance {
				t.Errorf("nodes %s and %s still coincident (d=%v)", nodes[i].ID, nodes[j].ID, d)
			}
		}
	}
}

func TestForceSingleNode(t *testing.T) {
	g := resgraph.New([]resource.Resource{{ID: "only", Provider: resource.GCP}}, nil)
	nodes, err := Compute(g, Force, Options{})
	if err != nil {
		t.Fatal(err)
	}
	if len(nodes) != 1 || nodes[0].X != 0 || nodes[0].Y != 0 {
		t.Errorf("single node = %+v, want origin", nodes)
	}
}

func TestOptionsWithDefaults(t *testing.T) {
	o := Options{}.WithDefaults()
	if o.MaxNodesPerRow != DefaultMaxNodesPerRow || o.Radius != DefaultRadius {
		t.Errorf("defaults not applied: %+v", o)
	}

	o = Options{Radius: 50, Iterations: 7}.WithDefaults()
	if o.Radius != 50 || o.Iterations != 7 {
		t.Errorf("explicit values overwritten: %+v", o)
	}
}
