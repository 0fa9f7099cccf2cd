package resgraph

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/cloudplot/cloudplot/pkg/relate"
	"github.com/cloudplot/cloudplot/pkg/resource"
)

// =============================================================================
// Serialized Graph Format
// =============================================================================

// Serialized is the canonical wire format for resource graphs.
// Used for API responses, the snapshot store, and caching. Nodes are sorted
// by id so import → export round trips are byte-identical.
type Serialized struct {
	Nodes []Node `json:"nodes" bson:"nodes"`
	Edges []Edge `json:"edges" bson:"edges"`
}

// Node is the serialized form of one resource. Properties are stored in
// their plain representation so the format stays readable and BSON-friendly.
type Node struct {
	ID          string            `json:"id" bson:"id"`
	Name        string            `json:"name,omitempty" bson:"name,omitempty"`
	Type        string            `json:"type,omitempty" bson:"type,omitempty"`
	Provider    string            `json:"provider" bson:"provider"`
	Region      string            `json:"region,omitempty" bson:"region,omitempty"`
	Zone        string            `json:"zone,omitempty" bson:"zone,omitempty"`
	ParentScope string            `json:"parent_scope,omitempty" bson:"parent_scope,omitempty"`
	Properties  map[string]any    `json:"properties,omitempty" bson:"properties,omitempty"`
	Tags        map[string]string `json:"tags,omitempty" bson:"tags,omitempty"`
}

// Edge is the serialized form of one relationship.
type Edge struct {
	Source string            `json:"source" bson:"source"`
	Target string            `json:"target" bson:"target"`
	Type   string            `json:"type" bson:"type"`
	Meta   map[string]string `json:"meta,omitempty" bson:"meta,omitempty"`
}

// =============================================================================
// Graph ↔ Serialized Conversion
// =============================================================================

// FromGraph converts a graph to its wire format.
func FromGraph(g *Graph) Serialized {
	out := Serialized{
		Nodes: make([]Node, 0, g.NodeCount()),
		Edges: make([]Edge, 0, g.EdgeCount()),
	}
	for _, r := range g.Resources() {
		out.Nodes = append(out.Nodes, Node{
			ID:          r.ID,
			Name:        r.Name,
			Type:        r.Type,
			Provider:    string(r.Provider),
			Region:      r.Region,
			Zone:        r.Zone,
			ParentScope: r.ParentScope,
			Properties:  resource.PropertiesInterface(r.Properties),
			Tags:        r.Tags,
		})
	}
	for _, e := range g.Relationships() {
		out.Edges = append(out.Edges, Edge{
			Source: e.Source,
			Target: e.Target,
			Type:   string(e.Type),
			Meta:   e.Meta,
		})
	}
	return out
}

// ToGraph rebuilds a graph from its wire format. Edges with an unknown type
// are rejected; dangling edges are dropped by construction as usual.
func ToGraph(s Serialized) (*Graph, error) {
	resources := make([]resource.Resource, 0, len(s.Nodes))
	for _, n := range s.Nodes {
		resources = append(resources, resource.Resource{
			ID:          n.ID,
			Name:        n.Name,
			Type:        n.Type,
			Provider:    resource.Provider(n.Provider),
			Region:      n.Region,
			Zone:        n.Zone,
			ParentScope: n.ParentScope,
			Properties:  resource.PropertiesFromAny(n.Properties),
			Tags:        n.Tags,
		})
	}

	rels := make([]relate.Relationship, 0, len(s.Edges))
	for _, e := range s.Edges {
		t := relate.Type(e.Type)
		if !t.Valid() {
			return nil, fmt.Errorf("edge %s→%s: unknown type %q", e.Source, e.Target, e.Type)
		}
		rels = append(rels, relate.Relationship{
			Source: e.Source,
			Target: e.Target,
			Type:   t,
			Meta:   e.Meta,
		})
	}

	return New(resources, rels), nil
}

// =============================================================================
// Serialization API
// =============================================================================

// Marshal converts a graph to JSON bytes. Output is deterministic.
func Marshal(g *Graph) ([]byte, error) {
	var buf bytes.Buffer
	if err := Write(g, &buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// Write encodes a graph as indented JSON to w.
func Write(g *Graph, w io.Writer) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(FromGraph(g)); err != nil {
		return fmt.Errorf("encode graph: %w", err)
	}
	return nil
}

// Read decodes a JSON graph from r.
func Read(r io.Reader) (*Graph, error) {
	var s Serialized
	if err := json.NewDecoder(r).Decode(&s); err != nil {
		return nil, fmt.Errorf("decode graph: %w", err)
	}
	return ToGraph(s)
}

// WriteFile writes a graph to a JSON file with 0644 permissions.
func WriteFile(g *Graph, path string) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create %s: %w", path, err)
	}
	defer f.Close()
	return Write(g, f)
}

// ReadFile reads a graph from a JSON file.
func ReadFile(path string) (*Graph, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", path, err)
	}
	defer f.Close()
	return Read(f)
}
