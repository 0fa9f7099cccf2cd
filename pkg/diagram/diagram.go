// Package diagram joins a resource graph, a layout, and resolved styles into
// the final diagram description consumed by downstream renderers.
//
// A Description is immutable and identified by a content-derived id, which
// makes identical requests cacheable by key equality alone.
package diagram

import (
	"encoding/json"
	"io"

	"github.com/charmbracelet/log"

	"github.com/cloudplot/cloudplot/pkg/cache"
	"github.com/cloudplot/cloudplot/pkg/layout"
	"github.com/cloudplot/cloudplot/pkg/resgraph"
	"github.com/cloudplot/cloudplot/pkg/theme"
)

// Node is one styled, positioned diagram node.
type Node struct {
	ID    string  `json:"id" bson:"id"`
	Label string  `json:"label,omitempty" bson:"label,omitempty"`
	X     float64 `json:"x" bson:"x"`
	Y     float64 `json:"y" bson:"y"`
	Tier  int     `json:"tier,omitempty" bson:"tier,omitempty"`
	Group string  `json:"group,omitempty" bson:"group,omitempty"`
	Color string  `json:"color,omitempty" bson:"color,omitempty"`
	Icon  string  `json:"icon,omitempty" bson:"icon,omitempty"`
	Shape string  `json:"shape,omitempty" bson:"shape,omitempty"`
}

// Edge is one styled diagram edge.
type Edge struct {
	Source string `json:"source" bson:"source"`
	Target string `json:"target" bson:"target"`
	Type   string `json:"type" bson:"type"`
}

// BBox is the bounding box of all node positions.
type BBox struct {
	MinX float64 `json:"min_x" bson:"min_x"`
	MinY float64 `json:"min_y" bson:"min_y"`
	MaxX float64 `json:"max_x" bson:"max_x"`
	MaxY float64 `json:"max_y" bson:"max_y"`
}

// Metadata summarizes the diagram.
type Metadata struct {
	NodeCount int  `json:"node_count" bson:"node_count"`
	EdgeCount int  `json:"edge_count" bson:"edge_count"`
	BBox      BBox `json:"bbox" bson:"bbox"`
}

// Description is the emitted diagram artifact. ID is a content hash over
// nodes, edges, and metadata, so equal content yields equal ids.
type Description struct {
	ID    string   `json:"id" bson:"_id"`
	Nodes []Node   `json:"nodes" bson:"nodes"`
	Edges []Edge   `json:"edges" bson:"edges"`
	Meta  Metadata `json:"metadata" bson:"metadata"`
}

// Emit joins the graph, positions, and per-resource styles by resource id.
// A resource present in the graph but absent from positions should not occur
// given the layout contract; it is omitted with a logged warning rather than
// failing the emission. Styles missing an id produce an unstyled node.
func Emit(g *resgraph.Graph, positions []layout.PositionedNode, styles map[string]theme.Style, logger *log.Logger) Description {
	if logger == nil {
		logger = log.NewWithOptions(io.Discard, log.Options{})
	}

	positioned := make(map[string]layout.PositionedNode, len(positions))
	for _, p := range positions {
		positioned[p.ID] = p
	}

	var desc Description
	for _, r := range g.Resources() {
		p, ok := positioned[r.ID]
		if !ok {
			logger.Warn("resource missing from layout, omitting", "resource", r.ID)
			continue
		}
		s := styles[r.ID]
		label := r.Name
		if label == "" {
			label = r.ID
		}
		desc.Nodes = append(desc.Nodes, Node{
			ID:    r.ID,
			Label: label,
			X:     p.X,
			Y:     p.Y,
			Tier:  p.Tier,
			Group: p.Group,
			Color: s.Color,
			Icon:  s.Icon,
			Shape: s.Shape,
		})
	}

	emitted := make(map[string]bool, len(desc.Nodes))
	for _, n := range desc.Nodes {
		emitted[n.ID] = true
	}
	for _, rel := range g.Relationships() {
		if !emitted[rel.Source] || !emitted[rel.Target] {
			continue
		}
		desc.Edges = append(desc.Edges, Edge{
			Source: rel.Source,
			Target: rel.Target,
			Type:   string(rel.Type),
		})
	}

	desc.Meta = Metadata{
		NodeCount: len(desc.Nodes),
		EdgeCount: len(desc.Edges),
		BBox:      boundingBox(desc.Nodes),
	}
	desc.ID = contentID(desc)
	return desc
}

// Marshal serializes the description to indented JSON.
func Marshal(d Description) ([]byte, error) {
	return json.MarshalIndent(d, "", "  ")
}

// Unmarshal decodes a description from JSON bytes.
func Unmarshal(data []byte) (Description, error) {
	var d Description
	if err := json.Unmarshal(data, &d); err != nil {
		return Description{}, err
	}
	return d, nil
}

// contentID hashes the description content (everything except the id itself).
func contentID(d Description) string {
	d.ID = ""
	data, _ := json.Marshal(d)
	return cache.Hash(data)
}

func boundingBox(nodes []Node) BBox {
	if len(nodes) == 0 {
		return BBox{}
	}
	box := BBox{MinX: nodes[0].X, MinY: nodes[0].Y, MaxX: nodes[0].X, MaxY: nodes[0].Y}
	for _, n := range nodes[1:] {
		if n.X < box.MinX {
			box.MinX = n.X
		}
		if n.Y < box.MinY {
			box.MinY = n.Y
		}
		if n.X > box.MaxX {
			box.MaxX = n.X
		}
		if n.Y > box.MaxY {
			box.MaxY = n.Y
		}
	}
	return box
}
