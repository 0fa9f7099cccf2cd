// Package resgraph holds the deduplicated resource relationship graph built
// from one discovery snapshot.
//
// A Graph is constructed once from a resource list and a relationship list
// and is read-only thereafter: every transformation (Subgraph) returns a new
// Graph. Construction drops edges whose endpoints are unknown and self-edges,
// so downstream consumers never see dangling references. Graphs are owned by
// the pipeline run that produced them and are never mutated concurrently.
package resgraph

import (
	"slices"
	"sort"

	"github.com/cloudplot/cloudplot/pkg/relate"
	"github.com/cloudplot/cloudplot/pkg/resource"
)

// Direction selects which edges Neighbors follows.
type Direction int

const (
	// Out follows edges whose source is the queried id.
	Out Direction = iota
	// In follows edges whose target is the queried id.
	In
	// Both follows edges in either direction.
	Both
)

// Graph is the aggregate of one discovery snapshot: resources keyed by id
// plus their deduplicated relationships, with an adjacency index built once
// at construction.
type Graph struct {
	resources map[string]resource.Resource
	order     []string // resource ids, sorted
	edges     []relate.Relationship
	outgoing  map[string][]int // id -> edge indices
	incoming  map[string][]int
}

// New builds a graph from resources and relationships. Duplicate resource
// ids keep the first occurrence. Relationships referencing unknown ids or
// linking a resource to itself are dropped. The retained edges are sorted by
// (source, target, type) so construction is deterministic.
func New(resources []resource.Resource, rels []relate.Relationship) *Graph {
	g := &Graph{
		resources: make(map[string]resource.Resource, len(resources)),
		outgoing:  make(map[string][]int),
		incoming:  make(map[string][]int),
	}

	for _, r := range resources {
		if r.ID == "" {
			continue
		}
		if _, exists := g.resources[r.ID]; exists {
			continue
		}
		g.resources[r.ID] = r
		g.order = append(g.order, r.ID)
	}
	slices.Sort(g.order)

	kept := make([]relate.Relationship, 0, len(rels))
	for _, rel := range rels {
		if rel.Source == rel.Target {
			continue
		}
		if _, ok := g.resources[rel.Source]; !ok {
			continue
		}
		if _, ok := g.resources[rel.Target]; !ok {
			continue
		}
		kept = append(kept, rel)
	}
	sort.SliceStable(kept, func(i, j int) bool {
		a, b := kept[i], kept[j]
		if a.Source != b.Source {
			return a.Source < b.Source
		}
		if a.Target != b.Target {
			return a.Target < b.Target
		}
		return a.Type < b.Type
	})
	g.edges = kept

	for i, e := range g.edges {
		g.outgoing[e.Source] = append(g.outgoing[e.Source], i)
		g.incoming[e.Target] = append(g.incoming[e.Target], i)
	}

	return g
}

// Resource returns the resource with the given id.
func (g *Graph) Resource(id string) (resource.Resource, bool) {
	r, ok := g.resources[id]
	return r, ok
}

// Resources returns all resources sorted by id.
func (g *Graph) Resources() []resource.Resource {
	out := make([]resource.Resource, len(g.order))
	for i, id := range g.order {
		out[i] = g.resources[id]
	}
	return out
}

// IDs returns all resource ids in sorted order.
func (g *Graph) IDs() []string { return slices.Clone(g.order) }

// Relationships returns a copy of all edges in sorted order.
func (g *Graph) Relationships() []relate.Relationship { return slices.Clone(g.edges) }

// NodeCount returns the number of resources.
func (g *Graph) NodeCount() int { return len(g.resources) }

// EdgeCount returns the number of relationships.
func (g *Graph) EdgeCount() int { return len(g.edges) }

// Neighbors returns the ids adjacent to id in the given direction, optionally
// restricted to the named relationship types. The result is sorted and
// deduplicated. Returns nil for unknown ids.
func (g *Graph) Neighbors(id string, dir Direction, types ...relate.Type) []string {
	var ids []string
	if dir == Out || dir == Both {
		for _, i := range g.outgoing[id] {
			if matchType(g.edges[i].Type, types) {
				ids = append(ids, g.edges[i].Target)
			}
		}
	}
	if dir == In || dir == Both {
		for _, i := range g.incoming[id] {
			if matchType(g.edges[i].Type, types) {
				ids = append(ids, g.edges[i].Source)
			}
		}
	}
	if ids == nil {
		return nil
	}
	slices.Sort(ids)
	return slices.Compact(ids)
}

// GroupBy partitions the resource ids by the key function. Ids within each
// group are sorted.
func (g *Graph) GroupBy(keyFn func(resource.Resource) string) map[string][]string {
	groups := make(map[string][]string)
	for _, id := range g.order {
		key := keyFn(g.resources[id])
		groups[key] = append(groups[key], id)
	}
	return groups
}

// Subgraph returns a new graph containing only resources accepted by the
// predicate. Edges with a removed endpoint are dropped by construction.
func (g *Graph) Subgraph(pred func(resource.Resource) bool) *Graph {
	var resources []resource.Resource
	for _, id := range g.order {
		if r := g.resources[id]; pred(r) {
			resources = append(resources, r)
		}
	}
	return New(resources, g.edges)
}

// ContainmentParent returns the id of the resource containing id via a
// Contains edge, if any. Each resource has at most one containment parent
// since parent_scope is a single field.
func (g *Graph) ContainmentParent(id string) (string, bool) {
	for _, i := range g.incoming[id] {
		if g.edges[i].Type == relate.Contains {
			return g.edges[i].Source, true
		}
	}
	return "", false
}

func matchType(t relate.Type, types []relate.Type) bool {
	if len(types) == 0 {
		return true
	}
	return slices.Contains(types, t)
}
