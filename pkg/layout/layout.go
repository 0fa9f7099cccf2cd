// Package layout computes 2-D positions for resource graphs.
//
// Each algorithm is a pure function of the graph and options: two runs on the
// same input produce bit-for-bit identical coordinates. Determinism comes
// from ordering every iteration by sorted ids or the (type, name) ordering
// rule; no algorithm reads from a map in iteration order.
//
// The graph is not required to be acyclic. Hierarchical layout tiers nodes
// by containment depth and treats cycle members as roots; force and circular
// layouts ignore edge direction entirely.
package layout

import (
	"fmt"

	"github.com/cloudplot/cloudplot/pkg/resgraph"
)

// Algorithm names a layout algorithm.
type Algorithm string

// Supported algorithms.
const (
	Hierarchical Algorithm = "hierarchical"
	Force        Algorithm = "force"
	Circular     Algorithm = "circular"
)

// Valid reports whether a is a known algorithm.
func (a Algorithm) Valid() bool {
	switch a {
	case Hierarchical, Force, Circular:
		return true
	}
	return false
}

// UnsupportedLayoutError is returned by Compute for an unknown algorithm
// name. It is fatal to the single diagram request, not to the process.
type UnsupportedLayoutError struct {
	Algorithm string
}

// Error implements the error interface.
func (e *UnsupportedLayoutError) Error() string {
	return fmt.Sprintf("unsupported layout algorithm %q (must be one of: hierarchical, force, circular)", e.Algorithm)
}

// Default option values.
const (
	DefaultMaxNodesPerRow = 12
	DefaultTierSpacing    = 120.0
	DefaultNodeSpacing    = 80.0
	DefaultIterations     = 100
	DefaultEpsilon        = 0.01
	DefaultRadius         = 200.0
)

// Options configures the layout algorithms. Zero values are replaced by the
// defaults above; each algorithm reads only the fields it needs.
type Options struct {
	// Hierarchical
	MaxNodesPerRow int     `json:"max_nodes_per_row,omitempty"` // wrap threshold per tier
	TierSpacing    float64 `json:"tier_spacing,omitempty"`      // vertical distance between tiers
	NodeSpacing    float64 `json:"node_spacing,omitempty"`      // horizontal distance between nodes

	// Force-directed
	Iterations int     `json:"iterations,omitempty"`
	Epsilon    float64 `json:"epsilon,omitempty"` // early-exit displacement threshold

	// Circular (also seeds force placement)
	Radius float64 `json:"radius,omitempty"`
}

// WithDefaults returns a copy with zero fields replaced by defaults.
func (o Options) WithDefaults() Options {
	if o.MaxNodesPerRow <= 0 {
		o.MaxNodesPerRow = DefaultMaxNodesPerRow
	}
	if o.TierSpacing <= 0 {
		o.TierSpacing = DefaultTierSpacing
	}
	if o.NodeSpacing <= 0 {
		o.NodeSpacing = DefaultNodeSpacing
	}
	if o.Iterations <= 0 {
		o.Iterations = DefaultIterations
	}
	if o.Epsilon <= 0 {
		o.Epsilon = DefaultEpsilon
	}
	if o.Radius <= 0 {
		o.Radius = DefaultRadius
	}
	return o
}

// PositionedNode is one laid-out resource. Tier and Group are populated by
// the hierarchical algorithm and zero-valued otherwise.
type PositionedNode struct {
	ID    string  `json:"id" bson:"id"`
	X     float64 `json:"x" bson:"x"`
	Y     float64 `json:"y" bson:"y"`
	Tier  int     `json:"tier,omitempty" bson:"tier,omitempty"`
	Group string  `json:"group,omitempty" bson:"group,omitempty"`
}

// Compute lays out the graph with the named algorithm. An empty graph yields
// an empty position list. Unknown algorithm names fail with
// [UnsupportedLayoutError].
func Compute(g *resgraph.Graph, algo Algorithm, opts Options) ([]PositionedNode, error) {
	if !algo.Valid() {
		return nil, &UnsupportedLayoutError{Algorithm: string(algo)}
	}
	if g == nil || g.NodeCount() == 0 {
		return []PositionedNode{}, nil
	}
	opts = opts.WithDefaults()

	switch algo {
	case Hierarchical:
		return hierarchical(g, opts), nil
	case Force:
		return forceDirected(g, opts), nil
	default:
		return circular(g, opts), nil
	}
}

// orderKey is the deterministic within-tier ordering rule: (type, name, id).
func orderKey(g *resgraph.Graph, id string) [3]string {
	r, _ := g.Resource(id)
	return [3]string{r.Type, r.Name, r.ID}
}

func keyLess(a, b [3]string) bool {
	for i := range a {
		if a[i] != b[i] {
			return a[i] < b[i]
		}
	}
	return false
}
