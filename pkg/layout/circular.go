package layout

import (
	"math"
	"sort"

	"github.com/cloudplot/cloudplot/pkg/resgraph"
)

// circular places nodes evenly around a circle of Options.Radius, ordered by
// (type, name). Useful for small graphs and relationship-only views.
func circular(g *resgraph.Graph, opts Options) []PositionedNode {
	ids := g.IDs()
	sort.Slice(ids, func(i, j int) bool {
		return keyLess(orderKey(g, ids[i]), orderKey(g, ids[j]))
	})

	n := len(ids)
	out := make([]PositionedNode, n)
	for i, id := range ids {
		angle := 2 * math.Pi * float64(i) / float64(n)
		out[i] = PositionedNode{
			ID: id,
			X:  opts.Radius * math.Cos(angle),
			Y:  opts.Radius * math.Sin(angle),
		}
	}
	return out
}
