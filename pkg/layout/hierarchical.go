package layout

import (
	"sort"

	"github.com/cloudplot/cloudplot/pkg/resgraph"
)

// hierarchical tiers nodes by containment depth: resources with no resolved
// containment parent sit in tier 0, their children in tier 1, and so on.
// Within a tier nodes are grouped by provider then region and ordered by
// (type, name); x positions are evenly spaced and centered, y grows with
// tier depth. A tier wider than MaxNodesPerRow wraps onto additional rows
// inside the same tier band.
func hierarchical(g *resgraph.Graph, opts Options) []PositionedNode {
	depths := containmentDepths(g)

	tiers := make(map[int][]string)
	maxTier := 0
	for _, id := range g.IDs() {
		d := depths[id]
		tiers[d] = append(tiers[d], id)
		if d > maxTier {
			maxTier = d
		}
	}

	var out []PositionedNode
	yBase := 0.0
	for tier := 0; tier <= maxTier; tier++ {
		ids := tiers[tier]
		if len(ids) == 0 {
			continue
		}
		sort.Slice(ids, func(i, j int) bool {
			gi, gj := groupLabel(g, ids[i]), groupLabel(g, ids[j])
			if gi != gj {
				return gi < gj
			}
			return keyLess(orderKey(g, ids[i]), orderKey(g, ids[j]))
		})

		rows := (len(ids) + opts.MaxNodesPerRow - 1) / opts.MaxNodesPerRow
		for i, id := range ids {
			row := i / opts.MaxNodesPerRow
			col := i % opts.MaxNodesPerRow
			rowLen := opts.MaxNodesPerRow
			if row == rows-1 {
				rowLen = len(ids) - row*opts.MaxNodesPerRow
			}
			// Center each row around x=0.
			x := (float64(col) - float64(rowLen-1)/2) * opts.NodeSpacing
			y := yBase + float64(row)*opts.NodeSpacing
			out = append(out, PositionedNode{
				ID:    id,
				X:     x,
				Y:     y,
				Tier:  tier,
				Group: groupLabel(g, id),
			})
		}
		// Next tier starts below this tier's rows.
		yBase += float64(rows-1)*opts.NodeSpacing + opts.TierSpacing
	}

	return out
}

// groupLabel is the provider/region grouping used to order nodes in a tier.
func groupLabel(g *resgraph.Graph, id string) string {
	r, _ := g.Resource(id)
	if r.Region == "" {
		return string(r.Provider)
	}
	return string(r.Provider) + "/" + r.Region
}

// containmentDepths assigns each node its depth in the Contains forest.
// Nodes without a resolved parent are roots at depth 0. parent_scope cycles
// are possible in hostile input; members of a cycle are treated as roots so
// the layout always terminates.
func containmentDepths(g *resgraph.Graph) map[string]int {
	const (
		unvisited  = 0
		inProgress = 1
		done       = 2
	)
	state := make(map[string]int, g.NodeCount())
	depths := make(map[string]int, g.NodeCount())

	var resolve func(id string) int
	resolve = func(id string) int {
		switch state[id] {
		case done:
			return depths[id]
		case inProgress:
			// Containment cycle: break it by rooting this node.
			depths[id] = 0
			state[id] = done
			return 0
		}
		state[id] = inProgress

		d := 0
		if parent, ok := g.ContainmentParent(id); ok {
			if state[id] != done { // resolve(parent) may have closed the cycle through us
				d = resolve(parent) + 1
			}
		}
		if state[id] != done {
			depths[id] = d
			state[id] = done
		}
		return depths[id]
	}

	for _, id := range g.IDs() {
		resolve(id)
	}
	return depths
}
