package layout

import (
	"math"

	"github.com/cloudplot/cloudplot/pkg/resgraph"
)

// Spring-embedder constants. Tuned so a dozen nodes settle inside roughly a
// Radius-sized frame with the default iteration count.
const (
	repulsionStrength = 50000.0
	attractionSpring  = 0.02
	timeStep          = 0.85
	damping           = 0.85
	minDistance       = 0.01
)

// forceDirected runs a classic spring-embedder simulation: every node pair
// repels with force inversely proportional to squared distance, every edge
// attracts proportionally to its length, and damped velocity integration
// moves the nodes. The simulation runs Options.Iterations steps or exits
// early once total displacement falls below Options.Epsilon.
//
// Initial placement is a circular seed over ids in sorted order, so repeated
// runs on identical input are bit-for-bit identical.
func forceDirected(g *resgraph.Graph, opts Options) []PositionedNode {
	ids := g.IDs()
	n := len(ids)
	if n == 1 {
		return []PositionedNode{{ID: ids[0]}}
	}

	pos := seedCircle(n, opts.Radius)
	vel := make([][2]float64, n)
	idx := make(map[string]int, n)
	for i, id := range ids {
		idx[id] = i
	}

	// Edge list as index pairs, deterministic because Relationships() is
	// sorted. Multi-edges pull proportionally harder, which is intended.
	type pair struct{ a, b int }
	var springs []pair
	for _, e := range g.Relationships() {
		springs = append(springs, pair{idx[e.Source], idx[e.Target]})
	}

	force := make([][2]float64, n)
	for it := 0; it < opts.Iterations; it++ {
		for i := range force {
			force[i] = [2]float64{}
		}

		// Pairwise repulsion.
		for i := 0; i < n; i++ {
			for j := i + 1; j < n; j++ {
				dx := pos[i][0] - pos[j][0]
				dy := pos[i][1] - pos[j][1]
				d2 := dx*dx + dy*dy
				if d2 < minDistance*minDistance {
					// Coincident nodes: push apart along a fixed axis.
					dx, dy, d2 = minDistance, 0, minDistance*minDistance
				}
				d := math.Sqrt(d2)
				f := repulsionStrength / d2
				fx, fy := f*dx/d, f*dy/d
				force[i][0] += fx
				force[i][1] += fy
				force[j][0] -= fx
				force[j][1] -= fy
			}
		}

		// Spring attraction along edges.
		for _, s := range springs {
			dx := pos[s.b][0] - pos[s.a][0]
			dy := pos[s.b][1] - pos[s.a][1]
			force[s.a][0] += dx * attractionSpring
			force[s.a][1] += dy * attractionSpring
			force[s.b][0] -= dx * attractionSpring
			force[s.b][1] -= dy * attractionSpring
		}

		// Damped velocity integration.
		total := 0.0
		for i := 0; i < n; i++ {
			vel[i][0] = (vel[i][0] + force[i][0]*timeStep) * damping
			vel[i][1] = (vel[i][1] + force[i][1]*timeStep) * damping
			pos[i][0] += vel[i][0] * timeStep
			pos[i][1] += vel[i][1] * timeStep
			total += math.Abs(vel[i][0]*timeStep) + math.Abs(vel[i][1]*timeStep)
		}
		if total < opts.Epsilon {
			break
		}
	}

	out := make([]PositionedNode, n)
	for i, id := range ids {
		out[i] = PositionedNode{ID: id, X: pos[i][0], Y: pos[i][1]}
	}
	return out
}

// seedCircle places n points evenly on a circle of the given radius,
// starting at angle 0.
func seedCircle(n int, radius float64) [][2]float64 {
	pos := make([][2]float64, n)
	for i := 0; i < n; i++ {
		angle := 2 * math.Pi * float64(i) / float64(n)
		pos[i] = [2]float64{radius * math.Cos(angle), radius * math.Sin(angle)}
	}
	return pos
}
