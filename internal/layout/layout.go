// Package layout computes force-directed positions for the partner network.
package layout

import (
	"math"
	"sort"
)

// DefaultIterations is the fixed number of simulation steps.
const DefaultIterations = 100

// Node is a graph vertex. Nodes with HasPosition start from X, Y.
type Node struct {
	ID          string
	X           float64
	Y           float64
	HasPosition bool
}

// Edge connects two nodes. Strength scales attraction; zero means 1.
type Edge struct {
	Source   string
	Target   string
	Strength float64
}

// Position is a computed node location.
type Position struct {
	ID string  `json:"partner_id"`
	X  float64 `json:"x"`
	Y  float64 `json:"y"`
}

// Options tunes the simulation. Zero values take defaults.
type Options struct {
	Width          float64
	Height         float64
	Padding        float64
	Iterations     int
	Repulsion      float64
	SpringLength   float64
	SpringConstant float64
	Centering      float64
	MaxStep        float64
}

func (o Options) withDefaults() Options {
	if o.Width <= 0 {
		o.Width = 1000
	}
	if o.Height <= 0 {
		o.Height = 700
	}
	if o.Padding == 0 {
		o.Padding = 40
	}
	if o.Padding < 0 || o.Padding*2 >= math.Min(o.Width, o.Height) {
		o.Padding = 0
	}
	if o.Iterations <= 0 {
		o.Iterations = DefaultIterations
	}
	if o.Repulsion <= 0 {
		o.Repulsion = 8000
	}
	if o.SpringLength <= 0 {
		o.SpringLength = 140
	}
	if o.SpringConstant <= 0 {
		o.SpringConstant = 0.04
	}
	if o.Centering <= 0 {
		o.Centering = 0.01
	}
	if o.MaxStep <= 0 {
		o.MaxStep = 40
	}
	return o
}

type body struct {
	id     string
	x, y   float64
	fx, fy float64
}

type spring struct {
	a, b     int
	strength float64
}

// Compute runs the simulation and returns positions ordered by node ID.
// Edges referencing unknown nodes or connecting a node to itself are ignored.
func Compute(nodes []Node, edges []Edge, opts Options) []Position {
	opts = opts.withDefaults()
	if len(nodes) == 0 {
		return []Position{}
	}

	sorted := make([]Node, len(nodes))
	copy(sorted, nodes)
	sort.SliceStable(sorted, func(i, j int) bool { return sorted[i].ID < sorted[j].ID })

	cx, cy := opts.Width/2, opts.Height/2
	radius := math.Min(opts.Width, opts.Height) * 0.35

	bodies := make([]body, 0, len(sorted))
	index := make(map[string]int, len(sorted))
	for i, node := range sorted {
		if _, dup := index[node.ID]; dup {
			continue
		}
		b := body{id: node.ID, x: node.X, y: node.Y}
		if !node.HasPosition {
			angle := 2 * math.Pi * float64(i) / float64(len(sorted))
			b.x = cx + radius*math.Cos(angle)
			b.y = cy + radius*math.Sin(angle)
		}
		index[node.ID] = len(bodies)
		bodies = append(bodies, b)
	}

	springs := make([]spring, 0, len(edges))
	for _, edge := range edges {
		a, okA := index[edge.Source]
		b, okB := index[edge.Target]
		if !okA || !okB || a == b {
			continue
		}
		strength := edge.Strength
		if strength <= 0 {
			strength = 1
		}
		springs = append(springs, spring{a: a, b: b, strength: strength})
	}

	for step := 0; step < opts.Iterations; step++ {
		for i := range bodies {
			bodies[i].fx, bodies[i].fy = 0, 0
		}

		for i := 0; i < len(bodies); i++ {
			for j := i + 1; j < len(bodies); j++ {
				dx := bodies[i].x - bodies[j].x
				dy := bodies[i].y - bodies[j].y
				dist2 := dx*dx + dy*dy
				if dist2 < 0.01 {
					// Coincident nodes: separate along a fixed diagonal.
					dx, dy = float64(j-i)*0.1, 0.1
					dist2 = dx*dx + dy*dy
				}
				dist := math.Sqrt(dist2)
				force := opts.Repulsion / dist2
				fx, fy := force*dx/dist, force*dy/dist
				bodies[i].fx += fx
				bodies[i].fy += fy
				bodies[j].fx -= fx
				bodies[j].fy -= fy
			}
		}

		for _, s := range springs {
			a, b := &bodies[s.a], &bodies[s.b]
			dx := b.x - a.x
			dy := b.y - a.y
			dist := math.Hypot(dx, dy)
			if dist < 0.01 {
				continue
			}
			// Stronger partnerships settle closer together.
			target := opts.SpringLength / math.Sqrt(s.strength)
			force := opts.SpringConstant * s.strength * (dist - target)
			fx, fy := force*dx/dist, force*dy/dist
			a.fx += fx
			a.fy += fy
			b.fx -= fx
			b.fy -= fy
		}

		cooling := 1 - float64(step)/float64(opts.Iterations)
		limit := opts.MaxStep * math.Max(cooling, 0.05)
		for i := range bodies {
			b := &bodies[i]
			b.fx += opts.Centering * (cx - b.x)
			b.fy += opts.Centering * (cy - b.y)

			b.x = clamp(b.x+clamp(b.fx, -limit, limit), opts.Padding, opts.Width-opts.Padding)
			b.y = clamp(b.y+clamp(b.fy, -limit, limit), opts.Padding, opts.Height-opts.Padding)
		}
	}

	positions := make([]Position, len(bodies))
	for i, b := range bodies {
		positions[i] = Position{ID: b.id, X: round2(b.x), Y: round2(b.y)}
	}
	return positions
}

func clamp(value, lo, hi float64) float64 {
	if value < lo {
		return lo
	}
	if value > hi {
		return hi
	}
	return value
}

func round2(value float64) float64 {
	return math.Round(value*100) / 100
}
