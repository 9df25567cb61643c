package trace

import (
	"image"

	"github.com/ironsheep/terrace-extractor/internal/imaging"
)

// skeletonGraph views a thinned mask as a graph whose vertices are pixels.
// Pixels are m-adjacent: orthogonal neighbours always connect, diagonal
// neighbours only when neither shared orthogonal neighbour is set. This
// removes the small triangles 8-adjacency forms at every staircase corner.
type skeletonGraph struct {
	m       *imaging.Mask
	visited []uint8 // per-pixel bitmask of walked directions
}

func (g *skeletonGraph) set(p image.Point) bool {
	return g.m.At(p.X, p.Y)
}

func (g *skeletonGraph) index(p image.Point) int {
	return p.Y*g.m.Width + p.X
}

// connected reports whether p links to its neighbour in direction d.
func (g *skeletonGraph) connected(p image.Point, d int) bool {
	if !g.set(p.Add(dirs[d])) {
		return false
	}
	if d%2 == 0 {
		return true
	}
	return !g.set(p.Add(dirs[(d+7)&7])) && !g.set(p.Add(dirs[(d+1)&7]))
}

func (g *skeletonGraph) degree(p image.Point) int {
	n := 0
	for d := 0; d < 8; d++ {
		if g.connected(p, d) {
			n++
		}
	}
	return n
}

func (g *skeletonGraph) walked(p image.Point, d int) bool {
	return g.visited[g.index(p)]&(1<<d) != 0
}

func (g *skeletonGraph) markWalked(p image.Point, d int) {
	g.visited[g.index(p)] |= 1 << d
	q := p.Add(dirs[d])
	g.visited[g.index(q)] |= 1 << ((d + 4) & 7)
}

// Centerlines splits the skeleton into branches. Every pixel whose degree is
// not 2 (endpoints, junctions and isolated pixels) is a node; each branch
// runs from a node along degree-2 pixels to the next node. Components with
// no nodes are closed loops and are returned with Closed set.
func Centerlines(m *imaging.Mask) []Polyline {
	g := &skeletonGraph{m: m, visited: make([]uint8, m.Width*m.Height)}

	var lines []Polyline
	for y := 0; y < m.Height; y++ {
		for x := 0; x < m.Width; x++ {
			p := image.Pt(x, y)
			if !g.set(p) {
				continue
			}
			deg := g.degree(p)
			if deg == 2 {
				continue
			}
			if deg == 0 {
				lines = append(lines, Polyline{Points: []image.Point{p}})
				continue
			}
			for d := 0; d < 8; d++ {
				if g.connected(p, d) && !g.walked(p, d) {
					lines = append(lines, g.walk(p, d))
				}
			}
		}
	}

	// Whatever is left unwalked belongs to node-free loops.
	for y := 0; y < m.Height; y++ {
		for x := 0; x < m.Width; x++ {
			p := image.Pt(x, y)
			if !g.set(p) {
				continue
			}
			for d := 0; d < 8; d++ {
				if g.connected(p, d) && !g.walked(p, d) {
					line := g.walk(p, d)
					line.Closed = len(line.Points) > 2 && line.Points[0] == line.Points[len(line.Points)-1]
					lines = append(lines, line)
				}
			}
		}
	}
	return lines
}

// walk follows the branch leaving start in direction d until it reaches a
// node, a dead end or an already walked edge.
func (g *skeletonGraph) walk(start image.Point, d int) Polyline {
	pts := []image.Point{start}
	p := start
	for {
		g.markWalked(p, d)
		p = p.Add(dirs[d])
		pts = append(pts, p)
		if g.degree(p) != 2 {
			return Polyline{Points: pts}
		}

		next := -1
		for nd := 0; nd < 8; nd++ {
			if g.connected(p, nd) && !g.walked(p, nd) {
				next = nd
				break
			}
		}
		if next < 0 {
			return Polyline{Points: pts}
		}
		d = next
	}
}
