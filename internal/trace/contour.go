package trace

import (
	"image"

	"github.com/ironsheep/terrace-extractor/internal/imaging"
)

// Neighbour offsets indexed counter-clockwise from east, as seen on screen
// with y pointing down.
var dirs = [8]image.Point{
	{1, 0}, {1, -1}, {0, -1}, {-1, -1},
	{-1, 0}, {-1, 1}, {0, 1}, {1, 1},
}

// labelGrid is the mask padded by one background pixel on every side. Values
// are 0 for background, 1 for unvisited foreground, and +/-n once a pixel has
// been assigned to border n.
type labelGrid struct {
	w, h int // padded size
	f    []int32
}

func newLabelGrid(m *imaging.Mask) *labelGrid {
	g := &labelGrid{w: m.Width + 2, h: m.Height + 2}
	g.f = make([]int32, g.w*g.h)
	for y := 0; y < m.Height; y++ {
		for x := 0; x < m.Width; x++ {
			if m.Pix[y*m.Width+x] != 0 {
				g.f[(y+1)*g.w+x+1] = 1
			}
		}
	}
	return g
}

func (g *labelGrid) at(p image.Point) int32 {
	return g.f[p.Y*g.w+p.X]
}

func (g *labelGrid) set(p image.Point, v int32) {
	g.f[p.Y*g.w+p.X] = v
}

// Contours traces every outer and hole border of the 8-connected components
// of m in raster order of their starting pixel. Each border lists every
// pixel in traversal order without repeating the start.
func Contours(m *imaging.Mask) []Polyline {
	if m.Width == 0 || m.Height == 0 {
		return nil
	}
	g := newLabelGrid(m)

	var lines []Polyline
	nbd := int32(1)
	for y := 1; y < g.h-1; y++ {
		for x := 1; x < g.w; x++ {
			left, cur := g.f[y*g.w+x-1], g.f[y*g.w+x]
			switch {
			case left == 0 && cur == 1:
				nbd++
				lines = append(lines, g.follow(image.Pt(x, y), 4, nbd))
			case cur == 0 && left >= 1:
				nbd++
				lines = append(lines, g.follow(image.Pt(x-1, y), 0, nbd))
			}
		}
	}
	return lines
}

// follow traces one border starting at p0. start is the direction of the
// background pixel that triggered the border: west for outer borders, east
// for holes.
func (g *labelGrid) follow(p0 image.Point, start int, nbd int32) Polyline {
	// Clockwise search for the first foreground neighbour.
	s := start
	for {
		s = (s + 7) & 7
		if g.at(p0.Add(dirs[s])) != 0 {
			break
		}
		if s == start {
			g.set(p0, -nbd)
			return Polyline{Points: []image.Point{unpad(p0)}}
		}
	}

	p1 := p0.Add(dirs[s])
	p3 := p0
	var pts []image.Point
	for {
		// Counter-clockwise search starting just past the previous pixel.
		su := s
		var p4 image.Point
		for {
			su++
			p4 = p3.Add(dirs[su&7])
			if g.at(p4) != 0 {
				break
			}
		}
		s = su & 7

		// su > 8 means the east neighbour was examined and is background.
		if su > 8 {
			g.set(p3, -nbd)
		} else if g.at(p3) == 1 {
			g.set(p3, nbd)
		}
		pts = append(pts, unpad(p3))

		if p4 == p0 && p3 == p1 {
			return Polyline{Points: pts}
		}
		p3 = p4
		s = (s + 4) & 7
	}
}

func unpad(p image.Point) image.Point {
	return image.Pt(p.X-1, p.Y-1)
}
