package imaging

// Skeletonize thins a binary mask to one-pixel-wide centerlines using the
// Zhang-Suen algorithm. The input is not modified. Every pixel of the result
// is also set in m. Pixels outside the mask are treated as background.
func Skeletonize(m *Mask) *Mask {
	out := m.Clone()
	w, h := out.Width, out.Height
	if w == 0 || h == 0 {
		return out
	}

	var remove []int
	for {
		changed := false
		for step := 0; step < 2; step++ {
			remove = remove[:0]
			for y := 0; y < h; y++ {
				for x := 0; x < w; x++ {
					if out.Pix[y*w+x] == 0 {
						continue
					}
					if thinDeletable(out, x, y, step) {
						remove = append(remove, y*w+x)
					}
				}
			}
			for _, i := range remove {
				out.Pix[i] = 0
			}
			if len(remove) > 0 {
				changed = true
			}
		}
		if !changed {
			return out
		}
	}
}

// thinDeletable applies the Zhang-Suen tests to (x, y). Neighbours are
// numbered p2..p9 clockwise from north.
func thinDeletable(m *Mask, x, y, step int) bool {
	var p [8]bool
	p[0] = m.At(x, y-1)
	p[1] = m.At(x+1, y-1)
	p[2] = m.At(x+1, y)
	p[3] = m.At(x+1, y+1)
	p[4] = m.At(x, y+1)
	p[5] = m.At(x-1, y+1)
	p[6] = m.At(x-1, y)
	p[7] = m.At(x-1, y-1)

	n, transitions := 0, 0
	for i := 0; i < 8; i++ {
		if p[i] {
			n++
		}
		if !p[i] && p[(i+1)%8] {
			transitions++
		}
	}
	if n < 2 || n > 6 || transitions != 1 {
		return false
	}

	p2, p4, p6, p8 := p[0], p[2], p[4], p[6]
	if step == 0 {
		return !(p2 && p4 && p6) && !(p4 && p6 && p8)
	}
	return !(p2 && p4 && p8) && !(p2 && p6 && p8)
}
