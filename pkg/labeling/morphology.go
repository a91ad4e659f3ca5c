package labeling

import (
	"unwbridge/pkg/raster"
)

// Erode applies a grey-level erosion (minimum filter) with a size×size square
// structuring element to a label image. Window pixels falling outside the image
// are ignored, so regions touching the border are not eaten from that side.
//
// Because distinct labels are never 4-adjacent, any window covering two labels
// also covers background; the minimum is then 0 and labels erode cleanly
// without bleeding into each other.
//
// The square element is separable, so the filter runs as a row pass followed
// by a column pass: O(L·W·size).
func Erode(l *raster.Labels, size int) *raster.Labels {
	if size <= 1 {
		return l.Clone()
	}
	lo := -(size / 2)
	hi := size - 1 - size/2

	rows := raster.NewLabels(l.Length, l.Width)
	for y := 0; y < l.Length; y++ {
		for x := 0; x < l.Width; x++ {
			m := l.At(y, x)
			for dx := lo; dx <= hi && m > 0; dx++ {
				xx := x + dx
				if xx < 0 || xx >= l.Width {
					continue
				}
				if v := l.At(y, xx); v < m {
					m = v
				}
			}
			rows.Set(y, x, m)
		}
	}

	out := raster.NewLabels(l.Length, l.Width)
	for y := 0; y < l.Length; y++ {
		for x := 0; x < l.Width; x++ {
			m := rows.At(y, x)
			for dy := lo; dy <= hi && m > 0; dy++ {
				yy := y + dy
				if yy < 0 || yy >= l.Length {
					continue
				}
				if v := rows.At(yy, x); v < m {
					m = v
				}
			}
			out.Set(y, x, m)
		}
	}
	return out
}

// FindBoundaries marks "thick" boundaries of a label image: a pixel is on a
// boundary when any in-bounds 4-neighbour carries a different value, which
// marks both sides of every edge. The result keeps only boundary pixels that
// lie inside a region and stores that region's label in them.
func FindBoundaries(l *raster.Labels) *raster.Labels {
	out := raster.NewLabels(l.Length, l.Width)
	for y := 0; y < l.Length; y++ {
		for x := 0; x < l.Width; x++ {
			v := l.At(y, x)
			if v == 0 {
				continue
			}
			for _, d := range offsets4 {
				xx, yy := x+d[0], y+d[1]
				if xx < 0 || yy < 0 || xx >= l.Width || yy >= l.Length {
					continue
				}
				if l.At(yy, xx) != v {
					out.Set(y, x, v)
					break
				}
			}
		}
	}
	return out
}
