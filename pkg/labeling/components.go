package labeling

import (
	"image"

	"unwbridge/pkg/raster"
)

// offsets4 is the orthogonal (N, E, S, W) neighbourhood.
var offsets4 = [4][2]int{{0, -1}, {1, 0}, {0, 1}, {-1, 0}}

// Region summarizes one labeled region.
type Region struct {
	Label int
	Area  int
	// BBox is the half-open bounding box in (x, y) pixel coordinates.
	BBox image.Rectangle
}

// ConnectedComponents labels the 4-connected groups of true pixels in mask.
// Ids are assigned 1..n in raster-scan order of each component's first pixel.
//
// Time:   O(L·W).
// Memory: O(L·W) for the label image and the BFS queue.
func ConnectedComponents(mask *raster.Mask) (*raster.Labels, int) {
	labels := raster.NewLabels(mask.Length, mask.Width)
	n := 0
	var queue []int

	for i0, valid := range mask.Data {
		if !valid || labels.Data[i0] != 0 {
			continue
		}
		n++
		labels.Data[i0] = n
		queue = append(queue[:0], i0)

		for qi := 0; qi < len(queue); qi++ {
			u := queue[qi]
			uy, ux := u/mask.Width, u%mask.Width
			for _, d := range offsets4 {
				vx, vy := ux+d[0], uy+d[1]
				if vx < 0 || vy < 0 || vx >= mask.Width || vy >= mask.Length {
					continue
				}
				vi := vy*mask.Width + vx
				if mask.Data[vi] && labels.Data[vi] == 0 {
					labels.Data[vi] = n
					queue = append(queue, vi)
				}
			}
		}
	}
	return labels, n
}

// Relabel compacts the ids of l to 1..n, keeping the raster-scan order of
// first appearance. It returns the new image, n, and the old->new mapping
// (index = old id, value 0 for ids that do not occur).
func Relabel(l *raster.Labels) (*raster.Labels, int, []int) {
	mapping := make([]int, l.Max()+1)
	out := raster.NewLabels(l.Length, l.Width)
	n := 0
	for i, v := range l.Data {
		if v == 0 {
			continue
		}
		if mapping[v] == 0 {
			n++
			mapping[v] = n
		}
		out.Data[i] = mapping[v]
	}
	return out, n, mapping
}

// Areas returns the pixel count of every label 0..n (index 0 is background).
func Areas(l *raster.Labels, n int) []int {
	counts := make([]int, n+1)
	for _, v := range l.Data {
		if v >= 0 && v <= n {
			counts[v]++
		}
	}
	return counts
}

// Regions returns area and bounding box for every label present in l, ordered by label.
func Regions(l *raster.Labels) []Region {
	maxLabel := l.Max()
	regions := make([]Region, maxLabel+1)
	for y := 0; y < l.Length; y++ {
		for x := 0; x < l.Width; x++ {
			v := l.At(y, x)
			if v == 0 {
				continue
			}
			r := &regions[v]
			px := image.Rect(x, y, x+1, y+1)
			if r.Area == 0 {
				r.Label = v
				r.BBox = px
			} else {
				r.BBox = r.BBox.Union(px)
			}
			r.Area++
		}
	}

	out := regions[:0]
	for _, r := range regions[1:] {
		if r.Area > 0 {
			out = append(out, r)
		}
	}
	return out
}
