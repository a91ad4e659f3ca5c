package stitch

import (
	"image"
	"math"
	"sort"

	"unwbridge/pkg/raster"
)

// Window returns the sampling window [x-r, x+r) x [y-r, y+r) around p,
// clipped to the image. Rectangle X is the column, Y the row.
func Window(p raster.Point, r, length, width int) image.Rectangle {
	w := image.Rect(p.X-r, p.Y-r, p.X+r, p.Y+r)
	return w.Intersect(image.Rect(0, 0, width, length))
}

// windowValues collects the field values of label inside the window around p.
func windowValues(f *raster.Field, labels *raster.Labels, p raster.Point, label, r int) []float64 {
	w := Window(p, r, f.Length, f.Width)
	values := make([]float64, 0, w.Dx()*w.Dy())
	for y := w.Min.Y; y < w.Max.Y; y++ {
		for x := w.Min.X; x < w.Max.X; x++ {
			if labels.At(y, x) == label {
				values = append(values, f.At(y, x))
			}
		}
	}
	return values
}

// Median returns the median of the non-NaN values, averaging the two middle
// values for an even count. It returns NaN when no value is left.
func Median(values []float64) float64 {
	v := make([]float64, 0, len(values))
	for _, x := range values {
		if !math.IsNaN(x) {
			v = append(v, x)
		}
	}
	n := len(v)
	if n == 0 {
		return math.NaN()
	}
	sort.Float64s(v)
	if n%2 == 1 {
		return v[n/2]
	}
	return (v[n/2-1] + v[n/2]) / 2
}
