package bridge

import (
	"math"

	"gonum.org/v1/gonum/spatial/kdtree"

	"unwbridge/pkg/raster"
)

// NearestNeighborIndex answers nearest-point queries over a fixed point set.
// Nearest returns the closest indexed point to q and its Euclidean distance.
// Implementations must be safe for concurrent queries.
type NearestNeighborIndex interface {
	Nearest(q raster.Point) (raster.Point, float64)
}

// IndexBuilder builds a NearestNeighborIndex over points. The slice may be
// reordered by the builder.
type IndexBuilder func(points []raster.Point) NearestNeighborIndex

// pixel is a boundary pixel stored in the KD-tree.
type pixel struct {
	Y, X int
}

// Compare implements the kdtree.Comparable interface
func (p pixel) Compare(c kdtree.Comparable, d kdtree.Dim) float64 {
	q := c.(pixel)
	switch d {
	case 0:
		return float64(p.Y - q.Y)
	case 1:
		return float64(p.X - q.X)
	default:
		panic("illegal dimension")
	}
}

func (p pixel) Dims() int { return 2 }

// Distance returns the squared Euclidean distance between two pixels
func (p pixel) Distance(c kdtree.Comparable) float64 {
	q := c.(pixel)
	dy := float64(p.Y - q.Y)
	dx := float64(p.X - q.X)
	return dy*dy + dx*dx
}

// pixels is a collection of pixel that satisfies kdtree.Interface
type pixels []pixel

func (p pixels) Index(i int) kdtree.Comparable         { return p[i] }
func (p pixels) Len() int                              { return len(p) }
func (p pixels) Slice(start, end int) kdtree.Interface { return p[start:end] }

// Pivot uses median of medians so that the tree, and therefore the nearest
// point returned on distance ties, does not depend on a random source.
func (p pixels) Pivot(d kdtree.Dim) int {
	plane := pixelPlane{pixels: p, Dim: d}
	return kdtree.Partition(plane, kdtree.MedianOfMedians(plane))
}

// pixelPlane implements sort.Interface and kdtree.SortSlicer for pixels
type pixelPlane struct {
	pixels
	kdtree.Dim
}

func (p pixelPlane) Less(i, j int) bool {
	switch p.Dim {
	case 0:
		return p.pixels[i].Y < p.pixels[j].Y
	case 1:
		return p.pixels[i].X < p.pixels[j].X
	default:
		panic("illegal dimension")
	}
}

func (p pixelPlane) Slice(start, end int) kdtree.SortSlicer {
	return pixelPlane{pixels: p.pixels[start:end], Dim: p.Dim}
}

func (p pixelPlane) Swap(i, j int) {
	p.pixels[i], p.pixels[j] = p.pixels[j], p.pixels[i]
}

// KDIndex is a NearestNeighborIndex backed by a gonum KD-tree.
type KDIndex struct {
	tree *kdtree.Tree
}

// NewKDIndex builds a KD-tree over points.
func NewKDIndex(points []raster.Point) NearestNeighborIndex {
	px := make(pixels, len(points))
	for i, p := range points {
		px[i] = pixel{Y: p.Y, X: p.X}
	}
	return &KDIndex{tree: kdtree.New(px, false)}
}

// Nearest returns the indexed pixel closest to q. An empty index returns
// (-1,-1) at infinite distance.
func (k *KDIndex) Nearest(q raster.Point) (raster.Point, float64) {
	c, d := k.tree.Nearest(pixel{Y: q.Y, X: q.X})
	if c == nil {
		return raster.Point{Y: -1, X: -1}, math.Inf(1)
	}
	p := c.(pixel)
	return raster.Point{Y: p.Y, X: p.X}, math.Sqrt(d)
}

// LinearIndex is an exhaustive-scan NearestNeighborIndex. On ties it returns
// the earliest point in input order. Useful for small regions and as a
// reference for the KD-tree.
type LinearIndex struct {
	points []raster.Point
}

// NewLinearIndex stores points for exhaustive search.
func NewLinearIndex(points []raster.Point) NearestNeighborIndex {
	return &LinearIndex{points: points}
}

func (l *LinearIndex) Nearest(q raster.Point) (raster.Point, float64) {
	best := raster.Point{Y: -1, X: -1}
	bestD := math.Inf(1)
	for _, p := range l.points {
		dy := float64(p.Y - q.Y)
		dx := float64(p.X - q.X)
		if d := dy*dy + dx*dx; d < bestD {
			best, bestD = p, d
		}
	}
	return best, math.Sqrt(bestD)
}
