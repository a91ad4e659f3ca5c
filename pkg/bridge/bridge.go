// Package bridge finds the shortest connections between labeled regions and
// orders them into a tree of corrections rooted at the reference region.
//
// Finding runs in two steps. FindAll builds a nearest-neighbour index over
// each region's boundary pixels and records, for every pair of regions, the
// closest pair of boundary pixels. Order then reduces that complete distance
// graph to a minimum spanning tree and walks it breadth-first from the
// reference region, so that every bridge connects an already corrected region
// (Label0) to the region being corrected next (Label1).
package bridge

import (
	"errors"
	"fmt"

	"gonum.org/v1/gonum/mat"

	"unwbridge/pkg/raster"
)

var (
	// ErrInvalidGraph indicates a boundary image or distance graph that cannot be used.
	ErrInvalidGraph = errors.New("bridge: invalid region graph")
	// ErrEmptyBoundary indicates a region with no boundary pixels.
	ErrEmptyBoundary = errors.New("bridge: region has no boundary pixels")
	// ErrInvalidReference indicates a reference label outside 1..N.
	ErrInvalidReference = errors.New("bridge: reference label out of range")
	// ErrDisconnected indicates that no spanning tree covers every region.
	ErrDisconnected = errors.New("bridge: region graph is disconnected")
)

// Pair is an unordered pair of region labels, stored with Lo < Hi.
type Pair struct {
	Lo, Hi int
}

// MakePair orders a and b into a Pair.
func MakePair(a, b int) Pair {
	if a > b {
		a, b = b, a
	}
	return Pair{Lo: a, Hi: b}
}

// Record is the closest pair of boundary pixels between two regions.
type Record struct {
	Pair Pair
	// LoPoint lies on region Pair.Lo, HiPoint on region Pair.Hi.
	LoPoint  raster.Point
	HiPoint  raster.Point
	Distance float64
}

// Endpoint returns the record's pixel that lies on the given region.
func (r Record) Endpoint(label int) raster.Point {
	if label == r.Pair.Lo {
		return r.LoPoint
	}
	return r.HiPoint
}

// Graph is the complete inter-region distance graph. Dist is indexed by
// label-1; Records is keyed by label pair.
type Graph struct {
	N       int
	Dist    *mat.SymDense
	Records map[Pair]Record
}

// Edge is a tree edge between nodes U and V (0-based, label-1).
type Edge struct {
	U, V   int
	Weight float64
}

// Bridge is a directed correction step: Label1 is shifted to agree with Label0
// using phase sampled around (X0,Y0) in Label0 and (X1,Y1) in Label1.
type Bridge struct {
	Label0 int `yaml:"label0"`
	Label1 int `yaml:"label1"`
	X0     int `yaml:"x0"`
	Y0     int `yaml:"y0"`
	X1     int `yaml:"x1"`
	Y1     int `yaml:"y1"`
}

// Endpoint0 returns the endpoint on the already corrected side.
func (b Bridge) Endpoint0() raster.Point { return raster.Point{Y: b.Y0, X: b.X0} }

// Endpoint1 returns the endpoint on the side being corrected.
func (b Bridge) Endpoint1() raster.Point { return raster.Point{Y: b.Y1, X: b.X1} }

func (b Bridge) String() string {
	return fmt.Sprintf("%d(%d,%d) -> %d(%d,%d)", b.Label0, b.Y0, b.X0, b.Label1, b.Y1, b.X1)
}
