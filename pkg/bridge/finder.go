package bridge

import (
	"context"
	"fmt"
	"math"
	"runtime"
	"sync"

	"gonum.org/v1/gonum/mat"

	"unwbridge/pkg/raster"
)

// Options configures FindAll.
type Options struct {
	// Workers is the number of goroutines evaluating region pairs.
	// Values below 1 mean runtime.NumCPU().
	Workers int
	// Index builds the per-region nearest-neighbour index. Nil means NewKDIndex.
	Index IndexBuilder
}

// DefaultOptions uses all CPUs and KD-tree indices.
func DefaultOptions() Options {
	return Options{
		Workers: runtime.NumCPU(),
		Index:   NewKDIndex,
	}
}

// BoundaryPoints groups the boundary pixels of labels 1..n, each list in raster order.
func BoundaryPoints(boundary *raster.Labels, n int) ([][]raster.Point, error) {
	coords := make([][]raster.Point, n+1)
	for y := 0; y < boundary.Length; y++ {
		for x := 0; x < boundary.Width; x++ {
			v := boundary.At(y, x)
			if v == 0 {
				continue
			}
			if v < 0 || v > n {
				return nil, fmt.Errorf("%w: boundary label %d outside 1..%d", ErrInvalidGraph, v, n)
			}
			coords[v] = append(coords[v], raster.Point{Y: y, X: x})
		}
	}
	return coords, nil
}

// FindAll computes, for every pair of regions i<j, the closest pair of
// boundary pixels and their distance. Each point of region j is queried against
// region i's index; the first strict minimum in raster order of region j wins.
//
// Pairs are independent, so they are spread over opts.Workers goroutines and
// the results are written by a single collector. The output does not depend on
// the worker count.
func FindAll(ctx context.Context, boundary *raster.Labels, n int, opts Options) (*Graph, error) {
	if boundary == nil || n < 1 {
		return nil, fmt.Errorf("%w: %d regions", ErrInvalidGraph, n)
	}
	coords, err := BoundaryPoints(boundary, n)
	if err != nil {
		return nil, err
	}

	g := &Graph{
		N:       n,
		Dist:    mat.NewSymDense(n, nil),
		Records: make(map[Pair]Record, n*(n-1)/2),
	}
	if n == 1 {
		return g, nil
	}

	for label := 1; label <= n; label++ {
		if len(coords[label]) == 0 {
			return nil, fmt.Errorf("%w: label %d", ErrEmptyBoundary, label)
		}
	}

	build := opts.Index
	if build == nil {
		build = NewKDIndex
	}
	// Region n is only ever a query side.
	indices := make([]NearestNeighborIndex, n)
	for label := 1; label < n; label++ {
		pts := make([]raster.Point, len(coords[label]))
		copy(pts, coords[label])
		indices[label] = build(pts)
	}

	workers := opts.Workers
	if workers < 1 {
		workers = runtime.NumCPU()
	}

	jobs := make(chan Pair)
	results := make(chan Record)
	var wg sync.WaitGroup

	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for p := range jobs {
				results <- closestPair(p, indices[p.Lo], coords[p.Hi])
			}
		}()
	}

	go func() {
		defer close(jobs)
		for i := 1; i < n; i++ {
			for j := i + 1; j <= n; j++ {
				select {
				case jobs <- Pair{Lo: i, Hi: j}:
				case <-ctx.Done():
					return
				}
			}
		}
	}()

	// Close the results channel when all workers are done
	go func() {
		wg.Wait()
		close(results)
	}()

	for rec := range results {
		g.Records[rec.Pair] = rec
		g.Dist.SetSym(rec.Pair.Lo-1, rec.Pair.Hi-1, rec.Distance)
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return g, nil
}

func closestPair(p Pair, index NearestNeighborIndex, queries []raster.Point) Record {
	rec := Record{Pair: p, Distance: math.Inf(1)}
	for _, q := range queries {
		near, d := index.Nearest(q)
		if d < rec.Distance {
			rec.Distance = d
			rec.LoPoint = near
			rec.HiPoint = q
		}
	}
	return rec
}
