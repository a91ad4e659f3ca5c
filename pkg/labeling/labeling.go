// Package labeling turns a validity mask into cleaned region labels and the
// boundary pixels used as bridge endpoint candidates.
//
// The cleanup runs in three passes:
//  1. 4-connected labeling of the mask,
//  2. removal of regions smaller than min(MinArea, 0.3% of the image),
//  3. removal of regions that vanish under a square erosion, since they are
//     too thin to bridge reliably.
//
// Boundaries are taken from the eroded label image so that bridge endpoints
// sit a few pixels inside each region, away from noisy region edges.
package labeling

import (
	"errors"
	"fmt"
	"image"
	"io"
	"math"

	"github.com/charmbracelet/log"

	"unwbridge/pkg/raster"
)

var (
	// ErrInvalidMask indicates an empty or malformed validity mask.
	ErrInvalidMask = errors.New("labeling: invalid validity mask")
	// ErrInvalidOptions indicates a non-positive erosion size or negative area.
	ErrInvalidOptions = errors.New("labeling: invalid options")
	// ErrReferenceOutside indicates a reference pixel outside every surviving region.
	ErrReferenceOutside = errors.New("labeling: reference pixel is not inside a labeled region")
	// ErrNoRegions indicates that no region survived cleanup.
	ErrNoRegions = errors.New("labeling: no regions left after cleanup")
)

// Options controls region cleanup.
type Options struct {
	// MinArea is the smallest region kept, in pixels. The effective threshold
	// is min(MinArea, 0.3% of the image size).
	MinArea float64
	// ErosionSize is the side of the square structuring element.
	ErosionSize int
	// Logger receives debug lines for every dropped region. Nil discards.
	Logger *log.Logger
}

// DefaultOptions returns the standard cleanup settings.
func DefaultOptions() Options {
	return Options{
		MinArea:     2500,
		ErosionSize: 5,
	}
}

// DropReason tells why a region was removed during cleanup.
type DropReason string

const (
	DropSmallArea DropReason = "small-area"
	DropErosion   DropReason = "erosion"
)

// Dropped records a region removed during cleanup. Label is the id the region
// had in the pass that removed it.
type Dropped struct {
	Label  int
	Area   int
	BBox   image.Rectangle
	Reason DropReason
}

// Result is the output of Label.
type Result struct {
	// Labels is the final label image, ids 1..NumLabel.
	Labels   *raster.Labels
	NumLabel int
	// Eroded is the eroded label image, in the same numbering as Labels.
	Eroded *raster.Labels
	// Boundary carries, at every thick-boundary pixel of Eroded, that region's id.
	Boundary *raster.Labels
	Dropped  []Dropped
}

// Label runs the three cleanup passes over mask and extracts region boundaries.
func Label(mask *raster.Mask, opts Options) (*Result, error) {
	if mask == nil {
		return nil, ErrInvalidMask
	}
	if err := raster.CheckShape(len(mask.Data), mask.Length, mask.Width); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidMask, err)
	}
	if opts.ErosionSize < 1 || opts.MinArea < 0 {
		return nil, fmt.Errorf("%w: erosion size %d, min area %g", ErrInvalidOptions, opts.ErosionSize, opts.MinArea)
	}
	logger := opts.Logger
	if logger == nil {
		logger = log.New(io.Discard)
	}

	res := &Result{}

	// initial label
	labels, n := ConnectedComponents(mask)
	logger.Debug("initial labeling", "regions", n)

	// remove regions with small area
	minArea := math.Min(opts.MinArea, float64(len(mask.Data))*3e-3)
	small := make(map[int]bool)
	for _, r := range Regions(labels) {
		if float64(r.Area) < minArea {
			small[r.Label] = true
			res.Dropped = append(res.Dropped, Dropped{Label: r.Label, Area: r.Area, BBox: r.BBox, Reason: DropSmallArea})
			logger.Debug("removed small region", "label", r.Label, "area", r.Area, "minArea", minArea)
		}
	}
	if len(small) > 0 {
		clearLabels(labels, small)
	}
	labels, n, _ = Relabel(labels)

	// remove regions that would disappear after erosion
	eroded := Erode(labels, opts.ErosionSize)
	survived := make([]bool, n+1)
	for _, v := range eroded.Data {
		survived[v] = true
	}
	lost := make(map[int]bool)
	for _, r := range Regions(labels) {
		if !survived[r.Label] {
			lost[r.Label] = true
			res.Dropped = append(res.Dropped, Dropped{Label: r.Label, Area: r.Area, BBox: r.BBox, Reason: DropErosion})
			logger.Debug("region lost during erosion", "label", r.Label, "area", r.Area, "bbox", r.BBox)
		}
	}
	if len(lost) > 0 {
		clearLabels(labels, lost)
		var mapping []int
		labels, n, mapping = Relabel(labels)
		for i, v := range eroded.Data {
			if v < len(mapping) {
				eroded.Data[i] = mapping[v]
			}
		}
	}

	res.Labels = labels
	res.NumLabel = n
	res.Eroded = eroded
	res.Boundary = FindBoundaries(eroded)
	logger.Debug("labeling done", "regions", n, "dropped", len(res.Dropped))
	return res, nil
}

func clearLabels(l *raster.Labels, drop map[int]bool) {
	for i, v := range l.Data {
		if drop[v] {
			l.Data[i] = 0
		}
	}
}

// ReferenceLabel selects the region that anchors the absolute phase.
// With a reference pixel in meta it is the label under that pixel, which must
// lie inside a region. Otherwise it is the largest region; ties go to the lower id.
func ReferenceLabel(labels *raster.Labels, meta raster.Metadata) (int, error) {
	if meta.Ref != nil {
		ref := *meta.Ref
		if !ref.In(labels.Length, labels.Width) {
			return 0, fmt.Errorf("%w: %v outside %dx%d image", ErrReferenceOutside, ref, labels.Length, labels.Width)
		}
		label := labels.At(ref.Y, ref.X)
		if label == 0 {
			return 0, fmt.Errorf("%w: %v", ErrReferenceOutside, ref)
		}
		return label, nil
	}

	best, bestArea := 0, 0
	areas := Areas(labels, labels.Max())
	for label := 1; label < len(areas); label++ {
		if areas[label] > bestArea {
			best, bestArea = label, areas[label]
		}
	}
	if best == 0 {
		return 0, ErrNoRegions
	}
	return best, nil
}
