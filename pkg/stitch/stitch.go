// Package stitch applies integer-cycle phase offsets along an ordered list of
// bridges so that separately unwrapped regions agree with each other.
//
// For every bridge the phase is sampled in a small window around each
// endpoint, restricted to the endpoint's own region. The difference of the two
// window medians is rounded to a whole number of 2π cycles, and that many
// cycles are removed from the whole child region. Bridges are applied in
// order, so a child is always corrected against an already corrected parent.
package stitch

import (
	"errors"
	"fmt"
	"io"
	"math"

	"github.com/charmbracelet/log"
	"gonum.org/v1/gonum/floats"

	"unwbridge/pkg/bridge"
	"unwbridge/pkg/raster"
)

var (
	// ErrShapeMismatch indicates a field and label image of different shapes.
	ErrShapeMismatch = errors.New("stitch: field and labels differ in shape")
	// ErrInvalidBridge indicates a bridge naming a missing region or an endpoint outside the image.
	ErrInvalidBridge = errors.New("stitch: invalid bridge")
	// ErrInvalidReference indicates a reference pixel outside the image or without a finite value.
	ErrInvalidReference = errors.New("stitch: invalid reference pixel")
	// ErrUndefinedCorrection indicates a region whose offset could not be computed.
	ErrUndefinedCorrection = errors.New("stitch: correction undefined")
)

// UndefinedCorrectionError describes a region left uncorrected.
type UndefinedCorrectionError struct {
	Label  int
	Parent int
	Reason string
}

func (e *UndefinedCorrectionError) Error() string {
	return fmt.Sprintf("stitch: region %d (from %d) not corrected: %s", e.Label, e.Parent, e.Reason)
}

func (e *UndefinedCorrectionError) Unwrap() error { return ErrUndefinedCorrection }

// DerampFunc removes a trend of the named type from field, fitted over mask.
// It must return detrended and trend such that field == detrended + trend.
type DerampFunc func(field *raster.Field, mask *raster.Mask, rampType string, meta *raster.Metadata) (detrended, trend *raster.Field, err error)

// Options controls Stitch.
type Options struct {
	// Radius is the requested half size of the sampling window. It is capped
	// at 5% of the shorter image side and never goes below 1.
	Radius int
	// RampType, when set, removes a trend of that type before stitching and
	// adds it back afterwards. Requires Deramp.
	RampType string
	// Reference, when set, is a pixel whose value is subtracted from every
	// non-zero pixel before stitching.
	Reference *raster.Point
	// ReferenceLabel selects the region the ramp is fitted over. Zero fits
	// over every labeled pixel.
	ReferenceLabel int
	Deramp         DerampFunc
	Metadata       *raster.Metadata
	Logger         *log.Logger
}

// DefaultOptions returns the standard window radius and no ramp removal.
func DefaultOptions() Options {
	return Options{Radius: 50}
}

// Jump is the correction applied across one bridge.
type Jump struct {
	Label0  int     `yaml:"label0"`
	Label1  int     `yaml:"label1"`
	Value0  float64 `yaml:"value0"`
	Value1  float64 `yaml:"value1"`
	Diff    float64 `yaml:"diff"`
	NumJump int     `yaml:"numJump"`
}

// Result is the output of Stitch.
type Result struct {
	// Field is the corrected phase, a new grid.
	Field *raster.Field
	// Trend is the removed ramp, nil when no ramp was removed.
	Trend *raster.Field
	// Radius is the effective window radius.
	Radius int
	// Jumps lists the applied corrections in bridge order.
	Jumps []Jump
	// Failed lists the regions left uncorrected, in bridge order.
	Failed []int
}

// EffectiveRadius caps radius at 5% of the shorter image side, with a floor of 1.
func EffectiveRadius(radius, length, width int) int {
	r := int(math.Min(float64(radius), float64(min(length, width))*0.05))
	if r < 1 {
		r = 1
	}
	return r
}

// NumJump returns the number of 2π cycles to add to the child region for a
// median difference diff = child - parent. Differences within ±π give zero.
func NumJump(diff float64) int {
	n := int(math.Floor((math.Abs(diff) + math.Pi) / (2 * math.Pi)))
	if diff > 0 {
		n = -n
	}
	return n
}

// Stitch corrects field region by region along bridges. The input field is
// not modified.
//
// A region whose window is empty or whose median is NaN is left as is, and so
// is every region bridged from it later in the list. In that case Stitch
// returns the Result together with an error joining one
// *UndefinedCorrectionError per skipped region.
func Stitch(field *raster.Field, labels *raster.Labels, bridges []bridge.Bridge, opts Options) (*Result, error) {
	if field == nil || labels == nil {
		return nil, fmt.Errorf("%w: nil input", ErrShapeMismatch)
	}
	if !raster.SameShape(field.Length, field.Width, labels.Length, labels.Width) ||
		len(field.Data) != len(labels.Data) {
		return nil, fmt.Errorf("%w: field %dx%d, labels %dx%d", ErrShapeMismatch,
			field.Length, field.Width, labels.Length, labels.Width)
	}
	logger := opts.Logger
	if logger == nil {
		logger = log.New(io.Discard)
	}

	members := regionMembers(labels)
	if err := validateBridges(bridges, members, labels); err != nil {
		return nil, err
	}

	out := field.Clone()
	res := &Result{
		Field:  out,
		Radius: EffectiveRadius(opts.Radius, field.Length, field.Width),
	}

	// normalize to the reference pixel
	if opts.Reference != nil {
		p := *opts.Reference
		if !p.In(field.Length, field.Width) {
			return nil, fmt.Errorf("%w: %v outside %dx%d", ErrInvalidReference, p, field.Length, field.Width)
		}
		ref := field.At(p.Y, p.X)
		if math.IsNaN(ref) || math.IsInf(ref, 0) {
			return nil, fmt.Errorf("%w: value at %v is %g", ErrInvalidReference, p, ref)
		}
		for i, v := range out.Data {
			if v != 0 {
				out.Data[i] = v - ref
			}
		}
		logger.Debug("normalized to reference pixel", "ref", p, "value", ref)
	}

	// remove ramp
	if opts.RampType != "" {
		if opts.Deramp == nil {
			return nil, fmt.Errorf("stitch: ramp type %q requested without a deramp function", opts.RampType)
		}
		mask := raster.NewMask(labels.Length, labels.Width)
		for i, l := range labels.Data {
			mask.Data[i] = l != 0 && (opts.ReferenceLabel == 0 || l == opts.ReferenceLabel)
		}
		detrended, trend, err := opts.Deramp(out, mask, opts.RampType, opts.Metadata)
		if err != nil {
			return nil, fmt.Errorf("failed to remove %s ramp: %w", opts.RampType, err)
		}
		out = detrended
		res.Field = out
		res.Trend = trend
		logger.Debug("removed ramp", "type", opts.RampType)
	}

	// bridging
	failed := make(map[int]bool)
	var errs []error
	for _, b := range bridges {
		if failed[b.Label0] {
			failed[b.Label1] = true
			res.Failed = append(res.Failed, b.Label1)
			errs = append(errs, &UndefinedCorrectionError{Label: b.Label1, Parent: b.Label0, Reason: "parent region not corrected"})
			continue
		}

		value0 := Median(windowValues(out, labels, b.Endpoint0(), b.Label0, res.Radius))
		value1 := Median(windowValues(out, labels, b.Endpoint1(), b.Label1, res.Radius))
		if math.IsNaN(value0) || math.IsNaN(value1) {
			failed[b.Label1] = true
			res.Failed = append(res.Failed, b.Label1)
			errs = append(errs, &UndefinedCorrectionError{Label: b.Label1, Parent: b.Label0, Reason: "no valid phase in sampling window"})
			logger.Warn("skipping region", "label", b.Label1, "from", b.Label0)
			continue
		}

		diff := value1 - value0
		n := NumJump(diff)
		if n != 0 {
			offset := 2 * math.Pi * float64(n)
			for _, i := range members[b.Label1] {
				out.Data[i] += offset
			}
		}
		res.Jumps = append(res.Jumps, Jump{
			Label0:  b.Label0,
			Label1:  b.Label1,
			Value0:  value0,
			Value1:  value1,
			Diff:    diff,
			NumJump: n,
		})
		logger.Debug("bridge", "from", b.Label0, "to", b.Label1, "diff", diff, "jump", n)
	}

	// add ramp back
	if res.Trend != nil {
		floats.Add(out.Data, res.Trend.Data)
	}

	logger.Info("stitched regions", "bridges", len(bridges), "corrected", len(res.Jumps), "failed", len(res.Failed))
	return res, errors.Join(errs...)
}

// regionMembers lists the pixel indices of every label, indexed by label.
func regionMembers(labels *raster.Labels) [][]int {
	members := make([][]int, labels.Max()+1)
	for i, l := range labels.Data {
		if l > 0 {
			members[l] = append(members[l], i)
		}
	}
	return members
}

func validateBridges(bridges []bridge.Bridge, members [][]int, labels *raster.Labels) error {
	present := func(l int) bool { return l > 0 && l < len(members) && len(members[l]) > 0 }
	for _, b := range bridges {
		if !present(b.Label0) || !present(b.Label1) || b.Label0 == b.Label1 {
			return fmt.Errorf("%w: %v names a missing region", ErrInvalidBridge, b)
		}
		if !b.Endpoint0().In(labels.Length, labels.Width) || !b.Endpoint1().In(labels.Length, labels.Width) {
			return fmt.Errorf("%w: %v has an endpoint outside %dx%d", ErrInvalidBridge, b, labels.Length, labels.Width)
		}
	}
	return nil
}
