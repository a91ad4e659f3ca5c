// Package ramp estimates and removes low-order phase trends (ramps) from a
// phase field by least squares over a set of valid pixels.
//
// The trend is a polynomial in normalized pixel coordinates. Deramp returns
// both the detrended field and the trend so that the caller can add the trend
// back after processing: field == detrended + trend at every pixel.
package ramp

import (
	"errors"
	"fmt"
	"math"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"

	"unwbridge/pkg/raster"
)

var (
	// ErrUnknownRampType indicates a ramp type name that is not supported.
	ErrUnknownRampType = errors.New("ramp: unknown ramp type")
	// ErrUnderdetermined indicates too few usable pixels to fit the ramp.
	ErrUnderdetermined = errors.New("ramp: not enough valid pixels to fit ramp")
)

// Type names a polynomial ramp model.
type Type string

// Supported ramp models. Range is the column (x) direction, azimuth the row (y) direction.
const (
	Linear           Type = "linear"
	Quadratic        Type = "quadratic"
	LinearRange      Type = "linear_range"
	LinearAzimuth    Type = "linear_azimuth"
	QuadraticRange   Type = "quadratic_range"
	QuadraticAzimuth Type = "quadratic_azimuth"
)

// Types lists every supported ramp model.
var Types = []Type{Linear, Quadratic, LinearRange, LinearAzimuth, QuadraticRange, QuadraticAzimuth}

// basis returns the design row of t for normalized coordinates (y, x).
type basis func(row []float64, y, x float64)

func basisFor(t Type) (basis, int, error) {
	switch t {
	case Linear:
		return func(r []float64, y, x float64) { r[0], r[1], r[2] = x, y, 1 }, 3, nil
	case Quadratic:
		return func(r []float64, y, x float64) {
			r[0], r[1], r[2], r[3], r[4], r[5] = x*x, y*y, x*y, x, y, 1
		}, 6, nil
	case LinearRange:
		return func(r []float64, y, x float64) { r[0], r[1] = x, 1 }, 2, nil
	case LinearAzimuth:
		return func(r []float64, y, x float64) { r[0], r[1] = y, 1 }, 2, nil
	case QuadraticRange:
		return func(r []float64, y, x float64) { r[0], r[1], r[2] = x*x, x, 1 }, 3, nil
	case QuadraticAzimuth:
		return func(r []float64, y, x float64) { r[0], r[1], r[2] = y*y, y, 1 }, 3, nil
	default:
		return nil, 0, fmt.Errorf("%w: %q", ErrUnknownRampType, t)
	}
}

// normalize maps a pixel index into [0, 1].
func normalize(i, n int) float64 {
	if n <= 1 {
		return 0
	}
	return float64(i) / float64(n-1)
}

// usable reports whether a pixel value can take part in the fit.
func usable(v float64) bool {
	return v != 0 && !math.IsNaN(v) && !math.IsInf(v, 0)
}

// Fit estimates the coefficients of rampType over the pixels of field that are
// set in mask (nil means all pixels), finite and non-zero.
func Fit(field *raster.Field, mask *raster.Mask, rampType Type) ([]float64, error) {
	fn, k, err := basisFor(rampType)
	if err != nil {
		return nil, err
	}
	if mask != nil && !raster.SameShape(field.Length, field.Width, mask.Length, mask.Width) {
		return nil, fmt.Errorf("%w: mask %dx%d, field %dx%d", raster.ErrShape,
			mask.Length, mask.Width, field.Length, field.Width)
	}

	var rows []float64
	var target []float64
	row := make([]float64, k)
	for y := 0; y < field.Length; y++ {
		for x := 0; x < field.Width; x++ {
			v := field.At(y, x)
			if !usable(v) || (mask != nil && !mask.At(y, x)) {
				continue
			}
			fn(row, normalize(y, field.Length), normalize(x, field.Width))
			rows = append(rows, row...)
			target = append(target, v)
		}
	}
	m := len(target)
	if m < k {
		return nil, fmt.Errorf("%w: %d pixels for %d coefficients", ErrUnderdetermined, m, k)
	}

	A := mat.NewDense(m, k, rows)
	b := mat.NewVecDense(m, target)

	var qr mat.QR
	qr.Factorize(A)

	coef := mat.NewVecDense(k, nil)
	if err := qr.SolveVecTo(coef, false, b); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnderdetermined, err)
	}
	return coef.RawVector().Data, nil
}

// Evaluate renders the ramp with coefficients coef over a length x width grid.
func Evaluate(coef []float64, rampType Type, length, width int) (*raster.Field, error) {
	fn, k, err := basisFor(rampType)
	if err != nil {
		return nil, err
	}
	if len(coef) != k {
		return nil, fmt.Errorf("ramp: %s needs %d coefficients, got %d", rampType, k, len(coef))
	}
	trend := raster.NewField(length, width)
	row := make([]float64, k)
	for y := 0; y < length; y++ {
		for x := 0; x < width; x++ {
			fn(row, normalize(y, length), normalize(x, width))
			trend.Set(y, x, floats.Dot(row, coef))
		}
	}
	return trend, nil
}

// Deramp fits rampType over mask and returns the detrended field and the
// trend. NaN pixels get a zero trend and pass through unchanged. Zero pixels
// are no-data unless mask marks them valid: a field normalized to its
// reference pixel holds exactly 0 there, and that pixel is still detrended.
// meta, when given, must match the field shape.
// The input field is not modified.
func Deramp(field *raster.Field, mask *raster.Mask, rampType string, meta *raster.Metadata) (*raster.Field, *raster.Field, error) {
	if field == nil {
		return nil, nil, fmt.Errorf("%w: nil field", raster.ErrShape)
	}
	if meta != nil && !raster.SameShape(meta.Length, meta.Width, field.Length, field.Width) {
		return nil, nil, fmt.Errorf("%w: metadata %dx%d, field %dx%d", raster.ErrShape,
			meta.Length, meta.Width, field.Length, field.Width)
	}

	t := Type(rampType)
	coef, err := Fit(field, mask, t)
	if err != nil {
		return nil, nil, err
	}
	trend, err := Evaluate(coef, t, field.Length, field.Width)
	if err != nil {
		return nil, nil, err
	}
	for i, v := range field.Data {
		noData := v == 0 && (mask == nil || !mask.Data[i])
		if noData || math.IsNaN(v) {
			trend.Data[i] = 0
		}
	}

	detrended := field.Clone()
	floats.Sub(detrended.Data, trend.Data)
	return detrended, trend, nil
}
