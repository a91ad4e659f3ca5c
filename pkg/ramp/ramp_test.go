package ramp

import (
	"errors"
	"math"
	"testing"

	"unwbridge/pkg/raster"
)

// planeField builds a field holding a*x + b*y + c in normalized coordinates.
func planeField(length, width int, a, b, c float64) *raster.Field {
	f := raster.NewField(length, width)
	for y := 0; y < length; y++ {
		for x := 0; x < width; x++ {
			f.Set(y, x, a*normalize(x, width)+b*normalize(y, length)+c)
		}
	}
	return f
}

// TestFitRecoversPlane verifies that a linear ramp is fitted exactly
func TestFitRecoversPlane(t *testing.T) {
	f := planeField(20, 30, 3.0, -2.0, 5.0)

	coef, err := Fit(f, nil, Linear)
	if err != nil {
		t.Fatalf("Fit failed: %v", err)
	}

	want := []float64{3.0, -2.0, 5.0}
	for i := range want {
		if math.Abs(coef[i]-want[i]) > 1e-9 {
			t.Errorf("Expected coefficient %d to be %f, got %f", i, want[i], coef[i])
		}
	}
}

// TestDerampRemovesPlane verifies that deramping a pure ramp leaves zero residual
func TestDerampRemovesPlane(t *testing.T) {
	f := planeField(16, 16, 1.5, 0.5, 2.0)

	detrended, trend, err := Deramp(f, nil, "linear", nil)
	if err != nil {
		t.Fatalf("Deramp failed: %v", err)
	}

	for i := range f.Data {
		if math.Abs(detrended.Data[i]) > 1e-9 {
			t.Fatalf("Expected zero residual at %d, got %f", i, detrended.Data[i])
		}
		if math.Abs(detrended.Data[i]+trend.Data[i]-f.Data[i]) > 1e-12 {
			t.Fatalf("Expected detrended + trend == field at %d", i)
		}
	}
}

// TestDerampTypes verifies every ramp model keeps field == detrended + trend
func TestDerampTypes(t *testing.T) {
	f := raster.NewField(12, 15)
	for y := 0; y < f.Length; y++ {
		for x := 0; x < f.Width; x++ {
			f.Set(y, x, 1+0.3*float64(x)-0.2*float64(y)+0.01*float64(x*y)+math.Sin(float64(x+y)))
		}
	}
	f.Set(0, 0, 0)
	f.Set(3, 4, math.NaN())

	for _, rt := range Types {
		t.Run(string(rt), func(t *testing.T) {
			detrended, trend, err := Deramp(f, nil, string(rt), nil)
			if err != nil {
				t.Fatalf("Deramp failed: %v", err)
			}
			for i, v := range f.Data {
				if math.IsNaN(v) {
					if !math.IsNaN(detrended.Data[i]) {
						t.Errorf("Expected NaN to pass through at %d, got %f", i, detrended.Data[i])
					}
					continue
				}
				if math.Abs(detrended.Data[i]+trend.Data[i]-v) > 1e-9 {
					t.Errorf("Expected detrended + trend == %f at %d, got %f", v, i, detrended.Data[i]+trend.Data[i])
				}
			}
			if detrended.At(0, 0) != 0 || trend.At(0, 0) != 0 {
				t.Errorf("Expected no-data pixel to stay 0, got detrended %f trend %f", detrended.At(0, 0), trend.At(0, 0))
			}
		})
	}
}

// TestDerampMask verifies that only masked pixels drive the fit
func TestDerampMask(t *testing.T) {
	f := planeField(10, 10, 2.0, 0, 1.0)
	mask := raster.NewMask(10, 10)
	for y := 0; y < 5; y++ {
		for x := 0; x < 10; x++ {
			mask.Set(y, x, true)
		}
	}
	// Corrupt the unmasked half; the fit must ignore it.
	for y := 5; y < 10; y++ {
		for x := 0; x < 10; x++ {
			f.Set(y, x, 100)
		}
	}

	coef, err := Fit(f, mask, LinearRange)
	if err != nil {
		t.Fatalf("Fit failed: %v", err)
	}
	if math.Abs(coef[0]-2.0) > 1e-9 || math.Abs(coef[1]-1.0) > 1e-9 {
		t.Errorf("Expected coefficients [2 1], got %v", coef)
	}
}

// TestDerampKeepsMaskedZero verifies that a zero inside the mask is detrended
// like its neighbours while a zero outside it is left alone
func TestDerampKeepsMaskedZero(t *testing.T) {
	f := planeField(8, 8, 2.0, 1.0, -1.0)
	mask := raster.NewMask(8, 8)
	for y := 0; y < 8; y++ {
		for x := 0; x < 6; x++ {
			mask.Set(y, x, true)
		}
	}
	f.Set(4, 2, 0)
	f.Set(4, 7, 0)

	detrended, trend, err := Deramp(f, mask, "linear", nil)
	if err != nil {
		t.Fatalf("Deramp failed: %v", err)
	}
	want := 2.0*normalize(2, 8) + 1.0*normalize(4, 8) - 1.0
	if math.Abs(trend.At(4, 2)-want) > 1e-9 {
		t.Errorf("Expected trend %f at the masked zero, got %f", want, trend.At(4, 2))
	}
	if math.Abs(detrended.At(4, 2)+want) > 1e-9 {
		t.Errorf("Expected detrended %f at the masked zero, got %f", -want, detrended.At(4, 2))
	}
	if trend.At(4, 7) != 0 || detrended.At(4, 7) != 0 {
		t.Errorf("Expected the unmasked zero to stay 0, got detrended %f trend %f", detrended.At(4, 7), trend.At(4, 7))
	}
}

// TestDerampErrors verifies the error kinds
func TestDerampErrors(t *testing.T) {
	f := planeField(4, 4, 1, 1, 1)

	if _, _, err := Deramp(f, nil, "cubic", nil); !errors.Is(err, ErrUnknownRampType) {
		t.Errorf("Expected ErrUnknownRampType, got %v", err)
	}

	mask := raster.NewMask(4, 4)
	mask.Set(0, 0, true)
	mask.Set(0, 1, true)
	if _, _, err := Deramp(f, mask, "quadratic", nil); !errors.Is(err, ErrUnderdetermined) {
		t.Errorf("Expected ErrUnderdetermined, got %v", err)
	}

	meta := &raster.Metadata{Length: 5, Width: 4}
	if _, _, err := Deramp(f, nil, "linear", meta); !errors.Is(err, raster.ErrShape) {
		t.Errorf("Expected ErrShape, got %v", err)
	}
}
