package conncomp

import (
	"context"
	"errors"
	"math"
	"testing"

	"unwbridge/pkg/labeling"
	"unwbridge/pkg/raster"
	"unwbridge/pkg/stitch"
)

// createTestScene builds a 60x60 mask with two blocks separated by a gap and
// a phase ramp whose right block is offset by cycles*2π.
func createTestScene(cycles int) (*raster.Mask, *raster.Field) {
	mask := raster.NewMask(60, 60)
	field := raster.NewField(60, 60)
	for y := 5; y < 55; y++ {
		for x := 0; x < 60; x++ {
			left := x >= 2 && x < 25
			right := x >= 30 && x < 58
			if !left && !right {
				continue
			}
			mask.Set(y, x, true)
			v := 1.0 + 0.01*float64(x)
			if right {
				v += 2 * math.Pi * float64(cycles)
			}
			field.Set(y, x, v)
		}
	}
	return mask, field
}

// TestProcess runs the complete workflow on a two-region scene
func TestProcess(t *testing.T) {
	mask, field := createTestScene(2)
	meta := raster.Metadata{Length: 60, Width: 60}
	meta.SetReference(raster.Point{Y: 30, X: 10})

	cc, err := NewConnectComponent(mask, meta, DefaultParams())
	if err != nil {
		t.Fatalf("Failed to create workflow: %v", err)
	}

	res, err := cc.Process(context.Background(), field)
	if err != nil {
		t.Fatalf("Process failed: %v", err)
	}

	if cc.NumLabel() != 2 {
		t.Errorf("Expected 2 regions, got %d", cc.NumLabel())
	}
	if cc.ReferenceLabel() != 1 {
		t.Errorf("Expected reference region 1, got %d", cc.ReferenceLabel())
	}
	bridges := cc.Bridges()
	if len(bridges) != 1 {
		t.Fatalf("Expected 1 bridge, got %d", len(bridges))
	}
	if bridges[0].Label0 != 1 || bridges[0].Label1 != 2 {
		t.Errorf("Expected bridge 1 -> 2, got %v", bridges[0])
	}
	if bridges[0].X0 != 22 || bridges[0].X1 != 32 {
		t.Errorf("Expected bridge endpoints on columns 22 and 32, got %d and %d", bridges[0].X0, bridges[0].X1)
	}
	if res.Jumps[0].NumJump != -2 {
		t.Errorf("Expected numJump -2, got %d", res.Jumps[0].NumJump)
	}

	ref := field.At(30, 10)
	for y := 0; y < 60; y++ {
		for x := 0; x < 60; x++ {
			got := res.Field.At(y, x)
			if !mask.At(y, x) {
				if got != 0 {
					t.Fatalf("Expected background 0 at (%d,%d), got %f", y, x, got)
				}
				continue
			}
			want := 1.0 + 0.01*float64(x) - ref
			if math.Abs(got-want) > 1e-9 {
				t.Fatalf("Expected %f at (%d,%d), got %f", want, y, x, got)
			}
		}
	}

	report := cc.Report(res)
	if report.NumLabel != 2 || len(report.Bridges) != 1 {
		t.Errorf("Expected report with 2 regions and 1 bridge, got %d and %d", report.NumLabel, len(report.Bridges))
	}
	if !report.Bridges[0].Applied || report.Bridges[0].NumJump != -2 {
		t.Errorf("Expected applied jump of -2 in report, got %+v", report.Bridges[0])
	}
	if report.TotalDistance != 10 {
		t.Errorf("Expected total bridge distance 10, got %f", report.TotalDistance)
	}
	if report.Reference == nil || report.Reference.Y != 30 || report.Reference.X != 10 {
		t.Errorf("Expected reference pixel (30,10) in report, got %v", report.Reference)
	}
}

// TestProcessWithRamp verifies the workflow with ramp removal enabled
func TestProcessWithRamp(t *testing.T) {
	mask, field := createTestScene(-1)
	params := DefaultParams()
	params.RampType = "linear_range"
	params.SpanningTree = "prim"

	cc, err := NewConnectComponent(mask, raster.Metadata{}, params)
	if err != nil {
		t.Fatalf("Failed to create workflow: %v", err)
	}
	res, err := cc.Process(context.Background(), field)
	if err != nil {
		t.Fatalf("Process failed: %v", err)
	}
	if res.Trend == nil {
		t.Fatal("Expected a trend in the result")
	}
	// The right block is larger, so it is the reference region.
	if cc.ReferenceLabel() != 2 {
		t.Errorf("Expected reference region 2, got %d", cc.ReferenceLabel())
	}
	if res.Jumps[0].NumJump != -1 {
		t.Errorf("Expected numJump -1, got %d", res.Jumps[0].NumJump)
	}
	for y := 0; y < 60; y++ {
		for x := 0; x < 60; x++ {
			if !mask.At(y, x) {
				continue
			}
			want := 1.0 + 0.01*float64(x) - 2*math.Pi
			if got := res.Field.At(y, x); math.Abs(got-want) > 1e-9 {
				t.Fatalf("Expected %f at (%d,%d), got %f", want, y, x, got)
			}
		}
	}
}

// TestSingleRegion verifies a single region needs no bridges
func TestSingleRegion(t *testing.T) {
	mask := raster.NewMask(30, 30)
	field := raster.NewField(30, 30)
	for i := range mask.Data {
		mask.Data[i] = true
		field.Data[i] = 3
	}

	cc, err := NewConnectComponent(mask, raster.Metadata{}, DefaultParams())
	if err != nil {
		t.Fatalf("Failed to create workflow: %v", err)
	}
	res, err := cc.Process(context.Background(), field)
	if err != nil {
		t.Fatalf("Process failed: %v", err)
	}
	if len(cc.Bridges()) != 0 {
		t.Errorf("Expected no bridges, got %d", len(cc.Bridges()))
	}
	for i, v := range res.Field.Data {
		if v != 3 {
			t.Fatalf("Expected unchanged field at %d, got %f", i, v)
		}
	}
}

// TestStepOrder verifies that steps refuse to run out of order
func TestStepOrder(t *testing.T) {
	mask, field := createTestScene(0)
	cc, err := NewConnectComponent(mask, raster.Metadata{}, DefaultParams())
	if err != nil {
		t.Fatalf("Failed to create workflow: %v", err)
	}

	if err := cc.FindMSTBridge(context.Background()); !errors.Is(err, ErrNotLabeled) {
		t.Errorf("Expected ErrNotLabeled, got %v", err)
	}
	if _, err := cc.UnwrapConnComp(context.Background(), field); !errors.Is(err, ErrNotLabeled) {
		t.Errorf("Expected ErrNotLabeled, got %v", err)
	}
	if err := cc.Label(context.Background()); err != nil {
		t.Fatalf("Label failed: %v", err)
	}
	if _, err := cc.UnwrapConnComp(context.Background(), field); !errors.Is(err, ErrNoBridges) {
		t.Errorf("Expected ErrNoBridges, got %v", err)
	}
}

// TestErrors verifies error propagation from the pipeline stages
func TestErrors(t *testing.T) {
	t.Run("EmptyMask", func(t *testing.T) {
		cc, err := NewConnectComponent(raster.NewMask(20, 20), raster.Metadata{}, DefaultParams())
		if err != nil {
			t.Fatalf("Failed to create workflow: %v", err)
		}
		if err := cc.Label(context.Background()); !errors.Is(err, labeling.ErrNoRegions) {
			t.Errorf("Expected ErrNoRegions, got %v", err)
		}
	})

	t.Run("ReferenceOnBackground", func(t *testing.T) {
		mask, _ := createTestScene(0)
		meta := raster.Metadata{Length: 60, Width: 60}
		meta.SetReference(raster.Point{Y: 0, X: 0})
		cc, err := NewConnectComponent(mask, meta, DefaultParams())
		if err != nil {
			t.Fatalf("Failed to create workflow: %v", err)
		}
		if err := cc.Label(context.Background()); !errors.Is(err, labeling.ErrReferenceOutside) {
			t.Errorf("Expected ErrReferenceOutside, got %v", err)
		}
	})

	t.Run("ShapeMismatch", func(t *testing.T) {
		mask, _ := createTestScene(0)
		_, err := NewConnectComponent(mask, raster.Metadata{Length: 10, Width: 60}, DefaultParams())
		if !errors.Is(err, raster.ErrShape) {
			t.Errorf("Expected ErrShape, got %v", err)
		}
	})

	t.Run("FieldShape", func(t *testing.T) {
		mask, _ := createTestScene(0)
		cc, _ := NewConnectComponent(mask, raster.Metadata{}, DefaultParams())
		if _, err := cc.Process(context.Background(), raster.NewField(10, 10)); !errors.Is(err, stitch.ErrShapeMismatch) {
			t.Errorf("Expected ErrShapeMismatch, got %v", err)
		}
	})

	t.Run("Cancelled", func(t *testing.T) {
		mask, field := createTestScene(0)
		cc, _ := NewConnectComponent(mask, raster.Metadata{}, DefaultParams())
		ctx, cancel := context.WithCancel(context.Background())
		cancel()
		if _, err := cc.Process(ctx, field); !errors.Is(err, context.Canceled) {
			t.Errorf("Expected context.Canceled, got %v", err)
		}
	})
}
