package visualization

import (
	"image"
	"image/color"
	"image/png"
	"math"
	"os"
	"path/filepath"
	"testing"

	"unwbridge/pkg/bridge"
	"unwbridge/pkg/raster"
)

// createTestLabels creates two regions separated by a gap of empty columns
func createTestLabels() *raster.Labels {
	l := raster.NewLabels(20, 40)
	for y := 2; y < 18; y++ {
		for x := 2; x < 15; x++ {
			l.Set(y, x, 1)
		}
		for x := 25; x < 38; x++ {
			l.Set(y, x, 2)
		}
	}
	return l
}

// TestNewViewer verifies the automatic output scale
func TestNewViewer(t *testing.T) {
	v := NewViewer(createTestLabels(), nil, 0, nil)
	if v.scale != 12 {
		t.Errorf("Expected scale 12, got %d", v.scale)
	}

	big := NewViewer(raster.NewLabels(1000, 2000), nil, 0, nil)
	if big.scale != 1 {
		t.Errorf("Expected scale 1 for a large image, got %d", big.scale)
	}
}

// TestPalette verifies that palette colors are distinct and valid
func TestPalette(t *testing.T) {
	p := Palette(16)
	if len(p) != 16 {
		t.Fatalf("Expected 16 colors, got %d", len(p))
	}
	seen := make(map[[3]uint8]bool)
	for i, c := range p {
		if !c.IsValid() {
			t.Errorf("Color %d is not a valid RGB color", i)
		}
		r, g, b := c.RGB255()
		key := [3]uint8{r, g, b}
		if seen[key] {
			t.Errorf("Color %d duplicates an earlier color", i)
		}
		seen[key] = true
	}
}

// TestRenderLabels verifies region colors and background
func TestRenderLabels(t *testing.T) {
	labels := createTestLabels()
	img := NewViewer(labels, nil, 0, nil).RenderLabels()

	if img.Bounds() != image.Rect(0, 0, 40, 20) {
		t.Fatalf("Expected 40x20 image, got %v", img.Bounds())
	}
	if got := img.RGBAAt(0, 0); got != background {
		t.Errorf("Expected black background, got %v", got)
	}

	r, g, b := Palette(2)[1].RGB255()
	want := color.RGBA{R: r, G: g, B: b, A: 255}
	if got := img.RGBAAt(30, 10); got != want {
		t.Errorf("Expected region 2 color %v, got %v", want, got)
	}
	if img.RGBAAt(5, 10) == img.RGBAAt(30, 10) {
		t.Error("Expected regions to have different colors")
	}
}

// TestRenderBridges verifies that bridges, windows and the reference are drawn
func TestRenderBridges(t *testing.T) {
	labels := createTestLabels()
	bridges := []bridge.Bridge{{Label0: 1, Label1: 2, X0: 14, Y0: 10, X1: 25, Y1: 10}}
	ref := raster.Point{Y: 5, X: 5}

	v := NewViewer(labels, bridges, 2, &ref)
	v.SetScale(4)
	img := v.Render()

	if img.Bounds() != image.Rect(0, 0, 160, 80) {
		t.Fatalf("Expected 160x80 image, got %v", img.Bounds())
	}

	// Midpoint of the bridge lies in the empty gap.
	if got := img.RGBAAt(20*4, 10*4+2); got != BridgeColor {
		t.Errorf("Expected bridge color in the gap, got %v", got)
	}
	// Window around (10,14) spans columns 12..15 and rows 8..11.
	if got := img.RGBAAt(12*4, 9*4); got != WindowColor {
		t.Errorf("Expected window outline, got %v", got)
	}
	if got := img.RGBAAt(5*4+1, 5*4+1); got != ReferenceColor {
		t.Errorf("Expected reference marker, got %v", got)
	}
	// Far from everything the label color is kept.
	if got := img.RGBAAt(2, 2); got != background {
		t.Errorf("Expected background in the corner, got %v", got)
	}
}

// TestRenderPhase verifies the cyclic phase colors
func TestRenderPhase(t *testing.T) {
	f := raster.NewField(1, 4)
	f.Set(0, 1, 1.0)
	f.Set(0, 2, 1.0+2*math.Pi)
	f.Set(0, 3, math.NaN())

	img := RenderPhase(f)
	if got := img.RGBAAt(0, 0); got != background {
		t.Errorf("Expected no-data pixel black, got %v", got)
	}
	if img.RGBAAt(1, 0) != img.RGBAAt(2, 0) {
		t.Errorf("Expected phases one cycle apart to share a color, got %v and %v", img.RGBAAt(1, 0), img.RGBAAt(2, 0))
	}
	if got := img.RGBAAt(3, 0); got != background {
		t.Errorf("Expected NaN pixel black, got %v", got)
	}
}

// TestSaveImage verifies saving and reading back a PNG plot
func TestSaveImage(t *testing.T) {
	dir := t.TempDir()
	img := NewViewer(createTestLabels(), nil, 0, nil).RenderLabels()

	filename := filepath.Join(dir, "plots", "labels.png")
	if err := SaveImage(img, filename); err != nil {
		t.Fatalf("Failed to save image: %v", err)
	}

	file, err := os.Open(filename)
	if err != nil {
		t.Fatalf("Failed to open saved image: %v", err)
	}
	defer file.Close()

	decoded, err := png.Decode(file)
	if err != nil {
		t.Fatalf("Failed to decode saved image: %v", err)
	}
	if decoded.Bounds() != img.Bounds() {
		t.Errorf("Expected bounds %v, got %v", img.Bounds(), decoded.Bounds())
	}

	if err := SaveImage(img, filepath.Join(dir, "labels.bmp")); err == nil {
		t.Error("Expected an error for an unsupported format")
	}
	if err := SaveImage(img, filepath.Join(dir, "labels.jpg")); err != nil {
		t.Errorf("Failed to save JPEG: %v", err)
	}
}
