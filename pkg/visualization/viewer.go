package visualization

import (
	"fmt"
	"image"
	"image/color"
	"image/draw"
	"image/jpeg"
	"image/png"
	"math"
	"os"
	"path/filepath"
	"strings"

	"github.com/lucasb-eyer/go-colorful"
	xdraw "golang.org/x/image/draw"
	"golang.org/x/image/vector"

	"unwbridge/pkg/bridge"
	"unwbridge/pkg/raster"
	"unwbridge/pkg/stitch"
)

var (
	// BridgeColor is used for bridge lines
	BridgeColor = color.RGBA{R: 255, G: 255, B: 255, A: 255}

	// WindowColor outlines the phase sampling windows
	WindowColor = color.RGBA{R: 255, G: 220, B: 0, A: 255}

	// ReferenceColor marks the reference pixel
	ReferenceColor = color.RGBA{R: 255, G: 0, B: 0, A: 255}

	background = color.RGBA{A: 255}
)

// Viewer renders label images, phase fields and the bridges between regions
type Viewer struct {
	labels  *raster.Labels
	bridges []bridge.Bridge

	// radius is the sampling window half size; 0 hides the windows
	radius int

	// reference pixel, if any
	ref *raster.Point

	// scale is the number of output pixels per image pixel
	scale int
}

// NewViewer creates a viewer for labels and the bridges between them.
// The output is scaled up so that the longer side is at least 512 pixels.
func NewViewer(labels *raster.Labels, bridges []bridge.Bridge, radius int, ref *raster.Point) *Viewer {
	longest := max(labels.Length, labels.Width, 1)
	return &Viewer{
		labels:  labels,
		bridges: bridges,
		radius:  radius,
		ref:     ref,
		scale:   max(1, 512/longest),
	}
}

// SetScale overrides the number of output pixels per image pixel
func (v *Viewer) SetScale(scale int) {
	if scale < 1 {
		scale = 1
	}
	v.scale = scale
}

// Palette returns n visually distinct colors spread around the hue circle
func Palette(n int) []colorful.Color {
	p := make([]colorful.Color, n)
	for i := range p {
		// golden angle spacing keeps neighbouring labels apart
		h := math.Mod(float64(i)*137.508, 360)
		p[i] = colorful.Hsv(h, 0.65, 0.85).Clamped()
	}
	return p
}

// RenderLabels draws each region in its own color on a black background
func (v *Viewer) RenderLabels() *image.RGBA {
	palette := Palette(v.labels.Max())
	img := image.NewRGBA(image.Rect(0, 0, v.labels.Width, v.labels.Length))
	for y := 0; y < v.labels.Length; y++ {
		for x := 0; x < v.labels.Width; x++ {
			l := v.labels.At(y, x)
			if l <= 0 {
				img.SetRGBA(x, y, background)
				continue
			}
			r, g, b := palette[l-1].RGB255()
			img.SetRGBA(x, y, color.RGBA{R: r, G: g, B: b, A: 255})
		}
	}
	return img
}

// RenderPhase draws the wrapped phase of field with a cyclic hue map.
// Zero and NaN pixels are drawn black.
func RenderPhase(field *raster.Field) *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, field.Width, field.Length))
	for y := 0; y < field.Length; y++ {
		for x := 0; x < field.Width; x++ {
			p := field.At(y, x)
			if p == 0 || math.IsNaN(p) || math.IsInf(p, 0) {
				img.SetRGBA(x, y, background)
				continue
			}
			wrapped := math.Mod(p, 2*math.Pi)
			if wrapped < 0 {
				wrapped += 2 * math.Pi
			}
			c := colorful.Hsv(wrapped*180/math.Pi, 0.8, 0.9).Clamped()
			r, g, b := c.RGB255()
			img.SetRGBA(x, y, color.RGBA{R: r, G: g, B: b, A: 255})
		}
	}
	return img
}

// Render draws the label image with sampling windows, bridges and the reference pixel
func (v *Viewer) Render() *image.RGBA {
	return v.Overlay(v.RenderLabels())
}

// Overlay scales base up and draws the bridges on top of it. base must have
// the same size as the label image.
func (v *Viewer) Overlay(base image.Image) *image.RGBA {
	s := v.scale
	dst := image.NewRGBA(image.Rect(0, 0, v.labels.Width*s, v.labels.Length*s))
	xdraw.NearestNeighbor.Scale(dst, dst.Bounds(), base, base.Bounds(), draw.Src, nil)

	if v.radius > 0 {
		for _, b := range v.bridges {
			for _, p := range []raster.Point{b.Endpoint0(), b.Endpoint1()} {
				w := stitch.Window(p, v.radius, v.labels.Length, v.labels.Width)
				outline(dst, image.Rectangle{Min: w.Min.Mul(s), Max: w.Max.Mul(s)}, WindowColor)
			}
		}
	}

	if len(v.bridges) > 0 {
		z := vector.NewRasterizer(dst.Bounds().Dx(), dst.Bounds().Dy())
		width := float32(max(1, s/2))
		for _, b := range v.bridges {
			v.addLine(z, b.Endpoint0(), b.Endpoint1(), width)
		}
		z.Draw(dst, dst.Bounds(), image.NewUniform(BridgeColor), image.Point{})
	}

	if v.ref != nil {
		r := image.Rect(v.ref.X*s, v.ref.Y*s, (v.ref.X+1)*s, (v.ref.Y+1)*s).Inset(-max(1, s))
		draw.Draw(dst, r.Intersect(dst.Bounds()), image.NewUniform(ReferenceColor), image.Point{}, draw.Src)
	}
	return dst
}

// addLine adds a bridge between two pixel centers as a thin quad
func (v *Viewer) addLine(z *vector.Rasterizer, p0, p1 raster.Point, width float32) {
	s := float32(v.scale)
	x0, y0 := (float32(p0.X)+0.5)*s, (float32(p0.Y)+0.5)*s
	x1, y1 := (float32(p1.X)+0.5)*s, (float32(p1.Y)+0.5)*s

	dx, dy := x1-x0, y1-y0
	length := float32(math.Hypot(float64(dx), float64(dy)))
	if length == 0 {
		return
	}
	// half-width normal
	nx, ny := -dy/length*width/2, dx/length*width/2

	z.MoveTo(x0+nx, y0+ny)
	z.LineTo(x1+nx, y1+ny)
	z.LineTo(x1-nx, y1-ny)
	z.LineTo(x0-nx, y0-ny)
	z.ClosePath()
}

// outline draws a one pixel rectangle border
func outline(dst *image.RGBA, r image.Rectangle, c color.Color) {
	src := image.NewUniform(c)
	edges := []image.Rectangle{
		image.Rect(r.Min.X, r.Min.Y, r.Max.X, r.Min.Y+1),
		image.Rect(r.Min.X, r.Max.Y-1, r.Max.X, r.Max.Y),
		image.Rect(r.Min.X, r.Min.Y, r.Min.X+1, r.Max.Y),
		image.Rect(r.Max.X-1, r.Min.Y, r.Max.X, r.Max.Y),
	}
	for _, e := range edges {
		draw.Draw(dst, e.Intersect(dst.Bounds()), src, image.Point{}, draw.Src)
	}
}

// SaveImage saves an image as PNG or JPEG depending on the file extension
func SaveImage(img image.Image, filename string) error {
	if dir := filepath.Dir(filename); dir != "" {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return err
		}
	}

	ext := strings.ToLower(filepath.Ext(filename))
	if ext != ".png" && ext != ".jpg" && ext != ".jpeg" {
		return fmt.Errorf("unsupported image format: %s (must be .png or .jpg)", ext)
	}

	file, err := os.Create(filename)
	if err != nil {
		return err
	}
	defer file.Close()

	if ext == ".png" {
		return png.Encode(file, img)
	}
	return jpeg.Encode(file, img, &jpeg.Options{Quality: 90})
}
