package raster

import (
	"bufio"
	"encoding/binary"
	"fmt"
	"image"
	_ "image/jpeg"
	_ "image/png"
	"os"

	_ "golang.org/x/image/tiff"
)

// ReadMaskImage decodes a PNG, JPEG or TIFF image into a validity mask.
// Any pixel with a non-zero intensity is considered valid.
func ReadMaskImage(path string) (*Mask, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer file.Close()

	img, _, err := image.Decode(bufio.NewReader(file))
	if err != nil {
		return nil, fmt.Errorf("failed to decode mask image %s: %w", path, err)
	}
	return MaskFromImage(img), nil
}

// MaskFromImage thresholds an image at zero intensity.
func MaskFromImage(img image.Image) *Mask {
	bounds := img.Bounds()
	m := NewMask(bounds.Dy(), bounds.Dx())
	for y := 0; y < m.Length; y++ {
		for x := 0; x < m.Width; x++ {
			r, g, b, _ := img.At(bounds.Min.X+x, bounds.Min.Y+y).RGBA()
			m.Set(y, x, r|g|b != 0)
		}
	}
	return m
}

// ReadMaskRaw reads a one-byte-per-pixel connected component file
// (e.g. SNAPHU .conncomp output); non-zero bytes are valid pixels.
func ReadMaskRaw(path string, length, width int) (*Mask, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	if err := CheckShape(len(data), length, width); err != nil {
		return nil, fmt.Errorf("mask file %s: %w", path, err)
	}
	m := NewMask(length, width)
	for i, v := range data {
		m.Data[i] = v != 0
	}
	return m, nil
}

// ReadField reads a little-endian float32 phase raster. A file twice the
// grid size is taken as ROI_PAC two-band line interleaved (amplitude line,
// then phase line) and only the phase band is kept.
func ReadField(path string, length, width int) (*Field, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, err
	}
	n := int(info.Size()) / 4
	bands := 1
	if length > 0 && width > 0 && n == 2*length*width {
		bands = 2
	} else if err := CheckShape(n, length, width); err != nil {
		return nil, fmt.Errorf("phase file %s: %w", path, err)
	}

	file, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer file.Close()

	buf := make([]float32, bands*length*width)
	if err := binary.Read(bufio.NewReader(file), binary.LittleEndian, buf); err != nil {
		return nil, fmt.Errorf("failed to read phase file %s: %w", path, err)
	}

	f := NewField(length, width)
	for y := 0; y < length; y++ {
		line := buf[(y*bands+bands-1)*width : (y*bands+bands)*width]
		for x, v := range line {
			f.Data[y*width+x] = float64(v)
		}
	}
	return f, nil
}

// WriteField writes f as a single-band little-endian float32 raster.
func WriteField(path string, f *Field) error {
	file, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create phase file: %w", err)
	}
	defer file.Close()

	buf := make([]float32, len(f.Data))
	for i, v := range f.Data {
		buf[i] = float32(v)
	}

	w := bufio.NewWriter(file)
	if err := binary.Write(w, binary.LittleEndian, buf); err != nil {
		return fmt.Errorf("failed to write phase data: %w", err)
	}
	if err := w.Flush(); err != nil {
		return fmt.Errorf("failed to write phase data: %w", err)
	}
	return nil
}
