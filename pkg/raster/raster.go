// Package raster holds the 2D grid types shared by every stage of the bridging
// pipeline: validity masks, label images and phase fields. All grids are stored
// as flat row-major slices with Length rows and Width columns, matching the
// layout of interferogram files on disk.
package raster

import (
	"errors"
	"fmt"
)

// ErrShape is returned when grid dimensions are invalid or do not agree.
var ErrShape = errors.New("raster: invalid or mismatched shape")

// Point is a pixel coordinate. Y is the row (azimuth), X the column (range).
type Point struct {
	Y, X int
}

// In reports whether p lies inside a grid of the given size.
func (p Point) In(length, width int) bool {
	return p.Y >= 0 && p.Y < length && p.X >= 0 && p.X < width
}

func (p Point) String() string {
	return fmt.Sprintf("(y=%d, x=%d)", p.Y, p.X)
}

// Mask is a 2D boolean grid; true marks pixels that belong to some unwrapped region.
type Mask struct {
	Data   []bool
	Length int
	Width  int
}

// NewMask allocates an all-false mask.
func NewMask(length, width int) *Mask {
	return &Mask{Data: make([]bool, length*width), Length: length, Width: width}
}

// MaskFromRows builds a mask from a rectangular [][]bool.
func MaskFromRows(rows [][]bool) (*Mask, error) {
	length, width, err := rectangular(len(rows), func(i int) int { return len(rows[i]) })
	if err != nil {
		return nil, err
	}
	m := NewMask(length, width)
	for y, row := range rows {
		copy(m.Data[y*width:(y+1)*width], row)
	}
	return m, nil
}

// At returns the mask value at row y, column x.
func (m *Mask) At(y, x int) bool { return m.Data[y*m.Width+x] }

// Set stores v at row y, column x.
func (m *Mask) Set(y, x int, v bool) { m.Data[y*m.Width+x] = v }

// Count returns the number of true pixels.
func (m *Mask) Count() int {
	n := 0
	for _, v := range m.Data {
		if v {
			n++
		}
	}
	return n
}

// Labels is a 2D integer grid: 0 is background, positive values are region ids.
type Labels struct {
	Data   []int
	Length int
	Width  int
}

// NewLabels allocates an all-background label image.
func NewLabels(length, width int) *Labels {
	return &Labels{Data: make([]int, length*width), Length: length, Width: width}
}

// LabelsFromRows builds a label image from a rectangular [][]int.
func LabelsFromRows(rows [][]int) (*Labels, error) {
	length, width, err := rectangular(len(rows), func(i int) int { return len(rows[i]) })
	if err != nil {
		return nil, err
	}
	l := NewLabels(length, width)
	for y, row := range rows {
		copy(l.Data[y*width:(y+1)*width], row)
	}
	return l, nil
}

func (l *Labels) At(y, x int) int     { return l.Data[y*l.Width+x] }
func (l *Labels) Set(y, x int, v int) { l.Data[y*l.Width+x] = v }

// Clone returns a deep copy.
func (l *Labels) Clone() *Labels {
	c := &Labels{Data: make([]int, len(l.Data)), Length: l.Length, Width: l.Width}
	copy(c.Data, l.Data)
	return c
}

// Max returns the largest label value present.
func (l *Labels) Max() int {
	maxLabel := 0
	for _, v := range l.Data {
		if v > maxLabel {
			maxLabel = v
		}
	}
	return maxLabel
}

// Field is a 2D float grid holding unwrapped phase in radians.
// Zero is the no-data sentinel used by interferogram products.
type Field struct {
	Data   []float64
	Length int
	Width  int
}

// NewField allocates a zero-valued field.
func NewField(length, width int) *Field {
	return &Field{Data: make([]float64, length*width), Length: length, Width: width}
}

// FieldFromRows builds a field from a rectangular [][]float64.
func FieldFromRows(rows [][]float64) (*Field, error) {
	length, width, err := rectangular(len(rows), func(i int) int { return len(rows[i]) })
	if err != nil {
		return nil, err
	}
	f := NewField(length, width)
	for y, row := range rows {
		copy(f.Data[y*width:(y+1)*width], row)
	}
	return f, nil
}

func (f *Field) At(y, x int) float64     { return f.Data[y*f.Width+x] }
func (f *Field) Set(y, x int, v float64) { f.Data[y*f.Width+x] = v }

// Clone returns a deep copy.
func (f *Field) Clone() *Field {
	c := &Field{Data: make([]float64, len(f.Data)), Length: f.Length, Width: f.Width}
	copy(c.Data, f.Data)
	return c
}

// SameShape reports whether two grids have identical dimensions.
func SameShape(length0, width0, length1, width1 int) bool {
	return length0 == length1 && width0 == width1
}

// CheckShape validates that a flat slice of size n can hold length×width pixels.
func CheckShape(n, length, width int) error {
	if length <= 0 || width <= 0 {
		return fmt.Errorf("%w: %dx%d", ErrShape, length, width)
	}
	if n != length*width {
		return fmt.Errorf("%w: %d values for %dx%d grid", ErrShape, n, length, width)
	}
	return nil
}

func rectangular(rows int, rowLen func(int) int) (int, int, error) {
	if rows == 0 || rowLen(0) == 0 {
		return 0, 0, fmt.Errorf("%w: empty grid", ErrShape)
	}
	width := rowLen(0)
	for i := 1; i < rows; i++ {
		if rowLen(i) != width {
			return 0, 0, fmt.Errorf("%w: row %d has %d columns, want %d", ErrShape, i, rowLen(i), width)
		}
	}
	return rows, width, nil
}
