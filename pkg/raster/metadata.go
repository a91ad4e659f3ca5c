package raster

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"sort"
	"strconv"
	"strings"
)

// Metadata is the attribute record that travels with an interferogram.
// Length and Width give the image size; Ref, when non-nil, is the reference
// pixel whose phase is treated as zero.
type Metadata struct {
	Length     int
	Width      int
	Ref        *Point
	Attributes map[string]string
}

// HasReference reports whether a reference pixel is set.
func (m Metadata) HasReference() bool { return m.Ref != nil }

// ParseMetadata builds Metadata from ROI_PAC style attributes. LENGTH (or
// FILE_LENGTH) and WIDTH are required; REF_Y and REF_X are optional but must
// appear together.
func ParseMetadata(attrs map[string]string) (Metadata, error) {
	meta := Metadata{Attributes: make(map[string]string, len(attrs))}
	for k, v := range attrs {
		meta.Attributes[k] = v
	}

	lengthKey := "LENGTH"
	if _, ok := attrs[lengthKey]; !ok {
		lengthKey = "FILE_LENGTH"
	}
	var err error
	if meta.Length, err = intAttr(attrs, lengthKey); err != nil {
		return Metadata{}, err
	}
	if meta.Width, err = intAttr(attrs, "WIDTH"); err != nil {
		return Metadata{}, err
	}

	_, hasY := attrs["REF_Y"]
	_, hasX := attrs["REF_X"]
	switch {
	case hasY && hasX:
		y, err := intAttr(attrs, "REF_Y")
		if err != nil {
			return Metadata{}, err
		}
		x, err := intAttr(attrs, "REF_X")
		if err != nil {
			return Metadata{}, err
		}
		meta.Ref = &Point{Y: y, X: x}
	case hasY || hasX:
		return Metadata{}, fmt.Errorf("metadata: REF_Y and REF_X must be given together")
	}
	return meta, nil
}

// SetReference stores a reference pixel and mirrors it into Attributes.
func (m *Metadata) SetReference(p Point) {
	m.Ref = &p
	if m.Attributes == nil {
		m.Attributes = make(map[string]string)
	}
	m.Attributes["REF_Y"] = strconv.Itoa(p.Y)
	m.Attributes["REF_X"] = strconv.Itoa(p.X)
}

func intAttr(attrs map[string]string, key string) (int, error) {
	s, ok := attrs[key]
	if !ok {
		return 0, fmt.Errorf("metadata: missing attribute %s", key)
	}
	// Some processors write integral values as floats ("1200.0").
	f, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
	if err != nil {
		return 0, fmt.Errorf("metadata: attribute %s=%q is not a number: %w", key, s, err)
	}
	return int(f), nil
}

// ReadRSC parses a ROI_PAC .rsc resource file: one "KEY value" pair per line.
func ReadRSC(path string) (map[string]string, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer file.Close()
	return parseRSC(file)
}

func parseRSC(r io.Reader) (map[string]string, error) {
	attrs := make(map[string]string)
	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		fields := strings.Fields(line)
		if len(fields) < 2 {
			continue
		}
		attrs[fields[0]] = strings.Join(fields[1:], " ")
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("failed to read resource file: %w", err)
	}
	return attrs, nil
}

// WriteRSC writes attributes as a ROI_PAC .rsc file with sorted keys.
func WriteRSC(path string, attrs map[string]string) error {
	keys := make([]string, 0, len(attrs))
	for k := range attrs {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var b strings.Builder
	for _, k := range keys {
		fmt.Fprintf(&b, "%-40s %s\n", k, attrs[k])
	}
	if err := os.WriteFile(path, []byte(b.String()), 0644); err != nil {
		return fmt.Errorf("failed to write resource file: %w", err)
	}
	return nil
}
