package main

import (
	"fmt"
	"image/color"
	"strconv"
	"strings"
	"time"
)

// Background is either a solid colour or a chequerboard.
type Background struct {
	Checks bool
	Color  color.RGBA
}

var defaultBackground = Background{Color: color.RGBA{0, 0, 0, 255}}

// parseBackground accepts "checks" or a 6 digit hex colour, with or
// without a leading '#'.
func parseBackground(s string) (Background, error) {
	if s == "checks" {
		return Background{Checks: true}, nil
	}
	hex := strings.TrimPrefix(s, "#")
	if len(hex) != 6 {
		return Background{}, fmt.Errorf("invalid hex color: %q", s)
	}
	n, err := strconv.ParseUint(hex, 16, 32)
	if err != nil {
		return Background{}, fmt.Errorf("invalid hex color: %q", s)
	}
	return Background{Color: color.RGBA{
		R: uint8(n >> 16),
		G: uint8(n >> 8),
		B: uint8(n),
		A: 255,
	}}, nil
}

func (b Background) String() string {
	if b.Checks {
		return "checks"
	}
	return fmt.Sprintf("%02x%02x%02x", b.Color.R, b.Color.G, b.Color.B)
}

// FontSpec names one of the bundled Go fonts and a point size.
type FontSpec struct {
	Name string
	Size float64
}

var defaultFont = FontSpec{Name: "goregular", Size: 24}

// parseFont parses "Name:size". The size part is optional.
func parseFont(s string) (FontSpec, error) {
	name, size, hasSize := strings.Cut(s, ":")
	if name == "" {
		return FontSpec{}, fmt.Errorf("invalid font %q: missing name", s)
	}
	spec := FontSpec{Name: name, Size: defaultFont.Size}
	if hasSize {
		v, err := strconv.ParseFloat(size, 64)
		if err != nil || v <= 0 {
			return FontSpec{}, fmt.Errorf("invalid font size in %q", s)
		}
		spec.Size = v
	}
	return spec, nil
}

func (f FontSpec) String() string {
	return fmt.Sprintf("%s:%g", f.Name, f.Size)
}

// parseSlideshow reads seconds with at most three fractional digits, so
// "2.5" is 2500ms and "1.05" is 1050ms.
func parseSlideshow(s string) (time.Duration, error) {
	whole, frac, hasFrac := strings.Cut(s, ".")
	if whole == "" && !hasFrac {
		return 0, fmt.Errorf("wrong slideshow delay %q", s)
	}
	var secs uint64
	if whole != "" {
		v, err := strconv.ParseUint(whole, 10, 32)
		if err != nil {
			return 0, fmt.Errorf("wrong slideshow delay %q", s)
		}
		secs = v
	}
	d := time.Duration(secs) * time.Second
	if !hasFrac {
		return d, nil
	}
	if frac == "" || len(frac) > 3 {
		return 0, fmt.Errorf("wrong slideshow delay %q", s)
	}
	ms, err := strconv.ParseUint(frac, 10, 32)
	if err != nil {
		return 0, fmt.Errorf("wrong slideshow delay %q", s)
	}
	for i := len(frac); i < 3; i++ {
		ms *= 10
	}
	return d + time.Duration(ms)*time.Millisecond, nil
}
