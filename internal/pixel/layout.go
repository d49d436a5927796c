// Package pixel converts raw pixel buffers into the canonical RGB
// representation consumed by the quantizer, and owns the growable canvas
// used by the dynamic stack.
package pixel

import (
	"fmt"

	"golang.org/x/text/cases"
)

// Layout describes how the bytes of a source pixel are ordered.
type Layout uint8

const (
	// RGB is 24-bit red, green, blue (3 bytes per pixel).
	RGB Layout = iota

	// BGR is 24-bit blue, green, red (3 bytes per pixel).
	BGR

	// RGBA is 32-bit red, green, blue, alpha (4 bytes per pixel).
	RGBA

	// BGRA is 32-bit blue, green, red, alpha (4 bytes per pixel).
	// Common for framebuffer dumps.
	BGRA

	// layoutCount is the number of layouts (for internal use).
	layoutCount
)

// LayoutInfo contains metadata about a pixel layout.
type LayoutInfo struct {
	// Tag is the lower-case name used on the wire and on the command line.
	Tag string

	// BytesPerPixel is the number of bytes per source pixel.
	BytesPerPixel int

	// R, G, B are the byte offsets of each channel within a pixel.
	R, G, B int

	// HasAlpha indicates the layout carries a fourth (ignored) alpha byte.
	HasAlpha bool
}

// layoutInfoTable contains metadata for each layout.
var layoutInfoTable = [layoutCount]LayoutInfo{
	RGB:  {Tag: "rgb", BytesPerPixel: 3, R: 0, G: 1, B: 2},
	BGR:  {Tag: "bgr", BytesPerPixel: 3, R: 2, G: 1, B: 0},
	RGBA: {Tag: "rgba", BytesPerPixel: 4, R: 0, G: 1, B: 2, HasAlpha: true},
	BGRA: {Tag: "bgra", BytesPerPixel: 4, R: 2, G: 1, B: 0, HasAlpha: true},
}

// ParseLayout returns the layout for a tag such as "rgba".
// Unknown tags fail with ErrUnsupportedFormat.
func ParseLayout(tag string) (Layout, error) {
	// Casers carry state, so one is made per call.
	folded := cases.Fold().String(tag)
	for l := range layoutCount {
		if layoutInfoTable[l].Tag == folded {
			return l, nil
		}
	}
	return 0, fmt.Errorf("%w: layout %q (must be 'rgb', 'bgr', 'rgba' or 'bgra')", ErrUnsupportedFormat, tag)
}

// Info returns the LayoutInfo for this layout.
func (l Layout) Info() LayoutInfo {
	if l >= layoutCount {
		return LayoutInfo{}
	}
	return layoutInfoTable[l]
}

// BytesPerPixel returns the number of bytes per source pixel.
func (l Layout) BytesPerPixel() int {
	return l.Info().BytesPerPixel
}

// HasAlpha returns true if the layout carries an alpha byte.
func (l Layout) HasAlpha() bool {
	return l.Info().HasAlpha
}

// IsValid returns true if the layout is a known layout.
func (l Layout) IsValid() bool {
	return l < layoutCount
}

// String returns the layout tag, or "unknown".
func (l Layout) String() string {
	if !l.IsValid() {
		return "unknown"
	}
	return layoutInfoTable[l].Tag
}

// ImageBytes returns the number of source bytes for a width x height image.
func (l Layout) ImageBytes(width, height int) int {
	return width * height * l.BytesPerPixel()
}
