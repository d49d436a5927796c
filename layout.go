package gifstack

import "github.com/gogpu/gifstack/internal/pixel"

// Layout describes the byte order of source pixels.
type Layout = pixel.Layout

// Supported layouts.
const (
	RGB  = pixel.RGB
	BGR  = pixel.BGR
	RGBA = pixel.RGBA
	BGRA = pixel.BGRA
)

// ParseLayout returns the layout for a tag ("rgb", "bgr", "rgba", "bgra"),
// ignoring case.
func ParseLayout(tag string) (Layout, error) {
	return pixel.ParseLayout(tag)
}

// Rect is a rectangular region in canvas coordinates.
type Rect = pixel.Rect
