package pixel

import (
	"errors"
	"fmt"
)

// Common errors for pixel operations.
var (
	// ErrUnsupportedFormat is returned when a layout is not recognized.
	ErrUnsupportedFormat = errors.New("pixel: unsupported format")

	// ErrSizeMismatch is returned when a buffer length disagrees with the
	// declared dimensions and layout.
	ErrSizeMismatch = errors.New("pixel: buffer size mismatch")

	// ErrInvalidDimensions is returned when width or height is non-positive.
	ErrInvalidDimensions = errors.New("pixel: invalid dimensions")

	// ErrOutOfBounds is returned when a region falls outside a canvas.
	ErrOutOfBounds = errors.New("pixel: coordinates out of bounds")
)

// Color is a 24-bit RGB color.
type Color struct {
	R, G, B uint8
}

// Pack returns the color as 0xRRGGBB.
func (c Color) Pack() uint32 {
	return uint32(c.R)<<16 | uint32(c.G)<<8 | uint32(c.B)
}

// Unpack is the inverse of Color.Pack.
func Unpack(v uint32) Color {
	return Color{R: uint8(v >> 16), G: uint8(v >> 8), B: uint8(v)}
}

// String formats the color as rrggbb.
func (c Color) String() string {
	return fmt.Sprintf("%02x%02x%02x", c.R, c.G, c.B)
}

// Buffer is the canonical pixel representation: packed RGB triples in
// row-major order with no padding between rows.
//
// A Buffer handed to the quantizer must not be modified afterwards.
type Buffer struct {
	Width  int
	Height int

	// Pix holds Width*Height RGB triples.
	Pix []byte

	// HadAlpha records that the source carried an alpha channel, which the
	// canonical form drops.
	HadAlpha bool
}

// NewBuffer allocates a zeroed (black) buffer.
func NewBuffer(width, height int) (*Buffer, error) {
	if width <= 0 || height <= 0 {
		return nil, fmt.Errorf("%w: %dx%d", ErrInvalidDimensions, width, height)
	}
	return &Buffer{
		Width:  width,
		Height: height,
		Pix:    make([]byte, width*height*3),
	}, nil
}

// Normalize validates src against the declared geometry and converts it to
// a canonical Buffer. The result never aliases src.
func Normalize(src []byte, width, height int, layout Layout) (*Buffer, error) {
	if !layout.IsValid() {
		return nil, fmt.Errorf("%w: layout %d", ErrUnsupportedFormat, layout)
	}
	buf, err := NewBuffer(width, height)
	if err != nil {
		return nil, err
	}
	if want := layout.ImageBytes(width, height); len(src) != want {
		return nil, fmt.Errorf("%w: got %d bytes, want %d for %dx%d %s",
			ErrSizeMismatch, len(src), want, width, height, layout)
	}

	convert(buf.Pix, src, layout)
	buf.HadAlpha = layout.HasAlpha()
	return buf, nil
}

// convert copies len(dst)/3 source pixels into dst as RGB triples.
func convert(dst, src []byte, layout Layout) {
	info := layout.Info()
	if layout == RGB {
		copy(dst, src)
		return
	}

	bpp := info.BytesPerPixel
	for i, j := 0, 0; i < len(dst); i, j = i+3, j+bpp {
		dst[i] = src[j+info.R]
		dst[i+1] = src[j+info.G]
		dst[i+2] = src[j+info.B]
	}
}

// At returns the color at (x, y). Coordinates must be in range.
func (b *Buffer) At(x, y int) Color {
	i := (y*b.Width + x) * 3
	return Color{R: b.Pix[i], G: b.Pix[i+1], B: b.Pix[i+2]}
}

// Set sets the color at (x, y). Coordinates must be in range.
func (b *Buffer) Set(x, y int, c Color) {
	i := (y*b.Width + x) * 3
	b.Pix[i] = c.R
	b.Pix[i+1] = c.G
	b.Pix[i+2] = c.B
}

// Len returns the number of pixels.
func (b *Buffer) Len() int {
	return b.Width * b.Height
}
