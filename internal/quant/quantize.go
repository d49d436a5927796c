// Package quant reduces canonical RGB buffers to a palette of at most 256
// colors and maps every pixel to a palette index.
//
// Quantization is a pure function of its inputs: identical buffers and
// options always produce identical palettes and index images.
package quant

import (
	"cmp"
	"errors"
	"fmt"
	"slices"

	"github.com/gogpu/gifstack/internal/pixel"
)

// MaxColors is the largest palette a GIF color table can hold.
const MaxColors = 256

// Errors returned by the quantizer.
var (
	// ErrEmptyImage is returned for buffers without pixels.
	ErrEmptyImage = errors.New("quant: empty image")

	// ErrInvalidMaxColors is returned when Options.MaxColors is out of range.
	ErrInvalidMaxColors = errors.New("quant: max colors out of range")
)

// Options controls quantization.
type Options struct {
	// MaxColors bounds the palette size including the transparent entry.
	// Zero means MaxColors (256). Valid range is 2..256.
	MaxColors int

	// Transparent, when set, is reserved as the transparent color. Pixels
	// matching it exactly map to Palette.Transparent.
	Transparent *pixel.Color
}

// Palette is an ordered color table.
type Palette struct {
	Colors []pixel.Color

	// Transparent is the index of the transparent entry, or -1.
	Transparent int
}

// Len returns the number of palette entries.
func (p *Palette) Len() int {
	return len(p.Colors)
}

// Indexed is an image of palette indices, one byte per pixel, row-major.
type Indexed struct {
	Width  int
	Height int
	Pix    []uint8
}

// Quantize builds a palette for buf and maps every pixel onto it.
func Quantize(buf *pixel.Buffer, opts Options) (*Palette, *Indexed, error) {
	h, err := newHistogram(buf, opts)
	if err != nil {
		return nil, nil, err
	}
	pal := h.palette()
	return pal, h.mapPixels(buf, pal), nil
}

// BuildPalette returns the palette Quantize would use for buf.
func BuildPalette(buf *pixel.Buffer, opts Options) (*Palette, error) {
	h, err := newHistogram(buf, opts)
	if err != nil {
		return nil, err
	}
	return h.palette(), nil
}

// entry is one distinct color and how many pixels use it.
type entry struct {
	c uint32
	n int
}

// histogram holds the distinct colors of an image sorted by packed value.
type histogram struct {
	entries      []entry
	slots        int
	transparent  *pixel.Color
	hasTransp    bool
	transpPacked uint32
}

func newHistogram(buf *pixel.Buffer, opts Options) (*histogram, error) {
	if buf == nil || buf.Width <= 0 || buf.Height <= 0 || len(buf.Pix) < buf.Len()*3 {
		return nil, ErrEmptyImage
	}
	maxColors := opts.MaxColors
	if maxColors == 0 {
		maxColors = MaxColors
	}
	if maxColors < 2 || maxColors > MaxColors {
		return nil, fmt.Errorf("%w: %d (must be 2-%d)", ErrInvalidMaxColors, maxColors, MaxColors)
	}

	h := &histogram{slots: maxColors, transparent: opts.Transparent}
	if h.transparent != nil {
		h.transpPacked = h.transparent.Pack()
	}

	counts := make(map[uint32]int)
	pix := buf.Pix[:buf.Len()*3]
	for i := 0; i < len(pix); i += 3 {
		c := uint32(pix[i])<<16 | uint32(pix[i+1])<<8 | uint32(pix[i+2])
		if h.transparent != nil && c == h.transpPacked {
			h.hasTransp = true
			continue
		}
		counts[c]++
	}

	h.entries = make([]entry, 0, len(counts))
	for c, n := range counts {
		h.entries = append(h.entries, entry{c: c, n: n})
	}
	slices.SortFunc(h.entries, func(a, b entry) int { return cmp.Compare(a.c, b.c) })

	if h.hasTransp {
		h.slots--
	}
	return h, nil
}

// palette picks the color table: exact colors when they fit, median cut
// representatives otherwise. The transparent entry, if used, is last.
func (h *histogram) palette() *Palette {
	pal := &Palette{Transparent: -1}

	if len(h.entries) <= h.slots {
		pal.Colors = make([]pixel.Color, 0, len(h.entries)+1)
		for _, e := range h.entries {
			pal.Colors = append(pal.Colors, pixel.Unpack(e.c))
		}
	} else {
		pal.Colors = medianCut(h.entries, h.slots, h.transparent)
	}

	if h.hasTransp {
		pal.Transparent = len(pal.Colors)
		pal.Colors = append(pal.Colors, *h.transparent)
	}
	return pal
}

// mapPixels assigns every pixel its palette index. Each distinct color is
// resolved once.
func (h *histogram) mapPixels(buf *pixel.Buffer, pal *Palette) *Indexed {
	opaque := pal.Colors
	if pal.Transparent >= 0 {
		opaque = pal.Colors[:pal.Transparent]
	}

	lookup := make(map[uint32]uint8, len(h.entries))
	for _, e := range h.entries {
		lookup[e.c] = uint8(nearest(opaque, pixel.Unpack(e.c)))
	}

	out := &Indexed{
		Width:  buf.Width,
		Height: buf.Height,
		Pix:    make([]uint8, buf.Len()),
	}
	for i := range out.Pix {
		p := buf.Pix[i*3 : i*3+3]
		c := uint32(p[0])<<16 | uint32(p[1])<<8 | uint32(p[2])
		if h.hasTransp && c == h.transpPacked {
			out.Pix[i] = uint8(pal.Transparent)
			continue
		}
		out.Pix[i] = lookup[c]
	}
	return out
}

// nearest returns the index of the palette color closest to c by squared
// Euclidean RGB distance. Ties go to the lowest index.
func nearest(colors []pixel.Color, c pixel.Color) int {
	best, bestDist := 0, int32(-1)
	for i, p := range colors {
		d := sq(int32(p.R)-int32(c.R)) + sq(int32(p.G)-int32(c.G)) + sq(int32(p.B)-int32(c.B))
		if bestDist < 0 || d < bestDist {
			best, bestDist = i, d
			if d == 0 {
				break
			}
		}
	}
	return best
}
