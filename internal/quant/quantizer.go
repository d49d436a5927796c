package quant

import (
	"image"
	"image/color"

	"golang.org/x/image/draw"

	"github.com/gogpu/gifstack/internal/pixel"
)

// Quantizer exposes the palette builder as a draw.Quantizer, so it can be
// handed to image/gif.Options or any other consumer of that interface.
type Quantizer struct {
	// Transparent, when set, is emitted as a fully transparent entry.
	Transparent *pixel.Color
}

var _ draw.Quantizer = Quantizer{}

// Quantize appends up to cap(p)-len(p) colors for m to p. When the
// remaining capacity is below 2, MaxColors is used. On failure p is
// returned unchanged.
func (q Quantizer) Quantize(p color.Palette, m image.Image) color.Palette {
	n := cap(p) - len(p)
	if n < 2 || n > MaxColors {
		n = MaxColors
	}

	buf, err := pixel.FromImage(m)
	if err != nil {
		return p
	}
	pal, err := BuildPalette(buf, Options{MaxColors: n, Transparent: q.Transparent})
	if err != nil {
		return p
	}

	for i, c := range pal.Colors {
		a := uint8(0xFF)
		if i == pal.Transparent {
			c, a = pixel.Color{}, 0
		}
		p = append(p, color.RGBA{R: c.R, G: c.G, B: c.B, A: a})
	}
	return p
}
