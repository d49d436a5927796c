package gifstack

import (
	"errors"
	"fmt"
	"image"
	"sync"

	"github.com/gogpu/gifstack/internal/gifw"
	"github.com/gogpu/gifstack/internal/pixel"
)

// Gif encodes a single full frame.
//
// The source buffer is validated and copied by NewGif, so the caller may
// reuse it immediately. A Gif may be encoded any number of times; every
// encode of the same Gif with the same transparency color yields the same
// bytes.
//
// Thread safety: Gif is safe for concurrent use.
type Gif struct {
	buf  *pixel.Buffer
	opts options

	mu          sync.Mutex
	transparent *pixel.Color
}

// NewGif validates data as a width x height image in the given layout.
//
// It fails with ErrUnsupportedFormat for an unknown layout and with
// ErrSizeMismatch when len(data) != width*height*bytes-per-pixel or the
// dimensions are not positive or exceed 65535.
func NewGif(data []byte, width, height int, layout Layout, opts ...Option) (*Gif, error) {
	if !layout.IsValid() {
		return nil, fmt.Errorf("%w: layout %d", ErrUnsupportedFormat, layout)
	}
	if err := checkFrameSize(width, height); err != nil {
		return nil, err
	}
	buf, err := pixel.Normalize(data, width, height, layout)
	if err != nil {
		return nil, publicPixelError(err)
	}
	return newGif(buf, opts), nil
}

// NewGifFromImage creates a Gif from any image.Image. Alpha is dropped.
func NewGifFromImage(img image.Image, opts ...Option) (*Gif, error) {
	if img != nil {
		b := img.Bounds()
		if err := checkFrameSize(b.Dx(), b.Dy()); err != nil {
			return nil, err
		}
	}
	buf, err := pixel.FromImage(img)
	if err != nil {
		return nil, publicPixelError(err)
	}
	return newGif(buf, opts), nil
}

func newGif(buf *pixel.Buffer, opts []Option) *Gif {
	o := newOptions(opts)
	return &Gif{buf: buf, opts: o, transparent: o.transparent}
}

// checkFrameSize rejects frames a GIF image descriptor cannot record.
// Non-positive sizes are left to the pixel package.
func checkFrameSize(width, height int) error {
	if width > gifw.MaxDimension || height > gifw.MaxDimension {
		return fmt.Errorf("%w: %dx%d exceeds %dx%d",
			ErrSizeMismatch, width, height, gifw.MaxDimension, gifw.MaxDimension)
	}
	return nil
}

// publicPixelError folds invalid dimensions into ErrSizeMismatch.
func publicPixelError(err error) error {
	if errors.Is(err, pixel.ErrInvalidDimensions) {
		return fmt.Errorf("%w: %w", ErrSizeMismatch, err)
	}
	return err
}

// Width returns the frame width in pixels.
func (g *Gif) Width() int { return g.buf.Width }

// Height returns the frame height in pixels.
func (g *Gif) Height() int { return g.buf.Height }

// Bounds returns the frame rectangle, always at (0,0).
func (g *Gif) Bounds() Rect {
	return Rect{Width: g.buf.Width, Height: g.buf.Height}
}

// SetTransparencyColor marks pixels of exactly this color as transparent
// in subsequent encodes. Without it, a Gif has no transparent color.
func (g *Gif) SetTransparencyColor(r, gr, b uint8) {
	g.mu.Lock()
	g.transparent = &pixel.Color{R: r, G: gr, B: b}
	g.mu.Unlock()
}

func (g *Gif) transparency() *pixel.Color {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.transparent == nil {
		return nil
	}
	c := *g.transparent
	return &c
}

// EncodeSync encodes the frame and returns the GIF bytes.
func (g *Gif) EncodeSync() ([]byte, error) {
	return encode(g.buf, g.opts.maxColors, g.transparency())
}

// Encode encodes the frame on the worker pool and invokes callback exactly
// once with the result, on a pool goroutine. The transparency color in
// effect when Encode is called is used. The callback may start further
// encodes on the same pool.
func (g *Gif) Encode(callback func(Result)) {
	key := g.transparency()
	dispatch(g.opts.workerPool(), g.Bounds(), func() ([]byte, error) {
		return encode(g.buf, g.opts.maxColors, key)
	}, callback)
}

// EncodeAsync is Encode with the result delivered on a channel. The
// channel yields exactly one Result and is then closed.
func (g *Gif) EncodeAsync() <-chan Result {
	return resultChan(g.Encode)
}
