package gifstack

import (
	"github.com/gogpu/gifstack/internal/gifw"
	"github.com/gogpu/gifstack/internal/pixel"
	"github.com/gogpu/gifstack/internal/quant"
	"github.com/gogpu/gifstack/internal/worker"
)

// Option configures a Gif or DynamicStack during creation.
//
// Example:
//
//	// Default: 256 colors, shared worker pool
//	g, _ := gifstack.NewGif(pix, w, h, gifstack.RGBA)
//
//	// 64 colors, dedicated pool
//	pool := gifstack.NewPool(2)
//	defer pool.Close()
//	g, _ := gifstack.NewGif(pix, w, h, gifstack.RGBA,
//	    gifstack.WithMaxColors(64), gifstack.WithPool(pool))
type Option func(*options)

// options holds optional configuration.
type options struct {
	maxColors    int
	canvasWidth  int
	canvasHeight int
	maxArea      int
	pool         *Pool
	transparent  *pixel.Color
}

// defaultOptions returns the default options.
func defaultOptions() options {
	return options{
		maxColors:    quant.MaxColors,
		canvasWidth:  gifw.MaxDimension,
		canvasHeight: gifw.MaxDimension,
		maxArea:      DefaultMaxArea,
		pool:         nil, // Shared pool, created on first async encode
	}
}

func newOptions(opts []Option) options {
	o := defaultOptions()
	for _, opt := range opts {
		opt(&o)
	}
	return o
}

// WithMaxColors bounds the palette size, including the transparent entry.
// Values outside 2..256 make every encode fail with ErrEncoding.
func WithMaxColors(n int) Option {
	return func(o *options) {
		o.maxColors = n
	}
}

// WithCanvasSize sets the largest extent a DynamicStack accepts: pushes
// ending past width or height fail with ErrOutOfBounds. The default is
// the GIF maximum of 65535x65535. Gif ignores this option.
func WithCanvasSize(width, height int) Option {
	return func(o *options) {
		o.canvasWidth = width
		o.canvasHeight = height
	}
}

// DefaultMaxArea is the default limit on the bounding region of a
// DynamicStack, in pixels.
const DefaultMaxArea = 64 << 20

// WithMaxArea limits the bounding region of a DynamicStack to n pixels.
// A push that would grow the region past n fails with ErrOutOfBounds.
// The canvas holds the whole region in memory, about 4 bytes per pixel,
// and each encode takes another 3 bytes per pixel. Gif ignores this
// option.
func WithMaxArea(n int) Option {
	return func(o *options) {
		o.maxArea = n
	}
}

// WithPool runs asynchronous encodes on pool instead of the shared pool.
// The caller owns pool and closes it.
func WithPool(pool *Pool) Option {
	return func(o *options) {
		o.pool = pool
	}
}

// WithTransparencyColor sets the initial transparency color, as
// SetTransparencyColor does after creation.
func WithTransparencyColor(r, g, b uint8) Option {
	return func(o *options) {
		o.transparent = &pixel.Color{R: r, G: g, B: b}
	}
}

// Pool runs asynchronous encodes. See NewPool.
type Pool = worker.Pool

// NewPool creates a pool with the given number of workers.
// If workers is 0 or negative, GOMAXPROCS is used.
func NewPool(workers int) *Pool {
	return worker.NewPool(workers)
}
