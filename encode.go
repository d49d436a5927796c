package gifstack

import (
	"fmt"
	"sync"

	"github.com/gogpu/gifstack/internal/gifw"
	"github.com/gogpu/gifstack/internal/lzw"
	"github.com/gogpu/gifstack/internal/pixel"
	"github.com/gogpu/gifstack/internal/quant"
	"github.com/gogpu/gifstack/internal/worker"
)

// Result is the outcome of an asynchronous encode.
type Result struct {
	// Data is the GIF89a file, or nil when Err is set.
	Data []byte

	// Bounds is the region that was encoded. For a Gif it is the full
	// frame at (0,0); for a DynamicStack it is the bounding region at the
	// time Encode was called.
	Bounds Rect

	Err error
}

var (
	sharedPoolOnce sync.Once
	sharedPool     *worker.Pool
)

// defaultPool returns the package-level pool, sized GOMAXPROCS.
func defaultPool() *worker.Pool {
	sharedPoolOnce.Do(func() {
		sharedPool = worker.NewPool(0)
	})
	return sharedPool
}

func (o *options) workerPool() *worker.Pool {
	if o.pool != nil {
		return o.pool
	}
	return defaultPool()
}

// encode runs quantization, compression and container writing over buf.
// buf must not be modified while encode runs.
func encode(buf *pixel.Buffer, maxColors int, transparent *pixel.Color) ([]byte, error) {
	pal, ix, err := quant.Quantize(buf, quant.Options{MaxColors: maxColors, Transparent: transparent})
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrEncoding, err)
	}

	codes, minCodeSize, err := lzw.Compress(ix.Pix, pal.Len())
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrEncoding, err)
	}

	data, err := gifw.Encode(gifw.Frame{
		Width:       buf.Width,
		Height:      buf.Height,
		Palette:     pal.Colors,
		Transparent: pal.Transparent,
		MinCodeSize: minCodeSize,
		Codes:       codes,
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrEncoding, err)
	}

	Logger().Debug("gifstack: encoded",
		"width", buf.Width,
		"height", buf.Height,
		"colors", pal.Len(),
		"transparent", pal.Transparent,
		"bytes", len(data))
	return data, nil
}

// dispatch runs job on pool and hands its Result to callback exactly once.
// When the pool no longer accepts work, callback receives ErrPoolClosed on
// the calling goroutine.
func dispatch(pool *worker.Pool, bounds Rect, job func() ([]byte, error), callback func(Result)) {
	if callback == nil {
		callback = func(Result) {}
	}

	err := pool.Submit(func() {
		data, err := job()
		if err != nil {
			Logger().Warn("gifstack: async encode failed", "bounds", bounds, "err", err)
		}
		callback(Result{Data: data, Bounds: bounds, Err: err})
	})
	if err != nil {
		Logger().Warn("gifstack: async encode not scheduled", "bounds", bounds, "err", err)
		callback(Result{Bounds: bounds, Err: err})
	}
}

// resultChan adapts a callback-style encode to a channel that yields one
// Result and is then closed.
func resultChan(start func(func(Result))) <-chan Result {
	ch := make(chan Result, 1)
	start(func(r Result) {
		ch <- r
		close(ch)
	})
	return ch
}
