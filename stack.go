package gifstack

import (
	"fmt"
	"image"
	"sync"

	"github.com/gogpu/gifstack/internal/pixel"
)

// State is the lifecycle state of a DynamicStack.
type State int

const (
	// StateEmpty means no non-empty patch has been pushed.
	StateEmpty State = iota

	// StateAccumulating means the stack holds at least one patch.
	StateAccumulating
)

// String returns the state name.
func (s State) String() string {
	switch s {
	case StateEmpty:
		return "Empty"
	case StateAccumulating:
		return "Accumulating"
	default:
		return fmt.Sprintf("State(%d)", int(s))
	}
}

// DefaultTransparencyColor is the initial transparency color of a stack.
var DefaultTransparencyColor = [3]uint8{0xFF, 0xFF, 0xFE}

// DynamicStack composes rectangular patches onto a growable canvas and
// encodes the region they cover.
//
// Later patches overwrite earlier ones where they overlap. The bounding
// region only grows. Encoding never changes the stack, so it may be
// encoded, pushed to and encoded again.
//
// Thread safety: DynamicStack is safe for concurrent use. Pushes and
// encodes are serialized; an asynchronous encode captures the canvas when
// it is called.
type DynamicStack struct {
	layout pixel.Layout
	opts   options

	mu          sync.Mutex
	canvas      pixel.Canvas
	transparent pixel.Color
}

// NewDynamicStack creates an empty stack whose patches use layout.
// It fails with ErrUnsupportedFormat for an unknown layout.
func NewDynamicStack(layout Layout, opts ...Option) (*DynamicStack, error) {
	if !layout.IsValid() {
		return nil, fmt.Errorf("%w: layout %d", ErrUnsupportedFormat, layout)
	}

	o := newOptions(opts)
	s := &DynamicStack{
		layout: layout,
		opts:   o,
		transparent: pixel.Color{
			R: DefaultTransparencyColor[0],
			G: DefaultTransparencyColor[1],
			B: DefaultTransparencyColor[2],
		},
	}
	if o.transparent != nil {
		s.transparent = *o.transparent
	}
	return s, nil
}

// Layout returns the layout patches are expected in.
func (s *DynamicStack) Layout() Layout {
	return s.layout
}

// checkRegion validates a patch rectangle against the canvas limit.
func (s *DynamicStack) checkRegion(x, y, w, h int) error {
	if x < 0 || y < 0 || w < 0 || h < 0 {
		return fmt.Errorf("%w: patch (%d,%d) %dx%d", ErrOutOfBounds, x, y, w, h)
	}
	if x > s.opts.canvasWidth || y > s.opts.canvasHeight ||
		w > s.opts.canvasWidth-x || h > s.opts.canvasHeight-y {
		return fmt.Errorf("%w: patch (%d,%d) %dx%d exceeds canvas %dx%d",
			ErrOutOfBounds, x, y, w, h, s.opts.canvasWidth, s.opts.canvasHeight)
	}
	return nil
}

// Push writes a w x h patch with its top-left corner at (x, y).
//
// It fails with ErrOutOfBounds for negative coordinates or sizes, for
// patches past the canvas limit and for patches that would grow the
// bounding region past the area limit (see WithMaxArea), and with ErrSizeMismatch when len(data)
// does not match w, h and the stack's layout. A failed push leaves the
// stack unchanged. A patch with zero width or height is validated and
// then ignored.
func (s *DynamicStack) Push(data []byte, x, y, w, h int) error {
	if err := s.checkRegion(x, y, w, h); err != nil {
		return err
	}

	if w == 0 || h == 0 {
		if len(data) != 0 {
			return fmt.Errorf("%w: %d bytes for an empty %dx%d patch", ErrSizeMismatch, len(data), w, h)
		}
		Logger().Debug("gifstack: empty push ignored", "x", x, "y", y, "w", w, "h", h)
		return nil
	}

	patch, err := pixel.Normalize(data, w, h, s.layout)
	if err != nil {
		return publicPixelError(err)
	}
	return s.write(patch, x, y)
}

// PushImage writes img with its top-left corner at (x, y). Alpha is
// dropped. The stack's layout does not apply.
func (s *DynamicStack) PushImage(img image.Image, x, y int) error {
	if img == nil {
		return fmt.Errorf("%w: nil image", ErrSizeMismatch)
	}
	b := img.Bounds()
	if err := s.checkRegion(x, y, b.Dx(), b.Dy()); err != nil {
		return err
	}
	if b.Empty() {
		return nil
	}

	patch, err := pixel.FromImage(img)
	if err != nil {
		return publicPixelError(err)
	}
	return s.write(patch, x, y)
}

func (s *DynamicStack) write(patch *pixel.Buffer, x, y int) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	r := Rect{X: x, Y: y, Width: patch.Width, Height: patch.Height}
	if u := s.canvas.Bounds().Union(r); u.Width > s.opts.maxArea/u.Height {
		return fmt.Errorf("%w: bounding region %dx%d exceeds %d pixels",
			ErrOutOfBounds, u.Width, u.Height, s.opts.maxArea)
	}
	if err := s.canvas.Write(patch, x, y); err != nil {
		return err
	}
	Logger().Debug("gifstack: push",
		"x", x, "y", y, "w", patch.Width, "h", patch.Height,
		"bounds", s.canvas.Bounds())
	return nil
}

// Dimensions returns the bounding region of all patches pushed so far,
// or the zero Rect when the stack is empty.
func (s *DynamicStack) Dimensions() Rect {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.canvas.Bounds()
}

// State returns StateEmpty until the first non-empty push.
func (s *DynamicStack) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.canvas.IsEmpty() {
		return StateEmpty
	}
	return StateAccumulating
}

// SetTransparencyColor sets the color that encodes as transparent. Canvas
// pixels no patch covered are painted with it. The default is #FFFFFE.
func (s *DynamicStack) SetTransparencyColor(r, g, b uint8) {
	s.mu.Lock()
	s.transparent = pixel.Color{R: r, G: g, B: b}
	s.mu.Unlock()
}

// snapshot copies the canvas with uncovered pixels filled.
func (s *DynamicStack) snapshot() (*pixel.Buffer, pixel.Color, Rect, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.canvas.IsEmpty() {
		return nil, pixel.Color{}, Rect{}, ErrEmptyStack
	}
	buf, err := s.canvas.Snapshot(s.transparent)
	if err != nil {
		return nil, pixel.Color{}, Rect{}, err
	}
	return buf, s.transparent, s.canvas.Bounds(), nil
}

// EncodeSync encodes the bounding region as a GIF with the region's
// top-left corner at (0,0). It fails with ErrEmptyStack if nothing was
// pushed. The stack is not modified.
func (s *DynamicStack) EncodeSync() ([]byte, error) {
	buf, key, _, err := s.snapshot()
	if err != nil {
		return nil, err
	}
	defer pixel.PutToDefault(buf)
	return encode(buf, s.opts.maxColors, &key)
}

// Encode captures the canvas now, encodes it on the worker pool and
// invokes callback exactly once with the result. Result.Bounds is the
// bounding region at the time of the call. An empty stack delivers
// ErrEmptyStack to callback on the calling goroutine.
func (s *DynamicStack) Encode(callback func(Result)) {
	buf, key, bounds, err := s.snapshot()
	if err != nil {
		if callback != nil {
			callback(Result{Err: err})
		}
		return
	}
	dispatch(s.opts.workerPool(), bounds, func() ([]byte, error) {
		defer pixel.PutToDefault(buf)
		return encode(buf, s.opts.maxColors, &key)
	}, callback)
}

// EncodeAsync is Encode with the result delivered on a channel. The
// channel yields exactly one Result and is then closed.
func (s *DynamicStack) EncodeAsync() <-chan Result {
	return resultChan(s.Encode)
}
