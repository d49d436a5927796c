package gifstack

import (
	"bytes"
	"errors"
	"image"
	"image/color"
	"math"
	"sync"
	"testing"
)

func newStack(t *testing.T, layout Layout, opts ...Option) *DynamicStack {
	t.Helper()
	s, err := NewDynamicStack(layout, opts...)
	if err != nil {
		t.Fatalf("NewDynamicStack() error = %v", err)
	}
	return s
}

func push(t *testing.T, s *DynamicStack, x, y, w, h int, r, g, b uint8) {
	t.Helper()
	if err := s.Push(solid(w, h, s.Layout(), r, g, b), x, y, w, h); err != nil {
		t.Fatalf("Push(%d,%d,%d,%d) error = %v", x, y, w, h, err)
	}
}

// =============================================================================
// Construction and state
// =============================================================================

func TestNewDynamicStack(t *testing.T) {
	s := newStack(t, RGBA)
	if s.State() != StateEmpty {
		t.Errorf("State() = %v, want Empty", s.State())
	}
	if s.Dimensions() != (Rect{}) {
		t.Errorf("Dimensions() = %+v, want zero Rect", s.Dimensions())
	}
	if _, err := NewDynamicStack(Layout(9)); !errors.Is(err, ErrUnsupportedFormat) {
		t.Errorf("NewDynamicStack(9) error = %v, want ErrUnsupportedFormat", err)
	}
}

func TestState_String(t *testing.T) {
	tests := []struct {
		s    State
		want string
	}{
		{StateEmpty, "Empty"},
		{StateAccumulating, "Accumulating"},
		{State(7), "State(7)"},
	}
	for _, tt := range tests {
		if got := tt.s.String(); got != tt.want {
			t.Errorf("State(%d).String() = %q, want %q", int(tt.s), got, tt.want)
		}
	}
}

func TestDynamicStack_EncodeEmpty(t *testing.T) {
	s := newStack(t, RGB)
	if _, err := s.EncodeSync(); !errors.Is(err, ErrEmptyStack) {
		t.Errorf("EncodeSync() error = %v, want ErrEmptyStack", err)
	}
	r := await(t, s.EncodeAsync())
	if !errors.Is(r.Err, ErrEmptyStack) {
		t.Errorf("EncodeAsync() error = %v, want ErrEmptyStack", r.Err)
	}
}

// =============================================================================
// Bounding region
// =============================================================================

// Scenario B.
func TestDynamicStack_Dimensions(t *testing.T) {
	s := newStack(t, RGBA)
	push(t, s, 0, 0, 10, 10, 0xFF, 0, 0)
	push(t, s, 20, 0, 10, 10, 0, 0xFF, 0)
	push(t, s, 0, 20, 10, 10, 0, 0, 0xFF)

	if got, want := s.Dimensions(), (Rect{X: 0, Y: 0, Width: 30, Height: 30}); got != want {
		t.Errorf("Dimensions() = %+v, want %+v", got, want)
	}
	if s.State() != StateAccumulating {
		t.Errorf("State() = %v, want Accumulating", s.State())
	}
}

func TestDynamicStack_DimensionsMonotone(t *testing.T) {
	s := newStack(t, RGB)
	pushes := []Rect{
		{X: 50, Y: 40, Width: 5, Height: 5},
		{X: 52, Y: 41, Width: 1, Height: 1},
		{X: 10, Y: 60, Width: 3, Height: 2},
		{X: 70, Y: 5, Width: 4, Height: 4},
		{X: 30, Y: 30, Width: 10, Height: 10},
	}

	var prev Rect
	for i, p := range pushes {
		push(t, s, p.X, p.Y, p.Width, p.Height, uint8(i), 0, 0)
		cur := s.Dimensions()
		if cur.X > prev.X && !prev.Empty() || cur.Y > prev.Y && !prev.Empty() ||
			cur.X+cur.Width < prev.X+prev.Width || cur.Y+cur.Height < prev.Y+prev.Height {
			t.Fatalf("push %d: bounds shrank from %+v to %+v", i, prev, cur)
		}
		if cur.X > p.X || cur.Y > p.Y || cur.X+cur.Width < p.X+p.Width || cur.Y+cur.Height < p.Y+p.Height {
			t.Fatalf("push %d: bounds %+v do not contain %+v", i, cur, p)
		}
		prev = cur
	}
	if want := (Rect{X: 10, Y: 5, Width: 64, Height: 57}); prev != want {
		t.Errorf("final Dimensions() = %+v, want %+v", prev, want)
	}
}

func TestDynamicStack_ZeroAreaPush(t *testing.T) {
	s := newStack(t, RGBA)
	if err := s.Push(nil, 5, 5, 0, 10); err != nil {
		t.Fatalf("zero-width Push() error = %v", err)
	}
	if err := s.Push([]byte{}, 5, 5, 10, 0); err != nil {
		t.Fatalf("zero-height Push() error = %v", err)
	}
	if s.State() != StateEmpty || s.Dimensions() != (Rect{}) {
		t.Errorf("zero-area push changed the stack: %v %+v", s.State(), s.Dimensions())
	}

	push(t, s, 2, 2, 2, 2, 1, 1, 1)
	before := s.Dimensions()
	if err := s.Push(nil, 100, 100, 0, 0); err != nil {
		t.Fatalf("Push() error = %v", err)
	}
	if s.Dimensions() != before {
		t.Errorf("Dimensions() = %+v after zero-area push, want %+v", s.Dimensions(), before)
	}

	if err := s.Push([]byte{1, 2, 3, 4}, 0, 0, 0, 1); !errors.Is(err, ErrSizeMismatch) {
		t.Errorf("zero-area push with data error = %v, want ErrSizeMismatch", err)
	}
}

// =============================================================================
// Push validation
// =============================================================================

func TestDynamicStack_PushErrors(t *testing.T) {
	tests := []struct {
		name       string
		data       []byte
		x, y, w, h int
		wantErr    error
	}{
		{"negative x", solid(2, 2, RGB, 0, 0, 0), -1, 0, 2, 2, ErrOutOfBounds},
		{"negative y", solid(2, 2, RGB, 0, 0, 0), 0, -3, 2, 2, ErrOutOfBounds},
		{"negative width", nil, 0, 0, -2, 2, ErrOutOfBounds},
		{"past canvas limit", solid(2, 2, RGB, 0, 0, 0), 99, 0, 2, 2, ErrOutOfBounds},
		{"x overflows", solid(1, 1, RGB, 0, 0, 0), math.MaxInt, 0, 1, 1, ErrOutOfBounds},
		{"y overflows", solid(1, 1, RGB, 0, 0, 0), 0, math.MaxInt, 1, 1, ErrOutOfBounds},
		{"width overflows", nil, 1, 0, math.MaxInt, 1, ErrOutOfBounds},
		{"empty patch past limit", nil, 101, 0, 0, 1, ErrOutOfBounds},
		{"short data", make([]byte, 11), 0, 0, 2, 2, ErrSizeMismatch},
		{"rgba-sized data", make([]byte, 16), 0, 0, 2, 2, ErrSizeMismatch},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := newStack(t, RGB, WithCanvasSize(100, 100))
			push(t, s, 1, 1, 1, 1, 9, 9, 9)
			before, err := s.EncodeSync()
			if err != nil {
				t.Fatal(err)
			}

			if err := s.Push(tt.data, tt.x, tt.y, tt.w, tt.h); !errors.Is(err, tt.wantErr) {
				t.Errorf("Push() error = %v, wantErr %v", err, tt.wantErr)
			}

			if s.Dimensions() != (Rect{X: 1, Y: 1, Width: 1, Height: 1}) {
				t.Errorf("failed push changed Dimensions() to %+v", s.Dimensions())
			}
			after, err := s.EncodeSync()
			if err != nil {
				t.Fatal(err)
			}
			if !bytes.Equal(before, after) {
				t.Error("failed push changed the encoded output")
			}
		})
	}
}

func TestDynamicStack_PushAfterRejectedOverflow(t *testing.T) {
	s := newStack(t, RGB)
	if err := s.Push([]byte{1, 2, 3}, math.MaxInt, 0, 1, 1); !errors.Is(err, ErrOutOfBounds) {
		t.Fatalf("Push(MaxInt, 0) error = %v, want ErrOutOfBounds", err)
	}
	if s.State() != StateEmpty {
		t.Errorf("State() = %v after a rejected push, want Empty", s.State())
	}
	push(t, s, 0, 0, 1, 1, 1, 2, 3)
	if got := s.Dimensions(); got != (Rect{Width: 1, Height: 1}) {
		t.Errorf("Dimensions() = %+v, want {0 0 1 1}", got)
	}
	if _, err := s.EncodeSync(); err != nil {
		t.Errorf("EncodeSync() error = %v", err)
	}
}

func TestDynamicStack_MaxArea(t *testing.T) {
	s := newStack(t, RGB, WithMaxArea(100))
	push(t, s, 0, 0, 1, 1, 9, 9, 9)

	// 11x11 would exceed 100 pixels.
	if err := s.Push(solid(1, 1, RGB, 1, 1, 1), 10, 10, 1, 1); !errors.Is(err, ErrOutOfBounds) {
		t.Errorf("Push() past the area limit error = %v, want ErrOutOfBounds", err)
	}
	if got := s.Dimensions(); got != (Rect{Width: 1, Height: 1}) {
		t.Errorf("rejected push changed Dimensions() to %+v", got)
	}

	push(t, s, 9, 9, 1, 1, 1, 1, 1)
	if got := s.Dimensions(); got != (Rect{Width: 10, Height: 10}) {
		t.Errorf("Dimensions() = %+v, want {0 0 10 10}", got)
	}

	img := image.NewRGBA(image.Rect(0, 0, 20, 1))
	if err := s.PushImage(img, 0, 0); !errors.Is(err, ErrOutOfBounds) {
		t.Errorf("PushImage() past the area limit error = %v, want ErrOutOfBounds", err)
	}
}

// Opposite corners of the GIF canvas would need gigabytes of canvas memory.
func TestDynamicStack_DefaultMaxAreaRejectsSparseCorners(t *testing.T) {
	s := newStack(t, RGB)
	push(t, s, 0, 0, 1, 1, 1, 2, 3)
	if err := s.Push(solid(1, 1, RGB, 4, 5, 6), 65534, 65534, 1, 1); !errors.Is(err, ErrOutOfBounds) {
		t.Errorf("Push(65534, 65534) error = %v, want ErrOutOfBounds", err)
	}
	if got := s.Dimensions(); got != (Rect{Width: 1, Height: 1}) {
		t.Errorf("Dimensions() = %+v, want {0 0 1 1}", got)
	}
}

// =============================================================================
// Composition
// =============================================================================

// Scenario B, encoded: the gaps between patches are transparent.
func TestDynamicStack_EncodeComposite(t *testing.T) {
	s := newStack(t, BGRA)
	push(t, s, 0, 0, 10, 10, 0xFF, 0, 0)
	push(t, s, 20, 0, 10, 10, 0, 0xFF, 0)
	push(t, s, 0, 20, 10, 10, 0, 0, 0xFF)

	out, err := s.EncodeSync()
	if err != nil {
		t.Fatalf("EncodeSync() error = %v", err)
	}
	pm := decode(t, out)
	if pm.Bounds() != image.Rect(0, 0, 30, 30) {
		t.Fatalf("bounds = %v, want 30x30", pm.Bounds())
	}

	tests := []struct {
		x, y   int
		want   color.RGBA
		opaque bool
	}{
		{5, 5, color.RGBA{R: 0xFF, A: 0xFF}, true},
		{25, 5, color.RGBA{G: 0xFF, A: 0xFF}, true},
		{5, 25, color.RGBA{B: 0xFF, A: 0xFF}, true},
		{15, 15, color.RGBA{}, false},
		{25, 25, color.RGBA{}, false},
	}
	for _, tt := range tests {
		got, opaque := rgbAt(pm, tt.x, tt.y)
		if opaque != tt.opaque {
			t.Errorf("pixel (%d,%d) opaque = %v, want %v", tt.x, tt.y, opaque, tt.opaque)
			continue
		}
		if opaque && got != tt.want {
			t.Errorf("pixel (%d,%d) = %v, want %v", tt.x, tt.y, got, tt.want)
		}
	}
}

func TestDynamicStack_CropAtOffset(t *testing.T) {
	s := newStack(t, RGB)
	push(t, s, 100, 50, 4, 3, 10, 20, 30)

	r := await(t, s.EncodeAsync())
	if r.Err != nil {
		t.Fatalf("EncodeAsync() error = %v", r.Err)
	}
	if want := (Rect{X: 100, Y: 50, Width: 4, Height: 3}); r.Bounds != want {
		t.Errorf("Result.Bounds = %+v, want %+v", r.Bounds, want)
	}
	pm := decode(t, r.Data)
	if pm.Bounds() != image.Rect(0, 0, 4, 3) {
		t.Errorf("image bounds = %v, want the 4x3 crop", pm.Bounds())
	}
}

// Scenario C: a second encode reflects pushes made after the first.
func TestDynamicStack_EncodePushEncode(t *testing.T) {
	s := newStack(t, RGBA)
	push(t, s, 0, 0, 4, 4, 0xFF, 0, 0)

	first, err := s.EncodeSync()
	if err != nil {
		t.Fatal(err)
	}
	if pm := decode(t, first); pm.Bounds() != image.Rect(0, 0, 4, 4) {
		t.Fatalf("first bounds = %v, want 4x4", pm.Bounds())
	}

	push(t, s, 2, 2, 4, 4, 0, 0xFF, 0)
	second, err := s.EncodeSync()
	if err != nil {
		t.Fatal(err)
	}
	pm := decode(t, second)
	if pm.Bounds() != image.Rect(0, 0, 6, 6) {
		t.Fatalf("second bounds = %v, want 6x6", pm.Bounds())
	}
	if got, _ := rgbAt(pm, 0, 0); got != (color.RGBA{R: 0xFF, A: 0xFF}) {
		t.Errorf("pixel (0,0) = %v, want red", got)
	}
	// The later patch overwrites the overlap.
	if got, _ := rgbAt(pm, 3, 3); got != (color.RGBA{G: 0xFF, A: 0xFF}) {
		t.Errorf("pixel (3,3) = %v, want green", got)
	}
	if _, opaque := rgbAt(pm, 5, 0); opaque {
		t.Error("uncovered pixel (5,0) is opaque")
	}
}

func TestDynamicStack_EncodeDoesNotReset(t *testing.T) {
	s := newStack(t, RGB)
	push(t, s, 3, 3, 5, 5, 1, 2, 3)

	a, err := s.EncodeSync()
	if err != nil {
		t.Fatal(err)
	}
	b, err := s.EncodeSync()
	if err != nil {
		t.Fatal(err)
	}
	if !bytes.Equal(a, b) {
		t.Error("consecutive EncodeSync() calls differ")
	}
	if s.State() != StateAccumulating || s.Dimensions() != (Rect{X: 3, Y: 3, Width: 5, Height: 5}) {
		t.Error("EncodeSync() changed the stack state")
	}
}

func TestDynamicStack_AsyncSnapshotsAtCall(t *testing.T) {
	pool := NewPool(1)
	defer pool.Close()

	s := newStack(t, RGB, WithPool(pool))
	push(t, s, 0, 0, 8, 8, 50, 60, 70)
	want, err := s.EncodeSync()
	if err != nil {
		t.Fatal(err)
	}

	// Block the only worker so the encode is still queued during the push.
	gate := make(chan struct{})
	if err := pool.Submit(func() { <-gate }); err != nil {
		t.Fatal(err)
	}
	ch := s.EncodeAsync()
	push(t, s, 8, 8, 8, 8, 200, 0, 0)
	close(gate)

	r := await(t, ch)
	if r.Err != nil {
		t.Fatalf("EncodeAsync() error = %v", r.Err)
	}
	if !bytes.Equal(r.Data, want) {
		t.Error("async encode saw a push made after it was called")
	}
	if r.Bounds != (Rect{Width: 8, Height: 8}) {
		t.Errorf("Result.Bounds = %+v, want {0 0 8 8}", r.Bounds)
	}
}

// =============================================================================
// Transparency
// =============================================================================

func TestDynamicStack_DefaultTransparency(t *testing.T) {
	s := newStack(t, RGB)
	push(t, s, 0, 0, 1, 1, 0xFF, 0xFF, 0xFE)
	push(t, s, 1, 0, 1, 1, 0xFF, 0xFF, 0xFF)

	pm := decode(t, mustEncode(t, s))
	if _, opaque := rgbAt(pm, 0, 0); opaque {
		t.Error("#FFFFFE pixel is opaque with the default transparency color")
	}
	if got, opaque := rgbAt(pm, 1, 0); !opaque || got != (color.RGBA{R: 0xFF, G: 0xFF, B: 0xFF, A: 0xFF}) {
		t.Errorf("white pixel = %v (opaque %v), want opaque white", got, opaque)
	}
}

func TestDynamicStack_SetTransparencyColor(t *testing.T) {
	s := newStack(t, RGB, WithTransparencyColor(0, 0, 0))
	push(t, s, 0, 0, 1, 1, 0, 0, 0)
	push(t, s, 1, 0, 1, 1, 0xFF, 0xFF, 0xFE)

	pm := decode(t, mustEncode(t, s))
	if _, opaque := rgbAt(pm, 0, 0); opaque {
		t.Error("black pixel is opaque with black as the transparency color")
	}
	if _, opaque := rgbAt(pm, 1, 0); !opaque {
		t.Error("#FFFFFE pixel is transparent after changing the color")
	}

	s.SetTransparencyColor(0xFF, 0xFF, 0xFE)
	pm = decode(t, mustEncode(t, s))
	if _, opaque := rgbAt(pm, 0, 0); !opaque {
		t.Error("black pixel still transparent")
	}
	if _, opaque := rgbAt(pm, 1, 0); opaque {
		t.Error("#FFFFFE pixel opaque after SetTransparencyColor")
	}
}

// =============================================================================
// Images and concurrency
// =============================================================================

func TestDynamicStack_PushImage(t *testing.T) {
	s := newStack(t, BGR)
	img := image.NewNRGBA(image.Rect(0, 0, 3, 2))
	for i := range 6 {
		img.SetNRGBA(i%3, i/3, color.NRGBA{R: uint8(i * 40), G: 9, B: 1, A: 0xFF})
	}
	if err := s.PushImage(img, 7, 4); err != nil {
		t.Fatalf("PushImage() error = %v", err)
	}
	if s.Dimensions() != (Rect{X: 7, Y: 4, Width: 3, Height: 2}) {
		t.Errorf("Dimensions() = %+v, want {7 4 3 2}", s.Dimensions())
	}
	pm := decode(t, mustEncode(t, s))
	if got, _ := rgbAt(pm, 2, 1); got != (color.RGBA{R: 200, G: 9, B: 1, A: 0xFF}) {
		t.Errorf("pixel (2,1) = %v, want {200 9 1}", got)
	}

	if err := s.PushImage(img, -1, 0); !errors.Is(err, ErrOutOfBounds) {
		t.Errorf("PushImage(-1, 0) error = %v, want ErrOutOfBounds", err)
	}
	if err := s.PushImage(nil, 0, 0); !errors.Is(err, ErrSizeMismatch) {
		t.Errorf("PushImage(nil) error = %v, want ErrSizeMismatch", err)
	}
}

func TestDynamicStack_ConcurrentPushAndEncode(t *testing.T) {
	s := newStack(t, RGB)
	push(t, s, 0, 0, 1, 1, 0, 0, 0)

	var wg sync.WaitGroup
	for i := range 8 {
		wg.Add(2)
		go func() {
			defer wg.Done()
			for j := range 10 {
				x, y := i*4, j*4
				if err := s.Push(solid(4, 4, RGB, uint8(i), uint8(j), 0), x, y, 4, 4); err != nil {
					t.Errorf("Push() error = %v", err)
				}
			}
		}()
		go func() {
			defer wg.Done()
			r := <-s.EncodeAsync()
			if r.Err != nil {
				t.Errorf("EncodeAsync() error = %v", r.Err)
			}
		}()
	}
	wg.Wait()

	if got, want := s.Dimensions(), (Rect{Width: 32, Height: 40}); got != want {
		t.Errorf("Dimensions() = %+v, want %+v", got, want)
	}
}

func TestDynamicStack_ClosedPool(t *testing.T) {
	pool := NewPool(1)
	pool.Close()

	s := newStack(t, RGB, WithPool(pool))
	push(t, s, 0, 0, 2, 2, 1, 1, 1)

	calls := 0
	s.Encode(func(r Result) {
		calls++
		if !errors.Is(r.Err, ErrPoolClosed) {
			t.Errorf("Result.Err = %v, want ErrPoolClosed", r.Err)
		}
	})
	if calls != 1 {
		t.Errorf("callback invoked %d times, want 1", calls)
	}
}

func mustEncode(t *testing.T, s *DynamicStack) []byte {
	t.Helper()
	out, err := s.EncodeSync()
	if err != nil {
		t.Fatalf("EncodeSync() error = %v", err)
	}
	return out
}
