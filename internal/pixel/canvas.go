package pixel

import (
	"fmt"
	"math"
)

// Rect is a rectangular region in pixel coordinates.
type Rect struct {
	X, Y          int // Top-left corner
	Width, Height int // Dimensions
}

// Empty reports whether the rectangle covers no pixels.
func (r Rect) Empty() bool {
	return r.Width <= 0 || r.Height <= 0
}

// Union returns the smallest rectangle containing both r and o.
// Empty rectangles do not contribute.
func (r Rect) Union(o Rect) Rect {
	if r.Empty() {
		return o
	}
	if o.Empty() {
		return r
	}
	x0, y0 := min(r.X, o.X), min(r.Y, o.Y)
	x1 := max(r.X+r.Width, o.X+o.Width)
	y1 := max(r.Y+r.Height, o.Y+o.Height)
	return Rect{X: x0, Y: y0, Width: x1 - x0, Height: y1 - y0}
}

// Canvas is a growable RGB surface that always spans exactly the union of
// the patches written into it. A coverage mask remembers which pixels have
// been written; uncovered pixels take the fill color at Snapshot time.
//
// Canvas is not safe for concurrent use.
type Canvas struct {
	bounds  Rect
	pix     []byte // bounds.Width*bounds.Height RGB triples
	covered []bool
}

// Bounds returns the region spanned by all patches written so far.
// It is the zero Rect before the first non-empty write.
func (c *Canvas) Bounds() Rect {
	return c.bounds
}

// IsEmpty reports whether nothing has been written yet.
func (c *Canvas) IsEmpty() bool {
	return c.bounds.Empty()
}

// Write copies patch into the canvas with its top-left corner at (x, y),
// growing the canvas when the patch extends past the current bounds.
// An empty patch is ignored. Patch pixels overwrite earlier writes.
func (c *Canvas) Write(patch *Buffer, x, y int) error {
	if patch == nil || patch.Width <= 0 || patch.Height <= 0 {
		return nil
	}
	if x < 0 || y < 0 || x > math.MaxInt-patch.Width || y > math.MaxInt-patch.Height {
		return fmt.Errorf("%w: patch at (%d,%d)", ErrOutOfBounds, x, y)
	}

	r := Rect{X: x, Y: y, Width: patch.Width, Height: patch.Height}
	if u := c.bounds.Union(r); u != c.bounds {
		c.grow(u)
	}

	stride := c.bounds.Width * 3
	rowBytes := patch.Width * 3
	for row := range patch.Height {
		dy := y + row - c.bounds.Y
		dx := x - c.bounds.X
		off := dy*stride + dx*3
		copy(c.pix[off:off+rowBytes], patch.Pix[row*rowBytes:(row+1)*rowBytes])

		mask := dy*c.bounds.Width + dx
		for i := range patch.Width {
			c.covered[mask+i] = true
		}
	}
	return nil
}

// grow reallocates the surface to span u, which must contain c.bounds.
func (c *Canvas) grow(u Rect) {
	pix := make([]byte, u.Width*u.Height*3)
	covered := make([]bool, u.Width*u.Height)

	if !c.bounds.Empty() {
		oldStride := c.bounds.Width * 3
		newStride := u.Width * 3
		dx := c.bounds.X - u.X
		for row := range c.bounds.Height {
			dy := c.bounds.Y - u.Y + row
			copy(pix[dy*newStride+dx*3:], c.pix[row*oldStride:(row+1)*oldStride])
			copy(covered[dy*u.Width+dx:], c.covered[row*c.bounds.Width:(row+1)*c.bounds.Width])
		}
	}

	c.bounds = u
	c.pix = pix
	c.covered = covered
}

// Snapshot returns a copy of the canvas as a canonical Buffer, painting
// uncovered pixels with fill. The snapshot does not share memory with the
// canvas, so it may be encoded while the canvas keeps changing. Once done
// with it, callers may hand it back with PutToDefault.
func (c *Canvas) Snapshot(fill Color) (*Buffer, error) {
	if c.IsEmpty() {
		return nil, fmt.Errorf("%w: canvas is empty", ErrInvalidDimensions)
	}
	out, err := defaultPool.Get(c.bounds.Width, c.bounds.Height)
	if err != nil {
		return nil, err
	}
	copy(out.Pix, c.pix)
	for i, ok := range c.covered {
		if !ok {
			out.Pix[i*3] = fill.R
			out.Pix[i*3+1] = fill.G
			out.Pix[i*3+2] = fill.B
		}
	}
	return out, nil
}
