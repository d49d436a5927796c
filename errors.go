package gifstack

import (
	"errors"

	"github.com/gogpu/gifstack/internal/pixel"
	"github.com/gogpu/gifstack/internal/worker"
)

// Errors returned by gifstack. All are matchable with errors.Is.
var (
	// ErrUnsupportedFormat is returned for an unknown pixel layout.
	ErrUnsupportedFormat = pixel.ErrUnsupportedFormat

	// ErrSizeMismatch is returned when a buffer length disagrees with its
	// declared width, height and layout, or the dimensions are not positive.
	ErrSizeMismatch = pixel.ErrSizeMismatch

	// ErrOutOfBounds is returned for negative patch coordinates or sizes,
	// and for patches extending past the canvas limit.
	ErrOutOfBounds = pixel.ErrOutOfBounds

	// ErrEmptyStack is returned when encoding a stack nothing was pushed to.
	ErrEmptyStack = errors.New("gifstack: stack is empty")

	// ErrEncoding wraps failures inside the quantize, compress and
	// container stages.
	ErrEncoding = errors.New("gifstack: encoding failed")

	// ErrPoolClosed is delivered to callbacks when the worker pool was
	// closed before the encode could be scheduled.
	ErrPoolClosed = worker.ErrPoolClosed
)
