// Package gifstack encodes raw pixel buffers as GIF89a images.
//
// # Overview
//
// gifstack is a pure Go GIF encoder with two entry points:
//   - [Gif] encodes one full frame from a raw pixel buffer.
//   - [DynamicStack] accepts rectangular patches at arbitrary offsets,
//     tracks the region they cover and encodes the composited result.
//
// Both can encode synchronously or on a worker pool.
//
// # Quick Start
//
//	import "github.com/gogpu/gifstack"
//
//	g, err := gifstack.NewGif(pix, 720, 400, gifstack.RGBA)
//	if err != nil {
//	    return err
//	}
//	data, err := g.EncodeSync()
//
// A stack composes patches instead:
//
//	s, _ := gifstack.NewDynamicStack(gifstack.RGBA)
//	_ = s.Push(patchA, 0, 0, 10, 10)
//	_ = s.Push(patchB, 20, 20, 10, 10)
//	s.Encode(func(r gifstack.Result) {
//	    // r.Data is a 30x30 GIF; r.Bounds is {0, 0, 30, 30}
//	})
//
// # Pipeline
//
// Every encode runs the same stages:
//   - internal/pixel: validate and convert the source layout to packed RGB
//   - internal/quant: build a palette of at most 256 colors (median cut)
//   - internal/lzw: compress the palette indices
//   - internal/gifw: write the GIF89a container
//
// # Stacks
//
// A stack encodes only its bounding region, placed at (0,0) in the output
// image. The region's offset is available from [DynamicStack.Dimensions]
// and [Result.Bounds]. Pixels inside the region that no patch covered are
// painted with the transparency color, which defaults to #FFFFFE, so they
// decode as transparent.
//
// # Logging
//
// The package is silent by default. See [SetLogger].
package gifstack

// Version information
const (
	// Version is the current version of the library
	Version = "0.1.0"

	// VersionMajor is the major version
	VersionMajor = 0

	// VersionMinor is the minor version
	VersionMinor = 1

	// VersionPatch is the patch version
	VersionPatch = 0
)
