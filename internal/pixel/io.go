package pixel

import (
	"bytes"
	"errors"
	"fmt"
	"image"
	"io"
	"os"
	"path/filepath"

	"github.com/klauspost/compress/zstd"
	"golang.org/x/image/draw"
)

// I/O errors.
var (
	// ErrEmptyData is returned when a raw dump holds no bytes.
	ErrEmptyData = errors.New("pixel: empty data")
)

// zstdMagic is the frame magic number of a zstd stream (little-endian 0xFD2FB528).
var zstdMagic = []byte{0x28, 0xB5, 0x2F, 0xFD}

// LoadRaw reads a raw pixel dump from path. See ReadRaw.
func LoadRaw(path string) ([]byte, error) {
	f, err := os.Open(filepath.Clean(path))
	if err != nil {
		return nil, fmt.Errorf("pixel: open file: %w", err)
	}
	defer func() { _ = f.Close() }()

	return ReadRaw(f)
}

// ReadRaw reads a raw pixel dump. Dumps compressed with zstd are detected
// by their magic number and inflated, so large fixtures can be stored
// compressed.
func ReadRaw(r io.Reader) ([]byte, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("pixel: read: %w", err)
	}
	if len(data) == 0 {
		return nil, ErrEmptyData
	}
	if !bytes.HasPrefix(data, zstdMagic) {
		return data, nil
	}

	dec, err := zstd.NewReader(nil)
	if err != nil {
		return nil, fmt.Errorf("pixel: zstd reader: %w", err)
	}
	defer dec.Close()

	out, err := dec.DecodeAll(data, nil)
	if err != nil {
		return nil, fmt.Errorf("pixel: zstd decode: %w", err)
	}
	return out, nil
}

// FromImage converts any image.Image to a canonical Buffer. Colors are
// un-premultiplied and alpha is dropped, matching Normalize on RGBA input.
func FromImage(img image.Image) (*Buffer, error) {
	if img == nil {
		return nil, fmt.Errorf("%w: nil image", ErrInvalidDimensions)
	}
	b := img.Bounds()
	w, h := b.Dx(), b.Dy()
	if w <= 0 || h <= 0 {
		return nil, fmt.Errorf("%w: %dx%d", ErrInvalidDimensions, w, h)
	}

	nrgba, ok := img.(*image.NRGBA)
	if !ok || nrgba.Stride != w*4 || b.Min != (image.Point{}) {
		nrgba = image.NewNRGBA(image.Rect(0, 0, w, h))
		draw.Draw(nrgba, nrgba.Bounds(), img, b.Min, draw.Src)
	}
	return Normalize(nrgba.Pix, w, h, RGBA)
}
