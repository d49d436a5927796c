// Package gifw writes single-image GIF89a containers around an already
// compressed LZW code stream.
package gifw

import (
	"bufio"
	"bytes"
	"errors"
	"fmt"
	"io"

	"github.com/gogpu/gifstack/internal/pixel"
)

// Block identifiers.
const (
	signature = "GIF89a"

	extensionIntroducer = 0x21
	graphicControlLabel = 0xF9
	graphicControlSize  = 0x04
	imageSeparator      = 0x2C
	trailer             = 0x3B

	// colorResolution is the packed-field value for 8 bits per primary.
	colorResolution = 0x70
	globalTableFlag = 0x80
	transparentFlag = 0x01

	// MaxDimension is the largest width or height a GIF can record.
	MaxDimension = 0xFFFF

	maxSubBlock = 0xFF
)

// ErrInvalidFrame is returned for frames that cannot be represented.
var ErrInvalidFrame = errors.New("gifw: invalid frame")

// Frame is everything the container needs for one image.
type Frame struct {
	Width, Height int

	// Palette becomes the global color table, padded with black to a power
	// of two.
	Palette []pixel.Color

	// Transparent is a palette index, or -1 for none. A graphic control
	// extension is written only when it is set.
	Transparent int

	// MinCodeSize and Codes are the output of the LZW encoder.
	MinCodeSize int
	Codes       []byte
}

// tableBits returns n >= 1 such that 1<<n holds size entries.
func tableBits(size int) int {
	n := 1
	for 1<<n < size {
		n++
	}
	return n
}

func (f *Frame) validate() error {
	switch {
	case f.Width <= 0 || f.Height <= 0 || f.Width > MaxDimension || f.Height > MaxDimension:
		return fmt.Errorf("%w: dimensions %dx%d", ErrInvalidFrame, f.Width, f.Height)
	case len(f.Palette) == 0 || len(f.Palette) > 256:
		return fmt.Errorf("%w: palette of %d colors", ErrInvalidFrame, len(f.Palette))
	case f.Transparent < -1 || f.Transparent >= len(f.Palette):
		return fmt.Errorf("%w: transparent index %d for %d colors", ErrInvalidFrame, f.Transparent, len(f.Palette))
	case f.MinCodeSize < 2 || f.MinCodeSize > 8:
		return fmt.Errorf("%w: minimum code size %d", ErrInvalidFrame, f.MinCodeSize)
	}
	return nil
}

// writer is a buffered writer.
type writer interface {
	Flush() error
	io.Writer
	io.ByteWriter
}

// encoder holds the first write error; later writes become no-ops.
type encoder struct {
	w   writer
	err error
	// buf is scratch space large enough for a full 256-entry color table.
	buf [3 * 256]byte
}

func (e *encoder) write(p []byte) {
	if e.err != nil {
		return
	}
	_, e.err = e.w.Write(p)
}

func (e *encoder) writeByte(b byte) {
	if e.err != nil {
		return
	}
	e.err = e.w.WriteByte(b)
}

func putUint16(b []byte, v uint16) {
	b[0] = uint8(v)
	b[1] = uint8(v >> 8)
}

// Write emits f as a complete GIF89a stream.
func Write(w io.Writer, f Frame) error {
	if err := f.validate(); err != nil {
		return err
	}

	e := &encoder{}
	if ww, ok := w.(writer); ok {
		e.w = ww
	} else {
		e.w = bufio.NewWriter(w)
	}

	bits := tableBits(len(f.Palette))

	e.write([]byte(signature))
	e.writeScreenDescriptor(f.Width, f.Height, bits)
	e.writeColorTable(f.Palette, bits)
	if f.Transparent >= 0 {
		e.writeGraphicControl(uint8(f.Transparent))
	}
	e.writeImageDescriptor(f.Width, f.Height)
	e.writeByte(uint8(f.MinCodeSize))
	e.writeSubBlocks(f.Codes)
	e.writeByte(trailer)

	if e.err != nil {
		return e.err
	}
	return e.w.Flush()
}

// Encode returns f as GIF89a bytes.
func Encode(f Frame) ([]byte, error) {
	var buf bytes.Buffer
	buf.Grow(len(f.Codes) + len(f.Codes)/maxSubBlock + 3*256 + 64)
	if err := Write(&buf, f); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func (e *encoder) writeScreenDescriptor(width, height, bits int) {
	putUint16(e.buf[0:2], uint16(width))
	putUint16(e.buf[2:4], uint16(height))
	e.buf[4] = globalTableFlag | colorResolution | uint8(bits-1)
	e.buf[5] = 0x00 // background color index
	e.buf[6] = 0x00 // pixel aspect ratio
	e.write(e.buf[:7])
}

func (e *encoder) writeColorTable(p []pixel.Color, bits int) {
	n := 1 << bits
	clear(e.buf[:3*n])
	for i, c := range p {
		e.buf[3*i+0] = c.R
		e.buf[3*i+1] = c.G
		e.buf[3*i+2] = c.B
	}
	e.write(e.buf[:3*n])
}

func (e *encoder) writeGraphicControl(transparent uint8) {
	e.buf[0] = extensionIntroducer
	e.buf[1] = graphicControlLabel
	e.buf[2] = graphicControlSize
	e.buf[3] = transparentFlag
	putUint16(e.buf[4:6], 0) // delay
	e.buf[6] = transparent
	e.buf[7] = 0x00 // block terminator
	e.write(e.buf[:8])
}

func (e *encoder) writeImageDescriptor(width, height int) {
	e.buf[0] = imageSeparator
	putUint16(e.buf[1:3], 0)
	putUint16(e.buf[3:5], 0)
	putUint16(e.buf[5:7], uint16(width))
	putUint16(e.buf[7:9], uint16(height))
	e.buf[9] = 0x00 // no local table, not interlaced
	e.write(e.buf[:10])
}

// writeSubBlocks splits data into length-prefixed blocks of at most 255
// bytes followed by the zero-length terminator.
func (e *encoder) writeSubBlocks(data []byte) {
	bw := blockWriter{e: e}
	if _, err := bw.Write(data); err != nil && e.err == nil {
		e.err = err
	}
	e.writeByte(0x00)
}

// blockWriter writes (n, n bytes) blocks with 1 <= n <= 255. It is an
// io.Writer so a streaming LZW encoder can sit on top of it.
type blockWriter struct {
	e *encoder
}

func (b blockWriter) Write(data []byte) (int, error) {
	total := 0
	for total < len(data) {
		if b.e.err != nil {
			return total, b.e.err
		}
		n := min(len(data)-total, maxSubBlock)
		b.e.writeByte(uint8(n))
		b.e.write(data[total : total+n])
		total += n
	}
	return total, b.e.err
}
