// Package lzw implements the variable-width LZW compression used by GIF
// image data.
//
// Codes are packed least-significant-bit first. The stream starts with a
// Clear code, widens codes as the dictionary fills, emits Clear and starts
// over once 12-bit codes are exhausted, and ends with End-of-Information.
package lzw

import (
	"bytes"
	"errors"
	"fmt"
	"io"
)

const (
	// MaxWidth is the widest code GIF permits.
	MaxWidth = 12

	// maxCode is the largest code; reaching it forces a dictionary reset.
	maxCode = 1<<MaxWidth - 1

	// The dictionary is an open-addressing hash table of prefix<<8|suffix
	// keys packed with their code as key<<12|code.
	tableSize    = 4 * (1 << MaxWidth)
	tableMask    = tableSize - 1
	invalidEntry = 0

	invalidCode = 1<<32 - 1
)

var (
	// ErrInvalidInput is returned for palette sizes outside 1..256 and for
	// indices that do not fit the palette.
	ErrInvalidInput = errors.New("lzw: invalid input")

	// ErrClosed is returned when writing to a closed Encoder.
	ErrClosed = errors.New("lzw: write to closed encoder")
)

// MinCodeSize returns the LZW minimum code size for a palette of n colors:
// the bits needed to address the padded color table, at least 2.
func MinCodeSize(n int) int {
	size := 2
	for 1<<size < n {
		size++
	}
	return size
}

// Compress encodes a stream of palette indices. It returns the packed code
// bytes (not yet split into sub-blocks) and the minimum code size to record
// in front of them.
func Compress(ix []uint8, paletteSize int) ([]byte, int, error) {
	if paletteSize < 1 || paletteSize > 256 {
		return nil, 0, fmt.Errorf("%w: palette size %d", ErrInvalidInput, paletteSize)
	}
	for i, v := range ix {
		if int(v) >= paletteSize {
			return nil, 0, fmt.Errorf("%w: index %d at %d exceeds palette size %d", ErrInvalidInput, v, i, paletteSize)
		}
	}

	litWidth := MinCodeSize(paletteSize)
	var out bytes.Buffer
	e := NewEncoder(&out, litWidth)
	if _, err := e.Write(ix); err != nil {
		return nil, 0, err
	}
	if err := e.Close(); err != nil {
		return nil, 0, err
	}
	return out.Bytes(), litWidth, nil
}

// Encoder is an io.WriteCloser that LZW-compresses palette indices into w.
// Close must be called to flush the final codes.
type Encoder struct {
	w   io.ByteWriter
	err error

	litWidth   int
	clear, eoi uint32

	// width is the current code width; hi is the last code assigned and
	// overflow the first code that needs another bit.
	width    uint
	hi       uint32
	overflow uint32

	// bits holds nBits pending output bits.
	bits  uint32
	nBits uint

	// saved is the code of the longest match pending at the end of the
	// last Write, or invalidCode before the first literal.
	saved uint32

	table [tableSize]uint32
}

// NewEncoder returns an Encoder for literals of litWidth bits (2..8).
func NewEncoder(w io.ByteWriter, litWidth int) *Encoder {
	e := &Encoder{w: w, litWidth: litWidth, saved: invalidCode}
	if litWidth < 2 || litWidth > 8 {
		e.err = fmt.Errorf("%w: literal width %d", ErrInvalidInput, litWidth)
		return e
	}
	e.clear = 1 << litWidth
	e.eoi = e.clear + 1
	e.reset()
	return e
}

// reset empties the dictionary and restores the initial code width.
func (e *Encoder) reset() {
	e.width = uint(e.litWidth) + 1
	e.hi = e.eoi
	e.overflow = e.clear << 1
	clear(e.table[:])
}

// emit appends one code at the current width.
func (e *Encoder) emit(code uint32) {
	if e.err != nil {
		return
	}
	e.bits |= code << e.nBits
	e.nBits += e.width
	for e.nBits >= 8 {
		if err := e.w.WriteByte(uint8(e.bits)); err != nil {
			e.err = err
			return
		}
		e.bits >>= 8
		e.nBits -= 8
	}
}

// next advances hi past the code just implied by an emitted match and
// widens codes when hi needs another bit. When the 12-bit space runs out it
// emits Clear, resets the dictionary and returns true.
func (e *Encoder) next() bool {
	e.hi++
	if e.hi == e.overflow {
		e.width++
		e.overflow <<= 1
	}
	if e.hi == maxCode {
		e.emit(e.clear)
		e.reset()
		return true
	}
	return false
}

func hash(key uint32) uint32 {
	return (key>>12 ^ key) & tableMask
}

// Write compresses p. Every byte must be below 1<<litWidth.
func (e *Encoder) Write(p []byte) (int, error) {
	if e.err != nil {
		return 0, e.err
	}
	if len(p) == 0 {
		return 0, nil
	}
	for i, v := range p {
		if uint32(v) >= e.clear {
			e.err = fmt.Errorf("%w: literal %d at %d needs more than %d bits", ErrInvalidInput, v, i, e.litWidth)
			return 0, e.err
		}
	}

	n := len(p)
	code := e.saved
	if code == invalidCode {
		e.emit(e.clear)
		code, p = uint32(p[0]), p[1:]
	}

scan:
	for _, v := range p {
		key := code<<8 | uint32(v)
		h := hash(key)
		for t := e.table[h]; t != invalidEntry; t = e.table[h] {
			if t>>12 == key {
				code = t & maxCode
				continue scan
			}
			h = (h + 1) & tableMask
		}

		e.emit(code)
		code = uint32(v)
		if e.next() {
			continue
		}
		e.table[h] = key<<12 | e.hi
	}

	e.saved = code
	if e.err != nil {
		return 0, e.err
	}
	return n, nil
}

// Close flushes the pending match, End-of-Information and any partial byte.
func (e *Encoder) Close() error {
	if e.err != nil {
		if errors.Is(e.err, ErrClosed) {
			return nil
		}
		return e.err
	}

	if e.saved != invalidCode {
		e.emit(e.saved)
		// The decoder assigns a code after reading the final match, which
		// may widen the End-of-Information code.
		e.next()
	} else {
		e.emit(e.clear)
	}
	e.emit(e.eoi)

	if e.err == nil && e.nBits > 0 {
		e.err = e.w.WriteByte(uint8(e.bits))
		e.bits, e.nBits = 0, 0
	}
	if e.err != nil {
		return e.err
	}
	e.err = ErrClosed
	return nil
}
