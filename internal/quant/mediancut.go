package quant

import (
	"cmp"
	"slices"

	"golang.org/x/exp/constraints"

	"github.com/gogpu/gifstack/internal/pixel"
)

// sq returns v*v.
func sq[T constraints.Integer](v T) T {
	return v * v
}

// span returns hi-lo for an ordered pair.
func span[T constraints.Integer](lo, hi T) T {
	if hi < lo {
		return 0
	}
	return hi - lo
}

// channel extracts channel ch (0=R, 1=G, 2=B) from a packed color.
func channel(c uint32, ch int) uint32 {
	return (c >> (16 - 8*ch)) & 0xFF
}

// box is a run of distinct colors that will collapse into one palette entry.
type box []entry

// widest returns the channel with the largest value range and that range.
// Ties prefer R, then G, then B.
func (b box) widest() (ch int, rng uint32) {
	for c := range 3 {
		lo, hi := uint32(0xFF), uint32(0)
		for _, e := range b {
			v := channel(e.c, c)
			lo, hi = min(lo, v), max(hi, v)
		}
		if r := span(lo, hi); r > rng || c == 0 {
			ch, rng = c, r
		}
	}
	return ch, rng
}

// split sorts the box along ch and cuts it at the pixel-weighted median.
// Both halves are non-empty.
func (b box) split(ch int) (box, box) {
	slices.SortFunc(b, func(x, y entry) int {
		if c := cmp.Compare(channel(x.c, ch), channel(y.c, ch)); c != 0 {
			return c
		}
		return cmp.Compare(x.c, y.c)
	})

	total := 0
	for _, e := range b {
		total += e.n
	}

	cut, acc := 1, 0
	for i, e := range b[:len(b)-1] {
		acc += e.n
		cut = i + 1
		if 2*acc >= total {
			break
		}
	}
	return b[:cut], b[cut:]
}

// mean returns the pixel-weighted average color of the box, rounded.
func (b box) mean() pixel.Color {
	var r, g, bl, n uint64
	for _, e := range b {
		w := uint64(e.n)
		r += uint64(channel(e.c, 0)) * w
		g += uint64(channel(e.c, 1)) * w
		bl += uint64(channel(e.c, 2)) * w
		n += w
	}
	return pixel.Color{
		R: uint8((r + n/2) / n),
		G: uint8((g + n/2) / n),
		B: uint8((bl + n/2) / n),
	}
}

// medianCut partitions entries into at most k boxes and returns one
// representative per box in box order. Representatives equal to an earlier
// one, or to the reserved transparent color, are dropped.
func medianCut(entries []entry, k int, transparent *pixel.Color) []pixel.Color {
	all := make(box, len(entries))
	copy(all, entries)
	boxes := []box{all}

	for len(boxes) < k {
		pick, pickRange := -1, uint32(0)
		for i, b := range boxes {
			if len(b) < 2 {
				continue
			}
			if _, rng := b.widest(); pick < 0 || rng > pickRange {
				pick, pickRange = i, rng
			}
		}
		if pick < 0 {
			break
		}

		ch, _ := boxes[pick].widest()
		lo, hi := boxes[pick].split(ch)
		boxes[pick] = lo
		boxes = slices.Insert(boxes, pick+1, hi)
	}

	seen := make(map[uint32]bool, len(boxes))
	if transparent != nil {
		seen[transparent.Pack()] = true
	}
	colors := make([]pixel.Color, 0, len(boxes)+1)
	for _, b := range boxes {
		c := b.mean()
		if seen[c.Pack()] {
			continue
		}
		seen[c.Pack()] = true
		colors = append(colors, c)
	}

	// Every box mean collided with the transparent color; fall back to the
	// most common remaining color so opaque pixels still have an entry.
	if len(colors) == 0 {
		top := slices.MaxFunc(entries, func(x, y entry) int {
			if c := cmp.Compare(x.n, y.n); c != 0 {
				return c
			}
			return cmp.Compare(y.c, x.c)
		})
		colors = append(colors, pixel.Unpack(top.c))
	}
	return colors
}
