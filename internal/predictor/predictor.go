// Package predictor implements the PNG scanline predictors used by the PNG
// frame codec.
//
// A predictor replaces every byte of a scanline with its difference from a
// prediction built from already-seen neighbours: the byte one pixel to the
// left (a), the byte above (b) and the byte above-left (c). Smooth images
// turn into long runs of small values, which deflate compresses well.
// Neighbours outside the image are zero; a nil previous row means "first
// row".
package predictor

import "errors"

// ErrUnknownFilter is returned when a scanline names a filter type
// outside None..Paeth.
var ErrUnknownFilter = errors.New("predictor: unknown filter type")

// Filter is a PNG filter type byte.
type Filter byte

const (
	None    Filter = 0
	Sub     Filter = 1
	Up      Filter = 2
	Average Filter = 3
	Paeth   Filter = 4
)

// NumFilters is the number of defined filter types.
const NumFilters = 5

func above(prev []byte, i int) byte {
	if prev == nil {
		return 0
	}
	return prev[i]
}

// paeth returns whichever of a, b, c is closest to a+b-c.
func paeth(a, b, c byte) byte {
	p := int(a) + int(b) - int(c)
	pa := abs(p - int(a))
	pb := abs(p - int(b))
	pc := abs(p - int(c))
	if pa <= pb && pa <= pc {
		return a
	}
	if pb <= pc {
		return b
	}
	return c
}

func abs(x int) int {
	if x < 0 {
		return -x
	}
	return x
}

// Encode writes cur filtered with f into dst. dst must be len(cur) bytes.
// bpp is the number of bytes per pixel.
func Encode(f Filter, dst, cur, prev []byte, bpp int) {
	n := len(cur)
	switch f {
	case None:
		copy(dst, cur)
	case Sub:
		copy(dst[:min(bpp, n)], cur)
		for i := bpp; i < n; i++ {
			dst[i] = cur[i] - cur[i-bpp]
		}
	case Up:
		for i := 0; i < n; i++ {
			dst[i] = cur[i] - above(prev, i)
		}
	case Average:
		for i := 0; i < n; i++ {
			var a int
			if i >= bpp {
				a = int(cur[i-bpp])
			}
			dst[i] = cur[i] - byte((a+int(above(prev, i)))/2)
		}
	case Paeth:
		for i := 0; i < n; i++ {
			var a, c byte
			if i >= bpp {
				a = cur[i-bpp]
				c = above(prev, i-bpp)
			}
			dst[i] = cur[i] - paeth(a, above(prev, i), c)
		}
	}
}

// Decode reverses Encode in place. prev must already be decoded.
func Decode(f Filter, cur, prev []byte, bpp int) error {
	n := len(cur)
	switch f {
	case None:
	case Sub:
		for i := bpp; i < n; i++ {
			cur[i] += cur[i-bpp]
		}
	case Up:
		if prev == nil {
			return nil
		}
		for i := 0; i < n; i++ {
			cur[i] += prev[i]
		}
	case Average:
		for i := 0; i < n; i++ {
			var a int
			if i >= bpp {
				a = int(cur[i-bpp])
			}
			cur[i] += byte((a + int(above(prev, i))) / 2)
		}
	case Paeth:
		for i := 0; i < n; i++ {
			var a, c byte
			if i >= bpp {
				a = cur[i-bpp]
				c = above(prev, i-bpp)
			}
			cur[i] += paeth(a, above(prev, i), c)
		}
	default:
		return ErrUnknownFilter
	}
	return nil
}

// Chooser picks a filter per scanline with the minimum-sum-of-absolute-
// differences heuristic and keeps the scratch rows between calls.
type Chooser struct {
	scratch [NumFilters][]byte
}

// Choose filters cur with every predictor and returns the cheapest one
// along with its output. The returned slice is reused by the next call.
func (ch *Chooser) Choose(cur, prev []byte, bpp int) (Filter, []byte) {
	best := None
	bestSum := -1
	for f := None; f < NumFilters; f++ {
		if cap(ch.scratch[f]) < len(cur) {
			ch.scratch[f] = make([]byte, len(cur))
		}
		dst := ch.scratch[f][:len(cur)]
		Encode(f, dst, cur, prev, bpp)

		sum := 0
		for _, v := range dst {
			sum += abs(int(int8(v)))
			if bestSum >= 0 && sum >= bestSum {
				break
			}
		}
		if bestSum < 0 || sum < bestSum {
			best, bestSum = f, sum
		}
	}
	return best, ch.scratch[best][:len(cur)]
}
