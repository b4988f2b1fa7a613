package codec

import (
	"errors"
	"fmt"

	"github.com/mrjoshuak/go-qom/canvas"
	"github.com/mrjoshuak/go-qom/internal/xdr"
)

// QOI errors
var (
	ErrQOICorrupted    = errors.New("codec: corrupted QOI data")
	ErrQOIInvalidMagic = errors.New("codec: invalid QOI magic number")
)

// QOI constants
const (
	qoiMagic      = "qoif"
	qoiHeaderSize = 14
	qoiSRGB       = 0

	qoiOpIndex = 0x00 // 00xxxxxx
	qoiOpDiff  = 0x40 // 01xxxxxx
	qoiOpLuma  = 0x80 // 10xxxxxx
	qoiOpRun   = 0xc0 // 11xxxxxx
	qoiOpRGB   = 0xfe
	qoiOpRGBA  = 0xff
	qoiMask2   = 0xc0

	qoiMaxRun = 62
)

var qoiPadding = [8]byte{0, 0, 0, 0, 0, 0, 0, 1}

func qoiHash(p uint32) int {
	r, g, b, a := canvas.Unpack(p)
	return (int(r)*3 + int(g)*5 + int(b)*7 + int(a)*11) % 64
}

// QOIEncode encodes the canvas as a 4-channel sRGB QOI image.
//
// The stream is a 14 byte header (magic, width, height, channels,
// colorspace) followed by one op per pixel or run:
//   - INDEX: pixel seen recently, addressed by its hash
//   - DIFF:  small per-channel difference to the previous pixel
//   - LUMA:  green difference plus red/blue relative to it
//   - RUN:   1..62 repeats of the previous pixel
//   - RGB, RGBA: literal pixel
//
// and an 8 byte end marker.
func QOIEncode(c *canvas.Canvas) ([]byte, error) {
	if err := checkSize(int64(c.Width), int64(c.Height)); err != nil {
		return nil, fmt.Errorf("codec: qoi: %v", err)
	}

	w := xdr.NewBufferWriter(qoiHeaderSize + c.Len() + len(qoiPadding))
	w.WriteBytes([]byte(qoiMagic))
	w.WriteUint32(uint32(c.Width))
	w.WriteUint32(uint32(c.Height))
	w.WriteByte(4)
	w.WriteByte(qoiSRGB)

	var index [64]uint32
	prev := canvas.Pack(0, 0, 0, 255)
	run := 0
	last := len(c.Pix) - 1

	for i, px := range c.Pix {
		if px == prev {
			run++
			if run == qoiMaxRun || i == last {
				w.WriteByte(qoiOpRun | byte(run-1))
				run = 0
			}
			continue
		}

		if run > 0 {
			w.WriteByte(qoiOpRun | byte(run-1))
			run = 0
		}

		h := qoiHash(px)
		if index[h] == px {
			w.WriteByte(qoiOpIndex | byte(h))
			prev = px
			continue
		}
		index[h] = px

		r, g, b, a := canvas.Unpack(px)
		pr, pg, pb, pa := canvas.Unpack(prev)
		if a == pa {
			vr := int(int8(r - pr))
			vg := int(int8(g - pg))
			vb := int(int8(b - pb))
			vgr := vr - vg
			vgb := vb - vg

			switch {
			case vr > -3 && vr < 2 && vg > -3 && vg < 2 && vb > -3 && vb < 2:
				w.WriteByte(qoiOpDiff | byte(vr+2)<<4 | byte(vg+2)<<2 | byte(vb+2))
			case vgr > -9 && vgr < 8 && vg > -33 && vg < 32 && vgb > -9 && vgb < 8:
				w.WriteByte(qoiOpLuma | byte(vg+32))
				w.WriteByte(byte(vgr+8)<<4 | byte(vgb+8))
			default:
				w.WriteByte(qoiOpRGB)
				w.WriteByte(r)
				w.WriteByte(g)
				w.WriteByte(b)
			}
		} else {
			w.WriteByte(qoiOpRGBA)
			w.WriteByte(r)
			w.WriteByte(g)
			w.WriteByte(b)
			w.WriteByte(a)
		}
		prev = px
	}

	w.WriteBytes(qoiPadding[:])
	return w.Bytes(), nil
}

// QOIDecode decodes a QOI image into a canvas. Images with three channels
// decode with opaque alpha.
func QOIDecode(data []byte) (*canvas.Canvas, error) {
	if len(data) < qoiHeaderSize+len(qoiPadding) {
		return nil, ErrQOICorrupted
	}
	if string(data[:4]) != qoiMagic {
		return nil, ErrQOIInvalidMagic
	}

	if string(data[len(data)-len(qoiPadding):]) != string(qoiPadding[:]) {
		return nil, fmt.Errorf("%w: missing end marker", ErrQOICorrupted)
	}

	width := xdr.ByteOrder.Uint32(data[4:8])
	height := xdr.ByteOrder.Uint32(data[8:12])
	channels := data[12]
	if channels != 3 && channels != 4 {
		return nil, fmt.Errorf("%w: %d channels", ErrQOICorrupted, channels)
	}
	if err := checkSize(int64(width), int64(height)); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrQOICorrupted, err)
	}

	chunks := data[qoiHeaderSize : len(data)-len(qoiPadding)]
	npix := int(width) * int(height)
	// Every op yields at least one pixel and at most qoiMaxRun.
	if npix > qoiMaxRun*len(chunks) {
		return nil, fmt.Errorf("%w: %d bytes cannot hold %d pixels", ErrQOICorrupted, len(chunks), npix)
	}

	c := canvas.New(int(width), int(height))
	var index [64]uint32
	px := canvas.Pack(0, 0, 0, 255)
	p := 0
	run := 0

	for i := 0; i < npix; i++ {
		if run > 0 {
			run--
			c.Pix[i] = px
			continue
		}
		if p >= len(chunks) {
			return nil, fmt.Errorf("%w: truncated at pixel %d", ErrQOICorrupted, i)
		}

		b1 := chunks[p]
		p++
		pr, pg, pb, pa := canvas.Unpack(px)

		switch {
		case b1 == qoiOpRGB:
			if p+3 > len(chunks) {
				return nil, ErrQOICorrupted
			}
			px = canvas.Pack(chunks[p], chunks[p+1], chunks[p+2], pa)
			p += 3
		case b1 == qoiOpRGBA:
			if p+4 > len(chunks) {
				return nil, ErrQOICorrupted
			}
			px = canvas.Pack(chunks[p], chunks[p+1], chunks[p+2], chunks[p+3])
			p += 4
		case b1&qoiMask2 == qoiOpIndex:
			px = index[b1]
		case b1&qoiMask2 == qoiOpDiff:
			pr += (b1>>4)&0x03 - 2
			pg += (b1>>2)&0x03 - 2
			pb += b1&0x03 - 2
			px = canvas.Pack(pr, pg, pb, pa)
		case b1&qoiMask2 == qoiOpLuma:
			if p >= len(chunks) {
				return nil, ErrQOICorrupted
			}
			b2 := chunks[p]
			p++
			vg := b1&0x3f - 32
			pr += vg - 8 + (b2>>4)&0x0f
			pg += vg
			pb += vg - 8 + b2&0x0f
			px = canvas.Pack(pr, pg, pb, pa)
		case b1&qoiMask2 == qoiOpRun:
			run = int(b1 & 0x3f)
		}

		index[qoiHash(px)] = px
		c.Pix[i] = px
	}

	if run > 0 || p != len(chunks) {
		return nil, fmt.Errorf("%w: %d bytes after last pixel", ErrQOICorrupted, len(chunks)-p)
	}
	return c, nil
}
