// Package codec encodes and decodes single movie frames.
//
// Every frame of a QOM movie is an independent still image. The encoding
// used for a frame is recorded as a 32-bit tag in front of its payload and
// in the frame index, so frames of one movie may use different encodings.
// The set of encodings is closed: Encode and Decode switch over every tag
// and reject anything else with ErrUnsupported.
package codec

import (
	"errors"
	"fmt"
	"strings"

	"github.com/mrjoshuak/go-qom/canvas"
)

// ErrUnsupported is returned for an encoding tag with no implementation.
var ErrUnsupported = errors.New("codec: unsupported encoding")

// Encoding identifies how a frame payload is encoded.
type Encoding int32

const (
	// EncodingLiteral stores texels uncompressed, preceded by the frame size.
	EncodingLiteral Encoding = 0
	// EncodingQOI uses the lossless "Quite OK Image" format.
	EncodingQOI Encoding = 1
	// EncodingPNG uses lossless PNG.
	EncodingPNG Encoding = 2
	// EncodingJ2K uses lossy JPEG 2000.
	EncodingJ2K Encoding = 3
)

// DefaultEncoding is the encoding used by new movies.
const DefaultEncoding = EncodingQOI

// Encodings lists every supported encoding in tag order.
var Encodings = []Encoding{EncodingLiteral, EncodingQOI, EncodingPNG, EncodingJ2K}

// String returns the short name of the encoding.
func (e Encoding) String() string {
	switch e {
	case EncodingLiteral:
		return "LIT"
	case EncodingQOI:
		return "QOI"
	case EncodingPNG:
		return "PNG"
	case EncodingJ2K:
		return "J2K"
	default:
		return fmt.Sprintf("Encoding(%d)", int32(e))
	}
}

// Valid reports whether the encoding has an implementation.
func (e Encoding) Valid() bool {
	switch e {
	case EncodingLiteral, EncodingQOI, EncodingPNG, EncodingJ2K:
		return true
	default:
		return false
	}
}

// IsLossy returns true if decoding may not reproduce the encoded texels.
func (e Encoding) IsLossy() bool {
	return e == EncodingJ2K
}

// ParseEncoding parses an encoding name as returned by String. Matching is
// case-insensitive and accepts a few common aliases.
func ParseEncoding(s string) (Encoding, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "lit", "literal", "raw", "none":
		return EncodingLiteral, nil
	case "qoi":
		return EncodingQOI, nil
	case "png":
		return EncodingPNG, nil
	case "j2k", "jpeg2000", "jp2":
		return EncodingJ2K, nil
	}
	return 0, fmt.Errorf("%w: %q", ErrUnsupported, s)
}

// Encode encodes c with the given encoding. The result does not include
// the encoding tag.
func Encode(e Encoding, c *canvas.Canvas) ([]byte, error) {
	switch e {
	case EncodingLiteral:
		return LiteralEncode(c), nil
	case EncodingQOI:
		return QOIEncode(c)
	case EncodingPNG:
		return PNGEncode(c)
	case EncodingJ2K:
		return J2KEncode(c)
	default:
		return nil, fmt.Errorf("%w: tag %d", ErrUnsupported, int32(e))
	}
}

// Decode decodes a payload produced by Encode with the same encoding.
// The returned canvas is owned by the caller.
func Decode(e Encoding, data []byte) (*canvas.Canvas, error) {
	switch e {
	case EncodingLiteral:
		return LiteralDecode(data)
	case EncodingQOI:
		return QOIDecode(data)
	case EncodingPNG:
		return PNGDecode(data)
	case EncodingJ2K:
		return J2KDecode(data)
	default:
		return nil, fmt.Errorf("%w: tag %d", ErrUnsupported, int32(e))
	}
}

// maxPixels bounds the size of a decoded frame so that a corrupt size field
// cannot trigger a huge allocation.
const maxPixels = 400_000_000

func checkSize(width, height int64) error {
	if width < 0 || height < 0 {
		return fmt.Errorf("negative size %dx%d", width, height)
	}
	if width*height > maxPixels {
		return fmt.Errorf("size %dx%d exceeds %d pixels", width, height, maxPixels)
	}
	return nil
}
