package codec

import (
	"bytes"
	"errors"
	"fmt"

	"github.com/mrjoshuak/go-jpeg2000"

	"github.com/mrjoshuak/go-qom/canvas"
)

// ErrJ2KCorrupted is returned when a JPEG 2000 codestream cannot be decoded.
var ErrJ2KCorrupted = errors.New("codec: corrupted JPEG 2000 data")

// errJ2KEmpty is returned for frames JPEG 2000 cannot represent.
var errJ2KEmpty = errors.New("codec: j2k: empty frame")

// j2kResolutions picks the number of resolution levels for a frame. Each
// decomposition level halves the smaller dimension, so small frames get
// fewer levels.
func j2kResolutions(width, height int) int {
	m := min(width, height)
	levels := 0
	for m > 1 && levels < 5 {
		m >>= 1
		levels++
	}
	return levels + 1
}

// J2KEncode encodes the canvas as a lossy JPEG 2000 codestream without a
// JP2 wrapper.
func J2KEncode(c *canvas.Canvas) ([]byte, error) {
	if c.Width == 0 || c.Height == 0 {
		return nil, errJ2KEmpty
	}
	if err := checkSize(int64(c.Width), int64(c.Height)); err != nil {
		return nil, fmt.Errorf("codec: j2k: %v", err)
	}

	opts := &jpeg2000.Options{
		Format:         jpeg2000.FormatJ2K,
		Lossless:       false,
		NumResolutions: j2kResolutions(c.Width, c.Height),
	}

	var buf bytes.Buffer
	if err := jpeg2000.Encode(&buf, c.ToNRGBA(), opts); err != nil {
		return nil, fmt.Errorf("codec: j2k: encode failed: %w", err)
	}
	return buf.Bytes(), nil
}

// J2KDecode decodes a JPEG 2000 codestream into a canvas.
func J2KDecode(data []byte) (*canvas.Canvas, error) {
	if len(data) == 0 {
		return nil, ErrJ2KCorrupted
	}
	img, err := jpeg2000.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrJ2KCorrupted, err)
	}
	b := img.Bounds()
	if err := checkSize(int64(b.Dx()), int64(b.Dy())); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrJ2KCorrupted, err)
	}
	return canvas.FromImage(img), nil
}
