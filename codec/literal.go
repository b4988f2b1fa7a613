package codec

import (
	"errors"
	"fmt"

	"github.com/mrjoshuak/go-qom/canvas"
	"github.com/mrjoshuak/go-qom/internal/xdr"
)

// ErrLiteralCorrupted is returned for a literal payload whose length does
// not match its size fields.
var ErrLiteralCorrupted = errors.New("codec: corrupted literal data")

// literalHeaderSize is the width and height words in front of the texels.
const literalHeaderSize = 2 * xdr.WordSize

// LiteralEncode stores the canvas uncompressed:
//
//	width:int32 height:int32 then R, G, B, A bytes for every texel
func LiteralEncode(c *canvas.Canvas) []byte {
	w := xdr.NewBufferWriter(literalHeaderSize + c.RawSize())
	w.WriteInt32(int32(c.Width))
	w.WriteInt32(int32(c.Height))
	w.WriteBytes(c.Bytes())
	return w.Bytes()
}

// LiteralDecode reverses LiteralEncode.
func LiteralDecode(data []byte) (*canvas.Canvas, error) {
	r := xdr.NewReader(data)
	width, err := r.ReadInt32()
	if err != nil {
		return nil, ErrLiteralCorrupted
	}
	height, err := r.ReadInt32()
	if err != nil {
		return nil, ErrLiteralCorrupted
	}
	if err := checkSize(int64(width), int64(height)); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrLiteralCorrupted, err)
	}
	if int64(r.Len()) != 4*int64(width)*int64(height) {
		return nil, fmt.Errorf("%w: %d texel bytes for %dx%d", ErrLiteralCorrupted, r.Len(), width, height)
	}

	c := canvas.New(int(width), int(height))
	if err := c.SetBytes(r.Rest()); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrLiteralCorrupted, err)
	}
	return c, nil
}
