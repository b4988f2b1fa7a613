// Package canvas provides the in-memory bitmap exchanged with QOM movies.
//
// A Canvas is a rectangular buffer of packed 32-bit texels. Each texel holds
// non-premultiplied 8-bit red, green, blue and alpha components packed as
//
//	R | G<<8 | B<<16 | A<<24
//
// so that the in-memory byte order of a texel on a little-endian host is
// R, G, B, A. Codecs never rely on that: they go through Bytes and SetBytes,
// which always use R, G, B, A order.
//
// A Canvas implements image.Image, so it can be handed directly to the
// standard image encoders.
package canvas

import (
	"fmt"
	"image"
	"image/color"
)

// Canvas is a packed RGBA texel buffer.
type Canvas struct {
	// Pix holds Width*Height texels in row-major order.
	Pix    []uint32
	Width  int
	Height int
}

// New allocates a zero-initialised (transparent black) canvas.
func New(width, height int) *Canvas {
	if width < 0 || height < 0 {
		panic(fmt.Sprintf("canvas: negative size %dx%d", width, height))
	}
	return &Canvas{
		Pix:    make([]uint32, width*height),
		Width:  width,
		Height: height,
	}
}

// NewWithData adopts pix as the texel buffer without copying it.
// It panics if pix holds fewer than width*height texels.
func NewWithData(width, height int, pix []uint32) *Canvas {
	if width < 0 || height < 0 {
		panic(fmt.Sprintf("canvas: negative size %dx%d", width, height))
	}
	if len(pix) < width*height {
		panic(fmt.Sprintf("canvas: %d texels for %dx%d", len(pix), width, height))
	}
	return &Canvas{Pix: pix[:width*height], Width: width, Height: height}
}

// Free releases the texel buffer. A freed canvas has zero size.
// Calling Free on a nil canvas is a no-op.
func (c *Canvas) Free() {
	if c == nil {
		return
	}
	c.Pix = nil
	c.Width = 0
	c.Height = 0
}

// Pack packs four 8-bit components into a texel.
func Pack(r, g, b, a uint8) uint32 {
	return uint32(r) | uint32(g)<<8 | uint32(b)<<16 | uint32(a)<<24
}

// Unpack splits a texel into its components.
func Unpack(p uint32) (r, g, b, a uint8) {
	return uint8(p), uint8(p >> 8), uint8(p >> 16), uint8(p >> 24)
}

// Get returns the texel at (x, y).
func (c *Canvas) Get(x, y int) uint32 {
	return c.Pix[y*c.Width+x]
}

// Set stores the texel at (x, y).
func (c *Canvas) Set(x, y int, p uint32) {
	c.Pix[y*c.Width+x] = p
}

// Len returns the number of texels.
func (c *Canvas) Len() int {
	return c.Width * c.Height
}

// RawSize returns the size in bytes of the unencoded texels.
func (c *Canvas) RawSize() int {
	return 4 * c.Width * c.Height
}

// Bytes returns the texels as R, G, B, A bytes.
func (c *Canvas) Bytes() []byte {
	out := make([]byte, 4*len(c.Pix))
	for i, p := range c.Pix {
		out[4*i] = byte(p)
		out[4*i+1] = byte(p >> 8)
		out[4*i+2] = byte(p >> 16)
		out[4*i+3] = byte(p >> 24)
	}
	return out
}

// SetBytes fills the canvas from R, G, B, A bytes.
// It returns an error if src is not exactly 4*Width*Height bytes.
func (c *Canvas) SetBytes(src []byte) error {
	if len(src) != 4*len(c.Pix) {
		return fmt.Errorf("canvas: %d bytes for %dx%d", len(src), c.Width, c.Height)
	}
	for i := range c.Pix {
		s := src[4*i : 4*i+4 : 4*i+4]
		c.Pix[i] = uint32(s[0]) | uint32(s[1])<<8 | uint32(s[2])<<16 | uint32(s[3])<<24
	}
	return nil
}

// Clone returns a deep copy.
func (c *Canvas) Clone() *Canvas {
	pix := make([]uint32, len(c.Pix))
	copy(pix, c.Pix)
	return &Canvas{Pix: pix, Width: c.Width, Height: c.Height}
}

// Equal reports whether two canvases have the same size and texels.
func (c *Canvas) Equal(o *Canvas) bool {
	if c == nil || o == nil {
		return c == o
	}
	if c.Width != o.Width || c.Height != o.Height || len(c.Pix) != len(o.Pix) {
		return false
	}
	for i := range c.Pix {
		if c.Pix[i] != o.Pix[i] {
			return false
		}
	}
	return true
}

// ColorModel implements image.Image.
func (c *Canvas) ColorModel() color.Model {
	return color.NRGBAModel
}

// Bounds implements image.Image.
func (c *Canvas) Bounds() image.Rectangle {
	return image.Rect(0, 0, c.Width, c.Height)
}

// At implements image.Image.
func (c *Canvas) At(x, y int) color.Color {
	if x < 0 || y < 0 || x >= c.Width || y >= c.Height {
		return color.NRGBA{}
	}
	return c.NRGBAAt(x, y)
}

// NRGBAAt returns the texel at (x, y) as a color.NRGBA.
func (c *Canvas) NRGBAAt(x, y int) color.NRGBA {
	r, g, b, a := Unpack(c.Get(x, y))
	return color.NRGBA{R: r, G: g, B: b, A: a}
}

// ToNRGBA copies the canvas into a new *image.NRGBA.
func (c *Canvas) ToNRGBA() *image.NRGBA {
	img := image.NewNRGBA(c.Bounds())
	for i, p := range c.Pix {
		img.Pix[4*i] = byte(p)
		img.Pix[4*i+1] = byte(p >> 8)
		img.Pix[4*i+2] = byte(p >> 16)
		img.Pix[4*i+3] = byte(p >> 24)
	}
	return img
}

// FromImage converts any image into a canvas. The result always starts at
// the origin regardless of the image bounds.
func FromImage(img image.Image) *Canvas {
	b := img.Bounds()
	c := New(b.Dx(), b.Dy())

	switch src := img.(type) {
	case *image.NRGBA:
		for y := 0; y < c.Height; y++ {
			row := src.Pix[src.PixOffset(b.Min.X, b.Min.Y+y):]
			for x := 0; x < c.Width; x++ {
				s := row[4*x : 4*x+4 : 4*x+4]
				c.Pix[y*c.Width+x] = Pack(s[0], s[1], s[2], s[3])
			}
		}
	case *Canvas:
		copy(c.Pix, src.Pix)
	default:
		for y := 0; y < c.Height; y++ {
			for x := 0; x < c.Width; x++ {
				n := color.NRGBAModel.Convert(img.At(b.Min.X+x, b.Min.Y+y)).(color.NRGBA)
				c.Pix[y*c.Width+x] = Pack(n.R, n.G, n.B, n.A)
			}
		}
	}
	return c
}
