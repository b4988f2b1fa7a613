package codec

import (
	"bytes"
	"errors"
	"fmt"
	"hash/crc32"
	"image/png"
	"io"
	"sync"

	"github.com/klauspost/compress/zlib"

	"github.com/mrjoshuak/go-qom/canvas"
	"github.com/mrjoshuak/go-qom/internal/predictor"
	"github.com/mrjoshuak/go-qom/internal/xdr"
)

// PNG errors
var (
	ErrPNGCorrupted    = errors.New("codec: corrupted PNG data")
	ErrPNGInvalidMagic = errors.New("codec: invalid PNG signature")
)

const (
	pngSignature = "\x89PNG\r\n\x1a\n"

	pngColorRGBA = 6
	pngBPP       = 4

	pngMaxInflateRatio = 1032
)

// Pool for zlib writers to reduce allocations.
// Each pooled item contains both the writer and its destination buffer.
type zlibWriterPoolItem struct {
	writer *zlib.Writer
	buf    *bytes.Buffer
}

var zlibWriterPool = sync.Pool{
	New: func() any {
		buf := new(bytes.Buffer)
		w, _ := zlib.NewWriterLevel(buf, zlib.DefaultCompression)
		return &zlibWriterPoolItem{writer: w, buf: buf}
	},
}

// zlibReaderPoolItem wraps a zlib reader for pooling
type zlibReaderPoolItem struct {
	reader io.ReadCloser
	srcBuf *bytes.Reader
}

var zlibReaderPool = sync.Pool{
	New: func() any {
		return &zlibReaderPoolItem{
			srcBuf: bytes.NewReader(nil),
		}
	},
}

// PNGEncode encodes the canvas as an 8-bit RGBA, non-interlaced PNG.
// Each scanline gets the filter with the smallest sum of absolute
// differences and the filtered image is deflated in a single IDAT chunk.
func PNGEncode(c *canvas.Canvas) ([]byte, error) {
	if err := checkSize(int64(c.Width), int64(c.Height)); err != nil {
		return nil, fmt.Errorf("codec: png: %v", err)
	}

	item := zlibWriterPool.Get().(*zlibWriterPoolItem)
	defer zlibWriterPool.Put(item)
	item.buf.Reset()
	item.writer.Reset(item.buf)

	stride := pngBPP * c.Width
	cur := make([]byte, stride)
	prev := make([]byte, stride)
	var chooser predictor.Chooser
	var filterByte [1]byte

	for y := 0; y < c.Height; y++ {
		row := c.Pix[y*c.Width : (y+1)*c.Width]
		for x, p := range row {
			cur[4*x] = byte(p)
			cur[4*x+1] = byte(p >> 8)
			cur[4*x+2] = byte(p >> 16)
			cur[4*x+3] = byte(p >> 24)
		}

		var above []byte
		if y > 0 {
			above = prev
		}
		f, filtered := chooser.Choose(cur, above, pngBPP)
		filterByte[0] = byte(f)
		if _, err := item.writer.Write(filterByte[:]); err != nil {
			return nil, err
		}
		if _, err := item.writer.Write(filtered); err != nil {
			return nil, err
		}
		cur, prev = prev, cur
	}
	if err := item.writer.Close(); err != nil {
		return nil, err
	}

	idat := item.buf.Bytes()
	w := xdr.NewBufferWriter(len(pngSignature) + 3*12 + 13 + len(idat))
	w.WriteBytes([]byte(pngSignature))

	ihdr := xdr.NewBufferWriter(13)
	ihdr.WriteUint32(uint32(c.Width))
	ihdr.WriteUint32(uint32(c.Height))
	ihdr.WriteByte(8) // bit depth
	ihdr.WriteByte(pngColorRGBA)
	ihdr.WriteByte(0) // compression
	ihdr.WriteByte(0) // filter method
	ihdr.WriteByte(0) // no interlace

	writePNGChunk(w, "IHDR", ihdr.Bytes())
	writePNGChunk(w, "IDAT", idat)
	writePNGChunk(w, "IEND", nil)

	out := make([]byte, w.Len())
	copy(out, w.Bytes())
	return out, nil
}

func writePNGChunk(w *xdr.BufferWriter, typ string, data []byte) {
	w.WriteUint32(uint32(len(data)))
	crc := crc32.NewIEEE()
	crc.Write([]byte(typ))
	crc.Write(data)
	w.WriteBytes([]byte(typ))
	w.WriteBytes(data)
	w.WriteUint32(crc.Sum32())
}

type pngHeader struct {
	width, height uint32
	depth, color  byte
	interlace     byte
}

// PNGDecode decodes a PNG into a canvas. 8-bit RGBA non-interlaced images,
// which is what PNGEncode produces, are decoded directly; any other PNG is
// handed to image/png.
func PNGDecode(data []byte) (*canvas.Canvas, error) {
	if len(data) < len(pngSignature) || string(data[:len(pngSignature)]) != pngSignature {
		return nil, ErrPNGInvalidMagic
	}

	r := xdr.NewReader(data[len(pngSignature):])
	var hdr pngHeader
	var idat []byte
	seenHeader := false

	for {
		length, err := r.ReadUint32()
		if err != nil {
			return nil, fmt.Errorf("%w: missing IEND", ErrPNGCorrupted)
		}
		typ, err := r.ReadBytes(4)
		if err != nil {
			return nil, ErrPNGCorrupted
		}
		body, err := r.ReadBytes(int(length))
		if err != nil || int64(length) > int64(len(data)) {
			return nil, fmt.Errorf("%w: chunk %q overruns data", ErrPNGCorrupted, typ)
		}
		sum, err := r.ReadUint32()
		if err != nil {
			return nil, ErrPNGCorrupted
		}
		crc := crc32.NewIEEE()
		crc.Write(typ)
		crc.Write(body)
		if crc.Sum32() != sum {
			return nil, fmt.Errorf("%w: bad CRC in chunk %q", ErrPNGCorrupted, typ)
		}

		switch string(typ) {
		case "IHDR":
			if len(body) != 13 {
				return nil, ErrPNGCorrupted
			}
			hdr.width = xdr.ByteOrder.Uint32(body[0:4])
			hdr.height = xdr.ByteOrder.Uint32(body[4:8])
			hdr.depth = body[8]
			hdr.color = body[9]
			hdr.interlace = body[12]
			seenHeader = true
			if err := checkSize(int64(hdr.width), int64(hdr.height)); err != nil {
				return nil, fmt.Errorf("%w: %v", ErrPNGCorrupted, err)
			}
			if hdr.depth != 8 || hdr.color != pngColorRGBA || hdr.interlace != 0 {
				return pngDecodeGeneric(data)
			}
		case "IDAT":
			if !seenHeader {
				return nil, fmt.Errorf("%w: IDAT before IHDR", ErrPNGCorrupted)
			}
			idat = append(idat, body...)
		case "IEND":
			if !seenHeader {
				return nil, fmt.Errorf("%w: missing IHDR", ErrPNGCorrupted)
			}
			return pngDecodeRGBA(hdr, idat)
		}
	}
}

func pngDecodeGeneric(data []byte) (*canvas.Canvas, error) {
	img, err := png.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrPNGCorrupted, err)
	}
	return canvas.FromImage(img), nil
}

func pngDecodeRGBA(hdr pngHeader, idat []byte) (*canvas.Canvas, error) {
	if err := checkSize(int64(hdr.width), int64(hdr.height)); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrPNGCorrupted, err)
	}
	width, height := int(hdr.width), int(hdr.height)
	stride := pngBPP * width

	// Deflate cannot expand data by more than about 1032:1.
	rawSize := int64(height) * int64(1+stride)
	if rawSize > pngMaxInflateRatio*int64(len(idat))+1024 {
		return nil, fmt.Errorf("%w: %d bytes of IDAT for %dx%d", ErrPNGCorrupted, len(idat), width, height)
	}
	raw := make([]byte, rawSize)
	if err := inflateTo(raw, idat); err != nil {
		return nil, err
	}

	c := canvas.New(width, height)
	var prev []byte
	for y := 0; y < height; y++ {
		line := raw[y*(1+stride) : (y+1)*(1+stride)]
		cur := line[1:]
		if err := predictor.Decode(predictor.Filter(line[0]), cur, prev, pngBPP); err != nil {
			return nil, fmt.Errorf("%w: row %d: %v", ErrPNGCorrupted, y, err)
		}
		row := c.Pix[y*width : (y+1)*width]
		for x := range row {
			row[x] = canvas.Pack(cur[4*x], cur[4*x+1], cur[4*x+2], cur[4*x+3])
		}
		prev = cur
	}
	return c, nil
}

// inflateTo decompresses zlib data into dst, which must be exactly the
// size of the decompressed data.
func inflateTo(dst, src []byte) error {
	if len(src) == 0 {
		if len(dst) != 0 {
			return ErrPNGCorrupted
		}
		return nil
	}

	item := zlibReaderPool.Get().(*zlibReaderPoolItem)
	defer zlibReaderPool.Put(item)
	item.srcBuf.Reset(src)

	var err error
	if item.reader == nil {
		item.reader, err = zlib.NewReader(item.srcBuf)
	} else if resetter, ok := item.reader.(zlib.Resetter); ok {
		err = resetter.Reset(item.srcBuf, nil)
	} else {
		item.reader.Close()
		item.reader, err = zlib.NewReader(item.srcBuf)
	}
	if err != nil {
		item.reader = nil
		return fmt.Errorf("%w: %v", ErrPNGCorrupted, err)
	}

	n, err := io.ReadFull(item.reader, dst)
	if err != nil && err != io.EOF && err != io.ErrUnexpectedEOF {
		return fmt.Errorf("%w: %v", ErrPNGCorrupted, err)
	}
	if n != len(dst) {
		return fmt.Errorf("%w: inflated %d of %d bytes", ErrPNGCorrupted, n, len(dst))
	}
	return nil
}
