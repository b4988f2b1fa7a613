package qom

import (
	"bufio"
	"fmt"
	"io"
	"time"
)

// Summary totals the frame index of a movie.
type Summary struct {
	Frames       int
	Pixels       int64
	EncodedBytes int64 // payload bytes including tags
	EncodeTime   time.Duration
}

// RawBytes returns the size of all frames as uncompressed RGBA.
func (s Summary) RawBytes() int64 {
	return 4 * s.Pixels
}

// Megapixels returns the total pixel count in units of 2^20 pixels.
func (s Summary) Megapixels() float64 {
	return float64(s.Pixels) / (1024 * 1024)
}

// CompressionRatio returns encoded bytes over raw bytes, or 0 for a movie
// without pixels.
func (s Summary) CompressionRatio() float64 {
	if s.Pixels == 0 {
		return 0
	}
	return float64(s.EncodedBytes) / float64(s.RawBytes())
}

// Summary totals the frames written or read so far.
func (m *Movie) Summary() Summary {
	s := Summary{Frames: len(m.index)}
	for _, fi := range m.index {
		s.Pixels += fi.Pixels()
		s.EncodedBytes += fi.Size
		s.EncodeTime += fi.EncodeTime
	}
	return s
}

// Print writes a listing of the movie: header fields, one line per frame
// and a summary.
func (m *Movie) Print(w io.Writer, label string) error {
	if m.state == stateClosed {
		return m.fail("print", ErrClosed, nil)
	}

	bw := bufio.NewWriter(w)
	h := m.Header()
	fmt.Fprintf(bw, "qom %s:\n", label)
	fmt.Fprintf(bw, "    Size: %d x %d (of first frame)\n", h.Width, h.Height)
	fmt.Fprintf(bw, "    N frames: %d\n", h.FrameCount)
	fmt.Fprintf(bw, "    Duration: %f sec\n", h.Duration.Seconds())
	fmt.Fprintf(bw, "    Playback: start %f sec  %s  bounce %s/%s\n",
		h.Playback.StartTime.Seconds(), h.Playback.Direction, h.Playback.LeftBounce, h.Playback.RightBounce)
	for n, fi := range m.index {
		fmt.Fprintf(bw, "    %s frame: %d  size: %dx%d  time: %f  offset %d  size %d\n",
			fi.Encoding, n, fi.Width, fi.Height, fi.Time.Seconds(), fi.Offset, fi.Size)
	}

	s := m.Summary()
	fmt.Fprintf(bw, "Summary\n")
	fmt.Fprintf(bw, "    %d frames  %f Mega pixels\n", s.Frames, s.Megapixels())
	fmt.Fprintf(bw, "    %f total encode time\n", s.EncodeTime.Seconds())
	fmt.Fprintf(bw, "    %d compressed bytes  %d expanded bytes\n", s.EncodedBytes, s.RawBytes())
	fmt.Fprintf(bw, "    %f compression ratio\n", s.CompressionRatio())
	return bw.Flush()
}
