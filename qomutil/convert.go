package qomutil

import (
	"fmt"
	"strings"
	"time"

	"github.com/mrjoshuak/go-qom/qom"
)

// DefaultFrameInterval is the time between frames built from still
// images: 30 frames per second.
const DefaultFrameInterval = time.Second / 30

// ImagesToMovie appends one frame per image file to out, spaced interval
// apart starting at 0.
func ImagesToMovie(out *qom.Movie, paths []string, interval time.Duration) error {
	for i, p := range paths {
		c, err := LoadImage(p)
		if err != nil {
			return err
		}
		err = out.PutFrame(c, time.Duration(i)*interval)
		c.Free()
		if err != nil {
			return fmt.Errorf("qomutil: %s: %w", p, err)
		}
	}
	return nil
}

// MovieToImages writes every frame of in as a PNG file. The file name is
// pattern formatted with the frame number, e.g. "frame%04d.png"; a
// pattern without a verb gets the number appended before the extension.
// It returns the names written.
func MovieToImages(in *qom.Movie, pattern string) ([]string, error) {
	var names []string
	for i := 0; i < in.FrameCount(); i++ {
		c, _, err := in.GetFrame(i)
		if err != nil {
			return names, err
		}
		name := FrameName(pattern, i)
		err = SaveImage(c, name)
		c.Free()
		if err != nil {
			return names, err
		}
		names = append(names, name)
	}
	return names, nil
}

// FrameName returns the file name of frame n for pattern.
func FrameName(pattern string, n int) string {
	if strings.Contains(pattern, "%") {
		return fmt.Sprintf(pattern, n)
	}
	ext := ".png"
	base := pattern
	if i := strings.LastIndexByte(pattern, '.'); i > strings.LastIndexByte(pattern, '/') {
		base, ext = pattern[:i], pattern[i:]
	}
	return fmt.Sprintf("%s%04d%s", base, n, ext)
}
