// Package qomutil provides utility functions for working with QOM movies.
//
// It builds only on the public qom API: trimming, concatenation, random
// segment extraction, a decode benchmark, file summaries and loading or
// saving single frames as image files.
//
// Example usage:
//
//	info, _ := qomutil.GetFileInfo("clip.qom")
//	fmt.Printf("%d frames, %v, %dx%d\n", info.Frames, info.Duration, info.Width, info.Height)
//
//	err := qomutil.ConcatFiles("all.qom", []string{"a.qom", "b.qom"})
package qomutil

import (
	"fmt"
	"image"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"
	"os"
	"slices"
	"time"

	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/tiff"
	_ "golang.org/x/image/webp"

	"github.com/mrjoshuak/go-qom/canvas"
	"github.com/mrjoshuak/go-qom/codec"
	"github.com/mrjoshuak/go-qom/qom"
)

// FileInfo provides a summary of a QOM movie.
type FileInfo struct {
	Path      string
	Frames    int
	Duration  time.Duration
	Width     int // of the first frame
	Height    int
	Playback  qom.Playback
	Encodings []codec.Encoding // distinct, in tag order
	Summary   qom.Summary
	FileSize  int64
}

// GetFileInfo returns summary information about a QOM movie.
func GetFileInfo(path string) (*FileInfo, error) {
	stat, err := os.Stat(path)
	if err != nil {
		return nil, err
	}

	m, err := qom.Open(path)
	if err != nil {
		return nil, err
	}
	defer m.Close()

	h := m.Header()
	info := &FileInfo{
		Path:     path,
		Frames:   h.FrameCount,
		Duration: h.Duration,
		Width:    h.Width,
		Height:   h.Height,
		Playback: h.Playback,
		Summary:  m.Summary(),
		FileSize: stat.Size(),
	}
	for i := 0; i < m.FrameCount(); i++ {
		fi, err := m.Frame(i)
		if err != nil {
			return nil, err
		}
		if !slices.Contains(info.Encodings, fi.Encoding) {
			info.Encodings = append(info.Encodings, fi.Encoding)
		}
	}
	slices.Sort(info.Encodings)
	return info, nil
}

// LoadImage reads a PNG, JPEG, GIF, WebP, BMP or TIFF file into a canvas.
func LoadImage(path string) (*canvas.Canvas, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	img, _, err := image.Decode(f)
	if err != nil {
		return nil, fmt.Errorf("qomutil: decoding %s: %w", path, err)
	}
	return canvas.FromImage(img), nil
}

// SaveImage writes the canvas to path as an RGBA PNG.
func SaveImage(c *canvas.Canvas, path string) error {
	data, err := codec.PNGEncode(c)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0644)
}
