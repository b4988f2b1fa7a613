package qomutil

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"sync/atomic"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/mrjoshuak/go-qom/qom"
)

// BenchmarkResult reports a full decode pass over a movie.
type BenchmarkResult struct {
	Path         string
	Workers      int
	Frames       int
	Pixels       int64
	EncodedBytes int64
	Elapsed      time.Duration
}

// RawBytes returns the size of all frames as uncompressed RGBA.
func (r *BenchmarkResult) RawBytes() int64 {
	return 4 * r.Pixels
}

// Megapixels returns the pixel count in units of 2^20 pixels.
func (r *BenchmarkResult) Megapixels() float64 {
	return float64(r.Pixels) / (1024 * 1024)
}

// CompressionRatio returns encoded bytes over raw bytes.
func (r *BenchmarkResult) CompressionRatio() float64 {
	if r.Pixels == 0 {
		return 0
	}
	return float64(r.EncodedBytes) / float64(r.RawBytes())
}

// MpixPerSec returns the decode throughput.
func (r *BenchmarkResult) MpixPerSec() float64 {
	if r.Elapsed <= 0 {
		return 0
	}
	return r.Megapixels() / r.Elapsed.Seconds()
}

// MicrosPerMpix returns the decode time per megapixel.
func (r *BenchmarkResult) MicrosPerMpix() float64 {
	if r.Pixels == 0 {
		return 0
	}
	return float64(r.Elapsed.Microseconds()) / r.Megapixels()
}

// WriteReport writes the result in the format printed by qomutil -benchmark.
func (r *BenchmarkResult) WriteReport(w io.Writer) error {
	_, err := fmt.Fprintf(w, "Benchmark reading %s:\n"+
		"    %d frames  %f Mega pixels\n"+
		"    %d compressed bytes  %d expanded bytes\n"+
		"    %f compression ratio\n"+
		"    %d usec total time  %f usec per Mpix  %f Mpix per sec\n",
		r.Path,
		r.Frames, r.Megapixels(),
		r.EncodedBytes, r.RawBytes(),
		r.CompressionRatio(),
		r.Elapsed.Microseconds(), r.MicrosPerMpix(), r.MpixPerSec())
	return err
}

// ReadBenchmark decodes every frame of the movie at path and measures the
// time taken. With more than one worker, each worker opens its own read
// handle and decodes every workers-th frame.
func ReadBenchmark(ctx context.Context, path string, workers int, opts ...qom.Option) (*BenchmarkResult, error) {
	workers = max(workers, 1)

	probe, err := qom.Open(path, opts...)
	if err != nil {
		return nil, err
	}
	frames := probe.FrameCount()
	res := &BenchmarkResult{Path: path, Workers: workers, Frames: frames}
	for i := 0; i < frames; i++ {
		fi, err := probe.Frame(i)
		if err != nil {
			probe.Close()
			return nil, err
		}
		res.Pixels += fi.Pixels()
		res.EncodedBytes += fi.Size
	}
	if err := probe.Close(); err != nil {
		return nil, err
	}

	var decoded atomic.Int64
	start := time.Now()
	g, ctx := errgroup.WithContext(ctx)
	for w := 0; w < workers; w++ {
		w := w
		g.Go(func() error {
			m, err := qom.Open(path, opts...)
			if err != nil {
				return err
			}
			defer m.Close()
			for i := w; i < frames; i += workers {
				if err := ctx.Err(); err != nil {
					return err
				}
				c, _, err := m.GetFrame(i)
				if err != nil {
					return fmt.Errorf("qomutil: frame %d: %w", i, err)
				}
				c.Free()
				decoded.Add(1)
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	res.Elapsed = time.Since(start)

	slog.Debug("qomutil: benchmark done", "path", path, "workers", workers,
		"frames", decoded.Load(), "elapsed", res.Elapsed)
	return res, nil
}
