package qomutil

import (
	"errors"
	"fmt"
	"math/rand"
	"time"

	"github.com/mrjoshuak/go-qom/qom"
)

// copyFrames replays frames [first, last] of in into out, shifting every
// timestamp by offset. Each frame keeps its source encoding; out's output
// encoding is restored afterwards.
func copyFrames(out, in *qom.Movie, first, last int, offset time.Duration) error {
	saved := out.OutputEncoding()
	defer out.SetOutputEncoding(saved)

	for i := first; i <= last; i++ {
		fi, err := in.Frame(i)
		if err != nil {
			return err
		}
		if err := out.SetOutputEncoding(fi.Encoding); err != nil {
			return err
		}
		c, t, err := in.GetFrame(i)
		if err != nil {
			return err
		}
		err = out.PutFrame(c, t+offset)
		c.Free()
		if err != nil {
			return err
		}
	}
	return nil
}

// Trim copies the inclusive frame range [frame0, frame1] of in to out.
// Both indices are clamped to the movie and swapped if reversed. The
// first copied frame gets time 0.
func Trim(out, in *qom.Movie, frame0, frame1 int) error {
	n := in.FrameCount()
	if n == 0 {
		return nil
	}
	frame0 = clamp(frame0, 0, n-1)
	frame1 = clamp(frame1, 0, n-1)
	if frame0 > frame1 {
		frame0, frame1 = frame1, frame0
	}

	start, err := in.Frame(frame0)
	if err != nil {
		return err
	}
	return copyFrames(out, in, frame0, frame1, -start.Time)
}

// TrimFile trims the movie at inPath into a new movie at outPath.
func TrimFile(outPath, inPath string, frame0, frame1 int, opts ...qom.Option) error {
	return withMovies(outPath, []string{inPath}, opts, func(out *qom.Movie, ins []*qom.Movie) error {
		return Trim(out, ins[0], frame0, frame1)
	})
}

// Concat appends every frame of each input to out. Each input's times are
// shifted by the sum of the durations of the inputs before it, so movies
// with times 0, 100 and 0, 50 give 0, 100, 100, 150. If out already holds
// frames the first input continues from out's last frame.
func Concat(out *qom.Movie, ins ...*qom.Movie) error {
	var offset time.Duration
	if out.FrameCount() > 0 {
		offset = out.FirstTime() + out.Duration()
	}
	for _, in := range ins {
		if n := in.FrameCount(); n > 0 {
			if err := copyFrames(out, in, 0, n-1, offset); err != nil {
				return err
			}
		}
		offset += in.Duration()
	}
	return nil
}

// ConcatFiles concatenates the movies at inPaths into a new movie at
// outPath.
func ConcatFiles(outPath string, inPaths []string, opts ...qom.Option) error {
	if len(inPaths) == 0 {
		return errors.New("qomutil: no input movies")
	}
	return withMovies(outPath, inPaths, opts, func(out *qom.Movie, ins []*qom.Movie) error {
		return Concat(out, ins...)
	})
}

// RandomSegment copies n consecutive frames of in, starting at a frame
// chosen with rng, to out. If n covers the whole movie everything is
// copied.
func RandomSegment(out, in *qom.Movie, n int, rng *rand.Rand) error {
	total := in.FrameCount()
	if n <= 0 || total == 0 {
		return nil
	}
	if n >= total {
		return Trim(out, in, 0, total-1)
	}
	start := rng.Intn(total - n + 1)
	return Trim(out, in, start, start+n-1)
}

// RandomSegmentFile writes a random n frame segment of the movie at
// inPath to a new movie at outPath.
func RandomSegmentFile(outPath, inPath string, n int, rng *rand.Rand, opts ...qom.Option) error {
	return withMovies(outPath, []string{inPath}, opts, func(out *qom.Movie, ins []*qom.Movie) error {
		return RandomSegment(out, ins[0], n, rng)
	})
}

// withMovies opens the inputs, creates the output and runs fn. The output
// is finalized only if fn succeeds.
func withMovies(outPath string, inPaths []string, opts []qom.Option, fn func(out *qom.Movie, ins []*qom.Movie) error) error {
	ins := make([]*qom.Movie, 0, len(inPaths))
	defer func() {
		for _, in := range ins {
			in.Close()
		}
	}()
	for _, p := range inPaths {
		in, err := qom.Open(p, opts...)
		if err != nil {
			return err
		}
		ins = append(ins, in)
	}

	out, err := qom.Create(outPath, opts...)
	if err != nil {
		return err
	}
	if err := fn(out, ins); err != nil {
		out.Close()
		return fmt.Errorf("qomutil: writing %s: %w", outPath, err)
	}
	return out.Close()
}

func clamp(v, lo, hi int) int {
	return max(lo, min(v, hi))
}
