package qomutil

import (
	"bytes"
	"context"
	"image"
	"image/color"
	"image/jpeg"
	"math/rand"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/mrjoshuak/go-qom/canvas"
	"github.com/mrjoshuak/go-qom/codec"
	"github.com/mrjoshuak/go-qom/qom"
)

func testFrame(seed int) *canvas.Canvas {
	c := canvas.New(4, 3)
	for i := range c.Pix {
		v := byte(seed*16 + i)
		c.Pix[i] = canvas.Pack(v, v+1, v+2, 255)
	}
	return c
}

// writeMovie writes a movie with one frame per time. Frame i is
// testFrame(i + seed).
func writeMovie(t *testing.T, name string, seed int, times ...time.Duration) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	m, err := qom.Create(path)
	if err != nil {
		t.Fatal(err)
	}
	for i, ts := range times {
		if err := m.PutFrame(testFrame(seed+i), ts); err != nil {
			t.Fatal(err)
		}
	}
	if err := m.Close(); err != nil {
		t.Fatal(err)
	}
	return path
}

func readTimes(t *testing.T, path string) []time.Duration {
	t.Helper()
	m, err := qom.Open(path)
	if err != nil {
		t.Fatal(err)
	}
	defer m.Close()
	var times []time.Duration
	for i := 0; i < m.FrameCount(); i++ {
		fi, err := m.Frame(i)
		if err != nil {
			t.Fatal(err)
		}
		times = append(times, fi.Time)
	}
	return times
}

func equalTimes(a, b []time.Duration) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

func TestConcatScenario(t *testing.T) {
	a := writeMovie(t, "a.qom", 0, 0, 100*time.Microsecond)
	b := writeMovie(t, "b.qom", 2, 0, 50*time.Microsecond)
	out := filepath.Join(t.TempDir(), "ab.qom")

	if err := ConcatFiles(out, []string{a, b}); err != nil {
		t.Fatal(err)
	}

	want := []time.Duration{0, 100 * time.Microsecond, 100 * time.Microsecond, 150 * time.Microsecond}
	if got := readTimes(t, out); !equalTimes(got, want) {
		t.Errorf("times = %v, want %v", got, want)
	}

	m, err := qom.Open(out)
	if err != nil {
		t.Fatal(err)
	}
	defer m.Close()
	for i := 0; i < 4; i++ {
		c, _, err := m.GetFrame(i)
		if err != nil {
			t.Fatal(err)
		}
		if !c.Equal(testFrame(i)) {
			t.Errorf("frame %d pixels differ", i)
		}
	}
}

func TestConcatOntoLaterStart(t *testing.T) {
	b := writeMovie(t, "b.qom", 2, 0, 50*time.Microsecond)
	path := filepath.Join(t.TempDir(), "out.qom")

	out, err := qom.Create(path)
	if err != nil {
		t.Fatal(err)
	}
	base := 1000 * time.Second
	for i, ts := range []time.Duration{base, base + 100*time.Microsecond} {
		if err := out.PutFrame(testFrame(i), ts); err != nil {
			t.Fatal(err)
		}
	}
	if out.FirstTime() != base {
		t.Errorf("FirstTime() = %v, want %v", out.FirstTime(), base)
	}

	in, err := qom.Open(b)
	if err != nil {
		t.Fatal(err)
	}
	defer in.Close()
	if err := Concat(out, in); err != nil {
		t.Fatal(err)
	}
	if err := out.Close(); err != nil {
		t.Fatal(err)
	}

	want := []time.Duration{0, 100 * time.Microsecond, 100 * time.Microsecond, 150 * time.Microsecond}
	if got := readTimes(t, path); !equalTimes(got, want) {
		t.Errorf("times = %v, want %v", got, want)
	}
}

func TestConcatNoInputs(t *testing.T) {
	if err := ConcatFiles(filepath.Join(t.TempDir(), "x.qom"), nil); err == nil {
		t.Error("expected error")
	}
}

func TestTrimScenario(t *testing.T) {
	ms := time.Millisecond
	in := writeMovie(t, "five.qom", 0, 0, 10*ms, 20*ms, 35*ms, 40*ms)
	out := filepath.Join(t.TempDir(), "trim.qom")

	if err := TrimFile(out, in, 1, 2); err != nil {
		t.Fatal(err)
	}
	want := []time.Duration{0, 10 * ms}
	if got := readTimes(t, out); !equalTimes(got, want) {
		t.Errorf("times = %v, want %v", got, want)
	}

	m, err := qom.Open(out)
	if err != nil {
		t.Fatal(err)
	}
	defer m.Close()
	c, _, err := m.GetFrame(0)
	if err != nil {
		t.Fatal(err)
	}
	if !c.Equal(testFrame(1)) {
		t.Error("first trimmed frame is not source frame 1")
	}
}

func TestTrimClampsAndSwaps(t *testing.T) {
	ms := time.Millisecond
	in := writeMovie(t, "five.qom", 0, 0, 10*ms, 20*ms, 35*ms, 40*ms)

	tests := []struct {
		f0, f1 int
		want   []time.Duration
	}{
		{3, 1, []time.Duration{0, 10 * ms, 25 * ms}},
		{-5, 0, []time.Duration{0}},
		{3, 99, []time.Duration{0, 5 * ms}},
	}
	for _, tt := range tests {
		out := filepath.Join(t.TempDir(), "trim.qom")
		if err := TrimFile(out, in, tt.f0, tt.f1); err != nil {
			t.Fatal(err)
		}
		if got := readTimes(t, out); !equalTimes(got, tt.want) {
			t.Errorf("Trim(%d, %d) times = %v, want %v", tt.f0, tt.f1, got, tt.want)
		}
	}
}

func TestCopyPreservesEncoding(t *testing.T) {
	path := filepath.Join(t.TempDir(), "mixed.qom")
	m, err := qom.Create(path)
	if err != nil {
		t.Fatal(err)
	}
	encs := []codec.Encoding{codec.EncodingPNG, codec.EncodingLiteral, codec.EncodingQOI}
	for i, e := range encs {
		m.SetOutputEncoding(e)
		if err := m.PutFrame(testFrame(i), time.Duration(i)*time.Second); err != nil {
			t.Fatal(err)
		}
	}
	if err := m.Close(); err != nil {
		t.Fatal(err)
	}

	out := filepath.Join(t.TempDir(), "copy.qom")
	if err := TrimFile(out, path, 0, 2, qom.WithEncoding(codec.EncodingLiteral)); err != nil {
		t.Fatal(err)
	}
	info, err := GetFileInfo(out)
	if err != nil {
		t.Fatal(err)
	}
	want := []codec.Encoding{codec.EncodingLiteral, codec.EncodingQOI, codec.EncodingPNG}
	if len(info.Encodings) != 3 {
		t.Fatalf("Encodings = %v, want %v", info.Encodings, want)
	}
	for i := range want {
		if info.Encodings[i] != want[i] {
			t.Errorf("Encodings = %v, want %v", info.Encodings, want)
		}
	}
}

func TestRandomSegment(t *testing.T) {
	ms := time.Millisecond
	in := writeMovie(t, "five.qom", 0, 0, 10*ms, 20*ms, 30*ms, 40*ms)

	for seed := int64(0); seed < 5; seed++ {
		out := filepath.Join(t.TempDir(), "seg.qom")
		if err := RandomSegmentFile(out, in, 2, rand.New(rand.NewSource(seed))); err != nil {
			t.Fatal(err)
		}
		want := []time.Duration{0, 10 * ms}
		if got := readTimes(t, out); !equalTimes(got, want) {
			t.Errorf("seed %d: times = %v, want %v", seed, got, want)
		}
	}

	out := filepath.Join(t.TempDir(), "all.qom")
	if err := RandomSegmentFile(out, in, 50, rand.New(rand.NewSource(1))); err != nil {
		t.Fatal(err)
	}
	if got := readTimes(t, out); len(got) != 5 {
		t.Errorf("segment longer than movie copied %d frames, want 5", len(got))
	}
}

func TestReadBenchmark(t *testing.T) {
	in := writeMovie(t, "bench.qom", 0, 0, 1, 2, 3, 4, 5, 6)

	for _, workers := range []int{0, 1, 3} {
		res, err := ReadBenchmark(context.Background(), in, workers)
		if err != nil {
			t.Fatalf("workers=%d: %v", workers, err)
		}
		if res.Frames != 7 || res.Pixels != 7*12 || res.RawBytes() != 7*48 {
			t.Errorf("workers=%d: result = %+v", workers, res)
		}
		if res.Workers != max(workers, 1) {
			t.Errorf("Workers = %d", res.Workers)
		}
	}
}

func TestReadBenchmarkCanceled(t *testing.T) {
	in := writeMovie(t, "bench.qom", 0, 0, 1)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := ReadBenchmark(ctx, in, 2); err == nil {
		t.Error("expected error from canceled context")
	}
}

func TestBenchmarkArithmetic(t *testing.T) {
	r := &BenchmarkResult{
		Path:         "x.qom",
		Frames:       2,
		Pixels:       1 << 20,
		EncodedBytes: 1 << 20,
		Elapsed:      500 * time.Millisecond,
	}
	if r.CompressionRatio() != 0.25 {
		t.Errorf("CompressionRatio = %f, want 0.25", r.CompressionRatio())
	}
	if r.MpixPerSec() != 2 {
		t.Errorf("MpixPerSec = %f, want 2", r.MpixPerSec())
	}
	if r.MicrosPerMpix() != 500000 {
		t.Errorf("MicrosPerMpix = %f, want 500000", r.MicrosPerMpix())
	}

	var buf bytes.Buffer
	if err := r.WriteReport(&buf); err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(buf.String(), "0.250000 compression ratio") {
		t.Errorf("report:\n%s", buf.String())
	}

	empty := &BenchmarkResult{}
	if empty.CompressionRatio() != 0 || empty.MpixPerSec() != 0 || empty.MicrosPerMpix() != 0 {
		t.Error("empty result should report zeros")
	}
}

func TestGetFileInfo(t *testing.T) {
	in := writeMovie(t, "info.qom", 0, 0, time.Second)
	info, err := GetFileInfo(in)
	if err != nil {
		t.Fatal(err)
	}
	st, _ := os.Stat(in)
	if info.Frames != 2 || info.Duration != time.Second || info.Width != 4 || info.Height != 3 {
		t.Errorf("info = %+v", info)
	}
	if info.FileSize != st.Size() {
		t.Errorf("FileSize = %d, want %d", info.FileSize, st.Size())
	}
	if len(info.Encodings) != 1 || info.Encodings[0] != codec.EncodingQOI {
		t.Errorf("Encodings = %v", info.Encodings)
	}
	if info.Playback != qom.DefaultPlayback() {
		t.Errorf("Playback = %+v", info.Playback)
	}

	if _, err := GetFileInfo(filepath.Join(t.TempDir(), "missing.qom")); err == nil {
		t.Error("expected error for missing file")
	}
}

func TestImagesRoundTrip(t *testing.T) {
	dir := t.TempDir()
	var paths []string
	for i := 0; i < 3; i++ {
		p := filepath.Join(dir, FrameName("in%02d.png", i))
		if err := SaveImage(testFrame(i), p); err != nil {
			t.Fatal(err)
		}
		paths = append(paths, p)
	}

	moviePath := filepath.Join(dir, "imgs.qom")
	m, err := qom.Create(moviePath)
	if err != nil {
		t.Fatal(err)
	}
	if err := ImagesToMovie(m, paths, DefaultFrameInterval); err != nil {
		t.Fatal(err)
	}
	if err := m.Close(); err != nil {
		t.Fatal(err)
	}

	in, err := qom.Open(moviePath)
	if err != nil {
		t.Fatal(err)
	}
	defer in.Close()
	if in.Duration() != 2*DefaultFrameInterval.Truncate(time.Microsecond) {
		t.Errorf("Duration = %v", in.Duration())
	}

	names, err := MovieToImages(in, filepath.Join(dir, "out%03d.png"))
	if err != nil {
		t.Fatal(err)
	}
	if len(names) != 3 || filepath.Base(names[2]) != "out002.png" {
		t.Fatalf("names = %v", names)
	}
	for i, name := range names {
		c, err := LoadImage(name)
		if err != nil {
			t.Fatal(err)
		}
		if !c.Equal(testFrame(i)) {
			t.Errorf("%s pixels differ", name)
		}
	}
}

func TestLoadImageJPEG(t *testing.T) {
	img := image.NewRGBA(image.Rect(0, 0, 8, 8))
	for i := 0; i < 64; i++ {
		img.Set(i%8, i/8, color.RGBA{R: 200, G: 100, B: 50, A: 255})
	}
	path := filepath.Join(t.TempDir(), "x.jpg")
	f, err := os.Create(path)
	if err != nil {
		t.Fatal(err)
	}
	if err := jpeg.Encode(f, img, nil); err != nil {
		t.Fatal(err)
	}
	f.Close()

	c, err := LoadImage(path)
	if err != nil {
		t.Fatal(err)
	}
	if c.Width != 8 || c.Height != 8 {
		t.Errorf("size = %dx%d", c.Width, c.Height)
	}

	bad := filepath.Join(t.TempDir(), "bad.png")
	os.WriteFile(bad, []byte("nope"), 0644)
	if _, err := LoadImage(bad); err == nil {
		t.Error("expected error for undecodable image")
	}
}

func TestFrameName(t *testing.T) {
	tests := []struct {
		pattern string
		n       int
		want    string
	}{
		{"f%03d.png", 7, "f007.png"},
		{"frame.png", 12, "frame0012.png"},
		{"out", 3, "out0003.png"},
		{"dir.v2/shot.jpg", 1, "dir.v2/shot0001.jpg"},
	}
	for _, tt := range tests {
		if got := FrameName(tt.pattern, tt.n); got != tt.want {
			t.Errorf("FrameName(%q, %d) = %q, want %q", tt.pattern, tt.n, got, tt.want)
		}
	}
}
