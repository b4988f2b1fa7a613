package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/mrjoshuak/go-qom/codec"
	"github.com/mrjoshuak/go-qom/qom"
)

func TestDefaultIsValid(t *testing.T) {
	cfg := Default()
	if err := Validate(cfg); err != nil {
		t.Fatalf("Default() invalid: %v", err)
	}
	enc, err := cfg.OutputEncoding()
	if err != nil || enc != codec.DefaultEncoding {
		t.Errorf("OutputEncoding = %v, %v", enc, err)
	}
	p, err := cfg.PlaybackHints()
	if err != nil || p != qom.DefaultPlayback() {
		t.Errorf("PlaybackHints = %+v, %v; want default", p, err)
	}
	if cfg.FrameInterval() != 33333*time.Microsecond {
		t.Errorf("FrameInterval = %v", cfg.FrameInterval())
	}
}

func TestLoad(t *testing.T) {
	yml := `
encoding: png
frame_interval_us: 40000
playback:
  start_time_us: 1500000
  direction: backward
  left_bounce: cycle
  right_bounce: stop
benchmark:
  workers: 4
`
	path := filepath.Join(t.TempDir(), "qom.yaml")
	if err := os.WriteFile(path, []byte(yml), 0644); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatal(err)
	}
	if enc, _ := cfg.OutputEncoding(); enc != codec.EncodingPNG {
		t.Errorf("encoding = %v, want PNG", enc)
	}
	if cfg.FrameInterval() != 40*time.Millisecond {
		t.Errorf("FrameInterval = %v", cfg.FrameInterval())
	}
	p, err := cfg.PlaybackHints()
	if err != nil {
		t.Fatal(err)
	}
	want := qom.Playback{
		StartTime:   1500 * time.Millisecond,
		Direction:   qom.DirectionBackward,
		LeftBounce:  qom.BounceCycle,
		RightBounce: qom.BounceStop,
	}
	if p != want {
		t.Errorf("PlaybackHints = %+v, want %+v", p, want)
	}
	if cfg.Benchmark.Workers != 4 {
		t.Errorf("workers = %d", cfg.Benchmark.Workers)
	}
	// Unset fields keep their defaults.
	if cfg.Output.Pattern != "frame%04d.png" {
		t.Errorf("pattern = %q", cfg.Output.Pattern)
	}
}

func TestLoadErrors(t *testing.T) {
	tests := map[string]string{
		"bad encoding":  "encoding: gif\n",
		"bad interval":  "frame_interval_us: 0\n",
		"bad direction": "playback:\n  direction: sideways\n",
		"bad bounce":    "playback:\n  right_bounce: explode\n",
		"bad workers":   "benchmark:\n  workers: 0\n",
		"empty pattern": "output:\n  pattern: \"\"\n",
		"not yaml":      "encoding: [unclosed\n",
	}
	for name, yml := range tests {
		t.Run(name, func(t *testing.T) {
			if _, err := Parse([]byte(yml)); err == nil {
				t.Error("expected error")
			}
		})
	}

	_, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	if err == nil || !strings.Contains(err.Error(), "failed to read config file") {
		t.Errorf("Load(missing) error = %v", err)
	}
}
