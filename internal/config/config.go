// Package config loads the YAML configuration of the qom command line
// tools.
package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/mrjoshuak/go-qom/codec"
	"github.com/mrjoshuak/go-qom/qom"
)

// Config is the tool configuration. Zero fields take the defaults from
// Default.
type Config struct {
	Encoding        string          `yaml:"encoding"`          // lit, qoi, png, j2k
	FrameIntervalUS int64           `yaml:"frame_interval_us"` // between frames built from images
	Playback        PlaybackConfig  `yaml:"playback"`
	Benchmark       BenchmarkConfig `yaml:"benchmark"`
	Output          OutputConfig    `yaml:"output"`
}

// PlaybackConfig holds the playback hints written into new movies.
type PlaybackConfig struct {
	StartTimeUS int64  `yaml:"start_time_us"`
	Direction   string `yaml:"direction"`    // still, forward, backward
	LeftBounce  string `yaml:"left_bounce"`  // stop, reverse, cycle
	RightBounce string `yaml:"right_bounce"` // stop, reverse, cycle
}

// BenchmarkConfig contains read benchmark settings.
type BenchmarkConfig struct {
	Workers int `yaml:"workers"`
}

// OutputConfig contains settings for extracted frames.
type OutputConfig struct {
	Pattern string `yaml:"pattern"` // e.g. frame%04d.png
}

// Default returns the built-in configuration.
func Default() *Config {
	return &Config{
		Encoding:        "qoi",
		FrameIntervalUS: 1000000 / 30,
		Playback: PlaybackConfig{
			Direction:   "forward",
			LeftBounce:  "reverse",
			RightBounce: "reverse",
		},
		Benchmark: BenchmarkConfig{Workers: 1},
		Output:    OutputConfig{Pattern: "frame%04d.png"},
	}
}

// Load reads a YAML file over the defaults and validates the result.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}
	return Parse(data)
}

// Parse decodes YAML over the defaults and validates the result.
func Parse(data []byte) (*Config, error) {
	cfg := Default()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}
	if err := Validate(cfg); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

// Validate checks every field.
func Validate(cfg *Config) error {
	if _, err := codec.ParseEncoding(cfg.Encoding); err != nil {
		return fmt.Errorf("encoding: %w", err)
	}
	if cfg.FrameIntervalUS <= 0 {
		return fmt.Errorf("frame_interval_us must be positive, got %d", cfg.FrameIntervalUS)
	}
	if _, err := cfg.PlaybackHints(); err != nil {
		return err
	}
	if cfg.Benchmark.Workers < 1 {
		return fmt.Errorf("benchmark.workers must be at least 1, got %d", cfg.Benchmark.Workers)
	}
	if cfg.Output.Pattern == "" {
		return fmt.Errorf("output.pattern is required")
	}
	return nil
}

// OutputEncoding returns the configured frame encoding.
func (c *Config) OutputEncoding() (codec.Encoding, error) {
	return codec.ParseEncoding(c.Encoding)
}

// FrameInterval returns the time between frames built from images.
func (c *Config) FrameInterval() time.Duration {
	return time.Duration(c.FrameIntervalUS) * time.Microsecond
}

// PlaybackHints converts the playback section.
func (c *Config) PlaybackHints() (qom.Playback, error) {
	p := qom.Playback{StartTime: time.Duration(c.Playback.StartTimeUS) * time.Microsecond}
	var err error
	if p.Direction, err = parseDirection(c.Playback.Direction); err != nil {
		return p, err
	}
	if p.LeftBounce, err = parseBounce("left_bounce", c.Playback.LeftBounce); err != nil {
		return p, err
	}
	if p.RightBounce, err = parseBounce("right_bounce", c.Playback.RightBounce); err != nil {
		return p, err
	}
	return p, nil
}

func parseDirection(s string) (qom.Direction, error) {
	for _, d := range []qom.Direction{qom.DirectionStill, qom.DirectionForward, qom.DirectionBackward} {
		if strings.EqualFold(s, d.String()) {
			return d, nil
		}
	}
	return 0, fmt.Errorf("playback.direction: unknown value %q", s)
}

func parseBounce(field, s string) (qom.Bounce, error) {
	for _, b := range []qom.Bounce{qom.BounceStop, qom.BounceReverse, qom.BounceCycle} {
		if strings.EqualFold(s, b.String()) {
			return b, nil
		}
	}
	return 0, fmt.Errorf("playback.%s: unknown value %q", field, s)
}
