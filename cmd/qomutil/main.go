// qomutil builds, inspects and edits QOM movies.
//
// Usage:
//
//	qomutil [options] -toqom in1.png in2.png ... out.qom
//	qomutil [options] -topng in.qom [pattern]
//	qomutil [options] -print in.qom
//	qomutil [options] -trim in.qom out.qom startframe endframe
//	qomutil [options] -randseg in.qom out.qom nframes
//	qomutil [options] -benchmark in.qom
//
// Options:
//
//	-config <file>    YAML configuration
//	-encoding <name>  frame encoding for new movies (lit, qoi, png, j2k)
//	-interval <dur>   time between frames for -toqom, e.g. 40ms
//	-workers <n>      parallel readers for -benchmark
//	-seed <n>         random seed for -randseg, 0 picks one
//	-v                debug logging
//	-version          show version information
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"math/rand"
	"os"
	"strconv"
	"time"

	"github.com/mrjoshuak/go-qom/internal/config"
	"github.com/mrjoshuak/go-qom/qom"
	"github.com/mrjoshuak/go-qom/qomutil"
)

const version = "1.0.0"

var errUsage = errors.New("usage")

func main() {
	os.Exit(run(os.Args[1:], os.Stdout, os.Stderr))
}

type command struct {
	cfg     *config.Config
	opts    []qom.Option
	stdout  io.Writer
	workers int
	seed    int64
}

func run(args []string, stdout, stderr io.Writer) int {
	fs := flag.NewFlagSet("qomutil", flag.ContinueOnError)
	fs.SetOutput(stderr)

	toQOM := fs.Bool("toqom", false, "build a movie from image files")
	toPNG := fs.Bool("topng", false, "write every frame as a PNG file")
	printMovie := fs.Bool("print", false, "list header and frames")
	trim := fs.Bool("trim", false, "copy a frame range to a new movie")
	randSeg := fs.Bool("randseg", false, "copy a random run of frames to a new movie")
	bench := fs.Bool("benchmark", false, "measure decode throughput")

	configPath := fs.String("config", "", "YAML configuration file")
	encoding := fs.String("encoding", "", "frame encoding (lit, qoi, png, j2k)")
	interval := fs.Duration("interval", 0, "time between frames for -toqom")
	workers := fs.Int("workers", 0, "parallel readers for -benchmark")
	seed := fs.Int64("seed", 0, "random seed for -randseg")
	verbose := fs.Bool("v", false, "debug logging")
	showVersion := fs.Bool("version", false, "show version information")

	fs.Usage = func() {
		fmt.Fprintf(stderr, "Usage:\n")
		fmt.Fprintf(stderr, "  qomutil [options] -toqom in1.png in2.png ... out.qom\n")
		fmt.Fprintf(stderr, "  qomutil [options] -topng in.qom [pattern]\n")
		fmt.Fprintf(stderr, "  qomutil [options] -print in.qom\n")
		fmt.Fprintf(stderr, "  qomutil [options] -trim in.qom out.qom startframe endframe\n")
		fmt.Fprintf(stderr, "  qomutil [options] -randseg in.qom out.qom nframes\n")
		fmt.Fprintf(stderr, "  qomutil [options] -benchmark in.qom\n\n")
		fmt.Fprintf(stderr, "Options:\n")
		fs.PrintDefaults()
	}

	if err := fs.Parse(args); err != nil {
		return 2
	}
	if *showVersion {
		fmt.Fprintf(stdout, "qomutil version %s\n", version)
		return 0
	}

	level := slog.LevelInfo
	if *verbose || os.Getenv("DEBUG") != "" {
		level = slog.LevelDebug
	}
	logger := slog.New(slog.NewTextHandler(stderr, &slog.HandlerOptions{Level: level}))
	slog.SetDefault(logger)

	cfg := config.Default()
	if *configPath != "" {
		var err error
		if cfg, err = config.Load(*configPath); err != nil {
			logger.Error("loading config", "path", *configPath, "error", err)
			return 1
		}
	}
	if *encoding != "" {
		cfg.Encoding = *encoding
	}
	if *interval > 0 {
		cfg.FrameIntervalUS = interval.Microseconds()
	}
	if *workers > 0 {
		cfg.Benchmark.Workers = *workers
	}
	if err := config.Validate(cfg); err != nil {
		logger.Error("invalid options", "error", err)
		return 1
	}

	enc, _ := cfg.OutputEncoding()
	playback, _ := cfg.PlaybackHints()
	cmd := &command{
		cfg:     cfg,
		opts:    []qom.Option{qom.WithEncoding(enc), qom.WithPlayback(playback), qom.WithLogger(logger)},
		stdout:  stdout,
		workers: cfg.Benchmark.Workers,
		seed:    *seed,
	}

	var err error
	rest := fs.Args()
	switch {
	case *toQOM:
		err = cmd.toQOM(rest)
	case *toPNG:
		err = cmd.toPNG(rest)
	case *printMovie:
		err = cmd.print(rest)
	case *trim:
		err = cmd.trim(rest)
	case *randSeg:
		err = cmd.randSeg(rest)
	case *bench:
		err = cmd.benchmark(rest)
	default:
		err = errUsage
	}
	if errors.Is(err, errUsage) {
		fs.Usage()
		return 1
	}
	if err != nil {
		logger.Error("qomutil failed", "error", err)
		return 1
	}
	return 0
}

func (c *command) toQOM(args []string) error {
	if len(args) < 2 {
		return errUsage
	}
	out, err := qom.Create(args[len(args)-1], c.opts...)
	if err != nil {
		return err
	}
	if err := qomutil.ImagesToMovie(out, args[:len(args)-1], c.cfg.FrameInterval()); err != nil {
		out.Close()
		return err
	}
	if err := out.Close(); err != nil {
		return err
	}
	slog.Debug("movie written", "path", args[len(args)-1], "frames", len(args)-1, "encoding", c.cfg.Encoding)
	return nil
}

func (c *command) toPNG(args []string) error {
	if len(args) < 1 || len(args) > 2 {
		return errUsage
	}
	pattern := c.cfg.Output.Pattern
	if len(args) == 2 {
		pattern = args[1]
	}
	in, err := qom.Open(args[0], c.opts...)
	if err != nil {
		return err
	}
	defer in.Close()
	names, err := qomutil.MovieToImages(in, pattern)
	slog.Debug("frames extracted", "path", args[0], "files", len(names))
	return err
}

func (c *command) print(args []string) error {
	if len(args) != 1 {
		return errUsage
	}
	in, err := qom.Open(args[0], c.opts...)
	if err != nil {
		return err
	}
	defer in.Close()
	return in.Print(c.stdout, args[0])
}

func (c *command) trim(args []string) error {
	if len(args) != 4 {
		return errUsage
	}
	frame0, err := strconv.Atoi(args[2])
	if err != nil {
		return fmt.Errorf("startframe: %w", err)
	}
	frame1, err := strconv.Atoi(args[3])
	if err != nil {
		return fmt.Errorf("endframe: %w", err)
	}
	return qomutil.TrimFile(args[1], args[0], frame0, frame1, c.opts...)
}

func (c *command) randSeg(args []string) error {
	if len(args) != 3 {
		return errUsage
	}
	n, err := strconv.Atoi(args[2])
	if err != nil {
		return fmt.Errorf("nframes: %w", err)
	}
	seed := c.seed
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	return qomutil.RandomSegmentFile(args[1], args[0], n, rand.New(rand.NewSource(seed)), c.opts...)
}

func (c *command) benchmark(args []string) error {
	if len(args) != 1 {
		return errUsage
	}
	res, err := qomutil.ReadBenchmark(context.Background(), args[0], c.workers, c.opts...)
	if err != nil {
		return err
	}
	return res.WriteReport(c.stdout)
}
