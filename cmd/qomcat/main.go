// qomcat concatenates QOM movies.
//
// Usage:
//
//	qomcat [options] in1.qom in2.qom ... out.qom
//
// Each input's frames follow the previous input's last frame, so the
// output plays the inputs back to back. Frames keep their encodings.
//
// Options:
//
//	-v        debug logging
//	-version  show version information
package main

import (
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/mrjoshuak/go-qom/qom"
	"github.com/mrjoshuak/go-qom/qomutil"
)

const version = "1.0.0"

func main() {
	os.Exit(run(os.Args[1:], os.Stdout, os.Stderr))
}

func run(args []string, stdout, stderr io.Writer) int {
	fs := flag.NewFlagSet("qomcat", flag.ContinueOnError)
	fs.SetOutput(stderr)
	verbose := fs.Bool("v", false, "debug logging")
	showVersion := fs.Bool("version", false, "show version information")
	fs.Usage = func() {
		fmt.Fprintf(stderr, "Usage: qomcat [options] in1.qom in2.qom ... out.qom\n\n")
		fmt.Fprintf(stderr, "Concatenate QOM movies.\n\n")
		fmt.Fprintf(stderr, "Options:\n")
		fs.PrintDefaults()
	}
	if err := fs.Parse(args); err != nil {
		return 2
	}
	if *showVersion {
		fmt.Fprintf(stdout, "qomcat version %s\n", version)
		return 0
	}

	files := fs.Args()
	if len(files) < 2 {
		fs.Usage()
		return 1
	}

	level := slog.LevelInfo
	if *verbose || os.Getenv("DEBUG") != "" {
		level = slog.LevelDebug
	}
	logger := slog.New(slog.NewTextHandler(stderr, &slog.HandlerOptions{Level: level}))

	out := files[len(files)-1]
	if err := qomutil.ConcatFiles(out, files[:len(files)-1], qom.WithLogger(logger)); err != nil {
		logger.Error("qomcat failed", "output", out, "error", err)
		return 1
	}
	logger.Debug("movies concatenated", "inputs", len(files)-1, "output", out)
	return 0
}
