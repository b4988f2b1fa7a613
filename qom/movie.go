// Package qom reads and writes QOM movies.
//
// A QOM movie is a sequence of independently encoded still frames in one
// seekable file:
//
//	header   44 bytes, rewritten when the movie is closed
//	frames   for each frame a 4-byte encoding tag, then the encoded image
//	index    one 32-byte entry per frame, at the very end of the file
//
// All integers are 32-bit big-endian. Times are microseconds; 64-bit times
// are stored as a low and a high word. Because the index follows the
// frames, a movie is written in a single pass and the frame count is only
// known at Close, which is when the header gets its final contents and its
// magic number. A reader finds the index by counting back frameCount*32
// bytes from the end of the file.
//
// A Movie is either being written (Create, NewWriter) or being read (Open,
// OpenReader). It is not safe for concurrent use; independent readers of
// the same finished file are.
package qom

import (
	"bufio"
	"errors"
	"io"
	"log/slog"
	"math"
	"os"
	"time"

	"github.com/mrjoshuak/go-qom/canvas"
	"github.com/mrjoshuak/go-qom/codec"
	"github.com/mrjoshuak/go-qom/internal/xdr"
)

type state int

const (
	stateClosed state = iota
	stateWriting
	stateReading
)

// maxOffset is the largest file offset a frame index entry can hold.
const maxOffset = math.MaxInt32

// Movie is an open QOM movie.
type Movie struct {
	state    state
	path     string
	header   Header
	index    []FrameInfo
	encoding codec.Encoding
	logger   *slog.Logger
	now      func() time.Time
	closer   io.Closer

	// Writing.
	ws        io.WriteSeeker
	bw        *bufio.Writer
	sw        *xdr.StreamWriter
	cursor    int64
	firstTime int64 // µs
	err       error

	// Reading.
	ra   io.ReaderAt
	size int64
}

type options struct {
	encoding codec.Encoding
	playback Playback
	logger   *slog.Logger
	now      func() time.Time
}

// Option configures a Movie.
type Option func(*options)

// WithEncoding sets the encoding for frames written by PutFrame.
func WithEncoding(e codec.Encoding) Option {
	return func(o *options) { o.encoding = e }
}

// WithPlayback sets the playback hints stored in a new movie.
func WithPlayback(p Playback) Option {
	return func(o *options) { o.playback = p }
}

// WithLogger sets the logger for debug output. The default is
// slog.Default().
func WithLogger(l *slog.Logger) Option {
	return func(o *options) {
		if l != nil {
			o.logger = l
		}
	}
}

// WithClock sets the clock used by PutFrameNow and to measure encode time.
func WithClock(now func() time.Time) Option {
	return func(o *options) {
		if now != nil {
			o.now = now
		}
	}
}

func newMovie(path string, opts []Option) (*Movie, error) {
	o := options{
		encoding: codec.DefaultEncoding,
		playback: DefaultPlayback(),
		logger:   slog.Default(),
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(&o)
	}
	m := &Movie{
		path:     path,
		encoding: o.encoding,
		logger:   o.logger,
		now:      o.now,
	}
	m.header.Playback = o.playback
	if !o.encoding.Valid() {
		return nil, m.fail("open", ErrUnsupportedEncoding, nil)
	}
	if err := o.playback.Validate(); err != nil {
		return nil, m.fail("open", ErrMisusedState, err)
	}
	return m, nil
}

// Create creates the named file and returns a Movie for writing into it.
// The movie is not readable until Close has written its index and header.
func Create(path string, opts ...Option) (*Movie, error) {
	m, err := newMovie(path, opts)
	if err != nil {
		return nil, err
	}
	f, err := os.Create(path)
	if err != nil {
		return nil, m.fail("create", ErrOpenFailed, err)
	}
	m.closer = f
	if err := m.startWriting(f); err != nil {
		f.Close()
		return nil, err
	}
	return m, nil
}

// NewWriter returns a Movie writing to w, starting at offset 0. If w has a
// Truncate method it is emptied first; otherwise w must not already hold
// more bytes than the movie will. Close finalizes the movie but does not
// close w.
func NewWriter(w io.WriteSeeker, opts ...Option) (*Movie, error) {
	m, err := newMovie("", opts)
	if err != nil {
		return nil, err
	}
	if err := m.startWriting(w); err != nil {
		return nil, err
	}
	return m, nil
}

// startWriting writes the placeholder header. It carries a provisional
// magic so that a movie that is never closed cannot be opened.
func (m *Movie) startWriting(w io.WriteSeeker) error {
	if t, ok := w.(interface{ Truncate(size int64) error }); ok {
		if err := t.Truncate(0); err != nil {
			return m.fail("create", ErrIO, err)
		}
	}
	if _, err := w.Seek(0, io.SeekStart); err != nil {
		return m.fail("create", ErrIO, err)
	}
	m.ws = w
	m.bw = bufio.NewWriterSize(w, 64<<10)
	m.sw = xdr.NewStreamWriter(m.bw)

	placeholder := Header{Magic: provisionalMagic}
	hw := xdr.NewBufferWriter(HeaderSize)
	placeholder.marshal(hw)
	if err := m.sw.WriteBytes(hw.Bytes()); err != nil {
		return m.fail("create", ErrIO, err)
	}
	m.header.Magic = provisionalMagic
	m.cursor = HeaderSize
	m.state = stateWriting
	m.logger.Debug("qom: writing movie", "path", m.path, "encoding", m.encoding)
	return nil
}

// Open opens the named movie for reading. The file is memory mapped when
// the platform allows it.
func Open(path string, opts ...Option) (*Movie, error) {
	m, err := newMovie(path, opts)
	if err != nil {
		return nil, err
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, m.fail("open", ErrOpenFailed, err)
	}

	var ra io.ReaderAt
	var size int64
	if mf, err := mapFile(f); err == nil {
		ra, size, m.closer = mf, mf.Size(), mf
	} else {
		m.logger.Debug("qom: mmap failed, reading file", "path", path, "err", err)
		fi, err := f.Stat()
		if err != nil {
			f.Close()
			return nil, m.fail("open", ErrOpenFailed, err)
		}
		ra, size, m.closer = f, fi.Size(), f
	}

	if err := m.startReading(ra, size); err != nil {
		m.closer.Close()
		return nil, err
	}
	return m, nil
}

// OpenReader reads a movie of the given size from r. Close does not close r.
func OpenReader(r io.ReaderAt, size int64, opts ...Option) (*Movie, error) {
	m, err := newMovie("", opts)
	if err != nil {
		return nil, err
	}
	if err := m.startReading(r, size); err != nil {
		return nil, err
	}
	return m, nil
}

// startReading validates the header and loads the frame index.
func (m *Movie) startReading(r io.ReaderAt, size int64) error {
	if size < xdr.WordSize {
		return m.fail("open", ErrMagicMismatch, errors.New("file too short"))
	}

	buf := make([]byte, min(size, HeaderSize))
	if n, err := r.ReadAt(buf, 0); n < len(buf) {
		return m.fail("open", ErrIO, err)
	}
	magic := int32(xdr.ByteOrder.Uint32(buf))
	if magic != Magic {
		m.logger.Debug("qom: bad magic", "path", m.path, "magic", magic, "want", Magic)
		return m.fail("open", ErrMagicMismatch, errors.New(describeMagic(magic)))
	}
	if len(buf) < HeaderSize {
		return m.fail("open", ErrCorrupt, errors.New("truncated header"))
	}

	h, err := parseHeader(buf)
	if err != nil {
		return m.fail("open", ErrCorrupt, err)
	}
	if h.FrameCount < 0 {
		return m.fail("open", ErrCorrupt, errors.New("negative frame count"))
	}
	trailerStart := size - int64(h.FrameCount)*EntrySize
	if trailerStart < HeaderSize {
		return m.fail("open", ErrCorrupt, errors.New("file too short for its frame index"))
	}

	trailer := make([]byte, int64(h.FrameCount)*EntrySize)
	if n, err := r.ReadAt(trailer, trailerStart); n < len(trailer) {
		return m.fail("open", ErrIO, err)
	}
	index := make([]FrameInfo, h.FrameCount)
	tr := xdr.NewReader(trailer)
	for i := range index {
		fi, err := parseFrameInfo(tr)
		if err != nil {
			return m.fail("open", ErrCorrupt, err)
		}
		if fi.Offset < HeaderSize || fi.Size < xdr.WordSize || fi.Offset+fi.Size > trailerStart {
			return m.fail("open", ErrCorrupt, errors.New("frame outside payload area"))
		}
		if fi.Width < 0 || fi.Height < 0 {
			return m.fail("open", ErrCorrupt, errors.New("negative frame size"))
		}
		index[i] = fi
	}

	m.header = h
	m.index = index
	m.ra = r
	m.size = size
	m.state = stateReading
	m.logger.Debug("qom: reading movie", "path", m.path, "frames", h.FrameCount, "duration", h.Duration)
	return nil
}

// PutFrame encodes c with the output encoding and appends it with
// timestamp t. Times are stored relative to the first frame, with
// microsecond resolution. The movie does not keep c.
func (m *Movie) PutFrame(c *canvas.Canvas, t time.Duration) error {
	switch m.state {
	case stateClosed:
		return m.fail("putframe", ErrClosed, nil)
	case stateReading:
		return m.fail("putframe", ErrMisusedState, errors.New("movie is open for reading"))
	}
	if m.err != nil {
		return m.err
	}
	if c == nil {
		return m.fail("putframe", ErrMisusedState, errors.New("nil canvas"))
	}

	start := m.now()
	payload, err := codec.Encode(m.encoding, c)
	if err != nil {
		if errors.Is(err, codec.ErrUnsupported) {
			return m.fail("putframe", ErrUnsupportedEncoding, err)
		}
		return m.fail("putframe", ErrEncode, err)
	}
	size := int64(xdr.WordSize + len(payload))
	if m.cursor+size > maxOffset {
		return m.fail("putframe", ErrFileTooLarge, nil)
	}

	if err := m.sw.WriteInt32(int32(m.encoding)); err != nil {
		m.err = m.fail("putframe", ErrIO, err)
		return m.err
	}
	if err := m.sw.WriteBytes(payload); err != nil {
		m.err = m.fail("putframe", ErrIO, err)
		return m.err
	}

	us := t.Microseconds()
	if len(m.index) == 0 {
		m.firstTime = us
		m.header.Width = c.Width
		m.header.Height = c.Height
	}
	rel := time.Duration(us-m.firstTime) * time.Microsecond

	fi := FrameInfo{
		Time:       rel,
		Encoding:   m.encoding,
		Width:      c.Width,
		Height:     c.Height,
		Offset:     m.cursor,
		Size:       size,
		EncodeTime: m.now().Sub(start),
	}
	m.index = append(m.index, fi)
	m.cursor += size
	m.header.Duration = rel
	m.header.FrameCount = len(m.index)

	m.logger.Debug("qom: put frame", "frame", len(m.index)-1, "encoding", fi.Encoding,
		"width", fi.Width, "height", fi.Height, "bytes", size, "time", rel, "encode", fi.EncodeTime)
	return nil
}

// PutFrameNow appends c stamped with the current time.
func (m *Movie) PutFrameNow(c *canvas.Canvas) error {
	return m.PutFrame(c, time.Duration(m.now().UnixMicro())*time.Microsecond)
}

// GetFrame decodes frame i and returns it with its time relative to the
// first frame. The caller owns the returned canvas.
func (m *Movie) GetFrame(i int) (*canvas.Canvas, time.Duration, error) {
	switch m.state {
	case stateClosed:
		return nil, 0, m.fail("getframe", ErrClosed, nil)
	case stateWriting:
		return nil, 0, m.fail("getframe", ErrMisusedState, errors.New("movie is open for writing"))
	}
	if i < 0 || i >= len(m.index) {
		return nil, 0, m.fail("getframe", ErrIndexOutOfRange, nil)
	}
	fi := m.index[i]

	var data []byte
	if s, ok := m.ra.(interface{ Slice(off, length int64) []byte }); ok {
		data = s.Slice(fi.Offset, fi.Size)
		if data == nil {
			return nil, 0, m.fail("getframe", ErrCorrupt, errors.New("frame outside file"))
		}
	} else {
		data = framePayloads.get(int(fi.Size))
		defer framePayloads.put(data)
		if n, err := m.ra.ReadAt(data, fi.Offset); n < len(data) {
			return nil, 0, m.fail("getframe", ErrIO, err)
		}
	}

	tag := codec.Encoding(int32(xdr.ByteOrder.Uint32(data)))
	if tag != fi.Encoding {
		return nil, 0, m.fail("getframe", ErrCorrupt, errors.New("payload tag does not match frame index"))
	}
	c, err := codec.Decode(tag, data[xdr.WordSize:])
	if err != nil {
		if errors.Is(err, codec.ErrUnsupported) {
			return nil, 0, m.fail("getframe", ErrUnsupportedEncoding, err)
		}
		return nil, 0, m.fail("getframe", ErrCorrupt, err)
	}
	return c, fi.Time, nil
}

// FrameCount returns the number of frames written or read so far.
func (m *Movie) FrameCount() int {
	return len(m.index)
}

// Duration returns the time of the last frame written.
func (m *Movie) Duration() time.Duration {
	return m.header.Duration
}

// FirstTime returns the timestamp passed with the first frame written.
// Frame times are stored relative to it. It is 0 for a movie being read.
func (m *Movie) FirstTime() time.Duration {
	return time.Duration(m.firstTime) * time.Microsecond
}

// Frame returns the index entry of frame i.
func (m *Movie) Frame(i int) (FrameInfo, error) {
	if m.state == stateClosed {
		return FrameInfo{}, m.fail("frame", ErrClosed, nil)
	}
	if i < 0 || i >= len(m.index) {
		return FrameInfo{}, m.fail("frame", ErrIndexOutOfRange, nil)
	}
	return m.index[i], nil
}

// Header returns a copy of the header. While writing, the magic is the
// provisional one until Close.
func (m *Movie) Header() Header {
	h := m.header
	h.FrameCount = len(m.index)
	return h
}

// SetOutputEncoding sets the encoding of subsequent PutFrame calls.
func (m *Movie) SetOutputEncoding(e codec.Encoding) error {
	if m.state == stateClosed {
		return m.fail("setencoding", ErrClosed, nil)
	}
	if !e.Valid() {
		return m.fail("setencoding", ErrUnsupportedEncoding, nil)
	}
	m.encoding = e
	return nil
}

// OutputEncoding returns the encoding used by PutFrame.
func (m *Movie) OutputEncoding() codec.Encoding {
	return m.encoding
}

// SetPlayback sets the playback hints written at Close.
func (m *Movie) SetPlayback(p Playback) error {
	switch m.state {
	case stateClosed:
		return m.fail("setplayback", ErrClosed, nil)
	case stateReading:
		return m.fail("setplayback", ErrMisusedState, errors.New("movie is open for reading"))
	}
	if err := p.Validate(); err != nil {
		return m.fail("setplayback", ErrMisusedState, err)
	}
	m.header.Playback = p
	return nil
}

// Playback returns the playback hints.
func (m *Movie) Playback() Playback {
	return m.header.Playback
}

// Err returns the first write error, after which the movie accepts no
// more frames.
func (m *Movie) Err() error {
	return m.err
}

// Close finishes a movie being written and releases the file. For a
// writer it returns the first error of the whole write, if any.
func (m *Movie) Close() error {
	var err error
	switch m.state {
	case stateClosed:
		return m.fail("close", ErrClosed, nil)
	case stateWriting:
		err = m.err
		if err == nil {
			err = m.finish()
		}
	}
	if m.closer != nil {
		if cerr := m.closer.Close(); cerr != nil && err == nil {
			err = m.fail("close", ErrIO, cerr)
		}
		m.closer = nil
	}
	if m.state == stateReading {
		hits, misses := framePayloads.stats()
		m.logger.Debug("qom: closed movie", "path", m.path, "frames", len(m.index),
			"pooled_reads", hits, "unpooled_reads", misses)
	} else {
		m.logger.Debug("qom: closed movie", "path", m.path, "frames", len(m.index))
	}

	m.state = stateClosed
	m.index = nil
	m.ws, m.bw, m.sw, m.ra = nil, nil, nil, nil
	return err
}

// finish writes the frame index and the final header.
func (m *Movie) finish() error {
	trailer := xdr.NewBufferWriter(len(m.index) * EntrySize)
	for i := range m.index {
		m.index[i].marshal(trailer)
	}
	if err := m.sw.WriteBytes(trailer.Bytes()); err != nil {
		return m.fail("close", ErrIO, err)
	}
	if err := m.bw.Flush(); err != nil {
		return m.fail("close", ErrIO, err)
	}

	if _, err := m.ws.Seek(0, io.SeekStart); err != nil {
		return m.fail("close", ErrIO, err)
	}
	h := m.header
	h.Magic = Magic
	h.FrameCount = len(m.index)
	hw := xdr.NewBufferWriter(HeaderSize)
	h.marshal(hw)
	if err := xdr.NewStreamWriter(m.ws).WriteBytes(hw.Bytes()); err != nil {
		return m.fail("close", ErrIO, err)
	}
	m.header = h
	return nil
}
