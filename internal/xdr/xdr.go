// Package xdr provides big-endian binary encoding and decoding utilities
// for reading and writing QOM movie files.
//
// Every multi-byte field in a QOM file is a 32-bit word stored most
// significant byte first, whatever the byte order of the host. All header
// and index I/O goes through this package; records are never transferred
// to or from a file as an in-memory struct layout.
package xdr

import (
	"encoding/binary"
	"errors"
	"io"
)

var (
	// ErrShortBuffer is returned when a read or write operation cannot complete
	// because there isn't enough space in the buffer.
	ErrShortBuffer = errors.New("xdr: buffer too short")

	// ErrNegativeSize is returned when a size parameter is negative.
	ErrNegativeSize = errors.New("xdr: negative size")
)

// ByteOrder is the byte order used by QOM files.
var ByteOrder = binary.BigEndian

// WordSize is the size in bytes of every field in a QOM record.
const WordSize = 4

// Split64 splits a signed 64-bit value into two unsigned 32-bit halves such
// that the value equals hi*2^32 + lo when it is non-negative. Negative
// values are split by their two's complement bit pattern.
func Split64(v int64) (lo, hi uint32) {
	u := uint64(v)
	return uint32(u), uint32(u >> 32)
}

// Join64 reverses Split64.
func Join64(lo, hi uint32) int64 {
	return int64(uint64(hi)<<32 | uint64(lo))
}

// Reader provides big-endian binary reading from a byte slice.
// It maintains a read position and provides bounds checking on all operations.
type Reader struct {
	data []byte
	pos  int
}

// NewReader creates a Reader from a byte slice.
func NewReader(data []byte) *Reader {
	return &Reader{data: data, pos: 0}
}

// Len returns the number of unread bytes.
func (r *Reader) Len() int {
	if r.pos >= len(r.data) {
		return 0
	}
	return len(r.data) - r.pos
}

// ReadByte reads a single byte.
func (r *Reader) ReadByte() (byte, error) {
	if r.pos >= len(r.data) {
		return 0, ErrShortBuffer
	}
	b := r.data[r.pos]
	r.pos++
	return b, nil
}

// ReadBytes returns the next n bytes. The result aliases the underlying
// slice; copy it if it must outlive the source buffer.
func (r *Reader) ReadBytes(n int) ([]byte, error) {
	if n < 0 {
		return nil, ErrNegativeSize
	}
	if r.pos+n > len(r.data) {
		return nil, ErrShortBuffer
	}
	b := r.data[r.pos : r.pos+n]
	r.pos += n
	return b, nil
}

// Rest returns the unread bytes without copying and consumes them.
func (r *Reader) Rest() []byte {
	if r.pos >= len(r.data) {
		return nil
	}
	b := r.data[r.pos:]
	r.pos = len(r.data)
	return b
}

// ReadUint32 reads an unsigned 32-bit integer in big-endian order.
func (r *Reader) ReadUint32() (uint32, error) {
	if r.pos+4 > len(r.data) {
		return 0, ErrShortBuffer
	}
	v := ByteOrder.Uint32(r.data[r.pos:])
	r.pos += 4
	return v, nil
}

// ReadInt32 reads a signed 32-bit integer in big-endian order.
func (r *Reader) ReadInt32() (int32, error) {
	v, err := r.ReadUint32()
	return int32(v), err
}

// ReadSplit64 reads a 64-bit value stored as lo and hi 32-bit words.
func (r *Reader) ReadSplit64() (int64, error) {
	lo, err := r.ReadUint32()
	if err != nil {
		return 0, err
	}
	hi, err := r.ReadUint32()
	if err != nil {
		return 0, err
	}
	return Join64(lo, hi), nil
}

// BufferWriter provides a growing buffer for writing binary data.
type BufferWriter struct {
	buf []byte
}

// NewBufferWriter creates a BufferWriter with an initial capacity.
func NewBufferWriter(capacity int) *BufferWriter {
	return &BufferWriter{buf: make([]byte, 0, capacity)}
}

// Len returns the number of bytes written.
func (w *BufferWriter) Len() int {
	return len(w.buf)
}

// Bytes returns the written data as a byte slice.
// The returned slice is valid until the next write operation.
func (w *BufferWriter) Bytes() []byte {
	return w.buf
}

// WriteByte writes a single byte.
func (w *BufferWriter) WriteByte(b byte) {
	w.buf = append(w.buf, b)
}

// WriteBytes writes a byte slice.
func (w *BufferWriter) WriteBytes(b []byte) {
	w.buf = append(w.buf, b...)
}

// WriteUint32 writes an unsigned 32-bit integer in big-endian order.
func (w *BufferWriter) WriteUint32(v uint32) {
	w.buf = append(w.buf, byte(v>>24), byte(v>>16), byte(v>>8), byte(v))
}

// WriteInt32 writes a signed 32-bit integer in big-endian order.
func (w *BufferWriter) WriteInt32(v int32) {
	w.WriteUint32(uint32(v))
}

// WriteSplit64 writes a 64-bit value as lo and hi 32-bit words.
func (w *BufferWriter) WriteSplit64(v int64) {
	lo, hi := Split64(v)
	w.WriteUint32(lo)
	w.WriteUint32(hi)
}

// StreamWriter wraps an io.Writer for big-endian binary writing.
// A write that transfers fewer bytes than requested without reporting an
// error is turned into io.ErrShortWrite.
type StreamWriter struct {
	w   io.Writer
	buf [4]byte
}

// NewStreamWriter creates a StreamWriter from an io.Writer.
func NewStreamWriter(w io.Writer) *StreamWriter {
	return &StreamWriter{w: w}
}

// WriteBytes writes a byte slice.
func (w *StreamWriter) WriteBytes(b []byte) error {
	n, err := w.w.Write(b)
	if err == nil && n != len(b) {
		err = io.ErrShortWrite
	}
	return err
}

// WriteUint32 writes an unsigned 32-bit integer in big-endian order.
func (w *StreamWriter) WriteUint32(v uint32) error {
	ByteOrder.PutUint32(w.buf[:4], v)
	return w.WriteBytes(w.buf[:4])
}

// WriteInt32 writes a signed 32-bit integer in big-endian order.
func (w *StreamWriter) WriteInt32(v int32) error {
	return w.WriteUint32(uint32(v))
}
