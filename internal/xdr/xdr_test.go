package xdr

import (
	"bytes"
	"io"
	"math"
	"testing"
)

func TestReaderBasic(t *testing.T) {
	data := []byte{0x01, 0x02, 0x03, 0x04, 0x05, 0x06, 0x07, 0x08}
	r := NewReader(data)

	if r.Len() != 8 {
		t.Errorf("Len() = %d, want 8", r.Len())
	}

	b, err := r.ReadByte()
	if err != nil {
		t.Errorf("ReadByte() error = %v", err)
	}
	if b != 0x01 {
		t.Errorf("ReadByte() = %d, want 1", b)
	}

	if r.Len() != 7 {
		t.Errorf("Len() after ReadByte = %d, want 7", r.Len())
	}
}

func TestReaderIntegers(t *testing.T) {
	// Big-endian test data
	data := []byte{
		0x12, 0x34, 0x56, 0x78, // uint32: 0x12345678
		0xFF, 0xFF, 0xFF, 0xFE, // int32: -2
	}
	r := NewReader(data)

	u32, err := r.ReadUint32()
	if err != nil {
		t.Fatalf("ReadUint32() error = %v", err)
	}
	if u32 != 0x12345678 {
		t.Errorf("ReadUint32() = 0x%08X, want 0x12345678", u32)
	}

	i32, err := r.ReadInt32()
	if err != nil {
		t.Fatalf("ReadInt32() error = %v", err)
	}
	if i32 != -2 {
		t.Errorf("ReadInt32() = %d, want -2", i32)
	}

	if _, err := r.ReadUint32(); err != ErrShortBuffer {
		t.Errorf("ReadUint32() past end error = %v, want ErrShortBuffer", err)
	}
}

func TestReaderBytes(t *testing.T) {
	r := NewReader([]byte{1, 2, 3, 4, 5})

	b, err := r.ReadBytes(2)
	if err != nil {
		t.Fatalf("ReadBytes(2) error = %v", err)
	}
	if !bytes.Equal(b, []byte{1, 2}) {
		t.Errorf("ReadBytes(2) = %v", b)
	}
	if _, err := r.ReadBytes(-1); err != ErrNegativeSize {
		t.Errorf("ReadBytes(-1) error = %v, want ErrNegativeSize", err)
	}
	if _, err := r.ReadBytes(10); err != ErrShortBuffer {
		t.Errorf("ReadBytes(10) error = %v, want ErrShortBuffer", err)
	}
	if _, err := r.ReadByte(); err != nil {
		t.Fatalf("ReadByte() error = %v", err)
	}
	rest := r.Rest()
	if !bytes.Equal(rest, []byte{4, 5}) {
		t.Errorf("Rest() = %v, want [4 5]", rest)
	}
	if r.Len() != 0 {
		t.Errorf("Len() after Rest = %d, want 0", r.Len())
	}
}

func TestBufferWriterByteOrder(t *testing.T) {
	w := NewBufferWriter(8)
	w.WriteUint32(0x54FE0A0B)
	w.WriteInt32(-1)

	want := []byte{0x54, 0xFE, 0x0A, 0x0B, 0xFF, 0xFF, 0xFF, 0xFF}
	if !bytes.Equal(w.Bytes(), want) {
		t.Errorf("Bytes() = % X, want % X", w.Bytes(), want)
	}
	if w.Len() != 8 {
		t.Errorf("Len() = %d, want 8", w.Len())
	}
}

func TestSplit64(t *testing.T) {
	tests := []struct {
		v      int64
		lo, hi uint32
	}{
		{0, 0, 0},
		{33000, 33000, 0},
		{1 << 32, 0, 1},
		{(5 << 32) + 7, 7, 5},
		{math.MaxInt64, 0xFFFFFFFF, 0x7FFFFFFF},
		{-1, 0xFFFFFFFF, 0xFFFFFFFF},
	}

	for _, tt := range tests {
		lo, hi := Split64(tt.v)
		if lo != tt.lo || hi != tt.hi {
			t.Errorf("Split64(%d) = (%d, %d), want (%d, %d)", tt.v, lo, hi, tt.lo, tt.hi)
		}
		if got := Join64(lo, hi); got != tt.v {
			t.Errorf("Join64(Split64(%d)) = %d", tt.v, got)
		}
		if tt.v >= 0 {
			if got := int64(hi)*(1<<32) + int64(lo); got != tt.v {
				t.Errorf("hi*2^32+lo = %d, want %d", got, tt.v)
			}
		}
	}
}

func TestSplit64ThroughBuffers(t *testing.T) {
	w := NewBufferWriter(16)
	w.WriteSplit64(1<<33 + 99)
	w.WriteSplit64(-33000)

	r := NewReader(w.Bytes())
	a, err := r.ReadSplit64()
	if err != nil || a != 1<<33+99 {
		t.Errorf("ReadSplit64() = %d, %v", a, err)
	}
	b, err := r.ReadSplit64()
	if err != nil || b != -33000 {
		t.Errorf("ReadSplit64() = %d, %v", b, err)
	}
	if _, err := r.ReadSplit64(); err != ErrShortBuffer {
		t.Errorf("ReadSplit64() past end error = %v", err)
	}
}

func TestStreamRoundTrip(t *testing.T) {
	var buf bytes.Buffer
	sw := NewStreamWriter(&buf)
	if err := sw.WriteUint32(0x5301); err != nil {
		t.Fatal(err)
	}
	if err := sw.WriteInt32(-42); err != nil {
		t.Fatal(err)
	}
	if err := sw.WriteBytes([]byte("qom")); err != nil {
		t.Fatal(err)
	}

	want := []byte{0, 0, 0x53, 0x01, 0xFF, 0xFF, 0xFF, 0xD6, 'q', 'o', 'm'}
	if !bytes.Equal(buf.Bytes(), want) {
		t.Errorf("stream = % X, want % X", buf.Bytes(), want)
	}
}

// shortWriter accepts at most n bytes per call without reporting an error.
type shortWriter struct{ n int }

func (w shortWriter) Write(p []byte) (int, error) {
	if len(p) > w.n {
		return w.n, nil
	}
	return len(p), nil
}

func TestStreamWriterShortWrite(t *testing.T) {
	sw := NewStreamWriter(shortWriter{n: 2})
	if err := sw.WriteUint32(1); err != io.ErrShortWrite {
		t.Errorf("WriteUint32() error = %v, want io.ErrShortWrite", err)
	}
}

func FuzzReaderReadUint32(f *testing.F) {
	f.Add([]byte{0x00, 0x00, 0x00, 0x00})
	f.Add([]byte{0xFF, 0xFF, 0xFF, 0xFF, 0x01})
	f.Add([]byte{0x01})

	f.Fuzz(func(t *testing.T, data []byte) {
		r := NewReader(data)
		for {
			v, err := r.ReadUint32()
			if err != nil {
				if r.Len() >= 4 {
					t.Fatalf("error with %d bytes left: %v", r.Len(), err)
				}
				return
			}
			w := NewBufferWriter(4)
			w.WriteUint32(v)
			start := len(data) - r.Len() - 4
			if !bytes.Equal(w.Bytes(), data[start:start+4]) {
				t.Fatalf("re-encoded % X, want % X", w.Bytes(), data[start:start+4])
			}
		}
	})
}
