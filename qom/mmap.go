//go:build !windows

package qom

import (
	"io"
	"os"
	"syscall"
)

// mappedFile is a read-only memory mapping of a finished movie. Frame
// payloads are sliced straight out of the mapping.
type mappedFile struct {
	data []byte
	file *os.File
}

// mapFile maps f read-only. An empty file maps to an empty slice.
func mapFile(f *os.File) (*mappedFile, error) {
	fi, err := f.Stat()
	if err != nil {
		return nil, err
	}

	size := fi.Size()
	if size == 0 {
		return &mappedFile{file: f}, nil
	}

	data, err := syscall.Mmap(int(f.Fd()), 0, int(size), syscall.PROT_READ, syscall.MAP_SHARED)
	if err != nil {
		return nil, err
	}
	return &mappedFile{data: data, file: f}, nil
}

// ReadAt implements io.ReaderAt.
func (m *mappedFile) ReadAt(p []byte, off int64) (int, error) {
	if off < 0 {
		return 0, syscall.EINVAL
	}
	if off >= int64(len(m.data)) {
		return 0, io.EOF
	}
	n := copy(p, m.data[off:])
	if n < len(p) {
		return n, io.EOF
	}
	return n, nil
}

// Slice returns length bytes at off without copying, or nil if the range
// is outside the file. The slice is valid until Close.
func (m *mappedFile) Slice(off, length int64) []byte {
	if off < 0 || length < 0 || off+length > int64(len(m.data)) {
		return nil
	}
	return m.data[off : off+length : off+length]
}

// Size returns the size of the mapped file.
func (m *mappedFile) Size() int64 {
	return int64(len(m.data))
}

// Close unmaps the file and closes it.
func (m *mappedFile) Close() error {
	if m.data != nil {
		if err := syscall.Munmap(m.data); err != nil {
			m.file.Close()
			return err
		}
		m.data = nil
	}
	if m.file != nil {
		err := m.file.Close()
		m.file = nil
		return err
	}
	return nil
}
