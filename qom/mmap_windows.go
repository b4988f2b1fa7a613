//go:build windows

package qom

import (
	"io"
	"os"
	"syscall"
	"unsafe"
)

// mappedFile is a read-only memory mapping of a finished movie. Frame
// payloads are sliced straight out of the mapping.
type mappedFile struct {
	data   []byte
	file   *os.File
	handle syscall.Handle
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

	handle, err := syscall.CreateFileMapping(syscall.Handle(f.Fd()), nil, syscall.PAGE_READONLY,
		uint32(size>>32), uint32(size), nil)
	if err != nil {
		return nil, err
	}
	ptr, err := syscall.MapViewOfFile(handle, syscall.FILE_MAP_READ, 0, 0, uintptr(size))
	if err != nil {
		syscall.CloseHandle(handle)
		return nil, err
	}

	data := unsafe.Slice((*byte)(unsafe.Pointer(ptr)), int(size))
	return &mappedFile{data: data, file: f, handle: handle}, nil
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
		syscall.UnmapViewOfFile(uintptr(unsafe.Pointer(&m.data[0])))
		m.data = nil
	}
	if m.handle != 0 {
		syscall.CloseHandle(m.handle)
		m.handle = 0
	}
	if m.file != nil {
		err := m.file.Close()
		m.file = nil
		return err
	}
	return nil
}
