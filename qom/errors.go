package qom

import (
	"errors"
	"strings"

	"github.com/mrjoshuak/go-qom/codec"
)

// Errors reported by the container. Every error returned by a Movie matches
// exactly one of these with errors.Is.
var (
	ErrOpenFailed          = errors.New("qom: open failed")
	ErrIO                  = errors.New("qom: i/o failed")
	ErrMagicMismatch       = errors.New("qom: bad magic number")
	ErrUnsupportedEncoding = codec.ErrUnsupported
	ErrMisusedState        = errors.New("qom: operation not allowed in this state")
	ErrIndexOutOfRange     = errors.New("qom: frame index out of range")
	ErrCorrupt             = errors.New("qom: corrupt movie")
	ErrClosed              = errors.New("qom: movie is closed")
	ErrFileTooLarge        = errors.New("qom: movie exceeds 2 GiB")
	ErrEncode              = errors.New("qom: frame encode failed")
)

// Error records a failed container operation.
type Error struct {
	Op   string // "create", "open", "putframe", "getframe", "close", ...
	Path string // file name, empty for movies on a caller supplied stream
	Kind error  // one of the Err* sentinels
	Err  error  // underlying cause, may be nil
}

func (e *Error) Error() string {
	var b strings.Builder
	b.WriteString("qom: ")
	b.WriteString(e.Op)
	if e.Path != "" {
		b.WriteString(" ")
		b.WriteString(e.Path)
	}
	b.WriteString(": ")
	b.WriteString(strings.TrimPrefix(e.Kind.Error(), "qom: "))
	if e.Err != nil {
		b.WriteString(": ")
		b.WriteString(e.Err.Error())
	}
	return b.String()
}

// Unwrap returns the kind and, if present, the cause.
func (e *Error) Unwrap() []error {
	if e.Err == nil {
		return []error{e.Kind}
	}
	return []error{e.Kind, e.Err}
}

func (m *Movie) fail(op string, kind, err error) error {
	return &Error{Op: op, Path: m.path, Kind: kind, Err: err}
}
