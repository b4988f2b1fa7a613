package qom

import (
	"fmt"
	"time"

	"github.com/mrjoshuak/go-qom/codec"
	"github.com/mrjoshuak/go-qom/internal/xdr"
)

// Magic numbers. Only Magic is readable; the others identify files that
// were never finalized or were written by earlier, incompatible revisions.
const (
	Magic            int32 = 0x5301
	provisionalMagic int32 = 0x53FF

	magicRev1 int32 = 0x54FF
	magicRev2 int32 = 0x54FE
	magicRev3 int32 = 0x5501
)

// Record sizes on disk.
const (
	HeaderSize = 11 * xdr.WordSize
	EntrySize  = 8 * xdr.WordSize
)

// Direction is the playback direction a player starts in.
type Direction int32

const (
	DirectionStill    Direction = 0
	DirectionForward  Direction = 1
	DirectionBackward Direction = 2
)

func (d Direction) String() string {
	switch d {
	case DirectionStill:
		return "still"
	case DirectionForward:
		return "forward"
	case DirectionBackward:
		return "backward"
	default:
		return fmt.Sprintf("Direction(%d)", int32(d))
	}
}

// Valid reports whether d is a known direction.
func (d Direction) Valid() bool {
	return d >= DirectionStill && d <= DirectionBackward
}

// Bounce is what a player does on reaching either end of the movie.
type Bounce int32

const (
	BounceStop    Bounce = 0
	BounceReverse Bounce = 1
	BounceCycle   Bounce = 2
)

func (b Bounce) String() string {
	switch b {
	case BounceStop:
		return "stop"
	case BounceReverse:
		return "reverse"
	case BounceCycle:
		return "cycle"
	default:
		return fmt.Sprintf("Bounce(%d)", int32(b))
	}
}

// Valid reports whether b is a known bounce policy.
func (b Bounce) Valid() bool {
	return b >= BounceStop && b <= BounceCycle
}

// Playback holds hints for a player. The container stores them but never
// interprets them.
type Playback struct {
	StartTime   time.Duration
	Direction   Direction
	LeftBounce  Bounce
	RightBounce Bounce
}

// DefaultPlayback starts at the beginning, plays forward and reverses at
// both ends.
func DefaultPlayback() Playback {
	return Playback{
		Direction:   DirectionForward,
		LeftBounce:  BounceReverse,
		RightBounce: BounceReverse,
	}
}

// Validate returns an error if any field holds an unknown value.
func (p Playback) Validate() error {
	if !p.Direction.Valid() {
		return fmt.Errorf("unknown direction %d", int32(p.Direction))
	}
	if !p.LeftBounce.Valid() {
		return fmt.Errorf("unknown left bounce %d", int32(p.LeftBounce))
	}
	if !p.RightBounce.Valid() {
		return fmt.Errorf("unknown right bounce %d", int32(p.RightBounce))
	}
	return nil
}

// Header is the fixed record at the start of a movie file.
type Header struct {
	Magic      int32
	FrameCount int
	Duration   time.Duration // time of the last frame written
	Width      int           // size of the first frame
	Height     int
	Playback   Playback
}

func (h *Header) marshal(w *xdr.BufferWriter) {
	w.WriteInt32(h.Magic)
	w.WriteInt32(int32(h.FrameCount))
	w.WriteSplit64(h.Duration.Microseconds())
	w.WriteInt32(int32(h.Width))
	w.WriteInt32(int32(h.Height))
	w.WriteSplit64(h.Playback.StartTime.Microseconds())
	w.WriteInt32(int32(h.Playback.Direction))
	w.WriteInt32(int32(h.Playback.LeftBounce))
	w.WriteInt32(int32(h.Playback.RightBounce))
}

// parseHeader decodes a header whose magic has already been checked.
func parseHeader(data []byte) (Header, error) {
	r := xdr.NewReader(data)
	var h Header
	var err error
	var v int32
	var us int64

	if h.Magic, err = r.ReadInt32(); err != nil {
		return h, err
	}
	if v, err = r.ReadInt32(); err != nil {
		return h, err
	}
	h.FrameCount = int(v)
	if us, err = r.ReadSplit64(); err != nil {
		return h, err
	}
	h.Duration = time.Duration(us) * time.Microsecond
	if v, err = r.ReadInt32(); err != nil {
		return h, err
	}
	h.Width = int(v)
	if v, err = r.ReadInt32(); err != nil {
		return h, err
	}
	h.Height = int(v)
	if us, err = r.ReadSplit64(); err != nil {
		return h, err
	}
	h.Playback.StartTime = time.Duration(us) * time.Microsecond
	if v, err = r.ReadInt32(); err != nil {
		return h, err
	}
	h.Playback.Direction = Direction(v)
	if v, err = r.ReadInt32(); err != nil {
		return h, err
	}
	h.Playback.LeftBounce = Bounce(v)
	if v, err = r.ReadInt32(); err != nil {
		return h, err
	}
	h.Playback.RightBounce = Bounce(v)
	return h, nil
}

// describeMagic names the revision that wrote a file, for error messages.
func describeMagic(m int32) string {
	switch m {
	case Magic:
		return "current revision"
	case provisionalMagic:
		return "unfinished movie"
	case magicRev1, magicRev2, magicRev3:
		return "older revision"
	default:
		return "not a movie"
	}
}

// FrameInfo is one entry of the frame index stored at the end of the file.
type FrameInfo struct {
	Time       time.Duration // relative to the first frame
	Encoding   codec.Encoding
	Width      int
	Height     int
	Offset     int64 // of the encoding tag in front of the payload
	Size       int64 // payload length including the tag
	EncodeTime time.Duration
}

// Pixels returns the number of texels in the frame.
func (fi FrameInfo) Pixels() int64 {
	return int64(fi.Width) * int64(fi.Height)
}

func (fi *FrameInfo) marshal(w *xdr.BufferWriter) {
	w.WriteSplit64(fi.Time.Microseconds())
	w.WriteInt32(int32(fi.Encoding))
	w.WriteInt32(int32(fi.Width))
	w.WriteInt32(int32(fi.Height))
	w.WriteInt32(int32(fi.Offset))
	w.WriteInt32(int32(fi.Size))
	w.WriteInt32(int32(fi.EncodeTime.Microseconds()))
}

func parseFrameInfo(r *xdr.Reader) (FrameInfo, error) {
	var fi FrameInfo
	us, err := r.ReadSplit64()
	if err != nil {
		return fi, err
	}
	fi.Time = time.Duration(us) * time.Microsecond

	var words [6]int32
	for i := range words {
		if words[i], err = r.ReadInt32(); err != nil {
			return fi, err
		}
	}
	fi.Encoding = codec.Encoding(words[0])
	fi.Width = int(words[1])
	fi.Height = int(words[2])
	fi.Offset = int64(words[3])
	fi.Size = int64(words[4])
	fi.EncodeTime = time.Duration(words[5]) * time.Microsecond
	return fi, nil
}
