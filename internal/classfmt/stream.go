// Class file data stream reader.
// All multi-byte quantities in the class file format are big-endian.
package classfmt

import (
	"encoding/binary"
	"errors"
)

var (
	ErrStreamEOF   = errors.New("stream: unexpected end of data")
	ErrStreamRange = errors.New("stream: position out of range")
)

// Stream reads class file data with bounds checking on every access.
type Stream struct {
	data []byte
	pos  int
	end  int
}

// NewStream creates a stream over the given data.
func NewStream(data []byte) *Stream {
	return &Stream{data: data, pos: 0, end: len(data)}
}

// NewStreamAt creates a stream starting at offset within data.
func NewStreamAt(data []byte, offset int) *Stream {
	if offset > len(data) {
		offset = len(data)
	}
	return &Stream{data: data, pos: offset, end: len(data)}
}

// Position returns the current read position.
func (s *Stream) Position() int { return s.pos }

// SetPosition sets the read position.
func (s *Stream) SetPosition(pos int) error {
	if pos < 0 || pos > s.end {
		return ErrStreamRange
	}
	s.pos = pos
	return nil
}

// Remaining returns bytes left to read.
func (s *Stream) Remaining() int { return s.end - s.pos }

// Slice returns data[from:to] without copying.
func (s *Stream) Slice(from, to int) []byte {
	return s.data[from:to]
}

// ReadU1 reads a single byte.
func (s *Stream) ReadU1() (uint8, error) {
	if s.pos >= s.end {
		return 0, ErrStreamEOF
	}
	b := s.data[s.pos]
	s.pos++
	return b, nil
}

// ReadU2 reads a big-endian uint16.
func (s *Stream) ReadU2() (uint16, error) {
	if s.pos+2 > s.end {
		return 0, ErrStreamEOF
	}
	v := binary.BigEndian.Uint16(s.data[s.pos:])
	s.pos += 2
	return v, nil
}

// ReadU4 reads a big-endian uint32.
func (s *Stream) ReadU4() (uint32, error) {
	if s.pos+4 > s.end {
		return 0, ErrStreamEOF
	}
	v := binary.BigEndian.Uint32(s.data[s.pos:])
	s.pos += 4
	return v, nil
}

// ReadI4 reads a big-endian int32.
func (s *Stream) ReadI4() (int32, error) {
	v, err := s.ReadU4()
	return int32(v), err
}

// ReadBytes reads n bytes into a new slice.
func (s *Stream) ReadBytes(n int) ([]byte, error) {
	if n < 0 || s.pos+n > s.end {
		return nil, ErrStreamEOF
	}
	out := make([]byte, n)
	copy(out, s.data[s.pos:s.pos+n])
	s.pos += n
	return out, nil
}

// Skip advances the position by n bytes.
func (s *Stream) Skip(n int) error {
	if n < 0 || s.pos+n > s.end {
		return ErrStreamEOF
	}
	s.pos += n
	return nil
}

// Align advances position to the next multiple of alignment, measured
// from base. tableswitch and lookupswitch pad relative to the code start.
func (s *Stream) Align(base, alignment int) error {
	if alignment <= 0 {
		return nil
	}
	rem := (s.pos - base) % alignment
	if rem == 0 {
		return nil
	}
	return s.Skip(alignment - rem)
}
