// Package bitstream is a bit-granular cursor over a growable byte buffer.
// Reads are MSB-first and never cross the end-of-data boundary; appends grow
// the buffer one byte at a time.
package bitstream

import (
	"fmt"

	"github.com/andresmejia3/stegocodec/pkg/codec"
)

// ErrEndOfStream is returned when a read would cross the end-of-data boundary.
var ErrEndOfStream = codec.ErrEndOfStream

// Stream positions and lengths are counted in bits.
type Stream struct {
	buf []byte
	pos int
	end int
}

// New wraps data without copying it. The end boundary is len(data)*8.
func New(data []byte) *Stream {
	return &Stream{buf: data, end: len(data) * 8}
}

// ReadBits returns the next n bits (1..32) right aligned and advances the
// cursor. On failure the cursor does not move.
func (s *Stream) ReadBits(n int) (uint32, error) {
	if n < 1 || n > 32 {
		return 0, fmt.Errorf("bitstream: cannot read %d bits", n)
	}
	if s.pos+n > s.end {
		return 0, fmt.Errorf("%w: need %d bits at %d, have %d", ErrEndOfStream, n, s.pos, s.end-s.pos)
	}
	var v uint32
	for i := 0; i < n; i++ {
		v = v<<1 | uint32(s.bitAt(s.pos))
		s.pos++
	}
	return v, nil
}

// ReadBit is ReadBits(1) without the range check on n.
func (s *Stream) ReadBit() (uint8, error) {
	if s.pos >= s.end {
		return 0, fmt.Errorf("%w: at bit %d", ErrEndOfStream, s.pos)
	}
	b := s.bitAt(s.pos)
	s.pos++
	return b, nil
}

// PeekBits reads n bits starting at bit start, leaving the cursor where it was.
func (s *Stream) PeekBits(start, n int) (uint32, error) {
	saved := s.pos
	defer func() { s.pos = saved }()
	if err := s.Seek(start); err != nil {
		return 0, err
	}
	return s.ReadBits(n)
}

func (s *Stream) bitAt(pos int) uint8 {
	return (s.buf[pos>>3] >> (7 - uint(pos&7))) & 1
}

func (s *Stream) AddBit(bit uint8) {
	if s.end&7 == 0 {
		s.buf = append(s.buf, 0)
	}
	if bit&1 != 0 {
		s.buf[s.end>>3] |= 1 << (7 - uint(s.end&7))
	}
	s.end++
}

// AddBits appends the low n bits of v, most significant first.
func (s *Stream) AddBits(v uint32, n int) {
	for i := n - 1; i >= 0; i-- {
		s.AddBit(uint8(v >> uint(i)))
	}
}

func (s *Stream) AddByte(b byte) {
	if s.end&7 == 0 {
		s.buf = append(s.buf, b)
		s.end += 8
		return
	}
	s.AddBits(uint32(b), 8)
}

func (s *Stream) AddBytes(p []byte) {
	if s.end&7 == 0 {
		s.buf = append(s.buf, p...)
		s.end += 8 * len(p)
		return
	}
	for _, b := range p {
		s.AddBits(uint32(b), 8)
	}
}

// AlignWithOnes pads the final partial byte with 1-bits.
func (s *Stream) AlignWithOnes() {
	for s.end&7 != 0 {
		s.AddBit(1)
	}
}

// Reset moves the cursor back to the first bit.
func (s *Stream) Reset() {
	s.pos = 0
}

// Seek moves the cursor to bit pos. pos may equal EndPosition.
func (s *Stream) Seek(pos int) error {
	if pos < 0 || pos > s.end {
		return fmt.Errorf("%w: seek to %d outside [0,%d]", ErrEndOfStream, pos, s.end)
	}
	s.pos = pos
	return nil
}

// SkipToByte advances the cursor to the next byte boundary.
func (s *Stream) SkipToByte() {
	if r := s.pos & 7; r != 0 {
		s.pos += 8 - r
		if s.pos > s.end {
			s.pos = s.end
		}
	}
}

func (s *Stream) EndOfData() bool {
	return s.pos >= s.end
}

func (s *Stream) Position() int {
	return s.pos
}

func (s *Stream) EndPosition() int {
	return s.end
}

// Remaining is the number of unread bits.
func (s *Stream) Remaining() int {
	return s.end - s.pos
}

// Bytes returns the underlying buffer. A trailing partial byte is zero padded.
func (s *Stream) Bytes() []byte {
	return s.buf[:(s.end+7)>>3]
}

// Len is the number of bytes Bytes returns.
func (s *Stream) Len() int {
	return (s.end + 7) >> 3
}

// Slice returns the whole bytes in [from, to) as a copy. Both offsets are byte
// offsets and must lie inside the stream.
func (s *Stream) Slice(from, to int) ([]byte, error) {
	if from < 0 || to < from || to > s.Len() {
		return nil, fmt.Errorf("%w: byte range [%d,%d) outside %d bytes", ErrEndOfStream, from, to, s.Len())
	}
	out := make([]byte, to-from)
	copy(out, s.buf[from:to])
	return out, nil
}
