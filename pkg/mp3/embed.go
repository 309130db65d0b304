package mp3

import (
	"fmt"

	"github.com/andresmejia3/stegocodec/pkg/bitstream"
	"github.com/andresmejia3/stegocodec/pkg/codec"
	"github.com/rs/zerolog/log"
)

func (st *Stream) privateBits() int {
	n := 0
	for _, f := range st.Frames {
		n += PrivateBitCount(f.Header)
	}
	return n
}

// Capacity is the payload size in bytes that fits in the private side-info
// bits of all frames.
func (st *Stream) Capacity() int {
	c := st.privateBits()/8 - codec.LengthPrefixSize
	if c < 0 {
		return 0
	}
	return c
}

// Embed writes payload MSB first into the private bits of consecutive
// frames. Private bits past the end of the message are cleared.
func (st *Stream) Embed(payload []byte) error {
	if len(payload)+codec.LengthPrefixSize > st.privateBits()/8 {
		return fmt.Errorf("%w: %d bytes, capacity %d", codec.ErrMessageTooLarge, len(payload), st.Capacity())
	}
	s := bitstream.New(codec.Frame(payload))
	for _, f := range st.Frames {
		n := PrivateBitCount(f.Header)
		v := 0
		for j := 0; j < n; j++ {
			v <<= 1
			if b, err := s.ReadBit(); err == nil {
				v |= int(b)
			}
		}
		f.Side.PrivateBits = v
	}
	log.Debug().Int("payload", len(payload)).Int("frames", len(st.Frames)).Msg("Embedded into MP3 private bits")
	return nil
}

// Extract recovers a payload hidden by Embed.
func (st *Stream) Extract() ([]byte, error) {
	s := bitstream.New(nil)
	for _, f := range st.Frames {
		s.AddBits(uint32(f.Side.PrivateBits), PrivateBitCount(f.Header))
	}
	data, err := s.Slice(0, s.EndPosition()/8)
	if err != nil {
		return nil, err
	}
	return codec.Unframe(data, st.Capacity())
}
