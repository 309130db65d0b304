package jpeg

import (
	"fmt"

	"github.com/andresmejia3/stegocodec/pkg/bitstream"
	"github.com/andresmejia3/stegocodec/pkg/codec"
	"github.com/rs/zerolog/log"
)

// Coefficient positions used by the embedding channel. The first data unit
// stores the per-block bit count d in AC[8..15]; every other data unit
// carries d message bits in AC[63-d..62].
const (
	headerStart    = 8
	headerBits     = 8
	MaxDegradation = 54
)

// Capacity is the payload size in bytes that fits at d bits per data unit.
func (img *Image) Capacity(d int) int {
	if d < 1 || d > MaxDegradation || len(img.Units) < 2 {
		return 0
	}
	c := (len(img.Units)-1)*d/8 - codec.LengthPrefixSize
	if c < 0 {
		return 0
	}
	return c
}

func setBit(v *int, bit uint32) {
	*v = int(bit & 1)
}

// Embed hides payload in the AC coefficients. Each carrying coefficient is
// set to exactly 0 or 1. Coefficients past the end of the message keep their
// values.
func (img *Image) Embed(payload []byte, d int) error {
	if d < 1 || d > MaxDegradation {
		return fmt.Errorf("%w: %d coefficients per block", codec.ErrInvalidDegradation, d)
	}
	if len(img.Units) < 2 || len(payload)+codec.LengthPrefixSize > (len(img.Units)-1)*d/8 {
		return fmt.Errorf("%w: %d bytes, capacity %d", codec.ErrMessageTooLarge, len(payload), img.Capacity(d))
	}

	for i := 0; i < headerBits; i++ {
		setBit(&img.Units[0].AC[headerStart+i], uint32(d>>uint(headerBits-1-i)))
	}

	s := bitstream.New(codec.Frame(payload))
	for u := 1; !s.EndOfData(); u++ {
		du := &img.Units[u]
		for k := 63 - d; k < 63 && !s.EndOfData(); k++ {
			bit, _ := s.ReadBit()
			setBit(&du.AC[k], uint32(bit))
		}
	}
	log.Debug().Int("d", d).Int("payload", len(payload)).Int("units", len(img.Units)).Msg("Embedded into JPEG coefficients")
	return nil
}

// Degradation reads the bit count stored in the first data unit.
func (img *Image) Degradation() (int, error) {
	if len(img.Units) < 2 {
		return 0, fmt.Errorf("%w: image has no carrier blocks", codec.ErrDecryptionFailure)
	}
	d := 0
	for i := 0; i < headerBits; i++ {
		d = d<<1 | img.Units[0].AC[headerStart+i]&1
	}
	if d < 1 || d > MaxDegradation {
		return 0, fmt.Errorf("%w: stored degradation %d", codec.ErrDecryptionFailure, d)
	}
	return d, nil
}

// Extract recovers a payload hidden by Embed.
func (img *Image) Extract() ([]byte, error) {
	d, err := img.Degradation()
	if err != nil {
		return nil, err
	}
	s := bitstream.New(make([]byte, 0, (len(img.Units)-1)*d/8+1))
	for u := 1; u < len(img.Units); u++ {
		for k := 63 - d; k < 63; k++ {
			s.AddBit(uint8(img.Units[u].AC[k] & 1))
		}
	}
	whole := s.EndPosition() / 8
	data, err := s.Slice(0, whole)
	if err != nil {
		return nil, err
	}
	return codec.Unframe(data, img.Capacity(d))
}
