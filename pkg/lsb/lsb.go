// Package lsb hides data in the low bits of raw sample bytes (pixel channels
// or PCM bytes).
//
// Layout of a cover of n bytes at b bits per byte:
//
//	bytes 0..7   marker: b, one bit per byte, MSB first
//	bytes 8..    AES ciphertext of the whole aligned plane
//
// The plane is [4-byte length][payload][original cover bits] and is
// encrypted as a unit, so the carrier bits look uniformly random end to end.
package lsb

import (
	"fmt"

	"github.com/andresmejia3/stegocodec/pkg/codec"
	"github.com/andresmejia3/stegocodec/pkg/guard"
	"github.com/rs/zerolog/log"
)

// MarkerSize is the number of cover bytes holding the bits-per-byte marker.
const MarkerSize = 8

// ValidDegradation reports whether b is a supported bits-per-byte value.
func ValidDegradation(b int) bool {
	return b == 1 || b == 2 || b == 4 || b == 8
}

func plane(n, b int) int {
	if n <= MarkerSize {
		return 0
	}
	usable := (n - MarkerSize) * b / 8
	p := usable/guard.BlockSize*guard.BlockSize - guard.BlockSize
	if p < 0 {
		return 0
	}
	return p
}

// Capacity is the largest payload that fits in n cover bytes at b bits per
// byte. Invalid b yields 0.
func Capacity(n, b int) int {
	if !ValidDegradation(b) {
		return 0
	}
	c := plane(n, b) - codec.LengthPrefixSize
	if c < 0 {
		return 0
	}
	return c
}

// Encode returns a copy of samples with payload hidden in it. samples is
// never modified.
func Encode(samples, payload []byte, b int, password string, progress codec.ProgressFunc) ([]byte, error) {
	if !ValidDegradation(b) {
		return nil, fmt.Errorf("%w: %d bits per byte", codec.ErrInvalidDegradation, b)
	}
	p := plane(len(samples), b)
	if len(payload)+codec.LengthPrefixSize > p {
		return nil, fmt.Errorf("%w: %d bytes, capacity %d", codec.ErrMessageTooLarge, len(payload), Capacity(len(samples), b))
	}

	log.Debug().Int("samples", len(samples)).Int("bitsPerByte", b).Int("plane", p).Int("payload", len(payload)).Msg("LSB encode")

	out := make([]byte, len(samples))
	copy(out, samples)
	WriteMarker(out, b)

	framed := codec.Frame(payload)
	Embed(out, MarkerSize, framed, b, codec.NewPhase(progress, len(framed), 0, 30))

	plain := Extract(out, MarkerSize, p, b, codec.NewPhase(progress, p, 30, 50))
	sealed, err := guard.Encrypt(password, plain)
	if err != nil {
		return nil, err
	}
	Embed(out, MarkerSize, sealed, b, codec.NewPhase(progress, len(sealed), 50, 100))
	return out, nil
}

// Decode recovers a payload hidden by Encode.
func Decode(samples []byte, password string, progress codec.ProgressFunc) ([]byte, error) {
	b, err := ReadMarker(samples)
	if err != nil {
		return nil, err
	}
	p := plane(len(samples), b)
	if p == 0 {
		return nil, fmt.Errorf("%w: cover too small", codec.ErrDecryptionFailure)
	}
	sealed := Extract(samples, MarkerSize, p+guard.BlockSize, b, codec.NewTracker(progress, p+guard.BlockSize))
	plain, err := guard.Decrypt(password, sealed)
	if err != nil {
		return nil, err
	}
	return codec.Unframe(plain, p-codec.LengthPrefixSize)
}

// WriteMarker stores b in the lowest bit of samples[0..7].
func WriteMarker(samples []byte, b int) {
	for i := 0; i < MarkerSize; i++ {
		samples[i] = putBitUint8(samples[i], 0, uint8(b>>uint(7-i)))
	}
}

// ReadMarker returns the bits-per-byte value stored by WriteMarker. A value
// that is not a valid degradation means the cover carries no message.
func ReadMarker(samples []byte) (int, error) {
	if len(samples) < MarkerSize {
		return 0, fmt.Errorf("%w: cover shorter than marker", codec.ErrDecryptionFailure)
	}
	b := 0
	for i := 0; i < MarkerSize; i++ {
		b = b<<1 | int(getBitUint8(samples[i], 0))
	}
	if !ValidDegradation(b) {
		return 0, fmt.Errorf("%w: marker %d", codec.ErrDecryptionFailure, b)
	}
	return b, nil
}

// Embed writes data MSB first into the low b bits of samples starting at
// offset. The caller guarantees samples is long enough.
func Embed(samples []byte, offset int, data []byte, b int, tr *codec.Tracker) {
	idx := offset
	bit := 0
	for _, v := range data {
		for i := 7; i >= 0; i-- {
			samples[idx] = putBitUint8(samples[idx], b-1-bit, getBitUint8(v, i))
			if bit++; bit == b {
				bit = 0
				idx++
			}
		}
		tr.Add(1)
	}
	tr.Done()
}

// Extract reads n bytes written by Embed.
func Extract(samples []byte, offset, n, b int, tr *codec.Tracker) []byte {
	out := make([]byte, n)
	idx := offset
	bit := 0
	for k := range out {
		var v uint8
		for i := 0; i < 8; i++ {
			v = v<<1 | getBitUint8(samples[idx], b-1-bit)
			if bit++; bit == b {
				bit = 0
				idx++
			}
		}
		out[k] = v
		tr.Add(1)
	}
	tr.Done()
	return out
}
