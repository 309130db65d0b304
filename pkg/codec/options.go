package codec

import "encoding/binary"

// LengthPrefixSize is the size of the big-endian length that frames every
// embedded payload.
const LengthPrefixSize = 4

// Options carries the per-call parameters of an encode or decode.
type Options struct {
	// Degradation is bits per byte for raw LSB covers and AC coefficients per
	// block for JPEG. MP3 ignores it.
	Degradation int
	Password    string
	Progress    ProgressFunc
}

// Frame prefixes payload with its 4-byte big-endian length.
func Frame(payload []byte) []byte {
	out := make([]byte, LengthPrefixSize+len(payload))
	binary.BigEndian.PutUint32(out, uint32(len(payload)))
	copy(out[LengthPrefixSize:], payload)
	return out
}

// Unframe reads the length prefix of data and returns the payload it
// announces. A length above limit, or past the end of data, is reported as
// ErrDecryptionFailure so a garbage prefix is never read literally.
func Unframe(data []byte, limit int) ([]byte, error) {
	if len(data) < LengthPrefixSize {
		return nil, ErrDecryptionFailure
	}
	n := binary.BigEndian.Uint32(data)
	if uint64(n) > uint64(limit) || uint64(n) > uint64(len(data)-LengthPrefixSize) {
		return nil, ErrDecryptionFailure
	}
	return data[LengthPrefixSize : LengthPrefixSize+int(n)], nil
}
