// Package codec holds the pieces shared by every embedding channel: error
// kinds, per-call options and progress reporting.
package codec

import "errors"

var (
	// ErrEndOfStream means a bit cursor ran past its boundary, usually because
	// the input is truncated or malformed.
	ErrEndOfStream = errors.New("end of stream")

	// ErrMessageTooLarge is returned before any mutation when the framed
	// payload does not fit the cover at the requested degradation.
	ErrMessageTooLarge = errors.New("message too large for cover")

	// ErrSymbolNotFound means a Huffman symbol has no code and the table has no
	// canonical space left to allocate one.
	ErrSymbolNotFound = errors.New("huffman symbol not found")

	// ErrUnsupportedFormat covers unknown extensions, bad magic bytes and
	// container variants the structural codecs do not handle.
	ErrUnsupportedFormat = errors.New("unsupported format")

	// ErrDecryptionFailure is the single "cannot recover message" outcome: a
	// wrong password, a bad cipher padding or a nonsensical length prefix.
	ErrDecryptionFailure = errors.New("cannot recover message")

	ErrInvalidDegradation = errors.New("invalid degradation parameter")
)
