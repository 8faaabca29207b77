package header

import "errors"

// Every error here is fatal to the connection: once the preface has
// matched, the peer has promised a complete, well-formed header, and a
// peer that breaks that promise cannot be trusted with a fallback
// protocol. "Header absent" is not an error; ReadPrefaced reports it as a
// nil Header.
var (
	// ErrFrameTooLarge means the declared frame length exceeds the
	// buffer's capacity bound. Rejecting it up front keeps a hostile peer
	// from forcing unbounded allocation.
	ErrFrameTooLarge = errors.New("header: frame length exceeds capacity")

	// ErrTruncatedFrame means the stream ended after the preface matched
	// but before the full payload arrived.
	ErrTruncatedFrame = errors.New("header: stream ended before full frame")

	// ErrInvalidMessage means the payload bytes are not a well-formed
	// encoding of the header schema.
	ErrInvalidMessage = errors.New("header: invalid header message")

	// ErrInvalidName means the payload decoded but its name field failed
	// DNS-name validation.
	ErrInvalidName = errors.New("header: invalid name")

	// errFrameOverflow guards EncodePrefaced against a payload whose
	// length cannot be represented in the 4-byte length field.
	errFrameOverflow = errors.New("header: encoded message exceeds u32 length")
)
