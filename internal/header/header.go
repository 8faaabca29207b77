// Package header implements detection and framing of the optional
// out-of-band connection header a client may send ahead of its
// application protocol.
//
// The on-wire frame is a fixed ASCII preface, a 4-byte big-endian payload
// length, and a schema-encoded payload carrying the destination port and
// an optional logical service name. Streams that do not begin with the
// preface carry no header; every byte read while checking stays available
// to the next protocol detector.
package header

import (
	"bytes"
	"encoding/binary"
	"io"
	"math"

	"github.com/SkynetNext/mesh-gateway/internal/sniff"
)

// Preface is the magic string opening a connection-header frame.
const Preface = "proxy.l5d.io/connect\r\n\r\n"

// prefaceLen is the minimum number of buffered bytes required before any
// framing decision can be made: the preface plus the 4-byte length field.
const prefaceLen = len(Preface) + 4

// Header is the decoded connection metadata. Values are immutable once
// constructed; equality is structural.
type Header struct {
	// Port is the destination port the client intended to reach. A wire
	// value outside uint16 range arrives truncated, not rejected.
	Port uint16

	// Name is the logical name of the target service, validated as a DNS
	// name on decode. Empty when the client sent none.
	Name string
}

// EncodePrefaced appends the complete on-wire frame for h to buf:
// preface, big-endian payload length, payload. The payload is encoded to
// a scratch slice first so the length is known before anything is
// written; frames are small, so the copy is cheap. Transport writes are
// the caller's concern.
func (h *Header) EncodePrefaced(buf *sniff.Buffer) error {
	payload := appendMessage(nil, h)
	if uint64(len(payload)) > math.MaxUint32 {
		return errFrameOverflow
	}

	buf.Reserve(prefaceLen + len(payload))
	buf.Write([]byte(Preface))

	var lenField [4]byte
	binary.BigEndian.PutUint32(lenField[:], uint32(len(payload)))
	buf.Write(lenField[:])
	buf.Write(payload)
	return nil
}

// ReadPrefaced attempts to read a connection header from the start of a
// stream. It returns (nil, nil) when no header is present — including
// when the stream ends before enough bytes arrive to decide — and in
// that case buf's unread bytes are exactly the bytes pulled off rd, in
// order, so a subsequent detector sees the stream unchanged.
//
// Once the preface matches, the peer has committed to a full frame:
// a declared length beyond the buffer's capacity bound, a truncated
// payload, or an undecodable payload all fail the connection.
func ReadPrefaced(rd io.Reader, buf *sniff.Buffer) (*Header, error) {
	// Read at least enough to know whether a header is present and, if
	// so, how long it is. The transport may deliver arbitrarily small
	// chunks; keep asking until the threshold is met or the stream ends.
	for buf.Len() < prefaceLen {
		n, err := buf.Fill(rd)
		if err != nil {
			return nil, err
		}
		if n == 0 {
			return nil, nil
		}
	}

	// A mismatch must not consume anything: these bytes belong to
	// whatever protocol is tried next.
	if !bytes.Equal(buf.Bytes()[:len(Preface)], []byte(Preface)) {
		return nil, nil
	}
	buf.Advance(len(Preface))

	msgLen := int(binary.BigEndian.Uint32(buf.SplitTo(4)))
	if msgLen > buf.Cap()+prefaceLen {
		return nil, ErrFrameTooLarge
	}

	buf.Reserve(msgLen)
	for buf.Len() < msgLen {
		n, err := buf.Fill(rd)
		if err != nil {
			return nil, err
		}
		if n == 0 {
			return nil, ErrTruncatedFrame
		}
	}

	// Take exactly the frame's bytes; anything beyond them — typically
	// the start of the wrapped protocol's own traffic — stays in buf.
	return decodeMessage(buf.SplitTo(msgLen))
}
