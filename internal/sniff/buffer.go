package sniff

import "io"

// minFill is the smallest amount of spare room Fill guarantees before
// reading, so that a transport delivering data in large chunks is not
// forced into one-byte reads.
const minFill = 512

// Buffer is a growable byte buffer with an advancing read offset. It is
// shared between the detectors tried against a fresh connection: bytes
// pulled off the transport but not yet claimed by a decoded frame stay in
// the unread tail, so a detector that declines a connection leaves them
// intact for the next one.
//
// A Buffer is exclusively owned by the goroutine handling its connection
// and must never be shared across goroutines.
type Buffer struct {
	data []byte
	off  int
}

// NewBuffer returns a Buffer whose initial capacity also serves as the
// frame-size bound applied by detectors (see Cap).
func NewBuffer(capacity int) *Buffer {
	return &Buffer{data: make([]byte, 0, capacity)}
}

// Bytes returns the unread portion of the buffer. The slice is only valid
// until the next mutating call.
func (b *Buffer) Bytes() []byte {
	return b.data[b.off:]
}

// Len returns the number of unread bytes.
func (b *Buffer) Len() int {
	return len(b.data) - b.off
}

// Cap returns the capacity remaining from the current read offset, i.e.
// how many unread bytes the buffer could hold without reallocating.
func (b *Buffer) Cap() int {
	return cap(b.data) - b.off
}

// Advance discards the next n unread bytes. It panics if n exceeds Len.
func (b *Buffer) Advance(n int) {
	if n > b.Len() {
		panic("sniff: advance past end of buffer")
	}
	b.off += n
}

// SplitTo detaches the first n unread bytes and returns them. The
// remaining bytes stay in the buffer. It panics if n exceeds Len.
func (b *Buffer) SplitTo(n int) []byte {
	if n > b.Len() {
		panic("sniff: split past end of buffer")
	}
	out := b.data[b.off : b.off+n : b.off+n]
	b.off += n
	return out
}

// Reserve ensures there is room for at least n more bytes beyond the
// current length, compacting consumed front bytes before reallocating.
func (b *Buffer) Reserve(n int) {
	if cap(b.data)-len(b.data) >= n {
		return
	}
	if b.off > 0 && cap(b.data)-b.Len() >= n {
		// Reclaim the consumed front instead of growing.
		copied := copy(b.data[:cap(b.data)], b.data[b.off:])
		b.data = b.data[:copied]
		b.off = 0
		return
	}
	grown := make([]byte, b.Len(), b.Len()+n)
	copy(grown, b.data[b.off:])
	b.data = grown
	b.off = 0
}

// Write appends p to the buffer, growing it as needed. It never fails;
// the error is present to satisfy io.Writer.
func (b *Buffer) Write(p []byte) (int, error) {
	b.Reserve(len(p))
	b.data = append(b.data, p...)
	return len(p), nil
}

// Fill reads once from rd into the buffer's spare room and returns the
// number of bytes appended. A return of (0, nil) means the stream ended;
// any other error is a transport fault and leaves already-buffered bytes
// untouched.
func (b *Buffer) Fill(rd io.Reader) (int, error) {
	if cap(b.data)-len(b.data) < minFill {
		b.Reserve(minFill)
	}
	spare := b.data[len(b.data):cap(b.data)]
	n, err := rd.Read(spare)
	b.data = b.data[:len(b.data)+n]
	if err == io.EOF {
		return n, nil
	}
	return n, err
}
