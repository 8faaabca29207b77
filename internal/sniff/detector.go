package sniff

import "io"

// Detector inspects the first bytes of a freshly accepted connection and
// either claims it as protocol P or leaves the buffered bytes untouched
// for the next detector in line.
//
// Detect returns a non-nil *P when the protocol was recognized, (nil, nil)
// when it was not (the buffer's unread bytes are exactly what was pulled
// off rd), or an error when the stream committed to the protocol and then
// violated it. Implementations must be stateless: one Detector instance is
// shared across all connections.
//
// Detectors chained over the same Buffer must run sequentially, never
// concurrently.
type Detector[P any] interface {
	Detect(rd io.Reader, buf *Buffer) (*P, error)
}
