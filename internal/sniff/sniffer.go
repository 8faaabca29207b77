package sniff

import (
	"bytes"
	"io"
)

// ProtocolType enum
type ProtocolType int

const (
	ProtocolUnknown ProtocolType = iota
	ProtocolHTTP
	ProtocolTCP // opaque byte stream, forwarded as-is
	ProtocolTLS
)

func (p ProtocolType) String() string {
	switch p {
	case ProtocolHTTP:
		return "http"
	case ProtocolTCP:
		return "tcp"
	case ProtocolTLS:
		return "tls"
	default:
		return "unknown"
	}
}

// sniffLen is how many leading bytes the classifier needs to decide.
const sniffLen = 5

var httpPrefixes = [][]byte{
	[]byte("GET "),
	[]byte("POST"),
	[]byte("PUT "),
	[]byte("HEAD"),
	[]byte("DELE"),
	[]byte("HTTP"),
}

// App is the result of fallback classification: the wrapped protocol a
// headerless connection speaks.
type App struct {
	Kind ProtocolType
}

// DetectApp classifies a connection by its leading bytes. It runs after
// header detection has declined the connection, over the same shared
// buffer, so bytes already pulled off the transport are classified without
// re-reading them. It never consumes from the buffer: the wrapped
// protocol's handler gets every byte.
type DetectApp struct{}

// Detect implements Detector[App]. Classification never fails the
// connection: anything unrecognized is treated as an opaque TCP stream.
func (DetectApp) Detect(rd io.Reader, buf *Buffer) (*App, error) {
	for buf.Len() < sniffLen {
		n, err := buf.Fill(rd)
		if err != nil {
			return nil, err
		}
		if n == 0 {
			break // short connection, classify on what we have
		}
	}

	head := buf.Bytes()
	if len(head) > sniffLen {
		head = head[:sniffLen]
	}

	if len(head) == 0 {
		return &App{Kind: ProtocolUnknown}, nil
	}

	for _, p := range httpPrefixes {
		if len(head) >= len(p) && bytes.Equal(head[:len(p)], p) {
			return &App{Kind: ProtocolHTTP}, nil
		}
	}

	// TLS handshake record
	if head[0] == 0x16 {
		return &App{Kind: ProtocolTLS}, nil
	}

	return &App{Kind: ProtocolTCP}, nil
}
