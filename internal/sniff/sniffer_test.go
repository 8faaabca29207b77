package sniff

import (
	"bytes"
	"strings"
	"testing"
)

func TestDetectAppClassification(t *testing.T) {
	cases := []struct {
		name   string
		stream string
		want   ProtocolType
	}{
		{"http get", "GET / HTTP/1.1\r\nHost: example.com\r\n\r\n", ProtocolHTTP},
		{"http post", "POST /login HTTP/1.1\r\n", ProtocolHTTP},
		{"http response", "HTTP/1.1 200 OK\r\n", ProtocolHTTP},
		{"tls handshake", "\x16\x03\x01\x02\x00", ProtocolTLS},
		{"binary stream", "\x01\x02\x03\x04\x05\x06", ProtocolTCP},
		{"empty stream", "", ProtocolUnknown},
		{"short text", "hi", ProtocolTCP},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			buf := NewBuffer(1024)
			app, err := DetectApp{}.Detect(strings.NewReader(tc.stream), buf)
			if err != nil {
				t.Fatalf("Detect: %v", err)
			}
			if app.Kind != tc.want {
				t.Fatalf("kind = %v, want %v", app.Kind, tc.want)
			}
			// Classification never consumes: the handler gets every byte.
			if !bytes.Equal(buf.Bytes(), []byte(tc.stream)) {
				t.Fatalf("buffer = %q, want %q", buf.Bytes(), tc.stream)
			}
		})
	}
}

func TestDetectAppUsesBufferedBytes(t *testing.T) {
	// Bytes left behind by an earlier detector are classified without
	// touching the transport again.
	buf := NewBuffer(1024)
	buf.Write([]byte("GET /index.html HTTP/1.1\r\n"))

	app, err := DetectApp{}.Detect(strings.NewReader(""), buf)
	if err != nil {
		t.Fatalf("Detect: %v", err)
	}
	if app.Kind != ProtocolHTTP {
		t.Fatalf("kind = %v, want %v", app.Kind, ProtocolHTTP)
	}
}
