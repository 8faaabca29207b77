package sniff

import (
	"bytes"
	"strings"
	"testing"
	"testing/iotest"
)

func TestBufferFillAndAdvance(t *testing.T) {
	buf := NewBuffer(64)
	rd := strings.NewReader("hello world")

	for buf.Len() < 11 {
		n, err := buf.Fill(rd)
		if err != nil {
			t.Fatalf("Fill: %v", err)
		}
		if n == 0 {
			t.Fatal("unexpected end of stream")
		}
	}

	buf.Advance(6)
	if got := string(buf.Bytes()); got != "world" {
		t.Fatalf("Bytes() = %q, want %q", got, "world")
	}
	if buf.Len() != 5 {
		t.Fatalf("Len() = %d, want 5", buf.Len())
	}
}

func TestBufferFillSignalsEOF(t *testing.T) {
	buf := NewBuffer(64)
	rd := strings.NewReader("x")

	n, err := buf.Fill(rd)
	if err != nil || n != 1 {
		t.Fatalf("Fill = (%d, %v), want (1, nil)", n, err)
	}
	n, err = buf.Fill(rd)
	if err != nil || n != 0 {
		t.Fatalf("Fill at EOF = (%d, %v), want (0, nil)", n, err)
	}
}

func TestBufferFillPropagatesError(t *testing.T) {
	buf := NewBuffer(64)
	rd := iotest.TimeoutReader(strings.NewReader("abcdef"))

	if _, err := buf.Fill(rd); err != nil {
		t.Fatalf("first Fill: %v", err)
	}
	if _, err := buf.Fill(rd); err != iotest.ErrTimeout {
		t.Fatalf("Fill error = %v, want ErrTimeout", err)
	}
	// Bytes read before the fault stay available.
	if got := string(buf.Bytes()); got != "abcdef" {
		t.Fatalf("Bytes() = %q, want %q", got, "abcdef")
	}
}

func TestBufferSplitToKeepsTail(t *testing.T) {
	buf := NewBuffer(64)
	buf.Write([]byte("headERtail"))

	head := buf.SplitTo(4)
	if !bytes.Equal(head, []byte("head")) {
		t.Fatalf("SplitTo = %q, want %q", head, "head")
	}
	buf.Advance(2)
	if got := string(buf.Bytes()); got != "tail" {
		t.Fatalf("Bytes() = %q, want %q", got, "tail")
	}
}

func TestBufferReserveCompactsConsumedFront(t *testing.T) {
	buf := NewBuffer(8)
	buf.Write([]byte("12345678"))
	buf.Advance(6)

	buf.Reserve(4)
	if buf.Len() != 2 {
		t.Fatalf("Len() = %d, want 2", buf.Len())
	}
	if got := string(buf.Bytes()); got != "78" {
		t.Fatalf("Bytes() = %q after compaction, want %q", got, "78")
	}

	buf.Write([]byte("abcd"))
	if got := string(buf.Bytes()); got != "78abcd" {
		t.Fatalf("Bytes() = %q, want %q", got, "78abcd")
	}
}

func TestBufferCapTracksOffset(t *testing.T) {
	buf := NewBuffer(32)
	buf.Write([]byte("0123456789"))
	buf.Advance(10)
	if buf.Cap() != 22 {
		t.Fatalf("Cap() = %d, want 22", buf.Cap())
	}
}

func TestBufferFragmentedFill(t *testing.T) {
	const msg = "fragmented transport delivery"
	buf := NewBuffer(8)
	rd := iotest.OneByteReader(strings.NewReader(msg))

	for {
		n, err := buf.Fill(rd)
		if err != nil {
			t.Fatalf("Fill: %v", err)
		}
		if n == 0 {
			break
		}
	}
	if got := string(buf.Bytes()); got != msg {
		t.Fatalf("Bytes() = %q, want %q", got, msg)
	}
}
