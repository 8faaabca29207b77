package dnsname

import (
	"errors"
	"strings"
	"testing"
)

func TestParseValid(t *testing.T) {
	cases := []struct {
		in   string
		want Name
	}{
		{"foo.bar.example.com", "foo.bar.example.com"},
		{"Example.COM", "example.com"},
		{"svc.cluster.local.", "svc.cluster.local."},
		{"a", "a"},
	}
	for _, tc := range cases {
		got, err := Parse(tc.in)
		if err != nil {
			t.Fatalf("Parse(%q): %v", tc.in, err)
		}
		if got != tc.want {
			t.Fatalf("Parse(%q) = %q, want %q", tc.in, got, tc.want)
		}
	}
}

func TestParseInvalid(t *testing.T) {
	cases := []string{
		"",
		"not a hostname!",
		"-leadinghyphen.example.com",
		"double..dot.example.com",
		strings.Repeat("a", 64) + ".example.com", // label too long
		strings.Repeat("a.", 150) + "com",        // name too long
	}
	for _, in := range cases {
		if _, err := Parse(in); !errors.Is(err, ErrInvalidName) {
			t.Fatalf("Parse(%q): err = %v, want ErrInvalidName", in, err)
		}
	}
}
