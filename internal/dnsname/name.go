// Package dnsname validates hostname-like logical service names carried
// in connection headers.
package dnsname

import (
	"errors"
	"strings"

	"golang.org/x/net/idna"
)

var ErrInvalidName = errors.New("invalid DNS name")

// profile matches lookup-time hostname validation: maps to lowercase
// ASCII, restricts labels to RFC 1034 characters, and checks hyphen
// placement and DNS length limits.
var profile = idna.New(
	idna.MapForLookup(),
	idna.CheckHyphens(true),
	idna.StrictDomainName(true),
	idna.VerifyDNSLength(true),
)

// Name is a validated, lowercased DNS name.
type Name string

// Parse validates s as a DNS name. A single trailing dot (fully-qualified
// form) is accepted; the returned Name keeps it.
func Parse(s string) (Name, error) {
	if s == "" {
		return "", ErrInvalidName
	}
	trimmed, fqdn := strings.CutSuffix(s, ".")
	ascii, err := profile.ToASCII(trimmed)
	if err != nil {
		return "", ErrInvalidName
	}
	if fqdn {
		ascii += "."
	}
	return Name(ascii), nil
}

func (n Name) String() string { return string(n) }
