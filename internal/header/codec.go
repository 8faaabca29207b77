package header

import (
	"github.com/SkynetNext/mesh-gateway/internal/dnsname"
	"google.golang.org/protobuf/encoding/protowire"
)

// Wire schema of the header payload:
//
//	message Header {
//	  int32  port = 1;
//	  string name = 2;
//	}
//
// Encoded with the standard protobuf wire format via protowire, so the
// payload stays bit-compatible with senders using generated bindings.
const (
	fieldPort protowire.Number = 1
	fieldName protowire.Number = 2
)

// appendMessage appends the encoded payload for h. Zero-valued fields are
// omitted, matching proto3 semantics. It never fails.
func appendMessage(dst []byte, h *Header) []byte {
	if h.Port != 0 {
		dst = protowire.AppendTag(dst, fieldPort, protowire.VarintType)
		dst = protowire.AppendVarint(dst, uint64(uint32(int32(h.Port))))
	}
	if h.Name != "" {
		dst = protowire.AppendTag(dst, fieldName, protowire.BytesType)
		dst = protowire.AppendString(dst, h.Name)
	}
	return dst
}

// decodeMessage parses a payload into a Header. Unknown fields are
// skipped, as a schema-driven decoder would. The wire port is a signed
// 32-bit value truncated to uint16: out-of-range values wrap rather than
// fail, preserving the protocol's permissive narrowing.
func decodeMessage(b []byte) (*Header, error) {
	var port int32
	var name string

	for len(b) > 0 {
		num, typ, n := protowire.ConsumeTag(b)
		if n < 0 {
			return nil, ErrInvalidMessage
		}
		b = b[n:]

		switch {
		case num == fieldPort && typ == protowire.VarintType:
			v, n := protowire.ConsumeVarint(b)
			if n < 0 {
				return nil, ErrInvalidMessage
			}
			port = int32(v)
			b = b[n:]
		case num == fieldName && typ == protowire.BytesType:
			v, n := protowire.ConsumeString(b)
			if n < 0 {
				return nil, ErrInvalidMessage
			}
			name = v
			b = b[n:]
		default:
			n := protowire.ConsumeFieldValue(num, typ, b)
			if n < 0 {
				return nil, ErrInvalidMessage
			}
			b = b[n:]
		}
	}

	h := &Header{Port: uint16(port)}
	if name != "" {
		parsed, err := dnsname.Parse(name)
		if err != nil {
			return nil, ErrInvalidName
		}
		h.Name = parsed.String()
	}
	return h, nil
}
