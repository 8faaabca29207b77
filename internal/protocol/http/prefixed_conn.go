package http

import "net"

// prefixedConn restores bytes already pulled off the transport during
// protocol detection: reads drain the prefix first, then fall through to
// the real connection. Everything else delegates to the wrapped conn.
type prefixedConn struct {
	net.Conn
	prefix []byte
}

func newPrefixedConn(c net.Conn, prefix []byte) net.Conn {
	if len(prefix) == 0 {
		return c
	}
	return &prefixedConn{Conn: c, prefix: prefix}
}

func (p *prefixedConn) Read(b []byte) (int, error) {
	if len(p.prefix) > 0 {
		n := copy(b, p.prefix)
		p.prefix = p.prefix[n:]
		return n, nil
	}
	return p.Conn.Read(b)
}
