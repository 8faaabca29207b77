package tcp

import (
	"context"
	"io"
	"net"
	"time"

	"github.com/SkynetNext/mesh-gateway/internal/middleware"
	"github.com/SkynetNext/mesh-gateway/internal/sniff"
	"github.com/SkynetNext/mesh-gateway/pkg/xlog"
)

// Handler forwards a detected connection to its upstream as an opaque
// byte stream.
type Handler struct {
	dialTimeout time.Duration
}

func NewHandler(dialTimeout time.Duration) *Handler {
	return &Handler{dialTimeout: dialTimeout}
}

// Handle dials target, replays buf's unread bytes (everything pulled off
// the transport during detection but not consumed by a header frame) and
// then splices the two connections. It returns the bytes relayed in each
// direction.
func (h *Handler) Handle(ctx context.Context, src net.Conn, buf *sniff.Buffer, target, protocol string) (bytesIn, bytesOut int64, err error) {
	defer src.Close()

	d := net.Dialer{Timeout: h.dialTimeout}
	dst, err := d.DialContext(ctx, "tcp", target)
	middleware.RecordUpstreamDial(target, err)
	if err != nil {
		xlog.Errorf("Failed to dial upstream %s: %v", target, err)
		return 0, 0, err
	}
	defer dst.Close()

	// The upstream must see the stream exactly as the client sent it,
	// minus the header frame: buffered bytes go first.
	if pending := buf.Bytes(); len(pending) > 0 {
		n, err := dst.Write(pending)
		bytesIn += int64(n)
		if err != nil {
			return bytesIn, 0, err
		}
		buf.Advance(len(pending))
	}

	done := make(chan struct{})
	go func() {
		n, _ := io.Copy(dst, src)
		bytesIn += n
		// Half-close toward the upstream so it sees client EOF.
		if tc, ok := dst.(*net.TCPConn); ok {
			tc.CloseWrite()
		}
		close(done)
	}()

	bytesOut, _ = io.Copy(src, dst)
	<-done

	middleware.RecordForwardedBytes(protocol, bytesIn, bytesOut)
	return bytesIn, bytesOut, nil
}
