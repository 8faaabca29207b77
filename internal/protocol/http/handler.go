package http

import (
	"net"
	"net/http"
	"net/http/httputil"
	"net/url"
	"time"

	"github.com/SkynetNext/mesh-gateway/internal/middleware"
	"github.com/SkynetNext/mesh-gateway/internal/observability"
	"github.com/SkynetNext/mesh-gateway/internal/sniff"
	"github.com/SkynetNext/mesh-gateway/pkg/xlog"
)

// Handler serves connections the fallback sniffer classified as HTTP by
// reverse-proxying them to the configured HTTP backend.
type Handler struct {
	proxy   *httputil.ReverseProxy
	backend string
}

func NewHandler(targetURL string, timeout time.Duration) *Handler {
	if targetURL == "" {
		xlog.Errorf("CRITICAL: backends.http.target_url is not configured")
		return nil
	}

	target, err := url.Parse(targetURL)
	if err != nil {
		xlog.Errorf("CRITICAL: Invalid backend URL: %s, error: %v", targetURL, err)
		return nil
	}

	proxy := httputil.NewSingleHostReverseProxy(target)
	originalDirector := proxy.Director
	proxy.Director = func(req *http.Request) {
		originalDirector(req)
		req.Header.Set("X-Gateway-ID", "meshgw-v1")
		observability.InjectTraceContext(req.Context(), req)
	}

	return &Handler{
		proxy:   proxy,
		backend: targetURL,
	}
}

// ServeConn serves a single already-classified connection. Bytes the
// detectors pulled off the transport are replayed ahead of the raw
// connection so the HTTP server sees the request from its first byte.
func (h *Handler) ServeConn(c net.Conn, buf *sniff.Buffer) {
	middleware.IncActiveConnections("http")
	defer middleware.DecActiveConnections("http")

	start := time.Now()
	l := &oneShotListener{c: newPrefixedConn(c, buf.SplitTo(buf.Len()))}

	wrapped := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		recorder := &statusRecorder{ResponseWriter: w, statusCode: http.StatusOK}
		h.proxy.ServeHTTP(recorder, r)

		middleware.Instance.Log(&middleware.AccessLog{
			Timestamp:  time.Now(),
			ClientIP:   r.RemoteAddr,
			Protocol:   "http",
			Target:     h.backend,
			Status:     recorder.statusCode,
			DurationMs: time.Since(start).Milliseconds(),
		})
	})

	server := &http.Server{
		Handler:      wrapped,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 30 * time.Second,
	}

	if err := server.Serve(l); err != nil && err != ErrListenerClosed {
		xlog.Debugf("HTTP Serve finished: %v", err)
	}

	middleware.RecordConnectionDuration("http", time.Since(start).Seconds())
}

type statusRecorder struct {
	http.ResponseWriter
	statusCode int
}

func (sr *statusRecorder) WriteHeader(code int) {
	sr.statusCode = code
	sr.ResponseWriter.WriteHeader(code)
}

// oneShotListener hands a single established connection to http.Server
// and then reports closed.
type oneShotListener struct {
	c    net.Conn
	done bool
}

var ErrListenerClosed = net.ErrClosed

func (l *oneShotListener) Accept() (net.Conn, error) {
	if l.done {
		return nil, ErrListenerClosed
	}
	l.done = true
	return l.c, nil
}

func (l *oneShotListener) Close() error {
	return nil
}

func (l *oneShotListener) Addr() net.Addr {
	return l.c.LocalAddr()
}
