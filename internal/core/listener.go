package core

import (
	"context"
	"errors"
	"net"
	"strconv"
	"time"

	"github.com/SkynetNext/mesh-gateway/internal/config"
	"github.com/SkynetNext/mesh-gateway/internal/discovery"
	"github.com/SkynetNext/mesh-gateway/internal/header"
	"github.com/SkynetNext/mesh-gateway/internal/metrics"
	"github.com/SkynetNext/mesh-gateway/internal/middleware"
	"github.com/SkynetNext/mesh-gateway/internal/observability"
	httpproto "github.com/SkynetNext/mesh-gateway/internal/protocol/http"
	"github.com/SkynetNext/mesh-gateway/internal/protocol/tcp"
	"github.com/SkynetNext/mesh-gateway/internal/security"
	"github.com/SkynetNext/mesh-gateway/internal/sniff"
	"github.com/SkynetNext/mesh-gateway/pkg/xlog"
	"go.opentelemetry.io/otel/attribute"
)

// Listener accepts inbound connections and runs each through the
// detection pipeline: connection-header detection first, then the
// fallback protocol sniffer, all over one shared buffer so no byte is
// read twice or lost between detectors.
type Listener struct {
	cfg      *config.Config
	listener net.Listener

	security *security.Manager
	resolver *discovery.Resolver
	report   *metrics.Report

	headerDetector header.DetectHeader
	appDetector    sniff.DetectApp

	httpHandler *httpproto.Handler
	tcpHandler  *tcp.Handler
}

func NewListener(cfg *config.Config, sec *security.Manager, resolver *discovery.Resolver, report *metrics.Report) *Listener {
	return &Listener{
		cfg:         cfg,
		security:    sec,
		resolver:    resolver,
		report:      report,
		httpHandler: httpproto.NewHandler(cfg.Backends.HTTP.TargetURL, cfg.Backends.HTTP.Timeout),
		tcpHandler:  tcp.NewHandler(cfg.Backends.TCP.Timeout),
	}
}

func (l *Listener) Start() error {
	var err error
	l.listener, err = net.Listen("tcp", l.cfg.Server.ListenAddr)
	if err != nil {
		return err
	}

	xlog.Infof("Gateway listening on %s", l.cfg.Server.ListenAddr)

	go l.acceptLoop()
	return nil
}

// Addr reports the bound address, for callers that configured port 0.
func (l *Listener) Addr() net.Addr {
	if l.listener == nil {
		return nil
	}
	return l.listener.Addr()
}

func (l *Listener) Stop() {
	if l.listener != nil {
		l.listener.Close()
	}
}

func (l *Listener) acceptLoop() {
	for {
		conn, err := l.listener.Accept()
		if err != nil {
			if errors.Is(err, net.ErrClosed) {
				return
			}
			xlog.Errorf("Accept error: %v", err)
			continue
		}

		if err := l.security.Admit(conn); err != nil {
			xlog.Debugf("Rejected connection from %s: %v", conn.RemoteAddr(), err)
			conn.Close()
			continue
		}

		go l.handleConn(conn)
	}
}

func (l *Listener) handleConn(c net.Conn) {
	ctx, span := observability.StartSpan(context.Background(), "gateway.connection")
	defer span.End()
	span.SetAttributes(attribute.String("client.addr", c.RemoteAddr().String()))

	// Bound the whole detection phase: a peer that trickles bytes forever
	// never reaches a handler. The deadline is cleared before forwarding.
	c.SetReadDeadline(time.Now().Add(l.cfg.Detect.Timeout))

	buf := sniff.NewBuffer(l.cfg.Detect.BufferSize)
	start := time.Now()

	hdr, err := l.headerDetector.Detect(c, buf)
	if err != nil {
		result := detectionResult(err)
		middleware.RecordDetection(result, time.Since(start).Seconds())
		span.SetAttributes(attribute.String("detect.result", result))
		xlog.Warnf("Header detection failed for %s: %v", c.RemoteAddr(), err)
		c.Close()
		return
	}

	if hdr != nil {
		middleware.RecordDetection("header", time.Since(start).Seconds())
		span.SetAttributes(
			attribute.String("detect.result", "header"),
			attribute.String("header.name", hdr.Name),
			attribute.Int("header.port", int(hdr.Port)),
		)
		c.SetReadDeadline(time.Time{})
		l.forwardHeader(ctx, c, buf, hdr)
		return
	}

	// No connection header; classify the wrapped protocol on the same
	// buffer and hand the connection over with its bytes intact.
	app, err := l.appDetector.Detect(c, buf)
	if err != nil {
		middleware.RecordDetection("io_error", time.Since(start).Seconds())
		xlog.Debugf("Protocol sniff failed for %s: %v", c.RemoteAddr(), err)
		c.Close()
		return
	}
	middleware.RecordDetection("no_header", time.Since(start).Seconds())
	span.SetAttributes(attribute.String("detect.result", app.Kind.String()))
	c.SetReadDeadline(time.Time{})

	switch app.Kind {
	case sniff.ProtocolHTTP:
		xlog.Debugf("Connection from %s identified as HTTP", c.RemoteAddr())
		if l.httpHandler == nil {
			c.Close()
			return
		}
		l.httpHandler.ServeConn(c, buf)

	case sniff.ProtocolTCP, sniff.ProtocolTLS:
		xlog.Debugf("Connection from %s identified as %s", c.RemoteAddr(), app.Kind)
		l.forwardRaw(ctx, c, buf, app.Kind.String())

	default:
		xlog.Warnf("Empty connection from %s, closing", c.RemoteAddr())
		c.Close()
	}
}

// forwardHeader routes a header-bearing connection to the upstream its
// header names.
func (l *Listener) forwardHeader(ctx context.Context, c net.Conn, buf *sniff.Buffer, hdr *header.Header) {
	target := hdr.Name
	if target == "" {
		target = "default"
	}
	target = target + ":" + strconv.Itoa(int(hdr.Port))
	l.report.RecordRequest(target)

	addr, err := l.resolver.Resolve(ctx, hdr)
	if err != nil {
		xlog.Errorf("Failed to resolve %s: %v", target, err)
		l.report.RecordResponse(target, "unresolved", "failure", 0)
		c.Close()
		return
	}

	middleware.IncActiveConnections("header")
	defer middleware.DecActiveConnections("header")
	start := time.Now()

	bytesIn, bytesOut, err := l.tcpHandler.Handle(ctx, c, buf, addr, "header")
	elapsed := time.Since(start)

	status, class := "ok", "success"
	var errText string
	if err != nil {
		status, class = "error", "failure"
		errText = err.Error()
	}
	l.report.RecordResponse(target, status, class, elapsed)
	middleware.RecordConnectionDuration("header", elapsed.Seconds())

	middleware.Instance.Log(&middleware.AccessLog{
		Timestamp:  time.Now(),
		ClientIP:   c.RemoteAddr().String(),
		Protocol:   "header",
		Target:     addr,
		HeaderName: hdr.Name,
		HeaderPort: hdr.Port,
		DurationMs: elapsed.Milliseconds(),
		BytesIn:    bytesIn,
		BytesOut:   bytesOut,
		Error:      errText,
	})
}

// forwardRaw relays a headerless connection to the default TCP backend.
func (l *Listener) forwardRaw(ctx context.Context, c net.Conn, buf *sniff.Buffer, protocol string) {
	addr := l.cfg.Backends.TCP.TargetAddr
	if addr == "" {
		xlog.Warnf("No TCP backend configured, closing %s connection from %s", protocol, c.RemoteAddr())
		c.Close()
		return
	}

	middleware.IncActiveConnections(protocol)
	defer middleware.DecActiveConnections(protocol)
	start := time.Now()

	bytesIn, bytesOut, err := l.tcpHandler.Handle(ctx, c, buf, addr, protocol)
	elapsed := time.Since(start)
	middleware.RecordConnectionDuration(protocol, elapsed.Seconds())

	var errText string
	if err != nil {
		errText = err.Error()
	}
	middleware.Instance.Log(&middleware.AccessLog{
		Timestamp:  time.Now(),
		ClientIP:   c.RemoteAddr().String(),
		Protocol:   protocol,
		Target:     addr,
		DurationMs: elapsed.Milliseconds(),
		BytesIn:    bytesIn,
		BytesOut:   bytesOut,
		Error:      errText,
	})
}

// detectionResult maps a fatal detection error onto its metrics label.
func detectionResult(err error) string {
	switch {
	case errors.Is(err, header.ErrFrameTooLarge):
		return "oversized"
	case errors.Is(err, header.ErrTruncatedFrame):
		return "truncated"
	case errors.Is(err, header.ErrInvalidMessage):
		return "malformed"
	case errors.Is(err, header.ErrInvalidName):
		return "invalid_name"
	default:
		return "io_error"
	}
}
