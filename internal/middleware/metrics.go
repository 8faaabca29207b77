package middleware

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// ============================================================================
	// Connection Metrics
	// ============================================================================

	// ActiveConnections: Current active connections (Gauge)
	// Labels: protocol
	ActiveConnections = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "gateway_active_connections",
			Help: "Current number of active connections",
		},
		[]string{"protocol"},
	)

	// ConnectionsTotal: Total connections accepted (Counter)
	// Labels: protocol
	ConnectionsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "gateway_connections_total",
			Help: "Total number of connections accepted",
		},
		[]string{"protocol"},
	)

	// ConnectionDuration: Connection lifetime (Histogram)
	// Labels: protocol
	ConnectionDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "gateway_connection_duration_seconds",
			Help:    "Connection lifetime in seconds",
			Buckets: []float64{1, 5, 10, 30, 60, 300, 600, 1800, 3600},
		},
		[]string{"protocol"},
	)

	// ============================================================================
	// Header Detection Metrics
	// ============================================================================

	// DetectionsTotal: Outcomes of connection-header detection (Counter)
	// Labels: result (header, no_header, oversized, truncated, malformed,
	// invalid_name, io_error)
	DetectionsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "gateway_header_detections_total",
			Help: "Total connection-header detection attempts by outcome",
		},
		[]string{"result"},
	)

	// DetectionDuration: Time spent in the detection phase (Histogram)
	DetectionDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "gateway_header_detection_duration_seconds",
			Help:    "Time from accept to a detection decision",
			Buckets: []float64{0.0001, 0.0005, 0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1, 5},
		},
	)

	// ============================================================================
	// Forwarding Metrics
	// ============================================================================

	// ForwardedBytes: Bytes relayed between client and upstream (Counter)
	// Labels: protocol, direction (in/out)
	ForwardedBytes = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "gateway_forwarded_bytes_total",
			Help: "Total bytes forwarded between clients and upstreams",
		},
		[]string{"protocol", "direction"},
	)

	// UpstreamDials: Upstream dial attempts (Counter)
	// Labels: upstream, status (ok/error)
	UpstreamDials = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "gateway_upstream_dials_total",
			Help: "Total upstream dial attempts",
		},
		[]string{"upstream", "status"},
	)

	// UpstreamHealth: Upstream health status (Gauge, 1=healthy, 0=unhealthy)
	// Labels: upstream
	UpstreamHealth = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "gateway_upstream_health",
			Help: "Upstream health status (1=healthy, 0=unhealthy)",
		},
		[]string{"upstream"},
	)

	// ============================================================================
	// Security & Policy Metrics
	// ============================================================================

	// SecurityBlocksTotal: Total security blocks (Counter)
	// Labels: reason (rate_limit, blocked_ip)
	SecurityBlocksTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "gateway_security_blocks_total",
			Help: "Total connections rejected by security policies",
		},
		[]string{"reason"},
	)
)

func IncActiveConnections(protocol string) {
	ActiveConnections.WithLabelValues(protocol).Inc()
	ConnectionsTotal.WithLabelValues(protocol).Inc()
}

func DecActiveConnections(protocol string) {
	ActiveConnections.WithLabelValues(protocol).Dec()
}

// RecordConnectionDuration records connection lifetime
func RecordConnectionDuration(protocol string, durationSeconds float64) {
	ConnectionDuration.WithLabelValues(protocol).Observe(durationSeconds)
}

// RecordDetection records a detection outcome and its latency
func RecordDetection(result string, durationSeconds float64) {
	DetectionsTotal.WithLabelValues(result).Inc()
	DetectionDuration.Observe(durationSeconds)
}

// RecordForwardedBytes records relayed byte counts for one connection
func RecordForwardedBytes(protocol string, bytesIn, bytesOut int64) {
	ForwardedBytes.WithLabelValues(protocol, "in").Add(float64(bytesIn))
	ForwardedBytes.WithLabelValues(protocol, "out").Add(float64(bytesOut))
}

// RecordUpstreamDial records an upstream dial attempt
func RecordUpstreamDial(upstream string, err error) {
	status := "ok"
	if err != nil {
		status = "error"
	}
	UpstreamDials.WithLabelValues(upstream, status).Inc()
}

// SetUpstreamHealth sets upstream health status
func SetUpstreamHealth(upstream string, healthy bool) {
	health := 0.0
	if healthy {
		health = 1.0
	}
	UpstreamHealth.WithLabelValues(upstream).Set(health)
}

// RecordSecurityBlock records a rejected connection
func RecordSecurityBlock(reason string) {
	SecurityBlocksTotal.WithLabelValues(reason).Inc()
}
