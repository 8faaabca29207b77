// Package metrics aggregates per-target traffic metrics for the routes a
// gateway serves. Entries are keyed by the opaque target label resolved
// for each connection; targets with no activity inside the retention
// window are pruned the next time the report is rendered, so one-off
// targets do not grow the scrape output forever.
package metrics

import (
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// latencyBuckets cover the gateway's expected response times, 1ms to 10s.
var latencyBuckets = []float64{
	0.001, 0.002, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10,
}

// Report is a registry of per-target request/response metrics that
// renders itself as a prometheus.Collector. Recording is cheap (one lock,
// map upserts); pruning happens on Collect.
type Report struct {
	retainIdle time.Duration
	now        func() time.Time

	requestDesc  *prometheus.Desc
	responseDesc *prometheus.Desc
	latencyDesc  *prometheus.Desc

	mu       sync.Mutex
	byTarget map[string]*targetMetrics
}

type targetMetrics struct {
	lastUpdate   time.Time
	requestTotal uint64
	byStatus     map[string]*statusMetrics
}

type statusMetrics struct {
	latencySum   float64
	latencyCount uint64
	buckets      []uint64 // parallel to latencyBuckets
	byClass      map[string]uint64
}

// NewReport creates a Report whose metric names carry prefix (e.g.
// "gateway_route"). Targets idle longer than retainIdle are dropped at
// render time.
func NewReport(prefix string, retainIdle time.Duration) *Report {
	return &Report{
		retainIdle: retainIdle,
		now:        time.Now,
		requestDesc: prometheus.NewDesc(
			prefix+"_request_total",
			"Total count of requests routed to a target.",
			[]string{"target"}, nil,
		),
		responseDesc: prometheus.NewDesc(
			prefix+"_response_total",
			"Total count of responses from a target.",
			[]string{"target", "status", "class"}, nil,
		),
		latencyDesc: prometheus.NewDesc(
			prefix+"_response_latency_seconds",
			"Elapsed times between a request reaching a target and its response completing.",
			[]string{"target", "status"}, nil,
		),
		byTarget: make(map[string]*targetMetrics),
	}
}

// RecordRequest counts a request routed to target.
func (r *Report) RecordRequest(target string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	tm := r.target(target)
	tm.requestTotal++
	tm.lastUpdate = r.now()
}

// RecordResponse counts a response with its status, classification and
// latency.
func (r *Report) RecordResponse(target, status, class string, latency time.Duration) {
	r.mu.Lock()
	defer r.mu.Unlock()

	tm := r.target(target)
	tm.lastUpdate = r.now()

	sm := tm.byStatus[status]
	if sm == nil {
		sm = &statusMetrics{
			buckets: make([]uint64, len(latencyBuckets)),
			byClass: make(map[string]uint64),
		}
		tm.byStatus[status] = sm
	}

	sec := latency.Seconds()
	sm.latencySum += sec
	sm.latencyCount++
	for i, bound := range latencyBuckets {
		if sec <= bound {
			sm.buckets[i]++
		}
	}
	sm.byClass[class]++
}

func (r *Report) target(target string) *targetMetrics {
	tm := r.byTarget[target]
	if tm == nil {
		tm = &targetMetrics{byStatus: make(map[string]*statusMetrics)}
		r.byTarget[target] = tm
	}
	return tm
}

// retainSince drops targets whose last activity predates since.
// Callers must hold r.mu.
func (r *Report) retainSince(since time.Time) {
	for target, tm := range r.byTarget {
		if tm.lastUpdate.Before(since) {
			delete(r.byTarget, target)
		}
	}
}

// Describe implements prometheus.Collector.
func (r *Report) Describe(ch chan<- *prometheus.Desc) {
	ch <- r.requestDesc
	ch <- r.responseDesc
	ch <- r.latencyDesc
}

// Collect implements prometheus.Collector. A failure while rendering
// produces an empty report for this scrape rather than taking down the
// metrics endpoint.
func (r *Report) Collect(ch chan<- prometheus.Metric) {
	defer func() {
		_ = recover()
	}()

	r.mu.Lock()
	defer r.mu.Unlock()

	r.retainSince(r.now().Add(-r.retainIdle))

	for target, tm := range r.byTarget {
		ch <- prometheus.MustNewConstMetric(
			r.requestDesc, prometheus.CounterValue,
			float64(tm.requestTotal), target,
		)

		for status, sm := range tm.byStatus {
			cumulative := make(map[float64]uint64, len(latencyBuckets))
			for i, bound := range latencyBuckets {
				cumulative[bound] = sm.buckets[i]
			}
			ch <- prometheus.MustNewConstHistogram(
				r.latencyDesc, sm.latencyCount, sm.latencySum,
				cumulative, target, status,
			)

			for class, total := range sm.byClass {
				ch <- prometheus.MustNewConstMetric(
					r.responseDesc, prometheus.CounterValue,
					float64(total), target, status, class,
				)
			}
		}
	}
}
