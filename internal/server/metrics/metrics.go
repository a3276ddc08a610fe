// Package metrics exposes keygate's Prometheus collectors. A nil *Metrics is
// valid and records nothing.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
)

const namespace = "keygate"

// Result labels.
const (
	ResultOK    = "ok"
	ResultError = "error"
)

type Metrics struct {
	registry *prometheus.Registry

	authAttempts   *prometheus.CounterVec
	redemptions    *prometheus.CounterVec
	keysIssued     *prometheus.CounterVec
	adminOps       *prometheus.CounterVec
	grpcRequests   *prometheus.CounterVec
	grpcDurations  *prometheus.HistogramVec
	rateLimitDrops prometheus.Counter
}

// New registers all collectors, plus the Go and process collectors, on a
// fresh registry.
func New() *Metrics {
	reg := prometheus.NewRegistry()

	m := &Metrics{
		registry: reg,
		authAttempts: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "auth_attempts_total",
			Help:      "Authentication attempts by operation and outcome.",
		}, []string{"op", "result"}),
		redemptions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "key_redemptions_total",
			Help:      "Activation key redemptions by subscription type and outcome.",
		}, []string{"type", "result"}),
		keysIssued: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "keys_issued_total",
			Help:      "Activation keys issued by subscription type.",
		}, []string{"type"}),
		adminOps: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "admin_operations_total",
			Help:      "Admin operations by name and outcome.",
		}, []string{"op", "result"}),
		grpcRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "grpc_requests_total",
			Help:      "gRPC requests by method and status code.",
		}, []string{"method", "code"}),
		grpcDurations: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "grpc_request_duration_seconds",
			Help:      "gRPC request latency.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"method"}),
		rateLimitDrops: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "rate_limited_requests_total",
			Help:      "Requests rejected by the per-peer rate limiter.",
		}),
	}

	reg.MustRegister(
		m.authAttempts,
		m.redemptions,
		m.keysIssued,
		m.adminOps,
		m.grpcRequests,
		m.grpcDurations,
		m.rateLimitDrops,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	return m
}

// Gatherer is what the /metrics handler serves.
func (m *Metrics) Gatherer() prometheus.Gatherer {
	if m == nil {
		return prometheus.NewRegistry()
	}
	return m.registry
}

func result(err error) string {
	if err != nil {
		return ResultError
	}
	return ResultOK
}

func (m *Metrics) AuthAttempt(op string, err error) {
	if m == nil {
		return
	}
	m.authAttempts.WithLabelValues(op, result(err)).Inc()
}

func (m *Metrics) Redemption(subscriptionType string, err error) {
	if m == nil {
		return
	}
	if subscriptionType == "" {
		subscriptionType = "unknown"
	}
	m.redemptions.WithLabelValues(subscriptionType, result(err)).Inc()
}

func (m *Metrics) KeyIssued(subscriptionType string) {
	if m == nil {
		return
	}
	m.keysIssued.WithLabelValues(subscriptionType).Inc()
}

func (m *Metrics) AdminOperation(op string, err error) {
	if m == nil {
		return
	}
	m.adminOps.WithLabelValues(op, result(err)).Inc()
}

func (m *Metrics) GRPCRequest(method, code string, d time.Duration) {
	if m == nil {
		return
	}
	m.grpcRequests.WithLabelValues(method, code).Inc()
	m.grpcDurations.WithLabelValues(method).Observe(d.Seconds())
}

func (m *Metrics) RateLimited() {
	if m == nil {
		return
	}
	m.rateLimitDrops.Inc()
}
