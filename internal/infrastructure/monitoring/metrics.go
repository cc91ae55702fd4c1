package monitoring

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics manages the Prometheus metrics.
type Metrics struct {
	HTTPRequests      *prometheus.CounterVec
	HTTPLatency       *prometheus.HistogramVec
	StreamEvents      *prometheus.CounterVec
	MessagesStreamed  *prometheus.CounterVec
	StateStoreOps     *prometheus.CounterVec
	QuotaDenials      *prometheus.CounterVec
	RateLimitHits     *prometheus.CounterVec
	UsageCostUSD      *prometheus.CounterVec
}

// NewMetrics creates and registers the Prometheus metrics.
func NewMetrics() *Metrics {
	return &Metrics{
		HTTPRequests: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "nimbus_http_requests_total",
				Help: "Total number of HTTP requests.",
			},
			[]string{"method", "path", "status"},
		),
		HTTPLatency: promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "nimbus_http_request_duration_seconds",
				Help:    "Latency of HTTP requests.",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"method", "path"},
		),
		StreamEvents: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "nimbus_stream_events_total",
				Help: "Total number of normalized stream envelopes emitted.",
			},
			[]string{"type"},
		),
		MessagesStreamed: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "nimbus_messages_streamed_total",
				Help: "Total number of streamed assistant responses.",
			},
			[]string{"model", "result"},
		),
		StateStoreOps: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "nimbus_login_state_ops_total",
				Help: "Total number of login state store operations.",
			},
			[]string{"op", "result"},
		),
		QuotaDenials: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "nimbus_quota_denials_total",
				Help: "Total number of requests rejected for exhausted quota.",
			},
			[]string{"model"},
		),
		RateLimitHits: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "nimbus_rate_limit_hits_total",
				Help: "Total number of rate limit hits.",
			},
			[]string{"scope"},
		),
		UsageCostUSD: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "nimbus_usage_cost_usd_total",
				Help: "Accumulated model usage cost in USD.",
			},
			[]string{"model"},
		),
	}
}

// RecordHTTPRequest records one completed HTTP request.
func (m *Metrics) RecordHTTPRequest(method, path, status string, duration time.Duration) {
	m.HTTPRequests.WithLabelValues(method, path, status).Inc()
	m.HTTPLatency.WithLabelValues(method, path).Observe(duration.Seconds())
}

// RecordStreamEvent records one emitted envelope.
func (m *Metrics) RecordStreamEvent(envelopeType string) {
	m.StreamEvents.WithLabelValues(envelopeType).Inc()
}

// RecordMessageStreamed records the outcome of one streamed response.
func (m *Metrics) RecordMessageStreamed(model, result string) {
	m.MessagesStreamed.WithLabelValues(model, result).Inc()
}

// RecordStateStoreOp records a login state store operation.
func (m *Metrics) RecordStateStoreOp(op, result string) {
	m.StateStoreOps.WithLabelValues(op, result).Inc()
}

// RecordQuotaDenial records a request rejected by quota enforcement.
func (m *Metrics) RecordQuotaDenial(model string) {
	m.QuotaDenials.WithLabelValues(model).Inc()
}

// RecordRateLimitHit records a rate limit hit.
func (m *Metrics) RecordRateLimitHit(scope string) {
	m.RateLimitHits.WithLabelValues(scope).Inc()
}

// RecordUsageCost accumulates billed cost for a model.
func (m *Metrics) RecordUsageCost(model string, costUSD float64) {
	m.UsageCostUSD.WithLabelValues(model).Add(costUSD)
}
