package metrics

import (
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
)

var (
	globalMetrics *Metrics
	globalMu      sync.RWMutex
)

// Metrics holds all Prometheus metrics for the secret santa service
type Metrics struct {
	// Draw metrics
	DrawsTotal   *prometheus.CounterVec
	DrawAttempts prometheus.Histogram

	// SMS metrics
	SMSSentTotal           prometheus.Counter
	SMSFailedTotal         *prometheus.CounterVec
	SMSSendDurationSeconds prometheus.Histogram

	// HTTP metrics
	HTTPRequestsTotal *prometheus.CounterVec

	ActiveSessions prometheus.Gauge

	registry *prometheus.Registry
}

// New creates a new Metrics instance with all metrics registered
func New() *Metrics {
	reg := prometheus.NewRegistry()

	m := &Metrics{
		DrawsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "santa_draws_total",
				Help: "Total number of draws by outcome",
			},
			[]string{"outcome"},
		),
		DrawAttempts: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "santa_draw_attempts",
				Help:    "Number of randomized attempts a draw needed",
				Buckets: []float64{1, 2, 5, 10, 50, 100, 500, 1000},
			},
		),
		SMSSentTotal: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "santa_sms_sent_total",
				Help: "Total number of SMS accepted by the gateway",
			},
		),
		SMSFailedTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "santa_sms_failed_total",
				Help: "Total number of SMS that could not be sent",
			},
			[]string{"reason"},
		),
		SMSSendDurationSeconds: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "santa_sms_send_duration_seconds",
				Help:    "Duration of a single gateway call",
				Buckets: prometheus.DefBuckets,
			},
		),
		HTTPRequestsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "santa_http_requests_total",
				Help: "Total number of HTTP requests",
			},
			[]string{"method", "route", "status"},
		),
		ActiveSessions: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "santa_active_sessions",
				Help: "Number of in-memory sessions",
			},
		),
		registry: reg,
	}

	reg.MustRegister(
		m.DrawsTotal,
		m.DrawAttempts,
		m.SMSSentTotal,
		m.SMSFailedTotal,
		m.SMSSendDurationSeconds,
		m.HTTPRequestsTotal,
		m.ActiveSessions,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	return m
}

// Registry returns the Prometheus registry
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// SetGlobal sets the global metrics instance
func SetGlobal(m *Metrics) {
	globalMu.Lock()
	defer globalMu.Unlock()
	globalMetrics = m
}

// Global returns the global metrics instance
func Global() *Metrics {
	globalMu.RLock()
	defer globalMu.RUnlock()
	return globalMetrics
}

// ObserveDraw records a draw outcome and how many attempts it took
func ObserveDraw(outcome string, attempts int) {
	if m := Global(); m != nil {
		m.DrawsTotal.WithLabelValues(outcome).Inc()
		m.DrawAttempts.Observe(float64(attempts))
	}
}

// IncSMSSent increments the sent SMS counter
func IncSMSSent() {
	if m := Global(); m != nil {
		m.SMSSentTotal.Inc()
	}
}

// IncSMSFailed increments the failed SMS counter
func IncSMSFailed(reason string) {
	if m := Global(); m != nil {
		m.SMSFailedTotal.WithLabelValues(reason).Inc()
	}
}

// ObserveSendDuration records the duration of a gateway call
func ObserveSendDuration(d time.Duration) {
	if m := Global(); m != nil {
		m.SMSSendDurationSeconds.Observe(d.Seconds())
	}
}

// IncHTTPRequests increments the HTTP request counter
func IncHTTPRequests(method, route, status string) {
	if m := Global(); m != nil {
		m.HTTPRequestsTotal.WithLabelValues(method, route, status).Inc()
	}
}

// SetActiveSessions sets the active sessions gauge
func SetActiveSessions(n int) {
	if m := Global(); m != nil {
		m.ActiveSessions.Set(float64(n))
	}
}
