// Package metrics provides Prometheus instrumentation for the relay
// listeners. All methods are safe to call on a nil *Metrics.
package metrics

import (
	"net"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds the collectors for one process.
type Metrics struct {
	reg *prometheus.Registry

	ConnectionsAccepted prometheus.Counter
	ConnectionsActive   prometheus.Gauge
	AcceptErrors        prometheus.Counter
	HandshakeFailures   prometheus.Counter
	HandlerPanics       prometheus.Counter
	BytesRelayed        *prometheus.CounterVec
	SessionDuration     prometheus.Histogram
}

// New registers all collectors on a fresh registry under namespace.
func New(namespace string) *Metrics {
	if namespace == "" {
		namespace = "tlsrelay"
	}

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector())
	f := promauto.With(reg)

	return &Metrics{
		reg: reg,
		ConnectionsAccepted: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "connections_accepted_total",
			Help:      "Inbound connections accepted",
		}),
		ConnectionsActive: f.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "connections_active",
			Help:      "Connections currently being handled",
		}),
		AcceptErrors: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "accept_errors_total",
			Help:      "Transient accept failures",
		}),
		HandshakeFailures: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "tls_handshake_failures_total",
			Help:      "TLS handshakes that failed or were rejected",
		}),
		HandlerPanics: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "handler_panics_total",
			Help:      "Connection handlers that panicked",
		}),
		BytesRelayed: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "bytes_relayed_total",
			Help:      "Bytes read from each side of proxied connections",
		}, []string{"direction"}),
		SessionDuration: f.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "session_duration_seconds",
			Help:      "Lifetime of handled connections",
			Buckets:   prometheus.ExponentialBuckets(0.01, 2, 16),
		}),
	}
}

// Handler serves the registry in the Prometheus text format.
func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return http.NotFoundHandler()
	}
	return promhttp.HandlerFor(m.reg, promhttp.HandlerOpts{Registry: m.reg})
}

// Registry exposes the underlying registry, mainly for tests.
func (m *Metrics) Registry() *prometheus.Registry {
	if m == nil {
		return nil
	}
	return m.reg
}

func (m *Metrics) Accepted() {
	if m == nil {
		return
	}
	m.ConnectionsAccepted.Inc()
}

func (m *Metrics) AcceptFailed() {
	if m == nil {
		return
	}
	m.AcceptErrors.Inc()
}

func (m *Metrics) HandshakeFailed() {
	if m == nil {
		return
	}
	m.HandshakeFailures.Inc()
}

func (m *Metrics) Panicked() {
	if m == nil {
		return
	}
	m.HandlerPanics.Inc()
}

// SessionStarted marks a connection active and returns the func that ends it.
func (m *Metrics) SessionStarted() func() {
	if m == nil {
		return func() {}
	}
	start := time.Now()
	m.ConnectionsActive.Inc()
	return func() {
		m.ConnectionsActive.Dec()
		m.SessionDuration.Observe(time.Since(start).Seconds())
	}
}

// CountingConn counts bytes read from the wrapped connection under the given
// direction label.
func (m *Metrics) CountingConn(c net.Conn, direction string) net.Conn {
	if m == nil {
		return c
	}
	return &countingConn{Conn: c, counter: m.BytesRelayed.WithLabelValues(direction)}
}

type countingConn struct {
	net.Conn
	counter prometheus.Counter
}

func (c *countingConn) Read(p []byte) (int, error) {
	n, err := c.Conn.Read(p)
	if n > 0 {
		c.counter.Add(float64(n))
	}
	return n, err
}
