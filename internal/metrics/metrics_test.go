package metrics

import (
	"io"
	"net"
	"net/http/httptest"
	"strings"
	"testing"
)

func TestNilMetricsIsSafe(t *testing.T) {
	var m *Metrics

	m.Accepted()
	m.AcceptFailed()
	m.HandshakeFailed()
	m.Panicked()
	m.SessionStarted()()

	c1, c2 := net.Pipe()
	defer c1.Close()
	defer c2.Close()
	if got := m.CountingConn(c1, "inbound"); got != c1 {
		t.Fatal("expected nil metrics to return the conn unchanged")
	}
}

func TestCounters(t *testing.T) {
	m := New("test")

	m.Accepted()
	m.Accepted()
	m.HandshakeFailed()
	done := m.SessionStarted()

	assertMetric(t, m, "test_connections_accepted_total 2")
	assertMetric(t, m, "test_tls_handshake_failures_total 1")
	assertMetric(t, m, "test_connections_active 1")
	done()
	assertMetric(t, m, "test_connections_active 0")
	assertMetric(t, m, "test_session_duration_seconds_count 1")
}

func TestCountingConn(t *testing.T) {
	m := New("test")

	c1, c2 := net.Pipe()
	defer c1.Close()
	defer c2.Close()

	counted := m.CountingConn(c1, "inbound")
	go func() { _, _ = c2.Write([]byte("hello")) }()

	buf := make([]byte, 5)
	if _, err := io.ReadFull(counted, buf); err != nil {
		t.Fatal(err)
	}
	assertMetric(t, m, `test_bytes_relayed_total{direction="inbound"} 5`)
}

func TestNilHandler(t *testing.T) {
	var m *Metrics

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))
	if rec.Code != 404 {
		t.Fatalf("expected 404 from nil metrics, got %d", rec.Code)
	}
}

func assertMetric(t *testing.T, m *Metrics, line string) {
	t.Helper()

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))

	if !strings.Contains(rec.Body.String(), line) {
		t.Fatalf("metrics output missing %q:\n%s", line, rec.Body.String())
	}
}
