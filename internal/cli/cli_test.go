package cli

import (
	"context"
	"io"
	"net"
	"net/http"
	"strings"
	"testing"
	"time"

	"go.uber.org/goleak"
	"golang.org/x/sync/errgroup"

	"github.com/die-net/tlsrelay/internal/logging"
	"github.com/die-net/tlsrelay/internal/metrics"
	"github.com/die-net/tlsrelay/internal/server"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

func TestParseTCPKeepAlive(t *testing.T) {
	t.Parallel()

	tests := []struct {
		in      string
		want    net.KeepAliveConfig
		wantErr bool
	}{
		{in: "on", want: net.KeepAliveConfig{Enable: true}},
		{in: " OFF ", want: net.KeepAliveConfig{}},
		{in: "45:45:3", want: net.KeepAliveConfig{Enable: true, Idle: 45 * time.Second, Interval: 45 * time.Second, Count: 3}},
		{in: "", wantErr: true},
		{in: "45:45", wantErr: true},
		{in: "0:45:3", wantErr: true},
		{in: "45:x:3", wantErr: true},
		{in: "45:45:-1", wantErr: true},
	}

	for _, tt := range tests {
		got, err := ParseTCPKeepAlive(tt.in)
		if (err != nil) != tt.wantErr {
			t.Fatalf("%q: err=%v wantErr=%v", tt.in, err, tt.wantErr)
		}
		if !tt.wantErr && got != tt.want {
			t.Fatalf("%q: got %+v want %+v", tt.in, got, tt.want)
		}
	}
}

func TestParsePort(t *testing.T) {
	t.Parallel()

	tests := []struct {
		in      string
		want    uint16
		wantErr bool
	}{
		{in: "1729", want: 1729},
		{in: "0", want: 0},
		{in: "65535", want: 65535},
		{in: "65536", wantErr: true},
		{in: "-1", wantErr: true},
		{in: "https", wantErr: true},
	}

	for _, tt := range tests {
		got, err := ParsePort(tt.in)
		if (err != nil) != tt.wantErr {
			t.Fatalf("%q: err=%v wantErr=%v", tt.in, err, tt.wantErr)
		}
		if got != tt.want {
			t.Fatalf("%q: got %d want %d", tt.in, got, tt.want)
		}
	}
}

func TestServeMetrics(t *testing.T) {
	t.Parallel()

	m := metrics.New("test")
	m.Accepted()

	ctx, cancel := context.WithCancel(context.Background())
	var g errgroup.Group
	addr, err := ServeMetrics(ctx, &g, "127.0.0.1:0", m, logging.Discard())
	if err != nil {
		t.Fatal(err)
	}

	client := &http.Client{Transport: &http.Transport{DisableKeepAlives: true}}
	resp, err := client.Get("http://" + addr.String() + "/metrics")
	if err != nil {
		t.Fatal(err)
	}
	body, err := io.ReadAll(resp.Body)
	_ = resp.Body.Close()
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(string(body), "test_connections_accepted_total 1") {
		t.Fatalf("accepted counter missing from:\n%s", body)
	}

	cancel()
	if err := g.Wait(); err != nil {
		t.Fatal(err)
	}
}

func TestRunStopsWithServer(t *testing.T) {
	t.Parallel()

	srv, err := server.New(server.NewConfig(0).WithAddress("127.0.0.1:0"), server.HandlerFunc(func(context.Context, *server.Conn) {}))
	if err != nil {
		t.Fatal(err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() {
		done <- Run(ctx, srv, "127.0.0.1:0", metrics.New("test"), logging.Discard())
	}()

	<-srv.Ready()
	cancel()

	select {
	case err := <-done:
		if err != nil {
			t.Fatal(err)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("Run did not return")
	}
}

func TestRunMetricsBindError(t *testing.T) {
	t.Parallel()

	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatal(err)
	}
	defer ln.Close()

	srv, err := server.New(server.NewConfig(0).WithAddress("127.0.0.1:0"), server.HandlerFunc(func(context.Context, *server.Conn) {}))
	if err != nil {
		t.Fatal(err)
	}

	if err := Run(context.Background(), srv, ln.Addr().String(), nil, logging.Discard()); err == nil {
		t.Fatal("expected metrics bind error")
	}
}
