// Command tcpfib is a demonstration server that sends each client the first
// n Fibonacci numbers, one per interval, and then hangs up.
package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/spf13/pflag"

	"github.com/die-net/tlsrelay/internal/cli"
	"github.com/die-net/tlsrelay/internal/demo"
	"github.com/die-net/tlsrelay/internal/logging"
	"github.com/die-net/tlsrelay/internal/metrics"
	"github.com/die-net/tlsrelay/internal/server"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run() error {
	var (
		port          = pflag.Uint16P("port", "p", 1730, "Port to listen on")
		n             = pflag.IntP("number", "n", 10, "How many Fibonacci numbers to send")
		interval      = pflag.DurationP("interval", "i", time.Second, "Delay after each number")
		public        = pflag.Bool("public", false, "Listen on all interfaces, not just loopback")
		threads       = pflag.Bool("threads", false, "Use all CPUs instead of a single one")
		shutdownGrace = pflag.Duration("shutdown-grace", server.DefaultShutdownGrace, "How long to wait for open connections on shutdown")
		metricsListen = pflag.String("metrics-listen", "", "Listen address for /metrics and /debug/pprof. Empty disables.")
		debug         = pflag.BoolP("debug", "d", false, "Enable debug logging")
	)
	pflag.Parse()

	if *n < 0 {
		return errors.New("--number must not be negative")
	}
	if *interval < 0 {
		return errors.New("--interval must not be negative")
	}

	log := logging.New(os.Stderr, *debug, false)
	m := metrics.New("")

	cfg := server.NewConfig(*port).
		WithPublic(*public).
		WithThreads(*threads).
		WithShutdownGrace(*shutdownGrace).
		WithLogger(log).
		WithMetrics(m)

	srv, err := server.New(cfg, demo.Fibonacci(log.With("component", "fibonacci"), *n, *interval))
	if err != nil {
		return err
	}
	return cli.Run(context.Background(), srv, *metricsListen, m, log)
}
