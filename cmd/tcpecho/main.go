// Command tcpecho is a demonstration server that echoes every byte back to
// the client.
package main

import (
	"context"
	"fmt"
	"os"

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
		port          = pflag.Uint16P("port", "p", 1729, "Port to listen on")
		public        = pflag.Bool("public", false, "Listen on all interfaces, not just loopback")
		threads       = pflag.Bool("threads", false, "Use all CPUs instead of a single one")
		shutdownGrace = pflag.Duration("shutdown-grace", server.DefaultShutdownGrace, "How long to wait for open connections on shutdown")
		metricsListen = pflag.String("metrics-listen", "", "Listen address for /metrics and /debug/pprof. Empty disables.")
		debug         = pflag.BoolP("debug", "d", false, "Enable debug logging")
		trace         = pflag.Bool("trace", false, "Log every echoed chunk")
	)
	pflag.Parse()

	log := logging.New(os.Stderr, *debug, *trace)
	m := metrics.New("")

	cfg := server.NewConfig(*port).
		WithPublic(*public).
		WithThreads(*threads).
		WithShutdownGrace(*shutdownGrace).
		WithLogger(log).
		WithMetrics(m)

	srv, err := server.New(cfg, demo.Echo(log.With("component", "echo")))
	if err != nil {
		return err
	}
	return cli.Run(context.Background(), srv, *metricsListen, m, log)
}
