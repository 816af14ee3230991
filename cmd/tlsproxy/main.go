// Command tlsproxy terminates TLS on a local port and relays the plaintext
// to a forward address.
package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/spf13/pflag"

	"github.com/die-net/tlsrelay/internal/cli"
	"github.com/die-net/tlsrelay/internal/dialer"
	"github.com/die-net/tlsrelay/internal/logging"
	"github.com/die-net/tlsrelay/internal/metrics"
	"github.com/die-net/tlsrelay/internal/server"
	"github.com/die-net/tlsrelay/internal/tlsconf"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run() error {
	var (
		certPath = pflag.StringP("cert", "c", "", "Path to the PEM certificate chain, leaf first (required)")
		keyPath  = pflag.StringP("key", "k", "", "Path to the PEM PKCS#8 private key (required)")
		authRoot = pflag.StringP("authenticate", "a", "", "Path to PEM root certificates; clients must present a certificate chaining to them")

		upstream      = pflag.String("upstream", "direct://", "How to reach the forward address: direct:// | socks5://[user:pass@]host:port")
		dialTimeout   = pflag.Duration("dial-timeout", 10*time.Second, "Timeout for connecting to the forward address")
		handshake     = pflag.Duration("handshake-timeout", server.DefaultHandshakeTimeout, "Timeout for each client TLS handshake")
		shutdownGrace = pflag.Duration("shutdown-grace", server.DefaultShutdownGrace, "How long to wait for open connections on shutdown")
		tcpKeepAlive  = pflag.String("tcp-keepalive", "45:45:3", "TCP keepalive: on|off|keepidle:keepintvl:keepcnt")
		metricsListen = pflag.String("metrics-listen", "", "Listen address for /metrics and /debug/pprof (e.g. 127.0.0.1:9090). Empty disables.")

		local   = pflag.Bool("local", false, "Listen on loopback only instead of all interfaces")
		threads = pflag.Bool("threads", false, "Use all CPUs instead of a single one")
		debug   = pflag.BoolP("debug", "d", false, "Enable debug logging")
		trace   = pflag.Bool("trace", false, "Log every relayed chunk")
	)

	pflag.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage: %s <listen-port> <forward-address> --cert PATH --key PATH [flags]\n", os.Args[0])
		pflag.PrintDefaults()
	}
	pflag.CommandLine.SortFlags = false
	pflag.Parse()

	if pflag.NArg() != 2 {
		pflag.Usage()
		return errors.New("expected <listen-port> and <forward-address>")
	}
	port, err := cli.ParsePort(pflag.Arg(0))
	if err != nil {
		return err
	}
	forward := pflag.Arg(1)

	if *certPath == "" || *keyPath == "" {
		return errors.New("--cert and --key are required")
	}

	ka, err := cli.ParseTCPKeepAlive(*tcpKeepAlive)
	if err != nil {
		return fmt.Errorf("invalid --tcp-keepalive: %w", err)
	}

	log := logging.New(os.Stderr, *debug, *trace)

	material, err := tlsconf.LoadMaterial(*certPath, *keyPath, *authRoot)
	if err != nil {
		return err
	}

	d, err := dialer.New(dialer.Config{
		DialTimeout:        *dialTimeout,
		NegotiationTimeout: *handshake,
		KeepAlive:          ka,
	}, *upstream)
	if err != nil {
		return fmt.Errorf("invalid --upstream: %w", err)
	}

	m := metrics.New("")

	cfg := server.NewConfig(port).
		WithPublic(!*local).
		WithThreads(*threads).
		WithTLS(material).
		WithHandshakeTimeout(*handshake).
		WithShutdownGrace(*shutdownGrace).
		WithKeepAlive(ka).
		WithLogger(log).
		WithMetrics(m)

	log.Info("starting", "listen", cfg.Address(), "forward", forward, "client_auth", *authRoot != "")

	srv, err := server.New(cfg, &forwarder{
		dialer:  d,
		forward: forward,
		metrics: m,
		log:     log.With("component", "proxy"),
	})
	if err != nil {
		return err
	}

	if err := cli.Run(context.Background(), srv, *metricsListen, m, log); err != nil {
		return err
	}
	log.Info("shut down")
	return nil
}
