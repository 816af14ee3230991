// Command tlsclient connects to a TLS server and relays stdin and stdout
// over the connection.
package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/spf13/pflag"

	"github.com/die-net/tlsrelay/internal/client"
	"github.com/die-net/tlsrelay/internal/dialer"
	"github.com/die-net/tlsrelay/internal/logging"
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
		rootPath = pflag.StringP("root", "r", "", "Path to the PEM root certificates the server must chain to (required)")
		certPath = pflag.StringP("cert", "c", "", "Path to a PEM client certificate chain, for servers that authenticate clients")
		keyPath  = pflag.StringP("key", "k", "", "Path to the PEM PKCS#8 key for --cert")

		upstream      = pflag.String("upstream", "direct://", "How to reach the server: direct:// | socks5://[user:pass@]host:port")
		dialTimeout   = pflag.Duration("dial-timeout", client.DefaultDialTimeout, "Timeout for connecting and the TLS handshake")
		shutdownGrace = pflag.Duration("shutdown-grace", client.DefaultShutdownGrace, "How long to wait for the session on shutdown")

		threads = pflag.Bool("threads", false, "Use all CPUs instead of a single one")
		debug   = pflag.BoolP("debug", "d", false, "Enable debug logging")
		trace   = pflag.Bool("trace", false, "Log every relayed chunk")
	)

	pflag.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage: %s <address> --root PATH [flags]\n", os.Args[0])
		pflag.PrintDefaults()
	}
	pflag.CommandLine.SortFlags = false
	pflag.Parse()

	if pflag.NArg() != 1 {
		pflag.Usage()
		return errors.New("expected <address>")
	}
	address := pflag.Arg(0)

	if *rootPath == "" {
		return errors.New("--root is required")
	}

	log := logging.New(os.Stderr, *debug, *trace)

	tlsCfg, err := tlsconf.ClientConfig(*rootPath, *certPath, *keyPath)
	if err != nil {
		return err
	}

	d, err := dialer.New(dialer.Config{DialTimeout: *dialTimeout, NegotiationTimeout: 10 * time.Second}, *upstream)
	if err != nil {
		return fmt.Errorf("invalid --upstream: %w", err)
	}

	cfg := client.NewConfig(address).
		WithTLS(tlsCfg).
		WithDialer(d).
		WithDialTimeout(*dialTimeout).
		WithShutdownGrace(*shutdownGrace).
		WithThreads(*threads).
		WithLogger(log)

	err = client.New(cfg).Run(context.Background(), client.Interactive(log, os.Stdin, os.Stdout))
	if err != nil {
		return err
	}
	log.Debug("session closed")
	return nil
}
