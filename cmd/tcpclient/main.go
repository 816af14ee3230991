// Command tcpclient is a telnet-like client: it relays stdin and stdout
// over a plain TCP connection.
package main

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/spf13/pflag"

	"github.com/die-net/tlsrelay/internal/client"
	"github.com/die-net/tlsrelay/internal/logging"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run() error {
	var (
		dialTimeout   = pflag.Duration("dial-timeout", client.DefaultDialTimeout, "Timeout for connecting")
		shutdownGrace = pflag.Duration("shutdown-grace", client.DefaultShutdownGrace, "How long to wait for the session on shutdown")
		threads       = pflag.Bool("threads", false, "Use all CPUs instead of a single one")
		debug         = pflag.BoolP("debug", "d", false, "Enable debug logging")
	)

	pflag.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage: %s <address> [flags]\n", os.Args[0])
		pflag.PrintDefaults()
	}
	pflag.Parse()

	if pflag.NArg() != 1 {
		pflag.Usage()
		return errors.New("expected <address>")
	}

	log := logging.New(os.Stderr, *debug, false)

	cfg := client.NewConfig(pflag.Arg(0)).
		WithDialTimeout(*dialTimeout).
		WithShutdownGrace(*shutdownGrace).
		WithThreads(*threads).
		WithLogger(log)

	return client.New(cfg).Run(context.Background(), client.Interactive(log, os.Stdin, os.Stdout))
}
