// Package client runs a single outbound session: dial, optionally negotiate
// TLS, and hand the connection to a function until it returns or the
// process is asked to stop.
package client

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"os"
	"os/signal"
	"sync/atomic"
	"syscall"
	"time"

	"github.com/die-net/tlsrelay/internal/dialer"
	"github.com/die-net/tlsrelay/internal/logging"
	"github.com/die-net/tlsrelay/internal/relay"
	"github.com/die-net/tlsrelay/internal/tlsconf"
)

// ErrAlreadyRun is returned by a second call to Run on the same Client.
var ErrAlreadyRun = errors.New("client already run")

// Func uses an established connection. ctx is cancelled on SIGINT or
// SIGTERM; the connection is closed at the same time.
type Func func(ctx context.Context, conn net.Conn) error

type Client struct {
	cfg  Config
	log  *slog.Logger
	used atomic.Bool
}

func New(cfg Config) *Client {
	if cfg.dialer == nil {
		cfg.dialer = dialer.NewDirectDialer(dialer.Config{DialTimeout: cfg.dialTimeout})
	}
	return &Client{
		cfg: cfg,
		log: logging.OrDiscard(cfg.logger).With("component", "client"),
	}
}

// Run connects and calls fn. It returns fn's error, or nil if fn was cut
// short by a signal or cancellation of ctx. Run may be called only once.
func (c *Client) Run(ctx context.Context, fn Func) error {
	if !c.used.CompareAndSwap(false, true) {
		return ErrAlreadyRun
	}

	restore := c.cfg.scheduler.Start()
	defer restore()

	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	conn, err := c.connect(ctx)
	if err != nil {
		return err
	}
	defer conn.Close()

	c.log.Info("connected", "addr", c.cfg.address, "remote", conn.RemoteAddr().String(), "tls", c.cfg.tls != nil)

	errc := make(chan error, 1)
	go func() {
		errc <- fn(ctx, conn)
	}()

	select {
	case err := <-errc:
		return err
	case <-ctx.Done():
	}

	c.log.Debug("stopping", "grace", c.cfg.shutdownGrace)
	_ = conn.Close()

	timer := time.NewTimer(c.cfg.shutdownGrace)
	defer timer.Stop()
	select {
	case err := <-errc:
		if err != nil && !errors.Is(err, context.Canceled) && !errors.Is(err, net.ErrClosed) {
			c.log.Debug("session ended during shutdown", "error", err)
		}
	case <-timer.C:
		c.log.Warn("shutdown grace expired, abandoning session")
	}
	return nil
}

func (c *Client) connect(ctx context.Context) (net.Conn, error) {
	dctx := ctx
	if c.cfg.dialTimeout > 0 {
		var cancel context.CancelFunc
		dctx, cancel = context.WithTimeout(ctx, c.cfg.dialTimeout)
		defer cancel()
	}

	raw, err := c.cfg.dialer.DialContext(dctx, "tcp", c.cfg.address)
	if err != nil {
		return nil, fmt.Errorf("connect %s: %w", c.cfg.address, err)
	}
	if c.cfg.tls == nil {
		return raw, nil
	}

	tc, err := tlsconf.Connect(dctx, raw, c.cfg.tls, c.cfg.address)
	if err != nil {
		return nil, err
	}
	return tc, nil
}

// Interactive relays between the connection and a terminal until either
// side finishes.
func Interactive(log *slog.Logger, in io.Reader, out io.Writer) Func {
	return func(ctx context.Context, conn net.Conn) error {
		return relay.Bidirectional(ctx, log, conn, relay.Join(in, out))
	}
}
