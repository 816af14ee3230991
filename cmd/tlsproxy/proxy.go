package main

import (
	"context"
	"errors"
	"log/slog"

	"github.com/die-net/tlsrelay/internal/dialer"
	"github.com/die-net/tlsrelay/internal/metrics"
	"github.com/die-net/tlsrelay/internal/relay"
	"github.com/die-net/tlsrelay/internal/server"
)

// forwarder relays each accepted connection to a fixed address. Dial
// failures drop the connection; nothing is retried.
type forwarder struct {
	dialer  dialer.Dialer
	forward string
	metrics *metrics.Metrics
	log     *slog.Logger
}

func (f *forwarder) ServeConn(ctx context.Context, c *server.Conn) {
	log := f.log.With("session", c.ID, "remote", c.RemoteAddr().String())

	upstream, err := f.dialer.DialContext(ctx, "tcp", f.forward)
	if err != nil {
		log.Error("could not forward", "forward", f.forward, "error", err)
		return
	}
	defer upstream.Close()

	log.Debug("forwarding", "forward", f.forward)

	err = relay.Bidirectional(ctx, log,
		f.metrics.CountingConn(c, relay.AToB),
		f.metrics.CountingConn(upstream, relay.BToA))

	var te *relay.TransferError
	switch {
	case err == nil:
		log.Debug("clean exit")
	case errors.As(err, &te):
		log.Warn("transfer failed", "direction", te.Direction, "error", te.Err)
	default:
		log.Debug("relay stopped", "error", err)
	}
}
