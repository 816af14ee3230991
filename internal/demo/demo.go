// Package demo holds the per-connection handlers of the demonstration
// servers.
package demo

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"strconv"
	"time"

	"github.com/die-net/tlsrelay/internal/logging"
	"github.com/die-net/tlsrelay/internal/relay"
	"github.com/die-net/tlsrelay/internal/server"
)

// Echo writes back everything it reads until the client closes.
func Echo(log *slog.Logger) server.Handler {
	log = logging.OrDiscard(log)
	return server.HandlerFunc(func(_ context.Context, c *server.Conn) {
		n, err := relay.Copy(log, c, c)
		if err != nil {
			log.Warn("echo failed", "session", c.ID, "bytes", n, "error", err)
			return
		}
		log.Debug("echo done", "session", c.ID, "bytes", n)
	})
}

// Fibonacci writes the first n Fibonacci numbers, one per line, pausing
// interval after each, and then returns so the connection is closed.
func Fibonacci(log *slog.Logger, n int, interval time.Duration) server.Handler {
	log = logging.OrDiscard(log)
	return server.HandlerFunc(func(ctx context.Context, c *server.Conn) {
		if err := WriteFibonacci(ctx, c, n, interval); err != nil && !errors.Is(err, context.Canceled) {
			log.Warn("fibonacci failed", "session", c.ID, "error", err)
		}
	})
}

// WriteFibonacci writes 0, 1, 1, 2, ... to w. Values wrap at 2^64.
func WriteFibonacci(ctx context.Context, w io.Writer, n int, interval time.Duration) error {
	var a, b uint64 = 0, 1
	buf := make([]byte, 0, 24)

	timer := time.NewTimer(interval)
	timer.Stop()
	defer timer.Stop()

	for range n {
		buf = strconv.AppendUint(buf[:0], a, 10)
		buf = append(buf, '\n')
		if _, err := w.Write(buf); err != nil {
			return err
		}

		timer.Reset(interval)
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-timer.C:
		}

		a, b = b, a+b
	}
	return nil
}
