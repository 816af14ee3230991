package server

import (
	"context"
	"errors"
	"net"
	"runtime/debug"
	"time"

	"github.com/google/uuid"

	"github.com/die-net/tlsrelay/internal/tlsconf"
)

const (
	minAcceptDelay = 5 * time.Millisecond
	maxAcceptDelay = time.Second
)

// acceptLoop accepts until the server starts draining or the listener fails.
// Transient accept errors, such as running out of file descriptors, are
// retried with backoff.
func (s *Server) acceptLoop(ctx context.Context, ln net.Listener) error {
	var delay time.Duration
	for {
		raw, err := ln.Accept()
		if err != nil {
			select {
			case <-s.quit:
				return nil
			default:
			}
			if errors.Is(err, net.ErrClosed) {
				return ErrListenerClosed
			}

			s.metrics.AcceptFailed()
			delay = nextAcceptDelay(delay)
			s.log.Warn("accept failed", "error", err, "retry_in", delay)

			timer := time.NewTimer(delay)
			select {
			case <-s.quit:
				timer.Stop()
				return nil
			case <-timer.C:
			}
			continue
		}
		delay = 0

		s.metrics.Accepted()
		s.handlers.Go(func() {
			s.serve(ctx, raw)
		})
	}
}

func nextAcceptDelay(d time.Duration) time.Duration {
	if d == 0 {
		return minAcceptDelay
	}
	return min(2*d, maxAcceptDelay)
}

// serve runs the handler for one connection. A panic is confined to this
// connection.
func (s *Server) serve(ctx context.Context, raw net.Conn) {
	c := &Conn{Conn: raw, ID: uuid.NewString()}
	log := s.log.With("session", c.ID, "remote", raw.RemoteAddr().String())

	ended := s.metrics.SessionStarted()
	defer ended()

	// Cancellation after the shutdown grace tears the socket down under
	// whatever the handler is blocked on.
	stop := context.AfterFunc(ctx, func() {
		_ = raw.Close()
	})
	defer stop()

	defer func() {
		_ = c.Conn.Close()
	}()

	defer func() {
		if r := recover(); r != nil {
			s.metrics.Panicked()
			log.Error("handler panic", "panic", r, "stack", string(debug.Stack()))
		}
	}()

	if s.tlsConfig != nil {
		hctx, cancel := ctx, context.CancelFunc(func() {})
		if s.cfg.handshakeTimeout > 0 {
			hctx, cancel = context.WithTimeout(ctx, s.cfg.handshakeTimeout)
		}
		tc, err := tlsconf.Accept(hctx, raw, s.tlsConfig)
		cancel()
		if err != nil {
			s.metrics.HandshakeFailed()
			log.Warn("tls handshake failed", "error", err)
			return
		}
		st := tc.ConnectionState()
		c.Conn = tc
		c.TLS = &st
	}

	log.Debug("connection accepted")
	s.handler.ServeConn(ctx, c)
	log.Debug("connection finished")
}
