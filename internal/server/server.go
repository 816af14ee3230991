package server

import (
	"context"
	"crypto/tls"
	"errors"
	"log/slog"
	"net"
	"os"
	"os/signal"
	"sync"
	"sync/atomic"
	"syscall"
	"time"

	"github.com/die-net/tlsrelay/internal/logging"
	"github.com/die-net/tlsrelay/internal/metrics"
	"github.com/die-net/tlsrelay/internal/tlsconf"
)

type state int32

const (
	stateCreated state = iota
	stateRunning
	stateDraining
	stateStopped
)

func (s state) String() string {
	switch s {
	case stateCreated:
		return "created"
	case stateRunning:
		return "running"
	case stateDraining:
		return "draining"
	case stateStopped:
		return "stopped"
	default:
		return "unknown"
	}
}

// The two ways a running server starts draining.
const (
	acceptorStopped = "acceptor stopped"
	signalReceived  = "signal received"
)

// Server owns one listening endpoint for the duration of a single Run.
type Server struct {
	cfg       Config
	handler   Handler
	tlsConfig *tls.Config
	log       *slog.Logger
	metrics   *metrics.Metrics

	state    atomic.Int32
	ready    chan struct{}
	done     chan struct{}
	quit     chan struct{}
	addr     net.Addr
	handlers sync.WaitGroup
}

// New prepares a server for cfg. The TLS configuration is built here, so
// the material in cfg is fixed for the lifetime of the server.
func New(cfg Config, h Handler) (*Server, error) {
	if h == nil {
		return nil, errors.New("server: nil handler")
	}
	if cfg.scheduler == nil {
		cfg.scheduler = Cooperative()
	}

	s := &Server{
		cfg:     cfg,
		handler: h,
		log:     logging.OrDiscard(cfg.logger).With("component", "server"),
		metrics: cfg.metrics,
		ready:   make(chan struct{}),
		done:    make(chan struct{}),
		quit:    make(chan struct{}),
	}
	if cfg.tls != nil {
		s.tlsConfig = tlsconf.ServerConfig(cfg.tls)
	}
	return s, nil
}

// Run binds the listener and serves until SIGINT, SIGTERM, cancellation of
// ctx, or a fatal listener error. It returns nil after a requested shutdown
// and the cause otherwise. Run may be called only once; later calls return
// ErrAlreadyRun.
func (s *Server) Run(ctx context.Context) error {
	if !s.state.CompareAndSwap(int32(stateCreated), int32(stateRunning)) {
		return ErrAlreadyRun
	}
	defer close(s.done)
	defer s.setState(stateStopped)

	restore := s.cfg.scheduler.Start()
	defer restore()

	// Installed before Ready so a signal can never hit the default handler.
	sigCtx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	ln, err := Listen(ctx, s.cfg.Address(), s.cfg.keepAlive)
	if err != nil {
		return err
	}
	s.addr = ln.Addr()
	close(s.ready)

	if s.cfg.public {
		s.log.Warn("listening on all interfaces", "addr", s.addr.String())
	}
	s.log.Info("listening", "addr", s.addr.String(), "tls", s.tlsConfig != nil, "scheduler", s.cfg.scheduler.String())

	// Handlers outlive ctx by up to the grace period.
	connCtx, cancelConns := context.WithCancel(context.WithoutCancel(ctx))
	defer cancelConns()

	acceptDone := make(chan error, 1)
	go func() {
		acceptDone <- s.acceptLoop(connCtx, ln)
	}()

	var (
		outcome string
		runErr  error
	)
	select {
	case runErr = <-acceptDone:
		outcome = acceptorStopped
	case <-sigCtx.Done():
		outcome = signalReceived
	}

	s.setState(stateDraining)
	close(s.quit)
	_ = ln.Close()
	if outcome == signalReceived {
		<-acceptDone
	}

	if runErr != nil {
		s.log.Error("draining", "reason", outcome, "error", runErr)
	} else {
		s.log.Info("draining", "reason", outcome)
	}

	s.drain(s.cfg.shutdownGrace)
	return runErr
}

// drain waits up to grace for handlers to finish. Whatever is still running
// afterwards has its context cancelled and is left behind.
func (s *Server) drain(grace time.Duration) {
	done := make(chan struct{})
	go func() {
		s.handlers.Wait()
		close(done)
	}()

	timer := time.NewTimer(grace)
	defer timer.Stop()

	select {
	case <-done:
		s.log.Debug("all connections closed")
	case <-timer.C:
		s.log.Warn("shutdown grace expired, abandoning connections", "grace", grace)
	}
}

// Ready is closed once the listener is bound and shutdown signals are
// being handled. It is never closed if binding fails; wait on Done as well.
func (s *Server) Ready() <-chan struct{} {
	return s.ready
}

// Done is closed when Run returns, whether or not Ready was ever closed.
func (s *Server) Done() <-chan struct{} {
	return s.done
}

// Addr returns the bound address, or nil before Ready is closed.
func (s *Server) Addr() net.Addr {
	select {
	case <-s.ready:
		return s.addr
	default:
		return nil
	}
}

func (s *Server) setState(st state) {
	old := state(s.state.Swap(int32(st)))
	s.log.Debug("state change", "from", old.String(), "to", st.String())
}
