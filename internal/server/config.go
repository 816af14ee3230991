package server

import (
	"log/slog"
	"net"
	"strconv"
	"time"

	"github.com/die-net/tlsrelay/internal/metrics"
	"github.com/die-net/tlsrelay/internal/tlsconf"
)

const (
	localAddress  = "127.0.0.1"
	publicAddress = "0.0.0.0"

	// DefaultShutdownGrace is how long a draining server waits for handlers.
	DefaultShutdownGrace = time.Second
	// DefaultHandshakeTimeout bounds each server-side TLS handshake.
	DefaultHandshakeTimeout = 10 * time.Second
)

// Config describes one listening endpoint. It is a value: the With methods
// return a modified copy and leave the receiver untouched.
type Config struct {
	port    uint16
	address string
	public  bool

	scheduler     Scheduler
	shutdownGrace time.Duration

	tls              *tlsconf.Material
	handshakeTimeout time.Duration

	keepAlive net.KeepAliveConfig

	logger  *slog.Logger
	metrics *metrics.Metrics
}

// NewConfig returns a loopback-only, cooperative, plain-TCP configuration
// for port.
func NewConfig(port uint16) Config {
	return Config{
		port:             port,
		scheduler:        Cooperative(),
		shutdownGrace:    DefaultShutdownGrace,
		handshakeTimeout: DefaultHandshakeTimeout,
		keepAlive:        net.KeepAliveConfig{Enable: true},
	}
}

// WithAddress overrides the listen address entirely, port included.
func (c Config) WithAddress(addr string) Config {
	c.address = addr
	return c
}

// WithPublic binds all interfaces instead of loopback.
func (c Config) WithPublic(public bool) Config {
	c.public = public
	return c
}

func (c Config) WithScheduler(s Scheduler) Config {
	c.scheduler = s
	return c
}

// WithThreads selects Parallel across all CPUs when threads is true and
// Cooperative otherwise.
func (c Config) WithThreads(threads bool) Config {
	if threads {
		c.scheduler = Parallel(0)
	} else {
		c.scheduler = Cooperative()
	}
	return c
}

func (c Config) WithShutdownGrace(d time.Duration) Config {
	c.shutdownGrace = d
	return c
}

// WithTLS enables TLS termination with m. Client authentication is required
// when m carries roots.
func (c Config) WithTLS(m *tlsconf.Material) Config {
	c.tls = m
	return c
}

func (c Config) WithHandshakeTimeout(d time.Duration) Config {
	c.handshakeTimeout = d
	return c
}

func (c Config) WithKeepAlive(ka net.KeepAliveConfig) Config {
	c.keepAlive = ka
	return c
}

func (c Config) WithLogger(l *slog.Logger) Config {
	c.logger = l
	return c
}

func (c Config) WithMetrics(m *metrics.Metrics) Config {
	c.metrics = m
	return c
}

// Address returns the host:port the endpoint binds.
func (c Config) Address() string {
	if c.address != "" {
		return c.address
	}
	host := localAddress
	if c.public {
		host = publicAddress
	}
	return net.JoinHostPort(host, strconv.Itoa(int(c.port)))
}

func (c Config) Public() bool {
	return c.public
}

func (c Config) ShutdownGrace() time.Duration {
	return c.shutdownGrace
}

func (c Config) Scheduler() Scheduler {
	return c.scheduler
}

// TLS reports whether the endpoint terminates TLS.
func (c Config) TLS() bool {
	return c.tls != nil
}
