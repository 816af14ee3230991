package client

import (
	"crypto/tls"
	"log/slog"
	"time"

	"github.com/die-net/tlsrelay/internal/dialer"
	"github.com/die-net/tlsrelay/internal/server"
)

const (
	// DefaultDialTimeout bounds connect plus TLS handshake.
	DefaultDialTimeout = 10 * time.Second
	// DefaultShutdownGrace is how long Run waits for fn after a signal.
	DefaultShutdownGrace = time.Second
)

// Config describes one outbound session. The With methods return a
// modified copy.
type Config struct {
	address       string
	tls           *tls.Config
	dialTimeout   time.Duration
	shutdownGrace time.Duration
	dialer        dialer.Dialer
	scheduler     server.Scheduler
	logger        *slog.Logger
}

func NewConfig(address string) Config {
	return Config{
		address:       address,
		dialTimeout:   DefaultDialTimeout,
		shutdownGrace: DefaultShutdownGrace,
		scheduler:     server.Cooperative(),
	}
}

// WithTLS negotiates TLS on the connection using cfg. An empty ServerName
// is filled in from the address.
func (c Config) WithTLS(cfg *tls.Config) Config {
	c.tls = cfg
	return c
}

func (c Config) WithDialTimeout(d time.Duration) Config {
	c.dialTimeout = d
	return c
}

func (c Config) WithShutdownGrace(d time.Duration) Config {
	c.shutdownGrace = d
	return c
}

// WithDialer routes the connection through d instead of dialing directly.
func (c Config) WithDialer(d dialer.Dialer) Config {
	c.dialer = d
	return c
}

func (c Config) WithThreads(threads bool) Config {
	if threads {
		c.scheduler = server.Parallel(0)
	} else {
		c.scheduler = server.Cooperative()
	}
	return c
}

func (c Config) WithLogger(l *slog.Logger) Config {
	c.logger = l
	return c
}

func (c Config) Address() string {
	return c.address
}
