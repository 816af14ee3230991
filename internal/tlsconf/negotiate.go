package tlsconf

import (
	"context"
	"crypto/tls"
	"fmt"
	"net"
	"strings"
)

// HandshakeError is a failed TLS negotiation on one connection. The raw
// connection has already been closed when it is returned.
type HandshakeError struct {
	Remote string
	Err    error
}

func (e *HandshakeError) Error() string {
	return fmt.Sprintf("tls handshake with %s: %v", e.Remote, e.Err)
}

func (e *HandshakeError) Unwrap() error {
	return e.Err
}

// Accept runs the server side of the handshake on raw.
func Accept(ctx context.Context, raw net.Conn, cfg *tls.Config) (*tls.Conn, error) {
	conn := tls.Server(raw, cfg)
	if err := conn.HandshakeContext(ctx); err != nil {
		_ = raw.Close()
		return nil, &HandshakeError{Remote: remoteString(raw), Err: err}
	}
	return conn, nil
}

// Connect runs the client side of the handshake on raw. Unless cfg already
// names a server, the certificate must be valid for the host part of
// address.
func Connect(ctx context.Context, raw net.Conn, cfg *tls.Config, address string) (*tls.Conn, error) {
	if cfg.ServerName == "" {
		cfg = cfg.Clone()
		cfg.ServerName = Domain(address)
	}

	conn := tls.Client(raw, cfg)
	if err := conn.HandshakeContext(ctx); err != nil {
		_ = raw.Close()
		return nil, &HandshakeError{Remote: remoteString(raw), Err: err}
	}
	return conn, nil
}

// Domain strips the port from address: "localhost:1729" becomes "localhost".
func Domain(address string) string {
	host, _, err := net.SplitHostPort(address)
	if err != nil {
		return strings.TrimSuffix(strings.TrimPrefix(address, "["), "]")
	}
	return host
}

func remoteString(c net.Conn) string {
	if a := c.RemoteAddr(); a != nil {
		return a.String()
	}
	return "unknown"
}
