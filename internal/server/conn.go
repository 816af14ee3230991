package server

import (
	"context"
	"crypto/tls"
	"net"
)

// Conn is an accepted connection as handed to a Handler. When the server
// terminates TLS, Conn.Conn is the negotiated *tls.Conn and TLS holds its
// state; the handler reads and writes plaintext either way.
type Conn struct {
	net.Conn

	// ID identifies the session in logs.
	ID string

	TLS *tls.ConnectionState
}

// Handler serves one connection. ctx is cancelled when the server gives up
// waiting for handlers during shutdown. The server closes the connection
// after ServeConn returns.
type Handler interface {
	ServeConn(ctx context.Context, c *Conn)
}

// HandlerFunc adapts a function to Handler.
type HandlerFunc func(ctx context.Context, c *Conn)

func (f HandlerFunc) ServeConn(ctx context.Context, c *Conn) {
	f(ctx, c)
}
