package dialer

import (
	"net"
	"time"
)

// Config holds the settings shared by every dialer.
type Config struct {
	// DialTimeout bounds DNS lookup and TCP connect.
	DialTimeout time.Duration

	// NegotiationTimeout bounds the upstream proxy handshake.
	NegotiationTimeout time.Duration

	KeepAlive net.KeepAliveConfig
}
