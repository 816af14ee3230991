// Package dialer opens the outbound half of a relayed connection, either
// directly or through an upstream SOCKS5 proxy chosen by URL.
package dialer
