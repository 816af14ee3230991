// Package socks5 speaks just enough SOCKS5 (RFC 1928, RFC 1929) to reach a
// forward address through an upstream SOCKS5 proxy, plus the matching
// server half used to stand one up locally.
//
// Wire encoding is delegated to github.com/txthinking/socks5; this package
// only sequences the exchanges and turns failures into errors.
package socks5
