// Package relay moves bytes between two endpoints.
//
// Copy is the one-directional unit: 512-byte chunks, write-all, stop on EOF
// or the first error. Bidirectional races two Copy calls and returns when
// the first finishes, closing both endpoints. It works on any io.Reader and
// io.Writer pair and does not care whether an endpoint is a raw TCP
// connection, a *tls.Conn or a terminal.
package relay
