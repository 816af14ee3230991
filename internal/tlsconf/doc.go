// Package tlsconf loads certificate material and negotiates TLS on accepted
// or dialed connections.
//
// Certificate files are PEM. A key file must hold exactly one PKCS#8
// "PRIVATE KEY" block and a certificate file at least one "CERTIFICATE"
// block, leaf first. Anything else is a *ConfigError, reported before a
// listener starts.
//
// Accept and Connect wrap a raw net.Conn in a *tls.Conn. On failure they
// close the raw connection and return a *HandshakeError; callers never
// retry.
package tlsconf
