// Package server runs a listening endpoint: it binds once, accepts
// connections, optionally terminates TLS on each, and hands them to a
// Handler on their own goroutine.
//
// A Server is run once. It stops accepting on SIGINT, SIGTERM, context
// cancellation or listener failure, then gives in-flight handlers a bounded
// grace period before abandoning them.
package server
