// Package cli collects the flag parsing and side listeners shared by the
// tlsrelay binaries.
package cli
