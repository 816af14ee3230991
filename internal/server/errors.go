package server

import (
	"errors"
	"fmt"
)

var (
	// ErrAlreadyRun is returned by a second call to Run on the same Server.
	ErrAlreadyRun = errors.New("server already run")

	// ErrListenerClosed means the listener went away while the server was
	// still supposed to be accepting.
	ErrListenerClosed = errors.New("listener closed unexpectedly")
)

// BindError is a failure to bind the listen address. The accept loop never
// started.
type BindError struct {
	Addr string
	Err  error
}

func (e *BindError) Error() string {
	return fmt.Sprintf("bind %s: %v", e.Addr, e.Err)
}

func (e *BindError) Unwrap() error {
	return e.Err
}
