package relay

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"sync"

	"github.com/die-net/tlsrelay/internal/logging"
)

// Directions reported in TransferError and log lines.
const (
	AToB = "a->b"
	BToA = "b->a"
)

// Duplex is one end of a relay: an independent read half and write half.
// If it also implements io.Closer it is closed when the relay finishes.
type Duplex interface {
	io.Reader
	io.Writer
}

// TransferError reports the direction whose copy failed first.
type TransferError struct {
	Direction string
	Err       error
}

func (e *TransferError) Error() string {
	return fmt.Sprintf("relay %s: %v", e.Direction, e.Err)
}

func (e *TransferError) Unwrap() error {
	return e.Err
}

type result struct {
	direction string
	err       error
}

// Bidirectional copies a to b and b to a concurrently and returns as soon as
// either direction finishes.
//
// A nil return means the first direction to finish hit EOF. A
// *TransferError means it failed. If ctx is cancelled first, ctx.Err() is
// returned. Half-close is not supported: once one direction is done both
// endpoints are closed and anything still in flight the other way is
// dropped. The losing copy is not waited for; closing the endpoints is what
// unblocks it.
func Bidirectional(ctx context.Context, log *slog.Logger, a, b Duplex) error {
	log = logging.OrDiscard(log)

	var closeOnce sync.Once
	closeBoth := func() {
		closeOnce.Do(func() {
			closeDuplex(a)
			closeDuplex(b)
		})
	}
	defer closeBoth()

	// Buffered so the abandoned copy can always report and exit.
	done := make(chan result, 2)

	go func() {
		_, err := Copy(log.With("direction", AToB), b, a)
		done <- result{direction: AToB, err: err}
	}()

	go func() {
		_, err := Copy(log.With("direction", BToA), a, b)
		done <- result{direction: BToA, err: err}
	}()

	select {
	case r := <-done:
		if r.err != nil {
			return &TransferError{Direction: r.direction, Err: r.err}
		}
		log.Debug("relay closed cleanly", "direction", r.direction)
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func closeDuplex(d Duplex) {
	if c, ok := d.(io.Closer); ok {
		_ = c.Close()
	}
}

// Join combines a separate reader and writer, such as stdin and stdout, into
// a Duplex. Close closes whichever halves implement io.Closer.
func Join(r io.Reader, w io.Writer) Duplex {
	return &joined{Reader: r, Writer: w}
}

type joined struct {
	io.Reader
	io.Writer
}

func (j *joined) Close() error {
	var rerr, werr error
	if c, ok := j.Reader.(io.Closer); ok {
		rerr = c.Close()
	}
	if c, ok := j.Writer.(io.Closer); ok {
		werr = c.Close()
	}
	if rerr != nil {
		return rerr
	}
	return werr
}
