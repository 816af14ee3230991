//go:build unix

package server

import (
	"context"
	"testing"
	"time"

	"golang.org/x/sys/unix"
)

// Not parallel: the signal reaches every server in the process.
func TestShutdownOnSIGTERM(t *testing.T) {
	r := startServer(t, NewConfig(0), echoHandler)

	if err := unix.Kill(unix.Getpid(), unix.SIGTERM); err != nil {
		t.Fatal(err)
	}

	select {
	case <-r.done:
		if r.err != nil {
			t.Fatalf("expected clean shutdown, got %v", r.err)
		}
	case <-time.After(10 * time.Second):
		t.Fatal("server ignored SIGTERM")
	}
}

// A signal sent the moment Ready closes must drain the server rather than
// reach the default handler. More processors widen any gap, so use several.
func TestSIGTERMRightAfterReady(t *testing.T) {
	for i := range 100 {
		srv, err := New(NewConfig(0).WithAddress("127.0.0.1:0").WithScheduler(Parallel(4)), echoHandler)
		if err != nil {
			t.Fatal(err)
		}

		errc := make(chan error, 1)
		go func() {
			errc <- srv.Run(context.Background())
		}()

		select {
		case <-srv.Ready():
		case err := <-errc:
			t.Fatalf("iteration %d: server failed: %v", i, err)
		}

		if err := unix.Kill(unix.Getpid(), unix.SIGTERM); err != nil {
			t.Fatal(err)
		}

		select {
		case err := <-errc:
			if err != nil {
				t.Fatalf("iteration %d: expected clean shutdown, got %v", i, err)
			}
		case <-time.After(10 * time.Second):
			t.Fatalf("iteration %d: server ignored SIGTERM", i)
		}
	}
}
