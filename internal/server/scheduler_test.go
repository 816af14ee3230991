package server

import (
	"runtime"
	"testing"
)

// Not parallel: GOMAXPROCS is process-wide.
func TestSchedulerRestoresProcs(t *testing.T) {
	before := runtime.GOMAXPROCS(0)

	restoreA := Cooperative().Start()
	if got := runtime.GOMAXPROCS(0); got != 1 {
		t.Fatalf("cooperative: GOMAXPROCS = %d, want 1", got)
	}

	restoreB := Parallel(2).Start()
	if got := runtime.GOMAXPROCS(0); got != 2 {
		t.Fatalf("parallel(2): GOMAXPROCS = %d, want 2", got)
	}

	restoreA()
	restoreA()
	if got := runtime.GOMAXPROCS(0); got != 2 {
		t.Fatalf("after first restore: GOMAXPROCS = %d, want 2", got)
	}

	restoreB()
	if got := runtime.GOMAXPROCS(0); got != before {
		t.Fatalf("after last restore: GOMAXPROCS = %d, want %d", got, before)
	}
}

func TestSchedulerString(t *testing.T) {
	t.Parallel()

	if got := Cooperative().String(); got != "cooperative" {
		t.Fatalf("got %q", got)
	}
	if got := Parallel(3).String(); got != "parallel(3)" {
		t.Fatalf("got %q", got)
	}
	if got, want := Parallel(0).String(), Parallel(runtime.NumCPU()).String(); got != want {
		t.Fatalf("got %q, want %q", got, want)
	}
}
