package server

import (
	"runtime"
	"strconv"
	"sync"
)

// Scheduler decides how connection handlers share the CPU while a server
// runs. The acceptor and the relay never branch on it; they only spawn
// goroutines.
type Scheduler interface {
	// Start applies the strategy and returns a function that undoes it.
	Start() (restore func())
	String() string
}

// Cooperative runs every handler on a single logical processor. Handlers
// interleave only where they block on I/O or timers.
//
// GOMAXPROCS is process-wide and the most recent Start wins. A Cooperative
// server running alongside a Parallel one shares its processors.
func Cooperative() Scheduler {
	return procsScheduler{procs: 1}
}

// Parallel spreads handlers over n logical processors, or all CPUs when n
// is not positive.
func Parallel(n int) Scheduler {
	if n <= 0 {
		n = runtime.NumCPU()
	}
	return procsScheduler{procs: n, parallel: true}
}

type procsScheduler struct {
	procs    int
	parallel bool
}

func (s procsScheduler) Start() func() {
	return pinProcs(s.procs)
}

func (s procsScheduler) String() string {
	if !s.parallel {
		return "cooperative"
	}
	return "parallel(" + strconv.Itoa(s.procs) + ")"
}

// GOMAXPROCS is process-wide, so overlapping runs share one saved value and
// the last one out restores it.
var procs struct {
	sync.Mutex
	users int
	saved int
}

func pinProcs(n int) func() {
	procs.Lock()
	prev := runtime.GOMAXPROCS(n)
	if procs.users == 0 {
		procs.saved = prev
	}
	procs.users++
	procs.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			procs.Lock()
			defer procs.Unlock()
			procs.users--
			if procs.users == 0 {
				runtime.GOMAXPROCS(procs.saved)
			}
		})
	}
}
