package panics

import (
	"fmt"
	"os"
	"runtime/debug"
	"time"

	"github.com/johnlito123/xuez-1/logs"
)

const exitHandlerTimeout = 5 * time.Second

// HandlePanic recovers a panic and, if one occurred, logs it and initiates a
// clean process exit. Intended to be deferred at the top of a goroutine.
func HandlePanic(log *logs.Logger, goroutineStackTrace []byte) {
	err := recover()
	if err == nil {
		return
	}
	exit(log, fmt.Sprintf("fatal error: %+v", err), debug.Stack(), goroutineStackTrace)
}

// GoroutineWrapperFunc returns a `go func(){...}()` wrapper that recovers
// panics in the spawned goroutine and routes them through HandlePanic instead
// of letting them crash the process silently.
func GoroutineWrapperFunc(log *logs.Logger) func(func()) {
	return func(f func()) {
		stackTrace := debug.Stack()
		go func() {
			defer HandlePanic(log, stackTrace)
			f()
		}()
	}
}

// Exit logs reason as a critical error and initiates a clean process exit.
// No package of this module calls it; a block the dispatcher cannot read
// back for GETDATA is answered with NOTFOUND instead.
func Exit(log *logs.Logger, reason string) {
	exit(log, reason, nil, nil)
}

func exit(log *logs.Logger, reason string, currentThreadStackTrace, goroutineStackTrace []byte) {
	done := make(chan struct{})
	go func() {
		log.Criticalf("exiting: %s", reason)
		if goroutineStackTrace != nil {
			log.Criticalf("goroutine stack trace: %s", goroutineStackTrace)
		}
		if currentThreadStackTrace != nil {
			log.Criticalf("stack trace: %s", currentThreadStackTrace)
		}
		log.Backend().Close()
		close(done)
	}()

	select {
	case <-time.After(exitHandlerTimeout):
		fmt.Fprintln(os.Stderr, "couldn't exit gracefully")
	case <-done:
	}
	os.Exit(1)
}
