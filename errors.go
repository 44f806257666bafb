package pluto

import (
	"errors"
	"fmt"
	"os"
)

// sentinelError is a minimal comparable error type so callers can use
// errors.Is against the package's recoverable error taxonomy (spec §7).
type sentinelError string

func (e sentinelError) Error() string { return string(e) }

func newSentinel(msg string) error { return sentinelError(msg) }

// Recoverable errors carried on a mutator's per-task error slot (spec §7).
var (
	ErrChannelClosed = newSentinel("pluto: channel closed")
	ErrChannelFull   = newSentinel("pluto: channel full")
	ErrChannelEmpty  = newSentinel("pluto: channel empty")
	ErrMathError     = newSentinel("pluto: math error")
)

// IsRecoverable reports whether err is one of the channel/task errors
// generated code is expected to check for at sequence points, rather than
// a fatal or programmer error.
func IsRecoverable(err error) bool {
	return errors.Is(err, ErrChannelClosed) ||
		errors.Is(err, ErrChannelFull) ||
		errors.Is(err, ErrChannelEmpty) ||
		errors.Is(err, ErrTaskCancelled) ||
		errors.Is(err, ErrMathError)
}

// defaultDetachedErrorSink prints a detached task's terminal error to
// stderr and swallows it (spec §7/§8 scenario 6). runtime.go replaces this
// with a structured-logger-backed sink once a Runtime is constructed.
func defaultDetachedErrorSink(err error) {
	fmt.Fprintf(os.Stderr, "pluto: detached task error: %v\n", err)
}

// fatal reports an unrecoverable condition (spec §7: "Fatal, abort
// process") and terminates. Centralized so every call site logs through
// the same diagnostic sink and the same message shapes as spec §6.4.
func fatal(sink diagnosticSink, msg string, kv ...any) {
	if sink == nil {
		sink = nopSink{}
	}
	sink.Fatal(msg, kv...)
	os.Exit(1)
}
