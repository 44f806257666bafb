// Package rtlog wraps github.com/rs/zerolog as the runtime's one
// process-wide structured logger, in the spirit of hydraide-hydraide's
// single log-handler-per-process wiring in app/server/main.go, simplified
// for an embeddable runtime (no graylog/slogmulti fan-out).
package rtlog

import (
	"os"

	"github.com/rs/zerolog"
)

// Sink matches the diagnosticSink interface the GC and scheduler use
// internally, so a *Logger can be passed directly to Heap.SetDiagnostics
// and Scheduler.SetDiagnostics.
type Sink interface {
	Warn(msg string, kv ...any)
	Fatal(msg string, kv ...any)
}

// Logger is the runtime's diagnostic sink: the STW quiesce timeout and
// deadlock warnings, the detached-task error warning and the exhaustive
// schedule summary (at info level) flow through one of these, with
// key/value fields instead of formatted strings. Fatal is wired through
// errors.go's fatal(), which no runtime code path calls.
type Logger struct {
	z zerolog.Logger
}

// New builds a Logger writing to stderr at the given level ("debug",
// "info", "warn", "error"); an unrecognized level falls back to "info".
func New(level string) *Logger {
	lvl, err := zerolog.ParseLevel(level)
	if err != nil {
		lvl = zerolog.InfoLevel
	}
	z := zerolog.New(os.Stderr).With().Timestamp().Logger().Level(lvl)
	return &Logger{z: z}
}

func withFields(e *zerolog.Event, kv []any) *zerolog.Event {
	for i := 0; i+1 < len(kv); i += 2 {
		key, ok := kv[i].(string)
		if !ok {
			continue
		}
		e = e.Interface(key, kv[i+1])
	}
	return e
}

// Warn logs a recoverable anomaly: STW quiesce budget exhausted, a
// deadlock under the test scheduler, a detached task's swallowed error.
func (l *Logger) Warn(msg string, kv ...any) {
	withFields(l.z.Warn(), kv).Msg(msg)
}

// Info logs routine runtime events, e.g. "Exhaustive: N schedules explored".
func (l *Logger) Info(msg string, kv ...any) {
	withFields(l.z.Info(), kv).Msg(msg)
}

// Fatal logs an unrecoverable condition. It does not call os.Exit itself —
// callers route through errors.go's fatal() so every hard-stop path exits
// the same way regardless of which sink is wired.
func (l *Logger) Fatal(msg string, kv ...any) {
	withFields(l.z.Error(), kv).Msg(msg)
}
