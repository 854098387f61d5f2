package monitoring

import (
	"io"
	"log"
)

// Logf is the run-level logger used by the evtrack binary. It defaults to
// log.Printf and may be replaced by SetLogger; layer packages log through
// their own SetLogWriters streams instead.
var Logf func(format string, v ...interface{}) = log.Printf

// SetLogger replaces the package logger. Passing nil will set a no-op logger.
func SetLogger(f func(format string, v ...interface{})) {
	if f == nil {
		Logf = func(string, ...interface{}) {}
		return
	}
	Logf = f
}

// WriterLogger returns a Logf-compatible function writing prefixed lines
// to w, or nil when w is nil so that SetLogger mutes the stream.
func WriterLogger(w io.Writer, prefix string) func(format string, v ...interface{}) {
	if w == nil {
		return nil
	}
	l := log.New(w, prefix, log.LstdFlags|log.Lmicroseconds)
	return l.Printf
}
