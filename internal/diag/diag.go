// Package diag provides the logging sink injected into pipeline components.
//
// The package mirrors the pluggable-backend pattern used by internal/metrics:
// components depend only on the Logger interface, a stdlib-log implementation
// is used in the binary, and a no-op implementation keeps unit tests silent
// without shared process state.
package diag

import "log"

// Logger is the minimal diagnostics sink used by pipeline components.
type Logger interface {
	Infof(format string, args ...any)
	Warnf(format string, args ...any)
	Errorf(format string, args ...any)
}

type std struct{ prefix string }

// Std returns a Logger writing to the standard log package with the given
// component prefix.
func Std(prefix string) Logger { return std{prefix: prefix} }

func (s std) Infof(format string, args ...any) {
	log.Printf(s.prefix+": "+format, args...)
}

func (s std) Warnf(format string, args ...any) {
	log.Printf(s.prefix+": WARN: "+format, args...)
}

func (s std) Errorf(format string, args ...any) {
	log.Printf(s.prefix+": ERROR: "+format, args...)
}

type nop struct{}

// Nop returns a Logger that discards everything.
func Nop() Logger { return nop{} }

func (nop) Infof(string, ...any)  {}
func (nop) Warnf(string, ...any)  {}
func (nop) Errorf(string, ...any) {}
