// Package ndnlog is a thin wrapper over the standard library's log package,
// giving every subsystem a fixed "pkgname: " prefix instead of hand-writing
// it at every call site.
package ndnlog

import "log"

// Logger prefixes every line with a subsystem tag.
type Logger struct {
	prefix string
}

// New returns a Logger tagged with name, e.g. ndnlog.New("chronosync").
func New(name string) *Logger {
	return &Logger{prefix: name + ": "}
}

// Printf logs a formatted line under this logger's prefix.
func (l *Logger) Printf(format string, args ...any) {
	log.Printf(l.prefix+format, args...)
}

// Named returns a child logger with an additional sub-tag, e.g.
// base.Named(sessionUUID) for "chronosync[3fa9...]: ".
func (l *Logger) Named(sub string) *Logger {
	return &Logger{prefix: l.prefix[:len(l.prefix)-2] + "[" + sub + "]: "}
}
