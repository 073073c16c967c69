// Package logger provides logging functionality for the bugme application.
package logger

import (
	"fmt"
	"os"
	"sync"
)

//go:generate go run go.uber.org/mock/mockgen@v0.5.2 -source=logger.go -destination=mocklogger.gen.go -package=logger

// Logger interface provides leveled logging capabilities.
type Logger interface {
	// Debugf logs a formatted debug message.
	Debugf(format string, args ...interface{})

	// Warnf logs a formatted warning message.
	Warnf(format string, args ...interface{})

	// Errorf logs a formatted error message.
	Errorf(format string, args ...interface{})
}

// noopLogger is a logger that does nothing.
type noopLogger struct{}

// NewNoopLogger creates a new noop logger.
func NewNoopLogger() Logger {
	return &noopLogger{}
}

// Debugf does nothing for noop logger.
func (n *noopLogger) Debugf(_ string, _ ...interface{}) {}

// Warnf does nothing for noop logger.
func (n *noopLogger) Warnf(_ string, _ ...interface{}) {}

// Errorf does nothing for noop logger.
func (n *noopLogger) Errorf(_ string, _ ...interface{}) {}

// defaultLogger is a thread-safe logger that writes to stderr.
type defaultLogger struct {
	mu      sync.Mutex
	verbose bool
}

// NewDefaultLogger creates a new default logger. Debug messages are only
// written when verbose is true.
func NewDefaultLogger(verbose bool) Logger {
	return &defaultLogger{verbose: verbose}
}

// Debugf writes a formatted debug message to stderr when verbose is enabled.
func (d *defaultLogger) Debugf(format string, args ...interface{}) {
	if !d.verbose {
		return
	}
	d.logf("DEBUG", format, args...)
}

// Warnf writes a formatted warning message to stderr.
func (d *defaultLogger) Warnf(format string, args ...interface{}) {
	d.logf("WARNING", format, args...)
}

// Errorf writes a formatted error message to stderr.
func (d *defaultLogger) Errorf(format string, args ...interface{}) {
	d.logf("ERROR", format, args...)
}

func (d *defaultLogger) logf(level, format string, args ...interface{}) {
	d.mu.Lock()
	defer d.mu.Unlock()
	fmt.Fprintf(os.Stderr, "%-8s %s\n", level, fmt.Sprintf(format, args...))
}
