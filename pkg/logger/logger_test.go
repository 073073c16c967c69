//go:build unit

package logger

import (
	"testing"
)

func TestNoopLogger(t *testing.T) {
	logger := NewNoopLogger()

	// This should not panic or produce any output
	logger.Debugf("test message")
	logger.Warnf("test message with args: %s", "value")
	logger.Errorf("test message with args: %s", "value")
}

func TestDefaultLogger(t *testing.T) {
	logger := NewDefaultLogger(true)

	// These should write to stderr
	logger.Debugf("test message")
	logger.Warnf("test message with args: %s", "value")
	logger.Errorf("test message with args: %s", "value")
}

func TestDefaultLogger_ThreadSafety(t *testing.T) {
	logger := NewDefaultLogger(false)

	// Test concurrent access
	done := make(chan bool, 10)
	for i := 0; i < 10; i++ {
		go func(id int) {
			logger.Errorf("concurrent message from goroutine %d", id)
			done <- true
		}(i)
	}

	// Wait for all goroutines to complete
	for i := 0; i < 10; i++ {
		<-done
	}
}
