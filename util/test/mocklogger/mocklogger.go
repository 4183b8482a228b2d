// Package mocklogger provides a ulogger.Logger that counts and records log calls for assertions.
package mocklogger

import (
	"fmt"
	"strings"
	"sync"
	"testing"

	"github.com/bitnames/bitnames/ulogger"
)

type MockLogger struct {
	mu       sync.Mutex
	calls    map[string]int
	messages map[string][]string
}

func NewTestLogger() *MockLogger {
	return &MockLogger{
		calls:    make(map[string]int),
		messages: make(map[string][]string),
	}
}

func (l *MockLogger) LogLevel() int {
	return 0
}

func (l *MockLogger) SetLogLevel(_ string) {}

// New returns the same instance so that calls made by child loggers are counted too.
func (l *MockLogger) New(_ string, _ ...ulogger.Option) ulogger.Logger {
	return l
}

func (l *MockLogger) Duplicate(_ ...ulogger.Option) ulogger.Logger {
	return l
}

func (l *MockLogger) Debugf(format string, args ...interface{}) {
	l.recordCall("Debugf", format, args...)
}

func (l *MockLogger) Infof(format string, args ...interface{}) {
	l.recordCall("Infof", format, args...)
}

func (l *MockLogger) Warnf(format string, args ...interface{}) {
	l.recordCall("Warnf", format, args...)
}

func (l *MockLogger) Errorf(format string, args ...interface{}) {
	l.recordCall("Errorf", format, args...)
}

func (l *MockLogger) Fatalf(format string, args ...interface{}) {
	l.recordCall("Fatalf", format, args...)
}

func (l *MockLogger) recordCall(methodName string, format string, args ...interface{}) {
	l.mu.Lock()
	defer l.mu.Unlock()

	l.calls[methodName]++
	l.messages[methodName] = append(l.messages[methodName], fmt.Sprintf(format, args...))
}

// AssertNumberOfCalls verifies the expected number of calls to a method.
func (l *MockLogger) AssertNumberOfCalls(t *testing.T, methodName string, expectedCalls int) {
	t.Helper()

	l.mu.Lock()
	defer l.mu.Unlock()

	if actualCalls := l.calls[methodName]; actualCalls != expectedCalls {
		t.Errorf("Expected %v calls to %s, got %v", expectedCalls, methodName, actualCalls)
	}
}

// Contains reports whether any message logged through methodName contains substr.
func (l *MockLogger) Contains(methodName string, substr string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	for _, msg := range l.messages[methodName] {
		if strings.Contains(msg, substr) {
			return true
		}
	}

	return false
}

func (l *MockLogger) Reset() {
	l.mu.Lock()
	defer l.mu.Unlock()

	l.calls = make(map[string]int)
	l.messages = make(map[string][]string)
}
