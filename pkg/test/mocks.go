// Package test holds shared test doubles for the runner, notifier and
// command tests.
package test

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"

	"privrun/pkg/identity"
	"privrun/pkg/runner"
)

// StaticStore is an in-memory identity.Store.
type StaticStore struct {
	Users map[string]identity.Identity
}

func (s *StaticStore) Lookup(name string) (identity.Identity, error) {
	id, ok := s.Users[name]
	if !ok {
		return identity.Identity{}, &identity.NotFoundError{Name: name}
	}
	return id, nil
}

// RunCall records one invocation of MockCommandRunner.Run.
type RunCall struct {
	Command   string
	UserName  string
	Overrides map[string]string
}

// MockCommandRunner is a mock implementation of runner.CommandRunner.
// It records every call and replays configured results without creating
// any process.
type MockCommandRunner struct {
	Calls  []RunCall
	Result *runner.Result
	Err    error
	// Lines are pushed to the sink of every call, simulating output.
	Lines []string
}

func (r *MockCommandRunner) Run(ctx context.Context, command, userName string, overrides map[string]string, sink runner.Sink) (*runner.Result, error) {
	r.Calls = append(r.Calls, RunCall{Command: command, UserName: userName, Overrides: overrides})
	if r.Err != nil {
		return nil, r.Err
	}
	if sink != nil {
		for _, line := range r.Lines {
			sink(line)
		}
	}
	if r.Result != nil {
		return r.Result, nil
	}
	return &runner.Result{}, nil
}

// RecordingSink captures every line forwarded to it.
type RecordingSink struct {
	Lines []string
}

func (s *RecordingSink) Sink(line string) {
	s.Lines = append(s.Lines, line)
}

// MockLogger is a shared mock Logger capturing formatted messages.
type MockLogger struct {
	Messages []string
	Level    slog.Level
}

// NewMockLogger creates a new MockLogger with the specified level.
func NewMockLogger(level slog.Level) *MockLogger {
	return &MockLogger{
		Messages: []string{},
		Level:    level,
	}
}

func (l *MockLogger) Debug(msg string, args ...any) {
	if l.Level <= slog.LevelDebug {
		l.captureMessage("DEBUG", msg, args...)
	}
}

func (l *MockLogger) Info(msg string, args ...any) {
	if l.Level <= slog.LevelInfo {
		l.captureMessage("INFO", msg, args...)
	}
}

func (l *MockLogger) Warn(msg string, args ...any) {
	if l.Level <= slog.LevelWarn {
		l.captureMessage("WARN", msg, args...)
	}
}

func (l *MockLogger) Error(msg string, args ...any) {
	if l.Level <= slog.LevelError {
		l.captureMessage("ERROR", msg, args...)
	}
}

func (l *MockLogger) captureMessage(level, msg string, args ...any) {
	buf := &bytes.Buffer{}
	buf.WriteString(level)
	buf.WriteString(": ")
	buf.WriteString(msg)
	for i := 0; i < len(args); i += 2 {
		if i+1 < len(args) {
			buf.WriteString(" ")
			buf.WriteString(fmt.Sprintf("%v", args[i]))
			buf.WriteString("=")
			buf.WriteString(fmt.Sprintf("%v", args[i+1]))
		}
	}
	l.Messages = append(l.Messages, buf.String())
}

// HasMessage checks if any captured message contains the given substring.
func (l *MockLogger) HasMessage(substring string) bool {
	for _, msg := range l.Messages {
		if bytes.Contains([]byte(msg), []byte(substring)) {
			return true
		}
	}
	return false
}

// Reset clears all captured messages.
func (l *MockLogger) Reset() {
	l.Messages = []string{}
}
