package utils

import "sync"

// MockLogger records every message for assertions in tests.
type MockLogger struct {
	mu       sync.Mutex
	messages []LogMessage
	level    LogLevel
}

// LogMessage is one recorded log call.
type LogMessage struct {
	Level   string
	Message string
	Args    []any
}

func NewMockLogger() *MockLogger {
	return &MockLogger{level: LogLevelDebug}
}

func (m *MockLogger) record(level LogLevel, name, msg string, args []any) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.level < level {
		return
	}
	m.messages = append(m.messages, LogMessage{Level: name, Message: msg, Args: args})
}

func (m *MockLogger) Debug(msg string, args ...any) { m.record(LogLevelDebug, "DEBUG", msg, args) }
func (m *MockLogger) Info(msg string, args ...any)  { m.record(LogLevelInfo, "INFO", msg, args) }
func (m *MockLogger) Warn(msg string, args ...any)  { m.record(LogLevelWarn, "WARN", msg, args) }
func (m *MockLogger) Error(msg string, args ...any) { m.record(LogLevelError, "ERROR", msg, args) }

func (m *MockLogger) SetLevel(level LogLevel) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.level = level
}

// Messages returns a copy of the recorded messages.
func (m *MockLogger) Messages() []LogMessage {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]LogMessage, len(m.messages))
	copy(out, m.messages)
	return out
}

// MessagesAt returns the recorded messages of one level ("DEBUG", "INFO", ...).
func (m *MockLogger) MessagesAt(level string) []LogMessage {
	var out []LogMessage
	for _, msg := range m.Messages() {
		if msg.Level == level {
			out = append(out, msg)
		}
	}
	return out
}

// Clear drops the recorded messages.
func (m *MockLogger) Clear() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.messages = nil
}
