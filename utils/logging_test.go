package utils

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLogLevelUnmarshalText(t *testing.T) {
	tests := []struct {
		in      string
		want    LogLevel
		wantErr bool
	}{
		{in: "off", want: LogLevelOff},
		{in: "ERROR", want: LogLevelError},
		{in: "warn", want: LogLevelWarn},
		{in: "warning", want: LogLevelWarn},
		{in: " Info ", want: LogLevelInfo},
		{in: "debug", want: LogLevelDebug},
		{in: "verbose", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			var level LogLevel
			err := level.UnmarshalText([]byte(tt.in))
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, level)
		})
	}
}

func TestLogLevelString(t *testing.T) {
	assert.Equal(t, "WARN", LogLevelWarn.String())
	assert.Equal(t, "DEBUG", LogLevelDebug.String())
	assert.Equal(t, "LogLevel(9)", LogLevel(9).String())
}

func TestDefaultLoggerRespectsLevel(t *testing.T) {
	var buf bytes.Buffer
	logger := NewLoggerWithWriter(LogLevelWarn, &buf)

	logger.Info("hidden message")
	logger.Warn("visible message", "step", 2)
	require.NoError(t, logger.Sync())

	out := buf.String()
	assert.NotContains(t, out, "hidden message")
	assert.Contains(t, out, "visible message")
	assert.Contains(t, out, "step")

	buf.Reset()
	logger.SetLevel(LogLevelDebug)
	logger.Debug("now visible")
	assert.Contains(t, buf.String(), "now visible")
}

func TestDefaultLoggerWith(t *testing.T) {
	var buf bytes.Buffer
	logger := NewLoggerWithWriter(LogLevelInfo, &buf).With("run_id", "abc")

	logger.Info("started")
	assert.Contains(t, buf.String(), "abc")
}

func TestLoggerImplementations(t *testing.T) {
	var _ Logger = NewLogger(LogLevelInfo)
	var _ Logger = NewNopLogger()
	var _ Logger = NewMockLogger()
}

func TestMockLogger(t *testing.T) {
	m := NewMockLogger()
	m.Info("one")
	m.Error("two", "k", "v")

	assert.Len(t, m.Messages(), 2)
	errs := m.MessagesAt("ERROR")
	require.Len(t, errs, 1)
	assert.Equal(t, "two", errs[0].Message)
	assert.Equal(t, []any{"k", "v"}, errs[0].Args)

	m.SetLevel(LogLevelError)
	m.Info("dropped")
	assert.Len(t, m.Messages(), 2)

	m.Clear()
	assert.Empty(t, m.Messages())
}
