package core

import (
	"bytes"
	"encoding/json"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// logEntry is one call recorded by recordingLogger
type logEntry struct {
	level  string
	msg    string
	fields map[string]interface{}
}

// recordingLogger captures log calls for assertions
type recordingLogger struct {
	mu      sync.Mutex
	entries []logEntry
}

func (l *recordingLogger) record(level, msg string, fields map[string]interface{}) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.entries = append(l.entries, logEntry{level: level, msg: msg, fields: fields})
}

func (l *recordingLogger) Info(msg string, fields map[string]interface{}) {
	l.record("INFO", msg, fields)
}
func (l *recordingLogger) Error(msg string, fields map[string]interface{}) {
	l.record("ERROR", msg, fields)
}
func (l *recordingLogger) Warn(msg string, fields map[string]interface{}) {
	l.record("WARN", msg, fields)
}
func (l *recordingLogger) Debug(msg string, fields map[string]interface{}) {
	l.record("DEBUG", msg, fields)
}

func (l *recordingLogger) find(msg string) (logEntry, bool) {
	l.mu.Lock()
	defer l.mu.Unlock()
	for _, e := range l.entries {
		if e.msg == msg {
			return e, true
		}
	}
	return logEntry{}, false
}

func newBufferedLogger(cfg LoggingConfig) (*ProductionLogger, *bytes.Buffer) {
	var buf bytes.Buffer
	l := NewProductionLogger(cfg, "mcp-nordic")
	l.SetOutput(&buf)
	return l, &buf
}

func TestProductionLogger_Text(t *testing.T) {
	l, buf := newBufferedLogger(LoggingConfig{Level: "info", Format: "text"})

	l.Info("Tool invoked", map[string]interface{}{
		"tool":  "dk_current_weather",
		"error": "Could not find location",
		"count": 3,
	})

	line := buf.String()
	assert.Contains(t, line, "[INFO] [mcp-nordic:server] Tool invoked")
	assert.True(t, strings.HasSuffix(line, ` count=3 error="Could not find location" tool=dk_current_weather`+"\n"), line)
}

func TestProductionLogger_JSON(t *testing.T) {
	l, buf := newBufferedLogger(LoggingConfig{Level: "debug", Format: "JSON"})

	l.WithComponent("registry").Warn("Heartbeat failed", map[string]interface{}{
		"error":   errors.New("connection refused"),
		"message": "reserved keys are kept",
	})

	var entry map[string]interface{}
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	assert.Equal(t, "WARN", entry["level"])
	assert.Equal(t, "mcp-nordic", entry["service"])
	assert.Equal(t, "registry", entry["component"])
	assert.Equal(t, "Heartbeat failed", entry["message"])
	assert.Equal(t, "connection refused", entry["error"])

	_, err := time.Parse(time.RFC3339, entry["timestamp"].(string))
	assert.NoError(t, err)
}

func TestProductionLogger_Levels(t *testing.T) {
	tests := []struct {
		level string
		want  []string
	}{
		{"debug", []string{"DEBUG", "INFO", "WARN"}},
		{"info", []string{"INFO", "WARN"}},
		{"warning", []string{"WARN"}},
		{"error", nil},
		{"", []string{"INFO", "WARN"}},
	}
	for _, tt := range tests {
		t.Run(tt.level, func(t *testing.T) {
			l, buf := newBufferedLogger(LoggingConfig{Level: tt.level})
			l.Debug("d", nil)
			l.Info("i", nil)
			l.Warn("w", nil)

			out := buf.String()
			for _, lvl := range []string{"DEBUG", "INFO", "WARN"} {
				wanted := false
				for _, w := range tt.want {
					wanted = wanted || w == lvl
				}
				assert.Equal(t, wanted, strings.Contains(out, "["+lvl+"]"), lvl)
			}
		})
	}
}

func TestProductionLogger_SetLevel(t *testing.T) {
	l, buf := newBufferedLogger(LoggingConfig{Level: "error"})
	l.Info("hidden", nil)
	l.SetLevel("info")
	l.Info("shown", nil)

	assert.NotContains(t, buf.String(), "hidden")
	assert.Contains(t, buf.String(), "shown")
}

func TestProductionLogger_ErrorRateLimit(t *testing.T) {
	l, buf := newBufferedLogger(LoggingConfig{Level: "info"})
	for i := 0; i < 5; i++ {
		l.Error("upstream failed", nil)
	}
	assert.Equal(t, 1, strings.Count(buf.String(), "upstream failed"))
}

func TestRateLimiter(t *testing.T) {
	r := NewRateLimiter(20 * time.Millisecond)
	assert.True(t, r.Allow())
	assert.False(t, r.Allow())
	time.Sleep(30 * time.Millisecond)
	assert.True(t, r.Allow())
}
