package core

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoggingMiddleware_RequestID(t *testing.T) {
	handler := LoggingMiddleware(&NoOpLogger{}, false)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))
	_, err := uuid.Parse(rec.Header().Get(RequestIDHeader))
	assert.NoError(t, err, "a fresh ID is generated")

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	req.Header.Set(RequestIDHeader, "caller-123")
	rec = httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	assert.Equal(t, "caller-123", rec.Header().Get(RequestIDHeader))
}

func TestLoggingMiddleware_Levels(t *testing.T) {
	tests := []struct {
		name    string
		status  int
		devMode bool
		wantMsg string
		wantLvl string
	}{
		{"success is quiet", http.StatusOK, false, "", ""},
		{"success in dev mode", http.StatusOK, true, "HTTP request", "DEBUG"},
		{"client error", http.StatusNotFound, false, "HTTP request client error", "WARN"},
		{"server error", http.StatusBadGateway, false, "HTTP request error", "ERROR"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			logger := &recordingLogger{}
			handler := LoggingMiddleware(logger, tt.devMode)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
			}))

			handler.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodPost, "/api/capabilities/x?debug=1", nil))

			if tt.wantMsg == "" {
				assert.Empty(t, logger.entries)
				return
			}
			entry, ok := logger.find(tt.wantMsg)
			require.True(t, ok)
			assert.Equal(t, tt.wantLvl, entry.level)
			assert.Equal(t, tt.status, entry.fields["status"])
			assert.Equal(t, "/api/capabilities/x", entry.fields["path"])
			assert.Equal(t, "debug=1", entry.fields["query"])
		})
	}
}

func TestRecoveryMiddleware(t *testing.T) {
	logger := &recordingLogger{}
	handler := RecoveryMiddleware(logger)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		panic("nil map")
	}))

	rec := httptest.NewRecorder()
	require.NotPanics(t, func() {
		handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/mcp", nil))
	})
	assert.Equal(t, http.StatusInternalServerError, rec.Code)

	entry, ok := logger.find("Recovered from panic in HTTP handler")
	require.True(t, ok)
	assert.Equal(t, "nil map", entry.fields["panic"])
}

func TestRecoveryMiddleware_AbortHandler(t *testing.T) {
	handler := RecoveryMiddleware(&NoOpLogger{})(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		panic(http.ErrAbortHandler)
	}))

	assert.PanicsWithValue(t, http.ErrAbortHandler, func() {
		handler.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/mcp", nil))
	})
}

func TestResponseWriter_FirstStatusWins(t *testing.T) {
	rec := httptest.NewRecorder()
	rw := &responseWriter{ResponseWriter: rec, statusCode: http.StatusOK}

	rw.WriteHeader(http.StatusAccepted)
	rw.WriteHeader(http.StatusInternalServerError)
	_, _ = rw.Write([]byte("ok"))

	assert.Equal(t, http.StatusAccepted, rw.statusCode)
	assert.Equal(t, http.StatusAccepted, rec.Code)
}
