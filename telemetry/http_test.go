package telemetry

import (
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/propagation"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
)

func installRecorder(t *testing.T) *tracetest.SpanRecorder {
	t.Helper()
	recorder := tracetest.NewSpanRecorder()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(recorder))
	prev := otel.GetTracerProvider()
	otel.SetTracerProvider(tp)
	otel.SetTextMapPropagator(propagation.TraceContext{})
	t.Cleanup(func() { otel.SetTracerProvider(prev) })
	return recorder
}

func TestTracingMiddleware_CreatesServerSpan(t *testing.T) {
	recorder := installRecorder(t)

	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("OK"))
	})
	traced := TracingMiddleware("mcp-nordic")(handler)

	req := httptest.NewRequest("POST", "/mcp", nil)
	rec := httptest.NewRecorder()
	traced.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("Expected status 200, got %d", rec.Code)
	}
	spans := recorder.Ended()
	if len(spans) != 1 {
		t.Fatalf("Expected 1 span, got %d", len(spans))
	}
	if spans[0].Name() != "HTTP POST /mcp" {
		t.Errorf("Unexpected span name %q", spans[0].Name())
	}
}

func TestTracingMiddleware_ExcludedPaths(t *testing.T) {
	recorder := installRecorder(t)

	handlerCalled := false
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		handlerCalled = true
		w.WriteHeader(http.StatusOK)
	})
	traced := TracingMiddlewareWithConfig("mcp-nordic", &TracingMiddlewareConfig{
		ExcludedPaths: []string{"/health"},
	})(handler)

	rec := httptest.NewRecorder()
	traced.ServeHTTP(rec, httptest.NewRequest("GET", "/health", nil))

	if !handlerCalled {
		t.Error("Handler should have been called")
	}
	if n := len(recorder.Ended()); n != 0 {
		t.Errorf("Excluded path should not be traced, got %d spans", n)
	}
}

func TestNewTracedHTTPClient_PropagatesContext(t *testing.T) {
	installRecorder(t)

	var traceparent string
	upstream := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		traceparent = r.Header.Get("traceparent")
		_, _ = w.Write([]byte(`{}`))
	}))
	defer upstream.Close()

	client := NewTracedHTTPClient(nil, 5*time.Second)
	if client.Timeout != 5*time.Second {
		t.Errorf("Expected timeout 5s, got %v", client.Timeout)
	}

	ctx, span := otel.Tracer("test").Start(t.Context(), "tool.dk_weather_forecast")
	req, _ := http.NewRequestWithContext(ctx, "GET", upstream.URL, nil)
	resp, err := client.Do(req)
	span.End()
	if err != nil {
		t.Fatalf("Request failed: %v", err)
	}
	_, _ = io.Copy(io.Discard, resp.Body)
	resp.Body.Close()

	if traceparent == "" {
		t.Fatal("Expected traceparent header on upstream request")
	}
	if want := span.SpanContext().TraceID().String(); len(traceparent) < 35 || traceparent[3:35] != want {
		t.Errorf("traceparent %q does not carry trace %s", traceparent, want)
	}
}
