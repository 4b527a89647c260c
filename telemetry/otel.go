package telemetry

import (
	"context"
	"fmt"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/itsneelabh/mcp-nordic/core"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/otlp/otlpmetric/otlpmetrichttp"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracegrpc"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracehttp"
	"go.opentelemetry.io/otel/exporters/stdout/stdouttrace"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/propagation"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.26.0"
	"go.opentelemetry.io/otel/trace"
)

// Exporter names accepted in TelemetryConfig.Exporter
const (
	ExporterOTLP     = "otlp"      // traces over OTLP/gRPC
	ExporterOTLPHTTP = "otlp-http" // traces and metrics over OTLP/HTTP
	ExporterStdout   = "stdout"    // traces pretty-printed to stderr
)

const instrumentationName = "github.com/itsneelabh/mcp-nordic"

// OTelProvider implements core.Telemetry with OpenTelemetry
type OTelProvider struct {
	tracer        trace.Tracer
	meter         metric.Meter
	traceProvider *sdktrace.TracerProvider
	meterProvider *sdkmetric.MeterProvider
	instrumentsMu sync.Mutex
	counters      map[string]metric.Float64Counter
	histograms    map[string]metric.Float64Histogram
}

// NewOTelProvider creates the provider for cfg and installs it as the
// global tracer (and meter) provider.
func NewOTelProvider(ctx context.Context, cfg core.TelemetryConfig, version string) (*OTelProvider, error) {
	serviceName := cfg.ServiceName
	if serviceName == "" {
		serviceName = "mcp-nordic"
	}

	res, err := resource.Merge(
		resource.Default(),
		resource.NewSchemaless(
			semconv.ServiceName(serviceName),
			semconv.ServiceVersion(version),
		),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create resource: %w", err)
	}

	var spanExporter sdktrace.SpanExporter
	var meterProvider *sdkmetric.MeterProvider

	switch strings.ToLower(cfg.Exporter) {
	case ExporterStdout:
		spanExporter, err = stdouttrace.New(
			stdouttrace.WithWriter(os.Stderr),
			stdouttrace.WithPrettyPrint(),
		)
	case ExporterOTLPHTTP:
		spanExporter, err = otlptracehttp.New(ctx,
			otlptracehttp.WithEndpoint(cfg.Endpoint),
			otlptracehttp.WithInsecure(),
		)
		if err == nil {
			var metricExporter sdkmetric.Exporter
			metricExporter, err = otlpmetrichttp.New(ctx,
				otlpmetrichttp.WithEndpoint(cfg.Endpoint),
				otlpmetrichttp.WithInsecure(),
			)
			if err == nil {
				meterProvider = sdkmetric.NewMeterProvider(
					sdkmetric.WithReader(sdkmetric.NewPeriodicReader(metricExporter,
						sdkmetric.WithInterval(30*time.Second))),
					sdkmetric.WithResource(res),
				)
			}
		}
	case ExporterOTLP, "":
		spanExporter, err = otlptracegrpc.New(ctx,
			otlptracegrpc.WithEndpoint(cfg.Endpoint),
			otlptracegrpc.WithInsecure(),
		)
	default:
		return nil, fmt.Errorf("unknown telemetry exporter %q: %w", cfg.Exporter, core.ErrInvalidConfiguration)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to create exporter: %w", err)
	}

	tp := sdktrace.NewTracerProvider(
		sdktrace.WithBatcher(spanExporter),
		sdktrace.WithResource(res),
	)

	otel.SetTracerProvider(tp)
	otel.SetTextMapPropagator(propagation.NewCompositeTextMapPropagator(
		propagation.TraceContext{},
		propagation.Baggage{},
	))
	if meterProvider != nil {
		otel.SetMeterProvider(meterProvider)
	}

	return newProvider(tp, meterProvider), nil
}

// NewProviderFromSDK wraps existing SDK providers (nil meter provider uses
// the global one). Useful for tests with an in-memory span recorder.
func NewProviderFromSDK(tp *sdktrace.TracerProvider, mp *sdkmetric.MeterProvider) *OTelProvider {
	return newProvider(tp, mp)
}

func newProvider(tp *sdktrace.TracerProvider, mp *sdkmetric.MeterProvider) *OTelProvider {
	var meter metric.Meter
	if mp != nil {
		meter = mp.Meter(instrumentationName)
	} else {
		meter = otel.Meter(instrumentationName)
	}
	return &OTelProvider{
		tracer:        tp.Tracer(instrumentationName),
		meter:         meter,
		traceProvider: tp,
		meterProvider: mp,
		counters:      make(map[string]metric.Float64Counter),
		histograms:    make(map[string]metric.Float64Histogram),
	}
}

// StartSpan starts a new telemetry span
func (o *OTelProvider) StartSpan(ctx context.Context, name string) (context.Context, core.Span) {
	ctx, span := o.tracer.Start(ctx, name)
	return ctx, &otelSpan{span: span}
}

// RecordMetric records a metric. Names ending in "_ms" or "duration" are
// histograms; everything else is a monotonic counter.
func (o *OTelProvider) RecordMetric(name string, value float64, labels map[string]string) {
	attrs := make([]attribute.KeyValue, 0, len(labels))
	for k, v := range labels {
		attrs = append(attrs, attribute.String(k, v))
	}
	opt := metric.WithAttributes(attrs...)

	if strings.HasSuffix(name, "_ms") || strings.HasSuffix(name, "duration") {
		if h := o.histogram(name); h != nil {
			h.Record(context.Background(), value, opt)
		}
		return
	}
	if c := o.counter(name); c != nil {
		c.Add(context.Background(), value, opt)
	}
}

func (o *OTelProvider) counter(name string) metric.Float64Counter {
	o.instrumentsMu.Lock()
	defer o.instrumentsMu.Unlock()
	if c, ok := o.counters[name]; ok {
		return c
	}
	c, err := o.meter.Float64Counter(name)
	if err != nil {
		return nil
	}
	o.counters[name] = c
	return c
}

func (o *OTelProvider) histogram(name string) metric.Float64Histogram {
	o.instrumentsMu.Lock()
	defer o.instrumentsMu.Unlock()
	if h, ok := o.histograms[name]; ok {
		return h
	}
	h, err := o.meter.Float64Histogram(name, metric.WithUnit("ms"))
	if err != nil {
		return nil
	}
	o.histograms[name] = h
	return h
}

// Shutdown flushes and stops the providers
func (o *OTelProvider) Shutdown(ctx context.Context) error {
	err := o.traceProvider.Shutdown(ctx)
	if o.meterProvider != nil {
		if mErr := o.meterProvider.Shutdown(ctx); err == nil {
			err = mErr
		}
	}
	return err
}

// otelSpan wraps an OpenTelemetry span to implement core.Span
type otelSpan struct {
	span trace.Span
}

func (s *otelSpan) End() {
	s.span.End()
}

func (s *otelSpan) SetAttribute(key string, value interface{}) {
	switch v := value.(type) {
	case string:
		s.span.SetAttributes(attribute.String(key, v))
	case int:
		s.span.SetAttributes(attribute.Int(key, v))
	case int64:
		s.span.SetAttributes(attribute.Int64(key, v))
	case float64:
		s.span.SetAttributes(attribute.Float64(key, v))
	case bool:
		s.span.SetAttributes(attribute.Bool(key, v))
	default:
		s.span.SetAttributes(attribute.String(key, fmt.Sprintf("%v", v)))
	}
}

func (s *otelSpan) RecordError(err error) {
	s.span.RecordError(err)
}
