// Package telemetry wires OpenTelemetry tracing and metrics for the
// classification pipeline. When disabled every helper is a no-op.
package telemetry

import (
	"context"
	"fmt"
	"strings"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/otlp/otlpmetric/otlpmetricgrpc"
	"go.opentelemetry.io/otel/exporters/otlp/otlpmetric/otlpmetrichttp"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracegrpc"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracehttp"
	"go.opentelemetry.io/otel/metric"
	metricnoop "go.opentelemetry.io/otel/metric/noop"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/trace"
	tracenoop "go.opentelemetry.io/otel/trace/noop"

	"github.com/phantomx-ai/phantomx/internal/logger"
)

const instrumentationName = "github.com/phantomx-ai/phantomx"

// Config controls telemetry setup.
type Config struct {
	Enabled  bool
	Endpoint string
	Protocol string // grpc | http
	Service  string
	Version  string
}

// Provider wires tracer/meter providers and exposes recording helpers.
type Provider struct {
	Enabled bool
	tracer  trace.Tracer
	meter   metric.Meter

	classifications        metric.Int64Counter
	classificationDuration metric.Float64Histogram
	capabilityDuration     metric.Float64Histogram
	degradedSignals        metric.Int64Counter

	shutdownTraceProvider func(context.Context) error
	shutdownMeterProvider func(context.Context) error
}

// Noop returns a disabled provider.
func Noop() *Provider {
	p := &Provider{
		tracer: tracenoop.NewTracerProvider().Tracer(""),
		meter:  metricnoop.NewMeterProvider().Meter(""),
	}
	p.initInstruments()
	return p
}

// NewProvider configures OTLP exporters and installs global providers.
// When cfg.Enabled is false it returns Noop().
func NewProvider(ctx context.Context, cfg Config, log *logger.Logger) (*Provider, error) {
	if !cfg.Enabled {
		return Noop(), nil
	}
	if ctx == nil {
		ctx = context.Background()
	}
	if log == nil {
		log = logger.Nop()
	}
	protocol := strings.ToLower(strings.TrimSpace(cfg.Protocol))
	if protocol == "" {
		protocol = "grpc"
	}
	if protocol != "grpc" && protocol != "http" {
		return nil, fmt.Errorf("unsupported telemetry protocol %q", cfg.Protocol)
	}

	log.WithComponent("telemetry").Info("telemetry enabled; upload warnings are expected if no collector is listening",
		logger.Fields("protocol", protocol, "endpoint", cfg.Endpoint))

	res, err := resource.New(ctx,
		resource.WithFromEnv(),
		resource.WithTelemetrySDK(),
		resource.WithAttributes(
			attribute.String("service.name", cfg.Service),
			attribute.String("service.version", cfg.Version),
		),
	)
	if err != nil {
		return nil, fmt.Errorf("telemetry resource: %w", err)
	}

	var (
		spanExporter sdktrace.SpanExporter
		reader       sdkmetric.Reader
	)
	switch protocol {
	case "grpc":
		spanExporter, err = otlptracegrpc.New(ctx, otlptracegrpc.WithEndpoint(cfg.Endpoint), otlptracegrpc.WithInsecure())
		if err != nil {
			return nil, fmt.Errorf("otlp trace exporter: %w", err)
		}
		exp, err := otlpmetricgrpc.New(ctx, otlpmetricgrpc.WithEndpoint(cfg.Endpoint), otlpmetricgrpc.WithInsecure())
		if err != nil {
			return nil, fmt.Errorf("otlp metric exporter: %w", err)
		}
		reader = sdkmetric.NewPeriodicReader(exp)
	case "http":
		spanExporter, err = otlptracehttp.New(ctx, otlptracehttp.WithEndpoint(cfg.Endpoint), otlptracehttp.WithInsecure())
		if err != nil {
			return nil, fmt.Errorf("otlp trace exporter: %w", err)
		}
		exp, err := otlpmetrichttp.New(ctx, otlpmetrichttp.WithEndpoint(cfg.Endpoint), otlpmetrichttp.WithInsecure())
		if err != nil {
			return nil, fmt.Errorf("otlp metric exporter: %w", err)
		}
		reader = sdkmetric.NewPeriodicReader(exp)
	}

	tp := sdktrace.NewTracerProvider(
		sdktrace.WithSampler(sdktrace.AlwaysSample()),
		sdktrace.WithBatcher(spanExporter),
		sdktrace.WithResource(res),
	)
	otel.SetTracerProvider(tp)

	mp := sdkmetric.NewMeterProvider(sdkmetric.WithResource(res), sdkmetric.WithReader(reader))
	otel.SetMeterProvider(mp)

	p := &Provider{
		Enabled:               true,
		tracer:                tp.Tracer(instrumentationName),
		meter:                 mp.Meter(instrumentationName),
		shutdownTraceProvider: tp.Shutdown,
		shutdownMeterProvider: mp.Shutdown,
	}
	p.initInstruments()
	return p, nil
}

func newWithMeter(m metric.Meter) *Provider {
	p := &Provider{
		Enabled: true,
		tracer:  tracenoop.NewTracerProvider().Tracer(""),
		meter:   m,
	}
	p.initInstruments()
	return p
}

func (p *Provider) initInstruments() {
	// Instrument errors only occur for invalid names; telemetry stays best-effort.
	p.classifications, _ = p.meter.Int64Counter("phantomx_classifications_total",
		metric.WithDescription("Classified calls by call type and source"))
	p.classificationDuration, _ = p.meter.Float64Histogram("phantomx_classification_duration_ms",
		metric.WithUnit("ms"))
	p.capabilityDuration, _ = p.meter.Float64Histogram("phantomx_capability_duration_ms",
		metric.WithUnit("ms"))
	p.degradedSignals, _ = p.meter.Int64Counter("phantomx_degraded_signals_total",
		metric.WithDescription("Signals that fell back to their default because a capability failed"))
}

// Tracer returns the tracer.
func (p *Provider) Tracer() trace.Tracer {
	if p == nil {
		return tracenoop.NewTracerProvider().Tracer("")
	}
	return p.tracer
}

// StartSpan starts a span with attributes filtered through SafeAttributes.
func (p *Provider) StartSpan(ctx context.Context, name string, attrs map[string]interface{}) (context.Context, trace.Span) {
	return p.Tracer().Start(ctx, name, trace.WithAttributes(SafeAttributes(attrs)...))
}

// Shutdown flushes providers.
func (p *Provider) Shutdown(ctx context.Context) {
	if p == nil {
		return
	}
	if p.shutdownTraceProvider != nil {
		_ = p.shutdownTraceProvider(ctx)
	}
	if p.shutdownMeterProvider != nil {
		_ = p.shutdownMeterProvider(ctx)
	}
}

// RecordClassification counts one classified call and its end-to-end latency.
func (p *Provider) RecordClassification(ctx context.Context, callType, source string, degraded bool, durMs float64) {
	if p == nil {
		return
	}
	opt := metric.WithAttributes(
		attribute.String("phantomx.call_type", callType),
		attribute.String("phantomx.source", source),
		attribute.Bool("phantomx.degraded", degraded),
	)
	p.classifications.Add(ctx, 1, opt)
	p.classificationDuration.Record(ctx, durMs, opt)
}

// RecordCapability records the latency of one external capability call and
// counts it as degraded when it failed.
func (p *Provider) RecordCapability(ctx context.Context, capability string, ok bool, durMs float64) {
	if p == nil {
		return
	}
	outcome := "ok"
	if !ok {
		outcome = "degraded"
	}
	p.capabilityDuration.Record(ctx, durMs, metric.WithAttributes(
		attribute.String("phantomx.capability", capability),
		attribute.String("phantomx.outcome", outcome),
	))
	if !ok {
		p.degradedSignals.Add(ctx, 1, metric.WithAttributes(attribute.String("phantomx.capability", capability)))
	}
}
