package telemetry

import (
	"context"
	"testing"

	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"
)

func TestSafeAttributesFiltersContent(t *testing.T) {
	kvs := map[string]interface{}{
		"transcript":    "your otp is 1234",
		"audio_bytes":   1024,
		"api_key":       "AIza-123",
		"authorization": "Bearer x",
		"call_type":     "spam",
		"long_string":   string(make([]byte, 600)),
		"confidence":    86.0,
		"keywords":      []string{"otp", "verify"},
	}

	got := map[string]bool{}
	for _, a := range SafeAttributes(kvs) {
		got[string(a.Key)] = true
	}
	for _, bad := range []string{"transcript", "audio_bytes", "api_key", "authorization", "long_string"} {
		if got[bad] {
			t.Fatalf("unexpected unsafe attribute %s", bad)
		}
	}
	for _, want := range []string{"call_type", "confidence", "keywords"} {
		if !got[want] {
			t.Fatalf("expected attribute %s to be kept", want)
		}
	}
}

func TestDisabledProviderIsNoop(t *testing.T) {
	p, err := NewProvider(context.Background(), Config{Enabled: false}, nil)
	if err != nil {
		t.Fatalf("new provider: %v", err)
	}
	if p.Enabled {
		t.Fatalf("expected disabled provider")
	}
	ctx, span := p.StartSpan(context.Background(), "classify", map[string]interface{}{"call_type": "safe"})
	span.End()
	p.RecordClassification(ctx, "safe", "cli", false, 1.2)
	p.RecordCapability(ctx, "nlp", false, 3)
	p.Shutdown(ctx)

	var nilProvider *Provider
	nilProvider.RecordClassification(ctx, "safe", "cli", false, 1)
	nilProvider.Shutdown(ctx)
}

func TestUnsupportedProtocol(t *testing.T) {
	if _, err := NewProvider(context.Background(), Config{Enabled: true, Protocol: "udp"}, nil); err == nil {
		t.Fatalf("expected error for unsupported protocol")
	}
}

func TestRecordedMetrics(t *testing.T) {
	reader := sdkmetric.NewManualReader()
	mp := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))
	p := newWithMeter(mp.Meter("test"))

	ctx := context.Background()
	p.RecordClassification(ctx, "spam", "analyze_call", true, 42)
	p.RecordCapability(ctx, "deepfake", false, 10)
	p.RecordCapability(ctx, "speech", true, 5)

	var rm metricdata.ResourceMetrics
	if err := reader.Collect(ctx, &rm); err != nil {
		t.Fatalf("collect: %v", err)
	}

	sums := map[string]int64{}
	for _, sm := range rm.ScopeMetrics {
		for _, m := range sm.Metrics {
			if data, ok := m.Data.(metricdata.Sum[int64]); ok {
				for _, dp := range data.DataPoints {
					sums[m.Name] += dp.Value
				}
			}
		}
	}
	if sums["phantomx_classifications_total"] != 1 {
		t.Fatalf("expected 1 classification, got %v", sums)
	}
	if sums["phantomx_degraded_signals_total"] != 1 {
		t.Fatalf("expected 1 degraded signal, got %v", sums)
	}
}
