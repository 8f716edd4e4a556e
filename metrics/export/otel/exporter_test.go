package otel

import (
	"context"
	"sync"
	"testing"

	"github.com/gofinances/sessionkit"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"
)

type fakeSource struct {
	mu       sync.RWMutex
	snapshot sessionkit.MetricsSnapshot
	dropped  uint64
}

func (f *fakeSource) MetricsSnapshot() sessionkit.MetricsSnapshot {
	f.mu.RLock()
	defer f.mu.RUnlock()
	out := sessionkit.MetricsSnapshot{
		Counters:   make(map[sessionkit.MetricID]uint64, len(f.snapshot.Counters)),
		Histograms: make(map[sessionkit.MetricID][]uint64, len(f.snapshot.Histograms)),
	}
	for k, v := range f.snapshot.Counters {
		out.Counters[k] = v
	}
	for k, buckets := range f.snapshot.Histograms {
		out.Histograms[k] = append([]uint64(nil), buckets...)
	}
	return out
}

func (f *fakeSource) AuditDropped() uint64 {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return f.dropped
}

func newReader() (*sdkmetric.ManualReader, *sdkmetric.MeterProvider) {
	reader := sdkmetric.NewManualReader()
	return reader, sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))
}

func findSum(t *testing.T, rm metricdata.ResourceMetrics, name string) int64 {
	t.Helper()
	for _, scope := range rm.ScopeMetrics {
		for _, m := range scope.Metrics {
			if m.Name != name {
				continue
			}
			switch data := m.Data.(type) {
			case metricdata.Sum[int64]:
				return data.DataPoints[0].Value
			case metricdata.Gauge[int64]:
				return data.DataPoints[0].Value
			}
		}
	}
	t.Fatalf("metric %s not collected", name)
	return 0
}

func TestExporterRegistersAndCollects(t *testing.T) {
	reader, provider := newReader()
	meter := provider.Meter("sessionkit-test")

	src := &fakeSource{
		snapshot: sessionkit.MetricsSnapshot{
			Counters: map[sessionkit.MetricID]uint64{
				sessionkit.MetricSignInSuccess: 3,
			},
			Histograms: map[sessionkit.MetricID][]uint64{
				sessionkit.MetricSignInLatency: {1, 1, 1, 1, 1, 1, 1, 1},
			},
		},
		dropped: 1,
	}

	exp, err := NewExporterFromSource(meter, src)
	if err != nil {
		t.Fatalf("NewExporterFromSource failed: %v", err)
	}
	defer func() {
		if err := exp.Close(); err != nil {
			t.Fatalf("Close failed: %v", err)
		}
	}()

	var rm metricdata.ResourceMetrics
	if err := reader.Collect(context.Background(), &rm); err != nil {
		t.Fatalf("Collect failed: %v", err)
	}
	if got := findSum(t, rm, "sessionkit_sign_in_success_total"); got != 3 {
		t.Fatalf("expected 3 sign-ins, got %d", got)
	}
	if got := findSum(t, rm, "sessionkit_sign_in_latency_seconds_count"); got != 8 {
		t.Fatalf("expected histogram count 8, got %d", got)
	}
	if got := findSum(t, rm, "sessionkit_audit_dropped_total"); got != 1 {
		t.Fatalf("expected 1 dropped event, got %d", got)
	}
}

func TestExporterRejectsNilInputs(t *testing.T) {
	_, provider := newReader()
	meter := provider.Meter("sessionkit-test")

	if _, err := NewExporterFromSource(meter, nil); err != ErrNilSource {
		t.Fatalf("expected ErrNilSource, got %v", err)
	}
	if _, err := NewExporterFromSource(nil, &fakeSource{}); err != ErrNilMeter {
		t.Fatalf("expected ErrNilMeter, got %v", err)
	}
	if _, err := NewExporter(meter, nil); err != ErrNilSource {
		t.Fatalf("expected ErrNilSource for nil store, got %v", err)
	}
}

func TestExporterConcurrentCollectNoPanic(t *testing.T) {
	reader, provider := newReader()
	meter := provider.Meter("sessionkit-test")

	src := &fakeSource{
		snapshot: sessionkit.MetricsSnapshot{
			Counters: map[sessionkit.MetricID]uint64{
				sessionkit.MetricSignOut: 1,
			},
			Histograms: map[sessionkit.MetricID][]uint64{},
		},
	}

	exp, err := NewExporterFromSource(meter, src)
	if err != nil {
		t.Fatalf("NewExporterFromSource failed: %v", err)
	}
	defer exp.Close()

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func(v uint64) {
			defer wg.Done()
			src.mu.Lock()
			src.snapshot.Counters[sessionkit.MetricSignOut] = v
			src.mu.Unlock()

			var rm metricdata.ResourceMetrics
			_ = reader.Collect(context.Background(), &rm)
		}(uint64(i + 1))
	}
	wg.Wait()
}
