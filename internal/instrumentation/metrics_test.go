package instrumentation

import (
	"context"
	"errors"
	"testing"
	"time"
)

func newTestProvider(t *testing.T, ctx context.Context) *Provider {
	t.Helper()

	provider, err := NewProvider(ctx, Config{
		ServiceName:     "test-service",
		ServiceVersion:  "1.0.0",
		Enabled:         true,
		MetricsExporter: "prometheus",
	})
	if err != nil {
		t.Fatalf("failed to create provider: %v", err)
	}
	t.Cleanup(func() { _ = provider.Shutdown(ctx) })
	return provider
}

func TestMetrics_RecordHTTPRequest(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	metrics := newTestProvider(t, ctx).Metrics()
	if metrics == nil {
		t.Fatal("expected metrics to be non-nil")
	}

	// Should not panic
	metrics.RecordHTTPRequest(ctx, "GET", "/v1/events", 200, 100*time.Millisecond)
	metrics.RecordHTTPRequest(ctx, "POST", "/v1/refresh", 500, 50*time.Millisecond)
}

func TestMetrics_RecordRefresh(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	metrics := newTestProvider(t, ctx).Metrics()

	// Should not panic
	metrics.RecordRefresh(ctx, "success", 200*time.Millisecond)
	metrics.RecordRefresh(ctx, "error", 500*time.Millisecond)
}

func TestMetrics_RecordProviderFetch(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	metrics := newTestProvider(t, ctx).Metrics()

	// Should not panic
	metrics.RecordProviderFetch(ctx, "google", 200*time.Millisecond, nil)
	metrics.RecordProviderFetch(ctx, "device", 5*time.Millisecond, errors.New("boom"))
}

func TestMetrics_CacheAndGauges(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	metrics := newTestProvider(t, ctx).Metrics()

	// Should not panic
	metrics.RecordCacheLookup(ctx, true)
	metrics.RecordCacheLookup(ctx, false)
	metrics.SetConnectedProviders(ctx, 2)
	metrics.RecordWeatherFetch(ctx, "current", "fresh")
	metrics.RecordWeatherFetch(ctx, "forecast", "stale")
}

func TestMetrics_NilSafe(t *testing.T) {
	ctx := context.Background()

	var metrics *Metrics

	// Every recorder must be a no-op on a nil receiver
	metrics.RecordHTTPRequest(ctx, "GET", "/", 200, time.Millisecond)
	metrics.RecordRefresh(ctx, "success", time.Millisecond)
	metrics.RecordProviderFetch(ctx, "google", time.Millisecond, nil)
	metrics.RecordCacheLookup(ctx, true)
	metrics.SetConnectedProviders(ctx, 0)
	metrics.RecordWeatherFetch(ctx, "current", "fresh")
}

func TestMetrics_ZeroValueSafe(t *testing.T) {
	ctx := context.Background()

	metrics := &Metrics{}

	// Uninitialized metrics must be no-ops, not panics
	metrics.RecordHTTPRequest(ctx, "GET", "/", 200, time.Millisecond)
	metrics.RecordRefresh(ctx, "success", time.Millisecond)
	metrics.RecordProviderFetch(ctx, "google", time.Millisecond, nil)
	metrics.RecordCacheLookup(ctx, false)
	metrics.SetConnectedProviders(ctx, 1)
	metrics.RecordWeatherFetch(ctx, "forecast", "error")
}
