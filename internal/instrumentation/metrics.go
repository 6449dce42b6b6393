package instrumentation

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// Metric attribute keys - using constants for consistency and DRY
const (
	attrMethod   = "method"
	attrPath     = "path"
	attrStatus   = "status"
	attrProvider = "provider"
	attrResult   = "result"
	attrKind     = "kind"
)

// Cache lookup results.
const (
	resultHit  = "hit"
	resultMiss = "miss"
)

// Metrics provides methods for recording observability metrics. The zero
// value and a nil pointer are valid no-op recorders.
type Metrics struct {
	// HTTP metrics
	httpRequestsTotal   metric.Int64Counter
	httpRequestDuration metric.Float64Histogram

	// Refresh cycle metrics
	refreshTotal    metric.Int64Counter
	refreshDuration metric.Float64Histogram

	// Per-provider fetch metrics
	providerFetchTotal    metric.Int64Counter
	providerFetchDuration metric.Float64Histogram

	// Cache metrics
	cacheLookupsTotal  metric.Int64Counter
	connectedProviders metric.Int64Gauge

	// Weather metrics
	weatherFetchTotal metric.Int64Counter

	// detailedLabels controls whether high-cardinality labels are included
	detailedLabels bool
}

// NewMetrics creates a new Metrics instance with all metrics initialized.
func NewMetrics(meter metric.Meter, detailedLabels bool) (*Metrics, error) {
	m := &Metrics{
		detailedLabels: detailedLabels,
	}

	var err error

	m.httpRequestsTotal, err = meter.Int64Counter(
		"http_requests_total",
		metric.WithDescription("Total number of HTTP requests"),
		metric.WithUnit("{request}"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create http_requests_total counter: %w", err)
	}

	m.httpRequestDuration, err = meter.Float64Histogram(
		"http_request_duration_seconds",
		metric.WithDescription("HTTP request duration in seconds"),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(0.001, 0.01, 0.1, 0.5, 1.0, 2.5, 5.0, 10.0),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create http_request_duration_seconds histogram: %w", err)
	}

	m.refreshTotal, err = meter.Int64Counter(
		"calendar_refresh_total",
		metric.WithDescription("Total number of calendar refresh cycles"),
		metric.WithUnit("{refresh}"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create calendar_refresh_total counter: %w", err)
	}

	m.refreshDuration, err = meter.Float64Histogram(
		"calendar_refresh_duration_seconds",
		metric.WithDescription("Calendar refresh cycle duration in seconds"),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(0.01, 0.05, 0.1, 0.25, 0.5, 1.0, 2.5, 5.0, 10.0, 30.0),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create calendar_refresh_duration_seconds histogram: %w", err)
	}

	m.providerFetchTotal, err = meter.Int64Counter(
		"provider_fetch_total",
		metric.WithDescription("Total number of per-provider event fetches"),
		metric.WithUnit("{fetch}"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create provider_fetch_total counter: %w", err)
	}

	m.providerFetchDuration, err = meter.Float64Histogram(
		"provider_fetch_duration_seconds",
		metric.WithDescription("Per-provider event fetch duration in seconds"),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(0.01, 0.05, 0.1, 0.25, 0.5, 1.0, 2.5, 5.0, 10.0, 30.0),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create provider_fetch_duration_seconds histogram: %w", err)
	}

	m.cacheLookupsTotal, err = meter.Int64Counter(
		"event_cache_lookups_total",
		metric.WithDescription("Total number of event cache freshness lookups"),
		metric.WithUnit("{lookup}"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create event_cache_lookups_total counter: %w", err)
	}

	m.connectedProviders, err = meter.Int64Gauge(
		"connected_providers",
		metric.WithDescription("Number of calendar providers currently connected"),
		metric.WithUnit("{provider}"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create connected_providers gauge: %w", err)
	}

	m.weatherFetchTotal, err = meter.Int64Counter(
		"weather_fetch_total",
		metric.WithDescription("Total number of weather fetches"),
		metric.WithUnit("{fetch}"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create weather_fetch_total counter: %w", err)
	}

	return m, nil
}

// RecordHTTPRequest records an HTTP request with method, path, status code,
// and duration.
func (m *Metrics) RecordHTTPRequest(ctx context.Context, method, path string, statusCode int, duration time.Duration) {
	if m == nil || m.httpRequestsTotal == nil || m.httpRequestDuration == nil {
		return // Instrumentation not initialized
	}

	attrs := []attribute.KeyValue{
		attribute.String(attrMethod, method),
		attribute.String(attrPath, path),
		attribute.String(attrStatus, strconv.Itoa(statusCode)),
	}

	m.httpRequestsTotal.Add(ctx, 1, metric.WithAttributes(attrs...))
	m.httpRequestDuration.Record(ctx, duration.Seconds(), metric.WithAttributes(attrs...))
}

// RecordRefresh records one refresh cycle with its overall status
// ("success" or "error") and duration.
func (m *Metrics) RecordRefresh(ctx context.Context, status string, duration time.Duration) {
	if m == nil || m.refreshTotal == nil || m.refreshDuration == nil {
		return // Instrumentation not initialized
	}

	attrs := []attribute.KeyValue{
		attribute.String(attrStatus, status),
	}

	m.refreshTotal.Add(ctx, 1, metric.WithAttributes(attrs...))
	m.refreshDuration.Record(ctx, duration.Seconds(), metric.WithAttributes(attrs...))
}

// RecordProviderFetch records one provider fetch with its duration. A nil
// err counts as success.
func (m *Metrics) RecordProviderFetch(ctx context.Context, provider string, duration time.Duration, err error) {
	if m == nil || m.providerFetchTotal == nil || m.providerFetchDuration == nil {
		return // Instrumentation not initialized
	}

	status := "success"
	if err != nil {
		status = "error"
	}
	attrs := []attribute.KeyValue{
		attribute.String(attrProvider, provider),
		attribute.String(attrStatus, status),
	}

	m.providerFetchTotal.Add(ctx, 1, metric.WithAttributes(attrs...))
	m.providerFetchDuration.Record(ctx, duration.Seconds(), metric.WithAttributes(attrs...))
}

// RecordCacheLookup records whether a refresh request was satisfied by the
// fresh cache (hit) or had to fetch (miss).
func (m *Metrics) RecordCacheLookup(ctx context.Context, hit bool) {
	if m == nil || m.cacheLookupsTotal == nil {
		return // Instrumentation not initialized
	}

	result := resultMiss
	if hit {
		result = resultHit
	}
	m.cacheLookupsTotal.Add(ctx, 1, metric.WithAttributes(attribute.String(attrResult, result)))
}

// SetConnectedProviders records the current number of connected providers.
func (m *Metrics) SetConnectedProviders(ctx context.Context, n int64) {
	if m == nil || m.connectedProviders == nil {
		return // Instrumentation not initialized
	}

	m.connectedProviders.Record(ctx, n)
}

// RecordWeatherFetch records one weather fetch with its kind ("current" or
// "forecast") and result ("fresh", "cached", "stale", "error").
func (m *Metrics) RecordWeatherFetch(ctx context.Context, kind, result string) {
	if m == nil || m.weatherFetchTotal == nil {
		return // Instrumentation not initialized
	}

	attrs := []attribute.KeyValue{
		attribute.String(attrKind, kind),
		attribute.String(attrResult, result),
	}
	m.weatherFetchTotal.Add(ctx, 1, metric.WithAttributes(attrs...))
}
