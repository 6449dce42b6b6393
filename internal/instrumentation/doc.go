// Package instrumentation provides OpenTelemetry metrics for the aggregation
// daemon. The exporter is selected through environment variables; Prometheus
// scrape is the default, with OTLP push and a stdout exporter for local
// debugging. All recording methods are safe on a nil or uninitialized
// Metrics so callers never have to guard their metric calls.
package instrumentation
