// Package server hosts the local HTTP surfaces of the daemon: the JSON API
// over the aggregation store and weather client, health probes, and the
// Prometheus metrics endpoint on its own listener.
package server
