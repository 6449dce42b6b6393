// Package aggregator implements the multi-source calendar aggregation store.
// It owns the merged today view: it fans fetches out across connected
// providers, merges their normalized events into one ordered list, and caches
// the result with a freshness TTL. A refresh already in flight makes
// concurrent refresh requests no-ops, and a partial provider failure still
// commits the events that did arrive.
package aggregator
