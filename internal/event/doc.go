// Package event defines the provider-agnostic calendar event model shared
// by all provider adapters, the occasion classifier that maps event text to
// a wardrobe-relevant category, and the merge ordering applied to events
// collected from multiple sources.
package event
