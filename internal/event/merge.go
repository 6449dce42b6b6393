package event

import "sort"

// Merge combines per-provider event lists into one ordered sequence.
//
// All-day events sort before timed events; within the same all-day-ness,
// events are ordered by lexicographic comparison of their StartTime display
// strings. This relies on DisplayTimeLayout being zero-padded 24-hour; a
// locale-formatted 12-hour string would break the ordering. The sort is
// stable, so input order is preserved for equal keys.
//
// No cross-source deduplication is performed: an event present in two
// providers' feeds appears twice, once per source.
func Merge(lists ...[]Event) []Event {
	total := 0
	for _, l := range lists {
		total += len(l)
	}
	merged := make([]Event, 0, total)
	for _, l := range lists {
		merged = append(merged, l...)
	}

	sort.SliceStable(merged, func(i, j int) bool {
		a, b := merged[i], merged[j]
		if a.IsAllDay != b.IsAllDay {
			return a.IsAllDay
		}
		return a.StartTime < b.StartTime
	})

	return merged
}

// MergeRange combines per-provider range query results, ordered by start
// timestamp with all-day events first on ties.
func MergeRange(lists ...[]RangeEvent) []RangeEvent {
	total := 0
	for _, l := range lists {
		total += len(l)
	}
	merged := make([]RangeEvent, 0, total)
	for _, l := range lists {
		merged = append(merged, l...)
	}

	sort.SliceStable(merged, func(i, j int) bool {
		a, b := merged[i], merged[j]
		if !a.Start.Equal(b.Start) {
			return a.Start.Before(b.Start)
		}
		return a.IsAllDay && !b.IsAllDay
	})

	return merged
}
