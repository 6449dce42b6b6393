package event

import "time"

// Source identifies the calendar provider an event was collected from.
// It is attached by the aggregation store, not by the adapters themselves.
type Source string

const (
	// SourceGoogle is the remote OAuth calendar provider.
	SourceGoogle Source = "google"
	// SourceDevice is the on-device calendar store.
	SourceDevice Source = "device"
)

// AllDayMarker is the display value used for the start and end times of
// all-day events. The merge comparator depends on it sorting before any
// zero-padded 24-hour time string.
const AllDayMarker = "All day"

// DefaultTitle is substituted when a provider returns an event without one.
const DefaultTitle = "(No title)"

// DisplayTimeLayout is the fixed format for Event start/end times.
// It must stay zero-padded 24-hour so that lexicographic comparison of the
// resulting strings matches chronological order within one day.
const DisplayTimeLayout = "15:04"

// Event is the normalized shape every provider adapter produces for the
// today view. Start and end times are display strings for the current local
// day, not canonical timestamps; see RangeEvent for the sortable form.
//
// ID is unique only within one provider. The merged view may contain
// colliding IDs across sources and must not be deduplicated by ID alone.
type Event struct {
	ID        string   `json:"id"`
	Title     string   `json:"title"`
	StartTime string   `json:"startTime"`
	EndTime   string   `json:"endTime"`
	Location  string   `json:"location,omitempty"`
	IsAllDay  bool     `json:"isAllDay"`
	Occasion  Occasion `json:"occasion"`
	Source    Source   `json:"source"`
}

// RangeEvent is the canonical form returned by range queries (e.g. trip
// detection). Unlike Event its times are real timestamps, sortable across
// days and timezones.
type RangeEvent struct {
	ID       string    `json:"id"`
	Title    string    `json:"title"`
	Start    time.Time `json:"start"`
	End      time.Time `json:"end"`
	Location string    `json:"location,omitempty"`
	IsAllDay bool      `json:"isAllDay"`
	Occasion Occasion  `json:"occasion"`
	Source   Source    `json:"source"`
}

// FormatDisplayTime renders a timestamp as the display string used in the
// today view, honoring the all-day marker.
func FormatDisplayTime(t time.Time, allDay bool) string {
	if allDay {
		return AllDayMarker
	}
	return t.Format(DisplayTimeLayout)
}
