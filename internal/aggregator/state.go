package aggregator

import (
	"time"

	"github.com/wearcast/wearcast/internal/event"
)

// ConnectionState describes one provider's connection as seen by the store.
type ConnectionState struct {
	// Connected reports whether the provider currently holds valid
	// credentials or permission.
	Connected bool `json:"connected"`

	// Connecting is true while a connect handshake is in flight.
	Connecting bool `json:"connecting"`

	// AccountLabel is the connected account identifier, when the provider
	// exposes one.
	AccountLabel string `json:"accountLabel,omitempty"`

	// SelectedCalendarIDs is the active sub-calendar selection, when the
	// provider supports selection.
	SelectedCalendarIDs []string `json:"selectedCalendarIds,omitempty"`
}

// State is a point-in-time snapshot of the aggregation store. It is a copy;
// mutating it does not affect the store.
type State struct {
	// Events is the merged, ordered today view across all sources.
	Events []event.Event `json:"events"`

	// IsLoading is true while a refresh is in flight.
	IsLoading bool `json:"isLoading"`

	// LastFetched is the commit time of the last at-least-partially
	// successful refresh. Zero means no refresh has ever succeeded.
	LastFetched time.Time `json:"lastFetched"`

	// Err carries the diagnostic from the last refresh: nil after a full
	// success, the joined provider failures otherwise. A non-nil Err can
	// coexist with a populated Events list (partial success) or with stale
	// events (total failure).
	Err error `json:"-"`

	// Connections maps each registered provider to its connection state.
	Connections map[event.Source]ConnectionState `json:"connections"`
}

// IsConnected reports whether at least one provider is connected.
func (s State) IsConnected() bool {
	for _, c := range s.Connections {
		if c.Connected {
			return true
		}
	}
	return false
}

// Fresh reports whether the cached events are within ttl of the last fetch.
func (s State) Fresh(now time.Time, ttl time.Duration) bool {
	if s.LastFetched.IsZero() {
		return false
	}
	return now.Sub(s.LastFetched) < ttl
}
