package provider

import (
	"context"
	"time"

	"github.com/wearcast/wearcast/internal/event"
)

// CalendarRef identifies one sub-calendar exposed by a provider.
type CalendarRef struct {
	ID      string `json:"id"`
	Name    string `json:"name"`
	Primary bool   `json:"primary,omitempty"`
}

// ConnectionInfo is the metadata returned by a successful connect.
type ConnectionInfo struct {
	// AccountLabel is a human-readable account identifier (e.g. the
	// connected email address). Empty for on-device providers.
	AccountLabel string

	// Calendars lists the discoverable sub-calendars, when the provider
	// exposes more than one.
	Calendars []CalendarRef
}

// Provider is the uniform contract hiding provider-specific authentication,
// permission handling, and API shape behind a closed set of operations.
// Implementations persist their own credentials (secure storage, permission
// markers); the aggregation store never sees raw credentials.
type Provider interface {
	// Source returns the stable identity of this provider.
	Source() event.Source

	// IsConnected reports whether valid credentials or permission are
	// currently held.
	IsConnected() bool

	// Connect performs the provider's handshake (token exchange, OS
	// permission prompt) and persists credentials on success. On failure it
	// returns a typed error and leaves no partial state behind.
	Connect(ctx context.Context) (*ConnectionInfo, error)

	// Disconnect clears all persisted credentials and permission markers
	// for this provider. Idempotent.
	Disconnect(ctx context.Context) error

	// FetchTodayEvents returns the current local day's events, cancelled
	// events filtered out, mapped into the normalized display shape.
	// On an expired session it clears stored credentials and returns
	// ErrAuthExpired.
	FetchTodayEvents(ctx context.Context) ([]event.Event, error)

	// FetchEventsInRange returns events over an arbitrary window in
	// canonical timestamp form. Used by longer-range consumers such as
	// trip detection, not by the today cache.
	FetchEventsInRange(ctx context.Context, start, end time.Time) ([]event.RangeEvent, error)
}

// AccountLabeler is implemented by providers that can report the connected
// account label from persisted state, without re-running the connect flow.
type AccountLabeler interface {
	// AccountLabel returns the stored account label, or "" when unknown.
	AccountLabel() string
}

// CalendarSelector is implemented by providers that expose multiple
// sub-calendars of which only a subset may be included in fetches.
type CalendarSelector interface {
	// SelectedCalendars returns the currently selected sub-calendar IDs.
	SelectedCalendars() []string

	// SetSelectedCalendars persists a new selection.
	SetSelectedCalendars(ctx context.Context, ids []string) error
}
