package provider

import "errors"

// Typed errors returned across the adapter boundary. Callers match with
// errors.Is; adapters wrap them with context via fmt.Errorf("%w: ...").
var (
	// ErrPermissionDenied means no credential or permission could be
	// obtained. Terminal until the user retries the connect flow.
	ErrPermissionDenied = errors.New("calendar permission denied")

	// ErrAuthFailed means the connect handshake itself failed (e.g. the
	// auth code exchange was rejected). No partial state is left behind.
	ErrAuthFailed = errors.New("calendar authentication failed")

	// ErrAuthExpired means a previously valid credential went stale. The
	// adapter has already cleared its stored credentials when returning
	// this; the caller should transition the provider to disconnected.
	ErrAuthExpired = errors.New("calendar session expired")

	// ErrNoCalendarsFound means connect succeeded at the credential level
	// but the account exposes nothing to select.
	ErrNoCalendarsFound = errors.New("no calendars found")

	// ErrNotAuthenticated means a fetch was attempted while disconnected.
	// State guards in the aggregation store should make this unreachable.
	ErrNotAuthenticated = errors.New("provider not authenticated")

	// ErrUnavailable wraps transient network or API failures. Surfaced but
	// never retried automatically.
	ErrUnavailable = errors.New("calendar provider unavailable")
)
