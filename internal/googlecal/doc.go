// Package googlecal implements the remote OAuth calendar provider on top
// of the Google Calendar API. It normalizes API events into the shared
// event model and handles the credential lifecycle, including clearing
// stored tokens when the session has expired upstream.
package googlecal
