package devicecal

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func ics(lines ...string) []byte {
	all := append([]string{
		"BEGIN:VCALENDAR",
		"VERSION:2.0",
		"PRODID:-//test//EN",
	}, lines...)
	all = append(all, "END:VCALENDAR")
	return []byte(strings.Join(all, "\r\n") + "\r\n")
}

func TestParseCalendarTimedEvent(t *testing.T) {
	body := ics(
		"BEGIN:VEVENT",
		"UID:ev-1",
		"SUMMARY:Gym Session",
		"LOCATION:City Gym",
		"DTSTART:20260115T070000Z",
		"DTEND:20260115T080000Z",
		"END:VEVENT",
	)

	events, err := parseCalendar(body, time.UTC)
	require.NoError(t, err)
	require.Len(t, events, 1)

	ev := events[0]
	assert.Equal(t, "ev-1", ev.UID)
	assert.Equal(t, "Gym Session", ev.Summary)
	assert.Equal(t, "City Gym", ev.Location)
	assert.False(t, ev.AllDay)
	assert.False(t, ev.Cancelled)
	assert.Equal(t, time.Date(2026, 1, 15, 7, 0, 0, 0, time.UTC), ev.Start.UTC())
	assert.Equal(t, time.Hour, ev.End.Sub(ev.Start))
}

func TestParseCalendarAllDayEvent(t *testing.T) {
	body := ics(
		"BEGIN:VEVENT",
		"UID:ev-2",
		"SUMMARY:Public Holiday",
		"DTSTART;VALUE=DATE:20260116",
		"DTEND;VALUE=DATE:20260117",
		"END:VEVENT",
	)

	events, err := parseCalendar(body, time.UTC)
	require.NoError(t, err)
	require.Len(t, events, 1)

	ev := events[0]
	assert.True(t, ev.AllDay)
	assert.Equal(t, time.Date(2026, 1, 16, 0, 0, 0, 0, time.UTC), ev.Start)
	assert.Equal(t, time.Date(2026, 1, 17, 0, 0, 0, 0, time.UTC), ev.End)
}

func TestParseCalendarSkipsEventWithoutUID(t *testing.T) {
	body := ics(
		"BEGIN:VEVENT",
		"SUMMARY:No identity",
		"DTSTART:20260115T070000Z",
		"END:VEVENT",
		"BEGIN:VEVENT",
		"UID:ev-3",
		"SUMMARY:Kept",
		"DTSTART:20260115T090000Z",
		"DTEND:20260115T100000Z",
		"END:VEVENT",
	)

	events, err := parseCalendar(body, time.UTC)
	require.NoError(t, err)
	require.Len(t, events, 1)
	assert.Equal(t, "ev-3", events[0].UID)
}

func TestParseCalendarCancelledStatus(t *testing.T) {
	body := ics(
		"BEGIN:VEVENT",
		"UID:ev-4",
		"SUMMARY:Cancelled Meeting",
		"STATUS:CANCELLED",
		"DTSTART:20260115T070000Z",
		"DTEND:20260115T080000Z",
		"END:VEVENT",
	)

	events, err := parseCalendar(body, time.UTC)
	require.NoError(t, err)
	require.Len(t, events, 1)
	assert.True(t, events[0].Cancelled)
}

func TestParseCalendarEmptyPayload(t *testing.T) {
	_, err := parseCalendar(nil, time.UTC)
	assert.Error(t, err)
}

func TestParseCalendarRecurrenceAndExdates(t *testing.T) {
	body := ics(
		"BEGIN:VEVENT",
		"UID:ev-5",
		"SUMMARY:Weekly Standup",
		"DTSTART:20260105T090000Z",
		"DTEND:20260105T091500Z",
		"RRULE:FREQ=WEEKLY;BYDAY=MO",
		"EXDATE:20260119T090000Z",
		"END:VEVENT",
	)

	events, err := parseCalendar(body, time.UTC)
	require.NoError(t, err)
	require.Len(t, events, 1)

	ev := events[0]
	assert.Equal(t, "FREQ=WEEKLY;BYDAY=MO", ev.RawRRule)
	require.Len(t, ev.ExDates, 1)
	assert.Equal(t, time.Date(2026, 1, 19, 9, 0, 0, 0, time.UTC), ev.ExDates[0].UTC())
}

func TestExpandOccurrencesRecurringInWindow(t *testing.T) {
	events := []parsedEvent{{
		UID:      "ev-5",
		Summary:  "Weekly Standup",
		Start:    time.Date(2026, 1, 5, 9, 0, 0, 0, time.UTC),
		End:      time.Date(2026, 1, 5, 9, 15, 0, 0, time.UTC),
		RawRRule: "FREQ=WEEKLY;BYDAY=MO",
		ExDates:  []time.Time{time.Date(2026, 1, 19, 9, 0, 0, 0, time.UTC)},
	}}

	windowStart := time.Date(2026, 1, 12, 0, 0, 0, 0, time.UTC)
	windowEnd := time.Date(2026, 1, 26, 0, 0, 0, 0, time.UTC)

	out := expandOccurrences(events, windowStart, windowEnd, time.UTC)

	// Jan 12 and Jan 19 fall in the window; the exdate removes Jan 19.
	require.Len(t, out, 1)
	assert.Equal(t, time.Date(2026, 1, 12, 9, 0, 0, 0, time.UTC), out[0].Start)
	assert.Equal(t, "ev-5#20260112T0900", out[0].InstanceKey)
}

func TestExpandOccurrencesDropsCancelled(t *testing.T) {
	events := []parsedEvent{{
		UID:       "ev-6",
		Summary:   "Cancelled",
		Start:     time.Date(2026, 1, 15, 9, 0, 0, 0, time.UTC),
		End:       time.Date(2026, 1, 15, 10, 0, 0, 0, time.UTC),
		Cancelled: true,
	}}

	out := expandOccurrences(events,
		time.Date(2026, 1, 15, 0, 0, 0, 0, time.UTC),
		time.Date(2026, 1, 16, 0, 0, 0, 0, time.UTC),
		time.UTC)
	assert.Empty(t, out)
}

func TestExpandOccurrencesNonRecurringOutsideWindow(t *testing.T) {
	events := []parsedEvent{{
		UID:     "ev-7",
		Summary: "Yesterday",
		Start:   time.Date(2026, 1, 14, 9, 0, 0, 0, time.UTC),
		End:     time.Date(2026, 1, 14, 10, 0, 0, 0, time.UTC),
	}}

	out := expandOccurrences(events,
		time.Date(2026, 1, 15, 0, 0, 0, 0, time.UTC),
		time.Date(2026, 1, 16, 0, 0, 0, 0, time.UTC),
		time.UTC)
	assert.Empty(t, out)
}
