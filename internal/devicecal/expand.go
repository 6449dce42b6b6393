package devicecal

import (
	"fmt"
	"time"

	"github.com/teambition/rrule-go"
)

// maxOccurrencesPerEvent caps recurrence expansion so a malformed rule
// cannot produce an unbounded series.
const maxOccurrencesPerEvent = 1000

// occurrence is one concrete instance of an event after recurrence
// expansion, in the display timezone.
type occurrence struct {
	// InstanceKey uniquely identifies this occurrence within the provider,
	// derived from the UID and the instance start time.
	InstanceKey string

	Summary  string
	Location string
	Start    time.Time
	End      time.Time
	AllDay   bool
}

// expandOccurrences expands parsed events into concrete occurrences that
// overlap the [windowStart, windowEnd) window, converted into loc.
// Cancelled events are dropped here so callers never see them.
func expandOccurrences(events []parsedEvent, windowStart, windowEnd time.Time, loc *time.Location) []occurrence {
	out := make([]occurrence, 0, len(events))

	for _, ev := range events {
		if ev.Cancelled {
			continue
		}
		if ev.RawRRule == "" {
			if overlaps(ev.Start, ev.End, windowStart, windowEnd) {
				out = append(out, toOccurrence(ev, ev.Start, loc))
			}
			continue
		}
		out = append(out, expandRecurring(ev, windowStart, windowEnd, loc)...)
	}

	return out
}

func expandRecurring(ev parsedEvent, windowStart, windowEnd time.Time, loc *time.Location) []occurrence {
	opts, err := rrule.StrToROption(ev.RawRRule)
	if err != nil {
		return nil
	}
	opts.Dtstart = ev.Start

	rule, err := rrule.NewRRule(*opts)
	if err != nil {
		return nil
	}

	duration := ev.End.Sub(ev.Start)
	if duration < 0 {
		duration = 0
	}

	// Search from one event-duration before the window so instances that
	// started earlier but still overlap are included.
	starts := rule.Between(windowStart.Add(-duration), windowEnd, true)

	var out []occurrence
	for _, start := range starts {
		if len(out) >= maxOccurrencesPerEvent {
			break
		}
		if excluded(start, ev.ExDates) {
			continue
		}
		if !overlaps(start, start.Add(duration), windowStart, windowEnd) {
			continue
		}
		out = append(out, toOccurrence(ev, start, loc))
	}
	return out
}

func toOccurrence(ev parsedEvent, start time.Time, loc *time.Location) occurrence {
	duration := ev.End.Sub(ev.Start)
	if duration < 0 {
		duration = 0
	}
	localStart := start.In(loc)
	return occurrence{
		InstanceKey: fmt.Sprintf("%s#%s", ev.UID, localStart.Format("20060102T1504")),
		Summary:     ev.Summary,
		Location:    ev.Location,
		Start:       localStart,
		End:         start.Add(duration).In(loc),
		AllDay:      ev.AllDay,
	}
}

func excluded(t time.Time, exDates []time.Time) bool {
	for _, ex := range exDates {
		if ex.Equal(t) {
			return true
		}
	}
	return false
}

// overlaps reports whether [aStart, aEnd) intersects [bStart, bEnd).
// Zero-length events count as overlapping when their start is in range.
func overlaps(aStart, aEnd, bStart, bEnd time.Time) bool {
	if !aEnd.After(aStart) {
		return !aStart.Before(bStart) && aStart.Before(bEnd)
	}
	return aStart.Before(bEnd) && aEnd.After(bStart)
}
