package googlecal

import (
	"time"

	calendar "google.golang.org/api/calendar/v3"

	"github.com/wearcast/wearcast/internal/event"
)

const statusCancelled = "cancelled"

// mapTodayEvents converts API events into the normalized display shape,
// dropping cancelled events. Source is left empty; the aggregation store
// tags it.
func mapTodayEvents(items []*calendar.Event, loc *time.Location) []event.Event {
	events := make([]event.Event, 0, len(items))
	for _, item := range items {
		if item.Status == statusCancelled {
			continue
		}
		events = append(events, toEvent(item, loc))
	}
	return events
}

// mapRangeEvents converts API events into the canonical timestamp shape,
// dropping cancelled events.
func mapRangeEvents(items []*calendar.Event, loc *time.Location) []event.RangeEvent {
	events := make([]event.RangeEvent, 0, len(items))
	for _, item := range items {
		if item.Status == statusCancelled {
			continue
		}
		events = append(events, toRangeEvent(item, loc))
	}
	return events
}

// toEvent converts a single Google Calendar event to the display shape.
func toEvent(item *calendar.Event, loc *time.Location) event.Event {
	title := item.Summary
	if title == "" {
		title = event.DefaultTitle
	}

	start, allDay := parseEventTime(item.Start, loc)
	end, _ := parseEventTime(item.End, loc)

	return event.Event{
		ID:        item.Id,
		Title:     title,
		StartTime: event.FormatDisplayTime(start, allDay),
		EndTime:   event.FormatDisplayTime(end, allDay),
		Location:  item.Location,
		IsAllDay:  allDay,
		Occasion:  event.ClassifyOccasion(title, item.Location),
	}
}

// toRangeEvent converts a single Google Calendar event to the canonical
// shape.
func toRangeEvent(item *calendar.Event, loc *time.Location) event.RangeEvent {
	title := item.Summary
	if title == "" {
		title = event.DefaultTitle
	}

	start, allDay := parseEventTime(item.Start, loc)
	end, _ := parseEventTime(item.End, loc)

	return event.RangeEvent{
		ID:       item.Id,
		Title:    title,
		Start:    start,
		End:      end,
		Location: item.Location,
		IsAllDay: allDay,
		Occasion: event.ClassifyOccasion(title, item.Location),
	}
}

// parseEventTime resolves an EventDateTime into a concrete time in loc.
// Date-only values mark the event as all-day.
func parseEventTime(edt *calendar.EventDateTime, loc *time.Location) (time.Time, bool) {
	if edt == nil {
		return time.Time{}, false
	}
	if edt.DateTime != "" {
		if t, err := time.Parse(time.RFC3339, edt.DateTime); err == nil {
			return t.In(loc), false
		}
		return time.Time{}, false
	}
	if edt.Date != "" {
		if t, err := time.ParseInLocation("2006-01-02", edt.Date, loc); err == nil {
			return t, true
		}
	}
	return time.Time{}, edt.Date != ""
}
