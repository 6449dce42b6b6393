package devicecal

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/wearcast/wearcast/internal/event"
	"github.com/wearcast/wearcast/internal/logging"
	"github.com/wearcast/wearcast/internal/provider"
)

// grantMarkerName is the permission marker persisted inside the calendar
// store once the user has granted access.
const grantMarkerName = ".calendar-access"

// Options configures an Adapter.
type Options struct {
	// Now supplies the current time. Defaults to time.Now.
	Now func() time.Time

	// Location is the local timezone for the today window. Defaults to
	// time.Local.
	Location *time.Location

	// Logger defaults to slog.Default.
	Logger *slog.Logger
}

// Adapter is the on-device calendar provider.
type Adapter struct {
	storePath string
	now       func() time.Time
	loc       *time.Location
	logger    *slog.Logger
}

// New creates a device calendar adapter over the given store directory.
func New(storePath string, opts Options) *Adapter {
	if opts.Now == nil {
		opts.Now = time.Now
	}
	if opts.Location == nil {
		opts.Location = time.Local
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	return &Adapter{
		storePath: storePath,
		now:       opts.Now,
		loc:       opts.Location,
		logger:    logging.WithProvider(opts.Logger, string(event.SourceDevice)),
	}
}

// Source identifies this adapter.
func (a *Adapter) Source() event.Source {
	return event.SourceDevice
}

// IsConnected reports whether access has been granted and the store is
// still readable.
func (a *Adapter) IsConnected() bool {
	if _, err := os.Stat(a.markerPath()); err != nil {
		return false
	}
	_, err := os.ReadDir(a.storePath)
	return err == nil
}

// Connect verifies the calendar store is accessible and persists the
// permission grant. A store that cannot be read maps to permission denied;
// a readable store with no calendars maps to no calendars found. No marker
// is written in either failure case.
func (a *Adapter) Connect(_ context.Context) (*provider.ConnectionInfo, error) {
	refs, err := a.listCalendars()
	if err != nil {
		return nil, err
	}
	if len(refs) == 0 {
		return nil, provider.ErrNoCalendarsFound
	}

	if err := os.WriteFile(a.markerPath(), []byte(time.Now().UTC().Format(time.RFC3339)+"\n"), 0o600); err != nil {
		return nil, fmt.Errorf("%w: %v", provider.ErrPermissionDenied, err)
	}

	a.logger.Info("device calendar connected",
		logging.Operation("connect"),
		slog.Int("calendars", len(refs)))

	return &provider.ConnectionInfo{Calendars: refs}, nil
}

// Disconnect removes the permission grant. Idempotent.
func (a *Adapter) Disconnect(_ context.Context) error {
	err := os.Remove(a.markerPath())
	if err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("failed to remove access marker: %w", err)
	}
	a.logger.Info("device calendar disconnected", logging.Operation("disconnect"))
	return nil
}

// FetchTodayEvents returns the current local day's events across all
// calendars in the store.
func (a *Adapter) FetchTodayEvents(ctx context.Context) ([]event.Event, error) {
	dayStart, dayEnd := a.todayWindow()

	occurrences, err := a.fetchWindow(ctx, dayStart, dayEnd)
	if err != nil {
		return nil, err
	}

	events := make([]event.Event, 0, len(occurrences))
	for _, occ := range occurrences {
		events = append(events, event.Event{
			ID:        occ.InstanceKey,
			Title:     displayTitle(occ.Summary),
			StartTime: event.FormatDisplayTime(occ.Start, occ.AllDay),
			EndTime:   event.FormatDisplayTime(occ.End, occ.AllDay),
			Location:  occ.Location,
			IsAllDay:  occ.AllDay,
			Occasion:  event.ClassifyOccasion(occ.Summary, occ.Location),
		})
	}
	return events, nil
}

// FetchEventsInRange returns events over an arbitrary window in canonical
// timestamp form.
func (a *Adapter) FetchEventsInRange(ctx context.Context, start, end time.Time) ([]event.RangeEvent, error) {
	occurrences, err := a.fetchWindow(ctx, start, end)
	if err != nil {
		return nil, err
	}

	events := make([]event.RangeEvent, 0, len(occurrences))
	for _, occ := range occurrences {
		events = append(events, event.RangeEvent{
			ID:       occ.InstanceKey,
			Title:    displayTitle(occ.Summary),
			Start:    occ.Start,
			End:      occ.End,
			Location: occ.Location,
			IsAllDay: occ.AllDay,
			Occasion: event.ClassifyOccasion(occ.Summary, occ.Location),
		})
	}
	return events, nil
}

func (a *Adapter) fetchWindow(_ context.Context, start, end time.Time) ([]occurrence, error) {
	if !a.IsConnected() {
		return nil, provider.ErrNotAuthenticated
	}

	files, err := a.calendarFiles()
	if err != nil {
		return nil, fmt.Errorf("%w: %v", provider.ErrUnavailable, err)
	}

	var all []parsedEvent
	for _, file := range files {
		body, err := os.ReadFile(file)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", provider.ErrUnavailable, err)
		}
		parsed, err := parseCalendar(body, a.loc)
		if err != nil {
			// One unparseable calendar file must not blank out the rest.
			a.logger.Warn("skipping unreadable calendar file",
				logging.Operation("fetch"),
				slog.String("file", filepath.Base(file)),
				logging.Err(err))
			continue
		}
		all = append(all, parsed...)
	}

	return expandOccurrences(all, start, end, a.loc), nil
}

func (a *Adapter) listCalendars() ([]provider.CalendarRef, error) {
	files, err := a.calendarFiles()
	if err != nil {
		return nil, fmt.Errorf("%w: %v", provider.ErrPermissionDenied, err)
	}

	refs := make([]provider.CalendarRef, 0, len(files))
	for _, file := range files {
		name := strings.TrimSuffix(filepath.Base(file), ".ics")
		refs = append(refs, provider.CalendarRef{ID: name, Name: name})
	}
	return refs, nil
}

func (a *Adapter) calendarFiles() ([]string, error) {
	entries, err := os.ReadDir(a.storePath)
	if err != nil {
		return nil, err
	}

	var files []string
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".ics") {
			continue
		}
		files = append(files, filepath.Join(a.storePath, entry.Name()))
	}
	sort.Strings(files)
	return files, nil
}

func (a *Adapter) markerPath() string {
	return filepath.Join(a.storePath, grantMarkerName)
}

func (a *Adapter) todayWindow() (time.Time, time.Time) {
	now := a.now().In(a.loc)
	start := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, a.loc)
	return start, start.AddDate(0, 0, 1)
}

func displayTitle(summary string) string {
	if summary == "" {
		return event.DefaultTitle
	}
	return summary
}
