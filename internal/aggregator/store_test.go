package aggregator

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wearcast/wearcast/internal/event"
	"github.com/wearcast/wearcast/internal/provider"
)

// fakeClock is a thread-safe manual clock.
type fakeClock struct {
	mu sync.Mutex
	t  time.Time
}

func newFakeClock(t time.Time) *fakeClock {
	return &fakeClock{t: t}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.t = c.t.Add(d)
}

// fakeProvider is a scriptable in-memory provider.
type fakeProvider struct {
	source event.Source

	mu         sync.Mutex
	connected  bool
	events     []event.Event
	rangeEvts  []event.RangeEvent
	fetchErr   error
	connectErr error
	fetchCalls int
	selected   []string
	selectErr  error

	// block, when non-nil, makes FetchTodayEvents wait until it is closed.
	block chan struct{}
}

func (f *fakeProvider) Source() event.Source { return f.source }

func (f *fakeProvider) IsConnected() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.connected
}

func (f *fakeProvider) Connect(context.Context) (*provider.ConnectionInfo, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.connectErr != nil {
		return nil, f.connectErr
	}
	f.connected = true
	return &provider.ConnectionInfo{AccountLabel: "user@example.com"}, nil
}

func (f *fakeProvider) Disconnect(context.Context) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.connected = false
	return nil
}

func (f *fakeProvider) FetchTodayEvents(context.Context) ([]event.Event, error) {
	f.mu.Lock()
	f.fetchCalls++
	block := f.block
	err := f.fetchErr
	events := append([]event.Event(nil), f.events...)
	f.mu.Unlock()

	if block != nil {
		<-block
	}
	if err != nil {
		return nil, err
	}
	return events, nil
}

func (f *fakeProvider) FetchEventsInRange(context.Context, time.Time, time.Time) ([]event.RangeEvent, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.fetchErr != nil {
		return nil, f.fetchErr
	}
	return append([]event.RangeEvent(nil), f.rangeEvts...), nil
}

func (f *fakeProvider) SelectedCalendars() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.selected...)
}

func (f *fakeProvider) SetSelectedCalendars(_ context.Context, ids []string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.selectErr != nil {
		return f.selectErr
	}
	f.selected = append([]string(nil), ids...)
	return nil
}

func (f *fakeProvider) calls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.fetchCalls
}

func (f *fakeProvider) setFetchErr(err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.fetchErr = err
}

func newTestStore(clock *fakeClock, providers ...provider.Provider) *Store {
	return New(providers, Options{
		TTL: DefaultTTL,
		Now: clock.Now,
	})
}

func waitFor(t *testing.T, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(time.Millisecond)
	}
	t.Fatal("condition not reached in time")
}

func TestRefreshWithoutConnectedProvidersClearsCache(t *testing.T) {
	clock := newFakeClock(time.Date(2026, 1, 15, 8, 0, 0, 0, time.UTC))
	google := &fakeProvider{source: event.SourceGoogle}
	s := newTestStore(clock, google)

	// Simulate leftover events from an earlier session.
	s.mu.Lock()
	s.events = []event.Event{{ID: "stale", Source: event.SourceGoogle}}
	s.mu.Unlock()

	require.NoError(t, s.Refresh(context.Background(), false))

	state := s.Snapshot()
	assert.Empty(t, state.Events)
	assert.NoError(t, state.Err)
	assert.Zero(t, google.calls())
}

func TestRefreshRespectsFreshnessTTL(t *testing.T) {
	clock := newFakeClock(time.Date(2026, 1, 15, 8, 0, 0, 0, time.UTC))
	google := &fakeProvider{
		source:    event.SourceGoogle,
		connected: true,
		events:    []event.Event{{ID: "g1", Title: "Team Standup", StartTime: "09:00"}},
	}
	s := newTestStore(clock, google)

	require.NoError(t, s.Refresh(context.Background(), false))
	require.Equal(t, 1, google.calls())

	// Within the TTL a second refresh is answered from cache.
	clock.Advance(5 * time.Minute)
	require.NoError(t, s.Refresh(context.Background(), false))
	assert.Equal(t, 1, google.calls())

	// Past the TTL the next refresh fetches again.
	clock.Advance(11 * time.Minute)
	require.NoError(t, s.Refresh(context.Background(), false))
	assert.Equal(t, 2, google.calls())
}

func TestRefreshForceBypassesTTL(t *testing.T) {
	clock := newFakeClock(time.Date(2026, 1, 15, 8, 0, 0, 0, time.UTC))
	google := &fakeProvider{source: event.SourceGoogle, connected: true}
	s := newTestStore(clock, google)

	require.NoError(t, s.Refresh(context.Background(), false))
	require.NoError(t, s.Refresh(context.Background(), true))
	assert.Equal(t, 2, google.calls())
}

func TestRefreshPartialFailureCommitsSurvivors(t *testing.T) {
	clock := newFakeClock(time.Date(2026, 1, 15, 8, 0, 0, 0, time.UTC))
	google := &fakeProvider{
		source:    event.SourceGoogle,
		connected: true,
		events:    []event.Event{{ID: "g1", Title: "Team Standup", StartTime: "09:00", EndTime: "09:15", Occasion: event.OccasionWork}},
	}
	device := &fakeProvider{
		source:    event.SourceDevice,
		connected: true,
		fetchErr:  provider.ErrUnavailable,
	}
	s := newTestStore(clock, google, device)

	err := s.Refresh(context.Background(), false)
	require.Error(t, err)
	assert.ErrorIs(t, err, provider.ErrUnavailable)

	state := s.Snapshot()
	require.Len(t, state.Events, 1)
	assert.Equal(t, "g1", state.Events[0].ID)
	assert.Equal(t, event.SourceGoogle, state.Events[0].Source)
	assert.Equal(t, clock.Now(), state.LastFetched)
	assert.Error(t, state.Err)

	// The failing provider stays connected; unavailability is transient.
	assert.True(t, state.Connections[event.SourceDevice].Connected)
}

func TestRefreshTotalFailurePreservesStaleEvents(t *testing.T) {
	clock := newFakeClock(time.Date(2026, 1, 15, 8, 0, 0, 0, time.UTC))
	google := &fakeProvider{
		source:    event.SourceGoogle,
		connected: true,
		events:    []event.Event{{ID: "g1", Title: "Team Standup", StartTime: "09:00"}},
	}
	s := newTestStore(clock, google)

	require.NoError(t, s.Refresh(context.Background(), false))
	fetchedAt := s.Snapshot().LastFetched

	google.setFetchErr(provider.ErrUnavailable)
	clock.Advance(20 * time.Minute)

	err := s.Refresh(context.Background(), false)
	require.Error(t, err)

	state := s.Snapshot()
	require.Len(t, state.Events, 1)
	assert.Equal(t, "g1", state.Events[0].ID)
	assert.Equal(t, fetchedAt, state.LastFetched)
	assert.Error(t, state.Err)
}

func TestRefreshRetriesWithinTTLAfterTotalFailure(t *testing.T) {
	clock := newFakeClock(time.Date(2026, 1, 15, 8, 0, 0, 0, time.UTC))
	google := &fakeProvider{
		source:    event.SourceGoogle,
		connected: true,
		events:    []event.Event{{ID: "g1", Title: "Team Standup", StartTime: "09:00"}},
	}
	s := newTestStore(clock, google)

	require.NoError(t, s.Refresh(context.Background(), false))
	require.Equal(t, 1, google.calls())

	google.setFetchErr(provider.ErrUnavailable)
	clock.Advance(time.Minute)
	require.Error(t, s.Refresh(context.Background(), true))
	require.Equal(t, 2, google.calls())

	// A failed attempt does not count as fresh: the next non-forced refresh
	// retries instead of sitting on the error until the TTL expires.
	clock.Advance(time.Minute)
	require.Error(t, s.Refresh(context.Background(), false))
	assert.Equal(t, 3, google.calls())

	google.setFetchErr(nil)
	require.NoError(t, s.Refresh(context.Background(), false))
	require.Equal(t, 4, google.calls())

	// Success restores freshness.
	clock.Advance(time.Minute)
	require.NoError(t, s.Refresh(context.Background(), false))
	assert.Equal(t, 4, google.calls())
}

func TestRefreshClearsDiagnosticOnFullSuccess(t *testing.T) {
	clock := newFakeClock(time.Date(2026, 1, 15, 8, 0, 0, 0, time.UTC))
	google := &fakeProvider{source: event.SourceGoogle, connected: true, fetchErr: provider.ErrUnavailable}
	s := newTestStore(clock, google)

	require.Error(t, s.Refresh(context.Background(), false))
	require.Error(t, s.Snapshot().Err)

	google.setFetchErr(nil)
	require.NoError(t, s.Refresh(context.Background(), true))
	assert.NoError(t, s.Snapshot().Err)
}

func TestRefreshAuthExpiryDisconnectsProvider(t *testing.T) {
	clock := newFakeClock(time.Date(2026, 1, 15, 8, 0, 0, 0, time.UTC))
	google := &fakeProvider{
		source:    event.SourceGoogle,
		connected: true,
		fetchErr:  provider.ErrAuthExpired,
	}
	device := &fakeProvider{
		source:    event.SourceDevice,
		connected: true,
		events:    []event.Event{{ID: "d1", Title: "Dentist", StartTime: "10:00"}},
	}
	s := newTestStore(clock, google, device)

	err := s.Refresh(context.Background(), false)
	require.Error(t, err)
	assert.ErrorIs(t, err, provider.ErrAuthExpired)

	state := s.Snapshot()
	assert.False(t, state.Connections[event.SourceGoogle].Connected)
	assert.True(t, state.Connections[event.SourceDevice].Connected)
	require.Len(t, state.Events, 1)
	assert.Equal(t, event.SourceDevice, state.Events[0].Source)
}

func TestRefreshConcurrentCallIsNoOp(t *testing.T) {
	clock := newFakeClock(time.Date(2026, 1, 15, 8, 0, 0, 0, time.UTC))
	block := make(chan struct{})
	google := &fakeProvider{
		source:    event.SourceGoogle,
		connected: true,
		events:    []event.Event{{ID: "g1", StartTime: "09:00"}},
		block:     block,
	}
	s := newTestStore(clock, google)

	done := make(chan error, 1)
	go func() { done <- s.Refresh(context.Background(), false) }()

	waitFor(t, func() bool { return s.Snapshot().IsLoading })

	// Second refresh while the first is in flight: silent no-op.
	require.NoError(t, s.Refresh(context.Background(), true))
	assert.Equal(t, 1, google.calls())

	close(block)
	require.NoError(t, <-done)

	state := s.Snapshot()
	assert.False(t, state.IsLoading)
	assert.Len(t, state.Events, 1)
	assert.Equal(t, 1, google.calls())
}

func TestRefreshMergesAcrossSourcesInOrder(t *testing.T) {
	clock := newFakeClock(time.Date(2026, 1, 15, 8, 0, 0, 0, time.UTC))
	google := &fakeProvider{
		source:    event.SourceGoogle,
		connected: true,
		events: []event.Event{
			{ID: "g1", Title: "Dinner with Sam", StartTime: "19:00", EndTime: "21:00", Occasion: event.OccasionSocial},
			{ID: "g2", Title: "Team Standup", StartTime: "09:00", EndTime: "09:15", Occasion: event.OccasionWork},
		},
	}
	device := &fakeProvider{
		source:    event.SourceDevice,
		connected: true,
		events: []event.Event{
			{ID: "d1", Title: "Public Holiday", StartTime: event.AllDayMarker, EndTime: event.AllDayMarker, IsAllDay: true},
			{ID: "d2", Title: "Gym", StartTime: "12:00", EndTime: "13:00", Occasion: event.OccasionSport},
		},
	}
	s := newTestStore(clock, google, device)

	require.NoError(t, s.Refresh(context.Background(), false))

	state := s.Snapshot()
	require.Len(t, state.Events, 4)
	assert.Equal(t, "d1", state.Events[0].ID)
	assert.Equal(t, "g2", state.Events[1].ID)
	assert.Equal(t, "d2", state.Events[2].ID)
	assert.Equal(t, "g1", state.Events[3].ID)

	assert.Equal(t, event.SourceDevice, state.Events[0].Source)
	assert.Equal(t, event.SourceGoogle, state.Events[1].Source)
	assert.Equal(t, event.OccasionWork, state.Events[1].Occasion)
	assert.Equal(t, event.OccasionSocial, state.Events[3].Occasion)
}

func TestRefreshDropsEventsOfProviderDisconnectedMidFlight(t *testing.T) {
	clock := newFakeClock(time.Date(2026, 1, 15, 8, 0, 0, 0, time.UTC))
	block := make(chan struct{})
	google := &fakeProvider{
		source:    event.SourceGoogle,
		connected: true,
		events:    []event.Event{{ID: "g1", StartTime: "09:00"}},
		block:     block,
	}
	device := &fakeProvider{
		source:    event.SourceDevice,
		connected: true,
		events:    []event.Event{{ID: "d1", StartTime: "10:00"}},
	}
	s := newTestStore(clock, google, device)

	done := make(chan error, 1)
	go func() { done <- s.Refresh(context.Background(), false) }()
	waitFor(t, func() bool { return s.Snapshot().IsLoading })

	require.NoError(t, s.Disconnect(context.Background(), event.SourceGoogle))

	close(block)
	require.NoError(t, <-done)

	state := s.Snapshot()
	require.Len(t, state.Events, 1)
	assert.Equal(t, "d1", state.Events[0].ID)
	assert.False(t, state.Connections[event.SourceGoogle].Connected)
}

func TestConnectRefreshesImmediately(t *testing.T) {
	clock := newFakeClock(time.Date(2026, 1, 15, 8, 0, 0, 0, time.UTC))
	google := &fakeProvider{
		source: event.SourceGoogle,
		events: []event.Event{{ID: "g1", Title: "Team Standup", StartTime: "09:00"}},
	}
	s := newTestStore(clock, google)

	info, err := s.Connect(context.Background(), event.SourceGoogle)
	require.NoError(t, err)
	assert.Equal(t, "user@example.com", info.AccountLabel)

	state := s.Snapshot()
	assert.True(t, state.Connections[event.SourceGoogle].Connected)
	assert.False(t, state.Connections[event.SourceGoogle].Connecting)
	require.Len(t, state.Events, 1)
	assert.Equal(t, "g1", state.Events[0].ID)
}

func TestConnectFailureRecordsDiagnostic(t *testing.T) {
	clock := newFakeClock(time.Date(2026, 1, 15, 8, 0, 0, 0, time.UTC))
	google := &fakeProvider{source: event.SourceGoogle, connectErr: provider.ErrPermissionDenied}
	s := newTestStore(clock, google)

	_, err := s.Connect(context.Background(), event.SourceGoogle)
	require.ErrorIs(t, err, provider.ErrPermissionDenied)

	state := s.Snapshot()
	assert.False(t, state.Connections[event.SourceGoogle].Connected)
	assert.False(t, state.Connections[event.SourceGoogle].Connecting)
	assert.ErrorIs(t, state.Err, provider.ErrPermissionDenied)
	assert.Zero(t, google.calls())
}

func TestConnectUnknownProvider(t *testing.T) {
	clock := newFakeClock(time.Now())
	s := newTestStore(clock)

	_, err := s.Connect(context.Background(), event.Source("outlook"))
	assert.ErrorIs(t, err, ErrUnknownProvider)
}

func TestDisconnectRemovesProviderEvents(t *testing.T) {
	clock := newFakeClock(time.Date(2026, 1, 15, 8, 0, 0, 0, time.UTC))
	google := &fakeProvider{
		source:    event.SourceGoogle,
		connected: true,
		events:    []event.Event{{ID: "g1", StartTime: "09:00"}},
	}
	device := &fakeProvider{
		source:    event.SourceDevice,
		connected: true,
		events:    []event.Event{{ID: "d1", StartTime: "10:00"}},
	}
	s := newTestStore(clock, google, device)
	require.NoError(t, s.Refresh(context.Background(), false))
	require.Len(t, s.Snapshot().Events, 2)

	require.NoError(t, s.Disconnect(context.Background(), event.SourceGoogle))

	state := s.Snapshot()
	require.Len(t, state.Events, 1)
	assert.Equal(t, "d1", state.Events[0].ID)
	assert.False(t, google.IsConnected())
}

func TestEventsInRangeMergesAndTolerates(t *testing.T) {
	clock := newFakeClock(time.Date(2026, 1, 15, 8, 0, 0, 0, time.UTC))
	google := &fakeProvider{
		source:    event.SourceGoogle,
		connected: true,
		rangeEvts: []event.RangeEvent{
			{ID: "g1", Start: time.Date(2026, 1, 17, 19, 0, 0, 0, time.UTC)},
		},
	}
	device := &fakeProvider{
		source:    event.SourceDevice,
		connected: true,
		fetchErr:  provider.ErrUnavailable,
	}
	s := newTestStore(clock, google, device)

	events, err := s.EventsInRange(context.Background(),
		time.Date(2026, 1, 15, 0, 0, 0, 0, time.UTC),
		time.Date(2026, 1, 22, 0, 0, 0, 0, time.UTC))
	require.Error(t, err)
	require.Len(t, events, 1)
	assert.Equal(t, event.SourceGoogle, events[0].Source)
}

func TestSnapshotIsACopy(t *testing.T) {
	clock := newFakeClock(time.Date(2026, 1, 15, 8, 0, 0, 0, time.UTC))
	google := &fakeProvider{
		source:    event.SourceGoogle,
		connected: true,
		events:    []event.Event{{ID: "g1", StartTime: "09:00"}},
	}
	s := newTestStore(clock, google)
	require.NoError(t, s.Refresh(context.Background(), false))

	state := s.Snapshot()
	state.Events[0].ID = "mutated"

	assert.Equal(t, "g1", s.Snapshot().Events[0].ID)
}
