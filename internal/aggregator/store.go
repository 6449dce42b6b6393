package aggregator

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/wearcast/wearcast/internal/event"
	"github.com/wearcast/wearcast/internal/instrumentation"
	"github.com/wearcast/wearcast/internal/logging"
	"github.com/wearcast/wearcast/internal/provider"
)

// DefaultTTL is how long a committed today view stays fresh.
const DefaultTTL = 15 * time.Minute

// ErrUnknownProvider is returned for operations addressing a source that no
// registered provider serves.
var ErrUnknownProvider = errors.New("unknown provider")

// Options configures a Store.
type Options struct {
	// TTL is the freshness window for cached events. Defaults to DefaultTTL.
	TTL time.Duration

	// Now supplies the current time. Defaults to time.Now.
	Now func() time.Time

	// Logger defaults to slog.Default.
	Logger *slog.Logger

	// Metrics may be nil.
	Metrics *instrumentation.Metrics
}

// Store aggregates events across providers and caches the merged view.
// All methods are safe for concurrent use.
type Store struct {
	providers []provider.Provider
	bySource  map[event.Source]provider.Provider
	ttl       time.Duration
	now       func() time.Time
	logger    *slog.Logger
	metrics   *instrumentation.Metrics

	mu          sync.Mutex
	events      []event.Event
	lastFetched time.Time
	lastErr     error
	isLoading   bool
	lastOK      bool
	connections map[event.Source]*ConnectionState
}

// New creates a store over the given providers and seeds each provider's
// connection state from its persisted credentials.
func New(providers []provider.Provider, opts Options) *Store {
	if opts.TTL <= 0 {
		opts.TTL = DefaultTTL
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}

	s := &Store{
		providers:   providers,
		bySource:    make(map[event.Source]provider.Provider, len(providers)),
		ttl:         opts.TTL,
		now:         opts.Now,
		logger:      opts.Logger,
		metrics:     opts.Metrics,
		connections: make(map[event.Source]*ConnectionState, len(providers)),
	}
	for _, p := range providers {
		s.bySource[p.Source()] = p
		s.connections[p.Source()] = s.probeConnection(p)
	}
	s.recordConnectedGauge()
	return s
}

// Initialize seeds the merged view at startup. Connection state was probed
// from persisted credentials at construction; when any provider is connected
// this runs a first refresh, otherwise the view stays empty.
func (s *Store) Initialize(ctx context.Context) error {
	return s.Refresh(ctx, false)
}

// probeConnection reads a provider's persisted connection state.
func (s *Store) probeConnection(p provider.Provider) *ConnectionState {
	c := &ConnectionState{Connected: p.IsConnected()}
	if !c.Connected {
		return c
	}
	if labeler, ok := p.(provider.AccountLabeler); ok {
		c.AccountLabel = labeler.AccountLabel()
	}
	if selector, ok := p.(provider.CalendarSelector); ok {
		c.SelectedCalendarIDs = selector.SelectedCalendars()
	}
	return c
}

// Snapshot returns a copy of the current store state.
func (s *Store) Snapshot() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.snapshotLocked()
}

func (s *Store) snapshotLocked() State {
	state := State{
		Events:      make([]event.Event, len(s.events)),
		IsLoading:   s.isLoading,
		LastFetched: s.lastFetched,
		Err:         s.lastErr,
		Connections: make(map[event.Source]ConnectionState, len(s.connections)),
	}
	copy(state.Events, s.events)
	for src, c := range s.connections {
		cc := *c
		cc.SelectedCalendarIDs = append([]string(nil), c.SelectedCalendarIDs...)
		state.Connections[src] = cc
	}
	return state
}

// fetchResult is one provider's contribution to a refresh.
type fetchResult struct {
	source event.Source
	events []event.Event
	err    error
}

// Refresh fetches today's events from every connected provider and commits
// the merged view. Guards are applied in order: a refresh already in flight
// makes this call a silent no-op; no connected providers clears the cache
// without fetching; a fresh cache short-circuits unless force is set.
//
// A provider failing with ErrAuthExpired is transitioned to disconnected and
// the refresh continues. At least one success commits the merged events and
// advances the fetch timestamp; failures surface through the returned error
// and the snapshot diagnostic. When every provider fails, stale events are
// preserved.
func (s *Store) Refresh(ctx context.Context, force bool) error {
	s.mu.Lock()
	if s.isLoading {
		s.mu.Unlock()
		return nil
	}

	connected := s.connectedProvidersLocked()
	if len(connected) == 0 {
		s.events = nil
		s.lastErr = nil
		s.mu.Unlock()
		return nil
	}

	if !force && s.freshLocked() {
		s.mu.Unlock()
		s.metrics.RecordCacheLookup(ctx, true)
		return nil
	}
	s.metrics.RecordCacheLookup(ctx, false)

	s.isLoading = true
	s.mu.Unlock()

	started := s.now()
	results := s.fetchAll(ctx, connected)
	err := s.commit(results)

	status := logging.StatusSuccess
	if err != nil {
		status = logging.StatusError
	}
	s.metrics.RecordRefresh(ctx, status, s.now().Sub(started))
	return err
}

// connectedProvidersLocked returns the providers currently marked connected.
func (s *Store) connectedProvidersLocked() []provider.Provider {
	var connected []provider.Provider
	for _, p := range s.providers {
		if c := s.connections[p.Source()]; c != nil && c.Connected {
			connected = append(connected, p)
		}
	}
	return connected
}

// freshLocked reports whether the cache can answer a non-forced refresh.
// A totally failed attempt leaves the cache stale even inside the TTL so
// the next refresh retries instead of pinning the error until expiry.
func (s *Store) freshLocked() bool {
	return s.lastOK && !s.lastFetched.IsZero() && s.now().Sub(s.lastFetched) < s.ttl
}

// fetchAll fans one fetch per provider out and waits for all of them.
func (s *Store) fetchAll(ctx context.Context, providers []provider.Provider) []fetchResult {
	results := make([]fetchResult, len(providers))
	var wg sync.WaitGroup
	for i, p := range providers {
		wg.Add(1)
		go func(i int, p provider.Provider) {
			defer wg.Done()
			started := s.now()
			events, err := p.FetchTodayEvents(ctx)
			s.metrics.RecordProviderFetch(ctx, string(p.Source()), s.now().Sub(started), err)
			results[i] = fetchResult{source: p.Source(), events: events, err: err}
		}(i, p)
	}
	wg.Wait()
	return results
}

// commit folds fetch results into the store under the lock. An expired
// session marks its provider disconnected. Events from providers that
// disconnected while the fetch was in flight are dropped at commit time.
func (s *Store) commit(results []fetchResult) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.isLoading = false

	var (
		succeeded [][]event.Event
		failures  []error
		anyOK     bool
	)

	for _, r := range results {
		if r.err != nil {
			if errors.Is(r.err, provider.ErrAuthExpired) {
				s.markDisconnectedLocked(r.source)
				s.logger.Warn("provider session expired during refresh",
					logging.Operation("refresh"),
					logging.Provider(string(r.source)))
			}
			failures = append(failures, fmt.Errorf("%s: %w", r.source, r.err))
			s.logger.Error("provider fetch failed",
				logging.Operation("refresh"),
				logging.Provider(string(r.source)),
				logging.Err(r.err))
			continue
		}

		// The provider may have been disconnected while this fetch ran.
		if c := s.connections[r.source]; c == nil || !c.Connected {
			continue
		}

		tagged := make([]event.Event, len(r.events))
		for i, ev := range r.events {
			ev.Source = r.source
			tagged[i] = ev
		}
		succeeded = append(succeeded, tagged)
		anyOK = true
	}

	joined := errors.Join(failures...)

	if anyOK {
		s.events = event.Merge(succeeded...)
		s.lastFetched = s.now()
		s.lastErr = joined
		s.lastOK = true
		s.logger.Info("refresh committed",
			logging.Operation("refresh"),
			slog.Int("events", len(s.events)),
			slog.Int("failed_providers", len(failures)))
		return joined
	}

	// Total failure: keep whatever was cached and do not advance freshness.
	s.lastErr = joined
	s.lastOK = false
	return joined
}

func (s *Store) markDisconnectedLocked(source event.Source) {
	if c := s.connections[source]; c != nil {
		*c = ConnectionState{}
	}
	s.recordConnectedGaugeLocked()
}

// Connect runs the handshake for one provider and, on success, refreshes the
// merged view so its events appear immediately.
func (s *Store) Connect(ctx context.Context, source event.Source) (*provider.ConnectionInfo, error) {
	p, ok := s.bySource[source]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownProvider, source)
	}

	s.mu.Lock()
	c := s.connections[source]
	if c.Connecting {
		s.mu.Unlock()
		return nil, fmt.Errorf("connect already in progress for %s", source)
	}
	c.Connecting = true
	s.mu.Unlock()

	info, err := p.Connect(ctx)

	s.mu.Lock()
	c.Connecting = false
	if err != nil {
		// Surface the typed handshake error through the snapshot so status
		// consumers see why the provider stayed disconnected.
		s.lastErr = err
		s.mu.Unlock()
		return nil, err
	}
	c.Connected = true
	c.AccountLabel = info.AccountLabel
	if selector, ok := p.(provider.CalendarSelector); ok {
		c.SelectedCalendarIDs = selector.SelectedCalendars()
	}
	s.recordConnectedGaugeLocked()
	s.mu.Unlock()

	if rerr := s.Refresh(ctx, true); rerr != nil {
		s.logger.Warn("post-connect refresh incomplete",
			logging.Operation("connect"),
			logging.Provider(string(source)),
			logging.Err(rerr))
	}
	return info, nil
}

// Disconnect clears one provider's credentials and removes its events from
// the merged view.
func (s *Store) Disconnect(ctx context.Context, source event.Source) error {
	p, ok := s.bySource[source]
	if !ok {
		return fmt.Errorf("%w: %s", ErrUnknownProvider, source)
	}
	if err := p.Disconnect(ctx); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.markDisconnectedLocked(source)

	kept := s.events[:0:0]
	for _, ev := range s.events {
		if ev.Source != source {
			kept = append(kept, ev)
		}
	}
	s.events = kept
	return nil
}

// EventsInRange fetches events over an arbitrary window from every connected
// provider and merges them in chronological order. Range queries bypass the
// today cache. Partial failures return the events that did arrive together
// with the joined error.
func (s *Store) EventsInRange(ctx context.Context, start, end time.Time) ([]event.RangeEvent, error) {
	s.mu.Lock()
	connected := s.connectedProvidersLocked()
	s.mu.Unlock()

	if len(connected) == 0 {
		return nil, nil
	}

	type rangeResult struct {
		source event.Source
		events []event.RangeEvent
		err    error
	}

	results := make([]rangeResult, len(connected))
	var wg sync.WaitGroup
	for i, p := range connected {
		wg.Add(1)
		go func(i int, p provider.Provider) {
			defer wg.Done()
			events, err := p.FetchEventsInRange(ctx, start, end)
			results[i] = rangeResult{source: p.Source(), events: events, err: err}
		}(i, p)
	}
	wg.Wait()

	var (
		lists    [][]event.RangeEvent
		failures []error
	)
	for _, r := range results {
		if r.err != nil {
			if errors.Is(r.err, provider.ErrAuthExpired) {
				s.mu.Lock()
				s.markDisconnectedLocked(r.source)
				s.mu.Unlock()
			}
			failures = append(failures, fmt.Errorf("%s: %w", r.source, r.err))
			continue
		}
		tagged := make([]event.RangeEvent, len(r.events))
		for i, ev := range r.events {
			ev.Source = r.source
			tagged[i] = ev
		}
		lists = append(lists, tagged)
	}

	return event.MergeRange(lists...), errors.Join(failures...)
}

func (s *Store) recordConnectedGauge() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.recordConnectedGaugeLocked()
}

func (s *Store) recordConnectedGaugeLocked() {
	var n int64
	for _, c := range s.connections {
		if c.Connected {
			n++
		}
	}
	s.metrics.SetConnectedProviders(context.Background(), n)
}
