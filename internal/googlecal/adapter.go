package googlecal

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"golang.org/x/oauth2"
	calendar "google.golang.org/api/calendar/v3"
	"google.golang.org/api/googleapi"
	googleoauth2 "google.golang.org/api/oauth2/v2"
	"google.golang.org/api/option"

	"github.com/wearcast/wearcast/internal/event"
	"github.com/wearcast/wearcast/internal/google"
	"github.com/wearcast/wearcast/internal/logging"
	"github.com/wearcast/wearcast/internal/provider"
	"github.com/wearcast/wearcast/internal/storage"
)

const (
	keyAccountLabel      = "google:account_label"
	keySelectedCalendars = "google:selected_calendars"
)

// CodePrompt obtains an authorization code for the given auth URL, e.g. by
// printing the URL and reading the code from stdin.
type CodePrompt func(authURL string) (string, error)

// Options configures an Adapter.
type Options struct {
	// CodePrompt supplies the authorization code during Connect. Required
	// for interactive connects; a nil prompt makes Connect fail unless a
	// token is already stored.
	CodePrompt CodePrompt

	// Now supplies the current time. Defaults to time.Now.
	Now func() time.Time

	// Location is the local timezone for the today window. Defaults to
	// time.Local.
	Location *time.Location

	// Logger defaults to slog.Default.
	Logger *slog.Logger
}

// Adapter is the remote Google calendar provider.
type Adapter struct {
	tokens google.TokenProvider
	kv     *storage.Store
	prompt CodePrompt
	now    func() time.Time
	loc    *time.Location
	logger *slog.Logger
}

// New creates a Google calendar adapter. Connection metadata (account
// label, sub-calendar selection) is persisted through kv; credentials are
// persisted by the token provider.
func New(tokens google.TokenProvider, kv *storage.Store, opts Options) *Adapter {
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
		tokens: tokens,
		kv:     kv,
		prompt: opts.CodePrompt,
		now:    opts.Now,
		loc:    opts.Location,
		logger: logging.WithProvider(opts.Logger, string(event.SourceGoogle)),
	}
}

// Source identifies this adapter.
func (a *Adapter) Source() event.Source {
	return event.SourceGoogle
}

// IsConnected reports whether a stored OAuth token exists.
func (a *Adapter) IsConnected() bool {
	return a.tokens.HasToken()
}

// AccountLabel returns the persisted account email, if any.
func (a *Adapter) AccountLabel() string {
	label, _, err := a.kv.Get(keyAccountLabel)
	if err != nil {
		return ""
	}
	return label
}

// Connect runs the token handshake and discovers the account's calendars.
// A handshake failure rolls back any token saved during this call, so no
// partial state survives.
func (a *Adapter) Connect(ctx context.Context) (*provider.ConnectionInfo, error) {
	fresh := !a.tokens.HasToken()

	if fresh {
		if a.prompt == nil {
			return nil, fmt.Errorf("%w: no authorization code source configured", provider.ErrAuthFailed)
		}
		code, err := a.prompt(google.AuthURL())
		if err != nil {
			return nil, fmt.Errorf("%w: %v", provider.ErrPermissionDenied, err)
		}
		if err := a.tokens.SaveAuthCode(ctx, code); err != nil {
			return nil, fmt.Errorf("%w: %v", provider.ErrAuthFailed, err)
		}
	}

	info, err := a.discoverAccount(ctx)
	if err != nil {
		if fresh {
			_ = a.tokens.DeleteToken()
		}
		return nil, err
	}

	if err := a.kv.Set(keyAccountLabel, info.AccountLabel); err != nil {
		if fresh {
			_ = a.tokens.DeleteToken()
		}
		return nil, fmt.Errorf("failed to persist account label: %w", err)
	}

	// Default the selection to every discovered calendar so events appear
	// immediately after connecting.
	if len(a.SelectedCalendars()) == 0 {
		ids := make([]string, 0, len(info.Calendars))
		for _, c := range info.Calendars {
			ids = append(ids, c.ID)
		}
		if err := a.SetSelectedCalendars(ctx, ids); err != nil {
			return nil, err
		}
	}

	a.logger.Info("calendar provider connected",
		logging.Operation("connect"),
		logging.Account(info.AccountLabel),
		slog.Int("calendars", len(info.Calendars)))

	return info, nil
}

// discoverAccount fetches the account email and calendar list.
func (a *Adapter) discoverAccount(ctx context.Context) (*provider.ConnectionInfo, error) {
	client, err := a.httpClient(ctx)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", provider.ErrAuthFailed, err)
	}

	userSvc, err := googleoauth2.NewService(ctx, option.WithHTTPClient(client))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", provider.ErrUnavailable, err)
	}
	userInfo, err := userSvc.Userinfo.Get().Context(ctx).Do()
	if err != nil {
		return nil, a.classifyAPIError("userinfo", err)
	}

	svc, err := calendar.NewService(ctx, option.WithHTTPClient(client))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", provider.ErrUnavailable, err)
	}
	list, err := svc.CalendarList.List().Context(ctx).Do()
	if err != nil {
		return nil, a.classifyAPIError("calendar list", err)
	}
	if len(list.Items) == 0 {
		return nil, provider.ErrNoCalendarsFound
	}

	refs := make([]provider.CalendarRef, 0, len(list.Items))
	for _, entry := range list.Items {
		refs = append(refs, provider.CalendarRef{
			ID:      entry.Id,
			Name:    entry.Summary,
			Primary: entry.Primary,
		})
	}

	return &provider.ConnectionInfo{
		AccountLabel: userInfo.Email,
		Calendars:    refs,
	}, nil
}

// Disconnect clears the stored token and connection metadata. Idempotent.
func (a *Adapter) Disconnect(_ context.Context) error {
	if err := a.tokens.DeleteToken(); err != nil {
		return err
	}
	if err := a.kv.Delete(keyAccountLabel); err != nil {
		return err
	}
	if err := a.kv.Delete(keySelectedCalendars); err != nil {
		return err
	}
	a.logger.Info("calendar provider disconnected", logging.Operation("disconnect"))
	return nil
}

// SelectedCalendars returns the persisted sub-calendar selection.
func (a *Adapter) SelectedCalendars() []string {
	var ids []string
	if _, err := a.kv.GetJSON(keySelectedCalendars, &ids); err != nil {
		return nil
	}
	return ids
}

// SetSelectedCalendars persists a new sub-calendar selection.
func (a *Adapter) SetSelectedCalendars(_ context.Context, ids []string) error {
	if err := a.kv.SetJSON(keySelectedCalendars, ids); err != nil {
		return fmt.Errorf("failed to persist calendar selection: %w", err)
	}
	return nil
}

// FetchTodayEvents fetches the current local day's events from every
// selected sub-calendar.
func (a *Adapter) FetchTodayEvents(ctx context.Context) ([]event.Event, error) {
	dayStart, dayEnd := a.todayWindow()

	items, err := a.fetchWindow(ctx, dayStart, dayEnd)
	if err != nil {
		return nil, err
	}
	return mapTodayEvents(items, a.loc), nil
}

// FetchEventsInRange fetches events over an arbitrary window in canonical
// timestamp form.
func (a *Adapter) FetchEventsInRange(ctx context.Context, start, end time.Time) ([]event.RangeEvent, error) {
	items, err := a.fetchWindow(ctx, start, end)
	if err != nil {
		return nil, err
	}
	return mapRangeEvents(items, a.loc), nil
}

func (a *Adapter) fetchWindow(ctx context.Context, start, end time.Time) ([]*calendar.Event, error) {
	if !a.IsConnected() {
		return nil, provider.ErrNotAuthenticated
	}

	client, err := a.httpClient(ctx)
	if err != nil {
		// A token refresh failure at this point means the stored
		// credentials went stale.
		_ = a.tokens.DeleteToken()
		return nil, fmt.Errorf("%w: %v", provider.ErrAuthExpired, err)
	}
	svc, err := calendar.NewService(ctx, option.WithHTTPClient(client))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", provider.ErrUnavailable, err)
	}

	// An empty selection fetches nothing. Connect seeds the selection with
	// every discovered calendar, so this only happens when the user has
	// deselected them all.
	calendarIDs := a.SelectedCalendars()

	var items []*calendar.Event
	for _, id := range calendarIDs {
		result, err := svc.Events.List(id).
			TimeMin(start.Format(time.RFC3339)).
			TimeMax(end.Format(time.RFC3339)).
			SingleEvents(true).
			OrderBy("startTime").
			Context(ctx).
			Do()
		if err != nil {
			return nil, a.classifyAPIError("events list", err)
		}
		items = append(items, result.Items...)
	}

	return items, nil
}

func (a *Adapter) httpClient(ctx context.Context) (*http.Client, error) {
	token, err := a.tokens.GetToken(ctx)
	if err != nil {
		return nil, err
	}

	conf := google.GetOAuthConfig()
	client := oauth2.NewClient(ctx, conf.TokenSource(ctx, token))

	// Force HTTP/1.1 by disabling HTTP/2
	if transport, ok := client.Transport.(*oauth2.Transport); ok {
		transport.Base = &http.Transport{
			ForceAttemptHTTP2: false,
		}
	}

	return client, nil
}

// classifyAPIError maps an API failure onto the provider error taxonomy.
// A 401 clears the stored token as a side effect so the caller can
// transition this provider to disconnected.
func (a *Adapter) classifyAPIError(op string, err error) error {
	if isUnauthorized(err) {
		_ = a.tokens.DeleteToken()
		a.logger.Warn("session expired, cleared stored credentials",
			logging.Operation(op), logging.Err(err))
		return fmt.Errorf("%w: %s", provider.ErrAuthExpired, op)
	}
	return fmt.Errorf("%w: %s: %v", provider.ErrUnavailable, op, err)
}

func isUnauthorized(err error) bool {
	var apiErr *googleapi.Error
	if errors.As(err, &apiErr) {
		return apiErr.Code == http.StatusUnauthorized
	}
	return false
}

func (a *Adapter) todayWindow() (time.Time, time.Time) {
	now := a.now().In(a.loc)
	start := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, a.loc)
	return start, start.AddDate(0, 0, 1)
}
