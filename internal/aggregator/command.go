package aggregator

import (
	"context"
	"fmt"

	"github.com/wearcast/wearcast/internal/event"
	"github.com/wearcast/wearcast/internal/logging"
	"github.com/wearcast/wearcast/internal/provider"
)

// selectionCommand changes a provider's sub-calendar selection as a
// reversible step: the previous selection is captured before Apply so a
// failed validation can Rollback to it.
type selectionCommand struct {
	selector provider.CalendarSelector
	prev     []string
	next     []string
}

func newSelectionCommand(selector provider.CalendarSelector, ids []string) *selectionCommand {
	return &selectionCommand{
		selector: selector,
		prev:     append([]string(nil), selector.SelectedCalendars()...),
		next:     append([]string(nil), ids...),
	}
}

// Apply persists the new selection.
func (c *selectionCommand) Apply(ctx context.Context) error {
	return c.selector.SetSelectedCalendars(ctx, c.next)
}

// Rollback restores the selection captured before Apply.
func (c *selectionCommand) Rollback(ctx context.Context) error {
	return c.selector.SetSelectedCalendars(ctx, c.prev)
}

// UpdateSelection changes the sub-calendar selection of one provider. The
// new selection is validated with a fetch before it is kept; a fetch failure
// rolls the selection back and leaves the cached view untouched. On success
// the merged view is force-refreshed so it reflects the new selection.
func (s *Store) UpdateSelection(ctx context.Context, source event.Source, ids []string) error {
	p, ok := s.bySource[source]
	if !ok {
		return fmt.Errorf("%w: %s", ErrUnknownProvider, source)
	}
	selector, ok := p.(provider.CalendarSelector)
	if !ok {
		return fmt.Errorf("provider %s has no calendar selection", source)
	}

	s.mu.Lock()
	if c := s.connections[source]; c == nil || !c.Connected {
		s.mu.Unlock()
		return provider.ErrNotAuthenticated
	}
	s.mu.Unlock()

	cmd := newSelectionCommand(selector, ids)
	if err := cmd.Apply(ctx); err != nil {
		return err
	}

	if _, err := p.FetchTodayEvents(ctx); err != nil {
		if rberr := cmd.Rollback(ctx); rberr != nil {
			s.logger.Error("selection rollback failed",
				logging.Operation("update_selection"),
				logging.Provider(string(source)),
				logging.Err(rberr))
		}
		return fmt.Errorf("selection rejected: %w", err)
	}

	// An empty selection means no calendar contributes events, so the
	// provider counts as disconnected for fetches.
	s.mu.Lock()
	if c := s.connections[source]; c != nil {
		c.SelectedCalendarIDs = append([]string(nil), ids...)
		c.Connected = len(ids) > 0
	}
	s.recordConnectedGaugeLocked()
	s.mu.Unlock()

	return s.Refresh(ctx, true)
}
