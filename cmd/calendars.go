package cmd

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/wearcast/wearcast/internal/event"
)

func newCalendarsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "calendars",
		Short: "Manage the Google sub-calendar selection",
	}
	cmd.AddCommand(newCalendarsListCmd())
	cmd.AddCommand(newCalendarsSelectCmd())
	return cmd
}

func newCalendarsListCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List the currently selected sub-calendars",
		RunE: func(cmd *cobra.Command, _ []string) error {
			app, err := newApp(appOptions{})
			if err != nil {
				return err
			}
			defer func() { _ = app.Close() }()

			state := app.store.Snapshot()
			conn, ok := state.Connections[event.SourceGoogle]
			if !ok || !conn.Connected {
				return fmt.Errorf("google provider is not connected")
			}

			if conn.AccountLabel != "" {
				fmt.Printf("Account: %s\n", conn.AccountLabel)
			}
			if len(conn.SelectedCalendarIDs) == 0 {
				fmt.Println("No calendars selected (the primary calendar is used).")
				return nil
			}
			fmt.Println("Selected calendars:")
			for _, id := range conn.SelectedCalendarIDs {
				fmt.Printf("  %s\n", id)
			}
			return nil
		},
	}
}

func newCalendarsSelectCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "select <id>[,<id>...]",
		Short: "Select which sub-calendars contribute events",
		Long: `Select which sub-calendars contribute events.

The new selection is validated with a fetch before it is kept; if the fetch
fails the previous selection is restored.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var ids []string
			for _, id := range strings.Split(args[0], ",") {
				if id = strings.TrimSpace(id); id != "" {
					ids = append(ids, id)
				}
			}
			if len(ids) == 0 {
				return fmt.Errorf("no calendar ids given")
			}

			app, err := newApp(appOptions{})
			if err != nil {
				return err
			}
			defer func() { _ = app.Close() }()

			if err := app.store.UpdateSelection(cmd.Context(), event.SourceGoogle, ids); err != nil {
				return fmt.Errorf("failed to update selection: %w", err)
			}
			fmt.Printf("Selected %d calendar(s)\n", len(ids))
			return nil
		},
	}
}
