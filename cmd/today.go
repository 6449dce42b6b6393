package cmd

import (
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"
)

func newTodayCmd() *cobra.Command {
	var force bool

	cmd := &cobra.Command{
		Use:   "today",
		Short: "Print today's merged events across all connected calendars",
		RunE: func(cmd *cobra.Command, _ []string) error {
			app, err := newApp(appOptions{})
			if err != nil {
				return err
			}
			defer func() { _ = app.Close() }()

			refreshErr := app.store.Refresh(cmd.Context(), force)
			state := app.store.Snapshot()

			if !state.IsConnected() {
				fmt.Println("No calendar providers connected. Run 'wearcast connect google' or 'wearcast connect device' first.")
				return nil
			}

			if len(state.Events) == 0 {
				fmt.Println("No events today.")
			} else {
				w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
				fmt.Fprintln(w, "TIME\tTITLE\tOCCASION\tSOURCE")
				for _, ev := range state.Events {
					timeRange := ev.StartTime
					if !ev.IsAllDay {
						timeRange = ev.StartTime + "-" + ev.EndTime
					}
					fmt.Fprintf(w, "%s\t%s\t%s\t%s\n", timeRange, ev.Title, ev.Occasion, ev.Source)
				}
				if err := w.Flush(); err != nil {
					return err
				}
			}

			if !state.LastFetched.IsZero() {
				fmt.Printf("\nLast fetched: %s\n", state.LastFetched.Format("15:04:05"))
			}
			if refreshErr != nil {
				fmt.Printf("Some providers failed: %v\n", refreshErr)
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&force, "force", false, "Bypass the cache and fetch fresh events")

	return cmd
}
