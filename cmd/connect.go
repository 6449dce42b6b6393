package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/wearcast/wearcast/internal/event"
)

// parseSource maps a CLI argument onto a provider source.
func parseSource(arg string) (event.Source, error) {
	switch arg {
	case string(event.SourceGoogle):
		return event.SourceGoogle, nil
	case string(event.SourceDevice):
		return event.SourceDevice, nil
	default:
		return "", fmt.Errorf("unknown provider %q (expected google or device)", arg)
	}
}

func newConnectCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "connect <google|device>",
		Short: "Connect a calendar provider",
		Long: `Connect a calendar provider.

google  runs the OAuth authorization flow and discovers your calendars
device  grants access to the on-device calendar store`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			source, err := parseSource(args[0])
			if err != nil {
				return err
			}

			app, err := newApp(appOptions{})
			if err != nil {
				return err
			}
			defer func() { _ = app.Close() }()

			info, err := app.store.Connect(cmd.Context(), source)
			if err != nil {
				return fmt.Errorf("failed to connect %s: %w", source, err)
			}

			if info.AccountLabel != "" {
				fmt.Printf("Connected %s as %s\n", source, info.AccountLabel)
			} else {
				fmt.Printf("Connected %s\n", source)
			}
			if len(info.Calendars) > 0 {
				fmt.Printf("Discovered %d calendar(s):\n", len(info.Calendars))
				for _, c := range info.Calendars {
					marker := ""
					if c.Primary {
						marker = " (primary)"
					}
					fmt.Printf("  %s%s\n", c.Name, marker)
				}
			}
			return nil
		},
	}
}

func newDisconnectCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "disconnect <google|device>",
		Short: "Disconnect a calendar provider and remove its events",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			source, err := parseSource(args[0])
			if err != nil {
				return err
			}

			app, err := newApp(appOptions{})
			if err != nil {
				return err
			}
			defer func() { _ = app.Close() }()

			if err := app.store.Disconnect(cmd.Context(), source); err != nil {
				return fmt.Errorf("failed to disconnect %s: %w", source, err)
			}
			fmt.Printf("Disconnected %s\n", source)
			return nil
		},
	}
}
