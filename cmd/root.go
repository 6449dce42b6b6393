package cmd

import (
	"os"

	"github.com/spf13/cobra"
)

// rootCmd represents the base command for the wearcast application
var rootCmd = &cobra.Command{
	Use:   "wearcast",
	Short: "Aggregates calendars and weather into an outfit-ready day view",
	Long: `wearcast merges events from your connected calendars (Google, on-device)
with local weather into a single ordered view of the day, cached locally so
repeated lookups stay fast and work offline.

It can run as:
  - A standalone CLI tool (default)
  - A local daemon exposing a JSON API for the app shell`,
	SilenceUsage: true,
}

// version will be set by main
var version = "dev"

// SetVersion sets the version for the root command
func SetVersion(v string) {
	version = v
	rootCmd.Version = v
}

// Execute is the main entry point for the CLI application
func Execute() {
	rootCmd.SetVersionTemplate(`{{printf "wearcast version %s\n" .Version}}`)

	// If no subcommand is provided, print the today view by default
	if len(os.Args) == 1 {
		os.Args = append(os.Args, "today")
	}

	err := rootCmd.Execute()
	if err != nil {
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "Path to the config file (default ~/.config/wearcast/config.yaml)")

	rootCmd.AddCommand(newTodayCmd())
	rootCmd.AddCommand(newConnectCmd())
	rootCmd.AddCommand(newDisconnectCmd())
	rootCmd.AddCommand(newCalendarsCmd())
	rootCmd.AddCommand(newWeatherCmd())
	rootCmd.AddCommand(newServeCmd())
	rootCmd.AddCommand(newVersionCmd())
}
