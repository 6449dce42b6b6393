package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
)

func newWeatherCmd() *cobra.Command {
	var forecast bool

	cmd := &cobra.Command{
		Use:   "weather",
		Short: "Print current conditions or the daily forecast",
		RunE: func(cmd *cobra.Command, _ []string) error {
			app, err := newApp(appOptions{})
			if err != nil {
				return err
			}
			defer func() { _ = app.Close() }()

			if forecast {
				fc, err := app.weather.Forecast(cmd.Context())
				if err != nil {
					return fmt.Errorf("failed to fetch forecast: %w", err)
				}
				for _, day := range fc.Days {
					fmt.Printf("%s  %5.1f / %5.1f °C  precip %d%%\n",
						day.Date, day.TemperatureMin, day.TemperatureMax, day.PrecipitationProbability)
				}
				return nil
			}

			current, err := app.weather.Current(cmd.Context())
			if err != nil {
				return fmt.Errorf("failed to fetch current conditions: %w", err)
			}
			fmt.Printf("%.1f °C (feels like %.1f °C), humidity %d%%, wind %.1f km/h\n",
				current.Temperature, current.ApparentTemperature,
				current.RelativeHumidity, current.WindSpeed)
			return nil
		},
	}

	cmd.Flags().BoolVar(&forecast, "forecast", false, "Print the daily forecast instead of current conditions")

	return cmd
}
