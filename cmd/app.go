package cmd

import (
	"bufio"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/wearcast/wearcast/internal/aggregator"
	"github.com/wearcast/wearcast/internal/config"
	"github.com/wearcast/wearcast/internal/devicecal"
	"github.com/wearcast/wearcast/internal/google"
	"github.com/wearcast/wearcast/internal/googlecal"
	"github.com/wearcast/wearcast/internal/instrumentation"
	"github.com/wearcast/wearcast/internal/provider"
	"github.com/wearcast/wearcast/internal/storage"
	"github.com/wearcast/wearcast/internal/weather"
)

// configPath is shared by all subcommands via the root --config flag.
var configPath string

// app wires the long-lived dependencies every subcommand needs: config,
// key-value store, provider adapters, aggregation store, and weather client.
type app struct {
	cfg     *config.Config
	kv      *storage.Store
	store   *aggregator.Store
	weather *weather.Client
	logger  *slog.Logger
}

// appOptions tweaks composition per subcommand.
type appOptions struct {
	// Metrics may be nil; the serve command passes the real recorder.
	Metrics *instrumentation.Metrics
}

// newApp builds the application object graph from the config file.
func newApp(opts appOptions) (*app, error) {
	path := configPath
	if path == "" {
		path = config.DefaultPath()
	}
	cfg, err := config.Load(path)
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}

	logger := slog.Default()
	loc := cfg.Location()

	kv, err := storage.Open(cfg.StorePath())
	if err != nil {
		return nil, err
	}

	googleAdapter := googlecal.New(google.NewFileTokenProvider(), kv, googlecal.Options{
		CodePrompt: stdinCodePrompt,
		Location:   loc,
		Logger:     logger,
	})
	deviceAdapter := devicecal.New(cfg.DeviceStorePath, devicecal.Options{
		Location: loc,
		Logger:   logger,
	})

	store := aggregator.New([]provider.Provider{googleAdapter, deviceAdapter}, aggregator.Options{
		TTL:     cfg.EventTTL(),
		Logger:  logger,
		Metrics: opts.Metrics,
	})

	weatherClient := weather.NewClient(kv, cfg.Weather.Latitude, cfg.Weather.Longitude, weather.Options{
		BaseURL:     cfg.Weather.BaseURL,
		CurrentTTL:  time.Duration(cfg.Weather.CurrentTTLMinutes) * time.Minute,
		ForecastTTL: time.Duration(cfg.Weather.ForecastTTLHours) * time.Hour,
		Logger:      logger,
		Metrics:     opts.Metrics,
	})

	return &app{
		cfg:     cfg,
		kv:      kv,
		store:   store,
		weather: weatherClient,
		logger:  logger,
	}, nil
}

// Close releases the app's resources.
func (a *app) Close() error {
	return a.kv.Close()
}

// stdinCodePrompt prints the authorization URL and reads the code from stdin.
func stdinCodePrompt(authURL string) (string, error) {
	fmt.Printf("Open the following URL in your browser and authorize access:\n\n  %s\n\nEnter the authorization code: ", authURL)

	reader := bufio.NewReader(os.Stdin)
	code, err := reader.ReadString('\n')
	if err != nil {
		return "", fmt.Errorf("failed to read authorization code: %w", err)
	}
	code = strings.TrimSpace(code)
	if code == "" {
		return "", fmt.Errorf("empty authorization code")
	}
	return code, nil
}
