package weather

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/wearcast/wearcast/internal/instrumentation"
	"github.com/wearcast/wearcast/internal/logging"
	"github.com/wearcast/wearcast/internal/storage"
)

// DefaultBaseURL is the public Open-Meteo forecast endpoint.
const DefaultBaseURL = "https://api.open-meteo.com/v1/forecast"

// Freshness windows for the two weather views.
const (
	DefaultCurrentTTL  = 30 * time.Minute
	DefaultForecastTTL = 3 * time.Hour
)

const (
	keyCurrent  = "weather:current"
	keyForecast = "weather:forecast"

	kindCurrent  = "current"
	kindForecast = "forecast"

	resultFresh  = "fresh"
	resultCached = "cached"
	resultStale  = "stale"
	resultError  = "error"
)

// envelope wraps a cached payload with its fetch time.
type envelope struct {
	FetchedAt time.Time       `json:"fetchedAt"`
	Data      json.RawMessage `json:"data"`
}

// Options configures a Client.
type Options struct {
	// BaseURL defaults to DefaultBaseURL.
	BaseURL string

	// CurrentTTL and ForecastTTL default to the package constants.
	CurrentTTL  time.Duration
	ForecastTTL time.Duration

	// HTTPClient defaults to a client with a 10 second timeout.
	HTTPClient *http.Client

	// Now supplies the current time. Defaults to time.Now.
	Now func() time.Time

	// Logger defaults to slog.Default.
	Logger *slog.Logger

	// Metrics may be nil.
	Metrics *instrumentation.Metrics
}

// Client fetches weather for one fixed location, caching results in kv.
type Client struct {
	kv          *storage.Store
	lat, lon    float64
	baseURL     string
	currentTTL  time.Duration
	forecastTTL time.Duration
	httpClient  *http.Client
	now         func() time.Time
	logger      *slog.Logger
	metrics     *instrumentation.Metrics
}

// NewClient creates a weather client for the given coordinates.
func NewClient(kv *storage.Store, lat, lon float64, opts Options) *Client {
	if opts.BaseURL == "" {
		opts.BaseURL = DefaultBaseURL
	}
	if opts.CurrentTTL <= 0 {
		opts.CurrentTTL = DefaultCurrentTTL
	}
	if opts.ForecastTTL <= 0 {
		opts.ForecastTTL = DefaultForecastTTL
	}
	if opts.HTTPClient == nil {
		opts.HTTPClient = &http.Client{Timeout: 10 * time.Second}
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	return &Client{
		kv:          kv,
		lat:         lat,
		lon:         lon,
		baseURL:     opts.BaseURL,
		currentTTL:  opts.CurrentTTL,
		forecastTTL: opts.ForecastTTL,
		httpClient:  opts.HTTPClient,
		now:         opts.Now,
		logger:      opts.Logger,
		metrics:     opts.Metrics,
	}
}

// Current returns the conditions right now, from cache when fresh. On a
// fetch failure a stale cached answer is returned instead of the error.
func (c *Client) Current(ctx context.Context) (*Current, error) {
	var out Current
	err := c.cached(ctx, kindCurrent, keyCurrent, c.currentTTL, &out, func(r *apiResponse) any {
		return r.toCurrent()
	})
	if err != nil {
		return nil, err
	}
	return &out, nil
}

// Forecast returns the daily forecast, from cache when fresh. On a fetch
// failure a stale cached answer is returned instead of the error.
func (c *Client) Forecast(ctx context.Context) (*Forecast, error) {
	var out Forecast
	err := c.cached(ctx, kindForecast, keyForecast, c.forecastTTL, &out, func(r *apiResponse) any {
		return r.toForecast()
	})
	if err != nil {
		return nil, err
	}
	return &out, nil
}

// cached loads key from the cache, fetching and re-caching when the entry is
// missing or older than ttl. A fetch failure falls back to the stale entry.
func (c *Client) cached(ctx context.Context, kind, key string, ttl time.Duration, out any, pick func(*apiResponse) any) error {
	var env envelope
	hasCache, err := c.kv.GetJSON(key, &env)
	if err != nil {
		c.logger.Warn("weather cache unreadable", logging.Operation("weather"), logging.Err(err))
		hasCache = false
	}

	if hasCache && c.now().Sub(env.FetchedAt) < ttl {
		c.metrics.RecordWeatherFetch(ctx, kind, resultCached)
		return json.Unmarshal(env.Data, out)
	}

	resp, fetchErr := c.fetch(ctx)
	if fetchErr != nil {
		if hasCache {
			c.logger.Warn("weather fetch failed, serving stale cache",
				logging.Operation("weather"),
				slog.String("kind", kind),
				logging.Err(fetchErr))
			c.metrics.RecordWeatherFetch(ctx, kind, resultStale)
			return json.Unmarshal(env.Data, out)
		}
		c.metrics.RecordWeatherFetch(ctx, kind, resultError)
		return fetchErr
	}

	data, err := json.Marshal(pick(resp))
	if err != nil {
		return fmt.Errorf("failed to encode weather payload: %w", err)
	}
	if err := c.kv.SetJSON(key, envelope{FetchedAt: c.now(), Data: data}); err != nil {
		c.logger.Warn("weather cache write failed", logging.Operation("weather"), logging.Err(err))
	}

	c.metrics.RecordWeatherFetch(ctx, kind, resultFresh)
	return json.Unmarshal(data, out)
}

// fetch performs one Open-Meteo request covering both views.
func (c *Client) fetch(ctx context.Context) (*apiResponse, error) {
	q := url.Values{}
	q.Set("latitude", strconv.FormatFloat(c.lat, 'f', 4, 64))
	q.Set("longitude", strconv.FormatFloat(c.lon, 'f', 4, 64))
	q.Set("current", "temperature_2m,apparent_temperature,relative_humidity_2m,wind_speed_10m,precipitation,weather_code")
	q.Set("daily", "temperature_2m_max,temperature_2m_min,precipitation_probability_max,weather_code")
	q.Set("timezone", "auto")

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"?"+q.Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("failed to build weather request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("weather request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, fmt.Errorf("weather request returned %d: %s", resp.StatusCode, body)
	}

	var parsed apiResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return nil, fmt.Errorf("failed to decode weather response: %w", err)
	}
	return &parsed, nil
}
