package server

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/wearcast/wearcast/internal/aggregator"
	"github.com/wearcast/wearcast/internal/event"
	"github.com/wearcast/wearcast/internal/instrumentation"
	"github.com/wearcast/wearcast/internal/logging"
	"github.com/wearcast/wearcast/internal/weather"
)

// APIServerConfig holds configuration for the local JSON API.
type APIServerConfig struct {
	// Addr is the address to bind the API server to.
	Addr string

	// Store is the aggregation store backing the event endpoints. Required.
	Store *aggregator.Store

	// Weather backs the weather endpoints. Optional.
	Weather *weather.Client

	// Metrics may be nil.
	Metrics *instrumentation.Metrics

	// Logger defaults to slog.Default.
	Logger *slog.Logger
}

// APIServer serves the local JSON API consumed by the app shell.
type APIServer struct {
	addr       string
	store      *aggregator.Store
	weather    *weather.Client
	metrics    *instrumentation.Metrics
	logger     *slog.Logger
	health     *HealthChecker
	httpServer *http.Server
}

// NewAPIServer creates the API server. The store is required.
func NewAPIServer(config APIServerConfig) (*APIServer, error) {
	if config.Store == nil {
		return nil, fmt.Errorf("aggregation store is required for API server")
	}
	if config.Logger == nil {
		config.Logger = slog.Default()
	}
	return &APIServer{
		addr:    config.Addr,
		store:   config.Store,
		weather: config.Weather,
		metrics: config.Metrics,
		logger:  config.Logger,
		health:  NewHealthChecker(),
	}, nil
}

// Health exposes the server's health checker.
func (s *APIServer) Health() *HealthChecker {
	return s.health
}

// eventsResponse is the payload of the event endpoints.
type eventsResponse struct {
	Events      []event.Event `json:"events"`
	IsLoading   bool          `json:"isLoading"`
	LastFetched *time.Time    `json:"lastFetched,omitempty"`
	Error       string        `json:"error,omitempty"`
}

// statusResponse is the payload of /v1/status.
type statusResponse struct {
	Connections map[event.Source]aggregator.ConnectionState `json:"connections"`
	IsLoading   bool                                        `json:"isLoading"`
	LastFetched *time.Time                                  `json:"lastFetched,omitempty"`
	Error       string                                      `json:"error,omitempty"`
}

// Handler builds the API routing table.
func (s *APIServer) Handler() http.Handler {
	mux := http.NewServeMux()

	mux.Handle("GET /v1/events", s.instrument("/v1/events", s.handleEvents))
	mux.Handle("POST /v1/refresh", s.instrument("/v1/refresh", s.handleRefresh))
	mux.Handle("GET /v1/status", s.instrument("/v1/status", s.handleStatus))
	mux.Handle("GET /v1/range", s.instrument("/v1/range", s.handleRange))

	if s.weather != nil {
		mux.Handle("GET /v1/weather/current", s.instrument("/v1/weather/current", s.handleWeatherCurrent))
		mux.Handle("GET /v1/weather/forecast", s.instrument("/v1/weather/forecast", s.handleWeatherForecast))
	}

	s.health.RegisterHealthEndpoints(mux)
	return mux
}

// instrument wraps a handler with request metrics.
func (s *APIServer) instrument(path string, fn func(http.ResponseWriter, *http.Request)) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		started := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		fn(rec, r)
		s.metrics.RecordHTTPRequest(r.Context(), r.Method, path, rec.status, time.Since(started))
	})
}

// statusRecorder captures the status code written by a handler.
type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(status int) {
	r.status = status
	r.ResponseWriter.WriteHeader(status)
}

// handleEvents refreshes (respecting the freshness TTL) and returns the
// merged today view. Partial provider failures still return the events that
// arrived, with the diagnostic in the error field.
func (s *APIServer) handleEvents(w http.ResponseWriter, r *http.Request) {
	_ = s.store.Refresh(r.Context(), false)
	s.writeState(w)
}

// handleRefresh forces a refresh regardless of cache freshness.
func (s *APIServer) handleRefresh(w http.ResponseWriter, r *http.Request) {
	_ = s.store.Refresh(r.Context(), true)
	s.writeState(w)
}

func (s *APIServer) writeState(w http.ResponseWriter) {
	state := s.store.Snapshot()
	resp := eventsResponse{
		Events:    state.Events,
		IsLoading: state.IsLoading,
	}
	if !state.LastFetched.IsZero() {
		resp.LastFetched = &state.LastFetched
	}
	if state.Err != nil {
		resp.Error = state.Err.Error()
	}
	if resp.Events == nil {
		resp.Events = []event.Event{}
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *APIServer) handleStatus(w http.ResponseWriter, _ *http.Request) {
	state := s.store.Snapshot()
	resp := statusResponse{
		Connections: state.Connections,
		IsLoading:   state.IsLoading,
	}
	if !state.LastFetched.IsZero() {
		resp.LastFetched = &state.LastFetched
	}
	if state.Err != nil {
		resp.Error = state.Err.Error()
	}
	writeJSON(w, http.StatusOK, resp)
}

// handleRange returns events in an arbitrary [start, end) window in
// canonical timestamp form.
func (s *APIServer) handleRange(w http.ResponseWriter, r *http.Request) {
	start, err := time.Parse(time.RFC3339, r.URL.Query().Get("start"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid start, expected RFC3339")
		return
	}
	end, err := time.Parse(time.RFC3339, r.URL.Query().Get("end"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid end, expected RFC3339")
		return
	}
	if !end.After(start) {
		writeError(w, http.StatusBadRequest, "end must be after start")
		return
	}

	events, rerr := s.store.EventsInRange(r.Context(), start, end)
	if events == nil {
		events = []event.RangeEvent{}
	}
	resp := struct {
		Events []event.RangeEvent `json:"events"`
		Error  string             `json:"error,omitempty"`
	}{Events: events}
	if rerr != nil {
		resp.Error = rerr.Error()
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *APIServer) handleWeatherCurrent(w http.ResponseWriter, r *http.Request) {
	current, err := s.weather.Current(r.Context())
	if err != nil {
		s.logger.Error("weather current failed", logging.Operation("api"), logging.Err(err))
		writeError(w, http.StatusBadGateway, "weather unavailable")
		return
	}
	writeJSON(w, http.StatusOK, current)
}

func (s *APIServer) handleWeatherForecast(w http.ResponseWriter, r *http.Request) {
	forecast, err := s.weather.Forecast(r.Context())
	if err != nil {
		s.logger.Error("weather forecast failed", logging.Operation("api"), logging.Err(err))
		writeError(w, http.StatusBadGateway, "weather unavailable")
		return
	}
	writeJSON(w, http.StatusOK, forecast)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

// Start starts the API server in a blocking manner.
func (s *APIServer) Start() error {
	s.httpServer = &http.Server{
		Addr:              s.addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: DefaultMetricsReadTimeout,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       DefaultMetricsIdleTimeout,
	}

	s.logger.Info("starting API server", slog.String("addr", s.addr))
	return s.httpServer.ListenAndServe()
}

// Shutdown gracefully shuts down the API server.
func (s *APIServer) Shutdown(ctx context.Context) error {
	s.health.SetShuttingDown()
	if s.httpServer != nil {
		s.logger.Info("shutting down API server")
		return s.httpServer.Shutdown(ctx)
	}
	return nil
}

// Addr returns the configured address for the API server.
func (s *APIServer) Addr() string {
	return s.addr
}
