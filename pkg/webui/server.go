// Package webui provides the local HTTP API over the event store and
// the analysis pipeline. The API is read-only: recording stays on the
// CLI path, the server exists for dashboards and editor integrations.
package webui

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/gorilla/mux"
	"github.com/pkg/errors"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/jingkaihe/hindsight/pkg/analysis"
	"github.com/jingkaihe/hindsight/pkg/config"
	"github.com/jingkaihe/hindsight/pkg/events"
	"github.com/jingkaihe/hindsight/pkg/logger"
	"github.com/jingkaihe/hindsight/pkg/presenter"
	"github.com/jingkaihe/hindsight/pkg/telemetry"
	"github.com/jingkaihe/hindsight/pkg/version"
)

// Server exposes the event store and analysis pipeline over HTTP.
type Server struct {
	router *mux.Router
	store  events.Store
	cfg    *config.Config
	config *ServerConfig
	server *http.Server
}

// ServerConfig holds the listen configuration for the API server.
type ServerConfig struct {
	Host string
	Port int
}

// Validate validates the server configuration
func (c *ServerConfig) Validate() error {
	if c.Host == "" {
		return errors.New("host cannot be empty")
	}

	if c.Port < 1 || c.Port > 65535 {
		return errors.Errorf("port must be between 1 and 65535, got %d", c.Port)
	}

	return nil
}

// NewServer creates the API server over the given store. The store is
// owned by the caller and stays open after the server shuts down.
func NewServer(cfg *config.Config, store events.Store, serverConfig *ServerConfig) (*Server, error) {
	if err := serverConfig.Validate(); err != nil {
		return nil, errors.Wrap(err, "invalid server configuration")
	}

	s := &Server{
		router: mux.NewRouter(),
		store:  store,
		cfg:    cfg,
		config: serverConfig,
	}

	s.setupRoutes()

	return s, nil
}

// setupRoutes configures all the HTTP routes
func (s *Server) setupRoutes() {
	// OPTIONS is declared so preflight requests reach the CORS
	// middleware instead of mux's method-not-allowed handler.
	api := s.router.PathPrefix("/api").Subrouter()
	api.HandleFunc("/events", s.handleListEvents).Methods("GET", "OPTIONS")
	api.HandleFunc("/events/{id}", s.handleGetEvent).Methods("GET", "OPTIONS")
	api.HandleFunc("/status", s.handleStatus).Methods("GET", "OPTIONS")
	api.HandleFunc("/report", s.handleReport).Methods("GET", "OPTIONS")

	s.router.HandleFunc("/", s.handleIndex).Methods("GET")

	s.router.Use(s.tracingMiddleware)
	s.router.Use(s.loggingMiddleware)
	s.router.Use(s.corsMiddleware)
}

// tracingMiddleware wraps each request in a span. When tracing is
// disabled the global provider is a no-op, so this costs nothing.
func (s *Server) tracingMiddleware(next http.Handler) http.Handler {
	tracer := telemetry.Tracer("hindsight.webui")
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "webui.request",
			trace.WithAttributes(
				attribute.String("http.method", r.Method),
				attribute.String("http.path", r.URL.Path),
			))
		defer span.End()

		rw := &responseWriter{ResponseWriter: w, statusCode: 200}
		next.ServeHTTP(rw, r.WithContext(ctx))

		span.SetAttributes(attribute.Int("http.status_code", rw.statusCode))
		if rw.statusCode >= http.StatusInternalServerError {
			span.SetStatus(codes.Error, http.StatusText(rw.statusCode))
		} else {
			span.SetStatus(codes.Ok, "")
		}
	})
}

// loggingMiddleware logs HTTP requests
func (s *Server) loggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()

		rw := &responseWriter{ResponseWriter: w, statusCode: 200}

		next.ServeHTTP(rw, r)

		duration := time.Since(start)
		logger.G(r.Context()).WithFields(map[string]any{
			"method":      r.Method,
			"path":        r.URL.Path,
			"status":      rw.statusCode,
			"duration":    duration,
			"remote_addr": r.RemoteAddr,
		}).Info("HTTP request")
	})
}

// corsMiddleware adds CORS headers
func (s *Server) corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")

		if r.Method == "OPTIONS" {
			w.WriteHeader(http.StatusOK)
			return
		}

		next.ServeHTTP(w, r)
	})
}

// responseWriter wraps http.ResponseWriter to capture status code
type responseWriter struct {
	http.ResponseWriter
	statusCode int
}

func (rw *responseWriter) WriteHeader(code int) {
	rw.statusCode = code
	rw.ResponseWriter.WriteHeader(code)
}

// API Handlers

// ListEventsResponse is the payload of GET /api/events.
type ListEventsResponse struct {
	Events []events.Event `json:"events"`
	Total  int            `json:"total"`
}

// StatusResponse is the payload of GET /api/status.
type StatusResponse struct {
	Version   string `json:"version"`
	StoreType string `json:"store_type"`
	*events.Summary
}

// handleListEvents handles GET /api/events
func (s *Server) handleListEvents(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	query := r.URL.Query()

	opts := events.QueryOptions{Type: query.Get("type")}

	if sinceStr := query.Get("since"); sinceStr != "" {
		since, err := parseSince(sinceStr)
		if err != nil {
			s.writeErrorResponse(w, http.StatusBadRequest, "invalid since parameter", err)
			return
		}
		opts.Since = since
	}

	if limitStr := query.Get("limit"); limitStr != "" {
		limit, err := strconv.Atoi(limitStr)
		if err != nil || limit < 0 {
			s.writeErrorResponse(w, http.StatusBadRequest, "invalid limit parameter", err)
			return
		}
		opts.Limit = limit
	}

	evts, err := s.store.Query(ctx, opts)
	if err != nil {
		s.writeErrorResponse(w, http.StatusInternalServerError, "failed to query events", err)
		return
	}
	if evts == nil {
		evts = []events.Event{}
	}

	s.writeJSONResponse(w, &ListEventsResponse{Events: evts, Total: len(evts)})
}

// handleGetEvent handles GET /api/events/{id}
func (s *Server) handleGetEvent(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	id := mux.Vars(r)["id"]

	evts, err := s.store.Query(ctx, events.QueryOptions{})
	if err != nil {
		s.writeErrorResponse(w, http.StatusInternalServerError, "failed to query events", err)
		return
	}

	for i := range evts {
		if evts[i].ID == id {
			s.writeJSONResponse(w, &evts[i])
			return
		}
	}

	s.writeErrorResponse(w, http.StatusNotFound, "event not found", nil)
}

// handleStatus handles GET /api/status
func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	summary, err := s.store.Summary(r.Context())
	if err != nil {
		s.writeErrorResponse(w, http.StatusInternalServerError, "failed to summarize event store", err)
		return
	}

	s.writeJSONResponse(w, &StatusResponse{
		Version:   version.Get().Version,
		StoreType: s.cfg.Store.Type,
		Summary:   summary,
	})
}

// handleReport handles GET /api/report. Analysis runs on demand; the
// pipeline holds no state so every request reflects the store as it is.
func (s *Server) handleReport(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()

	var opts analysis.Options
	if windowStr := query.Get("window_days"); windowStr != "" {
		window, err := strconv.Atoi(windowStr)
		if err != nil || window <= 0 {
			s.writeErrorResponse(w, http.StatusBadRequest, "invalid window_days parameter", err)
			return
		}
		opts.WindowDays = window
	}
	if minStr := query.Get("min_occurrences"); minStr != "" {
		minOccurrences, err := strconv.Atoi(minStr)
		if err != nil || minOccurrences <= 0 {
			s.writeErrorResponse(w, http.StatusBadRequest, "invalid min_occurrences parameter", err)
			return
		}
		opts.MinOccurrences = minOccurrences
	}
	opts.AutoThreshold = query.Get("auto_threshold")

	result, err := analysis.Run(r.Context(), s.cfg, s.store, opts)
	if err != nil {
		s.writeErrorResponse(w, http.StatusBadRequest, "invalid analysis parameters", err)
		return
	}

	s.writeJSONResponse(w, result)
}

// handleIndex describes the API surface.
func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	s.writeJSONResponse(w, map[string]any{
		"service": "hindsight",
		"version": version.Get().Version,
		"endpoints": []string{
			"/api/events",
			"/api/events/{id}",
			"/api/status",
			"/api/report",
		},
	})
}

// parseSince accepts RFC3339 instants and bare dates.
func parseSince(value string) (time.Time, error) {
	if t, err := time.Parse(time.RFC3339, value); err == nil {
		return t, nil
	}
	if t, err := time.Parse("2006-01-02", value); err == nil {
		return t, nil
	}
	return time.Time{}, errors.Errorf("unrecognized time %q (want RFC3339 or 2006-01-02)", value)
}

// Utility methods

// writeJSONResponse writes a JSON response
func (s *Server) writeJSONResponse(w http.ResponseWriter, data any) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(data); err != nil {
		logger.G(context.TODO()).WithError(err).Error("failed to encode JSON response")
		http.Error(w, "internal server error", http.StatusInternalServerError)
	}
}

// writeErrorResponse writes an error response
func (s *Server) writeErrorResponse(w http.ResponseWriter, statusCode int, message string, err error) {
	if err != nil {
		logger.G(context.TODO()).WithError(err).Error(message)
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)

	response := map[string]any{
		"error":   message,
		"status":  statusCode,
		"success": false,
	}

	if err := json.NewEncoder(w).Encode(response); err != nil {
		logger.G(context.TODO()).WithError(err).Error("failed to encode error response")
	}
}

// Start starts the API server and blocks until ctx is cancelled.
func (s *Server) Start(ctx context.Context) error {
	address := fmt.Sprintf("%s:%d", s.config.Host, s.config.Port)

	s.server = &http.Server{
		Addr:    address,
		Handler: s.router,
	}

	presenter.Info(fmt.Sprintf("Starting hindsight API on http://%s", address))

	go func() {
		if err := s.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.G(ctx).WithError(err).Error("API server error")
		}
	}()

	<-ctx.Done()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	return s.server.Shutdown(shutdownCtx)
}

// Stop stops the API server immediately.
func (s *Server) Stop() error {
	if s.server != nil {
		return s.server.Close()
	}
	return nil
}
