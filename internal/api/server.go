// Package api exposes the shop schedule over HTTP.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"net"
	"net/http"
	"strconv"
	"time"

	"github.com/LeniadVe/DryCleaning/internal/db"
	"github.com/LeniadVe/DryCleaning/internal/metrics"
	"github.com/LeniadVe/DryCleaning/internal/ratelimit"
	"github.com/LeniadVe/DryCleaning/internal/service"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

const requestIDHeader = "X-Request-ID"

// ChangeLister reads the audit trail.
type ChangeLister interface {
	ListChanges(ctx context.Context, limit int) ([]db.Change, error)
}

// HTTPServer serves the schedule endpoints.
type HTTPServer struct {
	service *service.ScheduleService
	changes ChangeLister
	limiter ratelimit.Limiter
	logger  zerolog.Logger
	server  *http.Server
}

// NewHTTPServer wires the routes. changes and limiter may be nil.
func NewHTTPServer(addr string, svc *service.ScheduleService, changes ChangeLister, limiter ratelimit.Limiter, logger *zerolog.Logger) *HTTPServer {
	l := zerolog.Nop()
	if logger != nil {
		l = logger.With().Str("component", "http").Logger()
	}
	s := &HTTPServer{
		service: svc,
		changes: changes,
		limiter: limiter,
		logger:  l,
	}

	mux := http.NewServeMux()
	mux.HandleFunc("/days-schedule", s.handleDaysSchedule)
	mux.HandleFunc("/days", s.handleDays)
	mux.HandleFunc("/date", s.handleDate)
	mux.HandleFunc("/days-close", s.handleDaysClose)
	mux.HandleFunc("/dates-close", s.handleDatesClose)
	mux.HandleFunc("/schedule-calculator", s.handleScheduleCalculator)
	mux.HandleFunc("/schedule", s.handleSchedule)
	mux.HandleFunc("/schedule/export", s.handleScheduleExport)
	mux.HandleFunc("/schedule/changes", s.handleScheduleChanges)
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	s.server = &http.Server{
		Addr:              addr,
		Handler:           s.withRequestID(s.withRateLimit(mux)),
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       10 * time.Second,
		WriteTimeout:      30 * time.Second,
	}
	return s
}

// Handler returns the root handler including middleware.
func (s *HTTPServer) Handler() http.Handler {
	return s.server.Handler
}

// Start blocks serving requests until Shutdown is called.
func (s *HTTPServer) Start() error {
	s.logger.Info().Str("addr", s.server.Addr).Msg("HTTP API listening")
	if err := s.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Shutdown stops accepting requests and waits for in-flight ones.
func (s *HTTPServer) Shutdown(ctx context.Context) error {
	return s.server.Shutdown(ctx)
}

func (s *HTTPServer) withRequestID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := r.Header.Get(requestIDHeader)
		if id == "" {
			id = uuid.NewString()
		}
		w.Header().Set(requestIDHeader, id)

		l := s.logger.With().Str("request_id", id).Logger()
		ctx := l.WithContext(r.Context())
		ctx = service.WithRequestID(ctx, id)

		start := time.Now()
		next.ServeHTTP(w, r.WithContext(ctx))
		l.Debug().Str("method", r.Method).Str("path", r.URL.Path).Dur("elapsed", time.Since(start)).Msg("request served")
	})
}

func (s *HTTPServer) withRateLimit(next http.Handler) http.Handler {
	if s.limiter == nil {
		return next
	}
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		allowed, err := s.limiter.Allow(r.Context(), clientKey(r))
		if err != nil {
			// Limiter backend down: serve the request.
			zerolog.Ctx(r.Context()).Warn().Err(err).Msg("rate limiter unavailable")
		} else if !allowed {
			metrics.IncRateLimited()
			writeError(w, http.StatusTooManyRequests, "too many requests")
			return
		}
		next.ServeHTTP(w, r)
	})
}

func clientKey(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}

// queryLimit reads ?limit=, falling back to def and capping at ceiling.
func queryLimit(r *http.Request, def, ceiling int) int {
	n, err := strconv.Atoi(r.URL.Query().Get("limit"))
	if err != nil || n <= 0 {
		return def
	}
	if n > ceiling {
		return ceiling
	}
	return n
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

func writeMessage(w http.ResponseWriter, msg string) {
	writeJSON(w, http.StatusOK, map[string]string{"message": msg})
}
