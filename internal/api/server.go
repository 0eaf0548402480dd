// Package api exposes the HTTP interface for the festivals service.
package api

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"go.uber.org/zap"

	"github.com/panchang-io/festivals-api/internal/config"
	"github.com/panchang-io/festivals-api/internal/festival"
	"github.com/panchang-io/festivals-api/internal/metrics"
	"github.com/panchang-io/festivals-api/internal/ratelimit"
)

const (
	serviceName    = "Indian Festivals API"
	serviceVersion = "1.0.0"
)

// Server wires HTTP handlers to the festival provider.
type Server struct {
	router   chi.Router
	provider festival.Provider
	limiter  *ratelimit.Limiter
	ids      festival.IDGenerator
	clock    festival.Clock
	logger   *zap.Logger
	cfg      config.Config
}

// NewServer constructs a Server with middleware and routes.
func NewServer(
	provider festival.Provider,
	limiter *ratelimit.Limiter,
	ids festival.IDGenerator,
	clock festival.Clock,
	cfg config.Config,
	logger *zap.Logger,
) *Server {
	if logger == nil {
		logger = zap.NewNop()
	}
	s := &Server{
		provider: provider,
		limiter:  limiter,
		ids:      ids,
		clock:    clock,
		logger:   logger,
		cfg:      cfg,
	}

	r := chi.NewRouter()
	r.Use(s.requestIDMiddleware)
	r.Use(middleware.RealIP)
	r.Use(s.loggingMiddleware)
	r.Use(s.recoverMiddleware)
	r.Use(metrics.Middleware)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   cfg.CORS.AllowedOrigins,
		AllowedMethods:   cfg.CORS.AllowedMethods,
		AllowedHeaders:   cfg.CORS.AllowedHeaders,
		AllowCredentials: cfg.CORS.AllowCredentials,
	}))
	r.Use(middleware.Compress(5))
	r.Use(timeoutMiddleware(60 * time.Second))

	r.Get("/", s.root)
	r.Get("/health", s.health)
	r.Method(http.MethodGet, "/metrics", metrics.Handler())

	// Monitoring endpoints stay outside the rate-limited API group.
	r.Route(cfg.API.Prefix, func(r chi.Router) {
		if cfg.RateLimit.Enabled && limiter != nil {
			r.Use(s.rateLimitMiddleware)
		}
		r.Route("/festivals/{year}", func(r chi.Router) {
			r.Get("/", s.getFestivals)
			r.Get("/month/{month}", s.getFestivalsByMonth)
			r.Get("/religious", s.getReligiousFestivals)
			r.Get("/religious/month/{month}", s.getReligiousFestivalsByMonth)
		})
	})

	s.router = r
	return s
}

// Handler returns the router for use with http.Server.
func (s *Server) Handler() http.Handler {
	return s.router
}

type rootResponse struct {
	Message   string `json:"message"`
	Version   string `json:"version"`
	Health    string `json:"health"`
	APIPrefix string `json:"api_prefix"`
}

type healthResponse struct {
	Status    string `json:"status"`
	Timestamp string `json:"timestamp"`
	Version   string `json:"version"`
}

type festivalsResponse struct {
	Year      int                `json:"year"`
	Month     *int               `json:"month"`
	Festivals *festival.Grouping `json:"festivals"`
}

type religiousFestivalsResponse struct {
	Year               int                `json:"year"`
	Month              *int               `json:"month"`
	ReligiousFestivals *festival.Grouping `json:"religious_festivals"`
}

type errorResponse struct {
	Detail     string `json:"detail"`
	RetryAfter int    `json:"retry_after,omitempty"`
}

func (s *Server) root(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, rootResponse{
		Message:   "Welcome to " + serviceName,
		Version:   serviceVersion,
		Health:    "/health",
		APIPrefix: s.cfg.API.Prefix,
	})
}

func (s *Server) health(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, healthResponse{
		Status:    "healthy",
		Timestamp: s.clock.Now().UTC().Format(time.RFC3339),
		Version:   serviceVersion,
	})
}

func (s *Server) getFestivals(w http.ResponseWriter, r *http.Request) {
	year, ok := s.yearParam(w, r)
	if !ok {
		return
	}
	month, ok := monthQuery(w, r)
	if !ok {
		return
	}
	s.respondFestivals(w, r, year, month, false)
}

func (s *Server) getFestivalsByMonth(w http.ResponseWriter, r *http.Request) {
	year, ok := s.yearParam(w, r)
	if !ok {
		return
	}
	month, ok := monthParam(w, r)
	if !ok {
		return
	}
	s.respondFestivals(w, r, year, month, true)
}

func (s *Server) getReligiousFestivals(w http.ResponseWriter, r *http.Request) {
	year, ok := s.yearParam(w, r)
	if !ok {
		return
	}
	month, ok := monthQuery(w, r)
	if !ok {
		return
	}
	s.respondReligious(w, r, year, month, false)
}

func (s *Server) getReligiousFestivalsByMonth(w http.ResponseWriter, r *http.Request) {
	year, ok := s.yearParam(w, r)
	if !ok {
		return
	}
	month, ok := monthParam(w, r)
	if !ok {
		return
	}
	s.respondReligious(w, r, year, month, true)
}

func (s *Server) respondFestivals(w http.ResponseWriter, r *http.Request, year, month int, monthInPath bool) {
	grouping, err := s.provider.Festivals(r.Context(), year, month)
	if err != nil {
		s.logger.Error("festivals lookup failed",
			zap.Int("year", year),
			zap.Int("month", month),
			zap.Error(err),
		)
		writeError(w, http.StatusInternalServerError, "Failed to fetch festivals")
		return
	}
	if !grouping.HasRecords() {
		writeError(w, http.StatusNotFound, notFoundDetail("No festivals found", year, month, monthInPath))
		return
	}
	writeJSON(w, http.StatusOK, festivalsResponse{
		Year:      year,
		Month:     optionalMonth(month),
		Festivals: grouping,
	})
}

func (s *Server) respondReligious(w http.ResponseWriter, r *http.Request, year, month int, monthInPath bool) {
	grouping, err := s.provider.ReligiousFestivals(r.Context(), year, month)
	if err != nil {
		s.logger.Error("religious festivals lookup failed",
			zap.Int("year", year),
			zap.Int("month", month),
			zap.Error(err),
		)
		writeError(w, http.StatusInternalServerError, "Failed to fetch religious festivals")
		return
	}
	if !grouping.HasRecords() {
		writeError(w, http.StatusNotFound, notFoundDetail("No religious festivals found", year, month, monthInPath))
		return
	}
	writeJSON(w, http.StatusOK, religiousFestivalsResponse{
		Year:               year,
		Month:              optionalMonth(month),
		ReligiousFestivals: grouping,
	})
}

func (s *Server) yearParam(w http.ResponseWriter, r *http.Request) (int, bool) {
	year, err := strconv.Atoi(chi.URLParam(r, "year"))
	if err != nil || year < s.cfg.API.MinYear || year > s.cfg.API.MaxYear {
		writeError(w, http.StatusBadRequest,
			fmt.Sprintf("Year must be between %d and %d", s.cfg.API.MinYear, s.cfg.API.MaxYear))
		return 0, false
	}
	return year, true
}

func monthQuery(w http.ResponseWriter, r *http.Request) (int, bool) {
	raw := r.URL.Query().Get("month")
	if raw == "" {
		return 0, true
	}
	return parseMonth(w, raw)
}

func monthParam(w http.ResponseWriter, r *http.Request) (int, bool) {
	return parseMonth(w, chi.URLParam(r, "month"))
}

func parseMonth(w http.ResponseWriter, raw string) (int, bool) {
	month, err := strconv.Atoi(raw)
	if err != nil || month < 1 || month > 12 {
		writeError(w, http.StatusBadRequest, "Month must be between 1 and 12")
		return 0, false
	}
	return month, true
}

func notFoundDetail(prefix string, year, month int, monthInPath bool) string {
	switch {
	case monthInPath:
		return fmt.Sprintf("%s for %d-%02d", prefix, year, month)
	case month != 0:
		return fmt.Sprintf("%s for year %d and month %d", prefix, year, month)
	default:
		return fmt.Sprintf("%s for year %d", prefix, year)
	}
}

func optionalMonth(month int) *int {
	if month == 0 {
		return nil
	}
	return &month
}

func (s *Server) requestIDMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		reqID, err := s.ids.NewID()
		if err != nil {
			// Serve the request anyway; only correlation is lost.
			s.logger.Warn("request id generation failed", zap.Error(err))
			next.ServeHTTP(w, r)
			return
		}
		ctx := context.WithValue(r.Context(), requestIDKey{}, reqID)
		w.Header().Set("X-Request-ID", reqID)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func (s *Server) loggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := newResponseWriter(w, start)
		next.ServeHTTP(ww, r)
		s.logger.Info("request completed",
			zap.String("request_id", requestIDFrom(r.Context())),
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.Int("status", ww.status),
			zap.Int64("duration_ms", time.Since(start).Milliseconds()),
		)
	})
}

func (s *Server) recoverMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			if rec := recover(); rec != nil {
				s.logger.Error("panic recovered",
					zap.Any("panic", rec),
					zap.String("path", r.URL.Path),
				)
				writeError(w, http.StatusInternalServerError, "Internal server error")
			}
		}()
		next.ServeHTTP(w, r)
	})
}

func (s *Server) rateLimitMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		client := clientAddress(r)
		if !s.limiter.Allow(client) {
			metrics.IncRateLimited()
			s.logger.Warn("rate limit exceeded",
				zap.String("client", client),
				zap.String("path", r.URL.Path),
			)
			retryAfter := int(s.cfg.RateLimitWindow().Seconds())
			w.Header().Set("Retry-After", strconv.Itoa(retryAfter))
			writeJSON(w, http.StatusTooManyRequests, errorResponse{
				Detail:     "Rate limit exceeded. Please try again later.",
				RetryAfter: retryAfter,
			})
			return
		}
		next.ServeHTTP(w, r)
	})
}

func timeoutMiddleware(d time.Duration) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.TimeoutHandler(next, d, "request timed out")
	}
}

func clientAddress(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}

type requestIDKey struct{}

func requestIDFrom(ctx context.Context) string {
	if id, ok := ctx.Value(requestIDKey{}).(string); ok {
		return id
	}
	return ""
}

type responseWriter struct {
	http.ResponseWriter
	status      int
	start       time.Time
	wroteHeader bool
}

func newResponseWriter(w http.ResponseWriter, start time.Time) *responseWriter {
	return &responseWriter{ResponseWriter: w, status: http.StatusOK, start: start}
}

func (rw *responseWriter) WriteHeader(code int) {
	if rw.wroteHeader {
		return
	}
	rw.wroteHeader = true
	rw.status = code
	rw.Header().Set("X-Process-Time", strconv.FormatFloat(time.Since(rw.start).Seconds(), 'f', -1, 64))
	rw.ResponseWriter.WriteHeader(code)
}

func (rw *responseWriter) Write(b []byte) (int, error) {
	if !rw.wroteHeader {
		rw.WriteHeader(http.StatusOK)
	}
	n, err := rw.ResponseWriter.Write(b)
	if err != nil {
		return n, fmt.Errorf("write response: %w", err)
	}
	return n, nil
}

func (rw *responseWriter) Flush() {
	if f, ok := rw.ResponseWriter.(http.Flusher); ok {
		f.Flush()
	}
}

func (rw *responseWriter) Hijack() (net.Conn, *bufio.ReadWriter, error) {
	if h, ok := rw.ResponseWriter.(http.Hijacker); ok {
		conn, buf, err := h.Hijack()
		if err != nil {
			return nil, nil, fmt.Errorf("hijack connection: %w", err)
		}
		return conn, buf, nil
	}
	return nil, nil, errors.New("hijacker not supported")
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		zap.L().Error("write JSON failed", zap.Error(err))
	}
}

func writeError(w http.ResponseWriter, status int, detail string) {
	writeJSON(w, status, errorResponse{Detail: detail})
}
