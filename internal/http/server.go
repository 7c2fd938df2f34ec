package http

import (
	"context"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"ledgerview/internal/core"
	"ledgerview/internal/log"
	"ledgerview/internal/view"
)

// ViewService is the part of view.Coordinator the API drives.
type ViewService interface {
	View(ctx context.Context) (view.Snapshot, error)
	Chart(ctx context.Context) (core.ChartConfig, error)
	Select(ctx context.Context, customerID int64) (core.ChartConfig, error)
	SetFilter(ctx context.Context, f core.FilterState) (view.Snapshot, error)
	CustomerTransactions(ctx context.Context, customerID int64) ([]core.Transaction, error)
	Load(ctx context.Context) error
}

var _ ViewService = (*view.Coordinator)(nil)

type Server struct {
	http.Server
	view        ViewService
	logger      *log.Logger
	rateLimiter *rateLimiter
	metrics     *securityMetrics

	// beforeReload runs ahead of every reload, typically to drop cached
	// upstream responses.
	beforeReload func()

	shutdownOnce sync.Once
}

type Option func(*Server)

// WithReloadHook registers fn to run before each POST /api/reload.
func WithReloadHook(fn func()) Option {
	return func(s *Server) { s.beforeReload = fn }
}

// WithRateLimit sets the number of POST requests allowed per client per
// minute.
func WithRateLimit(perMinute int) Option {
	return func(s *Server) { s.rateLimiter.limit = perMinute }
}

// NewServer configures routes, returning a ready-to-run http.Server.
func NewServer(addr string, svc ViewService, logger *log.Logger, opts ...Option) *Server {
	if logger == nil {
		logger = log.Discard()
	}
	mux := http.NewServeMux()

	s := &Server{
		view:        svc,
		logger:      logger.WithComponent(log.ComponentHTTP),
		rateLimiter: newRateLimiter(),
		metrics:     &securityMetrics{},
	}
	for _, opt := range opts {
		opt(s)
	}

	mux.HandleFunc("/healthz", handleHealth)
	mux.HandleFunc("/readyz", s.handleReady)
	mux.HandleFunc("/", s.withSecurityHeaders(s.handleIndex))
	mux.HandleFunc("/api/view", s.withSecurityHeaders(s.handleView))
	mux.HandleFunc("/api/customers", s.withSecurityHeaders(s.handleCustomers))
	mux.HandleFunc("/api/customers/{id}/transactions", s.withSecurityHeaders(s.handleCustomerTransactions))
	mux.HandleFunc("/api/filter", s.withSecurityHeaders(s.handleFilter))
	mux.HandleFunc("/api/select", s.withSecurityHeaders(s.handleSelect))
	mux.HandleFunc("/api/chart", s.withSecurityHeaders(s.handleChart))
	mux.HandleFunc("/api/reload", s.withSecurityHeaders(s.handleReload))

	var handler http.Handler = mux
	handler = log.RequestIDMiddleware(requestIDFromHeader)(handler)
	handler = assignRequestID(handler)
	handler = log.Middleware(s.logger)(handler)

	s.Server = http.Server{
		Addr:              addr,
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
	}
	return s
}

// withSecurityHeaders adds security headers, rate limiting, and request logging to responses
func (s *Server) withSecurityHeaders(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ctx := r.Context()
		clientIP := extractClientIP(r)

		if detectSuspiciousRequest(r, s.metrics) {
			log.FromContext(ctx).WarnContext(ctx, "Suspicious request",
				log.FieldClientIP, clientIP,
				log.FieldMethod, r.Method,
				log.FieldPath, r.URL.Path,
				log.FieldUserAgent, r.Header.Get("User-Agent"))
		}

		w.Header().Set("X-Content-Type-Options", "nosniff")
		w.Header().Set("X-Frame-Options", "DENY")
		w.Header().Set("Content-Security-Policy", "default-src 'none'; frame-ancestors 'none'")
		w.Header().Set("Referrer-Policy", "no-referrer")
		w.Header().Set("Cache-Control", "no-store")

		rw := &responseWriter{ResponseWriter: w, statusCode: http.StatusOK}

		// Only mutating requests are rate limited
		if r.Method == http.MethodPost && !s.rateLimiter.allow(clientIP, s.metrics) {
			NewJSONResponse().
				Status(http.StatusTooManyRequests).
				Header("Retry-After", "60").
				JSON(errorBody{Error: "rate limit exceeded, retry later"}).
				Write(rw)
		} else {
			next(rw, r)
		}

		log.LogHTTPEnd(ctx, r, rw.statusCode, time.Since(start).Milliseconds(), clientIP)
	}
}

// responseWriter wraps http.ResponseWriter to capture the status code
type responseWriter struct {
	http.ResponseWriter
	statusCode  int
	wroteHeader bool
}

func (rw *responseWriter) WriteHeader(code int) {
	if !rw.wroteHeader {
		rw.statusCode = code
		rw.wroteHeader = true
	}
	rw.ResponseWriter.WriteHeader(code)
}

func (rw *responseWriter) Write(b []byte) (int, error) {
	rw.wroteHeader = true
	return rw.ResponseWriter.Write(b)
}

func handleHealth(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	_, _ = w.Write([]byte("ok"))
}

// handleReady reports ready once both collections have loaded at least once.
func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	snap, err := s.view.View(r.Context())
	if err != nil || !snap.Ready() {
		w.WriteHeader(http.StatusServiceUnavailable)
		_, _ = w.Write([]byte("not ready"))
		return
	}
	_, _ = w.Write([]byte("ready"))
}

// SecurityStats is a point-in-time copy of the security counters.
type SecurityStats struct {
	RateLimitHits      int64
	SuspiciousRequests int64
}

func (s *Server) SecurityStats() SecurityStats {
	return SecurityStats{
		RateLimitHits:      atomic.LoadInt64(&s.metrics.rateLimitHits),
		SuspiciousRequests: atomic.LoadInt64(&s.metrics.suspiciousRequests),
	}
}

// Shutdown gracefully shuts down the server and cleanup routines
func (s *Server) Shutdown(ctx context.Context) error {
	var shutdownErr error

	s.shutdownOnce.Do(func() {
		if s.rateLimiter != nil {
			s.rateLimiter.stop()
		}
		st := s.SecurityStats()
		s.logger.InfoContext(ctx, "HTTP server shutting down",
			log.FieldOperation, log.OpShutdown,
			"rate_limit_hits", st.RateLimitHits,
			"suspicious_requests", st.SuspiciousRequests)
		shutdownErr = s.Server.Shutdown(ctx)
	})

	return shutdownErr
}
