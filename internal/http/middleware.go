package http

import (
	"bufio"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"runtime"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/elevatorsim/engine/internal/constants"
	"github.com/elevatorsim/engine/internal/infra/logging"
	"github.com/elevatorsim/engine/metrics"
)

// Middleware wraps an http.Handler with cross-cutting behavior.
type Middleware func(http.Handler) http.Handler

// ChainMiddleware composes middlewares in the order given, so the first
// middleware listed is outermost.
func ChainMiddleware(middlewares ...Middleware) Middleware {
	return func(final http.Handler) http.Handler {
		for i := len(middlewares) - 1; i >= 0; i-- {
			final = middlewares[i](final)
		}
		return final
	}
}

// RequestIDMiddleware assigns a correlation/request ID to every request.
func RequestIDMiddleware() Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			requestID := r.Header.Get("X-Request-ID")
			if requestID == "" {
				requestID = logging.GenerateCorrelationID()
			}

			ctx := logging.WithRequestID(r.Context(), requestID)
			ctx = logging.WithCorrelationID(ctx, requestID)

			w.Header().Set("X-Request-ID", requestID)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// LoggingMiddleware logs request start/completion and records the HTTP
// request-duration histogram.
func LoggingMiddleware(logger *slog.Logger) Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			startTime := time.Now()
			requestID := logging.GetRequestID(r.Context())

			wrapper := &responseWriterWrapper{ResponseWriter: w, statusCode: http.StatusOK}

			logger.InfoContext(r.Context(), "HTTP request started",
				slog.String("method", r.Method),
				slog.String("path", r.URL.Path),
				slog.String("remote_addr", r.RemoteAddr),
				slog.String("request_id", requestID),
				slog.String("component", constants.ComponentHTTPServer))

			next.ServeHTTP(wrapper, r)

			duration := time.Since(startTime)
			endpoint := sanitizeEndpoint(r.URL.Path)
			status := strconv.Itoa(wrapper.statusCode)

			metrics.RecordHTTPRequest(r.Method, endpoint, status, duration.Seconds())
			metrics.SetAvgResponseTime(requestCategory(endpoint), duration.Seconds())

			if wrapper.statusCode >= 400 {
				kind := "client_error"
				if wrapper.statusCode >= 500 {
					kind = "server_error"
				}
				metrics.IncError(kind, constants.ComponentHandler)
			}

			logLevel := slog.LevelInfo
			switch {
			case wrapper.statusCode >= 500:
				logLevel = slog.LevelError
			case wrapper.statusCode >= 400:
				logLevel = slog.LevelWarn
			}

			logger.Log(r.Context(), logLevel, "HTTP request completed",
				slog.String("method", r.Method),
				slog.String("path", r.URL.Path),
				slog.Int("status_code", wrapper.statusCode),
				slog.Float64("duration_seconds", duration.Seconds()),
				slog.String("request_id", requestID),
				slog.String("component", constants.ComponentHTTPServer))
		})
	}
}

// requestCategory buckets an endpoint into a coarse label for
// SetAvgResponseTime, so the gauge's cardinality stays small.
func requestCategory(endpoint string) string {
	switch {
	case endpoint == "/v1/step":
		return "step"
	case endpoint == "/v1/state":
		return "get_state"
	case strings.HasPrefix(endpoint, "/health"):
		return "health"
	default:
		return "other"
	}
}

// RecoveryMiddleware converts a panic into a 500 response instead of
// crashing the server.
func RecoveryMiddleware(logger *slog.Logger) Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer func() {
				if err := recover(); err != nil {
					requestID := logging.GetRequestID(r.Context())

					stack := make([]byte, 4096)
					length := runtime.Stack(stack, false)

					logger.ErrorContext(r.Context(), "HTTP handler panic recovered",
						slog.Any("error", err),
						slog.String("request_id", requestID),
						slog.String("path", r.URL.Path),
						slog.String("stack_trace", string(stack[:length])),
						slog.String("component", constants.ComponentHTTPServer))

					metrics.IncError("panic", constants.ComponentHandler)

					rw := NewResponseWriter(w, logger, requestID)
					rw.WriteError(http.StatusInternalServerError, ErrorCodeInternal,
						"internal server error", "an unexpected error occurred")
				}
			}()
			next.ServeHTTP(w, r)
		})
	}
}

// CORSMiddleware handles cross-origin requests for browser-based clients.
func CORSMiddleware(allowedOrigins string) Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Access-Control-Allow-Origin", allowedOrigins)
			w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
			w.Header().Set("Access-Control-Allow-Headers", "Content-Type, X-Request-ID")
			w.Header().Set("Access-Control-Expose-Headers", "X-Request-ID")

			if r.Method == http.MethodOptions {
				w.WriteHeader(http.StatusNoContent)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// SecurityHeadersMiddleware adds common defensive response headers.
func SecurityHeadersMiddleware() Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("X-Content-Type-Options", "nosniff")
			w.Header().Set("X-Frame-Options", "DENY")
			w.Header().Set("Referrer-Policy", "strict-origin-when-cross-origin")
			next.ServeHTTP(w, r)
		})
	}
}

// RateLimitMiddleware implements simple in-memory, per-IP rate limiting.
// The RPC surface is a single-process engine (spec §5), so a process-local
// limiter is sufficient; it does not need to be shared across replicas.
type RateLimitMiddleware struct {
	requests map[string][]time.Time
	mutex    sync.Mutex
	limit    int
	window   time.Duration
	logger   *slog.Logger
}

// NewRateLimitMiddleware builds a limiter admitting at most requestsPerWindow
// requests per window, per client IP.
func NewRateLimitMiddleware(requestsPerWindow int, window time.Duration, logger *slog.Logger) *RateLimitMiddleware {
	return &RateLimitMiddleware{
		requests: make(map[string][]time.Time),
		limit:    requestsPerWindow,
		window:   window,
		logger:   logger,
	}
}

// Handler returns the middleware enforcing the configured limit.
func (rl *RateLimitMiddleware) Handler() Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			clientIP := clientIP(r)
			if !rl.allow(clientIP) {
				requestID := logging.GetRequestID(r.Context())
				rl.logger.WarnContext(r.Context(), "rate limit exceeded",
					slog.String("client_ip", clientIP),
					slog.String("request_id", requestID),
					slog.String("component", constants.ComponentHTTPServer))

				rw := NewResponseWriter(w, rl.logger, requestID)
				rw.WriteError(http.StatusTooManyRequests, ErrorCodeRateLimit,
					"rate limit exceeded", "too many requests from this client")
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

func (rl *RateLimitMiddleware) allow(clientIP string) bool {
	rl.mutex.Lock()
	defer rl.mutex.Unlock()

	now := time.Now()
	var kept []time.Time
	for _, t := range rl.requests[clientIP] {
		if now.Sub(t) < rl.window {
			kept = append(kept, t)
		}
	}

	if len(kept) >= rl.limit {
		rl.requests[clientIP] = kept
		return false
	}

	rl.requests[clientIP] = append(kept, now)
	return true
}

// MetricsMiddleware samples process memory on every request.
func MetricsMiddleware() Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			var m runtime.MemStats
			runtime.ReadMemStats(&m)
			metrics.SetMemoryUsage("alloc", float64(m.Alloc))
			metrics.SetMemoryUsage("sys", float64(m.Sys))
			metrics.SetMemoryUsage("heap_objects", float64(m.HeapObjects))

			next.ServeHTTP(w, r)
		})
	}
}

// responseWriterWrapper captures the status code an inner handler writes.
type responseWriterWrapper struct {
	http.ResponseWriter
	statusCode int
}

func (w *responseWriterWrapper) WriteHeader(statusCode int) {
	w.statusCode = statusCode
	w.ResponseWriter.WriteHeader(statusCode)
}

// Hijack exposes the wrapped writer's http.Hijacker so websocket upgrades
// pass through the logging middleware.
func (w *responseWriterWrapper) Hijack() (net.Conn, *bufio.ReadWriter, error) {
	if hijacker, ok := w.ResponseWriter.(http.Hijacker); ok {
		return hijacker.Hijack()
	}
	return nil, nil, fmt.Errorf("response writer does not implement http.Hijacker")
}

// Unwrap returns the wrapped writer for http.ResponseController.
func (w *responseWriterWrapper) Unwrap() http.ResponseWriter {
	return w.ResponseWriter
}

func clientIP(r *http.Request) string {
	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		parts := strings.Split(xff, ",")
		return strings.TrimSpace(parts[0])
	}
	if xri := r.Header.Get("X-Real-IP"); xri != "" {
		return strings.TrimSpace(xri)
	}
	ip := r.RemoteAddr
	if colon := strings.LastIndex(ip, ":"); colon != -1 {
		ip = ip[:colon]
	}
	return ip
}

// sanitizeEndpoint collapses path parameters so per-route metrics don't
// explode in cardinality.
func sanitizeEndpoint(path string) string {
	if idx := strings.Index(path, "?"); idx != -1 {
		path = path[:idx]
	}
	switch {
	case strings.HasPrefix(path, "/v1/elevators/") && strings.HasSuffix(path, "/go_to_floor"):
		return "/v1/elevators/{id}/go_to_floor"
	case path == "":
		return "/"
	default:
		return path
	}
}
