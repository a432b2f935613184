package observability

import (
	"bufio"
	"context"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"strings"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/trace"
	"go.opentelemetry.io/otel/trace/noop"
)

// TelemetryProvider wraps the OpenTelemetry tracer and meter used to
// instrument the HTTP transport around the engine (spec component C6).
type TelemetryProvider struct {
	config *ObservabilityConfig
	logger *slog.Logger
	tracer trace.Tracer
	meter  metric.Meter
}

// NewTelemetryProvider builds a TelemetryProvider. With config.Enabled
// false it still returns a usable, no-op provider.
func NewTelemetryProvider(config *ObservabilityConfig, logger *slog.Logger) (*TelemetryProvider, error) {
	tp := &TelemetryProvider{config: config, logger: logger}
	if !config.Enabled {
		return tp, nil
	}

	tp.tracer = otel.Tracer(config.ServiceName)
	tp.meter = otel.Meter(config.ServiceName)

	otel.SetTextMapPropagator(propagation.NewCompositeTextMapPropagator(
		propagation.TraceContext{},
		propagation.Baggage{},
	))

	tp.logger.Info("telemetry provider initialized",
		slog.String("service", config.ServiceName),
		slog.String("version", config.Version),
		slog.String("environment", config.Environment))

	return tp, nil
}

// Tracer returns the configured tracer, or a no-op tracer when telemetry is
// disabled.
func (tp *TelemetryProvider) Tracer() trace.Tracer {
	if tp.tracer == nil {
		return noop.NewTracerProvider().Tracer("noop")
	}
	return tp.tracer
}

// Meter returns the configured meter, or the global no-op meter when
// telemetry is disabled.
func (tp *TelemetryProvider) Meter() metric.Meter {
	if tp.meter == nil {
		return otel.Meter("noop")
	}
	return tp.meter
}

// CreateSpan starts a span under the configured tracer.
func (tp *TelemetryProvider) CreateSpan(ctx context.Context, name string, opts ...trace.SpanStartOption) (context.Context, trace.Span) {
	return tp.Tracer().Start(ctx, name, opts...)
}

// TelemetryMiddleware instruments every request with a span and a
// completion log line; request-count/duration counters live in the
// Prometheus-backed metrics package, not here, to avoid two competing
// metrics backends for the same measurement.
func (tp *TelemetryProvider) TelemetryMiddleware() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx, span := tp.CreateSpan(r.Context(), "http_request",
				trace.WithAttributes(
					attribute.String("http.method", r.Method),
					attribute.String("http.url", r.URL.String()),
				),
			)
			defer span.End()

			r = r.WithContext(ctx)
			start := time.Now()
			wrapped := &responseWriter{ResponseWriter: w, statusCode: http.StatusOK}

			next.ServeHTTP(wrapped, r)

			duration := time.Since(start)
			span.SetAttributes(
				attribute.Int("http.status_code", wrapped.statusCode),
				attribute.Float64("http.duration_seconds", duration.Seconds()),
			)

			level := slog.LevelInfo
			if wrapped.statusCode >= 400 {
				level = slog.LevelError
			}
			tp.logger.Log(ctx, level, "http request completed",
				"method", r.Method,
				"path", sanitizeEndpoint(r.URL.Path),
				"status_code", wrapped.statusCode,
				"duration_seconds", duration.Seconds(),
			)
		})
	}
}

// Shutdown is a no-op placeholder for symmetry with callers that defer it
// unconditionally; there is no exporter pipeline here to drain.
func (tp *TelemetryProvider) Shutdown(ctx context.Context) error {
	return nil
}

// responseWriter wraps http.ResponseWriter to capture the status code.
type responseWriter struct {
	http.ResponseWriter
	statusCode int
}

func (rw *responseWriter) WriteHeader(code int) {
	rw.statusCode = code
	rw.ResponseWriter.WriteHeader(code)
}

// Hijack implements http.Hijacker so the wrapped writer still supports the
// event-stream websocket upgrade.
func (rw *responseWriter) Hijack() (net.Conn, *bufio.ReadWriter, error) {
	if hijacker, ok := rw.ResponseWriter.(http.Hijacker); ok {
		return hijacker.Hijack()
	}
	return nil, nil, fmt.Errorf("response writer does not implement http.Hijacker")
}

// sanitizeEndpoint strips query parameters and collapses numeric path
// segments so per-route metrics/logs don't explode in cardinality.
func sanitizeEndpoint(path string) string {
	if idx := strings.Index(path, "?"); idx != -1 {
		path = path[:idx]
	}
	parts := strings.Split(path, "/")
	for i, part := range parts {
		if len(part) > 0 && isNumeric(part) {
			parts[i] = "{id}"
		}
	}
	return strings.Join(parts, "/")
}

func isNumeric(s string) bool {
	for _, c := range s {
		if c < '0' || c > '9' {
			return false
		}
	}
	return len(s) > 0
}
