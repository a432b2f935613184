// Package http implements the reference transport of the engine's
// command/query surface (spec §4.6/§6): an HTTP+JSON RPC surface plus a
// supplemental event-stream websocket, grounded on the teacher's
// internal/http package (server.go routing, middleware.go cross-cutting
// concerns, response.go envelope, handlers.go per-operation handlers).
package http

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"github.com/elevatorsim/engine/internal/constants"
	"github.com/elevatorsim/engine/internal/engine"
	"github.com/elevatorsim/engine/internal/infra/config"
	"github.com/elevatorsim/engine/internal/infra/health"
)

// Server is the HTTP transport around one Engine instance.
type Server struct {
	engine        *engine.Engine
	httpServer    *http.Server
	cfg           *config.Config
	logger        *slog.Logger
	healthService *health.HealthService
	broadcaster   *EventBroadcaster
}

// NewServer wires the RPC handlers, middleware chain, health checks, and
// (if enabled) the event-stream websocket around eng.
func NewServer(cfg *config.Config, eng *engine.Engine, logger *slog.Logger) *Server {
	s := &Server{
		engine:        eng,
		cfg:           cfg,
		logger:        logger.With(slog.String("component", constants.ComponentHTTPServer)),
		healthService: health.NewHealthService(),
	}
	if cfg.WebSocketEnabled {
		s.broadcaster = NewEventBroadcaster(s.logger)
	}

	s.setupHealthChecks(eng)

	handlers := NewHandlers(eng, s.broadcaster, s.logger)

	mux := http.NewServeMux()
	mux.HandleFunc("/v1/state", handlers.GetStateHandler)
	mux.HandleFunc("/v1/step", handlers.StepHandler)
	mux.HandleFunc("/v1/elevators/", handlers.GoToFloorHandler)
	mux.HandleFunc("/v1/reset", handlers.ResetHandler)
	mux.HandleFunc("/v1/traffic/next", handlers.TrafficNextHandler)
	mux.HandleFunc("/v1/traffic/info", handlers.TrafficInfoHandler)

	mux.HandleFunc(cfg.HealthPath, s.livenessOrReadinessHandler("liveness"))
	mux.HandleFunc(cfg.HealthPath+"/ready", s.livenessOrReadinessHandler("readiness"))
	mux.HandleFunc(cfg.HealthPath+"/detailed", s.detailedHealthHandler)

	if cfg.MetricsEnabled {
		mux.Handle(cfg.MetricsPath, promhttp.Handler())
	}

	if cfg.WebSocketEnabled {
		mux.HandleFunc(cfg.WebSocketPath, s.EventStreamHandler)
	}

	rateLimiter := NewRateLimitMiddleware(cfg.RateLimitRPM, cfg.RateLimitWindow, s.logger)
	chain := ChainMiddleware(
		RequestIDMiddleware(),
		LoggingMiddleware(s.logger),
		RecoveryMiddleware(s.logger),
		CORSMiddleware(cfg.CORSAllowedOrigins),
		SecurityHeadersMiddleware(),
		MetricsMiddleware(),
		rateLimiter.Handler(),
	)

	// otelhttp wraps the whole chain last, so every request (including
	// ones rejected by rate limiting or CORS) gets a root span.
	traced := otelhttp.NewHandler(chain(mux), "elevator-engine",
		otelhttp.WithSpanNameFormatter(func(_ string, r *http.Request) string {
			return r.Method + " " + sanitizeEndpoint(r.URL.Path)
		}))

	s.httpServer = &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Port),
		Handler:      traced,
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
		IdleTimeout:  cfg.IdleTimeout,
	}

	return s
}

// setupHealthChecks registers the health checkers surfaced at
// cfg.HealthPath and its /ready, /detailed variants.
func (s *Server) setupHealthChecks(eng *engine.Engine) {
	s.healthService.Register(health.NewSystemResourceChecker(85.0, 1000))
	s.healthService.Register(health.NewLivenessChecker())

	engineChecker := health.NewEngineChecker(eng)
	s.healthService.Register(engineChecker)
	s.healthService.Register(health.NewReadinessChecker(engineChecker))

	s.logger.Info("health checks initialized", slog.Int("registered_checkers", 4))
}

func (s *Server) livenessOrReadinessHandler(name string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
			return
		}
		result, err := s.healthService.Check(r.Context(), name)
		if err != nil {
			http.Error(w, name+" check failed", http.StatusServiceUnavailable)
			return
		}
		writeHealthResult(w, result.Status, result)
	}
}

func (s *Server) detailedHealthHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	overallStatus, results := s.healthService.GetOverallStatus(r.Context())
	writeHealthResult(w, overallStatus, map[string]any{
		"status":    string(overallStatus),
		"timestamp": time.Now(),
		"checks":    results,
	})
}

func writeHealthResult(w http.ResponseWriter, status health.Status, body any) {
	w.Header().Set("Content-Type", "application/json")
	statusCode := http.StatusOK
	if status == health.StatusUnhealthy {
		statusCode = http.StatusServiceUnavailable
	}
	w.WriteHeader(statusCode)
	_ = writeJSONBody(w, body)
}

// GetHandler exposes the composed handler for use in tests.
func (s *Server) GetHandler() http.Handler {
	return s.httpServer.Handler
}

// Start begins serving; it blocks until the server stops.
func (s *Server) Start() error {
	return s.httpServer.ListenAndServe()
}

// Shutdown gracefully drains in-flight requests within cfg.ShutdownTimeout.
func (s *Server) Shutdown() error {
	ctx, cancel := context.WithTimeout(context.Background(), s.cfg.ShutdownTimeout)
	defer cancel()
	return s.httpServer.Shutdown(ctx)
}
