package http

import (
	"bufio"
	"encoding/json"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/elevatorsim/engine/internal/constants"
	"github.com/elevatorsim/engine/internal/domain"
)

// APIResponse is the standard envelope every RPC handler writes (spec §6:
// "Error payload on failure: {"error": <message>} with a non-success status
// code" — Data/Error carry that plus the request metadata the teacher's API
// already exposed).
type APIResponse struct {
	Success   bool        `json:"success"`
	Data      interface{} `json:"data,omitempty"`
	Error     *APIError   `json:"error,omitempty"`
	Meta      *APIMeta    `json:"meta,omitempty"`
	Timestamp time.Time   `json:"timestamp"`
}

// APIError carries the error kind and message for a failed RPC call.
type APIError struct {
	Code      string `json:"code"`
	Message   string `json:"message"`
	Details   string `json:"details,omitempty"`
	RequestID string `json:"request_id,omitempty"`
}

// APIMeta carries request-scoped metadata alongside the payload.
type APIMeta struct {
	RequestID string `json:"request_id,omitempty"`
	Duration  string `json:"duration,omitempty"`
}

// ResponseWriter wraps http.ResponseWriter with the envelope helpers every
// handler uses to reply.
type ResponseWriter struct {
	http.ResponseWriter
	logger    *slog.Logger
	requestID string
	startTime time.Time
}

// NewResponseWriter wraps w for a single request/response cycle.
func NewResponseWriter(w http.ResponseWriter, logger *slog.Logger, requestID string) *ResponseWriter {
	return &ResponseWriter{ResponseWriter: w, logger: logger, requestID: requestID, startTime: time.Now()}
}

// Hijack implements http.Hijacker so the wrapped writer still supports the
// websocket event-stream upgrade.
func (rw *ResponseWriter) Hijack() (net.Conn, *bufio.ReadWriter, error) {
	if hijacker, ok := rw.ResponseWriter.(http.Hijacker); ok {
		return hijacker.Hijack()
	}
	return nil, nil, fmt.Errorf("response writer does not implement http.Hijacker")
}

// WriteJSON writes a successful response in the standard envelope.
func (rw *ResponseWriter) WriteJSON(statusCode int, data interface{}) {
	response := APIResponse{
		Success:   statusCode >= 200 && statusCode < 300,
		Data:      data,
		Timestamp: time.Now(),
		Meta: &APIMeta{
			RequestID: rw.requestID,
			Duration:  time.Since(rw.startTime).String(),
		},
	}

	rw.Header().Set("Content-Type", constants.ContentTypeJSON)
	rw.Header().Set("X-Request-ID", rw.requestID)

	encoded, err := json.Marshal(response)
	if err != nil {
		rw.logger.Error("failed to encode JSON response",
			slog.String("error", err.Error()), slog.String("request_id", rw.requestID))
		rw.WriteHeader(http.StatusInternalServerError)
		return
	}

	rw.WriteHeader(statusCode)
	if _, err := rw.Write(encoded); err != nil {
		rw.logger.Error("failed to write JSON response",
			slog.String("error", err.Error()), slog.String("request_id", rw.requestID))
	}
}

// WriteError writes a failure response in the standard envelope.
func (rw *ResponseWriter) WriteError(statusCode int, errorCode, message, details string) {
	response := APIResponse{
		Success: false,
		Error: &APIError{
			Code:      errorCode,
			Message:   message,
			Details:   details,
			RequestID: rw.requestID,
		},
		Timestamp: time.Now(),
		Meta: &APIMeta{
			RequestID: rw.requestID,
			Duration:  time.Since(rw.startTime).String(),
		},
	}

	rw.Header().Set("Content-Type", constants.ContentTypeJSON)
	rw.Header().Set("X-Request-ID", rw.requestID)
	rw.WriteHeader(statusCode)
	if err := json.NewEncoder(rw).Encode(response); err != nil {
		rw.logger.Error("failed to encode error response",
			slog.String("error", err.Error()), slog.String("request_id", rw.requestID))
	}
}

// WriteDomainError maps a domain.DomainError to its wire error kind and
// HTTP status (spec §6/§7): INVALID_ARGUMENT->400, NOT_FOUND->404,
// NO_MORE_SCENARIOS->409, INTERNAL->500.
func (rw *ResponseWriter) WriteDomainError(err error) {
	statusCode := http.StatusInternalServerError
	errorCode := ErrorCodeInternal

	domainErr, ok := err.(*domain.DomainError)
	if ok {
		switch domainErr.Type {
		case domain.ErrTypeValidation:
			statusCode, errorCode = http.StatusBadRequest, ErrorCodeInvalidArgument
		case domain.ErrTypeNotFound:
			statusCode, errorCode = http.StatusNotFound, ErrorCodeNotFound
		case domain.ErrTypeConflict:
			statusCode, errorCode = http.StatusConflict, ErrorCodeConflict
		case domain.ErrTypeNoMoreScenarios:
			statusCode, errorCode = http.StatusConflict, ErrorCodeNoMoreScenarios
		case domain.ErrTypeInternal, domain.ErrTypeExternal:
			statusCode, errorCode = http.StatusInternalServerError, ErrorCodeInternal
		}
	}

	rw.WriteError(statusCode, errorCode, err.Error(), "")
}

// writeJSONBody encodes body directly to w, for handlers (health checks)
// that don't go through the APIResponse envelope.
func writeJSONBody(w http.ResponseWriter, body any) error {
	return json.NewEncoder(w).Encode(body)
}

// ErrorCode constants for the RPC surface's error kinds (spec §7).
const (
	ErrorCodeInvalidArgument  = "INVALID_ARGUMENT"
	ErrorCodeNotFound         = "NOT_FOUND"
	ErrorCodeConflict         = "CONFLICT"
	ErrorCodeNoMoreScenarios  = "NO_MORE_SCENARIOS"
	ErrorCodeInternal         = "INTERNAL"
	ErrorCodeMethodNotAllowed = "METHOD_NOT_ALLOWED"
	ErrorCodeInvalidJSON      = "INVALID_JSON"
	ErrorCodeRateLimit        = "RATE_LIMITED"
)
