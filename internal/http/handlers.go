package http

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"github.com/elevatorsim/engine/internal/constants"
	"github.com/elevatorsim/engine/internal/engine"
	"github.com/elevatorsim/engine/internal/infra/logging"
	"github.com/elevatorsim/engine/internal/simevents"
)

// Handlers implements one method per RPC operation of spec §4.6/§6.
type Handlers struct {
	engine      *engine.Engine
	broadcaster *EventBroadcaster
	logger      *slog.Logger
}

// NewHandlers builds the RPC handler set over eng. broadcaster may be nil
// when the event-stream websocket is disabled.
func NewHandlers(eng *engine.Engine, broadcaster *EventBroadcaster, logger *slog.Logger) *Handlers {
	return &Handlers{engine: eng, broadcaster: broadcaster, logger: logger}
}

// StepRequest is the step() request body (spec §6).
type StepRequest struct {
	Ticks int `json:"ticks"`
}

// StepResponse is the step() response body (spec §6).
type StepResponse struct {
	Tick   int               `json:"tick"`
	Events []simevents.Event `json:"events"`
}

// GoToFloorRequest is the go_to_floor() request body (spec §6).
type GoToFloorRequest struct {
	Floor     int  `json:"floor"`
	Immediate bool `json:"immediate"`
}

// OKResponse is the `{"success":true}` shape every mutating RPC other than
// step() returns on success (spec §6).
type OKResponse struct {
	Success bool `json:"success"`
}

// TrafficNextRequest is the next_traffic_round() request body (spec §6).
type TrafficNextRequest struct {
	FullReset bool `json:"full_reset"`
}

// GetStateHandler serves get_state() (GET /v1/state).
func (h *Handlers) GetStateHandler(w http.ResponseWriter, r *http.Request) {
	rw := NewResponseWriter(w, h.logger, logging.GetRequestID(r.Context()))
	if r.Method != http.MethodGet {
		rw.WriteError(http.StatusMethodNotAllowed, ErrorCodeMethodNotAllowed, "method not allowed", "only GET is supported")
		return
	}
	rw.WriteJSON(http.StatusOK, h.engine.GetState())
}

// StepHandler serves step() (POST /v1/step). On success, the produced
// event slice is also pushed to any subscribed event-stream websocket
// clients (SPEC_FULL.md supplemented feature).
func (h *Handlers) StepHandler(w http.ResponseWriter, r *http.Request) {
	requestID := logging.GetRequestID(r.Context())
	rw := NewResponseWriter(w, h.logger, requestID)

	if r.Method != http.MethodPost {
		rw.WriteError(http.StatusMethodNotAllowed, ErrorCodeMethodNotAllowed, "method not allowed", "only POST is supported")
		return
	}

	req := StepRequest{Ticks: 1}
	if r.ContentLength != 0 {
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			rw.WriteError(http.StatusBadRequest, ErrorCodeInvalidJSON, "invalid JSON", err.Error())
			return
		}
	}

	tick, events, err := h.engine.Step(req.Ticks)
	if err != nil {
		h.logger.ErrorContext(r.Context(), "step failed",
			slog.Int("ticks", req.Ticks), slog.String("error", err.Error()), slog.String("request_id", requestID))
		rw.WriteDomainError(err)
		return
	}

	if h.broadcaster != nil && len(events) > 0 {
		h.broadcaster.Publish(events)
	}

	ctx := logging.WithTick(r.Context(), tick)
	h.logger.DebugContext(ctx, "step completed",
		slog.Int("tick", tick), slog.Int("events", len(events)), slog.String("request_id", requestID))

	rw.WriteJSON(http.StatusOK, StepResponse{Tick: tick, Events: events})
}

// GoToFloorHandler serves go_to_floor() (POST /v1/elevators/{id}/go_to_floor).
func (h *Handlers) GoToFloorHandler(w http.ResponseWriter, r *http.Request) {
	requestID := logging.GetRequestID(r.Context())
	rw := NewResponseWriter(w, h.logger, requestID)

	if r.Method != http.MethodPost {
		rw.WriteError(http.StatusMethodNotAllowed, ErrorCodeMethodNotAllowed, "method not allowed", "only POST is supported")
		return
	}

	elevatorID, ok := parseElevatorID(r.URL.Path)
	if !ok {
		rw.WriteError(http.StatusBadRequest, ErrorCodeInvalidArgument, "invalid elevator id", r.URL.Path)
		return
	}

	var req GoToFloorRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		rw.WriteError(http.StatusBadRequest, ErrorCodeInvalidJSON, "invalid JSON", err.Error())
		return
	}

	if err := h.engine.GoToFloor(elevatorID, req.Floor, req.Immediate); err != nil {
		h.logger.ErrorContext(r.Context(), "go_to_floor failed",
			slog.Int("elevator_id", elevatorID), slog.Int("floor", req.Floor),
			slog.String("error", err.Error()), slog.String("request_id", requestID))
		rw.WriteDomainError(err)
		return
	}

	rw.WriteJSON(http.StatusOK, OKResponse{Success: true})
}

// parseElevatorID extracts the {id} path segment of
// /v1/elevators/{id}/go_to_floor.
func parseElevatorID(path string) (int, bool) {
	parts := strings.Split(strings.Trim(path, "/"), "/")
	for i, part := range parts {
		if part == "elevators" && i+1 < len(parts) {
			id, err := strconv.Atoi(parts[i+1])
			return id, err == nil
		}
	}
	return 0, false
}

// ResetHandler serves reset() (POST /v1/reset).
func (h *Handlers) ResetHandler(w http.ResponseWriter, r *http.Request) {
	requestID := logging.GetRequestID(r.Context())
	rw := NewResponseWriter(w, h.logger, requestID)

	if r.Method != http.MethodPost {
		rw.WriteError(http.StatusMethodNotAllowed, ErrorCodeMethodNotAllowed, "method not allowed", "only POST is supported")
		return
	}

	if err := h.engine.Reset(); err != nil {
		h.logger.ErrorContext(r.Context(), "reset failed",
			slog.String("error", err.Error()), slog.String("request_id", requestID))
		rw.WriteDomainError(err)
		return
	}
	rw.WriteJSON(http.StatusOK, OKResponse{Success: true})
}

// TrafficNextHandler serves next_traffic_round() (POST /v1/traffic/next).
func (h *Handlers) TrafficNextHandler(w http.ResponseWriter, r *http.Request) {
	requestID := logging.GetRequestID(r.Context())
	rw := NewResponseWriter(w, h.logger, requestID)

	if r.Method != http.MethodPost {
		rw.WriteError(http.StatusMethodNotAllowed, ErrorCodeMethodNotAllowed, "method not allowed", "only POST is supported")
		return
	}

	var req TrafficNextRequest
	if r.ContentLength != 0 {
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			rw.WriteError(http.StatusBadRequest, ErrorCodeInvalidJSON, "invalid JSON", err.Error())
			return
		}
	}

	if err := h.engine.NextTrafficRound(req.FullReset); err != nil {
		h.logger.WarnContext(r.Context(), "traffic_next failed",
			slog.String("error", err.Error()), slog.String("request_id", requestID),
			slog.String("component", constants.ComponentTraffic))
		rw.WriteDomainError(err)
		return
	}
	rw.WriteJSON(http.StatusOK, OKResponse{Success: true})
}

// TrafficInfoHandler serves traffic_info() (GET /v1/traffic/info).
func (h *Handlers) TrafficInfoHandler(w http.ResponseWriter, r *http.Request) {
	rw := NewResponseWriter(w, h.logger, logging.GetRequestID(r.Context()))
	if r.Method != http.MethodGet {
		rw.WriteError(http.StatusMethodNotAllowed, ErrorCodeMethodNotAllowed, "method not allowed", "only GET is supported")
		return
	}
	rw.WriteJSON(http.StatusOK, h.engine.TrafficInfo())
}
