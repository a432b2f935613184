package http

import (
	"encoding/json"
	"log/slog"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/elevatorsim/engine/internal/domain"
)

func TestResponseWriter_WriteJSON(t *testing.T) {
	w := httptest.NewRecorder()
	rw := NewResponseWriter(w, slog.Default(), "req-1")

	rw.WriteJSON(200, map[string]int{"tick": 5})

	var resp APIResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.True(t, resp.Success)
	assert.Nil(t, resp.Error)
	assert.Equal(t, "req-1", resp.Meta.RequestID)
	assert.Equal(t, "req-1", w.Header().Get("X-Request-ID"))
}

func TestResponseWriter_WriteError(t *testing.T) {
	w := httptest.NewRecorder()
	rw := NewResponseWriter(w, slog.Default(), "req-2")

	rw.WriteError(400, ErrorCodeInvalidArgument, "bad input", "floor out of range")

	var resp APIResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.False(t, resp.Success)
	require.NotNil(t, resp.Error)
	assert.Equal(t, ErrorCodeInvalidArgument, resp.Error.Code)
	assert.Equal(t, 400, w.Code)
}

func TestResponseWriter_WriteDomainError(t *testing.T) {
	tests := []struct {
		name       string
		err        error
		wantStatus int
		wantCode   string
	}{
		{"validation", domain.NewValidationError("bad floor", nil), 400, ErrorCodeInvalidArgument},
		{"not found", domain.NewNotFoundError("no such elevator", nil), 404, ErrorCodeNotFound},
		{"conflict", domain.NewConflictError("already exists", nil), 409, ErrorCodeConflict},
		{"no more scenarios", domain.NewNoMoreScenariosError("exhausted", nil), 409, ErrorCodeNoMoreScenarios},
		{"internal", domain.NewInternalError("invariant violated", nil), 500, ErrorCodeInternal},
		{"plain error", assertError{}, 500, ErrorCodeInternal},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := httptest.NewRecorder()
			rw := NewResponseWriter(w, slog.Default(), "req-3")
			rw.WriteDomainError(tt.err)

			assert.Equal(t, tt.wantStatus, w.Code)
			var resp APIResponse
			require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
			require.NotNil(t, resp.Error)
			assert.Equal(t, tt.wantCode, resp.Error.Code)
		})
	}
}

type assertError struct{}

func (assertError) Error() string { return "boom" }
