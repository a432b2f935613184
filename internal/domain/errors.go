// Package domain carries error types shared by every layer of the engine.
package domain

import (
	"fmt"
)

// ErrType represents different categories of errors in the system.
type ErrType string

const (
	// ErrTypeValidation represents validation errors (wire: INVALID_ARGUMENT).
	ErrTypeValidation ErrType = "validation"
	// ErrTypeNotFound represents resource not found errors (wire: NOT_FOUND).
	ErrTypeNotFound ErrType = "not_found"
	// ErrTypeConflict represents conflict errors.
	ErrTypeConflict ErrType = "conflict"
	// ErrTypeInternal represents internal system errors (wire: INTERNAL).
	ErrTypeInternal ErrType = "internal"
	// ErrTypeExternal represents external service errors.
	ErrTypeExternal ErrType = "external"
	// ErrTypeNoMoreScenarios represents traffic_next called past the last scenario.
	ErrTypeNoMoreScenarios ErrType = "no_more_scenarios"
)

// DomainError represents a structured error with type and context.
type DomainError struct {
	Type    ErrType
	Message string
	Err     error
	Context map[string]interface{}
}

// Error implements the error interface.
func (de *DomainError) Error() string {
	if de.Err != nil {
		return fmt.Sprintf("%s: %s: %v", de.Type, de.Message, de.Err)
	}
	return fmt.Sprintf("%s: %s", de.Type, de.Message)
}

// Unwrap returns the wrapped error.
func (de *DomainError) Unwrap() error {
	return de.Err
}

// NewValidationError creates a new validation error.
func NewValidationError(message string, err error) *DomainError {
	return &DomainError{Type: ErrTypeValidation, Message: message, Err: err, Context: make(map[string]interface{})}
}

// NewNotFoundError creates a new not found error.
func NewNotFoundError(message string, err error) *DomainError {
	return &DomainError{Type: ErrTypeNotFound, Message: message, Err: err, Context: make(map[string]interface{})}
}

// NewConflictError creates a new conflict error.
func NewConflictError(message string, err error) *DomainError {
	return &DomainError{Type: ErrTypeConflict, Message: message, Err: err, Context: make(map[string]interface{})}
}

// NewInternalError creates a new internal error. Per spec this denotes an
// invariant violation; it is always fatal to the step call that raised it.
func NewInternalError(message string, err error) *DomainError {
	return &DomainError{Type: ErrTypeInternal, Message: message, Err: err, Context: make(map[string]interface{})}
}

// NewExternalError creates a new external error.
func NewExternalError(message string, err error) *DomainError {
	return &DomainError{Type: ErrTypeExternal, Message: message, Err: err, Context: make(map[string]interface{})}
}

// NewNoMoreScenariosError creates the error traffic_next returns once the
// last configured scenario has been consumed.
func NewNoMoreScenariosError(message string, err error) *DomainError {
	return &DomainError{Type: ErrTypeNoMoreScenarios, Message: message, Err: err, Context: make(map[string]interface{})}
}

// WithContext adds context to the error.
func (de *DomainError) WithContext(key string, value interface{}) *DomainError {
	de.Context[key] = value
	return de
}

// Is supports errors.Is against the ErrType sentinels below by comparing Type.
func (de *DomainError) Is(target error) bool {
	other, ok := target.(*DomainError)
	if !ok {
		return false
	}
	return de.Type == other.Type
}

// Sentinel domain errors reused across the engine and transport layers.
var (
	ErrElevatorNotFound   = NewNotFoundError("elevator does not exist", nil)
	ErrPassengerNotFound  = NewNotFoundError("passenger does not exist", nil)
	ErrFloorOutOfRange    = NewValidationError("floor is out of range for this building", nil)
	ErrTicksNotPositive   = NewValidationError("ticks must be a positive integer", nil)
	ErrNoMoreScenarios    = NewNoMoreScenariosError("no more traffic scenarios configured", nil)
	ErrInvariantViolation = NewInternalError("simulation invariant violated", nil)
)
