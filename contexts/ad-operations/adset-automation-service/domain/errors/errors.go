package errors

import (
	"errors"
	"fmt"
)

var (
	ErrValidation       = errors.New("validation failed")
	ErrInvalidField     = errors.New("unknown settings field")
	ErrInvalidStopLoss  = errors.New("stop-loss percent must be a number between 0 and 100")
	ErrInvalidFrozen    = errors.New("freeze flag must be a boolean")
	ErrInvalidTurns     = errors.New("turn assignment must be a list of shift names")
	ErrUnknownTurn      = errors.New("turn is not configured")
	ErrInvalidTurn      = errors.New("invalid turn configuration")
	ErrInvalidRunState  = errors.New("run state must be ACTIVE or PAUSED")
	ErrActorRequired    = errors.New("actor is required")
	ErrAdSetIDRequired  = errors.New("ad set id is required")
	ErrAdSetNotFound    = errors.New("ad set not found")
	ErrAdSetFrozen      = errors.New("ad set is frozen")
	ErrTransientBridge  = errors.New("platform status call failed transiently")
	ErrPermanentBridge  = errors.New("platform rejected status call")
	ErrPlatformRead     = errors.New("platform read failed")
	ErrPlatformNotFound = errors.New("ad set not found on platform")
	ErrAdSetIDsRequired = errors.New("at least one ad set id is required")
	ErrInvalidExecuteAt = errors.New("execution time must be RFC 3339 or YYYY-MM-DDTHH:MM")
	ErrExecuteAtInPast  = errors.New("execution time must be in the future")
	ErrActionNotFound   = errors.New("scheduled action not found")
)

// ValidationError carries the rejected field and value. It matches both
// ErrValidation and the specific cause under errors.Is.
type ValidationError struct {
	Field string
	Value any
	Err   error
}

func NewValidationError(field string, value any, cause error) *ValidationError {
	return &ValidationError{Field: field, Value: value, Err: cause}
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return fmt.Sprintf("%s: %v", ErrValidation.Error(), e.Err)
	}
	return fmt.Sprintf("%s: %s: %v", ErrValidation.Error(), e.Field, e.Err)
}

func (e *ValidationError) Unwrap() error { return e.Err }

func (e *ValidationError) Is(target error) bool { return target == ErrValidation }

// TransientBridgeError reports a status call that exhausted its retries.
type TransientBridgeError struct {
	AdSetID  string
	Attempts int
	Err      error
}

func (e *TransientBridgeError) Error() string {
	return fmt.Sprintf("%s: ad set %s after %d attempts: %v", ErrTransientBridge.Error(), e.AdSetID, e.Attempts, e.Err)
}

func (e *TransientBridgeError) Unwrap() error { return e.Err }

func (e *TransientBridgeError) Is(target error) bool { return target == ErrTransientBridge }
