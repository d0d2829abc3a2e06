package errors

import (
	"errors"
	"fmt"
	"time"
)

var (
	ErrStaleRead      = errors.New("snapshot pull failed; showing last known data")
	ErrWriteRejected  = errors.New("store rejected the write")
	ErrActorRequired  = errors.New("actor is required")
	ErrNoSnapshot     = errors.New("no snapshot pulled yet")
	ErrUnknownAdSet   = errors.New("ad set not in snapshot")
	ErrInvalidValue   = errors.New("invalid field value")
	ErrStoreRejected  = errors.New("store returned an error")
	ErrStoreTransport = errors.New("store unreachable")
)

// StaleReadError reports a failed pull. The session keeps serving the
// snapshot taken at LastSuccess.
type StaleReadError struct {
	LastSuccess time.Time
	Failures    int
	Err         error
}

func (e *StaleReadError) Error() string {
	return fmt.Sprintf("%s (failures=%d, last success %s): %v",
		ErrStaleRead.Error(), e.Failures, e.LastSuccess.Format(time.RFC3339), e.Err)
}

func (e *StaleReadError) Unwrap() error { return e.Err }

func (e *StaleReadError) Is(target error) bool { return target == ErrStaleRead }

// StoreError is a non-2xx answer from the settings store.
type StoreError struct {
	Status  int
	Code    string
	Message string
}

func (e *StoreError) Error() string {
	return fmt.Sprintf("store error %d %s: %s", e.Status, e.Code, e.Message)
}

func (e *StoreError) Unwrap() error { return ErrStoreRejected }
