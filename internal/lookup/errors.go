package lookup

import (
	"errors"
	"fmt"
)

// Common error types for lookup operations
var (
	// ErrNoTextDetected indicates that the capture around the fixation point
	// contains no legible text. The fixation is consumed; nothing is stored.
	ErrNoTextDetected = errors.New("no text detected at fixation point")

	// ErrLanguageUndetected indicates that the source language was requested
	// as "auto" but the recognized text carried no usable signal and no
	// fallback language was configured.
	ErrLanguageUndetected = errors.New("could not detect source language")

	// ErrOCRUnavailable indicates that the recognition call failed or timed
	// out. Non-fatal: the fixation window is reset and the user can retry by
	// re-fixating.
	ErrOCRUnavailable = errors.New("text recognition unavailable")

	// ErrTranslationUnavailable indicates that the translation call failed or
	// timed out. Non-fatal and side-effect-free: no fragment is created or
	// mutated on this path.
	ErrTranslationUnavailable = errors.New("translation unavailable")
)

// ServiceError wraps errors from the lookup service with operation context.
type ServiceError struct {
	Operation string
	Message   string
	Err       error
}

// Error implements the error interface for ServiceError.
func (e *ServiceError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("lookup %s failed: %s: %v", e.Operation, e.Message, e.Err)
	}
	return fmt.Sprintf("lookup %s failed: %s", e.Operation, e.Message)
}

// Unwrap returns the wrapped error to support errors.Is/errors.As.
func (e *ServiceError) Unwrap() error {
	return e.Err
}

// NewServiceError creates a new ServiceError.
func NewServiceError(operation, message string, err error) *ServiceError {
	return &ServiceError{
		Operation: operation,
		Message:   message,
		Err:       err,
	}
}
