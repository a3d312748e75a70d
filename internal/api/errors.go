package api

import (
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/fennwick/glossa-api/internal/api/shared"
	"github.com/fennwick/glossa-api/internal/domain"
	"github.com/fennwick/glossa-api/internal/lookup"
	"github.com/fennwick/glossa-api/internal/memory"
	"github.com/fennwick/glossa-api/internal/ocr"
	"github.com/fennwick/glossa-api/internal/session"
	"github.com/fennwick/glossa-api/internal/store"
)

// MapErrorToStatusCode maps internal errors to appropriate HTTP status codes
// based on the error type. This prevents leaking internal error types or
// messages to clients.
func MapErrorToStatusCode(err error) int {
	switch {
	// Not found errors
	case errors.Is(err, store.ErrFragmentNotFound),
		errors.Is(err, memory.ErrFragmentNotFound),
		errors.Is(err, session.ErrSessionNotFound):
		return http.StatusNotFound

	// Conflict errors
	case errors.Is(err, store.ErrDuplicate),
		errors.Is(err, memory.ErrTerminalStatus):
		return http.StatusConflict

	// External collaborators failing or timing out
	case errors.Is(err, lookup.ErrOCRUnavailable),
		errors.Is(err, lookup.ErrTranslationUnavailable):
		return http.StatusBadGateway

	// Nothing to translate at the fixation point
	case errors.Is(err, lookup.ErrNoTextDetected),
		errors.Is(err, lookup.ErrLanguageUndetected):
		return http.StatusUnprocessableEntity

	// Bad request errors
	case errors.Is(err, store.ErrInvalidEntity),
		errors.Is(err, domain.ErrValidation),
		errors.Is(err, domain.ErrInvalidID),
		errors.Is(err, domain.ErrInvalidLanguage),
		errors.Is(err, domain.ErrEmptyFragmentOwnerID),
		errors.Is(err, domain.ErrEmptyFragmentSourceText),
		errors.Is(err, domain.ErrEmptyFragmentLang),
		errors.Is(err, domain.ErrInvalidDifficulty),
		errors.Is(err, session.ErrEmptyOwner),
		errors.Is(err, session.ErrEmptyTargetLang),
		errors.Is(err, domain.ErrStabilityRadiusInvalid),
		errors.Is(err, domain.ErrMinDurationInvalid),
		errors.Is(err, domain.ErrMinConfidenceInvalid),
		errors.Is(err, domain.ErrGazeCoordinateInvalid),
		errors.Is(err, domain.ErrGazeConfidenceInvalid),
		errors.Is(err, domain.ErrGazeTimestampZero),
		errors.Is(err, ocr.ErrEmptyImage):
		return http.StatusBadRequest

	// Default: internal server error
	default:
		return http.StatusInternalServerError
	}
}

// GetSafeErrorMessage returns a sanitized, user-friendly error message
// based on the error type. This prevents leaking sensitive internal details.
func GetSafeErrorMessage(err error) string {
	if err == nil {
		return "An unexpected error occurred"
	}

	switch {
	case errors.Is(err, store.ErrFragmentNotFound),
		errors.Is(err, memory.ErrFragmentNotFound):
		return "Fragment not found"

	case errors.Is(err, session.ErrSessionNotFound):
		return "Session not found"

	case errors.Is(err, memory.ErrTerminalStatus):
		return "Fragment status no longer accepts this operation"

	case errors.Is(err, store.ErrDuplicate):
		return "Fragment already exists"

	case errors.Is(err, lookup.ErrNoTextDetected):
		return "No text detected"

	case errors.Is(err, lookup.ErrLanguageUndetected):
		return "Could not detect source language"

	case errors.Is(err, lookup.ErrOCRUnavailable),
		errors.Is(err, lookup.ErrTranslationUnavailable):
		return "Translation unavailable"

	case errors.Is(err, store.ErrInvalidEntity),
		errors.Is(err, domain.ErrValidation):
		return "Invalid entity data"

	case errors.Is(err, domain.ErrInvalidID):
		return "Invalid ID format"

	case errors.Is(err, domain.ErrInvalidLanguage):
		return "Invalid language code"

	case errors.Is(err, session.ErrEmptyOwner),
		errors.Is(err, session.ErrEmptyTargetLang):
		return "Invalid session request"

	case errors.Is(err, domain.ErrStabilityRadiusInvalid),
		errors.Is(err, domain.ErrMinDurationInvalid),
		errors.Is(err, domain.ErrMinConfidenceInvalid):
		return "Invalid fixation configuration"

	case errors.Is(err, domain.ErrGazeCoordinateInvalid),
		errors.Is(err, domain.ErrGazeConfidenceInvalid),
		errors.Is(err, domain.ErrGazeTimestampZero):
		return "Invalid gaze sample"

	case errors.Is(err, ocr.ErrEmptyImage):
		return "Capture image is empty"

	default:
		return "An unexpected error occurred"
	}
}

// HandleAPIError maps an internal error to a status code and safe message
// and writes the response, logging the full (redacted) error. defaultMsg
// overrides the derived message for 5xx responses so handlers can give
// operation-specific wording.
func HandleAPIError(w http.ResponseWriter, r *http.Request, err error, defaultMsg string) {
	statusCode := MapErrorToStatusCode(err)
	safeMessage := GetSafeErrorMessage(err)

	if statusCode == http.StatusInternalServerError && defaultMsg != "" {
		safeMessage = defaultMsg
	}

	shared.RespondWithErrorAndLog(w, r, statusCode, safeMessage, err)
}

// SanitizeValidationError removes sensitive details from validation errors
// and returns a user-friendly message.
func SanitizeValidationError(err error) string {
	errMsg := err.Error()

	// Validator error strings look like:
	// "Key: 'CheckMemoryRequest.SourceText' Error:Field validation for
	// 'SourceText' failed on the 'required' tag"
	if strings.Contains(errMsg, "Field validation") {
		parts := strings.Split(errMsg, "Error:")
		if len(parts) >= 2 {
			fieldParts := strings.Split(parts[1], "'")
			if len(fieldParts) >= 3 {
				field := fieldParts[1]
				var tag string
				if len(fieldParts) >= 5 {
					tag = fieldParts[3]
				}

				if tag != "" {
					return fmt.Sprintf("Invalid %s: %s", field, getValidationTagMessage(tag))
				}
				return fmt.Sprintf("Invalid %s", field)
			}
		}
	}

	return "Validation error"
}

// getValidationTagMessage maps validation tags to user-friendly error messages
func getValidationTagMessage(tag string) string {
	switch tag {
	case "required":
		return "required field"
	case "min":
		return "too short"
	case "max":
		return "too long"
	case "oneof":
		return "invalid value"
	case "gt", "gte":
		return "value too small"
	case "lt", "lte":
		return "value too large"
	default:
		return "validation failed"
	}
}
