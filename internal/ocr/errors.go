package ocr

import "errors"

// Common errors returned by the ocr package
var (
	// ErrRecognitionFailed is returned when text extraction fails for any general reason
	ErrRecognitionFailed = errors.New("failed to recognize text in capture")

	// ErrEmptyImage is returned when the provided capture contains no data
	ErrEmptyImage = errors.New("capture image is empty")

	// ErrInvalidResponse is returned when the vision service response cannot be parsed or is malformed
	ErrInvalidResponse = errors.New("invalid response from vision service")

	// ErrContentBlocked is returned when the vision service blocks the content due to safety filters
	ErrContentBlocked = errors.New("content blocked by vision service safety filters")

	// ErrTransientFailure is returned for temporary errors that might resolve on retry
	ErrTransientFailure = errors.New("transient error during text recognition")

	// ErrInvalidConfig is returned when the recognizer configuration is invalid
	ErrInvalidConfig = errors.New("invalid recognizer configuration")
)
