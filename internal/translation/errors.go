package translation

import "errors"

// Common errors returned by the translation package
var (
	// ErrTranslationFailed is returned when translation fails for any general reason
	ErrTranslationFailed = errors.New("failed to translate text")

	// ErrEmptyText is returned when there is no text to translate
	ErrEmptyText = errors.New("text to translate is empty")

	// ErrInvalidResponse is returned when the translation service response cannot be parsed or is malformed
	ErrInvalidResponse = errors.New("invalid response from translation service")

	// ErrContentBlocked is returned when the translation service blocks the content due to safety filters
	ErrContentBlocked = errors.New("content blocked by translation service safety filters")

	// ErrTransientFailure is returned for temporary errors that might resolve on retry
	ErrTransientFailure = errors.New("transient error during translation")

	// ErrInvalidConfig is returned when the translator configuration is invalid
	ErrInvalidConfig = errors.New("invalid translator configuration")
)
