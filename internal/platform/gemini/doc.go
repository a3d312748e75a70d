// Package gemini provides Gemini-backed implementations of the
// ocr.TextRecognizer and translation.Translator interfaces.
//
// This package is an infrastructure adapter: it translates between the
// application's boundaries and Google's Gemini API without exposing the
// external service to the core application. Both adapters share one retry
// layer that applies exponential backoff with jitter to transient API
// failures, honors context cancellation, and maps malformed or
// safety-blocked responses to the owning package's error taxonomy.
package gemini
