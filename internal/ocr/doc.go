// Package ocr defines the boundary for extracting text from frame captures.
// It abstracts the details of the vision service (Gemini), allowing the
// lookup pipeline to recognize gazed-at text without coupling to a specific
// external provider.
package ocr
