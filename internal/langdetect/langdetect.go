// Package langdetect identifies the language of recognized text so lookups
// with an "auto" source language can resolve to a concrete ISO 639-1 code.
package langdetect

import (
	"strings"

	"github.com/abadojack/whatlanggo"
)

// Auto is the source-language value that requests detection instead of
// naming a concrete language.
const Auto = "auto"

// Detector guesses the language of a text.
type Detector interface {
	// Detect returns the ISO 639-1 code of the text's most likely language
	// and whether the classification is reliable. An empty code means the
	// text carries no usable signal (no letters, unknown script).
	Detect(text string) (code string, reliable bool)
}

// WhatlangDetector implements Detector on the whatlanggo trigram classifier.
// It is stateless and safe for concurrent use.
type WhatlangDetector struct{}

// NewWhatlangDetector creates a trigram-based language detector.
func NewWhatlangDetector() *WhatlangDetector {
	return &WhatlangDetector{}
}

// Ensure WhatlangDetector implements Detector interface
var _ Detector = (*WhatlangDetector)(nil)

// Detect classifies text. Languages without an ISO 639-1 code report as
// undetected rather than leaking three-letter codes into fragment identity.
func (d *WhatlangDetector) Detect(text string) (string, bool) {
	text = strings.TrimSpace(text)
	if text == "" {
		return "", false
	}

	info := whatlanggo.Detect(text)
	code := info.Lang.Iso6391()
	if code == "" {
		return "", false
	}
	return code, info.IsReliable()
}
