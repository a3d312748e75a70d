package translation

import "context"

// Translator defines the interface for translating a text fragment from
// one language to another. Implementations sit behind this boundary so the
// lookup pipeline never couples to a specific translation provider.
type Translator interface {
	// Translate renders text from sourceLang into targetLang.
	//
	// Parameters:
	//   - ctx: Context for the operation, which can be used for cancellation
	//   - text: The source text to translate
	//   - sourceLang: ISO 639-1 code of the source language
	//   - targetLang: ISO 639-1 code of the target language
	//
	// Returns:
	//   - The translated text
	//   - An error if translation fails (see errors.go for specific types)
	Translate(ctx context.Context, text, sourceLang, targetLang string) (string, error)
}
