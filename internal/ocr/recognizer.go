package ocr

import "context"

// TextRecognizer defines the interface for extracting the gazed-at text
// from a frame capture. This interface serves as a boundary between the
// lookup pipeline and external vision services.
type TextRecognizer interface {
	// RecognizeText extracts the most prominent text from the provided
	// image, typically a crop centered on the fixation point.
	//
	// Parameters:
	//   - ctx: Context for the operation, which can be used for cancellation
	//   - image: Encoded image bytes (PNG or JPEG) of the capture region
	//
	// Returns:
	//   - The recognized text, trimmed of surrounding whitespace. An empty
	//     string with a nil error means the capture contains no legible text.
	//   - An error if recognition fails (see errors.go for specific types)
	RecognizeText(ctx context.Context, image []byte) (string, error)
}
