package gemini

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"

	"google.golang.org/genai"

	"github.com/fennwick/glossa-api/internal/config"
	"github.com/fennwick/glossa-api/internal/ocr"
)

// recognizePrompt instructs the model to behave like an OCR engine for the
// capture crop around the fixation point.
const recognizePrompt = `Extract the most prominent text in this image. ` +
	`The image is a small crop centered on the text a person is looking at. ` +
	`Respond with only that text, exactly as written, with no quotes, ` +
	`commentary, or translation. If the image contains no legible text, ` +
	`respond with an empty message.`

// Recognizer implements the ocr.TextRecognizer interface using Google's
// Gemini API with a multimodal prompt.
type Recognizer struct {
	logger *slog.Logger
	client *genai.Client
	model  string
	policy retryPolicy
}

// NewRecognizer creates a new Gemini-backed text recognizer.
//
// Parameters:
//   - ctx: Context for client initialization
//   - logger: A structured logger for operation logging
//   - cfg: Gemini configuration containing API key, model name, and retry settings
//
// Returns:
//   - A properly initialized Recognizer or an error wrapping
//     ocr.ErrInvalidConfig if initialization fails
func NewRecognizer(ctx context.Context, logger *slog.Logger, cfg config.GeminiConfig) (*Recognizer, error) {
	if logger == nil {
		return nil, errors.New("logger cannot be nil")
	}
	if cfg.OCRModel == "" {
		return nil, fmt.Errorf("%w: OCR model name cannot be empty", ocr.ErrInvalidConfig)
	}

	client, err := newClient(ctx, cfg.APIKey, ocr.ErrInvalidConfig)
	if err != nil {
		return nil, err
	}

	return &Recognizer{
		logger: logger.With(slog.String("component", "gemini_recognizer")),
		client: client,
		model:  cfg.OCRModel,
		policy: policyFromConfig(cfg),
	}, nil
}

// Ensure Recognizer implements ocr.TextRecognizer interface
var _ ocr.TextRecognizer = (*Recognizer)(nil)

// RecognizeText extracts the most prominent text from the capture image.
// An empty string with a nil error means the capture has no legible text.
func (r *Recognizer) RecognizeText(ctx context.Context, image []byte) (string, error) {
	if len(image) == 0 {
		return "", ocr.ErrEmptyImage
	}

	mimeType := http.DetectContentType(image)
	if !strings.HasPrefix(mimeType, "image/") {
		return "", fmt.Errorf("%w: capture has unsupported content type %s",
			ocr.ErrRecognitionFailed, mimeType)
	}

	r.logger.DebugContext(ctx, "recognizing text in capture",
		slog.Int("image_bytes", len(image)),
		slog.String("mime_type", mimeType),
		slog.String("model", r.model))

	contents := []*genai.Content{
		genai.NewContentFromParts([]*genai.Part{
			genai.NewPartFromBytes(image, mimeType),
			genai.NewPartFromText(recognizePrompt),
		}, genai.RoleUser),
	}

	taxonomy := errorTaxonomy{
		transient: ocr.ErrTransientFailure,
		blocked:   ocr.ErrContentBlocked,
		invalid:   ocr.ErrInvalidResponse,
	}

	text, err := generateTextWithRetry(ctx, r.logger, r.policy, taxonomy,
		func(ctx context.Context) (*genai.GenerateContentResponse, error) {
			return r.client.Models.GenerateContent(ctx, r.model, contents, generationConfig())
		})
	if err != nil {
		return "", err
	}

	text = strings.TrimSpace(text)
	r.logger.DebugContext(ctx, "recognition complete",
		slog.Int("text_length", len(text)))
	return text, nil
}
