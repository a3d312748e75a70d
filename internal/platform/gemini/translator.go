package gemini

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"google.golang.org/genai"

	"github.com/fennwick/glossa-api/internal/config"
	"github.com/fennwick/glossa-api/internal/translation"
)

// Translator implements the translation.Translator interface using Google's
// Gemini API.
type Translator struct {
	logger *slog.Logger
	client *genai.Client
	model  string
	policy retryPolicy
}

// NewTranslator creates a new Gemini-backed translator.
//
// Parameters:
//   - ctx: Context for client initialization
//   - logger: A structured logger for operation logging
//   - cfg: Gemini configuration containing API key, model name, and retry settings
//
// Returns:
//   - A properly initialized Translator or an error wrapping
//     translation.ErrInvalidConfig if initialization fails
func NewTranslator(ctx context.Context, logger *slog.Logger, cfg config.GeminiConfig) (*Translator, error) {
	if logger == nil {
		return nil, errors.New("logger cannot be nil")
	}
	if cfg.TranslationModel == "" {
		return nil, fmt.Errorf("%w: translation model name cannot be empty", translation.ErrInvalidConfig)
	}

	client, err := newClient(ctx, cfg.APIKey, translation.ErrInvalidConfig)
	if err != nil {
		return nil, err
	}

	return &Translator{
		logger: logger.With(slog.String("component", "gemini_translator")),
		client: client,
		model:  cfg.TranslationModel,
		policy: policyFromConfig(cfg),
	}, nil
}

// Ensure Translator implements translation.Translator interface
var _ translation.Translator = (*Translator)(nil)

// Translate renders text from sourceLang into targetLang. Both language
// arguments are ISO 639-1 codes.
func (t *Translator) Translate(ctx context.Context, text, sourceLang, targetLang string) (string, error) {
	if strings.TrimSpace(text) == "" {
		return "", translation.ErrEmptyText
	}

	t.logger.DebugContext(ctx, "translating text",
		slog.String("source_lang", sourceLang),
		slog.String("target_lang", targetLang),
		slog.Int("text_length", len(text)),
		slog.String("model", t.model))

	prompt := fmt.Sprintf(
		"Translate the following text from %s to %s. "+
			"Respond with only the translation, with no quotes or commentary.\n\n%s",
		sourceLang, targetLang, text)

	contents := []*genai.Content{
		genai.NewContentFromParts([]*genai.Part{
			genai.NewPartFromText(prompt),
		}, genai.RoleUser),
	}

	taxonomy := errorTaxonomy{
		transient: translation.ErrTransientFailure,
		blocked:   translation.ErrContentBlocked,
		invalid:   translation.ErrInvalidResponse,
	}

	result, err := generateTextWithRetry(ctx, t.logger, t.policy, taxonomy,
		func(ctx context.Context) (*genai.GenerateContentResponse, error) {
			return t.client.Models.GenerateContent(ctx, t.model, contents, generationConfig())
		})
	if err != nil {
		return "", err
	}

	result = strings.TrimSpace(result)
	if result == "" {
		return "", fmt.Errorf("%w: model returned an empty translation", translation.ErrInvalidResponse)
	}

	t.logger.DebugContext(ctx, "translation complete",
		slog.Int("result_length", len(result)))
	return result, nil
}
