package gemini

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fennwick/glossa-api/internal/config"
	"github.com/fennwick/glossa-api/internal/ocr"
)

func validGeminiConfig() config.GeminiConfig {
	return config.GeminiConfig{
		APIKey:           "test-api-key",
		OCRModel:         "gemini-2.0-flash",
		TranslationModel: "gemini-2.0-flash",
		MaxRetries:       2,
		RetryDelay:       time.Millisecond,
	}
}

func TestNewRecognizer(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	t.Run("rejects_nil_logger", func(t *testing.T) {
		t.Parallel()
		_, err := NewRecognizer(ctx, nil, validGeminiConfig())
		require.Error(t, err)
		assert.Contains(t, err.Error(), "logger cannot be nil")
	})

	t.Run("rejects_empty_model", func(t *testing.T) {
		t.Parallel()
		cfg := validGeminiConfig()
		cfg.OCRModel = ""
		_, err := NewRecognizer(ctx, testLogger(), cfg)
		require.Error(t, err)
		assert.ErrorIs(t, err, ocr.ErrInvalidConfig)
	})

	t.Run("rejects_empty_api_key", func(t *testing.T) {
		t.Parallel()
		cfg := validGeminiConfig()
		cfg.APIKey = ""
		_, err := NewRecognizer(ctx, testLogger(), cfg)
		require.Error(t, err)
		assert.ErrorIs(t, err, ocr.ErrInvalidConfig)
	})
}

func TestRecognizeTextInputValidation(t *testing.T) {
	t.Parallel()

	// Input guards run before the client is touched, so a bare struct is
	// enough here.
	r := &Recognizer{
		logger: testLogger(),
		model:  "gemini-2.0-flash",
		policy: retryPolicy{maxRetries: 0, baseDelay: time.Millisecond},
	}

	t.Run("rejects_empty_image", func(t *testing.T) {
		t.Parallel()
		_, err := r.RecognizeText(context.Background(), nil)
		assert.ErrorIs(t, err, ocr.ErrEmptyImage)
	})

	t.Run("rejects_non_image_payloads", func(t *testing.T) {
		t.Parallel()
		_, err := r.RecognizeText(context.Background(), []byte("plain text, not pixels"))
		require.Error(t, err)
		assert.ErrorIs(t, err, ocr.ErrRecognitionFailed)
		assert.Contains(t, err.Error(), "text/plain")
	})
}
