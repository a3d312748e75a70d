package gemini

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"math/rand"
	"strings"
	"time"

	"google.golang.org/genai"

	"github.com/fennwick/glossa-api/internal/config"
)

// Fallbacks applied when the retry configuration is unset or invalid.
const (
	defaultMaxRetries = 3
	defaultRetryDelay = 2 * time.Second
)

// generateFunc performs a single model call.
type generateFunc func(ctx context.Context) (*genai.GenerateContentResponse, error)

// errorTaxonomy carries the sentinel errors of the package owning the
// call, so shared plumbing can wrap failures in ocr.* or translation.*
// errors without importing either.
type errorTaxonomy struct {
	transient error
	blocked   error
	invalid   error
}

// retryPolicy bounds retries for transient API failures.
type retryPolicy struct {
	maxRetries int
	baseDelay  time.Duration
}

func policyFromConfig(cfg config.GeminiConfig) retryPolicy {
	return retryPolicy{
		maxRetries: cfg.MaxRetries,
		baseDelay:  cfg.RetryDelay,
	}
}

// newClient initializes the Gemini API client. Configuration errors are
// wrapped in the caller's invalid-config sentinel.
func newClient(ctx context.Context, apiKey string, invalidConfig error) (*genai.Client, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("%w: gemini API key cannot be empty", invalidConfig)
	}

	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("%w: failed to create Gemini client: %v", invalidConfig, err)
	}

	return client, nil
}

// generationConfig returns the shared low-temperature configuration. Both
// recognition and translation want reproducible output, not creativity.
func generationConfig() *genai.GenerateContentConfig {
	return &genai.GenerateContentConfig{
		Temperature: genai.Ptr[float32](0.1),
	}
}

// generateTextWithRetry makes a model call with exponential backoff retry
// logic.
//
// It attempts the call up to maxRetries+1 times, backing off with jitter
// between attempts for transient errors. Malformed or safety-blocked
// responses are permanent failures and are returned immediately without
// retrying.
//
// Parameters:
//   - ctx: Context for the operation, which can be used for cancellation
//   - log: Logger for per-attempt diagnostics
//   - policy: Retry bounds; zero values fall back to package defaults
//   - taxonomy: Sentinel errors of the calling package
//   - call: The model call to execute
//
// Returns:
//   - The concatenated text of the first response candidate
//   - An error wrapping the appropriate taxonomy sentinel if all retries
//     fail or a permanent error occurs
func generateTextWithRetry(
	ctx context.Context,
	log *slog.Logger,
	policy retryPolicy,
	taxonomy errorTaxonomy,
	call generateFunc,
) (string, error) {
	maxRetries := policy.maxRetries
	if maxRetries < 0 {
		log.WarnContext(ctx, "invalid max retries value, using default",
			slog.Int("max_retries", defaultMaxRetries))
		maxRetries = defaultMaxRetries
	}

	baseDelay := policy.baseDelay
	if baseDelay <= 0 {
		baseDelay = defaultRetryDelay
	}

	rng := rand.New(rand.NewSource(time.Now().UnixNano()))

	for attempt := 0; ; attempt++ {
		attemptNum := attempt + 1
		log.DebugContext(ctx, "calling Gemini API",
			slog.Int("attempt", attemptNum),
			slog.Int("max_attempts", maxRetries+1))

		resp, err := call(ctx)
		if err == nil {
			text, parseErr := textFromResponse(resp, taxonomy)
			if parseErr != nil {
				// Malformed or blocked responses never improve on retry.
				log.WarnContext(ctx, "Gemini response rejected",
					slog.String("error", parseErr.Error()))
				return "", parseErr
			}
			return text, nil
		}

		log.ErrorContext(ctx, "Gemini API call failed",
			slog.Int("attempt", attemptNum),
			slog.String("error", err.Error()))

		if attempt >= maxRetries {
			return "", fmt.Errorf("%w: exceeded maximum retry attempts (%d): %v",
				taxonomy.transient, maxRetries, err)
		}

		// Exponential backoff with jitter:
		// delay = baseDelay * 2^attempt * (0.5 + rand(0, 0.5))
		backoff := float64(baseDelay) * math.Pow(2, float64(attempt))
		jitter := 0.5 + rng.Float64()*0.5
		delay := time.Duration(backoff * jitter)

		log.DebugContext(ctx, "retrying after delay",
			slog.Int("attempt", attemptNum),
			slog.Duration("delay", delay))

		select {
		case <-time.After(delay):
		case <-ctx.Done():
			return "", fmt.Errorf("%w: %v", taxonomy.transient, ctx.Err())
		}
	}
}

// textFromResponse validates a Gemini response and extracts the text of
// its first candidate. An empty text with a nil error is a legitimate
// outcome; callers decide whether emptiness is an error.
func textFromResponse(
	resp *genai.GenerateContentResponse,
	taxonomy errorTaxonomy,
) (string, error) {
	if resp == nil {
		return "", fmt.Errorf("%w: nil response", taxonomy.invalid)
	}
	if len(resp.Candidates) == 0 {
		return "", fmt.Errorf("%w: no content generated", taxonomy.invalid)
	}

	candidate := resp.Candidates[0]
	if candidate.FinishReason == genai.FinishReasonSafety {
		return "", fmt.Errorf("%w: generation stopped by safety filters", taxonomy.blocked)
	}
	if candidate.Content == nil {
		return "", fmt.Errorf("%w: empty content in response", taxonomy.invalid)
	}

	var sb strings.Builder
	for _, part := range candidate.Content.Parts {
		if part != nil {
			sb.WriteString(part.Text)
		}
	}
	return sb.String(), nil
}
