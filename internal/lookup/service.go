// Package lookup coordinates one confirmed fixation from trigger to result:
// extract the gazed-at text, consult the owner's memory, and either serve the
// cached translation or fetch a fresh one and remember it.
package lookup

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/fennwick/glossa-api/internal/domain"
	"github.com/fennwick/glossa-api/internal/langdetect"
	"github.com/fennwick/glossa-api/internal/memory"
	"github.com/fennwick/glossa-api/internal/metrics"
	"github.com/fennwick/glossa-api/internal/ocr"
	"github.com/fennwick/glossa-api/internal/platform/logger"
	"github.com/fennwick/glossa-api/internal/translation"
)

// Default per-stage timeouts applied when the config supplies none. OCR runs
// on image payloads and gets the longer bound.
const (
	DefaultOCRTimeout         = 15 * time.Second
	DefaultTranslationTimeout = 10 * time.Second
)

// Resetter clears a fixation window once its trigger has been fully handled,
// so the user can re-trigger by re-fixating the same spot.
type Resetter interface {
	Reset()
}

// Request carries everything the orchestrator needs to resolve one trigger.
type Request struct {
	// OwnerID identifies whose memory gates this lookup.
	OwnerID uuid.UUID

	// Trigger is the confirmed fixation event.
	Trigger domain.TriggerEvent

	// Screenshot is the encoded capture region around the fixation point.
	Screenshot []byte

	// SourceLang is the expected language of the gazed-at text, or
	// langdetect.Auto to detect it from the recognized text.
	SourceLang string

	// FallbackSourceLang is used when detection is requested but the text
	// carries no reliable signal. Empty means detection failure is an error.
	FallbackSourceLang string

	// TargetLang is the language to translate into.
	TargetLang string
}

// Result is the payload delivered back to the session transport.
type Result struct {
	Original       string        `json:"original"`
	Translation    string        `json:"translation"`
	SourceLang     string        `json:"source_lang"`
	TargetLang     string        `json:"target_lang"`
	FromCache      bool          `json:"from_cache"`
	FragmentID     uuid.UUID     `json:"fragment_id"`
	Retention      float64       `json:"retention"`
	ProcessingTime time.Duration `json:"processing_time_ms"`
}

// Config holds the per-stage timeouts applied to external calls.
type Config struct {
	OCRTimeout         time.Duration
	TranslationTimeout time.Duration
}

// Service orchestrates fixation handling.
type Service struct {
	recognizer ocr.TextRecognizer
	translator translation.Translator
	memory     memory.MemoryService
	langs      langdetect.Detector
	cfg        Config
	logger     *slog.Logger
}

// NewService creates a lookup service.
//
// langs may be nil when language auto-detection is not needed; a request
// asking for detection then fails with ErrLanguageUndetected.
func NewService(
	recognizer ocr.TextRecognizer,
	translator translation.Translator,
	memorySvc memory.MemoryService,
	langs langdetect.Detector,
	cfg Config,
	log *slog.Logger,
) (*Service, error) {
	if recognizer == nil {
		return nil, errors.New("recognizer cannot be nil")
	}
	if translator == nil {
		return nil, errors.New("translator cannot be nil")
	}
	if memorySvc == nil {
		return nil, errors.New("memory service cannot be nil")
	}
	if log == nil {
		log = slog.Default()
	}

	if cfg.OCRTimeout <= 0 {
		cfg.OCRTimeout = DefaultOCRTimeout
	}
	if cfg.TranslationTimeout <= 0 {
		cfg.TranslationTimeout = DefaultTranslationTimeout
	}

	return &Service{
		recognizer: recognizer,
		translator: translator,
		memory:     memorySvc,
		langs:      langs,
		cfg:        cfg,
		logger:     log.With(slog.String("component", "lookup_service")),
	}, nil
}

// HandleFixation resolves one confirmed fixation into a translation result.
//
// The fixation window is reset on every path, success or failure, so a
// re-fixation on the same spot can trigger again. Failure paths leave no
// fragment created or mutated; retrying is free.
func (s *Service) HandleFixation(
	ctx context.Context,
	req Request,
	fixation Resetter,
) (result *Result, err error) {
	log := logger.FromContextOrDefault(ctx, s.logger)
	started := time.Now()

	defer func() {
		if fixation != nil {
			fixation.Reset()
		}
		metrics.LookupLatency.Observe(time.Since(started).Seconds())
		metrics.LookupResults.WithLabelValues(outcomeLabel(result, err)).Inc()
	}()

	if req.OwnerID == uuid.Nil {
		return nil, NewServiceError("handle_fixation", "invalid owner", domain.ErrInvalidID)
	}
	if req.TargetLang == "" {
		return nil, NewServiceError("handle_fixation", "missing target language", domain.ErrInvalidLanguage)
	}
	if len(req.Screenshot) == 0 {
		return nil, NewServiceError("handle_fixation", "empty capture", ocr.ErrEmptyImage)
	}

	text, err := s.recognize(ctx, req.Screenshot)
	if err != nil {
		return nil, err
	}
	if text == "" {
		log.Debug("no text at fixation point",
			slog.String("owner_id", req.OwnerID.String()),
			slog.Float64("x", req.Trigger.X),
			slog.Float64("y", req.Trigger.Y))
		return nil, ErrNoTextDetected
	}

	sourceLang, err := s.resolveSourceLang(req, text, log)
	if err != nil {
		return nil, err
	}

	identity := domain.FragmentIdentity{
		OwnerID:    req.OwnerID,
		SourceText: text,
		SourceLang: sourceLang,
		TargetLang: req.TargetLang,
	}

	check, err := s.memory.CheckMemory(ctx, identity)
	if err != nil {
		return nil, NewServiceError("handle_fixation", "memory check failed", err)
	}

	if !check.ShouldTranslate {
		log.Debug("memory hit, serving cached translation",
			slog.String("fragment_id", check.Fragment.ID.String()),
			slog.Float64("retention", check.Retention))
		return &Result{
			Original:       text,
			Translation:    check.CachedTranslation,
			SourceLang:     sourceLang,
			TargetLang:     req.TargetLang,
			FromCache:      true,
			FragmentID:     check.Fragment.ID,
			Retention:      check.Retention,
			ProcessingTime: time.Since(started),
		}, nil
	}

	translated, err := s.translate(ctx, text, sourceLang, req.TargetLang)
	if err != nil {
		return nil, err
	}

	fragment, created, err := s.memory.CreateOrTouch(ctx, identity, translated, nil, nil)
	if err != nil {
		return nil, NewServiceError("handle_fixation", "failed to remember translation", err)
	}
	if created {
		metrics.FragmentsCreated.Inc()
	}

	log.Info("lookup translated",
		slog.String("owner_id", req.OwnerID.String()),
		slog.String("fragment_id", fragment.ID.String()),
		slog.String("source_lang", sourceLang),
		slog.String("target_lang", req.TargetLang),
		slog.Bool("created", created),
		slog.Duration("elapsed", time.Since(started)))

	return &Result{
		Original:       text,
		Translation:    fragment.TranslatedText,
		SourceLang:     sourceLang,
		TargetLang:     req.TargetLang,
		FromCache:      false,
		FragmentID:     fragment.ID,
		Retention:      check.Retention,
		ProcessingTime: time.Since(started),
	}, nil
}

// recognize runs the OCR call under its timeout.
func (s *Service) recognize(ctx context.Context, image []byte) (string, error) {
	callCtx, cancel := context.WithTimeout(ctx, s.cfg.OCRTimeout)
	defer cancel()

	started := time.Now()
	text, err := s.recognizer.RecognizeText(callCtx, image)
	observeExternal("ocr", started, err)
	if err != nil {
		s.logger.Warn("text recognition failed",
			slog.String("error", err.Error()),
			slog.Duration("elapsed", time.Since(started)))
		return "", fmt.Errorf("%w: %w", ErrOCRUnavailable, err)
	}
	return text, nil
}

// translate runs the translation call under its timeout.
func (s *Service) translate(ctx context.Context, text, sourceLang, targetLang string) (string, error) {
	callCtx, cancel := context.WithTimeout(ctx, s.cfg.TranslationTimeout)
	defer cancel()

	started := time.Now()
	translated, err := s.translator.Translate(callCtx, text, sourceLang, targetLang)
	observeExternal("translate", started, err)
	if err != nil {
		s.logger.Warn("translation failed",
			slog.String("error", err.Error()),
			slog.String("source_lang", sourceLang),
			slog.String("target_lang", targetLang),
			slog.Duration("elapsed", time.Since(started)))
		return "", fmt.Errorf("%w: %w", ErrTranslationUnavailable, err)
	}
	return translated, nil
}

// resolveSourceLang turns an "auto" source language into a concrete code
// using the recognized text, falling back to the request's default.
func (s *Service) resolveSourceLang(req Request, text string, log *slog.Logger) (string, error) {
	if req.SourceLang != "" && req.SourceLang != langdetect.Auto {
		return req.SourceLang, nil
	}

	if s.langs != nil {
		code, reliable := s.langs.Detect(text)
		if code != "" && reliable {
			return code, nil
		}
		log.Debug("unreliable language detection",
			slog.String("detected", code),
			slog.String("fallback", req.FallbackSourceLang))
	}

	if req.FallbackSourceLang != "" {
		return req.FallbackSourceLang, nil
	}
	return "", ErrLanguageUndetected
}

func observeExternal(stage string, started time.Time, err error) {
	result := "ok"
	if err != nil {
		result = "error"
	}
	metrics.ExternalCallLatency.WithLabelValues(stage, result).Observe(time.Since(started).Seconds())
}

func outcomeLabel(result *Result, err error) string {
	switch {
	case err == nil && result != nil && result.FromCache:
		return "cache_hit"
	case err == nil:
		return "translated"
	case errors.Is(err, ErrNoTextDetected):
		return "no_text"
	default:
		return "error"
	}
}
