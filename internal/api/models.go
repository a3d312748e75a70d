package api

import (
	"time"

	"github.com/fennwick/glossa-api/internal/domain"
	"github.com/fennwick/glossa-api/internal/lookup"
	"github.com/fennwick/glossa-api/internal/memory"
)

// CheckMemoryRequest is the request body for a memory check.
type CheckMemoryRequest struct {
	SourceText string `json:"source_text" validate:"required"`
	SourceLang string `json:"source_lang" validate:"required"`
	TargetLang string `json:"target_lang" validate:"required"`
}

// CreateFragmentRequest is the request body for creating (or re-touching) a
// fragment directly, the way the lookup pipeline does after a translation.
type CreateFragmentRequest struct {
	SourceText     string   `json:"source_text"     validate:"required"`
	TranslatedText string   `json:"translated_text" validate:"required"`
	SourceLang     string   `json:"source_lang"     validate:"required"`
	TargetLang     string   `json:"target_lang"     validate:"required"`
	Difficulty     *float64 `json:"difficulty,omitempty" validate:"omitempty,gte=1,lte=5"`
	Tags           []string `json:"tags,omitempty"`
}

// ReinforceRequest is the request body for recording one review outcome.
type ReinforceRequest struct {
	Successful     bool     `json:"successful"`
	ResponseTimeMs *int64   `json:"response_time_ms,omitempty" validate:"omitempty,gte=0"`
	Difficulty     *float64 `json:"difficulty,omitempty"       validate:"omitempty,gte=1,lte=5"`
}

// BulkStatusRequest is the request body for bulk exclude/master operations.
type BulkStatusRequest struct {
	FragmentIDs []string `json:"fragment_ids" validate:"required,min=1,dive,uuid"`
}

// BulkStatusResponse reports how many fragments a bulk operation updated.
type BulkStatusResponse struct {
	Updated int64 `json:"updated"`
}

// OpenSessionRequest is the request body for opening a gaze session.
type OpenSessionRequest struct {
	OwnerID    string                 `json:"owner_id" validate:"required,uuid"`
	SourceLang string                 `json:"source_lang,omitempty"`
	TargetLang string                 `json:"target_lang,omitempty"`
	Fixation   *FixationConfigRequest `json:"fixation,omitempty"`
}

// FixationConfigRequest carries fixation thresholds over the wire, with the
// dwell time in milliseconds.
type FixationConfigRequest struct {
	StabilityRadiusPx float64 `json:"stability_radius_px" validate:"required,gt=0"`
	MinDurationMs     int64   `json:"min_duration_ms"     validate:"required,gt=0"`
	MinConfidence     float64 `json:"min_confidence"      validate:"gte=0,lte=1"`
}

// ToDomain converts the wire config to the domain type.
func (r FixationConfigRequest) ToDomain() domain.FixationConfig {
	return domain.FixationConfig{
		StabilityRadiusPx: r.StabilityRadiusPx,
		MinDuration:       time.Duration(r.MinDurationMs) * time.Millisecond,
		MinConfidence:     r.MinConfidence,
	}
}

// SessionResponse describes an open session.
type SessionResponse struct {
	ID         string                `json:"id"`
	OwnerID    string                `json:"owner_id"`
	SourceLang string                `json:"source_lang"`
	TargetLang string                `json:"target_lang"`
	Fixation   FixationConfigResponse `json:"fixation"`
	CreatedAt  time.Time             `json:"created_at"`
}

// FixationConfigResponse mirrors FixationConfigRequest on responses.
type FixationConfigResponse struct {
	StabilityRadiusPx float64 `json:"stability_radius_px"`
	MinDurationMs     int64   `json:"min_duration_ms"`
	MinConfidence     float64 `json:"min_confidence"`
}

// RetentionResponse is the wire form of a fragment's retention record.
type RetentionResponse struct {
	CurrentStrength          float64    `json:"current_strength"`
	DifficultyLevel          float64    `json:"difficulty_level"`
	ReinforceCount           int        `json:"reinforce_count"`
	SuccessfulReinforceCount int        `json:"successful_reinforce_count"`
	LastReinforcedAt         time.Time  `json:"last_reinforced_at"`
	NextDueAt                *time.Time `json:"next_due_at,omitempty"`
}

// FragmentResponse is the wire form of a memory fragment.
type FragmentResponse struct {
	ID             string            `json:"id"`
	OwnerID        string            `json:"owner_id"`
	SourceText     string            `json:"source_text"`
	TranslatedText string            `json:"translated_text"`
	SourceLang     string            `json:"source_lang"`
	TargetLang     string            `json:"target_lang"`
	Status         string            `json:"status"`
	Tags           []string          `json:"tags,omitempty"`
	AccessCount    int               `json:"access_count"`
	CreatedAt      time.Time         `json:"created_at"`
	LastAccessedAt time.Time         `json:"last_accessed_at"`
	Retention      RetentionResponse `json:"retention"`
}

// SuggestionResponse is a fuzzy-matched near-duplicate candidate.
type SuggestionResponse struct {
	Fragment   FragmentResponse `json:"fragment"`
	Similarity float64          `json:"similarity"`
}

// CheckMemoryResponse is the outcome of a memory check.
type CheckMemoryResponse struct {
	Exists            bool                 `json:"exists"`
	ShouldTranslate   bool                 `json:"should_translate"`
	CachedTranslation string               `json:"cached_translation,omitempty"`
	Retention         float64              `json:"retention"`
	Fragment          *FragmentResponse    `json:"fragment,omitempty"`
	Suggestions       []SuggestionResponse `json:"suggestions,omitempty"`
}

// ReviewItemResponse pairs a due fragment with its computed retention.
type ReviewItemResponse struct {
	Fragment  FragmentResponse `json:"fragment"`
	Retention float64          `json:"retention"`
}

// GazeBatchRequest carries a batch of gaze samples for one session, with the
// capture region around the current gaze position. The capture travels as
// base64 and is only consumed when a sample in the batch confirms a fixation.
type GazeBatchRequest struct {
	Samples []GazeSampleRequest `json:"samples" validate:"required,min=1,dive"`
	Capture []byte              `json:"capture,omitempty"`
}

// GazeSampleRequest is one gaze point. Timestamps are epoch milliseconds.
type GazeSampleRequest struct {
	X           float64 `json:"x"`
	Y           float64 `json:"y"`
	Confidence  float64 `json:"confidence" validate:"gte=0,lte=1"`
	TimestampMs int64   `json:"timestamp_ms" validate:"required,gt=0"`
}

// ToDomain converts the wire sample to the domain type.
func (r GazeSampleRequest) ToDomain() domain.GazeSample {
	return domain.GazeSample{
		X:          r.X,
		Y:          r.Y,
		Confidence: r.Confidence,
		Timestamp:  time.UnixMilli(r.TimestampMs).UTC(),
	}
}

// TriggerResponse describes a confirmed fixation, anchored at the first
// sample of the qualifying window.
type TriggerResponse struct {
	X           float64 `json:"x"`
	Y           float64 `json:"y"`
	Confidence  float64 `json:"confidence"`
	TimestampMs int64   `json:"timestamp_ms"`
}

// LookupResponse is the wire form of a resolved fixation lookup.
type LookupResponse struct {
	Original         string  `json:"original"`
	Translation      string  `json:"translation"`
	SourceLang       string  `json:"source_lang"`
	TargetLang       string  `json:"target_lang"`
	FromCache        bool    `json:"from_cache"`
	FragmentID       string  `json:"fragment_id"`
	Retention        float64 `json:"retention"`
	ProcessingTimeMs int64   `json:"processing_time_ms"`
}

// GazeBatchResponse reports how much of the batch was consumed and, when a
// fixation was confirmed, the trigger and its resolved lookup.
type GazeBatchResponse struct {
	Triggered bool             `json:"triggered"`
	Consumed  int              `json:"consumed"`
	Trigger   *TriggerResponse `json:"trigger,omitempty"`
	Lookup    *LookupResponse  `json:"lookup,omitempty"`
}

// fragmentToResponse converts a domain.MemoryFragment to its wire form.
func fragmentToResponse(fragment *domain.MemoryFragment) FragmentResponse {
	return FragmentResponse{
		ID:             fragment.ID.String(),
		OwnerID:        fragment.OwnerID.String(),
		SourceText:     fragment.SourceText,
		TranslatedText: fragment.TranslatedText,
		SourceLang:     fragment.SourceLang,
		TargetLang:     fragment.TargetLang,
		Status:         string(fragment.Status),
		Tags:           fragment.Tags,
		AccessCount:    fragment.AccessCount,
		CreatedAt:      fragment.CreatedAt,
		LastAccessedAt: fragment.LastAccessedAt,
		Retention: RetentionResponse{
			CurrentStrength:          fragment.Retention.CurrentStrength,
			DifficultyLevel:          fragment.Retention.DifficultyLevel,
			ReinforceCount:           fragment.Retention.ReinforceCount,
			SuccessfulReinforceCount: fragment.Retention.SuccessfulReinforceCount,
			LastReinforcedAt:         fragment.Retention.LastReinforcedAt,
			NextDueAt:                fragment.Retention.NextDueAt,
		},
	}
}

// lookupResultToResponse converts a lookup.Result to its wire form.
func lookupResultToResponse(result *lookup.Result) LookupResponse {
	return LookupResponse{
		Original:         result.Original,
		Translation:      result.Translation,
		SourceLang:       result.SourceLang,
		TargetLang:       result.TargetLang,
		FromCache:        result.FromCache,
		FragmentID:       result.FragmentID.String(),
		Retention:        result.Retention,
		ProcessingTimeMs: result.ProcessingTime.Milliseconds(),
	}
}

// checkResultToResponse converts a memory.CheckResult to its wire form.
func checkResultToResponse(result *memory.CheckResult) CheckMemoryResponse {
	response := CheckMemoryResponse{
		Exists:            result.Exists,
		ShouldTranslate:   result.ShouldTranslate,
		CachedTranslation: result.CachedTranslation,
		Retention:         result.Retention,
	}

	if result.Fragment != nil {
		fragment := fragmentToResponse(result.Fragment)
		response.Fragment = &fragment
	}

	for _, suggestion := range result.Suggestions {
		response.Suggestions = append(response.Suggestions, SuggestionResponse{
			Fragment:   fragmentToResponse(suggestion.Fragment),
			Similarity: suggestion.Similarity,
		})
	}

	return response
}
