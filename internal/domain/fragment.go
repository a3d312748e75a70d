package domain

import (
	"errors"
	"time"

	"github.com/google/uuid"
)

// FragmentStatus represents the learning state of a memory fragment
type FragmentStatus string

// Possible fragment status values
const (
	FragmentStatusFresh     FragmentStatus = "fresh"
	FragmentStatusLearning  FragmentStatus = "learning"
	FragmentStatusMastered  FragmentStatus = "mastered"
	FragmentStatusForgotten FragmentStatus = "forgotten"
	FragmentStatusExcluded  FragmentStatus = "excluded"
)

// Common validation errors for MemoryFragment
var (
	ErrEmptyFragmentID         = errors.New("fragment ID cannot be empty")
	ErrEmptyFragmentOwnerID    = errors.New("fragment owner ID cannot be empty")
	ErrEmptyFragmentSourceText = errors.New("fragment source text cannot be empty")
	ErrEmptyFragmentLang       = errors.New("fragment language codes cannot be empty")
	ErrInvalidFragmentStatus   = errors.New("invalid fragment status")
	ErrInvalidStrength         = errors.New("retention strength must be between 0 and 1")
	ErrInvalidDifficulty       = errors.New("difficulty level must be between 1 and 5")
	ErrInvalidReinforceCounts  = errors.New("reinforce counts must satisfy total >= successful >= 0")
	ErrMasteredHasDueDate      = errors.New("mastered fragments cannot have a next due date")
)

// RetentionRecord is the per-fragment decay state. It is created when a
// fragment is first stored and replaced wholesale after every reinforcement;
// callers never mutate a record in place.
type RetentionRecord struct {
	InitialStrength          float64    `json:"initial_strength"`
	CurrentStrength          float64    `json:"current_strength"`
	DifficultyLevel          float64    `json:"difficulty_level"`
	ReinforceCount           int        `json:"reinforce_count"`
	SuccessfulReinforceCount int        `json:"successful_reinforce_count"`
	LastReinforcedAt         time.Time  `json:"last_reinforced_at"`
	NextDueAt                *time.Time `json:"next_due_at,omitempty"`
}

// Validate checks if the RetentionRecord has valid data.
// Returns an error if any field fails validation.
func (r RetentionRecord) Validate() error {
	if r.InitialStrength <= 0 || r.InitialStrength > 1 {
		return ErrInvalidStrength
	}

	if r.CurrentStrength < 0 || r.CurrentStrength > 1 {
		return ErrInvalidStrength
	}

	if r.DifficultyLevel < 1 || r.DifficultyLevel > 5 {
		return ErrInvalidDifficulty
	}

	if r.SuccessfulReinforceCount < 0 || r.ReinforceCount < r.SuccessfulReinforceCount {
		return ErrInvalidReinforceCounts
	}

	return nil
}

// Clone returns a deep copy of the record. NextDueAt is the only pointer
// field, copied so callers cannot reach back into stored state.
func (r RetentionRecord) Clone() RetentionRecord {
	out := r
	if r.NextDueAt != nil {
		due := *r.NextDueAt
		out.NextDueAt = &due
	}
	return out
}

// FragmentIdentity is the dedup key for a fragment: the same owner glancing
// at the same text in the same language pair always resolves to one record.
type FragmentIdentity struct {
	OwnerID    uuid.UUID
	SourceText string
	SourceLang string
	TargetLang string
}

// Validate checks if the FragmentIdentity has valid data.
func (k FragmentIdentity) Validate() error {
	if k.OwnerID == uuid.Nil {
		return ErrEmptyFragmentOwnerID
	}

	if k.SourceText == "" {
		return ErrEmptyFragmentSourceText
	}

	if k.SourceLang == "" || k.TargetLang == "" {
		return ErrEmptyFragmentLang
	}

	return nil
}

// MemoryFragment is the unit of remembered translation for one owner. The
// identity tuple (owner, source text, language pair) is unique per owner;
// repeated exposure touches the existing fragment rather than creating a
// second record. Fragments are owned exclusively by the memory service and
// its stores; no other component mutates them directly.
type MemoryFragment struct {
	ID             uuid.UUID       `json:"id"`
	OwnerID        uuid.UUID       `json:"owner_id"`
	SourceText     string          `json:"source_text"`
	TranslatedText string          `json:"translated_text"`
	SourceLang     string          `json:"source_lang"`
	TargetLang     string          `json:"target_lang"`
	Status         FragmentStatus  `json:"status"`
	Tags           []string        `json:"tags,omitempty"`
	AccessCount    int             `json:"access_count"`
	CreatedAt      time.Time       `json:"created_at"`
	LastAccessedAt time.Time       `json:"last_accessed_at"`
	Retention      RetentionRecord `json:"retention"`
}

// NewMemoryFragment creates a fresh fragment for the given identity with its
// initial retention record. It generates a new UUID for the fragment ID and
// stamps creation/access times with the supplied clock value.
// Returns an error if validation fails.
func NewMemoryFragment(
	identity FragmentIdentity,
	translatedText string,
	tags []string,
	retention RetentionRecord,
	now time.Time,
) (*MemoryFragment, error) {
	fragment := &MemoryFragment{
		ID:             uuid.New(),
		OwnerID:        identity.OwnerID,
		SourceText:     identity.SourceText,
		TranslatedText: translatedText,
		SourceLang:     identity.SourceLang,
		TargetLang:     identity.TargetLang,
		Status:         FragmentStatusFresh,
		Tags:           tags,
		AccessCount:    1,
		CreatedAt:      now,
		LastAccessedAt: now,
		Retention:      retention,
	}

	if err := fragment.Validate(); err != nil {
		return nil, err
	}

	return fragment, nil
}

// Identity returns the fragment's dedup key.
func (f *MemoryFragment) Identity() FragmentIdentity {
	return FragmentIdentity{
		OwnerID:    f.OwnerID,
		SourceText: f.SourceText,
		SourceLang: f.SourceLang,
		TargetLang: f.TargetLang,
	}
}

// Validate checks if the MemoryFragment has valid data.
// Returns an error if any field fails validation.
func (f *MemoryFragment) Validate() error {
	if f.ID == uuid.Nil {
		return ErrEmptyFragmentID
	}

	if err := f.Identity().Validate(); err != nil {
		return err
	}

	if !f.Status.IsValid() {
		return ErrInvalidFragmentStatus
	}

	if err := f.Retention.Validate(); err != nil {
		return err
	}

	if f.Status == FragmentStatusMastered && f.Retention.NextDueAt != nil {
		return ErrMasteredHasDueDate
	}

	return nil
}

// Clone returns a deep copy of the fragment so store internals are never
// aliased by callers.
func (f *MemoryFragment) Clone() *MemoryFragment {
	out := *f
	if f.Tags != nil {
		out.Tags = make([]string, len(f.Tags))
		copy(out.Tags, f.Tags)
	}
	out.Retention = f.Retention.Clone()
	return &out
}

// IsValid checks if the status is one of the defined FragmentStatus values.
func (s FragmentStatus) IsValid() bool {
	switch s {
	case FragmentStatusFresh, FragmentStatusLearning, FragmentStatusMastered,
		FragmentStatusForgotten, FragmentStatusExcluded:
		return true
	default:
		return false
	}
}

// IsTerminal reports whether the status permanently removes the fragment
// from the review cycle. Terminal fragments never trigger translation and
// reject further reinforcement.
func (s FragmentStatus) IsTerminal() bool {
	return s == FragmentStatusMastered || s == FragmentStatusExcluded
}
