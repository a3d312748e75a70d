package retention

import (
	"errors"
	"fmt"
	"time"

	"github.com/fennwick/glossa-api/internal/domain"
)

// Common errors
var (
	ErrInvalidRecord     = errors.New("retention record is invalid")
	ErrInvalidDifficulty = errors.New("explicit difficulty must be between 1 and 5")
)

// Reinforcement describes one re-exposure or review of a fragment.
// ResponseTime and ExplicitDifficulty are optional; when ExplicitDifficulty
// is set it takes precedence over any response-time nudge.
type Reinforcement struct {
	WasSuccessful      bool
	ResponseTime       *time.Duration
	ExplicitDifficulty *float64
}

// Service defines the interface for retention model operations
type Service interface {
	// Retention computes the probability that the record is still
	// remembered at the given instant
	Retention(record domain.RetentionRecord, at time.Time) float64

	// IsRemembered reports whether a probability clears the gating threshold
	IsRemembered(probability float64) bool

	// NextReviewInterval computes the wait before the next review for the
	// given counters and difficulty
	NextReviewInterval(reinforceCount, successfulReinforceCount int, difficultyLevel float64) time.Duration

	// Reinforce computes a new record reflecting one reinforcement event
	Reinforce(record domain.RetentionRecord, reinforcement Reinforcement, now time.Time) (domain.RetentionRecord, error)
}

// defaultService is the standard implementation of the Service interface
type defaultService struct {
	params *Params
}

// NewDefaultService creates a new retention service with default parameters
func NewDefaultService() Service {
	return &defaultService{
		params: NewDefaultParams(),
	}
}

// NewServiceWithParams creates a new retention service with custom parameters
func NewServiceWithParams(params *Params) Service {
	return &defaultService{
		params: params,
	}
}

// Retention implements the Service interface. Elapsed time is measured from
// the record's last reinforcement; a fragment that has never been reviewed
// decays from its creation instant, which the store records as the first
// reinforcement.
func (s *defaultService) Retention(record domain.RetentionRecord, at time.Time) float64 {
	return computeRetention(
		at.Sub(record.LastReinforcedAt),
		record.InitialStrength,
		record.ReinforceCount,
		record.DifficultyLevel,
		s.params,
	)
}

// IsRemembered implements the Service interface.
func (s *defaultService) IsRemembered(probability float64) bool {
	return isRemembered(probability, s.params)
}

// NextReviewInterval implements the Service interface.
func (s *defaultService) NextReviewInterval(
	reinforceCount, successfulReinforceCount int,
	difficultyLevel float64,
) time.Duration {
	return nextReviewInterval(reinforceCount, successfulReinforceCount, difficultyLevel, s.params)
}

// Reinforce implements the Service interface for computing updated records
func (s *defaultService) Reinforce(
	record domain.RetentionRecord,
	reinforcement Reinforcement,
	now time.Time,
) (domain.RetentionRecord, error) {
	// Validate inputs
	if err := record.Validate(); err != nil {
		return domain.RetentionRecord{}, fmt.Errorf("%w: %v", ErrInvalidRecord, err)
	}

	if reinforcement.ExplicitDifficulty != nil {
		d := *reinforcement.ExplicitDifficulty
		if d < s.params.MinDifficulty || d > s.params.MaxDifficulty {
			return domain.RetentionRecord{}, ErrInvalidDifficulty
		}
	}

	// Use the pure calculation function to get the new record
	updated := applyReinforcement(record, reinforcement, now, s.params)

	return updated, nil
}
