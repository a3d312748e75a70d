package retention

import (
	"errors"
	"testing"
	"time"

	"github.com/fennwick/glossa-api/internal/domain"
)

func TestServiceRetention(t *testing.T) {
	t.Parallel() // Enable parallel execution
	svc := NewDefaultService()
	now := time.Now().UTC()

	record := domain.RetentionRecord{
		InitialStrength:  1.0,
		CurrentStrength:  1.0,
		DifficultyLevel:  3,
		LastReinforcedAt: now.Add(-24 * time.Hour),
	}

	// One day at the default rate decays by 1/e.
	p := svc.Retention(record, now)
	if p < 0.36 || p > 0.38 {
		t.Errorf("Expected probability near 0.368, got %f", p)
	}

	// A record reinforced in the future (clock skew) reads as fully retained.
	record.LastReinforcedAt = now.Add(time.Hour)
	if p := svc.Retention(record, now); p != 1.0 {
		t.Errorf("Expected probability 1.0 for future reinforcement, got %f", p)
	}
}

func TestServiceIsRemembered(t *testing.T) {
	t.Parallel() // Enable parallel execution
	svc := NewDefaultService()

	testCases := []struct {
		name        string
		probability float64
		expected    bool
	}{
		{name: "Well above threshold", probability: 0.9, expected: true},
		{name: "Just above threshold", probability: 0.301, expected: true},
		{name: "Exactly at threshold is forgotten", probability: 0.30, expected: false},
		{name: "Below threshold", probability: 0.1, expected: false},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			if got := svc.IsRemembered(tc.probability); got != tc.expected {
				t.Errorf("IsRemembered(%f): expected %v, got %v", tc.probability, tc.expected, got)
			}
		})
	}
}

func TestServiceReinforceValidation(t *testing.T) {
	t.Parallel() // Enable parallel execution
	svc := NewDefaultService()
	now := time.Now().UTC()

	// An invalid record is rejected before any calculation.
	invalid := domain.RetentionRecord{
		InitialStrength:  0, // invalid
		CurrentStrength:  0.5,
		DifficultyLevel:  3,
		LastReinforcedAt: now,
	}
	if _, err := svc.Reinforce(invalid, Reinforcement{WasSuccessful: true}, now); !errors.Is(err, ErrInvalidRecord) {
		t.Errorf("Expected ErrInvalidRecord, got %v", err)
	}

	// An out-of-range explicit difficulty is rejected.
	valid := domain.RetentionRecord{
		InitialStrength:  1.0,
		CurrentStrength:  0.5,
		DifficultyLevel:  3,
		LastReinforcedAt: now,
	}
	outOfRange := 6.0
	_, err := svc.Reinforce(valid, Reinforcement{WasSuccessful: true, ExplicitDifficulty: &outOfRange}, now)
	if !errors.Is(err, ErrInvalidDifficulty) {
		t.Errorf("Expected ErrInvalidDifficulty, got %v", err)
	}
}

func TestServiceReinforceRoundTrip(t *testing.T) {
	t.Parallel() // Enable parallel execution
	svc := NewDefaultService()
	now := time.Now().UTC()

	record := domain.RetentionRecord{
		InitialStrength:  1.0,
		CurrentStrength:  0.6,
		DifficultyLevel:  3,
		ReinforceCount:   1,
		LastReinforcedAt: now.Add(-36 * time.Hour),
	}

	before := svc.Retention(record, now)

	updated, err := svc.Reinforce(record, Reinforcement{WasSuccessful: true}, now)
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}

	// Successful reinforcement restores retention to at least the
	// pre-reinforcement probability when read back immediately.
	after := svc.Retention(updated, now)
	if after < before {
		t.Errorf("Expected post-reinforcement retention %f >= pre %f", after, before)
	}

	if updated.NextDueAt == nil {
		t.Error("Expected reinforcement to schedule the next review")
	}

	// The updated record still satisfies the domain invariants.
	if err := updated.Validate(); err != nil {
		t.Errorf("Expected updated record to validate, got %v", err)
	}
}

func TestServiceNextReviewInterval(t *testing.T) {
	t.Parallel() // Enable parallel execution
	svc := NewDefaultService()

	if got := svc.NextReviewInterval(0, 0, 3); got != 20*time.Minute {
		t.Errorf("Expected first interval of 20m, got %v", got)
	}
}
