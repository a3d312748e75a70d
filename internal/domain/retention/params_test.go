package retention

import (
	"testing"
	"time"
)

func TestNewDefaultParams(t *testing.T) {
	t.Parallel() // Enable parallel execution
	params := NewDefaultParams()

	if params.RememberedThreshold != 0.30 {
		t.Errorf("Expected remembered threshold 0.30, got %f", params.RememberedThreshold)
	}

	if len(params.ReviewIntervals) != 10 {
		t.Fatalf("Expected 10 review intervals, got %d", len(params.ReviewIntervals))
	}

	if params.ReviewIntervals[0] != 20*time.Minute {
		t.Errorf("Expected first interval 20m, got %v", params.ReviewIntervals[0])
	}

	if params.ReviewIntervals[9] != 90*24*time.Hour {
		t.Errorf("Expected last interval 90 days, got %v", params.ReviewIntervals[9])
	}

	// Intervals must be strictly increasing for the index-shift logic to
	// mean anything.
	for i := 1; i < len(params.ReviewIntervals); i++ {
		if params.ReviewIntervals[i] <= params.ReviewIntervals[i-1] {
			t.Errorf("Review intervals not increasing at index %d", i)
		}
	}

	expected := [5]float64{2.0, 1.5, 1.0, 0.7, 0.5}
	if params.DifficultyMultipliers != expected {
		t.Errorf("Expected multipliers %v, got %v", expected, params.DifficultyMultipliers)
	}
}

func TestNewParamsOverrides(t *testing.T) {
	t.Parallel() // Enable parallel execution

	params := NewParams(ParamsConfig{
		RememberedThreshold: 0.5,
		LowSuccessRate:      0.4,
		HighSuccessRate:     0.95,
		SlowResponse:        8 * time.Second,
	})

	if params.RememberedThreshold != 0.5 {
		t.Errorf("Expected overridden threshold 0.5, got %f", params.RememberedThreshold)
	}

	if params.LowSuccessRate != 0.4 || params.HighSuccessRate != 0.95 {
		t.Errorf(
			"Expected overridden bands (0.4, 0.95), got (%f, %f)",
			params.LowSuccessRate, params.HighSuccessRate,
		)
	}

	if params.SlowResponse != 8*time.Second {
		t.Errorf("Expected overridden slow response 8s, got %v", params.SlowResponse)
	}

	// Unset fields keep their defaults.
	if params.FastResponse != 3*time.Second {
		t.Errorf("Expected default fast response 3s, got %v", params.FastResponse)
	}

	if params.BaseRateHours != 24 {
		t.Errorf("Expected default base rate 24, got %f", params.BaseRateHours)
	}
}
