package retention

import "time"

// Params defines all configurable parameters for the retention model
type Params struct {
	// Gating threshold: probabilities at or below this count as forgotten
	RememberedThreshold float64

	// Forgetting curve shape
	BaseRateHours         float64
	DifficultyRateBase    float64
	DifficultyMidpoint    float64
	ReinforceBonusWeight  float64
	ReinforceBonusDamping float64

	// Strength updates on reinforcement
	SuccessStrengthFactor float64
	FailureStrengthFactor float64
	MinStrength           float64
	MaxStrength           float64

	// Review scheduling
	ReviewIntervals       []time.Duration
	LowSuccessRate        float64
	HighSuccessRate       float64
	DifficultyMultipliers [5]float64

	// Response-time difficulty nudges
	SlowResponse    time.Duration
	FastResponse    time.Duration
	DifficultyNudge float64
	MinDifficulty   float64
	MaxDifficulty   float64
}

// ParamsConfig allows overriding the tunable defaults when creating a new
// Params instance. The curve-shape constants are deliberately not exposed
// here; they define the model rather than calibrate it.
type ParamsConfig struct {
	// Gating threshold
	RememberedThreshold float64

	// Success-rate bands that shift the interval table index
	LowSuccessRate  float64
	HighSuccessRate float64

	// Response-time boundaries for difficulty nudges
	SlowResponse time.Duration
	FastResponse time.Duration
}

// NewDefaultParams creates a new Params instance with default values
func NewDefaultParams() *Params {
	return &Params{
		RememberedThreshold: 0.30,

		// Curve shape: an item of midpoint difficulty decays with a
		// 24-hour characteristic rate, scaled by 0.8^(difficulty-3)
		BaseRateHours:         24,
		DifficultyRateBase:    0.8,
		DifficultyMidpoint:    3,
		ReinforceBonusWeight:  0.2,
		ReinforceBonusDamping: 0.1,

		SuccessStrengthFactor: 1.3,
		FailureStrengthFactor: 0.8,
		MinStrength:           0.1,
		MaxStrength:           1.0,

		// Canonical spaced-repetition steps
		ReviewIntervals: []time.Duration{
			20 * time.Minute,
			time.Hour,
			9 * time.Hour,
			24 * time.Hour,
			48 * time.Hour,
			96 * time.Hour,
			7 * 24 * time.Hour,
			14 * 24 * time.Hour,
			30 * 24 * time.Hour,
			90 * 24 * time.Hour,
		},
		LowSuccessRate:  0.6,
		HighSuccessRate: 0.9,

		// Index 0 is difficulty 1 (easiest, longest intervals)
		DifficultyMultipliers: [5]float64{2.0, 1.5, 1.0, 0.7, 0.5},

		SlowResponse:    10 * time.Second,
		FastResponse:    3 * time.Second,
		DifficultyNudge: 0.5,
		MinDifficulty:   1,
		MaxDifficulty:   5,
	}
}

// NewParams creates a new Params instance with custom configuration
func NewParams(config ParamsConfig) *Params {
	params := NewDefaultParams()

	// Override gating threshold if provided
	if config.RememberedThreshold > 0 {
		params.RememberedThreshold = config.RememberedThreshold
	}

	// Override success-rate bands if provided
	if config.LowSuccessRate > 0 {
		params.LowSuccessRate = config.LowSuccessRate
	}
	if config.HighSuccessRate > 0 {
		params.HighSuccessRate = config.HighSuccessRate
	}

	// Override response-time boundaries if provided
	if config.SlowResponse > 0 {
		params.SlowResponse = config.SlowResponse
	}
	if config.FastResponse > 0 {
		params.FastResponse = config.FastResponse
	}

	return params
}
