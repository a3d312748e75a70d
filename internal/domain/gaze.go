package domain

import (
	"errors"
	"math"
	"time"
)

// Gaze-specific validation errors
var (
	// ErrGazeCoordinateInvalid is returned when a gaze sample carries a NaN or infinite coordinate.
	ErrGazeCoordinateInvalid = errors.New("gaze coordinate must be finite")

	// ErrGazeConfidenceInvalid is returned when a gaze sample's confidence is outside [0, 1].
	ErrGazeConfidenceInvalid = errors.New("gaze confidence must be between 0 and 1")

	// ErrGazeTimestampZero is returned when a gaze sample has no timestamp.
	ErrGazeTimestampZero = errors.New("gaze timestamp cannot be zero")

	// ErrStabilityRadiusInvalid is returned when a fixation config's stability radius is not positive.
	ErrStabilityRadiusInvalid = errors.New("stability radius must be greater than 0")

	// ErrMinDurationInvalid is returned when a fixation config's minimum duration is not positive.
	ErrMinDurationInvalid = errors.New("minimum fixation duration must be greater than 0")

	// ErrMinConfidenceInvalid is returned when a fixation config's confidence floor is outside [0, 1].
	ErrMinConfidenceInvalid = errors.New("minimum confidence must be between 0 and 1")
)

// GazeSample is a single timestamped gaze point in screen space with a
// tracker-reported confidence. Samples are transient: they are consumed one
// at a time by the fixation detector and never persisted.
type GazeSample struct {
	X          float64   `json:"x"`
	Y          float64   `json:"y"`
	Confidence float64   `json:"confidence"`
	Timestamp  time.Time `json:"timestamp"`
}

// Validate checks if the GazeSample has valid data.
// Returns an error if any field fails validation.
func (s GazeSample) Validate() error {
	if math.IsNaN(s.X) || math.IsInf(s.X, 0) || math.IsNaN(s.Y) || math.IsInf(s.Y, 0) {
		return ErrGazeCoordinateInvalid
	}

	if math.IsNaN(s.Confidence) || s.Confidence < 0 || s.Confidence > 1 {
		return ErrGazeConfidenceInvalid
	}

	if s.Timestamp.IsZero() {
		return ErrGazeTimestampZero
	}

	return nil
}

// TriggerEvent marks a confirmed fixation. It is anchored at the first
// sample of the qualifying window, not at the sample that completed it, and
// carries the completing sample's confidence and timestamp.
type TriggerEvent struct {
	X          float64   `json:"x"`
	Y          float64   `json:"y"`
	Confidence float64   `json:"confidence"`
	Timestamp  time.Time `json:"timestamp"`
}

// FixationConfig holds the per-session fixation thresholds. It is mutable at
// runtime for per-user calibration and is read on every sample.
type FixationConfig struct {
	StabilityRadiusPx float64       `json:"stability_radius_px"`
	MinDuration       time.Duration `json:"min_duration"`
	MinConfidence     float64       `json:"min_confidence"`
}

// DefaultFixationConfig returns the fixation thresholds used when a session
// supplies no calibration of its own.
func DefaultFixationConfig() FixationConfig {
	return FixationConfig{
		StabilityRadiusPx: 50,
		MinDuration:       1500 * time.Millisecond,
		MinConfidence:     0.5,
	}
}

// Validate checks if the FixationConfig has valid data.
// Returns an error if any field fails validation.
func (c FixationConfig) Validate() error {
	if math.IsNaN(c.StabilityRadiusPx) || c.StabilityRadiusPx <= 0 {
		return ErrStabilityRadiusInvalid
	}

	if c.MinDuration <= 0 {
		return ErrMinDurationInvalid
	}

	if math.IsNaN(c.MinConfidence) || c.MinConfidence < 0 || c.MinConfidence > 1 {
		return ErrMinConfidenceInvalid
	}

	return nil
}
