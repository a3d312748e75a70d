// Package fixation turns a noisy stream of gaze samples into discrete
// trigger events. The core is a pure state-transition function over an
// explicit window value, so the dwell logic is testable without timers,
// goroutines, or a live gaze source.
package fixation

import (
	"math"
	"time"

	"github.com/fennwick/glossa-api/internal/domain"
)

// State is the accumulator for one candidate fixation. The zero value means
// no window is open. The anchor is the first sample of the window and never
// moves while the window stays open; a fixed anchor keeps the stability test
// O(1) per sample and avoids a moving centroid chasing a still-drifting gaze.
type State struct {
	AnchorX     float64
	AnchorY     float64
	StartedAt   time.Time
	SampleCount int
}

// IsOpen reports whether a candidate fixation is being accumulated.
func (s State) IsOpen() bool {
	return s.SampleCount > 0
}

// Advance feeds one sample through the detector logic and returns the next
// state plus the trigger event, if this sample completed a fixation.
//
// Parameters:
//   - state: The current window state (zero value for no open window)
//   - sample: The gaze sample to process
//   - cfg: The fixation thresholds in effect for this sample
//
// Returns:
//   - The next window state
//   - A TriggerEvent if this sample completed a qualifying fixation, else nil
//   - An error if the sample is malformed, in which case the state is
//     returned unchanged
//
// Algorithm behavior:
//   - Samples below the confidence floor are ignored outright: a brief
//     tracker dropout must not cancel a fixation in progress, so the open
//     window is preserved untouched
//   - With no open window, the sample opens one anchored at its position
//   - Within the stability radius of the anchor, the window stays open and
//     the anchor stays put; once the sample's timestamp is at least the
//     minimum duration past the window start, a trigger fires at the anchor
//     and the window closes
//   - Outside the radius, attention has moved: the window restarts anchored
//     at the new sample, discarding partial progress
//
// Elapsed time is measured on sample timestamps, not the wall clock, so
// replayed streams behave identically to live ones. At most one trigger is
// emitted per qualifying fixation; after a trigger the caller must reset or
// allow a new window to open before the same spot can trigger again.
func Advance(state State, sample domain.GazeSample, cfg domain.FixationConfig) (State, *domain.TriggerEvent, error) {
	if err := sample.Validate(); err != nil {
		return state, nil, err
	}

	if sample.Confidence < cfg.MinConfidence {
		return state, nil, nil
	}

	if !state.IsOpen() {
		return open(sample), nil, nil
	}

	distance := math.Hypot(sample.X-state.AnchorX, sample.Y-state.AnchorY)
	if distance > cfg.StabilityRadiusPx {
		// Attention moved: restart, not accumulate.
		return open(sample), nil, nil
	}

	if sample.Timestamp.Sub(state.StartedAt) >= cfg.MinDuration {
		trigger := &domain.TriggerEvent{
			X:          state.AnchorX,
			Y:          state.AnchorY,
			Confidence: sample.Confidence,
			Timestamp:  sample.Timestamp,
		}
		return State{}, trigger, nil
	}

	next := state
	next.SampleCount++
	return next, nil, nil
}

// open starts a new window anchored at the given sample.
func open(sample domain.GazeSample) State {
	return State{
		AnchorX:     sample.X,
		AnchorY:     sample.Y,
		StartedAt:   sample.Timestamp,
		SampleCount: 1,
	}
}
