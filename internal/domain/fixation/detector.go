package fixation

import (
	"github.com/fennwick/glossa-api/internal/domain"
)

// Detector wraps the pure transition function with the window state and the
// active config for one gaze session.
//
// A Detector is single-writer by contract: exactly one gaze stream drives
// it, calls must be sequential, and it holds no locks of its own. The
// session layer owning the detector is responsible for serialization.
type Detector struct {
	state State
	cfg   domain.FixationConfig
}

// NewDetector creates a detector with the given thresholds.
// Returns an error if the config fails validation.
func NewDetector(cfg domain.FixationConfig) (*Detector, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &Detector{cfg: cfg}, nil
}

// ProcessSample feeds one sample through the detector and returns a trigger
// event if this sample completed a fixation. Malformed samples return an
// error and leave the detector state untouched.
func (d *Detector) ProcessSample(sample domain.GazeSample) (*domain.TriggerEvent, error) {
	next, trigger, err := Advance(d.state, sample, d.cfg)
	if err != nil {
		return nil, err
	}

	d.state = next
	return trigger, nil
}

// UpdateConfig replaces the detector's thresholds. The open window, if any,
// is preserved; the new thresholds apply from the next sample.
// Returns an error if the config fails validation.
func (d *Detector) UpdateConfig(cfg domain.FixationConfig) error {
	if err := cfg.Validate(); err != nil {
		return err
	}

	d.cfg = cfg
	return nil
}

// Config returns the thresholds currently in effect.
func (d *Detector) Config() domain.FixationConfig {
	return d.cfg
}

// Reset unconditionally discards any open window. Called after a trigger has
// been fully handled downstream, so a user re-fixating the same spot can
// trigger again.
func (d *Detector) Reset() {
	d.state = State{}
}
