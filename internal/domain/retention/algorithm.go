package retention

import (
	"math"
	"time"

	"github.com/fennwick/glossa-api/internal/domain"
)

// computeRetention calculates the probability that a fragment is still
// remembered after the given elapsed time.
//
// The model is the classic exponential-decay memory curve. The divisor terms
// exist so that (a) harder content decays faster and (b) repeated successful
// exposure slows decay with diminishing marginal benefit, matching empirical
// spaced-repetition behavior.
//
// Parameters:
//   - elapsed: Time since the fragment was last reinforced
//   - initialStrength: The strength assigned at first exposure, in (0, 1]
//   - reinforceCount: How many times the fragment has been reinforced
//   - difficultyLevel: The fragment's difficulty, 1 (easy) to 5 (hard)
//   - params: Configuration parameters for the retention model
//
// Returns:
//   - The retained probability, clamped to [0, 1]
//
// Algorithm behavior:
//   - baseRate = BaseRateHours * DifficultyRateBase^(difficulty - midpoint),
//     so difficulty 3 decays at the characteristic 24-hour rate and each
//     level above it decays faster
//   - reinforceBonus = 1 + (0.2 * n) / (1 + 0.1 * n), a diminishing-returns
//     bonus per additional reinforcement
//   - probability = exp(-elapsedHours / (baseRate / (initialStrength * bonus)))
//   - Negative elapsed time (clock skew between nodes) is treated as zero
func computeRetention(
	elapsed time.Duration,
	initialStrength float64,
	reinforceCount int,
	difficultyLevel float64,
	params *Params,
) float64 {
	if initialStrength <= 0 {
		return 0
	}

	hours := elapsed.Hours()
	if hours < 0 {
		hours = 0
	}

	baseRate := params.BaseRateHours * math.Pow(
		params.DifficultyRateBase,
		difficultyLevel-params.DifficultyMidpoint,
	)

	n := float64(reinforceCount)
	reinforceBonus := 1 + (params.ReinforceBonusWeight*n)/(1+params.ReinforceBonusDamping*n)

	adjustedRate := baseRate / (initialStrength * reinforceBonus)

	probability := math.Exp(-hours / adjustedRate)

	// Clamp against float drift at the boundaries
	if probability < 0 {
		return 0
	}
	if probability > 1 {
		return 1
	}
	return probability
}

// isRemembered reports whether a retained probability clears the gating
// threshold. Fragments at or below the threshold are treated as forgotten
// for translation-gating purposes.
func isRemembered(probability float64, params *Params) bool {
	return probability > params.RememberedThreshold
}

// nextReviewInterval determines how long to wait before the fragment should
// be reviewed again.
//
// Parameters:
//   - reinforceCount: Total reinforcements recorded so far
//   - successfulReinforceCount: How many of those were successful
//   - difficultyLevel: The fragment's difficulty, 1 to 5
//   - params: Configuration parameters for the retention model
//
// Returns:
//   - The review interval as a time.Duration
//
// Algorithm behavior:
//   - The base interval comes from a fixed increasing table indexed by
//     min(reinforceCount, tableLength-1)
//   - successRate = successful / max(total, 1); below LowSuccessRate the
//     index steps back one (the user is struggling), above HighSuccessRate
//     it steps forward one, clamped at the table bounds
//   - The result is scaled by a difficulty multiplier so harder items come
//     back sooner regardless of success rate
func nextReviewInterval(
	reinforceCount int,
	successfulReinforceCount int,
	difficultyLevel float64,
	params *Params,
) time.Duration {
	index := reinforceCount
	if index > len(params.ReviewIntervals)-1 {
		index = len(params.ReviewIntervals) - 1
	}

	successRate := float64(successfulReinforceCount) / math.Max(float64(reinforceCount), 1)
	if successRate < params.LowSuccessRate {
		index--
	} else if successRate > params.HighSuccessRate {
		index++
	}

	if index < 0 {
		index = 0
	}
	if index > len(params.ReviewIntervals)-1 {
		index = len(params.ReviewIntervals) - 1
	}

	base := params.ReviewIntervals[index]
	return time.Duration(float64(base) * difficultyMultiplier(difficultyLevel, params))
}

// difficultyMultiplier looks up the interval multiplier for a difficulty
// level. Levels are stored fractionally (response-time nudges move them by
// 0.5) but the multiplier table is defined on whole levels, so the level is
// rounded before lookup.
func difficultyMultiplier(difficultyLevel float64, params *Params) float64 {
	level := int(math.Round(difficultyLevel))
	if level < 1 {
		level = 1
	}
	if level > len(params.DifficultyMultipliers) {
		level = len(params.DifficultyMultipliers)
	}
	return params.DifficultyMultipliers[level-1]
}

// applyReinforcement creates a new RetentionRecord with updated values based
// on a reinforcement event.
//
// This function follows the immutable update pattern: the input record is
// never modified, a fresh copy carries the new state.
//
// Parameters:
//   - record: The current retention record
//   - reinforcement: The outcome of this exposure or review
//   - now: The current time, usually when the reinforcement was observed
//   - params: Configuration parameters for the retention model
//
// Returns:
//   - A new RetentionRecord with updated values
//
// Algorithm behavior:
//   - Current strength is multiplied by SuccessStrengthFactor (capped at
//     MaxStrength) on success, or FailureStrengthFactor (floored at
//     MinStrength) on failure
//   - An explicit difficulty wins over a response-time nudge; a slow
//     response (> SlowResponse) nudges difficulty up, a fast one
//     (< FastResponse) nudges it down, clamped to [MinDifficulty, MaxDifficulty]
//   - Counters are incremented first, then the next due time is computed
//     from the updated counters
func applyReinforcement(
	record domain.RetentionRecord,
	reinforcement Reinforcement,
	now time.Time,
	params *Params,
) domain.RetentionRecord {
	updated := record.Clone()

	if reinforcement.WasSuccessful {
		updated.CurrentStrength = math.Min(
			record.CurrentStrength*params.SuccessStrengthFactor,
			params.MaxStrength,
		)
	} else {
		updated.CurrentStrength = math.Max(
			record.CurrentStrength*params.FailureStrengthFactor,
			params.MinStrength,
		)
	}

	switch {
	case reinforcement.ExplicitDifficulty != nil:
		updated.DifficultyLevel = clampDifficulty(*reinforcement.ExplicitDifficulty, params)
	case reinforcement.ResponseTime != nil:
		nudged := record.DifficultyLevel
		if *reinforcement.ResponseTime > params.SlowResponse {
			nudged += params.DifficultyNudge
		} else if *reinforcement.ResponseTime < params.FastResponse {
			nudged -= params.DifficultyNudge
		}
		updated.DifficultyLevel = clampDifficulty(nudged, params)
	}

	updated.ReinforceCount = record.ReinforceCount + 1
	if reinforcement.WasSuccessful {
		updated.SuccessfulReinforceCount = record.SuccessfulReinforceCount + 1
	}

	interval := nextReviewInterval(
		updated.ReinforceCount,
		updated.SuccessfulReinforceCount,
		updated.DifficultyLevel,
		params,
	)
	due := now.Add(interval)
	updated.NextDueAt = &due
	updated.LastReinforcedAt = now

	return updated
}

// clampDifficulty bounds a difficulty level to the configured range.
func clampDifficulty(level float64, params *Params) float64 {
	if level < params.MinDifficulty {
		return params.MinDifficulty
	}
	if level > params.MaxDifficulty {
		return params.MaxDifficulty
	}
	return level
}
