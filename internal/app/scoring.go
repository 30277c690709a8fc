package app

import "time"

// scoringRules computes the per-round score delta. Correct answers earn the
// base score plus a time bonus that steps down as the round ages; incorrect
// answers earn nothing. The exact thresholds are tunable product parameters.
type scoringRules struct {
	base  int
	limit time.Duration
}

const (
	fastBonus = 2 // answered within the first fifth of the limit
	midBonus  = 1 // answered within the first half
)

// clampElapsed bounds a client-reported elapsed time to [0, limit].
func (r scoringRules) clampElapsed(elapsed time.Duration) time.Duration {
	if elapsed < 0 {
		return 0
	}
	if elapsed > r.limit {
		return r.limit
	}
	return elapsed
}

// delta returns the score contribution for one answer. Elapsed must already
// be clamped.
func (r scoringRules) delta(correct bool, elapsed time.Duration) int {
	if !correct {
		return 0
	}
	switch {
	case elapsed <= r.limit/5:
		return r.base + fastBonus
	case elapsed <= r.limit/2:
		return r.base + midBonus
	default:
		return r.base
	}
}
