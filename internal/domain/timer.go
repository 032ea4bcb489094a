package domain

import "time"

// EffectiveRemaining returns the authoritative remaining seconds as of asOf.
// Elapsed time is counted in whole seconds and never negative, so the result
// is non-increasing for non-decreasing asOf and a pause/start cycle shorter
// than a second leaves the baseline untouched.
func EffectiveRemaining(remaining int, running bool, lastTick *time.Time, asOf time.Time) int {
	if remaining < 0 {
		remaining = 0
	}
	if !running || lastTick == nil {
		return remaining
	}
	left := remaining - ElapsedSeconds(*lastTick, asOf)
	if left < 0 {
		return 0
	}
	return left
}

// ElapsedSeconds is floor(asOf - since) in seconds, clamped at zero for
// timestamps from a clock that runs ahead of ours.
func ElapsedSeconds(since, asOf time.Time) int {
	d := asOf.Sub(since)
	if d <= 0 {
		return 0
	}
	return int(d / time.Second)
}

// Drift is the absolute difference between two remaining-seconds values.
func Drift(a, b int) int {
	if a > b {
		return a - b
	}
	return b - a
}
