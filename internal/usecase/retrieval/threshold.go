package retrieval

// Threshold policy constants.
const (
	DefaultThreshold = 0.6
	DefaultCount     = 5
	MaxCount         = 20

	MinAdjustedThreshold = 0.3
	MaxAdjustedThreshold = 0.9

	shortQueryWords  = 2
	longQueryWords   = 5
	shortQueryDelta  = -0.1
	longQueryDelta   = 0.05
	retryDelta       = 0.2
	backfillDelta    = 0.15
	firstPassFactor  = 2
	backfillFactor   = 3
	thresholdEpsilon = 1e-9
)

// AdjustThreshold lowers the floor for short queries (<=2 words) and raises
// it for long ones (>5 words), clamped to [0.3, 0.9].
func AdjustThreshold(t float64, words int) float64 {
	switch {
	case words <= shortQueryWords:
		t += shortQueryDelta
	case words > longQueryWords:
		t += longQueryDelta
	}
	return clamp(t, MinAdjustedThreshold, MaxAdjustedThreshold)
}

// relax lowers t by delta without going below the floor. A threshold
// already under the floor is never raised.
func relax(t, delta float64) float64 {
	return min(t, max(t-delta, MinAdjustedThreshold))
}

// canRetry reports whether t is above the floor. The epsilon keeps 0.3
// reached through float arithmetic (0.6 - 0.1 - 0.2) from counting as above it.
func canRetry(t float64) bool {
	return t > MinAdjustedThreshold+thresholdEpsilon
}

func clamp(v, lo, hi float64) float64 {
	return min(max(v, lo), hi)
}

func clampCount(n int) int {
	switch {
	case n == 0:
		return DefaultCount
	case n < 1:
		return 1
	case n > MaxCount:
		return MaxCount
	default:
		return n
	}
}
