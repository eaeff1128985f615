package latency

import "sort"

// AdaptiveSessionGap derives the session-boundary threshold from the
// conversation's own rhythm: the 75th percentile of all inter-message gaps
// under one hour (longer silences would skew the estimate), doubled, then
// clamped to [15min, 2h]. A fixed constant would treat bursty texters and
// slow-cadence pen-pals identically; this keeps session boundaries
// meaningful across both.
func AdaptiveSessionGap(msgs []Message) int64 {
	gaps := make([]int64, 0, len(msgs))
	for i := 1; i < len(msgs); i++ {
		gap := msgs[i].TimestampMs - msgs[i-1].TimestampMs
		if gap >= 0 && gap < gapFilterCeilingMs {
			gaps = append(gaps, gap)
		}
	}

	estimate := int64(percentile(gaps, 0.75) * sessionGapMultiplier)
	return clampInt64(estimate, sessionGapFloorMs, sessionGapCeilMs)
}

// percentile computes the p-th percentile (0..1) of values with linear
// interpolation between ranks. It sorts a working copy; values is untouched.
// Returns 0 for an empty set.
func percentile(values []int64, p float64) float64 {
	if len(values) == 0 {
		return 0
	}
	sorted := make([]int64, len(values))
	copy(sorted, values)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i] < sorted[j] })

	if len(sorted) == 1 {
		return float64(sorted[0])
	}
	rank := p * float64(len(sorted)-1)
	lo := int(rank)
	if lo >= len(sorted)-1 {
		return float64(sorted[len(sorted)-1])
	}
	frac := rank - float64(lo)
	return float64(sorted[lo]) + frac*float64(sorted[lo+1]-sorted[lo])
}

func clampInt64(v, lo, hi int64) int64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
