package latency

import "sort"

// AggregateStats rolls response events into per-responder distributions.
// Sample size, mean, median and extremes cover every event; the per-hour and
// per-day-of-week median histograms skip overnight events unless
// keepOvernight is set, so sleep latency does not drag down the curves.
func AggregateStats(events []ResponseEvent, keepOvernight bool) map[string]PersonStats {
	byPerson := make(map[string][]ResponseEvent)
	for _, ev := range events {
		byPerson[ev.Responder] = append(byPerson[ev.Responder], ev)
	}

	stats := make(map[string]PersonStats, len(byPerson))
	for person, evs := range byPerson {
		stats[person] = personStats(evs, keepOvernight)
	}
	return stats
}

func personStats(evs []ResponseEvent, keepOvernight bool) PersonStats {
	s := PersonStats{
		SampleSize: len(evs),
		FastestMs:  evs[0].LatencyMs,
		SlowestMs:  evs[0].LatencyMs,
	}

	all := make([]int64, 0, len(evs))
	hourBuckets := make(map[int][]int64)
	dowBuckets := make(map[int][]int64)
	var sum int64
	for _, ev := range evs {
		all = append(all, ev.LatencyMs)
		sum += ev.LatencyMs
		if ev.LatencyMs < s.FastestMs {
			s.FastestMs = ev.LatencyMs
		}
		if ev.LatencyMs > s.SlowestMs {
			s.SlowestMs = ev.LatencyMs
		}
		if ev.IsOvernight && !keepOvernight {
			continue
		}
		hourBuckets[ev.HourOfDay] = append(hourBuckets[ev.HourOfDay], ev.LatencyMs)
		dowBuckets[ev.DayOfWeek] = append(dowBuckets[ev.DayOfWeek], ev.LatencyMs)
	}

	s.MeanMs = float64(sum) / float64(len(evs))
	s.MedianMs = medianInt64(all)
	for hour, vals := range hourBuckets {
		s.PerHourMedianMs[hour] = medianInt64(vals)
	}
	for dow, vals := range dowBuckets {
		s.PerDowMedianMs[dow] = medianInt64(vals)
	}
	return s
}

// medianInt64 returns the median of values, averaging the two middle values
// for even counts. It sorts a working copy and returns 0 for an empty set.
func medianInt64(values []int64) int64 {
	if len(values) == 0 {
		return 0
	}
	sorted := make([]int64, len(values))
	copy(sorted, values)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i] < sorted[j] })

	mid := len(sorted) / 2
	if len(sorted)%2 == 1 {
		return sorted[mid]
	}
	return (sorted[mid-1] + sorted[mid]) / 2
}
