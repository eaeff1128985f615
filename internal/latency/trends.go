package latency

import (
	"math"
	"sort"
	"time"
)

const (
	windowSpanMs = int64(30 * 24 * time.Hour / time.Millisecond)
	windowStepMs = int64(7 * 24 * time.Hour / time.Millisecond)
)

// MonthlyTrends buckets response events by calendar month and computes, for
// each month, a per-person RTI against that month's own median plus the
// month's response asymmetry. Each participant's series covers only months
// where they actually responded.
func MonthlyTrends(events []ResponseEvent, loc *time.Location, participants []string) (map[string][]MonthPoint, []MonthPoint) {
	if loc == nil {
		loc = time.UTC
	}

	byMonth := make(map[string][]ResponseEvent)
	for _, ev := range events {
		key := time.UnixMilli(ev.RespondedAtMs).In(loc).Format("2006-01")
		byMonth[key] = append(byMonth[key], ev)
	}

	months := make([]string, 0, len(byMonth))
	for m := range byMonth {
		months = append(months, m)
	}
	sort.Strings(months)

	rti := make(map[string][]MonthPoint, len(participants))
	for _, p := range participants {
		rti[p] = []MonthPoint{}
	}
	ra := make([]MonthPoint, 0, len(months))

	for _, month := range months {
		evs := byMonth[month]
		monthMedian := float64(clampInt64(medianInt64(latencies(evs)), 1, math.MaxInt64))
		for person, med := range personMedians(evs) {
			rti[person] = append(rti[person], MonthPoint{
				Month: month,
				Value: float64(med) / monthMedian,
			})
		}
		ra = append(ra, MonthPoint{Month: month, Value: ComputeAsymmetry(evs)})
	}
	return rti, ra
}

// RollingWindows slices the conversation into 30-day windows advancing by 7
// days and computes each window's asymmetry and per-person RTI from the
// events inside it alone (normalized against the whole conversation's median
// so windows are comparable to the lifetime baseline). Conversations
// spanning less than 30 days yield no windows; that is expected, not an
// error. A participant whose windowed median climbs past the anomaly factor
// times their own lifetime median, with enough samples in the window to mean
// anything, is flagged as a sudden slowdown. The baseline is deliberately
// the person's own lifetime median rather than the conversation-wide one: a
// participant who is always slow would otherwise trip the detector in every
// window, and a slowdown is a change relative to that person's habit.
func RollingWindows(events []ResponseEvent, firstMs, lastMs int64, opts Options) ([]SlidingWindow, []Anomaly) {
	// Non-nil even when empty so the document marshals as [] rather than null.
	windows := []SlidingWindow{}
	anomalies := []Anomaly{}
	if lastMs-firstMs < windowSpanMs || len(events) == 0 {
		return windows, anomalies
	}
	baseline := float64(clampInt64(medianInt64(latencies(events)), 1, math.MaxInt64))
	overall := personMedians(events)
	for start := firstMs; start+windowSpanMs <= lastMs; start += windowStepMs {
		end := start + windowSpanMs
		inWindow := eventsBetween(events, start, end)
		if len(inWindow) == 0 {
			continue
		}

		win := SlidingWindow{
			WindowStartMs: start,
			WindowEndMs:   end,
			RA:            ComputeAsymmetry(inWindow),
			RTI:           make(map[string]float64),
		}
		counts := make(map[string]int)
		for _, ev := range inWindow {
			counts[ev.Responder]++
		}
		windowMedians := personMedians(inWindow)
		for person, med := range windowMedians {
			win.RTI[person] = float64(med) / baseline
		}
		windows = append(windows, win)

		people := make([]string, 0, len(windowMedians))
		for person := range windowMedians {
			people = append(people, person)
		}
		sort.Strings(people)
		for _, person := range people {
			if counts[person] < opts.AnomalyMinSamples {
				continue
			}
			ratio := float64(windowMedians[person]) /
				float64(clampInt64(overall[person], 1, math.MaxInt64))
			if ratio > opts.AnomalyFactor {
				anomalies = append(anomalies, Anomaly{
					Type:      AnomalySuddenSlowdown,
					Person:    person,
					Window:    win,
					Magnitude: ratio,
				})
			}
		}
	}
	return windows, anomalies
}

// eventsBetween returns events with start <= RespondedAtMs < end, relying on
// the event slice being in chronological order.
func eventsBetween(events []ResponseEvent, start, end int64) []ResponseEvent {
	lo := sort.Search(len(events), func(i int) bool { return events[i].RespondedAtMs >= start })
	hi := sort.Search(len(events), func(i int) bool { return events[i].RespondedAtMs >= end })
	return events[lo:hi]
}
