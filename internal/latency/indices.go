package latency

import "math"

// Every index map below carries one key per input participant, zero-valued
// when that participant has no samples, so downstream consumers can key by
// the exact participant names they supplied.

// ComputeRTI normalizes each participant's median latency against the
// conversation-wide median across all response events. Two people who behave
// identically both land at 1.0; values above 1.0 mean slower than the
// conversation's norm.
func ComputeRTI(events []ResponseEvent, participants []string) map[string]float64 {
	global := float64(clampInt64(medianInt64(latencies(events)), 1, math.MaxInt64))
	medians := personMedians(events)

	rti := make(map[string]float64, len(participants))
	for _, p := range participants {
		if med, ok := medians[p]; ok {
			rti[p] = float64(med) / global
		} else {
			rti[p] = 0
		}
	}
	return rti
}

// ComputeAsymmetry returns the ratio of the slowest participant's median
// latency to the fastest's, always >= 1.0. With fewer than two responders
// there is nothing to compare and the conversation is reported symmetric.
func ComputeAsymmetry(events []ResponseEvent) float64 {
	medians := personMedians(events)
	if len(medians) < 2 {
		return 1.0
	}
	slowest, fastest := int64(0), int64(math.MaxInt64)
	for _, med := range medians {
		med = clampInt64(med, 1, math.MaxInt64)
		if med > slowest {
			slowest = med
		}
		if med < fastest {
			fastest = med
		}
	}
	return float64(slowest) / float64(fastest)
}

// AsymmetryTrend compares response asymmetry over the early half of the
// conversation against the late half. A relative increase beyond threshold
// is diverging, a matching decrease converging, anything else stable. Halves
// that cannot support an asymmetry measurement of their own yield stable.
func AsymmetryTrend(events []ResponseEvent, threshold float64) TrendLabel {
	if len(events) < 4 {
		return TrendStable
	}
	mid := len(events) / 2
	early := ComputeAsymmetry(events[:mid])
	late := ComputeAsymmetry(events[mid:])

	change := (late - early) / early
	switch {
	case change > threshold:
		return TrendDiverging
	case change < -threshold:
		return TrendConverging
	default:
		return TrendStable
	}
}

// ComputeGhosting returns, per participant, the fraction of their turns that
// never drew a cross-sender reply before the next session boundary or the
// end of the conversation. A trailing unanswered turn counts, so a value of
// exactly zero is not guaranteed even for attentive pairs.
func ComputeGhosting(turns []Turn, sessionGapMs int64, participants []string) map[string]float64 {
	total := make(map[string]int)
	unanswered := make(map[string]int)

	for i, turn := range turns {
		total[turn.Sender]++
		if !answeredWithinSession(turns, i, sessionGapMs) {
			unanswered[turn.Sender]++
		}
	}

	ghosting := make(map[string]float64, len(participants))
	for _, p := range participants {
		if total[p] == 0 {
			ghosting[p] = 0
			continue
		}
		ghosting[p] = float64(unanswered[p]) / float64(total[p])
	}
	return ghosting
}

// answeredWithinSession scans forward from turns[i] for a different sender
// before a gap of sessionGapMs closes the session.
func answeredWithinSession(turns []Turn, i int, sessionGapMs int64) bool {
	for j := i + 1; j < len(turns); j++ {
		if turns[j].StartTimestampMs-turns[j-1].EndTimestampMs >= sessionGapMs {
			return false
		}
		if turns[j].Sender != turns[i].Sender {
			return true
		}
	}
	return false
}

// ComputeInitiative returns the fraction of conversation sessions each
// participant opened, sessions being delimited by message gaps of at least
// the adaptive session gap. With two participants the ratios sum to 1.
func ComputeInitiative(msgs []Message, sessionGapMs int64, participants []string) map[string]float64 {
	openers := make(map[string]int)
	sessions := 0
	for i, m := range msgs {
		if i == 0 || m.TimestampMs-msgs[i-1].TimestampMs >= sessionGapMs {
			openers[m.Sender]++
			sessions++
		}
	}

	initiative := make(map[string]float64, len(participants))
	for _, p := range participants {
		if sessions == 0 {
			initiative[p] = 0
			continue
		}
		initiative[p] = float64(openers[p]) / float64(sessions)
	}
	return initiative
}

// ComputeEWRT computes an exponentially-weighted moving average of each
// participant's latencies in event order, so recent behavior dominates. The
// smoothing constant is derived from halfLife: after that many responses an
// observation's weight has halved.
func ComputeEWRT(events []ResponseEvent, halfLife int, participants []string) map[string]float64 {
	if halfLife <= 0 {
		halfLife = DefaultOptions().EWRTHalfLife
	}
	alpha := 1 - math.Pow(0.5, 1/float64(halfLife))

	ewma := make(map[string]float64)
	seen := make(map[string]bool)
	for _, ev := range events {
		x := float64(ev.LatencyMs)
		if !seen[ev.Responder] {
			ewma[ev.Responder] = x
			seen[ev.Responder] = true
			continue
		}
		ewma[ev.Responder] = alpha*x + (1-alpha)*ewma[ev.Responder]
	}

	out := make(map[string]float64, len(participants))
	for _, p := range participants {
		out[p] = ewma[p]
	}
	return out
}

func latencies(events []ResponseEvent) []int64 {
	out := make([]int64, len(events))
	for i, ev := range events {
		out[i] = ev.LatencyMs
	}
	return out
}

func personMedians(events []ResponseEvent) map[string]int64 {
	byPerson := make(map[string][]int64)
	for _, ev := range events {
		byPerson[ev.Responder] = append(byPerson[ev.Responder], ev.LatencyMs)
	}
	medians := make(map[string]int64, len(byPerson))
	for person, vals := range byPerson {
		medians[person] = medianInt64(vals)
	}
	return medians
}
