package latency

import "time"

// overnightMaxGapMs bounds the overnight check to gaps that can actually fit
// inside one 23:00-08:00 window; anything longer reaches into the next day's
// daytime and is just a long silence.
const overnightMaxGapMs = int64(10 * time.Hour / time.Millisecond)

// ExtractResponses emits one ResponseEvent per adjacent turn pair with
// differing senders. Latency runs from the prior turn's last message to the
// responding turn's first. Same-sender adjacent turns (burst splits) produce
// no event. Overnight events are tagged, never dropped.
func ExtractResponses(turns []Turn, loc *time.Location) []ResponseEvent {
	if loc == nil {
		loc = time.UTC
	}

	events := make([]ResponseEvent, 0, len(turns))
	for i := 1; i < len(turns); i++ {
		prev, cur := turns[i-1], turns[i]
		if cur.Sender == prev.Sender {
			continue
		}
		latency := cur.StartTimestampMs - prev.EndTimestampMs
		if latency < 0 {
			latency = 0
		}
		respondedAt := time.UnixMilli(cur.StartTimestampMs).In(loc)
		events = append(events, ResponseEvent{
			Responder:     cur.Sender,
			LatencyMs:     latency,
			RespondedAtMs: cur.StartTimestampMs,
			Category:      categorize(latency),
			IsOvernight:   isOvernight(prev.EndTimestampMs, cur.StartTimestampMs, loc),
			HourOfDay:     respondedAt.Hour(),
			DayOfWeek:     int(respondedAt.Weekday()),
		})
	}
	return events
}

func categorize(latencyMs int64) Category {
	switch {
	case latencyMs < instantCeilMs:
		return CategoryInstant
	case latencyMs < quickCeilMs:
		return CategoryQuick
	case latencyMs < normalCeilMs:
		return CategoryNormal
	default:
		return CategorySlow
	}
}

// isOvernight reports whether the gap spans the 23:00-08:00 window: the
// prior message went out at or after 23:00 and the reply landed at or
// before 08:00 on the far side of midnight.
func isOvernight(prevEndMs, respStartMs int64, loc *time.Location) bool {
	gap := respStartMs - prevEndMs
	if gap <= 0 || gap > overnightMaxGapMs {
		return false
	}
	prev := time.UnixMilli(prevEndMs).In(loc)
	resp := time.UnixMilli(respStartMs).In(loc)
	if prev.Hour() < 23 || resp.Day() == prev.Day() {
		return false
	}
	return resp.Hour() < 8 || (resp.Hour() == 8 && resp.Minute() == 0 && resp.Second() == 0)
}
