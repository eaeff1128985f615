package latency

// BuildTurns groups consecutive same-sender messages into turns in one pass.
// A new turn starts when the sender changes or when a same-sender gap reaches
// the 2-minute burst threshold, so a self-reply 30s later extends the turn
// while one 3 minutes later opens a new turn.
func BuildTurns(msgs []Message) []Turn {
	if len(msgs) == 0 {
		return nil
	}

	turns := make([]Turn, 0, len(msgs)/2+1)
	current := turnFrom(msgs[0])

	for _, m := range msgs[1:] {
		sameSender := m.Sender == current.Sender
		withinBurst := m.TimestampMs-current.EndTimestampMs < burstThresholdMs
		if sameSender && withinBurst {
			current.EndIndex = m.Index
			current.EndTimestampMs = m.TimestampMs
			current.MessageCount++
			continue
		}
		turns = append(turns, current)
		current = turnFrom(m)
	}
	return append(turns, current)
}

func turnFrom(m Message) Turn {
	return Turn{
		Sender:           m.Sender,
		StartIndex:       m.Index,
		EndIndex:         m.Index,
		StartTimestampMs: m.TimestampMs,
		EndTimestampMs:   m.TimestampMs,
		MessageCount:     1,
	}
}
