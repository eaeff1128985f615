package latency

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMonthlyTrends(t *testing.T) {
	// Daily exchanges across January and February.
	start := time.Date(2025, 1, 10, 12, 0, 0, 0, time.UTC)
	msgs := dailyConversation(start, 50, 3*time.Minute)
	events := ExtractResponses(BuildTurns(msgs), time.UTC)

	rti, ra := MonthlyTrends(events, time.UTC, testParticipants)

	require.Len(t, ra, 2)
	assert.Equal(t, "2025-01", ra[0].Month)
	assert.Equal(t, "2025-02", ra[1].Month)
	for _, point := range ra {
		assert.GreaterOrEqual(t, point.Value, 1.0)
	}

	require.Contains(t, rti, "alice")
	require.Contains(t, rti, "bob")
	assert.Len(t, rti["bob"], 2)
	for _, point := range rti["bob"] {
		assert.Greater(t, point.Value, 0.0)
	}
}

func TestMonthlyTrendsOrdered(t *testing.T) {
	start := time.Date(2024, 11, 20, 12, 0, 0, 0, time.UTC)
	msgs := dailyConversation(start, 80, 5*time.Minute)
	events := ExtractResponses(BuildTurns(msgs), time.UTC)

	_, ra := MonthlyTrends(events, time.UTC, testParticipants)
	require.NotEmpty(t, ra)
	for i := 1; i < len(ra); i++ {
		assert.Less(t, ra[i-1].Month, ra[i].Month)
	}
}

func TestRollingWindows90Days(t *testing.T) {
	msgs := dailyConversation(noonUTC(), 90, 3*time.Minute)
	events := ExtractResponses(BuildTurns(msgs), time.UTC)
	first, last := msgs[0].TimestampMs, msgs[len(msgs)-1].TimestampMs

	windows, _ := RollingWindows(events, first, last, DefaultOptions())
	require.NotEmpty(t, windows)
	for _, win := range windows {
		assert.Equal(t, windowSpanMs, win.WindowEndMs-win.WindowStartMs,
			"every window spans exactly 30 days")
		assert.GreaterOrEqual(t, win.RA, 1.0)
	}
}

func TestRollingWindowsShortConversation(t *testing.T) {
	msgs := pairedConversation(noonUTC(), 20, 3*time.Minute, 5*time.Minute)
	events := ExtractResponses(BuildTurns(msgs), time.UTC)
	first, last := msgs[0].TimestampMs, msgs[len(msgs)-1].TimestampMs

	windows, anomalies := RollingWindows(events, first, last, DefaultOptions())
	assert.Empty(t, windows, "a single-day conversation has no 30-day windows")
	assert.Empty(t, anomalies)
	assert.NotNil(t, windows, "empty, not nil, so the document marshals as []")
	assert.NotNil(t, anomalies)
}

func TestRollingWindowsDetectsSuddenSlowdown(t *testing.T) {
	// Two months of 2-minute replies from bob, then a month where he takes
	// half an hour: his windowed median blows past 2.5x his lifetime median.
	// Each day ends with alice, so the next day's opener is a burst split
	// rather than a monster overnight response event.
	b := newConversation(noonUTC())
	for i := 0; i < 90; i++ {
		reply := 2 * time.Minute
		if i >= 60 {
			reply = 30 * time.Minute
		}
		if i == 0 {
			b.add("alice", 0)
		} else {
			b.add("alice", 24*time.Hour)
		}
		b.add("bob", reply).add("alice", 2*time.Minute)
	}
	msgs := b.build()
	events := ExtractResponses(BuildTurns(msgs), time.UTC)
	first, last := msgs[0].TimestampMs, msgs[len(msgs)-1].TimestampMs

	_, anomalies := RollingWindows(events, first, last, DefaultOptions())
	require.NotEmpty(t, anomalies)
	found := false
	for _, a := range anomalies {
		assert.Equal(t, AnomalySuddenSlowdown, a.Type)
		assert.Greater(t, a.Magnitude, DefaultOptions().AnomalyFactor)
		if a.Person == "bob" {
			found = true
		}
	}
	assert.True(t, found, "bob's slowdown should be flagged")
}

func TestRollingWindowsSteadyConversationHasNoAnomalies(t *testing.T) {
	msgs := dailyConversation(noonUTC(), 90, 3*time.Minute)
	events := ExtractResponses(BuildTurns(msgs), time.UTC)
	first, last := msgs[0].TimestampMs, msgs[len(msgs)-1].TimestampMs

	_, anomalies := RollingWindows(events, first, last, DefaultOptions())
	assert.Empty(t, anomalies)
}
