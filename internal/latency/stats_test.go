package latency

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAggregateStatsDistribution(t *testing.T) {
	events := []ResponseEvent{
		{Responder: "bob", LatencyMs: 60_000, HourOfDay: 10, DayOfWeek: 1},
		{Responder: "bob", LatencyMs: 120_000, HourOfDay: 10, DayOfWeek: 1},
		{Responder: "bob", LatencyMs: 300_000, HourOfDay: 14, DayOfWeek: 2},
		{Responder: "alice", LatencyMs: 30_000, HourOfDay: 9, DayOfWeek: 1},
	}

	stats := AggregateStats(events, false)
	require.Contains(t, stats, "bob")
	require.Contains(t, stats, "alice")

	bob := stats["bob"]
	assert.Equal(t, 3, bob.SampleSize)
	assert.Equal(t, int64(120_000), bob.MedianMs)
	assert.InDelta(t, 160_000, bob.MeanMs, 0.1)
	assert.Equal(t, int64(60_000), bob.FastestMs)
	assert.Equal(t, int64(300_000), bob.SlowestMs)
	assert.Equal(t, int64(90_000), bob.PerHourMedianMs[10])
	assert.Equal(t, int64(300_000), bob.PerHourMedianMs[14])
	assert.Equal(t, int64(0), bob.PerHourMedianMs[3])
	assert.Equal(t, int64(90_000), bob.PerDowMedianMs[1])
	assert.Equal(t, int64(300_000), bob.PerDowMedianMs[2])

	alice := stats["alice"]
	assert.Equal(t, 1, alice.SampleSize)
	assert.Equal(t, int64(30_000), alice.MedianMs)
}

func TestAggregateStatsOvernightPolicy(t *testing.T) {
	overnight := int64(9 * time.Hour / time.Millisecond)
	events := []ResponseEvent{
		{Responder: "bob", LatencyMs: 60_000, HourOfDay: 10, DayOfWeek: 1},
		{Responder: "bob", LatencyMs: overnight, HourOfDay: 8, DayOfWeek: 2, IsOvernight: true},
	}

	// Default policy: the overnight event still counts toward the overall
	// distribution but stays out of the hour/dow baselines.
	excluded := AggregateStats(events, false)["bob"]
	assert.Equal(t, 2, excluded.SampleSize)
	assert.Equal(t, overnight, excluded.SlowestMs)
	assert.Equal(t, int64(0), excluded.PerHourMedianMs[8])
	assert.Equal(t, int64(0), excluded.PerDowMedianMs[2])

	kept := AggregateStats(events, true)["bob"]
	assert.Equal(t, overnight, kept.PerHourMedianMs[8])
	assert.Equal(t, overnight, kept.PerDowMedianMs[2])
}

func TestMedianInt64(t *testing.T) {
	tests := []struct {
		name   string
		values []int64
		want   int64
	}{
		{"empty", nil, 0},
		{"single", []int64{7}, 7},
		{"odd count", []int64{5, 1, 9}, 5},
		{"even count averages middles", []int64{4, 1, 3, 2}, 2},
		{"unsorted input untouched", []int64{100, 10, 50}, 50},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			original := append([]int64(nil), tt.values...)
			assert.Equal(t, tt.want, medianInt64(tt.values))
			assert.Equal(t, original, tt.values)
		})
	}
}
