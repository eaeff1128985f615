// Package latency reconstructs conversational turns from an ordered message
// log and derives normalized response-latency indices (RTI, asymmetry,
// ghosting, initiative, recency-weighted latency) plus time-windowed trend
// and anomaly series. The package is pure: no I/O, no clocks, no state
// between calls. Running it twice on the same input yields identical output.
package latency

import (
	"errors"
	"time"
)

// ErrInsufficientData is returned when the conversation is too sparse for
// statistically meaningful indices (fewer than MinMessages messages or fewer
// than MinResponses cross-sender response events). It is a low-confidence
// gate, not a failure; callers branch with errors.Is.
var ErrInsufficientData = errors.New("latency: insufficient data")

const (
	// MinMessages is the minimum message count before any indices are computed.
	MinMessages = 30
	// MinResponses is the minimum number of cross-sender response events.
	MinResponses = 10

	// burstThresholdMs splits same-sender message runs into separate turns.
	burstThresholdMs = int64(2 * time.Minute / time.Millisecond)

	// Bounds for the adaptive session gap.
	sessionGapFloorMs    = int64(15 * time.Minute / time.Millisecond)
	sessionGapCeilMs     = int64(2 * time.Hour / time.Millisecond)
	gapFilterCeilingMs   = int64(time.Hour / time.Millisecond)
	sessionGapMultiplier = 2.0

	// Response category boundaries.
	instantCeilMs = int64(30 * time.Second / time.Millisecond)
	quickCeilMs   = int64(2 * time.Minute / time.Millisecond)
	normalCeilMs  = int64(15 * time.Minute / time.Millisecond)
)

// Message is one entry of the normalized message log produced upstream.
// The log is ordered by timestamp and senders are drawn from the participant
// list; the engine assumes well-formed input and does not re-validate it.
type Message struct {
	Index       int    `json:"index"`
	Sender      string `json:"sender"`
	TimestampMs int64  `json:"timestampMs"`
	Content     string `json:"content"`
}

// Turn is a maximal run of messages from one sender where consecutive gaps
// stay under the burst threshold.
type Turn struct {
	Sender           string `json:"sender"`
	StartIndex       int    `json:"startIndex"`
	EndIndex         int    `json:"endIndex"`
	StartTimestampMs int64  `json:"startTimestampMs"`
	EndTimestampMs   int64  `json:"endTimestampMs"`
	MessageCount     int    `json:"messageCount"`
}

// Category buckets a response latency.
type Category string

const (
	CategoryInstant Category = "instant" // < 30s
	CategoryQuick   Category = "quick"   // < 2min
	CategoryNormal  Category = "normal"  // < 15min
	CategorySlow    Category = "slow"    // >= 15min
)

// ResponseEvent is a cross-sender turn transition. Latency is measured from
// the end of the prior turn to the start of the responding turn.
type ResponseEvent struct {
	Responder     string   `json:"responder"`
	LatencyMs     int64    `json:"latencyMs"`
	RespondedAtMs int64    `json:"respondedAtMs"`
	Category      Category `json:"category"`
	IsOvernight   bool     `json:"isOvernight"`
	HourOfDay     int      `json:"hourOfDay"`
	DayOfWeek     int      `json:"dayOfWeek"` // 0 = Sunday
}

// PersonStats is the per-responder latency distribution. PerHourMedianMs and
// PerDowMedianMs hold zero for buckets with no samples.
type PersonStats struct {
	SampleSize      int       `json:"sampleSize"`
	MedianMs        int64     `json:"medianMs"`
	MeanMs          float64   `json:"meanMs"`
	FastestMs       int64     `json:"fastestMs"`
	SlowestMs       int64     `json:"slowestMs"`
	PerHourMedianMs [24]int64 `json:"perHourMedianMs"`
	PerDowMedianMs  [7]int64  `json:"perDowMedianMs"`
}

// TrendLabel classifies how response asymmetry moves over the conversation.
type TrendLabel string

const (
	TrendDiverging  TrendLabel = "diverging"
	TrendConverging TrendLabel = "converging"
	TrendStable     TrendLabel = "stable"
)

// MonthPoint is one entry of a monthly index series. Month is "YYYY-MM".
type MonthPoint struct {
	Month string  `json:"month"`
	Value float64 `json:"value"`
}

// SlidingWindow is one rolling 30-day slice of the conversation with indices
// computed from the events inside it only.
type SlidingWindow struct {
	WindowStartMs int64              `json:"windowStart"`
	WindowEndMs   int64              `json:"windowEnd"`
	RA            float64            `json:"ra"`
	RTI           map[string]float64 `json:"rti,omitempty"`
}

// AnomalyType names a detected shift. Only sudden slowdowns are emitted.
type AnomalyType string

const AnomalySuddenSlowdown AnomalyType = "sudden_slowdown"

// Anomaly marks a sliding window where a participant's windowed median
// latency exceeded the configured multiple of their lifetime median.
// Magnitude is that ratio.
type Anomaly struct {
	Type      AnomalyType   `json:"type"`
	Person    string        `json:"person"`
	Window    SlidingWindow `json:"window"`
	Magnitude float64       `json:"magnitude"`
}

// Metrics is the fully-populated analysis result. It is only produced whole;
// sparse conversations yield ErrInsufficientData instead.
type Metrics struct {
	AdaptiveSessionGapMs   int64                   `json:"adaptiveSessionGapMs"`
	Turns                  []Turn                  `json:"turns"`
	Responses              []ResponseEvent         `json:"responses"`
	PerPerson              map[string]PersonStats  `json:"perPerson"`
	RTI                    map[string]float64      `json:"rti"`
	ResponseAsymmetry      float64                 `json:"responseAsymmetry"`
	ResponseAsymmetryTrend TrendLabel              `json:"responseAsymmetryTrend"`
	GhostingIndex          map[string]float64      `json:"ghostingIndex"`
	InitiativeRatio        map[string]float64      `json:"initiativeRatio"`
	EWRT                   map[string]float64      `json:"ewrt"`
	MonthlyRTI             map[string][]MonthPoint `json:"monthlyRti"`
	MonthlyRA              []MonthPoint            `json:"monthlyRa"`
	SlidingWindows         []SlidingWindow         `json:"slidingWindows"`
	Anomalies              []Anomaly               `json:"anomalies"`
}

// Options are the engine tunables. The zero value is not usable; start from
// DefaultOptions.
type Options struct {
	// Location is the time zone used for hour-of-day, day-of-week and
	// overnight bucketing.
	Location *time.Location

	// EWRTHalfLife is the number of responses after which an observation's
	// weight halves in the recency-weighted latency. The exact smoothing
	// constant is an implementation parameter; the default keeps an
	// effective memory of roughly the last month of a daily texter.
	EWRTHalfLife int

	// TrendThreshold is the relative change in response asymmetry between
	// the early and late halves of the conversation that counts as material.
	TrendThreshold float64

	// AnomalyFactor flags a sliding window when a participant's windowed
	// median latency exceeds this multiple of their lifetime median.
	AnomalyFactor float64

	// AnomalyMinSamples is the minimum number of a participant's events a
	// window must hold before it can be flagged.
	AnomalyMinSamples int

	// KeepOvernightInBaselines includes overnight-flagged events in the
	// per-hour/per-dow histograms. They are excluded by default so sleep
	// latency does not distort daytime responsiveness curves.
	KeepOvernightInBaselines bool
}

// DefaultOptions returns the documented engine defaults. Hours are bucketed
// in UTC; callers analyzing a log captured in a known local zone should set
// Location accordingly.
func DefaultOptions() Options {
	return Options{
		Location:          time.UTC,
		EWRTHalfLife:      16,
		TrendThreshold:    0.125,
		AnomalyFactor:     2.5,
		AnomalyMinSamples: 3,
	}
}
