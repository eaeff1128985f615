package latency

// Analyze runs the full pipeline with DefaultOptions. See AnalyzeWithOptions.
func Analyze(msgs []Message, participants []string) (*Metrics, error) {
	return AnalyzeWithOptions(msgs, participants, DefaultOptions())
}

// AnalyzeWithOptions derives the complete latency metrics record for an
// ordered message log: turns, the adaptive session gap, response events,
// per-person distributions, normalized indices and the monthly/windowed
// trend series, strictly in that dependency order. It returns
// ErrInsufficientData when the conversation is too sparse to say anything
// with confidence; the result is otherwise fully populated, never partial.
func AnalyzeWithOptions(msgs []Message, participants []string, opts Options) (*Metrics, error) {
	if opts.Location == nil {
		opts.Location = DefaultOptions().Location
	}
	if len(msgs) < MinMessages {
		return nil, ErrInsufficientData
	}

	turns := BuildTurns(msgs)
	sessionGap := AdaptiveSessionGap(msgs)
	responses := ExtractResponses(turns, opts.Location)
	if len(responses) < MinResponses {
		return nil, ErrInsufficientData
	}

	monthlyRTI, monthlyRA := MonthlyTrends(responses, opts.Location, participants)
	windows, anomalies := RollingWindows(responses,
		msgs[0].TimestampMs, msgs[len(msgs)-1].TimestampMs, opts)

	return &Metrics{
		AdaptiveSessionGapMs:   sessionGap,
		Turns:                  turns,
		Responses:              responses,
		PerPerson:              AggregateStats(responses, opts.KeepOvernightInBaselines),
		RTI:                    ComputeRTI(responses, participants),
		ResponseAsymmetry:      ComputeAsymmetry(responses),
		ResponseAsymmetryTrend: AsymmetryTrend(responses, opts.TrendThreshold),
		GhostingIndex:          ComputeGhosting(turns, sessionGap, participants),
		InitiativeRatio:        ComputeInitiative(msgs, sessionGap, participants),
		EWRT:                   ComputeEWRT(responses, opts.EWRTHalfLife, participants),
		MonthlyRTI:             monthlyRTI,
		MonthlyRA:              monthlyRA,
		SlidingWindows:         windows,
		Anomalies:              anomalies,
	}, nil
}
