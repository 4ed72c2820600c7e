package classify

// Sentinel intents emitted by the model classifier when no real decision
// could be produced. They are never members of a handler's intent set.
const (
	IntentUnknown = "unknown"
	IntentTimeout = "timeout"
	IntentError   = "error"
)

// Alternative is a lower-ranked intent candidate.
type Alternative struct {
	Intent     string  `json:"intent"`
	Confidence float64 `json:"confidence"`
}

// Result is a classification decision. Rule matches carry confidence 1.0
// and the pattern that fired; model results are probabilistic.
type Result struct {
	Intent       string         `json:"intent"`
	Confidence   float64        `json:"confidence"`
	Entities     map[string]any `json:"entities,omitempty"`
	Alternatives []Alternative  `json:"alternatives,omitempty"`
	Err          string         `json:"error,omitempty"`

	// MatchedPattern records which positive pattern produced a rule match.
	MatchedPattern string `json:"matched_pattern,omitempty"`
}

// clamp bounds a confidence value to [0,1].
func clamp(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
