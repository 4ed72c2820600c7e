package classify

import (
	"strings"

	"github.com/shulebot/shulebot/internal/catalog"
)

// RuleClassifier evaluates an utterance against a catalog's positive and
// negative patterns. It holds no state of its own; the catalog snapshot
// carries the rules.
type RuleClassifier struct{}

// NewRuleClassifier creates a rule classifier.
func NewRuleClassifier() *RuleClassifier {
	return &RuleClassifier{}
}

// Classify walks the enabled positive patterns in priority order and
// returns the first candidate that is not vetoed by a negative pattern for
// the same intent. A nil result means no rule fired and the caller should
// fall through to the model classifier. Rule matches are authoritative:
// confidence is always 1.0.
func (rc *RuleClassifier) Classify(utterance string, cat *catalog.Catalog) *Result {
	lower := strings.ToLower(strings.TrimSpace(utterance))
	if lower == "" {
		return nil
	}

	for _, p := range cat.Positives() {
		if !p.Regex.MatchString(lower) {
			continue
		}
		if vetoed(lower, cat.NegativesFor(p.Intent)) {
			// A veto discards this candidate only; lower-priority
			// positives still get their turn.
			continue
		}
		return &Result{
			Intent:         p.Intent,
			Confidence:     1.0,
			Entities:       map[string]any{},
			MatchedPattern: p.Pattern.Pattern,
		}
	}

	return nil
}

func vetoed(lower string, negatives []catalog.CompiledPattern) bool {
	for _, n := range negatives {
		if n.Regex.MatchString(lower) {
			return true
		}
	}
	return false
}
