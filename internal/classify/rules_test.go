package classify

import (
	"testing"
	"time"

	"github.com/shulebot/shulebot/internal/catalog"
)

func buildCatalog(t *testing.T, patterns []catalog.Pattern) *catalog.Catalog {
	t.Helper()
	v := &catalog.ConfigVersion{ID: "v1", Name: "test", Status: catalog.StatusActive, CreatedAt: time.Now()}
	return catalog.Build(v, patterns, nil)
}

func TestRuleClassifierPriorityOrder(t *testing.T) {
	cat := buildCatalog(t, []catalog.Pattern{
		{ID: "p1", Handler: "students", Intent: "student_count", Kind: catalog.KindPositive, Pattern: `student.*count|how many.*student`, Priority: 180, Enabled: true},
		{ID: "p2", Handler: "general", Intent: "unknown", Kind: catalog.KindPositive, Pattern: `what is`, Priority: 10, Enabled: true},
	})

	rc := NewRuleClassifier()
	res := rc.Classify("how many students do we have?", cat)
	if res == nil {
		t.Fatal("expected a rule match")
	}
	if res.Intent != "student_count" {
		t.Errorf("expected student_count, got %s", res.Intent)
	}
	if res.Confidence != 1.0 {
		t.Errorf("rule matches are authoritative, expected confidence 1.0, got %f", res.Confidence)
	}
	if res.MatchedPattern == "" {
		t.Error("expected the matched pattern in the trace")
	}
}

func TestRuleClassifierNegativeVetoFallsThrough(t *testing.T) {
	// Both positives match; the higher-priority one is vetoed, so
	// evaluation must continue to the lower-priority candidate.
	cat := buildCatalog(t, []catalog.Pattern{
		{ID: "p1", Intent: "fee_balance", Kind: catalog.KindPositive, Pattern: `balance`, Priority: 200, Enabled: true},
		{ID: "p2", Intent: "fee_statement", Kind: catalog.KindPositive, Pattern: `fee`, Priority: 100, Enabled: true},
		{ID: "n1", Intent: "fee_balance", Kind: catalog.KindNegative, Pattern: `leave balance`, Priority: 100, Enabled: true},
	})

	rc := NewRuleClassifier()
	res := rc.Classify("show the leave balance fee report", cat)
	if res == nil {
		t.Fatal("expected the lower-priority candidate to survive")
	}
	if res.Intent != "fee_statement" {
		t.Errorf("expected fee_statement after veto, got %s", res.Intent)
	}
}

func TestRuleClassifierVetoIsIntentLocal(t *testing.T) {
	// A negative pattern for another intent must not veto this candidate.
	cat := buildCatalog(t, []catalog.Pattern{
		{ID: "p1", Intent: "student_count", Kind: catalog.KindPositive, Pattern: `how many students`, Priority: 100, Enabled: true},
		{ID: "n1", Intent: "fee_balance", Kind: catalog.KindNegative, Pattern: `how many`, Priority: 100, Enabled: true},
	})

	rc := NewRuleClassifier()
	res := rc.Classify("how many students are enrolled", cat)
	if res == nil || res.Intent != "student_count" {
		t.Fatalf("cross-intent negative must not veto, got %+v", res)
	}
}

func TestRuleClassifierAllCandidatesVetoed(t *testing.T) {
	cat := buildCatalog(t, []catalog.Pattern{
		{ID: "p1", Intent: "fee_balance", Kind: catalog.KindPositive, Pattern: `balance`, Priority: 100, Enabled: true},
		{ID: "n1", Intent: "fee_balance", Kind: catalog.KindNegative, Pattern: `balance`, Priority: 100, Enabled: true},
	})

	rc := NewRuleClassifier()
	if res := rc.Classify("what is my balance", cat); res != nil {
		t.Errorf("expected nil when every candidate is vetoed, got %+v", res)
	}
}

func TestRuleClassifierEmptyCatalogReturnsNil(t *testing.T) {
	rc := NewRuleClassifier()
	if res := rc.Classify("hello", catalog.Empty()); res != nil {
		t.Errorf("empty catalog must yield nil, got %+v", res)
	}
}

func TestRuleClassifierBlankUtterance(t *testing.T) {
	cat := buildCatalog(t, []catalog.Pattern{
		{ID: "p1", Intent: "anything", Kind: catalog.KindPositive, Pattern: `.*`, Priority: 10, Enabled: true},
	})
	rc := NewRuleClassifier()
	if res := rc.Classify("   ", cat); res != nil {
		t.Errorf("blank utterance must not match, got %+v", res)
	}
}

func TestRuleClassifierCaseInsensitive(t *testing.T) {
	cat := buildCatalog(t, []catalog.Pattern{
		{ID: "p1", Intent: "student_count", Kind: catalog.KindPositive, Pattern: `how many.*student`, Priority: 100, Enabled: true},
	})
	rc := NewRuleClassifier()
	res := rc.Classify("HOW MANY Students?", cat)
	if res == nil || res.Intent != "student_count" {
		t.Fatalf("expected case-insensitive match, got %+v", res)
	}
}
