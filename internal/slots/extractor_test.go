package slots

import (
	"reflect"
	"regexp"
	"testing"

	"github.com/shulebot/shulebot/internal/catalog"
)

func TestExtractCreateClassFullUtterance(t *testing.T) {
	got := Extract("create_class", "Grade 5 West for 2026", nil)

	if got["level"] != "Grade 5" {
		t.Errorf("expected level 'Grade 5', got %v", got["level"])
	}
	if got["name"] != "Grade 5 West" {
		t.Errorf("expected name 'Grade 5 West', got %v", got["name"])
	}
	if got["academic_year"] != 2026 {
		t.Errorf("expected academic_year 2026, got %v", got["academic_year"])
	}
}

func TestExtractCreateClassBareRequest(t *testing.T) {
	got := Extract("create_class", "create a class", nil)
	if len(got) != 0 {
		t.Errorf("expected no slots from a bare request, got %v", got)
	}
}

func TestExtractSetFeeAmount(t *testing.T) {
	got := Extract("set_fee_amount", "set Grade 3 tuition to 15000", nil)

	if got["amount"] != 15000.0 {
		t.Errorf("expected amount 15000, got %v", got["amount"])
	}
	if got["level"] != "Grade 3" {
		t.Errorf("expected level 'Grade 3', got %v", got["level"])
	}
	if _, ok := got["class_name"]; ok {
		t.Errorf("'tuition' must not be mistaken for a class name, got %v", got["class_name"])
	}
}

func TestExtractAmountWithSeparators(t *testing.T) {
	got := Extract("set_fee_amount", "transport fee for form 2 is 12,500.50", nil)
	if got["amount"] != 12500.50 {
		t.Errorf("expected amount 12500.50, got %v", got["amount"])
	}
	if got["level"] != "Form 2" {
		t.Errorf("expected level 'Form 2', got %v", got["level"])
	}
}

func TestExtractAmountIgnoresYears(t *testing.T) {
	got := Extract("set_fee_amount", "fees for 2026", nil)
	if _, ok := got["amount"]; ok {
		t.Errorf("a calendar year is not an amount, got %v", got["amount"])
	}
}

func TestExtractSynonymNormalization(t *testing.T) {
	synonyms := []catalog.CompiledSynonym{
		{Slot: "fee_type", Canonical: "Tuition", Regex: regexp.MustCompile(`(?i)school fees|tuition`)},
		{Slot: "fee_type", Canonical: "Transport", Regex: regexp.MustCompile(`(?i)bus fees|transport`)},
	}

	got := Extract("set_fee_amount", "set grade 1 school fees to 9000", synonyms)
	if got["fee_type"] != "Tuition" {
		t.Errorf("expected fee_type 'Tuition', got %v", got["fee_type"])
	}

	// Synonyms for slots the intent does not own are ignored.
	got = Extract("create_class", "school fees class", synonyms)
	if _, ok := got["fee_type"]; ok {
		t.Error("fee_type must not be extracted for create_class")
	}
}

func TestExtractGenerateInvoices(t *testing.T) {
	got := Extract("generate_invoices", "generate invoices for term one 2026", nil)
	if got["term"] != "Term 1" {
		t.Errorf("expected 'Term 1', got %v", got["term"])
	}
	if got["academic_year"] != 2026 {
		t.Errorf("expected 2026, got %v", got["academic_year"])
	}

	got = Extract("generate_invoices", "invoice everyone for term 3", nil)
	if got["term"] != "Term 3" {
		t.Errorf("expected 'Term 3', got %v", got["term"])
	}
}

func TestExtractStudentIdentifiers(t *testing.T) {
	got := Extract("fee_balance", "fee balance for ADM-1042", nil)
	if got["student_id"] != "ADM-1042" {
		t.Errorf("expected 'ADM-1042', got %v", got["student_id"])
	}

	got = Extract("fee_balance", "balance for student Jane Wanjiku", nil)
	if got["student_name"] != "Jane Wanjiku" {
		t.Errorf("expected 'Jane Wanjiku', got %v", got["student_name"])
	}
}

func TestExtractStudentNameStopsAtPlacement(t *testing.T) {
	got := Extract("register_student", "register a student called John into grade 4", nil)
	if got["student_name"] != "John" {
		t.Errorf("expected 'John', got %v", got["student_name"])
	}
	if got["level"] != "Grade 4" {
		t.Errorf("expected level 'Grade 4', got %v", got["level"])
	}
}

func TestExtractUnknownIntentYieldsNothing(t *testing.T) {
	got := Extract("greeting", "hello there grade 5", nil)
	if len(got) != 0 {
		t.Errorf("intents without slot rules must extract nothing, got %v", got)
	}
}

func TestMergePreservesAndOverwrites(t *testing.T) {
	collected := map[string]any{"level": "Grade 5", "name": "Grade 5 West"}
	extracted := map[string]any{"academic_year": 2026, "level": "", "name": "Grade 5 East"}

	merged := Merge(collected, extracted)

	if merged["academic_year"] != 2026 {
		t.Errorf("new slot must be added, got %v", merged["academic_year"])
	}
	if merged["level"] != "Grade 5" {
		t.Errorf("empty new value must not clobber, got %v", merged["level"])
	}
	if merged["name"] != "Grade 5 East" {
		t.Errorf("non-empty new value must overwrite, got %v", merged["name"])
	}

	// The inputs stay untouched.
	if collected["name"] != "Grade 5 West" {
		t.Error("merge must not mutate its input")
	}
}

func TestMergeIdempotent(t *testing.T) {
	extracted := Extract("create_class", "Grade 5 West for 2026", nil)
	once := Merge(map[string]any{}, extracted)
	twice := Merge(once, extracted)

	if !reflect.DeepEqual(once, twice) {
		t.Errorf("re-merging the same extraction must not change slots: %v vs %v", once, twice)
	}
}

func TestMissingRequirements(t *testing.T) {
	missing := Missing("create_class", map[string]any{})
	if len(missing) != 3 {
		t.Fatalf("expected 3 missing requirements, got %v", missing)
	}

	missing = Missing("create_class", map[string]any{"name": "Grade 5 West", "level": "Grade 5", "academic_year": 2026})
	if len(missing) != 0 {
		t.Errorf("expected nothing missing, got %v", missing)
	}
}

func TestMissingAlternationGroup(t *testing.T) {
	// Either key satisfies the group.
	missing := Missing("fee_balance", map[string]any{"student_name": "Jane"})
	if len(missing) != 0 {
		t.Errorf("student_name alone should satisfy the group, got %v", missing)
	}

	missing = Missing("fee_balance", map[string]any{})
	if len(missing) != 1 || missing[0] != "student_id or student_name" {
		t.Errorf("expected the alternation label, got %v", missing)
	}
}

func TestMissingIntentWithoutRequirements(t *testing.T) {
	if missing := Missing("student_count", map[string]any{}); len(missing) != 0 {
		t.Errorf("student_count needs no slots, got %v", missing)
	}
}

func TestEntitySchemaScopedToIntent(t *testing.T) {
	schema := EntitySchema("fee_balance")
	if len(schema) != 2 {
		t.Errorf("expected 2 entities for fee_balance, got %v", schema)
	}
	if _, ok := schema["student_id"]; !ok {
		t.Error("expected student_id in schema")
	}
}
