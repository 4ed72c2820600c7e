package slots

import (
	"regexp"
	"strconv"
	"strings"

	"github.com/shulebot/shulebot/internal/catalog"
)

// Pre-compiled lexical patterns for the school domain.
var (
	levelRe       = regexp.MustCompile(`(?i)\b(grade|standard|form)\s*(\d{1,2})\b`)
	classNameRe   = regexp.MustCompile(`(?i)\b((?:grade|standard|form)\s*\d{1,2}\s+[a-z]+)\b`)
	yearRe        = regexp.MustCompile(`\b(20\d{2})\b`)
	amountHintRe  = regexp.MustCompile(`(?i)(?:\bto\b|\bat\b|\bis\b|=)\s*(?:kes|ksh|usd|\$)?\s*(\d[\d,]*(?:\.\d+)?)`)
	amountBareRe  = regexp.MustCompile(`\d[\d,]*(?:\.\d+)?`)
	termRe        = regexp.MustCompile(`(?i)\bterm\s*(1|2|3|one|two|three)\b`)
	admissionRe   = regexp.MustCompile(`(?i)\b(?:adm|admission)(?:\s*(?:no\.?|number))?[-/ #:]*(\d{1,6})\b`)
	studentNameRe = regexp.MustCompile(`(?i)\b(?:student\s+(?:called|named)\s+|(?:called|named)\s+|for\s+student\s+|student\s+)([a-z]{2,}(?:\s+[a-z]{2,}){0,2})\b`)
)

// classNameStopwords are words that end a class name instead of belonging
// to it ("Grade 5 West for 2026" ends at "West").
var classNameStopwords = map[string]bool{
	"for": true, "in": true, "of": true, "to": true, "and": true,
	"the": true, "at": true, "on": true, "next": true, "this": true,
	"is": true, "with": true, "tuition": true, "fee": true, "fees": true,
	"class": true, "student": true, "students": true,
}

// intentSlots lists which slots each intent's extraction rules look for.
var intentSlots = map[string][]string{
	"create_class":      {"name", "level", "academic_year"},
	"list_classes":      {"academic_year"},
	"set_fee_amount":    {"amount", "level", "class_name", "fee_type"},
	"fee_balance":       {"student_id", "student_name"},
	"generate_invoices": {"term", "academic_year"},
	"register_student":  {"student_name", "level", "class_name"},
}

// Extract pulls the slots an intent cares about out of the raw utterance.
// It is a pure function: the synonym rules from the active catalog are
// passed in, never fetched. Slots the utterance does not mention are simply
// absent from the result.
func Extract(intent, utterance string, synonyms []catalog.CompiledSynonym) map[string]any {
	out := map[string]any{}

	wanted := map[string]bool{}
	for _, s := range intentSlots[intent] {
		wanted[s] = true
	}
	if len(wanted) == 0 {
		return out
	}

	if wanted["level"] {
		if v := extractLevel(utterance); v != "" {
			out["level"] = v
		}
	}
	if wanted["name"] || wanted["class_name"] {
		if v := extractClassName(utterance); v != "" {
			if wanted["name"] {
				out["name"] = v
			} else {
				out["class_name"] = v
			}
		}
	}
	if wanted["academic_year"] {
		if v, ok := extractYear(utterance); ok {
			out["academic_year"] = v
		}
	}
	if wanted["amount"] {
		if v, ok := extractAmount(utterance); ok {
			out["amount"] = v
		}
	}
	if wanted["term"] {
		if v := extractTerm(utterance); v != "" {
			out["term"] = v
		}
	}
	if wanted["student_id"] {
		if m := admissionRe.FindStringSubmatch(utterance); m != nil {
			out["student_id"] = "ADM-" + m[1]
		}
	}
	if wanted["student_name"] {
		if v := extractStudentName(utterance); v != "" {
			out["student_name"] = v
		}
	}

	// Synonym rules normalize free phrasing into canonical values, e.g.
	// "school fees" into fee_type=Tuition.
	for _, syn := range synonyms {
		if !wanted[syn.Slot] {
			continue
		}
		if _, present := out[syn.Slot]; present {
			continue
		}
		if syn.Regex.MatchString(utterance) {
			out[syn.Slot] = syn.Canonical
		}
	}

	return out
}

// Merge overlays newly extracted slots onto the slots collected so far.
// Existing values are preserved; a new value only wins when it is non-empty.
func Merge(collected, extracted map[string]any) map[string]any {
	merged := make(map[string]any, len(collected)+len(extracted))
	for k, v := range collected {
		merged[k] = v
	}
	for k, v := range extracted {
		if isEmptyValue(v) {
			continue
		}
		merged[k] = v
	}
	return merged
}

func isEmptyValue(v any) bool {
	if v == nil {
		return true
	}
	if s, ok := v.(string); ok {
		return strings.TrimSpace(s) == ""
	}
	return false
}

func extractLevel(utterance string) string {
	m := levelRe.FindStringSubmatch(utterance)
	if m == nil {
		return ""
	}
	return titleWords(m[1]) + " " + m[2]
}

func extractClassName(utterance string) string {
	m := classNameRe.FindStringSubmatch(utterance)
	if m == nil {
		return ""
	}
	words := strings.Fields(m[1])
	last := strings.ToLower(words[len(words)-1])
	if classNameStopwords[last] {
		return ""
	}
	return titleWords(m[1])
}

func extractYear(utterance string) (int, bool) {
	m := yearRe.FindStringSubmatch(utterance)
	if m == nil {
		return 0, false
	}
	year, err := strconv.Atoi(m[1])
	if err != nil {
		return 0, false
	}
	return year, true
}

// extractAmount prefers a number introduced by "to"/"at"/a currency marker,
// then falls back to the last standalone number that does not look like a
// calendar year.
func extractAmount(utterance string) (float64, bool) {
	if m := amountHintRe.FindStringSubmatch(utterance); m != nil {
		if v, err := parseAmount(m[1]); err == nil {
			return v, true
		}
	}

	var candidate string
	for _, tok := range amountBareRe.FindAllString(utterance, -1) {
		digits := strings.ReplaceAll(tok, ",", "")
		if len(digits) < 3 {
			continue
		}
		if yearRe.MatchString(digits) {
			continue
		}
		candidate = tok
	}
	if candidate == "" {
		return 0, false
	}
	v, err := parseAmount(candidate)
	if err != nil {
		return 0, false
	}
	return v, true
}

func parseAmount(s string) (float64, error) {
	return strconv.ParseFloat(strings.ReplaceAll(s, ",", ""), 64)
}

// nameStopwords cut a captured person name short ("register student John
// in Grade 4" must yield just "John").
var nameStopwords = map[string]bool{
	"in": true, "to": true, "for": true, "of": true, "into": true,
	"grade": true, "standard": true, "form": true, "class": true,
	"with": true, "and": true, "the": true,
}

func extractStudentName(utterance string) string {
	m := studentNameRe.FindStringSubmatch(utterance)
	if m == nil {
		return ""
	}
	var kept []string
	for _, w := range strings.Fields(m[1]) {
		if nameStopwords[strings.ToLower(w)] {
			break
		}
		kept = append(kept, w)
	}
	if len(kept) == 0 {
		return ""
	}
	return titleWords(strings.Join(kept, " "))
}

func extractTerm(utterance string) string {
	m := termRe.FindStringSubmatch(utterance)
	if m == nil {
		return ""
	}
	switch strings.ToLower(m[1]) {
	case "one":
		return "Term 1"
	case "two":
		return "Term 2"
	case "three":
		return "Term 3"
	default:
		return "Term " + m[1]
	}
}

func titleWords(s string) string {
	words := strings.Fields(strings.ToLower(s))
	for i, w := range words {
		words[i] = strings.ToUpper(w[:1]) + w[1:]
	}
	return strings.Join(words, " ")
}
