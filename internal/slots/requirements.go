package slots

import "strings"

// Requirement is one required parameter of an intent. A requirement with
// several keys is an alternation group: it is satisfied when any of its
// keys carries a value (a class can be referenced by level or by name).
type Requirement struct {
	Keys []string
}

// Label renders the requirement for a clarification prompt.
func (r Requirement) Label() string {
	return strings.Join(r.Keys, " or ")
}

// Satisfied reports whether any of the requirement's keys has a non-empty
// value in the slot map.
func (r Requirement) Satisfied(collected map[string]any) bool {
	for _, k := range r.Keys {
		if v, ok := collected[k]; ok && !isEmptyValue(v) {
			return true
		}
	}
	return false
}

// requiredByIntent indexes required-slot specifications by intent. Intents
// absent from the map need no parameters and dispatch immediately.
var requiredByIntent = map[string][]Requirement{
	"create_class": {
		{Keys: []string{"name"}},
		{Keys: []string{"level"}},
		{Keys: []string{"academic_year"}},
	},
	"set_fee_amount": {
		{Keys: []string{"amount"}},
		{Keys: []string{"level", "class_name"}},
	},
	"fee_balance": {
		{Keys: []string{"student_id", "student_name"}},
	},
	"generate_invoices": {
		{Keys: []string{"term"}},
	},
	"register_student": {
		{Keys: []string{"student_name"}},
		{Keys: []string{"level", "class_name"}},
	},
}

// Missing returns the labels of the intent's unsatisfied requirements, in
// specification order.
func Missing(intent string, collected map[string]any) []string {
	var missing []string
	for _, req := range requiredByIntent[intent] {
		if !req.Satisfied(collected) {
			missing = append(missing, req.Label())
		}
	}
	return missing
}

// entityDescriptions feeds the model classifier's entity schema.
var entityDescriptions = map[string]string{
	"name":          "class name, e.g. Grade 5 West",
	"class_name":    "class name, e.g. Grade 5 West",
	"level":         "class level, e.g. Grade 3 or Form 2",
	"academic_year": "four digit academic year, e.g. 2026",
	"amount":        "money amount in school currency",
	"fee_type":      "fee category, e.g. Tuition or Transport",
	"term":          "school term, e.g. Term 1",
	"student_id":    "student admission number",
	"student_name":  "student full name",
}

// EntitySchema returns the entity schema for an intent, or every known
// entity when the intent has no slots of its own.
func EntitySchema(intent string) map[string]string {
	keys := intentSlots[intent]
	if len(keys) == 0 {
		return entityDescriptions
	}
	schema := make(map[string]string, len(keys))
	for _, k := range keys {
		if desc, ok := entityDescriptions[k]; ok {
			schema[k] = desc
		}
	}
	return schema
}
