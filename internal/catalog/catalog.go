package catalog

import (
	"log"
	"regexp"
)

// CompiledPattern is a pattern whose regex has been compiled for matching.
type CompiledPattern struct {
	Pattern
	Regex *regexp.Regexp
}

// CompiledSynonym is a synonym rule ready for slot normalization. Slot is
// the slot key the rule populates and Canonical the value it yields.
type CompiledSynonym struct {
	Slot      string
	Canonical string
	Regex     *regexp.Regexp
}

// Counters summarizes what a catalog contains.
type Counters struct {
	Positives int
	Negatives int
	Synonyms  int
	Templates int
}

// Catalog is the read-only view of one config version's enabled rules.
// It is built once per reload and never mutated afterwards, so concurrent
// readers need no locking.
type Catalog struct {
	VersionID   string
	VersionName string

	positives []CompiledPattern            // priority desc, insertion order on ties
	negatives map[string][]CompiledPattern // keyed by intent
	synonyms  []CompiledSynonym
	templates map[string]PromptTemplate
	counts    Counters
}

// Empty returns the sentinel catalog served when no config version is
// active. Classification against it always falls through to the model.
func Empty() *Catalog {
	return &Catalog{
		negatives: map[string][]CompiledPattern{},
		templates: map[string]PromptTemplate{},
	}
}

// Build compiles one version's enabled patterns and templates into an
// immutable catalog. Patterns must already be ordered by priority descending
// (the store guarantees this). Rows with invalid regexes are skipped with a
// warning rather than failing the whole reload.
func Build(version *ConfigVersion, patterns []Pattern, templates []PromptTemplate) *Catalog {
	c := &Catalog{
		VersionID:   version.ID,
		VersionName: version.Name,
		negatives:   map[string][]CompiledPattern{},
		templates:   map[string]PromptTemplate{},
	}

	seenPriorities := map[int]string{} // priority -> intent, enabled positives only
	for _, p := range patterns {
		re, err := regexp.Compile("(?i)" + p.Pattern)
		if err != nil {
			log.Printf("catalog: skipping invalid pattern %s (%s/%s): %v", p.ID, p.Handler, p.Intent, err)
			continue
		}
		switch p.Kind {
		case KindPositive:
			if prev, ok := seenPriorities[p.Priority]; ok && prev != p.Intent {
				log.Printf("catalog: positive patterns for intents %q and %q share priority %d; insertion order breaks the tie", prev, p.Intent, p.Priority)
			} else {
				seenPriorities[p.Priority] = p.Intent
			}
			c.positives = append(c.positives, CompiledPattern{Pattern: p, Regex: re})
			c.counts.Positives++
		case KindNegative:
			c.negatives[p.Intent] = append(c.negatives[p.Intent], CompiledPattern{Pattern: p, Regex: re})
			c.counts.Negatives++
		case KindSynonym:
			c.synonyms = append(c.synonyms, CompiledSynonym{Slot: p.Intent, Canonical: p.Canonical, Regex: re})
			c.counts.Synonyms++
		default:
			log.Printf("catalog: skipping pattern %s with unknown kind %q", p.ID, p.Kind)
		}
	}

	for _, t := range templates {
		c.templates[templateKey(t.Handler, t.Intent, t.TemplateType)] = t
		c.counts.Templates++
	}

	return c
}

func templateKey(handler, intent, templateType string) string {
	return handler + "\x00" + intent + "\x00" + templateType
}

// Positives returns the enabled positive patterns in evaluation order.
func (c *Catalog) Positives() []CompiledPattern {
	return c.positives
}

// NegativesFor returns the negative patterns scoped to the given intent.
func (c *Catalog) NegativesFor(intent string) []CompiledPattern {
	return c.negatives[intent]
}

// Synonyms returns the synonym rules for slot normalization.
func (c *Catalog) Synonyms() []CompiledSynonym {
	return c.synonyms
}

// Template looks up a prompt template for (handler, intent), falling back
// to the intent-agnostic (handler, templateType) entry.
func (c *Catalog) Template(handler, intent, templateType string) (PromptTemplate, bool) {
	if t, ok := c.templates[templateKey(handler, intent, "")]; ok {
		return t, true
	}
	t, ok := c.templates[templateKey(handler, "", templateType)]
	return t, ok
}

// IsEmpty reports whether the catalog has no classification rules at all.
func (c *Catalog) IsEmpty() bool {
	return len(c.positives) == 0 && len(c.negatives) == 0 && len(c.synonyms) == 0
}

// Counts returns the catalog's summary counters.
func (c *Catalog) Counts() Counters {
	return c.counts
}
