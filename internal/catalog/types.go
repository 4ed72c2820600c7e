package catalog

import "time"

// VersionStatus is the lifecycle state of a config version.
type VersionStatus string

const (
	StatusActive    VersionStatus = "ACTIVE"
	StatusCandidate VersionStatus = "CANDIDATE"
	StatusArchived  VersionStatus = "ARCHIVED"
)

// ConfigVersion identifies one deployable bundle of patterns and templates.
// The store guarantees at most one ACTIVE version at a time.
type ConfigVersion struct {
	ID          string
	Name        string
	Status      VersionStatus
	ActivatedAt *time.Time
	CreatedAt   time.Time
}

// PatternKind partitions classification rules by role.
type PatternKind string

const (
	// KindPositive patterns trigger an intent when matched.
	KindPositive PatternKind = "POSITIVE"
	// KindNegative patterns veto a positive match for the same intent.
	KindNegative PatternKind = "NEGATIVE"
	// KindSynonym patterns are consulted by slot extraction to normalize
	// matched text into a canonical slot value. For synonym rows the
	// Intent column names the slot they populate.
	KindSynonym PatternKind = "SYNONYM"
)

// Pattern is one classification rule within a config version.
type Pattern struct {
	ID            string
	VersionID     string
	Handler       string
	Intent        string
	Kind          PatternKind
	Pattern       string
	Canonical     string // synonym rows only: the canonical slot value
	Priority      int
	Enabled       bool
	ScopeSchoolID string
	CreatedAt     time.Time
}

// PromptTemplate is a text template keyed by (handler, intent) or, when
// intent-agnostic, by (handler, template type).
type PromptTemplate struct {
	ID           string
	VersionID    string
	Handler      string
	Intent       string
	TemplateType string
	Body         string
	Enabled      bool
	CreatedAt    time.Time
}
