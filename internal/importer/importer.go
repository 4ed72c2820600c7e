package importer

import (
	"context"
	"fmt"
	"os"
	"regexp"
	"sort"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/schollz/progressbar/v3"
	"gopkg.in/yaml.v3"

	"github.com/shulebot/shulebot/internal/catalog"
)

// rulesFile is the YAML document one import file contains.
type rulesFile struct {
	Version   string        `yaml:"version"`
	Patterns  []patternRow  `yaml:"patterns"`
	Templates []templateRow `yaml:"templates"`
}

type patternRow struct {
	Handler       string `yaml:"handler"`
	Intent        string `yaml:"intent"`
	Kind          string `yaml:"kind"`
	Pattern       string `yaml:"pattern"`
	Canonical     string `yaml:"canonical"`
	Priority      *int   `yaml:"priority"`
	Enabled       *bool  `yaml:"enabled"`
	ScopeSchoolID string `yaml:"scope_school_id"`
}

type templateRow struct {
	Handler string `yaml:"handler"`
	Intent  string `yaml:"intent"`
	Type    string `yaml:"type"`
	Body    string `yaml:"body"`
	Enabled *bool  `yaml:"enabled"`
}

// Summary reports what one import produced.
type Summary struct {
	VersionID   string
	VersionName string
	Files       int
	Patterns    int
	Templates   int
	Activated   bool
}

// Options control one import run.
type Options struct {
	// VersionName overrides the name found in the files; required when the
	// files carry none.
	VersionName string
	// Activate promotes the imported version immediately.
	Activate bool
	// ShowProgress renders a progress bar across the matched files.
	ShowProgress bool
}

// Importer bulk-loads pattern and template rows from YAML files into the
// config store as a new CANDIDATE version.
type Importer struct {
	store *catalog.Store
}

// New creates an importer over the catalog store.
func New(store *catalog.Store) *Importer {
	return &Importer{store: store}
}

// Import expands the glob, parses every matched file and writes all rows
// under a single new config version. The whole batch is validated before the
// version is created, so a malformed file never leaves a half-imported
// version behind.
func (im *Importer) Import(ctx context.Context, glob string, opts Options) (*Summary, error) {
	files, err := doublestar.FilepathGlob(glob)
	if err != nil {
		return nil, fmt.Errorf("expanding glob %q: %w", glob, err)
	}
	if len(files) == 0 {
		return nil, fmt.Errorf("no files match %q", glob)
	}
	sort.Strings(files)

	name := opts.VersionName
	var patterns []catalog.Pattern
	var templates []catalog.PromptTemplate

	for _, file := range files {
		parsed, err := parseFile(file)
		if err != nil {
			return nil, err
		}
		if name == "" {
			name = parsed.Version
		}
		for i, row := range parsed.Patterns {
			p, err := row.toPattern()
			if err != nil {
				return nil, fmt.Errorf("%s: pattern %d: %w", file, i+1, err)
			}
			patterns = append(patterns, p)
		}
		for i, row := range parsed.Templates {
			t, err := row.toTemplate()
			if err != nil {
				return nil, fmt.Errorf("%s: template %d: %w", file, i+1, err)
			}
			templates = append(templates, t)
		}
	}

	if name == "" {
		return nil, fmt.Errorf("no version name given and none found in the files")
	}
	if len(patterns) == 0 && len(templates) == 0 {
		return nil, fmt.Errorf("the matched files contain no patterns or templates")
	}

	version, err := im.store.CreateVersion(ctx, name)
	if err != nil {
		return nil, err
	}

	var bar *progressbar.ProgressBar
	if opts.ShowProgress {
		bar = progressbar.Default(int64(len(patterns)+len(templates)), "importing rules")
	}

	for _, p := range patterns {
		p.VersionID = version.ID
		if _, err := im.store.InsertPattern(ctx, p); err != nil {
			return nil, err
		}
		if bar != nil {
			bar.Add(1)
		}
	}
	for _, t := range templates {
		t.VersionID = version.ID
		if _, err := im.store.InsertTemplate(ctx, t); err != nil {
			return nil, err
		}
		if bar != nil {
			bar.Add(1)
		}
	}

	summary := &Summary{
		VersionID:   version.ID,
		VersionName: version.Name,
		Files:       len(files),
		Patterns:    len(patterns),
		Templates:   len(templates),
	}

	if opts.Activate {
		if err := im.store.ActivateVersion(ctx, version.ID); err != nil {
			return summary, fmt.Errorf("imported as %s but activation failed: %w", version.ID, err)
		}
		summary.Activated = true
	}
	return summary, nil
}

func parseFile(path string) (*rulesFile, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", path, err)
	}
	var parsed rulesFile
	if err := yaml.Unmarshal(raw, &parsed); err != nil {
		return nil, fmt.Errorf("parsing %s: %w", path, err)
	}
	return &parsed, nil
}

func (r patternRow) toPattern() (catalog.Pattern, error) {
	kind := catalog.PatternKind(r.Kind)
	switch kind {
	case catalog.KindPositive, catalog.KindNegative, catalog.KindSynonym:
	default:
		return catalog.Pattern{}, fmt.Errorf("unknown kind %q", r.Kind)
	}
	if r.Handler == "" || r.Intent == "" {
		return catalog.Pattern{}, fmt.Errorf("handler and intent are required")
	}
	if _, err := regexp.Compile("(?i)" + r.Pattern); err != nil {
		return catalog.Pattern{}, fmt.Errorf("invalid pattern %q: %w", r.Pattern, err)
	}
	if kind == catalog.KindSynonym && r.Canonical == "" {
		return catalog.Pattern{}, fmt.Errorf("synonym rows need a canonical value")
	}

	priority := 100
	if r.Priority != nil {
		priority = *r.Priority
	}
	enabled := true
	if r.Enabled != nil {
		enabled = *r.Enabled
	}
	return catalog.Pattern{
		Handler:       r.Handler,
		Intent:        r.Intent,
		Kind:          kind,
		Pattern:       r.Pattern,
		Canonical:     r.Canonical,
		Priority:      priority,
		Enabled:       enabled,
		ScopeSchoolID: r.ScopeSchoolID,
	}, nil
}

func (r templateRow) toTemplate() (catalog.PromptTemplate, error) {
	if r.Handler == "" {
		return catalog.PromptTemplate{}, fmt.Errorf("handler is required")
	}
	if r.Body == "" {
		return catalog.PromptTemplate{}, fmt.Errorf("body is required")
	}
	enabled := true
	if r.Enabled != nil {
		enabled = *r.Enabled
	}
	return catalog.PromptTemplate{
		Handler:      r.Handler,
		Intent:       r.Intent,
		TemplateType: r.Type,
		Body:         r.Body,
		Enabled:      enabled,
	}, nil
}
