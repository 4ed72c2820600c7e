package catalog

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/shulebot/shulebot/internal/db"
)

// Store manages persistence of config versions, patterns and templates.
// The routing engine only reads; writes happen through the administrative
// import path.
type Store struct {
	db *db.DB
}

// NewStore creates a new catalog store.
func NewStore(database *db.DB) *Store {
	return &Store{db: database}
}

// GetActiveVersion returns the single ACTIVE config version, or nil if no
// version is currently active.
func (s *Store) GetActiveVersion(ctx context.Context) (*ConfigVersion, error) {
	var v ConfigVersion
	var activatedAt sql.NullTime
	err := s.db.QueryRowContext(ctx,
		`SELECT id, name, status, activated_at, created_at
		 FROM config_versions WHERE status = 'ACTIVE' LIMIT 1`,
	).Scan(&v.ID, &v.Name, &v.Status, &activatedAt, &v.CreatedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("querying active version: %w", err)
	}
	if activatedAt.Valid {
		v.ActivatedAt = &activatedAt.Time
	}
	return &v, nil
}

// GetVersion retrieves a config version by ID.
func (s *Store) GetVersion(ctx context.Context, id string) (*ConfigVersion, error) {
	var v ConfigVersion
	var activatedAt sql.NullTime
	err := s.db.QueryRowContext(ctx,
		`SELECT id, name, status, activated_at, created_at FROM config_versions WHERE id = ?`, id,
	).Scan(&v.ID, &v.Name, &v.Status, &activatedAt, &v.CreatedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("querying version: %w", err)
	}
	if activatedAt.Valid {
		v.ActivatedAt = &activatedAt.Time
	}
	return &v, nil
}

// ListEnabledPatterns returns the enabled patterns of a version ordered by
// priority descending, then insertion order. This ordering is the tie-break
// contract the rule classifier relies on.
func (s *Store) ListEnabledPatterns(ctx context.Context, versionID string) ([]Pattern, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, version_id, handler, intent, kind, pattern, canonical, priority, enabled, COALESCE(scope_school_id, ''), created_at
		 FROM patterns WHERE version_id = ? AND enabled = 1
		 ORDER BY priority DESC, created_at ASC, id ASC`,
		versionID,
	)
	if err != nil {
		return nil, fmt.Errorf("querying patterns: %w", err)
	}
	defer rows.Close()

	var patterns []Pattern
	for rows.Next() {
		var p Pattern
		if err := rows.Scan(&p.ID, &p.VersionID, &p.Handler, &p.Intent, &p.Kind, &p.Pattern, &p.Canonical, &p.Priority, &p.Enabled, &p.ScopeSchoolID, &p.CreatedAt); err != nil {
			return nil, fmt.Errorf("scanning pattern: %w", err)
		}
		patterns = append(patterns, p)
	}
	return patterns, rows.Err()
}

// ListEnabledTemplates returns the enabled prompt templates of a version.
func (s *Store) ListEnabledTemplates(ctx context.Context, versionID string) ([]PromptTemplate, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, version_id, handler, intent, template_type, body, enabled, created_at
		 FROM prompt_templates WHERE version_id = ? AND enabled = 1
		 ORDER BY created_at ASC`,
		versionID,
	)
	if err != nil {
		return nil, fmt.Errorf("querying templates: %w", err)
	}
	defer rows.Close()

	var templates []PromptTemplate
	for rows.Next() {
		var t PromptTemplate
		if err := rows.Scan(&t.ID, &t.VersionID, &t.Handler, &t.Intent, &t.TemplateType, &t.Body, &t.Enabled, &t.CreatedAt); err != nil {
			return nil, fmt.Errorf("scanning template: %w", err)
		}
		templates = append(templates, t)
	}
	return templates, rows.Err()
}

// CreateVersion inserts a new CANDIDATE config version.
func (s *Store) CreateVersion(ctx context.Context, name string) (*ConfigVersion, error) {
	v := ConfigVersion{
		ID:        uuid.New().String(),
		Name:      name,
		Status:    StatusCandidate,
		CreatedAt: time.Now().UTC(),
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO config_versions (id, name, status, created_at) VALUES (?, ?, ?, ?)`,
		v.ID, v.Name, v.Status, v.CreatedAt,
	)
	if err != nil {
		return nil, fmt.Errorf("creating version: %w", err)
	}
	return &v, nil
}

// InsertPattern adds a pattern row to a version.
func (s *Store) InsertPattern(ctx context.Context, p Pattern) (*Pattern, error) {
	if p.ID == "" {
		p.ID = uuid.New().String()
	}
	if p.CreatedAt.IsZero() {
		p.CreatedAt = time.Now().UTC()
	}
	var scope interface{}
	if p.ScopeSchoolID != "" {
		scope = p.ScopeSchoolID
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO patterns (id, version_id, handler, intent, kind, pattern, canonical, priority, enabled, scope_school_id, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		p.ID, p.VersionID, p.Handler, p.Intent, p.Kind, p.Pattern, p.Canonical, p.Priority, p.Enabled, scope, p.CreatedAt,
	)
	if err != nil {
		return nil, fmt.Errorf("inserting pattern: %w", err)
	}
	return &p, nil
}

// InsertTemplate adds a prompt template row to a version.
func (s *Store) InsertTemplate(ctx context.Context, t PromptTemplate) (*PromptTemplate, error) {
	if t.ID == "" {
		t.ID = uuid.New().String()
	}
	if t.CreatedAt.IsZero() {
		t.CreatedAt = time.Now().UTC()
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO prompt_templates (id, version_id, handler, intent, template_type, body, enabled, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		t.ID, t.VersionID, t.Handler, t.Intent, t.TemplateType, t.Body, t.Enabled, t.CreatedAt,
	)
	if err != nil {
		return nil, fmt.Errorf("inserting template: %w", err)
	}
	return &t, nil
}

// ActivateVersion promotes a version to ACTIVE, archiving any previously
// active version in the same transaction.
func (s *Store) ActivateVersion(ctx context.Context, id string) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning activation: %w", err)
	}
	defer tx.Rollback()

	now := time.Now().UTC()
	if _, err := tx.ExecContext(ctx,
		`UPDATE config_versions SET status = 'ARCHIVED' WHERE status = 'ACTIVE'`); err != nil {
		return fmt.Errorf("archiving active version: %w", err)
	}

	res, err := tx.ExecContext(ctx,
		`UPDATE config_versions SET status = 'ACTIVE', activated_at = ? WHERE id = ?`, now, id)
	if err != nil {
		return fmt.Errorf("activating version: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("checking activation: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("version not found: %s", id)
	}

	return tx.Commit()
}
