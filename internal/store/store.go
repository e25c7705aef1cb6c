// Package store keeps a SQLite audit log of generation attempts: outcome,
// phase reached and the reconciliation counters. The log exists for
// operators; nothing in the pipeline reads it back.
package store

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"

	"pagecraft/internal/generate"
	"pagecraft/internal/template"
)

// Store persists attempt records to a local SQLite database.
type Store struct {
	db *sql.DB
}

// Open creates or opens the database at path and prepares the schema.
func Open(path string) (*Store, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, fmt.Errorf("failed to create directory: %w", err)
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	s := &Store{db: db}
	if err := s.initialize(); err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

func (s *Store) initialize() error {
	schema := `
	CREATE TABLE IF NOT EXISTS attempts (
		id TEXT PRIMARY KEY,
		template_id TEXT NOT NULL,
		kind TEXT NOT NULL,
		phase TEXT NOT NULL,
		model_calls INTEGER NOT NULL,
		outcome TEXT NOT NULL,
		prompt_hash TEXT,
		raw_hash TEXT,
		restored_sections INTEGER DEFAULT 0,
		dropped_extra_sections INTEGER DEFAULT 0,
		restored_image_slots INTEGER DEFAULT 0,
		upgraded_base_sections INTEGER DEFAULT 0,
		dropped_upgraded_base_sections INTEGER DEFAULT 0,
		started_at DATETIME NOT NULL,
		duration_ms INTEGER NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_attempts_template ON attempts(template_id);
	CREATE INDEX IF NOT EXISTS idx_attempts_outcome ON attempts(outcome);
	`
	if _, err := s.db.Exec(schema); err != nil {
		return fmt.Errorf("failed to create schema: %w", err)
	}
	return nil
}

// RecordAttempt inserts one finished attempt.
func (s *Store) RecordAttempt(ctx context.Context, a *generate.Attempt) error {
	var restored, droppedExtra, imageSlots, upgraded, droppedUpgraded int
	if r := a.Report; r != nil {
		restored = r.RestoredSections
		droppedExtra = r.DroppedExtraSections
		imageSlots = r.RestoredImageSlots
		upgraded = r.UpgradedBaseSections
		droppedUpgraded = r.DroppedUpgradedBaseSections
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO attempts (
			id, template_id, kind, phase, model_calls, outcome,
			prompt_hash, raw_hash,
			restored_sections, dropped_extra_sections, restored_image_slots,
			upgraded_base_sections, dropped_upgraded_base_sections,
			started_at, duration_ms
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		a.ID, a.TemplateID, string(a.Kind), string(a.Phase), a.ModelCalls, a.Outcome,
		a.PromptHash, a.RawHash,
		restored, droppedExtra, imageSlots, upgraded, droppedUpgraded,
		a.StartedAt.UTC(), a.Duration.Milliseconds())
	if err != nil {
		return fmt.Errorf("failed to record attempt: %w", err)
	}
	return nil
}

// AttemptRow is one persisted attempt, counters flattened.
type AttemptRow struct {
	ID         string
	TemplateID string
	Kind       template.Kind
	Phase      generate.Phase
	ModelCalls int
	Outcome    string
	PromptHash string
	RawHash    string
	Report     template.Report
	StartedAt  time.Time
	Duration   time.Duration
}

// Attempts returns the most recent attempts, newest first.
func (s *Store) Attempts(ctx context.Context, limit int) ([]AttemptRow, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, template_id, kind, phase, model_calls, outcome,
			prompt_hash, raw_hash,
			restored_sections, dropped_extra_sections, restored_image_slots,
			upgraded_base_sections, dropped_upgraded_base_sections,
			started_at, duration_ms
		FROM attempts
		ORDER BY started_at DESC
		LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query attempts: %w", err)
	}
	defer rows.Close()

	var out []AttemptRow
	for rows.Next() {
		var r AttemptRow
		var kind, phase string
		var durationMS int64
		err := rows.Scan(&r.ID, &r.TemplateID, &kind, &phase, &r.ModelCalls, &r.Outcome,
			&r.PromptHash, &r.RawHash,
			&r.Report.RestoredSections, &r.Report.DroppedExtraSections,
			&r.Report.RestoredImageSlots, &r.Report.UpgradedBaseSections,
			&r.Report.DroppedUpgradedBaseSections,
			&r.StartedAt, &durationMS)
		if err != nil {
			return nil, fmt.Errorf("failed to scan attempt: %w", err)
		}
		r.Kind = template.Kind(kind)
		r.Phase = generate.Phase(phase)
		r.Duration = time.Duration(durationMS) * time.Millisecond
		out = append(out, r)
	}
	return out, rows.Err()
}

// Close closes the underlying database.
func (s *Store) Close() error {
	return s.db.Close()
}

var _ generate.Recorder = (*Store)(nil)
