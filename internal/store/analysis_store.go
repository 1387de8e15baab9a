package store

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/vbonduro/recipelens/internal/domain"
)

const (
	DefaultListLimit = 20
	MaxListLimit     = 200
)

// AnalysisStore is the append-only journal of settled submissions.
type AnalysisStore struct {
	db *sql.DB
}

func NewAnalysisStore(db *sql.DB) *AnalysisStore {
	return &AnalysisStore{db: db}
}

func (s *AnalysisStore) Record(ctx context.Context, a *domain.Analysis) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO analyses (id, session_id, backend, servings, outcome, dish_name, duration_ms, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`, a.ID, a.SessionID, a.Backend, a.Servings, string(a.Outcome), a.DishName, a.DurationMS, a.CreatedAt.UTC())
	if err != nil {
		return fmt.Errorf("failed to record analysis: %w", err)
	}
	return nil
}

// ListRecent returns up to limit entries, newest first. limit is clamped to
// [1, MaxListLimit]; zero or less means DefaultListLimit.
func (s *AnalysisStore) ListRecent(ctx context.Context, limit int) ([]*domain.Analysis, error) {
	switch {
	case limit <= 0:
		limit = DefaultListLimit
	case limit > MaxListLimit:
		limit = MaxListLimit
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT id, session_id, backend, servings, outcome, dish_name, duration_ms, created_at
		FROM analyses
		ORDER BY created_at DESC, rowid DESC
		LIMIT ?
	`, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list analyses: %w", err)
	}
	defer rows.Close()

	analyses := []*domain.Analysis{}
	for rows.Next() {
		a := &domain.Analysis{}
		var outcome string
		if err := rows.Scan(&a.ID, &a.SessionID, &a.Backend, &a.Servings, &outcome, &a.DishName, &a.DurationMS, &a.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan analysis: %w", err)
		}
		a.Outcome = domain.Outcome(outcome)
		analyses = append(analyses, a)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating analyses: %w", err)
	}

	return analyses, nil
}

// CountByOutcome tallies every journal entry by outcome.
func (s *AnalysisStore) CountByOutcome(ctx context.Context) (map[domain.Outcome]int, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT outcome, COUNT(*) FROM analyses GROUP BY outcome
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to count analyses: %w", err)
	}
	defer rows.Close()

	counts := make(map[domain.Outcome]int)
	for rows.Next() {
		var outcome string
		var n int
		if err := rows.Scan(&outcome, &n); err != nil {
			return nil, fmt.Errorf("failed to scan outcome count: %w", err)
		}
		counts[domain.Outcome(outcome)] = n
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating outcome counts: %w", err)
	}

	return counts, nil
}
