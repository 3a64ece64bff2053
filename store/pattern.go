package store

import (
	"context"

	"github.com/pkg/errors"
)

// Pattern is a learned (situation, response, effectiveness) triple used to
// bias future generation toward previously successful replies. A pattern is
// linked 1:1 to the companion turn it was produced for.
type Pattern struct {
	ID           int64
	SourceTurnID int64
	Label        string
	ResponseText string

	// Effectiveness in [-1,1]. Seeded from the sentiment of the user message
	// that triggered the response; overwritten (not blended) by explicit
	// feedback.
	Effectiveness float64

	CreatedTs int64
}

// FindPattern is the find condition for patterns. Results are ordered by
// effectiveness descending, ties broken by recency.
type FindPattern struct {
	Label        *string
	SourceTurnID *int64
	Limit        *int
}

// UpdatePatternEffectiveness overwrites the effectiveness of the pattern
// linked to a companion turn.
type UpdatePatternEffectiveness struct {
	SourceTurnID  int64
	Effectiveness float64
}

// CreatePattern stores a new pattern.
func (s *Store) CreatePattern(ctx context.Context, create *Pattern) (*Pattern, error) {
	if create.Effectiveness < -1 || create.Effectiveness > 1 {
		return nil, errors.Errorf("effectiveness out of range: %f", create.Effectiveness)
	}
	return s.driver.CreatePattern(ctx, create)
}

// ListPatterns lists patterns matching the find condition.
func (s *Store) ListPatterns(ctx context.Context, find *FindPattern) ([]*Pattern, error) {
	return s.driver.ListPatterns(ctx, find)
}

// UpdatePatternEffectiveness overwrites a pattern's effectiveness and returns
// the number of rows touched. Zero rows is not an error; feedback for a turn
// with no stored pattern is a no-op.
func (s *Store) UpdatePatternEffectiveness(ctx context.Context, update *UpdatePatternEffectiveness) (int64, error) {
	if update.Effectiveness < -1 || update.Effectiveness > 1 {
		return 0, errors.Errorf("effectiveness out of range: %f", update.Effectiveness)
	}
	return s.driver.UpdatePatternEffectiveness(ctx, update)
}
