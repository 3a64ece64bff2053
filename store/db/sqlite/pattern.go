package sqlite

import (
	"context"
	"strings"

	"github.com/pkg/errors"

	"github.com/hrygo/kokoro/store"
)

// CreatePattern stores a new pattern.
func (d *DB) CreatePattern(ctx context.Context, create *store.Pattern) (*store.Pattern, error) {
	stmt := `
		INSERT INTO pattern (source_turn_id, label, response_text, effectiveness, created_ts)
		VALUES (?, ?, ?, ?, ?)
		RETURNING id
	`
	if err := d.db.QueryRowContext(ctx, stmt,
		create.SourceTurnID,
		create.Label,
		create.ResponseText,
		create.Effectiveness,
		create.CreatedTs,
	).Scan(&create.ID); err != nil {
		return nil, errors.Wrap(err, "failed to create pattern")
	}
	return create, nil
}

// ListPatterns lists patterns ordered by effectiveness descending, then recency.
func (d *DB) ListPatterns(ctx context.Context, find *store.FindPattern) ([]*store.Pattern, error) {
	where, args := []string{"1 = 1"}, []any{}

	if find.Label != nil {
		where, args = append(where, "label = ?"), append(args, *find.Label)
	}
	if find.SourceTurnID != nil {
		where, args = append(where, "source_turn_id = ?"), append(args, *find.SourceTurnID)
	}

	query := `
		SELECT id, source_turn_id, label, response_text, effectiveness, created_ts
		FROM pattern
		WHERE ` + strings.Join(where, " AND ") + `
		ORDER BY effectiveness DESC, created_ts DESC
	`
	if find.Limit != nil {
		query += " LIMIT ?"
		args = append(args, *find.Limit)
	}

	rows, err := d.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, errors.Wrap(err, "failed to list patterns")
	}
	defer rows.Close()

	list := []*store.Pattern{}
	for rows.Next() {
		var pattern store.Pattern
		if err := rows.Scan(
			&pattern.ID,
			&pattern.SourceTurnID,
			&pattern.Label,
			&pattern.ResponseText,
			&pattern.Effectiveness,
			&pattern.CreatedTs,
		); err != nil {
			return nil, errors.Wrap(err, "failed to scan pattern")
		}
		list = append(list, &pattern)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return list, nil
}

// UpdatePatternEffectiveness overwrites the effectiveness of the pattern tied
// to a companion turn. Returns the number of rows touched.
func (d *DB) UpdatePatternEffectiveness(ctx context.Context, update *store.UpdatePatternEffectiveness) (int64, error) {
	stmt := `UPDATE pattern SET effectiveness = ? WHERE source_turn_id = ?`
	result, err := d.db.ExecContext(ctx, stmt, update.Effectiveness, update.SourceTurnID)
	if err != nil {
		return 0, errors.Wrap(err, "failed to update pattern effectiveness")
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return 0, errors.Wrap(err, "failed to read rows affected")
	}
	return rows, nil
}
