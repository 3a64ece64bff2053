package sqlite

import (
	"context"
	"strings"

	"github.com/pkg/errors"

	"github.com/hrygo/kokoro/store"
)

// CreateTurn appends a turn and returns it with its assigned ID.
func (d *DB) CreateTurn(ctx context.Context, create *store.Turn) (*store.Turn, error) {
	stmt := `
		INSERT INTO turn (user_id, speaker, text, created_ts)
		VALUES (?, ?, ?, ?)
		RETURNING id
	`
	if err := d.db.QueryRowContext(ctx, stmt,
		create.UserID,
		create.Speaker,
		create.Text,
		create.CreatedTs,
	).Scan(&create.ID); err != nil {
		return nil, errors.Wrap(err, "failed to create turn")
	}
	return create, nil
}

// ListTurns lists turns matching the find condition.
func (d *DB) ListTurns(ctx context.Context, find *store.FindTurn) ([]*store.Turn, error) {
	where, args := []string{"1 = 1"}, []any{}

	if find.UserID != nil {
		where, args = append(where, "user_id = ?"), append(args, *find.UserID)
	}
	if find.CreatedAfter != nil {
		where, args = append(where, "created_ts > ?"), append(args, *find.CreatedAfter)
	}

	order := "ASC"
	if find.OrderDesc {
		order = "DESC"
	}
	query := `
		SELECT id, user_id, speaker, text, created_ts
		FROM turn
		WHERE ` + strings.Join(where, " AND ") + `
		ORDER BY created_ts ` + order + `, id ` + order
	if find.Limit != nil {
		query += " LIMIT ?"
		args = append(args, *find.Limit)
	}

	rows, err := d.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, errors.Wrap(err, "failed to list turns")
	}
	defer rows.Close()

	list := []*store.Turn{}
	for rows.Next() {
		var turn store.Turn
		if err := rows.Scan(
			&turn.ID,
			&turn.UserID,
			&turn.Speaker,
			&turn.Text,
			&turn.CreatedTs,
		); err != nil {
			return nil, errors.Wrap(err, "failed to scan turn")
		}
		list = append(list, &turn)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return list, nil
}
