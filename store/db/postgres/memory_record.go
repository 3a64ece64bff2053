package postgres

import (
	"context"

	"github.com/pgvector/pgvector-go"
	"github.com/pkg/errors"

	"github.com/hrygo/kokoro/store"
)

// AddMemoryRecord stores a consolidated memory with its embedding.
func (d *DB) AddMemoryRecord(ctx context.Context, create *store.MemoryRecord) (*store.MemoryRecord, error) {
	stmt := `
		INSERT INTO memory_record (uid, user_id, text, embedding, created_ts)
		VALUES (` + placeholders(5) + `)
		RETURNING id
	`
	vector := pgvector.NewVector(create.Embedding)
	if err := d.db.QueryRowContext(ctx, stmt,
		create.UID,
		create.UserID,
		create.Text,
		vector,
		create.CreatedTs,
	).Scan(&create.ID); err != nil {
		return nil, errors.Wrap(err, "failed to create memory record")
	}
	return create, nil
}

// SearchMemoryRecords returns the user's memories nearest to the query
// embedding, scored by cosine similarity.
func (d *DB) SearchMemoryRecords(ctx context.Context, search *store.SearchMemoryRecords) ([]*store.MemoryRecordWithScore, error) {
	if err := search.Validate(); err != nil {
		return nil, err
	}

	query := `
		SELECT
			id, uid, user_id, text, embedding, created_ts,
			1 - (embedding <=> $1) AS similarity
		FROM memory_record
		WHERE user_id = $2
		ORDER BY embedding <=> $1
		LIMIT $3
	`

	vector := pgvector.NewVector(search.Embedding)
	rows, err := d.db.QueryContext(ctx, query, vector, search.UserID, search.Limit)
	if err != nil {
		return nil, errors.Wrap(err, "failed to search memory records")
	}
	defer rows.Close()

	list := []*store.MemoryRecordWithScore{}
	for rows.Next() {
		var record store.MemoryRecord
		var embedding pgvector.Vector
		var score float32
		if err := rows.Scan(
			&record.ID,
			&record.UID,
			&record.UserID,
			&record.Text,
			&embedding,
			&record.CreatedTs,
			&score,
		); err != nil {
			return nil, errors.Wrap(err, "failed to scan memory record")
		}
		record.Embedding = embedding.Slice()
		list = append(list, &store.MemoryRecordWithScore{Record: &record, Score: score})
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return list, nil
}
