package sqlite

import (
	"context"
	"encoding/json"
	"math"
	"sort"

	"github.com/pkg/errors"

	"github.com/hrygo/kokoro/store"
)

// AddMemoryRecord appends one record to the user's namespace. The embedding
// is stored as a JSON array; SQLite has no native vector type.
func (d *DB) AddMemoryRecord(ctx context.Context, add *store.MemoryRecord) (*store.MemoryRecord, error) {
	raw, err := json.Marshal(add.Embedding)
	if err != nil {
		return nil, errors.Wrap(err, "failed to encode embedding")
	}

	stmt := `
		INSERT INTO memory_record (uid, user_id, text, embedding, created_ts)
		VALUES (?, ?, ?, ?, ?)
		RETURNING id
	`
	if err := d.db.QueryRowContext(ctx, stmt,
		add.UID,
		add.UserID,
		add.Text,
		string(raw),
		add.CreatedTs,
	).Scan(&add.ID); err != nil {
		return nil, errors.Wrap(err, "failed to add memory record")
	}
	return add, nil
}

// SearchMemoryRecords runs a brute-force cosine scan over the user's
// namespace. Acceptable for the single-user record counts SQLite serves;
// postgres pushes this into pgvector instead.
func (d *DB) SearchMemoryRecords(ctx context.Context, search *store.SearchMemoryRecords) ([]*store.MemoryRecordWithScore, error) {
	query := `
		SELECT id, uid, user_id, text, embedding, created_ts
		FROM memory_record
		WHERE user_id = ?
	`
	rows, err := d.db.QueryContext(ctx, query, search.UserID)
	if err != nil {
		return nil, errors.Wrap(err, "failed to search memory records")
	}
	defer rows.Close()

	scored := []*store.MemoryRecordWithScore{}
	for rows.Next() {
		var record store.MemoryRecord
		var raw string
		if err := rows.Scan(
			&record.ID,
			&record.UID,
			&record.UserID,
			&record.Text,
			&raw,
			&record.CreatedTs,
		); err != nil {
			return nil, errors.Wrap(err, "failed to scan memory record")
		}
		if err := json.Unmarshal([]byte(raw), &record.Embedding); err != nil {
			return nil, errors.Wrap(err, "failed to decode embedding")
		}
		scored = append(scored, &store.MemoryRecordWithScore{
			Record: &record,
			Score:  cosineSimilarity(search.Embedding, record.Embedding),
		})
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	sort.Slice(scored, func(i, j int) bool {
		return scored[i].Score > scored[j].Score
	})
	if len(scored) > search.Limit {
		scored = scored[:search.Limit]
	}
	return scored, nil
}

func cosineSimilarity(a, b []float32) float32 {
	if len(a) != len(b) || len(a) == 0 {
		return 0
	}
	var dot, normA, normB float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		normA += float64(a[i]) * float64(a[i])
		normB += float64(b[i]) * float64(b[i])
	}
	if normA == 0 || normB == 0 {
		return 0
	}
	return float32(dot / (math.Sqrt(normA) * math.Sqrt(normB)))
}
