package postgres

import (
	"context"
	"fmt"

	"github.com/pkg/errors"
)

// Migrate creates the schema if it does not exist yet. Requires the pgvector
// extension for memory record similarity search.
func (d *DB) Migrate(ctx context.Context) error {
	stmts := []string{
		`CREATE EXTENSION IF NOT EXISTS vector`,
		`CREATE TABLE IF NOT EXISTS "user" (
			id BIGINT PRIMARY KEY,
			status TEXT NOT NULL DEFAULT 'trial',
			trial_start_ts BIGINT NOT NULL,
			trial_end_ts BIGINT NOT NULL,
			language TEXT NOT NULL DEFAULT 'en',
			affection INTEGER NOT NULL DEFAULT 50,
			trust INTEGER NOT NULL DEFAULT 50,
			happiness INTEGER NOT NULL DEFAULT 50,
			mood TEXT NOT NULL DEFAULT 'neutral',
			last_interaction_ts BIGINT NOT NULL DEFAULT 0,
			warned_threshold_sec INTEGER NOT NULL DEFAULT 0,
			activation_notice_sent BOOLEAN NOT NULL DEFAULT FALSE,
			last_consolidated_ts BIGINT NOT NULL DEFAULT 0,
			created_ts BIGINT NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS turn (
			id BIGSERIAL PRIMARY KEY,
			user_id BIGINT NOT NULL,
			speaker TEXT NOT NULL,
			text TEXT NOT NULL,
			created_ts BIGINT NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_turn_user_created ON turn (user_id, created_ts)`,
		`CREATE TABLE IF NOT EXISTS pattern (
			id BIGSERIAL PRIMARY KEY,
			source_turn_id BIGINT NOT NULL UNIQUE,
			label TEXT NOT NULL,
			response_text TEXT NOT NULL,
			effectiveness DOUBLE PRECISION NOT NULL,
			created_ts BIGINT NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_pattern_label ON pattern (label)`,
		fmt.Sprintf(`CREATE TABLE IF NOT EXISTS memory_record (
			id BIGSERIAL PRIMARY KEY,
			uid TEXT NOT NULL UNIQUE,
			user_id BIGINT NOT NULL,
			text TEXT NOT NULL,
			embedding vector(%d) NOT NULL,
			created_ts BIGINT NOT NULL
		)`, d.profile.EmbeddingDimensions),
		`CREATE INDEX IF NOT EXISTS idx_memory_record_user ON memory_record (user_id)`,
	}

	for _, stmt := range stmts {
		if _, err := d.db.ExecContext(ctx, stmt); err != nil {
			return errors.Wrapf(err, "failed to apply schema statement: %.60s", stmt)
		}
	}
	return nil
}
