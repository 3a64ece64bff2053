package sqlite

import (
	"context"

	"github.com/pkg/errors"
)

const schema = `
CREATE TABLE IF NOT EXISTS "user" (
	id INTEGER PRIMARY KEY,
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
	activation_notice_sent INTEGER NOT NULL DEFAULT 0,
	last_consolidated_ts BIGINT NOT NULL DEFAULT 0,
	created_ts BIGINT NOT NULL
);

CREATE TABLE IF NOT EXISTS turn (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	user_id BIGINT NOT NULL,
	speaker TEXT NOT NULL,
	text TEXT NOT NULL,
	created_ts BIGINT NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_turn_user_created ON turn (user_id, created_ts);

CREATE TABLE IF NOT EXISTS pattern (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	source_turn_id BIGINT NOT NULL UNIQUE,
	label TEXT NOT NULL,
	response_text TEXT NOT NULL,
	effectiveness REAL NOT NULL,
	created_ts BIGINT NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_pattern_label ON pattern (label);

CREATE TABLE IF NOT EXISTS memory_record (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	uid TEXT NOT NULL UNIQUE,
	user_id BIGINT NOT NULL,
	text TEXT NOT NULL,
	embedding TEXT NOT NULL,
	created_ts BIGINT NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_memory_record_user ON memory_record (user_id);
`

// Migrate creates the schema if it does not exist yet.
func (d *DB) Migrate(ctx context.Context) error {
	if _, err := d.db.ExecContext(ctx, schema); err != nil {
		return errors.Wrap(err, "failed to apply sqlite schema")
	}
	return nil
}
