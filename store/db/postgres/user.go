package postgres

import (
	"context"
	"strings"

	"github.com/pkg/errors"

	"github.com/hrygo/kokoro/store"
)

// CreateUser creates a new user record.
func (d *DB) CreateUser(ctx context.Context, create *store.User) (*store.User, error) {
	stmt := `
		INSERT INTO "user" (
			id, status, trial_start_ts, trial_end_ts, language,
			affection, trust, happiness, mood,
			last_interaction_ts, warned_threshold_sec, activation_notice_sent,
			last_consolidated_ts, created_ts
		)
		VALUES (` + placeholders(14) + `)
	`
	_, err := d.db.ExecContext(ctx, stmt,
		create.ID,
		create.Status,
		create.TrialStartTs,
		create.TrialEndTs,
		create.Language,
		create.Affection,
		create.Trust,
		create.Happiness,
		create.Mood,
		create.LastInteractionTs,
		create.WarnedThresholdSec,
		create.ActivationNoticeSent,
		create.LastConsolidatedTs,
		create.CreatedTs,
	)
	if err != nil {
		return nil, errors.Wrap(err, "failed to create user")
	}
	return create, nil
}

// ListUsers lists users matching the find condition.
func (d *DB) ListUsers(ctx context.Context, find *store.FindUser) ([]*store.User, error) {
	where, args := []string{"1 = 1"}, []any{}

	if find.ID != nil {
		where, args = append(where, "id = "+placeholder(len(args)+1)), append(args, *find.ID)
	}
	if find.Status != nil {
		where, args = append(where, "status = "+placeholder(len(args)+1)), append(args, *find.Status)
	}
	if find.PendingConsolidationGap != nil {
		where, args = append(where, "last_interaction_ts > last_consolidated_ts + "+placeholder(len(args)+1)), append(args, int64(find.PendingConsolidationGap.Seconds()))
	}
	if find.LastInteractionAfter != nil {
		where, args = append(where, "last_interaction_ts > "+placeholder(len(args)+1)), append(args, *find.LastInteractionAfter)
	}
	if find.LastInteractionBefore != nil {
		where, args = append(where, "last_interaction_ts < "+placeholder(len(args)+1)), append(args, *find.LastInteractionBefore)
	}

	query := `
		SELECT
			id, status, trial_start_ts, trial_end_ts, language,
			affection, trust, happiness, mood,
			last_interaction_ts, warned_threshold_sec, activation_notice_sent,
			last_consolidated_ts, created_ts
		FROM "user"
		WHERE ` + strings.Join(where, " AND ") + `
		ORDER BY created_ts ASC
	`
	rows, err := d.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, errors.Wrap(err, "failed to list users")
	}
	defer rows.Close()

	list := []*store.User{}
	for rows.Next() {
		var user store.User
		if err := rows.Scan(
			&user.ID,
			&user.Status,
			&user.TrialStartTs,
			&user.TrialEndTs,
			&user.Language,
			&user.Affection,
			&user.Trust,
			&user.Happiness,
			&user.Mood,
			&user.LastInteractionTs,
			&user.WarnedThresholdSec,
			&user.ActivationNoticeSent,
			&user.LastConsolidatedTs,
			&user.CreatedTs,
		); err != nil {
			return nil, errors.Wrap(err, "failed to scan user")
		}
		list = append(list, &user)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return list, nil
}

// UpdateUser applies a partial update and returns the resulting record.
func (d *DB) UpdateUser(ctx context.Context, update *store.UpdateUser) (*store.User, error) {
	set, args := []string{}, []any{}

	if update.Status != nil {
		set, args = append(set, "status = "+placeholder(len(args)+1)), append(args, *update.Status)
	}
	if update.Language != nil {
		set, args = append(set, "language = "+placeholder(len(args)+1)), append(args, *update.Language)
	}
	if update.Affection != nil {
		set, args = append(set, "affection = "+placeholder(len(args)+1)), append(args, *update.Affection)
	}
	if update.Trust != nil {
		set, args = append(set, "trust = "+placeholder(len(args)+1)), append(args, *update.Trust)
	}
	if update.Happiness != nil {
		set, args = append(set, "happiness = "+placeholder(len(args)+1)), append(args, *update.Happiness)
	}
	if update.Mood != nil {
		set, args = append(set, "mood = "+placeholder(len(args)+1)), append(args, *update.Mood)
	}
	if update.LastInteractionTs != nil {
		set, args = append(set, "last_interaction_ts = "+placeholder(len(args)+1)), append(args, *update.LastInteractionTs)
	}
	if update.WarnedThresholdSec != nil {
		set, args = append(set, "warned_threshold_sec = "+placeholder(len(args)+1)), append(args, *update.WarnedThresholdSec)
	}
	if update.ActivationNoticeSent != nil {
		set, args = append(set, "activation_notice_sent = "+placeholder(len(args)+1)), append(args, *update.ActivationNoticeSent)
	}
	if update.LastConsolidatedTs != nil {
		set, args = append(set, "last_consolidated_ts = "+placeholder(len(args)+1)), append(args, *update.LastConsolidatedTs)
	}
	if len(set) == 0 {
		return nil, errors.New("no fields to update")
	}

	args = append(args, update.ID)
	stmt := `
		UPDATE "user"
		SET ` + strings.Join(set, ", ") + `
		WHERE id = ` + placeholder(len(args)) + `
		RETURNING
			id, status, trial_start_ts, trial_end_ts, language,
			affection, trust, happiness, mood,
			last_interaction_ts, warned_threshold_sec, activation_notice_sent,
			last_consolidated_ts, created_ts
	`
	var user store.User
	if err := d.db.QueryRowContext(ctx, stmt, args...).Scan(
		&user.ID,
		&user.Status,
		&user.TrialStartTs,
		&user.TrialEndTs,
		&user.Language,
		&user.Affection,
		&user.Trust,
		&user.Happiness,
		&user.Mood,
		&user.LastInteractionTs,
		&user.WarnedThresholdSec,
		&user.ActivationNoticeSent,
		&user.LastConsolidatedTs,
		&user.CreatedTs,
	); err != nil {
		return nil, errors.Wrap(err, "failed to update user")
	}
	return &user, nil
}
