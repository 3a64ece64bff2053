package store

import (
	"context"

	"github.com/pkg/errors"
)

// Speaker identifies which party produced a turn.
type Speaker string

const (
	SpeakerUser      Speaker = "user"
	SpeakerCompanion Speaker = "companion"
)

// IsValid checks if the speaker is a known value.
func (s Speaker) IsValid() bool {
	return s == SpeakerUser || s == SpeakerCompanion
}

// Turn is one recorded utterance. Immutable once written; ordered by CreatedTs.
type Turn struct {
	ID        int64
	UserID    int64
	Speaker   Speaker
	Text      string
	CreatedTs int64
}

// FindTurn is the find condition for turns.
type FindTurn struct {
	UserID       *int64
	CreatedAfter *int64
	Limit        *int

	// OrderDesc returns newest turns first. The default ordering is
	// chronological (oldest first).
	OrderDesc bool
}

// CreateTurn appends a turn and returns it with its assigned ID.
func (s *Store) CreateTurn(ctx context.Context, create *Turn) (*Turn, error) {
	if !create.Speaker.IsValid() {
		return nil, errors.Errorf("invalid speaker: %s", create.Speaker)
	}
	return s.driver.CreateTurn(ctx, create)
}

// ListTurns lists turns matching the find condition.
func (s *Store) ListTurns(ctx context.Context, find *FindTurn) ([]*Turn, error) {
	return s.driver.ListTurns(ctx, find)
}
