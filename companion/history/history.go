// Package history provides append and recent-window reads over the ordered
// per-user turn log.
package history

import (
	"context"
	"strings"
	"time"

	"github.com/pkg/errors"

	"github.com/hrygo/kokoro/store"
)

// TurnStore is the slice of the store the history service needs.
type TurnStore interface {
	CreateTurn(ctx context.Context, create *store.Turn) (*store.Turn, error)
	ListTurns(ctx context.Context, find *store.FindTurn) ([]*store.Turn, error)
}

// Service records and reads short-term dialogue history. Turns are immutable
// once written.
type Service struct {
	store TurnStore
}

func NewService(store TurnStore) *Service {
	return &Service{store: store}
}

// Append records one turn and returns its identifier. Embedded newlines are
// collapsed to single spaces so composed prompts stay one line per turn.
func (s *Service) Append(ctx context.Context, userID int64, speaker store.Speaker, text string) (int64, error) {
	turn, err := s.store.CreateTurn(ctx, &store.Turn{
		UserID:    userID,
		Speaker:   speaker,
		Text:      sanitize(text),
		CreatedTs: time.Now().Unix(),
	})
	if err != nil {
		return 0, errors.Wrap(err, "failed to append turn")
	}
	return turn.ID, nil
}

// Recent returns the limit most recent turns in chronological order,
// oldest first.
func (s *Service) Recent(ctx context.Context, userID int64, limit int) ([]*store.Turn, error) {
	if limit <= 0 {
		return nil, nil
	}
	turns, err := s.store.ListTurns(ctx, &store.FindTurn{
		UserID:    &userID,
		Limit:     &limit,
		OrderDesc: true,
	})
	if err != nil {
		return nil, errors.Wrap(err, "failed to list recent turns")
	}
	// The query returns newest first; flip to oldest first.
	for i, j := 0, len(turns)-1; i < j; i, j = i+1, j-1 {
		turns[i], turns[j] = turns[j], turns[i]
	}
	return turns, nil
}

// Since returns all turns recorded strictly after the given timestamp,
// oldest first.
func (s *Service) Since(ctx context.Context, userID int64, afterTs int64) ([]*store.Turn, error) {
	turns, err := s.store.ListTurns(ctx, &store.FindTurn{
		UserID:       &userID,
		CreatedAfter: &afterTs,
	})
	if err != nil {
		return nil, errors.Wrap(err, "failed to list turns since mark")
	}
	return turns, nil
}

func sanitize(text string) string {
	text = strings.ReplaceAll(text, "\r\n", " ")
	text = strings.ReplaceAll(text, "\n", " ")
	text = strings.ReplaceAll(text, "\r", " ")
	return strings.Join(strings.Fields(text), " ")
}
