// Package consolidate folds recent short-term history into long-term memory
// via summarization, on a periodic sweep.
package consolidate

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/pkg/errors"

	"github.com/hrygo/kokoro/ai/llm"
	"github.com/hrygo/kokoro/store"
)

const summaryPromptFormat = `Summarize the facts worth remembering from this conversation in two or three sentences, written about the user in the third person.

%s

Summary:`

// minTurns is the floor below which a window is not worth summarizing.
const defaultMinTurns = 4

// UserStore is the slice of the store the worker needs.
type UserStore interface {
	ListUsers(ctx context.Context, find *store.FindUser) ([]*store.User, error)
	UpdateUser(ctx context.Context, update *store.UpdateUser) (*store.User, error)
}

// HistoryReader reads turns recorded after a timestamp, oldest first.
type HistoryReader interface {
	Since(ctx context.Context, userID int64, afterTs int64) ([]*store.Turn, error)
}

// MemoryWriter appends one long-term memory record.
type MemoryWriter interface {
	Store(ctx context.Context, userID int64, text string) error
}

// Worker periodically consolidates each idle user's unprocessed turns.
type Worker struct {
	users    UserStore
	history  HistoryReader
	memory   MemoryWriter
	llm      llm.Service
	gap      time.Duration
	interval time.Duration
	minTurns int
}

func NewWorker(users UserStore, history HistoryReader, memory MemoryWriter, llmService llm.Service, gap, interval time.Duration, minTurns int) *Worker {
	if minTurns <= 0 {
		minTurns = defaultMinTurns
	}
	return &Worker{
		users:    users,
		history:  history,
		memory:   memory,
		llm:      llmService,
		gap:      gap,
		interval: interval,
		minTurns: minTurns,
	}
}

// Run sweeps on the configured interval until the context is canceled.
func (w *Worker) Run(ctx context.Context) error {
	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	slog.Info("consolidation worker started", "interval", w.interval, "gap", w.gap)
	for {
		select {
		case <-ctx.Done():
			slog.Info("consolidation worker stopped")
			return ctx.Err()
		case <-ticker.C:
			if err := w.RunOnce(ctx); err != nil {
				slog.Error("consolidation sweep failed", "error", err)
			}
		}
	}
}

// RunOnce consolidates every user whose last interaction is more than the
// gap past their consolidation mark. The mark advances even when
// summarization fails, so a bad window is never retried.
func (w *Worker) RunOnce(ctx context.Context) error {
	gap := w.gap
	users, err := w.users.ListUsers(ctx, &store.FindUser{PendingConsolidationGap: &gap})
	if err != nil {
		return errors.Wrap(err, "failed to list users pending consolidation")
	}

	for _, user := range users {
		if err := w.consolidateUser(ctx, user); err != nil {
			slog.Warn("consolidation skipped user", "user", user.ID, "error", err)
		}
	}
	return nil
}

func (w *Worker) consolidateUser(ctx context.Context, user *store.User) error {
	turns, err := w.history.Since(ctx, user.ID, user.LastConsolidatedTs)
	if err != nil {
		return errors.Wrap(err, "failed to read unconsolidated turns")
	}

	if len(turns) >= w.minTurns {
		if summary, err := w.summarize(ctx, turns); err != nil {
			slog.Warn("consolidation summary failed, window lost", "user", user.ID, "error", err)
		} else if err := w.memory.Store(ctx, user.ID, summary); err != nil {
			slog.Warn("consolidation store failed, window lost", "user", user.ID, "error", err)
		} else {
			slog.Debug("consolidated turns into memory", "user", user.ID, "turns", len(turns))
		}
	}

	mark := time.Now().Unix()
	if _, err := w.users.UpdateUser(ctx, &store.UpdateUser{
		ID:                 user.ID,
		LastConsolidatedTs: &mark,
	}); err != nil {
		return errors.Wrap(err, "failed to advance consolidation mark")
	}
	return nil
}

func (w *Worker) summarize(ctx context.Context, turns []*store.Turn) (string, error) {
	var b strings.Builder
	for _, turn := range turns {
		name := "User"
		if turn.Speaker == store.SpeakerCompanion {
			name = "Companion"
		}
		fmt.Fprintf(&b, "%s: %s\n", name, turn.Text)
	}

	summary, err := w.llm.Complete(ctx, llm.CompletionRequest{
		Prompt:      fmt.Sprintf(summaryPromptFormat, b.String()),
		MaxTokens:   160,
		Temperature: 0.3,
		TopP:        0.9,
	})
	if err != nil {
		return "", err
	}
	summary = strings.TrimSpace(summary)
	if summary == "" {
		return "", errors.New("empty summary")
	}
	return summary, nil
}
