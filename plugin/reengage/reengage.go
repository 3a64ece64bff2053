// Package reengage periodically nudges subscribed users who have gone quiet.
package reengage

import (
	"context"
	"log/slog"
	"time"

	"github.com/pkg/errors"

	"github.com/hrygo/kokoro/companion/i18n"
	"github.com/hrygo/kokoro/store"
)

// Users gone quiet for more than minIdle but less than maxIdle get a
// check-in. Beyond maxIdle they are left alone.
const (
	minIdle = 12 * time.Hour
	maxIdle = 24 * time.Hour
)

// UserStore is the slice of the store the worker needs.
type UserStore interface {
	ListUsers(ctx context.Context, find *store.FindUser) ([]*store.User, error)
}

// Sender delivers one outbound message to a user.
type Sender func(ctx context.Context, userID int64, text string) error

// Worker sweeps for idle subscribed users and sends a localized check-in at
// most once per idle window.
type Worker struct {
	users    UserStore
	send     Sender
	interval time.Duration

	lastSent map[int64]time.Time
	now      func() time.Time
}

func NewWorker(users UserStore, send Sender, interval time.Duration) *Worker {
	return &Worker{
		users:    users,
		send:     send,
		interval: interval,
		lastSent: map[int64]time.Time{},
		now:      time.Now,
	}
}

// Run sweeps on the configured interval until the context is canceled.
func (w *Worker) Run(ctx context.Context) error {
	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	slog.Info("re-engagement worker started", "interval", w.interval)
	for {
		select {
		case <-ctx.Done():
			slog.Info("re-engagement worker stopped")
			return ctx.Err()
		case <-ticker.C:
			if err := w.RunOnce(ctx); err != nil {
				slog.Error("re-engagement sweep failed", "error", err)
			}
		}
	}
}

// RunOnce sends one check-in to each active user idle between 12 and 24
// hours who has not been nudged in this idle window.
func (w *Worker) RunOnce(ctx context.Context) error {
	now := w.now()
	status := store.SubscriptionActive
	after := now.Add(-maxIdle).Unix()
	before := now.Add(-minIdle).Unix()

	users, err := w.users.ListUsers(ctx, &store.FindUser{
		Status:                &status,
		LastInteractionAfter:  &after,
		LastInteractionBefore: &before,
	})
	if err != nil {
		return errors.Wrap(err, "failed to list idle users")
	}

	for _, user := range users {
		if sent, ok := w.lastSent[user.ID]; ok && now.Sub(sent) < maxIdle {
			continue
		}
		if err := w.send(ctx, user.ID, i18n.T(user.Language, "proactive_checkin")); err != nil {
			slog.Warn("re-engagement send failed", "user", user.ID, "error", err)
			continue
		}
		w.lastSent[user.ID] = now
		slog.Debug("re-engagement sent", "user", user.ID)
	}
	return nil
}
