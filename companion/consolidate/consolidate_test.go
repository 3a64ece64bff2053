package consolidate

import (
	"context"
	"testing"
	"time"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/require"

	"github.com/hrygo/kokoro/ai/llm"
	"github.com/hrygo/kokoro/store"
)

type fakeUserStore struct {
	pending []*store.User
	updated []*store.UpdateUser
}

func (f *fakeUserStore) ListUsers(_ context.Context, find *store.FindUser) ([]*store.User, error) {
	if find.PendingConsolidationGap == nil {
		return nil, errors.New("expected gap condition")
	}
	return f.pending, nil
}

func (f *fakeUserStore) UpdateUser(_ context.Context, update *store.UpdateUser) (*store.User, error) {
	f.updated = append(f.updated, update)
	return &store.User{ID: update.ID}, nil
}

type fakeHistory struct {
	turns []*store.Turn
	err   error
}

func (f *fakeHistory) Since(_ context.Context, _ int64, _ int64) ([]*store.Turn, error) {
	return f.turns, f.err
}

type fakeMemory struct {
	stored []string
	err    error
}

func (f *fakeMemory) Store(_ context.Context, _ int64, text string) error {
	if f.err != nil {
		return f.err
	}
	f.stored = append(f.stored, text)
	return nil
}

type fakeLLM struct {
	reply string
	err   error
}

func (f *fakeLLM) Complete(_ context.Context, _ llm.CompletionRequest) (string, error) {
	return f.reply, f.err
}

func makeTurns(n int) []*store.Turn {
	turns := make([]*store.Turn, n)
	for i := range turns {
		turns[i] = &store.Turn{ID: int64(i + 1), UserID: 1, Speaker: store.SpeakerUser, Text: "turn"}
	}
	return turns
}

func newWorker(users *fakeUserStore, history *fakeHistory, memory *fakeMemory, llmService llm.Service) *Worker {
	return NewWorker(users, history, memory, llmService, 30*time.Minute, time.Minute, 4)
}

func TestRunOnceSummarizesAndAdvances(t *testing.T) {
	users := &fakeUserStore{pending: []*store.User{{ID: 1, LastConsolidatedTs: 100}}}
	memory := &fakeMemory{}
	worker := newWorker(users, &fakeHistory{turns: makeTurns(5)}, memory, &fakeLLM{reply: "They talked about work stress."})

	require.NoError(t, worker.RunOnce(context.Background()))
	require.Equal(t, []string{"They talked about work stress."}, memory.stored)
	require.Len(t, users.updated, 1)
	require.NotNil(t, users.updated[0].LastConsolidatedTs)
}

func TestRunOnceBelowMinTurnsSkipsSummaryButAdvances(t *testing.T) {
	users := &fakeUserStore{pending: []*store.User{{ID: 1}}}
	memory := &fakeMemory{}
	worker := newWorker(users, &fakeHistory{turns: makeTurns(3)}, memory, &fakeLLM{reply: "unused"})

	require.NoError(t, worker.RunOnce(context.Background()))
	require.Empty(t, memory.stored)
	require.Len(t, users.updated, 1, "mark must advance for quiet users")
}

func TestRunOnceSummaryFailureStillAdvances(t *testing.T) {
	users := &fakeUserStore{pending: []*store.User{{ID: 1}}}
	memory := &fakeMemory{}
	worker := newWorker(users, &fakeHistory{turns: makeTurns(6)}, memory, &fakeLLM{err: errors.New("upstream down")})

	require.NoError(t, worker.RunOnce(context.Background()))
	require.Empty(t, memory.stored)
	require.Len(t, users.updated, 1, "a failed summary is lost, not retried")
}

func TestRunOnceStoreFailureStillAdvances(t *testing.T) {
	users := &fakeUserStore{pending: []*store.User{{ID: 1}}}
	memory := &fakeMemory{err: errors.New("vector store down")}
	worker := newWorker(users, &fakeHistory{turns: makeTurns(6)}, memory, &fakeLLM{reply: "summary"})

	require.NoError(t, worker.RunOnce(context.Background()))
	require.Len(t, users.updated, 1)
}

func TestRunOnceHistoryFailureLeavesMark(t *testing.T) {
	users := &fakeUserStore{pending: []*store.User{{ID: 1}}}
	worker := newWorker(users, &fakeHistory{err: errors.New("db down")}, &fakeMemory{}, &fakeLLM{})

	require.NoError(t, worker.RunOnce(context.Background()))
	require.Empty(t, users.updated, "an unread window stays pending")
}

func TestRunStopsOnContextCancel(t *testing.T) {
	worker := newWorker(&fakeUserStore{}, &fakeHistory{}, &fakeMemory{}, &fakeLLM{})
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	require.ErrorIs(t, worker.Run(ctx), context.Canceled)
}
