package history

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/hrygo/kokoro/store"
)

type fakeTurnStore struct {
	turns  []*store.Turn
	nextID int64
	err    error
}

func (f *fakeTurnStore) CreateTurn(_ context.Context, create *store.Turn) (*store.Turn, error) {
	if f.err != nil {
		return nil, f.err
	}
	f.nextID++
	create.ID = f.nextID
	f.turns = append(f.turns, create)
	return create, nil
}

func (f *fakeTurnStore) ListTurns(_ context.Context, find *store.FindTurn) ([]*store.Turn, error) {
	if f.err != nil {
		return nil, f.err
	}
	matched := []*store.Turn{}
	for _, turn := range f.turns {
		if find.UserID != nil && turn.UserID != *find.UserID {
			continue
		}
		if find.CreatedAfter != nil && turn.CreatedTs <= *find.CreatedAfter {
			continue
		}
		matched = append(matched, turn)
	}
	if find.OrderDesc {
		for i, j := 0, len(matched)-1; i < j; i, j = i+1, j-1 {
			matched[i], matched[j] = matched[j], matched[i]
		}
	}
	if find.Limit != nil && len(matched) > *find.Limit {
		matched = matched[:*find.Limit]
	}
	return matched, nil
}

func TestAppendSanitizesNewlines(t *testing.T) {
	fake := &fakeTurnStore{}
	svc := NewService(fake)

	id, err := svc.Append(context.Background(), 1, store.SpeakerUser, "first line\nsecond line\r\nthird")
	require.NoError(t, err)
	require.Equal(t, int64(1), id)
	require.Equal(t, "first line second line third", fake.turns[0].Text)
}

func TestRecentReturnsOldestFirst(t *testing.T) {
	fake := &fakeTurnStore{}
	svc := NewService(fake)
	ctx := context.Background()

	texts := []string{"one", "two", "three", "four", "five"}
	for i, text := range texts {
		_, err := svc.Append(ctx, 1, store.SpeakerUser, text)
		require.NoError(t, err)
		fake.turns[i].CreatedTs = int64(1000 + i)
	}

	recent, err := svc.Recent(ctx, 1, 3)
	require.NoError(t, err)
	require.Len(t, recent, 3)
	require.Equal(t, "three", recent[0].Text)
	require.Equal(t, "four", recent[1].Text)
	require.Equal(t, "five", recent[2].Text)
}

func TestRecentZeroLimit(t *testing.T) {
	svc := NewService(&fakeTurnStore{})
	recent, err := svc.Recent(context.Background(), 1, 0)
	require.NoError(t, err)
	require.Empty(t, recent)
}

func TestSinceExcludesMark(t *testing.T) {
	fake := &fakeTurnStore{}
	svc := NewService(fake)
	ctx := context.Background()

	for i, text := range []string{"a", "b", "c"} {
		_, err := svc.Append(ctx, 1, store.SpeakerCompanion, text)
		require.NoError(t, err)
		fake.turns[i].CreatedTs = int64(2000 + i)
	}

	since, err := svc.Since(ctx, 1, 2000)
	require.NoError(t, err)
	require.Len(t, since, 2)
	require.Equal(t, "b", since[0].Text)
	require.Equal(t, "c", since[1].Text)
}
