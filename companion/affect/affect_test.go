package affect

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/hrygo/kokoro/store"
)

func TestTransitionBands(t *testing.T) {
	tests := []struct {
		name  string
		in    State
		score float64
		want  State
	}{
		{
			name:  "positive message lifts all three",
			in:    State{Affection: 50, Trust: 50, Happiness: 50, Mood: store.MoodNeutral},
			score: 0.3,
			want:  State{Affection: 57, Trust: 55, Happiness: 60, Mood: store.MoodHappy},
		},
		{
			name:  "negative message drops all three",
			in:    State{Affection: 50, Trust: 50, Happiness: 50, Mood: store.MoodHappy},
			score: -0.3,
			want:  State{Affection: 45, Trust: 47, Happiness: 43, Mood: store.MoodSad},
		},
		{
			name:  "neutral message decays happiness only",
			in:    State{Affection: 50, Trust: 50, Happiness: 50, Mood: store.MoodHappy},
			score: 0.0,
			want:  State{Affection: 50, Trust: 50, Happiness: 49, Mood: store.MoodNeutral},
		},
		{
			name:  "positive keeps playful mood",
			in:    State{Affection: 50, Trust: 50, Happiness: 50, Mood: store.MoodPlayful},
			score: 0.1,
			want:  State{Affection: 57, Trust: 55, Happiness: 60, Mood: store.MoodPlayful},
		},
		{
			name:  "negative keeps worried mood",
			in:    State{Affection: 50, Trust: 50, Happiness: 50, Mood: store.MoodWorried},
			score: -0.1,
			want:  State{Affection: 45, Trust: 47, Happiness: 43, Mood: store.MoodWorried},
		},
		{
			name:  "neutral keeps curious mood",
			in:    State{Affection: 50, Trust: 50, Happiness: 50, Mood: store.MoodCurious},
			score: 0.01,
			want:  State{Affection: 50, Trust: 50, Happiness: 49, Mood: store.MoodCurious},
		},
		{
			name:  "band edge 0.05 counts as positive",
			in:    State{Affection: 10, Trust: 10, Happiness: 10, Mood: store.MoodSad},
			score: 0.05,
			want:  State{Affection: 17, Trust: 15, Happiness: 20, Mood: store.MoodWorried},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			require.Equal(t, tt.want, Transition(tt.in, tt.score))
		})
	}
}

func TestTransitionOverrides(t *testing.T) {
	tests := []struct {
		name  string
		in    State
		score float64
		want  store.Mood
	}{
		{
			name:  "high affection and happiness turn joyful",
			in:    State{Affection: 90, Trust: 50, Happiness: 90, Mood: store.MoodHappy},
			score: 0.8,
			want:  store.MoodJoyful,
		},
		{
			name:  "low affection and happiness turn worried",
			in:    State{Affection: 20, Trust: 50, Happiness: 20, Mood: store.MoodNeutral},
			score: 0.0,
			want:  store.MoodWorried,
		},
		{
			name:  "strong positive with high affection turns playful",
			in:    State{Affection: 70, Trust: 30, Happiness: 50, Mood: store.MoodNeutral},
			score: 0.7,
			want:  store.MoodPlayful,
		},
		{
			name:  "strong negative with low trust turns sad",
			in:    State{Affection: 50, Trust: 30, Happiness: 50, Mood: store.MoodHappy},
			score: -0.7,
			want:  store.MoodSad,
		},
		{
			name:  "mild positive with high trust turns curious",
			in:    State{Affection: 40, Trust: 70, Happiness: 40, Mood: store.MoodNeutral},
			score: 0.3,
			want:  store.MoodCurious,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			require.Equal(t, tt.want, Transition(tt.in, tt.score).Mood)
		})
	}
}

// A state satisfying both the joyful and playful predicates resolves to
// joyful; the rule list is ordered and the first match wins.
func TestTransitionOverrideOrder(t *testing.T) {
	in := State{Affection: 90, Trust: 50, Happiness: 90, Mood: store.MoodHappy}
	got := Transition(in, 0.8)
	require.Equal(t, store.MoodJoyful, got.Mood)
	require.Equal(t, State{Affection: 97, Trust: 55, Happiness: 100, Mood: store.MoodJoyful}, got)
}

func TestTransitionClampsBounds(t *testing.T) {
	scores := []float64{-1, -0.7, -0.05, 0, 0.05, 0.7, 1}
	states := []State{
		{Affection: 0, Trust: 0, Happiness: 0, Mood: store.MoodNeutral},
		{Affection: 100, Trust: 100, Happiness: 100, Mood: store.MoodJoyful},
		{Affection: 3, Trust: 1, Happiness: 2, Mood: store.MoodSad},
		{Affection: 98, Trust: 99, Happiness: 97, Mood: store.MoodHappy},
	}
	for _, in := range states {
		for _, score := range scores {
			got := Transition(in, score)
			require.GreaterOrEqual(t, got.Affection, int32(0))
			require.LessOrEqual(t, got.Affection, int32(100))
			require.GreaterOrEqual(t, got.Trust, int32(0))
			require.LessOrEqual(t, got.Trust, int32(100))
			require.GreaterOrEqual(t, got.Happiness, int32(0))
			require.LessOrEqual(t, got.Happiness, int32(100))
			require.True(t, got.Mood.IsValid())
		}
	}
}
