package sentiment

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestScorePolarity(t *testing.T) {
	scorer := NewScorer()

	positive, err := scorer.Score("I love talking with you, this is wonderful!")
	require.NoError(t, err)
	require.Greater(t, positive, 0.0)

	negative, err := scorer.Score("This is terrible, I hate everything about today.")
	require.NoError(t, err)
	require.Less(t, negative, 0.0)

	require.Greater(t, positive, negative)
}

func TestScoreEmptyText(t *testing.T) {
	scorer := NewScorer()

	for _, text := range []string{"", "   ", "\n\t"} {
		score, err := scorer.Score(text)
		require.NoError(t, err)
		require.Zero(t, score)
	}
}
