// Package sentiment scores message polarity as a single compound value
// in [-1,1] using a VADER lexicon analyzer.
package sentiment

import (
	"strings"

	"github.com/jonreiter/govader"
	"github.com/pkg/errors"
)

// Scorer produces a compound polarity score for a text.
type Scorer interface {
	// Score returns the compound sentiment of text in [-1,1].
	Score(text string) (float64, error)
}

type vaderScorer struct {
	analyzer *govader.SentimentIntensityAnalyzer
}

// NewScorer creates a VADER-backed Scorer. The lexicon is loaded eagerly so
// the first turn does not pay the initialization cost.
func NewScorer() Scorer {
	return &vaderScorer{analyzer: govader.NewSentimentIntensityAnalyzer()}
}

func (s *vaderScorer) Score(text string) (float64, error) {
	if strings.TrimSpace(text) == "" {
		return 0, nil
	}
	if s.analyzer == nil {
		return 0, errors.New("sentiment analyzer not initialized")
	}
	return s.analyzer.PolarityScores(text).Compound, nil
}
