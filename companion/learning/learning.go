// Package learning labels message situations and learns which response
// shapes worked, from implicit sentiment and explicit feedback.
package learning

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"github.com/pkg/errors"

	"github.com/hrygo/kokoro/ai/llm"
	"github.com/hrygo/kokoro/store"
)

// classifyPromptFormat is a fixed few-shot instruction. Labels are short,
// topical and free of user specifics.
const classifyPromptFormat = `Label the situation of the message with a short topical phrase. Do not include names or personal details. Reply with only the label.

Message: I just got the promotion I told you about!
Label: sharing good news

Message: nobody ever listens to me
Label: feeling ignored

Message: what should I cook tonight?
Label: asking for a suggestion

Message: %s
Label:`

// PatternStore is the slice of the store the learner needs.
type PatternStore interface {
	CreatePattern(ctx context.Context, create *store.Pattern) (*store.Pattern, error)
	ListPatterns(ctx context.Context, find *store.FindPattern) ([]*store.Pattern, error)
	UpdatePatternEffectiveness(ctx context.Context, update *store.UpdatePatternEffectiveness) (int64, error)
}

// Learner classifies situations and records response patterns.
type Learner struct {
	store PatternStore
	llm   llm.Service
}

func NewLearner(store PatternStore, llmService llm.Service) *Learner {
	return &Learner{store: store, llm: llmService}
}

// Classify returns a short situation label for a user message. An empty
// label means the turn should not be learned from; classification failures
// degrade to that silently.
func (l *Learner) Classify(ctx context.Context, text string) string {
	if strings.TrimSpace(text) == "" {
		return ""
	}
	label, err := l.llm.Complete(ctx, llm.CompletionRequest{
		Prompt:      strings.Replace(classifyPromptFormat, "%s", text, 1),
		MaxTokens:   16,
		Temperature: 0.1,
		TopP:        0.9,
		Stop:        []string{"\n"},
	})
	if err != nil {
		slog.Warn("learning: classification failed, skipping", "error", err)
		return ""
	}
	label = strings.ToLower(strings.TrimSpace(label))
	// A rambling completion is not a label.
	if label == "" || len(label) > 80 {
		return ""
	}
	return label
}

// RecordOutcome stores a new pattern for a companion turn. Effectiveness is
// seeded with the sentiment of the user message that triggered the response,
// a proxy reward rather than a judgment of the response itself.
func (l *Learner) RecordOutcome(ctx context.Context, turnID int64, label, responseText string, triggeringSentiment float64) error {
	if label == "" {
		return errors.New("label cannot be empty")
	}
	if _, err := l.store.CreatePattern(ctx, &store.Pattern{
		SourceTurnID:  turnID,
		Label:         label,
		ResponseText:  responseText,
		Effectiveness: triggeringSentiment,
		CreatedTs:     time.Now().Unix(),
	}); err != nil {
		return errors.Wrap(err, "failed to record pattern")
	}
	return nil
}

// ApplyFeedback overwrites the effectiveness of the pattern tied to a turn
// with an explicit score. Feedback for a turn without a pattern is a no-op.
func (l *Learner) ApplyFeedback(ctx context.Context, turnID int64, score float64) error {
	if score != -1 && score != 1 {
		return errors.Errorf("feedback score must be -1 or +1, got %f", score)
	}
	rows, err := l.store.UpdatePatternEffectiveness(ctx, &store.UpdatePatternEffectiveness{
		SourceTurnID:  turnID,
		Effectiveness: score,
	})
	if err != nil {
		return errors.Wrap(err, "failed to apply feedback")
	}
	if rows == 0 {
		slog.Debug("learning: feedback for turn without pattern ignored", "turn", turnID)
	}
	return nil
}

// BestExemplars returns the k most effective response texts recorded for a
// label, most effective first, ties broken by recency.
func (l *Learner) BestExemplars(ctx context.Context, label string, k int) ([]string, error) {
	if label == "" || k <= 0 {
		return nil, nil
	}
	patterns, err := l.store.ListPatterns(ctx, &store.FindPattern{
		Label: &label,
		Limit: &k,
	})
	if err != nil {
		return nil, errors.Wrap(err, "failed to list exemplars")
	}
	exemplars := make([]string, 0, len(patterns))
	for _, pattern := range patterns {
		exemplars = append(exemplars, pattern.ResponseText)
	}
	return exemplars, nil
}
