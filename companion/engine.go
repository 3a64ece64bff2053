// Package companion orchestrates one conversation turn: lifecycle gate,
// affective update, history, retrieval, prompt composition, generation and
// pattern learning.
package companion

import (
	"context"
	"log/slog"
	"time"

	"github.com/abadojack/whatlanggo"

	"github.com/hrygo/kokoro/ai/llm"
	"github.com/hrygo/kokoro/companion/affect"
	"github.com/hrygo/kokoro/companion/composer"
	"github.com/hrygo/kokoro/companion/i18n"
	"github.com/hrygo/kokoro/companion/lifecycle"
	"github.com/hrygo/kokoro/companion/sentiment"
	"github.com/hrygo/kokoro/server/metrics"
	"github.com/hrygo/kokoro/store"
)

// Initial affective values for a new user.
const (
	initialAffection = 50
	initialTrust     = 50
	initialHappiness = 50
)

// UserStore is the slice of the store the engine needs for user records.
type UserStore interface {
	GetUser(ctx context.Context, id int64) (*store.User, error)
	CreateUser(ctx context.Context, create *store.User) (*store.User, error)
	UpdateUser(ctx context.Context, update *store.UpdateUser) (*store.User, error)
}

// HistoryService records and reads short-term dialogue history.
type HistoryService interface {
	Append(ctx context.Context, userID int64, speaker store.Speaker, text string) (int64, error)
	Recent(ctx context.Context, userID int64, limit int) ([]*store.Turn, error)
}

// MemoryService reads a user's long-term memory.
type MemoryService interface {
	RetrieveRelevant(ctx context.Context, userID int64, query string, k int) []string
	RetrieveThematic(ctx context.Context, userID int64, k int) string
}

// LearningService classifies situations and learns response patterns.
type LearningService interface {
	Classify(ctx context.Context, text string) string
	RecordOutcome(ctx context.Context, turnID int64, label, responseText string, triggeringSentiment float64) error
	ApplyFeedback(ctx context.Context, turnID int64, score float64) error
	BestExemplars(ctx context.Context, label string, k int) ([]string, error)
}

// Config tunes per-turn behavior.
type Config struct {
	TrialDuration   time.Duration
	HistoryLimit    int
	MemoryK         int
	ExemplarK       int
	DefaultLanguage string

	// TurnTimeout bounds one full turn so a hung store or upstream call
	// cannot stall the frontend dispatch loop.
	TurnTimeout time.Duration
}

const defaultTurnTimeout = 2 * time.Minute

// TurnResult is what the transport delivers back to the user.
type TurnResult struct {
	// Reply is the generated (or fallback, or offer) text.
	Reply string

	// Notices are engine-originated messages sent before the reply:
	// trial warnings, activation acknowledgments, welcome lines.
	Notices []string

	// CompanionTurnID identifies the recorded reply turn for feedback
	// callbacks. Zero when the turn was blocked.
	CompanionTurnID int64

	// OfferSubscription asks the transport to present a subscription offer.
	OfferSubscription bool

	// Blocked means the trial has expired and no generation happened.
	Blocked bool
}

// Engine drives turn processing. All service handles are injected once at
// startup; the engine itself holds no hidden globals.
type Engine struct {
	users    UserStore
	history  HistoryService
	memory   MemoryService
	learning LearningService
	llm      llm.Service
	scorer   sentiment.Scorer
	metrics  *metrics.Collector
	config   Config

	// now is swappable for tests.
	now func() time.Time
}

func NewEngine(users UserStore, history HistoryService, memory MemoryService, learning LearningService, llmService llm.Service, scorer sentiment.Scorer, collector *metrics.Collector, config Config) *Engine {
	if config.DefaultLanguage == "" {
		config.DefaultLanguage = i18n.DefaultLanguage
	}
	if config.TurnTimeout <= 0 {
		config.TurnTimeout = defaultTurnTimeout
	}
	return &Engine{
		users:    users,
		history:  history,
		memory:   memory,
		learning: learning,
		llm:      llmService,
		scorer:   scorer,
		metrics:  collector,
		config:   config,
		now:      time.Now,
	}
}

// HandleMessage processes one inbound user message end to end. Concurrent
// turns for the same user follow last-write-wins on the user record.
func (e *Engine) HandleMessage(ctx context.Context, userID int64, text string) (*TurnResult, error) {
	ctx, cancel := context.WithTimeout(ctx, e.config.TurnTimeout)
	defer cancel()

	now := e.now()
	result := &TurnResult{}

	user, created, err := e.getOrCreateUser(ctx, userID, now)
	if err != nil {
		return nil, err
	}
	if created {
		result.Notices = append(result.Notices, i18n.T(user.Language, "welcome_new"))
	}

	lastInteraction := now.Unix()
	if _, err := e.users.UpdateUser(ctx, &store.UpdateUser{ID: user.ID, LastInteractionTs: &lastInteraction}); err != nil {
		return nil, persistenceError(err, "failed to touch last interaction")
	}

	e.detectLanguage(ctx, user, text)

	// One-time activation acknowledgment, before normal processing; it does
	// not short-circuit the rest of the turn.
	if user.Status == store.SubscriptionActive && !user.ActivationNoticeSent {
		result.Notices = append(result.Notices,
			i18n.T(user.Language, "activation_thanks"),
			i18n.T(user.Language, "activation_full_access"),
		)
		sent := true
		if _, err := e.users.UpdateUser(ctx, &store.UpdateUser{ID: user.ID, ActivationNoticeSent: &sent}); err != nil {
			return nil, persistenceError(err, "failed to mark activation notice")
		}
		user.ActivationNoticeSent = true
	}

	// Lifecycle gate. An expired trial blocks generation and must not touch
	// the affective state.
	switch gate := lifecycle.Evaluate(user, now); gate.Decision {
	case lifecycle.Expired:
		result.Blocked = true
		result.OfferSubscription = true
		result.Reply = i18n.T(user.Language, "trial_ended_offer")
		e.metrics.RecordTurn(metrics.OutcomeBlocked)
		return result, nil
	case lifecycle.Warn:
		warned := gate.Threshold.Seconds
		if _, err := e.users.UpdateUser(ctx, &store.UpdateUser{ID: user.ID, WarnedThresholdSec: &warned}); err != nil {
			return nil, persistenceError(err, "failed to record trial warning")
		}
		user.WarnedThresholdSec = warned
		result.Notices = append(result.Notices, i18n.T(user.Language, gate.Threshold.MessageKey))
	}

	score := e.scoreSentiment(text)

	state := affect.Transition(affect.State{
		Affection: user.Affection,
		Trust:     user.Trust,
		Happiness: user.Happiness,
		Mood:      user.Mood,
	}, score)
	if _, err := e.users.UpdateUser(ctx, &store.UpdateUser{
		ID:        user.ID,
		Affection: &state.Affection,
		Trust:     &state.Trust,
		Happiness: &state.Happiness,
		Mood:      &state.Mood,
	}); err != nil {
		return nil, persistenceError(err, "failed to persist affective state")
	}

	userTurnID, err := e.history.Append(ctx, user.ID, store.SpeakerUser, text)
	if err != nil {
		return nil, persistenceError(err, "failed to record user turn")
	}

	// Retrieval. Read failures degrade to empty sections.
	recent := e.recentExcluding(ctx, user.ID, userTurnID)
	theme := e.memory.RetrieveThematic(ctx, user.ID, e.config.MemoryK)
	memories := e.memory.RetrieveRelevant(ctx, user.ID, text, e.config.MemoryK)

	label := e.learning.Classify(ctx, text)
	var exemplars []string
	if label != "" {
		exemplars, err = e.learning.BestExemplars(ctx, label, e.config.ExemplarK)
		if err != nil {
			slog.Warn("exemplar retrieval failed", "user", user.ID, "error", err)
			exemplars = nil
		}
	}

	prompt := composer.Compose(composer.Input{
		State:     state,
		Theme:     theme,
		Exemplars: exemplars,
		History:   recent,
		Memories:  memories,
		Language:  user.Language,
		Message:   text,
	})

	reply, err := e.llm.Complete(ctx, llm.CompletionRequest{
		Prompt:      prompt,
		MaxTokens:   220,
		Temperature: 0.8,
		TopP:        0.9,
		Stop:        []string{"User:"},
	})
	fallback := false
	if err != nil || reply == "" {
		slog.Warn("generation failed, sending fallback", "user", user.ID, "error", err)
		e.metrics.RecordUpstreamFailure(metrics.UpstreamLLM)
		reply = i18n.T(user.Language, "fallback_reply")
		fallback = true
	}

	companionTurnID, err := e.history.Append(ctx, user.ID, store.SpeakerCompanion, reply)
	if err != nil {
		return nil, persistenceError(err, "failed to record companion turn")
	}

	// Learn only from real generations with a usable label.
	if !fallback && label != "" {
		if err := e.learning.RecordOutcome(ctx, companionTurnID, label, reply, score); err != nil {
			slog.Warn("pattern record failed", "user", user.ID, "error", err)
		}
	}

	result.Reply = reply
	result.CompanionTurnID = companionTurnID
	if fallback {
		e.metrics.RecordTurn(metrics.OutcomeFallback)
	} else {
		e.metrics.RecordTurn(metrics.OutcomeOK)
	}
	return result, nil
}

// HandlePaymentConfirmed transitions a user trial -> active. The activation
// acknowledgment is emitted on their next turn.
func (e *Engine) HandlePaymentConfirmed(ctx context.Context, userID int64) error {
	ctx, cancel := context.WithTimeout(ctx, e.config.TurnTimeout)
	defer cancel()

	status := store.SubscriptionActive
	if _, err := e.users.UpdateUser(ctx, &store.UpdateUser{ID: userID, Status: &status}); err != nil {
		return persistenceError(err, "failed to activate subscription")
	}
	slog.Info("subscription activated", "user", userID)
	return nil
}

// HandleFeedback applies explicit thumbs feedback to the pattern behind a
// companion turn.
func (e *Engine) HandleFeedback(ctx context.Context, turnID int64, score float64) error {
	ctx, cancel := context.WithTimeout(ctx, e.config.TurnTimeout)
	defer cancel()

	return e.learning.ApplyFeedback(ctx, turnID, score)
}

func (e *Engine) getOrCreateUser(ctx context.Context, userID int64, now time.Time) (*store.User, bool, error) {
	user, err := e.users.GetUser(ctx, userID)
	if err != nil {
		return nil, false, persistenceError(err, "failed to load user")
	}
	if user != nil {
		return user, false, nil
	}

	startTs, endTs := lifecycle.NewTrialWindow(now, e.config.TrialDuration)
	user, err = e.users.CreateUser(ctx, &store.User{
		ID:                userID,
		Status:            store.SubscriptionTrial,
		TrialStartTs:      startTs,
		TrialEndTs:        endTs,
		Language:          e.config.DefaultLanguage,
		Affection:         initialAffection,
		Trust:             initialTrust,
		Happiness:         initialHappiness,
		Mood:              store.MoodNeutral,
		LastInteractionTs: now.Unix(),
		CreatedTs:         now.Unix(),
	})
	if err != nil {
		return nil, false, persistenceError(err, "failed to create user")
	}
	slog.Info("new user created", "user", user.ID, "trial_end", endTs)
	return user, true, nil
}

// detectLanguage switches a default-language user to a supported detected
// language once their messages make it clear. Best effort.
func (e *Engine) detectLanguage(ctx context.Context, user *store.User, text string) {
	if user.Language != e.config.DefaultLanguage || len(text) < 20 {
		return
	}
	info := whatlanggo.Detect(text)
	if !info.IsReliable() {
		return
	}
	detected := info.Lang.Iso6391()
	if detected == "" || detected == user.Language || !i18n.Supported(detected) {
		return
	}
	if _, err := e.users.UpdateUser(ctx, &store.UpdateUser{ID: user.ID, Language: &detected}); err != nil {
		slog.Warn("language update failed", "user", user.ID, "error", err)
		return
	}
	slog.Info("user language detected", "user", user.ID, "language", detected)
	user.Language = detected
}

func (e *Engine) scoreSentiment(text string) float64 {
	score, err := e.scorer.Score(text)
	if err != nil {
		slog.Warn("sentiment scoring failed, treating as neutral", "error", err)
		e.metrics.RecordUpstreamFailure(metrics.UpstreamSentiment)
		return 0
	}
	if score > 1 {
		score = 1
	} else if score < -1 {
		score = -1
	}
	return score
}

// recentExcluding reads the recent window and drops the just-recorded live
// turn so it appears only at the prompt's live message marker.
func (e *Engine) recentExcluding(ctx context.Context, userID, excludeTurnID int64) []*store.Turn {
	turns, err := e.history.Recent(ctx, userID, e.config.HistoryLimit+1)
	if err != nil {
		slog.Warn("recent history read failed", "user", userID, "error", err)
		return nil
	}
	filtered := make([]*store.Turn, 0, len(turns))
	for _, turn := range turns {
		if turn.ID == excludeTurnID {
			continue
		}
		filtered = append(filtered, turn)
	}
	if len(filtered) > e.config.HistoryLimit {
		filtered = filtered[len(filtered)-e.config.HistoryLimit:]
	}
	return filtered
}
