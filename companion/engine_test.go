package companion

import (
	"context"
	"testing"
	"time"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/require"

	"github.com/hrygo/kokoro/ai/llm"
	"github.com/hrygo/kokoro/companion/i18n"
	"github.com/hrygo/kokoro/store"
)

type fakeUsers struct {
	users     map[int64]*store.User
	updateErr error
	lastCtx   context.Context
}

func newFakeUsers(users ...*store.User) *fakeUsers {
	f := &fakeUsers{users: map[int64]*store.User{}}
	for _, user := range users {
		f.users[user.ID] = user
	}
	return f
}

func (f *fakeUsers) GetUser(ctx context.Context, id int64) (*store.User, error) {
	f.lastCtx = ctx
	return f.users[id], nil
}

func (f *fakeUsers) CreateUser(_ context.Context, create *store.User) (*store.User, error) {
	f.users[create.ID] = create
	return create, nil
}

func (f *fakeUsers) UpdateUser(_ context.Context, update *store.UpdateUser) (*store.User, error) {
	if f.updateErr != nil {
		return nil, f.updateErr
	}
	user, ok := f.users[update.ID]
	if !ok {
		return nil, errors.New("user not found")
	}
	if update.Status != nil {
		user.Status = *update.Status
	}
	if update.Language != nil {
		user.Language = *update.Language
	}
	if update.Affection != nil {
		user.Affection = *update.Affection
	}
	if update.Trust != nil {
		user.Trust = *update.Trust
	}
	if update.Happiness != nil {
		user.Happiness = *update.Happiness
	}
	if update.Mood != nil {
		user.Mood = *update.Mood
	}
	if update.LastInteractionTs != nil {
		user.LastInteractionTs = *update.LastInteractionTs
	}
	if update.WarnedThresholdSec != nil {
		user.WarnedThresholdSec = *update.WarnedThresholdSec
	}
	if update.ActivationNoticeSent != nil {
		user.ActivationNoticeSent = *update.ActivationNoticeSent
	}
	if update.LastConsolidatedTs != nil {
		user.LastConsolidatedTs = *update.LastConsolidatedTs
	}
	return user, nil
}

type fakeHistory struct {
	turns     []*store.Turn
	nextID    int64
	appendErr error
}

func (f *fakeHistory) Append(_ context.Context, userID int64, speaker store.Speaker, text string) (int64, error) {
	if f.appendErr != nil {
		return 0, f.appendErr
	}
	f.nextID++
	f.turns = append(f.turns, &store.Turn{ID: f.nextID, UserID: userID, Speaker: speaker, Text: text})
	return f.nextID, nil
}

func (f *fakeHistory) Recent(_ context.Context, userID int64, limit int) ([]*store.Turn, error) {
	recent := []*store.Turn{}
	for _, turn := range f.turns {
		if turn.UserID == userID {
			recent = append(recent, turn)
		}
	}
	if len(recent) > limit {
		recent = recent[len(recent)-limit:]
	}
	return recent, nil
}

type fakeMemorySvc struct {
	theme    string
	relevant []string
}

func (f *fakeMemorySvc) RetrieveRelevant(_ context.Context, _ int64, _ string, _ int) []string {
	return f.relevant
}

func (f *fakeMemorySvc) RetrieveThematic(_ context.Context, _ int64, _ int) string {
	return f.theme
}

type fakeLearning struct {
	label     string
	exemplars []string
	recorded  []*store.Pattern
	feedback  map[int64]float64
}

func (f *fakeLearning) Classify(_ context.Context, _ string) string { return f.label }

func (f *fakeLearning) RecordOutcome(_ context.Context, turnID int64, label, responseText string, triggeringSentiment float64) error {
	f.recorded = append(f.recorded, &store.Pattern{
		SourceTurnID:  turnID,
		Label:         label,
		ResponseText:  responseText,
		Effectiveness: triggeringSentiment,
	})
	return nil
}

func (f *fakeLearning) ApplyFeedback(_ context.Context, turnID int64, score float64) error {
	if f.feedback == nil {
		f.feedback = map[int64]float64{}
	}
	f.feedback[turnID] = score
	return nil
}

func (f *fakeLearning) BestExemplars(_ context.Context, _ string, _ int) ([]string, error) {
	return f.exemplars, nil
}

type fakeLLM struct {
	reply   string
	err     error
	prompts []string
}

func (f *fakeLLM) Complete(_ context.Context, req llm.CompletionRequest) (string, error) {
	f.prompts = append(f.prompts, req.Prompt)
	if f.err != nil {
		return "", f.err
	}
	return f.reply, nil
}

type fakeScorer struct {
	score float64
	err   error
}

func (f *fakeScorer) Score(_ string) (float64, error) { return f.score, f.err }

type engineFixture struct {
	engine   *Engine
	users    *fakeUsers
	history  *fakeHistory
	learning *fakeLearning
	llm      *fakeLLM
}

var fixedNow = time.Unix(1_700_000_000, 0)

func newFixture(users *fakeUsers, llmService *fakeLLM, scorer *fakeScorer, learning *fakeLearning) *engineFixture {
	history := &fakeHistory{}
	engine := NewEngine(users, history, &fakeMemorySvc{}, learning, llmService, scorer, nil, Config{
		TrialDuration:   30 * time.Minute,
		HistoryLimit:    10,
		MemoryK:         3,
		ExemplarK:       2,
		DefaultLanguage: "en",
	})
	engine.now = func() time.Time { return fixedNow }
	return &engineFixture{engine: engine, users: users, history: history, learning: learning, llm: llmService}
}

func trialUser(remaining int64) *store.User {
	return &store.User{
		ID:           1,
		Status:       store.SubscriptionTrial,
		TrialStartTs: fixedNow.Unix() - 1800,
		TrialEndTs:   fixedNow.Unix() + remaining,
		Language:     "en",
		Affection:    50,
		Trust:        50,
		Happiness:    50,
		Mood:         store.MoodNeutral,
	}
}

func TestHandleMessageCreatesUserOnFirstContact(t *testing.T) {
	f := newFixture(newFakeUsers(), &fakeLLM{reply: "hi there!"}, &fakeScorer{score: 0.3}, &fakeLearning{})

	result, err := f.engine.HandleMessage(context.Background(), 7, "hello!")
	require.NoError(t, err)
	require.False(t, result.Blocked)
	require.Contains(t, result.Notices, i18n.T("en", "welcome_new"))

	user := f.users.users[7]
	require.NotNil(t, user)
	require.Equal(t, store.SubscriptionTrial, user.Status)
	require.Equal(t, fixedNow.Unix(), user.TrialStartTs)
	require.Equal(t, fixedNow.Unix()+1800, user.TrialEndTs)
}

func TestHandleMessageNormalTurn(t *testing.T) {
	learning := &fakeLearning{label: "sharing good news"}
	f := newFixture(newFakeUsers(trialUser(600)), &fakeLLM{reply: "that is wonderful!"}, &fakeScorer{score: 0.8}, learning)

	result, err := f.engine.HandleMessage(context.Background(), 1, "I got the job!")
	require.NoError(t, err)
	require.Equal(t, "that is wonderful!", result.Reply)
	require.NotZero(t, result.CompanionTurnID)

	// Both turns recorded in order.
	require.Len(t, f.history.turns, 2)
	require.Equal(t, store.SpeakerUser, f.history.turns[0].Speaker)
	require.Equal(t, store.SpeakerCompanion, f.history.turns[1].Speaker)

	// Pattern seeded with the user message sentiment as proxy reward.
	require.Len(t, learning.recorded, 1)
	require.Equal(t, result.CompanionTurnID, learning.recorded[0].SourceTurnID)
	require.Equal(t, 0.8, learning.recorded[0].Effectiveness)

	// Affective state moved and persisted.
	user := f.users.users[1]
	require.Equal(t, int32(57), user.Affection)
	require.Equal(t, int32(60), user.Happiness)
	require.Equal(t, int32(55), user.Trust)
}

func TestHandleMessageExpiredTrialBlocksWithoutAffectChange(t *testing.T) {
	f := newFixture(newFakeUsers(trialUser(-5)), &fakeLLM{reply: "unused"}, &fakeScorer{score: 0.9}, &fakeLearning{})

	result, err := f.engine.HandleMessage(context.Background(), 1, "are you there?")
	require.NoError(t, err)
	require.True(t, result.Blocked)
	require.True(t, result.OfferSubscription)
	require.Equal(t, i18n.T("en", "trial_ended_offer"), result.Reply)
	require.Zero(t, result.CompanionTurnID)

	// No generation, no turns, no affect mutation.
	require.Empty(t, f.llm.prompts)
	require.Empty(t, f.history.turns)
	user := f.users.users[1]
	require.Equal(t, int32(50), user.Affection)
	require.Equal(t, int32(50), user.Happiness)
	require.Equal(t, store.MoodNeutral, user.Mood)
}

func TestHandleMessageTrialWarning(t *testing.T) {
	f := newFixture(newFakeUsers(trialUser(25)), &fakeLLM{reply: "still here!"}, &fakeScorer{}, &fakeLearning{})

	result, err := f.engine.HandleMessage(context.Background(), 1, "quick question")
	require.NoError(t, err)
	require.False(t, result.Blocked)
	require.Contains(t, result.Notices, i18n.T("en", "trial_warning_30s"))
	require.Equal(t, int32(30), f.users.users[1].WarnedThresholdSec)

	// Second message inside the same window does not warn again.
	result, err = f.engine.HandleMessage(context.Background(), 1, "another one")
	require.NoError(t, err)
	require.Empty(t, result.Notices)
}

func TestHandleMessageActivationNoticeFiresOnce(t *testing.T) {
	user := trialUser(600)
	user.Status = store.SubscriptionActive
	f := newFixture(newFakeUsers(user), &fakeLLM{reply: "welcome back!"}, &fakeScorer{}, &fakeLearning{})

	result, err := f.engine.HandleMessage(context.Background(), 1, "I subscribed!")
	require.NoError(t, err)
	require.Contains(t, result.Notices, i18n.T("en", "activation_thanks"))
	require.Contains(t, result.Notices, i18n.T("en", "activation_full_access"))
	require.Equal(t, "welcome back!", result.Reply, "the notice does not short-circuit the turn")

	result, err = f.engine.HandleMessage(context.Background(), 1, "hello again")
	require.NoError(t, err)
	require.Empty(t, result.Notices)
}

func TestHandleMessageFallbackOnGenerationFailure(t *testing.T) {
	learning := &fakeLearning{label: "sharing good news"}
	f := newFixture(newFakeUsers(trialUser(600)), &fakeLLM{err: errors.New("gateway timeout")}, &fakeScorer{score: 0.5}, learning)

	result, err := f.engine.HandleMessage(context.Background(), 1, "I got the job!")
	require.NoError(t, err, "upstream failure never reaches the caller")
	require.Equal(t, i18n.T("en", "fallback_reply"), result.Reply)

	// The fallback is recorded as a turn but never learned from.
	require.Len(t, f.history.turns, 2)
	require.Empty(t, learning.recorded)
}

func TestHandleMessageEmptyLabelSkipsLearning(t *testing.T) {
	learning := &fakeLearning{label: ""}
	f := newFixture(newFakeUsers(trialUser(600)), &fakeLLM{reply: "sounds good"}, &fakeScorer{score: 0.2}, learning)

	_, err := f.engine.HandleMessage(context.Background(), 1, "ok")
	require.NoError(t, err)
	require.Empty(t, learning.recorded)
}

func TestHandleMessageSentimentFailureIsNeutral(t *testing.T) {
	f := newFixture(newFakeUsers(trialUser(600)), &fakeLLM{reply: "mm"}, &fakeScorer{err: errors.New("lexicon broken")}, &fakeLearning{})

	_, err := f.engine.HandleMessage(context.Background(), 1, "whatever")
	require.NoError(t, err)

	// Neutral band: only the idle happiness decay applies.
	user := f.users.users[1]
	require.Equal(t, int32(50), user.Affection)
	require.Equal(t, int32(49), user.Happiness)
}

func TestHandleMessagePersistenceFailurePropagates(t *testing.T) {
	users := newFakeUsers(trialUser(600))
	users.updateErr = errors.New("disk full")
	f := newFixture(users, &fakeLLM{reply: "unused"}, &fakeScorer{}, &fakeLearning{})

	_, err := f.engine.HandleMessage(context.Background(), 1, "hello")
	require.Error(t, err)
	require.ErrorIs(t, err, ErrPersistence)
	require.Empty(t, f.llm.prompts, "generation must not run after a failed write")
}

func TestHandlePaymentConfirmed(t *testing.T) {
	f := newFixture(newFakeUsers(trialUser(-100)), &fakeLLM{reply: "hi"}, &fakeScorer{}, &fakeLearning{})

	require.NoError(t, f.engine.HandlePaymentConfirmed(context.Background(), 1))
	require.Equal(t, store.SubscriptionActive, f.users.users[1].Status)

	// The formerly expired user can talk again.
	result, err := f.engine.HandleMessage(context.Background(), 1, "I'm back!")
	require.NoError(t, err)
	require.False(t, result.Blocked)
}

func TestHandleFeedback(t *testing.T) {
	learning := &fakeLearning{}
	f := newFixture(newFakeUsers(), &fakeLLM{}, &fakeScorer{}, learning)

	require.NoError(t, f.engine.HandleFeedback(context.Background(), 42, 1))
	require.Equal(t, float64(1), learning.feedback[42])
}

func TestHandleMessageBoundsTurnByDeadline(t *testing.T) {
	f := newFixture(newFakeUsers(trialUser(600)), &fakeLLM{reply: "hi"}, &fakeScorer{}, &fakeLearning{})

	_, err := f.engine.HandleMessage(context.Background(), 1, "hello")
	require.NoError(t, err)

	deadline, ok := f.users.lastCtx.Deadline()
	require.True(t, ok, "store calls must carry a deadline")
	require.LessOrEqual(t, time.Until(deadline), f.engine.config.TurnTimeout)
}

func TestNewEngineDefaultsTurnTimeout(t *testing.T) {
	engine := NewEngine(newFakeUsers(), &fakeHistory{}, &fakeMemorySvc{}, &fakeLearning{}, &fakeLLM{}, &fakeScorer{}, nil, Config{})
	require.Equal(t, defaultTurnTimeout, engine.config.TurnTimeout)
}
