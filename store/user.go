package store

import (
	"context"
	"time"

	"github.com/pkg/errors"
)

// SubscriptionStatus is the lifecycle state of a user's subscription.
type SubscriptionStatus string

const (
	SubscriptionTrial  SubscriptionStatus = "trial"
	SubscriptionActive SubscriptionStatus = "active"
)

// Mood is one of the named affective moods a companion can hold toward a user.
type Mood string

const (
	MoodNeutral Mood = "neutral"
	MoodHappy   Mood = "happy"
	MoodSad     Mood = "sad"
	MoodJoyful  Mood = "joyful"
	MoodWorried Mood = "worried"
	MoodCurious Mood = "curious"
	MoodPlayful Mood = "playful"
)

// IsValid checks if the mood is one of the named values.
func (m Mood) IsValid() bool {
	switch m {
	case MoodNeutral, MoodHappy, MoodSad, MoodJoyful, MoodWorried, MoodCurious, MoodPlayful:
		return true
	default:
		return false
	}
}

// User is a companion user record. Created on first contact with a trial
// window; never deleted by the engine.
type User struct {
	ID     int64
	Status SubscriptionStatus

	// Trial window. TrialEndTs is immutable after creation.
	TrialStartTs int64
	TrialEndTs   int64

	// Two-letter language code used for outbound messages.
	Language string

	// Affective state, each in [0,100].
	Affection int32
	Trust     int32
	Happiness int32
	Mood      Mood

	LastInteractionTs int64

	// WarnedThresholdSec records the tightest trial warning already sent,
	// in seconds before trial end. Zero means no warning has fired. It only
	// ever advances to a smaller value.
	WarnedThresholdSec int32

	// ActivationNoticeSent flips true once the one-time activation
	// acknowledgment has been emitted after trial -> active.
	ActivationNoticeSent bool

	LastConsolidatedTs int64
	CreatedTs          int64
}

// FindUser is the find condition for users.
type FindUser struct {
	ID     *int64
	Status *SubscriptionStatus

	// PendingConsolidationGap selects users whose last interaction is more
	// than the gap past their consolidation mark.
	PendingConsolidationGap *time.Duration

	// Re-engagement window bounds on last_interaction_ts.
	LastInteractionAfter  *int64
	LastInteractionBefore *int64
}

// UpdateUser is the update condition for users. Nil fields are left untouched.
// TrialStartTs/TrialEndTs are intentionally absent: the trial window is
// immutable after creation.
type UpdateUser struct {
	ID int64

	Status               *SubscriptionStatus
	Language             *string
	Affection            *int32
	Trust                *int32
	Happiness            *int32
	Mood                 *Mood
	LastInteractionTs    *int64
	WarnedThresholdSec   *int32
	ActivationNoticeSent *bool
	LastConsolidatedTs   *int64
}

// CreateUser creates a new user record.
func (s *Store) CreateUser(ctx context.Context, create *User) (*User, error) {
	if !create.Mood.IsValid() {
		return nil, errors.Errorf("invalid mood: %s", create.Mood)
	}
	return s.driver.CreateUser(ctx, create)
}

// GetUser fetches a user by ID. Returns nil, nil when the user does not exist.
func (s *Store) GetUser(ctx context.Context, id int64) (*User, error) {
	list, err := s.driver.ListUsers(ctx, &FindUser{ID: &id})
	if err != nil {
		return nil, err
	}
	if len(list) == 0 {
		return nil, nil
	}
	return list[0], nil
}

// ListUsers lists users matching the find condition.
func (s *Store) ListUsers(ctx context.Context, find *FindUser) ([]*User, error) {
	return s.driver.ListUsers(ctx, find)
}

// UpdateUser applies a partial update to a user record.
func (s *Store) UpdateUser(ctx context.Context, update *UpdateUser) (*User, error) {
	if update.Mood != nil && !update.Mood.IsValid() {
		return nil, errors.Errorf("invalid mood: %s", *update.Mood)
	}
	return s.driver.UpdateUser(ctx, update)
}
