// Package affect implements the per-turn affective state transition: a pure
// function over (affection, trust, happiness, mood) and a sentiment compound
// score. Persistence is the caller's responsibility.
package affect

import "github.com/hrygo/kokoro/store"

// State is the bounded affective state the companion holds toward a user.
// Affection, Trust and Happiness stay in [0,100] after every transition.
type State struct {
	Affection int32
	Trust     int32
	Happiness int32
	Mood      store.Mood
}

// Sentiment bands for the base update.
const (
	positiveBand = 0.05
	negativeBand = -0.05
)

// overrideRule is one (predicate, mood) pair. Rules are evaluated in order;
// the first match wins. The order is part of the contract.
type overrideRule struct {
	applies func(s State, score float64) bool
	mood    store.Mood
}

var overrideRules = []overrideRule{
	{func(s State, _ float64) bool { return s.Affection > 85 && s.Happiness > 85 }, store.MoodJoyful},
	{func(s State, _ float64) bool { return s.Affection < 25 && s.Happiness < 25 }, store.MoodWorried},
	{func(s State, score float64) bool { return score > 0.6 && s.Affection > 70 }, store.MoodPlayful},
	{func(s State, score float64) bool { return score < -0.6 && s.Trust < 40 }, store.MoodSad},
	{func(s State, score float64) bool { return score > 0.2 && s.Trust > 60 }, store.MoodCurious},
}

// Transition returns the state after one message with the given sentiment
// compound score. No side effects.
func Transition(current State, score float64) State {
	next := current

	// Base update by sentiment band.
	switch {
	case score >= positiveBand:
		next.Affection += 7
		next.Happiness += 10
		next.Trust += 5
		if next.Mood != store.MoodHappy && next.Mood != store.MoodJoyful && next.Mood != store.MoodPlayful {
			next.Mood = store.MoodHappy
		}
	case score <= negativeBand:
		next.Affection -= 5
		next.Happiness -= 7
		next.Trust -= 3
		if next.Mood != store.MoodSad && next.Mood != store.MoodWorried {
			next.Mood = store.MoodSad
		}
	default:
		// Idle decay on neutral messages.
		next.Happiness -= 1
		if next.Mood != store.MoodNeutral && next.Mood != store.MoodCurious {
			next.Mood = store.MoodNeutral
		}
	}

	// Priority overrides run against the updated numbers, independent of the
	// base update's mood write.
	for _, rule := range overrideRules {
		if rule.applies(next, score) {
			next.Mood = rule.mood
			break
		}
	}

	next.Affection = clamp(next.Affection)
	next.Trust = clamp(next.Trust)
	next.Happiness = clamp(next.Happiness)
	return next
}

func clamp(v int32) int32 {
	if v < 0 {
		return 0
	}
	if v > 100 {
		return 100
	}
	return v
}
