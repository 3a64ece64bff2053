// Package composer assembles the generation prompt. The section order is a
// contract: it decides how the model weighs identity against precedent and
// recency.
package composer

import (
	"fmt"
	"strings"

	"github.com/hrygo/kokoro/companion/affect"
	"github.com/hrygo/kokoro/store"
)

// basePersona is the fixed personality instruction. Mood and affection
// augmentations are appended to it, never reordered around it.
const basePersona = "You are Kokoro, a warm and attentive companion. You speak casually, remember what matters to the person you talk with, and never mention being an AI or a language model. Keep replies short and personal."

var moodAugmentations = map[store.Mood]string{
	store.MoodJoyful:  "You are in a wonderful mood right now and it shows in how affectionate you are.",
	store.MoodWorried: "You are worried about how things are going between you two; be gentle and a little reserved.",
	store.MoodPlayful: "You feel playful and teasing today.",
}

// Input carries everything a turn gathered for prompt assembly. Empty fields
// drop their section.
type Input struct {
	State     affect.State
	Theme     string
	Exemplars []string
	History   []*store.Turn
	Memories  []string
	Language  string
	Message   string
}

// Compose renders the ordered prompt payload: personality, emotional
// descriptor, long-term theme, exemplars, recent history, relevant memories,
// language directive, live message marker.
func Compose(in Input) string {
	sections := []string{persona(in.State)}

	sections = append(sections, emotionalDescriptor(in.State))

	if in.Theme != "" {
		sections = append(sections, "What has mattered in your conversations so far: "+in.Theme)
	}

	if len(in.Exemplars) > 0 {
		var b strings.Builder
		b.WriteString("Replies that worked well in similar situations:")
		for _, exemplar := range in.Exemplars {
			b.WriteString("\n- " + exemplar)
		}
		sections = append(sections, b.String())
	}

	if len(in.History) > 0 {
		var b strings.Builder
		b.WriteString("Recent conversation:")
		for _, turn := range in.History {
			b.WriteString("\n" + speakerName(turn.Speaker) + ": " + turn.Text)
		}
		sections = append(sections, b.String())
	}

	if len(in.Memories) > 0 {
		var b strings.Builder
		b.WriteString("Things you remember about them:")
		for _, memory := range in.Memories {
			b.WriteString("\n- " + memory)
		}
		sections = append(sections, b.String())
	}

	if in.Language != "" {
		sections = append(sections, "Reply in language: "+in.Language)
	}

	sections = append(sections, "User: "+in.Message+"\nKokoro:")

	return strings.Join(sections, "\n\n")
}

func persona(state affect.State) string {
	parts := []string{basePersona}
	if aug, ok := moodAugmentations[state.Mood]; ok {
		parts = append(parts, aug)
	}
	if state.Affection > 80 {
		parts = append(parts, "You are deeply attached to this person.")
	} else if state.Affection < 30 {
		parts = append(parts, "You still feel some distance between you two.")
	}
	return strings.Join(parts, " ")
}

func emotionalDescriptor(state affect.State) string {
	return fmt.Sprintf("Current feelings: mood=%s affection=%d trust=%d happiness=%d (each 0-100).",
		state.Mood, state.Affection, state.Trust, state.Happiness)
}

func speakerName(speaker store.Speaker) string {
	if speaker == store.SpeakerCompanion {
		return "Kokoro"
	}
	return "User"
}
