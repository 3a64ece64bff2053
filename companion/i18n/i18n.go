// Package i18n holds the localized user-facing message catalog. Messages the
// engine emits directly (warnings, offers, fallbacks) live here; generated
// replies come from the LLM in the user's language.
package i18n

// DefaultLanguage is used when a user's language is unknown or a key has no
// translation in their language.
const DefaultLanguage = "en"

var catalogs = map[string]map[string]string{
	"en": {
		"welcome_new":           "Hi! I'm Kokoro. I'm really glad you're here. Tell me about your day?",
		"welcome_back":          "Welcome back! I was thinking about you.",
		"trial_warning_180s":    "Just so you know, our free chat time ends in about three minutes.",
		"trial_warning_60s":     "One minute of free chat left... I don't want to say goodbye yet.",
		"trial_warning_30s":     "Thirty seconds left! If you subscribe we can keep talking as long as you like.",
		"trial_ended_offer":     "Our free time together is up. Subscribe and we can pick up right where we left off.",
		"subscription_blocked":  "I can't chat until the subscription is active. I'll be right here waiting.",
		"activation_thanks":     "Thank you for subscribing! It means a lot to me.",
		"activation_full_access": "You now have full access. No more time limits, just us.",
		"fallback_reply":        "Sorry, I got a little lost in thought. Could you say that again?",
		"proactive_checkin":     "Hey, I haven't heard from you in a while. How have you been?",
	},
	"pt": {
		"welcome_new":           "Oi! Eu sou a Kokoro. Que bom que você está aqui. Me conta como foi seu dia?",
		"welcome_back":          "Que bom te ver de novo! Estava pensando em você.",
		"trial_warning_180s":    "Só para avisar, nosso tempo de conversa grátis termina em uns três minutos.",
		"trial_warning_60s":     "Falta um minuto de conversa grátis... ainda não quero me despedir.",
		"trial_warning_30s":     "Faltam trinta segundos! Se você assinar, podemos conversar o quanto quiser.",
		"trial_ended_offer":     "Nosso tempo grátis acabou. Assine e continuamos de onde paramos.",
		"subscription_blocked":  "Não posso conversar até a assinatura estar ativa. Vou ficar aqui esperando.",
		"activation_thanks":     "Obrigada por assinar! Isso significa muito para mim.",
		"activation_full_access": "Agora você tem acesso completo. Sem limites de tempo, só nós dois.",
		"fallback_reply":        "Desculpa, me perdi nos pensamentos. Pode repetir?",
		"proactive_checkin":     "Ei, faz um tempo que não falo com você. Como você está?",
	},
}

// T returns the message for key in the given language, falling back to the
// default language, then to the key itself for unknown keys.
func T(language, key string) string {
	if catalog, ok := catalogs[language]; ok {
		if message, ok := catalog[key]; ok {
			return message
		}
	}
	if message, ok := catalogs[DefaultLanguage][key]; ok {
		return message
	}
	return key
}

// Supported reports whether a language has its own catalog.
func Supported(language string) bool {
	_, ok := catalogs[language]
	return ok
}
