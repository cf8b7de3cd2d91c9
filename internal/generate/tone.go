package generate

import "strings"

// Tone selects the writing style requested from the generation service.
type Tone string

const (
	ToneProfessional Tone = "professional"
	ToneFriendly     Tone = "friendly"
	ToneSupportive   Tone = "supportive"
	ToneInquisitive  Tone = "inquisitive"
	ToneCheerful     Tone = "cheerful"
	ToneFunny        Tone = "funny"
)

// DefaultTone is used when no tone is supplied. The prompt omits the tone
// clause entirely for the default.
const DefaultTone = ToneProfessional

var knownTones = map[Tone]bool{
	ToneProfessional: true,
	ToneFriendly:     true,
	ToneSupportive:   true,
	ToneInquisitive:  true,
	ToneCheerful:     true,
	ToneFunny:        true,
}

// ParseTone normalizes a user-supplied tone string. Unknown or empty
// values fall back to the default.
func ParseTone(s string) Tone {
	tone := Tone(strings.ToLower(strings.TrimSpace(s)))
	if knownTones[tone] {
		return tone
	}
	return DefaultTone
}
