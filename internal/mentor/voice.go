package mentor

import "strings"

// voices maps mentor ids to ElevenLabs voice ids.
var voices = map[string]string{
	"eminem":          "fCxG8OHm4STbIsWe4aT9",
	"marcus_aurelius": "pNInz6obpgDQGcFmaJgB",
	"sam_altman":      "TxGEqnHWrfWFTfGW9XjX",
	"steve_jobs":      "ErXwobaYiN019PkySvjV",
}

// VoiceID returns the voice id for a mentor id, trying the id as given, its
// lower-cased form, and space/underscore-swapped variants.
func VoiceID(id string) (string, bool) {
	for _, candidate := range voiceCandidates(id) {
		if v, ok := voices[candidate]; ok {
			return v, true
		}
	}
	return "", false
}

// HasVoice reports whether VoiceID finds a voice for id.
func HasVoice(id string) bool {
	_, ok := VoiceID(id)
	return ok
}

func voiceCandidates(id string) []string {
	lower := strings.ToLower(id)
	return []string{
		id,
		lower,
		strings.ReplaceAll(id, " ", "_"),
		strings.ReplaceAll(id, "_", " "),
		strings.ReplaceAll(lower, " ", "_"),
		strings.ReplaceAll(lower, "_", " "),
	}
}
