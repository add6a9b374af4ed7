package services

import (
	"strings"
	"unicode"
)

// DefaultVoice is used when a project names no voice at all.
const DefaultVoice = "Lady Holiday"

// Voice is one entry in the narration voice catalog exposed to clients.
type Voice struct {
	Name  string `json:"name"`
	ID    string `json:"id"`
	Style string `json:"style"`
}

// voiceCatalog maps friendly voice names onto provider voice IDs. Names are
// what projects store; IDs are an ElevenLabs detail that never leaves the
// backend.
var voiceCatalog = []Voice{
	{Name: "Lady Holiday", ID: "21m00Tcm4TlvDq8ikWAM", Style: "documentary"},
	{Name: "Newsroom", ID: "pNInz6obpgDQGcFmaJgB", Style: "news"},
	{Name: "Storyteller", ID: "ErXwobaYiN019PkySvjV", Style: "entertainment"},
	{Name: "Dry Wit", ID: "VR6AewLTigWG4xSOukaG", Style: "satire"},
	{Name: "Gravitas", ID: "TxGEqnHWrfWFTfGW9XjX", Style: "serious"},
	{Name: "Boardroom", ID: "AZnzlk1XvdvUeBnXmlld", Style: "corporate"},
	{Name: "Sunny Side", ID: "MF3mGyEYCm88h4rCNXjb", Style: "kids"},
	{Name: "Signal Path", ID: "EXAVITQu4vr4xnSDxMaL", Style: "tech"},
}

// Voices returns the catalog for the voices endpoint.
func Voices() []Voice {
	out := make([]Voice, len(voiceCatalog))
	copy(out, voiceCatalog)
	return out
}

// ResolveVoiceID maps a requested voice onto a provider voice ID. Friendly
// names match case-insensitively; anything that already looks like a raw
// voice ID passes through untouched. Unknown names fall back to fallbackID,
// then to the catalog default.
func ResolveVoiceID(name, fallbackID string) string {
	trimmed := strings.TrimSpace(name)
	if trimmed != "" {
		for _, v := range voiceCatalog {
			if strings.EqualFold(v.Name, trimmed) {
				return v.ID
			}
		}
		if looksLikeVoiceID(trimmed) {
			return trimmed
		}
	}
	if fallbackID != "" {
		return fallbackID
	}
	return voiceCatalog[0].ID
}

// looksLikeVoiceID reports whether a string is plausibly a raw ElevenLabs
// voice ID: 20 alphanumeric characters, no spaces.
func looksLikeVoiceID(s string) bool {
	if len(s) != 20 {
		return false
	}
	for _, r := range s {
		if !unicode.IsLetter(r) && !unicode.IsDigit(r) {
			return false
		}
	}
	return true
}

// estimateSpeechDuration guesses a narration's length in seconds from word
// count. Only used when the audio file cannot be probed.
func estimateSpeechDuration(text string) float64 {
	words := len(strings.Fields(text))
	d := float64(words) / 2.5
	if d < 2.0 {
		return 2.0
	}
	return d
}
