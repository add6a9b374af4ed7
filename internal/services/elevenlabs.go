package services

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"github.com/unibox-design/Alcient/internal/compositor"
)

// ---------------------------------------------------------------------------
// ElevenLabs Text-to-Speech narrator
// Uses the ElevenLabs REST API to convert scene scripts into speech audio.
// Model: eleven_flash_v2_5 (Flash v2.5, fast, 32 languages)
// ---------------------------------------------------------------------------

const (
	elevenLabsBaseURL      = "https://api.elevenlabs.io"
	elevenLabsDefaultModel = "eleven_flash_v2_5"
	elevenLabsOutputFormat = "mp3_44100_128"
)

// ElevenLabs synthesizes narration audio with a content-addressed file
// cache. The cache key is voice plus text, so re-rendering a project never
// re-bills unchanged scenes.
type ElevenLabs struct {
	apiKey         string
	defaultVoiceID string
	modelID        string
	cacheDir       string
	client         *http.Client

	// probe measures real audio duration; swapped out in tests.
	probe func(ctx context.Context, path string) (float64, error)
}

func NewElevenLabs(apiKey, defaultVoiceID, cacheDir string) *ElevenLabs {
	return &ElevenLabs{
		apiKey:         apiKey,
		defaultVoiceID: defaultVoiceID,
		modelID:        elevenLabsDefaultModel,
		cacheDir:       cacheDir,
		client:         &http.Client{Timeout: 90 * time.Second},
		probe:          compositor.ProbeDuration,
	}
}

type elevenLabsRequest struct {
	Text          string                   `json:"text"`
	ModelID       string                   `json:"model_id"`
	VoiceSettings *elevenLabsVoiceSettings `json:"voice_settings,omitempty"`
	Speed         *float64                 `json:"speed,omitempty"`
}

type elevenLabsVoiceSettings struct {
	Stability       float64 `json:"stability"`
	SimilarityBoost float64 `json:"similarity_boost"`
	Style           float64 `json:"style,omitempty"`
	UseSpeakerBoost bool    `json:"use_speaker_boost,omitempty"`
}

// Synthesize returns the audio file path and its duration in seconds for a
// scene script, generating it on first use.
func (s *ElevenLabs) Synthesize(ctx context.Context, text, voice string) (string, float64, error) {
	voiceID := ResolveVoiceID(voice, s.defaultVoiceID)

	sum := sha256.Sum256([]byte(voiceID + "::" + text))
	audioPath := filepath.Join(s.cacheDir, hex.EncodeToString(sum[:])+".mp3")

	if _, err := os.Stat(audioPath); err == nil {
		return audioPath, s.duration(ctx, audioPath, text), nil
	}
	if err := os.MkdirAll(s.cacheDir, 0755); err != nil {
		return "", 0, fmt.Errorf("failed to create tts cache dir: %w", err)
	}

	speed := 0.85 // slightly slower for clear narration delivery
	reqBody := elevenLabsRequest{
		Text:    text,
		ModelID: s.modelID,
		Speed:   &speed,
		VoiceSettings: &elevenLabsVoiceSettings{
			Stability:       0.60,
			SimilarityBoost: 0.80,
			Style:           0.35,
			UseSpeakerBoost: true,
		},
	}
	jsonData, err := json.Marshal(reqBody)
	if err != nil {
		return "", 0, fmt.Errorf("failed to marshal ElevenLabs request: %w", err)
	}

	url := fmt.Sprintf("%s/v1/text-to-speech/%s?output_format=%s",
		elevenLabsBaseURL, voiceID, elevenLabsOutputFormat)
	req, err := http.NewRequestWithContext(ctx, "POST", url, bytes.NewReader(jsonData))
	if err != nil {
		return "", 0, fmt.Errorf("failed to create ElevenLabs request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("xi-api-key", s.apiKey)

	log.Printf("[ElevenLabs] Generating speech (voiceID=%s, model=%s, textLen=%d)",
		voiceID, s.modelID, len(text))

	resp, err := s.client.Do(req)
	if err != nil {
		return "", 0, fmt.Errorf("ElevenLabs request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return "", 0, fmt.Errorf("ElevenLabs returned status %d: %s", resp.StatusCode, truncateString(string(body), 300))
	}

	// The response body is the audio file. Write through a temp file so a
	// broken connection never leaves a truncated entry in the cache.
	tmp, err := os.CreateTemp(s.cacheDir, ".tts-*")
	if err != nil {
		return "", 0, fmt.Errorf("failed to create temp audio file: %w", err)
	}
	written, err := io.Copy(tmp, resp.Body)
	if cerr := tmp.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		os.Remove(tmp.Name())
		return "", 0, fmt.Errorf("failed to write ElevenLabs audio: %w", err)
	}
	if written == 0 {
		os.Remove(tmp.Name())
		return "", 0, fmt.Errorf("ElevenLabs returned empty audio")
	}
	if err := os.Rename(tmp.Name(), audioPath); err != nil {
		os.Remove(tmp.Name())
		return "", 0, fmt.Errorf("failed to move audio into cache: %w", err)
	}

	duration := s.duration(ctx, audioPath, text)
	log.Printf("[ElevenLabs] Speech generated (%d bytes, %.2fs)", written, duration)
	return audioPath, duration, nil
}

// duration probes the real audio length, estimating from word count when the
// probe fails.
func (s *ElevenLabs) duration(ctx context.Context, audioPath, text string) float64 {
	if s.probe != nil {
		if d, err := s.probe(ctx, audioPath); err == nil && d > 0 {
			return d
		}
	}
	return estimateSpeechDuration(text)
}
