package services

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"github.com/unibox-design/Alcient/internal/models"
)

// StoryboardRequest is the normalized input for storyboard generation.
type StoryboardRequest struct {
	Prompt          string
	Orientation     string
	VoiceModel      string
	CaptionStyle    string
	DurationSeconds int
}

// StoryboardProvider turns a one-line idea into a full project payload.
type StoryboardProvider interface {
	GenerateStoryboard(ctx context.Context, req StoryboardRequest) (*models.ProjectPayload, error)
}

// storyboardPlan is the JSON schema both LLM providers are asked to emit.
type storyboardPlan struct {
	Title     string           `json:"title"`
	Narration string           `json:"narration"`
	Scenes    []storyboardScene `json:"scenes"`
}

type storyboardScene struct {
	Section  string        `json:"section"`
	Text     string        `json:"text"`
	Duration models.Number `json:"duration"`
	Keywords []string      `json:"keywords"`
	TTSVoice string        `json:"ttsVoice"`
}

// SceneCountForDuration suggests how many scenes a runtime should split into.
func SceneCountForDuration(seconds int) int {
	switch {
	case seconds <= 75:
		return 6
	case seconds <= 150:
		return 8
	case seconds <= 210:
		return 10
	case seconds <= 300:
		return 12
	}
	n := seconds / 20
	if n < 10 {
		n = 10
	}
	if n > 16 {
		n = 16
	}
	return n
}

func buildStoryboardSystemPrompt(sceneHint int) string {
	return fmt.Sprintf("You are an expert short-form video content creator and scriptwriter, "+
		"crafting fast-paced, high-retention scripts for TikTok, Instagram Reels, and YouTube Shorts. "+
		"Transform the provided idea into a compelling narrative that flows through these beats in order: "+
		"THE HOOK, PROBLEM/CONTEXT, SOLUTION/VALUE DROP. You may add supporting beats between them, "+
		"but the story must start with a hook and end with a final thought, insight, or call to reflection. "+
		"Write in punchy, conversational language with vivid imagery, keeping each scene to one or two crisp sentences. "+
		"Respond ONLY with valid JSON containing: 'title' (<= 80 characters), "+
		"'narration' (2-3 short energetic paragraphs), and 'scenes' (array of around %d scenes). "+
		"Each scene object must include 'section' (the beat label), 'text' (<= 2 sentences), "+
		"'duration' (integer seconds), and 'keywords' (array of 2-4 high-signal search terms). "+
		"Ensure scene durations sum close to the target runtime.", sceneHint)
}

func buildStoryboardUserPrompt(req StoryboardRequest, sceneHint int) string {
	targetWords := req.DurationSeconds * 3
	if targetWords < 120 {
		targetWords = 120
	}
	return fmt.Sprintf("Create a storyboard for the following idea.\n"+
		"Idea prompt: %s\n"+
		"Target aspect ratio: %s.\n"+
		"Target runtime: %d seconds.\n"+
		"Desired voice style: %s.\n"+
		"Total narration length should stay between %d and %d words so the voiceover fits the runtime.\n"+
		"Plan for roughly %d scenes so the pacing feels even. "+
		"Scene durations should add up close to the target runtime. "+
		"Remember: respond strictly with JSON.",
		req.Prompt, req.Orientation, req.DurationSeconds, req.VoiceModel,
		targetWords*9/10, targetWords*11/10, sceneHint)
}

// planToPayload normalizes an LLM plan into a render-ready project payload.
// Scene order is the plan's array position; durations are clamped to 3-12s
// and scenes without keywords get them extracted from their own text.
func planToPayload(plan *storyboardPlan, req StoryboardRequest) (*models.ProjectPayload, error) {
	if plan == nil || len(plan.Scenes) == 0 {
		return nil, fmt.Errorf("storyboard has no scenes")
	}

	payload := &models.ProjectPayload{
		ID:              uuid.NewString(),
		Title:           strings.TrimSpace(plan.Title),
		Prompt:          req.Prompt,
		Format:          req.Orientation,
		Narration:       strings.TrimSpace(plan.Narration),
		VoiceModel:      req.VoiceModel,
		CaptionStyle:    req.CaptionStyle,
		DurationSeconds: models.Num(float64(req.DurationSeconds)),
	}

	for i, scene := range plan.Scenes {
		text := strings.TrimSpace(scene.Text)
		if text == "" {
			continue
		}
		duration := 5.0
		if scene.Duration.Valid && scene.Duration.Value > 0 {
			duration = scene.Duration.Value
		}
		if duration < 3 {
			duration = 3
		}
		if duration > 12 {
			duration = 12
		}
		keywords := scene.Keywords
		if len(keywords) == 0 {
			keywords = ExtractKeywords(text, 3)
		}
		voice := strings.TrimSpace(scene.TTSVoice)
		if voice == "" {
			voice = req.VoiceModel
		}
		payload.Scenes = append(payload.Scenes, models.Scene{
			ID:       uuid.NewString(),
			Order:    models.Num(float64(i)),
			Script:   text,
			Text:     text,
			Visual:   strings.TrimSpace(scene.Section),
			TTSVoice: voice,
			Keywords: keywords,
			Duration: models.Num(duration),
		})
	}
	if len(payload.Scenes) == 0 {
		return nil, fmt.Errorf("storyboard has no usable scenes")
	}

	payload.Keywords = ExtractKeywords(req.Prompt+" "+payload.Title, 5)
	return payload, nil
}
