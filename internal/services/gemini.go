package services

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"strings"

	"google.golang.org/genai"

	"github.com/unibox-design/Alcient/internal/models"
)

const geminiStoryboardModel = "gemini-2.0-flash"

// GeminiStoryboard generates storyboards through the Google Gen AI SDK.
// Interchangeable with the OpenAI provider; selection happens at startup.
type GeminiStoryboard struct {
	apiKey string
	model  string
}

var _ StoryboardProvider = (*GeminiStoryboard)(nil)

func NewGeminiStoryboard(apiKey, model string) *GeminiStoryboard {
	if model == "" {
		model = geminiStoryboardModel
	}
	return &GeminiStoryboard{apiKey: apiKey, model: model}
}

func (s *GeminiStoryboard) GenerateStoryboard(ctx context.Context, req StoryboardRequest) (*models.ProjectPayload, error) {
	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  s.apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create genai client: %w", err)
	}

	sceneHint := SceneCountForDuration(req.DurationSeconds)
	prompt := buildStoryboardSystemPrompt(sceneHint) + "\n\n" + buildStoryboardUserPrompt(req, sceneHint)

	resp, err := client.Models.GenerateContent(ctx, s.model, genai.Text(prompt), &genai.GenerateContentConfig{
		ResponseMIMEType: "application/json",
	})
	if err != nil {
		return nil, fmt.Errorf("gemini request failed: %w", err)
	}

	rawContent := strings.TrimSpace(resp.Text())
	if rawContent == "" {
		return nil, fmt.Errorf("gemini returned empty response")
	}

	var plan storyboardPlan
	if err := json.Unmarshal([]byte(rawContent), &plan); err != nil {
		log.Printf("[Gemini storyboard] parse failed: %v", err)
		log.Printf("[Gemini storyboard] raw response: %s", truncateString(rawContent, 2000))
		return nil, fmt.Errorf("failed to parse storyboard: %w", err)
	}

	payload, err := planToPayload(&plan, req)
	if err != nil {
		return nil, err
	}
	log.Printf("[Gemini storyboard] %d scenes for %q", len(payload.Scenes), truncateString(req.Prompt, 80))
	return payload, nil
}
