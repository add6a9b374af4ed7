package services

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"strings"

	openai "github.com/sashabaranov/go-openai"

	"github.com/unibox-design/Alcient/internal/models"
)

const storyboardModel = openai.GPT4o

// OpenAIStoryboard generates storyboards through the chat completions API
// with JSON mode enabled.
type OpenAIStoryboard struct {
	client *openai.Client
}

var _ StoryboardProvider = (*OpenAIStoryboard)(nil)

func NewOpenAIStoryboard(apiKey string) *OpenAIStoryboard {
	return &OpenAIStoryboard{client: openai.NewClient(apiKey)}
}

func (s *OpenAIStoryboard) GenerateStoryboard(ctx context.Context, req StoryboardRequest) (*models.ProjectPayload, error) {
	sceneHint := SceneCountForDuration(req.DurationSeconds)

	resp, err := s.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: storyboardModel,
		Messages: []openai.ChatCompletionMessage{
			{
				Role:    openai.ChatMessageRoleSystem,
				Content: buildStoryboardSystemPrompt(sceneHint),
			},
			{
				Role:    openai.ChatMessageRoleUser,
				Content: buildStoryboardUserPrompt(req, sceneHint),
			},
		},
		ResponseFormat: &openai.ChatCompletionResponseFormat{
			Type: openai.ChatCompletionResponseFormatTypeJSONObject,
		},
		Temperature: 0.7,
	})
	if err != nil {
		return nil, fmt.Errorf("openai request failed: %w", err)
	}
	if len(resp.Choices) == 0 {
		return nil, fmt.Errorf("no response from openai")
	}

	rawContent := resp.Choices[0].Message.Content
	var plan storyboardPlan
	if err := json.Unmarshal([]byte(rawContent), &plan); err != nil {
		log.Printf("[OpenAI storyboard] parse failed: %v", err)
		log.Printf("[OpenAI storyboard] raw response: %s", truncateString(rawContent, 2000))
		return nil, fmt.Errorf("failed to parse storyboard: %w", err)
	}

	payload, err := planToPayload(&plan, req)
	if err != nil {
		return nil, err
	}
	log.Printf("[OpenAI storyboard] %d scenes for %q", len(payload.Scenes), truncateString(req.Prompt, 80))
	return payload, nil
}

// WhisperTimer produces word-level caption timings via OpenAI transcription.
type WhisperTimer struct {
	client *openai.Client
}

func NewWhisperTimer(apiKey string) *WhisperTimer {
	return &WhisperTimer{client: openai.NewClient(apiKey)}
}

// TimeWords transcribes an audio file and returns per-word timestamps. The
// transcript may disagree with the script; callers keep the transcript's
// words because those are what the audio actually says.
func (t *WhisperTimer) TimeWords(ctx context.Context, audioPath, text string) ([]models.CaptionWord, error) {
	resp, err := t.client.CreateTranscription(ctx, openai.AudioRequest{
		Model:    openai.Whisper1,
		FilePath: audioPath,
		Format:   openai.AudioResponseFormatVerboseJSON,
		TimestampGranularities: []openai.TranscriptionTimestampGranularity{
			openai.TranscriptionTimestampGranularityWord,
		},
	})
	if err != nil {
		return nil, fmt.Errorf("whisper transcription failed: %w", err)
	}
	if len(resp.Words) == 0 {
		return nil, fmt.Errorf("whisper returned no word timestamps (text: %q)", resp.Text)
	}

	words := make([]models.CaptionWord, 0, len(resp.Words))
	for _, w := range resp.Words {
		word := strings.TrimSpace(w.Word)
		if word == "" {
			continue
		}
		words = append(words, models.CaptionWord{
			Text:  word,
			Start: models.Num(w.Start),
			End:   models.Num(w.End),
		})
	}

	log.Printf("[Whisper] Transcribed %d words (duration: %.1fs)", len(words), resp.Duration)
	return words, nil
}

// truncateString truncates a string to maxLen and appends "..." if truncated.
func truncateString(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	return s[:maxLen] + "..."
}
