package services

import (
	"testing"

	"github.com/unibox-design/Alcient/internal/models"
)

func TestPlanToPayloadNormalizesScenes(t *testing.T) {
	plan := &storyboardPlan{
		Title:     "  Tiny Giants  ",
		Narration: "Meet the ants.",
		Scenes: []storyboardScene{
			{Section: "THE HOOK", Text: "Ants outnumber humans a million to one.", Duration: models.Num(2)},
			{Section: "", Text: "   "},
			{Section: "PAYOFF", Text: "Their colonies farm, build, and wage war.", Duration: models.Num(40), Keywords: []string{"ant colony"}},
		},
	}
	req := StoryboardRequest{
		Prompt:          "why ants matter",
		Orientation:     "portrait",
		VoiceModel:      "Lady Holiday",
		CaptionStyle:    "Classic Clean",
		DurationSeconds: 60,
	}

	payload, err := planToPayload(plan, req)
	if err != nil {
		t.Fatalf("planToPayload: %v", err)
	}
	if payload.Title != "Tiny Giants" || payload.Format != "portrait" {
		t.Errorf("payload header wrong: %+v", payload)
	}
	if len(payload.Scenes) != 2 {
		t.Fatalf("blank scene not dropped, got %d scenes", len(payload.Scenes))
	}

	first := payload.Scenes[0]
	if first.Order.Value != 0 || first.Duration.Value != 3 {
		t.Errorf("first scene order/duration = %v/%v, want 0/3 (clamped up)", first.Order.Value, first.Duration.Value)
	}
	if len(first.Keywords) == 0 {
		t.Error("missing keywords were not extracted from scene text")
	}

	second := payload.Scenes[1]
	if second.Duration.Value != 12 {
		t.Errorf("duration not clamped down: %v", second.Duration.Value)
	}
	if second.Keywords[0] != "ant colony" {
		t.Errorf("explicit keywords overwritten: %v", second.Keywords)
	}
	if second.TTSVoice != "Lady Holiday" {
		t.Errorf("voice fallback missing: %q", second.TTSVoice)
	}
}

func TestPlanToPayloadRejectsEmptyPlan(t *testing.T) {
	if _, err := planToPayload(&storyboardPlan{}, StoryboardRequest{}); err == nil {
		t.Fatal("expected error for plan with no scenes")
	}
	plan := &storyboardPlan{Scenes: []storyboardScene{{Text: "  "}}}
	if _, err := planToPayload(plan, StoryboardRequest{}); err == nil {
		t.Fatal("expected error when all scenes are blank")
	}
}
