package services

import (
	"reflect"
	"testing"
)

func TestExtractKeywordsRanksByFrequency(t *testing.T) {
	got := ExtractKeywords("Volcanoes shape islands. Volcanoes build land and volcanoes destroy towns near islands.", 3)
	want := []string{"volcanoes", "islands", "shape"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("got %v, want %v", got, want)
	}
}

func TestExtractKeywordsSkipsStopwordsAndDigits(t *testing.T) {
	got := ExtractKeywords("the and 12345 for with ok", 5)
	if len(got) != 0 {
		t.Errorf("expected no keywords, got %v", got)
	}
}

func TestExtractKeywordsEmptyText(t *testing.T) {
	if got := ExtractKeywords("   ", 5); got != nil {
		t.Errorf("expected nil, got %v", got)
	}
}

func TestResolveVoiceID(t *testing.T) {
	if got := ResolveVoiceID("lady holiday", ""); got != "21m00Tcm4TlvDq8ikWAM" {
		t.Errorf("name lookup failed: %q", got)
	}
	raw := "AbCdEfGhIjKlMnOpQrSt"
	if got := ResolveVoiceID(raw, ""); got != raw {
		t.Errorf("raw id should pass through, got %q", got)
	}
	if got := ResolveVoiceID("No Such Voice", "fallback-id"); got != "fallback-id" {
		t.Errorf("fallback not used: %q", got)
	}
	if got := ResolveVoiceID("", ""); got != voiceCatalog[0].ID {
		t.Errorf("default not used: %q", got)
	}
}

func TestSceneCountForDuration(t *testing.T) {
	cases := map[int]int{60: 6, 120: 8, 200: 10, 280: 12, 400: 16, 600: 16}
	for seconds, want := range cases {
		if got := SceneCountForDuration(seconds); got != want {
			t.Errorf("SceneCountForDuration(%d) = %d, want %d", seconds, got, want)
		}
	}
}
