package captions

import (
	"math"
	"strings"
	"testing"

	"github.com/unibox-design/Alcient/internal/models"
)

func wordPayload(text string, start, end float64) models.CaptionWord {
	return models.CaptionWord{Text: text, Start: models.Num(start), End: models.Num(end)}
}

func TestBuildTrackTimelineContinuity(t *testing.T) {
	scenes := []models.Scene{
		{
			AudioDuration: models.Num(5.0),
			Captions:      &models.SceneCaptions{Words: []models.CaptionWord{wordPayload("one", 0.0, 0.5)}},
		},
		{
			AudioDuration: models.Num(3.2),
			Captions:      &models.SceneCaptions{Words: []models.CaptionWord{wordPayload("two", 0.0, 0.5)}},
		},
		{
			AudioDuration: models.Num(4.0),
			Captions:      &models.SceneCaptions{Words: []models.CaptionWord{wordPayload("three", 0.0, 0.5)}},
		},
	}

	track := BuildTrack(scenes, "Classic Clean", 1920, 1080)
	if track == nil {
		t.Fatal("expected a track")
	}
	if len(track.Events) != 3 {
		t.Fatalf("events=%d, want 3", len(track.Events))
	}

	wantStarts := []int{0, 5000, 8200}
	for i, ev := range track.Events {
		if ev.Start != wantStarts[i] {
			t.Errorf("event %d start=%dms, want %dms", i, ev.Start, wantStarts[i])
		}
	}
}

func TestFallbackWordsEvenSplit(t *testing.T) {
	words := fallbackWords("hello world", 2.0)
	if len(words) != 2 {
		t.Fatalf("words=%d, want 2", len(words))
	}
	if words[0].Start != 0 || words[0].End != 1 {
		t.Errorf("first word [%v,%v), want [0,1)", words[0].Start, words[0].End)
	}
	if words[1].Start != 1 || words[1].End != 2 {
		t.Errorf("second word [%v,%v), want [1,2)", words[1].Start, words[1].End)
	}
}

func TestFallbackWordsNoDuration(t *testing.T) {
	words := fallbackWords("a b c", 0)
	if len(words) != 3 {
		t.Fatalf("words=%d, want 3", len(words))
	}
	if math.Abs(words[2].End-1.2) > 1e-9 {
		t.Errorf("last end=%v, want 1.2 (0.4s per word)", words[2].End)
	}
}

func TestResolveStyle(t *testing.T) {
	if got := ResolveStyle(""); got != DefaultStyle {
		t.Errorf("empty: got %q", got)
	}
	if got := ResolveStyle("totally unknown"); got != DefaultStyle {
		t.Errorf("unknown: got %q", got)
	}
	if got := ResolveStyle("kineticpop"); got != "Kinetic Pop" {
		t.Errorf("slug: got %q", got)
	}
	if got := ResolveStyle("KINETIC POP"); got != "Kinetic Pop" {
		t.Errorf("case: got %q", got)
	}
}

func TestGroupWordsSentenceBreak(t *testing.T) {
	words := []Word{
		{Text: "First."}, {Text: "then"}, {Text: "more"}, {Text: "words"},
	}
	lines := groupWordsIntoLines(words, 10)
	if len(lines) != 2 {
		t.Fatalf("lines=%d, want 2", len(lines))
	}
	if len(lines[0]) != 1 || lines[0][0].Text != "First." {
		t.Errorf("first line=%+v", lines[0])
	}
}

func TestGroupWordsClauseBreakNeedsHalfWidth(t *testing.T) {
	words := []Word{{Text: "a;"}, {Text: "b"}, {Text: "c;"}, {Text: "d"}}
	lines := groupWordsIntoLines(words, 4)
	// "a;" at position 1 is below half of 4, so the clause break is ignored;
	// "c;" at position 3 is past half width and closes the line.
	if len(lines) != 2 {
		t.Fatalf("lines=%d, want 2: %+v", len(lines), lines)
	}
	if len(lines[0]) != 3 {
		t.Errorf("first line has %d words, want 3", len(lines[0]))
	}
}

func TestKaraokeLineTiming(t *testing.T) {
	def := StyleFor("Highlight Bar")
	line := buildKaraokeLine([]Word{
		{Text: "go", Start: 0, End: 0.5},
		{Text: "now", Start: 0.5, End: 1.25},
	}, &def)

	if !strings.Contains(line, `{\k50}GO`) {
		t.Errorf("missing 50cs fragment: %q", line)
	}
	if !strings.Contains(line, `{\k75}NOW`) {
		t.Errorf("missing 75cs fragment: %q", line)
	}
	if !strings.Contains(line, `\h`) {
		t.Errorf("missing hard space separator: %q", line)
	}
}

func TestWordColorCycleWrapsAcrossScenes(t *testing.T) {
	scene := func(texts ...string) models.Scene {
		words := make([]models.CaptionWord, len(texts))
		for i, txt := range texts {
			words[i] = wordPayload(txt, float64(i), float64(i)+0.5)
		}
		return models.Scene{
			AudioDuration: models.Num(float64(len(texts))),
			Captions:      &models.SceneCaptions{Words: words},
		}
	}

	// Kinetic Pop cycles three colors; five words should wrap back to color 0
	// on the fourth event even across a scene boundary.
	track := BuildTrack([]models.Scene{scene("a", "b"), scene("c", "d", "e")}, "Kinetic Pop", 1080, 1920)
	if track == nil {
		t.Fatal("expected a track")
	}
	if len(track.Events) != 5 {
		t.Fatalf("events=%d, want 5", len(track.Events))
	}

	def := StyleFor("Kinetic Pop")
	first := formatOverrideColor(def.WordColorCycle[0])
	if !strings.Contains(track.Events[0].Text, first) {
		t.Errorf("event 0 missing color %s: %q", first, track.Events[0].Text)
	}
	if !strings.Contains(track.Events[3].Text, first) {
		t.Errorf("event 3 should wrap to color %s: %q", first, track.Events[3].Text)
	}
}

func TestSanitizeEscapesMetacharacters(t *testing.T) {
	got := sanitize("a{b}c\\d\nx\x00y")
	want := `a{{b}}c\\d\Nxy`
	if got != want {
		t.Errorf("sanitize=%q, want %q", got, want)
	}
}

func TestBuildTrackEmptyScenesReturnsNil(t *testing.T) {
	scenes := []models.Scene{{AudioDuration: models.Num(2)}, {}}
	if track := BuildTrack(scenes, "", 1920, 1080); track != nil {
		t.Fatalf("expected nil track, got %d events", len(track.Events))
	}
}

func TestPlainLineTrailingPad(t *testing.T) {
	scenes := []models.Scene{{
		AudioDuration: models.Num(2),
		Captions:      &models.SceneCaptions{Words: []models.CaptionWord{wordPayload("hi", 0, 1)}},
	}}
	track := BuildTrack(scenes, "Classic Clean", 1920, 1080)
	if track == nil {
		t.Fatal("expected a track")
	}
	if track.Events[0].End != 1050 {
		t.Errorf("plain line end=%dms, want 1050 (0.05s pad)", track.Events[0].End)
	}

	karaoke := BuildTrack([]models.Scene{{
		AudioDuration: models.Num(2),
		Captions:      &models.SceneCaptions{Words: []models.CaptionWord{wordPayload("hi", 0, 1)}},
	}}, "Highlight Bar", 1920, 1080)
	if karaoke == nil {
		t.Fatal("expected a karaoke track")
	}
	if karaoke.Events[0].End != 1000 {
		t.Errorf("karaoke line end=%dms, want 1000 (no pad)", karaoke.Events[0].End)
	}
}

func TestRenderContainsSections(t *testing.T) {
	track := BuildTrack([]models.Scene{{
		AudioDuration: models.Num(1),
		Captions:      &models.SceneCaptions{Words: []models.CaptionWord{wordPayload("hey", 0, 0.8)}},
	}}, "Simple Minimal", 1920, 1080)
	if track == nil {
		t.Fatal("expected a track")
	}
	out := track.Render()
	for _, section := range []string{"[Script Info]", "[V4+ Styles]", "[Events]", "Style: SimpleMinimal,", "Dialogue: 0,0:00:00.00,"} {
		if !strings.Contains(out, section) {
			t.Errorf("rendered ASS missing %q", section)
		}
	}
}

func TestFormatASSTime(t *testing.T) {
	cases := map[int]string{
		0:       "0:00:00.00",
		1050:    "0:00:01.05",
		8200:    "0:00:08.20",
		3723450: "1:02:03.45",
	}
	for ms, want := range cases {
		if got := formatASSTime(ms); got != want {
			t.Errorf("formatASSTime(%d)=%q, want %q", ms, got, want)
		}
	}
}
