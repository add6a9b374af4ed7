package models

import (
	"encoding/json"
	"testing"
)

func TestJobStatusTerminal(t *testing.T) {
	terminal := []JobStatus{JobStatusCompleted, JobStatusFailed, JobStatusCancelled, JobStatusPaused}
	for _, s := range terminal {
		if !s.Terminal() {
			t.Errorf("expected %s to be terminal", s)
		}
	}

	active := []JobStatus{JobStatusQueued, JobStatusRendering, JobStatusCancelling, JobStatusPausing}
	for _, s := range active {
		if s.Terminal() {
			t.Errorf("expected %s to be non-terminal", s)
		}
	}
}

func TestNumberUnmarshal(t *testing.T) {
	cases := []struct {
		name  string
		input string
		value float64
		valid bool
	}{
		{"float", `1.5`, 1.5, true},
		{"integer", `3`, 3, true},
		{"numeric string", `"2.25"`, 2.25, true},
		{"padded string", `" 4 "`, 4, true},
		{"null", `null`, 0, false},
		{"empty string", `""`, 0, false},
		{"garbage string", `"first"`, 0, false},
	}

	for _, tc := range cases {
		var n Number
		if err := json.Unmarshal([]byte(tc.input), &n); err != nil {
			t.Fatalf("%s: unexpected error: %v", tc.name, err)
		}
		if n.Valid != tc.valid {
			t.Errorf("%s: valid=%v, want %v", tc.name, n.Valid, tc.valid)
		}
		if n.Valid && n.Value != tc.value {
			t.Errorf("%s: value=%v, want %v", tc.name, n.Value, tc.value)
		}
	}
}

func TestCaptionWordKeyVariants(t *testing.T) {
	var w CaptionWord
	if err := json.Unmarshal([]byte(`{"word":" hello ","start":0.1,"end":"0.5"}`), &w); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if w.Text != "hello" {
		t.Errorf("text=%q, want %q", w.Text, "hello")
	}
	if !w.Start.Valid || w.Start.Value != 0.1 {
		t.Errorf("start=%+v, want 0.1", w.Start)
	}
	if !w.End.Valid || w.End.Value != 0.5 {
		t.Errorf("end=%+v, want 0.5", w.End)
	}
}

func TestSceneCaptionsAcceptsBareArray(t *testing.T) {
	var c SceneCaptions
	if err := json.Unmarshal([]byte(`[{"text":"one","start":0,"end":1}]`), &c); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if len(c.Words) != 1 || c.Words[0].Text != "one" {
		t.Fatalf("words=%+v, want one entry", c.Words)
	}
}

func TestSceneDeclaredDuration(t *testing.T) {
	s := Scene{Duration: Num(5)}
	if got := s.DeclaredDuration(); got != 5 {
		t.Errorf("duration fallback: got %v, want 5", got)
	}
	s.AudioDuration = Num(3.2)
	if got := s.DeclaredDuration(); got != 3.2 {
		t.Errorf("audioDuration wins: got %v, want 3.2", got)
	}
	if got := (&Scene{}).DeclaredDuration(); got != 0 {
		t.Errorf("empty scene: got %v, want 0", got)
	}
}

func TestJobClone(t *testing.T) {
	url := "/videos/p1/final.mp4"
	job := &Job{ID: "j1", Status: JobStatusCompleted, VideoURL: &url}
	clone := job.Clone()
	*clone.VideoURL = "changed"
	if *job.VideoURL != url {
		t.Errorf("clone shares VideoURL pointer with original")
	}
}
