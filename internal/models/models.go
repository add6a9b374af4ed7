package models

import (
	"encoding/json"
	"strconv"
	"strings"
)

// JobStatus tracks one render attempt through its lifecycle.
type JobStatus string

const (
	JobStatusQueued     JobStatus = "queued"
	JobStatusRendering  JobStatus = "rendering"
	JobStatusCancelling JobStatus = "cancelling"
	JobStatusPausing    JobStatus = "pausing"
	JobStatusCompleted  JobStatus = "completed"
	JobStatusFailed     JobStatus = "failed"
	JobStatusCancelled  JobStatus = "cancelled"
	JobStatusPaused     JobStatus = "paused"
)

// Terminal reports whether the status is final. A terminal job never
// transitions again.
func (s JobStatus) Terminal() bool {
	switch s {
	case JobStatusCompleted, JobStatusFailed, JobStatusCancelled, JobStatusPaused:
		return true
	}
	return false
}

// Job is the public record of one render attempt. VideoURL is set only on
// completed jobs, Error only on failed ones.
type Job struct {
	ID        string    `json:"id"`
	ProjectID string    `json:"projectId,omitempty"`
	Status    JobStatus `json:"status"`
	Progress  int       `json:"progress"`
	VideoURL  *string   `json:"videoUrl"`
	Error     *string   `json:"error"`
}

// Clone returns a copy safe to hand out while the original keeps mutating
// under the orchestrator's lock.
func (j *Job) Clone() *Job {
	if j == nil {
		return nil
	}
	out := *j
	if j.VideoURL != nil {
		v := *j.VideoURL
		out.VideoURL = &v
	}
	if j.Error != nil {
		e := *j.Error
		out.Error = &e
	}
	return &out
}

// Number is a tolerant JSON number. Client payloads are sloppy about scene
// order and durations: numbers arrive as floats, numeric strings, or null.
// Anything unparseable decodes as not-valid instead of failing the payload.
type Number struct {
	Value float64
	Valid bool
}

func (n *Number) UnmarshalJSON(data []byte) error {
	n.Value, n.Valid = 0, false
	trimmed := strings.TrimSpace(string(data))
	if trimmed == "" || trimmed == "null" {
		return nil
	}
	if strings.HasPrefix(trimmed, `"`) {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return nil
		}
		trimmed = strings.TrimSpace(s)
		if trimmed == "" {
			return nil
		}
	}
	v, err := strconv.ParseFloat(trimmed, 64)
	if err != nil {
		return nil
	}
	n.Value, n.Valid = v, true
	return nil
}

func (n Number) MarshalJSON() ([]byte, error) {
	if !n.Valid {
		return []byte("null"), nil
	}
	return json.Marshal(n.Value)
}

// Num builds a valid Number, mostly for tests and internal enrichment.
func Num(v float64) Number {
	return Number{Value: v, Valid: true}
}

// SceneMedia references a background clip chosen upstream.
type SceneMedia struct {
	URL       string `json:"url,omitempty"`
	ID        string `json:"id,omitempty"`
	Keyword   string `json:"keyword,omitempty"`
	Thumbnail string `json:"thumbnail,omitempty"`
	Source    string `json:"source,omitempty"`
}

// CaptionWord is one time-aligned narration token. Accepts the key variants
// different timing providers emit (text / word / token).
type CaptionWord struct {
	Text  string `json:"text"`
	Start Number `json:"start"`
	End   Number `json:"end"`
}

func (w *CaptionWord) UnmarshalJSON(data []byte) error {
	var raw struct {
		Text  string `json:"text"`
		Word  string `json:"word"`
		Token string `json:"token"`
		Start Number `json:"start"`
		End   Number `json:"end"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	text := raw.Text
	if text == "" {
		text = raw.Word
	}
	if text == "" {
		text = raw.Token
	}
	w.Text = strings.TrimSpace(text)
	w.Start = raw.Start
	w.End = raw.End
	return nil
}

// SceneCaptions is the word-timing payload attached to a scene. It decodes
// from either {"words": [...]} or a bare word array.
type SceneCaptions struct {
	Text  string        `json:"text,omitempty"`
	Words []CaptionWord `json:"words,omitempty"`
}

func (c *SceneCaptions) UnmarshalJSON(data []byte) error {
	trimmed := strings.TrimSpace(string(data))
	if trimmed == "" || trimmed == "null" {
		return nil
	}
	if strings.HasPrefix(trimmed, "[") {
		return json.Unmarshal(data, &c.Words)
	}
	var obj struct {
		Text  string        `json:"text"`
		Words []CaptionWord `json:"words"`
	}
	if err := json.Unmarshal(data, &obj); err != nil {
		return err
	}
	c.Text = obj.Text
	c.Words = obj.Words
	return nil
}

// Scene is one narrated segment of the output video. AudioPath,
// AudioDuration and Captions are filled in during orchestration; the
// submitted payload is read-only input.
type Scene struct {
	ID            string         `json:"id,omitempty"`
	Order         Number         `json:"order,omitempty"`
	Script        string         `json:"script,omitempty"`
	Text          string         `json:"text,omitempty"`
	Visual        string         `json:"visual,omitempty"`
	TTSVoice      string         `json:"ttsVoice,omitempty"`
	Keywords      []string       `json:"keywords,omitempty"`
	Media         *SceneMedia    `json:"media,omitempty"`
	Duration      Number         `json:"duration,omitempty"`
	AudioDuration Number         `json:"audioDuration,omitempty"`
	AudioPath     string         `json:"audioPath,omitempty"`
	Captions      *SceneCaptions `json:"captions,omitempty"`
}

// NarrationText returns the spoken script, preferring script over text.
func (s *Scene) NarrationText() string {
	if strings.TrimSpace(s.Script) != "" {
		return s.Script
	}
	return s.Text
}

// DeclaredDuration returns the scene's authoritative duration in seconds,
// or 0 when none was supplied. AudioDuration wins over the planned duration.
func (s *Scene) DeclaredDuration() float64 {
	if s.AudioDuration.Valid && s.AudioDuration.Value > 0 {
		return s.AudioDuration.Value
	}
	if s.Duration.Valid && s.Duration.Value > 0 {
		return s.Duration.Value
	}
	return 0
}

// ProjectPayload is the render request body. Produced by the storyboard
// endpoint or the client editor; the orchestrator treats it as input only.
type ProjectPayload struct {
	ID              string   `json:"id,omitempty"`
	Title           string   `json:"title,omitempty"`
	Prompt          string   `json:"prompt,omitempty"`
	Format          string   `json:"format,omitempty"`
	Narration       string   `json:"narration,omitempty"`
	VoiceModel      string   `json:"voiceModel,omitempty"`
	CaptionStyle    string   `json:"captionStyle,omitempty"`
	Keywords        []string `json:"keywords,omitempty"`
	Scenes          []Scene  `json:"scenes"`
	DurationSeconds Number   `json:"durationSeconds,omitempty"`
	RuntimeSeconds  Number   `json:"runtimeSeconds,omitempty"`
}
