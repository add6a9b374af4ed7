package captions

import (
	"fmt"
	"math"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"unicode"

	"github.com/unibox-design/Alcient/internal/models"
)

// Word is a normalized caption token, timed in seconds.
type Word struct {
	Text  string
	Start float64
	End   float64
}

// Event is one subtitle event, timed in milliseconds from the start of the
// assembled video.
type Event struct {
	Start int
	End   int
	Text  string
}

// Track is a whole-timeline subtitle track ready to serialize as ASS.
type Track struct {
	Style    StyleDefinition
	Events   []Event
	PlayResX int
	PlayResY int
}

func round3(v float64) float64 {
	return math.Round(v*1000) / 1000
}

// normalizeWords converts a scene's caption payload into clean tokens.
// Missing starts chain from the previous end, and every token gets a
// positive duration even when the provider emitted garbage.
func normalizeWords(c *models.SceneCaptions) []Word {
	if c == nil {
		return nil
	}
	words := make([]Word, 0, len(c.Words))
	var prevEnd float64
	havePrev := false
	for _, raw := range c.Words {
		token := strings.TrimSpace(raw.Text)
		if token == "" {
			continue
		}
		var start float64
		if raw.Start.Valid {
			start = round3(raw.Start.Value)
		} else if havePrev {
			start = prevEnd
		}
		end := start + 0.4
		if raw.End.Valid && round3(raw.End.Value) > start {
			end = round3(raw.End.Value)
		}
		prevEnd, havePrev = end, true
		words = append(words, Word{Text: token, Start: start, End: end})
	}
	sort.SliceStable(words, func(i, j int) bool { return words[i].Start < words[j].Start })
	return words
}

// fallbackWords synthesizes evenly spaced timings from raw scene text when no
// caption data was supplied. With no known duration each word gets 0.4s.
func fallbackWords(text string, duration float64) []Word {
	tokens := strings.Fields(text)
	if len(tokens) == 0 {
		return nil
	}
	total := duration
	if total <= 0 {
		total = float64(len(tokens)) * 0.4
	}
	slice := total / float64(len(tokens))
	words := make([]Word, len(tokens))
	for i, token := range tokens {
		start := round3(float64(i) * slice)
		words[i] = Word{Text: token, Start: start, End: round3(start + slice)}
	}
	return words
}

// sceneDuration is the authoritative span of a scene on the timeline: the
// declared duration, stretched to cover the last caption word if needed.
func sceneDuration(scene *models.Scene, words []Word) float64 {
	explicit := scene.DeclaredDuration()
	var lastEnd float64
	for _, w := range words {
		if w.End > lastEnd {
			lastEnd = w.End
		}
	}
	if explicit < lastEnd {
		explicit = lastEnd
	}
	if explicit < 0 {
		return 0
	}
	return round3(explicit)
}

var noSpaceBefore = map[rune]bool{
	',': true, '.': true, '!': true, '?': true, ':': true, ';': true,
	')': true, ']': true, '}': true, '»': true, '”': true, '′': true,
}

func requiresSpace(next string) bool {
	trimmed := strings.TrimSpace(next)
	if trimmed == "" {
		return false
	}
	r := []rune(trimmed)[0]
	return !noSpaceBefore[r]
}

// sanitize strips control characters and escapes ASS metacharacters so raw
// scene text cannot corrupt the subtitle file structure.
func sanitize(text string) string {
	var b strings.Builder
	for _, r := range text {
		if unicode.IsControl(r) && r != '\t' && r != '\n' && r != '\r' {
			continue
		}
		b.WriteRune(r)
	}
	value := b.String()
	value = strings.ReplaceAll(value, `\`, `\\`)
	value = strings.ReplaceAll(value, "{", "{{")
	value = strings.ReplaceAll(value, "}", "}}")
	value = strings.ReplaceAll(value, "\r", "")
	value = strings.ReplaceAll(value, "\n", `\N`)
	return value
}

func transformToken(text string, def *StyleDefinition) string {
	if def.Uppercase {
		text = strings.ToUpper(text)
	}
	return sanitize(text)
}

// formatOverrideColor converts an &HAABBGGRR style color into the &HBBGGRR&
// form used by inline override tags.
func formatOverrideColor(value string) string {
	token := strings.ToUpper(strings.TrimSpace(value))
	if !strings.HasPrefix(token, "&H") {
		return ""
	}
	hexPart := token[2:]
	if hexPart == "" {
		return ""
	}
	if len(hexPart) > 8 {
		hexPart = hexPart[len(hexPart)-8:]
	}
	for len(hexPart) < 6 {
		hexPart = "0" + hexPart
	}
	return "&H" + hexPart[len(hexPart)-6:] + "&"
}

func wrapWithTags(text string, tags []string) string {
	if text == "" {
		return ""
	}
	var joined strings.Builder
	for _, tag := range tags {
		tag = strings.TrimSpace(tag)
		if tag == "" || !strings.HasPrefix(tag, `\`) {
			continue
		}
		joined.WriteString(tag)
	}
	if joined.Len() == 0 {
		return text
	}
	return "{" + joined.String() + "}" + text
}

// groupWordsIntoLines closes a visual line at the style's max width, at
// sentence-ending punctuation, or at a clause break once the line is at
// least half full.
func groupWordsIntoLines(words []Word, maxWords int) [][]Word {
	if maxWords < 1 {
		maxWords = 1
	}
	var lines [][]Word
	var current []Word
	for _, word := range words {
		current = append(current, word)
		stripped := strings.TrimSpace(word.Text)
		sentenceEnd := strings.HasSuffix(stripped, ".") ||
			strings.HasSuffix(stripped, "!") ||
			strings.HasSuffix(stripped, "?")
		clauseBreak := strings.HasSuffix(stripped, ";") || strings.HasSuffix(stripped, ":")
		if len(current) >= maxWords || sentenceEnd || (clauseBreak && len(current) >= maxWords/2) {
			lines = append(lines, current)
			current = nil
		}
	}
	if len(current) > 0 {
		lines = append(lines, current)
	}
	return lines
}

func buildPlainLine(words []Word, def *StyleDefinition) string {
	var pieces []string
	for i, word := range words {
		token := transformToken(word.Text, def)
		if token == "" {
			continue
		}
		pieces = append(pieces, token)
		var next string
		if i+1 < len(words) {
			next = words[i+1].Text
		}
		if requiresSpace(next) {
			pieces = append(pieces, " ")
		}
	}
	return strings.TrimSpace(strings.Join(pieces, ""))
}

// buildKaraokeLine encodes per-word reveal timing as proportional \k
// highlight durations (centiseconds) with hard spaces between words.
func buildKaraokeLine(words []Word, def *StyleDefinition) string {
	var b strings.Builder
	for i, word := range words {
		token := transformToken(word.Text, def)
		if token == "" {
			continue
		}
		duration := word.End - word.Start
		if duration < 0.01 {
			duration = 0.01
		}
		centis := int(math.Round(duration * 100))
		if centis < 1 {
			centis = 1
		}
		fmt.Fprintf(&b, `{\k%d}%s`, centis, token)
		var next string
		if i+1 < len(words) {
			next = words[i+1].Text
		}
		if requiresSpace(next) {
			b.WriteString(`\h`)
		}
	}
	return b.String()
}

// BuildTrack converts ordered scenes into one timeline-relative subtitle
// track. Scenes without caption data fall back to synthesized timings from
// the scene text. Returns nil when zero events were produced.
func BuildTrack(scenes []models.Scene, styleName string, width, height int) *Track {
	def := StyleFor(styleName)

	// The per-line builder is chosen once for the whole track.
	lineText := buildPlainLine
	linePad := 0.05
	if def.Karaoke {
		lineText = buildKaraokeLine
		linePad = 0
	}

	track := &Track{Style: def, PlayResX: width, PlayResY: height}
	timelineOffset := 0.0
	wordEventIndex := 0

	for i := range scenes {
		scene := &scenes[i]
		localWords := normalizeWords(scene.Captions)
		if len(localWords) == 0 {
			localWords = fallbackWords(scene.NarrationText(), scene.DeclaredDuration())
		}

		absolute := make([]Word, len(localWords))
		for j, w := range localWords {
			absolute[j] = Word{
				Text:  w.Text,
				Start: round3(w.Start + timelineOffset),
				End:   round3(w.End + timelineOffset),
			}
		}

		switch def.Mode {
		case ModeWord:
			for _, word := range absolute {
				text := transformToken(word.Text, &def)
				if text == "" {
					continue
				}
				tags := append([]string(nil), def.WordTags...)
				if len(def.WordColorCycle) > 0 {
					color := def.WordColorCycle[wordEventIndex%len(def.WordColorCycle)]
					if override := formatOverrideColor(color); override != "" {
						tags = append(tags, `\1c`+override)
					}
				}
				startMs := int(math.Round(word.Start * 1000))
				if startMs < 0 {
					startMs = 0
				}
				endMs := int(math.Round(word.End * 1000))
				if endMs <= startMs {
					endMs = startMs + 1
				}
				track.Events = append(track.Events, Event{
					Start: startMs,
					End:   endMs,
					Text:  wrapWithTags(text, tags),
				})
				wordEventIndex++
			}
		default:
			for _, lineWords := range groupWordsIntoLines(absolute, def.MaxWordsPerLine) {
				text := lineText(lineWords, &def)
				if text == "" {
					continue
				}
				text = wrapWithTags(text, def.LineTags)
				start, end := lineWords[0].Start, lineWords[0].End
				for _, w := range lineWords {
					if w.Start < start {
						start = w.Start
					}
					if w.End > end {
						end = w.End
					}
				}
				startMs := int(math.Round(start * 1000))
				if startMs < 0 {
					startMs = 0
				}
				endMs := int(math.Round((end + linePad) * 1000))
				if endMs <= startMs {
					endMs = startMs + 1
				}
				track.Events = append(track.Events, Event{Start: startMs, End: endMs, Text: text})
			}
		}

		timelineOffset = round3(timelineOffset + sceneDuration(scene, localWords))
	}

	if len(track.Events) == 0 {
		return nil
	}

	sort.SliceStable(track.Events, func(i, j int) bool {
		if track.Events[i].Start != track.Events[j].Start {
			return track.Events[i].Start < track.Events[j].Start
		}
		return track.Events[i].End < track.Events[j].End
	})
	return track
}

// Render serializes the track as an ASS subtitle file.
func (t *Track) Render() string {
	def := t.Style

	var sb strings.Builder
	sb.WriteString("[Script Info]\n")
	sb.WriteString("ScriptType: v4.00+\n")
	fmt.Fprintf(&sb, "PlayResX: %d\n", t.PlayResX)
	fmt.Fprintf(&sb, "PlayResY: %d\n", t.PlayResY)
	sb.WriteString("WrapStyle: 0\n")
	sb.WriteString("ScaledBorderAndShadow: yes\n\n")

	sb.WriteString("[V4+ Styles]\n")
	sb.WriteString("Format: Name, Fontname, Fontsize, PrimaryColour, SecondaryColour, OutlineColour, BackColour, Bold, Italic, Underline, StrikeOut, ScaleX, ScaleY, Spacing, Angle, BorderStyle, Outline, Shadow, Alignment, MarginL, MarginR, MarginV, Encoding\n")

	secondary := def.Secondary
	if secondary == "" {
		secondary = def.Primary
	}
	back := def.BackColor
	if back == "" {
		back = "&H00000000"
	}
	bold := 0
	if def.Bold {
		bold = -1
	}
	fmt.Fprintf(&sb,
		"Style: %s,%s,%g,%s,%s,%s,%s,%d,0,0,0,100,100,%g,0,%d,%g,%g,%d,%d,%d,%d,1\n\n",
		def.StyleName, def.FontName, def.FontSize,
		def.Primary, secondary, def.OutlineColor, back,
		bold, def.Spacing, def.BorderStyle, def.Outline, def.Shadow,
		def.Alignment, def.MarginH, def.MarginH, def.MarginV,
	)

	sb.WriteString("[Events]\n")
	sb.WriteString("Format: Layer, Start, End, Style, Name, MarginL, MarginR, MarginV, Effect, Text\n")
	for _, ev := range t.Events {
		fmt.Fprintf(&sb, "Dialogue: 0,%s,%s,%s,,0,0,0,,%s\n",
			formatASSTime(ev.Start), formatASSTime(ev.End), def.StyleName, ev.Text)
	}
	return sb.String()
}

// WriteFile renders the track to an .ass file at path.
func (t *Track) WriteFile(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create subtitle dir: %w", err)
	}
	if err := os.WriteFile(path, []byte(t.Render()), 0644); err != nil {
		return fmt.Errorf("failed to write subtitle file: %w", err)
	}
	return nil
}

// formatASSTime converts milliseconds to the ASS timestamp format
// H:MM:SS.CC (centiseconds).
func formatASSTime(ms int) string {
	if ms < 0 {
		ms = 0
	}
	total := ms / 10 // centiseconds
	centis := total % 100
	seconds := total / 100
	hours := seconds / 3600
	minutes := (seconds % 3600) / 60
	secs := seconds % 60
	return fmt.Sprintf("%d:%02d:%02d.%02d", hours, minutes, secs, centis)
}
