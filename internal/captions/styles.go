package captions

import (
	"strings"
	"unicode"
)

// Mode selects how caption words become subtitle events. Resolved once per
// track, not per word.
type Mode int

const (
	// ModeLine groups consecutive words into visual lines.
	ModeLine Mode = iota
	// ModeWord emits one individually timed event per word.
	ModeWord
)

// StyleDefinition is one caption preset. Colors are ASS &HAABBGGRR values.
type StyleDefinition struct {
	StyleName       string
	Mode            Mode
	FontName        string
	FontSize        float64
	Primary         string
	Secondary       string
	OutlineColor    string
	BackColor       string
	BorderStyle     int
	Outline         float64
	Shadow          float64
	MarginV         int
	MarginH         int
	Alignment       int
	Bold            bool
	Karaoke         bool
	MaxWordsPerLine int
	Spacing         float64
	Uppercase       bool
	WordColorCycle  []string
	WordTags        []string
	LineTags        []string
}

const bottomCenter = 2

// DefaultStyle is the preset used when the requested style is unknown.
const DefaultStyle = "Classic Clean"

var stylePresets = map[string]StyleDefinition{
	"Classic Clean": {
		StyleName:       "ClassicClean",
		Mode:            ModeLine,
		FontName:        "Arial",
		FontSize:        40,
		Primary:         "&H00FFFFFF",
		Secondary:       "&H00FFFFFF",
		OutlineColor:    "&H00000000",
		BorderStyle:     1,
		Outline:         2.0,
		Shadow:          1.0,
		MarginV:         60,
		MarginH:         80,
		Alignment:       bottomCenter,
		MaxWordsPerLine: 10,
	},
	"Kinetic Pop": {
		StyleName:       "KineticPop",
		Mode:            ModeWord,
		FontName:        "Impact",
		FontSize:        52,
		Primary:         "&H0000DDFF",
		Secondary:       "&H0000DDFF",
		OutlineColor:    "&H00000000",
		BorderStyle:     1,
		Outline:         4.0,
		MarginV:         84,
		MarginH:         90,
		Alignment:       bottomCenter,
		Bold:            true,
		MaxWordsPerLine: 1,
		Spacing:         1.8,
		Uppercase:       true,
		WordColorCycle: []string{
			"&H0000DDFF", // warm yellow
			"&H00FFC600", // aqua blue
			"&H009D55FF", // hot pink
		},
		WordTags: []string{`\bord7`, `\shad0`, `\fscx112`, `\fscy110`},
	},
	"Highlight Bar": {
		StyleName:       "HighlightBar",
		Mode:            ModeLine,
		FontName:        "Helvetica Neue Bold",
		FontSize:        42,
		Primary:         "&H0060FFE8",
		Secondary:       "&H0000D5FF",
		OutlineColor:    "&H00000000",
		BackColor:       "&H99000000",
		BorderStyle:     3,
		Outline:         1.0,
		MarginV:         70,
		MarginH:         90,
		Alignment:       bottomCenter,
		Karaoke:         true,
		MaxWordsPerLine: 9,
		Uppercase:       true,
		LineTags:        []string{`\bord0`, `\shad0`},
	},
	"Outline Glow": {
		StyleName:       "OutlineGlow",
		Mode:            ModeWord,
		FontName:        "Arial Black",
		FontSize:        48,
		Primary:         "&H00E4FDFF",
		Secondary:       "&H00E4FDFF",
		OutlineColor:    "&H007D3DFF",
		BorderStyle:     1,
		Outline:         5.0,
		MarginV:         80,
		MarginH:         100,
		Alignment:       bottomCenter,
		Bold:            true,
		MaxWordsPerLine: 1,
		Spacing:         0.6,
		Uppercase:       true,
		WordColorCycle: []string{
			"&H008040FF", // neon purple
			"&H00FFFFFF", // crisp white
		},
		WordTags: []string{`\bord6`, `\blur4`},
	},
	"Subtitle Boxed": {
		StyleName:       "SubtitleBoxed",
		Mode:            ModeLine,
		FontName:        "Gill Sans Bold",
		FontSize:        44,
		Primary:         "&H00F5F5F5",
		Secondary:       "&H003CFFE0",
		OutlineColor:    "&H00000000",
		BackColor:       "&HB0000000",
		BorderStyle:     3,
		MarginV:         64,
		MarginH:         85,
		Alignment:       bottomCenter,
		Bold:            true,
		Karaoke:         true,
		MaxWordsPerLine: 9,
		Uppercase:       true,
		LineTags:        []string{`\bord0`, `\shad0`},
	},
	"Simple Minimal": {
		StyleName:       "SimpleMinimal",
		Mode:            ModeLine,
		FontName:        "Helvetica Neue",
		FontSize:        36,
		Primary:         "&H00F5F5F5",
		Secondary:       "&H00F5F5F5",
		OutlineColor:    "&H00202020",
		BorderStyle:     1,
		Outline:         1.0,
		Shadow:          0.4,
		MarginV:         70,
		MarginH:         90,
		Alignment:       bottomCenter,
		MaxWordsPerLine: 10,
		Spacing:         0.4,
		LineTags:        []string{`\bord1`, `\shad0`},
	},
}

var (
	styleKeyLookup  = map[string]string{}
	styleSlugLookup = map[string]string{}
)

func init() {
	for displayName, def := range stylePresets {
		lowered := strings.ToLower(displayName)
		styleKeyLookup[lowered] = displayName
		if slug := slugify(lowered); slug != "" {
			styleSlugLookup[slug] = displayName
		}
		styleLower := strings.ToLower(def.StyleName)
		styleKeyLookup[styleLower] = displayName
		if slug := slugify(styleLower); slug != "" {
			if _, ok := styleSlugLookup[slug]; !ok {
				styleSlugLookup[slug] = displayName
			}
		}
	}
}

func slugify(s string) string {
	var b strings.Builder
	for _, r := range s {
		if unicode.IsLower(r) || unicode.IsDigit(r) {
			b.WriteRune(r)
		}
	}
	return b.String()
}

// ResolveStyle maps a requested style name to a known preset key. Unknown or
// empty names resolve to the default preset rather than erroring.
func ResolveStyle(name string) string {
	token := strings.TrimSpace(name)
	if token == "" {
		return DefaultStyle
	}
	if _, ok := stylePresets[token]; ok {
		return token
	}
	lowered := strings.ToLower(token)
	if key, ok := styleKeyLookup[lowered]; ok {
		return key
	}
	if key, ok := styleSlugLookup[slugify(lowered)]; ok {
		return key
	}
	return DefaultStyle
}

// StyleFor returns the preset definition for a (possibly sloppy) style name.
func StyleFor(name string) StyleDefinition {
	return stylePresets[ResolveStyle(name)]
}
