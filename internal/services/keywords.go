package services

import (
	"regexp"
	"sort"
	"strings"
)

// Lean stopword list; keyword extraction is a heuristic fallback for scenes
// the LLM did not tag, not a linguistics project.
var keywordStopwords = map[string]struct{}{}

func init() {
	for _, w := range strings.Fields(
		"the and for with that this from your have are will into about more than " +
			"their they them when where what which while there these those because " +
			"would could should being been also over after before around through " +
			"every other some much many just onto each such like make making take " +
			"taking used using use uses very its our ours you yours his her hers " +
			"him she himself herself was were had has can cannot isn't don't") {
		keywordStopwords[w] = struct{}{}
	}
}

var keywordToken = regexp.MustCompile(`[a-z0-9']+`)
var allDigits = regexp.MustCompile(`^[0-9]+$`)

// ExtractKeywords heuristically picks up to limit search keywords from
// free-form text, ranked by frequency with first-occurrence order preserved
// among equals.
func ExtractKeywords(text string, limit int) []string {
	if limit <= 0 {
		limit = 5
	}
	if strings.TrimSpace(text) == "" {
		return nil
	}

	tokens := keywordToken.FindAllString(strings.ToLower(text), -1)
	counts := make(map[string]int)
	firstSeen := make(map[string]int)
	for i, tok := range tokens {
		if len(tok) <= 2 || allDigits.MatchString(tok) {
			continue
		}
		if _, stop := keywordStopwords[tok]; stop {
			continue
		}
		if _, ok := counts[tok]; !ok {
			firstSeen[tok] = i
		}
		counts[tok]++
	}
	if len(counts) == 0 {
		return nil
	}

	ranked := make([]string, 0, len(counts))
	for tok := range counts {
		ranked = append(ranked, tok)
	}
	sort.SliceStable(ranked, func(a, b int) bool {
		if counts[ranked[a]] != counts[ranked[b]] {
			return counts[ranked[a]] > counts[ranked[b]]
		}
		return firstSeen[ranked[a]] < firstSeen[ranked[b]]
	})

	if len(ranked) > limit {
		ranked = ranked[:limit]
	}
	return ranked
}
