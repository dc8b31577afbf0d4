package textanalysis

import (
	"regexp"
	"strings"
	"unicode/utf8"
)

var connectives = regexp.MustCompile(`(?i)\b(however|therefore|furthermore|moreover)\b`)

type heuristic func(text string) bool

var heuristics = []heuristic{
	// long answer with no personal hedging
	func(text string) bool {
		return utf8.RuneCountInString(text) > 200 &&
			!strings.Contains(text, "I think") &&
			!strings.Contains(text, "I believe")
	},
	// many sentences of near-uniform length
	func(text string) bool {
		sentences := strings.Split(text, ".")
		if len(sentences) <= 5 {
			return false
		}
		lengths := make(map[int]struct{})
		for _, s := range sentences {
			lengths[utf8.RuneCountInString(strings.TrimSpace(s))] = struct{}{}
		}
		return len(lengths) < 3
	},
	// formal connectives in a short answer
	func(text string) bool {
		return connectives.MatchString(text) && utf8.RuneCountInString(text) < 300
	},
	// long answer with a small vocabulary
	func(text string) bool {
		words := strings.Split(text, " ")
		if len(words) <= 100 {
			return false
		}
		unique := make(map[string]struct{}, len(words))
		for _, w := range words {
			unique[w] = struct{}{}
		}
		return float64(len(unique))/float64(len(words)) < 0.4
	},
}

// HeuristicScore counts how many stylistic AI indicators text trips.
func HeuristicScore(text string) int {
	score := 0
	for _, h := range heuristics {
		if h(text) {
			score++
		}
	}
	return score
}
