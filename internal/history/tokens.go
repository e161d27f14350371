package history

import (
	"regexp"
	"strings"
)

var numberPattern = regexp.MustCompile(`-?\d+(?:\.\d+)?`)

// Common words that carry no topical signal and would inflate overlap ratios.
var stopwords = map[string]bool{
	"the": true, "and": true, "that": true, "this": true, "with": true,
	"what": true, "which": true, "find": true, "solve": true, "calculate": true,
	"following": true, "answer": true, "question": true, "value": true,
	"there": true, "then": true, "from": true, "into": true, "each": true,
	"many": true, "much": true, "have": true, "were": true, "will": true,
}

// ExtractNumbers returns the distinct numeric tokens in s, in order of first
// appearance.
func ExtractNumbers(s string) []string {
	seen := make(map[string]bool)
	var numbers []string
	for _, m := range numberPattern.FindAllString(s, -1) {
		if !seen[m] {
			seen[m] = true
			numbers = append(numbers, m)
		}
	}
	return numbers
}

// ExtractKeywords returns the distinct topical words in s: lowercased, longer
// than three characters, stopwords removed.
func ExtractKeywords(s string) []string {
	seen := make(map[string]bool)
	var keywords []string
	for _, word := range strings.Fields(strings.ToLower(s)) {
		word = strings.TrimFunc(word, func(r rune) bool {
			return !('a' <= r && r <= 'z') && !('0' <= r && r <= '9')
		})
		if len(word) <= 3 || stopwords[word] || numberPattern.MatchString(word) {
			continue
		}
		if !seen[word] {
			seen[word] = true
			keywords = append(keywords, word)
		}
	}
	return keywords
}

// overlapRatio is |a ∩ b| / max(|a|, |b|, 1).
func overlapRatio(a, b []string) float64 {
	set := make(map[string]bool, len(a))
	for _, s := range a {
		set[s] = true
	}
	intersection := 0
	for _, s := range b {
		if set[s] {
			intersection++
		}
	}
	denom := len(a)
	if len(b) > denom {
		denom = len(b)
	}
	if denom == 0 {
		denom = 1
	}
	return float64(intersection) / float64(denom)
}
