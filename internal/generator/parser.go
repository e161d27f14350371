package generator

import (
	"encoding/json"
	"errors"
	"regexp"
	"strings"

	"github.com/studyloop/backend/internal/models"
)

// ErrUnparseable means no salvage strategy could recover structured content
// from the model output. Callers treat it as "no usable content", never as a
// crash.
var ErrUnparseable = errors.New("generative output is not parseable")

type candidateEnvelope struct {
	Questions []models.GeneratedCandidate `json:"questions"`
}

// ParseCandidates recovers question candidates from possibly-malformed model
// output. Strategies are tried in order: direct parse, bracket-extracted
// array, code fences stripped, and truncated-output repair. The first
// strategy that parses wins; entries missing required fields are dropped.
func ParseCandidates(raw string) ([]models.GeneratedCandidate, error) {
	strategies := []func(string) ([]models.GeneratedCandidate, bool){
		parseDirect,
		parseExtractedArray,
		parseFenceStripped,
		parseTruncated,
	}

	for _, strategy := range strategies {
		if candidates, ok := strategy(raw); ok {
			return validCandidates(candidates), nil
		}
	}
	return nil, ErrUnparseable
}

func parseDirect(raw string) ([]models.GeneratedCandidate, bool) {
	var env candidateEnvelope
	if err := json.Unmarshal([]byte(strings.TrimSpace(raw)), &env); err != nil {
		return nil, false
	}
	return env.Questions, true
}

var arrayPattern = regexp.MustCompile(`(?s)\[\s*\{.*\}\s*\]`)

// parseExtractedArray pulls the first bracketed object array out of
// surrounding prose and parses it as the questions list.
func parseExtractedArray(raw string) ([]models.GeneratedCandidate, bool) {
	match := arrayPattern.FindString(raw)
	if match == "" {
		return nil, false
	}
	var candidates []models.GeneratedCandidate
	if err := json.Unmarshal([]byte(match), &candidates); err != nil {
		return nil, false
	}
	return candidates, true
}

func parseFenceStripped(raw string) ([]models.GeneratedCandidate, bool) {
	return parseDirect(stripCodeFences(raw))
}

func stripCodeFences(s string) string {
	s = strings.TrimSpace(s)
	if strings.HasPrefix(s, "```json") {
		s = strings.TrimPrefix(s, "```json")
		s = strings.TrimSpace(s)
	} else if strings.HasPrefix(s, "```") {
		s = strings.TrimPrefix(s, "```")
		s = strings.TrimSpace(s)
	}
	if strings.HasSuffix(s, "```") {
		s = strings.TrimSuffix(s, "```")
		s = strings.TrimSpace(s)
	}
	return s
}

// parseTruncated repairs output cut off mid-object: drop everything after
// the last complete object, trim a trailing comma, and close the envelope.
func parseTruncated(raw string) ([]models.GeneratedCandidate, bool) {
	s := stripCodeFences(raw)

	last := strings.LastIndex(s, "}")
	if last < 0 {
		return nil, false
	}
	s = s[:last+1]
	s = strings.TrimRight(s, " \t\n")
	s = strings.TrimSuffix(s, ",")

	for _, closer := range []string{"]}", "}]}", "]"} {
		var env candidateEnvelope
		if err := json.Unmarshal([]byte(s+closer), &env); err == nil && len(env.Questions) > 0 {
			return env.Questions, true
		}
		var arr []models.GeneratedCandidate
		if err := json.Unmarshal([]byte(s+closer), &arr); err == nil && len(arr) > 0 {
			return arr, true
		}
	}
	return nil, false
}

// validCandidates drops entries missing the fields delivery depends on.
func validCandidates(candidates []models.GeneratedCandidate) []models.GeneratedCandidate {
	out := make([]models.GeneratedCandidate, 0, len(candidates))
	for _, c := range candidates {
		if strings.TrimSpace(c.Text) == "" || strings.TrimSpace(c.CorrectAnswer) == "" {
			continue
		}
		out = append(out, c)
	}
	return out
}
