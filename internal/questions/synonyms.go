package questions

import "strings"

// The curated bank predates the topic taxonomy and labels its content with
// free-form names. This table translates request topic/subtopic keys into
// the curated labels they cover; unmapped keys fall back to substring
// matching against every known label.
var curatedTopicSynonyms = map[string][]string{
	"addition":       {"addition", "adding numbers", "sums"},
	"subtraction":    {"subtraction", "taking away", "differences"},
	"multiplication": {"multiplication", "times tables", "products"},
	"division":       {"division", "sharing equally", "long division"},
	"fractions":      {"fractions", "fraction operations", "equivalent fractions"},
	"decimals":       {"decimals", "decimal numbers", "decimal operations"},
	"percentages":    {"percentages", "percent problems"},
	"ratios":         {"ratios", "ratio and proportion", "rates"},
	"algebra":        {"algebra", "linear equations", "solving equations", "expressions"},
	"geometry":       {"geometry", "shapes", "area and perimeter", "angles"},
	"measurement":    {"measurement", "units", "converting units"},
	"time":           {"time", "reading clocks", "elapsed time"},
	"money":          {"money", "currency problems", "making change"},
	"statistics":     {"statistics", "data handling", "graphs and charts", "averages"},
	"probability":    {"probability", "chance"},
	"word-problems":  {"word problems", "story problems", "problem solving"},
	"place-value":    {"place value", "number sense", "rounding"},
}

// MapCuratedLabels resolves a request topic key (and optional subtopic key)
// to the curated-bank labels to query. The subtopic's labels take precedence
// when it maps to anything; an unmapped key falls back to substring matching;
// a key matching nothing returns the key itself so the query degrades to a
// direct label comparison.
func MapCuratedLabels(topicKey string, subtopicKey *string) []string {
	if subtopicKey != nil {
		if labels := lookupLabels(*subtopicKey); len(labels) > 0 {
			return labels
		}
	}
	if labels := lookupLabels(topicKey); len(labels) > 0 {
		return labels
	}
	return []string{normalizeKey(topicKey)}
}

func lookupLabels(key string) []string {
	key = normalizeKey(key)
	if key == "" {
		return nil
	}
	if labels, ok := curatedTopicSynonyms[key]; ok {
		return labels
	}

	// Substring fallback: collect labels of every mapping whose key contains
	// the request key or vice versa.
	var labels []string
	for mapped, mappedLabels := range curatedTopicSynonyms {
		if strings.Contains(mapped, key) || strings.Contains(key, mapped) {
			labels = append(labels, mappedLabels...)
		}
	}
	return labels
}

func normalizeKey(key string) string {
	key = strings.ToLower(strings.TrimSpace(key))
	return strings.ReplaceAll(key, " ", "-")
}
