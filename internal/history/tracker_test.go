package history

import (
	"fmt"
	"testing"

	"github.com/studyloop/backend/internal/models"
)

func deliveredQuestion(id int64, text string) *models.QuestionRecord {
	return &models.QuestionRecord{
		ID:         id,
		Text:       text,
		Difficulty: models.DifficultyMedium,
		SourceTag:  models.SourceCacheGenerated,
	}
}

func TestWindowBound(t *testing.T) {
	tracker := NewTracker(nil)

	for i := 1; i <= 31; i++ {
		tracker.Record(7, "fractions", deliveredQuestion(int64(i), fmt.Sprintf("question number %d", i)))
	}

	entries := tracker.Recent(7, "fractions")
	if len(entries) != 30 {
		t.Fatalf("expected 30 entries after 31 records, got %d", len(entries))
	}
	if *entries[0].QuestionID != 2 {
		t.Errorf("expected oldest entry to be question 2, got %d", *entries[0].QuestionID)
	}
	if *entries[len(entries)-1].QuestionID != 31 {
		t.Errorf("expected newest entry to be question 31, got %d", *entries[len(entries)-1].QuestionID)
	}
}

func TestExclusionSet(t *testing.T) {
	tracker := NewTracker(nil)

	for i := 1; i <= 5; i++ {
		tracker.Record(1, "algebra", deliveredQuestion(int64(i), fmt.Sprintf("solve equation %d", i)))
	}

	ids := tracker.ExclusionSet(1, "algebra", 3)
	if len(ids) != 3 {
		t.Fatalf("expected 3 ids, got %d", len(ids))
	}
	// Newest first
	if ids[0] != 5 || ids[1] != 4 || ids[2] != 3 {
		t.Errorf("unexpected exclusion order: %v", ids)
	}
}

func TestExclusionSetSkipsMissingIDs(t *testing.T) {
	tracker := NewTracker(nil)

	tracker.Record(1, "algebra", deliveredQuestion(10, "first"))
	tracker.Record(1, "algebra", deliveredQuestion(0, "uncached question")) // no id
	tracker.Record(1, "algebra", deliveredQuestion(12, "third"))

	ids := tracker.ExclusionSet(1, "algebra", 30)
	if len(ids) != 2 {
		t.Fatalf("expected 2 ids, got %d: %v", len(ids), ids)
	}
	if ids[0] != 12 || ids[1] != 10 {
		t.Errorf("unexpected ids: %v", ids)
	}
}

func TestClear(t *testing.T) {
	tracker := NewTracker(nil)
	tracker.Record(1, "algebra", deliveredQuestion(1, "a"))
	tracker.Record(1, "geometry", deliveredQuestion(2, "b"))
	tracker.Record(2, "algebra", deliveredQuestion(3, "c"))

	tracker.Clear(1, "algebra")
	if got := len(tracker.Recent(1, "algebra")); got != 0 {
		t.Errorf("expected cleared topic window, got %d entries", got)
	}
	if got := len(tracker.Recent(1, "geometry")); got != 1 {
		t.Errorf("expected other topic untouched, got %d entries", got)
	}

	tracker.Clear(2, "")
	if got := len(tracker.Recent(2, "algebra")); got != 0 {
		t.Errorf("expected all topics cleared for learner 2, got %d entries", got)
	}
}

func TestIsSimilar(t *testing.T) {
	recent := []models.HistoryEntry{
		{
			QuestionText: "A train travels 120 miles in 3 hours. What is its average speed?",
			Keywords:     ExtractKeywords("A train travels 120 miles in 3 hours. What is its average speed?"),
			Numbers:      ExtractNumbers("A train travels 120 miles in 3 hours. What is its average speed?"),
		},
	}

	// Shares both numbers and most keywords: similar.
	if !IsSimilar("A train travels 120 miles in 3 hours. Find the average speed.", recent) {
		t.Error("expected near-duplicate to be flagged similar")
	}

	// Different numbers and different topic: not similar.
	if IsSimilar("A rectangle has width 5 and length 8. What is its area?", recent) {
		t.Error("expected unrelated question to not be flagged")
	}

	// Same topic words but different numbers: number ratio fails.
	if IsSimilar("A train travels 45 miles in 9 hours. What is its average speed?", recent) {
		t.Error("expected question with disjoint numbers to not be flagged")
	}
}

func TestOverlapRatio(t *testing.T) {
	cases := []struct {
		a, b []string
		want float64
	}{
		{[]string{"2", "7"}, []string{"2", "7"}, 1.0},
		{[]string{"speed", "train", "miles", "hours"}, []string{"speed", "train", "miles"}, 0.75},
		{[]string{"1", "2", "3", "4"}, []string{"1"}, 0.25},
		{nil, nil, 0},
	}
	for _, c := range cases {
		if got := overlapRatio(c.a, c.b); got != c.want {
			t.Errorf("overlapRatio(%v, %v) = %v, want %v", c.a, c.b, got, c.want)
		}
	}
}

func TestExtractNumbers(t *testing.T) {
	nums := ExtractNumbers("Solve 2x + 3 = 7 where x > 0.5")
	want := []string{"2", "3", "7", "0.5"}
	if len(nums) != len(want) {
		t.Fatalf("expected %v, got %v", want, nums)
	}
	for i := range want {
		if nums[i] != want[i] {
			t.Errorf("expected %v, got %v", want, nums)
			break
		}
	}
}

func TestExtractKeywordsSkipsStopwordsAndShortWords(t *testing.T) {
	kws := ExtractKeywords("Find the perimeter of the triangle with sides 3, 4 and 5")
	for _, kw := range kws {
		if kw == "the" || kw == "find" || kw == "and" {
			t.Errorf("stopword %q leaked into keywords %v", kw, kws)
		}
		if len(kw) <= 3 {
			t.Errorf("short token %q leaked into keywords %v", kw, kws)
		}
	}
	found := false
	for _, kw := range kws {
		if kw == "perimeter" {
			found = true
		}
	}
	if !found {
		t.Errorf("expected 'perimeter' in keywords, got %v", kws)
	}
}
