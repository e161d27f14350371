package questions

import (
	"errors"
	"testing"

	"github.com/studyloop/backend/internal/difficulty"
	"github.com/studyloop/backend/internal/history"
	"github.com/studyloop/backend/internal/models"
)

// ── Fakes ────────────────────────────────────────────────

type fakeQuestionStore struct {
	records    []models.QuestionRecord
	byHash     map[string]int64
	nextID     int64
	failFind   bool
	outcomes   int
	lastExcl   []int64
	lastSubtop bool
}

func newFakeQuestionStore() *fakeQuestionStore {
	return &fakeQuestionStore{byHash: make(map[string]int64), nextID: 1}
}

func (f *fakeQuestionStore) FindCandidates(req models.ResolveRequest, excludeIDs []int64, includeSubtopic bool) ([]models.QuestionRecord, error) {
	f.lastExcl = excludeIDs
	f.lastSubtop = includeSubtopic
	if f.failFind {
		return nil, errors.New("connection refused")
	}

	excluded := make(map[int64]bool, len(excludeIDs))
	for _, id := range excludeIDs {
		excluded[id] = true
	}

	var out []models.QuestionRecord
	for _, q := range f.records {
		if excluded[q.ID] || q.TopicID != req.TopicID || q.Difficulty != req.Difficulty {
			continue
		}
		if includeSubtopic && req.SubtopicID != nil {
			if q.SubtopicID == nil || *q.SubtopicID != *req.SubtopicID {
				continue
			}
		}
		out = append(out, q)
	}
	return out, nil
}

func (f *fakeQuestionStore) InsertDedup(c models.GeneratedCandidate, contentHash string, quality float64, source models.SourceTag) (int64, error) {
	if id, ok := f.byHash[contentHash]; ok {
		return id, nil
	}
	id := f.nextID
	f.nextID++
	f.byHash[contentHash] = id
	f.records = append(f.records, models.QuestionRecord{
		ID:           id,
		Text:         c.Text,
		TopicID:      c.TopicID,
		Difficulty:   c.Difficulty,
		ContentHash:  contentHash,
		QualityScore: quality,
		SourceTag:    source,
	})
	return id, nil
}

func (f *fakeQuestionStore) GetQuestion(id int64) (*models.QuestionRecord, error) {
	for i := range f.records {
		if f.records[i].ID == id {
			return &f.records[i], nil
		}
	}
	return nil, nil
}

func (f *fakeQuestionStore) ApplyOutcome(questionID, learnerID int64, correct bool) error {
	f.outcomes++
	return nil
}

type fakeCuratedBank struct {
	records []models.QuestionRecord
}

func (f *fakeCuratedBank) FindCurated(labels []string, diff models.Difficulty, grade *int, excludeIDs []int64) ([]models.QuestionRecord, error) {
	excluded := make(map[int64]bool, len(excludeIDs))
	for _, id := range excludeIDs {
		excluded[id] = true
	}
	var out []models.QuestionRecord
	for _, q := range f.records {
		if excluded[q.ID] {
			continue
		}
		for _, label := range labels {
			if q.TopicName == label {
				out = append(out, q)
				break
			}
		}
	}
	return out, nil
}

type fakeSampleStore struct {
	samples []models.PerformanceSample
}

func (f *fakeSampleStore) Append(sample models.PerformanceSample) error {
	f.samples = append([]models.PerformanceSample{sample}, f.samples...)
	return nil
}

func (f *fakeSampleStore) Recent(learnerID int64, topicID string, n int) ([]models.PerformanceSample, error) {
	if n > len(f.samples) {
		n = len(f.samples)
	}
	return f.samples[:n], nil
}

func newTestService(store *fakeQuestionStore, curated *fakeCuratedBank) *Service {
	svc := NewService(store, curated, history.NewTracker(nil), difficulty.NewController(&fakeSampleStore{}), nil)
	svc.pick = func(n int) int { return 0 }
	return svc
}

func strPtr(s string) *string { return &s }

// ── Resolution tiers ─────────────────────────────────────

func TestResolveExactMatch(t *testing.T) {
	store := newFakeQuestionStore()
	store.records = append(store.records, models.QuestionRecord{
		ID: 42, Text: "What is 3 + 4?", TopicID: "arithmetic",
		SubtopicID: strPtr("addition"), Difficulty: models.DifficultyEasy,
	})
	svc := newTestService(store, &fakeCuratedBank{})

	outcome := svc.Resolve(models.ResolveRequest{
		LearnerID:  7,
		TopicID:    "arithmetic",
		SubtopicID: strPtr("addition"),
		Difficulty: models.DifficultyEasy,
	})

	if outcome.NeedsGeneration {
		t.Fatal("expected a cached hit, got needs-generation")
	}
	if outcome.MatchType != models.MatchExact {
		t.Errorf("expected exact match, got %s", outcome.MatchType)
	}
	if outcome.Question.ID != 42 {
		t.Errorf("expected question 42, got %d", outcome.Question.ID)
	}
}

func TestResolveFallsThroughToCurated(t *testing.T) {
	curated := &fakeCuratedBank{records: []models.QuestionRecord{
		{ID: 9, Text: "Add 12 and 5.", TopicName: "addition"},
	}}
	svc := newTestService(newFakeQuestionStore(), curated)

	outcome := svc.Resolve(models.ResolveRequest{
		LearnerID:  7,
		TopicID:    "arithmetic",
		TopicName:  "Addition",
		Difficulty: models.DifficultyEasy,
	})

	if outcome.MatchType != models.MatchCurated {
		t.Fatalf("expected curated match, got %q (needsGeneration=%v)", outcome.MatchType, outcome.NeedsGeneration)
	}
}

func TestResolveBroadensWhenSubtopicExhausted(t *testing.T) {
	store := newFakeQuestionStore()
	store.records = append(store.records, models.QuestionRecord{
		ID: 3, Text: "What is 9 - 2?", TopicID: "arithmetic",
		SubtopicID: strPtr("subtraction"), Difficulty: models.DifficultyEasy,
	})
	svc := newTestService(store, &fakeCuratedBank{})

	outcome := svc.Resolve(models.ResolveRequest{
		LearnerID:  7,
		TopicID:    "arithmetic",
		SubtopicID: strPtr("addition"),
		Difficulty: models.DifficultyEasy,
	})

	if outcome.MatchType != models.MatchTopicLevel {
		t.Fatalf("expected topic-level match, got %q", outcome.MatchType)
	}
	if outcome.Question.ID != 3 {
		t.Errorf("expected question 3, got %d", outcome.Question.ID)
	}
}

func TestResolveNeedsGenerationWhenAllTiersEmpty(t *testing.T) {
	svc := newTestService(newFakeQuestionStore(), &fakeCuratedBank{})

	req := models.ResolveRequest{
		LearnerID:  7,
		TopicID:    "calculus",
		Difficulty: models.DifficultyHard,
	}
	outcome := svc.Resolve(req)

	if !outcome.NeedsGeneration {
		t.Fatal("expected needs-generation")
	}
	if outcome.Question != nil {
		t.Error("needs-generation outcome must not carry a question")
	}
	if outcome.Params == nil || outcome.Params.TopicID != "calculus" {
		t.Error("expected params to echo the request")
	}
	if outcome.Params.Difficulty != models.DifficultyHard {
		t.Errorf("expected params difficulty hard, got %s", outcome.Params.Difficulty)
	}
}

func TestResolveStoreFailureDegradesToNextTier(t *testing.T) {
	store := newFakeQuestionStore()
	store.failFind = true
	curated := &fakeCuratedBank{records: []models.QuestionRecord{
		{ID: 9, Text: "Add 12 and 5.", TopicName: "addition"},
	}}
	svc := newTestService(store, curated)

	outcome := svc.Resolve(models.ResolveRequest{
		LearnerID:  7,
		TopicID:    "arithmetic",
		TopicName:  "addition",
		Difficulty: models.DifficultyEasy,
	})

	if outcome.MatchType != models.MatchCurated {
		t.Fatalf("expected degraded resolution to curated, got %q", outcome.MatchType)
	}
}

func TestResolveDefaultsDifficultyFromRecommendation(t *testing.T) {
	svc := newTestService(newFakeQuestionStore(), &fakeCuratedBank{})

	outcome := svc.Resolve(models.ResolveRequest{LearnerID: 7, TopicID: "algebra"})

	// No history: the controller recommends medium.
	if outcome.Params.Difficulty != models.DifficultyMedium {
		t.Errorf("expected defaulted difficulty medium, got %s", outcome.Params.Difficulty)
	}
}

// ── Exclusions ───────────────────────────────────────────

func TestResolveNeverReturnsExcludedQuestion(t *testing.T) {
	store := newFakeQuestionStore()
	store.records = append(store.records,
		models.QuestionRecord{ID: 1, Text: "What is 1 + 1?", TopicID: "arithmetic", Difficulty: models.DifficultyEasy},
		models.QuestionRecord{ID: 2, Text: "What is 2 + 2?", TopicID: "arithmetic", Difficulty: models.DifficultyEasy},
	)
	svc := newTestService(store, &fakeCuratedBank{})

	outcome := svc.Resolve(models.ResolveRequest{
		LearnerID:    7,
		TopicID:      "arithmetic",
		Difficulty:   models.DifficultyEasy,
		ExclusionIDs: []int64{1},
	})

	if outcome.NeedsGeneration {
		t.Fatal("expected a hit on the non-excluded question")
	}
	if outcome.Question.ID == 1 {
		t.Error("returned a question from the exclusion set")
	}
}

func TestResolveMergesSessionHistoryIntoExclusions(t *testing.T) {
	store := newFakeQuestionStore()
	store.records = append(store.records,
		models.QuestionRecord{ID: 1, Text: "What is 1 + 1?", TopicID: "arithmetic", Difficulty: models.DifficultyEasy},
		models.QuestionRecord{ID: 2, Text: "What is 2 + 2?", TopicID: "arithmetic", Difficulty: models.DifficultyEasy},
	)
	svc := newTestService(store, &fakeCuratedBank{})

	req := models.ResolveRequest{LearnerID: 7, TopicID: "arithmetic", Difficulty: models.DifficultyEasy}

	first := svc.Resolve(req)
	second := svc.Resolve(req)

	if first.NeedsGeneration || second.NeedsGeneration {
		t.Fatal("expected two distinct hits")
	}
	if first.Question.ID == second.Question.ID {
		t.Errorf("delivered question %d twice in one session", first.Question.ID)
	}

	// Both questions seen: the session window now blocks everything.
	third := svc.Resolve(req)
	if !third.NeedsGeneration {
		t.Errorf("expected needs-generation after exhausting the cache, got %+v", third)
	}
}

// ── Ingestion ────────────────────────────────────────────

func TestIngestGeneratedDedupesOnContent(t *testing.T) {
	store := newFakeQuestionStore()
	svc := newTestService(store, &fakeCuratedBank{})

	c := models.GeneratedCandidate{
		Text:          "Solve for x: 2x + 3 = 7",
		CorrectAnswer: "x = 2",
		TopicID:       "algebra",
		Difficulty:    models.DifficultyMedium,
	}

	first, err := svc.IngestGenerated(c)
	if err != nil {
		t.Fatalf("first ingest failed: %v", err)
	}

	// Same content, different surface formatting.
	c.Text = "solve for X:   2x + 3 = 7!"
	second, err := svc.IngestGenerated(c)
	if err != nil {
		t.Fatalf("second ingest failed: %v", err)
	}

	if first != second {
		t.Errorf("expected dedup to return the same id, got %d and %d", first, second)
	}
	if len(store.records) != 1 {
		t.Errorf("expected one stored record, got %d", len(store.records))
	}
}

func TestIngestGeneratedRejectsEmptyText(t *testing.T) {
	svc := newTestService(newFakeQuestionStore(), &fakeCuratedBank{})

	_, err := svc.IngestGenerated(models.GeneratedCandidate{Text: "   ", CorrectAnswer: "4"})
	if !errors.Is(err, ErrEmptyCandidate) {
		t.Errorf("expected ErrEmptyCandidate, got %v", err)
	}

	_, err = svc.IngestGenerated(models.GeneratedCandidate{Text: "What is 2+2?", CorrectAnswer: ""})
	if !errors.Is(err, ErrEmptyCandidate) {
		t.Errorf("expected ErrEmptyCandidate for empty answer, got %v", err)
	}
}

// ── Answer recording ─────────────────────────────────────

func TestRecordAnswerFeedsFeedbackLoop(t *testing.T) {
	store := newFakeQuestionStore()
	svc := newTestService(store, &fakeCuratedBank{})

	qid := int64(42)
	resp := svc.RecordAnswer(7, "arithmetic", models.AnswerOutcome{
		QuestionID: &qid,
		Difficulty: models.DifficultyMedium,
		IsCorrect:  true,
	})

	if !resp.Recorded {
		t.Fatal("expected answer to be recorded")
	}
	if resp.Adjustment == nil {
		t.Fatal("expected an adjustment evaluation")
	}
	if store.outcomes != 1 {
		t.Errorf("expected one feedback-loop update, got %d", store.outcomes)
	}
}

func TestRecordAnswerWithoutQuestionIDSkipsFeedback(t *testing.T) {
	store := newFakeQuestionStore()
	svc := newTestService(store, &fakeCuratedBank{})

	resp := svc.RecordAnswer(7, "arithmetic", models.AnswerOutcome{
		Difficulty: models.DifficultyMedium,
		IsCorrect:  false,
	})

	if !resp.Recorded {
		t.Fatal("expected answer to be recorded")
	}
	if store.outcomes != 0 {
		t.Errorf("expected no feedback-loop update, got %d", store.outcomes)
	}
}
