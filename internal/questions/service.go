package questions

import (
	"errors"
	"fmt"
	"log"
	"math/rand"
	"strings"
	"time"

	"github.com/studyloop/backend/internal/difficulty"
	"github.com/studyloop/backend/internal/history"
	"github.com/studyloop/backend/internal/models"
)

// ErrEmptyCandidate rejects generated content with no usable text or answer
// before it can be hashed or cached.
var ErrEmptyCandidate = errors.New("candidate has empty text or answer")

// QuestionStore is the cached-question backend. Lookup errors degrade the
// tier to empty, they never abort resolution.
type QuestionStore interface {
	FindCandidates(req models.ResolveRequest, excludeIDs []int64, includeSubtopic bool) ([]models.QuestionRecord, error)
	InsertDedup(c models.GeneratedCandidate, contentHash string, quality float64, source models.SourceTag) (int64, error)
	GetQuestion(id int64) (*models.QuestionRecord, error)
	ApplyOutcome(questionID, learnerID int64, correct bool) error
}

// CuratedBank is the read-only curated content source.
type CuratedBank interface {
	FindCurated(labels []string, diff models.Difficulty, grade *int, excludeIDs []int64) ([]models.QuestionRecord, error)
}

// ExposureLookup reads durable exposure digests for cross-session repeat
// detection. May be nil; lookups are best-effort.
type ExposureLookup interface {
	RecentTextHashes(learnerID int64, topicID string) ([]string, error)
}

// Service is the tiered question-resolution pipeline: exact cache hit, then
// curated bank, then a broadened cache query, then generation-required.
type Service struct {
	store      QuestionStore
	curated    CuratedBank
	tracker    *history.Tracker
	controller *difficulty.Controller
	exposures  ExposureLookup
	pick       func(n int) int
}

func NewService(store QuestionStore, curated CuratedBank, tracker *history.Tracker, controller *difficulty.Controller, exposures ExposureLookup) *Service {
	rng := rand.New(rand.NewSource(time.Now().UnixNano()))
	return &Service{
		store:      store,
		curated:    curated,
		tracker:    tracker,
		controller: controller,
		exposures:  exposures,
		pick:       rng.Intn,
	}
}

// Resolve finds the next question for the request, or reports that the
// caller must generate one. Delivered questions are recorded in the
// learner's session history before returning.
func (s *Service) Resolve(req models.ResolveRequest) models.Outcome {
	if !req.Difficulty.Valid() {
		rec := s.controller.Recommend(req.LearnerID, req.TopicID)
		req.Difficulty = rec.Difficulty
	}

	exclusions := s.mergedExclusions(req)

	// Tier 1: exact cache hit.
	if q := s.lookupCached(req, exclusions, true); q != nil {
		s.deliver(req, q)
		return models.Outcome{Question: q, MatchType: models.MatchExact}
	}

	// Tier 2: curated bank via synonym-mapped topic labels.
	if q := s.lookupCurated(req, exclusions); q != nil {
		s.deliver(req, q)
		return models.Outcome{Question: q, MatchType: models.MatchCurated}
	}

	// Tier 3: broadened cache query, subtopic constraint dropped. Only
	// meaningful when the request narrowed by subtopic in the first place.
	if req.SubtopicID != nil {
		if q := s.lookupCached(req, exclusions, false); q != nil {
			s.deliver(req, q)
			return models.Outcome{Question: q, MatchType: models.MatchTopicLevel}
		}
	}

	return models.Outcome{
		NeedsGeneration: true,
		Reason:          "no_matching_cached_questions",
		Params:          &req,
	}
}

func (s *Service) mergedExclusions(req models.ResolveRequest) []int64 {
	seen := make(map[int64]bool, len(req.ExclusionIDs))
	merged := make([]int64, 0, len(req.ExclusionIDs))
	for _, id := range req.ExclusionIDs {
		if !seen[id] {
			seen[id] = true
			merged = append(merged, id)
		}
	}
	if req.LearnerID != 0 {
		for _, id := range s.tracker.ExclusionSet(req.LearnerID, req.TopicID, history.SessionWindowSize) {
			if !seen[id] {
				seen[id] = true
				merged = append(merged, id)
			}
		}
	}
	return merged
}

func (s *Service) lookupCached(req models.ResolveRequest, exclusions []int64, includeSubtopic bool) *models.QuestionRecord {
	candidates, err := s.store.FindCandidates(req, exclusions, includeSubtopic)
	if err != nil {
		log.Printf("WARN: [resolve] cache lookup failed for topic %s: %v", req.TopicID, err)
		return nil
	}
	return s.pickOne(candidates)
}

func (s *Service) lookupCurated(req models.ResolveRequest, exclusions []int64) *models.QuestionRecord {
	var subtopicKey *string
	if req.SubtopicID != nil {
		subtopicKey = req.SubtopicID
	} else if req.SubtopicName != nil {
		subtopicKey = req.SubtopicName
	}

	labels := MapCuratedLabels(req.TopicName, subtopicKey)
	candidates, err := s.curated.FindCurated(labels, req.Difficulty, req.GradeLevel, exclusions)
	if err != nil {
		log.Printf("WARN: [resolve] curated lookup failed for topic %s: %v", req.TopicID, err)
		return nil
	}
	return s.pickOne(candidates)
}

// pickOne returns a random candidate from the ranked top five: enough
// randomness to avoid monotony while still favoring quality and freshness.
func (s *Service) pickOne(candidates []models.QuestionRecord) *models.QuestionRecord {
	if len(candidates) == 0 {
		return nil
	}
	n := len(candidates)
	if n > 5 {
		n = 5
	}
	chosen := candidates[s.pick(n)]
	return &chosen
}

func (s *Service) deliver(req models.ResolveRequest, q *models.QuestionRecord) {
	if req.LearnerID != 0 {
		s.tracker.Record(req.LearnerID, req.TopicID, q)
	}
}

// IngestGenerated hashes, deduplicates and caches a generated candidate.
// Ingesting content whose normalized text already exists returns the
// existing record's id; that is a success, not an error.
func (s *Service) IngestGenerated(c models.GeneratedCandidate) (int64, error) {
	return s.ingest(c, models.SourceCacheGenerated)
}

// IngestExternal caches a candidate that came from outside the generative
// path, a worksheet extraction or a bulk import.
func (s *Service) IngestExternal(c models.GeneratedCandidate) (int64, error) {
	return s.ingest(c, models.SourceIngested)
}

func (s *Service) ingest(c models.GeneratedCandidate, source models.SourceTag) (int64, error) {
	if strings.TrimSpace(c.Text) == "" || strings.TrimSpace(c.CorrectAnswer) == "" {
		return 0, ErrEmptyCandidate
	}
	if !c.Difficulty.Valid() {
		c.Difficulty = models.DifficultyMedium
	}

	hash := ContentHash(c.Text)
	id, err := s.store.InsertDedup(c, hash, QualityBaseline, source)
	if err != nil {
		return 0, fmt.Errorf("ingest candidate: %w", err)
	}
	return id, nil
}

// IsNearDuplicate reports whether candidate text is too close to something
// the learner has seen: a similarity hit against the session window, or an
// exact repeat of a recent durable exposure. Callers use it to reject
// repetitive generated output before ingesting.
func (s *Service) IsNearDuplicate(learnerID int64, topicID, candidateText string) bool {
	if history.IsSimilar(candidateText, s.tracker.Recent(learnerID, topicID)) {
		return true
	}
	if s.exposures == nil {
		return false
	}
	hashes, err := s.exposures.RecentTextHashes(learnerID, topicID)
	if err != nil {
		log.Printf("WARN: [resolve] durable exposure lookup failed for learner %d: %v", learnerID, err)
		return false
	}
	candidateHash := history.TextHash(candidateText)
	for _, h := range hashes {
		if h == candidateHash {
			return true
		}
	}
	return false
}

// RecordAnswer feeds one answer outcome into the difficulty controller and,
// when the question is cached, the quality/usage feedback loop. Store
// failures degrade to "recorded without adjustment"; the learner's flow is
// never interrupted.
func (s *Service) RecordAnswer(learnerID int64, topicID string, outcome models.AnswerOutcome) models.RecordAnswerResponse {
	sample := models.PerformanceSample{
		LearnerID:   learnerID,
		TopicID:     topicID,
		SubtopicID:  outcome.SubtopicID,
		Difficulty:  outcome.Difficulty,
		IsCorrect:   outcome.IsCorrect,
		TimeTakenMs: outcome.TimeTakenMs,
		HintsUsed:   outcome.HintsUsed,
		Attempts:    outcome.Attempts,
	}

	adjustment := s.controller.EvaluateAdjustment(outcome.Difficulty, sample)

	if outcome.QuestionID != nil {
		if err := s.store.ApplyOutcome(*outcome.QuestionID, learnerID, outcome.IsCorrect); err != nil {
			log.Printf("WARN: [feedback] failed to update question %d: %v", *outcome.QuestionID, err)
		}
	}

	return models.RecordAnswerResponse{Recorded: true, Adjustment: &adjustment}
}

// RecommendDifficulty suggests a starting difficulty for a fresh session.
func (s *Service) RecommendDifficulty(learnerID int64, topicID string) models.Recommendation {
	return s.controller.Recommend(learnerID, topicID)
}

// ExclusionSet exposes the session tracker's negative filter to callers.
func (s *Service) ExclusionSet(learnerID int64, topicID string) []int64 {
	return s.tracker.ExclusionSet(learnerID, topicID, history.SessionWindowSize)
}

// ClearSession resets session history for a learner, one topic or all.
func (s *Service) ClearSession(learnerID int64, topicID string) {
	s.tracker.Clear(learnerID, topicID)
}
