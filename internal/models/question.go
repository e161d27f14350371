package models

import "time"

// ── Enums ────────────────────────────────────────────────

type Difficulty string

const (
	DifficultyEasy   Difficulty = "easy"
	DifficultyMedium Difficulty = "medium"
	DifficultyHard   Difficulty = "hard"
)

func (d Difficulty) Valid() bool {
	switch d {
	case DifficultyEasy, DifficultyMedium, DifficultyHard:
		return true
	}
	return false
}

type SourceTag string

const (
	SourceCacheGenerated SourceTag = "cache-generated"
	SourceCurated        SourceTag = "curated"
	SourceIngested       SourceTag = "ingested"
)

type MatchType string

const (
	MatchExact      MatchType = "exact"
	MatchCurated    MatchType = "curated"
	MatchTopicLevel MatchType = "topic_level"
)

// ── Question Records ─────────────────────────────────────

// QuestionRecord is a cached or curated practice question. ID is the single
// canonical identifier; anything entering the system without one is rejected
// at ingestion.
type QuestionRecord struct {
	ID            int64      `json:"id"`
	Text          string     `json:"text"`
	CorrectAnswer string     `json:"correct_answer"`
	Hints         []string   `json:"hints"`
	Explanation   string     `json:"explanation"`
	SolutionSteps []string   `json:"solution_steps"`
	TopicID       string     `json:"topic_id"`
	TopicName     string     `json:"topic_name"`
	SubtopicID    *string    `json:"subtopic_id,omitempty"`
	SubtopicName  *string    `json:"subtopic_name,omitempty"`
	Difficulty    Difficulty `json:"difficulty"`
	GradeLevel    *int       `json:"grade_level,omitempty"`
	ContentHash   string     `json:"content_hash"`
	QualityScore  float64    `json:"quality_score"`
	UsageCount    int        `json:"usage_count"`
	SuccessRate   float64    `json:"success_rate"`
	SourceTag     SourceTag  `json:"source"`
	CreatedAt     time.Time  `json:"created_at"`
}

// GeneratedCandidate is a question produced by the external generative
// service, before hashing and caching.
type GeneratedCandidate struct {
	Text          string     `json:"text"`
	CorrectAnswer string     `json:"correct_answer"`
	Hints         []string   `json:"hints"`
	Explanation   string     `json:"explanation"`
	SolutionSteps []string   `json:"solution_steps"`
	TopicID       string     `json:"topic_id"`
	TopicName     string     `json:"topic_name"`
	SubtopicID    *string    `json:"subtopic_id,omitempty"`
	SubtopicName  *string    `json:"subtopic_name,omitempty"`
	Difficulty    Difficulty `json:"difficulty"`
	GradeLevel    *int       `json:"grade_level,omitempty"`
}

// ── Resolution ───────────────────────────────────────────

type ResolveRequest struct {
	TopicID      string     `json:"topic_id"`
	TopicName    string     `json:"topic_name"`
	SubtopicID   *string    `json:"subtopic_id,omitempty"`
	SubtopicName *string    `json:"subtopic_name,omitempty"`
	Difficulty   Difficulty `json:"difficulty,omitempty"`
	GradeLevel   *int       `json:"grade_level,omitempty"`
	LearnerID    int64      `json:"learner_id,omitempty"`
	ExclusionIDs []int64    `json:"exclusion_ids,omitempty"`
}

// Outcome is the result of a resolution attempt. Either Question is set with
// the tier that produced it, or NeedsGeneration is true and Params echoes the
// request the caller should generate for.
type Outcome struct {
	Question        *QuestionRecord `json:"question,omitempty"`
	MatchType       MatchType       `json:"match_type,omitempty"`
	NeedsGeneration bool            `json:"needs_generation"`
	Reason          string          `json:"reason,omitempty"`
	Params          *ResolveRequest `json:"params,omitempty"`
}

// ── Answers & Difficulty ─────────────────────────────────

type AnswerOutcome struct {
	QuestionID  *int64     `json:"question_id,omitempty"`
	Difficulty  Difficulty `json:"difficulty"`
	SubtopicID  *string    `json:"subtopic_id,omitempty"`
	IsCorrect   bool       `json:"is_correct"`
	TimeTakenMs int64      `json:"time_taken_ms"`
	HintsUsed   int        `json:"hints_used"`
	Attempts    int        `json:"attempts"`
}

// PerformanceSample is one recorded answer outcome, append-only.
type PerformanceSample struct {
	LearnerID   int64      `json:"learner_id"`
	TopicID     string     `json:"topic_id"`
	SubtopicID  *string    `json:"subtopic_id,omitempty"`
	Difficulty  Difficulty `json:"difficulty"`
	IsCorrect   bool       `json:"is_correct"`
	TimeTakenMs int64      `json:"time_taken_ms"`
	HintsUsed   int        `json:"hints_used"`
	Attempts    int        `json:"attempts"`
	RecordedAt  time.Time  `json:"recorded_at"`
}

type AccuracyStats struct {
	SampleCount  int     `json:"sample_count"`
	CorrectCount int     `json:"correct_count"`
	Accuracy     float64 `json:"accuracy"`
}

type Adjustment struct {
	ShouldAdjust  bool          `json:"should_adjust"`
	NewDifficulty Difficulty    `json:"new_difficulty,omitempty"`
	Reason        string        `json:"reason"`
	Confidence    float64       `json:"confidence"`
	Stats         AccuracyStats `json:"stats"`
}

type Recommendation struct {
	Difficulty Difficulty    `json:"difficulty"`
	Confidence float64       `json:"confidence"`
	Details    AccuracyStats `json:"details"`
}

type RecordAnswerResponse struct {
	Recorded   bool        `json:"recorded"`
	Adjustment *Adjustment `json:"adjustment,omitempty"`
}
