package questions

import (
	"database/sql"
	"fmt"

	"github.com/lib/pq"

	"github.com/studyloop/backend/internal/models"
)

// longHorizonExposureLimit is how many of the learner's most recent durable
// exposures are excluded from cache candidates, on top of the session window.
const longHorizonExposureLimit = 100

// Store is the Postgres-backed question cache.
type Store struct {
	db *sql.DB
}

func NewStore(db *sql.DB) *Store {
	return &Store{db: db}
}

// FindCandidates returns up to five cached questions matching the request,
// ranked by quality tier, then least-used, then randomly. Questions in the
// exclusion set or in the learner's recent durable exposures are filtered
// out. When includeSubtopic is false the subtopic constraint is dropped.
func (s *Store) FindCandidates(req models.ResolveRequest, excludeIDs []int64, includeSubtopic bool) ([]models.QuestionRecord, error) {
	query := `
		SELECT id, question_text, correct_answer, hints, explanation, solution_steps,
		       topic_id, topic_name, subtopic_id, subtopic_name,
		       difficulty, grade_level, content_hash, quality_score,
		       usage_count, success_rate, source, created_at
		FROM questions
		WHERE active = TRUE
		  AND topic_id = $1
		  AND difficulty = $2
		  AND NOT (id = ANY($3))
		  AND id NOT IN (
		      SELECT question_id FROM question_exposures
		      WHERE learner_id = $4 AND question_id IS NOT NULL
		      ORDER BY shown_at DESC
		      LIMIT $5
		  )`
	args := []interface{}{
		req.TopicID,
		string(req.Difficulty),
		pq.Array(excludeIDs),
		req.LearnerID,
		longHorizonExposureLimit,
	}

	if req.GradeLevel != nil {
		args = append(args, *req.GradeLevel)
		query += fmt.Sprintf(" AND (grade_level = $%d OR grade_level IS NULL)", len(args))
	}
	if includeSubtopic && req.SubtopicID != nil {
		args = append(args, *req.SubtopicID)
		query += fmt.Sprintf(" AND subtopic_id = $%d", len(args))
	}

	query += `
		ORDER BY
		  CASE WHEN quality_score >= 80 THEN 0
		       WHEN quality_score >= 60 THEN 1
		       ELSE 2 END,
		  usage_count ASC,
		  RANDOM()
		LIMIT 5`

	rows, err := s.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("query candidates: %w", err)
	}
	defer rows.Close()

	return scanQuestions(rows)
}

// InsertDedup caches a generated candidate, deduplicating on content hash.
// When the hash already exists the existing row's id is returned and no
// duplicate is created; the upsert keeps both racing writers agreeing on
// one id.
func (s *Store) InsertDedup(c models.GeneratedCandidate, contentHash string, quality float64, source models.SourceTag) (int64, error) {
	var id int64
	err := s.db.QueryRow(`
		INSERT INTO questions
			(question_text, correct_answer, hints, explanation, solution_steps,
			 topic_id, topic_name, subtopic_id, subtopic_name,
			 difficulty, grade_level, content_hash, quality_score, source)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)
		ON CONFLICT (content_hash) DO UPDATE SET content_hash = EXCLUDED.content_hash
		RETURNING id`,
		c.Text, c.CorrectAnswer, pq.Array(c.Hints), c.Explanation, pq.Array(c.SolutionSteps),
		c.TopicID, c.TopicName, c.SubtopicID, c.SubtopicName,
		string(c.Difficulty), c.GradeLevel, contentHash, quality, string(source),
	).Scan(&id)
	if err != nil {
		return 0, fmt.Errorf("insert question: %w", err)
	}
	return id, nil
}

// GetQuestion fetches one cached question by id, nil when absent.
func (s *Store) GetQuestion(id int64) (*models.QuestionRecord, error) {
	row := s.db.QueryRow(`
		SELECT id, question_text, correct_answer, hints, explanation, solution_steps,
		       topic_id, topic_name, subtopic_id, subtopic_name,
		       difficulty, grade_level, content_hash, quality_score,
		       usage_count, success_rate, source, created_at
		FROM questions WHERE id = $1`, id)

	q, err := scanQuestion(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get question %d: %w", id, err)
	}
	return q, nil
}

// ApplyOutcome records one usage event for a question and refreshes its
// aggregate usage count, success rate and quality score from the full event
// history.
func (s *Store) ApplyOutcome(questionID, learnerID int64, correct bool) error {
	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("begin feedback tx: %w", err)
	}
	defer tx.Rollback()

	_, err = tx.Exec(`
		INSERT INTO question_usage_events (question_id, learner_id, is_correct)
		VALUES ($1, $2, $3)`,
		questionID, learnerID, correct)
	if err != nil {
		return fmt.Errorf("insert usage event: %w", err)
	}

	var usageCount, correctCount int
	err = tx.QueryRow(`
		SELECT COUNT(*), COUNT(*) FILTER (WHERE is_correct)
		FROM question_usage_events WHERE question_id = $1`,
		questionID).Scan(&usageCount, &correctCount)
	if err != nil {
		return fmt.Errorf("aggregate usage: %w", err)
	}

	successRate := 0.0
	if usageCount > 0 {
		successRate = float64(correctCount) / float64(usageCount) * 100
	}
	quality := ComputeQualityScore(usageCount, successRate)

	_, err = tx.Exec(`
		UPDATE questions
		SET usage_count = $1, success_rate = $2, quality_score = $3
		WHERE id = $4`,
		usageCount, successRate, quality, questionID)
	if err != nil {
		return fmt.Errorf("update question stats: %w", err)
	}

	return tx.Commit()
}

// Deactivate soft-deletes a question so it stops surfacing in resolution
// without losing its usage history.
func (s *Store) Deactivate(questionID int64) error {
	_, err := s.db.Exec(`UPDATE questions SET active = FALSE WHERE id = $1`, questionID)
	if err != nil {
		return fmt.Errorf("deactivate question %d: %w", questionID, err)
	}
	return nil
}

// ── Row scanning ─────────────────────────────────────────

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanQuestion(row rowScanner) (*models.QuestionRecord, error) {
	var q models.QuestionRecord
	var hints, steps pq.StringArray
	err := row.Scan(
		&q.ID, &q.Text, &q.CorrectAnswer, &hints, &q.Explanation, &steps,
		&q.TopicID, &q.TopicName, &q.SubtopicID, &q.SubtopicName,
		&q.Difficulty, &q.GradeLevel, &q.ContentHash, &q.QualityScore,
		&q.UsageCount, &q.SuccessRate, &q.SourceTag, &q.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	q.Hints = hints
	q.SolutionSteps = steps
	return &q, nil
}

func scanQuestions(rows *sql.Rows) ([]models.QuestionRecord, error) {
	var out []models.QuestionRecord
	for rows.Next() {
		q, err := scanQuestion(rows)
		if err != nil {
			return nil, fmt.Errorf("scan question: %w", err)
		}
		out = append(out, *q)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate questions: %w", err)
	}
	return out, nil
}
