package performance

import (
	"database/sql"
	"fmt"

	"github.com/studyloop/backend/internal/models"
)

// Store is the append-only record of answer outcomes.
type Store struct {
	db *sql.DB
}

func NewStore(db *sql.DB) *Store {
	return &Store{db: db}
}

// EnsureLearner provisions a learner row on first reference. Answers recorded
// for an unknown learner id must not fail; the row is created idempotently.
func (s *Store) EnsureLearner(learnerID int64) error {
	_, err := s.db.Exec(
		`INSERT INTO learners (id, email, name, password)
		 VALUES ($1, 'learner-' || $1 || '@placeholder.invalid', 'Learner ' || $1, '')
		 ON CONFLICT (id) DO NOTHING`,
		learnerID,
	)
	if err != nil {
		return fmt.Errorf("ensure learner: %w", err)
	}
	return nil
}

func (s *Store) Append(sample models.PerformanceSample) error {
	if err := s.EnsureLearner(sample.LearnerID); err != nil {
		return err
	}
	_, err := s.db.Exec(
		`INSERT INTO performance_samples
		 (learner_id, topic_id, subtopic_id, difficulty, is_correct, time_taken_ms, hints_used, attempts)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
		sample.LearnerID, sample.TopicID, sample.SubtopicID, sample.Difficulty,
		sample.IsCorrect, sample.TimeTakenMs, sample.HintsUsed, sample.Attempts,
	)
	if err != nil {
		return fmt.Errorf("append sample: %w", err)
	}
	return nil
}

// Recent returns the most recent n samples for a learner, newest first.
// An empty topicID aggregates across all topics.
func (s *Store) Recent(learnerID int64, topicID string, n int) ([]models.PerformanceSample, error) {
	var rows *sql.Rows
	var err error

	cols := `learner_id, topic_id, subtopic_id, difficulty, is_correct,
	         time_taken_ms, hints_used, attempts, recorded_at`

	if topicID != "" {
		rows, err = s.db.Query(
			fmt.Sprintf(`SELECT %s FROM performance_samples
			 WHERE learner_id = $1 AND topic_id = $2
			 ORDER BY recorded_at DESC LIMIT $3`, cols),
			learnerID, topicID, n,
		)
	} else {
		rows, err = s.db.Query(
			fmt.Sprintf(`SELECT %s FROM performance_samples
			 WHERE learner_id = $1
			 ORDER BY recorded_at DESC LIMIT $2`, cols),
			learnerID, n,
		)
	}
	if err != nil {
		return nil, fmt.Errorf("recent samples: %w", err)
	}
	defer rows.Close()

	var samples []models.PerformanceSample
	for rows.Next() {
		var p models.PerformanceSample
		if err := rows.Scan(&p.LearnerID, &p.TopicID, &p.SubtopicID, &p.Difficulty,
			&p.IsCorrect, &p.TimeTakenMs, &p.HintsUsed, &p.Attempts, &p.RecordedAt); err != nil {
			return nil, fmt.Errorf("scan sample: %w", err)
		}
		samples = append(samples, p)
	}
	return samples, rows.Err()
}
