package questions

import (
	"database/sql"
	"fmt"

	"github.com/lib/pq"

	"github.com/studyloop/backend/internal/models"
)

// CuratedStore reads the hand-authored question bank. The bank is loaded out
// of band; this store never writes to it.
type CuratedStore struct {
	db *sql.DB
}

func NewCuratedStore(db *sql.DB) *CuratedStore {
	return &CuratedStore{db: db}
}

// FindCurated returns up to five curated questions whose topic label matches
// any of the mapped labels. Difficulty and grade narrow the result when the
// bank rows carry them; rows with NULL difficulty or grade match anything.
func (s *CuratedStore) FindCurated(labels []string, diff models.Difficulty, grade *int, excludeIDs []int64) ([]models.QuestionRecord, error) {
	if len(labels) == 0 {
		return nil, nil
	}

	query := `
		SELECT id, question_text, correct_answer, hints, explanation,
		       solution_steps, topic_label, difficulty, grade_level, created_at
		FROM curated_questions
		WHERE topic_label = ANY($1)
		  AND NOT (id = ANY($2))`
	args := []interface{}{pq.Array(labels), pq.Array(excludeIDs)}

	if diff.Valid() {
		args = append(args, string(diff))
		query += fmt.Sprintf(" AND (difficulty = $%d OR difficulty IS NULL)", len(args))
	}
	if grade != nil {
		args = append(args, *grade)
		query += fmt.Sprintf(" AND (grade_level = $%d OR grade_level IS NULL)", len(args))
	}

	query += " ORDER BY RANDOM() LIMIT 5"

	rows, err := s.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("query curated bank: %w", err)
	}
	defer rows.Close()

	var out []models.QuestionRecord
	for rows.Next() {
		var q models.QuestionRecord
		var hints, steps pq.StringArray
		var rowDiff sql.NullString
		err := rows.Scan(
			&q.ID, &q.Text, &q.CorrectAnswer, &hints, &q.Explanation,
			&steps, &q.TopicName, &rowDiff, &q.GradeLevel, &q.CreatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("scan curated question: %w", err)
		}
		q.Hints = hints
		q.SolutionSteps = steps
		q.SourceTag = models.SourceCurated
		if rowDiff.Valid {
			q.Difficulty = models.Difficulty(rowDiff.String)
		} else {
			q.Difficulty = diff
		}
		q.ContentHash = ContentHash(q.Text)
		out = append(out, q)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate curated questions: %w", err)
	}
	return out, nil
}
