package history

import (
	"crypto/sha256"
	"database/sql"
	"encoding/hex"
	"fmt"
	"time"

	"github.com/studyloop/backend/internal/models"
)

// RetentionWindow is how far back the durable exposure history is consulted
// for cross-session avoidance.
const RetentionWindow = 14 * 24 * time.Hour

// PersistedQueryLimit bounds each durable-history query to the newest rows.
const PersistedQueryLimit = 20

// Store persists hashed question exposures per learner and topic.
type Store struct {
	db *sql.DB
}

func NewStore(db *sql.DB) *Store {
	return &Store{db: db}
}

// TextHash is the digest stored per exposure, raw text, not normalized.
func TextHash(text string) string {
	sum := sha256.Sum256([]byte(text))
	return hex.EncodeToString(sum[:])
}

func (s *Store) RecordExposure(learnerID int64, topicID string, entry models.HistoryEntry) error {
	_, err := s.db.Exec(
		`INSERT INTO question_exposures (learner_id, topic_id, question_id, text_hash, difficulty, source)
		 VALUES ($1, $2, $3, $4, $5, $6)`,
		learnerID, topicID, entry.QuestionID, TextHash(entry.QuestionText), entry.Difficulty, entry.SourceTag,
	)
	if err != nil {
		return fmt.Errorf("record exposure: %w", err)
	}
	return nil
}

// RecentTextHashes returns the hashed texts of the learner's newest exposures
// in this topic within the retention window.
func (s *Store) RecentTextHashes(learnerID int64, topicID string) ([]string, error) {
	rows, err := s.db.Query(
		`SELECT text_hash FROM question_exposures
		 WHERE learner_id = $1 AND topic_id = $2 AND shown_at > NOW() - $3::interval
		 ORDER BY shown_at DESC LIMIT $4`,
		learnerID, topicID, fmt.Sprintf("%d hours", int(RetentionWindow.Hours())), PersistedQueryLimit,
	)
	if err != nil {
		return nil, fmt.Errorf("recent text hashes: %w", err)
	}
	defer rows.Close()

	var hashes []string
	for rows.Next() {
		var h string
		if err := rows.Scan(&h); err != nil {
			return nil, fmt.Errorf("scan text hash: %w", err)
		}
		hashes = append(hashes, h)
	}
	return hashes, rows.Err()
}
