package history

import (
	"log"
	"sync"
	"time"

	"github.com/studyloop/backend/internal/models"
)

// SessionWindowSize bounds the per-(learner,topic) session window; the oldest
// entry is evicted first once the bound is reached.
const SessionWindowSize = 30

// ExposureStore is the durable side of the tracker. Writes are best-effort:
// a store failure degrades cross-session avoidance, never delivery.
type ExposureStore interface {
	RecordExposure(learnerID int64, topicID string, entry models.HistoryEntry) error
}

type sessionWindow struct {
	mu      sync.Mutex
	entries []models.HistoryEntry
}

// Tracker holds the short-lived session windows for all learners, keyed by
// (learner, topic). It is safe for concurrent use; deliveries for the same
// key are serialized, different keys proceed independently.
type Tracker struct {
	mu      sync.RWMutex
	windows map[windowKey]*sessionWindow
	store   ExposureStore
}

type windowKey struct {
	learnerID int64
	topicID   string
}

func NewTracker(store ExposureStore) *Tracker {
	return &Tracker{
		windows: make(map[windowKey]*sessionWindow),
		store:   store,
	}
}

func (t *Tracker) window(learnerID int64, topicID string) *sessionWindow {
	key := windowKey{learnerID, topicID}

	t.mu.RLock()
	w, ok := t.windows[key]
	t.mu.RUnlock()
	if ok {
		return w
	}

	t.mu.Lock()
	defer t.mu.Unlock()
	if w, ok := t.windows[key]; ok {
		return w
	}
	w = &sessionWindow{}
	t.windows[key] = w
	return w
}

// Record appends a delivered question to the session window, evicting the
// oldest entry past the bound, and asynchronously persists the exposure.
func (t *Tracker) Record(learnerID int64, topicID string, q *models.QuestionRecord) {
	id := q.ID
	entry := models.HistoryEntry{
		QuestionText: q.Text,
		TimestampMs:  time.Now().UnixMilli(),
		Difficulty:   q.Difficulty,
		SourceTag:    q.SourceTag,
		Keywords:     ExtractKeywords(q.Text),
		Numbers:      ExtractNumbers(q.Text),
	}
	if id != 0 {
		entry.QuestionID = &id
	}

	w := t.window(learnerID, topicID)
	w.mu.Lock()
	w.entries = append(w.entries, entry)
	if len(w.entries) > SessionWindowSize {
		w.entries = w.entries[len(w.entries)-SessionWindowSize:]
	}
	w.mu.Unlock()

	if t.store != nil {
		go func() {
			if err := t.store.RecordExposure(learnerID, topicID, entry); err != nil {
				log.Printf("WARN: [history] failed to persist exposure for learner %d: %v", learnerID, err)
			}
		}()
	}
}

// ExclusionSet returns the question ids of the most recent limit entries with
// a known id, for use as a negative filter in store queries.
func (t *Tracker) ExclusionSet(learnerID int64, topicID string, limit int) []int64 {
	if limit <= 0 || limit > SessionWindowSize {
		limit = SessionWindowSize
	}

	w := t.window(learnerID, topicID)
	w.mu.Lock()
	defer w.mu.Unlock()

	var ids []int64
	for i := len(w.entries) - 1; i >= 0 && len(ids) < limit; i-- {
		if w.entries[i].QuestionID != nil {
			ids = append(ids, *w.entries[i].QuestionID)
		}
	}
	return ids
}

// Recent returns a copy of the current session window, newest last.
func (t *Tracker) Recent(learnerID int64, topicID string) []models.HistoryEntry {
	w := t.window(learnerID, topicID)
	w.mu.Lock()
	defer w.mu.Unlock()

	out := make([]models.HistoryEntry, len(w.entries))
	copy(out, w.entries)
	return out
}

// Clear drops session state for a learner: one topic if topicID is non-empty,
// otherwise all topics.
func (t *Tracker) Clear(learnerID int64, topicID string) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if topicID != "" {
		delete(t.windows, windowKey{learnerID, topicID})
		return
	}
	for key := range t.windows {
		if key.learnerID == learnerID {
			delete(t.windows, key)
		}
	}
}

// IsSimilar reports whether candidateText is a near-duplicate of any recent
// entry: both the number overlap ratio and the keyword overlap ratio must
// exceed 0.5 against the same entry. Advisory only; callers use it to reject
// near-duplicate generated output before caching.
func IsSimilar(candidateText string, recent []models.HistoryEntry) bool {
	candNumbers := ExtractNumbers(candidateText)
	candKeywords := ExtractKeywords(candidateText)

	for _, entry := range recent {
		numberRatio := overlapRatio(candNumbers, entry.Numbers)
		keywordRatio := overlapRatio(candKeywords, entry.Keywords)
		if numberRatio > 0.5 && keywordRatio > 0.5 {
			return true
		}
	}
	return false
}
