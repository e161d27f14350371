package models

// HistoryEntry is one exposure of a question to one learner within one topic.
// QuestionID may be nil for content delivered before it was cached.
type HistoryEntry struct {
	QuestionID   *int64     `json:"question_id,omitempty"`
	QuestionText string     `json:"question_text"`
	TimestampMs  int64      `json:"timestamp_ms"`
	Difficulty   Difficulty `json:"difficulty"`
	SourceTag    SourceTag  `json:"source"`
	Keywords     []string   `json:"keywords"`
	Numbers      []string   `json:"numbers"`
}
