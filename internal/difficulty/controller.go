package difficulty

import (
	"log"

	"github.com/studyloop/backend/internal/models"
)

const (
	adjustmentWindow     = 5  // samples consulted for an adjustment decision
	recommendationWindow = 10 // samples consulted for a standalone recommendation
	minSamplesToAdjust   = 3
)

// SampleSource is the backing performance store. Errors from it are treated
// conservatively: the controller never blocks question delivery.
type SampleSource interface {
	Append(sample models.PerformanceSample) error
	Recent(learnerID int64, topicID string, n int) ([]models.PerformanceSample, error)
}

// Controller derives difficulty decisions from rolling accuracy over the most
// recent samples for a (learner, topic) pair.
type Controller struct {
	samples SampleSource
}

func NewController(samples SampleSource) *Controller {
	return &Controller{samples: samples}
}

// EvaluateAdjustment appends the just-recorded sample and decides whether the
// learner's difficulty in this topic should change. Rules apply in order,
// first match wins; below three samples no decision is made.
func (c *Controller) EvaluateAdjustment(current models.Difficulty, latest models.PerformanceSample) models.Adjustment {
	noChange := func(reason string, stats models.AccuracyStats, confidence float64) models.Adjustment {
		return models.Adjustment{
			ShouldAdjust:  false,
			NewDifficulty: current,
			Reason:        reason,
			Confidence:    confidence,
			Stats:         stats,
		}
	}

	if err := c.samples.Append(latest); err != nil {
		log.Printf("WARN: [difficulty] failed to append sample for learner %d: %v", latest.LearnerID, err)
		return noChange("store_unavailable", models.AccuracyStats{}, 0)
	}

	recent, err := c.samples.Recent(latest.LearnerID, latest.TopicID, adjustmentWindow)
	if err != nil {
		log.Printf("WARN: [difficulty] failed to load samples for learner %d: %v", latest.LearnerID, err)
		return noChange("store_unavailable", models.AccuracyStats{}, 0)
	}

	stats := accuracyOf(recent)
	confidence := float64(stats.SampleCount) / float64(adjustmentWindow)
	if confidence > 1 {
		confidence = 1
	}

	if stats.SampleCount < minSamplesToAdjust {
		return noChange("need_more_data", stats, confidence)
	}

	newDifficulty, reason := applyRules(current, stats.Accuracy)
	if newDifficulty == current {
		return noChange("within_band", stats, confidence)
	}

	return models.Adjustment{
		ShouldAdjust:  true,
		NewDifficulty: newDifficulty,
		Reason:        reason,
		Confidence:    confidence,
		Stats:         stats,
	}
}

// applyRules is the adjustment cascade. The overlapping [40,50) band at
// medium is intentionally resolved by rule order: rule 3 requires accuracy
// below 40, so rule 4 handles [40,50) at medium.
func applyRules(current models.Difficulty, accuracy float64) (models.Difficulty, string) {
	switch {
	case accuracy >= 90 && current != models.DifficultyHard:
		return escalate(current), "high_accuracy"
	case accuracy >= 70 && accuracy < 90 && current == models.DifficultyEasy:
		return models.DifficultyMedium, "steady_accuracy"
	case accuracy < 40 && current != models.DifficultyEasy:
		return deescalate(current), "low_accuracy"
	case accuracy < 50 && current == models.DifficultyMedium:
		return models.DifficultyEasy, "below_band"
	default:
		return current, ""
	}
}

func escalate(d models.Difficulty) models.Difficulty {
	if d == models.DifficultyEasy {
		return models.DifficultyMedium
	}
	return models.DifficultyHard
}

func deescalate(d models.Difficulty) models.Difficulty {
	if d == models.DifficultyHard {
		return models.DifficultyMedium
	}
	return models.DifficultyEasy
}

// Recommend suggests a starting difficulty for a session with no current
// difficulty yet. Independent of the adjustment cascade; topicID may be empty
// to aggregate across topics.
func (c *Controller) Recommend(learnerID int64, topicID string) models.Recommendation {
	recent, err := c.samples.Recent(learnerID, topicID, recommendationWindow)
	if err != nil {
		log.Printf("WARN: [difficulty] failed to load samples for recommendation, learner %d: %v", learnerID, err)
		return models.Recommendation{Difficulty: models.DifficultyMedium, Confidence: 0}
	}

	stats := accuracyOf(recent)
	if stats.SampleCount == 0 {
		return models.Recommendation{Difficulty: models.DifficultyMedium, Confidence: 0, Details: stats}
	}

	confidence := float64(stats.SampleCount) / float64(recommendationWindow)
	if confidence > 1 {
		confidence = 1
	}

	var d models.Difficulty
	switch {
	case stats.Accuracy >= 85:
		d = models.DifficultyHard
	case stats.Accuracy >= 60:
		d = models.DifficultyMedium
	default:
		d = models.DifficultyEasy
	}

	return models.Recommendation{Difficulty: d, Confidence: confidence, Details: stats}
}

func accuracyOf(samples []models.PerformanceSample) models.AccuracyStats {
	stats := models.AccuracyStats{SampleCount: len(samples)}
	if len(samples) == 0 {
		return stats
	}
	for _, s := range samples {
		if s.IsCorrect {
			stats.CorrectCount++
		}
	}
	stats.Accuracy = float64(stats.CorrectCount) / float64(stats.SampleCount) * 100
	return stats
}
