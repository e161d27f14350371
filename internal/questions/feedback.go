package questions

// Quality scores live in [30, 100]. A fresh system-generated question starts
// at the baseline; observed success and usage volume move it from there.
const (
	QualityFloor    = 30.0
	QualityCeiling  = 100.0
	QualityBaseline = 70.0

	// Success-rate adjustments only apply once a question has been used
	// enough for the rate to mean something.
	minUsageForRateAdjustment = 5
)

// ComputeQualityScore derives a question's quality from its usage volume and
// observed success rate (0-100). Well-used questions with healthy success
// rates rank above untested content in candidate ordering.
func ComputeQualityScore(usageCount int, successRate float64) float64 {
	score := 50.0

	if usageCount >= minUsageForRateAdjustment {
		score += (successRate - 50) / 2
	}

	switch {
	case usageCount >= 20:
		score += 20
	case usageCount >= 10:
		score += 10
	case usageCount >= 5:
		score += 5
	}

	if score < QualityFloor {
		return QualityFloor
	}
	if score > QualityCeiling {
		return QualityCeiling
	}
	return score
}
