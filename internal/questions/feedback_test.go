package questions

import "testing"

func TestQualityScoreBounds(t *testing.T) {
	for usage := 0; usage <= 50; usage += 5 {
		for rate := 0.0; rate <= 100; rate += 10 {
			score := ComputeQualityScore(usage, rate)
			if score < QualityFloor || score > QualityCeiling {
				t.Errorf("ComputeQualityScore(%d, %v) = %v outside [%v, %v]",
					usage, rate, score, QualityFloor, QualityCeiling)
			}
		}
	}
}

func TestQualityScoreIgnoresRateAtLowUsage(t *testing.T) {
	// Below 5 usages the success rate must not move the score.
	low := ComputeQualityScore(4, 0)
	high := ComputeQualityScore(4, 100)
	if low != high {
		t.Errorf("expected rate to be ignored below 5 usages: %v vs %v", low, high)
	}
	if low != 50 {
		t.Errorf("expected baseline 50 at low usage, got %v", low)
	}
}

func TestQualityScoreRewardsSuccessAndVolume(t *testing.T) {
	// usage 20, rate 100: 50 + (100-50)/2 + 20 = 95
	if got := ComputeQualityScore(20, 100); got != 95 {
		t.Errorf("expected 95, got %v", got)
	}
	// usage 10, rate 80: 50 + 15 + 10 = 75
	if got := ComputeQualityScore(10, 80); got != 75 {
		t.Errorf("expected 75, got %v", got)
	}
	// usage 5, rate 0: 50 - 25 + 5 = 30 (exactly the floor)
	if got := ComputeQualityScore(5, 0); got != 30 {
		t.Errorf("expected 30, got %v", got)
	}
}

func TestQualityScoreFloorApplies(t *testing.T) {
	// usage 6, rate 0: 50 - 25 + 5 = 30; anything lower clamps.
	if got := ComputeQualityScore(9, 0); got != QualityFloor {
		t.Errorf("expected floor %v, got %v", QualityFloor, got)
	}
}
