package carbon

import "math"

// Audit readiness weights: having any emission factor counts for more than
// third-party verification.
const (
	CompletenessWeight = 0.7
	VerificationWeight = 0.3
)

// ScoreAuditReadiness returns a 0–100 score, rounded to two decimals:
//
//	0.7 × withFactor/total × 100 + 0.3 × verified/total × 100
//
// An empty component list scores 0.
func ScoreAuditReadiness(components []Component) float64 {
	if len(components) == 0 {
		return 0
	}
	var withFactor, verified int
	for _, c := range components {
		if c.HasEmissionFactor() {
			withFactor++
		}
		if c.IsVerified() {
			verified++
		}
	}
	return auditScore(withFactor, verified, len(components))
}

func auditScore(withFactor, verified, total int) float64 {
	if total == 0 {
		return 0
	}
	score := CompletenessWeight*ratioPct(withFactor, total) + VerificationWeight*ratioPct(verified, total)
	return round2(clamp(score, 0, 100))
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
