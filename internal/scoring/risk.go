package scoring

import "github.com/kagehq/kage/internal/model"

// Risk thresholds on the Honesty-Humility average. Both bounds are inclusive.
const (
	highRiskMax = 2.5
	lowRiskMin  = 3.6
)

// ClassifyRisk buckets a Honesty-Humility average into a risk level.
func ClassifyRisk(avg float64) model.RiskLevel {
	switch {
	case avg <= highRiskMax:
		return model.RiskHigh
	case avg >= lowRiskMin:
		return model.RiskLow
	default:
		return model.RiskMedium
	}
}
