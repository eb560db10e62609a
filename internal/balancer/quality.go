package balancer

import (
	"fmt"
	"math"

	"aram-scrim/internal/domain"
	"aram-scrim/internal/rating"

	"github.com/samber/lo"
)

const (
	QualityExcellent = "excellent"
	QualityGood      = "good"
	QualityFair      = "fair"
	QualityPoor      = "poor"
)

// Thresholds bucket the per-player average difference of a result.
type Thresholds struct {
	Excellent float64 `yaml:"excellent"`
	Good      float64 `yaml:"good"`
	Fair      float64 `yaml:"fair"`
}

func DefaultThresholds() Thresholds {
	return Thresholds{Excellent: 2, Good: 5, Fair: 10}
}

// Validate requires 0 <= Excellent <= Good <= Fair so every label stays
// reachable.
func (t Thresholds) Validate() error {
	for name, v := range map[string]float64{"excellent": t.Excellent, "good": t.Good, "fair": t.Fair} {
		if math.IsNaN(v) || v < 0 {
			return fmt.Errorf("%s threshold %v must be non-negative", name, v)
		}
	}
	if t.Excellent > t.Good {
		return fmt.Errorf("excellent threshold %v is above good threshold %v", t.Excellent, t.Good)
	}
	if t.Good > t.Fair {
		return fmt.Errorf("good threshold %v is above fair threshold %v", t.Good, t.Fair)
	}
	return nil
}

func (t Thresholds) Quality(r Result) string {
	d := r.AverageDifference()
	switch {
	case d <= t.Excellent:
		return QualityExcellent
	case d <= t.Good:
		return QualityGood
	case d <= t.Fair:
		return QualityFair
	default:
		return QualityPoor
	}
}

// Candidates scores profiles with the rating engine, keeping their order.
func Candidates(engine *rating.Engine, profiles []domain.Profile) []Candidate {
	return lo.Map(profiles, func(p domain.Profile, _ int) Candidate {
		return Candidate{
			Ref:   p.Ref,
			Score: engine.BalanceScore(p.Rating, p.RankTierWeight, p.Wins, p.Losses),
		}
	})
}
