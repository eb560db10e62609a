// Package rating maps a player's rating and record to balance scores, tier
// labels and per-match rating deltas. Everything here is pure and safe for
// concurrent use.
package rating

import (
	"fmt"
	"math"
)

const (
	ratingWeight  = 0.6
	rankWeight    = 0.25
	winRateWeight = 0.15

	// rating/ratingScale gives the 0-100 rating component.
	ratingScale = 22.0

	neutralWinRate = 0.5
)

type Engine struct {
	cfg     Config
	weights map[string]int
}

func NewEngine(cfg Config) (*Engine, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid rating config: %w", err)
	}
	weights := make(map[string]int, len(cfg.RankWeights))
	for label, w := range cfg.RankWeights {
		weights[normalizeLabel(label)] = w
	}
	return &Engine{cfg: cfg, weights: weights}, nil
}

// MustEngine is NewEngine for configurations known to be valid.
func MustEngine(cfg Config) *Engine {
	e, err := NewEngine(cfg)
	if err != nil {
		panic(err)
	}
	return e
}

func (e *Engine) Config() Config {
	return e.cfg
}

func (e *Engine) DefaultRating() int {
	return e.cfg.DefaultRating
}

// RankWeight resolves an external rank label. Unknown or empty labels get the
// configured default weight.
func (e *Engine) RankWeight(label string) int {
	if w, ok := e.weights[normalizeLabel(label)]; ok {
		return w
	}
	return e.cfg.DefaultRankWeight
}

// BalanceScore blends rating (60%), rank weight (25%) and win rate (15%) into
// a 0-100 figure rounded to two decimals. Players without games get a 50% win
// rate.
func (e *Engine) BalanceScore(rating, rankTierWeight, wins, losses int) float64 {
	if wins < 0 || losses < 0 {
		panic(fmt.Sprintf("rating: negative record %d/%d", wins, losses))
	}
	if rankTierWeight < 0 {
		panic(fmt.Sprintf("rating: negative rank weight %d", rankTierWeight))
	}

	ratingScore := 0.0
	if rating > 0 {
		ratingScore = math.Min(100, float64(rating)/ratingScale)
	}

	rankScore := math.Min(100, float64(rankTierWeight)/float64(e.cfg.MaxRankWeight)*100)

	winRate := neutralWinRate
	if games := wins + losses; games > 0 {
		winRate = float64(wins) / float64(games)
	}

	score := ratingWeight*ratingScore + rankWeight*rankScore + winRateWeight*(winRate*100)
	return math.Round(score*100) / 100
}

// TierForRating returns the band containing rating. Ratings under the first
// band map to it and ratings past every bound map to the top band.
func (e *Engine) TierForRating(rating int) string {
	tiers := e.cfg.Tiers
	if rating < tiers[0].Min {
		return tiers[0].Name
	}
	for _, t := range tiers {
		if rating >= t.Min && (t.Max == nil || rating <= *t.Max) {
			return t.Name
		}
	}
	// gaps between bands fall to the band below
	for i := len(tiers) - 1; i >= 0; i-- {
		if rating >= tiers[i].Min {
			return tiers[i].Name
		}
	}
	return tiers[len(tiers)-1].Name
}

// ApplyResult returns the rating delta for one participant and the resulting
// rating. No floor is applied here.
func (e *Engine) ApplyResult(rating int, isWin, isStandout, isUnderperformer bool) (delta int, newRating int) {
	delta = e.cfg.LossDelta
	if isWin {
		delta = e.cfg.WinDelta
	}
	if isStandout {
		delta += e.cfg.StandoutBonus
	}
	if isUnderperformer {
		delta += e.cfg.UnderperformerPenalty
	}
	return delta, rating + delta
}
