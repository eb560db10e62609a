package rating

import (
	"fmt"
	"strings"
)

// Tier is one rating band. A nil Max marks the open-ended top band.
type Tier struct {
	Name string `yaml:"name"`
	Min  int    `yaml:"min"`
	Max  *int   `yaml:"max"`
}

type Config struct {
	DefaultRating         int            `yaml:"default_rating"`
	WinDelta              int            `yaml:"win_delta"`
	LossDelta             int            `yaml:"loss_delta"`
	StandoutBonus         int            `yaml:"standout_bonus"`
	UnderperformerPenalty int            `yaml:"underperformer_penalty"`
	Tiers                 []Tier         `yaml:"tiers"`
	RankWeights           map[string]int `yaml:"rank_weights"`
	DefaultRankWeight     int            `yaml:"default_rank_weight"`
	MaxRankWeight         int            `yaml:"max_rank_weight"`
}

func bound(v int) *int { return &v }

func DefaultConfig() Config {
	return Config{
		DefaultRating:         1000,
		WinDelta:              25,
		LossDelta:             -20,
		StandoutBonus:         5,
		UnderperformerPenalty: -5,
		Tiers: []Tier{
			{Name: "Iron", Min: 0, Max: bound(799)},
			{Name: "Bronze", Min: 800, Max: bound(999)},
			{Name: "Silver", Min: 1000, Max: bound(1199)},
			{Name: "Gold", Min: 1200, Max: bound(1399)},
			{Name: "Platinum", Min: 1400, Max: bound(1599)},
			{Name: "Emerald", Min: 1600, Max: bound(1799)},
			{Name: "Diamond", Min: 1800, Max: bound(1999)},
			{Name: "Master", Min: 2000, Max: bound(2199)},
			{Name: "Grandmaster", Min: 2200, Max: bound(2399)},
			{Name: "Challenger", Min: 2400},
		},
		RankWeights: map[string]int{
			"IRON IV": 1, "IRON III": 2, "IRON II": 3, "IRON I": 4,
			"BRONZE IV": 5, "BRONZE III": 6, "BRONZE II": 7, "BRONZE I": 8,
			"SILVER IV": 9, "SILVER III": 10, "SILVER II": 11, "SILVER I": 12,
			"GOLD IV": 13, "GOLD III": 14, "GOLD II": 15, "GOLD I": 16,
			"PLATINUM IV": 17, "PLATINUM III": 18, "PLATINUM II": 19, "PLATINUM I": 20,
			"EMERALD IV": 21, "EMERALD III": 22, "EMERALD II": 23, "EMERALD I": 24,
			"DIAMOND IV": 25, "DIAMOND III": 26, "DIAMOND II": 27, "DIAMOND I": 28,
			"MASTER": 29, "GRANDMASTER": 30, "CHALLENGER": 31,
		},
		DefaultRankWeight: 10,
		MaxRankWeight:     31,
	}
}

// Validate reports configuration errors. The tier table must be non-empty,
// ascending and non-overlapping, and only the last band may be open-ended.
func (c Config) Validate() error {
	if len(c.Tiers) == 0 {
		return fmt.Errorf("tier table is empty")
	}
	for i, t := range c.Tiers {
		if t.Name == "" {
			return fmt.Errorf("tier %d has no name", i)
		}
		last := i == len(c.Tiers)-1
		if t.Max == nil && !last {
			return fmt.Errorf("tier %q is open-ended but is not the top band", t.Name)
		}
		if t.Max != nil && *t.Max < t.Min {
			return fmt.Errorf("tier %q has max %d below min %d", t.Name, *t.Max, t.Min)
		}
		if i > 0 {
			prev := c.Tiers[i-1]
			if t.Min <= *prev.Max {
				return fmt.Errorf("tier %q overlaps or precedes %q", t.Name, prev.Name)
			}
		}
	}
	if c.MaxRankWeight <= 0 {
		return fmt.Errorf("max rank weight must be positive, got %d", c.MaxRankWeight)
	}
	if c.DefaultRankWeight < 0 {
		return fmt.Errorf("default rank weight must not be negative, got %d", c.DefaultRankWeight)
	}
	for label, w := range c.RankWeights {
		if w < 0 {
			return fmt.Errorf("rank weight for %q is negative", label)
		}
	}
	if c.WinDelta < c.LossDelta {
		return fmt.Errorf("win delta %d is below loss delta %d", c.WinDelta, c.LossDelta)
	}
	return nil
}

func normalizeLabel(label string) string {
	return strings.ToUpper(strings.TrimSpace(label))
}
