package balancer

import (
	"errors"
	"fmt"
	"math"
	"math/rand"
	"sort"
	"testing"

	"aram-scrim/internal/domain"
	"aram-scrim/internal/rating"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func roster(scores ...float64) []Candidate {
	out := make([]Candidate, len(scores))
	for i, s := range scores {
		out[i] = Candidate{Ref: fmt.Sprintf("p%d", i), Score: s}
	}
	return out
}

func refs(cs []Candidate) []string {
	out := make([]string, len(cs))
	for i, c := range cs {
		out[i] = c.Ref
	}
	return out
}

// bruteForceMin checks every assignment of players to sides, mirrors included.
func bruteForceMin(players []Candidate) float64 {
	n := len(players)
	best := math.Inf(1)
	for mask := 0; mask < 1<<n; mask++ {
		count := 0
		var a, b float64
		for i := 0; i < n; i++ {
			if mask&(1<<i) != 0 {
				count++
				a += players[i].Score
			} else {
				b += players[i].Score
			}
		}
		if count != n/2 {
			continue
		}
		best = math.Min(best, math.Abs(a-b))
	}
	return best
}

func assertPartition(t *testing.T, in []Candidate, res Result) {
	t.Helper()
	require.Len(t, res.Blue, len(in)/2)
	require.Len(t, res.Red, len(in)/2)

	got := append(refs(res.Blue), refs(res.Red)...)
	want := refs(in)
	sort.Strings(got)
	sort.Strings(want)
	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("sides do not partition input (-want +got):\n%s", diff)
	}

	var blue, red float64
	for _, c := range res.Blue {
		blue += c.Score
	}
	for _, c := range res.Red {
		red += c.Score
	}
	assert.InDelta(t, math.Abs(blue-red), res.Difference, 1e-9)
}

func TestBalancePartitionsEveryValidSize(t *testing.T) {
	rng := rand.New(rand.NewSource(7))
	for _, n := range []int{4, 6, 8, 10} {
		for trial := 0; trial < 50; trial++ {
			scores := make([]float64, n)
			for i := range scores {
				scores[i] = math.Round(rng.Float64()*10000) / 100
			}
			in := roster(scores...)
			res, err := Balance(in)
			require.NoError(t, err)
			assertPartition(t, in, res)
			assert.Equal(t, n <= ExhaustiveLimit, res.Exhaustive)
		}
	}
}

func TestBalanceMatchesBruteForceUpToEight(t *testing.T) {
	rng := rand.New(rand.NewSource(42))
	for _, n := range []int{4, 6, 8} {
		for trial := 0; trial < 200; trial++ {
			scores := make([]float64, n)
			for i := range scores {
				scores[i] = math.Round(rng.Float64()*10000) / 100
			}
			in := roster(scores...)
			res, err := Balance(in)
			require.NoError(t, err)
			assert.InDelta(t, bruteForceMin(in), res.Difference, 1e-9, "scores %v", scores)
		}
	}
}

func TestBalanceFirstPlayerAlwaysBlue(t *testing.T) {
	res, err := Balance(roster(10, 50, 20, 40))
	require.NoError(t, err)
	assert.Equal(t, "p0", res.Blue[0].Ref)
	assert.Equal(t, []string{"p0", "p1"}, refs(res.Blue))
	assert.Equal(t, 0.0, res.Difference)
}

func TestBalanceTieBreakKeepsFirstFound(t *testing.T) {
	// {p0,p1} and {p0,p2} both give difference 0; the first in
	// lexicographic order wins.
	res, err := Balance(roster(5, 5, 5, 5))
	require.NoError(t, err)
	assert.Equal(t, []string{"p0", "p1"}, refs(res.Blue))
	assert.Equal(t, []string{"p2", "p3"}, refs(res.Red))
}

func TestBalanceHeuristicForTen(t *testing.T) {
	in := roster(90, 80, 70, 60, 50, 40, 30, 20, 10, 5)
	res, err := Balance(in)
	require.NoError(t, err)
	assertPartition(t, in, res)
	assert.False(t, res.Exhaustive)
	// the total is odd, so the difference can never reach 0
	assert.LessOrEqual(t, res.Difference, 15.0)
}

func TestBalanceHeuristicImprovesOnDraft(t *testing.T) {
	// the plain draft gives blue 100+50+48+46+1=245 vs red 99+49+47+45+0=240
	in := roster(100, 99, 50, 49, 48, 47, 46, 45, 1, 0)
	res, err := Balance(in)
	require.NoError(t, err)
	assertPartition(t, in, res)
	assert.LessOrEqual(t, res.Difference, 1.0+1e-9)
}

func TestBalanceDeterministic(t *testing.T) {
	in := roster(33.1, 72.4, 51.9, 40.2, 66.6, 12.5, 88.8, 47.3, 59.0, 21.7)
	first, err := Balance(in)
	require.NoError(t, err)
	for i := 0; i < 5; i++ {
		again, err := Balance(in)
		require.NoError(t, err)
		assert.Equal(t, first, again)
	}
}

func TestBalanceInvalidInput(t *testing.T) {
	tests := []struct {
		name string
		in   []Candidate
	}{
		{"too few", roster(1, 2)},
		{"odd", roster(1, 2, 3, 4, 5)},
		{"too many", roster(1, 2, 3, 4, 5, 6, 7, 8, 9, 10, 11, 12)},
		{"nan score", roster(1, 2, math.NaN(), 4)},
		{"inf score", roster(1, 2, math.Inf(1), 4)},
		{"negative score", roster(1, -2, 3, 4)},
		{"duplicate", []Candidate{{"a", 1}, {"a", 2}, {"b", 3}, {"c", 4}}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Balance(tt.in)
			var inputErr *InvalidInputError
			require.True(t, errors.As(err, &inputErr), "got %v", err)
		})
	}
}

func TestQuality(t *testing.T) {
	th := DefaultThresholds()
	mk := func(diff float64) Result {
		return Result{Blue: make([]Candidate, 5), Red: make([]Candidate, 5), Difference: diff}
	}
	assert.Equal(t, QualityExcellent, th.Quality(mk(10)))
	assert.Equal(t, QualityGood, th.Quality(mk(25)))
	assert.Equal(t, QualityFair, th.Quality(mk(50)))
	assert.Equal(t, QualityPoor, th.Quality(mk(50.5)))
}

func TestThresholdsValidate(t *testing.T) {
	tests := []struct {
		name string
		th   Thresholds
		ok   bool
	}{
		{"defaults", DefaultThresholds(), true},
		{"all zero", Thresholds{}, true},
		{"equal bounds", Thresholds{Excellent: 3, Good: 3, Fair: 3}, true},
		{"negative", Thresholds{Excellent: -1, Good: 5, Fair: 10}, false},
		{"not a number", Thresholds{Excellent: 2, Good: math.NaN(), Fair: 10}, false},
		{"excellent above good", Thresholds{Excellent: 6, Good: 5, Fair: 10}, false},
		{"good above fair", Thresholds{Excellent: 2, Good: 12, Fair: 10}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.th.Validate()
			if tt.ok {
				assert.NoError(t, err)
			} else {
				assert.Error(t, err)
			}
		})
	}
}

func TestCandidatesUseRatingEngine(t *testing.T) {
	engine := rating.MustEngine(rating.DefaultConfig())
	profiles := []domain.Profile{
		{Ref: "a", Rating: 1000, RankTierWeight: 11},
		{Ref: "b", Rating: 1200, RankTierWeight: 15, Wins: 3, Losses: 1},
	}
	got := Candidates(engine, profiles)
	require.Len(t, got, 2)
	assert.Equal(t, "a", got[0].Ref)
	assert.Equal(t, engine.BalanceScore(1000, 11, 0, 0), got[0].Score)
	assert.Equal(t, engine.BalanceScore(1200, 15, 3, 1), got[1].Score)
}
