// Package balancer splits an even roster of 4 to 10 players into two
// equal-size sides with minimal balance-score difference. Rosters of up to
// ExhaustiveLimit players are searched exhaustively; larger rosters use a
// draft followed by swap refinement.
package balancer

import (
	"fmt"
	"math"
	"sort"
)

const (
	MinPlayers      = 4
	MaxPlayers      = 10
	ExhaustiveLimit = 8

	// MaxSwapIterations bounds the refinement pass of the heuristic.
	MaxSwapIterations = 64
)

type Candidate struct {
	Ref   string
	Score float64
}

type Result struct {
	Blue       []Candidate
	Red        []Candidate
	BlueScore  float64
	RedScore   float64
	Difference float64
	Exhaustive bool
}

// AverageDifference is the difference per player of one side.
func (r Result) AverageDifference() float64 {
	if len(r.Blue) == 0 {
		return 0
	}
	return r.Difference / float64(len(r.Blue))
}

type InvalidInputError struct {
	Reason string
}

func (e *InvalidInputError) Error() string {
	return "invalid balancer input: " + e.Reason
}

func invalid(format string, args ...any) error {
	return &InvalidInputError{Reason: fmt.Sprintf(format, args...)}
}

func validate(players []Candidate) error {
	n := len(players)
	if n < MinPlayers || n > MaxPlayers {
		return invalid("need %d-%d players, got %d", MinPlayers, MaxPlayers, n)
	}
	if n%2 != 0 {
		return invalid("player count %d is odd", n)
	}
	seen := make(map[string]struct{}, n)
	for _, p := range players {
		if math.IsNaN(p.Score) || math.IsInf(p.Score, 0) || p.Score < 0 {
			return invalid("player %q has no computable score", p.Ref)
		}
		if _, dup := seen[p.Ref]; dup {
			return invalid("player %q listed twice", p.Ref)
		}
		seen[p.Ref] = struct{}{}
	}
	return nil
}

// Balance partitions players into two sides of len(players)/2. Among equally
// good partitions the first one found wins, so the result is deterministic
// for a given input order.
func Balance(players []Candidate) (Result, error) {
	if err := validate(players); err != nil {
		return Result{}, err
	}
	if len(players) <= ExhaustiveLimit {
		return exhaustive(players), nil
	}
	return draftAndSwap(players), nil
}

func exhaustive(players []Candidate) Result {
	n := len(players)
	half := n / 2

	var total float64
	for _, p := range players {
		total += p.Score
	}

	// index 0 always plays blue, which skips mirrored partitions
	combo := make([]int, half)
	for i := range combo {
		combo[i] = i
	}

	best := make([]int, half)
	bestDiff := math.Inf(1)
	for {
		var blue float64
		for _, idx := range combo {
			blue += players[idx].Score
		}
		diff := math.Abs(blue - (total - blue))
		if diff < bestDiff {
			bestDiff = diff
			copy(best, combo)
			if diff == 0 {
				break
			}
		}
		if !nextCombination(combo, n) {
			break
		}
	}

	inBlue := make([]bool, n)
	for _, idx := range best {
		inBlue[idx] = true
	}
	res := split(players, inBlue)
	res.Exhaustive = true
	return res
}

// nextCombination advances combo to the next lexicographic k-subset of [0,n)
// that still contains 0. It reports false when the search is exhausted.
func nextCombination(combo []int, n int) bool {
	k := len(combo)
	i := k - 1
	for i >= 1 && combo[i] == n-k+i {
		i--
	}
	if i < 1 {
		return false
	}
	combo[i]++
	for j := i + 1; j < k; j++ {
		combo[j] = combo[j-1] + 1
	}
	return true
}

func draftAndSwap(players []Candidate) Result {
	n := len(players)

	order := make([]int, n)
	for i := range order {
		order[i] = i
	}
	sort.SliceStable(order, func(a, b int) bool {
		return players[order[a]].Score > players[order[b]].Score
	})

	inBlue := make([]bool, n)
	var blue, red float64
	for rank, idx := range order {
		if rank%2 == 0 {
			inBlue[idx] = true
			blue += players[idx].Score
		} else {
			red += players[idx].Score
		}
	}

	for iter := 0; iter < MaxSwapIterations; iter++ {
		current := math.Abs(blue - red)
		if current == 0 {
			break
		}
		bestI, bestJ := -1, -1
		bestDiff := current
		for i := 0; i < n; i++ {
			if !inBlue[i] {
				continue
			}
			for j := 0; j < n; j++ {
				if inBlue[j] {
					continue
				}
				shift := players[j].Score - players[i].Score
				diff := math.Abs((blue + shift) - (red - shift))
				if diff < bestDiff {
					bestDiff, bestI, bestJ = diff, i, j
				}
			}
		}
		if bestI < 0 {
			break
		}
		inBlue[bestI], inBlue[bestJ] = false, true
		shift := players[bestJ].Score - players[bestI].Score
		blue += shift
		red -= shift
	}

	return split(players, inBlue)
}

// split builds the result from a side assignment, keeping input order within
// each side and recomputing the sums from scratch.
func split(players []Candidate, inBlue []bool) Result {
	var res Result
	for i, p := range players {
		if inBlue[i] {
			res.Blue = append(res.Blue, p)
			res.BlueScore += p.Score
		} else {
			res.Red = append(res.Red, p)
			res.RedScore += p.Score
		}
	}
	res.Difference = math.Abs(res.BlueScore - res.RedScore)
	return res
}
