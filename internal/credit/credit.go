// Package credit implements the scoring and leveling algorithm applied
// whenever an order reaches completed.
package credit

import (
	"github.com/velocevoce/topup/internal/entities"
)

// Level is one row of the credit level table. Limits and amounts are in
// euro cents.
type Level struct {
	Name       string
	MinScore   int
	Limit      int
	Discount   float64
	EntryBonus int
}

// Levels is ordered ascending by MinScore; thresholds are inclusive
// lower bounds.
var Levels = []Level{
	{Name: entities.CreditLevelNovice, MinScore: 0, Limit: 1000, Discount: 1.0},
	{Name: entities.CreditLevelBronze, MinScore: 50, Limit: 1500, Discount: 1.0},
	{Name: entities.CreditLevelSilver, MinScore: 150, Limit: 2500, Discount: 1.0, EntryBonus: 500},
	{Name: entities.CreditLevelGold, MinScore: 300, Limit: 5000, Discount: 0.9},
	{Name: entities.CreditLevelDiamond, MinScore: 500, Limit: 10000, Discount: 0.8, EntryBonus: 1000},
}

const (
	pointsHighTier = 20
	pointsMidTier  = 10
	pointsLowTier  = 5

	highTierAmount = 3000
	midTierAmount  = 1500

	creditOrderBonus = 15
	streakBonus      = 30
	streakEvery      = 3

	milestone100Spent = 10000
	milestone100Bonus = 50
	milestone300Spent = 30000
	milestone300Bonus = 100
)

// State is the subset of customer fields the engine reads and writes.
type State struct {
	Score              int
	TotalSpent         int
	ConsecutiveSuccess int
	Milestone100       bool
	Milestone300       bool
}

// Result describes what a single Apply call changed.
type Result struct {
	Points            int
	OldLevel          Level
	NewLevel          Level
	LeveledUp         bool
	StreakBonus       bool
	Milestone100Fired bool
	Milestone300Fired bool
}

// Apply recomputes the credit state for one newly completed order.
// The score never decreases; both milestones may fire in the same call
// when a single order crosses both spend thresholds.
func Apply(state State, amount int, isCredit bool) (State, Result) {
	result := Result{
		OldLevel: LevelFor(state.Score),
	}

	points := pointsLowTier
	switch {
	case amount >= highTierAmount:
		points = pointsHighTier
	case amount >= midTierAmount:
		points = pointsMidTier
	}

	if isCredit {
		points += creditOrderBonus
	}

	state.ConsecutiveSuccess++
	if state.ConsecutiveSuccess%streakEvery == 0 {
		points += streakBonus
		result.StreakBonus = true
	}

	state.Score += points
	state.TotalSpent += amount
	result.Points = points

	if state.TotalSpent >= milestone100Spent && !state.Milestone100 {
		state.Score += milestone100Bonus
		state.Milestone100 = true
		result.Milestone100Fired = true
	}

	if state.TotalSpent >= milestone300Spent && !state.Milestone300 {
		state.Score += milestone300Bonus
		state.Milestone300 = true
		result.Milestone300Fired = true
	}

	result.NewLevel = LevelFor(state.Score)
	result.LeveledUp = result.NewLevel.Name != result.OldLevel.Name

	return state, result
}

// LevelFor returns the highest level whose threshold the score satisfies.
func LevelFor(score int) Level {
	level := Levels[0]

	for _, candidate := range Levels {
		if score >= candidate.MinScore {
			level = candidate
		}
	}

	return level
}

// NextLevel returns the first level above the score, or false when the
// score is already at the top of the table.
func NextLevel(score int) (Level, bool) {
	for _, candidate := range Levels {
		if score < candidate.MinScore {
			return candidate, true
		}
	}

	return Level{}, false
}
