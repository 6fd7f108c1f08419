// Package rating implements the pairwise skill-rating adjustment applied
// once per finished game: a standard logistic (Elo) expectation with a
// fixed learning rate.
package rating

import (
	"math"

	"metasquares/internal/domain/user"
)

const (
	BucketPvp = "pvp"
	BucketBot = "bot"

	// Baseline is the rating a participant starts with in every bucket.
	Baseline = 1500.0

	kFactor = 32.0
)

// Outcome of one game from a single player's perspective.
const (
	OutcomeLoss = 0.0
	OutcomeDraw = 0.5
	OutcomeWin  = 1.0
)

// botBaselines stand in for the scripted opponent's rating: the bot has
// no persisted rating of its own, so each behavior profile gets a fixed
// strength. Tuning values, not a correctness requirement.
var botBaselines = map[string]float64{
	"ruthless":   1800,
	"aggressive": 1550,
	"cautious":   1450,
	"balanced":   1500,
}

// BotBaseline returns the stand-in rating for a bot profile.
func BotBaseline(profile string) float64 {
	if r, ok := botBaselines[profile]; ok {
		return r
	}
	return Baseline
}

// Expected is the logistic win expectation of a player rated `a` against
// an opponent rated `b`.
func Expected(a, b float64) float64 {
	return 1.0 / (1.0 + math.Pow(10, (b-a)/400.0))
}

// Apply adjusts one rating record in place for a game against an
// opponent of the given rating. outcome is OutcomeWin/Draw/Loss.
func Apply(r *user.Rating, opponentRating float64, outcome float64) {
	r.Rating += kFactor * (outcome - Expected(r.Rating, opponentRating))
	r.Games++
	switch outcome {
	case OutcomeWin:
		r.Wins++
	case OutcomeLoss:
		r.Losses++
	default:
		r.Draws++
	}
}
