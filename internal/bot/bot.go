// Package bot is the scripted opponent. It consumes the same geometry
// engine as the server-side move validation, runs entirely on a local
// copy of the game record and never touches shared state; the only thing
// it writes back is its own standing target key on the player record.
package bot

import (
	"math/rand"

	"metasquares/internal/domain/game"
)

// Never is the "unbounded" mistake budget: the bot never deliberately
// forgoes the optimal action on that axis. A budget of 0 always
// mistakes, N > 0 mistakes with probability 1 in N.
const Never = -1

// Profile combines the two independent mistake budgets that parameterize
// a bot's play style.
type Profile struct {
	Name           string
	DefenseMistake int
	OffenseMistake int
}

var profiles = map[string]Profile{
	"ruthless":   {Name: "ruthless", DefenseMistake: Never, OffenseMistake: Never},
	"aggressive": {Name: "aggressive", DefenseMistake: 3, OffenseMistake: 12},
	"cautious":   {Name: "cautious", DefenseMistake: 12, OffenseMistake: 3},
	"balanced":   {Name: "balanced", DefenseMistake: 6, OffenseMistake: 6},
}

// ProfileByName returns the named profile, falling back to balanced.
func ProfileByName(name string) Profile {
	if p, ok := profiles[name]; ok {
		return p
	}
	return profiles["balanced"]
}

// ValidProfile reports whether the name is one of the known profiles.
func ValidProfile(name string) bool {
	_, ok := profiles[name]
	return ok
}

// Engine picks moves for the scripted opponent. The random source is
// injected so tests can pin down every mistake roll and fallback pick.
type Engine struct {
	rng *rand.Rand
}

func NewEngine(rng *rand.Rand) *Engine {
	return &Engine{rng: rng}
}

// ChooseMove returns the cell the bot plays for the given color, or -1
// if the board has no empty cell. The decision is evaluated fresh each
// turn: block the most valuable threat first, otherwise pursue the
// persisted target square, picking a new target only when the old one
// is blocked or won. The persisted target is what keeps the bot from
// oscillating between equally scored squares turn to turn.
func (e *Engine) ChooseMove(g *game.Game, color game.Cell) int {
	board := &g.Board
	empties := board.EmptyCells()
	if len(empties) == 0 {
		return -1
	}

	me := g.PlayerByColor(color)
	profile := ProfileByName(me.Profile)

	// Шаг 1: ищем самую дорогую угрозу соперника.
	if cell, ok := e.bestThreat(board, color.Opponent(), empties); ok && !e.mistake(profile.DefenseMistake) {
		return cell
	}

	if e.mistake(profile.OffenseMistake) {
		return e.randomCell(empties)
	}

	target, ok := validTarget(board, me.TargetKey, color)
	if !ok {
		target, ok = e.pickTarget(board, color)
		if !ok {
			me.TargetKey = ""
			return e.randomCell(empties)
		}
		me.TargetKey = target.Key()
	}

	if cell, ok := bestTargetCorner(board, target, color); ok {
		return cell
	}
	return e.randomCell(empties)
}

// mistake rolls one mistake budget.
func (e *Engine) mistake(budget int) bool {
	switch {
	case budget == Never:
		return false
	case budget <= 0:
		return true
	default:
		return e.rng.Intn(budget) == 0
	}
}

// bestThreat simulates the opponent playing every empty cell and returns
// the cell where it would score the most. ok is false when no placement
// scores at all. Ties go to scan order, which keeps tests reproducible.
func (e *Engine) bestThreat(board *game.Board, opponent game.Cell, empties []int) (cell int, ok bool) {
	best, bestScore := -1, 0
	for _, c := range empties {
		if pts := game.Evaluate(board, c, opponent).Points; pts > bestScore {
			best, bestScore = c, pts
		}
	}
	return best, bestScore > 0
}

// validTarget re-checks the persisted target key: it is dead if any
// corner is opponent-held, achieved if no corner is empty.
func validTarget(board *game.Board, key string, color game.Cell) (game.Square, bool) {
	if key == "" {
		return game.Square{}, false
	}
	corners, err := game.ParseSquareKey(key)
	if err != nil {
		return game.Square{}, false
	}
	opponent := color.Opponent()
	remain := 0
	for _, c := range corners {
		switch board[c] {
		case opponent:
			return game.Square{}, false
		case game.Empty:
			remain++
		}
	}
	if remain == 0 {
		return game.Square{}, false
	}
	return game.NewSquare(corners, color, remain), true
}

// pickTarget selects the new standing target: largest area, then fewest
// remaining empty corners, then lexicographic corner tuple.
func (e *Engine) pickTarget(board *game.Board, color game.Cell) (game.Square, bool) {
	pots := game.PotentialSquares(board, color)
	if len(pots) == 0 {
		return game.Square{}, false
	}
	best := pots[0]
	for _, sq := range pots[1:] {
		if sq.Score > best.Score ||
			(sq.Score == best.Score && sq.Remain < best.Remain) {
			best = sq
		}
		// PotentialSquares is already sorted by corner tuple, so the
		// first square with equal score and remain wins the last tie.
	}
	return best, true
}

// bestTargetCorner plays the empty corner of the target whose immediate
// simulated score is highest. Corner order breaks ties.
func bestTargetCorner(board *game.Board, target game.Square, color game.Cell) (cell int, ok bool) {
	best, bestScore := -1, -1
	for _, c := range target.Corners {
		if board[c] != game.Empty {
			continue
		}
		if pts := game.Evaluate(board, c, color).Points; pts > bestScore {
			best, bestScore = c, pts
		}
	}
	return best, best >= 0
}

func (e *Engine) randomCell(empties []int) int {
	return empties[e.rng.Intn(len(empties))]
}
