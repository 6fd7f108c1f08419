package game

import (
	"time"

	"metasquares/internal/statuses"
)

// SchemaVersion is stamped into every persisted game document and
// checked on load; documents with an unknown version are rejected
// instead of being half-decoded.
const SchemaVersion = 1

// GamePlayer is one side of a game. Humans carry a UserID; the scripted
// opponent carries a Profile name instead. TargetKey is the bot's
// standing offensive target (canonical square key), persisted so the
// plan survives across turns.
type GamePlayer struct {
	UserID    string   `json:"user_id,omitempty" bson:"user_id,omitempty"`
	Color     Cell     `json:"color" bson:"color"`
	Score     int      `json:"score" bson:"score"`
	Squares   []Square `json:"squares,omitempty" bson:"squares,omitempty"`
	Profile   string   `json:"profile,omitempty" bson:"profile,omitempty"`
	TargetKey string   `json:"target_key,omitempty" bson:"target_key,omitempty"`
}

// IsBot reports whether this side is played by the scripted opponent.
func (p *GamePlayer) IsBot() bool {
	return p.Profile != ""
}

// Game is the authoritative record of one game. Mutated only by the
// game usecase, exactly once per accepted move; frozen once finished.
type Game struct {
	SchemaVersion int           `json:"schema_version" bson:"schema_version"`
	GameKey       string        `json:"game_key" bson:"game_key"`
	Mode          string        `json:"mode" bson:"mode"`
	Players       [2]GamePlayer `json:"players" bson:"players"`
	Board         Board         `json:"board" bson:"board"`
	WhoIsNext     Cell          `json:"who_is_next" bson:"who_is_next"`
	Moves         []int         `json:"moves,omitempty" bson:"moves,omitempty"`
	LastMove      int           `json:"last_move" bson:"last_move"` // -1 до первого хода
	Status        string        `json:"status" bson:"status"`
	EndReason     string        `json:"end_reason,omitempty" bson:"end_reason,omitempty"`
	Victor        Cell          `json:"victor,omitempty" bson:"victor,omitempty"`
	Version       int64         `json:"-" bson:"version"`
	CreatedAt     time.Time     `json:"created_at" bson:"created_at"`
	UpdatedAt     time.Time     `json:"updated_at" bson:"updated_at"`
}

// NewGame creates an empty active record. Black always moves first.
func NewGame(gameKey, mode string, black, white GamePlayer) Game {
	black.Color = Black
	white.Color = White
	now := time.Now()
	return Game{
		SchemaVersion: SchemaVersion,
		GameKey:       gameKey,
		Mode:          mode,
		Players:       [2]GamePlayer{black, white},
		WhoIsNext:     Black,
		LastMove:      -1,
		Status:        statuses.StatusActive,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
}

// Finished reports whether the record is terminal.
func (g *Game) Finished() bool {
	return g.Status == statuses.StatusFinished
}

// PlayerByColor returns the side holding the given color.
func (g *Game) PlayerByColor(color Cell) *GamePlayer {
	for i := range g.Players {
		if g.Players[i].Color == color {
			return &g.Players[i]
		}
	}
	return nil
}

// PlayerByUserID returns the side mapped to the given participant,
// or nil if the user is not in this game.
func (g *Game) PlayerByUserID(userID string) *GamePlayer {
	if userID == "" {
		return nil
	}
	for i := range g.Players {
		if g.Players[i].UserID == userID {
			return &g.Players[i]
		}
	}
	return nil
}

// Opponent returns the other side relative to the given color.
func (g *Game) Opponent(color Cell) *GamePlayer {
	return g.PlayerByColor(color.Opponent())
}
