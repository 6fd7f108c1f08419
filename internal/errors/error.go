package errors

import "errors"

var (
	ErrUserNotFound    = errors.New("user with provided username was not found")
	ErrWrongPassword   = errors.New("wrong password")
	ErrSessionNotFound = errors.New("session was not found")
	ErrUserExists      = errors.New("user already exists")

	ErrGameNotFound     = errors.New("game not found")
	ErrGameGone         = errors.New("game reclaimed after idle timeout")
	ErrNotParticipant   = errors.New("caller is not a participant of this game")
	ErrNotYourTurn      = errors.New("not your turn")
	ErrGameFinished     = errors.New("game already finished")
	ErrIllegalMove      = errors.New("illegal move shape")
	ErrBadGameRecord    = errors.New("game record has unknown schema")
	ErrVersionConflict  = errors.New("game record was modified concurrently")
	ErrAlreadyInGame    = errors.New("user already has an active game")
	ErrNotBotGame       = errors.New("game has no scripted opponent")
	ErrCreateGameFailed = errors.New("create game failed")
	ErrInternal         = errors.New("internal error")
)
