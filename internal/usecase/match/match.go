package match

import (
	"context"

	"go.uber.org/zap"

	"metasquares/internal/bot"
	"metasquares/internal/domain/game"
	errs "metasquares/internal/errors"
	"metasquares/internal/statuses"
)

// GameCreator is the subset of game storage pairing needs.
type GameCreator interface {
	GenerateGameKey() string
	PutGame(ctx context.Context, g game.Game) error
	GetGameByKey(ctx context.Context, gameKey string) (game.Game, error)
}

// MatchQueue is the durable FIFO queue plus the participant→game
// mapping, both living in the persistence store — never in-process.
type MatchQueue interface {
	PushWaiting(ctx context.Context, userID string) error
	PopWaiting(ctx context.Context) (string, error)
	RemoveWaiting(ctx context.Context, userID string) error
	SetUserGame(ctx context.Context, userID, gameKey string) error
	GetUserGame(ctx context.Context, userID string) (gameKey string, ok bool, err error)
}

// PairResult is what the caller of FindGame gets back: either "keep
// waiting" or a freshly created (or rediscovered) pairing.
type PairResult struct {
	Paired       bool        `json:"paired"`
	GameKey      string      `json:"game_id,omitempty"`
	Board        *game.Board `json:"board,omitempty"`
	IsFirstMover bool        `json:"is_first_mover,omitempty"`
}

type MatchUseCase struct {
	store GameCreator
	queue MatchQueue
	log   *zap.SugaredLogger
}

func NewMatchUseCase(store GameCreator, queue MatchQueue, log *zap.SugaredLogger) *MatchUseCase {
	return &MatchUseCase{store: store, queue: queue, log: log}
}

// FindGame pairs the caller with the participant waiting longest, or
// enqueues them. A caller already mapped to a game gets that pairing
// back — this is how the first mover discovers the match on their next
// poll, and it makes duplicate requests harmless.
func (m *MatchUseCase) FindGame(ctx context.Context, userID string) (PairResult, error) {
	if gameKey, ok, err := m.queue.GetUserGame(ctx, userID); err != nil {
		return PairResult{}, err
	} else if ok {
		g, err := m.store.GetGameByKey(ctx, gameKey)
		if err != nil {
			return PairResult{}, err
		}
		me := g.PlayerByUserID(userID)
		if me == nil {
			return PairResult{}, errs.ErrNotParticipant
		}
		return PairResult{
			Paired:       true,
			GameKey:      g.GameKey,
			Board:        &g.Board,
			IsFirstMover: me.Color == game.Black,
		}, nil
	}

	opponentID, err := m.queue.PopWaiting(ctx)
	if err != nil {
		return PairResult{}, err
	}
	if opponentID == userID {
		// вытащили собственную заявку — возвращаем её в очередь
		if err = m.queue.PushWaiting(ctx, userID); err != nil {
			return PairResult{}, err
		}
		return PairResult{Paired: false}, nil
	}
	if opponentID == "" {
		if err = m.queue.PushWaiting(ctx, userID); err != nil {
			return PairResult{}, err
		}
		m.log.Infof("пользователь %s поставлен в очередь", userID)
		return PairResult{Paired: false}, nil
	}

	// Ожидавший дольше ходит первым.
	gameKey := m.store.GenerateGameKey()
	newGame := game.NewGame(gameKey, statuses.ModePvp,
		game.GamePlayer{UserID: opponentID},
		game.GamePlayer{UserID: userID},
	)
	if err = m.store.PutGame(ctx, newGame); err != nil {
		return PairResult{}, err
	}
	if err = m.queue.SetUserGame(ctx, opponentID, gameKey); err != nil {
		return PairResult{}, err
	}
	if err = m.queue.SetUserGame(ctx, userID, gameKey); err != nil {
		return PairResult{}, err
	}

	m.log.Infof("игра %s создана: %s (чёрные) против %s (белые)", gameKey, opponentID, userID)
	return PairResult{
		Paired:       true,
		GameKey:      gameKey,
		Board:        &newGame.Board,
		IsFirstMover: false,
	}, nil
}

// SoloGame creates an active game against the scripted opponent with the
// requested behavior profile. The human always moves first; the bot has
// no mapping and no persistence dependency of its own.
func (m *MatchUseCase) SoloGame(ctx context.Context, userID, profile string) (game.Game, error) {
	if _, ok, err := m.queue.GetUserGame(ctx, userID); err != nil {
		return game.Game{}, err
	} else if ok {
		return game.Game{}, errs.ErrAlreadyInGame
	}

	if !bot.ValidProfile(profile) {
		profile = "balanced"
	}

	gameKey := m.store.GenerateGameKey()
	newGame := game.NewGame(gameKey, statuses.ModeBot,
		game.GamePlayer{UserID: userID},
		game.GamePlayer{Profile: profile},
	)
	if err := m.store.PutGame(ctx, newGame); err != nil {
		return game.Game{}, err
	}
	if err := m.queue.SetUserGame(ctx, userID, gameKey); err != nil {
		return game.Game{}, err
	}

	m.log.Infof("одиночная игра %s создана для %s против бота (%s)", gameKey, userID, profile)
	return newGame, nil
}
