package game

import (
	"context"
	"time"

	"go.uber.org/zap"

	"metasquares/internal/bot"
	"metasquares/internal/domain/game"
	"metasquares/internal/domain/user"
	errs "metasquares/internal/errors"
	"metasquares/internal/rating"
	"metasquares/internal/statuses"
)

// GameStore is the durable storage of game records. UpdateGame must be
// version-guarded (reject stale writers); WithGameLock must serialize
// the callback per game key.
type GameStore interface {
	GetGameByKey(ctx context.Context, gameKey string) (game.Game, error)
	UpdateGame(ctx context.Context, g *game.Game) error
	DeleteGame(ctx context.Context, gameKey string) error
	WithGameLock(ctx context.Context, gameKey string, fn func() error) error
}

// PlayerDirectory is the participant→game mapping. A missing mapping for
// one side of an active game is how abandonment is detected.
type PlayerDirectory interface {
	GetUserGame(ctx context.Context, userID string) (gameKey string, ok bool, err error)
	DeleteUserGame(ctx context.Context, userID string) error
	RemoveWaiting(ctx context.Context, userID string) error
}

// RatingStore keeps the per-bucket rating records.
type RatingStore interface {
	GetOrCreate(ctx context.Context, userID, bucket string) (user.Rating, error)
	Save(ctx context.Context, rec user.Rating) error
}

// UserStats mirrors win/loss/draw counters onto the user profile.
type UserStats interface {
	AddGameResult(userID string, wins, losses, draws int) error
}

type GameUseCase struct {
	store   GameStore
	players PlayerDirectory
	ratings RatingStore
	stats   UserStats
	bot     *bot.Engine
	log     *zap.SugaredLogger

	idleTTL   time.Duration
	scoreGoal int
}

func NewGameUseCase(
	store GameStore,
	players PlayerDirectory,
	ratings RatingStore,
	stats UserStats,
	botEngine *bot.Engine,
	log *zap.SugaredLogger,
	idleTTL time.Duration,
	scoreGoal int,
) *GameUseCase {
	return &GameUseCase{
		store:     store,
		players:   players,
		ratings:   ratings,
		stats:     stats,
		bot:       botEngine,
		log:       log,
		idleTTL:   idleTTL,
		scoreGoal: scoreGoal,
	}
}

// SubmitMove validates and applies one human move. The caller sends the
// full proposed board; the authoritative score is always re-derived here
// from the pre-move board, никакие подсчёты клиента не принимаются на
// веру. The whole validate-then-persist sequence runs under the per-game
// lock, and the persist itself is version-guarded.
func (u *GameUseCase) SubmitMove(ctx context.Context, userID, gameKey string, proposed game.Board) (ended bool, err error) {
	if err = u.checkParticipant(ctx, userID, gameKey); err != nil {
		return false, err
	}

	err = u.store.WithGameLock(ctx, gameKey, func() error {
		g, err := u.loadAlive(ctx, gameKey)
		if err != nil {
			return err
		}

		mover := g.PlayerByUserID(userID)
		if mover == nil {
			return errs.ErrNotParticipant
		}
		if g.Finished() {
			return errs.ErrGameFinished
		}
		if g.WhoIsNext != mover.Color {
			return errs.ErrNotYourTurn
		}

		cell, ok := game.DiffOneCell(&g.Board, &proposed, mover.Color)
		if !ok {
			return errs.ErrIllegalMove
		}

		u.applyMove(&g, cell, mover.Color)

		if err = u.store.UpdateGame(ctx, &g); err != nil {
			return err
		}
		if g.Finished() {
			u.settleFinishedGame(ctx, &g)
		}
		ended = g.Finished()
		return nil
	})
	return ended, err
}

// SubmitBotMove makes the scripted opponent play its turn in the
// caller's solo game. The bot picks the move on the in-memory copy; the
// move then goes through the same mutation path as a human move.
func (u *GameUseCase) SubmitBotMove(ctx context.Context, userID, gameKey string) (cell int, ended bool, err error) {
	if err = u.checkParticipant(ctx, userID, gameKey); err != nil {
		return -1, false, err
	}

	err = u.store.WithGameLock(ctx, gameKey, func() error {
		g, err := u.loadAlive(ctx, gameKey)
		if err != nil {
			return err
		}
		if g.Finished() {
			return errs.ErrGameFinished
		}

		var botSide *game.GamePlayer
		for i := range g.Players {
			if g.Players[i].IsBot() {
				botSide = &g.Players[i]
			}
		}
		if botSide == nil {
			return errs.ErrNotBotGame
		}
		if g.WhoIsNext != botSide.Color {
			return errs.ErrNotYourTurn
		}

		cell = u.bot.ChooseMove(&g, botSide.Color)
		if cell < 0 {
			return errs.ErrIllegalMove
		}

		u.applyMove(&g, cell, botSide.Color)

		if err = u.store.UpdateGame(ctx, &g); err != nil {
			return err
		}
		if g.Finished() {
			u.settleFinishedGame(ctx, &g)
		}
		ended = g.Finished()
		return nil
	})
	return cell, ended, err
}

// GetState returns the current record. Reads go through idle reclamation
// first; an active game whose opponent lost their mapping is marked
// abandoned in favor of the reader. The terminal CAS is the idempotency
// guard: of two concurrent readers observing the same abandonment only
// one update matches, so the rating delta is applied at most once.
func (u *GameUseCase) GetState(ctx context.Context, userID, gameKey string) (game.Game, error) {
	g, err := u.loadAlive(ctx, gameKey)
	if err != nil {
		return game.Game{}, err
	}

	viewer := g.PlayerByUserID(userID)
	if g.Finished() || viewer == nil {
		return g, nil
	}

	opponent := g.Opponent(viewer.Color)
	if opponent == nil || opponent.IsBot() {
		return g, nil
	}

	_, oppMapped, err := u.players.GetUserGame(ctx, opponent.UserID)
	if err != nil {
		u.log.Errorf("abandonment check for %s failed: %v", gameKey, err)
		return g, nil
	}
	myKey, myMapped, err := u.players.GetUserGame(ctx, userID)
	if err != nil || !myMapped || myKey != gameKey || oppMapped {
		return g, nil
	}

	u.finish(&g, statuses.ReasonAbandoned, viewer.Color)
	if err = u.store.UpdateGame(ctx, &g); err != nil {
		// проигравшая CAS сторона просто перечитывает запись
		u.log.Infof("abandonment transition for %s lost the race: %v", gameKey, err)
		return u.store.GetGameByKey(ctx, gameKey)
	}
	u.settleFinishedGame(ctx, &g)
	return g, nil
}

// Leave marks the caller's active game abandoned in favor of the
// opponent and drops the caller's mapping and queue entries.
func (u *GameUseCase) Leave(ctx context.Context, userID string) error {
	if err := u.players.RemoveWaiting(ctx, userID); err != nil {
		u.log.Errorf("failed to drop %s from the queue: %v", userID, err)
	}

	gameKey, ok, err := u.players.GetUserGame(ctx, userID)
	if err != nil {
		return err
	}
	if !ok {
		return nil
	}

	err = u.store.WithGameLock(ctx, gameKey, func() error {
		g, err := u.loadAlive(ctx, gameKey)
		if err != nil {
			return err
		}
		if g.Finished() {
			return nil
		}
		leaver := g.PlayerByUserID(userID)
		if leaver == nil {
			return errs.ErrNotParticipant
		}

		u.finish(&g, statuses.ReasonAbandoned, leaver.Color.Opponent())
		if err = u.store.UpdateGame(ctx, &g); err != nil {
			return err
		}
		u.settleFinishedGame(ctx, &g)
		return nil
	})
	if err != nil {
		return err
	}

	return u.players.DeleteUserGame(ctx, userID)
}

// checkParticipant confirms the caller is mapped to that exact game.
func (u *GameUseCase) checkParticipant(ctx context.Context, userID, gameKey string) error {
	mapped, ok, err := u.players.GetUserGame(ctx, userID)
	if err != nil {
		return err
	}
	if !ok || mapped != gameKey {
		return errs.ErrNotParticipant
	}
	return nil
}

// loadAlive loads a record applying lazy idle reclamation: a record
// untouched longer than the idle ceiling is purged together with both
// participant mappings and reported gone.
func (u *GameUseCase) loadAlive(ctx context.Context, gameKey string) (game.Game, error) {
	g, err := u.store.GetGameByKey(ctx, gameKey)
	if err != nil {
		return game.Game{}, err
	}

	if u.idleTTL > 0 && time.Since(g.UpdatedAt) > u.idleTTL {
		u.log.Infof("игра %s простояла дольше %s, удаляем", gameKey, u.idleTTL)
		if err := u.store.DeleteGame(ctx, gameKey); err != nil {
			return game.Game{}, err
		}
		u.releasePlayers(ctx, &g)
		return game.Game{}, errs.ErrGameGone
	}

	return g, nil
}

// applyMove is the single mutation point of an accepted move: score is
// re-derived by the geometry engine from the authoritative board, the
// cell is applied, history extended and the turn flipped, then terminal
// conditions are evaluated — score threshold first, board-full second.
func (u *GameUseCase) applyMove(g *game.Game, cell int, color game.Cell) {
	outcome := game.Evaluate(&g.Board, cell, color)

	g.Board[cell] = color
	g.Moves = append(g.Moves, cell)
	g.LastMove = cell

	mover := g.PlayerByColor(color)
	for _, sq := range outcome.Completed {
		if game.ContainsSquare(mover.Squares, sq) {
			continue
		}
		mover.Squares = append(mover.Squares, sq)
		mover.Score += sq.Score
	}

	g.WhoIsNext = color.Opponent()

	if mover.Score >= u.scoreGoal {
		u.finish(g, statuses.ReasonScoreGoal, color)
		return
	}
	if g.Board.Full() {
		a, b := g.Players[0].Score, g.Players[1].Score
		switch {
		case a == b:
			u.finish(g, statuses.ReasonBoardFullTie, game.Empty)
		case a > b:
			u.finish(g, statuses.ReasonBoardFullDecided, g.Players[0].Color)
		default:
			u.finish(g, statuses.ReasonBoardFullDecided, g.Players[1].Color)
		}
	}
}

func (u *GameUseCase) finish(g *game.Game, reason string, victor game.Cell) {
	g.Status = statuses.StatusFinished
	g.EndReason = reason
	g.Victor = victor
}

// settleFinishedGame runs the post-terminal bookkeeping: rating deltas
// and mapping cleanup. Called only by the writer that performed the
// terminal transition, so the delta is applied at most once per game.
// Failures here are logged and never roll back the finished game.
func (u *GameUseCase) settleFinishedGame(ctx context.Context, g *game.Game) {
	u.updateRatings(ctx, g)
	u.releasePlayers(ctx, g)
}

func (u *GameUseCase) updateRatings(ctx context.Context, g *game.Game) {
	switch g.Mode {
	case statuses.ModeBot:
		var human, botSide *game.GamePlayer
		for i := range g.Players {
			if g.Players[i].IsBot() {
				botSide = &g.Players[i]
			} else {
				human = &g.Players[i]
			}
		}
		if human == nil || botSide == nil {
			return
		}
		rec, err := u.ratings.GetOrCreate(ctx, human.UserID, rating.BucketBot)
		if err != nil {
			u.log.Errorf("rating lookup failed for %s: %v", human.UserID, err)
			return
		}
		outcome := u.outcomeFor(g, human.Color)
		rating.Apply(&rec, rating.BotBaseline(botSide.Profile), outcome)
		if err = u.ratings.Save(ctx, rec); err != nil {
			u.log.Errorf("rating save failed for %s: %v", human.UserID, err)
		}
		u.recordStat(human.UserID, outcome)

	case statuses.ModePvp:
		first, second := &g.Players[0], &g.Players[1]
		recA, errA := u.ratings.GetOrCreate(ctx, first.UserID, rating.BucketPvp)
		recB, errB := u.ratings.GetOrCreate(ctx, second.UserID, rating.BucketPvp)
		if errA != nil || errB != nil {
			u.log.Errorf("rating lookup failed for game %s: %v %v", g.GameKey, errA, errB)
			return
		}
		outcomeA := u.outcomeFor(g, first.Color)
		// обе дельты считаются от рейтингов до обновления
		ratingA, ratingB := recA.Rating, recB.Rating
		rating.Apply(&recA, ratingB, outcomeA)
		rating.Apply(&recB, ratingA, rating.OutcomeWin-outcomeA)
		if err := u.ratings.Save(ctx, recA); err != nil {
			u.log.Errorf("rating save failed for %s: %v", first.UserID, err)
		}
		if err := u.ratings.Save(ctx, recB); err != nil {
			u.log.Errorf("rating save failed for %s: %v", second.UserID, err)
		}
		u.recordStat(first.UserID, outcomeA)
		u.recordStat(second.UserID, rating.OutcomeWin-outcomeA)
	}
}

func (u *GameUseCase) outcomeFor(g *game.Game, color game.Cell) float64 {
	switch g.Victor {
	case game.Empty:
		return rating.OutcomeDraw
	case color:
		return rating.OutcomeWin
	}
	return rating.OutcomeLoss
}

func (u *GameUseCase) recordStat(userID string, outcome float64) {
	if u.stats == nil || userID == "" {
		return
	}
	var wins, losses, draws int
	switch outcome {
	case rating.OutcomeWin:
		wins = 1
	case rating.OutcomeLoss:
		losses = 1
	default:
		draws = 1
	}
	if err := u.stats.AddGameResult(userID, wins, losses, draws); err != nil {
		u.log.Errorf("failed to update statistic for %s: %v", userID, err)
	}
}

// releasePlayers drops both human mappings once a game is finished so
// the participants can queue again.
func (u *GameUseCase) releasePlayers(ctx context.Context, g *game.Game) {
	for i := range g.Players {
		if g.Players[i].UserID == "" {
			continue
		}
		if err := u.players.DeleteUserGame(ctx, g.Players[i].UserID); err != nil {
			u.log.Errorf("failed to unmap %s: %v", g.Players[i].UserID, err)
		}
	}
}
