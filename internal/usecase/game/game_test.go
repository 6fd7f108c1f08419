package game

import (
	"context"
	"math/rand"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"metasquares/internal/bot"
	gamedomain "metasquares/internal/domain/game"
	"metasquares/internal/domain/user"
	errs "metasquares/internal/errors"
	"metasquares/internal/rating"
	"metasquares/internal/statuses"
)

// --- in-memory fakes -------------------------------------------------------

type fakeStore struct {
	games map[string]gamedomain.Game
}

func (s *fakeStore) GetGameByKey(_ context.Context, key string) (gamedomain.Game, error) {
	g, ok := s.games[key]
	if !ok {
		return gamedomain.Game{}, errs.ErrGameNotFound
	}
	return g, nil
}

func (s *fakeStore) UpdateGame(_ context.Context, g *gamedomain.Game) error {
	stored, ok := s.games[g.GameKey]
	if !ok {
		return errs.ErrGameNotFound
	}
	if stored.Version != g.Version {
		return errs.ErrVersionConflict
	}
	g.Version++
	g.UpdatedAt = time.Now()
	s.games[g.GameKey] = *g
	return nil
}

func (s *fakeStore) DeleteGame(_ context.Context, key string) error {
	delete(s.games, key)
	return nil
}

func (s *fakeStore) WithGameLock(_ context.Context, _ string, fn func() error) error {
	return fn()
}

// conflictStore makes every update lose the version race.
type conflictStore struct {
	fakeStore
}

func (s *conflictStore) UpdateGame(_ context.Context, _ *gamedomain.Game) error {
	return errs.ErrVersionConflict
}

type fakeDirectory struct {
	mapping map[string]string
	removed []string
}

func (d *fakeDirectory) GetUserGame(_ context.Context, userID string) (string, bool, error) {
	key, ok := d.mapping[userID]
	return key, ok, nil
}

func (d *fakeDirectory) DeleteUserGame(_ context.Context, userID string) error {
	delete(d.mapping, userID)
	return nil
}

func (d *fakeDirectory) RemoveWaiting(_ context.Context, userID string) error {
	d.removed = append(d.removed, userID)
	return nil
}

type fakeRatings struct {
	recs  map[string]user.Rating
	saves int
}

func ratingKey(userID, bucket string) string { return userID + "/" + bucket }

func (r *fakeRatings) GetOrCreate(_ context.Context, userID, bucket string) (user.Rating, error) {
	if rec, ok := r.recs[ratingKey(userID, bucket)]; ok {
		return rec, nil
	}
	return user.Rating{UserID: userID, Bucket: bucket, Rating: rating.Baseline}, nil
}

func (r *fakeRatings) Save(_ context.Context, rec user.Rating) error {
	r.recs[ratingKey(rec.UserID, rec.Bucket)] = rec
	r.saves++
	return nil
}

type fakeStats struct {
	results map[string]user.UserStatistic
}

func (s *fakeStats) AddGameResult(userID string, wins, losses, draws int) error {
	st := s.results[userID]
	st.Wins += wins
	st.Losses += losses
	st.Draws += draws
	s.results[userID] = st
	return nil
}

// --- fixture ---------------------------------------------------------------

type fixture struct {
	uc      *GameUseCase
	store   *fakeStore
	dir     *fakeDirectory
	ratings *fakeRatings
	stats   *fakeStats
}

func newFixture() *fixture {
	store := &fakeStore{games: map[string]gamedomain.Game{}}
	dir := &fakeDirectory{mapping: map[string]string{}}
	ratings := &fakeRatings{recs: map[string]user.Rating{}}
	stats := &fakeStats{results: map[string]user.UserStatistic{}}
	engine := bot.NewEngine(rand.New(rand.NewSource(1)))
	uc := NewGameUseCase(store, dir, ratings, stats, engine, zap.NewNop().Sugar(), 24*time.Hour, 150)
	return &fixture{uc: uc, store: store, dir: dir, ratings: ratings, stats: stats}
}

func (f *fixture) addPvpGame(key string, mutate func(*gamedomain.Game)) {
	g := gamedomain.NewGame(key, statuses.ModePvp,
		gamedomain.GamePlayer{UserID: "alice"},
		gamedomain.GamePlayer{UserID: "bob"},
	)
	if mutate != nil {
		mutate(&g)
	}
	f.store.games[key] = g
	f.dir.mapping["alice"] = key
	f.dir.mapping["bob"] = key
}

func (f *fixture) addSoloGame(key, profile string, mutate func(*gamedomain.Game)) {
	g := gamedomain.NewGame(key, statuses.ModeBot,
		gamedomain.GamePlayer{UserID: "alice"},
		gamedomain.GamePlayer{Profile: profile},
	)
	if mutate != nil {
		mutate(&g)
	}
	f.store.games[key] = g
	f.dir.mapping["alice"] = key
}

func proposedWith(base gamedomain.Board, cell int, color gamedomain.Cell) gamedomain.Board {
	base[cell] = color
	return base
}

// --- tests -----------------------------------------------------------------

func TestSubmitMoveAppliesAndFlipsTurn(t *testing.T) {
	f := newFixture()
	f.addPvpGame("g1", nil)
	g := f.store.games["g1"]

	ended, err := f.uc.SubmitMove(context.Background(), "alice", "g1", proposedWith(g.Board, 5, gamedomain.Black))
	require.NoError(t, err)
	assert.False(t, ended)

	stored := f.store.games["g1"]
	assert.Equal(t, gamedomain.Black, stored.Board[5])
	assert.Equal(t, gamedomain.White, stored.WhoIsNext)
	assert.Equal(t, []int{5}, stored.Moves)
	assert.Equal(t, 5, stored.LastMove)
	assert.Equal(t, int64(1), stored.Version)
}

func TestSubmitMoveRejectsOutOfTurn(t *testing.T) {
	f := newFixture()
	f.addPvpGame("g1", nil)
	g := f.store.games["g1"]

	_, err := f.uc.SubmitMove(context.Background(), "bob", "g1", proposedWith(g.Board, 5, gamedomain.White))
	assert.ErrorIs(t, err, errs.ErrNotYourTurn)
	assert.Equal(t, gamedomain.Empty, f.store.games["g1"].Board[5])
}

func TestSubmitMoveRejectsBadShapes(t *testing.T) {
	f := newFixture()
	f.addPvpGame("g1", nil)
	g := f.store.games["g1"]

	// Доска без изменений.
	_, err := f.uc.SubmitMove(context.Background(), "alice", "g1", g.Board)
	assert.ErrorIs(t, err, errs.ErrIllegalMove)

	// Две клетки за один ход.
	two := g.Board
	two[5] = gamedomain.Black
	two[6] = gamedomain.Black
	_, err = f.uc.SubmitMove(context.Background(), "alice", "g1", two)
	assert.ErrorIs(t, err, errs.ErrIllegalMove)

	// Метка чужого цвета.
	_, err = f.uc.SubmitMove(context.Background(), "alice", "g1", proposedWith(g.Board, 5, gamedomain.White))
	assert.ErrorIs(t, err, errs.ErrIllegalMove)
}

func TestSubmitMoveRejectsNonParticipant(t *testing.T) {
	f := newFixture()
	f.addPvpGame("g1", nil)
	g := f.store.games["g1"]

	_, err := f.uc.SubmitMove(context.Background(), "eve", "g1", proposedWith(g.Board, 5, gamedomain.Black))
	assert.ErrorIs(t, err, errs.ErrNotParticipant)

	// Участник другой игры — тоже не участник этой.
	f.dir.mapping["eve"] = "other"
	_, err = f.uc.SubmitMove(context.Background(), "eve", "g1", proposedWith(g.Board, 5, gamedomain.Black))
	assert.ErrorIs(t, err, errs.ErrNotParticipant)
}

func TestSubmitMoveScoresCompletedSquare(t *testing.T) {
	f := newFixture()
	f.addPvpGame("g1", func(g *gamedomain.Game) {
		g.Board[0] = gamedomain.Black
		g.Board[1] = gamedomain.Black
		g.Board[8] = gamedomain.Black
	})
	g := f.store.games["g1"]

	ended, err := f.uc.SubmitMove(context.Background(), "alice", "g1", proposedWith(g.Board, 9, gamedomain.Black))
	require.NoError(t, err)
	assert.False(t, ended)

	stored := f.store.games["g1"]
	black := stored.PlayerByColor(gamedomain.Black)
	assert.Equal(t, 4, black.Score)
	require.Len(t, black.Squares, 1)
	assert.Equal(t, [4]int{0, 1, 8, 9}, black.Squares[0].Corners)
}

func TestScoreThresholdEndsGame(t *testing.T) {
	f := newFixture()
	f.addPvpGame("g1", func(g *gamedomain.Game) {
		g.Board[0] = gamedomain.Black
		g.Board[1] = gamedomain.Black
		g.Board[8] = gamedomain.Black
		g.PlayerByColor(gamedomain.Black).Score = 148
	})
	g := f.store.games["g1"]

	ended, err := f.uc.SubmitMove(context.Background(), "alice", "g1", proposedWith(g.Board, 9, gamedomain.Black))
	require.NoError(t, err)
	assert.True(t, ended)

	stored := f.store.games["g1"]
	assert.True(t, stored.Finished())
	assert.Equal(t, statuses.ReasonScoreGoal, stored.EndReason)
	assert.Equal(t, gamedomain.Black, stored.Victor)

	// Рейтинги применены ровно по разу, маппинги сняты.
	assert.Equal(t, 2, f.ratings.saves)
	winner := f.ratings.recs[ratingKey("alice", rating.BucketPvp)]
	loser := f.ratings.recs[ratingKey("bob", rating.BucketPvp)]
	assert.Greater(t, winner.Rating, rating.Baseline)
	assert.Less(t, loser.Rating, rating.Baseline)
	assert.Empty(t, f.dir.mapping)
	assert.Equal(t, 1, f.stats.results["alice"].Wins)
	assert.Equal(t, 1, f.stats.results["bob"].Losses)
}

func fillAllButLast(g *gamedomain.Game, color gamedomain.Cell) {
	for i := 0; i < gamedomain.BoardCells-1; i++ {
		g.Board[i] = color
	}
}

func TestBoardFullTie(t *testing.T) {
	f := newFixture()
	f.addPvpGame("g1", func(g *gamedomain.Game) {
		// Все квадраты через последнюю клетку перекрыты белыми: ход не
		// принесёт очков, счёт останется равным.
		fillAllButLast(g, gamedomain.White)
		g.Players[0].Score = 10
		g.Players[1].Score = 10
	})
	g := f.store.games["g1"]

	ended, err := f.uc.SubmitMove(context.Background(), "alice", "g1", proposedWith(g.Board, 63, gamedomain.Black))
	require.NoError(t, err)
	assert.True(t, ended)

	stored := f.store.games["g1"]
	assert.Equal(t, statuses.ReasonBoardFullTie, stored.EndReason)
	assert.Equal(t, gamedomain.Empty, stored.Victor)

	// Ничья: обе записи с draw.
	assert.Equal(t, 1, f.stats.results["alice"].Draws)
	assert.Equal(t, 1, f.stats.results["bob"].Draws)
}

func TestBoardFullDecided(t *testing.T) {
	f := newFixture()
	f.addPvpGame("g1", func(g *gamedomain.Game) {
		fillAllButLast(g, gamedomain.White)
		g.Players[0].Score = 12
		g.Players[1].Score = 10
	})
	g := f.store.games["g1"]

	ended, err := f.uc.SubmitMove(context.Background(), "alice", "g1", proposedWith(g.Board, 63, gamedomain.Black))
	require.NoError(t, err)
	assert.True(t, ended)

	stored := f.store.games["g1"]
	assert.Equal(t, statuses.ReasonBoardFullDecided, stored.EndReason)
	assert.Equal(t, gamedomain.Black, stored.Victor)
}

func TestMoveOnFinishedGameRejected(t *testing.T) {
	f := newFixture()
	f.addPvpGame("g1", func(g *gamedomain.Game) {
		g.Status = statuses.StatusFinished
		g.EndReason = statuses.ReasonScoreGoal
		g.Victor = gamedomain.White
	})
	g := f.store.games["g1"]

	_, err := f.uc.SubmitMove(context.Background(), "alice", "g1", proposedWith(g.Board, 5, gamedomain.Black))
	assert.ErrorIs(t, err, errs.ErrGameFinished)
}

func TestIdleGameReclaimedOnRead(t *testing.T) {
	f := newFixture()
	f.addPvpGame("g1", func(g *gamedomain.Game) {
		g.UpdatedAt = time.Now().Add(-25 * time.Hour)
	})

	_, err := f.uc.GetState(context.Background(), "alice", "g1")
	assert.ErrorIs(t, err, errs.ErrGameGone)
	assert.NotContains(t, f.store.games, "g1")
	assert.Empty(t, f.dir.mapping)
}

func TestIdleGameReclaimedOnMove(t *testing.T) {
	f := newFixture()
	f.addPvpGame("g1", func(g *gamedomain.Game) {
		g.UpdatedAt = time.Now().Add(-25 * time.Hour)
	})
	g := f.store.games["g1"]

	_, err := f.uc.SubmitMove(context.Background(), "alice", "g1", proposedWith(g.Board, 5, gamedomain.Black))
	assert.ErrorIs(t, err, errs.ErrGameGone)
}

func TestAbandonmentSettlesOnce(t *testing.T) {
	f := newFixture()
	f.addPvpGame("g1", nil)
	delete(f.dir.mapping, "bob") // соперник пропал

	g, err := f.uc.GetState(context.Background(), "alice", "g1")
	require.NoError(t, err)
	assert.True(t, g.Finished())
	assert.Equal(t, statuses.ReasonAbandoned, g.EndReason)
	assert.Equal(t, gamedomain.Black, g.Victor)
	assert.Equal(t, 2, f.ratings.saves)

	// Повторное чтение видит уже завершённую запись и ничего не доначисляет.
	again, err := f.uc.GetState(context.Background(), "alice", "g1")
	require.NoError(t, err)
	assert.True(t, again.Finished())
	assert.Equal(t, 2, f.ratings.saves)
}

func TestAbandonmentNotTriggeredWhileBothMapped(t *testing.T) {
	f := newFixture()
	f.addPvpGame("g1", nil)

	g, err := f.uc.GetState(context.Background(), "alice", "g1")
	require.NoError(t, err)
	assert.False(t, g.Finished())
	assert.Zero(t, f.ratings.saves)
}

func TestAbandonmentLosingRaceRereads(t *testing.T) {
	store := &conflictStore{fakeStore{games: map[string]gamedomain.Game{}}}
	dir := &fakeDirectory{mapping: map[string]string{}}
	ratings := &fakeRatings{recs: map[string]user.Rating{}}
	uc := NewGameUseCase(store, dir, ratings, nil, bot.NewEngine(rand.New(rand.NewSource(1))),
		zap.NewNop().Sugar(), 24*time.Hour, 150)

	g := gamedomain.NewGame("g1", statuses.ModePvp,
		gamedomain.GamePlayer{UserID: "alice"},
		gamedomain.GamePlayer{UserID: "bob"},
	)
	store.games["g1"] = g
	dir.mapping["alice"] = "g1"

	got, err := uc.GetState(context.Background(), "alice", "g1")
	require.NoError(t, err)
	// Проигравшая CAS сторона возвращает запись из хранилища и не
	// трогает рейтинги.
	assert.False(t, got.Finished())
	assert.Zero(t, ratings.saves)
}

func TestLeaveFinishesInFavorOfOpponent(t *testing.T) {
	f := newFixture()
	f.addPvpGame("g1", nil)

	err := f.uc.Leave(context.Background(), "alice")
	require.NoError(t, err)

	stored := f.store.games["g1"]
	assert.True(t, stored.Finished())
	assert.Equal(t, statuses.ReasonAbandoned, stored.EndReason)
	assert.Equal(t, gamedomain.White, stored.Victor)
	assert.Equal(t, 2, f.ratings.saves)
	assert.Empty(t, f.dir.mapping)
	assert.Contains(t, f.dir.removed, "alice")
}

func TestLeaveWithoutGameIsNoop(t *testing.T) {
	f := newFixture()
	err := f.uc.Leave(context.Background(), "alice")
	assert.NoError(t, err)
	assert.Zero(t, f.ratings.saves)
}

func TestSubmitBotMoveTakesTurn(t *testing.T) {
	f := newFixture()
	f.addSoloGame("s1", "ruthless", nil)
	g := f.store.games["s1"]

	// Человек ходит первым, после его хода очередь бота.
	_, err := f.uc.SubmitMove(context.Background(), "alice", "s1", proposedWith(g.Board, 0, gamedomain.Black))
	require.NoError(t, err)

	cell, ended, err := f.uc.SubmitBotMove(context.Background(), "alice", "s1")
	require.NoError(t, err)
	assert.False(t, ended)
	require.GreaterOrEqual(t, cell, 0)
	require.Less(t, cell, gamedomain.BoardCells)

	stored := f.store.games["s1"]
	assert.Equal(t, gamedomain.White, stored.Board[cell])
	assert.Equal(t, gamedomain.Black, stored.WhoIsNext)
	assert.Equal(t, cell, stored.LastMove)
	assert.Len(t, stored.Moves, 2)
}

func TestSubmitBotMoveRejectsWhenHumansTurn(t *testing.T) {
	f := newFixture()
	f.addSoloGame("s1", "ruthless", nil)

	_, _, err := f.uc.SubmitBotMove(context.Background(), "alice", "s1")
	assert.ErrorIs(t, err, errs.ErrNotYourTurn)
}

func TestSubmitBotMoveRejectsPvpGame(t *testing.T) {
	f := newFixture()
	f.addPvpGame("g1", nil)

	_, _, err := f.uc.SubmitBotMove(context.Background(), "alice", "g1")
	assert.ErrorIs(t, err, errs.ErrNotBotGame)
}

func TestSoloGameRatingUsesBotBucket(t *testing.T) {
	f := newFixture()
	f.addSoloGame("s1", "ruthless", func(g *gamedomain.Game) {
		g.Board[0] = gamedomain.Black
		g.Board[1] = gamedomain.Black
		g.Board[8] = gamedomain.Black
		g.PlayerByColor(gamedomain.Black).Score = 148
	})
	g := f.store.games["s1"]

	ended, err := f.uc.SubmitMove(context.Background(), "alice", "s1", proposedWith(g.Board, 9, gamedomain.Black))
	require.NoError(t, err)
	assert.True(t, ended)

	// Одна запись в бот-бакете; победа над сильным профилем даёт
	// больше половины K.
	assert.Equal(t, 1, f.ratings.saves)
	rec := f.ratings.recs[ratingKey("alice", rating.BucketBot)]
	assert.Greater(t, rec.Rating, rating.Baseline+16)
	assert.Equal(t, 1, rec.Wins)
}
