package match

import (
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	gamedomain "metasquares/internal/domain/game"
	errs "metasquares/internal/errors"
	"metasquares/internal/statuses"
)

type fakeGames struct {
	next  int
	games map[string]gamedomain.Game
}

func (s *fakeGames) GenerateGameKey() string {
	s.next++
	return fmt.Sprintf("game-%d", s.next)
}

func (s *fakeGames) PutGame(_ context.Context, g gamedomain.Game) error {
	s.games[g.GameKey] = g
	return nil
}

func (s *fakeGames) GetGameByKey(_ context.Context, key string) (gamedomain.Game, error) {
	g, ok := s.games[key]
	if !ok {
		return gamedomain.Game{}, errs.ErrGameNotFound
	}
	return g, nil
}

type fakeQueue struct {
	waiting []string
	mapping map[string]string
}

func (q *fakeQueue) PushWaiting(_ context.Context, userID string) error {
	q.waiting = append(q.waiting, userID)
	return nil
}

func (q *fakeQueue) PopWaiting(_ context.Context) (string, error) {
	if len(q.waiting) == 0 {
		return "", nil
	}
	head := q.waiting[0]
	q.waiting = q.waiting[1:]
	return head, nil
}

func (q *fakeQueue) RemoveWaiting(_ context.Context, userID string) error {
	kept := q.waiting[:0]
	for _, id := range q.waiting {
		if id != userID {
			kept = append(kept, id)
		}
	}
	q.waiting = kept
	return nil
}

func (q *fakeQueue) SetUserGame(_ context.Context, userID, gameKey string) error {
	q.mapping[userID] = gameKey
	return nil
}

func (q *fakeQueue) GetUserGame(_ context.Context, userID string) (string, bool, error) {
	key, ok := q.mapping[userID]
	return key, ok, nil
}

func newMatchFixture() (*MatchUseCase, *fakeGames, *fakeQueue) {
	store := &fakeGames{games: map[string]gamedomain.Game{}}
	queue := &fakeQueue{mapping: map[string]string{}}
	return NewMatchUseCase(store, queue, zap.NewNop().Sugar()), store, queue
}

func TestFindGameEnqueuesFirstCaller(t *testing.T) {
	uc, store, queue := newMatchFixture()

	res, err := uc.FindGame(context.Background(), "alice")
	require.NoError(t, err)
	assert.False(t, res.Paired)
	assert.Equal(t, []string{"alice"}, queue.waiting)
	assert.Empty(t, store.games)
}

func TestFindGamePairsWithLongestWaiting(t *testing.T) {
	uc, store, queue := newMatchFixture()

	_, err := uc.FindGame(context.Background(), "alice")
	require.NoError(t, err)

	res, err := uc.FindGame(context.Background(), "bob")
	require.NoError(t, err)
	require.True(t, res.Paired)
	// Ждавший дольше получает чёрных и первый ход.
	assert.False(t, res.IsFirstMover)

	g := store.games[res.GameKey]
	assert.Equal(t, statuses.ModePvp, g.Mode)
	assert.Equal(t, "alice", g.PlayerByColor(gamedomain.Black).UserID)
	assert.Equal(t, "bob", g.PlayerByColor(gamedomain.White).UserID)
	assert.Equal(t, res.GameKey, queue.mapping["alice"])
	assert.Equal(t, res.GameKey, queue.mapping["bob"])
}

func TestFindGameRediscoversExistingPairing(t *testing.T) {
	uc, _, _ := newMatchFixture()

	_, err := uc.FindGame(context.Background(), "alice")
	require.NoError(t, err)
	paired, err := uc.FindGame(context.Background(), "bob")
	require.NoError(t, err)

	// Первый в очереди узнаёт о партии на следующем опросе.
	res, err := uc.FindGame(context.Background(), "alice")
	require.NoError(t, err)
	require.True(t, res.Paired)
	assert.Equal(t, paired.GameKey, res.GameKey)
	assert.True(t, res.IsFirstMover)

	// Повторный запрос уже спаренного — идемпотентен.
	again, err := uc.FindGame(context.Background(), "bob")
	require.NoError(t, err)
	assert.True(t, again.Paired)
	assert.False(t, again.IsFirstMover)
}

func TestFindGameRequeuesOwnTicket(t *testing.T) {
	uc, _, queue := newMatchFixture()

	_, err := uc.FindGame(context.Background(), "alice")
	require.NoError(t, err)
	res, err := uc.FindGame(context.Background(), "alice")
	require.NoError(t, err)
	assert.False(t, res.Paired)
	assert.Equal(t, []string{"alice"}, queue.waiting)
}

func TestSoloGameCreatesBotOpponent(t *testing.T) {
	uc, store, queue := newMatchFixture()

	g, err := uc.SoloGame(context.Background(), "alice", "cautious")
	require.NoError(t, err)
	assert.Equal(t, statuses.ModeBot, g.Mode)
	assert.Equal(t, "alice", g.PlayerByColor(gamedomain.Black).UserID)
	assert.Equal(t, "cautious", g.PlayerByColor(gamedomain.White).Profile)
	assert.Equal(t, gamedomain.Black, g.WhoIsNext)
	assert.Contains(t, store.games, g.GameKey)
	assert.Equal(t, g.GameKey, queue.mapping["alice"])

	// Вторая одновременная игра запрещена.
	_, err = uc.SoloGame(context.Background(), "alice", "cautious")
	assert.ErrorIs(t, err, errs.ErrAlreadyInGame)
}

func TestSoloGameUnknownProfileFallsBack(t *testing.T) {
	uc, _, _ := newMatchFixture()

	g, err := uc.SoloGame(context.Background(), "alice", "no-such-profile")
	require.NoError(t, err)
	assert.Equal(t, "balanced", g.PlayerByColor(gamedomain.White).Profile)
}
