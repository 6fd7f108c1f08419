package repo

import (
	"context"
	"errors"

	"github.com/redis/go-redis/v9"
)

// MatchmakingRepository keeps the pairing queue and the participant→game
// mapping in redis, so any stateless server instance can serve any
// request. No in-process queue state.
type MatchmakingRepository struct {
	client *redis.Client
}

const (
	matchQueueKey  = "matchmaking:queue"
	userGamePrefix = "usergame:"
)

func NewMatchmakingRepository(client *redis.Client) *MatchmakingRepository {
	return &MatchmakingRepository{client: client}
}

// PushWaiting enqueues a participant at the tail of the FIFO queue.
func (m *MatchmakingRepository) PushWaiting(ctx context.Context, userID string) error {
	return m.client.RPush(ctx, matchQueueKey, userID).Err()
}

// PopWaiting dequeues the participant waiting longest. Returns "" when
// the queue is empty.
func (m *MatchmakingRepository) PopWaiting(ctx context.Context) (string, error) {
	v, err := m.client.LPop(ctx, matchQueueKey).Result()
	if errors.Is(err, redis.Nil) {
		return "", nil
	}
	if err != nil {
		return "", err
	}
	return v, nil
}

// RemoveWaiting drops every queue entry of the participant.
func (m *MatchmakingRepository) RemoveWaiting(ctx context.Context, userID string) error {
	return m.client.LRem(ctx, matchQueueKey, 0, userID).Err()
}

// SetUserGame maps a participant to their active game.
func (m *MatchmakingRepository) SetUserGame(ctx context.Context, userID, gameKey string) error {
	return m.client.Set(ctx, userGamePrefix+userID, gameKey, 0).Err()
}

// GetUserGame returns the participant's active game, ok=false when the
// mapping does not exist (the participant left or was reclaimed).
func (m *MatchmakingRepository) GetUserGame(ctx context.Context, userID string) (gameKey string, ok bool, err error) {
	v, err := m.client.Get(ctx, userGamePrefix+userID).Result()
	if errors.Is(err, redis.Nil) {
		return "", false, nil
	}
	if err != nil {
		return "", false, err
	}
	return v, true, nil
}

func (m *MatchmakingRepository) DeleteUserGame(ctx context.Context, userID string) error {
	return m.client.Del(ctx, userGamePrefix+userID).Err()
}
