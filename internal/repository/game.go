package repo

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"

	"metasquares/internal/bootstrap"
	"metasquares/internal/domain/game"
	errs "metasquares/internal/errors"
)

const (
	gamesCollection = "games"

	lockTTL      = 5 * time.Second
	lockRetries  = 50
	lockRetryGap = 20 * time.Millisecond
)

type GameRepository struct {
	cfg   bootstrap.Config
	log   *zap.SugaredLogger
	redis *redis.Client
	mongo *mongo.Database
}

func NewGameRepository(cfg bootstrap.Config, log *zap.SugaredLogger, redis *redis.Client, mongo *mongo.Database) *GameRepository {
	return &GameRepository{
		cfg:   cfg,
		log:   log,
		redis: redis,
		mongo: mongo,
	}
}

func (g *GameRepository) GenerateGameKey() string {
	return uuid.New().String()
}

func (g *GameRepository) PutGame(ctx context.Context, gameData game.Game) error {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	collection := g.mongo.Collection(gamesCollection)

	_, err := collection.InsertOne(ctx, gameData)
	if err != nil {
		g.log.Errorf("failed to insert game to database: %v", err)
		return errs.ErrCreateGameFailed
	}

	g.log.Infof("game inserted successfully with key: %s", gameData.GameKey)
	return nil
}

func (g *GameRepository) GetGameByKey(ctx context.Context, gameKey string) (game.Game, error) {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	collection := g.mongo.Collection(gamesCollection)
	filter := bson.M{"game_key": gameKey}

	var found game.Game
	err := collection.FindOne(ctx, filter).Decode(&found)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return game.Game{}, errs.ErrGameNotFound
	} else if err != nil {
		g.log.Error(err)
		return game.Game{}, err
	}

	if found.SchemaVersion != game.SchemaVersion {
		g.log.Errorf("игра %s имеет неизвестную версию схемы %d", gameKey, found.SchemaVersion)
		return game.Game{}, errs.ErrBadGameRecord
	}

	return found, nil
}

// UpdateGame persists the mutated record guarded by the version counter:
// the filter matches only the version the caller read, so a writer that
// lost the race matches nothing and gets ErrVersionConflict.
func (g *GameRepository) UpdateGame(ctx context.Context, gameData *game.Game) error {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	collection := g.mongo.Collection(gamesCollection)

	filter := bson.M{
		"game_key": gameData.GameKey,
		"version":  gameData.Version,
	}

	gameData.Version++
	gameData.UpdatedAt = time.Now()

	res, err := collection.UpdateOne(ctx, filter, bson.M{"$set": gameData})
	if err != nil {
		gameData.Version--
		g.log.Errorf("failed to update game %s: %v", gameData.GameKey, err)
		return err
	}
	if res.MatchedCount == 0 {
		gameData.Version--
		return errs.ErrVersionConflict
	}
	return nil
}

func (g *GameRepository) DeleteGame(ctx context.Context, gameKey string) error {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	collection := g.mongo.Collection(gamesCollection)
	_, err := collection.DeleteOne(ctx, bson.M{"game_key": gameKey})
	if err != nil {
		g.log.Errorf("failed to delete game %s: %v", gameKey, err)
	}
	return err
}

// WithGameLock runs fn while holding a per-game redis lock so that the
// whole validate-then-persist sequence of one move is serialized even
// across server instances (duplicate network retries included).
func (g *GameRepository) WithGameLock(ctx context.Context, gameKey string, fn func() error) error {
	lockKey := "lock:game:" + gameKey
	token := uuid.New().String()

	acquired := false
	for i := 0; i < lockRetries; i++ {
		ok, err := g.redis.SetNX(ctx, lockKey, token, lockTTL).Result()
		if err != nil {
			return fmt.Errorf("game lock: %w", err)
		}
		if ok {
			acquired = true
			break
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(lockRetryGap):
		}
	}
	if !acquired {
		return errs.ErrVersionConflict
	}

	defer func() {
		// снимаем только свой замок
		if val, err := g.redis.Get(ctx, lockKey).Result(); err == nil && val == token {
			g.redis.Del(ctx, lockKey)
		}
	}()

	return fn()
}
