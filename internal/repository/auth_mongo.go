package repo

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"

	"metasquares/internal/adapters"
	"metasquares/internal/domain/user"
	errs "metasquares/internal/errors"
	"metasquares/internal/random"
)

type MongoUserStorage struct {
	adapter *adapters.AdapterMongo
}

func NewMongoUserStorage(adapter *adapters.AdapterMongo) *MongoUserStorage {
	return &MongoUserStorage{adapter: adapter}
}

func (m MongoUserStorage) CheckExists(username string) bool {
	_, ok := m.GetUser(username)
	return ok
}

func (m MongoUserStorage) GetUser(username string) (user.User, bool) {
	collection := m.adapter.Database.Collection("users")
	filter := bson.D{{Key: "username", Value: username}}

	var result user.User
	err := collection.FindOne(context.TODO(), filter).Decode(&result)
	if err != nil {
		if !errors.Is(err, mongo.ErrNoDocuments) {
			slog.Error(err.Error())
		}
		return user.User{}, false
	}
	return result, true
}

func (m MongoUserStorage) GetUserByID(id string) (user.User, bool) {
	collection := m.adapter.Database.Collection("users")
	filter := bson.D{{Key: "_id", Value: id}}

	var result user.User
	err := collection.FindOne(context.TODO(), filter).Decode(&result)
	if err != nil {
		if !errors.Is(err, mongo.ErrNoDocuments) {
			slog.Error(err.Error())
		}
		return user.User{}, false
	}
	return result, true
}

func (m MongoUserStorage) CreateUser(username, email, password string) (user.User, error) {
	_, found := m.GetUser(username)
	if found {
		return user.User{}, errs.ErrUserExists
	}
	collection := m.adapter.Database.Collection("users")
	salt := random.RandString(16)
	newUser := user.User{
		ID:           uuid.New().String(),
		Username:     username,
		Email:        email,
		CreatedAt:    time.Now(),
		UpdatedAt:    time.Now(),
		PasswordHash: HashPassword(password, salt),
		PasswordSalt: salt,
	}
	_, err := collection.InsertOne(context.TODO(), newUser)
	if err != nil {
		slog.Error(err.Error())
		return user.User{}, errs.ErrInternal
	}
	return newUser, nil
}

// AddGameResult обновляет счётчики побед/поражений/ничьих пользователя.
func (m MongoUserStorage) AddGameResult(userID string, wins, losses, draws int) error {
	collection := m.adapter.Database.Collection("users")
	filter := bson.M{"_id": userID}
	update := bson.M{
		"$inc": bson.M{
			"statistic.wins":   wins,
			"statistic.losses": losses,
			"statistic.draws":  draws,
		},
		"$set": bson.M{"updated_at": time.Now()},
	}
	_, err := collection.UpdateOne(context.TODO(), filter, update)
	if err != nil {
		slog.Error(err.Error())
	}
	return err
}

// HashPassword derives the stored hash from a password and its salt.
func HashPassword(password, salt string) string {
	sum := sha256.Sum256([]byte(salt + password))
	return hex.EncodeToString(sum[:])
}
