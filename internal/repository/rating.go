package repo

import (
	"context"
	"errors"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.uber.org/zap"

	"metasquares/internal/domain/user"
	"metasquares/internal/rating"
)

const ratingsCollection = "ratings"

type RatingRepository struct {
	log   *zap.SugaredLogger
	mongo *mongo.Database
}

func NewRatingRepository(log *zap.SugaredLogger, mongo *mongo.Database) *RatingRepository {
	return &RatingRepository{log: log, mongo: mongo}
}

// GetOrCreate returns the rating record for (user, bucket), creating it
// lazily at the fixed baseline on first use.
func (r *RatingRepository) GetOrCreate(ctx context.Context, userID, bucket string) (user.Rating, error) {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	collection := r.mongo.Collection(ratingsCollection)
	filter := bson.M{"user_id": userID, "bucket": bucket}

	var found user.Rating
	err := collection.FindOne(ctx, filter).Decode(&found)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return user.Rating{
			UserID: userID,
			Bucket: bucket,
			Rating: rating.Baseline,
		}, nil
	} else if err != nil {
		r.log.Error(err)
		return user.Rating{}, err
	}
	return found, nil
}

// Save upserts the rating record keyed by (user, bucket).
func (r *RatingRepository) Save(ctx context.Context, rec user.Rating) error {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	collection := r.mongo.Collection(ratingsCollection)
	filter := bson.M{"user_id": rec.UserID, "bucket": rec.Bucket}
	opts := options.Update().SetUpsert(true)

	_, err := collection.UpdateOne(ctx, filter, bson.M{"$set": rec}, opts)
	if err != nil {
		r.log.Errorf("failed to save rating for %s/%s: %v", rec.UserID, rec.Bucket, err)
	}
	return err
}

// GetAllByUser returns every bucket of one participant.
func (r *RatingRepository) GetAllByUser(ctx context.Context, userID string) ([]user.Rating, error) {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	collection := r.mongo.Collection(ratingsCollection)
	cursor, err := collection.Find(ctx, bson.M{"user_id": userID})
	if err != nil {
		r.log.Error(err)
		return nil, err
	}
	defer cursor.Close(ctx)

	var result []user.Rating
	for cursor.Next(ctx) {
		var rec user.Rating
		if err = cursor.Decode(&rec); err != nil {
			r.log.Error(err)
			return nil, err
		}
		result = append(result, rec)
	}
	return result, nil
}
