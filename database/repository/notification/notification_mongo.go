package notificationRepo

import (
	"context"
	"errors"
	"fmt"
	"time"

	"rentwheels/database/repository"
	"rentwheels/models"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

func (r *MongoNotificationRepo) Create(ctx context.Context, n *models.Notification) error {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	if _, err := r.coll.InsertOne(ctx, n); err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return repository.ErrDuplicate
		}
		return fmt.Errorf("error creating notification: %w", err)
	}
	return nil
}

func (r *MongoNotificationRepo) GetByID(ctx context.Context, id string) (*models.Notification, error) {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	var n models.Notification
	err := r.coll.FindOne(ctx, bson.M{"id": id}).Decode(&n)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, repository.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("error fetching notification %s: %w", id, err)
	}
	return &n, nil
}

func (r *MongoNotificationRepo) ListUnprocessed(ctx context.Context, limit int) ([]models.Notification, error) {
	opts := options.Find().
		SetSort(bson.D{{Key: "created_at", Value: 1}}).
		SetLimit(int64(limit))
	return r.find(ctx, bson.M{"processed": false}, opts)
}

func (r *MongoNotificationRepo) ListForUser(ctx context.Context, userID string, limit int) ([]models.Notification, error) {
	opts := options.Find().
		SetSort(bson.D{{Key: "created_at", Value: -1}}).
		SetLimit(int64(limit))
	return r.find(ctx, bson.M{"user_id": userID}, opts)
}

func (r *MongoNotificationRepo) find(ctx context.Context, filter bson.M, opts *options.FindOptions) ([]models.Notification, error) {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	cursor, err := r.coll.Find(ctx, filter, opts)
	if err != nil {
		return nil, fmt.Errorf("error querying notifications: %w", err)
	}
	defer cursor.Close(ctx)

	notifications := []models.Notification{}
	for cursor.Next(ctx) {
		var n models.Notification
		if err := cursor.Decode(&n); err != nil {
			return nil, fmt.Errorf("error decoding notification: %w", err)
		}
		notifications = append(notifications, n)
	}
	if err := cursor.Err(); err != nil {
		return nil, fmt.Errorf("cursor error: %w", err)
	}
	return notifications, nil
}

func (r *MongoNotificationRepo) RecordAttempt(ctx context.Context, id string, attempt models.NotificationAttempt) (*models.Notification, error) {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	set := bson.M{
		"processed":  attempt.Processed,
		"last_error": attempt.LastError,
		"updated_at": attempt.At,
	}
	for channel, d := range attempt.Deliveries {
		set["deliveries."+channel] = d
	}
	update := bson.M{"$set": set, "$inc": bson.M{"attempts": 1}}

	opts := options.FindOneAndUpdate().SetReturnDocument(options.After)
	var updated models.Notification
	err := r.coll.FindOneAndUpdate(ctx, bson.M{"id": id}, update, opts).Decode(&updated)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, repository.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("error recording attempt for notification %s: %w", id, err)
	}
	return &updated, nil
}

func (r *MongoNotificationRepo) MarkRead(ctx context.Context, id string) error {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	res, err := r.coll.UpdateOne(ctx, bson.M{"id": id}, bson.M{"$set": bson.M{"read": true}})
	if err != nil {
		return fmt.Errorf("error marking notification %s read: %w", id, err)
	}
	if res.MatchedCount == 0 {
		return repository.ErrNotFound
	}
	return nil
}

// EnsureIndexes creates the notification indexes.
func (r *MongoNotificationRepo) EnsureIndexes(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	indexModels := []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "id", Value: 1}},
			Options: options.Index().SetUnique(true).SetName("unique_id"),
		},
		{
			Keys:    bson.D{{Key: "processed", Value: 1}, {Key: "created_at", Value: 1}},
			Options: options.Index().SetName("processed_created_idx"),
		},
		{
			Keys:    bson.D{{Key: "user_id", Value: 1}, {Key: "created_at", Value: -1}},
			Options: options.Index().SetName("user_created_idx"),
		},
	}
	if _, err := r.coll.Indexes().CreateMany(ctx, indexModels); err != nil {
		return fmt.Errorf("failed to create notification indexes: %w", err)
	}
	return nil
}
