package notificationRepo

import (
	"context"

	"rentwheels/models"

	"go.mongodb.org/mongo-driver/mongo"
)

// NotificationRepository persists notifications and their delivery state.
type NotificationRepository interface {
	Create(ctx context.Context, n *models.Notification) error
	GetByID(ctx context.Context, id string) (*models.Notification, error)
	// ListUnprocessed returns up to limit unprocessed notifications, oldest first.
	ListUnprocessed(ctx context.Context, limit int) ([]models.Notification, error)
	ListForUser(ctx context.Context, userID string, limit int) ([]models.Notification, error)
	// RecordAttempt merges the per-channel outcomes, bumps the attempt counter
	// and sets the processed flag.
	RecordAttempt(ctx context.Context, id string, attempt models.NotificationAttempt) (*models.Notification, error)
	MarkRead(ctx context.Context, id string) error
}

// MongoNotificationRepo implements NotificationRepository using MongoDB.
type MongoNotificationRepo struct {
	coll *mongo.Collection
}

// NewMongoNotificationRepo constructs a new instance of MongoNotificationRepo.
func NewMongoNotificationRepo(client *mongo.Client, dbName string) *MongoNotificationRepo {
	return &MongoNotificationRepo{coll: client.Database(dbName).Collection("notifications")}
}
