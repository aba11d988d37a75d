package paymentRepo

import (
	"context"
	"fmt"
	"time"

	"rentwheels/models"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// EnsureIndexes creates the payment and reservation indexes.
func (r *MongoPaymentRepo) EnsureIndexes(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	paymentIndexes := []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "id", Value: 1}},
			Options: options.Index().SetUnique(true).SetName("unique_id"),
		},
		{
			Keys:    bson.D{{Key: "provider_reference", Value: 1}},
			Options: options.Index().SetUnique(true).SetName("unique_provider_reference"),
		},
		// At most one completed settlement per booking.
		{
			Keys: bson.D{{Key: "booking_id", Value: 1}},
			Options: options.Index().
				SetUnique(true).
				SetName("one_completed_per_booking").
				SetPartialFilterExpression(bson.M{"status": models.PaymentCompleted}),
		},
		{
			Keys:    bson.D{{Key: "booking_id", Value: 1}, {Key: "created_at", Value: 1}},
			Options: options.Index().SetName("booking_created_idx"),
		},
	}
	if _, err := r.paymentColl.Indexes().CreateMany(ctx, paymentIndexes); err != nil {
		return fmt.Errorf("failed to create payment indexes: %w", err)
	}

	referenceIndexes := []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "reference", Value: 1}},
			Options: options.Index().SetUnique(true).SetName("unique_reference"),
		},
		{
			Keys:    bson.D{{Key: "expires_at", Value: 1}},
			Options: options.Index().SetExpireAfterSeconds(0).SetName("expires_at_ttl"),
		},
	}
	if _, err := r.referenceColl.Indexes().CreateMany(ctx, referenceIndexes); err != nil {
		return fmt.Errorf("failed to create payment reference indexes: %w", err)
	}

	_, err := r.attemptColl.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys:    bson.D{{Key: "booking_id", Value: 1}},
		Options: options.Index().SetUnique(true).SetName("unique_booking"),
	})
	if err != nil {
		return fmt.Errorf("failed to create payment attempt index: %w", err)
	}
	return nil
}
