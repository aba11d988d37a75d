package paymentRepo

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

// CreateRecord inserts a new payment record.
func (r *MongoPaymentRepo) CreateRecord(ctx context.Context, record *models.PaymentRecord) error {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	if _, err := r.paymentColl.InsertOne(ctx, record); err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return repository.ErrDuplicate
		}
		return fmt.Errorf("error creating payment record: %w", err)
	}
	return nil
}

func (r *MongoPaymentRepo) GetRecordByReference(ctx context.Context, reference string) (*models.PaymentRecord, error) {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	var record models.PaymentRecord
	err := r.paymentColl.FindOne(ctx, bson.M{"provider_reference": reference}).Decode(&record)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, repository.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("error fetching payment record %s: %w", reference, err)
	}
	return &record, nil
}

func (r *MongoPaymentRepo) ListRecordsByBooking(ctx context.Context, bookingID string) ([]models.PaymentRecord, error) {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	opts := options.Find().SetSort(bson.D{{Key: "created_at", Value: 1}})
	cursor, err := r.paymentColl.Find(ctx, bson.M{"booking_id": bookingID}, opts)
	if err != nil {
		return nil, fmt.Errorf("error listing payments for booking %s: %w", bookingID, err)
	}
	defer cursor.Close(ctx)

	var records []models.PaymentRecord
	if err := cursor.All(ctx, &records); err != nil {
		return nil, fmt.Errorf("error decoding payments: %w", err)
	}
	return records, nil
}

// CompleteRecord relies on the filter on status for the compare-and-set and
// on the partial unique index for the one-completed-per-booking rule.
func (r *MongoPaymentRepo) CompleteRecord(ctx context.Context, id string, at time.Time) (bool, error) {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	filter := bson.M{"id": id, "status": models.PaymentInitialized}
	update := bson.M{"$set": bson.M{"status": models.PaymentCompleted, "completed_at": at}}
	res, err := r.paymentColl.UpdateOne(ctx, filter, update)
	if err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return false, repository.ErrDuplicate
		}
		return false, fmt.Errorf("error completing payment %s: %w", id, err)
	}
	if res.ModifiedCount == 1 {
		return true, nil
	}

	var current models.PaymentRecord
	err = r.paymentColl.FindOne(ctx, bson.M{"id": id}).Decode(&current)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return false, repository.ErrNotFound
	}
	if err != nil {
		return false, fmt.Errorf("error fetching payment %s: %w", id, err)
	}
	if current.Status == models.PaymentCompleted {
		return false, nil
	}
	return false, repository.ErrConflict
}

func (r *MongoPaymentRepo) CreateReference(ctx context.Context, ref *models.PaymentReference) error {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	if _, err := r.referenceColl.InsertOne(ctx, ref); err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return repository.ErrDuplicate
		}
		return fmt.Errorf("error creating payment reference: %w", err)
	}
	return nil
}

// GetReference filters out expired rows itself since the TTL monitor only
// runs about once a minute.
func (r *MongoPaymentRepo) GetReference(ctx context.Context, reference string) (*models.PaymentReference, error) {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	filter := bson.M{"reference": reference, "expires_at": bson.M{"$gt": r.now()}}
	var ref models.PaymentReference
	err := r.referenceColl.FindOne(ctx, filter).Decode(&ref)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, repository.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("error fetching payment reference %s: %w", reference, err)
	}
	return &ref, nil
}

func (r *MongoPaymentRepo) DeleteReference(ctx context.Context, reference string) error {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	if _, err := r.referenceColl.DeleteOne(ctx, bson.M{"reference": reference}); err != nil {
		return fmt.Errorf("error deleting payment reference %s: %w", reference, err)
	}
	return nil
}

type attemptDoc struct {
	BookingID string    `bson:"booking_id"`
	Failures  int       `bson:"failures"`
	UpdatedAt time.Time `bson:"updated_at"`
}

func (r *MongoPaymentRepo) FailedAttempts(ctx context.Context, bookingID string) (int, error) {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	var doc attemptDoc
	err := r.attemptColl.FindOne(ctx, bson.M{"booking_id": bookingID}).Decode(&doc)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("error fetching payment attempts for booking %s: %w", bookingID, err)
	}
	return doc.Failures, nil
}

func (r *MongoPaymentRepo) AddFailedAttempt(ctx context.Context, bookingID string) error {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	update := bson.M{
		"$inc": bson.M{"failures": 1},
		"$set": bson.M{"updated_at": r.now()},
	}
	opts := options.Update().SetUpsert(true)
	if _, err := r.attemptColl.UpdateOne(ctx, bson.M{"booking_id": bookingID}, update, opts); err != nil {
		return fmt.Errorf("error counting failed payment for booking %s: %w", bookingID, err)
	}
	return nil
}
