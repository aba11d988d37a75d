package paymentRepo

import (
	"context"
	"time"

	"rentwheels/models"

	"go.mongodb.org/mongo-driver/mongo"
)

// PaymentRepository persists payment records and redirect reservations.
type PaymentRepository interface {
	CreateRecord(ctx context.Context, record *models.PaymentRecord) error
	GetRecordByReference(ctx context.Context, reference string) (*models.PaymentRecord, error)
	ListRecordsByBooking(ctx context.Context, bookingID string) ([]models.PaymentRecord, error)
	// CompleteRecord moves an initialized record to completed. It reports
	// false when the record was already completed, and returns
	// repository.ErrDuplicate when another record of the booking completed first.
	CompleteRecord(ctx context.Context, id string, at time.Time) (bool, error)

	CreateReference(ctx context.Context, ref *models.PaymentReference) error
	// GetReference returns repository.ErrNotFound for unknown or expired references.
	GetReference(ctx context.Context, reference string) (*models.PaymentReference, error)
	DeleteReference(ctx context.Context, reference string) error

	// FailedAttempts counts definite provider refusals for a booking. The
	// count is part of the settlement idempotency key.
	FailedAttempts(ctx context.Context, bookingID string) (int, error)
	AddFailedAttempt(ctx context.Context, bookingID string) error
}

// MongoPaymentRepo implements PaymentRepository using MongoDB.
type MongoPaymentRepo struct {
	paymentColl   *mongo.Collection
	referenceColl *mongo.Collection
	attemptColl   *mongo.Collection
	now           func() time.Time
}

// NewMongoPaymentRepo constructs a new instance of MongoPaymentRepo.
func NewMongoPaymentRepo(client *mongo.Client, dbName string) *MongoPaymentRepo {
	db := client.Database(dbName)
	return &MongoPaymentRepo{
		paymentColl:   db.Collection("payments"),
		referenceColl: db.Collection("payment_references"),
		attemptColl:   db.Collection("payment_attempts"),
		now:           time.Now,
	}
}
