package bookingRepo

import (
	"context"
	"errors"
	"fmt"
	"time"

	"rentwheels/database"
	"rentwheels/database/repository"
	"rentwheels/models"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// CreateWithInvoice inserts the booking and its invoice in one transaction.
func (repo *MongoBookingRepo) CreateWithInvoice(ctx context.Context, booking *models.Booking, invoice *models.Invoice) error {
	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	err := database.WithTransaction(ctx, repo.client, func(sc mongo.SessionContext) error {
		if _, err := repo.bookingColl.InsertOne(sc, booking); err != nil {
			return fmt.Errorf("insert booking failed: %w", err)
		}
		if _, err := repo.invoiceColl.InsertOne(sc, invoice); err != nil {
			return fmt.Errorf("insert invoice failed: %w", err)
		}
		return nil
	})
	if err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return repository.ErrDuplicate
		}
		return fmt.Errorf("booking transaction failed: %w", err)
	}
	return nil
}

// GetByID retrieves a booking by its ID.
func (repo *MongoBookingRepo) GetByID(ctx context.Context, id string) (*models.Booking, error) {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	var booking models.Booking
	err := repo.bookingColl.FindOne(ctx, bson.M{"id": id}).Decode(&booking)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, repository.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("error fetching booking %s: %w", id, err)
	}
	return &booking, nil
}

// Transition is a single FindOneAndUpdate whose filter pins the expected
// status, so concurrent transitions cannot overwrite each other.
func (repo *MongoBookingRepo) Transition(ctx context.Context, id string, t models.BookingTransition) (*models.Booking, error) {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	filter := bson.M{"id": id, "status": t.FromStatus}
	switch {
	case t.FromPaymentStatus != "":
		filter["payment_status"] = t.FromPaymentStatus
	case t.NotPaymentStatus != "":
		filter["payment_status"] = bson.M{"$ne": t.NotPaymentStatus}
	}

	set := bson.M{
		"status":            t.ToStatus,
		"updated_at":        t.At,
		"status_updated_by": t.ActorID,
	}
	if t.ToPaymentStatus != "" {
		set["payment_status"] = t.ToPaymentStatus
	}
	if t.PaymentMethod != "" {
		set["payment_method"] = t.PaymentMethod
	}

	opts := options.FindOneAndUpdate().SetReturnDocument(options.After)
	var updated models.Booking
	err := repo.bookingColl.FindOneAndUpdate(ctx, filter, bson.M{"$set": set}, opts).Decode(&updated)
	if errors.Is(err, mongo.ErrNoDocuments) {
		// Distinguish a missing booking from a lost race.
		count, cerr := repo.bookingColl.CountDocuments(ctx, bson.M{"id": id})
		if cerr != nil {
			return nil, fmt.Errorf("error checking booking %s: %w", id, cerr)
		}
		if count == 0 {
			return nil, repository.ErrNotFound
		}
		return nil, repository.ErrConflict
	}
	if err != nil {
		return nil, fmt.Errorf("error updating booking %s: %w", id, err)
	}
	return &updated, nil
}

// GetInvoice retrieves the invoice issued for a booking.
func (repo *MongoBookingRepo) GetInvoice(ctx context.Context, bookingID string) (*models.Invoice, error) {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	var invoice models.Invoice
	err := repo.invoiceColl.FindOne(ctx, bson.M{"booking_id": bookingID}).Decode(&invoice)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, repository.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("error fetching invoice for booking %s: %w", bookingID, err)
	}
	return &invoice, nil
}
