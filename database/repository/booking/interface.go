package bookingRepo

import (
	"context"

	"rentwheels/models"

	"go.mongodb.org/mongo-driver/mongo"
)

// BookingRepository persists bookings and their invoices.
type BookingRepository interface {
	// CreateWithInvoice stores both documents atomically.
	CreateWithInvoice(ctx context.Context, booking *models.Booking, invoice *models.Invoice) error
	GetByID(ctx context.Context, id string) (*models.Booking, error)
	// Transition applies t only if the booking is still in t's From state and
	// returns the updated document, or repository.ErrConflict.
	Transition(ctx context.Context, id string, t models.BookingTransition) (*models.Booking, error)
	GetInvoice(ctx context.Context, bookingID string) (*models.Invoice, error)
}

// MongoBookingRepo implements BookingRepository using MongoDB.
type MongoBookingRepo struct {
	client      *mongo.Client
	bookingColl *mongo.Collection
	invoiceColl *mongo.Collection
}

// NewMongoBookingRepo constructs a new instance of MongoBookingRepo.
func NewMongoBookingRepo(client *mongo.Client, dbName string) *MongoBookingRepo {
	db := client.Database(dbName)
	return &MongoBookingRepo{
		client:      client,
		bookingColl: db.Collection("bookings"),
		invoiceColl: db.Collection("invoices"),
	}
}
