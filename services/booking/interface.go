package booking

import (
	"context"
	"time"

	bookingRepo "rentwheels/database/repository/booking"
	directoryRepo "rentwheels/database/repository/directory"
	"rentwheels/models"
	"rentwheels/services/events"
	"rentwheels/services/identity"
	"rentwheels/services/notification"

	"go.uber.org/zap"
)

// BookingService owns every booking state transition.
type BookingService interface {
	CreateBooking(ctx context.Context, input models.BookingInput, customerID string) (*models.Booking, error)
	GetBooking(ctx context.Context, bookingID string, actor *identity.Identity) (*models.Booking, error)
	GetInvoice(ctx context.Context, bookingID string, actor *identity.Identity) (*models.Invoice, error)
	Approve(ctx context.Context, bookingID string, actor *identity.Identity) (*models.Booking, error)
	Reject(ctx context.Context, bookingID string, actor *identity.Identity, reason string) (*models.Booking, error)
	Cancel(ctx context.Context, bookingID string, actor *identity.Identity, reason string) (*models.Booking, error)
	Complete(ctx context.Context, bookingID string, actor *identity.Identity) (*models.Booking, error)
	// MarkPaid is reserved for the payment orchestrator.
	MarkPaid(ctx context.Context, bookingID, method string) (*models.Booking, error)
}

// Notifier queues a notification for asynchronous delivery.
type Notifier interface {
	Notify(ctx context.Context, msg notification.Message) (*models.Notification, error)
}

// DefaultBookingService implements BookingService.
type DefaultBookingService struct {
	Repo     bookingRepo.BookingRepository
	Vehicles directoryRepo.VehicleDirectory
	Notifier Notifier
	Events   events.Publisher
	Logger   *zap.Logger
	Currency string

	now func() time.Time
}

func NewBookingService(
	repo bookingRepo.BookingRepository,
	vehicles directoryRepo.VehicleDirectory,
	notifier Notifier,
	publisher events.Publisher,
	logger *zap.Logger,
	currency string,
) *DefaultBookingService {
	if publisher == nil {
		publisher = events.NoopPublisher{}
	}
	return &DefaultBookingService{
		Repo:     repo,
		Vehicles: vehicles,
		Notifier: notifier,
		Events:   publisher,
		Logger:   logger,
		Currency: currency,
		now:      time.Now,
	}
}
