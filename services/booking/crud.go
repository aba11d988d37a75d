package booking

import (
	"context"
	"errors"
	"fmt"

	"rentwheels/database/repository"
	"rentwheels/models"
	"rentwheels/services/events"
	"rentwheels/services/identity"
	"rentwheels/services/notification"
	"rentwheels/utils"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// CreateBooking validates the request, stores the booking together with its
// invoice and tells the vehicle owner about it.
func (s *DefaultBookingService) CreateBooking(ctx context.Context, input models.BookingInput, customerID string) (*models.Booking, error) {
	if customerID == "" {
		return nil, utils.NewAuthError("unauthenticated", "customer identity is required")
	}
	days, err := validateBookingInput(input)
	if err != nil {
		return nil, err
	}

	vehicle, err := s.Vehicles.GetVehicle(ctx, input.VehicleID)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, utils.NewValidationError("unknown_vehicle", "vehicle does not exist")
	}
	if err != nil {
		return nil, utils.NewPersistenceError("vehicle lookup failed", err)
	}
	if !vehicle.Active {
		return nil, utils.NewValidationError("vehicle_unavailable", "vehicle is not available for rent")
	}
	if vehicle.OwnerID == customerID {
		return nil, utils.NewValidationError("own_vehicle", "you cannot book your own vehicle")
	}

	now := s.now()
	b := &models.Booking{
		ID:            uuid.New().String(),
		CustomerID:    customerID,
		VehicleID:     vehicle.ID,
		OwnerID:       vehicle.OwnerID,
		Pickup:        input.Pickup,
		Dropoff:       input.Dropoff,
		RentalDays:    days,
		PricePerDay:   input.Price,
		TotalPrice:    input.Price * int64(days),
		Currency:      s.Currency,
		Status:        models.BookingPending,
		PaymentStatus: models.PaymentStatusPending,
		InvoiceNumber: newInvoiceNumber(now),
		Notes:         input.Notes,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
	invoice := buildInvoice(b, now)

	if err := s.Repo.CreateWithInvoice(ctx, b, invoice); err != nil {
		s.Logger.Error("booking: create failed", zap.String("customerId", customerID), zap.Error(err))
		return nil, utils.NewPersistenceError("could not store booking", err)
	}

	s.Logger.Info("booking: created",
		zap.String("bookingId", b.ID),
		zap.String("vehicleId", b.VehicleID),
		zap.Int64("totalPrice", b.TotalPrice))

	s.publish(ctx, b, "", customerID)
	s.notify(ctx, b.OwnerID, b,
		"New booking request",
		fmt.Sprintf("You have a new booking request for vehicle %s from %s to %s.", b.VehicleID, b.Pickup.Date, b.Dropoff.Date))

	return b, nil
}

// GetBooking returns the booking if actor is a party to it.
func (s *DefaultBookingService) GetBooking(ctx context.Context, bookingID string, actor *identity.Identity) (*models.Booking, error) {
	b, err := s.Repo.GetByID(ctx, bookingID)
	if err != nil {
		return nil, storeError("get booking", err)
	}
	if !isParty(b, actor) {
		return nil, utils.NewForbiddenError("not allowed to view this booking")
	}
	return b, nil
}

func (s *DefaultBookingService) GetInvoice(ctx context.Context, bookingID string, actor *identity.Identity) (*models.Invoice, error) {
	if _, err := s.GetBooking(ctx, bookingID, actor); err != nil {
		return nil, err
	}
	inv, err := s.Repo.GetInvoice(ctx, bookingID)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, utils.NewNotFoundError("invoice not found")
	}
	if err != nil {
		return nil, utils.NewPersistenceError("get invoice failed", err)
	}
	return inv, nil
}

func isParty(b *models.Booking, actor *identity.Identity) bool {
	if actor == nil {
		return false
	}
	return actor.IsAdmin() || actor.UID == b.CustomerID || actor.UID == b.OwnerID
}

func (s *DefaultBookingService) publish(ctx context.Context, b *models.Booking, from, actorID string) {
	event := events.StatusChanged{
		BookingID:     b.ID,
		From:          from,
		To:            b.Status,
		PaymentStatus: b.PaymentStatus,
		ActorID:       actorID,
		OccurredAt:    b.UpdatedAt,
	}
	if err := s.Events.PublishStatusChanged(ctx, event); err != nil {
		s.Logger.Warn("booking: status event not published", zap.String("bookingId", b.ID), zap.Error(err))
	}
}

// notify never fails the caller: an undelivered notification stays
// unprocessed and is picked up by the retry sweep.
func (s *DefaultBookingService) notify(ctx context.Context, userID string, b *models.Booking, title, message string) {
	if s.Notifier == nil || userID == "" {
		return
	}
	_, err := s.Notifier.Notify(ctx, notification.Message{
		UserID:  userID,
		Title:   title,
		Message: message,
		Type:    models.NotificationBookingUpdate,
		Data: map[string]string{
			"bookingId":     b.ID,
			"status":        b.Status,
			"paymentStatus": b.PaymentStatus,
		},
	})
	if err != nil {
		s.Logger.Warn("booking: notification failed",
			zap.String("bookingId", b.ID),
			zap.String("userId", userID),
			zap.Error(err))
	}
}
