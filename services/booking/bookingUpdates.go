// File: services/booking/bookingUpdates.go
package booking

import (
	"context"
	"errors"
	"fmt"

	"rentwheels/database/repository"
	"rentwheels/models"
	"rentwheels/services/identity"
	"rentwheels/utils"

	"go.uber.org/zap"
)

// systemActor marks transitions not made by a user.
const systemActor = "system:payments"

// markPaidAttempts bounds re-reads when MarkPaid loses a compare-and-set.
const markPaidAttempts = 3

func (s *DefaultBookingService) Approve(ctx context.Context, bookingID string, actor *identity.Identity) (*models.Booking, error) {
	b, err := s.loadForOwner(ctx, bookingID, actor)
	if err != nil {
		return nil, err
	}
	if b.Status != models.BookingPending {
		return nil, utils.NewInvalidStateError("not_pending", fmt.Sprintf("cannot approve a booking that is %s", b.Status))
	}

	updated, err := s.apply(ctx, b, models.BookingTransition{
		FromStatus: models.BookingPending,
		ToStatus:   models.BookingApproved,
		ActorID:    actor.UID,
	})
	if err != nil {
		return nil, err
	}
	s.notify(ctx, updated.CustomerID, updated,
		"Booking approved",
		fmt.Sprintf("Your booking for vehicle %s was approved. You can now complete the payment.", updated.VehicleID))
	return updated, nil
}

func (s *DefaultBookingService) Reject(ctx context.Context, bookingID string, actor *identity.Identity, reason string) (*models.Booking, error) {
	b, err := s.loadForOwner(ctx, bookingID, actor)
	if err != nil {
		return nil, err
	}
	if b.Status != models.BookingPending {
		return nil, utils.NewInvalidStateError("not_pending", fmt.Sprintf("cannot reject a booking that is %s", b.Status))
	}

	updated, err := s.apply(ctx, b, models.BookingTransition{
		FromStatus: models.BookingPending,
		ToStatus:   models.BookingRejected,
		ActorID:    actor.UID,
	})
	if err != nil {
		return nil, err
	}
	message := fmt.Sprintf("Your booking for vehicle %s was declined by the owner.", updated.VehicleID)
	if reason != "" {
		message += " Reason: " + reason
	}
	s.notify(ctx, updated.CustomerID, updated, "Booking declined", message)
	return updated, nil
}

// Cancel is allowed while pending or approved and not yet paid.
func (s *DefaultBookingService) Cancel(ctx context.Context, bookingID string, actor *identity.Identity, reason string) (*models.Booking, error) {
	b, err := s.Repo.GetByID(ctx, bookingID)
	if err != nil {
		return nil, storeError("get booking", err)
	}
	if !isParty(b, actor) {
		return nil, utils.NewForbiddenError("not allowed to cancel this booking")
	}
	if b.PaymentStatus == models.PaymentStatusPaid {
		return nil, utils.NewInvalidStateError("already_paid", "a paid booking cannot be cancelled")
	}
	if b.Status != models.BookingPending && b.Status != models.BookingApproved {
		return nil, utils.NewInvalidStateError("not_cancellable", fmt.Sprintf("cannot cancel a booking that is %s", b.Status))
	}

	updated, err := s.apply(ctx, b, models.BookingTransition{
		FromStatus:       b.Status,
		NotPaymentStatus: models.PaymentStatusPaid,
		ToStatus:         models.BookingCancelled,
		ActorID:          actor.UID,
	})
	if err != nil {
		return nil, err
	}

	counterparty := updated.OwnerID
	if actor.UID == updated.OwnerID {
		counterparty = updated.CustomerID
	}
	message := fmt.Sprintf("Booking %s for vehicle %s was cancelled.", updated.ID, updated.VehicleID)
	if reason != "" {
		message += " Reason: " + reason
	}
	s.notify(ctx, counterparty, updated, "Booking cancelled", message)
	return updated, nil
}

// Complete closes a paid rental once the vehicle is returned. A free rental
// has nothing to settle and completes straight from approved, keeping its
// payment status pending.
func (s *DefaultBookingService) Complete(ctx context.Context, bookingID string, actor *identity.Identity) (*models.Booking, error) {
	b, err := s.loadForOwner(ctx, bookingID, actor)
	if err != nil {
		return nil, err
	}
	t := models.BookingTransition{
		FromStatus:        models.BookingPaid,
		FromPaymentStatus: models.PaymentStatusPaid,
		ToStatus:          models.BookingCompleted,
		ActorID:           actor.UID,
	}
	switch {
	case b.Status == models.BookingPaid:
	case b.Status == models.BookingApproved && b.TotalPrice == 0:
		t.FromStatus = models.BookingApproved
		t.FromPaymentStatus = models.PaymentStatusPending
	default:
		return nil, utils.NewInvalidStateError("not_paid", fmt.Sprintf("cannot complete a booking that is %s", b.Status))
	}

	updated, err := s.apply(ctx, b, t)
	if err != nil {
		return nil, err
	}
	s.notify(ctx, updated.CustomerID, updated, "Rental completed", "Thanks for riding with us. Your rental is now closed.")
	return updated, nil
}

// MarkPaid records a confirmed settlement. Calling it again on a paid booking
// is a no-op; a booking that already moved past approved keeps its status so
// late verification callbacks are harmless.
func (s *DefaultBookingService) MarkPaid(ctx context.Context, bookingID, method string) (*models.Booking, error) {
	for attempt := 0; attempt < markPaidAttempts; attempt++ {
		b, err := s.Repo.GetByID(ctx, bookingID)
		if err != nil {
			return nil, storeError("get booking", err)
		}
		if b.PaymentStatus == models.PaymentStatusPaid {
			return b, nil
		}

		to := b.Status
		switch b.Status {
		case models.BookingApproved:
			to = models.BookingPaid
		case models.BookingPaid, models.BookingCompleted:
		default:
			return nil, utils.NewInvalidStateError("not_payable", fmt.Sprintf("cannot mark a %s booking as paid", b.Status))
		}

		updated, err := s.Repo.Transition(ctx, bookingID, models.BookingTransition{
			FromStatus:        b.Status,
			FromPaymentStatus: b.PaymentStatus,
			ToStatus:          to,
			ToPaymentStatus:   models.PaymentStatusPaid,
			PaymentMethod:     method,
			ActorID:           systemActor,
			At:                s.now(),
		})
		if errors.Is(err, repository.ErrConflict) {
			continue
		}
		if err != nil {
			return nil, storeError("mark paid", err)
		}

		s.Logger.Info("booking: marked paid", zap.String("bookingId", bookingID), zap.String("method", method))
		s.publish(ctx, updated, b.Status, systemActor)
		s.notify(ctx, updated.OwnerID, updated,
			"Booking paid",
			fmt.Sprintf("Booking %s for vehicle %s has been paid.", updated.ID, updated.VehicleID))
		return updated, nil
	}
	return nil, utils.NewInvalidStateError("concurrent_update", "booking kept changing while marking it paid")
}

func (s *DefaultBookingService) loadForOwner(ctx context.Context, bookingID string, actor *identity.Identity) (*models.Booking, error) {
	b, err := s.Repo.GetByID(ctx, bookingID)
	if err != nil {
		return nil, storeError("get booking", err)
	}
	if actor == nil || (!actor.IsAdmin() && actor.UID != b.OwnerID) {
		return nil, utils.NewForbiddenError("only the vehicle owner can do this")
	}
	return b, nil
}

// apply runs the compare-and-set and publishes the status event.
func (s *DefaultBookingService) apply(ctx context.Context, b *models.Booking, t models.BookingTransition) (*models.Booking, error) {
	t.At = s.now()
	updated, err := s.Repo.Transition(ctx, b.ID, t)
	if errors.Is(err, repository.ErrConflict) {
		return nil, utils.NewInvalidStateError("concurrent_update",
			fmt.Sprintf("booking is no longer %s", t.FromStatus))
	}
	if err != nil {
		return nil, storeError("update booking", err)
	}

	s.Logger.Info("booking: status changed",
		zap.String("bookingId", b.ID),
		zap.String("from", b.Status),
		zap.String("to", updated.Status),
		zap.String("actor", t.ActorID))
	s.publish(ctx, updated, b.Status, t.ActorID)
	return updated, nil
}
