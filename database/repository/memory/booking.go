// Package memoryRepo is an in-process document store with the same
// per-document atomicity as the Mongo repositories. It backs
// STORE_DRIVER=memory and the service tests.
package memoryRepo

import (
	"context"
	"sync"

	"rentwheels/database/repository"
	"rentwheels/models"
)

// BookingRepo stores bookings and invoices in maps.
type BookingRepo struct {
	mu       sync.Mutex
	bookings map[string]models.Booking
	invoices map[string]models.Invoice
	// FailWrites makes every write fail, for persistence-error paths.
	FailWrites error
}

func NewBookingRepo() *BookingRepo {
	return &BookingRepo{
		bookings: make(map[string]models.Booking),
		invoices: make(map[string]models.Invoice),
	}
}

func (r *BookingRepo) CreateWithInvoice(ctx context.Context, booking *models.Booking, invoice *models.Invoice) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.FailWrites != nil {
		return r.FailWrites
	}
	if _, exists := r.bookings[booking.ID]; exists {
		return repository.ErrDuplicate
	}
	if _, exists := r.invoices[invoice.BookingID]; exists {
		return repository.ErrDuplicate
	}
	r.bookings[booking.ID] = *booking
	inv := *invoice
	inv.Lines = append([]models.InvoiceLine(nil), invoice.Lines...)
	r.invoices[invoice.BookingID] = inv
	return nil
}

func (r *BookingRepo) GetByID(ctx context.Context, id string) (*models.Booking, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	b, ok := r.bookings[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return &b, nil
}

func (r *BookingRepo) Transition(ctx context.Context, id string, t models.BookingTransition) (*models.Booking, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.FailWrites != nil {
		return nil, r.FailWrites
	}
	b, ok := r.bookings[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	if b.Status != t.FromStatus {
		return nil, repository.ErrConflict
	}
	if t.FromPaymentStatus != "" && b.PaymentStatus != t.FromPaymentStatus {
		return nil, repository.ErrConflict
	}
	if t.FromPaymentStatus == "" && t.NotPaymentStatus != "" && b.PaymentStatus == t.NotPaymentStatus {
		return nil, repository.ErrConflict
	}

	b.Status = t.ToStatus
	if t.ToPaymentStatus != "" {
		b.PaymentStatus = t.ToPaymentStatus
	}
	if t.PaymentMethod != "" {
		b.PaymentMethod = t.PaymentMethod
	}
	b.StatusUpdatedBy = t.ActorID
	b.UpdatedAt = t.At
	r.bookings[id] = b
	return &b, nil
}

func (r *BookingRepo) GetInvoice(ctx context.Context, bookingID string) (*models.Invoice, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	inv, ok := r.invoices[bookingID]
	if !ok {
		return nil, repository.ErrNotFound
	}
	inv.Lines = append([]models.InvoiceLine(nil), inv.Lines...)
	return &inv, nil
}

// Count returns the number of stored bookings.
func (r *BookingRepo) Count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.bookings)
}
