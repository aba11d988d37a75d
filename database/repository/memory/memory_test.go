package memoryRepo

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"rentwheels/database/repository"
	"rentwheels/models"
)

func TestBookingTransitionCompareAndSet(t *testing.T) {
	ctx := context.Background()
	repo := NewBookingRepo()
	b := &models.Booking{ID: "b1", Status: models.BookingPending, PaymentStatus: models.PaymentStatusPending}
	if err := repo.CreateWithInvoice(ctx, b, &models.Invoice{BookingID: "b1", InvoiceNumber: "INV-1"}); err != nil {
		t.Fatalf("create: %v", err)
	}

	approve := models.BookingTransition{FromStatus: models.BookingPending, ToStatus: models.BookingApproved, At: time.Now()}
	updated, err := repo.Transition(ctx, "b1", approve)
	if err != nil {
		t.Fatalf("first transition: %v", err)
	}
	if updated.Status != models.BookingApproved {
		t.Errorf("expected approved, got %s", updated.Status)
	}

	if _, err := repo.Transition(ctx, "b1", approve); !errors.Is(err, repository.ErrConflict) {
		t.Errorf("expected ErrConflict on stale transition, got %v", err)
	}
	if _, err := repo.Transition(ctx, "missing", approve); !errors.Is(err, repository.ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

func TestBookingTransitionNotPaymentStatus(t *testing.T) {
	ctx := context.Background()
	repo := NewBookingRepo()
	b := &models.Booking{ID: "b1", Status: models.BookingApproved, PaymentStatus: models.PaymentStatusPaid}
	_ = repo.CreateWithInvoice(ctx, b, &models.Invoice{BookingID: "b1"})

	cancel := models.BookingTransition{
		FromStatus:       models.BookingApproved,
		NotPaymentStatus: models.PaymentStatusPaid,
		ToStatus:         models.BookingCancelled,
	}
	if _, err := repo.Transition(ctx, "b1", cancel); !errors.Is(err, repository.ErrConflict) {
		t.Fatalf("expected ErrConflict for paid booking, got %v", err)
	}
}

func TestCompleteRecordOnlyOnce(t *testing.T) {
	ctx := context.Background()
	repo := NewPaymentRepo()
	rec := &models.PaymentRecord{ID: "p1", BookingID: "b1", ProviderReference: "TX-1", Status: models.PaymentInitialized}
	if err := repo.CreateRecord(ctx, rec); err != nil {
		t.Fatalf("create: %v", err)
	}

	var wins int32
	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			won, err := repo.CompleteRecord(ctx, "p1", time.Now())
			if err != nil {
				t.Errorf("complete: %v", err)
				return
			}
			if won {
				atomic.AddInt32(&wins, 1)
			}
		}()
	}
	wg.Wait()
	if wins != 1 {
		t.Fatalf("expected exactly one winner, got %d", wins)
	}
}

func TestCompleteRecordRejectsSecondCompletedPerBooking(t *testing.T) {
	ctx := context.Background()
	repo := NewPaymentRepo()
	_ = repo.CreateRecord(ctx, &models.PaymentRecord{ID: "p1", BookingID: "b1", ProviderReference: "TX-1", Status: models.PaymentInitialized})
	_ = repo.CreateRecord(ctx, &models.PaymentRecord{ID: "p2", BookingID: "b1", ProviderReference: "TX-2", Status: models.PaymentInitialized})

	if won, err := repo.CompleteRecord(ctx, "p1", time.Now()); err != nil || !won {
		t.Fatalf("first completion: won=%v err=%v", won, err)
	}
	if _, err := repo.CompleteRecord(ctx, "p2", time.Now()); !errors.Is(err, repository.ErrDuplicate) {
		t.Fatalf("expected ErrDuplicate, got %v", err)
	}
}

func TestReferenceExpiry(t *testing.T) {
	ctx := context.Background()
	repo := NewPaymentRepo()
	now := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
	repo.SetClock(func() time.Time { return now })

	_ = repo.CreateReference(ctx, &models.PaymentReference{Reference: "TX-1", ExpiresAt: now.Add(time.Hour)})
	if _, err := repo.GetReference(ctx, "TX-1"); err != nil {
		t.Fatalf("expected live reference, got %v", err)
	}

	now = now.Add(2 * time.Hour)
	if _, err := repo.GetReference(ctx, "TX-1"); !errors.Is(err, repository.ErrNotFound) {
		t.Fatalf("expected expired reference to be not found, got %v", err)
	}
}

func TestListUnprocessedOldestFirstWithLimit(t *testing.T) {
	ctx := context.Background()
	repo := NewNotificationRepo()
	base := time.Now()
	for i, id := range []string{"n3", "n1", "n2"} {
		_ = repo.Create(ctx, &models.Notification{ID: id, CreatedAt: base.Add(time.Duration(3-i) * time.Minute)})
	}
	_ = repo.Create(ctx, &models.Notification{ID: "done", Processed: true, CreatedAt: base.Add(-time.Hour)})

	got, err := repo.ListUnprocessed(ctx, 2)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("expected 2, got %d", len(got))
	}
	if got[0].ID != "n2" || got[1].ID != "n1" {
		t.Errorf("unexpected order: %s, %s", got[0].ID, got[1].ID)
	}
}
