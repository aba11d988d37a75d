package memoryRepo

import (
	"context"
	"sort"
	"sync"
	"time"

	"rentwheels/database/repository"
	"rentwheels/models"
)

// PaymentRepo stores payment records and references in maps.
type PaymentRepo struct {
	mu         sync.Mutex
	records    map[string]models.PaymentRecord
	references map[string]models.PaymentReference
	failures   map[string]int
	now        func() time.Time
}

func NewPaymentRepo() *PaymentRepo {
	return &PaymentRepo{
		records:    make(map[string]models.PaymentRecord),
		references: make(map[string]models.PaymentReference),
		failures:   make(map[string]int),
		now:        time.Now,
	}
}

// SetClock overrides the clock used for reference expiry.
func (r *PaymentRepo) SetClock(now func() time.Time) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.now = now
}

func (r *PaymentRepo) CreateRecord(ctx context.Context, record *models.PaymentRecord) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.records[record.ID]; exists {
		return repository.ErrDuplicate
	}
	for _, existing := range r.records {
		if existing.ProviderReference == record.ProviderReference {
			return repository.ErrDuplicate
		}
		if record.Status == models.PaymentCompleted && existing.BookingID == record.BookingID && existing.Status == models.PaymentCompleted {
			return repository.ErrDuplicate
		}
	}
	r.records[record.ID] = copyRecord(*record)
	return nil
}

func (r *PaymentRepo) GetRecordByReference(ctx context.Context, reference string) (*models.PaymentRecord, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, rec := range r.records {
		if rec.ProviderReference == reference {
			out := copyRecord(rec)
			return &out, nil
		}
	}
	return nil, repository.ErrNotFound
}

func (r *PaymentRepo) ListRecordsByBooking(ctx context.Context, bookingID string) ([]models.PaymentRecord, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	var out []models.PaymentRecord
	for _, rec := range r.records {
		if rec.BookingID == bookingID {
			out = append(out, copyRecord(rec))
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out, nil
}

func (r *PaymentRepo) CompleteRecord(ctx context.Context, id string, at time.Time) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	rec, ok := r.records[id]
	if !ok {
		return false, repository.ErrNotFound
	}
	switch rec.Status {
	case models.PaymentCompleted:
		return false, nil
	case models.PaymentInitialized:
	default:
		return false, repository.ErrConflict
	}
	for otherID, other := range r.records {
		if otherID != id && other.BookingID == rec.BookingID && other.Status == models.PaymentCompleted {
			return false, repository.ErrDuplicate
		}
	}
	rec.Status = models.PaymentCompleted
	completedAt := at
	rec.CompletedAt = &completedAt
	r.records[id] = rec
	return true, nil
}

func (r *PaymentRepo) CreateReference(ctx context.Context, ref *models.PaymentReference) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.references[ref.Reference]; exists {
		return repository.ErrDuplicate
	}
	r.references[ref.Reference] = *ref
	return nil
}

func (r *PaymentRepo) GetReference(ctx context.Context, reference string) (*models.PaymentReference, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	ref, ok := r.references[reference]
	if !ok || !ref.ExpiresAt.After(r.now()) {
		return nil, repository.ErrNotFound
	}
	return &ref, nil
}

func (r *PaymentRepo) DeleteReference(ctx context.Context, reference string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	delete(r.references, reference)
	return nil
}

func (r *PaymentRepo) FailedAttempts(ctx context.Context, bookingID string) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.failures[bookingID], nil
}

func (r *PaymentRepo) AddFailedAttempt(ctx context.Context, bookingID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.failures[bookingID]++
	return nil
}

func copyRecord(rec models.PaymentRecord) models.PaymentRecord {
	if rec.CompletedAt != nil {
		at := *rec.CompletedAt
		rec.CompletedAt = &at
	}
	return rec
}
