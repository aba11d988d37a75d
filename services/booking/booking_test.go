package booking

import (
	"context"
	"errors"
	"regexp"
	"sync"
	"testing"
	"time"

	memoryRepo "rentwheels/database/repository/memory"
	"rentwheels/models"
	"rentwheels/services/events"
	"rentwheels/services/identity"
	"rentwheels/services/notification"
	"rentwheels/utils"

	"go.uber.org/zap"
)

type fakeNotifier struct {
	mu   sync.Mutex
	msgs []notification.Message
	err  error
}

func (f *fakeNotifier) Notify(ctx context.Context, msg notification.Message) (*models.Notification, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.msgs = append(f.msgs, msg)
	if f.err != nil {
		return nil, f.err
	}
	return &models.Notification{ID: "n", UserID: msg.UserID}, nil
}

func (f *fakeNotifier) recipients() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []string
	for _, m := range f.msgs {
		out = append(out, m.UserID)
	}
	return out
}

var (
	customer = &identity.Identity{UID: "cust-1", Role: identity.RoleCustomer}
	owner    = &identity.Identity{UID: "owner-1", Role: identity.RoleOwner}
	admin    = &identity.Identity{UID: "admin-1", Role: identity.RoleAdmin}
	stranger = &identity.Identity{UID: "someone", Role: identity.RoleCustomer}
)

type fixture struct {
	repo     *memoryRepo.BookingRepo
	notifier *fakeNotifier
	events   *events.RecordingPublisher
	svc      *DefaultBookingService
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	dir := memoryRepo.NewDirectory()
	dir.AddVehicle(models.Vehicle{ID: "veh-1", OwnerID: owner.UID, Active: true})
	dir.AddVehicle(models.Vehicle{ID: "veh-off", OwnerID: owner.UID, Active: false})

	f := &fixture{
		repo:     memoryRepo.NewBookingRepo(),
		notifier: &fakeNotifier{},
		events:   &events.RecordingPublisher{},
	}
	f.svc = NewBookingService(f.repo, dir, f.notifier, f.events, zap.NewNop(), "RWF")
	f.svc.now = func() time.Time { return time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC) }
	return f
}

func validInput() models.BookingInput {
	return models.BookingInput{
		VehicleID: "veh-1",
		Pickup:    models.Stop{Date: "2026-03-10", Time: "09:00", Location: "Kigali"},
		Dropoff:   models.Stop{Date: "2026-03-12", Time: "09:00", Location: "Kigali"},
		Price:     50000,
	}
}

func (f *fixture) create(t *testing.T) *models.Booking {
	t.Helper()
	b, err := f.svc.CreateBooking(context.Background(), validInput(), customer.UID)
	if err != nil {
		t.Fatalf("CreateBooking: %v", err)
	}
	return b
}

func TestCreateBooking(t *testing.T) {
	f := newFixture(t)
	b := f.create(t)

	if b.Status != models.BookingPending || b.PaymentStatus != models.PaymentStatusPending {
		t.Fatalf("unexpected initial state %s/%s", b.Status, b.PaymentStatus)
	}
	if b.RentalDays != 2 || b.TotalPrice != 100000 || b.OwnerID != owner.UID || b.Currency != "RWF" {
		t.Fatalf("unexpected booking: %+v", b)
	}
	if !regexp.MustCompile(`^INV-20260301-[0-9A-F]{8}$`).MatchString(b.InvoiceNumber) {
		t.Fatalf("unexpected invoice number %q", b.InvoiceNumber)
	}

	inv, err := f.svc.GetInvoice(context.Background(), b.ID, customer)
	if err != nil {
		t.Fatalf("GetInvoice: %v", err)
	}
	if inv.InvoiceNumber != b.InvoiceNumber || inv.TotalPrice != b.TotalPrice {
		t.Fatalf("invoice does not match booking: %+v", inv)
	}

	if got := f.notifier.recipients(); len(got) != 1 || got[0] != owner.UID {
		t.Fatalf("expected owner notification, got %v", got)
	}
	evs := f.events.Events()
	if len(evs) != 1 || evs[0].To != models.BookingPending {
		t.Fatalf("expected one created event, got %+v", evs)
	}
}

func TestCreateBookingValidation(t *testing.T) {
	f := newFixture(t)
	tests := []struct {
		name   string
		mutate func(*models.BookingInput)
		actor  string
		code   string
	}{
		{"missing vehicle", func(in *models.BookingInput) { in.VehicleID = "" }, customer.UID, "missing_vehicle"},
		{"unknown vehicle", func(in *models.BookingInput) { in.VehicleID = "nope" }, customer.UID, "unknown_vehicle"},
		{"inactive vehicle", func(in *models.BookingInput) { in.VehicleID = "veh-off" }, customer.UID, "vehicle_unavailable"},
		{"negative price", func(in *models.BookingInput) { in.Price = -1 }, customer.UID, "invalid_price"},
		{"bad date", func(in *models.BookingInput) { in.Pickup.Date = "10/03/2026" }, customer.UID, "invalid_date"},
		{"dropoff before pickup", func(in *models.BookingInput) { in.Dropoff.Date = "2026-03-01" }, customer.UID, "invalid_dates"},
		{"missing location", func(in *models.BookingInput) { in.Dropoff.Location = "" }, customer.UID, "missing_location"},
		{"own vehicle", func(in *models.BookingInput) {}, owner.UID, "own_vehicle"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			in := validInput()
			tt.mutate(&in)
			_, err := f.svc.CreateBooking(context.Background(), in, tt.actor)
			var appErr *utils.AppError
			if !errors.As(err, &appErr) || appErr.Kind != utils.KindValidation || appErr.Code != tt.code {
				t.Fatalf("expected validation %s, got %v", tt.code, err)
			}
		})
	}
	if f.repo.Count() != 0 {
		t.Fatal("invalid requests must not store bookings")
	}
}

func TestCreateBookingSameDayIsOneDay(t *testing.T) {
	f := newFixture(t)
	in := validInput()
	in.Dropoff.Date = in.Pickup.Date
	in.Dropoff.Time = "18:00"
	b, err := f.svc.CreateBooking(context.Background(), in, customer.UID)
	if err != nil {
		t.Fatalf("CreateBooking: %v", err)
	}
	if b.RentalDays != 1 || b.TotalPrice != 50000 {
		t.Fatalf("expected a single day, got %d days / %d", b.RentalDays, b.TotalPrice)
	}
}

func TestCreateBookingPersistenceFailure(t *testing.T) {
	f := newFixture(t)
	f.repo.FailWrites = errors.New("disk full")
	_, err := f.svc.CreateBooking(context.Background(), validInput(), customer.UID)
	if !utils.IsKind(err, utils.KindPersistence) {
		t.Fatalf("expected persistence error, got %v", err)
	}
	if len(f.notifier.recipients()) != 0 {
		t.Fatal("no notification expected when the booking was not stored")
	}
}

func TestCreateBookingSurvivesNotifierFailure(t *testing.T) {
	f := newFixture(t)
	f.notifier.err = errors.New("queue down")
	if _, err := f.svc.CreateBooking(context.Background(), validInput(), customer.UID); err != nil {
		t.Fatalf("notification failure must not fail the booking: %v", err)
	}
}

func TestApproveAndReject(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	b := f.create(t)
	if _, err := f.svc.Approve(ctx, b.ID, customer); !utils.IsKind(err, utils.KindAuth) {
		t.Fatalf("customer must not approve, got %v", err)
	}
	approved, err := f.svc.Approve(ctx, b.ID, owner)
	if err != nil {
		t.Fatalf("Approve: %v", err)
	}
	if approved.Status != models.BookingApproved || approved.StatusUpdatedBy != owner.UID {
		t.Fatalf("unexpected approved booking: %+v", approved)
	}
	if _, err := f.svc.Approve(ctx, b.ID, owner); !utils.IsKind(err, utils.KindInvalidState) {
		t.Fatalf("second approve must be invalid state, got %v", err)
	}
	if _, err := f.svc.Reject(ctx, b.ID, admin, "late"); !utils.IsKind(err, utils.KindInvalidState) {
		t.Fatalf("reject after approve must be invalid state, got %v", err)
	}

	other := f.create(t)
	rejected, err := f.svc.Reject(ctx, other.ID, admin, "vehicle in repair")
	if err != nil {
		t.Fatalf("Reject: %v", err)
	}
	if rejected.Status != models.BookingRejected {
		t.Fatalf("expected rejected, got %s", rejected.Status)
	}
}

func TestMarkPaidIsIdempotent(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	b := f.create(t)

	if _, err := f.svc.MarkPaid(ctx, b.ID, models.MethodCard); !utils.IsKind(err, utils.KindInvalidState) {
		t.Fatalf("pending booking must not be marked paid, got %v", err)
	}
	if _, err := f.svc.Approve(ctx, b.ID, owner); err != nil {
		t.Fatalf("Approve: %v", err)
	}

	paid, err := f.svc.MarkPaid(ctx, b.ID, models.MethodCard)
	if err != nil {
		t.Fatalf("MarkPaid: %v", err)
	}
	if paid.Status != models.BookingPaid || paid.PaymentStatus != models.PaymentStatusPaid || paid.PaymentMethod != models.MethodCard {
		t.Fatalf("unexpected paid booking: %+v", paid)
	}
	before := len(f.events.Events())

	again, err := f.svc.MarkPaid(ctx, b.ID, models.MethodCard)
	if err != nil {
		t.Fatalf("second MarkPaid: %v", err)
	}
	if again.Status != models.BookingPaid || len(f.events.Events()) != before {
		t.Fatal("second MarkPaid must be a no-op")
	}
}

func TestConcurrentMarkPaidPublishesOnce(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	b := f.create(t)
	if _, err := f.svc.Approve(ctx, b.ID, owner); err != nil {
		t.Fatalf("Approve: %v", err)
	}
	before := len(f.events.Events())

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := f.svc.MarkPaid(ctx, b.ID, models.MethodOnline); err != nil {
				t.Errorf("MarkPaid: %v", err)
			}
		}()
	}
	wg.Wait()

	if got := len(f.events.Events()) - before; got != 1 {
		t.Fatalf("expected exactly one paid event, got %d", got)
	}
}

func TestCancel(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	b := f.create(t)
	if _, err := f.svc.Cancel(ctx, b.ID, stranger, ""); !utils.IsKind(err, utils.KindAuth) {
		t.Fatalf("stranger must not cancel, got %v", err)
	}
	cancelled, err := f.svc.Cancel(ctx, b.ID, customer, "plans changed")
	if err != nil {
		t.Fatalf("Cancel: %v", err)
	}
	if cancelled.Status != models.BookingCancelled {
		t.Fatalf("expected cancelled, got %s", cancelled.Status)
	}
	recipients := f.notifier.recipients()
	if recipients[len(recipients)-1] != owner.UID {
		t.Fatalf("counterparty of a customer cancel is the owner, got %v", recipients)
	}
	if _, err := f.svc.Cancel(ctx, b.ID, customer, ""); !utils.IsKind(err, utils.KindInvalidState) {
		t.Fatalf("cancelled booking is terminal, got %v", err)
	}
}

func TestCancelPaidBookingLeavesStateUnchanged(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	b := f.create(t)
	if _, err := f.svc.Approve(ctx, b.ID, owner); err != nil {
		t.Fatalf("Approve: %v", err)
	}
	if _, err := f.svc.MarkPaid(ctx, b.ID, models.MethodCard); err != nil {
		t.Fatalf("MarkPaid: %v", err)
	}

	_, err := f.svc.Cancel(ctx, b.ID, customer, "")
	if !utils.IsKind(err, utils.KindInvalidState) {
		t.Fatalf("expected invalid state, got %v", err)
	}
	stored, _ := f.repo.GetByID(ctx, b.ID)
	if stored.Status != models.BookingPaid || stored.PaymentStatus != models.PaymentStatusPaid {
		t.Fatalf("state changed by rejected cancel: %s/%s", stored.Status, stored.PaymentStatus)
	}
}

func TestComplete(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	b := f.create(t)
	if _, err := f.svc.Complete(ctx, b.ID, owner); !utils.IsKind(err, utils.KindInvalidState) {
		t.Fatalf("pending booking cannot complete, got %v", err)
	}
	if _, err := f.svc.Approve(ctx, b.ID, owner); err != nil {
		t.Fatalf("Approve: %v", err)
	}
	if _, err := f.svc.MarkPaid(ctx, b.ID, models.MethodCard); err != nil {
		t.Fatalf("MarkPaid: %v", err)
	}
	done, err := f.svc.Complete(ctx, b.ID, owner)
	if err != nil {
		t.Fatalf("Complete: %v", err)
	}
	if done.Status != models.BookingCompleted || !done.IsTerminal() {
		t.Fatalf("expected completed, got %s", done.Status)
	}

	again, err := f.svc.MarkPaid(ctx, b.ID, models.MethodCard)
	if err != nil || again.Status != models.BookingCompleted {
		t.Fatalf("late MarkPaid must leave completed booking alone: %v %+v", err, again)
	}
}

func TestCompleteFreeRentalWithoutPayment(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	in := validInput()
	in.Price = 0
	b, err := f.svc.CreateBooking(ctx, in, customer.UID)
	if err != nil {
		t.Fatalf("CreateBooking: %v", err)
	}
	if b.TotalPrice != 0 {
		t.Fatalf("expected a free booking, got total %d", b.TotalPrice)
	}
	if _, err := f.svc.Complete(ctx, b.ID, owner); !utils.IsKind(err, utils.KindInvalidState) {
		t.Fatalf("free booking still needs approval, got %v", err)
	}
	if _, err := f.svc.Approve(ctx, b.ID, owner); err != nil {
		t.Fatalf("Approve: %v", err)
	}
	done, err := f.svc.Complete(ctx, b.ID, owner)
	if err != nil {
		t.Fatalf("Complete: %v", err)
	}
	if done.Status != models.BookingCompleted || done.PaymentStatus != models.PaymentStatusPending {
		t.Fatalf("unexpected free completion %s/%s", done.Status, done.PaymentStatus)
	}

	paid := f.create(t)
	if _, err := f.svc.Approve(ctx, paid.ID, owner); err != nil {
		t.Fatalf("Approve: %v", err)
	}
	if _, err := f.svc.Complete(ctx, paid.ID, owner); !utils.IsKind(err, utils.KindInvalidState) {
		t.Fatalf("priced booking must be paid before completion, got %v", err)
	}
}

func TestGetBookingAccess(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	b := f.create(t)

	for _, actor := range []*identity.Identity{customer, owner, admin} {
		if _, err := f.svc.GetBooking(ctx, b.ID, actor); err != nil {
			t.Errorf("%s should read the booking: %v", actor.UID, err)
		}
	}
	if _, err := f.svc.GetBooking(ctx, b.ID, stranger); !utils.IsKind(err, utils.KindAuth) {
		t.Fatalf("stranger must be forbidden, got %v", err)
	}
	if _, err := f.svc.GetBooking(ctx, "missing", admin); !utils.IsKind(err, utils.KindNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
}
