package notification

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	memoryRepo "rentwheels/database/repository/memory"
	"rentwheels/models"
	"rentwheels/services/identity"
	"rentwheels/utils"

	"go.uber.org/zap"
)

type fakeChannel struct {
	name string
	mu   sync.Mutex
	err  error
	sent []string
}

func (f *fakeChannel) Name() string { return f.name }

func (f *fakeChannel) Send(ctx context.Context, n *models.Notification, to *models.Contact) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return f.err
	}
	f.sent = append(f.sent, n.ID)
	return nil
}

func (f *fakeChannel) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.sent)
}

type recordingEnqueuer struct {
	ids []string
	err error
}

func (r *recordingEnqueuer) EnqueueSend(ctx context.Context, id string) error {
	r.ids = append(r.ids, id)
	return r.err
}

type fixture struct {
	repo  *memoryRepo.NotificationRepo
	email *fakeChannel
	sms   *fakeChannel
	push  *fakeChannel
	d     *Dispatcher
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	dir := memoryRepo.NewDirectory()
	dir.AddContact(models.Contact{UserID: "u1", Email: "u1@example.com", Phone: "+250780000001", FCMToken: "tok-1"})
	f := &fixture{
		repo:  memoryRepo.NewNotificationRepo(),
		email: &fakeChannel{name: models.ChannelEmail},
		sms:   &fakeChannel{name: models.ChannelSMS},
		push:  &fakeChannel{name: models.ChannelInApp},
	}
	f.d = NewDispatcher(f.repo, dir, []Channel{f.email, f.sms, f.push}, NewMemoryLocker(), nil, 3, zap.NewNop())
	return f
}

func (f *fixture) seed(t *testing.T, n models.Notification) {
	t.Helper()
	if n.Channels == nil {
		n.Channels = models.AllChannels
	}
	if err := f.repo.Create(context.Background(), &n); err != nil {
		t.Fatalf("seed: %v", err)
	}
}

func TestNotifyPersistsAndEnqueues(t *testing.T) {
	f := newFixture(t)
	q := &recordingEnqueuer{err: errors.New("redis down")}
	f.d.SetEnqueuer(q)

	n, err := f.d.Notify(context.Background(), Message{UserID: "u1", Title: "Hi", Message: "There"})
	if err != nil {
		t.Fatalf("Notify: %v", err)
	}
	if n.Processed || n.Type != models.NotificationSystemAlert || len(n.Channels) != 3 {
		t.Fatalf("unexpected notification: %+v", n)
	}
	if len(q.ids) != 1 || q.ids[0] != n.ID {
		t.Fatalf("expected one enqueue for %s, got %v", n.ID, q.ids)
	}
	if _, err := f.repo.GetByID(context.Background(), n.ID); err != nil {
		t.Fatalf("notification not stored despite enqueue failure: %v", err)
	}
}

func TestNotifyValidation(t *testing.T) {
	f := newFixture(t)
	tests := []Message{
		{Title: "", Message: "x"},
		{Title: "x", Message: " "},
		{Title: "x", Message: "y", Channels: []string{"pigeon"}},
	}
	for i, msg := range tests {
		_, err := f.d.Notify(context.Background(), msg)
		if !utils.IsKind(err, utils.KindValidation) {
			t.Errorf("case %d: expected validation error, got %v", i, err)
		}
	}
}

func TestSendByIDDeliversAllChannels(t *testing.T) {
	f := newFixture(t)
	f.seed(t, models.Notification{ID: "n1", UserID: "u1", Title: "t", Message: "m"})

	res, err := f.d.SendByID(context.Background(), "n1", SendOptions{})
	if err != nil {
		t.Fatalf("SendByID: %v", err)
	}
	if res.Status != ResultSent || !res.Processed || res.Attempts != 1 {
		t.Fatalf("unexpected result: %+v", res)
	}
	if f.email.count() != 1 || f.sms.count() != 1 || f.push.count() != 1 {
		t.Fatalf("expected one send per channel")
	}
}

func TestSendByIDProcessedWithoutForceIsNoop(t *testing.T) {
	f := newFixture(t)
	f.seed(t, models.Notification{ID: "n1", UserID: "u1", Title: "t", Message: "m", Processed: true, Attempts: 1})

	res, err := f.d.SendByID(context.Background(), "n1", SendOptions{})
	if err != nil {
		t.Fatalf("SendByID: %v", err)
	}
	if res.Status != ResultNoop {
		t.Fatalf("expected noop, got %s", res.Status)
	}
	if f.email.count()+f.sms.count()+f.push.count() != 0 {
		t.Fatal("processed notification must not be re-sent without force")
	}
}

func TestSendByIDForceResendsProcessed(t *testing.T) {
	f := newFixture(t)
	f.seed(t, models.Notification{ID: "n1", UserID: "u1", Title: "t", Message: "m", Processed: true})

	res, err := f.d.SendByID(context.Background(), "n1", SendOptions{Force: true, Channels: []string{models.ChannelEmail}})
	if err != nil {
		t.Fatalf("SendByID: %v", err)
	}
	if res.Status != ResultSent || f.email.count() != 1 || f.sms.count() != 0 {
		t.Fatalf("forced single-channel resend went wrong: %+v", res)
	}
}

func TestSendByIDPartialFailureRetriesOnlyFailedChannel(t *testing.T) {
	f := newFixture(t)
	f.sms.err = errors.New("gateway 503")
	f.seed(t, models.Notification{ID: "n1", UserID: "u1", Title: "t", Message: "m"})

	res, err := f.d.SendByID(context.Background(), "n1", SendOptions{})
	if err != nil {
		t.Fatalf("SendByID: %v", err)
	}
	if res.Status != ResultFailed || res.Processed {
		t.Fatalf("expected failed, unprocessed result: %+v", res)
	}

	f.sms.err = nil
	res, err = f.d.SendByID(context.Background(), "n1", SendOptions{})
	if err != nil {
		t.Fatalf("second SendByID: %v", err)
	}
	if !res.Processed || res.Attempts != 2 {
		t.Fatalf("expected processed after retry: %+v", res)
	}
	if f.email.count() != 1 || f.push.count() != 1 || f.sms.count() != 1 {
		t.Fatalf("delivered channels were re-sent: email=%d push=%d sms=%d", f.email.count(), f.push.count(), f.sms.count())
	}
}

func TestSendByIDExhaustsAfterMaxAttempts(t *testing.T) {
	f := newFixture(t)
	f.push.err = errors.New("fcm unavailable")
	f.seed(t, models.Notification{ID: "n1", UserID: "u1", Title: "t", Message: "m", Attempts: 2})

	res, err := f.d.SendByID(context.Background(), "n1", SendOptions{})
	if err != nil {
		t.Fatalf("SendByID: %v", err)
	}
	if res.Status != ResultExhausted || !res.Processed {
		t.Fatalf("expected exhausted and processed: %+v", res)
	}
	stored, _ := f.repo.GetByID(context.Background(), "n1")
	if stored.LastError == "" {
		t.Fatal("lastError must be kept on exhaustion")
	}
}

func TestSendByIDSkipsChannelsWithoutAddress(t *testing.T) {
	f := newFixture(t)
	f.d.channels[models.ChannelEmail] = NewEmailChannel("localhost", 25, "", "", "noreply@example.com")
	f.seed(t, models.Notification{ID: "n1", UserID: "nobody", Title: "t", Message: "m", Channels: []string{models.ChannelEmail}})

	res, err := f.d.SendByID(context.Background(), "n1", SendOptions{})
	if err != nil {
		t.Fatalf("SendByID: %v", err)
	}
	if res.Deliveries[models.ChannelEmail].Status != models.DeliverySkipped || !res.Processed {
		t.Fatalf("expected skipped delivery and processed: %+v", res)
	}
}

func TestSendByIDLocked(t *testing.T) {
	f := newFixture(t)
	f.seed(t, models.Notification{ID: "n1", UserID: "u1", Title: "t", Message: "m"})

	unlock, ok, _ := f.d.locker.TryLock(context.Background(), lockKey("n1"), time.Minute)
	if !ok {
		t.Fatal("could not take lock")
	}
	defer unlock()

	res, err := f.d.SendByID(context.Background(), "n1", SendOptions{})
	if err != nil {
		t.Fatalf("SendByID: %v", err)
	}
	if res.Status != ResultSkipped || res.Reason != "locked" {
		t.Fatalf("expected locked skip, got %+v", res)
	}
}

func TestSendByIDUnknown(t *testing.T) {
	f := newFixture(t)
	if _, err := f.d.SendByID(context.Background(), "missing", SendOptions{}); !utils.IsKind(err, utils.KindNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
	if _, err := f.d.SendByID(context.Background(), "", SendOptions{}); !utils.IsKind(err, utils.KindValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
}

func TestRetryFailedHonoursLimitAndSkipsProcessed(t *testing.T) {
	f := newFixture(t)
	base := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	for i := 0; i < 5; i++ {
		f.seed(t, models.Notification{
			ID: fmt.Sprintf("n%d", i), UserID: "u1", Title: "t", Message: "m",
			CreatedAt: base.Add(time.Duration(i) * time.Minute),
		})
	}
	f.seed(t, models.Notification{ID: "done", UserID: "u1", Title: "t", Message: "m", Processed: true, Attempts: 1, CreatedAt: base.Add(-time.Hour)})

	res, err := f.d.RetryFailed(context.Background(), 3)
	if err != nil {
		t.Fatalf("RetryFailed: %v", err)
	}
	if res.Count != 3 {
		t.Fatalf("expected 3 processed, got %d", res.Count)
	}
	for i, item := range res.Results {
		if want := fmt.Sprintf("n%d", i); item.NotificationID != want {
			t.Errorf("result %d: expected %s, got %s", i, want, item.NotificationID)
		}
	}
	done, _ := f.repo.GetByID(context.Background(), "done")
	if done.Attempts != 1 {
		t.Fatal("processed notification was touched by the sweep")
	}
}

func TestRetryFailedContinuesPastErrors(t *testing.T) {
	f := newFixture(t)
	f.email.err = errors.New("smtp down")
	f.seed(t, models.Notification{ID: "a", UserID: "u1", Title: "t", Message: "m", CreatedAt: time.Now().Add(-2 * time.Minute)})
	f.seed(t, models.Notification{ID: "b", UserID: "u1", Title: "t", Message: "m", CreatedAt: time.Now().Add(-time.Minute)})

	res, err := f.d.RetryFailed(context.Background(), 0)
	if err != nil {
		t.Fatalf("RetryFailed: %v", err)
	}
	if res.Count != 2 {
		t.Fatalf("expected both items attempted, got %d", res.Count)
	}
	for _, item := range res.Results {
		if item.Result == nil || item.Result.Status != ResultFailed {
			t.Errorf("%s: expected failed result, got %+v", item.NotificationID, item)
		}
	}
}

func TestClampLimit(t *testing.T) {
	tests := map[int]int{0: 50, -1: 50, 10: 10, 500: 500, 900: 500}
	for in, want := range tests {
		if got := clampLimit(in); got != want {
			t.Errorf("clampLimit(%d) = %d, want %d", in, got, want)
		}
	}
}

func TestMarkRead(t *testing.T) {
	f := newFixture(t)
	f.seed(t, models.Notification{ID: "n1", UserID: "u1", Title: "t", Message: "m"})
	ctx := context.Background()

	if err := f.d.MarkRead(ctx, "n1", &identity.Identity{UID: "u2", Role: identity.RoleCustomer}); !utils.IsKind(err, utils.KindAuth) {
		t.Fatalf("expected auth error for stranger, got %v", err)
	}
	if err := f.d.MarkRead(ctx, "n1", &identity.Identity{UID: "u1", Role: identity.RoleCustomer}); err != nil {
		t.Fatalf("MarkRead: %v", err)
	}
	n, _ := f.repo.GetByID(ctx, "n1")
	if !n.Read {
		t.Fatal("notification not marked read")
	}
	if err := f.d.MarkRead(ctx, "missing", &identity.Identity{UID: "u1"}); !utils.IsKind(err, utils.KindNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
}
