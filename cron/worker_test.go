package cron

import (
	"context"
	"errors"
	"testing"

	"rentwheels/models"
	"rentwheels/services/identity"
	"rentwheels/services/notification"
	"rentwheels/services/tasks"
	"rentwheels/utils"

	"github.com/hibiken/asynq"
	"go.uber.org/zap"
)

type stubService struct {
	sendErr  error
	sent     []string
	retryArg int
}

func (s *stubService) Notify(ctx context.Context, msg notification.Message) (*models.Notification, error) {
	return nil, nil
}

func (s *stubService) SendByID(ctx context.Context, id string, opts notification.SendOptions) (*notification.SendResult, error) {
	s.sent = append(s.sent, id)
	if s.sendErr != nil {
		return nil, s.sendErr
	}
	return &notification.SendResult{NotificationID: id, Status: notification.ResultFailed}, nil
}

func (s *stubService) RetryFailed(ctx context.Context, limit int) (*notification.RetryResult, error) {
	s.retryArg = limit
	return &notification.RetryResult{Count: 1, Results: []notification.RetryItem{{NotificationID: "a", Error: "boom"}}}, nil
}

func (s *stubService) MarkRead(ctx context.Context, id string, actor *identity.Identity) error {
	return nil
}

func (s *stubService) ListForUser(ctx context.Context, userID string, limit int) ([]models.Notification, error) {
	return nil, nil
}

func TestHandleSendLeavesChannelFailuresToSweep(t *testing.T) {
	svc := &stubService{}
	task, _, _ := tasks.NewNotificationSendTask("n-1")
	if err := handleSend(svc, zap.NewNop())(context.Background(), task); err != nil {
		t.Fatalf("handler: %v", err)
	}
	if len(svc.sent) != 1 || svc.sent[0] != "n-1" {
		t.Fatalf("unexpected sends %v", svc.sent)
	}
}

func TestHandleSendSkipsRetryForMissingNotification(t *testing.T) {
	svc := &stubService{sendErr: utils.NewNotFoundError("notification not found")}
	task, _, _ := tasks.NewNotificationSendTask("gone")
	err := handleSend(svc, zap.NewNop())(context.Background(), task)
	if !errors.Is(err, asynq.SkipRetry) {
		t.Fatalf("expected SkipRetry, got %v", err)
	}
}

func TestHandleSendRetriesStoreErrors(t *testing.T) {
	svc := &stubService{sendErr: utils.NewPersistenceError("db down", errors.New("timeout"))}
	task, _, _ := tasks.NewNotificationSendTask("n-1")
	err := handleSend(svc, zap.NewNop())(context.Background(), task)
	if err == nil || errors.Is(err, asynq.SkipRetry) {
		t.Fatalf("expected retryable error, got %v", err)
	}
}

func TestHandleRetryPassesLimit(t *testing.T) {
	svc := &stubService{}
	task, _, _ := tasks.NewNotificationRetryTask(120)
	if err := handleRetry(svc, zap.NewNop())(context.Background(), task); err != nil {
		t.Fatalf("handler: %v", err)
	}
	if svc.retryArg != 120 {
		t.Fatalf("expected limit 120, got %d", svc.retryArg)
	}
}

func TestHandleSendBadPayload(t *testing.T) {
	task := asynq.NewTask(tasks.TypeNotificationSend, []byte("{"))
	if err := handleSend(&stubService{}, zap.NewNop())(context.Background(), task); !errors.Is(err, asynq.SkipRetry) {
		t.Fatalf("expected SkipRetry, got %v", err)
	}
}
