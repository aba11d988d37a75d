package tasks

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/hibiken/asynq"
)

const (
	TypeNotificationSend  = "notification:send"
	TypeNotificationRetry = "notification:retry"

	// QueueNotifications is the asynq queue both task types run on.
	QueueNotifications = "notifications"
)

type NotificationSendPayload struct {
	NotificationID string `json:"notificationId"`
}

type NotificationRetryPayload struct {
	Limit int `json:"limit"`
}

func NewNotificationSendTask(notificationID string) (*asynq.Task, []asynq.Option, error) {
	b, err := json.Marshal(NotificationSendPayload{NotificationID: notificationID})
	if err != nil {
		return nil, nil, err
	}
	task := asynq.NewTask(TypeNotificationSend, b)
	opts := []asynq.Option{
		asynq.Queue(QueueNotifications),
		asynq.MaxRetry(3),
		asynq.Timeout(time.Minute),
	}
	return task, opts, nil
}

func NewNotificationRetryTask(limit int) (*asynq.Task, []asynq.Option, error) {
	b, err := json.Marshal(NotificationRetryPayload{Limit: limit})
	if err != nil {
		return nil, nil, err
	}
	task := asynq.NewTask(TypeNotificationRetry, b)
	opts := []asynq.Option{
		asynq.Queue(QueueNotifications),
		asynq.MaxRetry(0),
		asynq.Timeout(10 * time.Minute),
	}
	return task, opts, nil
}

// AsynqEnqueuer puts send tasks on the asynq queue.
type AsynqEnqueuer struct {
	client *asynq.Client
}

func NewAsynqEnqueuer(client *asynq.Client) *AsynqEnqueuer {
	return &AsynqEnqueuer{client: client}
}

func (e *AsynqEnqueuer) EnqueueSend(ctx context.Context, notificationID string) error {
	task, opts, err := NewNotificationSendTask(notificationID)
	if err != nil {
		return err
	}
	if _, err := e.client.EnqueueContext(ctx, task, opts...); err != nil {
		return fmt.Errorf("enqueue %s: %w", TypeNotificationSend, err)
	}
	return nil
}
