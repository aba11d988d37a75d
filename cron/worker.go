package cron

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"rentwheels/services/notification"
	"rentwheels/services/tasks"
	"rentwheels/utils"

	"github.com/hibiken/asynq"
	"go.uber.org/zap"
)

// NotificationWorker consumes notification tasks and schedules the retry
// sweep.
type NotificationWorker struct {
	server    *asynq.Server
	scheduler *asynq.Scheduler
	mux       *asynq.ServeMux
	logger    *zap.Logger
}

// WorkerOptions configures NewNotificationWorker.
type WorkerOptions struct {
	Redis       asynq.RedisClientOpt
	RetryCron   string
	RetryLimit  int
	Concurrency int
}

func NewNotificationWorker(opts WorkerOptions, svc notification.NotificationService, logger *zap.Logger) (*NotificationWorker, error) {
	if opts.Concurrency <= 0 {
		opts.Concurrency = 10
	}

	srv := asynq.NewServer(opts.Redis, asynq.Config{
		Concurrency: opts.Concurrency,
		Queues: map[string]int{
			tasks.QueueNotifications: 1,
		},
		Logger: logger.Sugar(),
	})

	mux := asynq.NewServeMux()
	mux.HandleFunc(tasks.TypeNotificationSend, handleSend(svc, logger))
	mux.HandleFunc(tasks.TypeNotificationRetry, handleRetry(svc, logger))

	scheduler := asynq.NewScheduler(opts.Redis, &asynq.SchedulerOpts{Logger: logger.Sugar()})
	if opts.RetryCron != "" {
		task, taskOpts, err := tasks.NewNotificationRetryTask(opts.RetryLimit)
		if err != nil {
			return nil, err
		}
		if _, err := scheduler.Register(opts.RetryCron, task, taskOpts...); err != nil {
			return nil, fmt.Errorf("register retry sweep %q: %w", opts.RetryCron, err)
		}
	}

	return &NotificationWorker{server: srv, scheduler: scheduler, mux: mux, logger: logger}, nil
}

// Start runs the worker and the scheduler in the background. Start-up is
// retried with a growing backoff before giving up.
func (w *NotificationWorker) Start() error {
	const maxAttempts = 5
	var err error
	for attempt := 1; attempt <= maxAttempts; attempt++ {
		if err = w.server.Start(w.mux); err == nil {
			break
		}
		w.logger.Warn("worker: start failed", zap.Int("attempt", attempt), zap.Error(err))
		time.Sleep(time.Duration(attempt*2) * time.Second)
	}
	if err != nil {
		return fmt.Errorf("notification worker: %w", err)
	}
	if err := w.scheduler.Start(); err != nil {
		w.server.Shutdown()
		return fmt.Errorf("notification scheduler: %w", err)
	}
	w.logger.Info("worker: notification worker started")
	return nil
}

func (w *NotificationWorker) Shutdown() {
	w.scheduler.Shutdown()
	w.server.Shutdown()
}

func handleSend(svc notification.NotificationService, logger *zap.Logger) asynq.HandlerFunc {
	return func(ctx context.Context, task *asynq.Task) error {
		var p tasks.NotificationSendPayload
		if err := json.Unmarshal(task.Payload(), &p); err != nil {
			return fmt.Errorf("invalid payload: %v: %w", err, asynq.SkipRetry)
		}

		res, err := svc.SendByID(ctx, p.NotificationID, notification.SendOptions{})
		switch {
		case utils.IsKind(err, utils.KindNotFound), utils.IsKind(err, utils.KindValidation):
			logger.Warn("worker: dropping send task", zap.String("notificationId", p.NotificationID), zap.Error(err))
			return fmt.Errorf("%v: %w", err, asynq.SkipRetry)
		case err != nil:
			return err
		}

		// Channel failures are left to the retry sweep, which owns the
		// attempt budget.
		logger.Debug("worker: send task done",
			zap.String("notificationId", p.NotificationID),
			zap.String("status", res.Status))
		return nil
	}
}

func handleRetry(svc notification.NotificationService, logger *zap.Logger) asynq.HandlerFunc {
	return func(ctx context.Context, task *asynq.Task) error {
		var p tasks.NotificationRetryPayload
		if err := json.Unmarshal(task.Payload(), &p); err != nil {
			return fmt.Errorf("invalid payload: %v: %w", err, asynq.SkipRetry)
		}
		res, err := svc.RetryFailed(ctx, p.Limit)
		if err != nil {
			return err
		}
		failed := 0
		for _, item := range res.Results {
			if item.Error != "" {
				failed++
			}
		}
		logger.Info("worker: retry sweep", zap.Int("count", res.Count), zap.Int("errors", failed))
		return nil
	}
}
