package memoryRepo

import (
	"context"
	"sort"
	"sync"

	"rentwheels/database/repository"
	"rentwheels/models"
)

// NotificationRepo stores notifications in a map.
type NotificationRepo struct {
	mu    sync.Mutex
	items map[string]models.Notification
}

func NewNotificationRepo() *NotificationRepo {
	return &NotificationRepo{items: make(map[string]models.Notification)}
}

func (r *NotificationRepo) Create(ctx context.Context, n *models.Notification) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.items[n.ID]; exists {
		return repository.ErrDuplicate
	}
	r.items[n.ID] = copyNotification(*n)
	return nil
}

func (r *NotificationRepo) GetByID(ctx context.Context, id string) (*models.Notification, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	n, ok := r.items[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	out := copyNotification(n)
	return &out, nil
}

func (r *NotificationRepo) ListUnprocessed(ctx context.Context, limit int) ([]models.Notification, error) {
	return r.list(limit, true, func(n models.Notification) bool { return !n.Processed })
}

func (r *NotificationRepo) ListForUser(ctx context.Context, userID string, limit int) ([]models.Notification, error) {
	return r.list(limit, false, func(n models.Notification) bool { return n.UserID == userID })
}

func (r *NotificationRepo) list(limit int, oldestFirst bool, match func(models.Notification) bool) ([]models.Notification, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	out := []models.Notification{}
	for _, n := range r.items {
		if match(n) {
			out = append(out, copyNotification(n))
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if oldestFirst {
			return out[i].CreatedAt.Before(out[j].CreatedAt)
		}
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (r *NotificationRepo) RecordAttempt(ctx context.Context, id string, attempt models.NotificationAttempt) (*models.Notification, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	n, ok := r.items[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	n = copyNotification(n)
	if n.Deliveries == nil {
		n.Deliveries = make(map[string]models.Delivery, len(attempt.Deliveries))
	}
	for channel, d := range attempt.Deliveries {
		n.Deliveries[channel] = d
	}
	n.Attempts++
	n.Processed = attempt.Processed
	n.LastError = attempt.LastError
	n.UpdatedAt = attempt.At
	r.items[id] = n

	out := copyNotification(n)
	return &out, nil
}

func (r *NotificationRepo) MarkRead(ctx context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	n, ok := r.items[id]
	if !ok {
		return repository.ErrNotFound
	}
	n.Read = true
	r.items[id] = n
	return nil
}

func copyNotification(n models.Notification) models.Notification {
	if n.Data != nil {
		data := make(map[string]string, len(n.Data))
		for k, v := range n.Data {
			data[k] = v
		}
		n.Data = data
	}
	if n.Deliveries != nil {
		deliveries := make(map[string]models.Delivery, len(n.Deliveries))
		for k, v := range n.Deliveries {
			deliveries[k] = v
		}
		n.Deliveries = deliveries
	}
	n.Channels = append([]string(nil), n.Channels...)
	return n
}
