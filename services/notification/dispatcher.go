package notification

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"rentwheels/database/repository"
	"rentwheels/models"
	"rentwheels/services/identity"
	"rentwheels/utils"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Notify stores an unprocessed notification and queues its delivery.
func (d *Dispatcher) Notify(ctx context.Context, msg Message) (*models.Notification, error) {
	if strings.TrimSpace(msg.Title) == "" || strings.TrimSpace(msg.Message) == "" {
		return nil, utils.NewValidationError("invalid_notification", "title and message are required")
	}
	channels := msg.Channels
	if len(channels) == 0 {
		channels = models.AllChannels
	}
	if err := validateChannels(channels); err != nil {
		return nil, err
	}
	kind := msg.Type
	if kind == "" {
		kind = models.NotificationSystemAlert
	}

	now := d.now()
	n := &models.Notification{
		ID:        uuid.New().String(),
		UserID:    msg.UserID,
		Title:     msg.Title,
		Message:   msg.Message,
		Type:      kind,
		Data:      msg.Data,
		Channels:  append([]string(nil), channels...),
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := d.repo.Create(ctx, n); err != nil {
		return nil, utils.NewPersistenceError("could not store notification", err)
	}

	if d.enqueuer != nil {
		if err := d.enqueuer.EnqueueSend(ctx, n.ID); err != nil {
			d.logger.Warn("notification: enqueue failed, left for retry sweep",
				zap.String("notificationId", n.ID), zap.Error(err))
		}
	}
	return n, nil
}

// SendByID attempts delivery of a stored notification.
func (d *Dispatcher) SendByID(ctx context.Context, id string, opts SendOptions) (*SendResult, error) {
	if strings.TrimSpace(id) == "" {
		return nil, utils.NewValidationError("missing_id", "notification id is required")
	}
	if err := validateChannels(opts.Channels); err != nil {
		return nil, err
	}

	n, err := d.load(ctx, id)
	if err != nil {
		return nil, err
	}
	if res := d.shortCircuit(n, opts); res != nil {
		return res, nil
	}

	unlock, acquired, err := d.locker.TryLock(ctx, lockKey(id), d.lockTTL)
	if err != nil {
		return nil, utils.NewPersistenceError("notification lock unavailable", err)
	}
	if !acquired {
		return &SendResult{NotificationID: id, Status: ResultSkipped, Reason: "locked", Processed: n.Processed, Attempts: n.Attempts}, nil
	}
	defer unlock()

	// Re-read under the lock; another sender may have finished first.
	n, err = d.load(ctx, id)
	if err != nil {
		return nil, err
	}
	if res := d.shortCircuit(n, opts); res != nil {
		return res, nil
	}

	contact, err := d.contactFor(ctx, n.UserID)
	if err != nil {
		return nil, err
	}

	deliveries := make(map[string]models.Delivery)
	var failures []string
	for _, name := range selectChannels(n, opts) {
		delivery := d.deliver(ctx, name, n, contact)
		deliveries[name] = delivery
		if delivery.Status == models.DeliveryFailed {
			failures = append(failures, name+": "+delivery.Reason)
		}
	}

	attempts := n.Attempts + 1
	exhausted := len(failures) > 0 && attempts >= d.maxAttempts
	attempt := models.NotificationAttempt{
		Deliveries: deliveries,
		Processed:  len(failures) == 0 || exhausted,
		LastError:  strings.Join(failures, "; "),
		At:         d.now(),
	}
	if len(failures) == 0 {
		attempt.LastError = ""
	}

	updated, err := d.repo.RecordAttempt(ctx, id, attempt)
	if err != nil {
		return nil, utils.NewPersistenceError("could not record notification attempt", err)
	}

	res := &SendResult{
		NotificationID: id,
		Status:         ResultSent,
		Deliveries:     deliveries,
		Processed:      updated.Processed,
		Attempts:       updated.Attempts,
	}
	switch {
	case exhausted:
		res.Status = ResultExhausted
		res.Reason = attempt.LastError
		d.logger.Warn("notification: attempts exhausted",
			zap.String("notificationId", id), zap.Int("attempts", updated.Attempts), zap.String("lastError", attempt.LastError))
	case len(failures) > 0:
		res.Status = ResultFailed
		res.Reason = attempt.LastError
		d.logger.Info("notification: delivery failed, will retry",
			zap.String("notificationId", id), zap.Int("attempts", updated.Attempts), zap.String("lastError", attempt.LastError))
	default:
		d.logger.Debug("notification: delivered", zap.String("notificationId", id), zap.Int("attempts", updated.Attempts))
	}
	return res, nil
}

// RetryFailed re-sends up to limit unprocessed notifications, oldest first.
// Individual failures are reported per item and never stop the sweep.
func (d *Dispatcher) RetryFailed(ctx context.Context, limit int) (*RetryResult, error) {
	limit = clampLimit(limit)
	pending, err := d.repo.ListUnprocessed(ctx, limit)
	if err != nil {
		return nil, utils.NewPersistenceError("could not list unprocessed notifications", err)
	}

	out := &RetryResult{Results: make([]RetryItem, 0, len(pending))}
	for _, n := range pending {
		if ctx.Err() != nil {
			break
		}
		item := RetryItem{NotificationID: n.ID}
		res, err := d.SendByID(ctx, n.ID, SendOptions{Force: true, onlyUnprocessed: true})
		if err != nil {
			item.Error = err.Error()
		} else {
			item.Result = res
		}
		out.Results = append(out.Results, item)
	}
	out.Count = len(out.Results)

	d.logger.Info("notification: retry sweep finished", zap.Int("limit", limit), zap.Int("count", out.Count))
	return out, nil
}

// MarkRead flags a notification as read by its recipient. Broadcasts can only
// be marked by an admin.
func (d *Dispatcher) MarkRead(ctx context.Context, id string, actor *identity.Identity) error {
	n, err := d.load(ctx, id)
	if err != nil {
		return err
	}
	if actor == nil || (!actor.IsAdmin() && (n.UserID == "" || n.UserID != actor.UID)) {
		return utils.NewForbiddenError("not allowed to update this notification")
	}
	if n.Read {
		return nil
	}
	if err := d.repo.MarkRead(ctx, id); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return utils.NewNotFoundError("notification not found")
		}
		return utils.NewPersistenceError("could not mark notification read", err)
	}
	return nil
}

func (d *Dispatcher) ListForUser(ctx context.Context, userID string, limit int) ([]models.Notification, error) {
	if userID == "" {
		return nil, utils.NewValidationError("missing_user", "user id is required")
	}
	list, err := d.repo.ListForUser(ctx, userID, clampLimit(limit))
	if err != nil {
		return nil, utils.NewPersistenceError("could not list notifications", err)
	}
	return list, nil
}

func (d *Dispatcher) load(ctx context.Context, id string) (*models.Notification, error) {
	n, err := d.repo.GetByID(ctx, id)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, utils.NewNotFoundError("notification not found")
	}
	if err != nil {
		return nil, utils.NewPersistenceError("could not load notification", err)
	}
	return n, nil
}

func (d *Dispatcher) shortCircuit(n *models.Notification, opts SendOptions) *SendResult {
	if !n.Processed || (opts.Force && !opts.onlyUnprocessed) {
		return nil
	}
	return &SendResult{NotificationID: n.ID, Status: ResultNoop, Reason: "already processed", Processed: true, Attempts: n.Attempts}
}

func (d *Dispatcher) contactFor(ctx context.Context, userID string) (*models.Contact, error) {
	if userID == "" || d.contacts == nil {
		return &models.Contact{UserID: userID}, nil
	}
	c, err := d.contacts.GetContact(ctx, userID)
	if errors.Is(err, repository.ErrNotFound) {
		return &models.Contact{UserID: userID}, nil
	}
	if err != nil {
		return nil, utils.NewPersistenceError("could not load contact", err)
	}
	return c, nil
}

func (d *Dispatcher) deliver(ctx context.Context, name string, n *models.Notification, to *models.Contact) models.Delivery {
	at := d.now()
	ch, ok := d.channels[name]
	if !ok {
		return models.Delivery{Status: models.DeliverySkipped, Reason: "channel not configured", AttemptAt: at}
	}
	err := ch.Send(ctx, n, to)
	switch {
	case err == nil:
		return models.Delivery{Status: models.DeliverySent, AttemptAt: at}
	case errors.Is(err, ErrNoAddress):
		return models.Delivery{Status: models.DeliverySkipped, Reason: err.Error(), AttemptAt: at}
	default:
		return models.Delivery{Status: models.DeliveryFailed, Reason: err.Error(), AttemptAt: at}
	}
}

// selectChannels picks explicit channels when given. Otherwise it retries the
// notification's channels that have not reached a final outcome, or all of
// them when re-sending something already processed.
func selectChannels(n *models.Notification, opts SendOptions) []string {
	if len(opts.Channels) > 0 {
		return dedupe(opts.Channels)
	}
	requested := n.Channels
	if len(requested) == 0 {
		requested = models.AllChannels
	}
	if n.Processed {
		return dedupe(requested)
	}
	var out []string
	for _, name := range dedupe(requested) {
		if d, ok := n.Deliveries[name]; ok && d.Status != models.DeliveryFailed {
			continue
		}
		out = append(out, name)
	}
	return out
}

func validateChannels(channels []string) error {
	for _, ch := range channels {
		switch ch {
		case models.ChannelEmail, models.ChannelSMS, models.ChannelInApp:
		default:
			return utils.NewValidationError("unknown_channel", fmt.Sprintf("unknown channel %q", ch))
		}
	}
	return nil
}

func dedupe(in []string) []string {
	seen := make(map[string]bool, len(in))
	out := make([]string, 0, len(in))
	for _, s := range in {
		if !seen[s] {
			seen[s] = true
			out = append(out, s)
		}
	}
	return out
}

func clampLimit(limit int) int {
	if limit <= 0 {
		return DefaultRetryLimit
	}
	if limit > MaxRetryLimit {
		return MaxRetryLimit
	}
	return limit
}

func lockKey(id string) string {
	return "notification:lock:" + id
}
