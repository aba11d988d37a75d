package models

import "time"

// Notification types.
const (
	NotificationBookingUpdate = "booking_update"
	NotificationPaymentUpdate = "payment_update"
	NotificationSystemAlert   = "system_alert"
)

// Delivery channels.
const (
	ChannelEmail = "email"
	ChannelSMS   = "sms"
	ChannelInApp = "in_app"
)

// AllChannels is the default channel set.
var AllChannels = []string{ChannelEmail, ChannelSMS, ChannelInApp}

// Per-channel delivery outcomes.
const (
	DeliverySent    = "sent"
	DeliveryFailed  = "failed"
	DeliverySkipped = "skipped"
)

// Delivery is the latest outcome of one channel for a notification.
type Delivery struct {
	Status    string    `bson:"status" json:"status"`
	Reason    string    `bson:"reason,omitempty" json:"reason,omitempty"`
	AttemptAt time.Time `bson:"attempt_at" json:"attemptAt"`
}

// Notification is a logical message for one user, or a broadcast when UserID
// is empty. Processed is the idempotency marker, Read the recipient's ack.
type Notification struct {
	ID         string              `bson:"id" json:"id"`
	UserID     string              `bson:"user_id,omitempty" json:"userId,omitempty"`
	Title      string              `bson:"title" json:"title"`
	Message    string              `bson:"message" json:"message"`
	Type       string              `bson:"type" json:"type"`
	Data       map[string]string   `bson:"data,omitempty" json:"data,omitempty"`
	Channels   []string            `bson:"channels" json:"channels"`
	Read       bool                `bson:"read" json:"read"`
	Processed  bool                `bson:"processed" json:"processed"`
	Attempts   int                 `bson:"attempts" json:"attempts"`
	Deliveries map[string]Delivery `bson:"deliveries,omitempty" json:"deliveries,omitempty"`
	LastError  string              `bson:"last_error,omitempty" json:"lastError,omitempty"`
	CreatedAt  time.Time           `bson:"created_at" json:"createdAt"`
	UpdatedAt  time.Time           `bson:"updated_at" json:"updatedAt"`
}

// NotificationAttempt is what a send attempt writes back.
type NotificationAttempt struct {
	Deliveries map[string]Delivery
	Processed  bool
	LastError  string
	At         time.Time
}

// SendNotificationRequest is the boundary body of POST /notifications/send.
type SendNotificationRequest struct {
	ID       string   `json:"id" binding:"required"`
	Force    bool     `json:"force,omitempty"`
	Channels []string `json:"channels,omitempty"`
}

// RetryNotificationsRequest is the boundary body of POST /notifications/retry.
type RetryNotificationsRequest struct {
	Limit int `json:"limit,omitempty" binding:"gte=0"`
}
