package handlers

import (
	"rentwheels/services/identity"

	"go.uber.org/zap"
)

// HandlerBundle groups every HTTP handler and what the routes need to guard
// them.
type HandlerBundle struct {
	Verifier identity.Verifier
	Logger   *zap.Logger

	Booking      *BookingHandler
	Payment      *PaymentHandler
	Notification *NotificationHandler
	Health       *HealthHandler
}
