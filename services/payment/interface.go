package payment

import (
	"context"
	"encoding/json"
	"time"

	bookingRepo "rentwheels/database/repository/booking"
	paymentRepo "rentwheels/database/repository/payment"
	"rentwheels/models"
	"rentwheels/services/identity"
	"rentwheels/services/notification"
	"rentwheels/services/payment/providers"

	"go.uber.org/zap"
)

// SettleInput is a customer's request to pay a booking.
type SettleInput struct {
	BookingID  string
	CustomerID string
	Amount     int64
	Method     string
	Details    json.RawMessage
}

// SettlementResult is returned by Settle.
type SettlementResult struct {
	TransactionID    string `json:"transactionId"`
	Reference        string `json:"reference"`
	Status           string `json:"status"`
	AuthorizationURL string `json:"authorizationUrl,omitempty"`
	PaymentStatus    string `json:"paymentStatus"`
}

// VerificationResult is returned by Verify.
type VerificationResult struct {
	BookingID string `json:"bookingId"`
	Reference string `json:"reference"`
	Amount    int64  `json:"amount"`
	Status    string `json:"status"`
}

type PaymentService interface {
	Settle(ctx context.Context, in SettleInput) (*SettlementResult, error)
	Verify(ctx context.Context, reference string) (*VerificationResult, error)
	// ConfirmCash is the owner's acknowledgement that a cash payment was
	// handed over.
	ConfirmCash(ctx context.Context, bookingID string, actor *identity.Identity) (*models.Booking, error)
}

// BookingPayer is the part of the booking service payments may drive.
type BookingPayer interface {
	MarkPaid(ctx context.Context, bookingID, method string) (*models.Booking, error)
}

type Notifier interface {
	Notify(ctx context.Context, msg notification.Message) (*models.Notification, error)
}

// Options carries the orchestrator's tunables. Locker serializes settlements
// per booking; a process-local locker is used when it is nil.
type Options struct {
	Currency        string
	ProviderTimeout time.Duration
	ReferenceTTL    time.Duration
	Locker          notification.Locker
}

// Orchestrator implements PaymentService.
type Orchestrator struct {
	bookings bookingRepo.BookingRepository
	payer    BookingPayer
	payments paymentRepo.PaymentRepository
	rails    map[string]providers.Provider
	redirect providers.RedirectProvider
	notifier Notifier
	locker   notification.Locker
	opts     Options
	logger   *zap.Logger
	now      func() time.Time
}

// NewOrchestrator wires the rails by method. The redirect provider serves both
// bank transfer and online payments.
func NewOrchestrator(
	bookings bookingRepo.BookingRepository,
	payer BookingPayer,
	payments paymentRepo.PaymentRepository,
	card providers.Provider,
	mobileMoney providers.Provider,
	redirect providers.RedirectProvider,
	notifier Notifier,
	opts Options,
	logger *zap.Logger,
) *Orchestrator {
	if opts.ProviderTimeout <= 0 {
		opts.ProviderTimeout = 30 * time.Second
	}
	if opts.ReferenceTTL <= 0 {
		opts.ReferenceTTL = 24 * time.Hour
	}
	locker := opts.Locker
	if locker == nil {
		locker = notification.NewMemoryLocker()
	}
	rails := map[string]providers.Provider{
		models.MethodCash: providers.Cash{},
	}
	if card != nil {
		rails[models.MethodCard] = card
	}
	if mobileMoney != nil {
		rails[models.MethodMobileMoney] = mobileMoney
	}
	if redirect != nil {
		rails[models.MethodBankTransfer] = redirect
		rails[models.MethodOnline] = redirect
	}
	return &Orchestrator{
		bookings: bookings,
		payer:    payer,
		payments: payments,
		rails:    rails,
		redirect: redirect,
		notifier: notifier,
		locker:   locker,
		opts:     opts,
		logger:   logger,
		now:      time.Now,
	}
}
