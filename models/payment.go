package models

import (
	"encoding/json"
	"time"
)

// Payment methods accepted by the orchestrator.
const (
	MethodCard         = "card"
	MethodMobileMoney  = "mobile_money"
	MethodBankTransfer = "bank_transfer"
	MethodOnline       = "online"
	MethodCash         = "cash"
)

// PaymentRecord statuses.
const (
	PaymentInitialized = "initialized"
	PaymentCompleted   = "completed"
	PaymentFailed      = "failed"
)

// PaymentRecord is one settlement attempt. Immutable once completed or
// failed. Its ID doubles as the provider idempotency key.
type PaymentRecord struct {
	ID                string     `bson:"id" json:"id"`
	BookingID         string     `bson:"booking_id" json:"bookingId"`
	CustomerID        string     `bson:"customer_id" json:"customerId"`
	Amount            int64      `bson:"amount" json:"amount"`
	Currency          string     `bson:"currency" json:"currency"`
	Method            string     `bson:"method" json:"method"`
	Provider          string     `bson:"provider" json:"provider"`
	ProviderReference string     `bson:"provider_reference" json:"providerReference"`
	Status            string     `bson:"status" json:"status"`
	FailureReason     string     `bson:"failure_reason,omitempty" json:"failureReason,omitempty"`
	AuthorizationURL  string     `bson:"authorization_url,omitempty" json:"authorizationUrl,omitempty"`
	CreatedAt         time.Time  `bson:"created_at" json:"createdAt"`
	CompletedAt       *time.Time `bson:"completed_at,omitempty" json:"completedAt,omitempty"`
}

// PaymentReference links a redirect provider's reference back to its booking
// until the payment is reconciled or the reservation expires.
type PaymentReference struct {
	Reference  string    `bson:"reference" json:"reference"`
	BookingID  string    `bson:"booking_id" json:"bookingId"`
	CustomerID string    `bson:"customer_id" json:"customerId"`
	PaymentID  string    `bson:"payment_id" json:"paymentId"`
	Amount     int64     `bson:"amount" json:"amount"`
	ExpiresAt  time.Time `bson:"expires_at" json:"expiresAt"`
	CreatedAt  time.Time `bson:"created_at" json:"createdAt"`
}

// SettleRequest is the boundary body of POST /payments/settle. MethodDetails
// stays raw until the method is known.
type SettleRequest struct {
	BookingID     string          `json:"bookingId" binding:"required"`
	Amount        int64           `json:"amount" binding:"required"`
	Method        string          `json:"method" binding:"required"`
	MethodDetails json.RawMessage `json:"methodDetails,omitempty"`
}

// VerifyRequest is the boundary body of POST /payments/verify.
type VerifyRequest struct {
	ProviderReference string `json:"providerReference" binding:"required"`
}
