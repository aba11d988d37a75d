// Package providers holds the adapters for the external payment rails.
package providers

import (
	"context"
	"fmt"
	"strings"

	"rentwheels/models"
)

// Charge outcomes.
const (
	StatusCompleted = "completed"
	StatusPending   = "pending"
)

// ChargeRequest is what the orchestrator asks a rail to collect.
type ChargeRequest struct {
	BookingID      string
	CustomerID     string
	Amount         int64
	Currency       string
	IdempotencyKey string
	Details        models.MethodDetails
}

// ChargeResult is a successful provider response. AuthorizationURL is only
// set by redirect rails, whose Status is pending until verified.
type ChargeResult struct {
	Provider         string
	Reference        string
	Status           string
	AuthorizationURL string
}

// VerifyResult is the aggregator's view of a redirect payment.
type VerifyResult struct {
	Reference string
	Success   bool
	Status    string
	Amount    int64
	Currency  string
}

// Provider collects money over one rail.
type Provider interface {
	Name() string
	Charge(ctx context.Context, req ChargeRequest) (*ChargeResult, error)
}

// RedirectProvider is a rail whose payments complete on a hosted page and are
// confirmed later.
type RedirectProvider interface {
	Provider
	Verify(ctx context.Context, reference string) (*VerifyResult, error)
}

// Error is an unsuccessful answer from a provider. Declined marks a refusal
// of the payment itself, as opposed to the provider failing. Ambiguous marks
// answers after which the money may still move, such as a pending debit.
type Error struct {
	Provider  string
	Code      string
	Message   string
	Declined  bool
	Ambiguous bool
}

func (e *Error) Error() string {
	return fmt.Sprintf("%s: %s: %s", e.Provider, e.Code, e.Message)
}

// zeroDecimal lists currencies that have no minor unit.
var zeroDecimal = map[string]bool{
	"rwf": true, "ugx": true, "bif": true, "xaf": true, "xof": true,
	"jpy": true, "krw": true, "vnd": true, "clp": true, "pyg": true,
}

// ToMinor converts a major-unit amount into the provider's smallest unit.
func ToMinor(amount int64, currency string) int64 {
	if zeroDecimal[strings.ToLower(currency)] {
		return amount
	}
	return amount * 100
}

// FromMinor is the inverse of ToMinor.
func FromMinor(amount int64, currency string) int64 {
	if zeroDecimal[strings.ToLower(currency)] {
		return amount
	}
	return amount / 100
}
