package models

import (
	"bytes"
	"encoding/json"
	"fmt"
	"regexp"
	"strings"
)

// Mobile money carriers.
const (
	CarrierMTN    = "mtn"
	CarrierAirtel = "airtel"
)

// MethodDetails is the method-specific part of a settlement request. The
// concrete type is decided by the method name.
type MethodDetails interface {
	Method() string
	Validate() error
}

// CardDetails carries a tokenized card (e.g. a Stripe PaymentMethod id).
type CardDetails struct {
	Token string `json:"token"`
}

// MobileMoneyDetails identifies the payer's wallet.
type MobileMoneyDetails struct {
	PhoneNumber string `json:"phoneNumber"`
	Provider    string `json:"provider"`
}

// RedirectDetails is used by bank transfer and online payments, both served
// through the hosted page of the aggregator.
type RedirectDetails struct {
	Email       string `json:"email"`
	CallbackURL string `json:"callbackUrl,omitempty"`
	method      string
}

// CashDetails has no fields; cash is reconciled by hand.
type CashDetails struct{}

func (CardDetails) Method() string        { return MethodCard }
func (MobileMoneyDetails) Method() string { return MethodMobileMoney }
func (d RedirectDetails) Method() string  { return d.method }
func (CashDetails) Method() string        { return MethodCash }

var phonePattern = regexp.MustCompile(`^\+?[0-9]{9,15}$`)

func (d CardDetails) Validate() error {
	if strings.TrimSpace(d.Token) == "" {
		return fmt.Errorf("token is required for card payments")
	}
	return nil
}

func (d MobileMoneyDetails) Validate() error {
	if strings.TrimSpace(d.PhoneNumber) == "" {
		return fmt.Errorf("phoneNumber is required for mobile money payments")
	}
	if !phonePattern.MatchString(d.PhoneNumber) {
		return fmt.Errorf("phoneNumber %q is not a valid phone number", d.PhoneNumber)
	}
	switch d.Provider {
	case CarrierMTN, CarrierAirtel:
	case "":
		return fmt.Errorf("provider is required for mobile money payments")
	default:
		return fmt.Errorf("unsupported mobile money provider %q", d.Provider)
	}
	return nil
}

func (d RedirectDetails) Validate() error {
	if !strings.Contains(d.Email, "@") {
		return fmt.Errorf("a valid email is required for %s payments", d.method)
	}
	return nil
}

func (CashDetails) Validate() error { return nil }

// IsSupportedMethod reports whether the orchestrator knows the method.
func IsSupportedMethod(method string) bool {
	switch method {
	case MethodCard, MethodMobileMoney, MethodBankTransfer, MethodOnline, MethodCash:
		return true
	}
	return false
}

// ParseMethodDetails decodes raw into the variant selected by method,
// rejecting unknown fields, and validates it.
func ParseMethodDetails(method string, raw json.RawMessage) (MethodDetails, error) {
	var details MethodDetails
	switch method {
	case MethodCard:
		var d CardDetails
		if err := decodeStrict(raw, &d); err != nil {
			return nil, err
		}
		details = d
	case MethodMobileMoney:
		var d MobileMoneyDetails
		if err := decodeStrict(raw, &d); err != nil {
			return nil, err
		}
		d.Provider = strings.ToLower(strings.TrimSpace(d.Provider))
		details = d
	case MethodBankTransfer, MethodOnline:
		var d RedirectDetails
		if err := decodeStrict(raw, &d); err != nil {
			return nil, err
		}
		d.method = method
		details = d
	case MethodCash:
		var d CashDetails
		if err := decodeStrict(raw, &d); err != nil {
			return nil, err
		}
		details = d
	default:
		return nil, fmt.Errorf("unsupported payment method %q", method)
	}
	if err := details.Validate(); err != nil {
		return nil, err
	}
	return details, nil
}

func decodeStrict(raw json.RawMessage, v any) error {
	if len(bytes.TrimSpace(raw)) == 0 || string(bytes.TrimSpace(raw)) == "null" {
		return nil
	}
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		return fmt.Errorf("invalid methodDetails: %w", err)
	}
	return nil
}
