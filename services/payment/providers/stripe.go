package providers

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"rentwheels/models"

	"github.com/stripe/stripe-go/v76"
	"github.com/stripe/stripe-go/v76/client"
)

type paymentIntents interface {
	New(params *stripe.PaymentIntentParams) (*stripe.PaymentIntent, error)
}

// StripeCard charges tokenized cards with a confirmed PaymentIntent.
type StripeCard struct {
	intents paymentIntents
}

func NewStripeCard(key string) *StripeCard {
	sc := &client.API{}
	sc.Init(key, nil)
	return &StripeCard{intents: sc.PaymentIntents}
}

func (s *StripeCard) Name() string { return "stripe" }

func (s *StripeCard) Charge(ctx context.Context, req ChargeRequest) (*ChargeResult, error) {
	card, ok := req.Details.(models.CardDetails)
	if !ok {
		return nil, fmt.Errorf("stripe: unexpected details %T", req.Details)
	}

	params := &stripe.PaymentIntentParams{
		Amount:        stripe.Int64(ToMinor(req.Amount, req.Currency)),
		Currency:      stripe.String(strings.ToLower(req.Currency)),
		PaymentMethod: stripe.String(card.Token),
		Confirm:       stripe.Bool(true),
		AutomaticPaymentMethods: &stripe.PaymentIntentAutomaticPaymentMethodsParams{
			Enabled:        stripe.Bool(true),
			AllowRedirects: stripe.String("never"),
		},
	}
	params.Context = ctx
	params.SetIdempotencyKey(req.IdempotencyKey)
	params.AddMetadata("booking_id", req.BookingID)
	params.AddMetadata("customer_id", req.CustomerID)

	pi, err := s.intents.New(params)
	if err != nil {
		var stripeErr *stripe.Error
		if errors.As(err, &stripeErr) {
			code := string(stripeErr.Code)
			if code == "" {
				code = string(stripeErr.Type)
			}
			return nil, &Error{
				Provider: s.Name(),
				Code:     code,
				Message:  stripeErr.Msg,
				Declined: stripeErr.Type == stripe.ErrorTypeCard,
			}
		}
		return nil, err
	}

	if pi.Status != stripe.PaymentIntentStatusSucceeded {
		return nil, &Error{
			Provider: s.Name(),
			Code:     "intent_" + string(pi.Status),
			Message:  "card payment was not completed",
			Declined: true,
		}
	}
	return &ChargeResult{Provider: s.Name(), Reference: pi.ID, Status: StatusCompleted}, nil
}
