package providers

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"rentwheels/models"
)

// Aggregator talks to a Paystack-style hosted checkout used for bank
// transfers and generic online payments.
type Aggregator struct {
	baseURL     string
	secretKey   string
	callbackURL string
	client      *http.Client
}

func NewAggregator(baseURL, secretKey, callbackURL string) *Aggregator {
	return &Aggregator{
		baseURL:     strings.TrimRight(baseURL, "/"),
		secretKey:   secretKey,
		callbackURL: callbackURL,
		client:      &http.Client{Timeout: 60 * time.Second},
	}
}

func (a *Aggregator) Name() string { return "aggregator" }

type initializeRequest struct {
	Email       string            `json:"email"`
	Amount      int64             `json:"amount"`
	Currency    string            `json:"currency"`
	Reference   string            `json:"reference"`
	CallbackURL string            `json:"callback_url,omitempty"`
	Channels    []string          `json:"channels,omitempty"`
	Metadata    map[string]string `json:"metadata,omitempty"`
}

type envelope struct {
	Status  bool            `json:"status"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
}

type initializeData struct {
	AuthorizationURL string `json:"authorization_url"`
	AccessCode       string `json:"access_code"`
	Reference        string `json:"reference"`
}

type verifyData struct {
	Status    string `json:"status"`
	Reference string `json:"reference"`
	Amount    int64  `json:"amount"`
	Currency  string `json:"currency"`
}

func (a *Aggregator) Charge(ctx context.Context, req ChargeRequest) (*ChargeResult, error) {
	details, ok := req.Details.(models.RedirectDetails)
	if !ok {
		return nil, fmt.Errorf("aggregator: unexpected details %T", req.Details)
	}
	callback := details.CallbackURL
	if callback == "" {
		callback = a.callbackURL
	}
	channels := []string{"card", "mobile_money"}
	if details.Method() == models.MethodBankTransfer {
		channels = []string{"bank_transfer", "bank"}
	}

	var data initializeData
	err := a.do(ctx, http.MethodPost, "/transaction/initialize", initializeRequest{
		Email:       details.Email,
		Amount:      ToMinor(req.Amount, req.Currency),
		Currency:    req.Currency,
		Reference:   req.IdempotencyKey,
		CallbackURL: callback,
		Channels:    channels,
		Metadata:    map[string]string{"bookingId": req.BookingID, "customerId": req.CustomerID},
	}, &data)
	if err != nil {
		return nil, err
	}
	if data.AuthorizationURL == "" {
		return nil, &Error{Provider: a.Name(), Code: "bad_response", Message: "no authorization url returned"}
	}
	ref := data.Reference
	if ref == "" {
		ref = req.IdempotencyKey
	}
	return &ChargeResult{
		Provider:         a.Name(),
		Reference:        ref,
		Status:           StatusPending,
		AuthorizationURL: data.AuthorizationURL,
	}, nil
}

func (a *Aggregator) Verify(ctx context.Context, reference string) (*VerifyResult, error) {
	var data verifyData
	if err := a.do(ctx, http.MethodGet, "/transaction/verify/"+url.PathEscape(reference), nil, &data); err != nil {
		return nil, err
	}
	return &VerifyResult{
		Reference: reference,
		Success:   data.Status == "success",
		Status:    data.Status,
		Amount:    FromMinor(data.Amount, data.Currency),
		Currency:  data.Currency,
	}, nil
}

func (a *Aggregator) do(ctx context.Context, method, path string, in, out any) error {
	var body io.Reader
	if in != nil {
		b, err := json.Marshal(in)
		if err != nil {
			return err
		}
		body = bytes.NewReader(b)
	}
	req, err := http.NewRequestWithContext(ctx, method, a.baseURL+path, body)
	if err != nil {
		return err
	}
	req.Header.Set("Authorization", "Bearer "+a.secretKey)
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := a.client.Do(req)
	if err != nil {
		return fmt.Errorf("aggregator %s: %w", path, err)
	}
	defer resp.Body.Close()

	raw, _ := io.ReadAll(io.LimitReader(resp.Body, 64<<10))
	if resp.StatusCode >= 500 {
		return &Error{Provider: a.Name(), Code: "aggregator_error", Message: fmt.Sprintf("aggregator returned %d", resp.StatusCode)}
	}

	var env envelope
	if err := json.Unmarshal(raw, &env); err != nil {
		return &Error{Provider: a.Name(), Code: "bad_response", Message: "unreadable aggregator response"}
	}
	if !env.Status || resp.StatusCode >= 400 {
		msg := env.Message
		if msg == "" {
			msg = http.StatusText(resp.StatusCode)
		}
		return &Error{Provider: a.Name(), Code: "request_rejected", Message: msg, Declined: true}
	}
	if err := json.Unmarshal(env.Data, out); err != nil {
		return &Error{Provider: a.Name(), Code: "bad_response", Message: "unreadable aggregator data"}
	}
	return nil
}
