package providers

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"rentwheels/models"
)

// Carrier is the collection endpoint of one mobile money operator.
type Carrier struct {
	BaseURL string
	APIKey  string
}

// MobileMoney requests wallet debits from MTN MoMo and Airtel Money.
type MobileMoney struct {
	carriers map[string]Carrier
	client   *http.Client
}

func NewMobileMoney(carriers map[string]Carrier) *MobileMoney {
	return &MobileMoney{
		carriers: carriers,
		client:   &http.Client{Timeout: 60 * time.Second},
	}
}

func (m *MobileMoney) Name() string { return models.MethodMobileMoney }

type collectionRequest struct {
	Amount       int64  `json:"amount"`
	Currency     string `json:"currency"`
	PhoneNumber  string `json:"phoneNumber"`
	ExternalID   string `json:"externalId"`
	PayerMessage string `json:"payerMessage"`
}

type collectionResponse struct {
	Status    string `json:"status"`
	Reference string `json:"reference"`
	Reason    string `json:"reason"`
}

func (m *MobileMoney) Charge(ctx context.Context, req ChargeRequest) (*ChargeResult, error) {
	wallet, ok := req.Details.(models.MobileMoneyDetails)
	if !ok {
		return nil, fmt.Errorf("mobile money: unexpected details %T", req.Details)
	}
	carrier, ok := m.carriers[wallet.Provider]
	if !ok || carrier.BaseURL == "" {
		return nil, &Error{Provider: wallet.Provider, Code: "carrier_unavailable", Message: "carrier is not configured"}
	}

	body, err := json.Marshal(collectionRequest{
		Amount:       req.Amount,
		Currency:     req.Currency,
		PhoneNumber:  wallet.PhoneNumber,
		ExternalID:   req.BookingID,
		PayerMessage: "Vehicle rental " + req.BookingID,
	})
	if err != nil {
		return nil, err
	}
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost,
		strings.TrimRight(carrier.BaseURL, "/")+"/v1/collections", bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Authorization", "Bearer "+carrier.APIKey)
	httpReq.Header.Set("X-Reference-Id", req.IdempotencyKey)

	resp, err := m.client.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("%s collection: %w", wallet.Provider, err)
	}
	defer resp.Body.Close()

	raw, _ := io.ReadAll(io.LimitReader(resp.Body, 64<<10))
	if resp.StatusCode >= 500 {
		return nil, &Error{Provider: wallet.Provider, Code: "carrier_error", Message: fmt.Sprintf("carrier returned %d", resp.StatusCode)}
	}

	var out collectionResponse
	if err := json.Unmarshal(raw, &out); err != nil {
		return nil, &Error{Provider: wallet.Provider, Code: "bad_response", Message: "unreadable carrier response"}
	}

	switch strings.ToUpper(out.Status) {
	case "SUCCESSFUL", "SUCCESS":
		ref := out.Reference
		if ref == "" {
			ref = req.IdempotencyKey
		}
		return &ChargeResult{Provider: wallet.Provider, Reference: ref, Status: StatusCompleted}, nil
	case "FAILED", "REJECTED":
		reason := out.Reason
		if reason == "" {
			reason = "payment was declined by the wallet holder"
		}
		return nil, &Error{Provider: wallet.Provider, Code: "payment_declined", Message: reason, Declined: true}
	case "PENDING", "ONGOING":
		return nil, &Error{Provider: wallet.Provider, Code: "payment_pending", Message: "debit request is still pending with the carrier", Ambiguous: true}
	default:
		if resp.StatusCode == http.StatusAccepted {
			return nil, &Error{Provider: wallet.Provider, Code: "payment_pending", Message: "carrier accepted the debit request without a final status", Ambiguous: true}
		}
		if resp.StatusCode >= 400 {
			return nil, &Error{Provider: wallet.Provider, Code: "request_rejected", Message: out.Reason, Declined: true}
		}
		return nil, &Error{Provider: wallet.Provider, Code: "unexpected_status", Message: "carrier returned status " + out.Status}
	}
}
