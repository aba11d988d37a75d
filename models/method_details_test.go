package models

import (
	"encoding/json"
	"testing"
)

func TestParseMethodDetails(t *testing.T) {
	tests := []struct {
		name    string
		method  string
		raw     string
		wantErr bool
	}{
		{"card ok", MethodCard, `{"token":"pm_card_visa"}`, false},
		{"card missing token", MethodCard, `{}`, true},
		{"mobile money ok", MethodMobileMoney, `{"phoneNumber":"+250788123456","provider":"MTN"}`, false},
		{"mobile money missing phone", MethodMobileMoney, `{"provider":"mtn"}`, true},
		{"mobile money missing provider", MethodMobileMoney, `{"phoneNumber":"+250788123456"}`, true},
		{"mobile money unknown carrier", MethodMobileMoney, `{"phoneNumber":"+250788123456","provider":"tigo"}`, true},
		{"mobile money bad phone", MethodMobileMoney, `{"phoneNumber":"call me","provider":"mtn"}`, true},
		{"unknown field rejected", MethodCard, `{"token":"x","cvv":"123"}`, true},
		{"cash with no details", MethodCash, ``, false},
		{"cash rejects fields", MethodCash, `{"amount":1}`, true},
		{"online needs email", MethodOnline, `{}`, true},
		{"bank transfer ok", MethodBankTransfer, `{"email":"a@b.co"}`, false},
		{"unsupported method", "crypto", `{}`, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseMethodDetails(tt.method, json.RawMessage(tt.raw))
			if (err != nil) != tt.wantErr {
				t.Fatalf("ParseMethodDetails() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestParseMethodDetailsNormalizesCarrier(t *testing.T) {
	d, err := ParseMethodDetails(MethodMobileMoney, json.RawMessage(`{"phoneNumber":"0788123456","provider":" Airtel "}`))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	mm, ok := d.(MobileMoneyDetails)
	if !ok {
		t.Fatalf("expected MobileMoneyDetails, got %T", d)
	}
	if mm.Provider != CarrierAirtel {
		t.Errorf("expected carrier airtel, got %q", mm.Provider)
	}
}

func TestRedirectDetailsCarryMethod(t *testing.T) {
	d, err := ParseMethodDetails(MethodBankTransfer, json.RawMessage(`{"email":"a@b.co"}`))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if d.Method() != MethodBankTransfer {
		t.Errorf("expected bank_transfer, got %s", d.Method())
	}
}
